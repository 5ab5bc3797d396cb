package automation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Validation constants.
const (
	maxNameLength        = 100
	maxIDLength          = 100
	maxDescriptionLength = 500
	maxConditions        = 50
	maxActions           = 100
)

// forbiddenIDChars would break URL paths and MQTT event topics.
const forbiddenIDChars = "/+# \t\n"

// ValidateAutomation checks the structural parts of a definition. Condition
// and action kinds are not checked here: an unregistered kind
// surfaces when the automation runs.
func ValidateAutomation(a *Automation) error {
	if a == nil {
		return ErrInvalidAutomation
	}
	if err := ValidateID(a.ID); err != nil {
		return err
	}
	if err := ValidateName(a.Name); err != nil {
		return err
	}
	if utf8.RuneCountInString(a.Description) > maxDescriptionLength {
		return fmt.Errorf("%w: description exceeds %d characters", ErrInvalidAutomation, maxDescriptionLength)
	}
	if a.Trigger.Type() == "" {
		return ErrMissingTrigger
	}
	if len(a.Conditions) > maxConditions {
		return fmt.Errorf("%w: more than %d conditions", ErrInvalidAutomation, maxConditions)
	}
	if len(a.Actions) > maxActions {
		return fmt.Errorf("%w: more than %d actions", ErrInvalidAutomation, maxActions)
	}
	return nil
}

// ValidateID checks an automation ID. Empty is allowed; Save assigns one.
func ValidateID(id string) error {
	if len(id) > maxIDLength {
		return fmt.Errorf("%w: id exceeds %d characters", ErrInvalidAutomation, maxIDLength)
	}
	if strings.ContainsAny(id, forbiddenIDChars) {
		return fmt.Errorf("%w: id %q contains a reserved character", ErrInvalidAutomation, id)
	}
	return nil
}

// ValidateName checks an automation name.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidName)
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidName, maxNameLength)
	}
	return nil
}

// GenerateID returns a new random automation or run ID.
func GenerateID() string {
	return uuid.NewString()
}
