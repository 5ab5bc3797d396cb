package automation

import "errors"

// Domain errors for the automation package.
//
//	if errors.Is(err, automation.ErrAutomationNotFound) {
//	    // handle not found case
//	}
var (
	// ErrAutomationNotFound is returned when an automation ID does not exist.
	ErrAutomationNotFound = errors.New("automation: not found")

	// ErrInvalidAutomation is returned when a definition fails validation.
	ErrInvalidAutomation = errors.New("automation: invalid")

	// ErrInvalidName is returned when an automation name is empty or too long.
	ErrInvalidName = errors.New("automation: invalid name")

	// ErrMissingTrigger is returned when an automation has no trigger type.
	ErrMissingTrigger = errors.New("automation: trigger type is required")

	// ErrUnknownTrigger is returned at bind time for an unregistered trigger kind.
	ErrUnknownTrigger = errors.New("automation: unknown trigger type")

	// ErrUnknownAction is returned at run time for an unregistered action kind.
	ErrUnknownAction = errors.New("automation: unknown action type")

	// ErrAlreadyBound is returned if a bind is attempted for an automation that
	// still holds a binding. Seeing it means a lifecycle path skipped unbind.
	ErrAlreadyBound = errors.New("automation: trigger already bound")

	// ErrEngineClosed is returned by lifecycle calls after Close.
	ErrEngineClosed = errors.New("automation: engine closed")
)
