package mqtt

import "fmt"

// TopicPrefix is the root of every topic the runtime publishes.
const TopicPrefix = "automator"

// Topics builds runtime topic names.
//
//	mqtt.Topics{}.Event("backup-nightly", "error")
//	// automator/event/backup-nightly/error
type Topics struct{}

// Event returns the topic a run event is mirrored to.
func (Topics) Event(automationID, eventType string) string {
	return fmt.Sprintf("%s/event/%s/%s", TopicPrefix, automationID, eventType)
}

// AutomationEvents matches every event of one automation.
func (Topics) AutomationEvents(automationID string) string {
	return fmt.Sprintf("%s/event/%s/+", TopicPrefix, automationID)
}

// AllEvents matches every mirrored run event.
func (Topics) AllEvents() string {
	return TopicPrefix + "/event/#"
}

// SystemStatus is the retained online/offline topic (also the LWT topic).
func (Topics) SystemStatus() string {
	return TopicPrefix + "/system/status"
}
