package mqtt

import (
	"fmt"
	"strings"
)

// Topic scheme:
//
//	sensaur/reading/{device_id}/{component}  accepted readings, retained
//	sensaur/output/{component}               output commands, subscribed
//	sensaur/hub/health                       periodic hub health, retained
//	sensaur/hub/status                       online/offline + LWT, retained
const (
	// TopicPrefix is the base for all hub topics.
	TopicPrefix = "sensaur"
)

// Topics provides builders for Sensaur MQTT topics.
// Using these helpers keeps topic naming consistent across the codebase.
type Topics struct{}

// Reading returns the topic a component's readings are published on.
//
// Example: sensaur/reading/devA/temp_2
func (Topics) Reading(deviceID, component string) string {
	return fmt.Sprintf("%s/reading/%s/%s", TopicPrefix, topicSafe(deviceID), topicSafe(component))
}

// OutputCommands returns the wildcard pattern for output command
// subscriptions.
//
// Example: sensaur/output/+
func (Topics) OutputCommands() string {
	return TopicPrefix + "/output/+"
}

// OutputComponent extracts the component name from an output command
// topic. Returns false if the topic is not an output command topic.
func (Topics) OutputComponent(topic string) (string, bool) {
	rest, ok := strings.CutPrefix(topic, TopicPrefix+"/output/")
	if !ok || rest == "" || strings.Contains(rest, "/") {
		return "", false
	}
	return rest, true
}

// HubHealth returns the topic for periodic hub health messages.
func (Topics) HubHealth() string {
	return TopicPrefix + "/hub/health"
}

// HubStatus returns the topic for hub online/offline status and the LWT.
func (Topics) HubStatus() string {
	return TopicPrefix + "/hub/status"
}

// TopicSafe makes a name usable as a single MQTT topic level. Display
// names may contain spaces ("temp 2") and device IDs are firmware-chosen,
// so both are normalised. Exported so subscribers can match incoming
// topic levels against registry names.
func TopicSafe(name string) string {
	return topicSafe(name)
}

func topicSafe(name string) string {
	name = strings.ReplaceAll(name, " ", "_")
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "+", "_")
	name = strings.ReplaceAll(name, "#", "_")
	return name
}
