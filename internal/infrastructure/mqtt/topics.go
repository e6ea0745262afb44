package mqtt

import (
	"fmt"
	"strings"
)

// TopicPrefix is the root of every topic this service publishes or reads.
const TopicPrefix = "periphcore"

// Topic categories under TopicPrefix.
const (
	categoryEvent  = "event"
	categoryAlert  = "alert"
	categoryReport = "report"
	categorySystem = "system"
)

// Topics builds periphcore topic strings.
//
//	topic := mqtt.Topics{}.Event("lab-a", "PC-01")
//	// periphcore/event/lab-a/PC-01
type Topics struct{}

// Event is where PC agents publish connect/disconnect events.
//
// Example: periphcore/event/lab-a/PC-01
func (Topics) Event(labScope, pcTag string) string {
	return scoped(categoryEvent, labScope, pcTag)
}

// Alert is where raised alerts are announced.
//
// Example: periphcore/alert/lab-a/PC-01
func (Topics) Alert(labScope, pcTag string) string {
	return scoped(categoryAlert, labScope, pcTag)
}

// Report carries the latest reconciliation report for a PC. Published retained.
//
// Example: periphcore/report/lab-a/PC-01
func (Topics) Report(labScope, pcTag string) string {
	return scoped(categoryReport, labScope, pcTag)
}

// SystemStatus carries the service's online/offline state and its LWT.
//
// Example: periphcore/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/%s/status", TopicPrefix, categorySystem)
}

// AllEvents matches events from every PC in every lab.
//
// Pattern: periphcore/event/+/+
func (Topics) AllEvents() string {
	return fmt.Sprintf("%s/%s/+/+", TopicPrefix, categoryEvent)
}

// LabEvents matches events from every PC in labScope.
//
// Pattern: periphcore/event/lab-a/+
func (Topics) LabEvents(labScope string) string {
	return fmt.Sprintf("%s/%s/%s/+", TopicPrefix, categoryEvent, segment(labScope))
}

// ParseEventTopic extracts lab scope and PC tag from an event topic.
// ok is false if topic is not an event topic.
func ParseEventTopic(topic string) (labScope, pcTag string, ok bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 4 || parts[0] != TopicPrefix || parts[1] != categoryEvent {
		return "", "", false
	}
	if parts[2] == "" || parts[3] == "" {
		return "", "", false
	}
	return parts[2], parts[3], true
}

func scoped(category, labScope, pcTag string) string {
	return fmt.Sprintf("%s/%s/%s/%s", TopicPrefix, category, segment(labScope), segment(pcTag))
}

// segment makes s safe to use as one topic level. Wildcards and separators
// are replaced; an empty value becomes "_".
func segment(s string) string {
	if s == "" {
		return "_"
	}
	return strings.NewReplacer("/", "_", "+", "_", "#", "_").Replace(s)
}
