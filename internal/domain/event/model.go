package event

import (
	"strings"
	"time"
)

// EC2 instance lifecycle states as they appear in state-change events
const (
	StatePending      = "pending"
	StateRunning      = "running"
	StateStopping     = "stopping"
	StateStopped      = "stopped"
	StateShuttingDown = "shutting-down"
	StateTerminated   = "terminated"
)

// InstanceStateDetail is the "detail" object of an EC2 Instance State-change
// Notification.
type InstanceStateDetail struct {
	InstanceID string `json:"instance-id" validate:"required"`
	State      string `json:"state"`
}

// InstanceStateEvent is a decoded instance state-change event
type InstanceStateEvent struct {
	ID         string              `json:"id,omitempty"`
	Source     string              `json:"source,omitempty"`
	DetailType string              `json:"detail-type,omitempty"`
	Region     string              `json:"region,omitempty"`
	Time       time.Time           `json:"time,omitempty"`
	Detail     InstanceStateDetail `json:"detail"`
}

// ScheduledDetail is the optional detail of a scheduled trigger.
type ScheduledDetail struct {
	Action string `json:"action,omitempty"`
}

// ScheduledEvent is a decoded scheduled (cron) trigger
type ScheduledEvent struct {
	ID     string          `json:"id,omitempty"`
	Source string          `json:"source,omitempty"`
	Time   time.Time       `json:"time,omitempty"`
	Detail ScheduledDetail `json:"detail"`
}

// States is a set of instance states. An empty set matches every state.
type States []string

// ParseStates builds a States set from a list, normalising case and spaces
func ParseStates(values []string) States {
	out := make(States, 0, len(values))
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Contains reports whether state is in the set
func (s States) Contains(state string) bool {
	if len(s) == 0 {
		return true
	}
	state = strings.ToLower(state)
	for _, v := range s {
		if v == state {
			return true
		}
	}
	return false
}
