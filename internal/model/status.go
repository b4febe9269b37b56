package model

// EventStatus is the lifecycle state of an event.
type EventStatus int

const (
	EventOngoing EventStatus = iota
	EventUpcoming
	EventCompleted
	EventCancelled
)

// AllEventStatuses lists the states in display order.
var AllEventStatuses = []EventStatus{EventOngoing, EventUpcoming, EventCompleted, EventCancelled}

func (s EventStatus) Valid() bool {
	return s >= EventOngoing && s <= EventCancelled
}

func (s EventStatus) String() string {
	switch s {
	case EventOngoing:
		return "ongoing"
	case EventUpcoming:
		return "upcoming"
	case EventCompleted:
		return "completed"
	case EventCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// ParseEventStatus accepts a status name as printed by String.
func ParseEventStatus(name string) (EventStatus, bool) {
	for _, s := range AllEventStatuses {
		if s.String() == name {
			return s, true
		}
	}
	return 0, false
}

// TaskStatus is the progress state of a task.
type TaskStatus int

const (
	TaskNotStarted TaskStatus = iota
	TaskInProgress
	TaskCompleted
)

func (s TaskStatus) Valid() bool {
	return s >= TaskNotStarted && s <= TaskCompleted
}

func (s TaskStatus) String() string {
	switch s {
	case TaskNotStarted:
		return "not started"
	case TaskInProgress:
		return "in progress"
	case TaskCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Priority ranks event urgency. Smaller values are more urgent.
type Priority int

const (
	PriorityHigh Priority = iota + 1
	PriorityMedium
	PriorityLow
	PriorityDefault
)

func (p Priority) Valid() bool {
	return p >= PriorityHigh && p <= PriorityDefault
}

func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	case PriorityLow:
		return "low"
	case PriorityDefault:
		return "default"
	default:
		return "unknown"
	}
}

// ParsePriority accepts either the name or the numeric rank.
func ParsePriority(value string) (Priority, bool) {
	for p := PriorityHigh; p <= PriorityDefault; p++ {
		if p.String() == value || string(rune('0'+int(p))) == value {
			return p, true
		}
	}
	return 0, false
}
