// Package planner holds the event lifecycle and ranking rules shared by the
// services and the bot. Everything here is pure: no store access, no clocks.
package planner

import (
	"errors"
	"fmt"

	"event-planner/internal/model"
)

// ErrInvalidTransition is returned when an action does not apply to the
// current state of an event.
var ErrInvalidTransition = errors.New("invalid status transition")

// InitialStatus picks the state of a newly created event.
func InitialStatus(ongoing bool) model.EventStatus {
	if ongoing {
		return model.EventOngoing
	}
	return model.EventUpcoming
}

// Complete moves an upcoming or ongoing event to completed.
func Complete(current model.EventStatus) (model.EventStatus, error) {
	switch current {
	case model.EventUpcoming, model.EventOngoing:
		return model.EventCompleted, nil
	default:
		return current, fmt.Errorf("complete %s event: %w", current, ErrInvalidTransition)
	}
}

// Restore re-activates a completed or cancelled event. Restored events are
// always ongoing, never upcoming.
func Restore(current model.EventStatus) (model.EventStatus, error) {
	switch current {
	case model.EventCompleted, model.EventCancelled:
		return model.EventOngoing, nil
	default:
		return current, fmt.Errorf("restore %s event: %w", current, ErrInvalidTransition)
	}
}

// ToggleComplete is the single complete/restore action.
func ToggleComplete(current model.EventStatus) model.EventStatus {
	if current == model.EventCompleted || current == model.EventCancelled {
		return model.EventOngoing
	}
	return model.EventCompleted
}

// ToggleLabel names what ToggleComplete will do from the given state.
func ToggleLabel(current model.EventStatus) string {
	if current == model.EventCompleted || current == model.EventCancelled {
		return "Restore"
	}
	return "Mark complete"
}

// Delete returns the state after a delete action. Deleting an event that is
// already cancelled is a hard delete; the returned status is then meaningless.
func Delete(current model.EventStatus) (next model.EventStatus, hardDelete bool) {
	if current == model.EventCancelled {
		return current, true
	}
	return model.EventCancelled, false
}

// RemovesCalendarEntry reports whether a transition must drop the event's
// calendar entry.
func RemovesCalendarEntry(from, to model.EventStatus) bool {
	if to == model.EventCancelled {
		return true
	}
	return from == model.EventCancelled && to == model.EventCompleted
}
