// Package calendar keeps a calendar copy of planner events. The planner only
// needs to add an entry and later remove it by the id it got back.
package calendar

import (
	"context"
	"errors"

	"event-planner/internal/model"
)

// ErrEventNotFound is returned when removing an entry the calendar does not have.
var ErrEventNotFound = errors.New("calendar event not found")

// Syncer is the calendar side of event lifecycle side effects.
type Syncer interface {
	AddEvent(ctx context.Context, event model.Event) (string, error)
	RemoveEvent(ctx context.Context, externalID string) error
}

// Noop is used when calendar sync is disabled.
type Noop struct{}

func (Noop) AddEvent(context.Context, model.Event) (string, error) { return "", nil }

func (Noop) RemoveEvent(context.Context, string) error { return nil }
