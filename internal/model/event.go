package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Event is a user-scheduled occasion that owns tasks.
type Event struct {
	ID              string    `gorm:"primaryKey;type:varchar(36)"`
	Name            string    `gorm:"not null"`
	DueDate         time.Time `gorm:"index"`
	Venue           string
	Priority        *Priority
	IsOutdoor       bool         `gorm:"default:false"`
	StatusID        *EventStatus `gorm:"index"`
	CalendarEventID string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (e *Event) BeforeCreate(*gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	return nil
}

// Status returns the lifecycle state, treating an unset status as upcoming.
func (e Event) Status() EventStatus {
	if e.StatusID == nil {
		return EventUpcoming
	}
	return *e.StatusID
}

// EffectivePriority returns the rank used for ordering; unset is Default.
func (e Event) EffectivePriority() Priority {
	if e.Priority == nil || !e.Priority.Valid() {
		return PriorityDefault
	}
	return *e.Priority
}

func (e Event) CalendarSynced() bool {
	return e.CalendarEventID != ""
}
