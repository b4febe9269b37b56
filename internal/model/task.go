package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Task is a unit of work attached to an event.
type Task struct {
	ID         string  `gorm:"primaryKey;type:varchar(36)"`
	EventID    string  `gorm:"index;not null"`
	CategoryID *string `gorm:"index"`
	Name       string  `gorm:"not null"`
	DueDate    time.Time
	Status     TaskStatus `gorm:"default:0"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (t *Task) BeforeCreate(*gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	return nil
}

// IsCompleted is derived from Status so the two can never disagree.
func (t Task) IsCompleted() bool {
	return t.Status == TaskCompleted
}
