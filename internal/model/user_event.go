package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserEvent links a user to an event they own.
type UserEvent struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	UserID    string `gorm:"index:idx_user_event,unique;not null"`
	EventID   string `gorm:"index:idx_user_event,unique;index;not null"`
	CreatedAt time.Time
}

func (ue *UserEvent) BeforeCreate(*gorm.DB) error {
	if ue.ID == "" {
		ue.ID = uuid.New().String()
	}
	return nil
}
