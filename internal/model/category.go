package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Category is a user-defined label assignable to tasks.
type Category struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	CreatedBy string `gorm:"index:idx_owner_category_name,unique;not null"`
	Name      string `gorm:"index:idx_owner_category_name,unique;not null"`
	Color     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (c *Category) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}
