package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"event-planner/internal/model"
)

// EventRepository stores events and the user-event join records that scope
// them to their owners.
type EventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

// CreateForUser writes the event and its join record atomically.
func (r *EventRepository) CreateForUser(ctx context.Context, event *model.Event, userID string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(event).Error; err != nil {
			return fmt.Errorf("create event: %w", err)
		}
		link := model.UserEvent{UserID: userID, EventID: event.ID}
		if err := tx.Create(&link).Error; err != nil {
			return fmt.Errorf("create user event: %w", err)
		}
		return nil
	})
	return err
}

func (r *EventRepository) FindByID(ctx context.Context, eventID string) (*model.Event, error) {
	var event model.Event
	if err := r.db.WithContext(ctx).Where("id = ?", eventID).First(&event).Error; err != nil {
		return nil, notFound(err)
	}
	return &event, nil
}

// FindForUser returns the event only if the user owns it.
func (r *EventRepository) FindForUser(ctx context.Context, userID, eventID string) (*model.Event, error) {
	var event model.Event
	err := r.ownedBy(r.db.WithContext(ctx), userID).
		Select("events.*").
		Where("events.id = ?", eventID).
		First(&event).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &event, nil
}

// ListByUser enumerates a user's events through the join, soonest first.
func (r *EventRepository) ListByUser(ctx context.Context, userID string) ([]model.Event, error) {
	var events []model.Event
	if err := r.ownedBy(r.db.WithContext(ctx), userID).
		Select("events.*").
		Order("events.due_date ASC").
		Find(&events).Error; err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// ListByUserAndStatus filters a user's events by lifecycle state. Events
// without a stored status count as upcoming.
func (r *EventRepository) ListByUserAndStatus(ctx context.Context, userID string, status model.EventStatus) ([]model.Event, error) {
	query := withStatus(r.ownedBy(r.db.WithContext(ctx), userID), status)

	var events []model.Event
	if err := query.Select("events.*").Order("events.due_date ASC").Find(&events).Error; err != nil {
		return nil, fmt.Errorf("list %s events: %w", status, err)
	}
	return events, nil
}

// CountByUserAndStatus is ListByUserAndStatus without loading rows.
func (r *EventRepository) CountByUserAndStatus(ctx context.Context, userID string, status model.EventStatus) (int64, error) {
	query := withStatus(r.ownedBy(r.db.WithContext(ctx), userID), status)

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count %s events: %w", status, err)
	}
	return count, nil
}

// UpdateFields applies a partial update.
func (r *EventRepository) UpdateFields(ctx context.Context, eventID string, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&model.Event{}).Where("id = ?", eventID).Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("update event: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Purge removes the event, its tasks and every join record pointing at it.
func (r *EventRepository) Purge(ctx context.Context, eventID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("event_id = ?", eventID).Delete(&model.Task{}).Error; err != nil {
			return fmt.Errorf("delete event tasks: %w", err)
		}
		if err := tx.Where("event_id = ?", eventID).Delete(&model.UserEvent{}).Error; err != nil {
			return fmt.Errorf("delete user events: %w", err)
		}
		res := tx.Where("id = ?", eventID).Delete(&model.Event{})
		if res.Error != nil {
			return fmt.Errorf("delete event: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (r *EventRepository) ownedBy(db *gorm.DB, userID string) *gorm.DB {
	return db.Model(&model.Event{}).
		Joins("JOIN user_events ON user_events.event_id = events.id").
		Where("user_events.user_id = ?", userID)
}

func withStatus(db *gorm.DB, status model.EventStatus) *gorm.DB {
	if status == model.EventUpcoming {
		return db.Where("(events.status_id = ? OR events.status_id IS NULL)", status)
	}
	return db.Where("events.status_id = ?", status)
}
