package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"event-planner/internal/model"
)

// TaskRepository handles CRUD for tasks.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (r *TaskRepository) FindByID(ctx context.Context, taskID string) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).Where("id = ?", taskID).First(&task).Error; err != nil {
		return nil, notFound(err)
	}
	return &task, nil
}

// ListByEvent returns the tasks of one event ordered by due date.
func (r *TaskRepository) ListByEvent(ctx context.Context, eventID string) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Where("event_id = ?", eventID).
		Order("due_date ASC, created_at ASC").
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// ListByUser returns the tasks of every event the user owns.
func (r *TaskRepository) ListByUser(ctx context.Context, userID string) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Model(&model.Task{}).
		Select("tasks.*").
		Joins("JOIN user_events ON user_events.event_id = tasks.event_id").
		Where("user_events.user_id = ?", userID).
		Order("tasks.due_date ASC").
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list user tasks: %w", err)
	}
	return tasks, nil
}

// CountByEvent returns how many tasks the event has and how many are completed.
func (r *TaskRepository) CountByEvent(ctx context.Context, eventID string) (total, completed int64, err error) {
	db := r.db.WithContext(ctx).Model(&model.Task{})
	if err := db.Where("event_id = ?", eventID).Count(&total).Error; err != nil {
		return 0, 0, fmt.Errorf("count tasks: %w", err)
	}
	if total == 0 {
		return 0, 0, nil
	}
	if err := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("event_id = ? AND status = ?", eventID, model.TaskCompleted).
		Count(&completed).Error; err != nil {
		return 0, 0, fmt.Errorf("count completed tasks: %w", err)
	}
	return total, completed, nil
}

// CountByCategory counts tasks that still reference the category.
func (r *TaskRepository) CountByCategory(ctx context.Context, categoryID string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("category_id = ?", categoryID).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count category tasks: %w", err)
	}
	return count, nil
}

// Save replaces every column of an existing task.
func (r *TaskRepository) Save(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Save(task).Error; err != nil {
		return fmt.Errorf("save task: %w", err)
	}
	return nil
}

// UpdateStatus is a partial update of the status column.
func (r *TaskRepository) UpdateStatus(ctx context.Context, taskID string, status model.TaskStatus) error {
	res := r.db.WithContext(ctx).Model(&model.Task{}).Where("id = ?", taskID).Update("status", status)
	if res.Error != nil {
		return fmt.Errorf("update task status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *TaskRepository) Delete(ctx context.Context, taskID string) error {
	res := r.db.WithContext(ctx).Where("id = ?", taskID).Delete(&model.Task{})
	if res.Error != nil {
		return fmt.Errorf("delete task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
