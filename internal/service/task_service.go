package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"event-planner/internal/model"
	"event-planner/internal/planner"
	"event-planner/internal/repository"
)

// TaskInput represents data required to create or edit a task.
type TaskInput struct {
	EventID string
	Name    string
	DueDate time.Time
	// CategoryID selects an existing category. When empty, Category is
	// looked up by name and created if missing.
	CategoryID string
	Category   string
	Status     model.TaskStatus
}

// DueTask is a task about to become due, with its event's name for display.
type DueTask struct {
	Task      model.Task
	EventName string
}

// TaskService wraps task-related business logic.
type TaskService struct {
	taskRepo     *repository.TaskRepository
	eventRepo    *repository.EventRepository
	categoryRepo *repository.CategoryRepository
	opts         Options
}

func NewTaskService(taskRepo *repository.TaskRepository, eventRepo *repository.EventRepository, categoryRepo *repository.CategoryRepository, opts Options) *TaskService {
	return &TaskService{taskRepo: taskRepo, eventRepo: eventRepo, categoryRepo: categoryRepo, opts: opts.withDefaults()}
}

func (s *TaskService) CreateTask(ctx context.Context, userID string, input TaskInput) (*model.Task, error) {
	if err := validateUser(userID); err != nil {
		return nil, err
	}
	input.Name = strings.TrimSpace(input.Name)
	if err := validateTaskInput(input); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.EventID) == "" {
		return nil, invalid("event_id", "is required")
	}

	if err := s.ensureEvent(ctx, userID, input.EventID); err != nil {
		return nil, err
	}
	categoryID, err := s.categoryFor(ctx, userID, input)
	if err != nil {
		return nil, err
	}

	task := model.Task{
		EventID:    input.EventID,
		CategoryID: categoryID,
		Name:       input.Name,
		DueDate:    input.DueDate,
		Status:     input.Status,
	}

	opCtx, cancel := s.opts.opCtx(ctx)
	defer cancel()
	if err := s.taskRepo.Create(opCtx, &task); err != nil {
		return nil, storeErr("create task", err)
	}

	s.opts.Metrics.TaskCreated()
	s.opts.Log.WithFields(logrus.Fields{"user_id": userID, "event_id": task.EventID, "task_id": task.ID}).Info("task created")
	return &task, nil
}

// UpdateTask applies the edit form. The task stays on its event.
func (s *TaskService) UpdateTask(ctx context.Context, userID, taskID string, input TaskInput) (*model.Task, error) {
	input.Name = strings.TrimSpace(input.Name)
	if err := validateTaskInput(input); err != nil {
		return nil, err
	}
	task, err := s.GetTask(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	categoryID, err := s.categoryFor(ctx, userID, input)
	if err != nil {
		return nil, err
	}

	task.Name = input.Name
	task.DueDate = input.DueDate
	task.CategoryID = categoryID
	task.Status = input.Status

	opCtx, cancel := s.opts.opCtx(ctx)
	defer cancel()
	if err := s.taskRepo.Save(opCtx, task); err != nil {
		return nil, storeErr("update task", err)
	}
	return task, nil
}

// GetTask returns a task if it belongs to one of the user's events.
func (s *TaskService) GetTask(ctx context.Context, userID, taskID string) (*model.Task, error) {
	if err := validateUser(userID); err != nil {
		return nil, err
	}
	opCtx, cancel := s.opts.opCtx(ctx)
	task, err := s.taskRepo.FindByID(opCtx, taskID)
	cancel()
	if err != nil {
		return nil, storeErr("find task", err)
	}
	if err := s.ensureEvent(ctx, userID, task.EventID); err != nil {
		return nil, err
	}
	return task, nil
}

// ListByEvent returns the event's tasks. An event the user cannot see yields
// an empty list.
func (s *TaskService) ListByEvent(ctx context.Context, userID, eventID string) ([]model.Task, error) {
	if err := validateUser(userID); err != nil {
		return nil, err
	}
	if err := s.ensureEvent(ctx, userID, eventID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	opCtx, cancel := s.opts.opCtx(ctx)
	defer cancel()
	tasks, err := s.taskRepo.ListByEvent(opCtx, eventID)
	if err != nil {
		return nil, storeErr("list tasks", err)
	}
	return tasks, nil
}

func (s *TaskService) SetStatus(ctx context.Context, userID, taskID string, status model.TaskStatus) (*model.Task, error) {
	if !status.Valid() {
		return nil, invalid("status", "unknown task status")
	}
	task, err := s.GetTask(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	opCtx, cancel := s.opts.opCtx(ctx)
	defer cancel()
	if err := s.taskRepo.UpdateStatus(opCtx, task.ID, status); err != nil {
		return nil, storeErr("update task status", err)
	}
	task.Status = status
	return task, nil
}

func (s *TaskService) CompleteTask(ctx context.Context, userID, taskID string) (*model.Task, error) {
	return s.SetStatus(ctx, userID, taskID, model.TaskCompleted)
}

func (s *TaskService) DeleteTask(ctx context.Context, userID, taskID string) error {
	task, err := s.GetTask(ctx, userID, taskID)
	if err != nil {
		return err
	}
	opCtx, cancel := s.opts.opCtx(ctx)
	defer cancel()
	if err := s.taskRepo.Delete(opCtx, task.ID); err != nil {
		return storeErr("delete task", err)
	}
	s.opts.Log.WithFields(logrus.Fields{"user_id": userID, "task_id": task.ID}).Info("task deleted")
	return nil
}

// CompletionStats counts the event's tasks. An event the user cannot see
// counts as empty.
func (s *TaskService) CompletionStats(ctx context.Context, userID, eventID string) (planner.CompletionStats, error) {
	if err := validateUser(userID); err != nil {
		return planner.CompletionStats{}, err
	}
	if strings.TrimSpace(eventID) == "" {
		return planner.CompletionStats{}, invalid("event_id", "is required")
	}
	if err := s.ensureEvent(ctx, userID, eventID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return planner.CompletionStats{}, nil
		}
		return planner.CompletionStats{}, err
	}

	opCtx, cancel := s.opts.opCtx(ctx)
	defer cancel()
	total, completed, err := s.taskRepo.CountByEvent(opCtx, eventID)
	if err != nil {
		return planner.CompletionStats{}, storeErr("count tasks", err)
	}
	return planner.CompletionStats{Total: int(total), Completed: int(completed)}, nil
}

// DueSoon lists the user's unfinished tasks due within the notify window.
func (s *TaskService) DueSoon(ctx context.Context, userID string) ([]DueTask, error) {
	if err := validateUser(userID); err != nil {
		return nil, err
	}

	opCtx, cancel := s.opts.opCtx(ctx)
	defer cancel()
	tasks, err := s.taskRepo.ListByUser(opCtx, userID)
	if err != nil {
		return nil, storeErr("list tasks", err)
	}
	due := planner.DueSoon(tasks, s.opts.Now(), s.opts.DueSoonWindow)
	if len(due) == 0 {
		return nil, nil
	}

	events, err := s.eventRepo.ListByUser(opCtx, userID)
	if err != nil {
		return nil, storeErr("list events", err)
	}
	names := make(map[string]string, len(events))
	for _, event := range events {
		names[event.ID] = event.Name
	}

	result := make([]DueTask, 0, len(due))
	for _, task := range due {
		result = append(result, DueTask{Task: task, EventName: names[task.EventID]})
	}
	return result, nil
}

func (s *TaskService) ensureEvent(ctx context.Context, userID, eventID string) error {
	opCtx, cancel := s.opts.opCtx(ctx)
	defer cancel()
	if _, err := s.eventRepo.FindForUser(opCtx, userID, eventID); err != nil {
		return storeErr("find event", err)
	}
	return nil
}

func (s *TaskService) categoryFor(ctx context.Context, userID string, input TaskInput) (*string, error) {
	opCtx, cancel := s.opts.opCtx(ctx)
	defer cancel()

	if id := strings.TrimSpace(input.CategoryID); id != "" {
		category, err := s.categoryRepo.GetByID(opCtx, userID, id)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, invalid("category_id", "unknown category")
		}
		if err != nil {
			return nil, storeErr("find category", err)
		}
		return &category.ID, nil
	}

	name := strings.TrimSpace(input.Category)
	if name == "" {
		return nil, nil
	}
	if strings.EqualFold(name, planner.UncategorizedName) {
		return nil, invalid("category", "is reserved")
	}
	category, err := s.categoryRepo.GetOrCreate(opCtx, userID, name)
	if err != nil {
		return nil, storeErr("get category", err)
	}
	return &category.ID, nil
}

func validateTaskInput(input TaskInput) error {
	if input.Name == "" {
		return invalid("name", "must not be empty")
	}
	if input.DueDate.IsZero() {
		return invalid("due_date", "is required")
	}
	if !input.Status.Valid() {
		return invalid("status", "unknown task status")
	}
	return nil
}
