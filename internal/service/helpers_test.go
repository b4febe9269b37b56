package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"event-planner/internal/logging"
	"event-planner/internal/metrics"
	"event-planner/internal/model"
	"event-planner/internal/repository"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// fakeCalendar records calls and fails on demand.
type fakeCalendar struct {
	mu        sync.Mutex
	entries   map[string]string
	added     int
	removed   []string
	addErr    error
	removeErr error
}

func newFakeCalendar() *fakeCalendar {
	return &fakeCalendar{entries: map[string]string{}}
}

func (f *fakeCalendar) AddEvent(_ context.Context, event model.Event) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return "", f.addErr
	}
	f.added++
	id := "cal-" + event.ID
	f.entries[id] = event.Name
	return id, nil
}

func (f *fakeCalendar) RemoveEvent(_ context.Context, externalID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.removeErr != nil {
		return f.removeErr
	}
	f.removed = append(f.removed, externalID)
	delete(f.entries, externalID)
	return nil
}

type fixture struct {
	db         *gorm.DB
	cal        *fakeCalendar
	metrics    *metrics.Recorder
	users      *repository.UserRepository
	eventRepo  *repository.EventRepository
	taskRepo   *repository.TaskRepository
	events     *EventService
	tasks      *TaskService
	categories *CategoryService
	reminders  *ReminderService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := repository.NewDB(":memory:", logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	f := &fixture{
		db:        db,
		cal:       newFakeCalendar(),
		metrics:   metrics.New(),
		users:     repository.NewUserRepository(db),
		eventRepo: repository.NewEventRepository(db),
		taskRepo:  repository.NewTaskRepository(db),
	}
	categoryRepo := repository.NewCategoryRepository(db)
	opts := Options{
		Log:     logging.Discard(),
		Metrics: f.metrics,
		Timeout: 5 * time.Second,
		Now:     func() time.Time { return testNow },
	}
	f.events = NewEventService(f.eventRepo, f.cal, opts)
	f.tasks = NewTaskService(f.taskRepo, f.eventRepo, categoryRepo, opts)
	f.categories = NewCategoryService(categoryRepo, f.taskRepo, opts)
	f.reminders = NewReminderService(f.events, f.tasks, f.categories, opts)
	return f
}

func (f *fixture) user(t *testing.T, telegramID int64) *model.User {
	t.Helper()
	user, err := f.users.UpsertFromTelegram(context.Background(), telegramID, "Test", "User", "tester")
	require.NoError(t, err)
	return user
}

func (f *fixture) event(t *testing.T, userID, name string, due time.Time, ongoing bool) *model.Event {
	t.Helper()
	res, err := f.events.CreateEvent(context.Background(), userID, EventInput{Name: name, DueDate: due, Ongoing: ongoing})
	require.NoError(t, err)
	return res.Event
}

// failQueries makes every query whose destination matches fail.
func failQueries(t *testing.T, db *gorm.DB, name string, match func(*gorm.DB) bool) {
	t.Helper()
	err := db.Callback().Query().Before("gorm:query").Register(name, func(tx *gorm.DB) {
		if match(tx) {
			_ = tx.AddError(errors.New("store unavailable"))
		}
	})
	require.NoError(t, err)
}

func isCount(tx *gorm.DB) bool {
	_, ok := tx.Statement.Dest.(*int64)
	return ok
}

func closeDB(t *testing.T, db *gorm.DB) {
	t.Helper()
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
}
