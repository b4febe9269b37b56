package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"event-planner/internal/logging"
	"event-planner/internal/model"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := NewDB(":memory:", logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func status(s model.EventStatus) *model.EventStatus { return &s }

func TestEventRepository_CreateForUserAndList(t *testing.T) {
	db := setupTestDB(t)
	repo := NewEventRepository(db)
	ctx := context.Background()
	due := time.Now().Add(24 * time.Hour).UTC()

	first := &model.Event{Name: "Trip", DueDate: due.Add(time.Hour), StatusID: status(model.EventUpcoming)}
	second := &model.Event{Name: "Party", DueDate: due}
	other := &model.Event{Name: "Not mine", DueDate: due}
	require.NoError(t, repo.CreateForUser(ctx, first, "u1"))
	require.NoError(t, repo.CreateForUser(ctx, second, "u1"))
	require.NoError(t, repo.CreateForUser(ctx, other, "u2"))
	assert.NotEmpty(t, first.ID)

	events, err := repo.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "Party", events[0].Name)
	assert.Equal(t, "Trip", events[1].Name)

	found, err := repo.FindForUser(ctx, "u1", first.ID)
	require.NoError(t, err)
	assert.Equal(t, model.EventUpcoming, found.Status())

	_, err = repo.FindForUser(ctx, "u1", other.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEventRepository_StatusFilterTreatsNullAsUpcoming(t *testing.T) {
	db := setupTestDB(t)
	repo := NewEventRepository(db)
	ctx := context.Background()
	due := time.Now().Add(time.Hour)

	require.NoError(t, repo.CreateForUser(ctx, &model.Event{Name: "unset", DueDate: due}, "u1"))
	require.NoError(t, repo.CreateForUser(ctx, &model.Event{Name: "upcoming", DueDate: due, StatusID: status(model.EventUpcoming)}, "u1"))
	require.NoError(t, repo.CreateForUser(ctx, &model.Event{Name: "done", DueDate: due, StatusID: status(model.EventCompleted)}, "u1"))

	upcoming, err := repo.ListByUserAndStatus(ctx, "u1", model.EventUpcoming)
	require.NoError(t, err)
	assert.Len(t, upcoming, 2)

	count, err := repo.CountByUserAndStatus(ctx, "u1", model.EventCompleted)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	count, err = repo.CountByUserAndStatus(ctx, "u1", model.EventOngoing)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestEventRepository_UpdateFields(t *testing.T) {
	db := setupTestDB(t)
	repo := NewEventRepository(db)
	ctx := context.Background()

	event := &model.Event{Name: "Trip", DueDate: time.Now()}
	require.NoError(t, repo.CreateForUser(ctx, event, "u1"))

	require.NoError(t, repo.UpdateFields(ctx, event.ID, map[string]interface{}{"status_id": model.EventCancelled}))
	found, err := repo.FindByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, model.EventCancelled, found.Status())
	assert.Equal(t, "Trip", found.Name)

	err = repo.UpdateFields(ctx, "missing", map[string]interface{}{"status_id": model.EventCancelled})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEventRepository_PurgeCascades(t *testing.T) {
	db := setupTestDB(t)
	events := NewEventRepository(db)
	tasks := NewTaskRepository(db)
	ctx := context.Background()

	doomed := &model.Event{Name: "Doomed", DueDate: time.Now()}
	kept := &model.Event{Name: "Kept", DueDate: time.Now()}
	require.NoError(t, events.CreateForUser(ctx, doomed, "u1"))
	require.NoError(t, events.CreateForUser(ctx, kept, "u1"))
	require.NoError(t, tasks.Create(ctx, &model.Task{EventID: doomed.ID, Name: "a"}))
	require.NoError(t, tasks.Create(ctx, &model.Task{EventID: doomed.ID, Name: "b"}))
	require.NoError(t, tasks.Create(ctx, &model.Task{EventID: kept.ID, Name: "c"}))

	require.NoError(t, events.Purge(ctx, doomed.ID))

	_, err := events.FindByID(ctx, doomed.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	left, err := tasks.ListByEvent(ctx, doomed.ID)
	require.NoError(t, err)
	assert.Empty(t, left)

	var links int64
	require.NoError(t, db.Model(&model.UserEvent{}).Where("event_id = ?", doomed.ID).Count(&links).Error)
	assert.Zero(t, links)

	remaining, err := tasks.ListByEvent(ctx, kept.ID)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)

	assert.ErrorIs(t, events.Purge(ctx, doomed.ID), ErrNotFound)
}

func TestTaskRepository_Counts(t *testing.T) {
	db := setupTestDB(t)
	events := NewEventRepository(db)
	tasks := NewTaskRepository(db)
	ctx := context.Background()

	event := &model.Event{Name: "Party", DueDate: time.Now()}
	require.NoError(t, events.CreateForUser(ctx, event, "u1"))

	total, completed, err := tasks.CountByEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Zero(t, completed)

	category := "cat-1"
	require.NoError(t, tasks.Create(ctx, &model.Task{EventID: event.ID, Name: "a", Status: model.TaskCompleted, CategoryID: &category}))
	require.NoError(t, tasks.Create(ctx, &model.Task{EventID: event.ID, Name: "b", Status: model.TaskInProgress}))
	pending := &model.Task{EventID: event.ID, Name: "c"}
	require.NoError(t, tasks.Create(ctx, pending))

	total, completed, err = tasks.CountByEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.EqualValues(t, 1, completed)

	require.NoError(t, tasks.UpdateStatus(ctx, pending.ID, model.TaskCompleted))
	_, completed, err = tasks.CountByEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, completed)

	inUse, err := tasks.CountByCategory(ctx, category)
	require.NoError(t, err)
	assert.EqualValues(t, 1, inUse)

	byUser, err := tasks.ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, byUser, 3)

	assert.ErrorIs(t, tasks.UpdateStatus(ctx, "missing", model.TaskCompleted), ErrNotFound)
	assert.ErrorIs(t, tasks.Delete(ctx, "missing"), ErrNotFound)
}

func TestCategoryRepository_ScopedByUser(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCategoryRepository(db)
	ctx := context.Background()

	work, err := repo.GetOrCreate(ctx, "u1", "Work")
	require.NoError(t, err)
	again, err := repo.GetOrCreate(ctx, "u1", "WORK")
	require.NoError(t, err)
	assert.Equal(t, work.ID, again.ID)
	assert.Equal(t, "Work", again.Name)

	theirs, err := repo.GetOrCreate(ctx, "u2", "Work")
	require.NoError(t, err)
	assert.NotEqual(t, work.ID, theirs.ID)

	_, err = repo.GetByID(ctx, "u1", theirs.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := repo.ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	assert.ErrorIs(t, repo.Delete(ctx, "u1", theirs.ID), ErrNotFound)
	require.NoError(t, repo.Delete(ctx, "u2", theirs.ID))
}

func TestUserRepository_Upsert(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	created, err := repo.UpsertFromTelegram(ctx, 42, "Ada", "", "ada")
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	updated, err := repo.UpsertFromTelegram(ctx, 42, "Ada", "Lovelace", "ada")
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)

	found, err := repo.FindByTelegramID(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "Lovelace", found.LastName)

	_, err = repo.FindByTelegramID(ctx, 7)
	assert.ErrorIs(t, err, ErrNotFound)

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestEnsureDirForSQLite(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, ensureDirForSQLite("file:"+dir+"/nested/planner.db?cache=shared"))
	assert.DirExists(t, dir+"/nested")
	assert.NoError(t, ensureDirForSQLite(":memory:"))
}
