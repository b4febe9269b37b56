package planner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"event-planner/internal/model"
)

func priority(p model.Priority) *model.Priority { return &p }

func TestComingUp(t *testing.T) {
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	t1 := now.Add(24 * time.Hour)
	t2 := now.Add(48 * time.Hour)

	t.Run("priority breaks due date tie", func(t *testing.T) {
		events := []model.Event{
			{ID: "b", DueDate: t1, Priority: priority(model.PriorityMedium)},
			{ID: "a", DueDate: t1, Priority: priority(model.PriorityHigh)},
		}
		got := ComingUp(events, now)
		require.NotNil(t, got)
		assert.Equal(t, "a", got.ID)
	})

	t.Run("soonest first", func(t *testing.T) {
		events := []model.Event{
			{ID: "later", DueDate: t2, Priority: priority(model.PriorityHigh)},
			{ID: "sooner", DueDate: t1, Priority: priority(model.PriorityLow)},
		}
		got := ComingUp(events, now)
		require.NotNil(t, got)
		assert.Equal(t, "sooner", got.ID)
	})

	t.Run("unset priority ranks as default", func(t *testing.T) {
		events := []model.Event{
			{ID: "unset", DueDate: t1},
			{ID: "low", DueDate: t1, Priority: priority(model.PriorityLow)},
		}
		got := ComingUp(events, now)
		require.NotNil(t, got)
		assert.Equal(t, "low", got.ID)
	})

	t.Run("created at breaks remaining tie", func(t *testing.T) {
		events := []model.Event{
			{ID: "young", DueDate: t1, CreatedAt: now.Add(-time.Hour)},
			{ID: "old", DueDate: t1, CreatedAt: now.Add(-2 * time.Hour)},
		}
		got := ComingUp(events, now)
		require.NotNil(t, got)
		assert.Equal(t, "old", got.ID)
	})

	t.Run("past events excluded", func(t *testing.T) {
		events := []model.Event{
			{ID: "past", DueDate: now.Add(-time.Minute), Priority: priority(model.PriorityHigh)},
			{ID: "now", DueDate: now, Priority: priority(model.PriorityHigh)},
			{ID: "future", DueDate: t2, Priority: priority(model.PriorityLow)},
		}
		got := ComingUp(events, now)
		require.NotNil(t, got)
		assert.Equal(t, "future", got.ID)
	})

	t.Run("nothing qualifies", func(t *testing.T) {
		assert.Nil(t, ComingUp(nil, now))
		assert.Nil(t, ComingUp([]model.Event{{ID: "past", DueDate: now.Add(-time.Hour)}}, now))
	})

	t.Run("idempotent", func(t *testing.T) {
		events := []model.Event{
			{ID: "x", DueDate: t1},
			{ID: "y", DueDate: t1},
		}
		first := ComingUp(events, now)
		second := ComingUp(events, now)
		require.NotNil(t, first)
		assert.Equal(t, first.ID, second.ID)
	})
}

func TestSortComingUp(t *testing.T) {
	base := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	events := []model.Event{
		{ID: "3", DueDate: base.Add(2 * time.Hour)},
		{ID: "2", DueDate: base.Add(time.Hour), Priority: priority(model.PriorityLow)},
		{ID: "1", DueDate: base.Add(time.Hour), Priority: priority(model.PriorityHigh)},
	}
	SortComingUp(events)
	assert.Equal(t, []string{"1", "2", "3"}, []string{events[0].ID, events[1].ID, events[2].ID})
}
