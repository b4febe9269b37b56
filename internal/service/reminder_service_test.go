package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"event-planner/internal/model"
	"event-planner/internal/planner"
)

func TestReminderService_Digest(t *testing.T) {
	f := newFixture(t)
	user := f.user(t, 1)
	ctx := context.Background()

	event := f.event(t, user.ID, "Gala <night>", testNow.Add(30*time.Hour), true)
	_, err := f.tasks.CreateTask(ctx, user.ID, TaskInput{EventID: event.ID, Name: "Suit", DueDate: testNow.Add(3 * time.Hour), Category: "Shopping"})
	require.NoError(t, err)
	done, err := f.tasks.CreateTask(ctx, user.ID, TaskInput{EventID: event.ID, Name: "Invite", DueDate: testNow.Add(2 * time.Hour)})
	require.NoError(t, err)
	_, err = f.tasks.CompleteTask(ctx, user.ID, done.ID)
	require.NoError(t, err)

	digest, err := f.reminders.Digest(ctx, *user)
	require.NoError(t, err)

	assert.Contains(t, digest, "Event digest")
	assert.Contains(t, digest, "Gala &lt;night&gt;")
	assert.Contains(t, digest, "50% (1/2)")
	assert.Contains(t, digest, "• Suit <i>(Shopping)</i>")
	assert.NotContains(t, digest, "Invite")
}

func TestReminderService_DigestEmpty(t *testing.T) {
	f := newFixture(t)
	user := f.user(t, 1)

	digest, err := f.reminders.Digest(context.Background(), *user)
	require.NoError(t, err)
	assert.Contains(t, digest, "nothing scheduled")
	assert.Contains(t, digest, "no active events")
}

func TestFormatEventLine(t *testing.T) {
	high := model.PriorityHigh
	event := model.Event{Name: "Hike", DueDate: testNow.Add(time.Hour), Venue: "Hills", IsOutdoor: true, Priority: &high}

	line := FormatEventLine(event, testNow)
	assert.Contains(t, line, "⏳ <b>Hike</b> <i>(high priority)</i>")
	assert.Contains(t, line, "📍 Hills · outdoor")

	event.DueDate = testNow.Add(-time.Hour)
	event.Priority = nil
	line = FormatEventLine(event, testNow)
	assert.Contains(t, line, "⚠️ <b>Hike</b>\n")
}

func TestFormatProgress(t *testing.T) {
	line := FormatProgress(model.Event{Name: "Trip"}, planner.CompletionStats{Total: 4, Completed: 3})
	assert.Equal(t, "Trip ▰▰▰▰▰▰▰▱▱▱ 75% (3/4)\n", line)

	line = FormatProgress(model.Event{Name: "Empty"}, planner.CompletionStats{})
	assert.Contains(t, line, "0% (0/0)")
}
