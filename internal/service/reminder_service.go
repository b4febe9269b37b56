package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"event-planner/internal/model"
	"event-planner/internal/planner"
)

// ReminderService builds human-readable digests for scheduled notifications.
type ReminderService struct {
	events     *EventService
	tasks      *TaskService
	categories *CategoryService
	opts       Options
}

func NewReminderService(events *EventService, tasks *TaskService, categories *CategoryService, opts Options) *ReminderService {
	return &ReminderService{events: events, tasks: tasks, categories: categories, opts: opts.withDefaults()}
}

// Digest renders the coming-up event, progress of active events and tasks due
// soon. Sections that failed to load are replaced by a notice.
func (s *ReminderService) Digest(ctx context.Context, user model.User) (string, error) {
	now := s.opts.Now()

	var builder strings.Builder
	builder.WriteString("📋 <b>Event digest</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s\n\n", now.Format("2006-01-02")))

	next, err := s.events.HighestPriorityEvent(ctx, user.ID)
	if err != nil {
		return "", err
	}
	builder.WriteString("⭐️ <b>Coming up</b>\n")
	if next == nil {
		builder.WriteString("— nothing scheduled\n")
	} else {
		builder.WriteString(FormatEventLine(*next, now))
	}

	builder.WriteString("\n📊 <b>Progress</b>\n")
	active, err := s.activeEvents(ctx, user.ID)
	if err != nil {
		return "", err
	}
	if len(active) == 0 {
		builder.WriteString("— no active events\n")
	}
	for _, event := range active {
		stats, err := s.tasks.CompletionStats(ctx, user.ID, event.ID)
		if err != nil {
			builder.WriteString(fmt.Sprintf("%s — <i>progress unavailable</i>\n", html.EscapeString(event.Name)))
			continue
		}
		builder.WriteString(FormatProgress(event, stats))
	}

	builder.WriteString("\n⏳ <b>Due soon</b>\n")
	due, err := s.tasks.DueSoon(ctx, user.ID)
	if err != nil {
		return "", err
	}
	if len(due) == 0 {
		builder.WriteString("— nothing due in the next hours\n")
	} else {
		idx, err := s.categories.Index(ctx, user.ID)
		if err != nil {
			idx = planner.NewCategoryIndex(nil)
		}
		for _, item := range due {
			builder.WriteString(FormatDueTask(item, idx.Resolve(item.Task.CategoryID), now))
		}
	}

	return strings.TrimSpace(builder.String()), nil
}

// activeEvents returns the ongoing then upcoming events.
func (s *ReminderService) activeEvents(ctx context.Context, userID string) ([]model.Event, error) {
	var active []model.Event
	for _, status := range []model.EventStatus{model.EventOngoing, model.EventUpcoming} {
		events, err := s.events.ListEventsByStatus(ctx, userID, status)
		if err != nil {
			return nil, err
		}
		active = append(active, events...)
	}
	return active, nil
}

// FormatEventLine renders one event with its due date and priority.
func FormatEventLine(event model.Event, now time.Time) string {
	var sb strings.Builder

	icon := "🟢"
	due := event.DueDate.In(now.Location())
	switch {
	case now.After(due):
		icon = "⚠️"
	case due.Sub(now) <= 48*time.Hour:
		icon = "⏳"
	}

	sb.WriteString(fmt.Sprintf("%s <b>%s</b>", icon, html.EscapeString(strings.TrimSpace(event.Name))))
	if p := event.EffectivePriority(); p != model.PriorityDefault {
		sb.WriteString(fmt.Sprintf(" <i>(%s priority)</i>", p))
	}
	sb.WriteString(fmt.Sprintf("\n   ⏰ %s", due.Format("2006-01-02 15:04")))
	if venue := strings.TrimSpace(event.Venue); venue != "" {
		sb.WriteString(fmt.Sprintf(" · 📍 %s", html.EscapeString(venue)))
	}
	if event.IsOutdoor {
		sb.WriteString(" · outdoor")
	}
	sb.WriteByte('\n')
	return sb.String()
}

// FormatProgress renders an event's task completion as a bar.
func FormatProgress(event model.Event, stats planner.CompletionStats) string {
	const width = 10
	filled := int(stats.Ratio() * width)
	bar := strings.Repeat("▰", filled) + strings.Repeat("▱", width-filled)
	return fmt.Sprintf("%s %s %d%% (%d/%d)\n",
		html.EscapeString(strings.TrimSpace(event.Name)), bar, stats.Percent(), stats.Completed, stats.Total)
}

// FormatDueTask renders a task with its event and category.
func FormatDueTask(item DueTask, label planner.CategoryLabel, now time.Time) string {
	due := item.Task.DueDate.In(now.Location())
	line := fmt.Sprintf("• %s <i>(%s)</i>", html.EscapeString(strings.TrimSpace(item.Task.Name)), html.EscapeString(label.Name))
	if item.EventName != "" {
		line += fmt.Sprintf(" · %s", html.EscapeString(item.EventName))
	}
	return line + fmt.Sprintf("\n   ⏰ %s (in %s)\n", due.Format("2006-01-02 15:04"), humanizeUntil(due.Sub(now)))
}

func humanizeUntil(d time.Duration) string {
	if d < time.Hour {
		minutes := int(d.Minutes())
		if minutes < 1 {
			minutes = 1
		}
		return fmt.Sprintf("%d min", minutes)
	}
	return fmt.Sprintf("%d h", int(d.Hours()))
}
