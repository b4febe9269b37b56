package bot

import (
	"fmt"
	"html"
	"strings"
	"time"
	"unicode"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"event-planner/internal/model"
	"event-planner/internal/planner"
	"event-planner/internal/service"
)

const (
	iconDefault = "🟢"
	iconDue     = "⏳"
	iconOverdue = "⚠️"
	iconDone    = "✅"
)

var dueLayouts = []string{"2006-01-02 15:04", "2006-01-02T15:04", "2006-01-02"}

// parseDue reads a date typed into the chat. A bare date means midnight.
func parseDue(text string, loc *time.Location) (time.Time, error) {
	text = strings.TrimSpace(text)
	var lastErr error
	for _, layout := range dueLayouts {
		t, err := time.ParseInLocation(layout, text, loc)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// statusOrder is how the event list groups events.
var statusOrder = []model.EventStatus{model.EventOngoing, model.EventUpcoming, model.EventCompleted, model.EventCancelled}

func statusIcon(status model.EventStatus) string {
	switch status {
	case model.EventOngoing:
		return "▶️"
	case model.EventUpcoming:
		return "🗓"
	case model.EventCompleted:
		return "✅"
	case model.EventCancelled:
		return "🚫"
	default:
		return "•"
	}
}

func formatEventSummary(event model.Event, now time.Time) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("• <b>Name:</b> %s\n", escape(normalizeTitle(event.Name))))
	sb.WriteString(fmt.Sprintf("• <b>When:</b> %s\n", event.DueDate.In(now.Location()).Format("2006-01-02 15:04")))
	if event.Venue != "" {
		sb.WriteString(fmt.Sprintf("• <b>Where:</b> %s\n", escape(event.Venue)))
	}
	sb.WriteString(fmt.Sprintf("• <b>Priority:</b> %s\n", event.EffectivePriority()))
	sb.WriteString(fmt.Sprintf("• <b>Status:</b> %s %s\n", statusIcon(event.Status()), statusLabel(event.Status())))
	if event.IsOutdoor {
		sb.WriteString("• 🌳 Outdoors\n")
	}
	if event.CalendarSynced() {
		sb.WriteString("• 📅 In your calendar\n")
	}
	return sb.String()
}

// formatEventList groups events by status and returns one button per event.
func formatEventList(events []model.Event, now time.Time) (string, [][]tgbotapi.InlineKeyboardButton) {
	groups := make(map[model.EventStatus][]model.Event)
	for _, event := range events {
		groups[event.Status()] = append(groups[event.Status()], event)
	}

	var builder strings.Builder
	builder.WriteString("📋 <b>Your events</b>\n")
	builder.WriteString("Tap an event to open it.\n\n")

	var buttons [][]tgbotapi.InlineKeyboardButton
	for _, status := range statusOrder {
		section := groups[status]
		if len(section) == 0 {
			continue
		}
		planner.SortComingUp(section)
		builder.WriteString(fmt.Sprintf("%s <b>%s</b>\n", statusIcon(status), statusLabel(status)))
		for _, event := range section {
			builder.WriteString(service.FormatEventLine(event, now))
			buttons = append(buttons, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("%s %s", statusIcon(status), shortTitle(event.Name, 28)), cbEventPrefix+event.ID),
			))
		}
		builder.WriteByte('\n')
	}
	return strings.TrimSpace(builder.String()), buttons
}

func formatEventCard(event model.Event, tasks []model.Task, idx planner.CategoryIndex, now time.Time) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s <b>%s</b>\n", statusIcon(event.Status()), escape(normalizeTitle(event.Name))))
	sb.WriteString(formatEventSummary(event, now))
	sb.WriteString(fmt.Sprintf("• <b>ID:</b> <code>%s</code>\n", escape(event.ID)))

	stats := planner.Tally(tasks)
	sb.WriteString("\n📊 ")
	sb.WriteString(service.FormatProgress(event, stats))

	if len(tasks) == 0 {
		sb.WriteString("\nNo tasks yet.")
		return sb.String()
	}
	sb.WriteString("\n<b>Tasks</b>\n")
	for _, task := range tasks {
		sb.WriteString(formatTask(task, idx.Resolve(task.CategoryID), now))
	}
	return strings.TrimSpace(sb.String())
}

func formatTask(task model.Task, label planner.CategoryLabel, now time.Time) string {
	var b strings.Builder
	icon := iconDefault
	due := task.DueDate.In(now.Location())
	switch {
	case task.IsCompleted():
		icon = iconDone
	case now.After(due):
		icon = iconOverdue
	case due.Sub(now) <= 48*time.Hour:
		icon = iconDue
	}
	b.WriteString(fmt.Sprintf("%s %s <i>(%s)</i>\n", icon, escape(normalizeTitle(task.Name)), escape(label.Name)))
	b.WriteString(fmt.Sprintf("   ⏰ %s · %s\n", due.Format("2006-01-02 15:04"), task.Status))
	return b.String()
}

func formatDashboard(dash *service.Dashboard, now time.Time) string {
	var sb strings.Builder
	sb.WriteString("📊 <b>Dashboard</b>\n")
	if dash == nil {
		return sb.String()
	}
	for _, status := range []model.EventStatus{model.EventOngoing, model.EventUpcoming, model.EventCompleted} {
		count, ok := dash.Counts[status]
		value := "—"
		if ok {
			value = fmt.Sprintf("%d", count)
		}
		sb.WriteString(fmt.Sprintf("%s %s: %s\n", statusIcon(status), statusLabel(status), value))
	}
	sb.WriteString("\n⭐️ <b>Coming up</b>\n")
	if dash.ComingUp == nil {
		sb.WriteString("— nothing scheduled")
	} else {
		sb.WriteString(strings.TrimSpace(service.FormatEventLine(*dash.ComingUp, now)))
	}
	return sb.String()
}

func formatCategoryList(categories []model.Category) (string, [][]tgbotapi.InlineKeyboardButton) {
	idx := planner.NewCategoryIndex(categories)
	var builder strings.Builder
	builder.WriteString("🏷 <b>Categories</b>\n")
	var buttons [][]tgbotapi.InlineKeyboardButton
	for _, category := range categories {
		id := category.ID
		label := idx.Resolve(&id)
		builder.WriteString(fmt.Sprintf("• %s <code>%s</code>\n", escape(label.Name), escape(label.Color)))
		buttons = append(buttons, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✏️ "+shortTitle(category.Name, 20), cbCategoryEdit+category.ID),
			tgbotapi.NewInlineKeyboardButtonData("🗑", cbCategoryDelete+category.ID),
		))
	}
	return strings.TrimSpace(builder.String()), buttons
}

func escape(s string) string {
	return html.EscapeString(s)
}

func normalizeTitle(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	runes := []rune(value)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func shortTitle(title string, maxLen int) string {
	clean := strings.TrimSpace(strings.ReplaceAll(title, "\n", " "))
	clean = normalizeTitle(clean)
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}
