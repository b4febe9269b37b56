package bot

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"event-planner/internal/model"
	"event-planner/internal/planner"
)

const (
	btnSkip             = "⏭️ Skip"
	btnYes              = "Yes"
	btnNo               = "No"
	btnConfirm          = "✅ Confirm"
	btnCancel           = "↩️ Back"
	btnCancelDialog     = "⏪ Cancel input"
	btnPriorityHigh     = "🔴 High"
	btnPriorityMedium   = "🟠 Medium"
	btnPriorityLow      = "🟡 Low"
	menuLabelNewEvent   = "➕ New event"
	menuLabelEvents     = "📋 Events"
	menuLabelNext       = "⭐️ Coming up"
	menuLabelDashboard  = "📊 Dashboard"
	menuLabelCategories = "🏷 Categories"
	menuLabelHelp       = "ℹ️ Help"
	btnTaskNotStarted   = "⚪️ Not started"
	btnTaskInProgress   = "🔵 In progress"
	btnTaskCompleted    = "✅ Done"
)

var priorityButtons = map[string]model.Priority{
	strings.ToLower(btnPriorityHigh):   model.PriorityHigh,
	strings.ToLower(btnPriorityMedium): model.PriorityMedium,
	strings.ToLower(btnPriorityLow):    model.PriorityLow,
}

var taskStatusButtons = map[string]model.TaskStatus{
	strings.ToLower(btnTaskNotStarted): model.TaskNotStarted,
	strings.ToLower(btnTaskInProgress): model.TaskInProgress,
	strings.ToLower(btnTaskCompleted):  model.TaskCompleted,
}

func confirmKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnConfirm),
			tgbotapi.NewKeyboardButton(btnCancel),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelNewEvent),
			tgbotapi.NewKeyboardButton(menuLabelEvents),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelNext),
			tgbotapi.NewKeyboardButton(menuLabelDashboard),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelCategories),
			tgbotapi.NewKeyboardButton(menuLabelHelp),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = false
	return kb
}

func cancelKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func skipKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnSkip),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func yesNoKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnYes),
			tgbotapi.NewKeyboardButton(btnNo),
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func priorityKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnPriorityHigh),
			tgbotapi.NewKeyboardButton(btnPriorityMedium),
			tgbotapi.NewKeyboardButton(btnPriorityLow),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnSkip),
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

// yesNoSkipKeyboard is the yes/no question of an edit dialog, where skipping
// keeps the current answer.
func yesNoSkipKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnYes),
			tgbotapi.NewKeyboardButton(btnNo),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnSkip),
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func taskStatusKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnTaskNotStarted),
			tgbotapi.NewKeyboardButton(btnTaskInProgress),
			tgbotapi.NewKeyboardButton(btnTaskCompleted),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnSkip),
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

// categoryKeyboard offers the user's categories two per row.
func categoryKeyboard(names []string) tgbotapi.ReplyKeyboardMarkup {
	var rows [][]tgbotapi.KeyboardButton
	for i := 0; i < len(names); i += 2 {
		row := tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(names[i]))
		if i+1 < len(names) {
			row = append(row, tgbotapi.NewKeyboardButton(names[i+1]))
		}
		rows = append(rows, row)
	}
	rows = append(rows, tgbotapi.NewKeyboardButtonRow(
		tgbotapi.NewKeyboardButton(btnSkip),
		tgbotapi.NewKeyboardButton(btnCancelDialog),
	))
	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

// eventCardKeyboard holds the event actions and one row per task.
func eventCardKeyboard(event model.Event, tasks []model.Task, calendar bool) tgbotapi.InlineKeyboardMarkup {
	deleteLabel := "🚫 Cancel event"
	if _, hard := planner.Delete(event.Status()); hard {
		deleteLabel = "🗑 Delete permanently"
	}

	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(planner.ToggleLabel(event.Status()), cbTogglePrefix+event.ID),
			tgbotapi.NewInlineKeyboardButtonData(deleteLabel, cbDeletePrefix+event.ID),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✏️ Edit", cbEditEventPrefix+event.ID),
			tgbotapi.NewInlineKeyboardButtonData("➕ Add task", cbNewTaskPrefix+event.ID),
		),
	}
	switch {
	case !calendar:
	case event.CalendarSynced():
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📅 Remove from calendar", cbCalendarPrefix+event.ID),
		))
	case event.Status() != model.EventCancelled:
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📅 Add to calendar", cbCalendarPrefix+event.ID),
		))
	}
	for _, task := range tasks {
		var row []tgbotapi.InlineKeyboardButton
		if !task.IsCompleted() {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData("✅ "+shortTitle(task.Name, 24), cbTaskDonePrefix+task.ID))
		}
		if task.Status == model.TaskNotStarted {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData("▶️", cbTaskStartPrefix+task.ID))
		}
		row = append(row,
			tgbotapi.NewInlineKeyboardButtonData("✏️", cbTaskEditPrefix+task.ID),
			tgbotapi.NewInlineKeyboardButtonData("🗑", cbTaskDeletePrefix+task.ID),
		)
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func isSkipInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == "-" || value == strings.ToLower(btnSkip) || value == "skip"
}

func isConfirmInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnConfirm) || value == "confirm" || value == "yes"
}

func isCancelInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnCancel) || value == "back" || value == "no"
}

func isCancelDialogInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnCancelDialog) || value == "cancel"
}

func parseYesNo(text string) (bool, bool) {
	switch strings.TrimSpace(strings.ToLower(text)) {
	case "yes", "y", strings.ToLower(btnYes):
		return true, true
	case "no", "n", "-", strings.ToLower(btnNo):
		return false, true
	default:
		return false, false
	}
}

// parseTaskStatusInput accepts a keyboard button or a status name.
func parseTaskStatusInput(text string) (model.TaskStatus, bool) {
	value := strings.TrimSpace(strings.ToLower(text))
	if status, ok := taskStatusButtons[value]; ok {
		return status, true
	}
	for status := model.TaskNotStarted; status <= model.TaskCompleted; status++ {
		if status.String() == value {
			return status, true
		}
	}
	if value == "done" {
		return model.TaskCompleted, true
	}
	return 0, false
}

// parsePriorityInput accepts a keyboard button, a name or a rank 1-4.
func parsePriorityInput(text string) (model.Priority, bool) {
	value := strings.TrimSpace(strings.ToLower(text))
	if p, ok := priorityButtons[value]; ok {
		return p, true
	}
	return model.ParsePriority(value)
}
