package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"event-planner/internal/model"
	"event-planner/internal/service"
)

// Edit dialogs walk the same fields as creation. «Skip» keeps the current value.

func (b *Bot) startEditEventConversation(ctx context.Context, chatID int64, from *tgbotapi.User, eventID string) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}
	event, err := b.events.GetEvent(ctx, user.ID, eventID)
	if err != nil {
		return b.sendText(chatID, userMessage(err))
	}

	state := &conversationState{stage: stageEditEventName, targetID: event.ID}
	state.event = service.EventInput{
		Name:      event.Name,
		DueDate:   event.DueDate,
		Venue:     event.Venue,
		Priority:  event.Priority,
		IsOutdoor: event.IsOutdoor,
	}
	b.setConversation(from.ID, state)
	text := fmt.Sprintf("✏️ Editing «%s».\nNew name? «Skip» keeps the current one.", escape(normalizeTitle(event.Name)))
	return b.sendWithReplyMarkup(chatID, text, skipKeyboard())
}

func (b *Bot) handleEditEventConversation(ctx context.Context, msg *tgbotapi.Message, state *conversationState) error {
	text := strings.TrimSpace(msg.Text)
	skip := isSkipInput(text)
	switch state.stage {
	case stageEditEventName:
		if !skip && text != "" {
			state.event.Name = text
		}
		state.stage = stageEditEventDue
		current := state.event.DueDate.In(b.now().Location()).Format("2006-01-02 15:04")
		return b.sendWithReplyMarkup(msg.Chat.ID, fmt.Sprintf("⏰ New date? Now <code>%s</code>.", current), skipKeyboard())
	case stageEditEventDue:
		if !skip {
			due, err := parseDue(text, b.now().Location())
			if err != nil {
				return b.sendWithReplyMarkup(msg.Chat.ID, "I can't read that date. Use <code>2025-11-30 18:00</code> or «Skip».", skipKeyboard())
			}
			state.event.DueDate = due
		}
		state.stage = stageEditEventVenue
		return b.sendWithReplyMarkup(msg.Chat.ID, "📍 New place?", skipKeyboard())
	case stageEditEventVenue:
		if !skip {
			state.event.Venue = text
		}
		state.stage = stageEditEventPriority
		return b.sendWithReplyMarkup(msg.Chat.ID, "🔥 New priority?", priorityKeyboard())
	case stageEditEventPriority:
		if !skip {
			p, ok := parsePriorityInput(text)
			if !ok {
				return b.sendWithReplyMarkup(msg.Chat.ID, "Pick a priority from the keyboard or «Skip».", priorityKeyboard())
			}
			state.event.Priority = &p
		}
		state.stage = stageEditEventOutdoor
		return b.sendWithReplyMarkup(msg.Chat.ID, "🌳 Is it outdoors?", yesNoSkipKeyboard())
	case stageEditEventOutdoor:
		if !skip {
			answer, ok := parseYesNo(text)
			if !ok {
				return b.sendWithReplyMarkup(msg.Chat.ID, "Press «Yes», «No» or «Skip».", yesNoSkipKeyboard())
			}
			state.event.IsOutdoor = answer
		}
		return b.finishEditEvent(ctx, msg, state)
	default:
		b.clearConversation(msg.From.ID)
		return nil
	}
}

func (b *Bot) finishEditEvent(ctx context.Context, msg *tgbotapi.Message, state *conversationState) error {
	b.clearConversation(msg.From.ID)
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}

	res, err := b.events.UpdateEvent(ctx, user.ID, state.targetID, state.event)
	if err != nil {
		return b.sendTextWithRemove(msg.Chat.ID, "Couldn't update the event. "+userMessage(err))
	}
	text := "✅ <b>Event updated</b>"
	if res.Notice != nil {
		text += "\n" + calendarNotice(res.Notice)
	}
	if err := b.sendTextWithRemove(msg.Chat.ID, text); err != nil {
		return err
	}
	return b.showEventCard(ctx, msg.Chat.ID, msg.From, res.Event.ID)
}

func (b *Bot) startEditTaskConversation(ctx context.Context, chatID int64, from *tgbotapi.User, taskID string) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}
	task, err := b.tasks.GetTask(ctx, user.ID, taskID)
	if err != nil {
		return b.sendText(chatID, userMessage(err))
	}

	state := &conversationState{stage: stageEditTaskName, targetID: task.ID}
	state.task = service.TaskInput{
		EventID: task.EventID,
		Name:    task.Name,
		DueDate: task.DueDate,
		Status:  task.Status,
	}
	if task.CategoryID != nil {
		state.task.CategoryID = *task.CategoryID
	}
	b.setConversation(from.ID, state)
	text := fmt.Sprintf("✏️ Editing task «%s».\nNew name? «Skip» keeps the current one.", escape(normalizeTitle(task.Name)))
	return b.sendWithReplyMarkup(chatID, text, skipKeyboard())
}

func (b *Bot) handleEditTaskConversation(ctx context.Context, msg *tgbotapi.Message, state *conversationState) error {
	text := strings.TrimSpace(msg.Text)
	skip := isSkipInput(text)
	switch state.stage {
	case stageEditTaskName:
		if !skip && text != "" {
			state.task.Name = text
		}
		state.stage = stageEditTaskDue
		current := state.task.DueDate.In(b.now().Location()).Format("2006-01-02 15:04")
		return b.sendWithReplyMarkup(msg.Chat.ID, fmt.Sprintf("⏰ New due date? Now <code>%s</code>.", current), skipKeyboard())
	case stageEditTaskDue:
		if !skip {
			due, err := parseDue(text, b.now().Location())
			if err != nil {
				return b.sendWithReplyMarkup(msg.Chat.ID, "I can't read that date. Use <code>2025-11-30 18:00</code> or «Skip».", skipKeyboard())
			}
			state.task.DueDate = due
		}
		state.stage = stageEditTaskCategory
		return b.sendWithReplyMarkup(msg.Chat.ID, "🏷 New category? Pick one or type a name.", b.categoryKeyboard(ctx, msg.From))
	case stageEditTaskCategory:
		if !skip {
			state.task.CategoryID = ""
			state.task.Category = text
		}
		state.stage = stageEditTaskStatus
		return b.sendWithReplyMarkup(msg.Chat.ID, fmt.Sprintf("📌 Status? Now %s.", state.task.Status), taskStatusKeyboard())
	case stageEditTaskStatus:
		if !skip {
			status, ok := parseTaskStatusInput(text)
			if !ok {
				return b.sendWithReplyMarkup(msg.Chat.ID, "Pick a status from the keyboard or «Skip».", taskStatusKeyboard())
			}
			state.task.Status = status
		}
		return b.finishEditTask(ctx, msg, state)
	default:
		b.clearConversation(msg.From.ID)
		return nil
	}
}

func (b *Bot) finishEditTask(ctx context.Context, msg *tgbotapi.Message, state *conversationState) error {
	b.clearConversation(msg.From.ID)
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}

	task, err := b.tasks.UpdateTask(ctx, user.ID, state.targetID, state.task)
	if err != nil {
		return b.sendTextWithRemove(msg.Chat.ID, "Couldn't update the task. "+userMessage(err))
	}
	label, err := b.categories.Resolve(ctx, user.ID, task.CategoryID)
	if err != nil {
		b.log.WithError(err).Warn("resolve category")
	}
	if err := b.sendTextWithRemove(msg.Chat.ID, "✅ <b>Task updated</b>\n"+formatTask(*task, label, b.now())); err != nil {
		return err
	}
	return b.showEventCard(ctx, msg.Chat.ID, msg.From, task.EventID)
}

func (b *Bot) startTaskAndRefresh(ctx context.Context, chatID int64, from *tgbotapi.User, taskID string) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}
	task, err := b.tasks.SetStatus(ctx, user.ID, taskID, model.TaskInProgress)
	if err != nil {
		return b.sendText(chatID, userMessage(err))
	}
	b.log.WithFields(logrus.Fields{"user_id": user.ID, "task_id": task.ID}).Info("task started")
	if err := b.sendText(chatID, fmt.Sprintf("▶️ «%s» is in progress.", escape(normalizeTitle(task.Name)))); err != nil {
		return err
	}
	return b.showEventCard(ctx, chatID, from, task.EventID)
}

func (b *Bot) startEditCategoryConversation(ctx context.Context, chatID int64, from *tgbotapi.User, categoryID string) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}
	category, err := b.categories.Get(ctx, user.ID, categoryID)
	if err != nil {
		return b.sendText(chatID, userMessage(err))
	}

	state := &conversationState{stage: stageEditCategoryName, targetID: category.ID}
	state.category = categoryDraft{name: category.Name, color: category.Color}
	b.setConversation(from.ID, state)
	text := fmt.Sprintf("✏️ Editing category «%s».\nNew name? «Skip» keeps the current one.", escape(category.Name))
	return b.sendWithReplyMarkup(chatID, text, skipKeyboard())
}

func (b *Bot) handleEditCategoryConversation(ctx context.Context, msg *tgbotapi.Message, state *conversationState) error {
	text := strings.TrimSpace(msg.Text)
	skip := isSkipInput(text)
	switch state.stage {
	case stageEditCategoryName:
		if !skip && text != "" {
			state.category.name = text
		}
		state.stage = stageEditCategoryColor
		return b.sendWithReplyMarkup(msg.Chat.ID, "🎨 New color as <code>#RRGGBB</code>?", skipKeyboard())
	case stageEditCategoryColor:
		if !skip {
			state.category.color = &text
		}
		b.clearConversation(msg.From.ID)
		user, err := b.ensureUser(ctx, msg.From)
		if err != nil {
			return err
		}
		category, err := b.categories.Update(ctx, user.ID, state.targetID, state.category.name, state.category.color)
		if err != nil {
			return b.sendTextWithRemove(msg.Chat.ID, "Couldn't update the category. "+userMessage(err))
		}
		color := "default color"
		if category.Color != nil {
			color = *category.Color
		}
		return b.sendTextWithRemove(msg.Chat.ID, fmt.Sprintf("🏷 Category «%s» saved (%s).", escape(category.Name), escape(color)))
	default:
		b.clearConversation(msg.From.ID)
		return nil
	}
}
