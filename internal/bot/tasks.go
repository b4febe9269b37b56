package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"event-planner/internal/model"
)

// handleNewTask asks which event the task belongs to.
func (b *Bot) handleNewTask(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}

	var active []model.Event
	for _, status := range []model.EventStatus{model.EventOngoing, model.EventUpcoming} {
		events, err := b.events.ListEventsByStatus(ctx, user.ID, status)
		if err != nil {
			return b.sendText(msg.Chat.ID, "Couldn't load your events. "+userMessage(err))
		}
		active = append(active, events...)
	}
	if len(active) == 0 {
		return b.sendText(msg.Chat.ID, "There is no active event to add a task to. Plan one with /newevent.")
	}

	var buttons [][]tgbotapi.InlineKeyboardButton
	for _, event := range active {
		buttons = append(buttons, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(shortTitle(event.Name, 32), cbNewTaskPrefix+event.ID),
		))
	}
	reply := tgbotapi.NewMessage(msg.Chat.ID, "➕ Which event is the task for?")
	reply.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(buttons...)
	_, err = b.out.Send(reply)
	return err
}

func (b *Bot) startNewTaskConversation(ctx context.Context, chatID int64, from *tgbotapi.User, eventID string) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}
	event, err := b.events.GetEvent(ctx, user.ID, eventID)
	if err != nil {
		return b.sendText(chatID, userMessage(err))
	}

	state := &conversationState{stage: stageTaskName}
	state.task.EventID = event.ID
	b.setConversation(from.ID, state)
	text := fmt.Sprintf("🆕 New task for «%s».\n<b>Step 1:</b> what needs doing?", escape(normalizeTitle(event.Name)))
	return b.sendWithReplyMarkup(chatID, text, cancelKeyboard())
}

func (b *Bot) handleTaskConversation(ctx context.Context, msg *tgbotapi.Message, state *conversationState) error {
	text := strings.TrimSpace(msg.Text)
	switch state.stage {
	case stageTaskName:
		if text == "" {
			return b.sendWithReplyMarkup(msg.Chat.ID, "The task needs a name.", cancelKeyboard())
		}
		state.task.Name = text
		state.stage = stageTaskDue
		return b.sendWithReplyMarkup(msg.Chat.ID, "⏰ When is it due? Use <code>2025-11-30 18:00</code> or <code>2025-11-30</code>.", cancelKeyboard())
	case stageTaskDue:
		due, err := parseDue(text, b.now().Location())
		if err != nil {
			return b.sendWithReplyMarkup(msg.Chat.ID, "I can't read that date. Use <code>2025-11-30 18:00</code>.", cancelKeyboard())
		}
		state.task.DueDate = due
		state.stage = stageTaskCategory
		return b.sendWithReplyMarkup(msg.Chat.ID, "🏷 Pick a category or type a new one (or «Skip»).", b.categoryKeyboard(ctx, msg.From))
	case stageTaskCategory:
		if !isSkipInput(text) {
			state.task.Category = text
		}
		return b.finishTaskCreation(ctx, msg, state)
	default:
		b.clearConversation(msg.From.ID)
		return nil
	}
}

func (b *Bot) finishTaskCreation(ctx context.Context, msg *tgbotapi.Message, state *conversationState) error {
	b.clearConversation(msg.From.ID)
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}

	task, err := b.tasks.CreateTask(ctx, user.ID, state.task)
	if err != nil {
		return b.sendTextWithRemove(msg.Chat.ID, "Couldn't save the task. "+userMessage(err))
	}

	label, err := b.categories.Resolve(ctx, user.ID, task.CategoryID)
	if err != nil {
		b.log.WithError(err).Warn("resolve category")
	}
	text := fmt.Sprintf("✅ <b>Task saved</b>\n%s", formatTask(*task, label, b.now()))
	if err := b.sendTextWithRemove(msg.Chat.ID, text); err != nil {
		return err
	}
	return b.showEventCard(ctx, msg.Chat.ID, msg.From, task.EventID)
}

func (b *Bot) completeTaskAndRefresh(ctx context.Context, chatID int64, from *tgbotapi.User, taskID string) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}
	task, err := b.tasks.GetTask(ctx, user.ID, taskID)
	if err != nil {
		return b.sendText(chatID, userMessage(err))
	}
	if task.IsCompleted() {
		return b.sendText(chatID, "That task is already done.")
	}

	task, err = b.tasks.CompleteTask(ctx, user.ID, taskID)
	if err != nil {
		return b.sendText(chatID, userMessage(err))
	}
	b.log.WithFields(logrus.Fields{"user_id": user.ID, "task_id": task.ID}).Info("task completed")
	if err := b.sendText(chatID, fmt.Sprintf("✅ «%s» done.", escape(normalizeTitle(task.Name)))); err != nil {
		return err
	}
	return b.showEventCard(ctx, chatID, from, task.EventID)
}

func (b *Bot) askDeleteTaskConfirmation(ctx context.Context, chatID int64, from *tgbotapi.User, taskID string) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}
	task, err := b.tasks.GetTask(ctx, user.ID, taskID)
	if err != nil {
		return b.sendText(chatID, userMessage(err))
	}

	b.setConfirmation(from.ID, confirmationRequest{targetID: task.ID, action: actionDeleteTask})
	return b.sendWithReplyMarkup(chatID, fmt.Sprintf("Delete task «%s»?", escape(normalizeTitle(task.Name))), confirmKeyboard())
}

func (b *Bot) deleteTaskAndRefresh(ctx context.Context, chatID int64, from *tgbotapi.User, taskID string) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}
	task, err := b.tasks.GetTask(ctx, user.ID, taskID)
	if err != nil {
		return b.sendTextWithRemove(chatID, userMessage(err))
	}
	if err := b.tasks.DeleteTask(ctx, user.ID, taskID); err != nil {
		return b.sendTextWithRemove(chatID, userMessage(err))
	}

	if err := b.sendTextWithRemove(chatID, fmt.Sprintf("🗑 Task «%s» deleted.", escape(normalizeTitle(task.Name)))); err != nil {
		return err
	}
	return b.showEventCard(ctx, chatID, from, task.EventID)
}

func (b *Bot) handleCategories(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	categories, err := b.categories.List(ctx, user.ID)
	if err != nil {
		return b.sendText(msg.Chat.ID, "Couldn't load categories. "+userMessage(err))
	}
	if len(categories) == 0 {
		return b.sendText(msg.Chat.ID, "No categories yet. Add one with /newcategory or while creating a task.")
	}

	text, buttons := formatCategoryList(categories)
	reply := tgbotapi.NewMessage(msg.Chat.ID, text)
	reply.ParseMode = tgbotapi.ModeHTML
	reply.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(buttons...)
	_, err = b.out.Send(reply)
	return err
}

// handleNewCategory: /newcategory <name> [#RRGGBB].
func (b *Bot) handleNewCategory(ctx context.Context, msg *tgbotapi.Message) error {
	name, color := splitCategoryArgs(msg.CommandArguments())
	if name == "" {
		return b.sendText(msg.Chat.ID, "Give the category a name: /newcategory Shopping #27AE60")
	}
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	category, err := b.categories.Create(ctx, user.ID, name, color)
	if err != nil {
		return b.sendText(msg.Chat.ID, "Couldn't add the category. "+userMessage(err))
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("🏷 Category «%s» added.", escape(category.Name)))
}

func (b *Bot) deleteCategory(ctx context.Context, chatID int64, from *tgbotapi.User, categoryID string) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}
	if err := b.categories.Delete(ctx, user.ID, categoryID); err != nil {
		return b.sendText(chatID, userMessage(err))
	}
	return b.sendText(chatID, "🗑 Category deleted.")
}

func (b *Bot) categoryKeyboard(ctx context.Context, from *tgbotapi.User) tgbotapi.ReplyKeyboardMarkup {
	var names []string
	if user, err := b.ensureUser(ctx, from); err == nil {
		if categories, err := b.categories.List(ctx, user.ID); err == nil {
			for _, c := range categories {
				names = append(names, c.Name)
			}
		}
	}
	return categoryKeyboard(names)
}

// splitCategoryArgs separates a trailing #RRGGBB color from the name.
func splitCategoryArgs(args string) (string, *string) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return "", nil
	}
	last := fields[len(fields)-1]
	if len(fields) > 1 && strings.HasPrefix(last, "#") {
		return strings.Join(fields[:len(fields)-1], " "), &last
	}
	return strings.Join(fields, " "), nil
}
