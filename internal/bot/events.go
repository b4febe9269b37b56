package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"event-planner/internal/model"
	"event-planner/internal/planner"
	"event-planner/internal/service"
)

func (b *Bot) startNewEventConversation(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}
	b.setConversation(msg.From.ID, &conversationState{stage: stageEventName})
	return b.sendWithReplyMarkup(msg.Chat.ID, "🆕 Planning a new event.\n<b>Step 1:</b> what is it called?", cancelKeyboard())
}

func (b *Bot) handleEventConversation(ctx context.Context, msg *tgbotapi.Message, state *conversationState) error {
	text := strings.TrimSpace(msg.Text)
	switch state.stage {
	case stageEventName:
		if text == "" {
			return b.sendWithReplyMarkup(msg.Chat.ID, "The name can't be empty. What is the event called?", cancelKeyboard())
		}
		state.event.Name = text
		state.stage = stageEventDue
		return b.sendWithReplyMarkup(msg.Chat.ID, "⏰ When is it? Use <code>2025-11-30 18:00</code> or just <code>2025-11-30</code>.", cancelKeyboard())
	case stageEventDue:
		due, err := parseDue(text, b.now().Location())
		if err != nil {
			return b.sendWithReplyMarkup(msg.Chat.ID, "I can't read that date. Use <code>2025-11-30 18:00</code>.", cancelKeyboard())
		}
		state.event.DueDate = due
		state.stage = stageEventVenue
		return b.sendWithReplyMarkup(msg.Chat.ID, "📍 Where does it take place? (or «Skip»)", skipKeyboard())
	case stageEventVenue:
		if !isSkipInput(text) {
			state.event.Venue = text
		}
		state.stage = stageEventPriority
		return b.sendWithReplyMarkup(msg.Chat.ID, "🔥 How important is it?", priorityKeyboard())
	case stageEventPriority:
		if !isSkipInput(text) {
			p, ok := parsePriorityInput(text)
			if !ok {
				return b.sendWithReplyMarkup(msg.Chat.ID, "Pick a priority from the keyboard or «Skip».", priorityKeyboard())
			}
			state.event.Priority = &p
		}
		state.stage = stageEventOutdoor
		return b.sendWithReplyMarkup(msg.Chat.ID, "🌳 Is it outdoors?", yesNoKeyboard())
	case stageEventOutdoor:
		answer, ok := parseYesNo(text)
		if !ok {
			return b.sendWithReplyMarkup(msg.Chat.ID, "Press «Yes» or «No».", yesNoKeyboard())
		}
		state.event.IsOutdoor = answer
		state.stage = stageEventOngoing
		return b.sendWithReplyMarkup(msg.Chat.ID, "▶️ Has it already started?", yesNoKeyboard())
	case stageEventOngoing:
		answer, ok := parseYesNo(text)
		if !ok {
			return b.sendWithReplyMarkup(msg.Chat.ID, "Press «Yes» or «No».", yesNoKeyboard())
		}
		state.event.Ongoing = answer
		if !b.calendarEnabled() {
			return b.finishEventCreation(ctx, msg, state.event)
		}
		state.stage = stageEventCalendar
		return b.sendWithReplyMarkup(msg.Chat.ID, "📅 Add it to your calendar?", yesNoKeyboard())
	case stageEventCalendar:
		answer, ok := parseYesNo(text)
		if !ok {
			return b.sendWithReplyMarkup(msg.Chat.ID, "Press «Yes» or «No».", yesNoKeyboard())
		}
		state.event.SyncCalendar = answer
		return b.finishEventCreation(ctx, msg, state.event)
	default:
		b.clearConversation(msg.From.ID)
		return nil
	}
}

func (b *Bot) finishEventCreation(ctx context.Context, msg *tgbotapi.Message, input service.EventInput) error {
	b.clearConversation(msg.From.ID)
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}

	res, err := b.events.CreateEvent(ctx, user.ID, input)
	if err != nil {
		return b.sendTextWithRemove(msg.Chat.ID, "Couldn't save the event. "+userMessage(err))
	}

	text := "✅ <b>Event saved</b>\n" + formatEventSummary(*res.Event, b.now())
	if res.Notice != nil {
		text += "\n" + calendarNotice(res.Notice)
	}
	if err := b.sendTextWithRemove(msg.Chat.ID, text); err != nil {
		return err
	}
	return b.showEventCard(ctx, msg.Chat.ID, msg.From, res.Event.ID)
}

func (b *Bot) handleListEvents(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	var events []model.Event
	filter := strings.ToLower(strings.TrimSpace(msg.CommandArguments()))
	if filter != "" {
		status, ok := model.ParseEventStatus(filter)
		if !ok {
			return b.sendText(msg.Chat.ID, "Filter by one of: ongoing, upcoming, completed, cancelled.")
		}
		events, err = b.events.ListEventsByStatus(ctx, user.ID, status)
	} else {
		events, err = b.events.ListEvents(ctx, user.ID)
	}
	if err != nil {
		return b.sendText(msg.Chat.ID, "Couldn't load your events. "+userMessage(err))
	}
	if len(events) == 0 && filter != "" {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("No %s events.", filter))
	}
	if len(events) == 0 {
		return b.sendText(msg.Chat.ID, "You have no events yet. Plan one with /newevent.")
	}

	text, buttons := formatEventList(events, b.now())
	reply := tgbotapi.NewMessage(msg.Chat.ID, text)
	reply.ParseMode = tgbotapi.ModeHTML
	reply.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(buttons...)
	_, err = b.out.Send(reply)
	return err
}

// handleShowEvent opens an event card by id: /event <id>.
func (b *Bot) handleShowEvent(ctx context.Context, msg *tgbotapi.Message) error {
	eventID := strings.TrimSpace(msg.CommandArguments())
	if eventID == "" {
		return b.sendText(msg.Chat.ID, "Tell me which event: /event &lt;id&gt;, or open one from /events.")
	}
	return b.showEventCard(ctx, msg.Chat.ID, msg.From, eventID)
}

func (b *Bot) handleNext(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	event, err := b.events.HighestPriorityEvent(ctx, user.ID)
	if err != nil {
		return b.sendText(msg.Chat.ID, "Couldn't pick the next event. "+userMessage(err))
	}
	if event == nil {
		return b.sendText(msg.Chat.ID, "⭐️ Nothing is coming up. Enjoy the quiet or plan something with /newevent.")
	}
	return b.showEventCard(ctx, msg.Chat.ID, msg.From, event.ID)
}

func (b *Bot) handleDashboard(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	dash, err := b.events.Dashboard(ctx, user.ID)
	var partial *service.PartialFailure
	if err != nil && !errors.As(err, &partial) {
		return b.sendText(msg.Chat.ID, "Couldn't load the dashboard. "+userMessage(err))
	}
	text := formatDashboard(dash, b.now())
	if partial != nil {
		text += "\n\n" + userMessage(partial)
	}
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) showEventCard(ctx context.Context, chatID int64, from *tgbotapi.User, eventID string) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}
	event, err := b.events.GetEvent(ctx, user.ID, eventID)
	if err != nil {
		return b.sendText(chatID, userMessage(err))
	}

	// Tasks and categories are secondary; the card still renders without them.
	tasks, err := b.tasks.ListByEvent(ctx, user.ID, event.ID)
	if err != nil {
		b.log.WithError(err).WithField("event_id", event.ID).Warn("load event tasks")
	}
	idx, err := b.categories.Index(ctx, user.ID)
	if err != nil {
		idx = planner.NewCategoryIndex(nil)
	}

	text := formatEventCard(*event, tasks, idx, b.now())
	reply := tgbotapi.NewMessage(chatID, text)
	reply.ParseMode = tgbotapi.ModeHTML
	reply.ReplyMarkup = eventCardKeyboard(*event, tasks, b.calendarEnabled())
	_, err = b.out.Send(reply)
	return err
}

// eventAction is one of the event service's status changes.
type eventAction func(ctx context.Context, userID, eventID string) (*service.EventResult, error)

func (b *Bot) toggleEvent(ctx context.Context, chatID int64, from *tgbotapi.User, eventID string) error {
	return b.runEventAction(ctx, chatID, from, eventID, b.events.ToggleComplete)
}

// handleEventCommand runs a status change typed as /complete <id> or /restore <id>.
func (b *Bot) handleEventCommand(ctx context.Context, msg *tgbotapi.Message, action eventAction) error {
	eventID := strings.TrimSpace(msg.CommandArguments())
	if eventID == "" {
		return b.sendText(msg.Chat.ID, "Tell me which event: /"+msg.Command()+" &lt;id&gt;. The id is shown on the event card.")
	}
	return b.runEventAction(ctx, msg.Chat.ID, msg.From, eventID, action)
}

func (b *Bot) runEventAction(ctx context.Context, chatID int64, from *tgbotapi.User, eventID string, action eventAction) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}
	res, err := action(ctx, user.ID, eventID)
	if err != nil {
		return b.sendText(chatID, userMessage(err))
	}

	text := fmt.Sprintf("✅ «%s» is now %s.", escape(normalizeTitle(res.Event.Name)), strings.ToLower(statusLabel(res.Event.Status())))
	if res.Notice != nil {
		text += "\n" + calendarNotice(res.Notice)
	}
	if err := b.sendText(chatID, text); err != nil {
		return err
	}
	return b.showEventCard(ctx, chatID, from, eventID)
}

func (b *Bot) askDeleteEventConfirmation(ctx context.Context, chatID int64, from *tgbotapi.User, eventID string) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}
	event, err := b.events.GetEvent(ctx, user.ID, eventID)
	if err != nil {
		return b.sendText(chatID, userMessage(err))
	}

	text := fmt.Sprintf("Cancel «%s»? You can restore it later.", escape(normalizeTitle(event.Name)))
	if _, hard := planner.Delete(event.Status()); hard {
		text = fmt.Sprintf("Delete «%s» permanently together with all its tasks?", escape(normalizeTitle(event.Name)))
	}
	b.setConfirmation(from.ID, confirmationRequest{targetID: event.ID, action: actionDeleteEvent})
	return b.sendWithReplyMarkup(chatID, text, confirmKeyboard())
}

func (b *Bot) deleteEventAndReport(ctx context.Context, chatID int64, from *tgbotapi.User, eventID string) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}
	res, err := b.events.DeleteEvent(ctx, user.ID, eventID)
	if err != nil {
		return b.sendTextWithRemove(chatID, userMessage(err))
	}

	b.log.WithFields(logrus.Fields{"user_id": user.ID, "event_id": eventID, "hard": res.HardDeleted}).Info("event deleted from chat")
	text := fmt.Sprintf("🚫 «%s» cancelled.", escape(normalizeTitle(res.Event.Name)))
	if res.HardDeleted {
		text = fmt.Sprintf("🗑 «%s» deleted permanently.", escape(normalizeTitle(res.Event.Name)))
	}
	if res.Notice != nil {
		text += "\n" + calendarNotice(res.Notice)
	}
	return b.sendTextWithRemove(chatID, text)
}

func (b *Bot) toggleCalendar(ctx context.Context, chatID int64, from *tgbotapi.User, eventID string) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}
	res, err := b.events.ToggleCalendar(ctx, user.ID, eventID)
	if err != nil {
		return b.sendText(chatID, userMessage(err))
	}

	var text string
	switch {
	case res.Notice != nil:
		text = calendarNotice(res.Notice)
	case res.Event.CalendarSynced():
		text = fmt.Sprintf("📅 «%s» added to your calendar.", escape(normalizeTitle(res.Event.Name)))
	default:
		text = fmt.Sprintf("📅 «%s» removed from your calendar.", escape(normalizeTitle(res.Event.Name)))
	}
	if err := b.sendText(chatID, text); err != nil {
		return err
	}
	return b.showEventCard(ctx, chatID, from, eventID)
}

func calendarNotice(err error) string {
	var side *service.SideEffectFailure
	if errors.As(err, &side) {
		return fmt.Sprintf("📅 The calendar wasn't updated (%s failed). The event itself is saved.", escape(side.Op))
	}
	return "📅 The calendar wasn't updated."
}

func statusLabel(status model.EventStatus) string {
	switch status {
	case model.EventOngoing:
		return "Ongoing"
	case model.EventUpcoming:
		return "Upcoming"
	case model.EventCompleted:
		return "Completed"
	case model.EventCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}
