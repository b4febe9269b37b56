package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"event-planner/internal/config"
	"event-planner/internal/model"
	"event-planner/internal/repository"
	"event-planner/internal/service"
)

type conversationStage int

const (
	stageNone conversationStage = iota
	stageEventName
	stageEventDue
	stageEventVenue
	stageEventPriority
	stageEventOutdoor
	stageEventOngoing
	stageEventCalendar
	stageTaskName
	stageTaskDue
	stageTaskCategory
	stageEditEventName
	stageEditEventDue
	stageEditEventVenue
	stageEditEventPriority
	stageEditEventOutdoor
	stageEditTaskName
	stageEditTaskDue
	stageEditTaskCategory
	stageEditTaskStatus
	stageEditCategoryName
	stageEditCategoryColor
)

const (
	cbEventPrefix      = "event:"
	cbTogglePrefix     = "toggle:"
	cbDeletePrefix     = "delete:"
	cbNewTaskPrefix    = "newtask:"
	cbTaskDonePrefix   = "taskdone:"
	cbTaskDeletePrefix = "taskdel:"
	cbCategoryDelete   = "catdel:"
	cbEditEventPrefix  = "editevent:"
	cbCalendarPrefix   = "calendar:"
	cbTaskEditPrefix   = "taskedit:"
	cbTaskStartPrefix  = "taskstart:"
	cbCategoryEdit     = "catedit:"
)

type conversationState struct {
	stage conversationStage
	// targetID is the record an edit dialog changes.
	targetID string
	event    service.EventInput
	task     service.TaskInput
	category categoryDraft
}

type categoryDraft struct {
	name  string
	color *string
}

type confirmationAction int

const (
	actionDeleteEvent confirmationAction = iota
	actionDeleteTask
)

type confirmationRequest struct {
	targetID string
	action   confirmationAction
}

// sender is the part of the Telegram API the handlers talk to.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Deps are the services the bot presents.
type Deps struct {
	Users      *repository.UserRepository
	Events     *service.EventService
	Tasks      *service.TaskService
	Categories *service.CategoryService
	Reminders  *service.ReminderService
	Config     *config.Config
	Log        logrus.FieldLogger
}

// Bot aggregates Telegram API with services.
type Bot struct {
	api           *tgbotapi.BotAPI
	out           sender
	users         *repository.UserRepository
	events        *service.EventService
	tasks         *service.TaskService
	categories    *service.CategoryService
	reminders     *service.ReminderService
	config        *config.Config
	log           logrus.FieldLogger
	now           func() time.Time
	conversations map[int64]*conversationState
	confirmations map[int64]confirmationRequest
	mu            sync.Mutex
}

func New(token string, deps Deps) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	b := newBot(api, deps)
	b.api = api
	b.log.WithField("account", api.Self.UserName).Info("bot authorized")
	return b, nil
}

func newBot(out sender, deps Deps) *Bot {
	log := deps.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Bot{
		out:           out,
		users:         deps.Users,
		events:        deps.Events,
		tasks:         deps.Tasks,
		categories:    deps.Categories,
		reminders:     deps.Reminders,
		config:        deps.Config,
		log:           log,
		now:           time.Now,
		conversations: make(map[int64]*conversationState),
		confirmations: make(map[int64]confirmationRequest),
	}
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	if b.api == nil {
		return errors.New("bot is not connected to telegram")
	}
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	b.log.Info("start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		b.handleUpdate(ctx, update)
	}

	return nil
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
			b.log.WithError(err).Error("handle callback")
		}
	case update.Message != nil:
		if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
			return
		}
		if err := b.handleMessage(ctx, update.Message); err != nil {
			b.log.WithError(err).Error("handle message")
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}

	if !msg.IsCommand() && isCancelDialogInput(msg.Text) {
		b.clearConversation(msg.From.ID)
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Input cancelled. Pick something from the menu to start again.")
	}

	if !msg.IsCommand() {
		if handled, err := b.handleMenuAlias(ctx, msg); handled {
			return err
		}
	}

	if msg.IsCommand() {
		b.log.WithFields(logrus.Fields{"from": msg.From.ID, "command": msg.Command()}).Info("command received")
		return b.handleCommand(ctx, msg)
	}

	if pending, ok := b.getConfirmation(msg.From.ID); ok {
		return b.handleConfirmationResponse(ctx, msg, pending)
	}

	if state := b.getConversation(msg.From.ID); state != nil {
		b.log.WithFields(logrus.Fields{"from": msg.From.ID, "stage": state.stage}).Debug("conversation step")
		return b.handleConversation(ctx, msg, state)
	}

	return b.sendText(msg.Chat.ID, "I didn't get that. Send /newevent to plan something or /help for the list of commands.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return b.handleStart(ctx, msg)
	case "help":
		return b.handleHelp(msg)
	case "report":
		return b.handleReport(ctx, msg)
	case "newevent":
		return b.startNewEventConversation(ctx, msg)
	case "events":
		return b.handleListEvents(ctx, msg)
	case "event":
		return b.handleShowEvent(ctx, msg)
	case "next":
		return b.handleNext(ctx, msg)
	case "dashboard":
		return b.handleDashboard(ctx, msg)
	case "complete":
		return b.handleEventCommand(ctx, msg, b.events.CompleteEvent)
	case "restore":
		return b.handleEventCommand(ctx, msg, b.events.RestoreEvent)
	case "newtask":
		return b.handleNewTask(ctx, msg)
	case "categories":
		return b.handleCategories(ctx, msg)
	case "newcategory":
		return b.handleNewCategory(ctx, msg)
	case "cancel":
		b.clearConversation(msg.From.ID)
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Input cancelled.")
	default:
		return b.sendText(msg.Chat.ID, "Unknown command. Have a look at /help.")
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}

	name := strings.TrimSpace(msg.From.FirstName)
	if name == "" {
		name = "there"
	}

	text := fmt.Sprintf("👋 Hi, %s!\n<b>I keep track of your events and everything they need.</b>\n\n%s", escape(name), commandList)
	return b.sendText(msg.Chat.ID, text)
}

const commandList = "Commands:\n" +
	"• /newevent — plan a new event\n" +
	"• /events [status] — your events, tap one to open it\n" +
	"• /next — the event coming up next\n" +
	"• /complete &lt;id&gt;, /restore &lt;id&gt; — mark an event done or bring it back\n" +
	"• /dashboard — how many events are ongoing, upcoming and done\n" +
	"• /newtask — add a task to an event\n" +
	"• /categories — task categories\n" +
	"• /newcategory &lt;name&gt; [#RRGGBB] — add a category\n" +
	"• /report — send the digest now\n" +
	"• /cancel — cancel the current input"

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	return b.sendText(msg.Chat.ID, "ℹ️ <b>Help</b>\n"+commandList)
}

func (b *Bot) handleReport(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	text, err := b.reminders.Digest(ctx, *user)
	if err != nil {
		return b.sendText(msg.Chat.ID, "Couldn't build the digest. "+userMessage(err))
	}
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleConversation(ctx context.Context, msg *tgbotapi.Message, state *conversationState) error {
	switch state.stage {
	case stageEventName, stageEventDue, stageEventVenue, stageEventPriority, stageEventOutdoor, stageEventOngoing, stageEventCalendar:
		return b.handleEventConversation(ctx, msg, state)
	case stageTaskName, stageTaskDue, stageTaskCategory:
		return b.handleTaskConversation(ctx, msg, state)
	case stageEditEventName, stageEditEventDue, stageEditEventVenue, stageEditEventPriority, stageEditEventOutdoor:
		return b.handleEditEventConversation(ctx, msg, state)
	case stageEditTaskName, stageEditTaskDue, stageEditTaskCategory, stageEditTaskStatus:
		return b.handleEditTaskConversation(ctx, msg, state)
	case stageEditCategoryName, stageEditCategoryColor:
		return b.handleEditCategoryConversation(ctx, msg, state)
	default:
		b.clearConversation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "The dialog was reset. Try again from the menu.")
	}
}

func (b *Bot) handleConfirmationResponse(ctx context.Context, msg *tgbotapi.Message, req confirmationRequest) error {
	text := strings.TrimSpace(msg.Text)
	switch {
	case isConfirmInput(text):
		b.clearConfirmation(msg.From.ID)
		if req.action == actionDeleteTask {
			return b.deleteTaskAndRefresh(ctx, msg.Chat.ID, msg.From, req.targetID)
		}
		return b.deleteEventAndReport(ctx, msg.Chat.ID, msg.From, req.targetID)
	case isCancelInput(text):
		b.clearConfirmation(msg.From.ID)
		return b.sendMenuPlaceholder(msg.Chat.ID)
	default:
		prompt := "Confirm or cancel deleting the event."
		if req.action == actionDeleteTask {
			prompt = "Confirm or cancel deleting the task."
		}
		return b.sendWithReplyMarkup(msg.Chat.ID, prompt, confirmKeyboard())
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil || cb.Message.Chat == nil {
		return nil
	}
	if _, err := b.out.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.log.WithError(err).Warn("callback ack")
	}

	chatID := cb.Message.Chat.ID
	data := cb.Data
	b.log.WithFields(logrus.Fields{"from": cb.From.ID, "data": data}).Info("callback received")

	switch {
	case strings.HasPrefix(data, cbEventPrefix):
		return b.showEventCard(ctx, chatID, cb.From, strings.TrimPrefix(data, cbEventPrefix))
	case strings.HasPrefix(data, cbTogglePrefix):
		return b.toggleEvent(ctx, chatID, cb.From, strings.TrimPrefix(data, cbTogglePrefix))
	case strings.HasPrefix(data, cbDeletePrefix):
		return b.askDeleteEventConfirmation(ctx, chatID, cb.From, strings.TrimPrefix(data, cbDeletePrefix))
	case strings.HasPrefix(data, cbNewTaskPrefix):
		return b.startNewTaskConversation(ctx, chatID, cb.From, strings.TrimPrefix(data, cbNewTaskPrefix))
	case strings.HasPrefix(data, cbTaskDonePrefix):
		return b.completeTaskAndRefresh(ctx, chatID, cb.From, strings.TrimPrefix(data, cbTaskDonePrefix))
	case strings.HasPrefix(data, cbTaskDeletePrefix):
		return b.askDeleteTaskConfirmation(ctx, chatID, cb.From, strings.TrimPrefix(data, cbTaskDeletePrefix))
	case strings.HasPrefix(data, cbCategoryDelete):
		return b.deleteCategory(ctx, chatID, cb.From, strings.TrimPrefix(data, cbCategoryDelete))
	case strings.HasPrefix(data, cbEditEventPrefix):
		return b.startEditEventConversation(ctx, chatID, cb.From, strings.TrimPrefix(data, cbEditEventPrefix))
	case strings.HasPrefix(data, cbCalendarPrefix):
		return b.toggleCalendar(ctx, chatID, cb.From, strings.TrimPrefix(data, cbCalendarPrefix))
	case strings.HasPrefix(data, cbTaskEditPrefix):
		return b.startEditTaskConversation(ctx, chatID, cb.From, strings.TrimPrefix(data, cbTaskEditPrefix))
	case strings.HasPrefix(data, cbTaskStartPrefix):
		return b.startTaskAndRefresh(ctx, chatID, cb.From, strings.TrimPrefix(data, cbTaskStartPrefix))
	case strings.HasPrefix(data, cbCategoryEdit):
		return b.startEditCategoryConversation(ctx, chatID, cb.From, strings.TrimPrefix(data, cbCategoryEdit))
	default:
		return nil
	}
}

// SendDigests sends the digest to every known user.
func (b *Bot) SendDigests(ctx context.Context) error {
	users, err := b.users.ListAll(ctx)
	if err != nil {
		return err
	}
	for _, user := range users {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		log := b.log.WithField("telegram_id", user.TelegramID)
		text, err := b.reminders.Digest(ctx, user)
		if err != nil {
			log.WithError(err).Warn("build digest")
			continue
		}
		if err := b.sendText(user.TelegramID, text); err != nil {
			log.WithError(err).Warn("send digest")
		}
	}
	return nil
}

func (b *Bot) ensureUser(ctx context.Context, from *tgbotapi.User) (*model.User, error) {
	return b.users.UpsertFromTelegram(ctx, from.ID, from.FirstName, from.LastName, from.UserName)
}

func (b *Bot) calendarEnabled() bool {
	return b.config != nil && b.config.Calendar.Enabled
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.out.Send(msg)
	return err
}

func (b *Bot) sendTextWithRemove(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	if _, err := b.out.Send(msg); err != nil {
		return err
	}
	return b.sendMenuPlaceholder(chatID)
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.out.Send(msg)
	return err
}

func (b *Bot) sendMenuPlaceholder(chatID int64) error {
	msg := tgbotapi.NewMessage(chatID, "🔹 Main menu")
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.out.Send(msg)
	return err
}

func (b *Bot) getConfirmation(userID int64) (confirmationRequest, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	req, ok := b.confirmations[userID]
	return req, ok
}

func (b *Bot) setConfirmation(userID int64, req confirmationRequest) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.confirmations[userID] = req
}

func (b *Bot) clearConfirmation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.confirmations, userID)
}

func (b *Bot) setConversation(userID int64, state *conversationState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conversations[userID] = state
}

func (b *Bot) getConversation(userID int64) *conversationState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conversations[userID]
}

func (b *Bot) clearConversation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conversations, userID)
}

func (b *Bot) handleMenuAlias(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	text := strings.TrimSpace(strings.ToLower(msg.Text))
	switch text {
	case strings.ToLower(menuLabelNewEvent):
		return true, b.startNewEventConversation(ctx, msg)
	case strings.ToLower(menuLabelEvents):
		return true, b.handleListEvents(ctx, msg)
	case strings.ToLower(menuLabelNext):
		return true, b.handleNext(ctx, msg)
	case strings.ToLower(menuLabelDashboard):
		return true, b.handleDashboard(ctx, msg)
	case strings.ToLower(menuLabelCategories):
		return true, b.handleCategories(ctx, msg)
	case strings.ToLower(menuLabelHelp):
		return true, b.handleHelp(msg)
	default:
		return false, nil
	}
}

// userMessage turns a service error into something to show the user.
func userMessage(err error) string {
	var verr *service.ValidationError
	var partial *service.PartialFailure
	var transport *service.TransportError
	switch {
	case errors.As(err, &verr):
		return fmt.Sprintf("⚠️ %s %s.", escape(strings.ReplaceAll(verr.Field, "_", " ")), escape(verr.Reason))
	case errors.As(err, &partial):
		return "⚠️ Some data couldn't be loaded."
	case errors.Is(err, service.ErrNotFound):
		return "Not found. It may have been deleted."
	case errors.Is(err, service.ErrInvalidTransition):
		return "That action doesn't apply to this event any more."
	case errors.Is(err, service.ErrCategoryInUse):
		return "This category is still used by tasks. Move or delete them first."
	case errors.As(err, &transport):
		return "Storage is not reachable right now. Please try again."
	default:
		return "Something went wrong: " + escape(err.Error())
	}
}
