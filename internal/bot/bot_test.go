package bot

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"event-planner/internal/calendar"
	"event-planner/internal/config"
	"event-planner/internal/logging"
	"event-planner/internal/metrics"
	"event-planner/internal/model"
	"event-planner/internal/planner"
	"event-planner/internal/repository"
	"event-planner/internal/service"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []tgbotapi.MessageConfig
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeSender) texts() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []string
	for _, msg := range f.sent {
		all = append(all, msg.Text)
	}
	return strings.Join(all, "\n---\n")
}

func (f *fakeSender) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = nil
}

type harness struct {
	bot        *Bot
	out        *fakeSender
	events     *service.EventService
	tasks      *service.TaskService
	categories *service.CategoryService
	users      *repository.UserRepository
	from       *tgbotapi.User
	chat       *tgbotapi.Chat
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWith(t, nil)
}

// newCalendarHarness syncs events into an .ics file under the test's temp dir.
func newCalendarHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWith(t, calendar.NewICSCalendar(filepath.Join(t.TempDir(), "events.ics")))
}

func newHarnessWith(t *testing.T, syncer calendar.Syncer) *harness {
	t.Helper()
	db, err := repository.NewDB(":memory:", logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	opts := service.Options{Log: logging.Discard(), Metrics: metrics.New()}
	eventRepo := repository.NewEventRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	events := service.NewEventService(eventRepo, syncer, opts)
	tasks := service.NewTaskService(taskRepo, eventRepo, categoryRepo, opts)
	categories := service.NewCategoryService(categoryRepo, taskRepo, opts)

	cfg := config.Default()
	cfg.Calendar.Enabled = syncer != nil

	out := &fakeSender{}
	users := repository.NewUserRepository(db)
	b := newBot(out, Deps{
		Users:      users,
		Events:     events,
		Tasks:      tasks,
		Categories: categories,
		Reminders:  service.NewReminderService(events, tasks, categories, opts),
		Config:     cfg,
		Log:        logging.Discard(),
	})
	return &harness{
		bot:        b,
		out:        out,
		events:     events,
		tasks:      tasks,
		categories: categories,
		users:      users,
		from:       &tgbotapi.User{ID: 42, FirstName: "Sam"},
		chat:       &tgbotapi.Chat{ID: 42, Type: "private"},
	}
}

func (h *harness) say(t *testing.T, text string) {
	t.Helper()
	msg := &tgbotapi.Message{From: h.from, Chat: h.chat, Text: text}
	if strings.HasPrefix(text, "/") {
		length := len(strings.Fields(text)[0])
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: length}}
	}
	require.NoError(t, h.bot.handleMessage(context.Background(), msg))
}

func (h *harness) tap(t *testing.T, data string) {
	t.Helper()
	cb := &tgbotapi.CallbackQuery{ID: "cb", From: h.from, Message: &tgbotapi.Message{Chat: h.chat}, Data: data}
	require.NoError(t, h.bot.handleCallback(context.Background(), cb))
}

func (h *harness) userID(t *testing.T) string {
	t.Helper()
	user, err := h.users.FindByTelegramID(context.Background(), h.from.ID)
	require.NoError(t, err)
	return user.ID
}

func (h *harness) onlyEvent(t *testing.T) model.Event {
	t.Helper()
	events, err := h.events.ListEvents(context.Background(), h.userID(t))
	require.NoError(t, err)
	require.Len(t, events, 1)
	return events[0]
}

func TestBot_NewEventConversation(t *testing.T) {
	h := newHarness(t)

	h.say(t, "/newevent")
	h.say(t, "Birthday party")
	h.say(t, "not a date")
	h.say(t, "2030-05-01 18:00")
	h.say(t, btnSkip)
	h.say(t, btnPriorityHigh)
	h.say(t, "No")
	h.say(t, "Yes")

	assert.Contains(t, h.out.texts(), "I can't read that date")
	assert.Contains(t, h.out.texts(), "Event saved")

	event := h.onlyEvent(t)
	assert.Equal(t, "Birthday party", event.Name)
	assert.Equal(t, model.EventOngoing, event.Status())
	assert.Equal(t, model.PriorityHigh, event.EffectivePriority())
	assert.Empty(t, event.Venue)
	assert.Nil(t, h.bot.getConversation(h.from.ID))
}

func TestBot_CancelConversation(t *testing.T) {
	h := newHarness(t)

	h.say(t, "/newevent")
	h.say(t, btnCancelDialog)
	assert.Nil(t, h.bot.getConversation(h.from.ID))
	assert.Contains(t, h.out.texts(), "Input cancelled")
}

func TestBot_ToggleAndDeleteEvent(t *testing.T) {
	h := newHarness(t)
	h.say(t, "/start")
	res, err := h.events.CreateEvent(context.Background(), h.userID(t), service.EventInput{Name: "Trip", DueDate: time.Now().Add(48 * time.Hour)})
	require.NoError(t, err)
	id := res.Event.ID

	h.tap(t, cbTogglePrefix+id)
	assert.Contains(t, h.out.texts(), "is now completed")
	assert.Equal(t, model.EventCompleted, h.onlyEvent(t).Status())

	h.out.reset()
	h.tap(t, cbDeletePrefix+id)
	assert.Contains(t, h.out.texts(), "Cancel «Trip»?")
	h.say(t, btnConfirm)
	assert.Contains(t, h.out.texts(), "cancelled")
	assert.Equal(t, model.EventCancelled, h.onlyEvent(t).Status())

	h.out.reset()
	h.tap(t, cbDeletePrefix+id)
	assert.Contains(t, h.out.texts(), "permanently")
	h.say(t, btnConfirm)
	assert.Contains(t, h.out.texts(), "deleted permanently")

	events, err := h.events.ListEvents(context.Background(), h.userID(t))
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestBot_NewTaskAndComplete(t *testing.T) {
	h := newHarness(t)
	h.say(t, "/start")
	res, err := h.events.CreateEvent(context.Background(), h.userID(t), service.EventInput{Name: "Move", DueDate: time.Now().Add(72 * time.Hour)})
	require.NoError(t, err)

	h.tap(t, cbNewTaskPrefix+res.Event.ID)
	h.say(t, "Rent a van")
	h.say(t, "2030-01-01")
	h.say(t, "Logistics")
	assert.Contains(t, h.out.texts(), "Task saved")
	assert.Contains(t, h.out.texts(), "<i>(Logistics)</i>")

	card := h.out.sent[len(h.out.sent)-1]
	markup, ok := card.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	last := markup.InlineKeyboard[len(markup.InlineKeyboard)-1]
	require.NotNil(t, last[0].CallbackData)
	require.True(t, strings.HasPrefix(*last[0].CallbackData, cbTaskDonePrefix))

	h.out.reset()
	h.tap(t, *last[0].CallbackData)
	assert.Contains(t, h.out.texts(), "«Rent a van» done")
	assert.Contains(t, h.out.texts(), "100% (1/1)")
}

func TestBot_ListEventsByStatus(t *testing.T) {
	h := newHarness(t)
	h.say(t, "/start")
	_, err := h.events.CreateEvent(context.Background(), h.userID(t), service.EventInput{Name: "Picnic", DueDate: time.Now().Add(24 * time.Hour)})
	require.NoError(t, err)

	h.out.reset()
	h.say(t, "/events upcoming")
	assert.Contains(t, h.out.texts(), "Picnic")

	h.out.reset()
	h.say(t, "/events completed")
	assert.Contains(t, h.out.texts(), "No completed events.")

	h.out.reset()
	h.say(t, "/events someday")
	assert.Contains(t, h.out.texts(), "Filter by one of")
}

func TestBot_EditEvent(t *testing.T) {
	h := newHarness(t)
	h.say(t, "/start")
	due := time.Now().Add(72 * time.Hour).Truncate(time.Minute)
	res, err := h.events.CreateEvent(context.Background(), h.userID(t), service.EventInput{Name: "Party", DueDate: due})
	require.NoError(t, err)

	h.tap(t, cbEditEventPrefix+res.Event.ID)
	h.say(t, "Garden party")
	h.say(t, btnSkip)
	h.say(t, "City park")
	h.say(t, btnPriorityMedium)
	h.say(t, btnSkip)
	assert.Contains(t, h.out.texts(), "Event updated")
	assert.Nil(t, h.bot.getConversation(h.from.ID))

	event := h.onlyEvent(t)
	assert.Equal(t, "Garden party", event.Name)
	assert.Equal(t, "City park", event.Venue)
	assert.Equal(t, model.PriorityMedium, event.EffectivePriority())
	assert.True(t, due.Equal(event.DueDate), "skipped date is kept")
	assert.Equal(t, model.EventUpcoming, event.Status())
}

func TestBot_CompleteAndRestoreCommands(t *testing.T) {
	h := newHarness(t)
	h.say(t, "/start")
	res, err := h.events.CreateEvent(context.Background(), h.userID(t), service.EventInput{Name: "Trip", DueDate: time.Now().Add(48 * time.Hour)})
	require.NoError(t, err)
	id := res.Event.ID

	h.say(t, "/event "+id)
	assert.Contains(t, h.out.texts(), "<code>"+id+"</code>")

	h.out.reset()
	h.say(t, "/complete "+id)
	assert.Contains(t, h.out.texts(), "is now completed")

	h.out.reset()
	h.say(t, "/complete "+id)
	assert.Contains(t, h.out.texts(), "doesn't apply")

	h.out.reset()
	h.say(t, "/restore "+id)
	assert.Contains(t, h.out.texts(), "is now ongoing")
	assert.Equal(t, model.EventOngoing, h.onlyEvent(t).Status())

	h.out.reset()
	h.say(t, "/restore")
	assert.Contains(t, h.out.texts(), "Tell me which event")
}

func TestBot_StartAndEditTask(t *testing.T) {
	h := newHarness(t)
	h.say(t, "/start")
	ctx := context.Background()
	res, err := h.events.CreateEvent(ctx, h.userID(t), service.EventInput{Name: "Move", DueDate: time.Now().Add(72 * time.Hour)})
	require.NoError(t, err)
	due := time.Now().Add(24 * time.Hour).Truncate(time.Minute)
	task, err := h.tasks.CreateTask(ctx, h.userID(t), service.TaskInput{EventID: res.Event.ID, Name: "Rent a van", DueDate: due})
	require.NoError(t, err)

	h.tap(t, cbTaskStartPrefix+task.ID)
	assert.Contains(t, h.out.texts(), "is in progress")
	stored, err := h.tasks.GetTask(ctx, h.userID(t), task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskInProgress, stored.Status)

	h.out.reset()
	h.tap(t, cbTaskEditPrefix+task.ID)
	h.say(t, "Rent a big van")
	h.say(t, btnSkip)
	h.say(t, "Logistics")
	h.say(t, "bogus")
	h.say(t, btnTaskCompleted)
	text := h.out.texts()
	assert.Contains(t, text, "Pick a status")
	assert.Contains(t, text, "Task updated")
	assert.Contains(t, text, "<i>(Logistics)</i>")

	stored, err = h.tasks.GetTask(ctx, h.userID(t), task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Rent a big van", stored.Name)
	assert.Equal(t, model.TaskCompleted, stored.Status)
	assert.True(t, due.Equal(stored.DueDate))
	label, err := h.categories.Resolve(ctx, h.userID(t), stored.CategoryID)
	require.NoError(t, err)
	assert.Equal(t, "Logistics", label.Name)
}

func TestBot_EditCategory(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.say(t, "/newcategory Home #27ae60")
	h.say(t, "/newcategory Work")

	categories, err := h.categories.List(ctx, h.userID(t))
	require.NoError(t, err)
	require.Len(t, categories, 2)
	home, work := categories[0], categories[1]

	h.out.reset()
	h.tap(t, cbCategoryEdit+home.ID)
	h.say(t, "House")
	h.say(t, "#112233")
	assert.Contains(t, h.out.texts(), "Category «House» saved (#112233)")

	h.out.reset()
	h.tap(t, cbCategoryEdit+work.ID)
	h.say(t, "house")
	h.say(t, btnSkip)
	assert.Contains(t, h.out.texts(), "already exists")

	stored, err := h.categories.Get(ctx, h.userID(t), work.ID)
	require.NoError(t, err)
	assert.Equal(t, "Work", stored.Name)
}

func TestBot_ToggleCalendar(t *testing.T) {
	h := newCalendarHarness(t)
	h.say(t, "/start")
	res, err := h.events.CreateEvent(context.Background(), h.userID(t), service.EventInput{Name: "Gala", DueDate: time.Now().Add(48 * time.Hour)})
	require.NoError(t, err)
	id := res.Event.ID

	h.tap(t, cbCalendarPrefix+id)
	assert.Contains(t, h.out.texts(), "«Gala» added to your calendar")
	assert.True(t, h.onlyEvent(t).CalendarSynced())

	h.out.reset()
	h.tap(t, cbCalendarPrefix+id)
	assert.Contains(t, h.out.texts(), "«Gala» removed from your calendar")
	assert.False(t, h.onlyEvent(t).CalendarSynced())
}

func TestEventCardKeyboard(t *testing.T) {
	buttons := func(markup tgbotapi.InlineKeyboardMarkup) []string {
		var labels []string
		for _, row := range markup.InlineKeyboard {
			for _, btn := range row {
				labels = append(labels, btn.Text)
			}
		}
		return labels
	}
	upcoming := model.EventUpcoming
	cancelled := model.EventCancelled
	event := model.Event{ID: "e1", Name: "Gala", StatusID: &upcoming}

	assert.NotContains(t, buttons(eventCardKeyboard(event, nil, false)), "📅 Add to calendar")
	assert.Contains(t, buttons(eventCardKeyboard(event, nil, true)), "📅 Add to calendar")

	event.CalendarEventID = "uid-1"
	assert.Contains(t, buttons(eventCardKeyboard(event, nil, true)), "📅 Remove from calendar")

	event.CalendarEventID = ""
	event.StatusID = &cancelled
	labels := buttons(eventCardKeyboard(event, nil, true))
	assert.NotContains(t, labels, "📅 Add to calendar")
	assert.Contains(t, labels, "🗑 Delete permanently")

	task := model.Task{ID: "t1", Name: "Tickets", Status: model.TaskNotStarted}
	labels = buttons(eventCardKeyboard(event, []model.Task{task}, false))
	assert.Contains(t, labels, "▶️")
	assert.Contains(t, labels, "✏️")
}

func TestBot_Dashboard(t *testing.T) {
	h := newHarness(t)
	h.say(t, "/start")
	_, err := h.events.CreateEvent(context.Background(), h.userID(t), service.EventInput{Name: "Gig", DueDate: time.Now().Add(time.Hour), Ongoing: true})
	require.NoError(t, err)

	h.out.reset()
	h.say(t, "/dashboard")
	text := h.out.texts()
	assert.Contains(t, text, "Ongoing: 1")
	assert.Contains(t, text, "Upcoming: 0")
	assert.Contains(t, text, "<b>Gig</b>")
}

func TestBot_Categories(t *testing.T) {
	h := newHarness(t)

	h.say(t, "/newcategory Home chores #27ae60")
	assert.Contains(t, h.out.texts(), "Category «Home chores» added")

	h.out.reset()
	h.say(t, "/categories")
	assert.Contains(t, h.out.texts(), "Home chores <code>#27AE60</code>")

	h.out.reset()
	h.say(t, "/newcategory Uncategorized")
	assert.Contains(t, h.out.texts(), "reserved")
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{err: &service.ValidationError{Field: "due_date", Reason: "is required"}, want: "due date is required"},
		{err: service.ErrNotFound, want: "Not found"},
		{err: service.ErrInvalidTransition, want: "doesn't apply"},
		{err: service.ErrCategoryInUse, want: "still used"},
		{err: &service.TransportError{Op: "list", Err: errors.New("down")}, want: "not reachable"},
		{err: &service.PartialFailure{Failed: map[string]error{"ongoing": errors.New("x")}}, want: "couldn't be loaded"},
	}
	for _, tt := range tests {
		assert.Contains(t, userMessage(tt.err), tt.want)
	}
}

func TestParseDue(t *testing.T) {
	got, err := parseDue("2030-05-01 18:30", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2030, 5, 1, 18, 30, 0, 0, time.UTC), got)

	got, err = parseDue(" 2030-05-01 ", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2030, 5, 1, 0, 0, 0, 0, time.UTC), got)

	_, err = parseDue("tomorrow", time.UTC)
	assert.Error(t, err)
}

func TestInputParsers(t *testing.T) {
	p, ok := parsePriorityInput(btnPriorityMedium)
	assert.True(t, ok)
	assert.Equal(t, model.PriorityMedium, p)

	p, ok = parsePriorityInput("3")
	assert.True(t, ok)
	assert.Equal(t, model.PriorityLow, p)

	_, ok = parsePriorityInput("urgent")
	assert.False(t, ok)

	yes, ok := parseYesNo("YES")
	assert.True(t, ok)
	assert.True(t, yes)
	_, ok = parseYesNo("maybe")
	assert.False(t, ok)

	status, ok := parseTaskStatusInput(btnTaskInProgress)
	assert.True(t, ok)
	assert.Equal(t, model.TaskInProgress, status)
	status, ok = parseTaskStatusInput("Done")
	assert.True(t, ok)
	assert.Equal(t, model.TaskCompleted, status)
	_, ok = parseTaskStatusInput("later")
	assert.False(t, ok)

	name, color := splitCategoryArgs("  Road trip  #FF8800 ")
	assert.Equal(t, "Road trip", name)
	require.NotNil(t, color)
	assert.Equal(t, "#FF8800", *color)

	name, color = splitCategoryArgs("#hashtag")
	assert.Equal(t, "#hashtag", name)
	assert.Nil(t, color)
}

func TestShortTitle(t *testing.T) {
	assert.Equal(t, "Short", shortTitle("short", 10))
	assert.Equal(t, "Abcd…", shortTitle("abcdefgh", 5))
}

func TestFormatTask(t *testing.T) {
	now := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)
	task := model.Task{Name: "buy <cake>", DueDate: now.Add(-time.Hour)}

	line := formatTask(task, planner.CategoryLabel{Name: "Food", Color: "#000000"}, now)
	assert.True(t, strings.HasPrefix(line, iconOverdue+" Buy &lt;cake&gt; <i>(Food)</i>"))
	assert.Contains(t, line, "not started")

	task.Status = model.TaskCompleted
	line = formatTask(task, planner.CategoryLabel{Name: "Food"}, now)
	assert.True(t, strings.HasPrefix(line, iconDone))
}
