package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"event-planner/internal/calendar"
	"event-planner/internal/model"
	"event-planner/internal/planner"
	"event-planner/internal/repository"
)

// EventInput is what the create and edit forms submit.
type EventInput struct {
	Name      string
	DueDate   time.Time
	Venue     string
	Priority  *model.Priority
	IsOutdoor bool
	// Ongoing marks a new event as already in progress. Ignored on edit.
	Ongoing bool
	// SyncCalendar adds the event to the calendar after it is saved.
	SyncCalendar bool
}

// EventResult is the outcome of a write. Notice is set when the calendar side
// effect failed; the write itself still succeeded.
type EventResult struct {
	Event       *model.Event
	HardDeleted bool
	Notice      error
}

// Dashboard is the home screen summary.
type Dashboard struct {
	Counts   map[model.EventStatus]int64
	ComingUp *model.Event
}

// dashboardBuckets are the status counts shown on the home screen.
var dashboardBuckets = []model.EventStatus{model.EventOngoing, model.EventUpcoming, model.EventCompleted}

// EventService wraps event lifecycle logic.
type EventService struct {
	events   *repository.EventRepository
	calendar calendar.Syncer
	opts     Options
}

func NewEventService(events *repository.EventRepository, syncer calendar.Syncer, opts Options) *EventService {
	if syncer == nil {
		syncer = calendar.Noop{}
	}
	return &EventService{events: events, calendar: syncer, opts: opts.withDefaults()}
}

func (s *EventService) CreateEvent(ctx context.Context, userID string, input EventInput) (*EventResult, error) {
	if err := validateUser(userID); err != nil {
		return nil, err
	}
	input.Name = strings.TrimSpace(input.Name)
	input.Venue = strings.TrimSpace(input.Venue)
	if err := validateEventInput(input); err != nil {
		return nil, err
	}

	status := planner.InitialStatus(input.Ongoing)
	event := &model.Event{
		Name:      input.Name,
		DueDate:   input.DueDate,
		Venue:     input.Venue,
		Priority:  input.Priority,
		IsOutdoor: input.IsOutdoor,
		StatusID:  &status,
	}

	opCtx, cancel := s.opts.opCtx(ctx)
	err := s.events.CreateForUser(opCtx, event, userID)
	cancel()
	if err != nil {
		return nil, storeErr("create event", err)
	}

	s.log(userID, event).WithField("status", status).Info("event created")
	s.opts.Metrics.EventTransition("create")

	result := &EventResult{Event: event}
	if input.SyncCalendar {
		result.Notice = s.addToCalendar(ctx, userID, event)
	}
	return result, nil
}

// UpdateEvent applies the edit form. Status is not touched; a synced
// calendar entry is replaced so it reflects the new details.
func (s *EventService) UpdateEvent(ctx context.Context, userID, eventID string, input EventInput) (*EventResult, error) {
	if err := validateUser(userID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(eventID) == "" {
		return nil, invalid("event_id", "is required")
	}
	input.Name = strings.TrimSpace(input.Name)
	input.Venue = strings.TrimSpace(input.Venue)
	if err := validateEventInput(input); err != nil {
		return nil, err
	}

	event, err := s.GetEvent(ctx, userID, eventID)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{
		"name":       input.Name,
		"due_date":   input.DueDate,
		"venue":      input.Venue,
		"priority":   input.Priority,
		"is_outdoor": input.IsOutdoor,
	}
	opCtx, cancel := s.opts.opCtx(ctx)
	err = s.events.UpdateFields(opCtx, event.ID, fields)
	cancel()
	if err != nil {
		return nil, storeErr("update event", err)
	}

	event.Name = input.Name
	event.DueDate = input.DueDate
	event.Venue = input.Venue
	event.Priority = input.Priority
	event.IsOutdoor = input.IsOutdoor
	s.log(userID, event).Info("event updated")

	result := &EventResult{Event: event}
	if event.Status() == model.EventCancelled {
		return result, nil
	}
	if event.CalendarSynced() {
		if notice := s.removeFromCalendar(ctx, userID, event); notice != nil {
			result.Notice = notice
			return result, nil
		}
		result.Notice = s.addToCalendar(ctx, userID, event)
	} else if input.SyncCalendar {
		result.Notice = s.addToCalendar(ctx, userID, event)
	}
	return result, nil
}

// GetEvent returns one of the user's events.
func (s *EventService) GetEvent(ctx context.Context, userID, eventID string) (*model.Event, error) {
	if err := validateUser(userID); err != nil {
		return nil, err
	}
	opCtx, cancel := s.opts.opCtx(ctx)
	defer cancel()
	event, err := s.events.FindForUser(opCtx, userID, eventID)
	if err != nil {
		return nil, storeErr("find event", err)
	}
	return event, nil
}

// ListEvents returns all of the user's events, soonest first.
func (s *EventService) ListEvents(ctx context.Context, userID string) ([]model.Event, error) {
	if err := validateUser(userID); err != nil {
		return nil, err
	}
	opCtx, cancel := s.opts.opCtx(ctx)
	defer cancel()
	events, err := s.events.ListByUser(opCtx, userID)
	if err != nil {
		return nil, storeErr("list events", err)
	}
	return events, nil
}

func (s *EventService) ListEventsByStatus(ctx context.Context, userID string, status model.EventStatus) ([]model.Event, error) {
	if err := validateUser(userID); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, invalid("status", "unknown event status")
	}
	opCtx, cancel := s.opts.opCtx(ctx)
	defer cancel()
	events, err := s.events.ListByUserAndStatus(opCtx, userID, status)
	if err != nil {
		return nil, storeErr("list events", err)
	}
	return events, nil
}

// ToggleComplete is the context-sensitive complete/restore action.
func (s *EventService) ToggleComplete(ctx context.Context, userID, eventID string) (*EventResult, error) {
	return s.transition(ctx, userID, eventID, "toggle", func(current model.EventStatus) (model.EventStatus, error) {
		return planner.ToggleComplete(current), nil
	})
}

func (s *EventService) CompleteEvent(ctx context.Context, userID, eventID string) (*EventResult, error) {
	return s.transition(ctx, userID, eventID, "complete", planner.Complete)
}

func (s *EventService) RestoreEvent(ctx context.Context, userID, eventID string) (*EventResult, error) {
	return s.transition(ctx, userID, eventID, "restore", planner.Restore)
}

// DeleteEvent cancels the event, or purges it with its tasks when it is
// already cancelled.
func (s *EventService) DeleteEvent(ctx context.Context, userID, eventID string) (*EventResult, error) {
	event, err := s.GetEvent(ctx, userID, eventID)
	if err != nil {
		return nil, err
	}

	if next, hard := planner.Delete(event.Status()); !hard {
		return s.apply(ctx, userID, event, "cancel", next)
	}

	opCtx, cancel := s.opts.opCtx(ctx)
	err = s.events.Purge(opCtx, event.ID)
	cancel()
	if err != nil {
		return nil, storeErr("purge event", err)
	}
	s.log(userID, event).Info("event purged")
	s.opts.Metrics.EventTransition("purge")

	result := &EventResult{Event: event, HardDeleted: true}
	if event.CalendarSynced() {
		result.Notice = s.removeCalendarEntry(ctx, userID, event)
	}
	return result, nil
}

// ToggleCalendar adds the event to the calendar, or removes it when it is
// already there. Cancelled events can only be removed. A failed sync comes
// back as the result's Notice.
func (s *EventService) ToggleCalendar(ctx context.Context, userID, eventID string) (*EventResult, error) {
	event, err := s.GetEvent(ctx, userID, eventID)
	if err != nil {
		return nil, err
	}

	result := &EventResult{Event: event}
	switch {
	case event.CalendarSynced():
		result.Notice = s.removeFromCalendar(ctx, userID, event)
	case event.Status() == model.EventCancelled:
		return nil, ErrInvalidTransition
	default:
		result.Notice = s.addToCalendar(ctx, userID, event)
	}
	return result, nil
}

// HighestPriorityEvent picks the user's "coming up" event: the soonest future
// event, ties broken by priority then creation time. Nil when nothing is due.
func (s *EventService) HighestPriorityEvent(ctx context.Context, userID string) (*model.Event, error) {
	events, err := s.ListEvents(ctx, userID)
	if err != nil {
		return nil, err
	}
	return planner.ComingUp(events, s.opts.Now()), nil
}

// Dashboard loads the status counts and the coming-up event concurrently.
// When some branches fail it returns the partial dashboard together with a
// *PartialFailure naming them.
func (s *EventService) Dashboard(ctx context.Context, userID string) (*Dashboard, error) {
	if err := validateUser(userID); err != nil {
		return nil, err
	}

	dash := &Dashboard{Counts: make(map[model.EventStatus]int64, len(dashboardBuckets))}
	failed := make(map[string]error)
	var mu sync.Mutex
	record := func(name string, err error) {
		mu.Lock()
		defer mu.Unlock()
		failed[name] = err
	}

	// Branches report their own failures and always return nil so one
	// failure never cancels its siblings.
	var g errgroup.Group
	for _, status := range dashboardBuckets {
		status := status
		g.Go(func() error {
			opCtx, cancel := s.opts.opCtx(ctx)
			defer cancel()
			count, err := s.events.CountByUserAndStatus(opCtx, userID, status)
			if err != nil {
				record(status.String(), storeErr("count events", err))
				return nil
			}
			mu.Lock()
			dash.Counts[status] = count
			mu.Unlock()
			return nil
		})
	}
	g.Go(func() error {
		event, err := s.HighestPriorityEvent(ctx, userID)
		if err != nil {
			record("coming_up", err)
			return nil
		}
		mu.Lock()
		dash.ComingUp = event
		mu.Unlock()
		return nil
	})
	_ = g.Wait()

	if len(failed) > 0 {
		s.opts.Metrics.DashboardPartialFailure()
		s.opts.Log.WithFields(logrus.Fields{"user_id": userID, "failed": len(failed)}).Warn("dashboard partially loaded")
		return dash, &PartialFailure{Failed: failed}
	}
	return dash, nil
}

// transition runs one status change. The stored status is only touched by
// the single partial update; a failed write leaves the event as it was.
func (s *EventService) transition(ctx context.Context, userID, eventID, action string, next func(model.EventStatus) (model.EventStatus, error)) (*EventResult, error) {
	event, err := s.GetEvent(ctx, userID, eventID)
	if err != nil {
		return nil, err
	}
	to, err := next(event.Status())
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, userID, event, action, to)
}

// apply writes an already decided status onto a loaded event.
func (s *EventService) apply(ctx context.Context, userID string, event *model.Event, action string, to model.EventStatus) (*EventResult, error) {
	from := event.Status()
	opCtx, cancel := s.opts.opCtx(ctx)
	err := s.events.UpdateFields(opCtx, event.ID, map[string]interface{}{"status_id": to})
	cancel()
	if err != nil {
		return nil, storeErr(action+" event", err)
	}

	event.StatusID = &to
	s.log(userID, event).WithFields(logrus.Fields{"action": action, "from": from, "to": to}).Info("event status changed")
	s.opts.Metrics.EventTransition(action)

	result := &EventResult{Event: event}
	if planner.RemovesCalendarEntry(from, to) && event.CalendarSynced() {
		result.Notice = s.removeFromCalendar(ctx, userID, event)
	}
	return result, nil
}

// addToCalendar runs after the event is committed. Failures are reported,
// never rolled back.
func (s *EventService) addToCalendar(ctx context.Context, userID string, event *model.Event) error {
	externalID, err := s.calendar.AddEvent(ctx, *event)
	if err != nil {
		return s.calendarFailed(userID, event, "add", err)
	}
	if externalID == "" {
		return nil
	}

	opCtx, cancel := s.opts.opCtx(ctx)
	err = s.events.UpdateFields(opCtx, event.ID, map[string]interface{}{"calendar_event_id": externalID})
	cancel()
	if err != nil {
		return s.calendarFailed(userID, event, "link", err)
	}
	event.CalendarEventID = externalID
	s.log(userID, event).Debug("event added to calendar")
	return nil
}

// removeFromCalendar drops the entry and clears the stored link.
func (s *EventService) removeFromCalendar(ctx context.Context, userID string, event *model.Event) error {
	if notice := s.removeCalendarEntry(ctx, userID, event); notice != nil {
		return notice
	}

	opCtx, cancel := s.opts.opCtx(ctx)
	err := s.events.UpdateFields(opCtx, event.ID, map[string]interface{}{"calendar_event_id": ""})
	cancel()
	if err != nil {
		return s.calendarFailed(userID, event, "unlink", err)
	}
	event.CalendarEventID = ""
	return nil
}

// removeCalendarEntry removes the calendar copy only. An entry that is
// already gone counts as removed.
func (s *EventService) removeCalendarEntry(ctx context.Context, userID string, event *model.Event) error {
	err := s.calendar.RemoveEvent(ctx, event.CalendarEventID)
	if err != nil && !errors.Is(err, calendar.ErrEventNotFound) {
		return s.calendarFailed(userID, event, "remove", err)
	}
	s.log(userID, event).Debug("event removed from calendar")
	return nil
}

func (s *EventService) calendarFailed(userID string, event *model.Event, op string, err error) error {
	s.opts.Metrics.CalendarFailure(op)
	s.log(userID, event).WithError(err).WithField("op", op).Warn("calendar sync failed")
	return &SideEffectFailure{Op: op, Err: err}
}

func (s *EventService) log(userID string, event *model.Event) logrus.FieldLogger {
	return s.opts.Log.WithFields(logrus.Fields{"user_id": userID, "event_id": event.ID})
}

func validateUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return invalid("user_id", "is required")
	}
	return nil
}

func validateEventInput(input EventInput) error {
	if input.Name == "" {
		return invalid("name", "must not be empty")
	}
	if input.DueDate.IsZero() {
		return invalid("due_date", "is required")
	}
	if input.Priority != nil && !input.Priority.Valid() {
		return invalid("priority", "must be 1 (high) to 4 (default)")
	}
	return nil
}
