package calendar

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"event-planner/internal/model"
)

const (
	productID     = "-//event-planner//calendar sync//EN"
	eventDuration = time.Hour
	alarmTrigger  = "-PT1H"
)

// ICSCalendar stores synced events as VEVENTs in a single .ics file.
type ICSCalendar struct {
	path string
	now  func() time.Time
	mu   sync.Mutex
}

func NewICSCalendar(path string) *ICSCalendar {
	return &ICSCalendar{path: path, now: time.Now}
}

// AddEvent writes a one-hour entry starting at the event's due date and
// returns its UID.
func (c *ICSCalendar) AddEvent(ctx context.Context, event model.Event) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	cal, err := c.load()
	if err != nil {
		return "", err
	}

	uid := uuid.New().String()
	now := c.now().UTC()
	start := event.DueDate.UTC()

	vevent := cal.AddEvent(uid)
	vevent.SetDtStampTime(now)
	vevent.SetCreatedTime(now)
	vevent.SetStartAt(start)
	vevent.SetEndAt(start.Add(eventDuration))
	vevent.SetSummary(event.Name)
	if event.Venue != "" {
		vevent.SetLocation(event.Venue)
	}
	vevent.SetDescription(describe(event))
	if event.EffectivePriority() == model.PriorityHigh {
		alarm := vevent.AddAlarm()
		alarm.SetAction(ics.ActionDisplay)
		alarm.SetTrigger(alarmTrigger)
	}

	if err := c.store(cal); err != nil {
		return "", err
	}
	return uid, nil
}

// RemoveEvent deletes the entry with the given UID.
func (c *ICSCalendar) RemoveEvent(ctx context.Context, externalID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	cal, err := c.load()
	if err != nil {
		return err
	}

	kept := cal.Components[:0]
	removed := false
	for _, comp := range cal.Components {
		if ve, ok := comp.(*ics.VEvent); ok && eventUID(ve) == externalID {
			removed = true
			continue
		}
		kept = append(kept, comp)
	}
	if !removed {
		return fmt.Errorf("remove %s: %w", externalID, ErrEventNotFound)
	}
	cal.Components = kept

	return c.store(cal)
}

// Events lists the UIDs and summaries currently in the calendar.
func (c *ICSCalendar) Events() (map[string]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cal, err := c.load()
	if err != nil {
		return nil, err
	}
	out := make(map[string]string)
	for _, ve := range cal.Events() {
		summary := ""
		if p := ve.GetProperty(ics.ComponentPropertySummary); p != nil {
			summary = p.Value
		}
		out[eventUID(ve)] = summary
	}
	return out, nil
}

func (c *ICSCalendar) load() (*ics.Calendar, error) {
	body, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && len(bytes.TrimSpace(body)) == 0) {
		cal := ics.NewCalendar()
		cal.SetProductId(productID)
		cal.SetMethod(ics.MethodPublish)
		return cal, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read calendar: %w", err)
	}
	cal, err := ics.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse calendar: %w", err)
	}
	return cal, nil
}

// store replaces the file atomically so readers never see a partial calendar.
func (c *ICSCalendar) store(cal *ics.Calendar) error {
	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create calendar dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".calendar-*.ics")
	if err != nil {
		return fmt.Errorf("write calendar: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(cal.Serialize()); err != nil {
		tmp.Close()
		return fmt.Errorf("write calendar: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write calendar: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.path); err != nil {
		return fmt.Errorf("replace calendar: %w", err)
	}
	return nil
}

func eventUID(ve *ics.VEvent) string {
	if p := ve.GetProperty(ics.ComponentPropertyUniqueId); p != nil {
		return p.Value
	}
	return ""
}

func describe(event model.Event) string {
	outdoor := "No"
	if event.IsOutdoor {
		outdoor = "Yes"
	}
	lines := []string{
		"Added from event-planner",
		"Priority: " + event.EffectivePriority().String(),
		"Outdoor: " + outdoor,
	}
	return strings.Join(lines, "\n")
}
