package planner

import (
	"sort"
	"time"

	"event-planner/internal/model"
)

// lessComingUp orders events soonest first, then by priority rank, then by
// creation time. The id keeps the order total.
func lessComingUp(a, b model.Event) bool {
	if !a.DueDate.Equal(b.DueDate) {
		return a.DueDate.Before(b.DueDate)
	}
	if pa, pb := a.EffectivePriority(), b.EffectivePriority(); pa != pb {
		return pa < pb
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// SortComingUp sorts events in place in "coming up" order.
func SortComingUp(events []model.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return lessComingUp(events[i], events[j])
	})
}

// ComingUp selects the event to surface next. Events whose due date is not
// strictly after now are ignored. Returns nil when nothing qualifies.
func ComingUp(events []model.Event, now time.Time) *model.Event {
	var best *model.Event
	for i := range events {
		if !events[i].DueDate.After(now) {
			continue
		}
		if best == nil || lessComingUp(events[i], *best) {
			best = &events[i]
		}
	}
	if best == nil {
		return nil
	}
	picked := *best
	return &picked
}
