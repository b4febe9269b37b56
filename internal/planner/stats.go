package planner

import (
	"sort"
	"time"

	"event-planner/internal/model"
)

// CompletionStats counts the tasks of one event.
type CompletionStats struct {
	Total     int
	Completed int
}

// Tally folds a task slice into completion stats.
func Tally(tasks []model.Task) CompletionStats {
	stats := CompletionStats{Total: len(tasks)}
	for _, task := range tasks {
		if task.IsCompleted() {
			stats.Completed++
		}
	}
	return stats
}

// Ratio is the completed share in [0, 1]; zero when there are no tasks.
func (s CompletionStats) Ratio() float64 {
	if s.Total <= 0 {
		return 0
	}
	return float64(s.Completed) / float64(s.Total)
}

// Percent is Ratio rounded down to a whole percentage.
func (s CompletionStats) Percent() int {
	return int(s.Ratio() * 100)
}

// DefaultDueSoonWindow is how far ahead task notifications look.
const DefaultDueSoonWindow = 24 * time.Hour

// DueSoon returns the unfinished tasks due within (now, now+window], soonest first.
func DueSoon(tasks []model.Task, now time.Time, window time.Duration) []model.Task {
	limit := now.Add(window)
	var due []model.Task
	for _, task := range tasks {
		if task.IsCompleted() {
			continue
		}
		if task.DueDate.After(now) && !task.DueDate.After(limit) {
			due = append(due, task)
		}
	}
	sort.SliceStable(due, func(i, j int) bool {
		return due[i].DueDate.Before(due[j].DueDate)
	})
	return due
}
