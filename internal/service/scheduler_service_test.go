package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"event-planner/internal/logging"
)

func TestBuildDailySpec(t *testing.T) {
	spec, err := buildDailySpec("09:30")
	require.NoError(t, err)
	assert.Equal(t, "0 30 9 * * *", spec)

	for _, bad := range []string{"", "9", "24:00", "12:60", "ab:cd"} {
		_, err := buildDailySpec(bad)
		assert.Error(t, err, bad)
	}
}

func TestSchedulerService_ScheduleDigest(t *testing.T) {
	s := NewSchedulerService(time.UTC, logging.Discard())

	_, err := s.ScheduleDigest("08:00", 0, func() {})
	require.NoError(t, err)
	_, err = s.ScheduleDigest("", 5*time.Hour, func() {})
	require.NoError(t, err)
	_, err = s.ScheduleDigest("", 0, func() {})
	assert.Error(t, err)

	assert.Equal(t, 2, s.Entries())
}
