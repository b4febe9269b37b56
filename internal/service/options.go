package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"event-planner/internal/logging"
	"event-planner/internal/metrics"
	"event-planner/internal/planner"
)

// Options carries the settings every service shares.
type Options struct {
	Log     logrus.FieldLogger
	Metrics *metrics.Recorder
	// Timeout bounds each store round trip; zero disables it.
	Timeout time.Duration
	// DueSoonWindow is how far ahead task notifications look.
	DueSoonWindow time.Duration
	Now           func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Log == nil {
		o.Log = logging.Discard()
	}
	if o.Metrics == nil {
		o.Metrics = metrics.New()
	}
	if o.DueSoonWindow <= 0 {
		o.DueSoonWindow = planner.DefaultDueSoonWindow
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// opCtx derives the context for one store round trip.
func (o Options) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, o.Timeout)
}
