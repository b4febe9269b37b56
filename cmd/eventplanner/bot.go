package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"event-planner/internal/bot"
	"event-planner/internal/service"
)

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Run the Telegram bot",
	Long: `Run the Telegram bot together with the digest scheduler.
When metrics.listen is set, Prometheus metrics are served on /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.cfg.RequireTelegram(); err != nil {
			return err
		}

		telegramBot, err := bot.New(a.cfg.Telegram.Token, bot.Deps{
			Users:      a.users,
			Events:     a.events,
			Tasks:      a.tasks,
			Categories: a.categories,
			Reminders:  a.reminders,
			Config:     a.cfg,
			Log:        a.log,
		})
		if err != nil {
			return err
		}

		scheduler := service.NewSchedulerService(time.Local, a.log)
		if a.cfg.Report.DailyAt != "" || a.cfg.Report.Interval > 0 {
			if _, err := scheduler.ScheduleDigest(a.cfg.Report.DailyAt, a.cfg.Report.Interval, func() {
				jobCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
				defer cancel()
				if err := telegramBot.SendDigests(jobCtx); err != nil && !errors.Is(err, context.Canceled) {
					a.log.WithError(err).Error("send digests")
				}
			}); err != nil {
				return err
			}
			scheduler.Start()
			defer scheduler.Stop()
		}

		if a.cfg.Metrics.Listen != "" {
			srv := serveMetrics(a)
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()
		}

		a.log.Info("event planner bot started")
		if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		a.log.Info("shutdown complete")
		return nil
	},
}

func serveMetrics(a *app) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	srv := &http.Server{
		Addr:              a.cfg.Metrics.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		a.log.WithField("addr", srv.Addr).Info("metrics listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.WithError(err).Error("metrics server")
		}
	}()
	return srv
}

func init() {
	rootCmd.AddCommand(botCmd)
}
