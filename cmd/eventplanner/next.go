package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"event-planner/internal/model"
	"event-planner/internal/service"
)

var nextTelegramID int64

var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Print the coming-up event and dashboard for a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		if nextTelegramID == 0 {
			return errors.New("--telegram-id is required")
		}
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		user, err := a.users.FindByTelegramID(ctx, nextTelegramID)
		if err != nil {
			return fmt.Errorf("find user %d: %w", nextTelegramID, err)
		}

		dash, err := a.events.Dashboard(ctx, user.ID)
		var partial *service.PartialFailure
		if err != nil && !errors.As(err, &partial) {
			return err
		}
		printDashboard(cmd.OutOrStdout(), dash)
		if partial != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "\nwarning: %v\n", partial)
		}
		return nil
	},
}

func printDashboard(w io.Writer, dash *service.Dashboard) {
	for _, status := range []model.EventStatus{model.EventOngoing, model.EventUpcoming, model.EventCompleted} {
		if count, ok := dash.Counts[status]; ok {
			fmt.Fprintf(w, "%-10s %d\n", status.String()+":", count)
		} else {
			fmt.Fprintf(w, "%-10s n/a\n", status.String()+":")
		}
	}
	if dash.ComingUp == nil {
		fmt.Fprintln(w, "coming up: nothing scheduled")
		return
	}
	event := dash.ComingUp
	fmt.Fprintf(w, "coming up: %s on %s (priority %s)\n", event.Name, event.DueDate.Format("2006-01-02 15:04"), event.EffectivePriority())
	if event.Venue != "" {
		fmt.Fprintf(w, "           at %s\n", event.Venue)
	}
}

func init() {
	nextCmd.Flags().Int64Var(&nextTelegramID, "telegram-id", 0, "Telegram user id to report on")
	rootCmd.AddCommand(nextCmd)
}
