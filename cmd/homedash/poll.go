package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	flagPollOnce   bool
	flagPollSettle time.Duration
)

// cycleReport is the printed form of a poller.Cycle.
type cycleReport struct {
	At     time.Time      `json:"at"`
	Values map[string]any `json:"values"`
	Users  []string       `json:"users"`
}

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Refresh telemetry into user state without serving the API",
	Long: `Runs the telemetry poller against the configured state backend. With
--once a single cycle runs and its aggregates are printed as JSON.`,
	RunE: runPoll,
}

func init() {
	pollCmd.Flags().BoolVar(&flagPollOnce, "once", false, "Run a single cycle and exit")
	pollCmd.Flags().DurationVar(&flagPollSettle, "settle", 2*time.Second, "With --once, time to collect retained sensor messages first")
	rootCmd.AddCommand(pollCmd)
}

func runPoll(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	svc, err := openServices(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer svc.close()

	sched, err := svc.newScheduler()
	if err != nil {
		return err
	}

	if !flagPollOnce {
		log.Info("telemetry poller started", "interval", sched.Interval())
		sched.Run(ctx)
		return nil
	}

	if svc.sensors != nil && flagPollSettle > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(flagPollSettle):
		}
	}

	cycle := sched.RunOnce(ctx)
	out, err := json.MarshalIndent(cycleReport{At: cycle.At, Values: cycle.Values, Users: cycle.Users}, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding cycle: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
