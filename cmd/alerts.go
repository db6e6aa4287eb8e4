package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jmehdipour/optica-notifier/internal/app"
	"github.com/jmehdipour/optica-notifier/internal/worker"
)

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Run one alerts pipeline step and exit",
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate alerts from clinic data",
}

func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) (int, error), done string) error {
	cfg, log, err := app.Bootstrap(cfgPath)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx := cmd.Context()
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	n, err := fn(ctx, a)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), ">> %d %s\n", n, done)
	return nil
}

// runJob runs a scheduled job once, taking the same job lock as the
// scheduler so it cannot overlap a cron run in another process.
func runJob(cmd *cobra.Command, name, done string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) (int, error) {
		sched, err := a.Scheduler()
		if err != nil {
			return 0, err
		}
		n, ran, err := sched.RunNow(ctx, name)
		if err != nil {
			return n, err
		}
		if !ran {
			return 0, fmt.Errorf("%s job is already running", name)
		}
		return n, nil
	}, done)
}

var generateAppointmentsCmd = &cobra.Command{
	Use:   "appointments",
	Short: "Create reminders for confirmed appointments in the next 24h",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runJob(cmd, worker.JobAppointments, "appointment reminders generated")
	},
}

var generateWarrantiesCmd = &cobra.Command{
	Use:   "warranties",
	Short: "Create alerts for warranties expiring in the next 7 days",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runJob(cmd, worker.JobWarranties, "warranty expiry alerts generated")
	},
}

var generateCampaignCmd = &cobra.Command{
	Use:   "campaign <id>",
	Short: "Announce a campaign to every reachable client",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || id <= 0 {
			return fmt.Errorf("invalid campaign id %q", args[0])
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) (int, error) {
			return a.Alerts.GenerateCampaignAlerts(ctx, id)
		}, "campaign alerts generated")
	},
}

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Send due alerts (at most one batch)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runJob(cmd, worker.JobDispatch, "alerts sent")
	},
}

func init() {
	generateCmd.AddCommand(generateAppointmentsCmd, generateWarrantiesCmd, generateCampaignCmd)
	alertsCmd.AddCommand(generateCmd, processCmd)
}
