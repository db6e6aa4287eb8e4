package worker

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jmehdipour/optica-notifier/internal/app"
	"github.com/jmehdipour/optica-notifier/internal/metrics"
)

var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run the periodic generation and dispatch jobs",
	RunE:  runScheduler,
}

var metricsAddr string

func init() {
	schedulerCmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9101", "prometheus listen address (empty disables)")
}

func runScheduler(cmd *cobra.Command, args []string) error {
	cfgPath, _ := cmd.Root().PersistentFlags().GetString("config")
	cfg, log, err := app.Bootstrap(cfgPath)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	sched, err := a.Scheduler()
	if err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}

	if metricsAddr != "" {
		srv := &http.Server{Addr: metricsAddr, Handler: promhttp.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Warn("metrics server exited", zap.Error(err))
			}
		}()
		defer func() { _ = srv.Close() }()
	}

	sched.Start()
	log.Info("scheduler started",
		zap.String("dispatch", cfg.Scheduler.Dispatch),
		zap.String("appointments", cfg.Scheduler.Appointments),
		zap.String("warranties", cfg.Scheduler.Warranties),
		zap.String("timezone", cfg.Alerts.Timezone),
	)

	<-ctx.Done()
	log.Info("shutting down scheduler")

	sctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return sched.Stop(sctx)
}
