package worker

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jmehdipour/optica-notifier/internal/app"
	"github.com/jmehdipour/optica-notifier/internal/kafka"
	"github.com/jmehdipour/optica-notifier/internal/metrics"
	"github.com/jmehdipour/optica-notifier/internal/worker"
)

var campaignsCmd = &cobra.Command{
	Use:   "campaigns",
	Short: "Consume campaign-created events and generate announcements",
	RunE:  runCampaigns,
}

func runCampaigns(cmd *cobra.Command, args []string) error {
	cfgPath, _ := cmd.Root().PersistentFlags().GetString("config")
	cfg, log, err := app.Bootstrap(cfgPath)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	metrics.MustRegister(prometheus.DefaultRegisterer)

	if len(cfg.Kafka.Brokers) == 0 || cfg.Kafka.CampaignTopic == "" {
		return fmt.Errorf("kafka.brokers and kafka.campaign_topic are required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	consumer := kafka.NewConsumerFromConfig(kafka.ConfigFor(cfg.Kafka, cfg.Kafka.CampaignTopic))
	defer func() { _ = consumer.Close() }()

	log.Info("campaign consumer started",
		zap.Strings("brokers", cfg.Kafka.Brokers),
		zap.String("topic", consumer.Topic()),
		zap.String("group", cfg.Kafka.GroupID),
	)

	return worker.NewCampaignConsumer(consumer, a.Alerts, log).Run(ctx)
}
