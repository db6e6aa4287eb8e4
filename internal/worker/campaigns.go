package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/jmehdipour/optica-notifier/internal/kafka"
	"github.com/jmehdipour/optica-notifier/internal/model"
	"github.com/jmehdipour/optica-notifier/internal/service/alerts"
)

type fetchCommitter interface {
	Fetch(ctx context.Context) (kafka.Message, error)
	Commit(ctx context.Context, m kafka.Message) error
}

type CampaignGenerator interface {
	GenerateCampaignAlerts(ctx context.Context, campaignID int64) (int, error)
}

// CampaignConsumer turns campaign-created events into announcement alerts.
// Generation is idempotent per (client, campaign), so redelivered events are harmless.
type CampaignConsumer struct {
	Consumer  fetchCommitter
	Generator CampaignGenerator
	Log       *zap.Logger
	Backoff   time.Duration
}

func NewCampaignConsumer(c fetchCommitter, g CampaignGenerator, log *zap.Logger) *CampaignConsumer {
	if log == nil {
		log = zap.NewNop()
	}
	return &CampaignConsumer{Consumer: c, Generator: g, Log: log.Named("campaigns"), Backoff: 200 * time.Millisecond}
}

// Run blocks until ctx is cancelled.
func (w *CampaignConsumer) Run(ctx context.Context) error {
	for {
		m, err := w.Consumer.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.Log.Warn("kafka fetch failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(w.Backoff):
			}
			continue
		}
		w.handle(ctx, m)
	}
}

func (w *CampaignConsumer) handle(ctx context.Context, m kafka.Message) {
	log := w.Log.With(zap.Int("partition", m.Partition), zap.Int64("offset", m.Offset))

	var ev model.CampaignEvent
	if err := json.Unmarshal(m.Value, &ev); err != nil || ev.CampaignID <= 0 {
		log.Warn("bad campaign event, skipping", zap.ByteString("value", m.Value), zap.Error(err))
	} else {
		n, err := w.Generator.GenerateCampaignAlerts(ctx, ev.CampaignID)
		switch {
		case errors.Is(err, alerts.ErrNotFound):
			log.Warn("campaign not found", zap.Int64("campaign_id", ev.CampaignID))
		case err != nil:
			log.Error("campaign generation failed", zap.Int64("campaign_id", ev.CampaignID), zap.Error(err))
		default:
			log.Info("campaign announced", zap.Int64("campaign_id", ev.CampaignID), zap.Int("created", n))
		}
	}

	// always commit (at-least-once; the generator dedupes)
	if err := w.Consumer.Commit(ctx, m); err != nil {
		log.Warn("kafka commit failed", zap.Error(err))
	}
}
