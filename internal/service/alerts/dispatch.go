package alerts

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jmehdipour/optica-notifier/internal/metrics"
	"github.com/jmehdipour/optica-notifier/internal/model"
	"github.com/jmehdipour/optica-notifier/internal/notify"
	"github.com/jmehdipour/optica-notifier/internal/util"
)

const markSentTimeout = 5 * time.Second

// ProcessPendingAlerts sends up to BatchSize due alerts on their stored channel
// and marks each sent once any channel delivered. Failed alerts stay pending for
// the next run. It returns how many alerts were marked sent.
func (s *Service) ProcessPendingAlerts(ctx context.Context) (int, error) {
	now := s.Now()
	runID := util.NewAt(now)
	log := s.log.With(zap.String("run_id", runID))

	pending, err := s.alerts.ListPending(ctx, now, s.batchSize())
	if err != nil {
		return 0, fmt.Errorf("list pending alerts: %w", err)
	}

	var (
		sent       int
		deliveries = make([]model.Delivery, 0, len(pending))
	)
	for _, p := range pending {
		if ctx.Err() != nil {
			log.Warn("dispatch interrupted", zap.Error(ctx.Err()), zap.Int("sent", sent))
			break
		}

		res := s.gateway.Send(ctx, notify.Request{
			Email:    deref(p.Email),
			Phone:    deref(p.Phone),
			Subject:  s.renderer.Subject(p.Kind),
			Message:  p.Message,
			Channels: []model.Channel{p.Channel},
		})
		attemptedAt := s.Now()
		for _, cr := range res.Channels {
			d := model.Delivery{
				ID:          util.NewAt(attemptedAt),
				RunID:       runID,
				AlertID:     p.ID,
				ClientID:    p.ClientID,
				Kind:        p.Kind,
				Channel:     cr.Channel,
				Delivered:   cr.Delivered,
				AttemptedAt: attemptedAt,
			}
			if cr.Err != nil {
				d.Error = cr.Err.Error()
			}
			deliveries = append(deliveries, d)
		}

		if !res.Any() {
			metrics.AlertsDispatched.WithLabelValues(p.Channel.String(), "failed").Inc()
			log.Warn("alert not delivered, left pending",
				zap.Int64("alert_id", p.ID),
				zap.String("channel", p.Channel.String()),
				zap.Error(res.Err()),
			)
			continue
		}

		marked, err := s.markSent(ctx, p.ID)
		if err != nil {
			metrics.AlertsDispatched.WithLabelValues(p.Channel.String(), "store_error").Inc()
			log.Error("mark sent failed", zap.Int64("alert_id", p.ID), zap.Error(err))
			continue
		}
		if !marked {
			metrics.AlertsDispatched.WithLabelValues(p.Channel.String(), "already_sent").Inc()
			log.Warn("alert already marked sent by another run", zap.Int64("alert_id", p.ID))
			continue
		}
		metrics.AlertsDispatched.WithLabelValues(p.Channel.String(), "sent").Inc()
		sent++
	}

	s.recordDeliveries(ctx, log, deliveries)

	log.Info("pending alerts processed", zap.Int("selected", len(pending)), zap.Int("sent", sent))
	return sent, nil
}

// markSent records a delivered alert even when ctx was cancelled during the
// gateway call; otherwise the next run would send it again.
func (s *Service) markSent(ctx context.Context, id int64) (bool, error) {
	mctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), markSentTimeout)
	defer cancel()
	return s.alerts.MarkSent(mctx, id)
}

func (s *Service) recordDeliveries(ctx context.Context, log *zap.Logger, ds []model.Delivery) {
	if s.deliveries == nil || len(ds) == 0 {
		return
	}
	// the audit write outlives a cancelled run so attempts made are not lost
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := s.deliveries.InsertBatch(wctx, ds); err != nil {
		log.Warn("record deliveries failed", zap.Int("rows", len(ds)), zap.Error(err))
	}
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
