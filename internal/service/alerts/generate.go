package alerts

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jmehdipour/optica-notifier/internal/metrics"
	"github.com/jmehdipour/optica-notifier/internal/model"
	"github.com/jmehdipour/optica-notifier/internal/repository"
)

const (
	reminderLookahead = 24 * time.Hour
	reminderLead      = 23 * time.Hour
	reminderTolerance = time.Hour

	warrantyLookahead = 7 * 24 * time.Hour
	warrantyLead      = 7 * 24 * time.Hour
	warrantyTolerance = 24 * time.Hour

	campaignTolerance = 2 * 24 * time.Hour
)

// candidate is one alert a generator wants to exist.
type candidate struct {
	clientID    int64
	contact     model.Contact
	kind        model.Kind
	message     string
	scheduledAt time.Time
	sourceType  model.SourceType
	sourceID    int64
	windowFrom  time.Time
	windowTo    time.Time
}

// GenerateAppointmentReminders creates one reminder per confirmed appointment in
// the next 24 hours. An alert already tied to the appointment, or scheduled
// within an hour of the 23h-before mark, suppresses it.
func (s *Service) GenerateAppointmentReminders(ctx context.Context) (int, error) {
	now := s.Now()
	apts, err := s.appointments.ListConfirmedBetween(ctx, now, now.Add(reminderLookahead))
	if err != nil {
		return 0, fmt.Errorf("list appointments: %w", err)
	}

	created := 0
	for _, apt := range apts {
		target := apt.ScheduledAt.Add(-reminderLead)
		ok := s.ensure(ctx, candidate{
			clientID:    apt.ClientID,
			contact:     model.NewContact(apt.Email, apt.Phone),
			kind:        model.KindReminderAppointment,
			message:     s.renderer.AppointmentReminder(apt.ClientName, apt.ScheduledAt, apt.Location),
			scheduledAt: now.Add(reminderLead),
			sourceType:  model.SourceAppointment,
			sourceID:    apt.ID,
			windowFrom:  target.Add(-reminderTolerance),
			windowTo:    target.Add(reminderTolerance),
		})
		if ok {
			created++
		}
	}

	s.log.Info("appointment reminders generated", zap.Int("scanned", len(apts)), zap.Int("created", created))
	return created, nil
}

// GenerateWarrantyExpiryAlerts creates one alert per warranty ending in the next
// 7 days, scheduled 7 days before the end date (possibly in the past).
func (s *Service) GenerateWarrantyExpiryAlerts(ctx context.Context) (int, error) {
	now := s.Now()
	ws, err := s.warranties.ListExpiringBetween(ctx, now, now.Add(warrantyLookahead))
	if err != nil {
		return 0, fmt.Errorf("list warranties: %w", err)
	}

	created := 0
	for _, w := range ws {
		target := w.EndDate.Add(-warrantyLead)
		ok := s.ensure(ctx, candidate{
			clientID:    w.ClientID,
			contact:     model.NewContact(w.Email, w.Phone),
			kind:        model.KindWarrantyExpiry,
			message:     s.renderer.WarrantyExpiry(w.ClientName, w.ProductName, w.EndDate),
			scheduledAt: target,
			sourceType:  model.SourceWarranty,
			sourceID:    w.ID,
			windowFrom:  target.Add(-warrantyTolerance),
			windowTo:    target.Add(warrantyTolerance),
		})
		if ok {
			created++
		}
	}

	s.log.Info("warranty alerts generated", zap.Int("scanned", len(ws)), zap.Int("created", created))
	return created, nil
}

// GenerateCampaignAlerts announces a campaign to every reachable client,
// scheduled for immediate dispatch. It returns ErrNotFound for an unknown campaign.
func (s *Service) GenerateCampaignAlerts(ctx context.Context, campaignID int64) (int, error) {
	c, err := s.campaigns.GetByID(ctx, campaignID)
	if err != nil {
		return 0, fmt.Errorf("get campaign: %w", err)
	}
	if c == nil {
		return 0, fmt.Errorf("campaign %d: %w", campaignID, ErrNotFound)
	}

	clients, err := s.clients.ListReachable(ctx)
	if err != nil {
		return 0, fmt.Errorf("list clients: %w", err)
	}

	now := s.Now()
	created := 0
	for _, cl := range clients {
		ok := s.ensure(ctx, candidate{
			clientID:    cl.ID,
			contact:     cl.Contact(),
			kind:        model.KindCampaignAnnouncement,
			message:     s.renderer.CampaignAnnouncement(cl.Name, c.Name, c.Date, c.Location),
			scheduledAt: now,
			sourceType:  model.SourceCampaign,
			sourceID:    c.ID,
			windowFrom:  c.Date.Add(-campaignTolerance),
			windowTo:    c.Date.Add(campaignTolerance),
		})
		if ok {
			created++
		}
	}

	s.log.Info("campaign alerts generated",
		zap.Int64("campaign_id", campaignID),
		zap.Int("clients", len(clients)),
		zap.Int("created", created),
	)
	return created, nil
}

// ensure inserts the candidate unless the client is unreachable or a duplicate
// exists. It reports whether a row was created.
func (s *Service) ensure(ctx context.Context, c candidate) bool {
	ch, ok := c.contact.Preferred()
	if !ok {
		s.log.Debug("client has no contact channel",
			zap.Int64("client_id", c.clientID),
			zap.String("kind", c.kind.String()),
		)
		return false
	}

	log := s.log.With(
		zap.Int64("client_id", c.clientID),
		zap.String("kind", c.kind.String()),
		zap.String("source_type", string(c.sourceType)),
		zap.Int64("source_id", c.sourceID),
	)

	dup, err := s.alerts.ExistsDuplicate(ctx, repository.DedupeQuery{
		ClientID:   c.clientID,
		Kind:       c.kind,
		SourceType: c.sourceType,
		SourceID:   c.sourceID,
		From:       c.windowFrom,
		To:         c.windowTo,
	})
	if err != nil {
		log.Error("dedupe lookup failed", zap.Error(err))
		return false
	}
	if dup {
		return false
	}

	st, sid := c.sourceType, c.sourceID
	a := &model.Alert{
		ClientID:    c.clientID,
		Kind:        c.kind,
		Channel:     ch,
		Message:     model.TruncateMessage(c.message),
		ScheduledAt: c.scheduledAt,
		SourceType:  &st,
		SourceID:    &sid,
	}
	created, err := s.alerts.Create(ctx, a)
	if err != nil {
		log.Error("insert alert failed", zap.Error(err))
		return false
	}
	if !created {
		// lost a race with an overlapping run; the unique key kept one row
		return false
	}

	metrics.AlertsGenerated.WithLabelValues(c.kind.String()).Inc()
	log.Debug("alert created", zap.Int64("alert_id", a.ID), zap.String("channel", ch.String()))
	return true
}
