package alerts

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/jmehdipour/optica-notifier/internal/model"
	"github.com/jmehdipour/optica-notifier/internal/repository"
)

// CreateInput is a manually scheduled alert.
type CreateInput struct {
	ClientID    int64
	Kind        model.Kind
	Channel     model.Channel
	Message     string
	ScheduledAt time.Time
}

// Stats summarizes a listing.
type Stats struct {
	Total   int            `json:"total"`
	Pending int            `json:"pending"`
	Sent    int            `json:"sent"`
	ByKind  map[string]int `json:"by_kind"`
}

// CreateAlert validates and stores a manual alert. Manual alerts carry no source
// reference and skip deduplication.
func (s *Service) CreateAlert(ctx context.Context, in CreateInput) (*model.Alert, error) {
	if in.ClientID <= 0 {
		return nil, fmt.Errorf("%w: client_id is required", ErrInvalid)
	}
	if !in.Kind.Valid() {
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalid, in.Kind)
	}
	if !in.Channel.Valid() {
		return nil, fmt.Errorf("%w: unknown channel %q", ErrInvalid, in.Channel)
	}
	msg := strings.TrimSpace(in.Message)
	if msg == "" {
		return nil, fmt.Errorf("%w: message is required", ErrInvalid)
	}
	if utf8.RuneCountInString(msg) > model.MaxMessageLen {
		return nil, fmt.Errorf("%w: message exceeds %d characters", ErrInvalid, model.MaxMessageLen)
	}
	if in.ScheduledAt.IsZero() {
		return nil, fmt.Errorf("%w: scheduled_at is required", ErrInvalid)
	}

	cl, err := s.clients.GetByID(ctx, in.ClientID)
	if err != nil {
		return nil, fmt.Errorf("get client: %w", err)
	}
	if cl == nil {
		return nil, fmt.Errorf("client %d: %w", in.ClientID, ErrNotFound)
	}
	if !cl.Contact().Has(in.Channel) {
		return nil, fmt.Errorf("%w: client has no address for channel %s", ErrInvalid, in.Channel)
	}

	a := &model.Alert{
		ClientID:    in.ClientID,
		Kind:        in.Kind,
		Channel:     in.Channel,
		Message:     msg,
		ScheduledAt: in.ScheduledAt,
	}
	if _, err := s.alerts.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("insert alert: %w", err)
	}
	a.CreatedAt = s.Now()

	s.log.Info("manual alert created", zap.Int64("alert_id", a.ID), zap.Int64("client_id", a.ClientID))
	return a, nil
}

func (s *Service) GetAlert(ctx context.Context, id int64) (*model.AlertWithClient, error) {
	a, err := s.alerts.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, fmt.Errorf("alert %d: %w", id, ErrNotFound)
	}
	return a, nil
}

// ListAlerts returns the filtered alerts and statistics over them.
func (s *Service) ListAlerts(ctx context.Context, f repository.AlertFilter) ([]model.AlertWithClient, Stats, error) {
	rows, err := s.alerts.List(ctx, f)
	if err != nil {
		return nil, Stats{}, err
	}

	st := Stats{Total: len(rows), ByKind: make(map[string]int, len(model.Kinds()))}
	for _, k := range model.Kinds() {
		st.ByKind[k.String()] = 0
	}
	for _, a := range rows {
		if a.Sent {
			st.Sent++
		} else {
			st.Pending++
		}
		st.ByKind[a.Kind.String()]++
	}
	return rows, st, nil
}

func (s *Service) DeleteAlert(ctx context.Context, id int64) error {
	ok, err := s.alerts.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("alert %d: %w", id, ErrNotFound)
	}
	s.log.Info("alert deleted", zap.Int64("alert_id", id))
	return nil
}
