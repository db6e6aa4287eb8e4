package alerts

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/jmehdipour/optica-notifier/internal/config"
	"github.com/jmehdipour/optica-notifier/internal/model"
	"github.com/jmehdipour/optica-notifier/internal/notify"
	"github.com/jmehdipour/optica-notifier/internal/repository"
)

var (
	ErrNotFound = errors.New("not found")
	ErrInvalid  = errors.New("invalid alert")
)

// Notifier delivers one alert on its requested channels.
type Notifier interface {
	Send(ctx context.Context, req notify.Request) notify.Result
}

// DeliveryRecorder persists per-channel attempts of a dispatch run.
type DeliveryRecorder interface {
	InsertBatch(ctx context.Context, ds []model.Delivery) error
}

type Deps struct {
	Alerts       repository.AlertsRepository
	Clients      repository.ClientsRepository
	Appointments repository.AppointmentsRepository
	Warranties   repository.WarrantiesRepository
	Campaigns    repository.CampaignsRepository
	Gateway      Notifier
	Renderer     *notify.Renderer
	Deliveries   DeliveryRecorder // optional
	Logger       *zap.Logger
}

// Service runs the alert generators and the dispatcher. Every run is a
// sequence of independent per-record steps: a failing record is logged and
// skipped, never aborting the batch.
type Service struct {
	alerts       repository.AlertsRepository
	clients      repository.ClientsRepository
	appointments repository.AppointmentsRepository
	warranties   repository.WarrantiesRepository
	campaigns    repository.CampaignsRepository
	gateway      Notifier
	renderer     *notify.Renderer
	deliveries   DeliveryRecorder
	log          *zap.Logger

	// BatchSize is the dispatch cap, clamped to 1..config.MaxDispatchBatch.
	BatchSize int
	Now       func() time.Time
}

func New(d Deps) *Service {
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}
	renderer := d.Renderer
	if renderer == nil {
		renderer = notify.NewRenderer("", "", time.UTC)
	}
	return &Service{
		alerts:       d.Alerts,
		clients:      d.Clients,
		appointments: d.Appointments,
		warranties:   d.Warranties,
		campaigns:    d.Campaigns,
		gateway:      d.Gateway,
		renderer:     renderer,
		deliveries:   d.Deliveries,
		log:          log.Named("alerts"),
		BatchSize:    config.MaxDispatchBatch,
		Now:          time.Now,
	}
}

func (s *Service) batchSize() int {
	if s.BatchSize <= 0 || s.BatchSize > config.MaxDispatchBatch {
		return config.MaxDispatchBatch
	}
	return s.BatchSize
}
