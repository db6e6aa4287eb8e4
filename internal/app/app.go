// Package app wires the stores, the notification gateway and the alerts
// service from config. Every command builds its process through here.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/jmehdipour/optica-notifier/internal/config"
	"github.com/jmehdipour/optica-notifier/internal/db"
	"github.com/jmehdipour/optica-notifier/internal/logger"
	"github.com/jmehdipour/optica-notifier/internal/notify"
	"github.com/jmehdipour/optica-notifier/internal/repository"
	"github.com/jmehdipour/optica-notifier/internal/service/alerts"
	"github.com/jmehdipour/optica-notifier/internal/worker"
)

// Bootstrap loads the config at path and initialises the global logger.
func Bootstrap(path string) (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, logger.Init(cfg.Log.Level, cfg.Log.Format), nil
}

type App struct {
	Cfg   config.Config
	Log   *zap.Logger
	MySQL *sqlx.DB
	CH    *sqlx.DB      // nil when the delivery audit is disabled
	Redis *redis.Client // nil when redis is disabled

	Deliveries repository.CHDeliveriesRepository // nil when CH is nil
	Alerts     *alerts.Service
}

// New connects every configured store. ClickHouse and Redis are optional, but
// once configured they must be reachable.
func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}
	a := &App{Cfg: cfg, Log: log}

	var err error
	if a.MySQL, err = db.NewMySQLConnection(cfg.MySQL); err != nil {
		return nil, fmt.Errorf("mysql connect: %w", err)
	}
	if a.CH, err = db.NewClickHouseConnection(cfg.ClickHouse); err != nil {
		a.Close()
		return nil, fmt.Errorf("clickhouse connect: %w", err)
	}
	if a.Redis, err = db.NewRedisClient(cfg.Redis); err != nil {
		a.Close()
		return nil, fmt.Errorf("redis connect: %w", err)
	}

	gw, err := notify.NewFromConfig(ctx, cfg, log)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("notify: %w", err)
	}

	deps := alerts.Deps{
		Alerts:       repository.NewAlertsRepository(a.MySQL),
		Clients:      repository.NewClientsRepository(a.MySQL),
		Appointments: repository.NewAppointmentsRepository(a.MySQL),
		Warranties:   repository.NewWarrantiesRepository(a.MySQL),
		Campaigns:    repository.NewCampaignsRepository(a.MySQL),
		Gateway:      gw,
		Renderer:     notify.NewRenderer(cfg.Alerts.Brand, cfg.Alerts.Address, cfg.Alerts.Location()),
		Logger:       log,
	}
	if a.CH != nil {
		a.Deliveries = repository.NewCHDeliveriesRepository(a.CH)
		deps.Deliveries = a.Deliveries
	} else {
		log.Info("clickhouse disabled, delivery audit off")
	}

	a.Alerts = alerts.New(deps)
	a.Alerts.BatchSize = cfg.Alerts.DispatchBatchSize
	return a, nil
}

// Locker returns the cross-process job lock, or nil without redis.
func (a *App) Locker() worker.Locker {
	if a.Redis == nil {
		return nil
	}
	return worker.NewRedisLocker(a.Redis, "")
}

// Scheduler builds the cron scheduler over the alerts service.
func (a *App) Scheduler() (*worker.Scheduler, error) {
	return worker.NewScheduler(a.Cfg.Scheduler, a.Cfg.Alerts.Location(), a.Alerts, a.Locker(), a.Cfg.Alerts.LockTTL, a.Log)
}

func (a *App) Close() error {
	var errs []error
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.CH != nil {
		errs = append(errs, a.CH.Close())
	}
	if a.MySQL != nil {
		errs = append(errs, a.MySQL.Close())
	}
	return errors.Join(errs...)
}
