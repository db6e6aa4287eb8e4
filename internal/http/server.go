package http

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echoMid "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/jmehdipour/optica-notifier/internal/config"
	"github.com/jmehdipour/optica-notifier/internal/http/middleware"
	"github.com/jmehdipour/optica-notifier/internal/metrics"
	"github.com/jmehdipour/optica-notifier/internal/model"
	"github.com/jmehdipour/optica-notifier/internal/repository"
	"github.com/jmehdipour/optica-notifier/internal/service/alerts"
	"github.com/jmehdipour/optica-notifier/internal/worker"
)

// AlertService is what the admin API needs from the alerts service.
type AlertService interface {
	CreateAlert(ctx context.Context, in alerts.CreateInput) (*model.Alert, error)
	GetAlert(ctx context.Context, id int64) (*model.AlertWithClient, error)
	ListAlerts(ctx context.Context, f repository.AlertFilter) ([]model.AlertWithClient, alerts.Stats, error)
	DeleteAlert(ctx context.Context, id int64) error
	GenerateCampaignAlerts(ctx context.Context, campaignID int64) (int, error)
}

// JobRunner runs a scheduled job on demand, under the same overlap guards as
// its cron ticks.
type JobRunner interface {
	RunNow(ctx context.Context, name string) (n int, ran bool, err error)
}

var (
	_ AlertService = (*alerts.Service)(nil)
	_ JobRunner    = (*worker.Scheduler)(nil)
)

type Server struct {
	e   *echo.Echo
	log *zap.Logger
}

// NewServer wires the admin API. deliveries and rds may be nil when ClickHouse
// or Redis are disabled.
func NewServer(cfg config.Config, svc AlertService, jobs JobRunner, deliveries repository.CHDeliveriesRepository, rds *redis.Client, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("http")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Logger.SetLevel(log.WARN)
	e.Use(echoMid.Recover(), requestLogger(logger))

	metrics.MustRegister(prometheus.DefaultRegisterer)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// health
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	// middlewares
	if len(cfg.Auth.APIKeys) == 0 {
		logger.Warn("no api keys configured, admin api is unauthenticated")
	}
	authMW := middleware.APIKeyMiddleware(cfg.Auth.APIKeys)
	rlMW := middleware.RateLimitMiddleware(middleware.RateLimitConfig{
		Redis:          rds,
		RPS:            cfg.RateLimit.RPS,
		KeyPrefix:      "optica:rl:",
		Window:         time.Second,
		RetryAfterHint: true,
	})

	// routes
	loc := cfg.Alerts.Location()
	v1 := e.Group("/v1", authMW, rlMW)
	v1.POST("/alerts", createAlertHandler(svc, loc))
	v1.GET("/alerts", listAlertsHandler(svc, loc))
	v1.GET("/alerts/:id", getAlertHandler(svc))
	v1.DELETE("/alerts/:id", deleteAlertHandler(svc))

	v1.POST("/alerts/generate/appointments", runJobHandler(jobs, worker.JobAppointments, "appointment reminders generated"))
	v1.POST("/alerts/generate/warranties", runJobHandler(jobs, worker.JobWarranties, "warranty expiry alerts generated"))
	v1.POST("/alerts/generate/campaigns/:id", generateCampaignHandler(svc))
	v1.POST("/alerts/process", runJobHandler(jobs, worker.JobDispatch, "alerts sent"))

	v1.GET("/reports/deliveries", listDeliveriesHandler(deliveries, loc))

	return &Server{e: e, log: logger}
}

func requestLogger(l *zap.Logger) echo.MiddlewareFunc {
	return echoMid.RequestLoggerWithConfig(echoMid.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		LogValuesFunc: func(c echo.Context, v echoMid.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("remote_ip", v.RemoteIP),
			}
			if v.Error != nil {
				l.Warn("request", append(fields, zap.Error(v.Error))...)
				return nil
			}
			l.Info("request", fields...)
			return nil
		},
	})
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.e }

func (s *Server) Start(addr string) error {
	s.log.Info("listening", zap.String("addr", addr))
	return s.e.Start(addr)
}
func (s *Server) Shutdown(ctx context.Context) error { return s.e.Shutdown(ctx) }
