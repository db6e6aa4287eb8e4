package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"
	_ "time/tzdata" // clinic timezone must resolve on minimal images

	"github.com/spf13/viper"
)

//go:embed defaults.yaml
var defaults []byte

// MaxDispatchBatch bounds how many alerts a single dispatch run may process.
const MaxDispatchBatch = 50

// ---- Root ----

type Config struct {
	HTTP       HTTPConfig      `mapstructure:"http"`
	Log        LogConfig       `mapstructure:"log"`
	MySQL      DatabaseConfig  `mapstructure:"mysql"`
	ClickHouse DatabaseConfig  `mapstructure:"clickhouse"`
	Redis      RedisConfig     `mapstructure:"redis"`
	Kafka      KafkaConfig     `mapstructure:"kafka"`
	Auth       AuthConfig      `mapstructure:"auth"`
	RateLimit  RateLimitConfig `mapstructure:"rate_limit"`
	Alerts     AlertsConfig    `mapstructure:"alerts"`
	Scheduler  SchedulerConfig `mapstructure:"scheduler"`
	Notify     NotifyConfig    `mapstructure:"notify"`
}

// ---- Leaf structs ----

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json|console
}

type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idletime"`
	PingTimeout     time.Duration `mapstructure:"ping_timeout"`
}

type RedisConfig struct {
	Addr        string        `mapstructure:"addr"` // empty disables redis
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

type KafkaConfig struct {
	Brokers        []string `mapstructure:"brokers"`
	GroupID        string   `mapstructure:"group_id"`
	CampaignTopic  string   `mapstructure:"campaign_topic"`
	MinBytes       int      `mapstructure:"min_bytes"`
	MaxBytes       int      `mapstructure:"max_bytes"`
	CommitInterval int      `mapstructure:"commit_interval_ms"`
}

type AuthConfig struct {
	APIKeys []string `mapstructure:"api_keys"`
}

type RateLimitConfig struct {
	RPS int `mapstructure:"rps"`
}

type AlertsConfig struct {
	DispatchBatchSize int           `mapstructure:"dispatch_batch_size"`
	Timezone          string        `mapstructure:"timezone"`
	Brand             string        `mapstructure:"brand"`
	Address           string        `mapstructure:"address"`
	LockTTL           time.Duration `mapstructure:"lock_ttl"`
}

type SchedulerConfig struct {
	Dispatch     string `mapstructure:"dispatch"`
	Appointments string `mapstructure:"appointments"`
	Warranties   string `mapstructure:"warranties"`
}

type NotifyConfig struct {
	Email EmailConfig `mapstructure:"email"`
	SMS   SMSConfig   `mapstructure:"sms"`
}

type EmailConfig struct {
	Driver string     `mapstructure:"driver"` // smtp|ses|log|none
	From   string     `mapstructure:"from"`
	SMTP   SMTPConfig `mapstructure:"smtp"`
	SES    AWSConfig  `mapstructure:"ses"`
}

type SMTPConfig struct {
	Host          string        `mapstructure:"host"`
	Port          int           `mapstructure:"port"`
	Username      string        `mapstructure:"username"`
	Password      string        `mapstructure:"password"`
	Security      string        `mapstructure:"security"` // none|starttls|tls
	Timeout       time.Duration `mapstructure:"timeout"`
	SkipTLSVerify bool          `mapstructure:"skip_tls_verify"`
}

type AWSConfig struct {
	Region string `mapstructure:"region"`
}

type SMSConfig struct {
	Driver    string           `mapstructure:"driver"` // http|sns|log|none
	SenderID  string           `mapstructure:"sender_id"`
	Attempts  int              `mapstructure:"attempts"`
	Providers []ProviderConfig `mapstructure:"providers"`
	SNS       SNSConfig        `mapstructure:"sns"`
}

type SNSConfig struct {
	Region string `mapstructure:"region"`
}

type BreakerConfig struct {
	FailThreshold int `mapstructure:"fail_threshold" yaml:"fail_threshold"`
	OpenForMs     int `mapstructure:"open_for_ms"    yaml:"open_for_ms"`
}

type ProviderConfig struct {
	Name      string        `mapstructure:"name"`
	Enabled   bool          `mapstructure:"enabled"`
	BaseURL   string        `mapstructure:"base_url"`
	Path      string        `mapstructure:"path"`
	AuthToken string        `mapstructure:"auth_token"`
	TimeoutMs int           `mapstructure:"timeout_ms"`
	Breaker   BreakerConfig `mapstructure:"breaker"`
}

// Load reads embedded defaults, merges user YAML (if provided), and applies env overrides (OPTICA_*).
func Load(path string) (Config, error) {
	v := viper.New()

	// embedded defaults
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		// a missing file falls back to defaults + env
		if err := v.MergeInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("read %s: %w", path, err)
		}
	}

	// env override (OPTICA_MYSQL_DSN -> mysql.dsn)
	v.SetEnvPrefix("OPTICA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings that would otherwise fail late, inside a job.
func (c Config) Validate() error {
	if strings.TrimSpace(c.MySQL.DSN) == "" {
		return fmt.Errorf("mysql.dsn is required")
	}
	if c.Alerts.DispatchBatchSize <= 0 || c.Alerts.DispatchBatchSize > MaxDispatchBatch {
		return fmt.Errorf("alerts.dispatch_batch_size must be in 1..%d, got %d", MaxDispatchBatch, c.Alerts.DispatchBatchSize)
	}
	if _, err := time.LoadLocation(c.Alerts.Timezone); err != nil {
		return fmt.Errorf("alerts.timezone: %w", err)
	}
	switch c.Notify.Email.Driver {
	case "smtp", "ses", "log", "none":
	default:
		return fmt.Errorf("notify.email.driver: unknown driver %q", c.Notify.Email.Driver)
	}
	switch c.Notify.SMS.Driver {
	case "http", "sns", "log", "none":
	default:
		return fmt.Errorf("notify.sms.driver: unknown driver %q", c.Notify.SMS.Driver)
	}
	return nil
}

// Location returns the clinic timezone. Validate guarantees it loads.
func (a AlertsConfig) Location() *time.Location {
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
