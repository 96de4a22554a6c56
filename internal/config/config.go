package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config корневая конфигурация сервиса.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Registry  RegistryConfig  `mapstructure:"registry"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Router    RouterConfig    `mapstructure:"router"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Node      NodeConfig      `mapstructure:"node"`
	Routes    []RouteConfig   `mapstructure:"routes"`
	LogLevel  string          `mapstructure:"log_level"`
}

type ServerConfig struct {
	ListenAddr    string        `mapstructure:"listen_addr"`
	JoinSecret    string        `mapstructure:"join_secret"`
	SigningSecret string        `mapstructure:"signing_secret"`
	TokenTTL      time.Duration `mapstructure:"token_ttl"`
	RateLimit     int           `mapstructure:"rate_limit"`
	RateWindow    time.Duration `mapstructure:"rate_window"`
}

type RegistryConfig struct {
	MissDegraded  int           `mapstructure:"miss_degraded"`
	MissOffline   int           `mapstructure:"miss_offline"`
	OfflineTTL    time.Duration `mapstructure:"offline_ttl"`
	ProbeInterval time.Duration `mapstructure:"probe_interval"`
	ProbeTimeout  time.Duration `mapstructure:"probe_timeout"`
}

type SchedulerConfig struct {
	QueueSize       int           `mapstructure:"queue_size"`
	MaxRetries      int           `mapstructure:"max_retries"`
	BackoffBase     time.Duration `mapstructure:"backoff_base"`
	BackoffCap      time.Duration `mapstructure:"backoff_cap"`
	MaxWait         time.Duration `mapstructure:"max_wait"`
	DispatchTimeout time.Duration `mapstructure:"dispatch_timeout"`
}

type RouterConfig struct {
	HealthThreshold  float64       `mapstructure:"health_threshold"`
	BreakerThreshold int           `mapstructure:"breaker_threshold"`
	BreakerCooldown  time.Duration `mapstructure:"breaker_cooldown"`
}

type StorageConfig struct {
	SQLitePath string `mapstructure:"sqlite_path"`
	BoltPath   string `mapstructure:"bolt_path"`
}

// RouteConfig шаблон маршрута для логического сервиса.
type RouteConfig struct {
	Service       string           `mapstructure:"service"`
	DefaultPolicy string           `mapstructure:"default_policy"`
	Candidates    []RouteCandidate `mapstructure:"candidates"`
}

// RouteCandidate endpoint-кандидат в шаблоне маршрута.
type RouteCandidate struct {
	NodeID string `mapstructure:"node_id"`
	Addr   string `mapstructure:"addr"`
	Role   string `mapstructure:"role"`
}

// NodeConfig параметры локального узла (используется edged).
type NodeConfig struct {
	ID             string        `mapstructure:"id"`
	Role           string        `mapstructure:"role"`
	Addr           string        `mapstructure:"addr"`
	Coordinator    string        `mapstructure:"coordinator"`
	Capabilities   []string      `mapstructure:"capabilities"`
	MaxConcurrency int           `mapstructure:"max_concurrency"`
	HeartbeatEvery time.Duration `mapstructure:"heartbeat_every"`
}

// Load читает конфигурацию из файла и переменных окружения.
// Переменные окружения имеют префикс MESHSYNC и перекрывают файл,
// например MESHSYNC_SERVER_LISTEN_ADDR.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("MESHSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")

	v.SetDefault("server.listen_addr", ":8080")
	// Пустые значения по умолчанию нужны, чтобы AutomaticEnv увидел эти ключи
	v.SetDefault("server.join_secret", "")
	v.SetDefault("server.signing_secret", "")
	v.SetDefault("server.token_ttl", 24*time.Hour)
	v.SetDefault("server.rate_limit", 100)
	v.SetDefault("server.rate_window", time.Minute)

	v.SetDefault("registry.miss_degraded", 3)
	v.SetDefault("registry.miss_offline", 5)
	v.SetDefault("registry.offline_ttl", 10*time.Minute)
	v.SetDefault("registry.probe_interval", 5*time.Second)
	v.SetDefault("registry.probe_timeout", 2*time.Second)

	v.SetDefault("scheduler.queue_size", 1024)
	v.SetDefault("scheduler.max_retries", 5)
	v.SetDefault("scheduler.backoff_base", 500*time.Millisecond)
	v.SetDefault("scheduler.backoff_cap", 30*time.Second)
	v.SetDefault("scheduler.max_wait", time.Minute)
	v.SetDefault("scheduler.dispatch_timeout", 30*time.Second)

	v.SetDefault("router.health_threshold", 0.5)
	v.SetDefault("router.breaker_threshold", 5)
	v.SetDefault("router.breaker_cooldown", 30*time.Second)

	v.SetDefault("storage.sqlite_path", "meshsync.db")
	v.SetDefault("storage.bolt_path", "meshsync-ops.db")

	v.SetDefault("node.role", "edge")
	v.SetDefault("node.max_concurrency", 4)
	v.SetDefault("node.heartbeat_every", 5*time.Second)
}

// Validate проверяет согласованность конфигурации.
func (c *Config) Validate() error {
	if c.Server.JoinSecret == "" {
		return fmt.Errorf("server.join_secret is required")
	}
	if c.Server.SigningSecret == "" {
		return fmt.Errorf("server.signing_secret is required")
	}
	if c.Registry.MissDegraded <= 0 || c.Registry.MissOffline <= c.Registry.MissDegraded {
		return fmt.Errorf("registry thresholds must satisfy 0 < miss_degraded < miss_offline")
	}
	if c.Scheduler.QueueSize <= 0 {
		return fmt.Errorf("scheduler.queue_size must be positive")
	}
	if c.Router.HealthThreshold < 0 || c.Router.HealthThreshold > 1 {
		return fmt.Errorf("router.health_threshold must be in [0, 1]")
	}
	return nil
}
