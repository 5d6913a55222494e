package configs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "ORDERS_"

type Config struct {
	App struct {
		Name string `koanf:"name"`
		Env  string `koanf:"env"`
	} `koanf:"app"`

	HTTP struct {
		Addr            string        `koanf:"addr"`
		ReadTimeout     time.Duration `koanf:"read_timeout"`
		WriteTimeout    time.Duration `koanf:"write_timeout"`
		IdleTimeout     time.Duration `koanf:"idle_timeout"`
		ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
		RequestTimeout  time.Duration `koanf:"request_timeout"`
	} `koanf:"http"`

	GRPC struct {
		Addr string `koanf:"addr"`
	} `koanf:"grpc"`

	Log struct {
		Level    string `koanf:"level"`
		FilePath string `koanf:"file_path"`
	} `koanf:"log"`

	Store struct {
		Driver   string `koanf:"driver"` // mysql | sqlite | postgres
		DSN      string `koanf:"dsn"`
		MaxConns int32  `koanf:"max_conns"`
		Migrate  bool   `koanf:"migrate"`
	} `koanf:"store"`

	Redis struct {
		Addr     string `koanf:"addr"`
		Password string `koanf:"password"`
		DB       int    `koanf:"db"`
		PoolSize int    `koanf:"pool_size"`
	} `koanf:"redis"`

	Cache struct {
		Driver string        `koanf:"driver"` // redis | memory | none
		TTL    time.Duration `koanf:"ttl"`
		Size   int           `koanf:"size"`
	} `koanf:"cache"`

	RateLimit struct {
		Enabled  bool          `koanf:"enabled"`
		Requests int           `koanf:"requests"`
		Window   time.Duration `koanf:"window"`
	} `koanf:"ratelimit"`

	Idempotency struct {
		Enabled bool `koanf:"enabled"`
	} `koanf:"idempotency"`

	Dispatch struct {
		Driver         string        `koanf:"driver"` // rabbitmq | kafka | log
		QueueSize      int           `koanf:"queue_size"`
		Workers        int           `koanf:"workers"`
		PublishTimeout time.Duration `koanf:"publish_timeout"`
	} `koanf:"dispatch"`

	RabbitMQ struct {
		URL      string        `koanf:"url"`
		Exchange string        `koanf:"exchange"`
		Prefetch int           `koanf:"prefetch"`
		Timeout  time.Duration `koanf:"timeout"`
	} `koanf:"rabbitmq"`

	Kafka struct {
		Brokers []string `koanf:"brokers"`
		Topic   string   `koanf:"topic"`
		GroupID string   `koanf:"group_id"`
	} `koanf:"kafka"`

	Worker struct {
		MetricsAddr string `koanf:"metrics_addr"`
	} `koanf:"worker"`
}

// Load reads <dir>/base.yaml, then the optional <dir>/<env>.yaml, then
// ORDERS_ environment variables (nested keys joined with __, e.g.
// ORDERS_STORE__DSN).
func Load(dir, envName string) (Config, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(filepath.Join(dir, "base.yaml")), yaml.Parser()); err != nil {
		return Config{}, fmt.Errorf("load base: %w", err)
	}

	if envName != "" {
		overlay := filepath.Join(dir, envName+".yaml")
		if _, err := os.Stat(overlay); err == nil {
			if err := k.Load(file.Provider(overlay), yaml.Parser()); err != nil {
				return Config{}, fmt.Errorf("load %s: %w", overlay, err)
			}
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		s = strings.ReplaceAll(s, "__", ".")
		return strings.ToLower(s)
	}), nil); err != nil {
		return Config{}, fmt.Errorf("env overlay: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.HTTP.Addr == "" {
		return fmt.Errorf("http.addr required")
	}
	switch c.Store.Driver {
	case "mysql", "sqlite", "postgres":
	default:
		return fmt.Errorf("store.driver must be mysql, sqlite or postgres, got %q", c.Store.Driver)
	}
	if c.Store.DSN == "" {
		return fmt.Errorf("store.dsn required")
	}
	switch c.Cache.Driver {
	case "", "none", "memory":
	case "redis":
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis.addr required for cache.driver=redis")
		}
	default:
		return fmt.Errorf("cache.driver must be redis, memory or none, got %q", c.Cache.Driver)
	}
	if (c.RateLimit.Enabled || c.Idempotency.Enabled) && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr required for rate limiting and idempotency")
	}
	if c.RateLimit.Enabled && c.RateLimit.Requests <= 0 {
		return fmt.Errorf("ratelimit.requests must be positive")
	}
	switch c.Dispatch.Driver {
	case "log":
	case "rabbitmq":
		if c.RabbitMQ.URL == "" {
			return fmt.Errorf("rabbitmq.url required for dispatch.driver=rabbitmq")
		}
	case "kafka":
		if len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "" {
			return fmt.Errorf("kafka.brokers and kafka.topic required for dispatch.driver=kafka")
		}
	default:
		return fmt.Errorf("dispatch.driver must be rabbitmq, kafka or log, got %q", c.Dispatch.Driver)
	}
	if c.Dispatch.Workers <= 0 || c.Dispatch.QueueSize <= 0 {
		return fmt.Errorf("dispatch.workers and dispatch.queue_size must be positive")
	}
	return nil
}

// UsesRedis reports whether any component needs a Redis client.
func (c Config) UsesRedis() bool {
	return c.Cache.Driver == "redis" || c.RateLimit.Enabled || c.Idempotency.Enabled
}
