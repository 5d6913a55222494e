package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/rl1809/order-service/configs"
	"github.com/rl1809/order-service/internal/adapter/dispatch"
	"github.com/rl1809/order-service/internal/adapter/storage"
	"github.com/rl1809/order-service/internal/port"
)

type closer func() error

type migrator interface {
	Migrate(ctx context.Context) error
}

// OpenStore connects the configured order store and applies migrations when
// store.migrate is set.
func OpenStore(ctx context.Context, cfg configs.Config) (port.OrderRepository, closer, error) {
	var (
		repo interface {
			port.OrderRepository
			migrator
		}
		closeFn closer
	)

	switch cfg.Store.Driver {
	case "postgres":
		pool, err := storage.OpenPostgres(ctx, cfg.Store.DSN, cfg.Store.MaxConns)
		if err != nil {
			return nil, nil, err
		}
		a := storage.NewPostgresAdapter(pool)
		repo, closeFn = a, a.Close
	default:
		dialect := storage.Dialect(cfg.Store.Driver)
		db, err := storage.OpenSQL(ctx, dialect, cfg.Store.DSN)
		if err != nil {
			return nil, nil, err
		}
		if dialect != storage.DialectSQLite && cfg.Store.MaxConns > 0 {
			db.SetMaxOpenConns(int(cfg.Store.MaxConns))
		}
		a := storage.NewSQLAdapter(db, dialect)
		repo, closeFn = a, a.Close
	}

	if cfg.Store.Migrate {
		if err := repo.Migrate(ctx); err != nil {
			_ = closeFn()
			return nil, nil, fmt.Errorf("migrate %s: %w", cfg.Store.Driver, err)
		}
	}
	return repo, closeFn, nil
}

func OpenRedis(ctx context.Context, cfg configs.Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

// NewPublisher builds the broker adapter the dispatcher workers publish to.
func NewPublisher(cfg configs.Config, logger *slog.Logger) (port.EventPublisher, closer, error) {
	switch cfg.Dispatch.Driver {
	case "rabbitmq":
		conn, err := amqp.Dial(cfg.RabbitMQ.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("dial rabbitmq: %w", err)
		}
		ch, err := conn.Channel()
		if err != nil {
			_ = conn.Close()
			return nil, nil, fmt.Errorf("open channel: %w", err)
		}
		pub, err := dispatch.NewRabbitPublisher(ch, cfg.RabbitMQ.Exchange)
		if err != nil {
			_ = conn.Close()
			return nil, nil, err
		}
		return pub, func() error {
			_ = pub.Close()
			return conn.Close()
		}, nil

	case "kafka":
		pub := dispatch.NewKafkaPublisher(dispatch.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic))
		return pub, pub.Close, nil

	default:
		pub := dispatch.NewLogPublisher(logger)
		return pub, pub.Close, nil
	}
}
