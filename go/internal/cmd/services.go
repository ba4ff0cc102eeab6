package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/courtside/go/internal/config"
	"github.com/mcdev12/courtside/go/internal/control"
	"github.com/mcdev12/courtside/go/internal/feedback"
	"github.com/mcdev12/courtside/go/internal/gateway"
	"github.com/mcdev12/courtside/go/internal/host"
	"github.com/mcdev12/courtside/go/internal/match"
	"github.com/mcdev12/courtside/go/internal/metrics"
	"github.com/mcdev12/courtside/go/internal/natsconn"
	"github.com/mcdev12/courtside/go/internal/replicator"
	"github.com/mcdev12/courtside/go/internal/store"
)

type Services struct {
	App     *host.App
	Control *control.Service
	Gateway *gateway.Service
	Metrics *metrics.Recorder

	store      store.Store
	replicator *replicator.Replicator
	dispatcher *feedback.Dispatcher
	stopGW     context.CancelFunc
	closers    []func()
}

func setupServices(ctx context.Context, cfg *config.Config, rules match.Ruleset) (*Services, error) {
	// Wire up dependency injection chain
	// Store → Replicator → Host app → Control service / Gateway
	s := &Services{Metrics: metrics.NewRecorder()}

	st, err := s.setupStore(ctx, cfg)
	if err != nil {
		s.closeResources()
		return nil, err
	}
	s.store = st

	sink, err := s.setupFeedbackSink(cfg)
	if err != nil {
		_ = st.Close()
		s.closeResources()
		return nil, err
	}

	// The writer and dispatcher outlive ctx so shutdown can drain them
	s.replicator = replicator.New(st, replicator.WithMetrics(s.Metrics))
	go func() {
		if err := s.replicator.Run(context.Background()); err != nil {
			log.Error().Err(err).Msg("replicator stopped")
		}
	}()
	s.dispatcher = feedback.NewDispatcher(sink, cfg.FeedbackQueueSize, s.Metrics)
	go s.dispatcher.Run(context.Background())

	engine := match.NewEngine(rules, cfg.TickInterval)
	s.App = host.NewApp(engine, s.replicator, s.dispatcher,
		host.WithLease(cfg.LeaseDuration),
		host.WithMetrics(s.Metrics),
	)
	s.Control = control.NewService(s.App)

	gwConfig := gateway.DefaultConfig()
	gwConfig.Rules = rules
	s.Gateway = gateway.NewService(gwConfig, gateway.Deps{
		Source:   s.replicator,
		State:    s.App,
		Executor: s.App,
		Metrics:  s.Metrics,
	})
	gwCtx, cancel := context.WithCancel(context.Background())
	s.stopGW = cancel
	go s.Gateway.Start(gwCtx)

	return s, nil
}

func (s *Services) setupStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.StoreDriver {
	case config.StoreNATS:
		nc, js, err := natsconn.ConnectJetStream(natsconn.DefaultConfig(cfg.NATSURL))
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, nc.Close)
		st, err := store.NewNATSStore(ctx, js, store.DefaultNATSConfig())
		if err != nil {
			return nil, fmt.Errorf("open NATS store: %w", err)
		}
		log.Info().Str("nats_url", cfg.NATSURL).Msg("using NATS key-value store")
		return st, nil

	case config.StorePostgres:
		dsn := cfg.Database.DSN()
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("create database pool: %w", err)
		}
		s.closers = append(s.closers, pool.Close)
		if err := pool.Ping(ctx); err != nil {
			return nil, fmt.Errorf("ping database: %w", err)
		}
		st, err := store.NewPostgresStore(ctx, pool, store.DefaultPostgresConfig(dsn))
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		log.Info().
			Str("database", cfg.Database.Database).
			Str("host", cfg.Database.Host).
			Msg("using postgres store")
		return st, nil

	case config.StoreRedis:
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(opts)
		s.closers = append(s.closers, func() { _ = rdb.Close() })
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		log.Info().Str("addr", opts.Addr).Msg("using redis store")
		return store.NewRedisStore(rdb, store.DefaultRedisConfig()), nil

	default:
		log.Warn().Msg("using in-memory store, matches are not shared between processes")
		return store.NewMemoryStore(), nil
	}
}

func (s *Services) setupFeedbackSink(cfg *config.Config) (feedback.Sink, error) {
	switch cfg.FeedbackDriver {
	case config.FeedbackNATS:
		nc, err := natsconn.Connect(natsconn.DefaultConfig(cfg.NATSURL))
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, func() { drainNATS(nc) })
		return feedback.NewNATSSink(nc, ""), nil
	case config.FeedbackAMQP:
		sink, err := feedback.NewAMQPSink(feedback.DefaultAMQPConfig(cfg.AMQPURL))
		if err != nil {
			return nil, fmt.Errorf("open AMQP feedback sink: %w", err)
		}
		return sink, nil
	default:
		return feedback.LogSink{}, nil
	}
}

// Close stops hosting, drains pending writes and signals, then releases connections
func (s *Services) Close() {
	s.App.Shutdown()
	if err := s.replicator.Close(); err != nil {
		log.Error().Err(err).Msg("replicator close failed")
	}
	if err := s.dispatcher.Close(); err != nil {
		log.Error().Err(err).Msg("feedback dispatcher close failed")
	}
	s.stopGW()
	if err := s.store.Close(); err != nil {
		log.Error().Err(err).Msg("store close failed")
	}
	s.closeResources()
}

func (s *Services) closeResources() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

func drainNATS(nc *nats.Conn) {
	if err := nc.Drain(); err != nil {
		log.Warn().Err(err).Msg("NATS drain failed")
		nc.Close()
	}
}
