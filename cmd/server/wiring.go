package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ofa-alumni/ofatechdotorg/internal/config"
	"github.com/ofa-alumni/ofatechdotorg/internal/infrastructure/monitor"
	"github.com/ofa-alumni/ofatechdotorg/internal/infrastructure/outbox"
	pgInfra "github.com/ofa-alumni/ofatechdotorg/internal/infrastructure/postgres"
	redisInfra "github.com/ofa-alumni/ofatechdotorg/internal/infrastructure/redis"
	"github.com/ofa-alumni/ofatechdotorg/internal/notify"
	"github.com/ofa-alumni/ofatechdotorg/internal/services"
	"github.com/ofa-alumni/ofatechdotorg/internal/services/lifecycle"
	"github.com/ofa-alumni/ofatechdotorg/repository"
	"github.com/ofa-alumni/ofatechdotorg/repository/memory"
	"github.com/ofa-alumni/ofatechdotorg/repository/postgres"
	redisRepo "github.com/ofa-alumni/ofatechdotorg/repository/redis"
	"github.com/ofa-alumni/ofatechdotorg/usecase"
)

type storeDeps struct {
	people      repository.PersonRepository
	invitations repository.InvitationRepository
	ping        monitor.Check
}

type cacheDeps struct {
	sessions  repository.SessionRepository
	directory repository.DirectoryCache
	ping      monitor.Check
}

type outboxDeps struct {
	outbox usecase.MailOutbox
	sizer  monitor.Sizer
}

func openStore(ctx context.Context, cfg *config.Config, manager *lifecycle.Manager, logger *zap.Logger) (storeDeps, error) {
	switch cfg.Store.Driver {
	case config.DriverMemory:
		mem, err := memory.NewStore()
		if err != nil {
			return storeDeps{}, err
		}
		logger.Warn("using in-memory directory store; data is lost on restart")
		return storeDeps{
			people:      memory.NewPersonRepository(mem),
			invitations: memory.NewInvitationRepository(mem),
		}, nil

	case config.DriverPostgres:
		if err := pgInfra.RunMigrations(cfg, logger); err != nil {
			return storeDeps{}, fmt.Errorf("migrations: %w", err)
		}
		pool, err := pgInfra.NewPool(ctx, cfg.Database, logger)
		if err != nil {
			return storeDeps{}, err
		}
		manager.RegisterFunc("postgres", func() { pgInfra.Close(pool, logger) })
		return storeDeps{
			people:      postgres.NewPersonRepository(pool),
			invitations: postgres.NewInvitationRepository(pool),
			ping:        pool.Ping,
		}, nil
	}
	return storeDeps{}, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}

func openCache(ctx context.Context, cfg *config.Config, manager *lifecycle.Manager, logger *zap.Logger) (cacheDeps, error) {
	switch cfg.Cache.Driver {
	case config.DriverMemory:
		mem, err := memory.NewStore()
		if err != nil {
			return cacheDeps{}, err
		}
		return cacheDeps{
			sessions:  memory.NewSessionRepository(mem, cfg.Session.TTL),
			directory: memory.NewDirectoryCache(),
		}, nil

	case config.DriverRedis:
		client, err := redisInfra.NewClient(ctx, cfg.Redis)
		if err != nil {
			return cacheDeps{}, err
		}
		manager.RegisterCloser("redis", client)
		logger.Info("connected to redis")
		return cacheDeps{
			sessions:  redisRepo.NewSessionRepository(client, cfg.Session.TTL),
			directory: redisRepo.NewDirectoryCache(client, cfg.Cache.Prefix),
			ping:      redisInfra.Ping(client),
		}, nil
	}
	return cacheDeps{}, fmt.Errorf("unknown cache driver %q", cfg.Cache.Driver)
}

func newSender(cfg *config.Config, manager *lifecycle.Manager, logger *zap.Logger) (notify.Sender, error) {
	template := notify.Template{From: cfg.Mail.From, Subject: cfg.Mail.Subject}

	switch cfg.Mail.Transport {
	case config.MailTransportSMTP:
		return notify.NewSMTPSender(notify.SMTPConfig{
			Host:     cfg.Mail.SMTPHost,
			Port:     cfg.Mail.SMTPPort,
			Username: cfg.Mail.SMTPUser,
			Password: cfg.Mail.SMTPPassword,
		}, template), nil

	case config.MailTransportAMQP:
		sender, err := notify.NewAMQPSender(cfg.Mail.AMQPURL, cfg.Mail.AMQPQueue, template)
		if err != nil {
			return nil, err
		}
		manager.RegisterCloser("amqp", sender)
		return sender, nil

	case config.MailTransportLog:
		return notify.NewLogSender(template, logger), nil
	}
	return nil, fmt.Errorf("unknown mail transport %q", cfg.Mail.Transport)
}

func openOutbox(cfg *config.Config, sender notify.Sender, manager *lifecycle.Manager, logger *zap.Logger) (outboxDeps, error) {
	if !cfg.Outbox.Enabled {
		return outboxDeps{}, nil
	}

	store, err := outbox.Open(cfg.Outbox.Path, "")
	if err != nil {
		return outboxDeps{}, err
	}
	manager.RegisterCloser("outbox", store)

	processor := services.NewOutboxProcessor(store, sender, logger, services.ProcessorConfig{
		Interval:   cfg.Outbox.SyncInterval,
		BatchSize:  cfg.Outbox.BatchSize,
		MaxRetries: cfg.Outbox.MaxRetry,
		Retention:  cfg.Outbox.Retention,
	})
	processor.Start()
	manager.Register("outbox_processor", func(ctx context.Context) error {
		processor.Stop(ctx)
		return nil
	})

	return outboxDeps{
		outbox: services.NewOutboxBridge(store),
		sizer:  store,
	}, nil
}
