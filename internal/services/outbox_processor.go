package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/ofa-alumni/ofatechdotorg/internal/infrastructure/outbox"
	"github.com/ofa-alumni/ofatechdotorg/internal/notify"
)

// ProcessorConfig controls how often the outbox is drained and how long items live.
type ProcessorConfig struct {
	Interval   time.Duration
	BatchSize  int
	MaxRetries int
	Retention  time.Duration
}

// OutboxProcessor resends parked invitation mails on a cron schedule.
type OutboxProcessor struct {
	store  *outbox.Store
	sender notify.Sender
	logger *zap.Logger
	cron   *cron.Cron
	cfg    ProcessorConfig
}

func NewOutboxProcessor(store *outbox.Store, sender notify.Sender, logger *zap.Logger, cfg ProcessorConfig) *OutboxProcessor {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &OutboxProcessor{
		store:  store,
		sender: sender,
		logger: logger,
		cfg:    cfg,
		cron:   cron.New(cron.WithSeconds()),
	}

	schedule := fmt.Sprintf("@every %s", cfg.Interval)
	if _, err := p.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Interval)
		defer cancel()
		if err := p.Drain(ctx); err != nil {
			p.logger.Error("outbox drain failed", zap.Error(err))
		}
	}); err != nil {
		p.logger.Error("invalid outbox schedule", zap.String("schedule", schedule), zap.Error(err))
	}

	return p
}

func (p *OutboxProcessor) Start() {
	if p == nil || p.cron == nil {
		return
	}
	p.cron.Start()
	p.logger.Info("outbox processor started", zap.Duration("interval", p.cfg.Interval))
}

// Stop waits for a running drain to finish or for ctx to expire.
func (p *OutboxProcessor) Stop(ctx context.Context) {
	if p == nil || p.cron == nil {
		return
	}
	stopCtx := p.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	p.logger.Info("outbox processor stopped")
}

// Drain resends one batch synchronously.
func (p *OutboxProcessor) Drain(ctx context.Context) error {
	if p == nil || p.store == nil || p.sender == nil {
		return nil
	}

	items, err := p.store.Peek(p.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, item := range items {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log := p.logger.With(
			zap.String("item_id", item.ID),
			zap.String("invitation_id", item.InvitationID))

		if err := p.sender.SendInvitation(ctx, item.To, item.ClaimLink); err != nil {
			item.Retries++
			item.LastError = err.Error()
			if item.Retries >= p.cfg.MaxRetries {
				log.Warn("dropping invitation mail (max retries reached)", zap.Error(err))
				if err := p.store.Remove(item); err != nil {
					log.Warn("failed to remove outbox item", zap.Error(err))
				}
				continue
			}
			log.Debug("invitation mail retry failed", zap.Int("retries", item.Retries), zap.Error(err))
			if err := p.store.Requeue(item); err != nil {
				log.Error("failed to requeue outbox item", zap.Error(err))
			}
			continue
		}

		log.Info("queued invitation mail delivered")
		if err := p.store.Remove(item); err != nil {
			log.Warn("failed to purge delivered outbox item", zap.Error(err))
		}
	}

	if p.cfg.Retention > 0 {
		removed, err := p.store.Cleanup(time.Now().Add(-p.cfg.Retention))
		if err != nil {
			return err
		}
		if removed > 0 {
			p.logger.Warn("expired invitation mails dropped", zap.Int("count", removed))
		}
	}
	return nil
}

// Size returns the number of parked mails, 0 when unknown.
func (p *OutboxProcessor) Size() int {
	if p == nil || p.store == nil {
		return 0
	}
	size, err := p.store.Size()
	if err != nil {
		return 0
	}
	return size
}
