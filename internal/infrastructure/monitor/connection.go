package monitor

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Check pings one dependency. A nil Check means the dependency lives in process.
type Check func(ctx context.Context) error

// Sizer reports the number of parked outbox items.
type Sizer interface {
	Size() (int, error)
}

// Checks groups the dependencies the monitor polls.
type Checks struct {
	Store  Check
	Cache  Check
	Outbox Sizer
}

type Monitor struct {
	checks Checks

	status   Status
	mu       sync.RWMutex
	interval time.Duration
	timeout  time.Duration
	stopOnce sync.Once
	stopCh   chan struct{}
	logger   *zap.Logger
}

func New(checks Checks, interval time.Duration, logger *zap.Logger) *Monitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		checks:   checks,
		interval: interval,
		timeout:  3 * time.Second,
		stopCh:   make(chan struct{}),
		logger:   logger,
	}
}

func (m *Monitor) Start() {
	m.Refresh()
	go m.loop()
}

func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

func (m *Monitor) IsOnline() bool {
	return m.GetStatus().Healthy()
}

func (m *Monitor) GetStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Monitor) loop() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Refresh()
		case <-m.stopCh:
			return
		}
	}
}

// Refresh polls every dependency once and stores the result.
func (m *Monitor) Refresh() Status {
	outboxOK, outboxSize := m.checkOutbox()
	status := Status{
		Store:      m.ping("store", m.checks.Store),
		Cache:      m.ping("cache", m.checks.Cache),
		Outbox:     outboxOK,
		OutboxSize: outboxSize,
		LastCheck:  time.Now(),
	}

	m.mu.Lock()
	prev := m.status
	m.status = status
	m.mu.Unlock()

	if !prev.LastCheck.IsZero() && prev.Healthy() != status.Healthy() {
		m.logger.Warn("dependency status changed",
			zap.Bool("store", status.Store),
			zap.Bool("cache", status.Cache))
	}
	return status
}

func (m *Monitor) ping(name string, check Check) bool {
	if check == nil {
		return true
	}
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()
	if err := check(ctx); err != nil {
		m.logger.Debug("dependency ping failed", zap.String("dependency", name), zap.Error(err))
		return false
	}
	return true
}

func (m *Monitor) checkOutbox() (bool, int) {
	if m.checks.Outbox == nil {
		return false, 0
	}
	size, err := m.checks.Outbox.Size()
	if err != nil {
		m.logger.Warn("outbox size check failed", zap.Error(err))
		return false, 0
	}
	return true, size
}
