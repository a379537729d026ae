package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fixedSizer struct {
	size int
	err  error
}

func (s fixedSizer) Size() (int, error) { return s.size, s.err }

func TestRefresh_InProcessDependenciesAreHealthy(t *testing.T) {
	m := New(Checks{}, time.Minute, nil)

	status := m.Refresh()
	assert.True(t, status.Store)
	assert.True(t, status.Cache)
	assert.False(t, status.Outbox)
	assert.True(t, m.IsOnline())
}

func TestRefresh_ReportsFailures(t *testing.T) {
	down := func(context.Context) error { return errors.New("down") }
	up := func(context.Context) error { return nil }
	m := New(Checks{Store: up, Cache: down, Outbox: fixedSizer{size: 3}}, time.Minute, nil)

	status := m.Refresh()
	assert.True(t, status.Store)
	assert.False(t, status.Cache)
	assert.True(t, status.Outbox)
	assert.Equal(t, 3, status.OutboxSize)
	assert.False(t, m.IsOnline())
	assert.Equal(t, status, m.GetStatus())
}

func TestStartStop(t *testing.T) {
	m := New(Checks{Outbox: fixedSizer{err: errors.New("closed")}}, 10*time.Millisecond, nil)
	m.Start()
	m.Stop()
	m.Stop()

	assert.False(t, m.GetStatus().Outbox)
	assert.False(t, m.GetStatus().LastCheck.IsZero())
}
