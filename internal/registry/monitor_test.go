package registry

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/meshsync/internal/models"
)

func TestMonitor_ProbeAll_MissAndSuccess(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Register(testNode("edge-alive")))
	require.NoError(t, r.Register(testNode("edge-dead")))

	probe := func(ctx context.Context, node models.Node) (time.Duration, error) {
		if node.ID == "edge-dead" {
			return 0, errors.New("connection refused")
		}
		return 15 * time.Millisecond, nil
	}

	m := NewMonitor(r, probe, slog.Default())

	// Три цикла проб: мертвый узел набирает пропуски до degraded
	for i := 0; i < 3; i++ {
		m.probeAll(context.Background())
	}

	alive, err := r.Get("edge-alive")
	require.NoError(t, err)
	assert.Equal(t, models.NodeOnline, alive.Status)
	assert.Equal(t, 0, alive.MissCount)

	dead, err := r.Get("edge-dead")
	require.NoError(t, err)
	assert.Equal(t, models.NodeDegraded, dead.Status)
	assert.Equal(t, 3, dead.MissCount)
}

func TestMonitor_ProbeRespectsTimeout(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Register(testNode("edge-slow")))

	probe := func(ctx context.Context, node models.Node) (time.Duration, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	}

	m := NewMonitor(r, probe, slog.Default())

	done := make(chan struct{})
	go func() {
		m.probeAll(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("probeAll must finish once per-probe deadlines expire")
	}

	node, err := r.Get("edge-slow")
	require.NoError(t, err)
	assert.Equal(t, 1, node.MissCount, "timed out probe counts as a miss")
}

func TestMonitor_Run_StopsOnContextCancel(t *testing.T) {
	r := newTestRegistry(t)

	var probes atomic.Int32
	probe := func(ctx context.Context, node models.Node) (time.Duration, error) {
		probes.Add(1)
		return time.Millisecond, nil
	}

	m := NewMonitor(r, probe, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run must return after context cancellation")
	}
}
