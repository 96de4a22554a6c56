package registry

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/meshsync/internal/models"
)

func testConfig() Config {
	return Config{
		MissDegraded:  3,
		MissOffline:   5,
		OfflineTTL:    10 * time.Minute,
		ProbeInterval: time.Second,
		ProbeTimeout:  time.Second,
	}
}

func testNode(id string) models.Node {
	return models.Node{
		ID:             id,
		Role:           models.RoleEdge,
		Addr:           "http://" + id + ":9000",
		Capabilities:   []string{"transform"},
		MaxConcurrency: 2,
	}
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	return New(testConfig(), slog.Default())
}

func TestRegistry_Register(t *testing.T) {
	r := newTestRegistry(t)

	err := r.Register(testNode("edge-1"))
	require.NoError(t, err)

	node, err := r.Get("edge-1")
	require.NoError(t, err)
	assert.Equal(t, models.NodeOnline, node.Status, "new node starts online")
	assert.Equal(t, 0, node.MissCount)
	assert.False(t, node.RegisteredAt.IsZero())
}

func TestRegistry_Register_Duplicate(t *testing.T) {
	r := newTestRegistry(t)

	require.NoError(t, r.Register(testNode("edge-1")))

	err := r.Register(testNode("edge-1"))
	assert.ErrorIs(t, err, ErrDuplicateNode)
}

func TestRegistry_Register_InvalidID(t *testing.T) {
	r := newTestRegistry(t)

	tests := []struct {
		name string
		id   string
	}{
		{"empty id", ""},
		{"too short", "ab"},
		{"forbidden characters", "edge 1!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.Register(testNode(tt.id))
			assert.Error(t, err)
		})
	}
}

func TestRegistry_Deregister(t *testing.T) {
	r := newTestRegistry(t)

	require.NoError(t, r.Register(testNode("edge-1")))
	require.NoError(t, r.Deregister("edge-1"))

	_, err := r.Get("edge-1")
	assert.ErrorIs(t, err, ErrNodeNotFound)

	assert.ErrorIs(t, r.Deregister("edge-1"), ErrNodeNotFound)
}

func TestRegistry_RecordMiss_Transitions(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Register(testNode("edge-1")))

	// Два пропуска - узел все еще online
	for i := 0; i < 2; i++ {
		require.NoError(t, r.RecordMiss("edge-1"))
	}
	node, err := r.Get("edge-1")
	require.NoError(t, err)
	assert.Equal(t, models.NodeOnline, node.Status)

	// Третий пропуск - degraded
	require.NoError(t, r.RecordMiss("edge-1"))
	node, err = r.Get("edge-1")
	require.NoError(t, err)
	assert.Equal(t, models.NodeDegraded, node.Status)

	// Четвертый пропуск - все еще degraded, offline требует пяти
	require.NoError(t, r.RecordMiss("edge-1"))
	node, err = r.Get("edge-1")
	require.NoError(t, err)
	assert.Equal(t, models.NodeDegraded, node.Status)

	// Пятый пропуск - offline
	require.NoError(t, r.RecordMiss("edge-1"))
	node, err = r.Get("edge-1")
	require.NoError(t, err)
	assert.Equal(t, models.NodeOffline, node.Status)
}

func TestRegistry_Heartbeat_RestoresOnline(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Register(testNode("edge-1")))

	for i := 0; i < 3; i++ {
		require.NoError(t, r.RecordMiss("edge-1"))
	}
	node, err := r.Get("edge-1")
	require.NoError(t, err)
	require.Equal(t, models.NodeDegraded, node.Status)

	require.NoError(t, r.Heartbeat("edge-1", models.LoadMetrics{ActiveTasks: 1}))

	node, err = r.Get("edge-1")
	require.NoError(t, err)
	assert.Equal(t, models.NodeOnline, node.Status)
	assert.Equal(t, 0, node.MissCount, "heartbeat resets miss counter")
	assert.Equal(t, 1, node.Load.ActiveTasks)
}

func TestRegistry_Heartbeat_UnknownNode(t *testing.T) {
	r := newTestRegistry(t)

	err := r.Heartbeat("ghost", models.LoadMetrics{})
	assert.ErrorIs(t, err, ErrNodeNotFound)
}

func TestRegistry_MarkOffline_SkipsDegraded(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Register(testNode("edge-1")))

	// Жесткое отключение: online -> offline без ступени degraded
	require.NoError(t, r.MarkOffline("edge-1"))

	node, err := r.Get("edge-1")
	require.NoError(t, err)
	assert.Equal(t, models.NodeOffline, node.Status)
}

func TestRegistry_MarkDegraded(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Register(testNode("edge-1")))

	require.NoError(t, r.MarkDegraded("edge-1"))

	node, err := r.Get("edge-1")
	require.NoError(t, err)
	assert.Equal(t, models.NodeDegraded, node.Status)

	// Повторный вызов не меняет статус degraded узла
	require.NoError(t, r.MarkDegraded("edge-1"))
	node, err = r.Get("edge-1")
	require.NoError(t, err)
	assert.Equal(t, models.NodeDegraded, node.Status)
}

func TestRegistry_OnTransition(t *testing.T) {
	r := newTestRegistry(t)

	type transition struct {
		nodeID   string
		from, to models.NodeStatus
	}
	var seen []transition
	r.OnTransition(func(nodeID string, from, to models.NodeStatus) {
		seen = append(seen, transition{nodeID, from, to})
	})

	require.NoError(t, r.Register(testNode("edge-1")))
	for i := 0; i < 5; i++ {
		require.NoError(t, r.RecordMiss("edge-1"))
	}
	require.NoError(t, r.Heartbeat("edge-1", models.LoadMetrics{}))

	require.Len(t, seen, 3)
	assert.Equal(t, transition{"edge-1", models.NodeOnline, models.NodeDegraded}, seen[0])
	assert.Equal(t, transition{"edge-1", models.NodeDegraded, models.NodeOffline}, seen[1])
	assert.Equal(t, transition{"edge-1", models.NodeOffline, models.NodeOnline}, seen[2])
}

func TestRegistry_Candidates(t *testing.T) {
	r := newTestRegistry(t)

	online := testNode("edge-online")
	require.NoError(t, r.Register(online))

	degraded := testNode("edge-degraded")
	require.NoError(t, r.Register(degraded))
	require.NoError(t, r.MarkDegraded("edge-degraded"))

	other := testNode("edge-other")
	other.Capabilities = []string{"render"}
	require.NoError(t, r.Register(other))

	got := r.Candidates([]string{"transform"})

	require.Len(t, got, 1, "only online nodes with matching capabilities qualify")
	assert.Equal(t, "edge-online", got[0].Node.ID)
}

func TestRegistry_TryAcquire_CapacityLimit(t *testing.T) {
	r := newTestRegistry(t)
	node := testNode("edge-1") // MaxConcurrency = 2
	require.NoError(t, r.Register(node))

	assert.True(t, r.TryAcquire("edge-1"))
	assert.True(t, r.TryAcquire("edge-1"))
	assert.False(t, r.TryAcquire("edge-1"), "no capacity left")

	// Узел с исчерпанной емкостью исключается из кандидатов
	assert.Empty(t, r.Candidates([]string{"transform"}))

	r.Release("edge-1")
	assert.True(t, r.TryAcquire("edge-1"))
}

func TestRegistry_TryAcquire_RevalidatesStatus(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Register(testNode("edge-1")))
	require.NoError(t, r.MarkDegraded("edge-1"))

	assert.False(t, r.TryAcquire("edge-1"), "degraded node must not accept assignments")
	assert.False(t, r.TryAcquire("ghost"))
}

func TestRegistry_ReapExpired(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Register(testNode("edge-1")))
	require.NoError(t, r.Register(testNode("edge-2")))

	require.NoError(t, r.MarkOffline("edge-1"))

	// Внутри TTL узел сохраняется
	r.reapExpired(time.Now())
	_, err := r.Get("edge-1")
	require.NoError(t, err)

	// По истечении TTL offline узел дерегистрируется
	r.reapExpired(time.Now().Add(11 * time.Minute))
	_, err = r.Get("edge-1")
	assert.ErrorIs(t, err, ErrNodeNotFound)

	// Online узел TTL не затрагивает
	_, err = r.Get("edge-2")
	assert.NoError(t, err)
}

func TestRegistry_RecordSuccess_UpdatesHealth(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Register(testNode("edge-1")))

	for i := 0; i < 3; i++ {
		require.NoError(t, r.RecordMiss("edge-1"))
	}

	require.NoError(t, r.RecordSuccess("edge-1", 42*time.Millisecond))

	views := r.Snapshot()
	require.Len(t, views, 1)
	assert.Equal(t, models.NodeOnline, views[0].Node.Status, "probe success restores node")
	assert.InDelta(t, 42.0, views[0].Health.LatencyMS, 0.001)
	assert.Greater(t, views[0].Health.SuccessRate, 0.0)
}
