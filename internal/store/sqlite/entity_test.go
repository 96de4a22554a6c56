package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/meshsync/internal/crdt"
	"github.com/iudanet/meshsync/internal/models"
	"github.com/iudanet/meshsync/internal/store"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()

	s, err := New(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testEntity(id string) *models.Entity {
	return &models.Entity{
		ID: id,
		Fields: map[string]crdt.Field{
			"title": {Kind: crdt.FieldLWW, Scalar: "hello", Stamp: 1, Origin: "edge-1"},
			"tags":  {Kind: crdt.FieldSet, Set: []string{"a", "b"}},
		},
		Clock: crdt.VersionVector{"edge-1": 1},
	}
}

func TestStorage_PutGetEntity(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	entity := testEntity("doc-1")
	require.NoError(t, s.PutEntity(ctx, entity, 0))
	assert.Equal(t, int64(1), entity.Version, "create sets version 1")

	got, err := s.GetEntity(ctx, "doc-1")
	require.NoError(t, err)

	assert.Equal(t, "doc-1", got.ID)
	assert.Equal(t, int64(1), got.Version)
	assert.Equal(t, "hello", got.Fields["title"].Scalar)
	assert.Equal(t, []string{"a", "b"}, got.Fields["tags"].Set)
	assert.Equal(t, int64(1), got.Clock.Get("edge-1"))
	assert.False(t, got.Deleted)
	assert.False(t, got.PendingReview)
}

func TestStorage_GetEntity_NotFound(t *testing.T) {
	s := newTestStorage(t)

	_, err := s.GetEntity(context.Background(), "ghost")
	assert.ErrorIs(t, err, store.ErrEntityNotFound)
}

func TestStorage_PutEntity_CreateRace(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.PutEntity(ctx, testEntity("doc-1"), 0))

	// Повторное создание той же сущности - проигранная гонка
	err := s.PutEntity(ctx, testEntity("doc-1"), 0)
	assert.ErrorIs(t, err, store.ErrVersionMismatch)
}

func TestStorage_PutEntity_OptimisticLocking(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	entity := testEntity("doc-1")
	require.NoError(t, s.PutEntity(ctx, entity, 0))

	// Обновление с актуальной версией проходит
	updated := testEntity("doc-1")
	updated.Fields["title"] = crdt.Field{Kind: crdt.FieldLWW, Scalar: "updated", Stamp: 2, Origin: "edge-1"}
	require.NoError(t, s.PutEntity(ctx, updated, 1))
	assert.Equal(t, int64(2), updated.Version)

	// Обновление с устаревшей версией - проигранная гонка
	stale := testEntity("doc-1")
	err := s.PutEntity(ctx, stale, 1)
	assert.ErrorIs(t, err, store.ErrVersionMismatch)

	got, err := s.GetEntity(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Version)
	assert.Equal(t, "updated", got.Fields["title"].Scalar)
}

func TestStorage_PutEntity_Tombstone(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	entity := testEntity("doc-1")
	entity.Deleted = true
	require.NoError(t, s.PutEntity(ctx, entity, 0))

	got, err := s.GetEntity(ctx, "doc-1")
	require.NoError(t, err)
	assert.True(t, got.Deleted, "tombstone survives round trip")
}

func TestStorage_SaveConflict(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	record := &models.ConflictResolution{
		ID:          "conflict-1",
		EntityID:    "doc-1",
		OperationID: "op-1",
		ResolvedBy:  "coordinator",
		Strategies: map[string]crdt.MergeStrategy{
			"title": crdt.StrategyLastWriterWins,
		},
		ResultClock: crdt.VersionVector{"edge-1": 1, "coordinator": 1},
		ResolvedAt:  time.Now(),
	}

	require.NoError(t, s.SaveConflict(ctx, record))

	var count int
	err := s.DB().QueryRowContext(ctx,
		"SELECT COUNT(*) FROM conflicts WHERE entity_id = ?", "doc-1").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestStorage_ListPendingReview(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	clean := testEntity("doc-clean")
	require.NoError(t, s.PutEntity(ctx, clean, 0))

	flagged := testEntity("doc-flagged")
	flagged.PendingReview = true
	require.NoError(t, s.PutEntity(ctx, flagged, 0))

	got, err := s.ListPendingReview(ctx)
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, "doc-flagged", got[0].ID)
	assert.True(t, got[0].PendingReview)
}
