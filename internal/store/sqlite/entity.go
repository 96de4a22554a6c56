package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/meshsync/internal/models"
	"github.com/iudanet/meshsync/internal/store"
)

// GetEntity возвращает каноническую сущность по id.
func (s *Storage) GetEntity(ctx context.Context, id string) (*models.Entity, error) {
	query := `
		SELECT id, fields, clock, version, deleted, pending_review, updated_at
		FROM entities
		WHERE id = ?
	`

	var (
		entity        models.Entity
		fieldsJSON    string
		clockJSON     string
		deleted       int
		pendingReview int
		updatedAt     int64
	)

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&entity.ID,
		&fieldsJSON,
		&clockJSON,
		&entity.Version,
		&deleted,
		&pendingReview,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrEntityNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query entity: %w", err)
	}

	if err := json.Unmarshal([]byte(fieldsJSON), &entity.Fields); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entity fields: %w", err)
	}
	if err := json.Unmarshal([]byte(clockJSON), &entity.Clock); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entity clock: %w", err)
	}

	entity.Deleted = deleted != 0
	entity.PendingReview = pendingReview != 0
	entity.UpdatedAt = time.Unix(updatedAt, 0)

	return &entity, nil
}

// PutEntity сохраняет сущность с optimistic locking.
// expectedVersion = 0 означает создание новой сущности. Проигранная гонка
// (сущность изменилась после чтения) возвращает ErrVersionMismatch, и
// вызывающая сторона повторяет цикл read-merge-write.
func (s *Storage) PutEntity(ctx context.Context, entity *models.Entity, expectedVersion int64) error {
	fieldsJSON, err := json.Marshal(entity.Fields)
	if err != nil {
		return fmt.Errorf("failed to marshal entity fields: %w", err)
	}
	clockJSON, err := json.Marshal(entity.Clock)
	if err != nil {
		return fmt.Errorf("failed to marshal entity clock: %w", err)
	}

	now := time.Now()

	if expectedVersion == 0 {
		query := `
			INSERT INTO entities (id, fields, clock, version, deleted, pending_review, updated_at)
			VALUES (?, ?, ?, 1, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING
		`

		res, err := s.db.ExecContext(ctx, query,
			entity.ID,
			string(fieldsJSON),
			string(clockJSON),
			boolToInt(entity.Deleted),
			boolToInt(entity.PendingReview),
			now.Unix(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert entity: %w", err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if affected == 0 {
			// Кто-то создал сущность первым
			return store.ErrVersionMismatch
		}

		entity.Version = 1
		entity.UpdatedAt = now
		return nil
	}

	query := `
		UPDATE entities
		SET fields = ?, clock = ?, version = ?, deleted = ?, pending_review = ?, updated_at = ?
		WHERE id = ? AND version = ?
	`

	res, err := s.db.ExecContext(ctx, query,
		string(fieldsJSON),
		string(clockJSON),
		expectedVersion+1,
		boolToInt(entity.Deleted),
		boolToInt(entity.PendingReview),
		now.Unix(),
		entity.ID,
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to update entity: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return store.ErrVersionMismatch
	}

	entity.Version = expectedVersion + 1
	entity.UpdatedAt = now
	return nil
}

// SaveConflict сохраняет запись о разрешении конфликта.
func (s *Storage) SaveConflict(ctx context.Context, res *models.ConflictResolution) error {
	strategiesJSON, err := json.Marshal(res.Strategies)
	if err != nil {
		return fmt.Errorf("failed to marshal strategies: %w", err)
	}
	clockJSON, err := json.Marshal(res.ResultClock)
	if err != nil {
		return fmt.Errorf("failed to marshal result clock: %w", err)
	}

	query := `
		INSERT INTO conflicts (id, entity_id, operation_id, resolved_by, strategies, result_clock, escalated, resolved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query,
		res.ID,
		res.EntityID,
		res.OperationID,
		res.ResolvedBy,
		string(strategiesJSON),
		string(clockJSON),
		boolToInt(res.Escalated),
		res.ResolvedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert conflict record: %w", err)
	}

	return nil
}

// ListPendingReview возвращает сущности, ожидающие ручного разбора конфликта.
func (s *Storage) ListPendingReview(ctx context.Context) ([]*models.Entity, error) {
	query := `
		SELECT id, fields, clock, version, deleted, pending_review, updated_at
		FROM entities
		WHERE pending_review = 1
		ORDER BY updated_at
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending review entities: %w", err)
	}
	defer rows.Close()

	var entities []*models.Entity
	for rows.Next() {
		var (
			entity        models.Entity
			fieldsJSON    string
			clockJSON     string
			deleted       int
			pendingReview int
			updatedAt     int64
		)

		if err := rows.Scan(
			&entity.ID,
			&fieldsJSON,
			&clockJSON,
			&entity.Version,
			&deleted,
			&pendingReview,
			&updatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan entity: %w", err)
		}

		if err := json.Unmarshal([]byte(fieldsJSON), &entity.Fields); err != nil {
			return nil, fmt.Errorf("failed to unmarshal entity fields: %w", err)
		}
		if err := json.Unmarshal([]byte(clockJSON), &entity.Clock); err != nil {
			return nil, fmt.Errorf("failed to unmarshal entity clock: %w", err)
		}

		entity.Deleted = deleted != 0
		entity.PendingReview = pendingReview != 0
		entity.UpdatedAt = time.Unix(updatedAt, 0)

		entities = append(entities, &entity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate entities: %w", err)
	}

	return entities, nil
}

// boolToInt конвертирует bool в int для SQLite
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// ensure Storage implements the canonical store interface
var _ store.EntityStore = (*Storage)(nil)
