package store

import (
	"context"

	"github.com/iudanet/meshsync/internal/models"
)

//go:generate moq -out store_mock.go . EntityStore

// EntityStore определяет интерфейс канонического хранилища сущностей.
// Записи сериализуются по сущности: PutEntity выполняет атомарный
// versioned read-modify-write через optimistic locking.
type EntityStore interface {
	// GetEntity возвращает сущность по id
	GetEntity(ctx context.Context, id string) (*models.Entity, error)

	// PutEntity сохраняет сущность при условии, что ее текущая версия
	// равна expectedVersion (0 = сущность создается). Проигранная гонка
	// возвращает ErrVersionMismatch.
	PutEntity(ctx context.Context, entity *models.Entity, expectedVersion int64) error

	// SaveConflict сохраняет запись о разрешении конфликта
	SaveConflict(ctx context.Context, res *models.ConflictResolution) error

	// ListPendingReview возвращает сущности, ожидающие ручного разбора
	ListPendingReview(ctx context.Context) ([]*models.Entity, error)
}
