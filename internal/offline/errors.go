package offline

import "errors"

// Common offline queue errors
var (
	// ErrStorageClosed indicates that the queue storage is closed
	ErrStorageClosed = errors.New("offline queue storage is closed")

	// ErrCorruptLog indicates that a persisted log entry cannot be decoded.
	// Поврежденный журнал останавливает drain и требует вмешательства оператора.
	ErrCorruptLog = errors.New("offline log is corrupt")

	// ErrCursorRegression indicates an attempt to move the applied watermark backwards
	ErrCursorRegression = errors.New("applied cursor cannot move backwards")
)
