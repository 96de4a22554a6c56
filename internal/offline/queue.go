package offline

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"github.com/iudanet/meshsync/internal/models"
)

var (
	// BoltDB bucket names
	bucketOps     = []byte("ops")     // per-origin вложенные buckets с операциями
	bucketCursors = []byte("cursors") // origin -> watermark примененных seq
)

// Queue durable журнал оффлайн-операций поверх BoltDB.
// Журнал append-only: каждой операции присваивается строго возрастающий
// в пределах origin sequence номер атомарно с записью. Журнал переживает
// рестарт процесса: непримененные записи реплеятся в исходном порядке.
type Queue struct {
	db *bbolt.DB
}

// New открывает журнал оффлайн-операций.
// dbPath - путь к файлу BoltDB.
func New(ctx context.Context, dbPath string) (*Queue, error) {
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open boltdb: %w", err)
	}

	q := &Queue{db: db}

	if err := q.initBuckets(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}

	return q, nil
}

// Close closes the database connection
func (q *Queue) Close() error {
	if q.db == nil {
		return nil
	}
	return q.db.Close()
}

// initBuckets создает необходимые buckets если они не существуют
func (q *Queue) initBuckets() error {
	return q.db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketOps); err != nil {
			return fmt.Errorf("failed to create ops bucket: %w", err)
		}
		if _, err := tx.CreateBucketIfNotExists(bucketCursors); err != nil {
			return fmt.Errorf("failed to create cursors bucket: %w", err)
		}
		return nil
	})
}

// Enqueue дописывает операцию в журнал своего origin.
// Sequence номер присваивается атомарно с записью в одной транзакции.
func (q *Queue) Enqueue(ctx context.Context, op *models.OfflineOperation) (*models.OfflineOperation, error) {
	if q.db == nil {
		return nil, ErrStorageClosed
	}
	if op.Origin == "" {
		return nil, fmt.Errorf("operation origin cannot be empty")
	}

	stored := *op
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	if stored.CapturedAt.IsZero() {
		stored.CapturedAt = time.Now()
	}
	stored.State = models.OpQueued

	err := q.db.Update(func(tx *bbolt.Tx) error {
		origins := tx.Bucket(bucketOps)
		bucket, err := origins.CreateBucketIfNotExists([]byte(stored.Origin))
		if err != nil {
			return fmt.Errorf("failed to create origin bucket: %w", err)
		}

		seq, err := bucket.NextSequence()
		if err != nil {
			return fmt.Errorf("failed to allocate sequence: %w", err)
		}
		stored.Seq = seq

		// Компонент собственного origin в векторе привязывается к seq журнала:
		// реплей сравнивает именно эти числа, клиентскому счетчику доверять нельзя.
		stored.Clock = stored.Clock.Clone()
		stored.Clock[stored.Origin] = int64(seq)

		data, err := json.Marshal(&stored)
		if err != nil {
			return fmt.Errorf("failed to marshal operation: %w", err)
		}

		if err := bucket.Put(seqKey(seq), data); err != nil {
			return fmt.Errorf("failed to append operation: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("transaction failed: %w", err)
	}

	return &stored, nil
}

// Pending возвращает непримененные операции origin в порядке захвата
// (seq строго больше watermark).
func (q *Queue) Pending(ctx context.Context, origin string) ([]*models.OfflineOperation, error) {
	if q.db == nil {
		return nil, ErrStorageClosed
	}

	var ops []*models.OfflineOperation

	err := q.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketOps).Bucket([]byte(origin))
		if bucket == nil {
			return nil
		}

		applied := readCursor(tx, origin)

		c := bucket.Cursor()
		for k, v := c.Seek(seqKey(applied + 1)); k != nil; k, v = c.Next() {
			var op models.OfflineOperation
			if err := json.Unmarshal(v, &op); err != nil {
				return fmt.Errorf("%w: origin %s seq %d: %v", ErrCorruptLog, origin, seqFromKey(k), err)
			}
			ops = append(ops, &op)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return ops, nil
}

// MarkApplied продвигает watermark примененных операций origin.
// Watermark строго монотонен; продвижение атомарно, поэтому реплей,
// прерванный рестартом, продолжается ровно с того же места.
func (q *Queue) MarkApplied(ctx context.Context, origin string, seq uint64) error {
	if q.db == nil {
		return ErrStorageClosed
	}

	return q.db.Update(func(tx *bbolt.Tx) error {
		applied := readCursor(tx, origin)
		if seq <= applied {
			return fmt.Errorf("%w: origin %s has %d, got %d", ErrCursorRegression, origin, applied, seq)
		}

		if err := tx.Bucket(bucketCursors).Put([]byte(origin), seqKey(seq)); err != nil {
			return fmt.Errorf("failed to advance cursor: %w", err)
		}
		return nil
	})
}

// Origins возвращает все origin, у которых есть записи в журнале.
func (q *Queue) Origins(ctx context.Context) ([]string, error) {
	if q.db == nil {
		return nil, ErrStorageClosed
	}

	var origins []string

	err := q.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketOps).ForEachBucket(func(name []byte) error {
			origins = append(origins, string(name))
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list origins: %w", err)
	}

	return origins, nil
}

// PendingCount возвращает суммарное число непримененных операций.
func (q *Queue) PendingCount(ctx context.Context) (int, error) {
	origins, err := q.Origins(ctx)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, origin := range origins {
		ops, err := q.Pending(ctx, origin)
		if err != nil {
			return 0, err
		}
		total += len(ops)
	}
	return total, nil
}

// readCursor возвращает watermark примененных seq для origin (0 = ничего).
func readCursor(tx *bbolt.Tx, origin string) uint64 {
	v := tx.Bucket(bucketCursors).Get([]byte(origin))
	if v == nil {
		return 0
	}
	return binary.BigEndian.Uint64(v)
}

// seqKey кодирует seq в big-endian: лексикографический порядок ключей
// совпадает с числовым.
func seqKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}

func seqFromKey(key []byte) uint64 {
	if len(key) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(key)
}
