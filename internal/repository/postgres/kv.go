package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dtroode/moviecat/internal/logger"
	"github.com/dtroode/moviecat/internal/model"
)

// Channel is the notification channel every write is announced on.
const Channel = "moviecat_kv"

const eventBuffer = 64

var _ model.Storage = (*KVRepository)(nil)

// KVRepository stores values in the kv table and announces every change
// with pg_notify in the same statement, so the change and its event commit
// together.
type KVRepository struct {
	db     *Connection
	id     string
	logger *logger.Logger
}

func NewKVRepository(db *Connection, logger *logger.Logger) *KVRepository {
	return &KVRepository{
		db:     db,
		id:     uuid.NewString(),
		logger: logger,
	}
}

type notification struct {
	Key    string `json:"key"`
	Origin string `json:"origin"`
}

func (r *KVRepository) Get(ctx context.Context, key string) (string, bool, error) {
	query := `SELECT value FROM kv WHERE key = $1 AND value IS NOT NULL`

	var value string
	err := r.db.QueryRow(ctx, query, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get key: %w", err)
	}

	return value, true, nil
}

func (r *KVRepository) Set(ctx context.Context, key, value string) error {
	query := `WITH upserted AS (
				INSERT INTO kv (key, value, origin, updated_at)
				VALUES ($1, $2, $3, now())
				ON CONFLICT (key) DO UPDATE
				SET value = EXCLUDED.value, origin = EXCLUDED.origin, updated_at = EXCLUDED.updated_at
				RETURNING key
			  )
			  SELECT pg_notify('` + Channel + `', json_build_object('key', key, 'origin', $3::text)::text) FROM upserted`

	if _, err := r.db.Exec(ctx, query, key, value, r.id); err != nil {
		return fmt.Errorf("failed to set key: %w", err)
	}

	return nil
}

func (r *KVRepository) Remove(ctx context.Context, key string) error {
	query := `WITH removed AS (
				UPDATE kv SET value = NULL, origin = $2, updated_at = now()
				WHERE key = $1 AND value IS NOT NULL
				RETURNING key
			  )
			  SELECT pg_notify('` + Channel + `', json_build_object('key', key, 'origin', $2::text)::text) FROM removed`

	if _, err := r.db.Exec(ctx, query, key, r.id); err != nil {
		return fmt.Errorf("failed to remove key: %w", err)
	}

	return nil
}

// Watch listens on a dedicated pooled connection until ctx is done.
func (r *KVRepository) Watch(ctx context.Context) (<-chan model.StorageEvent, error) {
	conn, err := r.db.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire listen connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "LISTEN "+Channel); err != nil {
		conn.Release()
		return nil, fmt.Errorf("failed to listen: %w", err)
	}

	ch := make(chan model.StorageEvent, eventBuffer)

	go func() {
		defer close(ch)
		defer func() {
			if _, err := conn.Exec(context.Background(), "UNLISTEN *"); err != nil {
				conn.Conn().Close(context.Background())
			}
			conn.Release()
		}()

		for {
			n, err := conn.Conn().WaitForNotification(ctx)
			if err != nil {
				if ctx.Err() == nil {
					r.logger.Error("Postgres storage: notification wait failed",
						"error", err.Error())
				}
				return
			}

			ev, err := parseNotification(n.Payload)
			if err != nil {
				r.logger.Warn("Postgres storage: malformed notification",
					"payload", n.Payload,
					"error", err.Error())
				continue
			}
			if ev.Origin == r.id {
				continue
			}

			select {
			case ch <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch, nil
}

func (r *KVRepository) Origin() string {
	return r.id
}

func (r *KVRepository) Close() error {
	return r.db.Close()
}

func parseNotification(payload string) (model.StorageEvent, error) {
	var n notification
	if err := json.Unmarshal([]byte(payload), &n); err != nil {
		return model.StorageEvent{}, fmt.Errorf("failed to decode notification: %w", err)
	}
	if n.Key == "" {
		return model.StorageEvent{}, fmt.Errorf("notification without key")
	}
	return model.StorageEvent{Key: n.Key, Origin: n.Origin}, nil
}
