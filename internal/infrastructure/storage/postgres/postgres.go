package postgres

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/exp/slog"

	"github.com/atharvakadlag/excalisave/internal/domain/document"
	"github.com/atharvakadlag/excalisave/internal/infrastructure/migration"
	"github.com/atharvakadlag/excalisave/internal/infrastructure/storage"
)

// Storage хранилище ключ-значение на PostgreSQL для размещенного фонового процесса
type Storage struct {
	pool *pgxpool.Pool
	log  *slog.Logger
	*storage.Notifier
}

func New(ctx context.Context, databaseURI string, log *slog.Logger) (*Storage, error) {
	pool, err := pgxpool.New(ctx, databaseURI)
	if err != nil {
		return nil, errors.Wrap(err, "create pool")
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "ping postgres")
	}

	mg := migration.NewMigration(migration.DialectPostgres, databaseURI, nil)
	if err := mg.Up(); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "migration error")
	}

	return &Storage{
		pool:     pool,
		log:      log.With("component", "postgres_storage"),
		Notifier: storage.NewNotifier(),
	}, nil
}

func (s *Storage) Close() error {
	s.pool.Close()
	return nil
}

func (s *Storage) Pool() *pgxpool.Pool {
	return s.pool
}

func (s *Storage) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.pool.QueryRow(ctx, `SELECT value FROM kv WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, document.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get %s", key)
	}

	return value, nil
}

func (s *Storage) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO kv (key, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`, key, value, time.Now().UTC())
	if err != nil {
		return errors.Wrapf(err, "set %s", key)
	}

	s.Publish(document.Change{Key: key, Op: document.ChangeSet})
	return nil
}

func (s *Storage) Remove(ctx context.Context, key string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM kv WHERE key = $1`, key)
	if err != nil {
		return errors.Wrapf(err, "remove %s", key)
	}

	if tag.RowsAffected() > 0 {
		s.Publish(document.Change{Key: key, Op: document.ChangeRemove})
	}
	return nil
}

func (s *Storage) List(ctx context.Context, prefix string) (map[string][]byte, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT key, value FROM kv WHERE left(key, $1) = $2 ORDER BY key`,
		len(prefix), prefix)
	if err != nil {
		return nil, errors.Wrap(err, "list keys")
	}
	defer rows.Close()

	out := make(map[string][]byte)
	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return nil, errors.Wrap(err, "scan key")
		}
		out[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate keys")
	}

	return out, nil
}
