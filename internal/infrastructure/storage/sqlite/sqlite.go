package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/cockroachdb/errors"
	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/exp/slog"

	"github.com/atharvakadlag/excalisave/internal/domain/document"
	"github.com/atharvakadlag/excalisave/internal/infrastructure/migration"
	"github.com/atharvakadlag/excalisave/internal/infrastructure/storage"
)

// Storage локальное хранилище ключ-значение на SQLite
type Storage struct {
	db  *sql.DB
	log *slog.Logger
	*storage.Notifier
}

// New применяет миграции и открывает базу по пути path
func New(path string, log *slog.Logger) (*Storage, error) {
	mg := migration.NewMigration(migration.DialectSQLite, migration.SQLiteURL(path), nil)
	if err := mg.Up(); err != nil {
		return nil, errors.Wrap(err, "migrate sqlite")
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}

	// SQLite не любит конкурентную запись из нескольких соединений
	db.SetMaxOpenConns(1)

	return NewWithDB(db, log), nil
}

// NewWithDB оборачивает уже открытое соединение, миграции не применяются
func NewWithDB(db *sql.DB, log *slog.Logger) *Storage {
	return &Storage{
		db:       db,
		log:      log.With("component", "sqlite_storage"),
		Notifier: storage.NewNotifier(),
	}
}

func (s *Storage) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, document.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get %s", key)
	}

	return value, nil
}

func (s *Storage) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now().UTC())
	if err != nil {
		return errors.Wrapf(err, "set %s", key)
	}

	s.Publish(document.Change{Key: key, Op: document.ChangeSet})
	return nil
}

func (s *Storage) Remove(ctx context.Context, key string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key)
	if err != nil {
		return errors.Wrapf(err, "remove %s", key)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "rows affected")
	}
	if affected > 0 {
		s.Publish(document.Change{Key: key, Op: document.ChangeRemove})
	}

	return nil
}

func (s *Storage) List(ctx context.Context, prefix string) (map[string][]byte, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value FROM kv WHERE substr(key, 1, ?) = ? ORDER BY key`,
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

// Close закрывает соединение с базой
func (s *Storage) Close() error {
	return s.db.Close()
}
