package migration

import (
	"embed"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// Драйверы баз данных для мигратора
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
)

const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

//go:embed migrations
var migrationsFS embed.FS

// Migrator интерфейс для самой библиотеки migrate.Migrate
type Migrator interface {
	Up() error
	Close() (error, error)
}

// MigrationEngine фабрика для создания мигратора (чтобы не лезть в БД в тестах)
type MigrationEngine func(src source.Driver, databaseURL string) (Migrator, error)

type Migration struct {
	dialect     string
	databaseURL string
	engine      MigrationEngine
}

func NewMigration(dialect, databaseURL string, engine MigrationEngine) *Migration {
	if engine == nil {
		engine = DefaultEngine
	}
	return &Migration{
		dialect:     dialect,
		databaseURL: databaseURL,
		engine:      engine,
	}
}

// DefaultEngine реальная реализация поверх встроенных файлов миграций
func DefaultEngine(src source.Driver, databaseURL string) (Migrator, error) {
	return migrate.NewWithSourceInstance("iofs", src, databaseURL)
}

// SQLiteURL формирует адрес базы для драйвера sqlite3
func SQLiteURL(path string) string {
	return "sqlite3://" + path
}

func (mg *Migration) Up() (err error) {
	src, err := iofs.New(migrationsFS, "migrations/"+mg.dialect)
	if err != nil {
		return errors.Wrapf(err, "open %s migrations", mg.dialect)
	}

	m, err := mg.engine(src, mg.databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		serr, dberr := m.Close()
		if serr != nil {
			if err != nil {
				err = fmt.Errorf("%w; migration source error: %v", err, serr)
			} else {
				err = serr
			}
		}
		if dberr != nil {
			if err != nil {
				err = fmt.Errorf("%w; migration database error: %v", err, dberr)
			} else {
				err = dberr
			}
		}
	}()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, "migration up")
	}
	return nil
}
