package migration

import (
	"errors"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockMigrator мок для интерфейса Migrator
type MockMigrator struct {
	mock.Mock
}

func (m *MockMigrator) Up() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockMigrator) Close() (error, error) {
	args := m.Called()
	return args.Error(0), args.Error(1)
}

func TestMigration_Up_Success(t *testing.T) {
	mockM := new(MockMigrator)

	// Настраиваем поведение
	mockM.On("Up").Return(nil)
	mockM.On("Close").Return(nil, nil)

	var gotURL string
	engine := func(src source.Driver, db string) (Migrator, error) {
		gotURL = db
		// Встроенные миграции должны читаться
		first, err := src.First()
		require.NoError(t, err)
		assert.Equal(t, uint(1), first)
		return mockM, nil
	}

	mg := NewMigration(DialectSQLite, SQLiteURL("/tmp/excalisave.db"), engine)
	err := mg.Up()

	assert.NoError(t, err)
	assert.Equal(t, "sqlite3:///tmp/excalisave.db", gotURL)
	mockM.AssertExpectations(t)
}

func TestMigration_Up_NoChange(t *testing.T) {
	mockM := new(MockMigrator)

	// ErrNoChange не должна считаться ошибкой в методе Up()
	mockM.On("Up").Return(migrate.ErrNoChange)
	mockM.On("Close").Return(nil, nil)

	engine := func(_ source.Driver, _ string) (Migrator, error) {
		return mockM, nil
	}

	mg := NewMigration(DialectPostgres, "postgres://localhost/excalisave", engine)
	err := mg.Up()

	assert.NoError(t, err)
}

func TestMigration_Up_EngineError(t *testing.T) {
	// Ошибка на этапе создания мигратора (например, неверный драйвер)
	engine := func(_ source.Driver, _ string) (Migrator, error) {
		return nil, errors.New("engine crash")
	}

	mg := NewMigration(DialectSQLite, "", engine)
	err := mg.Up()

	assert.Error(t, err)
	assert.Equal(t, "engine crash", err.Error())
}

func TestMigration_Up_CloseError(t *testing.T) {
	mockM := new(MockMigrator)
	mockM.On("Up").Return(nil)
	mockM.On("Close").Return(errors.New("source closed"), nil)

	engine := func(_ source.Driver, _ string) (Migrator, error) {
		return mockM, nil
	}

	err := NewMigration(DialectSQLite, "", engine).Up()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "source closed")
}

func TestMigration_Up_UnknownDialect(t *testing.T) {
	engine := func(_ source.Driver, _ string) (Migrator, error) {
		t.Fatal("engine must not be called")
		return nil, nil
	}

	err := NewMigration("mysql", "", engine).Up()

	assert.Error(t, err)
}
