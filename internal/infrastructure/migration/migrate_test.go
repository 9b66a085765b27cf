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

// MockMigrator - мок для интерфейса Migrator
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
	for _, dialect := range []Dialect{DialectSQLite, DialectPostgres} {
		t.Run(string(dialect), func(t *testing.T) {
			mockM := new(MockMigrator)
			mockM.On("Up").Return(nil)
			mockM.On("Close").Return(nil, nil)

			var gotURL string
			engine := func(src source.Driver, databaseURL string) (Migrator, error) {
				gotURL = databaseURL
				first, err := src.First()
				require.NoError(t, err)
				assert.Equal(t, uint(1), first)
				return mockM, nil
			}

			mg := NewMigration(dialect, "db-url", engine)
			assert.NoError(t, mg.Up())
			assert.Equal(t, "db-url", gotURL)
			mockM.AssertExpectations(t)
		})
	}
}

func TestMigration_Up_NoChange(t *testing.T) {
	mockM := new(MockMigrator)

	// ErrNoChange не должна считаться ошибкой в методе Up()
	mockM.On("Up").Return(migrate.ErrNoChange)
	mockM.On("Close").Return(nil, nil)

	engine := func(source.Driver, string) (Migrator, error) {
		return mockM, nil
	}

	err := NewMigration(DialectSQLite, "", engine).Up()
	assert.NoError(t, err)
}

func TestMigration_Up_EngineError(t *testing.T) {
	// Ошибка на этапе создания мигратора (например, неверный драйвер)
	engine := func(source.Driver, string) (Migrator, error) {
		return nil, errors.New("engine crash")
	}

	err := NewMigration(DialectSQLite, "", engine).Up()
	assert.Error(t, err)
	assert.Equal(t, "engine crash", err.Error())
}

func TestMigration_Up_CloseErrorsAreReported(t *testing.T) {
	mockM := new(MockMigrator)
	mockM.On("Up").Return(errors.New("dirty"))
	mockM.On("Close").Return(errors.New("source closed"), errors.New("db closed"))

	engine := func(source.Driver, string) (Migrator, error) {
		return mockM, nil
	}

	err := NewMigration(DialectPostgres, "", engine).Up()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dirty")
	assert.Contains(t, err.Error(), "source closed")
	assert.Contains(t, err.Error(), "db closed")
}

func TestMigration_Up_UnknownDialect(t *testing.T) {
	engine := func(source.Driver, string) (Migrator, error) {
		t.Fatal("engine must not be called")
		return nil, nil
	}

	err := NewMigration(Dialect("mysql"), "", engine).Up()
	assert.Error(t, err)
}

func TestPostgresURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"postgres://u:p@localhost:5432/db?sslmode=disable", "pgx5://u:p@localhost:5432/db?sslmode=disable"},
		{"postgresql://u@db/app", "pgx5://u@db/app"},
		{"pgx5://u@db/app", "pgx5://u@db/app"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PostgresURL(tt.in))
	}
}
