package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"pm2dash/internal/config"
)

func TestIsPostgres(t *testing.T) {
	assert.True(t, IsPostgres("postgres://u@h/db"))
	assert.True(t, IsPostgres("postgresql://u@h/db"))
	assert.False(t, IsPostgres(""))
	assert.False(t, IsPostgres("mysql://u@h/db"))
}

func TestOpenSessions_DefaultsToSQLite(t *testing.T) {
	cfg := &config.Config{}
	cfg.Auth.DataDir = filepath.Join(t.TempDir(), "data")

	s, err := OpenSessions(context.Background(), cfg, slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	assert.Equal(t, "sqlite", s.Backend)
	assert.FileExists(t, cfg.SessionsPath())
	assert.NoError(t, s.Ping(context.Background()))
}

func TestOpenSessions_UnsupportedScheme(t *testing.T) {
	cfg := &config.Config{}
	cfg.DB.DatabaseURI = "mysql://u@h/db"

	_, err := OpenSessions(context.Background(), cfg, slog.Default())
	assert.Error(t, err)
}
