package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"pm2dash/internal/domain/session"
)

func newTestRepository(t *testing.T) (*SessionRepository, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "sessions.db")
	db, err := New(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return NewSessionRepository(db, slog.Default()), path
}

func testSession(hash, username string, expiresAt time.Time) session.Session {
	return session.Session{
		TokenHash: hash,
		UserID:    "id-" + username,
		Username:  username,
		Role:      "user",
		Origin:    "127.0.0.1",
		CreatedAt: expiresAt.Add(-time.Hour),
		ExpiresAt: expiresAt,
	}
}

func TestNew_CreatesDatabaseAndIsReentrant(t *testing.T) {
	_, path := newTestRepository(t)

	_, err := os.Stat(path)
	require.NoError(t, err)

	// повторный запуск миграций на существующей базе
	again, err := New(path)
	require.NoError(t, err)
	require.NoError(t, again.Close())
}

func TestSessionRepository_CreateAndGet(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	want := testSession("hash-1", "alice", now.Add(time.Hour))
	require.NoError(t, repo.Create(ctx, want))

	got, err := repo.Get(ctx, "hash-1", now)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = repo.Get(ctx, "missing", now)
	assert.ErrorIs(t, err, session.ErrInvalidSession)
}

func TestSessionRepository_GetExpired(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, testSession("hash-1", "alice", now)))

	// expires_at == now уже недействительна
	_, err := repo.Get(ctx, "hash-1", now)
	assert.ErrorIs(t, err, session.ErrInvalidSession)

	_, err = repo.Get(ctx, "hash-1", now.Add(-time.Millisecond))
	assert.NoError(t, err)
}

func TestSessionRepository_CreateDuplicateHash(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()
	exp := time.Now().Add(time.Hour)

	require.NoError(t, repo.Create(ctx, testSession("hash-1", "alice", exp)))
	assert.Error(t, repo.Create(ctx, testSession("hash-1", "bob", exp)))
}

func TestSessionRepository_Deletes(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, testSession("a1", "alice", now.Add(time.Hour))))
	require.NoError(t, repo.Create(ctx, testSession("a2", "alice", now.Add(time.Hour))))
	require.NoError(t, repo.Create(ctx, testSession("b1", "bob", now.Add(time.Hour))))
	require.NoError(t, repo.Create(ctx, testSession("b2", "bob", now.Add(-time.Minute))))

	n, err := repo.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repo.DeleteByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.NoError(t, repo.Delete(ctx, "b1"))
	require.NoError(t, repo.Delete(ctx, "b1"))

	for _, h := range []string{"a1", "a2", "b1", "b2"} {
		_, err := repo.Get(ctx, h, now)
		assert.ErrorIs(t, err, session.ErrInvalidSession, h)
	}
}
