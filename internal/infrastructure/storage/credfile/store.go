// Package credfile хранит учетные записи в одном зашифрованном файле.
// Файл читается и пишется только целиком, кэша в памяти нет.
package credfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"syscall"

	"golang.org/x/exp/slog"

	"pm2dash/internal/app/server/crypto"
	"pm2dash/internal/domain/user"
)

const (
	DirMode  os.FileMode = 0o700
	FileMode os.FileMode = 0o600
)

var ErrNotBootstrapped = errors.New("credential store is not bootstrapped")

type Store struct {
	path  string
	codec *Codec
	log   *slog.Logger

	// mu сериализует read-modify-write внутри процесса, flock - между процессами
	mu sync.Mutex
}

var _ user.Repository = (*Store)(nil)

func New(path string, cipher *crypto.Cipher, log *slog.Logger) *Store {
	return &Store{
		path:  path,
		codec: NewCodec(cipher),
		log:   log.With(slog.String("component", "credfile"), slog.String("path", path)),
	}
}

func (s *Store) Path() string {
	return s.path
}

// Bootstrap создает каталог и пустой зашифрованный файл, выставляет права.
// Существующий файл не перезаписывается, но должен расшифровываться текущим ключом.
func (s *Store) Bootstrap(ctx context.Context) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, DirMode); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	if err := os.Chmod(dir, DirMode); err != nil {
		return fmt.Errorf("chmod data dir: %w", err)
	}

	err := s.withLock(ctx, func() error {
		_, err := os.Stat(s.path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			s.log.Info("initializing empty credential store")
			return s.write(nil)
		case err != nil:
			return fmt.Errorf("stat credentials: %w", err)
		}

		if err := os.Chmod(s.path, FileMode); err != nil {
			return fmt.Errorf("chmod credentials: %w", err)
		}
		_, err = s.read()
		return err
	})
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}

	return nil
}

// ReadAll расшифровывает файл. Ошибки целостности и формата возвращаются как есть,
// пустой список вместо них не подставляется.
func (s *Store) ReadAll(ctx context.Context) ([]user.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.read()
}

func (s *Store) List(ctx context.Context) ([]user.User, error) {
	return s.ReadAll(ctx)
}

// Ping проверяет, что файл читается и расшифровывается текущим ключом
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.ReadAll(ctx)
	return err
}

func (s *Store) WriteAll(ctx context.Context, users []user.User) error {
	return s.withLock(ctx, func() error {
		return s.write(users)
	})
}

// Update выполняет fn над текущим списком и записывает результат.
// user.ErrNoChange из fn означает "писать нечего" и наружу не возвращается.
func (s *Store) Update(ctx context.Context, fn user.Mutation) error {
	return s.withLock(ctx, func() error {
		users, err := s.read()
		if err != nil {
			return err
		}

		next, err := fn(users)
		if errors.Is(err, user.ErrNoChange) {
			return nil
		}
		if err != nil {
			return err
		}

		return s.write(next)
	})
}

func (s *Store) withLock(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	lock, err := acquireFileLock(ctx, s.path+".lock")
	if err != nil {
		return fmt.Errorf("lock credentials: %w", err)
	}
	defer func() {
		if err := lock.release(); err != nil {
			s.log.Warn("failed to release file lock", slog.String("error", err.Error()))
		}
	}()

	return fn()
}

func (s *Store) read() ([]user.User, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotBootstrapped
	}
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}

	var env crypto.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		s.log.Error("credential file is not an envelope")
		return nil, fmt.Errorf("%w: envelope: %v", ErrIntegrity, err)
	}

	doc, err := s.codec.Decode(&env)
	if err != nil {
		s.log.Error("credential file rejected", slog.String("error", err.Error()))
		return nil, err
	}

	return doc.Users, nil
}

func (s *Store) write(users []user.User) error {
	env, err := s.codec.Encode(Document{Users: users})
	if err != nil {
		return err
	}

	raw, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	if err := writeFileAtomic(s.path, raw); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}

	return nil
}

// writeFileAtomic пишет во временный файл рядом с целевым и переименовывает его
func writeFileAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if err = tmp.Chmod(FileMode); err != nil {
		return err
	}
	if _, err = tmp.Write(data); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Rename(tmpName, path); err != nil {
		return err
	}

	return syncDir(dir)
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()

	// не все файловые системы поддерживают fsync каталога
	if err := d.Sync(); err != nil && !errors.Is(err, syscall.EINVAL) {
		return err
	}
	return nil
}
