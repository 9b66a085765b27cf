//go:build !unix

package credfile

import "context"

// На платформах без flock остается только внутрипроцессный мьютекс Store
type fileLock struct{}

func acquireFileLock(ctx context.Context, _ string) (*fileLock, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &fileLock{}, nil
}

func (l *fileLock) release() error { return nil }
