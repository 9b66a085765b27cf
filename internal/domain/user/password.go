package user

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	passwordCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%^&*()_+-=[]{}|;:,.<>?"

	DefaultGeneratedPasswordLen = 12
	maxGenerateAttempts         = 100
)

// GeneratePassword создает случайный пароль из passwordCharset,
// содержащий символы всех четырех классов
func GeneratePassword(length int) (string, error) {
	if length < 4 {
		return "", fmt.Errorf("password length must be at least 4, got %d", length)
	}

	max := big.NewInt(int64(len(passwordCharset)))
	buf := make([]byte, length)

	for attempt := 0; attempt < maxGenerateAttempts; attempt++ {
		for i := range buf {
			n, err := rand.Int(rand.Reader, max)
			if err != nil {
				return "", fmt.Errorf("failed to generate password: %w", err)
			}
			buf[i] = passwordCharset[n.Int64()]
		}

		if classify(string(buf)).complete() {
			return string(buf), nil
		}
	}

	return "", fmt.Errorf("failed to generate password after %d attempts", maxGenerateAttempts)
}
