package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
)

// KeySize - длина ключа AES-256 в байтах
const KeySize = 32

// ErrConfiguration - ключ шифрования не задан или некорректен.
// Подсистема аутентификации не должна стартовать с такой ошибкой.
var ErrConfiguration = errors.New("encryption key is missing or malformed")

// Key - симметричный ключ хранилища учетных записей. Живет только в памяти процесса.
type Key [KeySize]byte

// String не раскрывает ключ при случайном выводе в лог или fmt.
func (k Key) String() string {
	return "[REDACTED]"
}

func (k Key) GoString() string {
	return "crypto.Key{[REDACTED]}"
}

// ResolveKey декодирует ключ из 64 hex символов.
// Никаких запасных вариантов (производный, дефолтный, случайный ключ) нет.
func ResolveKey(hexKey string) (Key, error) {
	var key Key

	hexKey = strings.TrimSpace(hexKey)
	if hexKey == "" {
		return key, fmt.Errorf("%w: ENCRYPTION_KEY is not set", ErrConfiguration)
	}
	if len(hexKey) != hex.EncodedLen(KeySize) {
		return key, fmt.Errorf("%w: key must be %d hexadecimal characters (%d bytes)",
			ErrConfiguration, hex.EncodedLen(KeySize), KeySize)
	}

	raw, err := hex.DecodeString(hexKey)
	if err != nil {
		// само значение в ошибку не попадает
		return key, fmt.Errorf("%w: key is not valid hex", ErrConfiguration)
	}

	copy(key[:], raw)
	clearMemory(raw)

	return key, nil
}

// GenerateKey создает новый случайный ключ в hex представлении
func GenerateKey() (string, error) {
	raw := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, raw); err != nil {
		return "", fmt.Errorf("failed to generate key: %w", err)
	}
	defer clearMemory(raw)

	return hex.EncodeToString(raw), nil
}

func clearMemory(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
