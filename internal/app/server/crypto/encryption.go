package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

const (
	// NonceSize - 128-битный nonce, как в исходном формате файла
	NonceSize = 16
	// TagSize - 128-битный тег аутентификации GCM
	TagSize = 16
)

// ErrIntegrity - тег не сошелся: данные повреждены, обрезаны или подменены
var ErrIntegrity = errors.New("envelope integrity check failed")

// Envelope - самодостаточная зашифрованная единица хранения.
// Каждое поле хранится в hex независимо от остальных.
type Envelope struct {
	Nonce      string `json:"iv"`
	Ciphertext string `json:"encryptedData"`
	AuthTag    string `json:"authTag"`
}

// Cipher handles AES-256-GCM encryption of data at rest
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher creates a cipher bound to the given key
func NewCipher(key Key) (*Cipher, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCMWithNonceSize(block, NonceSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &Cipher{aead: gcm}, nil
}

// Seal encrypts plaintext with a fresh random nonce
func (c *Cipher) Seal(plaintext []byte) (*Envelope, error) {
	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := c.aead.Seal(nil, nonce, plaintext, nil)
	ciphertext, tag := sealed[:len(sealed)-TagSize], sealed[len(sealed)-TagSize:]

	return &Envelope{
		Nonce:      hex.EncodeToString(nonce),
		Ciphertext: hex.EncodeToString(ciphertext),
		AuthTag:    hex.EncodeToString(tag),
	}, nil
}

// Open decrypts an envelope produced by Seal. Any malformed or tampered
// field yields ErrIntegrity; plaintext is never returned unverified.
func (c *Cipher) Open(env *Envelope) ([]byte, error) {
	if env == nil {
		return nil, fmt.Errorf("%w: empty envelope", ErrIntegrity)
	}

	nonce, err := hex.DecodeString(env.Nonce)
	if err != nil || len(nonce) != NonceSize {
		return nil, fmt.Errorf("%w: bad nonce", ErrIntegrity)
	}

	ciphertext, err := hex.DecodeString(env.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: bad ciphertext encoding", ErrIntegrity)
	}

	tag, err := hex.DecodeString(env.AuthTag)
	if err != nil || len(tag) != TagSize {
		return nil, fmt.Errorf("%w: bad auth tag", ErrIntegrity)
	}

	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIntegrity, err)
	}

	return plaintext, nil
}
