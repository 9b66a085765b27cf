package credfile

import (
	"encoding/json"
	"errors"
	"fmt"

	"pm2dash/internal/app/server/crypto"
	"pm2dash/internal/domain/user"
)

var (
	// ErrIntegrity - файл поврежден или подменен
	ErrIntegrity = crypto.ErrIntegrity
	// ErrDecode - расшифровка прошла, но содержимое не является документом учетных записей
	ErrDecode = errors.New("credential document is malformed")
)

// Document - весь набор учетных записей, шифруется и пишется только целиком
type Document struct {
	Users []user.User `json:"users"`
}

// Codec сериализует документ и упаковывает его в зашифрованный конверт
type Codec struct {
	cipher *crypto.Cipher
}

func NewCodec(cipher *crypto.Cipher) *Codec {
	return &Codec{cipher: cipher}
}

func (c *Codec) Encode(doc Document) (*crypto.Envelope, error) {
	if doc.Users == nil {
		doc.Users = []user.User{}
	}

	plaintext, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}

	env, err := c.cipher.Seal(plaintext)
	if err != nil {
		return nil, fmt.Errorf("seal document: %w", err)
	}

	return env, nil
}

func (c *Codec) Decode(env *crypto.Envelope) (Document, error) {
	plaintext, err := c.cipher.Open(env)
	if err != nil {
		return Document{}, err
	}

	var raw struct {
		Users *[]user.User `json:"users"`
	}
	if err := json.Unmarshal(plaintext, &raw); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if raw.Users == nil {
		return Document{}, fmt.Errorf("%w: users list is missing", ErrDecode)
	}

	seen := make(map[string]struct{}, len(*raw.Users))
	for i, u := range *raw.Users {
		if u.ID == "" || u.Username == "" {
			return Document{}, fmt.Errorf("%w: record %d has no id or username", ErrDecode, i)
		}
		if _, dup := seen[u.Username]; dup {
			return Document{}, fmt.Errorf("%w: duplicate username in record %d", ErrDecode, i)
		}
		seen[u.Username] = struct{}{}
	}

	return Document{Users: *raw.Users}, nil
}
