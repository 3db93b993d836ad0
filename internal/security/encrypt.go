package security

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fernet/fernet-go"
)

// Encryptor provides symmetric encryption for message bodies at rest.
// The first key encrypts; every key (current and legacy) is tried on decrypt,
// so keys can be rotated without rewriting stored messages.
type Encryptor struct {
	keys []*fernet.Key
}

func NewEncryptor(key string, legacyKeys []string) (*Encryptor, error) {
	primary, err := fernet.DecodeKey(strings.TrimSpace(key))
	if err != nil {
		return nil, fmt.Errorf("decode encryption key: %w", err)
	}
	keys := make([]*fernet.Key, 0, len(legacyKeys)+1)
	keys = append(keys, primary)
	for _, raw := range legacyKeys {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		k, err := fernet.DecodeKey(raw)
		if err != nil {
			return nil, fmt.Errorf("decode legacy encryption key: %w", err)
		}
		keys = append(keys, k)
	}
	return &Encryptor{keys: keys}, nil
}

func (e *Encryptor) Encrypt(plain string) (string, error) {
	tok, err := fernet.EncryptAndSign([]byte(plain), e.keys[0])
	if err != nil {
		return "", err
	}
	return string(tok), nil
}

func (e *Encryptor) Decrypt(enc string) (string, error) {
	plain := fernet.VerifyAndDecrypt([]byte(enc), 0, e.keys)
	if plain == nil {
		return "", errors.New("failed to decrypt message payload")
	}
	return string(plain), nil
}

// GenerateKey returns a new encoded key suitable for ENCRYPTION_KEY.
func GenerateKey() (string, error) {
	var k fernet.Key
	if err := k.Generate(); err != nil {
		return "", err
	}
	return k.Encode(), nil
}
