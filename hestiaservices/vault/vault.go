package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strings"
)

// Prefix marks configuration values that hold sealed secrets.
const Prefix = "vault:"

var ErrCipherTextTooShort = errors.New("cipher text too short")

// New returns a vault for a 16, 24 or 32 byte key.
func New(key []byte) Vault {
	return Vault{
		key: key,
	}
}

type Vault struct {
	key []byte
}

func (v Vault) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(v.key)
	if err != nil {
		return nil, err
	}

	return cipher.NewGCM(block)
}

// Encrypt seals text with a random nonce and returns it URL-safe base64
// encoded, nonce first.
func (v Vault) Encrypt(text []byte) ([]byte, error) {
	aead, err := v.aead()
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	sealed := aead.Seal(nonce, nonce, text, nil)

	return []byte(base64.URLEncoding.EncodeToString(sealed)), nil
}

func (v Vault) Decrypt(raw []byte) ([]byte, error) {
	sealed, err := base64.URLEncoding.DecodeString(string(raw))
	if err != nil {
		return nil, err
	}

	aead, err := v.aead()
	if err != nil {
		return nil, err
	}

	if len(sealed) < aead.NonceSize() {
		return nil, ErrCipherTextTooShort
	}

	nonce, cipherText := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]

	return aead.Open(nil, nonce, cipherText, nil)
}

// Reveal decrypts values carrying Prefix and returns any other value as is.
func (v Vault) Reveal(value string) (string, error) {
	sealed, found := strings.CutPrefix(value, Prefix)
	if !found {
		return value, nil
	}

	plain, err := v.Decrypt([]byte(sealed))
	if err != nil {
		return "", err
	}

	return string(plain), nil
}

// Seal encrypts value into the form Reveal understands.
func (v Vault) Seal(value string) (string, error) {
	sealed, err := v.Encrypt([]byte(value))
	if err != nil {
		return "", err
	}

	return Prefix + string(sealed), nil
}
