package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	// sealedPrefix отличает зашифрованные значения от открытых, сохраненных до включения шифрования
	sealedPrefix = "enc:v1:"

	keyFilePermissions = 0600
	keyDirPermissions  = 0700

	saltLength    = 16
	argon2Time    = 1
	argon2Memory  = 64 * 1024
	argon2Threads = 4
)

var ErrInvalidKey = errors.New("invalid secret key")

// Sealer шифрует короткие секреты (токены) XChaCha20-Poly1305
type Sealer struct {
	key []byte
}

// NewSealer создает шифровальщик с ключом длиной chacha20poly1305.KeySize
func NewSealer(key []byte) (*Sealer, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, errors.Wrapf(ErrInvalidKey, "key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}
	k := make([]byte, len(key))
	copy(k, key)
	return &Sealer{key: k}, nil
}

// LoadOrCreate читает ключ из keyPath или создает новый.
// С непустой passphrase файл хранит соль, а ключ выводится из пароля через Argon2id.
func LoadOrCreate(keyPath, passphrase string) (*Sealer, error) {
	material, err := os.ReadFile(keyPath)
	if errors.Is(err, os.ErrNotExist) {
		size := chacha20poly1305.KeySize
		if passphrase != "" {
			size = saltLength
		}
		material, err = generateKeyFile(keyPath, size)
	}
	if err != nil {
		return nil, errors.Wrap(err, "load secret key")
	}

	if passphrase == "" {
		return NewSealer(material)
	}

	if len(material) != saltLength {
		return nil, errors.Wrapf(ErrInvalidKey, "salt file must be %d bytes, got %d", saltLength, len(material))
	}
	return NewSealer(DeriveKey(passphrase, material))
}

// DeriveKey выводит ключ шифрования из пароля и соли
func DeriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, argon2Time, argon2Memory, argon2Threads, chacha20poly1305.KeySize)
}

func generateKeyFile(path string, size int) ([]byte, error) {
	material := make([]byte, size)
	if _, err := io.ReadFull(rand.Reader, material); err != nil {
		return nil, errors.Wrap(err, "generate key")
	}

	if err := os.MkdirAll(filepath.Dir(path), keyDirPermissions); err != nil {
		return nil, errors.Wrap(err, "create key directory")
	}
	if err := os.WriteFile(path, material, keyFilePermissions); err != nil {
		return nil, errors.Wrap(err, "write key file")
	}
	return material, nil
}

// Seal шифрует значение. Пустая строка не шифруется.
func (s *Sealer) Seal(plain string) (string, error) {
	if plain == "" {
		return "", nil
	}

	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return "", errors.Wrap(err, "create cipher")
	}

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plain)+aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", errors.Wrap(err, "generate nonce")
	}

	sealed := aead.Seal(nonce, nonce, []byte(plain), nil)
	return sealedPrefix + base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Open расшифровывает значение. Значения без префикса возвращаются как есть.
func (s *Sealer) Open(value string) (string, error) {
	if !strings.HasPrefix(value, sealedPrefix) {
		return value, nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(value, sealedPrefix))
	if err != nil {
		return "", errors.Wrap(err, "decode sealed value")
	}

	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return "", errors.Wrap(err, "create cipher")
	}
	if len(raw) < aead.NonceSize()+aead.Overhead() {
		return "", errors.New("sealed value is too short")
	}

	nonce, ciphertext := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", errors.Wrap(err, "open sealed value")
	}
	return string(plain), nil
}
