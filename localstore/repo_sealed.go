package localstore

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

var _ Repo = (*SealedRepo)(nil)

const sealedPrefix = "v1."

// SealedRepo encrypts values before handing them to the wrapped repo. Tokens
// at rest in sqlite or redis are then useless without the store secret.
type SealedRepo struct {
	inner Repo
	aead  cipher.AEAD
}

func NewSealedRepo(inner Repo, secret string) (*SealedRepo, error) {
	if inner == nil {
		return nil, errors.New("inner repo is required")
	}
	if secret == "" {
		return nil, errors.New("store secret is required")
	}

	key := make([]byte, chacha20poly1305.KeySize)
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte("monologue localstore"))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("derive store key: %w", err)
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	return &SealedRepo{inner: inner, aead: aead}, nil
}

// Get treats values that cannot be opened as missing, e.g. after the secret rotates.
func (r *SealedRepo) Get(ctx context.Context, scope, key string) (string, bool, error) {
	sealed, ok, err := r.inner.Get(ctx, scope, key)
	if err != nil || !ok {
		return "", ok, err
	}

	value, err := r.open(scope, key, sealed)
	if err != nil {
		log.Warn().Str("scope", scope).Str("key", key).Msg("discarding unreadable stored value")
		return "", false, nil
	}
	return value, true, nil
}

func (r *SealedRepo) Set(ctx context.Context, scope, key, value string) error {
	if err := validate(scope, key); err != nil {
		return err
	}

	nonce := make([]byte, r.aead.NonceSize(), r.aead.NonceSize()+len(value)+r.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return err
	}
	out := r.aead.Seal(nonce, nonce, []byte(value), additionalData(scope, key))
	return r.inner.Set(ctx, scope, key, sealedPrefix+base64.RawURLEncoding.EncodeToString(out))
}

func (r *SealedRepo) Delete(ctx context.Context, scope string, keys ...string) error {
	return r.inner.Delete(ctx, scope, keys...)
}

func (r *SealedRepo) open(scope, key, sealed string) (string, error) {
	if len(sealed) < len(sealedPrefix) || sealed[:len(sealedPrefix)] != sealedPrefix {
		return "", errors.New("value is not sealed")
	}
	raw, err := base64.RawURLEncoding.DecodeString(sealed[len(sealedPrefix):])
	if err != nil {
		return "", err
	}
	if len(raw) < r.aead.NonceSize() {
		return "", errors.New("sealed value too short")
	}
	nonce, ciphertext := raw[:r.aead.NonceSize()], raw[r.aead.NonceSize():]
	plain, err := r.aead.Open(nil, nonce, ciphertext, additionalData(scope, key))
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// Binding scope and key stops a sealed value being replayed under another key.
func additionalData(scope, key string) []byte {
	return []byte(scope + "\x00" + key)
}
