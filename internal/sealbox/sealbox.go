// Copyright (C) 2025-2026 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

// Package sealbox derives a symmetric key from a secret and seals short
// values with XChaCha20-Poly1305. Key derivation uses Argon2id; the
// parameters travel with the salt so a store written with one setting can
// be read after the defaults change.
package sealbox

import (
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const SaltSize = 16

var (
	// ErrOpen is returned when a sealed value fails authentication, which
	// means either the key is wrong or the value was tampered with.
	ErrOpen = errors.New("sealed value failed authentication")

	ErrEmptySecret = errors.New("secret must not be empty")
)

// Params are the Argon2id cost parameters. Memory is in KiB.
type Params struct {
	Time    uint32
	Memory  uint32
	Threads uint8
}

var DefaultParams = Params{Time: 1, Memory: 64 * 1024, Threads: 4}

func (p Params) String() string {
	return fmt.Sprintf("argon2id$t=%d$m=%d$p=%d", p.Time, p.Memory, p.Threads)
}

func (p Params) validate() error {
	if p.Time == 0 || p.Memory == 0 || p.Threads == 0 {
		return fmt.Errorf("invalid key derivation parameters %s", p)
	}
	return nil
}

// ParseParams is the inverse of Params.String.
func ParseParams(s string) (Params, error) {
	parts := strings.Split(s, "$")
	if len(parts) != 4 || parts[0] != "argon2id" {
		return Params{}, fmt.Errorf("unrecognized key derivation %q", s)
	}

	var p Params
	for _, part := range parts[1:] {
		name, raw, ok := strings.Cut(part, "=")
		if !ok {
			return Params{}, fmt.Errorf("malformed key derivation field %q", part)
		}
		switch name {
		case "t":
			n, err := strconv.ParseUint(raw, 10, 32)
			if err != nil {
				return Params{}, fmt.Errorf("key derivation time: %w", err)
			}
			p.Time = uint32(n)
		case "m":
			n, err := strconv.ParseUint(raw, 10, 32)
			if err != nil {
				return Params{}, fmt.Errorf("key derivation memory: %w", err)
			}
			p.Memory = uint32(n)
		case "p":
			n, err := strconv.ParseUint(raw, 10, 8)
			if err != nil {
				return Params{}, fmt.Errorf("key derivation threads: %w", err)
			}
			p.Threads = uint8(n)
		default:
			return Params{}, fmt.Errorf("unknown key derivation field %q", name)
		}
	}
	if err := p.validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}

// NewSalt returns SaltSize random bytes.
func NewSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generating salt: %w", err)
	}
	return salt, nil
}

// Box seals and opens values under one derived key.
type Box struct {
	aead cipher.AEAD
}

// New derives a key from secret and salt. The derived key bytes are wiped
// once the cipher holds its own copy; secret is left to the caller.
func New(secret, salt []byte, p Params) (*Box, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}
	if len(salt) < SaltSize {
		return nil, fmt.Errorf("salt must be at least %d bytes, got %d", SaltSize, len(salt))
	}
	if err := p.validate(); err != nil {
		return nil, err
	}

	key := argon2.IDKey(secret, salt, p.Time, p.Memory, p.Threads, chacha20poly1305.KeySize)
	defer Wipe(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	return &Box{aead: aead}, nil
}

// Seal encrypts plaintext and binds it to aad. The result is the random
// nonce followed by the ciphertext.
func (b *Box) Seal(plaintext, aad []byte) ([]byte, error) {
	nonce := make([]byte, b.aead.NonceSize(), b.aead.NonceSize()+len(plaintext)+b.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}
	return b.aead.Seal(nonce, nonce, plaintext, aad), nil
}

// Open reverses Seal. The aad must match the one used to seal.
func (b *Box) Open(sealed, aad []byte) ([]byte, error) {
	ns := b.aead.NonceSize()
	if len(sealed) < ns+b.aead.Overhead() {
		return nil, ErrOpen
	}
	out, err := b.aead.Open(nil, sealed[:ns], sealed[ns:], aad)
	if err != nil {
		return nil, ErrOpen
	}
	return out, nil
}

// Wipe zeroes b.
func Wipe(b []byte) {
	clear(b)
}
