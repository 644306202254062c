package cryptox

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// ErrMismatch is returned by Verify when the secret does not match the hash.
var ErrMismatch = errors.New("cryptox: secret does not match")

// Params is the Argon2id work factor. Verify reads the parameters embedded in
// the encoded hash, so raising them only affects newly hashed secrets.
type Params struct {
	Memory      uint32 // KiB
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultParams follows the OWASP Argon2id baseline (19 MiB, t=2, p=1).
var DefaultParams = Params{
	Memory:      19 * 1024,
	Iterations:  2,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

// Validate rejects parameters that would make the hash trivially cheap.
func (p Params) Validate() error {
	switch {
	case p.Memory < 8*uint32(p.Parallelism) || p.Memory == 0:
		return fmt.Errorf("cryptox: argon2 memory %d KiB too small", p.Memory)
	case p.Iterations < 1:
		return errors.New("cryptox: argon2 iterations must be at least 1")
	case p.Parallelism < 1:
		return errors.New("cryptox: argon2 parallelism must be at least 1")
	case p.SaltLength < 8:
		return errors.New("cryptox: argon2 salt must be at least 8 bytes")
	case p.KeyLength < 16:
		return errors.New("cryptox: argon2 key must be at least 16 bytes")
	}
	return nil
}

// Hasher produces and checks PHC-format Argon2id hashes. It is used for
// account passwords and two-factor backup codes.
type Hasher struct {
	Params Params
	Pepper string
}

// NewHasher returns a Hasher with the given work factor.
func NewHasher(params Params, pepper string) (*Hasher, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Hasher{Params: params, Pepper: pepper}, nil
}

// Hash generates a PHC-format Argon2id hash string including salt and parameters.
func (h *Hasher) Hash(secret string) (string, error) {
	p := h.Params
	salt := make([]byte, p.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	key := argon2.IDKey([]byte(secret+h.Pepper), salt, p.Iterations, p.Memory, p.Parallelism, p.KeyLength)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		p.Memory,
		p.Iterations,
		p.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify compares a plaintext secret against a PHC-style Argon2id hash.
// It returns ErrMismatch for a wrong secret and a format error for a hash it
// cannot parse.
func (h *Hasher) Verify(secret, encodedHash string) error {
	// ["", "argon2id", "v=19", "m=X,t=Y,p=Z", "salt", "hash"]
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		return errors.New("invalid hash format: expected 6 parts")
	}
	if parts[1] != "argon2id" {
		return errors.New("invalid hash format: not argon2id")
	}
	if parts[2] != fmt.Sprintf("v=%d", argon2.Version) {
		return errors.New("invalid hash format: wrong version")
	}

	var mem, iters uint32
	var par uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &mem, &iters, &par); err != nil {
		return fmt.Errorf("invalid hash format: failed to parse parameters: %w", err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return fmt.Errorf("invalid hash format: failed to decode salt: %w", err)
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return fmt.Errorf("invalid hash format: failed to decode hash: %w", err)
	}

	computed := argon2.IDKey(
		[]byte(secret+h.Pepper),
		salt,
		iters,
		mem,
		par,
		uint32(len(expected)), // #nosec G115 - bounded by the decoded hash
	)

	if subtle.ConstantTimeCompare(computed, expected) == 1 {
		return nil
	}
	return ErrMismatch
}

// NeedsRehash reports whether encodedHash was produced with parameters other
// than the hasher's current ones.
func (h *Hasher) NeedsRehash(encodedHash string) bool {
	p := h.Params
	want := fmt.Sprintf("m=%d,t=%d,p=%d", p.Memory, p.Iterations, p.Parallelism)
	parts := strings.Split(encodedHash, "$")
	return len(parts) != 6 || parts[3] != want
}
