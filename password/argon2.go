package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	minMemoryKB   uint32 = 8 * 1024
	minSaltLength uint32 = 16
	minKeyLength  uint32 = 16
	// MinLength is the shortest accepted password, in bytes.
	MinLength   = 8
	algorithmID = "argon2id"
)

var (
	ErrTooShort    = fmt.Errorf("password must be at least %d bytes", MinLength)
	ErrInvalidHash = errors.New("invalid PHC hash")
	ErrWeakConfig  = errors.New("argon2 parameters below minimum")
)

// Config holds argon2id cost parameters. Memory is in KiB.
type Config struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultConfig returns 19 MiB, two passes, one lane.
func DefaultConfig() Config {
	return Config{
		Memory:      19 * 1024,
		Time:        2,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Argon2 hashes with a fixed Config. Safe for concurrent use.
type Argon2 struct {
	config Config
}

// phc is a decoded hash string.
type phc struct {
	params Config
	salt   []byte
	key    []byte
}

// NewArgon2 validates cfg and returns a hasher.
func NewArgon2(cfg Config) (*Argon2, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Argon2{config: cfg}, nil
}

// Hash derives a PHC-encoded hash of password with a fresh salt.
func (a *Argon2) Hash(password string) (string, error) {
	if len(password) < MinLength {
		return "", ErrTooShort
	}

	salt := make([]byte, a.config.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("read salt: %w", err)
	}
	c := a.config
	key := argon2.IDKey([]byte(password), salt, c.Time, c.Memory, c.Parallelism, c.KeyLength)

	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID, argon2.Version, c.Memory, c.Time, c.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether password matches encoded. The parameters come from
// encoded, not from the hasher.
func (a *Argon2) Verify(password, encoded string) (bool, error) {
	h, err := decode(encoded)
	if err != nil {
		return false, err
	}
	p := h.params
	computed := argon2.IDKey([]byte(password), h.salt, p.Time, p.Memory, p.Parallelism, p.KeyLength)
	return subtle.ConstantTimeCompare(computed, h.key) == 1, nil
}

// NeedsUpgrade reports whether encoded was produced with weaker parameters
// or a different key length than the hasher's.
func (a *Argon2) NeedsUpgrade(encoded string) (bool, error) {
	h, err := decode(encoded)
	if err != nil {
		return false, err
	}
	p, c := h.params, a.config
	return c.Memory > p.Memory ||
		c.Time > p.Time ||
		c.Parallelism > p.Parallelism ||
		c.KeyLength != p.KeyLength, nil
}

func decode(encoded string) (phc, error) {
	var h phc

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != algorithmID {
		return h, ErrInvalidHash
	}
	if parts[2] != "v="+strconv.Itoa(argon2.Version) {
		return h, fmt.Errorf("%w: unsupported version %q", ErrInvalidHash, parts[2])
	}

	var seen int
	for _, kv := range strings.Split(parts[3], ",") {
		name, raw, ok := strings.Cut(kv, "=")
		if !ok {
			return h, fmt.Errorf("%w: parameter %q", ErrInvalidHash, kv)
		}
		bits := 32
		if name == "p" {
			bits = 8
		}
		v, err := strconv.ParseUint(raw, 10, bits)
		if err != nil || v == 0 {
			return h, fmt.Errorf("%w: parameter %q", ErrInvalidHash, kv)
		}
		switch name {
		case "m":
			h.params.Memory = uint32(v)
		case "t":
			h.params.Time = uint32(v)
		case "p":
			h.params.Parallelism = uint8(v)
		default:
			return h, fmt.Errorf("%w: parameter %q", ErrInvalidHash, kv)
		}
		seen++
	}
	if seen != 3 || h.params.Memory < minMemoryKB || h.params.Time == 0 || h.params.Parallelism == 0 {
		return h, fmt.Errorf("%w: missing parameters", ErrInvalidHash)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || uint32(len(salt)) < minSaltLength {
		return h, fmt.Errorf("%w: salt", ErrInvalidHash)
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return h, fmt.Errorf("%w: key", ErrInvalidHash)
	}
	h.salt = salt
	h.key = key
	h.params.SaltLength = uint32(len(salt))
	h.params.KeyLength = uint32(len(key))
	return h, nil
}

func (c Config) validate() error {
	switch {
	case c.Memory < minMemoryKB:
		return fmt.Errorf("%w: memory must be >= %d KiB", ErrWeakConfig, minMemoryKB)
	case c.Time < 1:
		return fmt.Errorf("%w: time must be >= 1", ErrWeakConfig)
	case c.Parallelism < 1:
		return fmt.Errorf("%w: parallelism must be >= 1", ErrWeakConfig)
	case c.SaltLength < minSaltLength:
		return fmt.Errorf("%w: salt length must be >= %d", ErrWeakConfig, minSaltLength)
	case c.KeyLength < minKeyLength:
		return fmt.Errorf("%w: key length must be >= %d", ErrWeakConfig, minKeyLength)
	}
	return nil
}
