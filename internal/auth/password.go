package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// Algorithm versions a stored hash so it can be rotated on login.
type Algorithm string

const (
	AlgorithmBcrypt   Algorithm = "bcrypt"
	AlgorithmArgon2id Algorithm = "argon2id"
)

var (
	ErrUnsupportedHash = errors.New("unsupported password hash")
	ErrPasswordTooLong = errors.New("password exceeds 72 bytes")
)

// bcrypt reads only the first 72 bytes of its input.
const bcryptMaxInput = 72

// Argon2Params are the argon2id cost parameters.
type Argon2Params struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

var DefaultArgon2Params = Argon2Params{
	Memory:      64 * 1024,
	Iterations:  3,
	Parallelism: 2,
	SaltLength:  16,
	KeyLength:   32,
}

// PasswordHasher produces salted slow hashes and verifies stored ones of any
// supported algorithm.
type PasswordHasher struct {
	algorithm  Algorithm
	bcryptCost int
	argon      Argon2Params

	dummyOnce sync.Once
	dummyHash string
}

func NewPasswordHasher(algorithm string, cost int) (*PasswordHasher, error) {
	alg := Algorithm(algorithm)
	switch alg {
	case AlgorithmBcrypt:
		if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
			return nil, fmt.Errorf("bcrypt cost %d out of range", cost)
		}
	case AlgorithmArgon2id:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedHash, algorithm)
	}
	return &PasswordHasher{
		algorithm:  alg,
		bcryptCost: cost,
		argon:      DefaultArgon2Params,
	}, nil
}

// WithArgon2Params overrides the argon2id parameters.
func (h *PasswordHasher) WithArgon2Params(p Argon2Params) *PasswordHasher {
	h.argon = p
	return h
}

func (h *PasswordHasher) Algorithm() Algorithm {
	return h.algorithm
}

func (h *PasswordHasher) Hash(password string) (string, Algorithm, error) {
	if password == "" {
		return "", "", errors.New("password is empty")
	}
	switch h.algorithm {
	case AlgorithmArgon2id:
		hash, err := hashArgon2id(password, h.argon)
		return hash, AlgorithmArgon2id, err
	default:
		if len(password) > bcryptMaxInput {
			return "", "", ErrPasswordTooLong
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(password), h.bcryptCost)
		if err != nil {
			return "", "", err
		}
		return string(hash), AlgorithmBcrypt, nil
	}
}

// Verify reports whether password matches hash. A mismatch is (false, nil);
// errors mean the stored hash itself is unusable.
func (h *PasswordHasher) Verify(hash string, alg Algorithm, password string) (bool, error) {
	switch alg {
	case AlgorithmBcrypt:
		// A longer secret would be truncated and match on its prefix alone.
		if len(password) > bcryptMaxInput {
			return false, nil
		}
		err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("comparing bcrypt hash: %w", err)
		}
		return true, nil
	case AlgorithmArgon2id:
		return verifyArgon2id(hash, password)
	default:
		return false, fmt.Errorf("%w: %q", ErrUnsupportedHash, alg)
	}
}

// NeedsRehash reports whether a stored hash was made with a different
// algorithm or weaker parameters than the current configuration.
func (h *PasswordHasher) NeedsRehash(hash string, alg Algorithm) bool {
	if alg != h.algorithm {
		return true
	}
	switch alg {
	case AlgorithmBcrypt:
		cost, err := bcrypt.Cost([]byte(hash))
		return err != nil || cost != h.bcryptCost
	case AlgorithmArgon2id:
		p, _, _, err := decodeArgon2id(hash)
		return err != nil || p.Memory != h.argon.Memory || p.Iterations != h.argon.Iterations || p.Parallelism != h.argon.Parallelism
	}
	return true
}

// DummyVerify spends the same work as a real verification. It is used when
// no credential exists so a lookup miss costs as much as a wrong password.
func (h *PasswordHasher) DummyVerify(password string) {
	h.dummyOnce.Do(func() {
		hash, _, err := h.Hash("not-a-real-password")
		if err == nil {
			h.dummyHash = hash
		}
	})
	if h.dummyHash == "" {
		return
	}
	_, _ = h.Verify(h.dummyHash, h.algorithm, password)
}

func hashArgon2id(password string, p Argon2Params) (string, error) {
	salt := make([]byte, p.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	key := argon2.IDKey([]byte(password), salt, p.Iterations, p.Memory, p.Parallelism, p.KeyLength)

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

func verifyArgon2id(encoded, password string) (bool, error) {
	p, salt, key, err := decodeArgon2id(encoded)
	if err != nil {
		return false, err
	}
	other := argon2.IDKey([]byte(password), salt, p.Iterations, p.Memory, p.Parallelism, uint32(len(key)))
	return subtle.ConstantTimeCompare(key, other) == 1, nil
}

func decodeArgon2id(encoded string) (Argon2Params, []byte, []byte, error) {
	var p Argon2Params
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return p, nil, nil, fmt.Errorf("%w: malformed argon2id hash", ErrUnsupportedHash)
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return p, nil, nil, fmt.Errorf("%w: %v", ErrUnsupportedHash, err)
	}
	if version != argon2.Version {
		return p, nil, nil, fmt.Errorf("%w: argon2 version %d", ErrUnsupportedHash, version)
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Iterations, &p.Parallelism); err != nil {
		return p, nil, nil, fmt.Errorf("%w: %v", ErrUnsupportedHash, err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return p, nil, nil, fmt.Errorf("%w: salt: %v", ErrUnsupportedHash, err)
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return p, nil, nil, fmt.Errorf("%w: key: %v", ErrUnsupportedHash, err)
	}
	p.SaltLength = uint32(len(salt))
	p.KeyLength = uint32(len(key))
	return p, salt, key, nil
}
