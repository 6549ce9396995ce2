package user

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// Hasher turns a plaintext secret into a salted one-way hash and checks secrets against it.
type Hasher interface {
	Hash(secret string) (string, error)
	Compare(hash, secret string) (bool, error)
}

// NewHasher returns the Hasher registered under name ("bcrypt" or "argon2").
func NewHasher(name string, bcryptCost int) (Hasher, error) {
	switch name {
	case "", "bcrypt":
		return NewBcryptHasher(bcryptCost), nil
	case "argon2":
		return NewArgon2Hasher(), nil
	default:
		return nil, fmt.Errorf("unknown password hasher %q", name)
	}
}

// BcryptHasher hashes secrets with bcrypt.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher returns a BcryptHasher. Out-of-range costs fall back to bcrypt.DefaultCost.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

// bcryptInput digests the secret so its length never reaches bcrypt's 72-byte limit and
// bytes past that limit still count.
func bcryptInput(secret string) []byte {
	sum := sha256.Sum256([]byte(secret))
	return []byte(base64.StdEncoding.EncodeToString(sum[:]))
}

func (h *BcryptHasher) Hash(secret string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword(bcryptInput(secret), h.cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt hash: %w", err)
	}
	return string(hashed), nil
}

func (h *BcryptHasher) Compare(hash, secret string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), bcryptInput(secret))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, fmt.Errorf("bcrypt compare: %w", err)
}

// Argon2 parameters (OWASP baseline for argon2id).
const (
	argonMemory      = 64 * 1024
	argonIterations  = 3
	argonParallelism = 2
	argonSaltLength  = 16
	argonKeyLength   = 32
)

// Argon2Hasher hashes secrets with argon2id and encodes them in the PHC string format.
type Argon2Hasher struct{}

// NewArgon2Hasher returns an Argon2Hasher.
func NewArgon2Hasher() *Argon2Hasher {
	return &Argon2Hasher{}
}

func (h *Argon2Hasher) Hash(secret string) (string, error) {
	salt := make([]byte, argonSaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("argon2 salt: %w", err)
	}

	key := argon2.IDKey([]byte(secret), salt, argonIterations, argonMemory, argonParallelism, argonKeyLength)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemory, argonIterations, argonParallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

func (h *Argon2Hasher) Compare(hash, secret string) (bool, error) {
	parts := strings.Split(hash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, errors.New("invalid argon2id hash format")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false, fmt.Errorf("argon2 version: %w", err)
	}
	if version != argon2.Version {
		return false, fmt.Errorf("unsupported argon2 version %d", version)
	}

	var memory, iterations uint32
	var parallelism uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism); err != nil {
		return false, fmt.Errorf("argon2 parameters: %w", err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, fmt.Errorf("argon2 salt: %w", err)
	}

	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, fmt.Errorf("argon2 key: %w", err)
	}

	actual := argon2.IDKey([]byte(secret), salt, iterations, memory, parallelism, uint32(len(expected)))

	return subtle.ConstantTimeCompare(expected, actual) == 1, nil
}
