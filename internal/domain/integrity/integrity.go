// Package integrity provides content checksums for plugin artifact sets.
package integrity

import (
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Integrity errors.
var (
	ErrUnsupportedAlgorithm = errors.New("unsupported hash algorithm")
	ErrEmptyHash            = errors.New("hash cannot be empty")
	ErrInvalidHash          = errors.New("invalid hash format")
)

// Supported hash algorithms.
const (
	AlgorithmSHA256  = "sha256"
	AlgorithmSHA512  = "sha512"
	AlgorithmBLAKE2b = "blake2b-256"
)

// DefaultAlgorithm is used when no algorithm is configured.
const DefaultAlgorithm = AlgorithmSHA256

// hashLengths maps algorithm to expected hex string length.
var hashLengths = map[string]int{
	AlgorithmSHA256:  64,
	AlgorithmSHA512:  128,
	AlgorithmBLAKE2b: 64,
}

// Algorithms returns the supported algorithm names.
func Algorithms() []string {
	return []string{AlgorithmSHA256, AlgorithmSHA512, AlgorithmBLAKE2b}
}

// NewHash returns a streaming hash for the algorithm.
func NewHash(algorithm string) (hash.Hash, error) {
	switch algorithm {
	case AlgorithmSHA256:
		return sha256.New(), nil
	case AlgorithmSHA512:
		return sha512.New(), nil
	case AlgorithmBLAKE2b:
		return blake2b.New256(nil)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, algorithm)
	}
}

// Integrity represents a content integrity hash.
// It is an immutable value object.
type Integrity struct {
	algorithm string
	hash      string
}

// New creates a new Integrity value object.
// Returns an error if the algorithm is unsupported or the hash is invalid.
func New(algorithm, sum string) (Integrity, error) {
	expectedLen, ok := hashLengths[algorithm]
	if !ok {
		return Integrity{}, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, algorithm)
	}

	if sum == "" {
		return Integrity{}, ErrEmptyHash
	}

	if _, err := hex.DecodeString(sum); err != nil {
		return Integrity{}, fmt.Errorf("%w: invalid hex encoding", ErrInvalidHash)
	}

	if len(sum) != expectedLen {
		return Integrity{}, fmt.Errorf("%w: expected %d chars for %s, got %d",
			ErrInvalidHash, expectedLen, algorithm, len(sum))
	}

	return Integrity{
		algorithm: algorithm,
		hash:      strings.ToLower(sum),
	}, nil
}

// FromHash finalizes a streaming hash created by NewHash.
func FromHash(algorithm string, h hash.Hash) Integrity {
	return Integrity{
		algorithm: algorithm,
		hash:      hex.EncodeToString(h.Sum(nil)),
	}
}

// FromData computes an integrity hash from data.
func FromData(algorithm string, data []byte) (Integrity, error) {
	h, err := NewHash(algorithm)
	if err != nil {
		return Integrity{}, err
	}
	_, _ = h.Write(data)
	return FromHash(algorithm, h), nil
}

// Parse parses an integrity string in the format "algorithm:hash".
func Parse(s string) (Integrity, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Integrity{}, fmt.Errorf("%w: empty string", ErrInvalidHash)
	}

	algorithm, sum, ok := strings.Cut(s, ":")
	if !ok {
		return Integrity{}, fmt.Errorf("%w: missing colon separator", ErrInvalidHash)
	}

	if algorithm == "" {
		return Integrity{}, fmt.Errorf("%w: empty algorithm", ErrInvalidHash)
	}

	if sum == "" {
		return Integrity{}, fmt.Errorf("%w: empty hash", ErrInvalidHash)
	}

	return New(algorithm, sum)
}

// Algorithm returns the hash algorithm.
func (i Integrity) Algorithm() string {
	return i.algorithm
}

// Hash returns the hex-encoded hash value.
func (i Integrity) Hash() string {
	return i.hash
}

// String returns the integrity in "algorithm:hash" format.
func (i Integrity) String() string {
	if i.IsZero() {
		return ""
	}
	return i.algorithm + ":" + i.hash
}

// IsZero returns true if this is a zero-value Integrity.
func (i Integrity) IsZero() bool {
	return i.algorithm == "" && i.hash == ""
}

// Equal compares two integrity values in constant time.
func (i Integrity) Equal(other Integrity) bool {
	if i.algorithm != other.algorithm {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(i.hash), []byte(other.hash)) == 1
}

// Verify checks if the given data matches this integrity hash.
func (i Integrity) Verify(data []byte) bool {
	if i.IsZero() {
		return false
	}
	computed, err := FromData(i.algorithm, data)
	if err != nil {
		return false
	}
	return i.Equal(computed)
}

// MarshalText implements encoding.TextMarshaler.
func (i Integrity) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (i *Integrity) UnmarshalText(data []byte) error {
	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}
