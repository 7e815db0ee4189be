// Package hashalgo provides a uniform interface over the two digest
// families a signature may declare, and the streaming block-hashing
// routine the scanner and verifier build on top of it.
package hashalgo

import (
	"io"

	"github.com/pkg/errors"
)

// Size is the digest length, in bytes, of every supported algorithm.
const Size = 32

// Name identifies an algorithm by its on-wire name, e.g. "sha512/256".
type Name string

const (
	// SHA512_256 is SHA-512/256, truncated per FIPS 180-4.
	SHA512_256 Name = "sha512/256"
	// BLAKE2b_256 is BLAKE2b with a 256-bit output.
	BLAKE2b_256 Name = "blake2b/256"
)

// ErrUnsupportedHashType is returned when a header or CLI flag names an
// algorithm this package does not implement.
var ErrUnsupportedHashType = errors.New("unsupported hash type")

// Hash is a resettable digest state. Allocate with New, absorb bytes with
// Write, and call Sum to finalize and reset in one step.
//
// Hash also satisfies io.Writer so an Emitter can tee its output stream
// through it without a separate adapter.
type Hash interface {
	io.Writer
	// Sum finalizes the digest to exactly Size bytes and resets the
	// state so the instance is immediately reusable.
	Sum() [Size]byte
	// Clone returns a fresh, independent Hash of the same algorithm; the
	// bytes already absorbed by the receiver are not carried over, so the
	// new instance never shares state with the one it was spawned from.
	Clone() Hash
}

// New allocates a fresh Hash for the named algorithm.
func New(name Name) (Hash, error) {
	switch name {
	case SHA512_256:
		return newSHA512_256(), nil
	case BLAKE2b_256:
		return newBLAKE2b256(), nil
	default:
		return nil, errors.Wrapf(ErrUnsupportedHashType, "%q", name)
	}
}

// Valid reports whether name is a recognized algorithm.
func Valid(name Name) bool {
	switch name {
	case SHA512_256, BLAKE2b_256:
		return true
	default:
		return false
	}
}

// Names returns the supported algorithm names in a stable order.
func Names() []Name {
	return []Name{SHA512_256, BLAKE2b_256}
}
