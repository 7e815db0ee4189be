package hashalgo

import "crypto/sha512"

// sha512256State wraps the stdlib's truncated SHA-512 variant. No
// third-party library is used here: crypto/sha512.New512_256 already
// implements the exact FIPS 180-4 truncation this algorithm needs, so
// reaching for an external package would only duplicate stdlib code (see
// DESIGN.md).
type sha512256State struct {
	h interface {
		Write(p []byte) (int, error)
		Sum(b []byte) []byte
		Reset()
	}
}

func newSHA512_256() Hash {
	return &sha512256State{h: sha512.New512_256()}
}

func (s *sha512256State) Write(p []byte) (int, error) {
	return s.h.Write(p)
}

func (s *sha512256State) Sum() [Size]byte {
	var out [Size]byte
	copy(out[:], s.h.Sum(nil))
	s.h.Reset()
	return out
}

func (s *sha512256State) Clone() Hash {
	return &sha512256State{h: sha512.New512_256()}
}
