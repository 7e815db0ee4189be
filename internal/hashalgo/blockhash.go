package hashalgo

import (
	"io"

	"github.com/pkg/errors"
)

// ErrReadFile wraps any I/O error surfaced while streaming a file's blocks,
// matching the ReadFile error kind from spec.md §7.
var ErrReadFile = errors.New("read file")

// BlockHashes consumes r in consecutive blockSize-sized reads, finalizing
// one digest per block. The final block may be short. A zero-length r
// yields zero digests, matching the "empty file" rule in spec.md §3.
func BlockHashes(r io.Reader, h Hash, blockSize int) ([][Size]byte, error) {
	if blockSize <= 0 {
		return nil, errors.New("block size must be positive")
	}
	buf := make([]byte, blockSize)
	var hashes [][Size]byte

	for {
		n, err := io.ReadFull(r, buf)
		if n > 0 {
			if _, werr := h.Write(buf[:n]); werr != nil {
				return nil, errors.Wrap(ErrReadFile, werr.Error())
			}
			hashes = append(hashes, h.Sum())
		}
		switch err {
		case nil:
			continue
		case io.EOF, io.ErrUnexpectedEOF:
			return hashes, nil
		default:
			return nil, errors.Wrap(ErrReadFile, err.Error())
		}
	}
}
