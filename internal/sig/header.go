package sig

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/meisterluk/dirsig/internal/hashalgo"
)

// Magic is the fixed signature string that opens every header line.
const Magic = "DIRSIGNATURE.v1"

// DefaultBlockSize is used when a caller does not specify one.
const DefaultBlockSize = 32768

// Header is immutable once constructed: version, hash_type and block_size
// are constant for the whole file (spec.md §3 invariant 6).
type Header struct {
	Version   string
	HashType  hashalgo.Name
	BlockSize int
}

// Bytes renders the header line, including its trailing newline.
func (h Header) Bytes() []byte {
	return []byte(fmt.Sprintf("%s %s block_size=%d\n", Magic, h.HashType, h.BlockSize))
}

// ParseHeader parses one header line (without its trailing newline already
// stripped by the caller's line reader). It returns the row-level errors
// enumerated in spec.md §4.4.
func ParseHeader(line []byte) (Header, error) {
	if !utf8.Valid(line) {
		return Header{}, rowErr(0, InvalidHeader, "header is not valid UTF-8")
	}
	s := string(line)
	if s == "" {
		return Header{}, rowErr(0, MissingHeader, "empty header line")
	}

	fields := strings.Split(s, " ")
	if len(fields) < 1 || fields[0] == "" {
		return Header{}, rowErr(0, MissingHeader, "missing magic")
	}
	if !strings.HasPrefix(fields[0], "DIRSIGNATURE.") {
		return Header{}, rowErr(0, InvalidSignature, fmt.Sprintf("got %q", fields[0]))
	}
	version := strings.TrimPrefix(fields[0], "DIRSIGNATURE.")
	if version == "" {
		return Header{}, rowErr(0, MissingVersion, "")
	}
	if version != "v1" {
		return Header{}, rowErr(0, InvalidVersion, fmt.Sprintf("got %q", version))
	}

	if len(fields) < 2 || fields[1] == "" {
		return Header{}, rowErr(0, MissingHashType, "")
	}
	hashType := hashalgo.Name(fields[1])
	if !hashalgo.Valid(hashType) {
		return Header{}, rowErr(0, UnsupportedHashType, fmt.Sprintf("got %q", hashType))
	}

	if len(fields) < 3 || fields[2] == "" {
		return Header{}, rowErr(0, MissingBlockSize, "")
	}
	const prefix = "block_size="
	if !strings.HasPrefix(fields[2], prefix) {
		return Header{}, rowErr(0, MissingBlockSize, fmt.Sprintf("got %q", fields[2]))
	}
	digits := strings.TrimPrefix(fields[2], prefix)
	blockSize, err := parseDecimalUint(digits)
	if err != nil {
		return Header{}, rowErr(0, InvalidBlockSize, err.Error())
	}
	if blockSize <= 0 {
		return Header{}, rowErr(0, InvalidBlockSize, "must be positive")
	}

	if len(fields) > 3 {
		return Header{}, rowErr(0, InvalidLine, "extra tokens after block_size")
	}

	return Header{Version: version, HashType: hashType, BlockSize: blockSize}, nil
}

// parseDecimalUint is the decimal-only integer parser spec.md §9 requires:
// no leading '+', no "0x", no whitespace, no empty string.
func parseDecimalUint(s string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("empty integer")
	}
	for i, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("non-decimal-digit %q at position %d", r, i)
		}
	}
	if len(s) > 1 && s[0] == '0' {
		return 0, fmt.Errorf("leading zero not allowed")
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	if n > int64(^uint(0)>>1) {
		return 0, fmt.Errorf("integer overflow")
	}
	return int(n), nil
}
