// Package sig implements the on-disk directory-signature format: the
// header/entry/footer grammar, path escaping, the streaming Emitter and
// Parser, and the footer-extraction helper.
package sig

import (
	"fmt"

	"github.com/pkg/errors"
)

// RowKind enumerates the row-level parse failure sub-kinds from spec.md §7.
type RowKind string

const (
	MissingHeader       RowKind = "MissingHeader"
	InvalidSignature    RowKind = "InvalidSignature"
	MissingVersion      RowKind = "MissingVersion"
	InvalidVersion      RowKind = "InvalidVersion"
	MissingHashType     RowKind = "MissingHashType"
	UnsupportedHashType RowKind = "UnsupportedHashType"
	MissingBlockSize    RowKind = "MissingBlockSize"
	InvalidBlockSize    RowKind = "InvalidBlockSize"
	InvalidHeader       RowKind = "InvalidHeader"
	InvalidHash         RowKind = "InvalidHash"
	InvalidFileType     RowKind = "InvalidFileType"
	InvalidLine         RowKind = "InvalidLine"
	InvalidHex          RowKind = "InvalidHex"
	InvalidUtf8         RowKind = "InvalidUtf8"
	InvalidInt          RowKind = "InvalidInt"
)

// RowError is a structured parse failure at a specific row, corresponding
// to the Parse(row_error, row_number) error kind in spec.md §7.
type RowError struct {
	Kind   RowKind
	Row    int64
	Detail string
}

func (e *RowError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("row %d: %s", e.Row, e.Kind)
	}
	return fmt.Sprintf("row %d: %s: %s", e.Row, e.Kind, e.Detail)
}

func rowErr(row int64, kind RowKind, detail string) error {
	return &RowError{Kind: kind, Row: row, Detail: detail}
}

// ErrWriteError wraps a downstream I/O failure from an Emitter write.
var ErrWriteError = errors.New("write error")

// ErrUnsupportedHashType is the error value for a hash_type this package
// does not implement. ParseHeader does not return it: it reports that case
// as a *RowError of kind UnsupportedHashType.
var ErrUnsupportedHashType = errors.New("unsupported hash type")
