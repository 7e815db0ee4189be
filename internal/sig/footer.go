package sig

import (
	"encoding/hex"
	"io"
	"strings"

	"github.com/pkg/errors"

	"github.com/meisterluk/dirsig/internal/hashalgo"
)

// ErrInvalidData is returned by ExtractFooterDigest for any structural
// mismatch in the source (spec.md §6.2).
var ErrInvalidData = errors.New("invalid data")

// ExtractFooterDigest implements the hash-extraction helper from spec.md
// §6.2: given any source supporting sequential read and seek-to-end, it
// identifies the declared algorithm from the header's first bytes, seeks
// directly to the footer without reading the body, and decodes it.
func ExtractFooterDigest(rs io.ReadSeeker) ([32]byte, hashalgo.Name, error) {
	var digest [32]byte

	const magicPrefix = Magic + " "
	prefixBuf := make([]byte, len(magicPrefix))
	if _, err := io.ReadFull(rs, prefixBuf); err != nil {
		return digest, "", errors.Wrap(ErrInvalidData, "reading magic: "+errOrEOF(err))
	}
	if string(prefixBuf) != magicPrefix {
		return digest, "", errors.Wrapf(ErrInvalidData, "expected %q prefix", magicPrefix)
	}

	algoName, err := readUntilSpace(rs)
	if err != nil {
		return digest, "", errors.Wrap(ErrInvalidData, "reading hash_type: "+err.Error())
	}
	name := hashalgo.Name(algoName)
	if !hashalgo.Valid(name) {
		return digest, "", errors.Wrapf(ErrInvalidData, "unsupported hash type %q", algoName)
	}
	l := hashalgo.Size * 2 // hex-encoded byte length

	end, err := rs.Seek(0, io.SeekEnd)
	if err != nil {
		return digest, "", errors.Wrap(ErrInvalidData, err.Error())
	}
	footerStart := end - int64(l) - 2
	if footerStart < 0 {
		return digest, "", errors.Wrap(ErrInvalidData, "stream too short for footer")
	}
	if _, err := rs.Seek(footerStart, io.SeekStart); err != nil {
		return digest, "", errors.Wrap(ErrInvalidData, err.Error())
	}

	framed := make([]byte, l+2)
	if _, err := io.ReadFull(rs, framed); err != nil {
		return digest, "", errors.Wrap(ErrInvalidData, "reading footer frame: "+errOrEOF(err))
	}
	if framed[0] != '\n' || framed[len(framed)-1] != '\n' {
		return digest, "", errors.Wrap(ErrInvalidData, "footer is not bracketed by newlines")
	}
	hexDigits := framed[1 : len(framed)-1]
	raw, err := hex.DecodeString(string(hexDigits))
	if err != nil {
		return digest, "", errors.Wrap(ErrInvalidData, err.Error())
	}
	copy(digest[:], raw)
	return digest, name, nil
}

func errOrEOF(err error) string {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return "unexpected end of file"
	}
	return err.Error()
}

// readUntilSpace reads bytes one at a time up to (and consuming) the next
// space, returning everything before it.
func readUntilSpace(r io.Reader) (string, error) {
	var sb strings.Builder
	buf := make([]byte, 1)
	for {
		if _, err := io.ReadFull(r, buf); err != nil {
			return "", err
		}
		if buf[0] == ' ' {
			return sb.String(), nil
		}
		sb.WriteByte(buf[0])
		if sb.Len() > 64 {
			return "", errors.New("hash_type token too long")
		}
	}
}
