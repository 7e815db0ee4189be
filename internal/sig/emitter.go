package sig

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/pkg/errors"

	"github.com/meisterluk/dirsig/internal/hashalgo"
)

// Emitter writes signature rows to a sink while simultaneously feeding
// every byte written into a running whole-output hasher, so Finish can
// produce the footer without a second pass over the data (spec.md §4.2).
type Emitter struct {
	sink      io.Writer
	whole     hashalgo.Hash
	blockSize int
	hashType  hashalgo.Name
	finished  bool
}

// NewEmitter writes the header line to sink and initializes the
// whole-output hasher with it, per spec.md §4.2.
func NewEmitter(sink io.Writer, hashType hashalgo.Name, blockSize int) (*Emitter, error) {
	whole, err := hashalgo.New(hashType)
	if err != nil {
		return nil, errors.Wrap(err, "NewEmitter")
	}
	e := &Emitter{sink: sink, whole: whole, blockSize: blockSize, hashType: hashType}
	header := Header{Version: "v1", HashType: hashType, BlockSize: blockSize}
	if err := e.write(header.Bytes()); err != nil {
		return nil, err
	}
	return e, nil
}

// write sends b to the sink and tees it through the whole-output hasher.
func (e *Emitter) write(b []byte) error {
	if _, err := e.sink.Write(b); err != nil {
		return errors.Wrap(ErrWriteError, err.Error())
	}
	if _, err := e.whole.Write(b); err != nil {
		return errors.Wrap(ErrWriteError, err.Error())
	}
	return nil
}

// StartDir writes a directory row. The caller is responsible for ensuring
// absolutePath is absolute and that directories are emitted in ascending
// order after their containing parent (spec.md §4.2); the Emitter does not
// validate ordering. The path is escaped the same way file and symlink
// names are, since '/' falls outside the escaped byte ranges and so passes
// through untouched; Parser.parseDirRow unescapes every directory row it
// reads, so an unescaped write here would fail to round-trip.
func (e *Emitter) StartDir(absolutePath string) error {
	return e.write(append(escape([]byte(absolutePath)), '\n'))
}

// AddFile writes a file row. The caller must ensure len(blockHashes) ==
// ceil(size/blockSize); the Emitter trusts the caller.
func (e *Emitter) AddFile(name string, executable bool, size uint64, blockHashes [][32]byte) error {
	kind := "f"
	if executable {
		kind = "x"
	}
	line := fmt.Sprintf("  %s %s %d", escape([]byte(name)), kind, size)
	for _, h := range blockHashes {
		line += " " + hex.EncodeToString(h[:])
	}
	return e.write([]byte(line + "\n"))
}

// AddSymlink writes a symlink row.
func (e *Emitter) AddSymlink(name, target string) error {
	line := fmt.Sprintf("  %s s %s", escape([]byte(name)), escape([]byte(target)))
	return e.write([]byte(line + "\n"))
}

// Finish reads the current whole-output digest, appends it as the footer
// line without feeding the footer itself back into the hasher (spec.md
// §4.2), and returns that digest so a caller can report or compare it.
// Finish must be called exactly once.
func (e *Emitter) Finish() ([32]byte, error) {
	if e.finished {
		return [32]byte{}, errors.New("Emitter.Finish called twice")
	}
	e.finished = true
	digest := e.whole.Sum()
	footer := hex.EncodeToString(digest[:]) + "\n"
	if _, err := e.sink.Write([]byte(footer)); err != nil {
		return digest, errors.Wrap(ErrWriteError, err.Error())
	}
	return digest, nil
}
