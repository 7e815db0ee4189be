// Package merge implements the k-way co-iteration engine that walks several
// signature parsers in lockstep over the union of their entries (spec.md
// §4.5).
package merge

import (
	"fmt"
	"io"

	"github.com/pkg/errors"

	"github.com/meisterluk/dirsig/internal/hashalgo"
	"github.com/meisterluk/dirsig/internal/sig"
)

// ErrHashTypesMismatch is returned by New when the inputs do not all share
// one hash_type (spec.md §7).
var ErrHashTypesMismatch = errors.New("hash types mismatch")

// ErrBlockSizesMismatch is returned by New when the inputs do not all share
// one block_size (spec.md §7).
var ErrBlockSizesMismatch = errors.New("block sizes mismatch")

// Source is one (key, parser) pair contributed to a Merger. The key is an
// opaque label the caller attaches to identify which input an entry came
// from, typically a file path or source index.
type Source struct {
	Key    string
	Parser *sig.Parser
}

// Head is one parser's contribution to a next()/advance() result: either an
// Entry or the error its parser produced while trying to read one.
type Head struct {
	Key   string
	Entry sig.Entry
	Err   error
}

// Merger co-iterates a fixed list of parsers, never buffering more than one
// pending entry per parser (spec.md §4.5).
type Merger struct {
	sources []Source
	peeked  []*Head // nil once a parser is exhausted and that exhaustion has been surfaced
	done    []bool
}

// New validates that every source agrees on hash_type and block_size, then
// returns a Merger ready for Next/Advance. Sources are consulted in the
// given order, and that order determines a tied group's relative ordering.
func New(sources []Source) (*Merger, error) {
	if len(sources) == 0 {
		return &Merger{}, nil
	}
	first := sources[0].Parser.Header()
	for _, s := range sources[1:] {
		h := s.Parser.Header()
		if h.HashType != first.HashType {
			return nil, errors.Wrapf(ErrHashTypesMismatch, "%q vs %q", first.HashType, h.HashType)
		}
		if h.BlockSize != first.BlockSize {
			return nil, errors.Wrapf(ErrBlockSizesMismatch, "%d vs %d", first.BlockSize, h.BlockSize)
		}
	}
	return &Merger{
		sources: sources,
		peeked:  make([]*Head, len(sources)),
		done:    make([]bool, len(sources)),
	}, nil
}

// HashType returns the common hash algorithm every source agrees on.
func (m *Merger) HashType() hashalgo.Name {
	if len(m.sources) == 0 {
		return ""
	}
	return m.sources[0].Parser.Header().HashType
}

// BlockSize returns the common block size every source agrees on.
func (m *Merger) BlockSize() int {
	if len(m.sources) == 0 {
		return 0
	}
	return m.sources[0].Parser.Header().BlockSize
}

// fill ensures m.peeked[i] holds the next head for source i, pulling from
// its parser if empty. It leaves m.peeked[i] nil once that parser is
// permanently exhausted.
func (m *Merger) fill(i int) {
	if m.done[i] || m.peeked[i] != nil {
		return
	}
	entry, err := m.sources[i].Parser.Next()
	if err == io.EOF {
		m.done[i] = true
		return
	}
	m.peeked[i] = &Head{Key: m.sources[i].Key, Entry: entry, Err: err}
}

// Next returns the group of parser heads whose kinds tie for the minimum
// under the EntryKind ordering (spec.md §3), advancing exactly those
// parsers by one. It returns (nil, false) once every parser is exhausted.
func (m *Merger) Next() ([]Head, bool) {
	for i := range m.sources {
		m.fill(i)
	}

	var minKind *sig.EntryKind
	for _, h := range m.peeked {
		if h == nil {
			continue
		}
		if h.Err != nil {
			// An error head has no kind to compare; it is surfaced in its
			// own singleton group on its own turn.
			continue
		}
		k := h.Entry.Kind()
		if minKind == nil || k.Compare(*minKind) < 0 {
			minKind = &k
		}
	}

	// If nothing comparable remains, surface the first pending error head
	// (if any) alone, or report exhaustion.
	if minKind == nil {
		for i, h := range m.peeked {
			if h != nil && h.Err != nil {
				m.peeked[i] = nil
				return []Head{*h}, true
			}
		}
		return nil, false
	}

	var group []Head
	for i, h := range m.peeked {
		if h == nil || h.Err != nil {
			continue
		}
		if h.Entry.Kind().Compare(*minKind) == 0 {
			group = append(group, *h)
			m.peeked[i] = nil
		}
	}
	return group, true
}

// Advance independently advances each source with its own Parser.Advance,
// returning the responses that produced a match. A source whose cached
// head is already past kind is left untouched; a source with no cached
// head is driven through its underlying parser directly.
func (m *Merger) Advance(kind sig.EntryKind) []Head {
	var out []Head
	for i, s := range m.sources {
		if m.done[i] {
			continue
		}
		if h := m.peeked[i]; h != nil {
			if h.Err != nil {
				out = append(out, *h)
				m.peeked[i] = nil
				continue
			}
			c := h.Entry.Kind().Compare(kind)
			if c == 0 {
				out = append(out, *h)
				m.peeked[i] = nil
				continue
			}
			if c > 0 {
				continue // pending head is ahead of kind; leave it cached
			}
			// pending head is behind kind: fall through and let the
			// parser's own Advance consume it and anything further
			m.peeked[i] = nil
		}
		entry, err := s.Parser.Advance(kind)
		if err != nil {
			out = append(out, Head{Key: s.Key, Err: err})
			continue
		}
		if entry != nil {
			out = append(out, Head{Key: s.Key, Entry: entry})
		}
	}
	return out
}

// Describe renders a Head for diagnostics, e.g. mismatch or error reports.
func Describe(h Head) string {
	if h.Err != nil {
		return fmt.Sprintf("%s: error: %v", h.Key, h.Err)
	}
	return fmt.Sprintf("%s: %s", h.Key, h.Entry.Kind().Path)
}
