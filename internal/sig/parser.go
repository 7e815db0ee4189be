package sig

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
)

// Parser reads a signature incrementally. Call Next repeatedly; it yields
// entries in file order, io.EOF once the footer has been consumed and
// verified to be the last byte-line in the stream, or a *RowError for any
// structural problem (spec.md §4.4).
type Parser struct {
	r            *bufio.Reader
	header       Header
	currentDir   string
	row          int64
	peeked       *entryResult
	footerSeen   bool
	footerDigest [32]byte
	lastKind     *EntryKind
}

type entryResult struct {
	entry Entry
	err   error
}

// NewParser consumes the header line from r and retains the underlying
// buffered source for subsequent Next/Advance calls.
func NewParser(r io.Reader) (*Parser, error) {
	br := bufio.NewReader(r)
	line, err := readRawLine(br)
	if err != nil {
		if err == io.EOF {
			return nil, rowErr(1, MissingHeader, "empty stream")
		}
		return nil, err
	}
	h, herr := ParseHeader(line)
	if herr != nil {
		if re, ok := herr.(*RowError); ok {
			re.Row = 1
		}
		return nil, herr
	}
	return &Parser{r: br, header: h, currentDir: "/", row: 1}, nil
}

// Header returns the parsed header.
func (p *Parser) Header() Header { return p.header }

// Footer returns the decoded footer digest, valid only after Next has
// returned io.EOF at least once.
func (p *Parser) Footer() ([32]byte, bool) {
	return p.footerDigest, p.footerSeen
}

// Next returns the next entry, io.EOF after a well-formed footer and end of
// stream, or a *RowError.
func (p *Parser) Next() (Entry, error) {
	res := p.peek()
	p.peeked = nil
	if res.err == nil {
		k := res.entry.Kind()
		p.lastKind = &k
	}
	return res.entry, res.err
}

// Advance implements the monotone seek operator from spec.md §4.4: it
// discards entries whose kind compares strictly less than kind, consuming
// and returning the first entry whose kind is equal, or leaving the first
// greater entry pending and returning (nil, nil). It returns (nil, nil)
// immediately if kind is behind the current position.
func (p *Parser) Advance(kind EntryKind) (Entry, error) {
	if p.lastKind != nil && kind.Compare(*p.lastKind) < 0 {
		return nil, nil
	}
	for {
		res := p.peek()
		if res.err != nil {
			return nil, res.err
		}
		c := res.entry.Kind().Compare(kind)
		if c < 0 {
			p.peeked = nil
			k := res.entry.Kind()
			p.lastKind = &k
			continue
		}
		if c == 0 {
			p.peeked = nil
			k := res.entry.Kind()
			p.lastKind = &k
			return res.entry, nil
		}
		return nil, nil
	}
}

func (p *Parser) peek() entryResult {
	if p.peeked == nil {
		r := p.readNext()
		p.peeked = &r
	}
	return *p.peeked
}

func (p *Parser) readNext() entryResult {
	if p.footerSeen {
		line, err := readRawLine(p.r)
		if err == io.EOF && line == nil {
			return entryResult{err: io.EOF}
		}
		if err != nil && err != io.EOF {
			return entryResult{err: err}
		}
		return entryResult{err: rowErr(p.row+1, InvalidLine, "extra lines after footer")}
	}

	line, err := readRawLine(p.r)
	if err != nil {
		return entryResult{err: err}
	}
	p.row++

	if len(line) == 0 {
		return entryResult{err: rowErr(p.row, InvalidLine, "blank line")}
	}

	switch {
	case line[0] == '/':
		return p.parseDirRow(line)
	case len(line) >= 2 && line[0] == ' ' && line[1] == ' ':
		return p.parseFileOrLinkRow(line)
	default:
		digest, ferr := parseFooterLine(line, p.row)
		if ferr != nil {
			return entryResult{err: ferr}
		}
		p.footerSeen = true
		p.footerDigest = digest
		return p.readNext()
	}
}

func (p *Parser) parseDirRow(line []byte) entryResult {
	decoded, err := unescape(line)
	if err != nil {
		return entryResult{err: rowErr(p.row, InvalidLine, err.Error())}
	}
	path := string(decoded)
	p.currentDir = path
	return entryResult{entry: DirEntry{Path: path}}
}

func (p *Parser) parseFileOrLinkRow(line []byte) entryResult {
	body := line[2:]
	if len(body) == 0 {
		return entryResult{err: rowErr(p.row, InvalidLine, "empty file/link row")}
	}
	tokens := strings.Split(string(body), " ")
	for _, t := range tokens {
		if t == "" {
			return entryResult{err: rowErr(p.row, InvalidLine, "Row has multiple spaces")}
		}
	}
	if len(tokens) < 3 {
		return entryResult{err: rowErr(p.row, InvalidLine, "too few fields")}
	}

	nameRaw, err := unescape([]byte(tokens[0]))
	if err != nil {
		return entryResult{err: rowErr(p.row, InvalidLine, err.Error())}
	}
	name := string(nameRaw)

	switch tokens[1] {
	case "f", "x":
		size, err := parseDecimalUint(tokens[2])
		if err != nil {
			return entryResult{err: rowErr(p.row, InvalidInt, err.Error())}
		}
		hashes := make([][32]byte, 0, len(tokens)-3)
		for _, tok := range tokens[3:] {
			if len(tok) != 64 {
				return entryResult{err: rowErr(p.row, InvalidHex, fmt.Sprintf("hash token has length %d, want 64", len(tok)))}
			}
			raw, derr := hex.DecodeString(tok)
			if derr != nil {
				return entryResult{err: rowErr(p.row, InvalidHex, derr.Error())}
			}
			var h [32]byte
			copy(h[:], raw)
			hashes = append(hashes, h)
		}
		want := blockCount(uint64(size), p.header.BlockSize)
		if len(hashes) != want {
			return entryResult{err: rowErr(p.row, InvalidHash, fmt.Sprintf("got %d hashes, want %d for size %d", len(hashes), want, size))}
		}
		return entryResult{entry: FileEntry{
			Dir:        p.currentDir,
			Name:       name,
			Executable: tokens[1] == "x",
			Size:       uint64(size),
			Hashes:     hashes,
		}}
	case "s":
		if len(tokens) != 3 {
			return entryResult{err: rowErr(p.row, InvalidLine, "Entry is not fully consumed")}
		}
		targetRaw, err := unescape([]byte(tokens[2]))
		if err != nil {
			return entryResult{err: rowErr(p.row, InvalidLine, err.Error())}
		}
		return entryResult{entry: SymlinkEntry{
			Dir:    p.currentDir,
			Name:   name,
			Target: string(targetRaw),
		}}
	default:
		return entryResult{err: rowErr(p.row, InvalidFileType, fmt.Sprintf("got %q", tokens[1]))}
	}
}

// blockCount computes ceil(size/blockSize).
func blockCount(size uint64, blockSize int) int {
	if size == 0 {
		return 0
	}
	bs := uint64(blockSize)
	return int((size + bs - 1) / bs)
}

func parseFooterLine(line []byte, row int64) ([32]byte, error) {
	var digest [32]byte
	if len(line) != 64 {
		return digest, rowErr(row, InvalidLine, fmt.Sprintf("footer has length %d, want 64", len(line)))
	}
	raw, err := hex.DecodeString(string(line))
	if err != nil {
		return digest, rowErr(row, InvalidHex, err.Error())
	}
	copy(digest[:], raw)
	return digest, nil
}

// readRawLine reads up to and including the next '\n', returning the line
// without its trailing newline. It returns (nil, io.EOF) at a clean end of
// stream, and a *RowError if data is present but not newline-terminated.
func readRawLine(r *bufio.Reader) ([]byte, error) {
	line, err := r.ReadBytes('\n')
	if err == io.EOF {
		if len(line) == 0 {
			return nil, io.EOF
		}
		return nil, rowErr(0, InvalidLine, "line not terminated by newline")
	}
	if err != nil {
		return nil, err
	}
	return line[:len(line)-1], nil
}
