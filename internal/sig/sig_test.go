package sig

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/meisterluk/dirsig/internal/hashalgo"
)

// buildSimpleTree emits one directory with one file and one symlink and
// returns the raw bytes plus the per-block hashes it used, so a test can
// assert round-trip equality.
func buildSimpleTree(t *testing.T, hashType hashalgo.Name, blockSize int) ([]byte, [][32]byte) {
	t.Helper()
	var buf bytes.Buffer
	em, err := NewEmitter(&buf, hashType, blockSize)
	if err != nil {
		t.Fatalf("NewEmitter: %v", err)
	}
	if err := em.StartDir("/"); err != nil {
		t.Fatalf("StartDir: %v", err)
	}

	h, err := hashalgo.New(hashType)
	if err != nil {
		t.Fatalf("hashalgo.New: %v", err)
	}
	content := []byte("hello, world! this spans more than one block if block size is small")
	blocks := blockCount(uint64(len(content)), blockSize)
	hashes := make([][32]byte, 0, blocks)
	for i := 0; i < len(content); i += blockSize {
		end := i + blockSize
		if end > len(content) {
			end = len(content)
		}
		h.Write(content[i:end])
		hashes = append(hashes, h.Sum())
	}

	if err := em.AddFile("greeting.txt", false, uint64(len(content)), hashes); err != nil {
		t.Fatalf("AddFile: %v", err)
	}
	if err := em.AddSymlink("link", "greeting.txt"); err != nil {
		t.Fatalf("AddSymlink: %v", err)
	}
	if _, err := em.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	return buf.Bytes(), hashes
}

func TestRoundTrip(t *testing.T) {
	for _, algo := range hashalgo.Names() {
		algo := algo
		t.Run(string(algo), func(t *testing.T) {
			raw, hashes := buildSimpleTree(t, algo, 16)

			p, err := NewParser(bytes.NewReader(raw))
			if err != nil {
				t.Fatalf("NewParser: %v", err)
			}
			if p.Header().HashType != algo {
				t.Fatalf("HashType = %v, want %v", p.Header().HashType, algo)
			}
			if p.Header().BlockSize != 16 {
				t.Fatalf("BlockSize = %d, want 16", p.Header().BlockSize)
			}

			var got []Entry
			for {
				e, err := p.Next()
				if err == io.EOF {
					break
				}
				if err != nil {
					t.Fatalf("Next: %v", err)
				}
				got = append(got, e)
			}

			want := []Entry{
				DirEntry{Path: "/"},
				FileEntry{Dir: "/", Name: "greeting.txt", Size: 67, Hashes: hashes},
				SymlinkEntry{Dir: "/", Name: "link", Target: "greeting.txt"},
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
			}

			digest, ok := p.Footer()
			if !ok {
				t.Fatal("Footer() not seen")
			}
			extracted, extractedAlgo, err := ExtractFooterDigest(bytes.NewReader(raw))
			if err != nil {
				t.Fatalf("ExtractFooterDigest: %v", err)
			}
			if extractedAlgo != algo {
				t.Fatalf("ExtractFooterDigest algo = %v, want %v", extractedAlgo, algo)
			}
			if extracted != digest {
				t.Fatalf("ExtractFooterDigest digest mismatch")
			}
		})
	}
}

func TestReproducibility(t *testing.T) {
	a, _ := buildSimpleTree(t, hashalgo.SHA512_256, 16)
	b, _ := buildSimpleTree(t, hashalgo.SHA512_256, 16)
	if !bytes.Equal(a, b) {
		t.Fatal("two emissions of the same tree produced different bytes")
	}
}

func TestFooterIsFixedPoint(t *testing.T) {
	raw, _ := buildSimpleTree(t, hashalgo.SHA512_256, 16)
	digest, _, err := ExtractFooterDigest(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("ExtractFooterDigest: %v", err)
	}

	p, err := NewParser(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("NewParser: %v", err)
	}
	for {
		if _, err := p.Next(); err == io.EOF {
			break
		} else if err != nil {
			t.Fatalf("Next: %v", err)
		}
	}
	parsedDigest, ok := p.Footer()
	if !ok {
		t.Fatal("footer not parsed")
	}
	if parsedDigest != digest {
		t.Fatal("footer extracted via seek disagrees with footer seen by the streaming parser")
	}

	// The footer must equal the digest of every byte before the footer line.
	h, err := hashalgo.New(hashalgo.SHA512_256)
	if err != nil {
		t.Fatalf("hashalgo.New: %v", err)
	}
	h.Write(raw[:len(raw)-65]) // 64 hex digits plus '\n'
	if h.Sum() != digest {
		t.Fatal("footer is not the digest of the preceding bytes")
	}
}

func TestEscapeUnescapeInvertible(t *testing.T) {
	cases := []string{
		"plain",
		"with space",
		"back\\slash",
		"tab\ttab",
		"\x00null\x7f-del",
		"unicode-looking-bytes-\xff\xfe",
		"",
	}
	for _, c := range cases {
		escaped := escape([]byte(c))
		got, err := unescape(escaped)
		if err != nil {
			t.Fatalf("unescape(%q): %v", c, err)
		}
		if string(got) != c {
			t.Fatalf("escape/unescape round trip: got %q, want %q", got, c)
		}
	}
}

func TestEscapeNameExported(t *testing.T) {
	if EscapeName("a b") != "a\\x20b" {
		t.Fatalf("EscapeName(%q) = %q", "a b", EscapeName("a b"))
	}
}

func TestEntryKindOrdering(t *testing.T) {
	root := EntryKind{Kind: KindDir, Path: "/"}
	sub := EntryKind{Kind: KindDir, Path: "/a"}
	fileInRoot := EntryKind{Kind: KindFile, Path: "/z.txt"}
	fileInSub := EntryKind{Kind: KindFile, Path: "/a/b.txt"}

	if root.Compare(sub) >= 0 {
		t.Fatal("/ should sort before /a")
	}
	if root.Compare(fileInRoot) >= 0 {
		t.Fatal("dir / should sort before file /z.txt in the same dir")
	}
	if sub.Compare(fileInSub) >= 0 {
		t.Fatal("dir /a should sort before file /a/b.txt")
	}
	if fileInRoot.Compare(sub) >= 0 {
		t.Fatal("file /z.txt (parent /) should sort before dir /a, since files precede subdirectory blocks")
	}
	if fileInRoot.Compare(fileInSub) >= 0 {
		t.Fatal("file /z.txt (parent /) should sort before file /a/b.txt (parent /a), since parent / < parent /a lexically")
	}
}

func TestParserAdvanceMonotone(t *testing.T) {
	raw, _ := buildSimpleTree(t, hashalgo.SHA512_256, 16)
	p, err := NewParser(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("NewParser: %v", err)
	}

	target := EntryKind{Kind: KindFile, Path: "/greeting.txt"}
	e, err := p.Advance(target)
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	fe, ok := e.(FileEntry)
	if !ok {
		t.Fatalf("Advance returned %T, want FileEntry", e)
	}
	if fe.Name != "greeting.txt" {
		t.Fatalf("Advance landed on %q", fe.Name)
	}

	// Advancing to a kind strictly behind the current position yields nil.
	behind := EntryKind{Kind: KindDir, Path: "/"}
	e2, err := p.Advance(behind)
	if err != nil {
		t.Fatalf("Advance behind: %v", err)
	}
	if e2 != nil {
		t.Fatalf("Advance behind current position should return nil, got %v", e2)
	}
}

func TestBlockSizeMismatchRejected(t *testing.T) {
	raw, hashes := buildSimpleTree(t, hashalgo.SHA512_256, 16)
	_ = hashes

	// Corrupt the declared block_size in the header so the hash-count
	// formula no longer matches the number of hashes already on the wire.
	corrupted := strings.Replace(string(raw), "block_size=16", "block_size=8", 1)
	p, err := NewParser(strings.NewReader(corrupted))
	if err != nil {
		t.Fatalf("NewParser: %v", err)
	}
	if _, err := p.Next(); err != nil {
		t.Fatalf("first entry (dir) should still parse: %v", err)
	}
	_, err = p.Next()
	if err == nil {
		t.Fatal("expected a *RowError for a hash-count mismatch under the corrupted block size")
	}
	if _, ok := err.(*RowError); !ok {
		t.Fatalf("got %T, want *RowError", err)
	}
}

func TestCheckFileDetectsCorruption(t *testing.T) {
	const blockSize = 8
	content := []byte("abcdefghijklmnopqrstuvwxyz")
	h, err := hashalgo.New(hashalgo.SHA512_256)
	if err != nil {
		t.Fatalf("hashalgo.New: %v", err)
	}
	var hashes [][32]byte
	for i := 0; i < len(content); i += blockSize {
		end := i + blockSize
		if end > len(content) {
			end = len(content)
		}
		h.Write(content[i:end])
		hashes = append(hashes, h.Sum())
	}
	fe := FileEntry{Dir: "/", Name: "f", Size: uint64(len(content)), Hashes: hashes}

	verifyHash, _ := hashalgo.New(hashalgo.SHA512_256)
	ok, err := fe.CheckFile(bytes.NewReader(content), verifyHash, blockSize)
	if err != nil {
		t.Fatalf("CheckFile: %v", err)
	}
	if !ok {
		t.Fatal("CheckFile rejected unmodified content")
	}

	corrupted := append([]byte(nil), content...)
	corrupted[len(corrupted)-1] = 'Z'
	verifyHash2, _ := hashalgo.New(hashalgo.SHA512_256)
	ok2, err := fe.CheckFile(bytes.NewReader(corrupted), verifyHash2, blockSize)
	if err != nil {
		t.Fatalf("CheckFile: %v", err)
	}
	if ok2 {
		t.Fatal("CheckFile accepted corrupted content")
	}
}

func TestParseHeaderRejectsNonDecimal(t *testing.T) {
	cases := []string{
		"DIRSIGNATURE.v1 sha512/256 block_size=+16",
		"DIRSIGNATURE.v1 sha512/256 block_size=0x10",
		"DIRSIGNATURE.v1 sha512/256 block_size=016",
		"DIRSIGNATURE.v1 sha512/256 block_size=",
	}
	for _, c := range cases {
		if _, err := ParseHeader([]byte(c)); err == nil {
			t.Fatalf("ParseHeader(%q) should have failed", c)
		}
	}
}
