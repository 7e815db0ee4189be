package hashalgo

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewUnsupported(t *testing.T) {
	if _, err := New("crc32"); err == nil {
		t.Fatal("expected error for unsupported hash type")
	}
}

func TestValidNames(t *testing.T) {
	for _, n := range Names() {
		if !Valid(n) {
			t.Errorf("Names() returned %q which Valid() rejects", n)
		}
	}
	if Valid("nope") {
		t.Error("Valid(\"nope\") = true, want false")
	}
}

func TestBlockHashesEmptyFile(t *testing.T) {
	h, err := New(SHA512_256)
	if err != nil {
		t.Fatal(err)
	}
	hashes, err := BlockHashes(bytes.NewReader(nil), h, 32768)
	if err != nil {
		t.Fatal(err)
	}
	if len(hashes) != 0 {
		t.Errorf("got %d hashes for empty reader, want 0", len(hashes))
	}
}

func TestBlockHashesCount(t *testing.T) {
	data := strings.Repeat("x", 81920) // 2.5 * 32768
	h, err := New(SHA512_256)
	if err != nil {
		t.Fatal(err)
	}
	hashes, err := BlockHashes(strings.NewReader(data), h, 32768)
	if err != nil {
		t.Fatal(err)
	}
	if len(hashes) != 3 {
		t.Fatalf("got %d hashes, want 3", len(hashes))
	}
}

func TestBlockHashesPerBlockIndependence(t *testing.T) {
	h, err := New(BLAKE2b_256)
	if err != nil {
		t.Fatal(err)
	}
	data := strings.Repeat("a", 4) + strings.Repeat("b", 4)
	hashes, err := BlockHashes(strings.NewReader(data), h, 4)
	if err != nil {
		t.Fatal(err)
	}
	if len(hashes) != 2 {
		t.Fatalf("got %d hashes, want 2", len(hashes))
	}
	if hashes[0] == hashes[1] {
		t.Error("blocks with different content hashed to the same digest")
	}

	h2, _ := New(BLAKE2b_256)
	direct, err := BlockHashes(strings.NewReader("aaaa"), h2, 4)
	if err != nil {
		t.Fatal(err)
	}
	if direct[0] != hashes[0] {
		t.Error("block hash depends on surrounding blocks, want independent per-block digest")
	}
}

func TestCloneIndependence(t *testing.T) {
	h, _ := New(SHA512_256)
	h.Write([]byte("hello"))
	clone := h.Clone()
	sum1 := h.Sum()
	clone.Write([]byte("hello"))
	sum2 := clone.Sum()
	if sum1 != sum2 {
		t.Error("clone of a hasher with identical writes produced a different digest")
	}
}
