package scan

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/meisterluk/dirsig/internal/hashalgo"
	"github.com/meisterluk/dirsig/internal/sig"
)

type testLogger struct{ warnings []string }

func (l *testLogger) Warnf(format string, args ...interface{}) {
	l.warnings = append(l.warnings, fmt.Sprintf(format, args...))
}

func buildTree(t *testing.T, root string) {
	t.Helper()
	must(t, os.WriteFile(filepath.Join(root, "empty.txt"), nil, 0o644))
	must(t, os.WriteFile(filepath.Join(root, "hello.txt"), []byte("hello\n"), 0o644))
	must(t, os.Mkdir(filepath.Join(root, "subdir"), 0o755))
	must(t, os.WriteFile(filepath.Join(root, "subdir", "exe.sh"), []byte("#!/bin/sh\n"), 0o755))
	must(t, os.Symlink("../hello.txt", filepath.Join(root, "subdir", "link")))
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}

func TestScanSingleThreaded(t *testing.T) {
	root := t.TempDir()
	buildTree(t, root)

	var buf bytes.Buffer
	em, err := sig.NewEmitter(&buf, hashalgo.SHA512_256, 32768)
	must(t, err)

	cfg := Config{
		Sources:   []SourceMount{{Source: root, Prefix: "/"}},
		HashType:  hashalgo.SHA512_256,
		BlockSize: 32768,
	}
	must(t, Scan(cfg, em))
	_, err = em.Finish()
	must(t, err)

	out := buf.String()
	if !strings.Contains(out, "empty.txt f 0\n") {
		t.Errorf("missing empty file row, got:\n%s", out)
	}
	if !strings.Contains(out, "exe.sh x 10") {
		t.Errorf("missing executable file row, got:\n%s", out)
	}
	if !strings.Contains(out, "link s ../hello.txt\n") {
		t.Errorf("missing symlink row, got:\n%s", out)
	}
	if !strings.Contains(out, "/subdir\n") {
		t.Errorf("missing subdir row, got:\n%s", out)
	}
}

func TestScanWorkerPool(t *testing.T) {
	root := t.TempDir()
	buildTree(t, root)

	var bufSync, bufPool bytes.Buffer
	emSync, err := sig.NewEmitter(&bufSync, hashalgo.SHA512_256, 32768)
	must(t, err)
	emPool, err := sig.NewEmitter(&bufPool, hashalgo.SHA512_256, 32768)
	must(t, err)

	cfgSync := Config{Sources: []SourceMount{{Source: root, Prefix: "/"}}, HashType: hashalgo.SHA512_256, BlockSize: 32768}
	cfgPool := cfgSync
	cfgPool.Workers = 4

	must(t, Scan(cfgSync, emSync))
	_, err = emSync.Finish()
	must(t, err)
	must(t, Scan(cfgPool, emPool))
	_, err = emPool.Finish()
	must(t, err)

	if bufSync.String() != bufPool.String() {
		t.Errorf("worker-pool output differs from single-threaded output:\nsync:\n%s\npool:\n%s", bufSync.String(), bufPool.String())
	}
}

func TestScanRequiresRootPrefix(t *testing.T) {
	root := t.TempDir()
	cfg := Config{Sources: []SourceMount{{Source: root, Prefix: "/etc"}}}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected ErrNoRootDirectory")
	}
}

func TestScanMultiSourceOverlayFirstWins(t *testing.T) {
	rootA := t.TempDir()
	rootB := t.TempDir()
	must(t, os.WriteFile(filepath.Join(rootA, "shared.txt"), []byte("from-a"), 0o644))
	must(t, os.WriteFile(filepath.Join(rootB, "shared.txt"), []byte("from-b-longer"), 0o644))
	must(t, os.WriteFile(filepath.Join(rootB, "onlyb.txt"), []byte("b"), 0o644))

	logger := &testLogger{}
	var buf bytes.Buffer
	em, err := sig.NewEmitter(&buf, hashalgo.SHA512_256, 32768)
	must(t, err)

	cfg := Config{
		Sources: []SourceMount{
			{Source: rootA, Prefix: "/"},
			{Source: rootB, Prefix: "/"},
		},
		HashType:  hashalgo.SHA512_256,
		BlockSize: 32768,
		Logger:    logger,
	}
	must(t, Scan(cfg, em))
	_, err = em.Finish()
	must(t, err)

	out := buf.String()
	if !strings.Contains(out, "shared.txt f 6") {
		t.Errorf("expected shared.txt to keep rootA's 6-byte size, got:\n%s", out)
	}
	if !strings.Contains(out, "onlyb.txt f 1") {
		t.Errorf("expected onlyb.txt from rootB to appear, got:\n%s", out)
	}
	if len(logger.warnings) == 0 {
		t.Error("expected a warning about the shared.txt conflict")
	}
}
