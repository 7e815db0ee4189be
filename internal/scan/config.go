// Package scan implements the deterministic directory walk that drives a
// sig.Emitter: ordering, multi-source overlay, and the optional worker-pool
// concurrency layer (spec.md §4.3, §5).
package scan

import (
	"path"
	"strings"

	"github.com/pkg/errors"

	"github.com/meisterluk/dirsig/internal/hashalgo"
	"github.com/meisterluk/dirsig/internal/sig"
)

// ErrNoRootDirectory is returned by Config.Validate when no source/prefix
// pair mounts at exactly "/" (spec.md §4.3).
var ErrNoRootDirectory = errors.New("no source directory mounted at /")

// SourceMount pairs an on-disk source directory with its logical mount
// prefix inside the produced signature.
type SourceMount struct {
	Source string
	Prefix string
}

// Logger receives warnings the scanner cannot treat as fatal: unknown file
// types (skipped) and first-source-wins tie-breaks between overlaid
// sources (spec.md §4.3, §9).
type Logger interface {
	Warnf(format string, args ...interface{})
}

// nopLogger discards every warning; used when Config.Logger is nil.
type nopLogger struct{}

func (nopLogger) Warnf(string, ...interface{}) {}

// Reporter receives per-entry progress notifications during a scan. It is
// satisfied by *progress.Reporter; kept as an interface here so internal/scan
// does not need to import internal/progress for the (common) case where
// Config.Reporter is nil.
type Reporter interface {
	Dir(path string)
	File(path string, size uint64, isSymlink bool)
	Done(digest [32]byte)
}

// Config is the scanner's single settings struct, mirroring the teacher's
// HashParameters — one plain struct carrying every knob, validated once
// before the scan starts (see SPEC_FULL.md §2).
type Config struct {
	Sources   []SourceMount
	HashType  hashalgo.Name
	BlockSize int
	Workers   int
	Progress  bool
	Reporter  Reporter
	Logger    Logger
}

// Validate checks the configuration is scannable and fills in defaults.
// Scan calls it itself before walking.
func (c *Config) Validate() error {
	if c.BlockSize <= 0 {
		c.BlockSize = sig.DefaultBlockSize
	}
	if c.HashType == "" {
		c.HashType = hashalgo.SHA512_256
	}
	if !hashalgo.Valid(c.HashType) {
		return errors.Wrapf(hashalgo.ErrUnsupportedHashType, "%q", c.HashType)
	}
	if c.Logger == nil {
		c.Logger = nopLogger{}
	}

	hasRoot := false
	for _, s := range c.Sources {
		if path.Clean(s.Prefix) == "/" {
			hasRoot = true
		}
	}
	if !hasRoot {
		return ErrNoRootDirectory
	}
	return nil
}

// components splits a mount prefix into its non-empty path segments.
func components(prefix string) []string {
	clean := path.Clean("/" + prefix)
	if clean == "/" {
		return nil
	}
	return strings.Split(strings.TrimPrefix(clean, "/"), "/")
}
