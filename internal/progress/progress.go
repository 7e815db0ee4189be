// Package progress implements the optional status-line reporting described
// in spec.md §6.4: throttled one-line updates while a scan runs, and a
// final line reporting the whole-output digest and counts.
package progress

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fatih/color"
	"golang.org/x/term"
)

const throttle = 100 * time.Millisecond

// Reporter receives progress updates from a scan and writes throttled
// status lines to Device (typically os.Stderr). The zero value is not
// usable; construct one with New.
type Reporter struct {
	device   io.Writer
	colorize bool

	mu       sync.Mutex
	last     time.Time
	dirs     int
	files    int
	symlinks int
	bytes    uint64
}

// New builds a Reporter writing to device. Colorizing and in-place line
// rewriting are only attempted when device is a terminal (spec.md §6.4
// leaves the exact rendering to the CLI; SPEC_FULL.md §3 assigns it to
// this package via fatih/color and golang.org/x/term).
func New(device io.Writer) *Reporter {
	colorize := false
	if f, ok := device.(interface{ Fd() uintptr }); ok {
		colorize = term.IsTerminal(int(f.Fd()))
	}
	return &Reporter{device: device, colorize: colorize}
}

// Dir records one directory having been visited and emits a throttled
// status line.
func (r *Reporter) Dir(path string) {
	r.mu.Lock()
	r.dirs++
	r.mu.Unlock()
	r.maybeEmit(path)
}

// File records one file or symlink having been hashed and written, and
// emits a throttled status line.
func (r *Reporter) File(path string, size uint64, isSymlink bool) {
	r.mu.Lock()
	if isSymlink {
		r.symlinks++
	} else {
		r.files++
		r.bytes += size
	}
	r.mu.Unlock()
	r.maybeEmit(path)
}

func (r *Reporter) maybeEmit(current string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	if !r.last.IsZero() && now.Sub(r.last) < throttle {
		return
	}
	r.last = now
	r.writeLine(fmt.Sprintf("%d dirs, %d files, %d symlinks, %d bytes — %s",
		r.dirs, r.files, r.symlinks, r.bytes, current))
}

// Done writes the final status line: total counts plus the whole-output
// digest (spec.md §6.4, "Final line reports the whole-output digest and
// total counts").
func (r *Reporter) Done(digest [32]byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writeLine(fmt.Sprintf("done: %d dirs, %d files, %d symlinks, %d bytes, digest %x",
		r.dirs, r.files, r.symlinks, r.bytes, digest))
}

// writeLine writes one status line. On a terminal the line is prefixed with
// a carriage return (and not newline-terminated) so the next one overwrites
// it in place; otherwise it is terminated with a newline. Must be called
// with r.mu held.
func (r *Reporter) writeLine(line string) {
	if !r.colorize {
		fmt.Fprintln(r.device, line)
		return
	}
	faint := color.New(color.Faint)
	faint.Fprint(r.device, "\r"+line)
}
