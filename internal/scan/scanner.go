package scan

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"

	"github.com/meisterluk/dirsig/internal/sig"
)

// ErrOpenDir wraps a failure to open a source directory (spec.md §7).
var ErrOpenDir = errors.New("open dir")

// ErrListDir wraps a failure to enumerate an opened directory (spec.md §7).
var ErrListDir = errors.New("list dir")

// mount is one (source, remaining mount-prefix components) pair
// contributing to an overlay. A mount with no remaining components has
// reached its source directory and contributes real file-system entries;
// a mount with remaining components contributes a single phantom child
// directory, carrying the rest of its prefix one level deeper.
type mount struct {
	sourceIndex int
	fsPath      string
	remaining   []string
}

// overlay is the set of on-disk directories contributing to one logical
// path (spec.md §9, "Overlay").
type overlay struct {
	logicalPath string
	mounts      []mount
}

type nonDirEntry struct {
	name       string
	executable bool
	isSymlink  bool
	size       uint64
	fsPath     string
}

// Scan walks cfg.Sources in deterministic pre-order and drives em. It
// implements spec.md §4.3 (deterministic directory walk, multi-root
// overlay) and §5 (single-threaded or worker-pool execution, selected by
// cfg.Workers).
func Scan(cfg Config, em *sig.Emitter) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	var d dispatcher
	if cfg.Workers > 0 {
		d = newPoolDispatcher(em, cfg)
	} else {
		d = newSyncDispatcher(em, cfg)
	}

	queue := []overlay{rootOverlay(cfg)}
	for len(queue) > 0 {
		select {
		case <-d.aborted():
			return d.finish()
		default:
		}

		ov := queue[0]
		queue = queue[1:]

		children, err := processOverlay(ov, cfg, d)
		if err != nil {
			d.finish() // drain outstanding work before surfacing the walk error
			return err
		}
		// Prepending children (already in ascending name order) to the
		// front of the queue visits the whole subtree before the next
		// sibling, which is how a pre-order walk yields paths in global
		// lexicographic order (spec.md §9, "Recursive directory
		// structure").
		queue = append(children, queue...)
	}
	return d.finish()
}

func rootOverlay(cfg Config) overlay {
	mounts := make([]mount, 0, len(cfg.Sources))
	for i, s := range cfg.Sources {
		mounts = append(mounts, mount{sourceIndex: i, fsPath: s.Source, remaining: components(s.Prefix)})
	}
	return overlay{logicalPath: "/", mounts: mounts}
}

// processOverlay lists every contributing directory, classifies entries,
// emits the sorted file/symlink rows for this directory, and returns the
// child overlays to visit next.
func processOverlay(ov overlay, cfg Config, d dispatcher) ([]overlay, error) {
	claims := make(map[string]string) // name -> "file" | "dir"
	childMounts := make(map[string][]mount)
	var childOrder []string
	var nonDirs []nonDirEntry

	claimDir := func(name string, m mount) {
		if existing, ok := claims[name]; ok && existing != "dir" {
			cfg.Logger.Warnf("path %s: %s conflicts with existing file entry, first source wins", path.Join(ov.logicalPath, name), name)
			return
		}
		if _, seen := childMounts[name]; !seen {
			childOrder = append(childOrder, name)
		}
		claims[name] = "dir"
		childMounts[name] = append(childMounts[name], m)
	}

	claimFile := func(name string, entry nonDirEntry) {
		if existing, ok := claims[name]; ok {
			if existing != "file" {
				cfg.Logger.Warnf("path %s: file conflicts with existing directory entry, first source wins", path.Join(ov.logicalPath, name))
			} else {
				cfg.Logger.Warnf("path %s: duplicate entry across overlaid sources, first source wins", path.Join(ov.logicalPath, name))
			}
			return
		}
		claims[name] = "file"
		nonDirs = append(nonDirs, entry)
	}

	for _, m := range ov.mounts {
		if len(m.remaining) > 0 {
			claimDir(m.remaining[0], mount{sourceIndex: m.sourceIndex, fsPath: m.fsPath, remaining: m.remaining[1:]})
			continue
		}

		entries, err := readDir(m.fsPath)
		if err != nil {
			return nil, err
		}
		for _, de := range entries {
			name := de.Name()
			fsPath := filepath.Join(m.fsPath, name)
			typ := de.Type()
			switch {
			case typ.IsDir():
				claimDir(name, mount{sourceIndex: m.sourceIndex, fsPath: fsPath, remaining: nil})
			case typ.IsRegular():
				var executable bool
				var size uint64
				if info, err := de.Info(); err == nil {
					executable = info.Mode()&0111 != 0
					size = uint64(info.Size())
				}
				claimFile(name, nonDirEntry{name: name, executable: executable, size: size, fsPath: fsPath})
			case typ&fs.ModeSymlink != 0:
				claimFile(name, nonDirEntry{name: name, isSymlink: true, fsPath: fsPath})
			default:
				cfg.Logger.Warnf("path %s: unknown file type, skipped", fsPath)
			}
		}
	}

	sort.Slice(nonDirs, func(i, j int) bool {
		return sig.EscapeName(nonDirs[i].name) < sig.EscapeName(nonDirs[j].name)
	})

	if err := d.startDir(ov.logicalPath); err != nil {
		return nil, err
	}
	for _, entry := range nonDirs {
		var err error
		if entry.isSymlink {
			err = d.symlink(entry.name, entry.fsPath)
		} else {
			err = d.file(entry.name, entry.executable, entry.size, entry.fsPath)
		}
		if err != nil {
			return nil, err
		}
	}

	sort.Slice(childOrder, func(i, j int) bool {
		return sig.EscapeName(childOrder[i]) < sig.EscapeName(childOrder[j])
	})
	children := make([]overlay, 0, len(childOrder))
	for _, name := range childOrder {
		children = append(children, overlay{
			logicalPath: path.Join(ov.logicalPath, name),
			mounts:      childMounts[name],
		})
	}
	return children, nil
}

func readDir(fsPath string) ([]os.DirEntry, error) {
	fd, err := os.Open(fsPath)
	if err != nil {
		return nil, errors.Wrap(ErrOpenDir, err.Error())
	}
	defer fd.Close()
	entries, err := fd.ReadDir(-1)
	if err != nil {
		return nil, errors.Wrap(ErrListDir, err.Error())
	}
	return entries, nil
}
