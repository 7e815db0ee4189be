package main

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/meisterluk/dirsig/internal/merge"
	"github.com/meisterluk/dirsig/internal/sig"
)

// DiffEntry describes one path that differs between two signatures.
type DiffEntry struct {
	Path   string `json:"path"`
	Status string `json:"status"` // "added", "removed", "changed"
}

// CLIDiffCommand defines the CLI arguments as kingpin requires them
type CLIDiffCommand struct {
	cmd        *kingpin.CmdClause
	IndexA     *string
	IndexB     *string
	JSONOutput *bool
}

// newCLIDiffCommand defines the flags/arguments the CLI parser understands for "diff"
func newCLIDiffCommand(app *kingpin.Application) *CLIDiffCommand {
	c := new(CLIDiffCommand)
	c.cmd = app.Command("diff", "Compare two signatures entry by entry.")

	c.IndexA = c.cmd.Arg("index-a", "first signature file").Required().String()
	c.IndexB = c.cmd.Arg("index-b", "second signature file").Required().String()
	c.JSONOutput = c.cmd.Flag("json", "return output as JSON, not as plain text").Bool()

	return c
}

// DiffSettings is the resolved configuration for a "diff" run.
type DiffSettings struct {
	IndexA     string `json:"index-a"`
	IndexB     string `json:"index-b"`
	JSONOutput bool   `json:"json"`
}

// Validate renders the parsed flags into a DiffSettings or returns an error.
func (c *CLIDiffCommand) Validate() (*DiffSettings, error) {
	s := new(DiffSettings)
	s.IndexA = *c.IndexA
	s.IndexB = *c.IndexB
	s.JSONOutput = *c.JSONOutput
	if envJSON, err := envToBool("DIRSIG_JSON"); err == nil {
		s.JSONOutput = envJSON
	}
	return s, nil
}

// Run executes the "diff" command: it drives internal/merge.Merger over
// exactly the two given signatures and prints added/removed/changed paths
// (spec.md §4.5).
func (s *DiffSettings) Run(w Output, log Output) (int, error) {
	fa, err := os.Open(s.IndexA)
	if err != nil {
		return 2, fmt.Errorf("error opening '%s': %s", s.IndexA, err)
	}
	defer fa.Close()
	fb, err := os.Open(s.IndexB)
	if err != nil {
		return 2, fmt.Errorf("error opening '%s': %s", s.IndexB, err)
	}
	defer fb.Close()

	pa, err := sig.NewParser(fa)
	if err != nil {
		return 2, err
	}
	pb, err := sig.NewParser(fb)
	if err != nil {
		return 2, err
	}

	m, err := merge.New([]merge.Source{
		{Key: "a", Parser: pa},
		{Key: "b", Parser: pb},
	})
	if err != nil {
		return 2, err
	}

	var diffs []DiffEntry
	for {
		group, ok := m.Next()
		if !ok {
			break
		}
		if e := firstErr(group); e != nil {
			return 2, e
		}
		diffs = append(diffs, classifyDiff(group)...)
	}

	if s.JSONOutput {
		b, jerr := json.Marshal(diffs)
		if jerr != nil {
			return 6, fmt.Errorf(resultJSONErrMsg, jerr)
		}
		w.Println(string(b))
	} else {
		for _, d := range diffs {
			w.Printfln("%s %s", d.Status, d.Path)
		}
	}

	return 0, nil
}

// classifyDiff turns one tied merge group into zero or more DiffEntry
// values: a singleton group is an add/remove depending on which side it
// came from; a pair of file entries with differing hashes is a change.
func classifyDiff(group []merge.Head) []DiffEntry {
	if len(group) == 1 {
		h := group[0]
		status := "added"
		if h.Key == "a" {
			status = "removed"
		}
		return []DiffEntry{{Path: entryPath(h), Status: status}}
	}

	var a, b *merge.Head
	for i := range group {
		switch group[i].Key {
		case "a":
			a = &group[i]
		case "b":
			b = &group[i]
		}
	}
	if a == nil || b == nil {
		return nil
	}
	fa, okA := a.Entry.(sig.FileEntry)
	fb, okB := b.Entry.(sig.FileEntry)
	if okA && okB && !sameHashes(fa, fb) {
		return []DiffEntry{{Path: fa.Path(), Status: "changed"}}
	}
	return nil
}

func sameHashes(a, b sig.FileEntry) bool {
	if a.Size != b.Size || len(a.Hashes) != len(b.Hashes) {
		return false
	}
	for i := range a.Hashes {
		if a.Hashes[i] != b.Hashes[i] {
			return false
		}
	}
	return true
}

func entryPath(h merge.Head) string {
	return h.Entry.Kind().Path
}

// firstErr returns the first error carried by a merge group, if any.
func firstErr(group []merge.Head) error {
	for _, h := range group {
		if h.Err != nil {
			return h.Err
		}
	}
	return nil
}
