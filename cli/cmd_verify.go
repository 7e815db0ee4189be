package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/meisterluk/dirsig/internal/hashalgo"
	"github.com/meisterluk/dirsig/internal/sig"
)

// VerifyJSONResult is a struct used to serialize JSON output
type VerifyJSONResult struct {
	OK       bool   `json:"ok"`
	Mismatch string `json:"mismatch,omitempty"`
}

// CLIVerifyCommand defines the CLI arguments as kingpin requires them
type CLIVerifyCommand struct {
	cmd        *kingpin.CmdClause
	Index      *string
	Dir        *string
	JSONOutput *bool
}

// newCLIVerifyCommand defines the flags/arguments the CLI parser understands for "verify"
func newCLIVerifyCommand(app *kingpin.Application) *CLIVerifyCommand {
	c := new(CLIVerifyCommand)
	c.cmd = app.Command("verify", "Re-walk a directory and check it against a signature.")

	c.Index = c.cmd.Arg("index", "path to an existing signature file").Required().String()
	c.Dir = c.cmd.Arg("dir", "root directory to re-walk and compare").Required().String()
	c.JSONOutput = c.cmd.Flag("json", "return output as JSON, not as plain text").Bool()

	return c
}

// VerifySettings is the resolved configuration for a "verify" run.
type VerifySettings struct {
	Index      string `json:"index"`
	Dir        string `json:"dir"`
	JSONOutput bool   `json:"json"`
}

// Validate renders the parsed flags into a VerifySettings or returns an error.
func (c *CLIVerifyCommand) Validate() (*VerifySettings, error) {
	s := new(VerifySettings)
	s.Index = *c.Index
	s.Dir = *c.Dir
	s.JSONOutput = *c.JSONOutput
	if envJSON, err := envToBool("DIRSIG_JSON"); err == nil {
		s.JSONOutput = envJSON
	}
	return s, nil
}

// Run executes the "verify" command: it parses s.Index with sig.Parser and
// checks each listed entry against s.Dir, calling FileEntry.CheckFile
// (spec.md §4.4) per file entry and comparing symlink targets and directory
// presence, reporting the first mismatch. Files or directories under s.Dir
// that the index does not list are not reported.
func (s *VerifySettings) Run(w Output, log Output) (int, error) {
	idx, err := os.Open(s.Index)
	if err != nil {
		return 2, fmt.Errorf("error opening '%s': %s", s.Index, err)
	}
	defer idx.Close()

	p, err := sig.NewParser(idx)
	if err != nil {
		return 2, err
	}

	mismatch := ""
	for mismatch == "" {
		entry, err := p.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 2, err
		}

		switch e := entry.(type) {
		case sig.DirEntry:
			info, serr := os.Stat(filepath.Join(s.Dir, e.Path))
			if serr != nil || !info.IsDir() {
				mismatch = fmt.Sprintf("directory missing: %s", e.Path)
			}
		case sig.FileEntry:
			ok, cerr := checkFileEntry(s.Dir, e, p.Header())
			if cerr != nil {
				return 2, cerr
			}
			if !ok {
				mismatch = fmt.Sprintf("content mismatch: %s", e.Path())
			}
		case sig.SymlinkEntry:
			target, lerr := os.Readlink(filepath.Join(s.Dir, e.Path()))
			if lerr != nil || target != e.Target {
				mismatch = fmt.Sprintf("symlink mismatch: %s", e.Path())
			}
		}
	}

	result := VerifyJSONResult{OK: mismatch == "", Mismatch: mismatch}
	if s.JSONOutput {
		b, jerr := json.Marshal(&result)
		if jerr != nil {
			return 6, fmt.Errorf(resultJSONErrMsg, jerr)
		}
		w.Println(string(b))
	} else if result.OK {
		w.Println("OK")
	} else {
		w.Println(mismatch)
	}

	if !result.OK {
		return 1, nil
	}
	return 0, nil
}

func checkFileEntry(root string, e sig.FileEntry, header sig.Header) (bool, error) {
	f, err := os.Open(filepath.Join(root, e.Path()))
	if err != nil {
		return false, nil
	}
	defer f.Close()

	h, err := hashalgo.New(header.HashType)
	if err != nil {
		return false, err
	}
	return e.CheckFile(f, h, header.BlockSize)
}
