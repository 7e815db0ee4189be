package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/meisterluk/dirsig/internal/sig"
)

// CatFooterJSONResult is a struct used to serialize JSON output
type CatFooterJSONResult struct {
	HashType string `json:"hash-type"`
	Digest   string `json:"digest"`
}

// CLICatFooterCommand defines the CLI arguments as kingpin requires them
type CLICatFooterCommand struct {
	cmd        *kingpin.CmdClause
	Path       *string
	JSONOutput *bool
}

// newCLICatFooterCommand defines the flags/arguments the CLI parser understands for "cat-footer"
func newCLICatFooterCommand(app *kingpin.Application) *CLICatFooterCommand {
	c := new(CLICatFooterCommand)
	c.cmd = app.Command("cat-footer", "Extract a signature's whole-output digest without reading its body.")

	c.Path = c.cmd.Arg("path", "path to an existing signature file").Required().String()
	c.JSONOutput = c.cmd.Flag("json", "return output as JSON, not as plain text").Bool()

	return c
}

// CatFooterSettings is the resolved configuration for a "cat-footer" run.
type CatFooterSettings struct {
	Path       string `json:"path"`
	JSONOutput bool   `json:"json"`
}

// Validate renders the parsed flags into a CatFooterSettings or returns an error.
func (c *CLICatFooterCommand) Validate() (*CatFooterSettings, error) {
	s := new(CatFooterSettings)
	s.Path = *c.Path
	s.JSONOutput = *c.JSONOutput
	if envJSON, err := envToBool("DIRSIG_JSON"); err == nil {
		s.JSONOutput = envJSON
	}
	return s, nil
}

// Run executes the "cat-footer" command: apply sig.ExtractFooterDigest to
// s.Path and print the decoded digest in hex (spec.md §6.2).
func (s *CatFooterSettings) Run(w Output, log Output) (int, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return 2, fmt.Errorf("error opening '%s': %s", s.Path, err)
	}
	defer f.Close()

	digest, hashType, err := sig.ExtractFooterDigest(f)
	if err != nil {
		return 2, err
	}

	if s.JSONOutput {
		data := CatFooterJSONResult{HashType: string(hashType), Digest: hex.EncodeToString(digest[:])}
		b, jerr := json.Marshal(&data)
		if jerr != nil {
			return 6, fmt.Errorf(resultJSONErrMsg, jerr)
		}
		w.Println(string(b))
	} else {
		w.Println(hex.EncodeToString(digest[:]))
	}

	return 0, nil
}
