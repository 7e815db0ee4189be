package main

import (
	"encoding/json"
	"fmt"

	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/meisterluk/dirsig/internal/hashalgo"
)

// HashAlgosJSONResult is a struct used to serialize JSON output
type HashAlgosJSONResult struct {
	CheckSucceeded bool     `json:"check-result"`
	SupHashAlgos   []string `json:"supported-hash-algorithms"`
}

// CLIHashAlgosCommand defines the CLI arguments as kingpin requires them
type CLIHashAlgosCommand struct {
	cmd          *kingpin.CmdClause
	CheckSupport *string
	JSONOutput   *bool
}

// newCLIHashAlgosCommand defines the flags/arguments the CLI parser understands for "hash-algos"
func newCLIHashAlgosCommand(app *kingpin.Application) *CLIHashAlgosCommand {
	c := new(CLIHashAlgosCommand)
	c.cmd = app.Command("hash-algos", "List supported hash algorithms.")

	c.CheckSupport = c.cmd.Flag("check-support", "exit code 1 indicates that the given hash algorithm is unsupported").String()
	c.JSONOutput = c.cmd.Flag("json", "return output as JSON, not as plain text").Bool()

	return c
}

// HashAlgosSettings is the resolved configuration for a "hash-algos" run.
type HashAlgosSettings struct {
	CheckSupport string `json:"check-support"`
	JSONOutput   bool   `json:"json"`
}

// Validate renders the parsed flags into a HashAlgosSettings or returns an error.
func (c *CLIHashAlgosCommand) Validate() (*HashAlgosSettings, error) {
	s := new(HashAlgosSettings)
	s.CheckSupport = *c.CheckSupport
	s.JSONOutput = *c.JSONOutput
	if envJSON, err := envToBool("DIRSIG_JSON"); err == nil {
		s.JSONOutput = envJSON
	}
	return s, nil
}

// Run executes the "hash-algos" command.
func (s *HashAlgosSettings) Run(w Output, log Output) (int, error) {
	names := hashalgo.Names()
	supported := make([]string, len(names))
	for i, n := range names {
		supported[i] = string(n)
	}

	data := HashAlgosJSONResult{
		CheckSucceeded: false,
		SupHashAlgos:   supported,
	}

	exitCode := 0
	if s.CheckSupport != "" {
		for _, h := range supported {
			if h == s.CheckSupport {
				data.CheckSucceeded = true
			}
		}
		if !data.CheckSucceeded {
			exitCode = 1
		}
	}

	if s.JSONOutput {
		b, err := json.Marshal(&data)
		if err != nil {
			return 6, fmt.Errorf(resultJSONErrMsg, err)
		}
		w.Println(string(b))
	} else {
		for _, h := range data.SupHashAlgos {
			w.Println(h)
		}
	}

	return exitCode, nil
}
