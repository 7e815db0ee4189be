package main

import (
	"encoding/json"
	"fmt"

	"gopkg.in/alecthomas/kingpin.v2"
)

// moduleVersion is the dirsig module version.
const moduleVersion = "1.0.0"

// VersionJSONResult is a struct used to serialize JSON output
type VersionJSONResult struct {
	Version string `json:"version"`
}

// CLIVersionCommand defines the CLI arguments as kingpin requires them
type CLIVersionCommand struct {
	cmd        *kingpin.CmdClause
	JSONOutput *bool
}

// newCLIVersionCommand defines the flags/arguments the CLI parser understands for "version"
func newCLIVersionCommand(app *kingpin.Application) *CLIVersionCommand {
	c := new(CLIVersionCommand)
	c.cmd = app.Command("version", "Print the module version.")

	c.JSONOutput = c.cmd.Flag("json", "return output as JSON, not as plain text").Bool()

	return c
}

// VersionSettings is the resolved configuration for a "version" run.
type VersionSettings struct {
	JSONOutput bool `json:"json"`
}

// Validate renders the parsed flags into a VersionSettings or returns an error.
func (c *CLIVersionCommand) Validate() (*VersionSettings, error) {
	s := new(VersionSettings)
	s.JSONOutput = *c.JSONOutput
	if envJSON, err := envToBool("DIRSIG_JSON"); err == nil {
		s.JSONOutput = envJSON
	}
	return s, nil
}

// Run executes the "version" command.
func (s *VersionSettings) Run(w Output, log Output) (int, error) {
	if s.JSONOutput {
		b, err := json.Marshal(&VersionJSONResult{Version: moduleVersion})
		if err != nil {
			return 6, fmt.Errorf(resultJSONErrMsg, err)
		}
		w.Println(string(b))
	} else {
		w.Println(moduleVersion)
	}
	return 0, nil
}
