package main

import (
	"os"

	"gopkg.in/alecthomas/kingpin.v2"
)

var app *kingpin.Application
var generate *CLIGenerateCommand
var catFooter *CLICatFooterCommand
var verify *CLIVerifyCommand
var diff *CLIDiffCommand
var hashAlgos *CLIHashAlgosCommand
var version *CLIVersionCommand

func init() {
	app = kingpin.New("dirsig", "Generate, verify and compare directory signatures.")
	app.Version(moduleVersion).Author("meisterluk")
	app.HelpFlag.Short('h')
	app.UsageTemplate(kingpin.CompactUsageTemplate)

	generate = newCLIGenerateCommand(app)
	catFooter = newCLICatFooterCommand(app)
	verify = newCLIVerifyCommand(app)
	diff = newCLIDiffCommand(app)
	hashAlgos = newCLIHashAlgosCommand(app)
	version = newCLIVersionCommand(app)

	w = &PlainOutput{Device: os.Stdout}
	log = &PlainOutput{Device: os.Stderr}
}

func cli() int {
	subcommand, err := app.Parse(os.Args[1:])
	if err != nil {
		return handleError(err.Error(), 1, jsonOutput())
	}

	switch subcommand {
	case generate.cmd.FullCommand():
		settings, verr := generate.Validate()
		if verr != nil {
			kingpin.FatalUsage(verr.Error())
		}
		exitCode, cmdError = settings.Run(w, log)

	case catFooter.cmd.FullCommand():
		settings, verr := catFooter.Validate()
		if verr != nil {
			kingpin.FatalUsage(verr.Error())
		}
		exitCode, cmdError = settings.Run(w, log)

	case verify.cmd.FullCommand():
		settings, verr := verify.Validate()
		if verr != nil {
			kingpin.FatalUsage(verr.Error())
		}
		exitCode, cmdError = settings.Run(w, log)

	case diff.cmd.FullCommand():
		settings, verr := diff.Validate()
		if verr != nil {
			kingpin.FatalUsage(verr.Error())
		}
		exitCode, cmdError = settings.Run(w, log)

	case hashAlgos.cmd.FullCommand():
		settings, verr := hashAlgos.Validate()
		if verr != nil {
			kingpin.FatalUsage(verr.Error())
		}
		exitCode, cmdError = settings.Run(w, log)

	case version.cmd.FullCommand():
		settings, verr := version.Validate()
		if verr != nil {
			kingpin.FatalUsage(verr.Error())
		}
		exitCode, cmdError = settings.Run(w, log)

	default:
		kingpin.FatalUsage("unknown command")
	}

	if cmdError != nil {
		return handleError(cmdError.Error(), maxInt(exitCode, 1), jsonOutput())
	}
	return exitCode
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func main() {
	exitcode := cli()
	os.Exit(exitcode)
}
