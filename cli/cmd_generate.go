package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/alecthomas/kingpin.v2"
	"gopkg.in/yaml.v2"

	"github.com/meisterluk/dirsig/internal/hashalgo"
	"github.com/meisterluk/dirsig/internal/progress"
	"github.com/meisterluk/dirsig/internal/scan"
	"github.com/meisterluk/dirsig/internal/sig"
)

// scanLogger adapts an Output sink to scan.Logger, so warnings from a scan
// (unknown file types, overlaid-source conflicts) surface on the CLI's
// regular log stream.
type scanLogger struct{ out Output }

func (l scanLogger) Warnf(format string, args ...interface{}) {
	l.out.Warnf(format, args...)
}

// GenerateJSONResult is a struct used to serialize JSON output
type GenerateJSONResult struct {
	Message string `json:"message"`
}

// CLIGenerateCommand defines the CLI arguments as kingpin requires them
type CLIGenerateCommand struct {
	cmd          *kingpin.CmdClause
	Dirs         *[]string
	WriteIndex   *string
	Hash         *string
	BlockSize    *int
	Threads      *int
	Progress     *bool
	Overwrite    *bool
	ConfigOutput *bool
	ConfigFile   *string
	JSONOutput   *bool
}

// newCLIGenerateCommand defines the flags/arguments the CLI parser understands for "generate"
func newCLIGenerateCommand(app *kingpin.Application) *CLIGenerateCommand {
	c := new(CLIGenerateCommand)
	c.cmd = app.Command("generate", "Generate a directory signature for one or more trees.")

	c.Dirs = c.cmd.Arg("dir", "one or more [PREFIX:]DIR arguments; at least one must mount at /").Strings()
	c.WriteIndex = c.cmd.Flag("write-index", "write the signature to this path instead of standard output").String()
	c.Hash = c.cmd.Flag("hash", "hash algorithm to use").Default(envOr("DIRSIG_HASH", string(hashalgo.SHA512_256))).String()
	c.BlockSize = c.cmd.Flag("block-size", "block size in bytes for content hashing").Default(fmt.Sprintf("%d", sig.DefaultBlockSize)).Int()
	c.Threads = c.cmd.Flag("threads", "worker-pool size; 0 runs single-threaded").Int()
	c.Progress = c.cmd.Flag("progress", "report a throttled status line to stderr while scanning").Bool()
	c.Overwrite = c.cmd.Flag("overwrite", "if --write-index already exists, overwrite it without asking").Bool()
	c.ConfigOutput = c.cmd.Flag("config", "only print the resolved configuration and exit").Bool()
	c.ConfigFile = c.cmd.Flag("config-file", "load sources and settings from a YAML file instead of the dir arguments and flags above").String()
	c.JSONOutput = c.cmd.Flag("json", "return output as JSON, not as plain text").Bool()

	return c
}

// fileConfig is the YAML shape accepted by --config-file. Sources entries
// are "[PREFIX:]DIR" strings, parsed the same way positional dir arguments
// are.
type fileConfig struct {
	Sources   []string `yaml:"sources"`
	Hash      string   `yaml:"hash"`
	BlockSize int      `yaml:"block-size"`
	Threads   int      `yaml:"threads"`
	Progress  bool     `yaml:"progress"`
	Overwrite bool     `yaml:"overwrite"`
}

// GenerateSettings is the resolved, validated configuration for a "generate" run.
type GenerateSettings struct {
	Sources      []scan.SourceMount `json:"sources"`
	WriteIndex   string             `json:"write-index"`
	Hash         string             `json:"hash"`
	BlockSize    int                `json:"block-size"`
	Threads      int                `json:"threads"`
	Progress     bool               `json:"progress"`
	Overwrite    bool               `json:"overwrite"`
	ConfigOutput bool               `json:"config"`
	JSONOutput   bool               `json:"json"`
}

// Validate renders the parsed flags into a GenerateSettings or returns an error.
func (c *CLIGenerateCommand) Validate() (*GenerateSettings, error) {
	s := new(GenerateSettings)
	s.JSONOutput = *c.JSONOutput
	if envJSON, err := envToBool("DIRSIG_JSON"); err == nil {
		s.JSONOutput = envJSON
	}
	s.ConfigOutput = *c.ConfigOutput

	var mounts []string
	if *c.ConfigFile != "" {
		raw, err := os.ReadFile(*c.ConfigFile)
		if err != nil {
			return nil, fmt.Errorf("reading --config-file %q: %w", *c.ConfigFile, err)
		}
		var fc fileConfig
		if err := yaml.Unmarshal(raw, &fc); err != nil {
			return nil, fmt.Errorf("parsing --config-file %q: %w", *c.ConfigFile, err)
		}
		mounts = fc.Sources
		s.Hash = fc.Hash
		s.BlockSize = fc.BlockSize
		s.Threads = fc.Threads
		s.Progress = fc.Progress
		s.Overwrite = fc.Overwrite
		if s.Hash == "" {
			s.Hash = *c.Hash
		}
		if s.BlockSize == 0 {
			s.BlockSize = *c.BlockSize
		}
	} else {
		mounts = *c.Dirs
		s.WriteIndex = *c.WriteIndex
		s.Hash = *c.Hash
		s.BlockSize = *c.BlockSize
		s.Threads = *c.Threads
		s.Progress = *c.Progress
		s.Overwrite = *c.Overwrite
	}

	if s.Threads == 0 {
		if t, ok := envToInt("DIRSIG_THREADS"); ok {
			s.Threads = t
		}
	}

	if len(mounts) == 0 {
		return nil, fmt.Errorf("no source directories given; pass [PREFIX:]DIR arguments or --config-file")
	}
	hasRoot := false
	for _, arg := range mounts {
		prefix, dir := splitMountArg(arg)
		if prefix == "/" {
			hasRoot = true
		}
		s.Sources = append(s.Sources, scan.SourceMount{Source: dir, Prefix: prefix})
	}
	if !hasRoot {
		return nil, scan.ErrNoRootDirectory
	}
	if !hashalgo.Valid(hashalgo.Name(s.Hash)) {
		return nil, fmt.Errorf("unsupported hash algorithm %q, expected one of %v", s.Hash, hashalgo.Names())
	}
	if s.BlockSize <= 0 {
		return nil, fmt.Errorf("expected --block-size to be a positive integer, got %d", s.BlockSize)
	}
	if s.Threads < 0 {
		return nil, fmt.Errorf("expected --threads to be non-negative, got %d", s.Threads)
	}

	return s, nil
}

// splitMountArg splits a "[PREFIX:]DIR" CLI argument into its mount prefix
// (defaulting to "/") and its on-disk directory.
func splitMountArg(arg string) (prefix, dir string) {
	if i := strings.Index(arg, ":"); i >= 0 {
		return arg[:i], arg[i+1:]
	}
	return "/", arg
}

// Run executes the "generate" command: it drives internal/scan.Scan over
// s.Sources and writes the resulting signature to s.WriteIndex, or to
// standard output when unset.
func (s *GenerateSettings) Run(w Output, log Output) (int, error) {
	if s.ConfigOutput {
		b, err := json.Marshal(s)
		if err != nil {
			return 6, fmt.Errorf(configJSONErrMsg, err)
		}
		w.Println(string(b))
		return 0, nil
	}

	var sink *os.File
	if s.WriteIndex != "" {
		if _, err := os.Stat(s.WriteIndex); err == nil && !s.Overwrite {
			return 3, fmt.Errorf(existsErrMsg, s.WriteIndex)
		}
		f, err := os.Create(s.WriteIndex)
		if err != nil {
			return 2, fmt.Errorf("error creating file '%s': %s", s.WriteIndex, err)
		}
		defer f.Close()
		sink = f
	} else {
		sink = os.Stdout
	}

	em, err := sig.NewEmitter(sink, hashalgo.Name(s.Hash), s.BlockSize)
	if err != nil {
		return 6, err
	}

	var reporter scan.Reporter
	if s.Progress {
		reporter = progress.New(os.Stderr)
	}

	cfg := scan.Config{
		Sources:   s.Sources,
		HashType:  hashalgo.Name(s.Hash),
		BlockSize: s.BlockSize,
		Workers:   s.Threads,
		Progress:  s.Progress,
		Reporter:  reporter,
		Logger:    scanLogger{log},
	}
	if err := scan.Scan(cfg, em); err != nil {
		return 2, err
	}
	digest, err := em.Finish()
	if err != nil {
		return 2, err
	}
	if reporter != nil {
		reporter.Done(digest)
	}

	msg := "Done."
	if s.WriteIndex != "" {
		msg = fmt.Sprintf(`Done. File "%s" written`, s.WriteIndex)
	}
	if s.JSONOutput {
		data := GenerateJSONResult{Message: msg}
		jsonRepr, jerr := json.Marshal(&data)
		if jerr != nil {
			return 6, fmt.Errorf(resultJSONErrMsg, jerr)
		}
		w.Println(string(jsonRepr))
	} else if s.WriteIndex != "" {
		w.Println(msg)
	}

	return 0, nil
}
