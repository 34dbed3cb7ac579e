package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/pflag"

	dupblock "github.com/mattkeenan/dupblock/pkg"
)

// cliOptions holds the parsed command line
type cliOptions struct {
	dirs           []string
	excludes       []string
	recursive      bool
	minSize        string
	pattern        string
	blockSize      string
	hash           string
	configPath     string
	overrides      []string
	format         string
	workers        int
	skipUnreadable bool
	ignoreFile     string
	verbose        int
	debug          string
	writeConfig    string
	version        bool
	help           bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr, setupSignalHandler()))
}

func newFlagSet(opts *cliOptions) *pflag.FlagSet {
	fs := pflag.NewFlagSet("dupblock", pflag.ContinueOnError)
	fs.SortFlags = false

	fs.StringArrayVarP(&opts.dirs, "dir", "d", nil, "Directory to search (repeatable, required)")
	fs.StringArrayVarP(&opts.excludes, "exclude", "e", nil, "Directory to exclude (repeatable)")
	fs.BoolVarP(&opts.recursive, "recursive", "r", true, "Search subdirectories (--recursive=false for top level only)")
	fs.StringVarP(&opts.minSize, "min-size", "F", strconv.Itoa(dupblock.DefaultMinFileSize), "Minimum file size, e.g. 1, 4K")
	fs.StringVarP(&opts.pattern, "pattern", "m", dupblock.DefaultPattern, "Glob matched against file names")
	fs.StringVarP(&opts.blockSize, "block-size", "s", "", "Block size, e.g. 4K, 1M (required)")
	fs.StringVarP(&opts.hash, "hash", "a", dupblock.DefaultHashAlgorithm, "Hash algorithm")
	fs.StringVarP(&opts.configPath, "config", "c", "", "Read settings from an ini file")
	fs.StringArrayVarP(&opts.overrides, "override", "o", nil, "Override a config setting, key:value (repeatable)")
	fs.StringVarP(&opts.format, "format", "f", dupblock.DefaultOutputFormat, "Output format (human|json)")
	fs.IntVarP(&opts.workers, "workers", "j", dupblock.DefaultWorkers, "Size groups compared concurrently")
	fs.BoolVar(&opts.skipUnreadable, "skip-unreadable", false, "Warn about and skip unreadable files instead of failing")
	fs.StringVar(&opts.ignoreFile, "ignore-file", "", "File of regex patterns for paths to ignore")
	fs.CountVarP(&opts.verbose, "verbose", "v", "Verbose output (repeat for more)")
	fs.StringVar(&opts.debug, "debug", "", "Debug flags: scan,stream,compare,index,search,all")
	fs.StringVar(&opts.writeConfig, "write-config", "", "Write the effective settings to an ini file")
	fs.BoolVar(&opts.version, "version", false, "Show version information")
	fs.BoolVarP(&opts.help, "help", "h", false, "Show this help")

	return fs
}

// run executes one invocation and returns the process exit code
func run(args []string, stdout, stderr io.Writer, shutdownChan <-chan struct{}) int {
	opts := &cliOptions{}
	fs := newFlagSet(opts)
	fs.SetOutput(stderr)
	fs.Usage = func() {}

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(stderr, "dupblock: %v\n", err)
		fmt.Fprintf(stderr, "Try 'dupblock --help' for more information.\n")
		return 1
	}

	if opts.version {
		fmt.Fprintf(stdout, "dupblock %s\n", getVersionString())
		return 0
	}
	if opts.help {
		showHelp(stdout, fs)
		return 0
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(stderr, "dupblock: unexpected argument '%s' (use --dir)\n", fs.Arg(0))
		return 1
	}

	dupblock.SetLogOutput(stderr)
	defer dupblock.SetLogOutput(nil)

	if err := execute(opts, fs, stdout, shutdownChan); err != nil {
		fmt.Fprintf(stderr, "dupblock: %v\n", err)
		return 1
	}
	return 0
}

// execute resolves the effective settings and runs the search
func execute(opts *cliOptions, fs *pflag.FlagSet, stdout io.Writer, shutdownChan <-chan struct{}) error {
	cfg, err := loadSettings(opts, fs)
	if err != nil {
		return err
	}
	all := cfg.GetAllConfig()

	dupblock.SetVerboseLevel(all.Verbose.Level)
	dupblock.SetDebugFlags(all.Verbose.Debug)
	dupblock.LogDebugFlags()

	if opts.writeConfig != "" {
		if err := cfg.SaveTo(opts.writeConfig); err != nil {
			return err
		}
		dupblock.VerboseLog(1, "Wrote settings to %s", opts.writeConfig)
		if len(opts.dirs) == 0 {
			return nil
		}
	}

	if len(opts.dirs) == 0 {
		return dupblock.ErrMissingDirectory
	}
	searcher, err := dupblock.NewSearcherFromConfig(cfg)
	if err != nil {
		return err
	}

	excludes := append(all.Search.Exclude, opts.excludes...)
	groups, err := searcher.Search(shutdownChan, opts.dirs, excludes, all.Search.Pattern, all.Search.Recursive)
	if err != nil {
		if errors.Is(err, dupblock.ErrInterrupted) {
			return fmt.Errorf("search aborted: %w", err)
		}
		return err
	}

	return dupblock.WriteGroups(stdout, groups, all.Output.Format)
}

// loadSettings layers defaults, the config file, overrides and explicit flags
func loadSettings(opts *cliOptions, fs *pflag.FlagSet) (*dupblock.Config, error) {
	var cfg *dupblock.Config
	var err error
	if opts.configPath != "" {
		cfg, err = dupblock.LoadConfig(opts.configPath)
	} else {
		cfg, err = dupblock.NewDefaultConfig()
	}
	if err != nil {
		return nil, err
	}

	if err := cfg.ApplyOverrides(opts.overrides); err != nil {
		return nil, err
	}

	explicit := []struct {
		flag    string
		section string
		key     string
		value   func() string
	}{
		{"block-size", "search", "block_size", func() string { return opts.blockSize }},
		{"min-size", "search", "min_size", func() string { return opts.minSize }},
		{"pattern", "search", "pattern", func() string { return opts.pattern }},
		{"recursive", "search", "recursive", func() string { return strconv.FormatBool(opts.recursive) }},
		{"skip-unreadable", "search", "skip_unreadable", func() string { return strconv.FormatBool(opts.skipUnreadable) }},
		{"ignore-file", "search", "ignore_file", func() string { return opts.ignoreFile }},
		{"hash", "filehash", "default", func() string { return opts.hash }},
		{"format", "output", "format", func() string { return opts.format }},
		{"workers", "performance", "workers", func() string { return strconv.Itoa(opts.workers) }},
		{"verbose", "verbose", "level", func() string { return strconv.Itoa(opts.verbose) }},
		{"debug", "verbose", "debug", func() string { return opts.debug }},
	}
	for _, e := range explicit {
		if fs.Changed(e.flag) {
			cfg.Set(e.section, e.key, e.value())
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func showHelp(w io.Writer, fs *pflag.FlagSet) {
	fmt.Fprintf(w, "dupblock - find files with identical content\n\n")
	fmt.Fprintf(w, "Usage: dupblock -d DIR [-d DIR...] -s BLOCKSIZE [options]\n\n")
	fmt.Fprintf(w, "Files are grouped by size and compared block by block; each block is\n")
	fmt.Fprintf(w, "read and hashed at most once, and comparison stops at the first\n")
	fmt.Fprintf(w, "differing block.\n\n")
	fmt.Fprintf(w, "Options:\n")
	fmt.Fprint(w, fs.FlagUsages())
	fmt.Fprintf(w, "\nHash algorithms: %v\n", dupblock.SupportedHashAlgorithms())
	fmt.Fprintf(w, "\nSettings precedence: defaults < --config < --override < explicit flags\n")
	fmt.Fprintf(w, "Override keys: block_size, min_size, pattern, recursive, skip_unreadable,\n")
	fmt.Fprintf(w, "  ignore_file, exclude, hash, format, level, debug, workers\n")
	fmt.Fprintf(w, "\nExamples:\n")
	fmt.Fprintf(w, "  dupblock -d ~/photos -d /backup/photos -s 64K\n")
	fmt.Fprintf(w, "  dupblock -d . -s 4K -a md5 -m '*.jpg' --format json\n")
	fmt.Fprintf(w, "  dupblock -c dupblock.ini -o hash:blake3 -d /srv\n")
}
