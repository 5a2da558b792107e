package driver

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// SourceExtension is the canonical source file extension the Driver
// searches for when a path argument names a directory.
const SourceExtension = ".mod"

// searchRootEnv is the one blessed environment variable spec.md §6 allows:
// it points the import resolver at additional module search roots, the
// way PYTHONPATH does for the language this module's target most
// resembles. Colon-separated, matching that convention.
const searchRootEnv = "MOLTPATH"

// Backend names the pluggable Type Resolver implementation, selected by
// the --type-method flag.
type Backend string

const (
	BackendNone    Backend = "none"
	BackendPyright Backend = "pyright"
	BackendMypy    Backend = "mypy"
)

// CLIFlags mirrors the flags cmd/molt parses, kept separate from Config so
// LoadConfig's precedence rule (CLI flags > environment > defaults) has
// something concrete to override, the way the teacher's config.CLIFlags
// does for peakconfig.json.
type CLIFlags struct {
	Write           bool
	Check           bool
	Interactive     bool
	All             bool
	Before          string
	CurrentVersion  string
	TypeMethod      string
	TimeoutSeconds  int
	SearchRoots     []string
	Jobs            int
	Watch           bool
	ImportMaxDepth  int
}

// Config is the runtime configuration for one Driver invocation.
type Config struct {
	Write          bool
	Check          bool
	Interactive    bool
	All            bool
	Before         string
	CurrentVersion string
	Backend        Backend
	Timeout        int // seconds
	SearchRoots    []string
	Jobs           int
	Watch          bool
	ImportMaxDepth int
}

// LoadConfig builds a Config from flags, falling back to the blessed
// environment variable and then to defaults — CLI flags > environment >
// defaults, the same three-tier precedence as the teacher's
// config.LoadConfig, with the config-file tier dropped since spec.md §6
// allows none.
func LoadConfig(flags CLIFlags) *Config {
	cfg := &Config{
		Write:          flags.Write,
		Check:          flags.Check,
		Interactive:    flags.Interactive,
		All:            flags.All,
		Before:         flags.Before,
		CurrentVersion: flags.CurrentVersion,
		Backend:        Backend(flags.TypeMethod),
		Timeout:        flags.TimeoutSeconds,
		SearchRoots:    flags.SearchRoots,
		Jobs:           flags.Jobs,
		Watch:          flags.Watch,
		ImportMaxDepth: flags.ImportMaxDepth,
	}

	if cfg.Backend == "" {
		cfg.Backend = BackendNone
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10
	}
	if cfg.Jobs <= 0 {
		cfg.Jobs = numCPU()
	}
	if cfg.ImportMaxDepth <= 0 {
		cfg.ImportMaxDepth = 2
	}
	if len(cfg.SearchRoots) == 0 {
		if env := os.Getenv(searchRootEnv); env != "" {
			for _, p := range strings.Split(env, string(os.PathListSeparator)) {
				if p != "" {
					cfg.SearchRoots = append(cfg.SearchRoots, p)
				}
			}
		}
	}

	normalized := make([]string, 0, len(cfg.SearchRoots))
	for _, root := range cfg.SearchRoots {
		if abs, err := filepath.Abs(root); err == nil {
			normalized = append(normalized, abs)
		} else {
			normalized = append(normalized, root)
		}
	}
	cfg.SearchRoots = normalized

	return cfg
}

// Validate reports a FatalConfigurationError for any combination spec.md
// §6/§9 rules out before a single file is touched.
func (c *Config) Validate() *Error {
	switch c.Backend {
	case BackendNone, BackendPyright, BackendMypy:
	default:
		return newError(FatalConfigurationError, "", "unknown --type-method %q", c.Backend)
	}
	if c.All && (c.Before != "" || c.CurrentVersion != "") {
		return newError(FatalConfigurationError, "", "--all cannot be combined with --before or --current-version")
	}
	if c.Before != "" && c.CurrentVersion != "" {
		return newError(FatalConfigurationError, "", "--before and --current-version are mutually exclusive")
	}
	return nil
}

func numCPU() int {
	n := runtime.NumCPU()
	if n < 1 {
		return 1
	}
	return n
}
