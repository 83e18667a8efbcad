// Package config holds the run configuration passed to the orchestrator.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultEpochs  = 10
	DefaultGames   = 10000
	DefaultPython  = "python"
	DefaultPackage = "othello_train"
)

// Module names run with "<python> -m <package>.<module>".
const (
	ModuleInit     = "make_empty_model_v1"
	ModuleExport   = "checkpoint_to_savedmodel_v1"
	ModuleSelfPlay = "playout_v1"
	ModuleTrain    = "rl_train_v1"
)

// InvalidArgumentsError reports malformed or missing configuration.
// It is returned before any stage runs.
type InvalidArgumentsError struct {
	Reason string
}

func (e *InvalidArgumentsError) Error() string {
	return "invalid arguments: " + e.Reason
}

// Invalid builds an InvalidArgumentsError.
func Invalid(format string, args ...any) error {
	return &InvalidArgumentsError{Reason: fmt.Sprintf(format, args...)}
}

// IsInvalidArguments reports whether err is or wraps an InvalidArgumentsError.
func IsInvalidArguments(err error) bool {
	var ia *InvalidArgumentsError
	return errors.As(err, &ia)
}

// Programs holds the command prefix for each stage. The loop appends the
// stage's path arguments to these.
type Programs struct {
	Init     []string `yaml:"init,omitempty"`
	Export   []string `yaml:"export,omitempty"`
	SelfPlay []string `yaml:"self_play,omitempty"`
	Train    []string `yaml:"train,omitempty"`
}

// Config is the value object handed to the orchestrator.
type Config struct {
	WorkDir string `yaml:"work_dir,omitempty"`
	Epochs  int    `yaml:"epochs"`
	Games   int    `yaml:"games"`

	Python  string `yaml:"python,omitempty"`
	Package string `yaml:"package,omitempty"`

	// Programs overrides individual stage commands. Empty entries fall back
	// to "<Python> -m <Package>.<module>".
	Programs Programs `yaml:"programs,omitempty"`

	DryRun     bool   `yaml:"dry_run,omitempty"`
	Verbose    bool   `yaml:"verbose,omitempty"`
	StatusFile string `yaml:"status_file,omitempty"`
}

// Default returns a config with the CLI defaults and no working directory.
func Default() Config {
	return Config{
		Epochs:  DefaultEpochs,
		Games:   DefaultGames,
		Python:  DefaultPython,
		Package: DefaultPackage,
	}
}

// LoadFile reads a YAML file on top of base. Keys absent from the file keep
// their value from base.
func LoadFile(path string, base Config) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read config %q: %w", path, err)
	}
	cfg := base
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return base, Invalid("parse config %q: %v", path, err)
	}
	return cfg, nil
}

// Validate checks the config before any stage runs.
func (c Config) Validate() error {
	if strings.TrimSpace(c.WorkDir) == "" {
		return Invalid("work_dir is required")
	}
	if c.Epochs < 0 {
		return Invalid("--epoch must be >= 0, got %d", c.Epochs)
	}
	if c.Games < 0 {
		return Invalid("--games must be >= 0, got %d", c.Games)
	}
	for name, prog := range map[string][]string{
		"init":      c.Programs.Init,
		"export":    c.Programs.Export,
		"self_play": c.Programs.SelfPlay,
		"train":     c.Programs.Train,
	} {
		if len(prog) > 0 && strings.TrimSpace(prog[0]) == "" {
			return Invalid("programs.%s: empty executable", name)
		}
	}
	return nil
}

// Resolved returns the effective command prefix for every stage.
func (c Config) Resolved() Programs {
	return Programs{
		Init:     c.program(c.Programs.Init, ModuleInit),
		Export:   c.program(c.Programs.Export, ModuleExport),
		SelfPlay: c.program(c.Programs.SelfPlay, ModuleSelfPlay),
		Train:    c.program(c.Programs.Train, ModuleTrain),
	}
}

func (c Config) program(override []string, module string) []string {
	if len(override) > 0 {
		return append([]string(nil), override...)
	}
	python := c.Python
	if python == "" {
		python = DefaultPython
	}
	pkg := c.Package
	if pkg == "" {
		pkg = DefaultPackage
	}
	return []string{python, "-m", pkg + "." + module}
}
