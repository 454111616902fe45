// Package config loads the optional .solcheck.yaml file.
package config

import (
	"os"
	"runtime"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
	analysiserrors "solcheck/internal/errors"
)

// FileName is looked up in the working directory when no path is given.
const FileName = ".solcheck.yaml"

type Dataflow struct {
	// MaxVisits bounds how often the bundled analyses transfer one node.
	// Zero means no bound.
	MaxVisits int `yaml:"max_visits"`
}

type Analysis struct {
	IsolateTypeErrors bool `yaml:"isolate_type_errors"`
}

type Output struct {
	PrintIR bool   `yaml:"print_ir"`
	Format  string `yaml:"format"`
}

type Config struct {
	Verbosity int      `yaml:"verbosity"`
	Workers   int      `yaml:"workers"`
	Color     bool     `yaml:"color"`
	Dataflow  Dataflow `yaml:"dataflow"`
	Analysis  Analysis `yaml:"analysis"`
	Output    Output   `yaml:"output"`
}

func Default() Config {
	return Config{
		Workers: runtime.NumCPU(),
		Color:   true,
		Output:  Output{Format: "text"},
	}
}

// Load reads path, or FileName in the working directory when path is
// empty. A missing FileName yields the defaults; a missing explicit path is
// an error. Fields absent from the file keep their default. The second
// result is the file actually read, if any.
func Load(path string) (Config, string, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = FileName
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && os.IsNotExist(err) {
			return cfg, "", nil
		}
		return cfg, path, errors.Wrapf(err, "reading config %s", path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, path, errors.Wrapf(err, "parsing config %s", path)
	}
	return cfg, path, cfg.Validate()
}

// Validate rejects values the analyses cannot honour.
func (c *Config) Validate() error {
	switch {
	case c.Workers < 1:
		return analysiserrors.InvalidConfig("workers", "must be at least 1")
	case c.Dataflow.MaxVisits < 0:
		return analysiserrors.InvalidConfig("dataflow.max_visits", "must not be negative")
	case c.Output.Format != "text" && c.Output.Format != "table":
		return analysiserrors.InvalidConfig("output.format", "must be text or table, got "+quote(c.Output.Format))
	}
	return nil
}

func quote(s string) string { return "'" + s + "'" }
