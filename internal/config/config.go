// Package config reads crore's configuration file: a flat key = val
// format, not YAML, per the daemon's external interface.
package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/aetxyz/crore/internal/logging"
)

// EnvVar is one (key, value) pair to apply to every child, in the order
// it was encountered.
type EnvVar struct {
	Key   string
	Value string
}

// Config is the immutable, read-only product of parsing a config file and
// the command line.
type Config struct {
	Verbosity logging.Verbosity
	Legacy    bool
	NoTabFile bool
	TabFile   string
	Before    []string
	After     []string
	Envs      []EnvVar
}

// Parse reads key = val lines from data. Blank lines and lines whose
// first non-whitespace character is `#` are ignored. Everything else
// must contain " = "; the key decides whether it is a recognized
// directive or an env var passed through to children.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}

	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, val, ok := strings.Cut(line, " = ")
		if !ok {
			return nil, fmt.Errorf("config line %d: missing \" = \" delimiter: %q", lineNo, line)
		}
		key = strings.TrimSpace(key)

		switch key {
		case "after":
			cfg.After = append(cfg.After, val)
		case "before":
			cfg.Before = append(cfg.Before, val)
		case "legacy":
			cfg.Legacy = true
		case "notabfile":
			cfg.NoTabFile = true
		case "private":
			cfg.Verbosity = logging.Private
		case "silent":
			cfg.Verbosity = logging.Silent
		case "tabfile":
			cfg.TabFile = val
		default:
			cfg.Envs = append(cfg.Envs, EnvVar{Key: key, Value: val})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return cfg, nil
}

// Load reads and parses the config file at path. A missing file is not
// an error: crore runs with an empty configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Merge layers command-line-derived overrides onto a file-derived config.
// CLI flags win on verbosity/tabfile; legacy/notabfile are set if either
// side sets them; before/after/env accumulate.
func (c *Config) Merge(o *Config) *Config {
	merged := &Config{
		Verbosity: c.Verbosity,
		Legacy:    c.Legacy || o.Legacy,
		NoTabFile: c.NoTabFile || o.NoTabFile,
		TabFile:   c.TabFile,
		Before:    append(append([]string{}, c.Before...), o.Before...),
		After:     append(append([]string{}, c.After...), o.After...),
		Envs:      append(append([]EnvVar{}, c.Envs...), o.Envs...),
	}
	if o.Verbosity != logging.Normal {
		merged.Verbosity = o.Verbosity
	}
	if o.TabFile != "" {
		merged.TabFile = o.TabFile
	}
	return merged
}
