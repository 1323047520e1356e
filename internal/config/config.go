// Package config loads the optional TOML defaults file for a sync pair.
// CLI flags the user set explicitly always take precedence over the file;
// this package only supplies fallbacks for flags left at their zero value.
package config

import (
	"github.com/BurntSushi/toml"
)

// File is the shape of the optional --config TOML file.
type File struct {
	Filter   string `toml:"filter"`
	Threads  int    `toml:"threads"`
	StateDir string `toml:"state_dir"`
	LogLevel string `toml:"log_level"`
}

// Defaults returns the hardcoded fallbacks used when neither a flag nor a
// config file value is present.
func Defaults() File {
	return File{
		Filter:   "",
		Threads:  4,
		StateDir: ".state",
		LogLevel: "info",
	}
}

// Load reads and parses a TOML file at path. A missing path is not an
// error — callers pass "" to skip loading and get only the defaults.
func Load(path string) (File, error) {
	f := Defaults()
	if path == "" {
		return f, nil
	}
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return File{}, err
	}
	return f, nil
}

// Merge layers flag-provided overrides on top of f, treating a zero value in
// each override field as "not set on the command line".
func (f File) Merge(filterOverride string, threadsOverride int, stateDirOverride, logLevelOverride string) File {
	out := f
	if filterOverride != "" {
		out.Filter = filterOverride
	}
	if threadsOverride > 0 {
		out.Threads = threadsOverride
	}
	if stateDirOverride != "" {
		out.StateDir = stateDirOverride
	}
	if logLevelOverride != "" {
		out.LogLevel = logLevelOverride
	}
	return out
}
