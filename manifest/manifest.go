// Package manifest handles bfi.toml configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/chazu/bfi/vm"
)

// FileName is the configuration file looked up by FindAndLoad.
const FileName = "bfi.toml"

// Manifest represents a bfi.toml configuration.
type Manifest struct {
	Machine Machine `toml:"machine"`
	Source  Source  `toml:"source"`
	Server  Server  `toml:"server"`
	History History `toml:"history"`

	// Dir is the directory containing the bfi.toml file (set at load time).
	Dir string `toml:"-"`
}

// Machine sizes the tape machine and bounds each run.
type Machine struct {
	TapeSize   int   `toml:"tape-size"`
	StackDepth int   `toml:"stack-depth"`
	MaxSteps   int64 `toml:"max-steps"` // 0 = unlimited
}

// Source configures how program files are read.
type Source struct {
	FoldWhitespace bool `toml:"fold-whitespace"`
}

// Server configures the RPC service.
type Server struct {
	Addr      string `toml:"addr"`
	Workers   int    `toml:"workers"`
	MaxSource int    `toml:"max-source"`
}

// History configures the run history database.
type History struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Default returns the configuration used when no bfi.toml exists.
func Default() *Manifest {
	m := &Manifest{
		Source: Source{FoldWhitespace: true},
	}
	m.applyDefaults()
	return m
}

func (m *Manifest) applyDefaults() {
	if m.Machine.TapeSize == 0 {
		m.Machine.TapeSize = vm.DefaultTapeSize
	}
	if m.Machine.StackDepth == 0 {
		m.Machine.StackDepth = vm.DefaultStackDepth
	}
	if m.Server.Addr == "" {
		m.Server.Addr = ":4567"
	}
	if m.Server.Workers == 0 {
		m.Server.Workers = 4
	}
	if m.Server.MaxSource == 0 {
		m.Server.MaxSource = 1 << 20
	}
	if m.History.Path == "" {
		m.History.Path = filepath.Join(".bfi", "history.db")
	}
}

// Parse decodes and validates bfi.toml content. dir is recorded as the
// manifest directory; relative paths are resolved against it.
func Parse(data []byte, dir string) (*Manifest, error) {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	if raw == nil {
		raw = map[string]any{}
	}
	if err := validate(raw); err != nil {
		return nil, err
	}

	m := &Manifest{
		Source: Source{FoldWhitespace: true},
		Dir:    dir,
	}
	if err := toml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	m.applyDefaults()
	return m, nil
}

// Load parses a bfi.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	return LoadFile(path)
}

// LoadFile parses the configuration file at path.
func LoadFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	dir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", path, err)
	}

	m, err := Parse(data, dir)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// FindAndLoad walks up from startDir to find a bfi.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// MachineOptions converts the [machine] section to engine options.
func (m *Manifest) MachineOptions() []vm.Option {
	return []vm.Option{
		vm.WithTapeSize(m.Machine.TapeSize),
		vm.WithStackDepth(m.Machine.StackDepth),
	}
}

// HistoryPath returns the absolute path of the history database.
func (m *Manifest) HistoryPath() string {
	if filepath.IsAbs(m.History.Path) || m.Dir == "" {
		return m.History.Path
	}
	return filepath.Join(m.Dir, m.History.Path)
}
