// Package project locates the project root and loads trace.yaml.
package project

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ConfigFile is the project configuration file name.
const ConfigFile = "trace.yaml"

// Config is the project configuration.
type Config struct {
	Name        string
	CircuitsDir string
	OutputDir   string
	Circuits    []string
	KiCad       KiCad
}

// KiCad holds the locations of the KiCad libraries.
type KiCad struct {
	SymbolDir    string
	FootprintDir string
	Version      int
}

// DefaultConfig returns the configuration used when trace.yaml is absent
// or leaves a field unset.
func DefaultConfig() Config {
	return Config{
		Name:        "Trace Eurorack Module",
		CircuitsDir: "circuits",
		OutputDir:   "kicad/trace-eurorack-module/netlists",
		Circuits:    []string{"power_supply"},
		KiCad: KiCad{
			SymbolDir:    "/Applications/KiCad/KiCad.app/Contents/SharedSupport/symbols",
			FootprintDir: "/Applications/KiCad/KiCad.app/Contents/SharedSupport/footprints",
			Version:      8,
		},
	}
}

type yamlConfig struct {
	Name        string   `yaml:"name"`
	CircuitsDir string   `yaml:"circuits_dir"`
	OutputDir   string   `yaml:"output_dir"`
	Circuits    []string `yaml:"circuits"`
	KiCad       struct {
		SymbolDir    string `yaml:"symbol_dir"`
		FootprintDir string `yaml:"footprint_dir"`
		Version      int    `yaml:"version"`
	} `yaml:"kicad"`
}

// LoadConfig reads path and applies it on top of the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("project: %w", err)
	}

	var y yamlConfig
	if err := yaml.Unmarshal(b, &y); err != nil {
		return cfg, fmt.Errorf("project: parse %s: %w", path, err)
	}

	if y.Name != "" {
		cfg.Name = y.Name
	}
	if y.CircuitsDir != "" {
		cfg.CircuitsDir = y.CircuitsDir
	}
	if y.OutputDir != "" {
		cfg.OutputDir = y.OutputDir
	}
	if y.Circuits != nil {
		cfg.Circuits = y.Circuits
	}
	if y.KiCad.SymbolDir != "" {
		cfg.KiCad.SymbolDir = y.KiCad.SymbolDir
	}
	if y.KiCad.FootprintDir != "" {
		cfg.KiCad.FootprintDir = y.KiCad.FootprintDir
	}
	if y.KiCad.Version != 0 {
		cfg.KiCad.Version = y.KiCad.Version
	}

	return cfg, nil
}

// SymbolDirEnv returns the name of the symbol directory variable, e.g.
// KICAD8_SYMBOL_DIR.
func (k KiCad) SymbolDirEnv() string {
	return fmt.Sprintf("KICAD%d_SYMBOL_DIR", k.Version)
}

// FootprintDirEnv returns the name of the footprint directory variable.
func (k KiCad) FootprintDirEnv() string {
	return fmt.Sprintf("KICAD%d_FOOTPRINT_DIR", k.Version)
}

// ApplyEnv exports the KiCad library locations so that symbol lookups
// and child processes see them.
func (c Config) ApplyEnv() error {
	if err := os.Setenv(c.KiCad.SymbolDirEnv(), c.KiCad.SymbolDir); err != nil {
		return fmt.Errorf("project: set %s: %w", c.KiCad.SymbolDirEnv(), err)
	}
	if err := os.Setenv(c.KiCad.FootprintDirEnv(), c.KiCad.FootprintDir); err != nil {
		return fmt.Errorf("project: set %s: %w", c.KiCad.FootprintDirEnv(), err)
	}
	return nil
}

// Project is a located project root with its configuration.
type Project struct {
	Root       string
	ConfigPath string // Empty when no trace.yaml was found
	Config     Config
}

// Open searches for trace.yaml from startDir upwards. Without one, the
// start directory is the root and the defaults apply.
func Open(startDir string) (*Project, error) {
	abs, err := filepath.Abs(startDir)
	if err != nil {
		return nil, fmt.Errorf("project: %w", err)
	}

	for dir := abs; ; {
		path := filepath.Join(dir, ConfigFile)
		if _, err := os.Stat(path); err == nil {
			return OpenFile(path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("project: %w", err)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return &Project{Root: abs, Config: DefaultConfig()}, nil
}

// OpenFile loads an explicit configuration file; its directory is the
// project root.
func OpenFile(path string) (*Project, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("project: %w", err)
	}
	cfg, err := LoadConfig(abs)
	if err != nil {
		return nil, err
	}
	return &Project{Root: filepath.Dir(abs), ConfigPath: abs, Config: cfg}, nil
}

// Path resolves p against the project root unless it is absolute.
func (p *Project) Path(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(p.Root, rel)
}

// CircuitsPath is the absolute circuits directory.
func (p *Project) CircuitsPath() string {
	return p.Path(p.Config.CircuitsDir)
}

// OutputPath is the absolute netlist output directory.
func (p *Project) OutputPath() string {
	return p.Path(p.Config.OutputDir)
}
