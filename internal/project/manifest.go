package project

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// NoManifestMessage is printed when a command needs a project and none is found.
const NoManifestMessage = "no rewind.toml found\nrun `rewind init` to create one"

// Manifest is a decoded rewind.toml together with its location.
type Manifest struct {
	Path   string
	Root   string
	Config Config
}

// Config mirrors the sections of rewind.toml.
type Config struct {
	Build     BuildConfig    `toml:"build"`
	Compiler  CompilerConfig `toml:"compiler"`
	Libraries FileSet        `toml:"libraries"`
	Sources   FileSet        `toml:"sources"`
	Lint      LintConfig     `toml:"lint"`
}

type BuildConfig struct {
	Out         string `toml:"out"`
	Scratch     string `toml:"scratch"`
	Jobs        int    `toml:"jobs"`
	Banner      int    `toml:"banner"`
	KeepMapFile bool   `toml:"keep_map_file"`
	KeepTmp     bool   `toml:"keep_tmp"`
	Cache       bool   `toml:"cache"`
}

type CompilerConfig struct {
	Command string   `toml:"command"`
	Args    []string `toml:"args"`
}

// FileSet selects files with doublestar globs relative to Base.
type FileSet struct {
	Include []string `toml:"include"`
	Exclude []string `toml:"exclude"`
	Base    string   `toml:"base"`
	Compile *bool    `toml:"compile"`
}

type LintConfig struct {
	Results string `toml:"results"`
}

// DefaultBanner is the report banner width used when [build].banner is unset.
const DefaultBanner = 80

// LoadManifest locates rewind.toml from startDir and decodes it.
// ok is false when no manifest exists.
func LoadManifest(startDir string) (*Manifest, bool, error) {
	manifestPath, ok, err := FindManifest(startDir)
	if err != nil || !ok {
		return nil, ok, err
	}
	m, err := ReadManifest(manifestPath)
	if err != nil {
		return nil, true, err
	}
	return m, true, nil
}

// ReadManifest decodes and validates the manifest at path.
func ReadManifest(path string) (*Manifest, error) {
	var cfg Config
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if err := validate(path, meta, &cfg); err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	return &Manifest{Path: abs, Root: filepath.Dir(abs), Config: cfg}, nil
}

func validate(path string, meta toml.MetaData, cfg *Config) error {
	if !meta.IsDefined("build") {
		return fmt.Errorf("%s: missing [build]", path)
	}
	if !meta.IsDefined("build", "out") || strings.TrimSpace(cfg.Build.Out) == "" {
		return fmt.Errorf("%s: missing [build].out", path)
	}
	if cfg.Build.Jobs < 0 {
		return fmt.Errorf("%s: [build].jobs must not be negative", path)
	}
	if cfg.Build.Banner < 0 {
		return fmt.Errorf("%s: [build].banner must not be negative", path)
	}
	if !meta.IsDefined("compiler") {
		return fmt.Errorf("%s: missing [compiler]", path)
	}
	if !meta.IsDefined("compiler", "command") || strings.TrimSpace(cfg.Compiler.Command) == "" {
		return fmt.Errorf("%s: missing [compiler].command", path)
	}
	if !meta.IsDefined("sources") && !meta.IsDefined("libraries") {
		return fmt.Errorf("%s: missing [sources]", path)
	}
	for _, section := range []string{"sources", "libraries"} {
		if meta.IsDefined(section) && !meta.IsDefined(section, "include") {
			return fmt.Errorf("%s: missing [%s].include", path, section)
		}
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("%s: unknown key %s", path, undecoded[0])
	}
	return nil
}

// OutputRoot is the absolute output directory.
func (m *Manifest) OutputRoot() string {
	return m.resolve(m.Config.Build.Out)
}

// ScratchRoot is the absolute scratch directory, or "" for the default.
func (m *Manifest) ScratchRoot() string {
	if strings.TrimSpace(m.Config.Build.Scratch) == "" {
		return ""
	}
	return m.resolve(m.Config.Build.Scratch)
}

// LintResults is the absolute lint result path, or "" when none is set.
func (m *Manifest) LintResults() string {
	if strings.TrimSpace(m.Config.Lint.Results) == "" {
		return ""
	}
	return m.resolve(m.Config.Lint.Results)
}

// Banner is the configured report width.
func (m *Manifest) Banner() int {
	if m.Config.Build.Banner > 0 {
		return m.Config.Build.Banner
	}
	return DefaultBanner
}

func (m *Manifest) resolve(p string) string {
	p = filepath.FromSlash(strings.TrimSpace(p))
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(m.Root, p)
}

// StarterManifest is written by `rewind init`.
func StarterManifest(command string) string {
	if command == "" {
		command = "traceur"
	}
	return fmt.Sprintf(`[build]
out = "build"
jobs = 0
banner = %d
keep_map_file = false
cache = true

[compiler]
command = %q
args = ["--source-maps", "--out", "{out}", "{src}"]

[sources]
include = ["**/*.ts"]
exclude = ["**/*.d.ts"]
base = "src"

[libraries]
include = ["lib/**/*.js"]
base = "."
compile = false
`, DefaultBanner, command)
}
