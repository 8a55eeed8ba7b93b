// Package config handles cfgs.toml run configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/cfgs-lang/cfgs/vm"
)

// FileName is the configuration file looked for by FindAndLoad.
const FileName = "cfgs.toml"

// Config represents a cfgs.toml file.
type Config struct {
	Program ProgramConfig `toml:"program"`
	VM      VMConfig      `toml:"vm"`
	Log     LogConfig     `toml:"log"`

	// Dir is the directory containing the cfgs.toml file (set at load time).
	Dir string `toml:"-"`
}

// ProgramConfig names the program to run when none is given on the command
// line.
type ProgramConfig struct {
	Entry string `toml:"entry"`
	Image string `toml:"image"`
}

// VMConfig tunes the interpreter.
type VMConfig struct {
	MaxCallDepth   int           `toml:"max-call-depth"`
	FileBufferSize int           `toml:"file-buffer-size"`
	RegexTimeout   time.Duration `toml:"regex-timeout"` // "250ms", "2s"
	Trace          bool          `toml:"trace"`
}

// LogConfig configures the commonlog backend.
type LogConfig struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Default returns the configuration used when no cfgs.toml exists.
func Default() *Config {
	d := vm.DefaultOptions()
	return &Config{
		VM: VMConfig{
			MaxCallDepth:   d.MaxCallDepth,
			FileBufferSize: d.FileBufferSize,
			RegexTimeout:   d.RegexTimeout,
		},
	}
}

// Load parses a cfgs.toml file from the given directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, FileName))
}

// LoadFile parses the configuration file at path. Relative paths inside it
// resolve against the file's directory.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	c := Default()
	md, err := toml.Decode(string(data), c)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%s: unknown key %s", path, undecoded[0])
	}

	c.Dir, err = filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", path, err)
	}
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// FindAndLoad walks up from startDir to find a cfgs.toml file, then loads
// and returns it. Returns nil if no file is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, FileName)); err == nil {
			return Load(dir)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

func (c *Config) validate() error {
	if c.VM.MaxCallDepth < 0 {
		return fmt.Errorf("vm.max-call-depth must not be negative")
	}
	if c.VM.FileBufferSize < 0 {
		return fmt.Errorf("vm.file-buffer-size must not be negative")
	}
	if c.VM.RegexTimeout < 0 {
		return fmt.Errorf("vm.regex-timeout must not be negative")
	}
	return nil
}

// EntryPath returns the absolute path of program.entry, or "" when unset.
func (c *Config) EntryPath() string {
	return c.resolve(c.Program.Entry)
}

// ImagePath returns the absolute path of program.image, or "" when unset.
func (c *Config) ImagePath() string {
	return c.resolve(c.Program.Image)
}

// LogFile returns the absolute path of log.file, or nil to log to stderr.
func (c *Config) LogFile() *string {
	if c.Log.File == "" {
		return nil
	}
	path := c.resolve(c.Log.File)
	return &path
}

func (c *Config) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Dir, p)
}

// VMOptions converts the [vm] table into interpreter options.
func (c *Config) VMOptions() vm.Options {
	return vm.Options{
		MaxCallDepth:   c.VM.MaxCallDepth,
		FileBufferSize: c.VM.FileBufferSize,
		RegexTimeout:   c.VM.RegexTimeout,
		Trace:          c.VM.Trace,
	}
}
