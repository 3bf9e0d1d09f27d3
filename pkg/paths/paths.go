// Package paths centralizes filesystem locations for kiwi. It follows
// the XDG Base Directory specification and honors a small set of
// environment overrides so tests and unusual setups can relocate
// everything.
package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// Environment variable overrides.
const (
	// EnvDotfilesDir overrides the managed directory root.
	EnvDotfilesDir = "DOTFILES_DIR"

	// EnvConfigDir overrides the kiwi config directory.
	EnvConfigDir = "KIWI_CONFIG_DIR"

	// EnvStateDir overrides the kiwi state directory.
	EnvStateDir = "KIWI_STATE_DIR"
)

// Well-known file names. These are kiwi's internal document layout and
// are not user configurable.
const (
	AppDirName       = "kiwi"
	ConfigFileName   = "config.json"
	DefaultsFileName = "kiwi.toml"
	RegistryFileName = "dotfiles.json"
	PackagesFileName = "packages.json"
	LogFileName      = "kiwi.log"
)

// Paths resolves every location kiwi reads or writes.
type Paths struct {
	configDir   string
	dotfilesDir string
	stateDir    string
}

// New builds a Paths instance. dotfilesDir may be empty, in which case
// the DOTFILES_DIR environment variable and then the XDG data
// directory are consulted.
func New(dotfilesDir string) *Paths {
	if dotfilesDir == "" {
		dotfilesDir = os.Getenv(EnvDotfilesDir)
	}
	if dotfilesDir == "" {
		dotfilesDir = filepath.Join(xdg.DataHome, AppDirName, "dotfiles")
	}

	configDir := os.Getenv(EnvConfigDir)
	if configDir == "" {
		configDir = filepath.Join(xdg.ConfigHome, AppDirName)
	}

	stateDir := os.Getenv(EnvStateDir)
	if stateDir == "" {
		stateDir = filepath.Join(xdg.StateHome, AppDirName)
	}

	return &Paths{
		configDir:   configDir,
		dotfilesDir: dotfilesDir,
		stateDir:    stateDir,
	}
}

// ConfigDir returns the directory holding config.json and kiwi.toml.
func (p *Paths) ConfigDir() string {
	return p.configDir
}

// ConfigFile returns the path of the JSON configuration document.
func (p *Paths) ConfigFile() string {
	return filepath.Join(p.configDir, ConfigFileName)
}

// DefaultsFile returns the path of the optional TOML defaults overlay.
func (p *Paths) DefaultsFile() string {
	return filepath.Join(p.configDir, DefaultsFileName)
}

// DotfilesDir returns the managed directory root under which tracked
// item symlinks and the state documents live.
func (p *Paths) DotfilesDir() string {
	return p.dotfilesDir
}

// RegistryFile returns the path of the tracked-item registry document.
func (p *Paths) RegistryFile() string {
	return filepath.Join(p.dotfilesDir, RegistryFileName)
}

// PackagesFile returns the path of the package cache document.
func (p *Paths) PackagesFile() string {
	return filepath.Join(p.dotfilesDir, PackagesFileName)
}

// StateDir returns the directory for logs and other ephemera.
func (p *Paths) StateDir() string {
	return p.stateDir
}

// LogFile returns the path of the log file.
func (p *Paths) LogFile() string {
	return filepath.Join(p.stateDir, LogFileName)
}
