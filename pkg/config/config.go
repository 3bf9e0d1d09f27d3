// Package config owns kiwi's configuration document: connection and
// auth settings for the sync server plus user preferences. The
// document is JSON, rewritten wholesale on every mutation. An optional
// kiwi.toml in the config directory supplies site defaults that apply
// before the JSON document and environment overrides.
package config

import (
	"encoding/json"
	"os"
	"sort"

	"github.com/jwalker/kiwi/pkg/errors"
	"github.com/jwalker/kiwi/pkg/logging"
	"github.com/jwalker/kiwi/pkg/paths"
	"github.com/jwalker/kiwi/pkg/types"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Environment variables that override the stored document.
const (
	EnvSyncURL   = "KIWI_SYNC_URL"
	EnvAuthToken = "KIWI_AUTH_TOKEN"
)

// Preferences holds user-tunable behavior knobs.
type Preferences struct {
	AutoSync             bool `json:"auto_sync" toml:"auto_sync" yaml:"auto_sync"`
	BackupBeforeChange   bool `json:"backup_before_change" toml:"backup_before_change" yaml:"backup_before_change"`
	MaxParallelDownloads int  `json:"max_parallel_downloads" toml:"max_parallel_downloads" yaml:"max_parallel_downloads"`
	BackupRetentionDays  int  `json:"backup_retention_days" toml:"backup_retention_days" yaml:"backup_retention_days"`
}

// Config is the persisted configuration document.
type Config struct {
	DotfilesDir    string            `json:"dotfiles_dir" toml:"dotfiles_dir" yaml:"dotfiles_dir"`
	SyncURL        string            `json:"sync_url,omitempty" toml:"sync_url" yaml:"sync_url,omitempty"`
	SyncToken      string            `json:"sync_token,omitempty" toml:"sync_token" yaml:"sync_token,omitempty"`
	Environment    string            `json:"environment,omitempty" toml:"environment" yaml:"environment,omitempty"`
	Preferences    Preferences       `json:"preferences" toml:"preferences" yaml:"preferences"`
	CustomSettings map[string]string `json:"custom_settings,omitempty" toml:"custom_settings" yaml:"custom_settings,omitempty"`
}

// Store loads, mutates and persists the configuration document.
type Store struct {
	fs    types.FS
	paths *paths.Paths
	cfg   Config
}

// Default returns the built-in configuration.
func Default(p *paths.Paths) Config {
	return Config{
		DotfilesDir: p.DotfilesDir(),
		Preferences: Preferences{
			AutoSync:             false,
			BackupBeforeChange:   true,
			MaxParallelDownloads: 4,
			BackupRetentionDays:  30,
		},
		CustomSettings: map[string]string{},
	}
}

// Load reads the configuration document, creating it with defaults
// when absent. Site defaults from kiwi.toml apply underneath the
// document; KIWI_SYNC_URL and KIWI_AUTH_TOKEN override both.
func Load(fs types.FS, p *paths.Paths) (*Store, error) {
	logger := logging.GetLogger("config")

	cfg := Default(p)
	if err := applyDefaultsFile(fs, p, &cfg); err != nil {
		return nil, err
	}

	s := &Store{fs: fs, paths: p, cfg: cfg}

	data, err := fs.ReadFile(p.ConfigFile())
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &s.cfg); err != nil {
			return nil, errors.Wrapf(err, errors.ErrConfigLoad, "parsing %s", p.ConfigFile())
		}
	case os.IsNotExist(err):
		logger.Debug().Str("path", p.ConfigFile()).Msg("No config file, writing defaults")
		applyEnvOverrides(&s.cfg)
		if err := s.save(); err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, errors.Wrapf(err, errors.ErrConfigLoad, "reading %s", p.ConfigFile())
	}

	applyEnvOverrides(&s.cfg)
	if s.cfg.CustomSettings == nil {
		s.cfg.CustomSettings = map[string]string{}
	}
	return s, nil
}

// applyDefaultsFile merges the optional TOML defaults overlay into cfg.
func applyDefaultsFile(fs types.FS, p *paths.Paths, cfg *Config) error {
	data, err := fs.ReadFile(p.DefaultsFile())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, errors.ErrConfigLoad, "reading %s", p.DefaultsFile())
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return errors.Wrapf(err, errors.ErrConfigLoad, "parsing %s", p.DefaultsFile())
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if url := os.Getenv(EnvSyncURL); url != "" {
		cfg.SyncURL = url
	}
	if token := os.Getenv(EnvAuthToken); token != "" {
		cfg.SyncToken = token
	}
}

// Config returns a copy of the current configuration.
func (s *Store) Config() Config {
	return s.cfg
}

// Get returns the value for a dotted key, or an error when the key is
// unknown.
func (s *Store) Get(key string) (string, error) {
	switch key {
	case "dotfiles_dir":
		return s.cfg.DotfilesDir, nil
	case "sync_url":
		return s.cfg.SyncURL, nil
	case "sync_token":
		return s.cfg.SyncToken, nil
	case "environment":
		return s.cfg.Environment, nil
	case "preferences.auto_sync":
		return formatBool(s.cfg.Preferences.AutoSync), nil
	case "preferences.backup_before_change":
		return formatBool(s.cfg.Preferences.BackupBeforeChange), nil
	case "preferences.max_parallel_downloads":
		return formatInt(s.cfg.Preferences.MaxParallelDownloads), nil
	case "preferences.backup_retention_days":
		return formatInt(s.cfg.Preferences.BackupRetentionDays), nil
	}
	if v, ok := s.cfg.CustomSettings[key]; ok {
		return v, nil
	}
	return "", errors.Newf(errors.ErrConfigInvalid, "unknown config key: %s", key)
}

// Set validates and stores the value for a dotted key, then persists
// the document. A validation failure leaves the prior value untouched.
func (s *Store) Set(key, value string) error {
	next := s.cfg
	// CustomSettings is a map; copy it so a failed save does not leak
	// the mutation into the live config.
	next.CustomSettings = make(map[string]string, len(s.cfg.CustomSettings))
	for k, v := range s.cfg.CustomSettings {
		next.CustomSettings[k] = v
	}

	if err := assign(&next, key, value); err != nil {
		return err
	}
	if err := Validate(next); err != nil {
		return err
	}

	s.cfg = next
	return s.save()
}

// Keys returns every settable key, custom settings last, sorted.
func (s *Store) Keys() []string {
	keys := []string{
		"dotfiles_dir", "sync_url", "sync_token", "environment",
		"preferences.auto_sync", "preferences.backup_before_change",
		"preferences.max_parallel_downloads", "preferences.backup_retention_days",
	}
	custom := make([]string, 0, len(s.cfg.CustomSettings))
	for k := range s.cfg.CustomSettings {
		custom = append(custom, k)
	}
	sort.Strings(custom)
	return append(keys, custom...)
}

// Reset restores the built-in defaults and persists them.
func (s *Store) Reset() error {
	s.cfg = Default(s.paths)
	return s.save()
}

// Export serializes the configuration. Format is "json" or "yaml".
func (s *Store) Export(format string) ([]byte, error) {
	switch format {
	case "json", "":
		data, err := json.MarshalIndent(s.cfg, "", "  ")
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrSerialize, "exporting config")
		}
		return data, nil
	case "yaml":
		data, err := yaml.Marshal(s.cfg)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrSerialize, "exporting config")
		}
		return data, nil
	}
	return nil, errors.Newf(errors.ErrInvalidInput, "unknown export format: %s", format)
}

// Import replaces the configuration from serialized JSON or YAML data,
// validating before anything is persisted.
func (s *Store) Import(data []byte) error {
	cfg := Default(s.paths)
	if err := json.Unmarshal(data, &cfg); err != nil {
		cfg = Default(s.paths)
		if yerr := yaml.Unmarshal(data, &cfg); yerr != nil {
			return errors.Wrap(yerr, errors.ErrConfigLoad, "parsing imported config")
		}
	}
	if err := Validate(cfg); err != nil {
		return err
	}
	if cfg.CustomSettings == nil {
		cfg.CustomSettings = map[string]string{}
	}
	s.cfg = cfg
	return s.save()
}

func (s *Store) save() error {
	if err := s.fs.MkdirAll(s.paths.ConfigDir(), 0755); err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "creating %s", s.paths.ConfigDir())
	}
	data, err := json.MarshalIndent(s.cfg, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrSerialize, "encoding config")
	}
	if err := s.fs.WriteFile(s.paths.ConfigFile(), data, 0600); err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "writing %s", s.paths.ConfigFile())
	}
	return nil
}
