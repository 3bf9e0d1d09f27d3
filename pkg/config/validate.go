package config

import (
	"net/url"
	"regexp"
	"strconv"

	"github.com/jwalker/kiwi/pkg/errors"
)

// identPattern restricts environment names and custom setting keys.
var identPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Validate checks the structural invariants of a configuration:
// sync_url must be an absolute http(s) URL, identifiers must be
// alphanumeric/underscore/hyphen, numeric preferences must be nonzero.
func Validate(cfg Config) error {
	if cfg.DotfilesDir == "" {
		return errors.New(errors.ErrConfigInvalid, "dotfiles_dir must not be empty")
	}

	if cfg.SyncURL != "" {
		u, err := url.Parse(cfg.SyncURL)
		if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return errors.Newf(errors.ErrConfigInvalid,
				"sync_url must be an absolute http(s) URL, got %q", cfg.SyncURL)
		}
	}

	if cfg.Environment != "" && !identPattern.MatchString(cfg.Environment) {
		return errors.Newf(errors.ErrConfigInvalid,
			"environment must match [A-Za-z0-9_-]+, got %q", cfg.Environment)
	}

	for key := range cfg.CustomSettings {
		if !identPattern.MatchString(key) {
			return errors.Newf(errors.ErrConfigInvalid,
				"custom setting key must match [A-Za-z0-9_-]+, got %q", key)
		}
	}

	if cfg.Preferences.MaxParallelDownloads <= 0 {
		return errors.New(errors.ErrConfigInvalid,
			"preferences.max_parallel_downloads must be greater than zero")
	}
	if cfg.Preferences.BackupRetentionDays <= 0 {
		return errors.New(errors.ErrConfigInvalid,
			"preferences.backup_retention_days must be greater than zero")
	}

	return nil
}

// assign writes a string value into the given key of cfg, converting
// to the key's native type. Unknown identifier-like keys land in
// custom_settings for forward compatibility.
func assign(cfg *Config, key, value string) error {
	switch key {
	case "dotfiles_dir":
		cfg.DotfilesDir = value
	case "sync_url":
		cfg.SyncURL = value
	case "sync_token":
		cfg.SyncToken = value
	case "environment":
		cfg.Environment = value
	case "preferences.auto_sync":
		return assignBool(&cfg.Preferences.AutoSync, key, value)
	case "preferences.backup_before_change":
		return assignBool(&cfg.Preferences.BackupBeforeChange, key, value)
	case "preferences.max_parallel_downloads":
		return assignInt(&cfg.Preferences.MaxParallelDownloads, key, value)
	case "preferences.backup_retention_days":
		return assignInt(&cfg.Preferences.BackupRetentionDays, key, value)
	default:
		if !identPattern.MatchString(key) {
			return errors.Newf(errors.ErrConfigInvalid, "invalid config key: %s", key)
		}
		cfg.CustomSettings[key] = value
	}
	return nil
}

func assignBool(dst *bool, key, value string) error {
	v, err := strconv.ParseBool(value)
	if err != nil {
		return errors.Newf(errors.ErrConfigInvalid, "%s must be a boolean, got %q", key, value)
	}
	*dst = v
	return nil
}

func assignInt(dst *int, key, value string) error {
	v, err := strconv.Atoi(value)
	if err != nil {
		return errors.Newf(errors.ErrConfigInvalid, "%s must be an integer, got %q", key, value)
	}
	*dst = v
	return nil
}

func formatBool(v bool) string {
	return strconv.FormatBool(v)
}

func formatInt(v int) string {
	return strconv.Itoa(v)
}
