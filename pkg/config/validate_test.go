package config_test

import (
	"testing"

	"github.com/jwalker/kiwi/pkg/config"
	"github.com/stretchr/testify/assert"
)

func validConfig() config.Config {
	return config.Config{
		DotfilesDir: "/home/u/dotfiles",
		SyncURL:     "https://sync.example.com",
		Environment: "dev",
		Preferences: config.Preferences{
			MaxParallelDownloads: 4,
			BackupRetentionDays:  30,
		},
		CustomSettings: map[string]string{"editor": "vim"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *config.Config) {}},
		{name: "empty sync_url allowed", mutate: func(c *config.Config) { c.SyncURL = "" }},
		{name: "http url allowed", mutate: func(c *config.Config) { c.SyncURL = "http://localhost:8080" }},
		{name: "ftp url rejected", mutate: func(c *config.Config) { c.SyncURL = "ftp://x" }, wantErr: true},
		{name: "relative url rejected", mutate: func(c *config.Config) { c.SyncURL = "/api/sync" }, wantErr: true},
		{name: "hostless url rejected", mutate: func(c *config.Config) { c.SyncURL = "https://" }, wantErr: true},
		{name: "empty dotfiles_dir rejected", mutate: func(c *config.Config) { c.DotfilesDir = "" }, wantErr: true},
		{name: "environment with space rejected", mutate: func(c *config.Config) { c.Environment = "my env" }, wantErr: true},
		{name: "environment with hyphen allowed", mutate: func(c *config.Config) { c.Environment = "my-env_2" }},
		{name: "custom key with dot rejected", mutate: func(c *config.Config) { c.CustomSettings["a.b"] = "x" }, wantErr: true},
		{name: "zero parallel downloads rejected", mutate: func(c *config.Config) { c.Preferences.MaxParallelDownloads = 0 }, wantErr: true},
		{name: "negative retention rejected", mutate: func(c *config.Config) { c.Preferences.BackupRetentionDays = -1 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := config.Validate(cfg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
