package main

import (
	"github.com/jwalker/kiwi/pkg/brew"
	"github.com/jwalker/kiwi/pkg/config"
	"github.com/jwalker/kiwi/pkg/doctor"
	"github.com/jwalker/kiwi/pkg/filesystem"
	"github.com/jwalker/kiwi/pkg/paths"
	"github.com/jwalker/kiwi/pkg/registry"
	"github.com/jwalker/kiwi/pkg/syncer"
	"github.com/jwalker/kiwi/pkg/types"
)

// app holds the wired component graph for one CLI invocation. A single
// invocation owns the process lifetime; nothing here is safe for
// concurrent use.
type app struct {
	fs       types.FS
	paths    *paths.Paths
	config   *config.Store
	registry *registry.Registry
	manager  *brew.Manager
	syncer   *syncer.Client // nil until sync_url and sync_token are set
}

// newApp loads configuration and wires every component.
func newApp() (*app, error) {
	fs := filesystem.NewOS()

	p := paths.New("")
	store, err := config.Load(fs, p)
	if err != nil {
		return nil, err
	}
	cfg := store.Config()

	// The configured managed directory wins over the ambient default.
	p = paths.New(cfg.DotfilesDir)

	reg := registry.New(fs, p.DotfilesDir(), p.RegistryFile())

	cache, err := brew.NewCache(fs, p.PackagesFile())
	if err != nil {
		return nil, err
	}
	manager := brew.NewManager(brew.NewRunner(), cache, cfg.Preferences.MaxParallelDownloads)

	a := &app{
		fs:       fs,
		paths:    p,
		config:   store,
		registry: reg,
		manager:  manager,
	}

	if cfg.SyncURL != "" && cfg.SyncToken != "" {
		a.syncer = syncer.New(syncer.Params{
			URL:          cfg.SyncURL,
			Token:        cfg.SyncToken,
			DotfilesDir:  p.DotfilesDir(),
			PackagesFile: p.PackagesFile(),
			FS:           fs,
			Packages:     manager,
			Files:        reg,
		})
	}

	return a, nil
}

// doctor builds the health checker over the wired components.
func (a *app) doctor() *doctor.Doctor {
	var prober doctor.RemoteProber
	if a.syncer != nil {
		prober = a.syncer
	}
	return doctor.New(a.fs, a.paths.DotfilesDir(), a.registry, a.manager, prober)
}
