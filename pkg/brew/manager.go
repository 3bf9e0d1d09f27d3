// Package brew wraps the external Homebrew package manager and
// maintains the local package state cache. brew is invoked through the
// Runner capability interface and stays the sole source of ground
// truth; the cache carries only supplementary metadata.
package brew

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jwalker/kiwi/pkg/errors"
	"github.com/jwalker/kiwi/pkg/logging"
	"github.com/jwalker/kiwi/pkg/types"
	"github.com/rs/zerolog"
)

// Manager coordinates the Runner and the Cache.
type Manager struct {
	runner      Runner
	cache       *Cache
	maxParallel int
	logger      zerolog.Logger
	now         func() time.Time
}

// NewManager creates a Manager. maxParallel bounds concurrent install
// dispatch (the max_parallel_downloads preference); values below one
// degrade to serial execution.
func NewManager(runner Runner, cache *Cache, maxParallel int) *Manager {
	if maxParallel < 1 {
		maxParallel = 1
	}
	return &Manager{
		runner:      runner,
		cache:       cache,
		maxParallel: maxParallel,
		logger:      logging.GetLogger("brew"),
		now:         time.Now,
	}
}

// IsInstalled reports ground truth from the package manager.
func (m *Manager) IsInstalled(ctx context.Context, name string) bool {
	return m.runner.Exists(ctx, name)
}

// ListInstalled returns every installed package. The base listing
// comes from the manager; each record is enriched with a lazy info
// query and overlaid with cached timestamps. If the base listing
// fails the whole call fails; enrichment failures degrade to the bare
// record.
func (m *Manager) ListInstalled(ctx context.Context) ([]types.Package, error) {
	output, err := m.runner.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrAdapter, "listing installed packages")
	}

	packages := ParseList(output)
	for i := range packages {
		m.enrich(ctx, &packages[i])
		if cached, ok := m.cache.Get(packages[i].Name); ok {
			packages[i].InstallTime = cached.InstallTime
			packages[i].LastUpdate = cached.LastUpdate
		}
	}

	m.logger.Debug().Int("count", len(packages)).Msg("Listed installed packages")
	return packages, nil
}

// Install installs a package and records it in the cache with fresh
// timestamps. Installing an already-installed package is a failure and
// leaves the cache untouched.
func (m *Manager) Install(ctx context.Context, name string) (types.Package, error) {
	if m.IsInstalled(ctx, name) {
		return types.Package{}, errors.Newf(errors.ErrPackageInstalled, "package already installed: %s", name)
	}

	info := m.probe(ctx, name)
	if err := m.runner.Install(ctx, name, info.IsCask); err != nil {
		return types.Package{}, err
	}

	pkg := m.buildRecord(ctx, name)
	if err := m.cache.Upsert(pkg); err != nil {
		return types.Package{}, err
	}

	m.logger.Info().Str("package", name).Bool("cask", pkg.IsCask).Msg("Installed package")
	return pkg, nil
}

// InstallAll installs several packages, dispatching up to maxParallel
// subprocess invocations at once. Cache writes stay serialized in the
// calling goroutine. All failures are collected; successfully
// installed packages are cached even when siblings fail.
func (m *Manager) InstallAll(ctx context.Context, names []string) ([]types.Package, error) {
	type result struct {
		pkg types.Package
		err error
	}

	sem := make(chan struct{}, m.maxParallel)
	results := make([]result, len(names))
	var wg sync.WaitGroup

	for i, name := range names {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if m.IsInstalled(ctx, name) {
				results[i].err = errors.Newf(errors.ErrPackageInstalled, "package already installed: %s", name)
				return
			}
			info := m.probe(ctx, name)
			if err := m.runner.Install(ctx, name, info.IsCask); err != nil {
				results[i].err = err
				return
			}
			results[i].pkg = m.buildRecord(ctx, name)
		}(i, name)
	}
	wg.Wait()

	var installed []types.Package
	var failures []string
	for _, res := range results {
		if res.err != nil {
			failures = append(failures, res.err.Error())
			continue
		}
		if err := m.cache.Upsert(res.pkg); err != nil {
			return installed, err
		}
		installed = append(installed, res.pkg)
	}

	if len(failures) > 0 {
		return installed, errors.Newf(errors.ErrPackage, "install failed for %d of %d packages: %s",
			len(failures), len(names), strings.Join(failures, "; "))
	}
	return installed, nil
}

// Update upgrades one package (name given) or every installed package
// (name empty), stamping last_update on the affected cache records.
func (m *Manager) Update(ctx context.Context, name string) error {
	if name != "" && !m.IsInstalled(ctx, name) {
		return errors.Newf(errors.ErrPackageNotInstalled, "package not installed: %s", name)
	}

	if err := m.runner.Upgrade(ctx, name); err != nil {
		return err
	}

	ts := m.now().Unix()
	if name != "" {
		pkg, ok := m.cache.Get(name)
		if !ok {
			pkg = types.Package{Name: name, Installed: true}
		}
		pkg.LastUpdate = ts
		if err := m.cache.Upsert(pkg); err != nil {
			return err
		}
	} else {
		all := m.cache.All()
		for i := range all {
			all[i].LastUpdate = ts
		}
		if err := m.cache.SetAll(all); err != nil {
			return err
		}
	}

	m.logger.Info().Str("package", name).Msg("Updated package(s)")
	return nil
}

// SetAll wholesale-replaces the cache, used to absorb a pulled remote
// list or a fresh local snapshot.
func (m *Manager) SetAll(packages []types.Package) error {
	return m.cache.SetAll(packages)
}

// Cached returns the cache contents without consulting the package
// manager.
func (m *Manager) Cached() []types.Package {
	return m.cache.All()
}

// Snapshot refreshes the cache from the package manager's current
// installed set, preserving known timestamps, and returns the list.
func (m *Manager) Snapshot(ctx context.Context) ([]types.Package, error) {
	packages, err := m.ListInstalled(ctx)
	if err != nil {
		return nil, err
	}
	if err := m.cache.SetAll(packages); err != nil {
		return nil, err
	}
	return packages, nil
}

// probe classifies a package ahead of install. Probe failures degrade
// to the formula path.
func (m *Manager) probe(ctx context.Context, name string) PackageInfo {
	output, err := m.runner.Info(ctx, name)
	if err != nil {
		m.logger.Debug().Err(err).Str("package", name).Msg("Info probe failed, assuming formula")
		return PackageInfo{}
	}
	info, err := ParseInfo(output)
	if err != nil {
		m.logger.Debug().Err(err).Str("package", name).Msg("Info parse failed, assuming formula")
		return PackageInfo{}
	}
	return info
}

// buildRecord assembles a fresh cache record after a successful
// install.
func (m *Manager) buildRecord(ctx context.Context, name string) types.Package {
	info := m.probe(ctx, name)
	ts := m.now().Unix()
	return types.Package{
		Name:         name,
		Version:      info.Version,
		Installed:    true,
		Dependencies: info.Dependencies,
		Size:         info.Size,
		IsCask:       info.IsCask,
		InstallTime:  ts,
		LastUpdate:   ts,
	}
}

// enrich fills deps, size and cask classification from the info query.
func (m *Manager) enrich(ctx context.Context, pkg *types.Package) {
	output, err := m.runner.Info(ctx, pkg.Name)
	if err != nil {
		m.logger.Debug().Err(err).Str("package", pkg.Name).Msg("Info enrichment failed")
		return
	}
	info, err := ParseInfo(output)
	if err != nil {
		m.logger.Debug().Err(err).Str("package", pkg.Name).Msg("Info parse failed")
		return
	}
	pkg.Dependencies = info.Dependencies
	pkg.Size = info.Size
	pkg.IsCask = info.IsCask
	if pkg.Version == "" {
		pkg.Version = info.Version
	}
}
