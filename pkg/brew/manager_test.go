package brew_test

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/jwalker/kiwi/pkg/brew"
	"github.com/jwalker/kiwi/pkg/errors"
	"github.com/jwalker/kiwi/pkg/filesystem"
	"github.com/jwalker/kiwi/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRunner is the Runner test double. It tracks an installed set and
// serves canned info documents; no subprocess is involved.
type fakeRunner struct {
	mu          sync.Mutex
	installed   map[string]string // name -> version
	infoDocs    map[string]string // name -> raw json
	failInstall map[string]string // name -> error message
	failList    bool
	caskInstall []string // names installed with --cask
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		installed:   map[string]string{},
		infoDocs:    map[string]string{},
		failInstall: map[string]string{},
	}
}

func (f *fakeRunner) List(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failList {
		return "", errors.New(errors.ErrPackage, "brew list --versions failed: boom")
	}
	names := make([]string, 0, len(f.installed))
	for name := range f.installed {
		names = append(names, name)
	}
	sort.Strings(names)
	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "%s %s\n", name, f.installed[name])
	}
	return b.String(), nil
}

func (f *fakeRunner) Install(ctx context.Context, name string, cask bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if msg, ok := f.failInstall[name]; ok {
		return errors.Newf(errors.ErrPackage, "brew install %s failed: %s", name, msg)
	}
	f.installed[name] = "1.0"
	if cask {
		f.caskInstall = append(f.caskInstall, name)
	}
	return nil
}

func (f *fakeRunner) Upgrade(ctx context.Context, name string) error {
	return nil
}

func (f *fakeRunner) Info(ctx context.Context, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if doc, ok := f.infoDocs[name]; ok {
		return doc, nil
	}
	return "", errors.Newf(errors.ErrPackage, "brew info --json=v2 %s failed: not found", name)
}

func (f *fakeRunner) Exists(ctx context.Context, name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.installed[name]
	return ok
}

func testManager(t *testing.T, runner brew.Runner) (*brew.Manager, *brew.Cache) {
	t.Helper()
	cache, err := brew.NewCache(filesystem.NewMemory(), "/dotfiles/packages.json")
	require.NoError(t, err)
	return brew.NewManager(runner, cache, 2), cache
}

func TestInstallAlreadyInstalledFailsCacheUnchanged(t *testing.T) {
	runner := newFakeRunner()
	runner.installed["git"] = "2.40"
	mgr, cache := testManager(t, runner)

	before := cache.Len()
	_, err := mgr.Install(context.Background(), "git")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrPackageInstalled))
	assert.Equal(t, before, cache.Len())
}

func TestInstallStampsTimestampsAndCaches(t *testing.T) {
	runner := newFakeRunner()
	runner.infoDocs["ripgrep"] = `{
		"formulae": [{
			"name": "ripgrep",
			"versions": {"stable": "14.1.0"},
			"dependencies": ["pcre2"],
			"installed": [{"version": "14.1.0", "installed_size": 4096}]
		}]
	}`
	mgr, cache := testManager(t, runner)

	pkg, err := mgr.Install(context.Background(), "ripgrep")
	require.NoError(t, err)
	assert.Equal(t, "14.1.0", pkg.Version)
	assert.Equal(t, []string{"pcre2"}, pkg.Dependencies)
	assert.NotZero(t, pkg.InstallTime)
	assert.Equal(t, pkg.InstallTime, pkg.LastUpdate)

	cached, ok := cache.Get("ripgrep")
	require.True(t, ok)
	assert.True(t, cached.Installed)
}

func TestInstallCaskUsesCaskSubcommand(t *testing.T) {
	runner := newFakeRunner()
	runner.infoDocs["firefox"] = `{"formulae": [], "casks": [{"token": "firefox", "version": "127.0"}]}`
	mgr, cache := testManager(t, runner)

	pkg, err := mgr.Install(context.Background(), "firefox")
	require.NoError(t, err)
	assert.True(t, pkg.IsCask)
	assert.Contains(t, runner.caskInstall, "firefox")

	cached, _ := cache.Get("firefox")
	assert.True(t, cached.IsCask)
}

func TestInstallSubprocessFailure(t *testing.T) {
	runner := newFakeRunner()
	runner.failInstall["badpkg"] = "no formula found"
	mgr, cache := testManager(t, runner)

	_, err := mgr.Install(context.Background(), "badpkg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no formula found")
	assert.Zero(t, cache.Len())
}

func TestInstallAllBoundedDispatch(t *testing.T) {
	runner := newFakeRunner()
	mgr, cache := testManager(t, runner)

	installed, err := mgr.InstallAll(context.Background(), []string{"a", "b", "c", "d"})
	require.NoError(t, err)
	assert.Len(t, installed, 4)
	assert.Equal(t, 4, cache.Len())
}

func TestInstallAllCollectsFailures(t *testing.T) {
	runner := newFakeRunner()
	runner.failInstall["bad"] = "boom"
	mgr, cache := testManager(t, runner)

	installed, err := mgr.InstallAll(context.Background(), []string{"good", "bad"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Len(t, installed, 1)

	_, ok := cache.Get("good")
	assert.True(t, ok)
	_, ok = cache.Get("bad")
	assert.False(t, ok)
}

func TestUpdateNotInstalled(t *testing.T) {
	runner := newFakeRunner()
	mgr, _ := testManager(t, runner)

	err := mgr.Update(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrPackageNotInstalled))
}

func TestUpdateSingleStampsLastUpdate(t *testing.T) {
	runner := newFakeRunner()
	runner.installed["git"] = "2.40"
	mgr, cache := testManager(t, runner)
	require.NoError(t, cache.Upsert(types.Package{Name: "git", Installed: true, InstallTime: 100, LastUpdate: 100}))

	require.NoError(t, mgr.Update(context.Background(), "git"))

	pkg, _ := cache.Get("git")
	assert.Equal(t, int64(100), pkg.InstallTime)
	assert.Greater(t, pkg.LastUpdate, int64(100))
}

func TestUpdateAllStampsEveryRecord(t *testing.T) {
	runner := newFakeRunner()
	mgr, cache := testManager(t, runner)
	require.NoError(t, cache.SetAll([]types.Package{
		{Name: "git", Installed: true, LastUpdate: 1},
		{Name: "jq", Installed: true, LastUpdate: 1},
	}))

	require.NoError(t, mgr.Update(context.Background(), ""))

	for _, pkg := range cache.All() {
		assert.Greater(t, pkg.LastUpdate, int64(1))
	}
}

func TestListInstalledFailsWhenBaseListFails(t *testing.T) {
	runner := newFakeRunner()
	runner.failList = true
	mgr, _ := testManager(t, runner)

	_, err := mgr.ListInstalled(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrAdapter))
}

func TestListInstalledEnrichesAndOverlaysTimestamps(t *testing.T) {
	runner := newFakeRunner()
	runner.installed["git"] = "2.40.1"
	runner.infoDocs["git"] = `{
		"formulae": [{
			"name": "git",
			"versions": {"stable": "2.40.1"},
			"dependencies": ["gettext"],
			"installed": [{"version": "2.40.1", "installed_size": 1024}]
		}]
	}`
	mgr, cache := testManager(t, runner)
	require.NoError(t, cache.Upsert(types.Package{Name: "git", Installed: true, InstallTime: 42, LastUpdate: 43}))

	packages, err := mgr.ListInstalled(context.Background())
	require.NoError(t, err)
	require.Len(t, packages, 1)

	pkg := packages[0]
	assert.Equal(t, "git", pkg.Name)
	assert.Equal(t, "2.40.1", pkg.Version)
	assert.Equal(t, []string{"gettext"}, pkg.Dependencies)
	assert.Equal(t, int64(1024), pkg.Size)
	assert.Equal(t, int64(42), pkg.InstallTime)
	assert.Equal(t, int64(43), pkg.LastUpdate)
}

func TestListInstalledToleratesEnrichmentFailure(t *testing.T) {
	runner := newFakeRunner()
	runner.installed["obscure"] = "0.1"
	mgr, _ := testManager(t, runner)

	packages, err := mgr.ListInstalled(context.Background())
	require.NoError(t, err)
	require.Len(t, packages, 1)
	assert.Equal(t, "obscure", packages[0].Name)
	assert.Empty(t, packages[0].Dependencies)
}

func TestSnapshotReplacesCache(t *testing.T) {
	runner := newFakeRunner()
	runner.installed["git"] = "2.40"
	mgr, cache := testManager(t, runner)
	require.NoError(t, cache.SetAll([]types.Package{{Name: "stale", Installed: true}}))

	packages, err := mgr.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Len(t, packages, 1)

	_, ok := cache.Get("stale")
	assert.False(t, ok)
	_, ok = cache.Get("git")
	assert.True(t, ok)
}
