package syncer_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jwalker/kiwi/pkg/errors"
	"github.com/jwalker/kiwi/pkg/filesystem"
	"github.com/jwalker/kiwi/pkg/syncer"
	"github.com/jwalker/kiwi/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLister struct {
	packages []types.Package
	err      error
}

func (f *fakeLister) ListInstalled(ctx context.Context) ([]types.Package, error) {
	return f.packages, f.err
}

type fakeFiles struct {
	files map[string]string
}

func (f *fakeFiles) FilesSnapshot() (map[string]string, error) {
	return f.files, nil
}

func newClient(t *testing.T, url string, fs types.FS) (*syncer.Client, *fakeLister) {
	t.Helper()
	lister := &fakeLister{packages: []types.Package{
		{Name: "git", Version: "2.40", Installed: true},
	}}
	c := syncer.New(syncer.Params{
		URL:          url,
		Token:        "tok-123",
		DotfilesDir:  "/dotfiles",
		PackagesFile: "/dotfiles/packages.json",
		FS:           fs,
		Packages:     lister,
		Files:        &fakeFiles{files: map[string]string{".vimrc": "set number\n"}},
	})
	return c, lister
}

func memFSWithBase(t *testing.T) types.FS {
	t.Helper()
	fs := filesystem.NewMemory()
	require.NoError(t, fs.MkdirAll("/dotfiles", 0755))
	return fs
}

func TestPushSendsAuthenticatedBundle(t *testing.T) {
	var gotAuth, gotMethod string
	var gotBundle types.SyncBundle
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotMethod = r.Method
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBundle))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, _ := newClient(t, srv.URL, memFSWithBase(t))
	require.NoError(t, c.Push(context.Background()))

	assert.Equal(t, "Bearer tok-123", gotAuth)
	assert.Equal(t, http.MethodPost, gotMethod)
	require.Len(t, gotBundle.Packages, 1)
	assert.Equal(t, "git", gotBundle.Packages[0].Name)
	assert.Equal(t, "set number\n", gotBundle.Files[".vimrc"])
}

func TestPushBundleRoundTripsPackages(t *testing.T) {
	// Whatever push assembles must deserialize back field-for-field.
	var raw []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var err error
		raw, err = json.Marshal(mustDecodeBundle(t, r))
		require.NoError(t, err)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	fs := memFSWithBase(t)
	c, lister := newClient(t, srv.URL, fs)
	lister.packages = []types.Package{
		{Name: "git", Version: "2.40", Installed: true, Dependencies: []string{"gettext"},
			InstallTime: 1700000000, LastUpdate: 1700000001, Size: 1024},
		{Name: "firefox", Installed: true, IsCask: true},
	}

	require.NoError(t, c.Push(context.Background()))

	var got types.SyncBundle
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, lister.packages, got.Packages)
}

func mustDecodeBundle(t *testing.T, r *http.Request) types.SyncBundle {
	t.Helper()
	var b types.SyncBundle
	require.NoError(t, json.NewDecoder(r.Body).Decode(&b))
	return b
}

func TestPushServerErrorSurfacesStatusNoLocalMutation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	fs := memFSWithBase(t)
	c, _ := newClient(t, srv.URL, fs)

	err := c.Push(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrSync))
	assert.Contains(t, err.Error(), "500")

	// The cache document was never created.
	_, statErr := fs.Stat("/dotfiles/packages.json")
	assert.Error(t, statErr)
}

func TestPushFailsWhenListingFails(t *testing.T) {
	c, lister := newClient(t, "http://unused.invalid", memFSWithBase(t))
	lister.err = errors.New(errors.ErrAdapter, "listing installed packages")

	err := c.Push(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrAdapter))
}

func TestPullOverwritesCacheRegardlessOfPreferLocal(t *testing.T) {
	remote := types.SyncBundle{
		Files:    map[string]string{},
		Packages: []types.Package{{Name: "git", Version: "2.40", Installed: true}},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		require.NoError(t, json.NewEncoder(w).Encode(remote))
	}))
	defer srv.Close()

	fs := memFSWithBase(t)
	require.NoError(t, fs.WriteFile("/dotfiles/packages.json", []byte(`{"stale": {"name": "stale"}}`), 0644))

	c, _ := newClient(t, srv.URL, fs)
	require.NoError(t, c.Pull(context.Background(), true))

	data, err := fs.ReadFile("/dotfiles/packages.json")
	require.NoError(t, err)
	var onDisk map[string]types.Package
	require.NoError(t, json.Unmarshal(data, &onDisk))
	require.Len(t, onDisk, 1)
	assert.Equal(t, "2.40", onDisk["git"].Version)
}

func TestPullEmptyRemoteListLeavesCacheAlone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewEncoder(w).Encode(types.SyncBundle{
			Files:    map[string]string{},
			Packages: []types.Package{},
		}))
	}))
	defer srv.Close()

	fs := memFSWithBase(t)
	prior := `{"git": {"name": "git", "installed": true}}`
	require.NoError(t, fs.WriteFile("/dotfiles/packages.json", []byte(prior), 0644))

	c, _ := newClient(t, srv.URL, fs)
	require.NoError(t, c.Pull(context.Background(), false))

	data, err := fs.ReadFile("/dotfiles/packages.json")
	require.NoError(t, err)
	assert.JSONEq(t, prior, string(data))
}

func TestPullNoBaseWithoutPreferLocal(t *testing.T) {
	fs := filesystem.NewMemory() // no /dotfiles directory
	c, _ := newClient(t, "http://unused.invalid", fs)

	err := c.Pull(context.Background(), false)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrSyncNoBase))
	assert.Contains(t, err.Error(), "no base")
}

func TestPullServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c, _ := newClient(t, srv.URL, memFSWithBase(t))
	err := c.Pull(context.Background(), true)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrSync))
	assert.Contains(t, err.Error(), "401")
}

func TestCheckRemoteAccess(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{name: "ok", status: http.StatusOK},
		{name: "unauthorized", status: http.StatusUnauthorized, wantErr: true},
		{name: "server error", status: http.StatusInternalServerError, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			c, _ := newClient(t, srv.URL, memFSWithBase(t))
			err := c.CheckRemoteAccess(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
