// Package syncer implements the remote synchronization client. Push
// and pull exchange the whole local state as a single bundle over an
// authenticated request/response protocol; there is no versioning,
// no pagination and no retry.
package syncer

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"

	"github.com/jwalker/kiwi/pkg/errors"
	"github.com/jwalker/kiwi/pkg/logging"
	"github.com/jwalker/kiwi/pkg/types"
	"github.com/rs/zerolog"
)

// PackageLister supplies the fresh local package list for push. The
// brew manager implements it; going through the manager rather than
// the raw cache keeps the pushed list honest.
type PackageLister interface {
	ListInstalled(ctx context.Context) ([]types.Package, error)
}

// FileSource supplies the tracked-file payload for push. The registry
// implements it.
type FileSource interface {
	FilesSnapshot() (map[string]string, error)
}

// Params wires a Client to its collaborators.
type Params struct {
	URL          string
	Token        string
	DotfilesDir  string
	PackagesFile string
	FS           types.FS
	Packages     PackageLister
	Files        FileSource
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient substitutes the transport, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// Client performs push/pull round-trips against the sync server.
type Client struct {
	params     Params
	httpClient *http.Client
	logger     zerolog.Logger
}

// New creates a sync client. The default transport carries no timeout
// beyond the protocol defaults; a hung remote stalls the caller.
func New(params Params, opts ...Option) *Client {
	c := &Client{
		params:     params,
		httpClient: http.DefaultClient,
		logger:     logging.GetLogger("syncer"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Push assembles a bundle from the fresh local package list and the
// tracked-file snapshot, then uploads it. Push never mutates local
// state, success or not.
func (c *Client) Push(ctx context.Context) error {
	packages, err := c.params.Packages.ListInstalled(ctx)
	if err != nil {
		return err
	}
	files, err := c.params.Files.FilesSnapshot()
	if err != nil {
		return err
	}

	bundle := types.SyncBundle{Files: files, Packages: packages}
	body, err := json.Marshal(bundle)
	if err != nil {
		return errors.Wrap(err, errors.ErrSerialize, "encoding sync bundle")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.params.URL, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, errors.ErrSync, "building push request")
	}
	req.Header.Set("Authorization", "Bearer "+c.params.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, errors.ErrSync, "push request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.Newf(errors.ErrSync, "push failed: %d", resp.StatusCode)
	}

	c.logger.Info().Int("packages", len(packages)).Int("files", len(files)).Msg("Pushed bundle")
	return nil
}

// Pull downloads the remote bundle. A non-empty remote package list
// wholesale-overwrites the local package cache document regardless of
// preferLocal.
//
// TODO: per-file conflict resolution. The preferLocal flag's intended
// semantics (prefer local copies of individual tracked files) are not
// realized at this layer; the bundle format carries no conflict
// markers, so write-back of the files map stays with the presentation
// layer.
func (c *Client) Pull(ctx context.Context, preferLocal bool) error {
	if _, err := c.params.FS.Stat(c.params.DotfilesDir); err != nil && !preferLocal {
		return errors.New(errors.ErrSyncNoBase, "no base: managed directory does not exist")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.params.URL, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrSync, "building pull request")
	}
	req.Header.Set("Authorization", "Bearer "+c.params.Token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, errors.ErrSync, "pull request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.Newf(errors.ErrSync, "pull failed: %d", resp.StatusCode)
	}

	var bundle types.SyncBundle
	if err := json.NewDecoder(resp.Body).Decode(&bundle); err != nil {
		return errors.Wrap(err, errors.ErrSerialize, "decoding sync bundle")
	}

	if len(bundle.Packages) > 0 {
		if err := c.writePackages(bundle.Packages); err != nil {
			return err
		}
	}

	c.logger.Info().Int("packages", len(bundle.Packages)).Int("files", len(bundle.Files)).
		Bool("preferLocal", preferLocal).Msg("Pulled bundle")
	return nil
}

// CheckRemoteAccess probes the sync endpoint with the configured
// credentials. It reports reachability only; no detail beyond the
// error text.
func (c *Client) CheckRemoteAccess(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.params.URL, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrSync, "building probe request")
	}
	req.Header.Set("Authorization", "Bearer "+c.params.Token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, errors.ErrSync, "remote unreachable")
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.Newf(errors.ErrSync, "remote check failed: %d", resp.StatusCode)
	}
	return nil
}

// writePackages overwrites the package cache document with the pulled
// list, emitting the canonical map shape with last write winning on
// duplicate names.
func (c *Client) writePackages(packages []types.Package) error {
	byName := make(map[string]types.Package, len(packages))
	for _, pkg := range packages {
		byName[pkg.Name] = pkg
	}
	data, err := json.MarshalIndent(byName, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrSerialize, "encoding package cache")
	}
	if err := c.params.FS.MkdirAll(filepath.Dir(c.params.PackagesFile), 0755); err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "creating %s", filepath.Dir(c.params.PackagesFile))
	}
	if err := c.params.FS.WriteFile(c.params.PackagesFile, data, 0644); err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "writing %s", c.params.PackagesFile)
	}
	return nil
}
