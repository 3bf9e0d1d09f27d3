// Package registry maintains the tracked-item registry: the mapping
// from canonical filesystem paths to their sync representation, and
// the symlink farm under the managed directory. The registry document
// is a JSON array rewritten wholesale on every mutation; insertion
// order is preserved.
package registry

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/jwalker/kiwi/pkg/errors"
	"github.com/jwalker/kiwi/pkg/logging"
	"github.com/jwalker/kiwi/pkg/types"
	"github.com/rs/zerolog"
)

// BackupSuffix is appended to a displaced file's name when Track
// replaces it with a symlink.
const BackupSuffix = ".backup"

// Registry owns the tracked-item document and the managed directory.
type Registry struct {
	fs           types.FS
	dotfilesDir  string
	registryFile string
	logger       zerolog.Logger
}

// TrackOptions tunes Track behavior.
type TrackOptions struct {
	// Alias stores the item under a different name in the managed
	// directory. Defaults to the path's final segment.
	Alias string

	// NoBackup skips the backup copy of any file already present at
	// the managed-directory target.
	NoBackup bool
}

// New creates a Registry over the given filesystem. dotfilesDir is the
// managed directory root; registryFile is the JSON document path.
func New(fs types.FS, dotfilesDir, registryFile string) *Registry {
	return &Registry{
		fs:           fs,
		dotfilesDir:  dotfilesDir,
		registryFile: registryFile,
		logger:       logging.GetLogger("registry"),
	}
}

// Track registers a file for synchronization. The path is resolved to
// its canonical form, which becomes the identity key. A symlink from
// the managed directory back to the original is created, displacing
// (and unless opted out, backing up) whatever was at the target.
//
// If persisting the registry fails after the symlink is created, the
// filesystem changes are rolled back: the link is removed and any
// displaced backup restored.
func (r *Registry) Track(path string, opts TrackOptions) (types.TrackedItem, error) {
	canonical, err := canonicalize(path)
	if err != nil {
		return types.TrackedItem{}, errors.Newf(errors.ErrNotFound, "file does not exist: %s", path)
	}

	items, err := r.load()
	if err != nil {
		return types.TrackedItem{}, err
	}
	for _, it := range items {
		if it.Path == canonical {
			return types.TrackedItem{}, errors.Newf(errors.ErrAlreadyTracked, "file already tracked: %s", canonical)
		}
	}

	item := types.TrackedItem{Path: canonical, Alias: opts.Alias, Synced: false}
	target := filepath.Join(r.dotfilesDir, item.Name())

	if err := r.fs.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return types.TrackedItem{}, errors.Wrapf(err, errors.ErrFileWrite, "creating %s", filepath.Dir(target))
	}

	backedUp := false
	backupPath := target + BackupSuffix
	if info, err := r.fs.Lstat(target); err == nil {
		wantBackup := !opts.NoBackup
		if info.Mode()&os.ModeSymlink != 0 {
			// A dangling link has nothing to back up; just clear it.
			if _, err := r.fs.Stat(target); err != nil {
				wantBackup = false
				r.logger.Debug().Str("target", target).Msg("Removing stale dangling symlink at target")
			}
		}
		if wantBackup {
			if err := r.copyFile(target, backupPath); err != nil {
				return types.TrackedItem{}, err
			}
			backedUp = true
		}
		if err := r.fs.Remove(target); err != nil {
			return types.TrackedItem{}, errors.Wrapf(err, errors.ErrFileWrite, "removing existing target %s", target)
		}
	}

	if err := r.fs.Symlink(canonical, target); err != nil {
		return types.TrackedItem{}, errors.Wrapf(err, errors.ErrFileWrite, "creating symlink %s", target)
	}

	items = append(items, item)
	if err := r.save(items); err != nil {
		// Compensating rollback so a failed persist cannot leave an
		// orphaned link behind.
		if rmErr := r.fs.Remove(target); rmErr != nil {
			r.logger.Warn().Err(rmErr).Str("target", target).Msg("Rollback failed to remove symlink")
		}
		if backedUp {
			if mvErr := r.fs.Rename(backupPath, target); mvErr != nil {
				r.logger.Warn().Err(mvErr).Str("target", target).Msg("Rollback failed to restore backup")
			}
		}
		return types.TrackedItem{}, err
	}

	r.logger.Info().Str("path", canonical).Str("target", target).Msg("Tracking file")
	return item, nil
}

// Untrack removes a file from the registry and deletes its managed
// symlink. When deleteOriginal is set the original file is removed as
// well.
func (r *Registry) Untrack(path string, deleteOriginal bool) error {
	resolved := resolve(path)

	items, err := r.load()
	if err != nil {
		return err
	}

	idx := -1
	for i, it := range items {
		if it.Path == resolved {
			idx = i
			break
		}
	}
	if idx < 0 {
		return errors.Newf(errors.ErrNotTracked, "file not tracked: %s", resolved)
	}

	item := items[idx]
	target := filepath.Join(r.dotfilesDir, item.Name())
	if _, err := r.fs.Lstat(target); err == nil {
		if err := r.fs.Remove(target); err != nil {
			return errors.Wrapf(err, errors.ErrFileWrite, "removing %s", target)
		}
	}

	if deleteOriginal {
		if err := r.fs.Remove(item.Path); err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(err, errors.ErrFileWrite, "deleting %s", item.Path)
		}
	}

	items = append(items[:idx], items[idx+1:]...)
	if err := r.save(items); err != nil {
		return err
	}

	r.logger.Info().Str("path", resolved).Bool("deleteOriginal", deleteOriginal).Msg("Untracked file")
	return nil
}

// List returns all tracked items in registry (insertion) order. An
// absent registry document is an empty registry, not an error.
func (r *Registry) List() ([]types.TrackedItem, error) {
	return r.load()
}

// SyncFlagSweep walks the registry without performing any per-item
// remote action. Per-file selective sync is not implemented at this
// granularity; whole-registry reconciliation happens at the bundle
// level in the sync client.
func (r *Registry) SyncFlagSweep(preferLocal bool) error {
	items, err := r.load()
	if err != nil {
		return err
	}
	synced := 0
	for _, it := range items {
		if it.Synced {
			synced++
		}
	}
	r.logger.Debug().Int("count", len(items)).Int("synced", synced).Bool("preferLocal", preferLocal).
		Msg("Sync sweep complete, bundle-level sync handles reconciliation")
	return nil
}

// FilesSnapshot returns the current content of every tracked file,
// keyed by managed name, as the transport envelope for push. Files
// that cannot be read contribute an empty placeholder.
func (r *Registry) FilesSnapshot() (map[string]string, error) {
	items, err := r.load()
	if err != nil {
		return nil, err
	}

	files := make(map[string]string, len(items))
	for _, it := range items {
		data, err := r.fs.ReadFile(it.Path)
		if err != nil {
			r.logger.Warn().Err(err).Str("path", it.Path).Msg("Tracked file unreadable, sending placeholder")
			files[it.Name()] = ""
			continue
		}
		files[it.Name()] = string(data)
	}
	return files, nil
}

func (r *Registry) load() ([]types.TrackedItem, error) {
	data, err := r.fs.ReadFile(r.registryFile)
	if os.IsNotExist(err) {
		return []types.TrackedItem{}, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrFileAccess, "reading %s", r.registryFile)
	}

	var items []types.TrackedItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, errors.Wrapf(err, errors.ErrSerialize, "parsing %s", r.registryFile)
	}
	return items, nil
}

func (r *Registry) save(items []types.TrackedItem) error {
	if err := r.fs.MkdirAll(filepath.Dir(r.registryFile), 0755); err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "creating %s", filepath.Dir(r.registryFile))
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrSerialize, "encoding registry")
	}
	if err := r.fs.WriteFile(r.registryFile, data, 0644); err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "writing %s", r.registryFile)
	}
	return nil
}

func (r *Registry) copyFile(src, dst string) error {
	data, err := r.fs.ReadFile(src)
	if err != nil {
		return errors.Wrapf(err, errors.ErrFileAccess, "reading %s", src)
	}
	info, err := r.fs.Stat(src)
	perm := os.FileMode(0644)
	if err == nil {
		perm = info.Mode().Perm()
	}
	if err := r.fs.WriteFile(dst, data, perm); err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "writing %s", dst)
	}
	return nil
}

// canonicalize resolves path to its canonical absolute form, failing
// when the file does not exist.
func canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}

// resolve canonicalizes when possible and falls back to the cleaned
// absolute path, so items whose original file is gone can still be
// untracked.
func resolve(path string) string {
	if canonical, err := canonicalize(path); err == nil {
		return canonical
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}
