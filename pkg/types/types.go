package types

import (
	"io/fs"
	"path/filepath"
)

// TrackedItem is a single dotfile under kiwi management. Path is the
// canonical absolute location of the original file and is the identity
// key within the registry.
type TrackedItem struct {
	Path   string `json:"path"`
	Alias  string `json:"alias,omitempty"`
	Synced bool   `json:"synced"`
}

// Name returns the name the item is stored under inside the managed
// directory: the alias when set, otherwise the final path segment.
func (t TrackedItem) Name() string {
	if t.Alias != "" {
		return t.Alias
	}
	return filepath.Base(t.Path)
}

// Package is a single Homebrew package as mirrored by the state cache.
// Installed and Version come from brew itself; the timestamps and Size
// are best-effort metadata brew does not persist across invocations.
type Package struct {
	Name         string   `json:"name"`
	Version      string   `json:"version,omitempty"`
	Installed    bool     `json:"installed"`
	Dependencies []string `json:"dependencies,omitempty"`
	InstallTime  int64    `json:"install_time,omitempty"`
	LastUpdate   int64    `json:"last_update,omitempty"`
	Size         int64    `json:"size,omitempty"`
	IsCask       bool     `json:"is_cask,omitempty"`
}

// SyncBundle is the wire payload exchanged with the sync server. It is
// never persisted locally; push assembles one and pull consumes one.
type SyncBundle struct {
	Files    map[string]string `json:"files"`
	Packages []Package         `json:"packages"`
}

// FS abstracts the filesystem operations kiwi performs so that tests
// can run against an in-memory implementation.
type FS interface {
	Stat(name string) (fs.FileInfo, error)
	Lstat(name string) (fs.FileInfo, error)
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte, perm fs.FileMode) error
	MkdirAll(path string, perm fs.FileMode) error
	Symlink(oldname, newname string) error
	Readlink(name string) (string, error)
	Remove(name string) error
	Rename(oldpath, newpath string) error
}
