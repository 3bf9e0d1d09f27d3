package brew

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/jwalker/kiwi/pkg/errors"
	"github.com/jwalker/kiwi/pkg/logging"
	"github.com/jwalker/kiwi/pkg/types"
	"github.com/rs/zerolog"
)

// Cache is the local mirror of package state, keyed by package name.
// It exists to carry metadata brew does not retain across invocations
// (install and update timestamps) and to avoid re-querying detailed
// info on every listing. brew remains the sole ground truth for
// installed/not-installed; the cache is derived state.
//
// The in-memory map is loaded once at construction and the document
// persisted after every mutating call.
type Cache struct {
	fs       types.FS
	file     string
	packages map[string]types.Package
	logger   zerolog.Logger
}

// NewCache loads the cache document. An absent document is an empty
// cache. The canonical on-disk shape is a map keyed by name, but
// legacy producers wrote an array of records; both shapes are
// accepted on read and normalized, and the map shape is always
// emitted on write.
func NewCache(fs types.FS, file string) (*Cache, error) {
	c := &Cache{
		fs:       fs,
		file:     file,
		packages: make(map[string]types.Package),
		logger:   logging.GetLogger("brew.cache"),
	}

	data, err := fs.ReadFile(file)
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrFileAccess, "reading %s", file)
	}

	if err := json.Unmarshal(data, &c.packages); err != nil {
		// Compatibility shim: fall back to the legacy array shape.
		var list []types.Package
		if arrErr := json.Unmarshal(data, &list); arrErr != nil {
			return nil, errors.Wrapf(err, errors.ErrSerialize, "parsing %s", file)
		}
		c.packages = make(map[string]types.Package, len(list))
		for _, pkg := range list {
			c.packages[pkg.Name] = pkg
		}
		c.logger.Debug().Str("file", file).Msg("Normalized legacy array-shaped package cache")
	}

	return c, nil
}

// Get returns the cached record for a name.
func (c *Cache) Get(name string) (types.Package, bool) {
	pkg, ok := c.packages[name]
	return pkg, ok
}

// Len returns the number of cached records.
func (c *Cache) Len() int {
	return len(c.packages)
}

// All returns every cached record sorted by name.
func (c *Cache) All() []types.Package {
	names := make([]string, 0, len(c.packages))
	for name := range c.packages {
		names = append(names, name)
	}
	sort.Strings(names)

	packages := make([]types.Package, 0, len(names))
	for _, name := range names {
		packages = append(packages, c.packages[name])
	}
	return packages
}

// Upsert replaces the record for pkg.Name in full and persists the
// document. There is no field-level merge; callers wanting to keep
// prior timestamps copy them onto pkg first.
func (c *Cache) Upsert(pkg types.Package) error {
	c.packages[pkg.Name] = pkg
	return c.persist()
}

// SetAll wholesale-replaces the cache with the given records, keyed by
// name with the last write winning on duplicates, and persists.
func (c *Cache) SetAll(packages []types.Package) error {
	c.packages = make(map[string]types.Package, len(packages))
	for _, pkg := range packages {
		c.packages[pkg.Name] = pkg
	}
	return c.persist()
}

func (c *Cache) persist() error {
	if err := c.fs.MkdirAll(filepath.Dir(c.file), 0755); err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "creating %s", filepath.Dir(c.file))
	}
	data, err := json.MarshalIndent(c.packages, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrSerialize, "encoding package cache")
	}
	if err := c.fs.WriteFile(c.file, data, 0644); err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "writing %s", c.file)
	}
	return nil
}
