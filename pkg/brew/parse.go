package brew

import (
	"encoding/json"
	"strings"

	"github.com/jwalker/kiwi/pkg/errors"
	"github.com/jwalker/kiwi/pkg/types"
)

// ParseList parses `brew list --versions` output: one package per
// line, name first, optional version second. Extra fields and blank
// lines are tolerated.
func ParseList(output string) []types.Package {
	var packages []types.Package
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		pkg := types.Package{Name: fields[0], Installed: true}
		if len(fields) > 1 {
			pkg.Version = fields[1]
		}
		packages = append(packages, pkg)
	}
	return packages
}

// infoDocument mirrors the subset of the `brew info --json=v2` schema
// kiwi reads. Absent fields decode to their zero values.
type infoDocument struct {
	Formulae []struct {
		Name     string `json:"name"`
		Versions struct {
			Stable string `json:"stable"`
		} `json:"versions"`
		Dependencies []string `json:"dependencies"`
		Installed    []struct {
			Version       string `json:"version"`
			InstalledSize int64  `json:"installed_size"`
		} `json:"installed"`
	} `json:"formulae"`
	Casks []struct {
		Token   string `json:"token"`
		Version string `json:"version"`
	} `json:"casks"`
}

// PackageInfo is the enrichment the info query yields beyond the base
// listing.
type PackageInfo struct {
	Version      string
	Dependencies []string
	Size         int64
	IsCask       bool
}

// ParseInfo extracts enrichment metadata from a `brew info --json=v2`
// document. A package that appears under casks (and not formulae) is
// classified as a cask.
func ParseInfo(output string) (PackageInfo, error) {
	var doc infoDocument
	if err := json.Unmarshal([]byte(output), &doc); err != nil {
		return PackageInfo{}, errors.Wrap(err, errors.ErrAdapter, "parsing package info")
	}

	if len(doc.Formulae) > 0 {
		f := doc.Formulae[0]
		info := PackageInfo{
			Version:      f.Versions.Stable,
			Dependencies: f.Dependencies,
		}
		if len(f.Installed) > 0 {
			info.Size = f.Installed[0].InstalledSize
			if f.Installed[0].Version != "" {
				info.Version = f.Installed[0].Version
			}
		}
		return info, nil
	}

	if len(doc.Casks) > 0 {
		return PackageInfo{
			Version: doc.Casks[0].Version,
			IsCask:  true,
		}, nil
	}

	return PackageInfo{}, nil
}
