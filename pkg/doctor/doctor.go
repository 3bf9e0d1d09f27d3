// Package doctor inspects local environment health: broken managed
// symlinks, drift between the package cache and what brew actually has
// installed, and sync configuration problems. It only reports; no
// issue is ever fixed automatically.
package doctor

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/jwalker/kiwi/pkg/logging"
	"github.com/jwalker/kiwi/pkg/types"
	"github.com/rs/zerolog"
)

// Severity classifies an issue.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Issue is a single finding.
type Issue struct {
	Severity Severity
	Message  string
}

// Report is the outcome of a doctor run.
type Report struct {
	Issues []Issue
}

// Healthy reports whether the run found nothing wrong.
func (r Report) Healthy() bool {
	return len(r.Issues) == 0
}

// ItemLister exposes the tracked-item registry.
type ItemLister interface {
	List() ([]types.TrackedItem, error)
}

// PackageChecker exposes cache contents and brew ground truth.
type PackageChecker interface {
	Cached() []types.Package
	IsInstalled(ctx context.Context, name string) bool
}

// RemoteProber checks sync server reachability.
type RemoteProber interface {
	CheckRemoteAccess(ctx context.Context) error
}

// Doctor runs the health checks.
type Doctor struct {
	fs          types.FS
	dotfilesDir string
	items       ItemLister
	packages    PackageChecker
	prober      RemoteProber // nil when sync is not configured
	logger      zerolog.Logger
}

// New creates a Doctor. prober may be nil when sync is unconfigured;
// that itself is reported as a warning.
func New(fs types.FS, dotfilesDir string, items ItemLister, packages PackageChecker, prober RemoteProber) *Doctor {
	return &Doctor{
		fs:          fs,
		dotfilesDir: dotfilesDir,
		items:       items,
		packages:    packages,
		prober:      prober,
		logger:      logging.GetLogger("doctor"),
	}
}

// Run executes every check and returns the accumulated findings.
func (d *Doctor) Run(ctx context.Context) (Report, error) {
	var report Report

	if err := d.checkSymlinks(&report); err != nil {
		return report, err
	}
	d.checkDrift(ctx, &report)
	d.checkRemote(ctx, &report)

	d.logger.Info().Int("issues", len(report.Issues)).Msg("Doctor run complete")
	return report, nil
}

// checkSymlinks verifies each tracked item's managed link exists and
// its original file is still present.
func (d *Doctor) checkSymlinks(report *Report) error {
	items, err := d.items.List()
	if err != nil {
		return err
	}

	for _, item := range items {
		target := filepath.Join(d.dotfilesDir, item.Name())
		if _, err := d.fs.Lstat(target); err != nil {
			report.Issues = append(report.Issues, Issue{
				Severity: SeverityError,
				Message:  fmt.Sprintf("managed link missing for %s (expected %s)", item.Path, target),
			})
			continue
		}
		if _, err := d.fs.Stat(item.Path); err != nil {
			report.Issues = append(report.Issues, Issue{
				Severity: SeverityError,
				Message:  fmt.Sprintf("original file missing for tracked item %s", item.Path),
			})
		}
	}
	return nil
}

// checkDrift flags cache records whose package brew no longer reports
// as installed, e.g. packages removed outside kiwi.
func (d *Doctor) checkDrift(ctx context.Context, report *Report) {
	for _, pkg := range d.packages.Cached() {
		if !pkg.Installed {
			continue
		}
		if !d.packages.IsInstalled(ctx, pkg.Name) {
			report.Issues = append(report.Issues, Issue{
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("package %s is cached as installed but brew does not report it", pkg.Name),
			})
		}
	}
}

func (d *Doctor) checkRemote(ctx context.Context, report *Report) {
	if d.prober == nil {
		report.Issues = append(report.Issues, Issue{
			Severity: SeverityWarning,
			Message:  "sync is not configured (set sync_url and sync_token)",
		})
		return
	}
	if err := d.prober.CheckRemoteAccess(ctx); err != nil {
		report.Issues = append(report.Issues, Issue{
			Severity: SeverityError,
			Message:  fmt.Sprintf("sync server unreachable: %v", err),
		})
	}
}
