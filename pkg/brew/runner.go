package brew

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/jwalker/kiwi/pkg/errors"
	"github.com/jwalker/kiwi/pkg/logging"
	"github.com/rs/zerolog"
)

// Runner is the capability surface kiwi needs from the external
// package manager. The concrete implementation shells out to brew;
// tests substitute a double so no real package manager is invoked.
type Runner interface {
	// List returns the raw output of the versions listing, one
	// installed package per line.
	List(ctx context.Context) (string, error)

	// Install installs a package, as a cask when cask is set.
	Install(ctx context.Context, name string, cask bool) error

	// Upgrade upgrades one package, or every installed package when
	// name is empty.
	Upgrade(ctx context.Context, name string) error

	// Info returns the raw JSON info document for a package.
	Info(ctx context.Context, name string) (string, error)

	// Exists reports whether a package is currently installed.
	Exists(ctx context.Context, name string) bool
}

// execRunner shells out to the brew binary. Calls are synchronous and
// block until the subprocess exits.
type execRunner struct {
	binary string
	logger zerolog.Logger
}

// NewRunner returns a Runner backed by the brew command line tool.
func NewRunner() Runner {
	return &execRunner{
		binary: "brew",
		logger: logging.GetLogger("brew.runner"),
	}
}

func (r *execRunner) run(ctx context.Context, args ...string) (string, error) {
	r.logger.Debug().Str("binary", r.binary).Strs("args", args).Msg("Invoking package manager")

	cmd := exec.CommandContext(ctx, r.binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", errors.Newf(errors.ErrPackage, "%s %s failed: %s", r.binary, strings.Join(args, " "), msg)
	}
	return stdout.String(), nil
}

func (r *execRunner) List(ctx context.Context) (string, error) {
	return r.run(ctx, "list", "--versions")
}

func (r *execRunner) Install(ctx context.Context, name string, cask bool) error {
	args := []string{"install"}
	if cask {
		args = append(args, "--cask")
	}
	args = append(args, name)
	_, err := r.run(ctx, args...)
	return err
}

func (r *execRunner) Upgrade(ctx context.Context, name string) error {
	args := []string{"upgrade"}
	if name != "" {
		args = append(args, name)
	}
	_, err := r.run(ctx, args...)
	return err
}

func (r *execRunner) Info(ctx context.Context, name string) (string, error) {
	return r.run(ctx, "info", "--json=v2", name)
}

func (r *execRunner) Exists(ctx context.Context, name string) bool {
	// brew exits nonzero when the package is not installed.
	_, err := r.run(ctx, "list", name)
	return err == nil
}
