package runner

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"

	"mlpipe/internal/project"
)

// ExecRunner runs unit entry points through /bin/sh in the unit's own
// directory. The child inherits the parent environment; Submission.Env
// entries are appended last so they win on duplicate names.
type ExecRunner struct {
	l       *slog.Logger
	fetcher *Fetcher

	// Stdout and Stderr receive the unit's output. They default to the
	// process streams.
	Stdout io.Writer
	Stderr io.Writer
}

func NewExecRunner(l *slog.Logger, fetcher *Fetcher) *ExecRunner {
	return &ExecRunner{
		l:       l,
		fetcher: fetcher,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}
}

func (r *ExecRunner) Run(ctx context.Context, sub Submission) error {
	dir, err := r.unitDir(ctx, sub)
	if err != nil {
		return err
	}

	manifest, err := project.Load(dir)
	if err != nil {
		return err
	}

	ep, err := manifest.EntryPoint(sub.EntryPoint)
	if err != nil {
		return err
	}

	command, err := ep.BuildCommand(sub.Params)
	if err != nil {
		return fmt.Errorf("failed to build command for entry point %q of unit %q: %w", sub.EntryPoint, manifest.Name, err)
	}

	r.l.InfoContext(ctx, fmt.Sprintf("Running unit: %s", manifest.Name),
		"step", sub.Step,
		"dir", dir,
		"command", command)

	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", command)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), envPairs(sub.Env)...)
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("entry point %q of unit %q failed: %w", sub.EntryPoint, manifest.Name, err)
	}
	return nil
}

func (r *ExecRunner) unitDir(ctx context.Context, sub Submission) (string, error) {
	if sub.Location.Remote() {
		return r.fetcher.Fetch(ctx, sub.Location, filepath.Join(sub.WorkDir, "units"))
	}

	fi, err := os.Stat(sub.Location.Path)
	if err != nil {
		return "", fmt.Errorf("unit directory %q is not accessible: %w", sub.Location.Path, err)
	}
	if !fi.IsDir() {
		return "", fmt.Errorf("unit path %q is not a directory", sub.Location.Path)
	}
	return sub.Location.Path, nil
}

// envPairs renders the submission environment as KEY=VALUE pairs in a
// stable order.
func envPairs(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(env))
	for _, k := range keys {
		pairs = append(pairs, k+"="+env[k])
	}
	return pairs
}
