package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"mlpipe/internal/config"
	"mlpipe/internal/runner"
	"mlpipe/internal/workspace"
)

// selectAll is the steps value meaning every non-excluded registry step.
const selectAll = "all"

// entryPoint is the single entry point the driver invokes on every unit.
const entryPoint = "main"

// Tracking environment handed to every unit so the runs of one pipeline
// execution group together in the experiment tracker. The driver passes
// these per submission and never mutates its own environment.
const (
	envTrackingProject  = "WANDB_PROJECT"
	envTrackingRunGroup = "WANDB_RUN_GROUP"
)

// Driver executes the training pipeline: it selects steps, resolves their
// parameters from the loaded config, and submits them one by one to a unit
// runner.
type Driver struct {
	l      *slog.Logger
	cfg    *config.Config
	runner runner.Runner
}

func NewDriver(l *slog.Logger, cfg *config.Config, r runner.Runner) *Driver {
	return &Driver{
		l:      l,
		cfg:    cfg,
		runner: r,
	}
}

// Run executes the selected steps in registry order inside a fresh scoped
// workspace, removed when Run returns whether the run succeeded or not. An
// empty selection falls back to the steps value of the main config section.
// The first failing step aborts the run.
func (d *Driver) Run(ctx context.Context, selection string) error {
	main, err := d.cfg.Main()
	if err != nil {
		return err
	}

	if selection == "" {
		selection = main.Steps
	}

	steps := d.activeSteps(ctx, selection)
	if len(steps) == 0 {
		return fmt.Errorf("no known steps selected by %q", selection)
	}

	ws, err := workspace.Create()
	if err != nil {
		return err
	}
	defer func() {
		if err := ws.Cleanup(); err != nil {
			d.l.ErrorContext(ctx, "Failed to remove run workspace",
				"path", ws.Path,
				"error", err)
		}
	}()

	env := map[string]string{
		envTrackingProject:  main.ProjectName,
		envTrackingRunGroup: main.ExperimentName,
	}

	names := make([]string, 0, len(steps))
	for _, s := range steps {
		names = append(names, s.name)
	}
	d.l.InfoContext(ctx, fmt.Sprintf("Starting pipeline: %s", main.ProjectName),
		"experiment", main.ExperimentName,
		"steps", strings.Join(names, ","),
		"workspace", ws.Path)

	for _, step := range steps {
		d.l.InfoContext(ctx, fmt.Sprintf("Executing step: %s", step.name))
		if err := d.runStep(ctx, step, main, ws, env); err != nil {
			return &StepError{Step: step.name, Err: err}
		}
	}

	d.l.InfoContext(ctx, "Pipeline finished")
	return nil
}

// activeSteps resolves the steps selection. "all" selects every step not
// marked excluded; anything else is a comma separated list tested for
// membership. Execution order always follows the registry, not the list.
// Requested names that match no registry step are logged and dropped.
func (d *Driver) activeSteps(ctx context.Context, selection string) []stepSpec {
	if selection == selectAll {
		active := make([]stepSpec, 0, len(registry))
		for _, s := range registry {
			if !s.excluded {
				active = append(active, s)
			}
		}
		return active
	}

	requested := make(map[string]bool)
	for _, name := range strings.Split(selection, ",") {
		if name = strings.TrimSpace(name); name != "" {
			requested[name] = true
		}
	}

	active := make([]stepSpec, 0, len(requested))
	for _, s := range registry {
		if requested[s.name] {
			active = append(active, s)
			delete(requested, s.name)
		}
	}

	unknown := make([]string, 0, len(requested))
	for name := range requested {
		unknown = append(unknown, name)
	}
	sort.Strings(unknown)
	for _, name := range unknown {
		d.l.WarnContext(ctx, fmt.Sprintf("Ignoring unknown step: %s", name))
	}

	return active
}

func (d *Driver) runStep(ctx context.Context, step stepSpec, main *config.Main, ws *workspace.Workspace, env map[string]string) error {
	params := make(map[string]string, len(step.params)+len(step.files))

	for _, p := range step.params {
		v, err := d.cfg.Value(p.path)
		if err != nil {
			return fmt.Errorf("failed to resolve parameter %q: %w", p.name, err)
		}
		params[p.name] = config.Stringify(v)
	}

	for _, f := range step.files {
		filePath, err := d.writeSubtreeFile(ws, f)
		if err != nil {
			return err
		}
		params[f.name] = filePath
	}

	return d.runner.Run(ctx, runner.Submission{
		Step:       step.name,
		Location:   d.location(step, main),
		EntryPoint: entryPoint,
		Params:     params,
		Env:        env,
		WorkDir:    ws.Path,
	})
}

// location maps a step to its unit code. Remote units live under the
// shared components repository, whose URL may carry a "#subdir" fragment
// naming the directory holding the units. Local units ship in src/ next to
// the config file.
func (d *Driver) location(step stepSpec, main *config.Main) runner.Location {
	if step.remote {
		base, frag, _ := strings.Cut(main.ComponentsRepository, "#")
		return runner.Location{
			Repo:   base,
			Subdir: path.Join(frag, step.unit),
			Ref:    main.ComponentsVersion,
		}
	}
	return runner.Location{Path: filepath.Join(d.cfg.Dir, "src", step.unit)}
}

// writeSubtreeFile serializes the config subtree a fileRef points at into
// the run workspace and returns the absolute file path.
func (d *Driver) writeSubtreeFile(ws *workspace.Workspace, f fileRef) (string, error) {
	subtree, err := d.cfg.Subtree(f.path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %q for file parameter %q: %w", f.path, f.name, err)
	}

	data, err := json.Marshal(subtree)
	if err != nil {
		return "", fmt.Errorf("failed to serialize %q: %w", f.path, err)
	}

	return ws.WriteFile(f.file, data)
}
