package runner

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"mlpipe/internal/project"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("requires /bin/sh")
	}
}

func writeUnit(t *testing.T, manifest string) string {
	t.Helper()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, project.ManifestName), []byte(manifest), 0o644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}
	return dir
}

func TestExecRunner_RunsLocalUnit(t *testing.T) {
	requireShell(t)

	dir := writeUnit(t, `name: echo_unit
entry_points:
  main:
    parameters:
      message: string
    command: "echo {message} > out.txt"
`)

	r := NewExecRunner(discardLogger(), nil)
	err := r.Run(context.Background(), Submission{
		Step:       "echo",
		Location:   Location{Path: dir},
		EntryPoint: "main",
		Params:     map[string]string{"message": "hello world"},
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "out.txt"))
	if err != nil {
		t.Fatalf("failed to read unit output: %v", err)
	}
	if got := strings.TrimSpace(string(data)); got != "hello world" {
		t.Errorf("expected output %q, got %q", "hello world", got)
	}
}

func TestExecRunner_PassesEnvToChildOnly(t *testing.T) {
	requireShell(t)

	dir := writeUnit(t, `name: env_unit
entry_points:
  main:
    command: 'echo "$PIPELINE_TRACKING_MARKER" > env.txt'
`)

	r := NewExecRunner(discardLogger(), nil)
	err := r.Run(context.Background(), Submission{
		Step:       "env",
		Location:   Location{Path: dir},
		EntryPoint: "main",
		Env:        map[string]string{"PIPELINE_TRACKING_MARKER": "group-42"},
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "env.txt"))
	if err != nil {
		t.Fatalf("failed to read unit output: %v", err)
	}
	if got := strings.TrimSpace(string(data)); got != "group-42" {
		t.Errorf("expected child to see %q, got %q", "group-42", got)
	}

	// The variable reaches the child process only, never this process.
	if v := os.Getenv("PIPELINE_TRACKING_MARKER"); v != "" {
		t.Errorf("expected parent environment to stay clean, found %q", v)
	}
}

func TestExecRunner_FetchesRemoteUnit(t *testing.T) {
	requireShell(t)

	archive := makeArchive(t, []archiveEntry{
		{name: "repo-1.0.0/", dir: true},
		{name: "repo-1.0.0/remote_unit/", dir: true},
		{name: "repo-1.0.0/remote_unit/MLproject", body: "name: remote_unit\nentry_points:\n  main:\n    command: \"echo ran > marker.txt\"\n"},
	})

	var requests int
	srv := serveArchive(t, archive, &requests)

	workDir := t.TempDir()
	r := NewExecRunner(discardLogger(), NewFetcher())
	err := r.Run(context.Background(), Submission{
		Step:       "remote",
		Location:   Location{Repo: srv.URL, Subdir: "remote_unit", Ref: "1.0.0"},
		EntryPoint: "main",
		WorkDir:    workDir,
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	// The unit ran inside its unpacked directory beneath the workspace.
	marker := filepath.Join(workDir, "units", "archive-0", "remote_unit", "marker.txt")
	if _, err := os.Stat(marker); err != nil {
		t.Errorf("expected marker file in unpacked unit dir: %v", err)
	}
}

func TestExecRunner_FailingUnit(t *testing.T) {
	requireShell(t)

	dir := writeUnit(t, `name: failing_unit
entry_points:
  main:
    command: "exit 3"
`)

	r := NewExecRunner(discardLogger(), nil)
	err := r.Run(context.Background(), Submission{
		Step:       "fail",
		Location:   Location{Path: dir},
		EntryPoint: "main",
	})
	if err == nil {
		t.Fatal("expected error for failing unit, got nil")
	}
	if !strings.Contains(err.Error(), "failing_unit") {
		t.Errorf("expected error to name the unit, got %q", err)
	}
}

func TestExecRunner_MissingManifest(t *testing.T) {
	r := NewExecRunner(discardLogger(), nil)
	err := r.Run(context.Background(), Submission{
		Step:       "broken",
		Location:   Location{Path: t.TempDir()},
		EntryPoint: "main",
	})
	if err == nil {
		t.Fatal("expected error for unit without manifest, got nil")
	}
}

func TestExecRunner_UnitPathNotDirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not_a_dir")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	r := NewExecRunner(discardLogger(), nil)
	err := r.Run(context.Background(), Submission{
		Step:       "broken",
		Location:   Location{Path: file},
		EntryPoint: "main",
	})
	if err == nil {
		t.Fatal("expected error for non-directory unit path, got nil")
	}
}

func TestEnvPairs_StableOrder(t *testing.T) {
	got := envPairs(map[string]string{"B": "2", "A": "1", "C": "3"})
	expected := []string{"A=1", "B=2", "C=3"}

	if !reflect.DeepEqual(got, expected) {
		t.Errorf("expected %v, got %v", expected, got)
	}
}
