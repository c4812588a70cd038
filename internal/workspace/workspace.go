package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Workspace is the scoped scratch directory for a single pipeline run.
// Everything the driver writes during a run (serialized step parameters,
// fetched component repositories) lives under Path, and Cleanup removes it
// all regardless of how the run ended.
type Workspace struct {
	Path string
	ID   string
}

// Create creates a new run workspace under the system temp directory.
func Create() (*Workspace, error) {
	runID := uuid.New().String()[:8] // Use first 8 chars for brevity

	path := filepath.Join(os.TempDir(), fmt.Sprintf("mlpipe-run-%s", runID))

	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create run workspace at %q: %w", path, err)
	}

	return &Workspace{
		Path: path,
		ID:   runID,
	}, nil
}

// WriteFile writes data to a file directly under the workspace and returns
// its absolute path.
func (w *Workspace) WriteFile(name string, data []byte) (string, error) {
	path := filepath.Join(w.Path, name)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s to workspace at %q: %w", name, path, err)
	}

	return path, nil
}

// Cleanup removes the workspace directory and everything beneath it.
func (w *Workspace) Cleanup() error {
	if w.Path == "" {
		return nil
	}

	if err := os.RemoveAll(w.Path); err != nil {
		return fmt.Errorf("failed to cleanup run workspace at %q: %w", w.Path, err)
	}

	return nil
}
