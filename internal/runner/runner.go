// Package runner resolves pipeline unit code and executes unit entry points
// as external processes. A unit is opaque to the driver: the only contract
// is its manifest, its command line, and its exit code.
package runner

import "context"

// Location points at a unit's code. Remote units name a repository archive
// (Repo and Ref, with an optional Subdir inside it); local units name a
// directory shipped next to the pipeline config.
type Location struct {
	Repo   string
	Subdir string
	Ref    string
	Path   string
}

// Remote reports whether the unit has to be fetched before it can run.
func (l Location) Remote() bool {
	return l.Repo != ""
}

// Submission is one unit invocation: where the code lives, which entry
// point to run, the fully resolved parameter record, and the extra
// environment the child process receives. WorkDir is the scoped workspace
// of the run; remote unit code is unpacked beneath it so it disappears
// with the run.
type Submission struct {
	Step       string
	Location   Location
	EntryPoint string
	Params     map[string]string
	Env        map[string]string
	WorkDir    string
}

// Runner executes a single unit submission, blocking until the unit exits.
type Runner interface {
	Run(ctx context.Context, sub Submission) error
}
