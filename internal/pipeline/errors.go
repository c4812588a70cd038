package pipeline

import "fmt"

// StepError is the canonical error for a failed pipeline step. The run
// aborts at the first one; there is no retry.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
