package pipeline

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/Faultbox/geovox/pkg/voxel"
)

// InputFailure records an input that could not be processed. The run
// continues with the remaining inputs.
type InputFailure struct {
	Path string
	Err  error
}

func (f InputFailure) Error() string {
	return fmt.Sprintf("%s: %v", f.Path, f.Err)
}

func (f InputFailure) Unwrap() error {
	return f.Err
}

// Report summarizes one pipeline operation.
type Report struct {
	RunID    string
	Inputs   int
	Failures []InputFailure
	Warnings []string

	// Grids holds the resolved grid per classified target.
	Grids map[string]voxel.Summary
	// Written counts records per dataset.
	Written map[string]int
}

func newReport(runID string) *Report {
	return &Report{
		RunID:   runID,
		Grids:   make(map[string]voxel.Summary),
		Written: make(map[string]int),
	}
}

func (r *Report) fail(path string, err error) {
	r.Failures = append(r.Failures, InputFailure{Path: path, Err: err})
}

func (r *Report) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Merge folds o into r.
func (r *Report) Merge(o *Report) {
	if o == nil {
		return
	}
	r.Inputs += o.Inputs
	r.Failures = append(r.Failures, o.Failures...)
	r.Warnings = append(r.Warnings, o.Warnings...)
	for k, v := range o.Grids {
		r.Grids[k] = v
	}
	for k, v := range o.Written {
		r.Written[k] += v
	}
}

// Err combines all input failures, or returns nil.
func (r *Report) Err() error {
	var err error
	for _, f := range r.Failures {
		err = multierr.Append(err, f)
	}
	return err
}

// Succeeded returns the number of inputs processed without failure.
func (r *Report) Succeeded() int {
	return r.Inputs - len(r.Failures)
}
