package solver

import (
	"context"
	"fmt"
	"time"

	"github.com/lintang-b-s/amodpower/pkg/assembler"
	"github.com/lintang-b-s/amodpower/pkg/util"
)

// Solver is anything that can minimise an assembled LinearProgram.
type Solver interface {
	Solve(ctx context.Context, lp *assembler.LinearProgram) (*Result, error)
}

type Status uint8

const (
	StatusOptimal Status = iota
	StatusInfeasible
	StatusUnbounded
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusInfeasible:
		return "infeasible"
	case StatusUnbounded:
		return "unbounded"
	default:
		return "error"
	}
}

// Diagnostics what presolve did and the size of the problem handed to the simplex.
type Diagnostics struct {
	Rows                 int
	Columns              int
	FixedColumns         int
	DroppedZeroRows      int
	DroppedZeroColumns   int
	DroppedDependentRows int
	FlippedRows          int
	Message              string
}

type Result struct {
	X           []float64 // len lp.NumVariables, empty unless Status is optimal
	Objective   float64
	SolveTime   time.Duration
	Status      Status
	Diagnostics Diagnostics
}

// SolverError every non-optimal outcome. matches util.ErrSolver and the underlying cause.
type SolverError struct {
	Status      Status
	Diagnostics Diagnostics
	Err         error
}

func (e *SolverError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("solver: %s: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("solver: %s: %s", e.Status, e.Diagnostics.Message)
}

func (e *SolverError) Unwrap() []error {
	errs := []error{util.ErrSolver}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func newSolverError(status Status, diag Diagnostics, err error) *SolverError {
	if err != nil && diag.Message == "" {
		diag.Message = err.Error()
	}
	return &SolverError{Status: status, Diagnostics: diag, Err: err}
}
