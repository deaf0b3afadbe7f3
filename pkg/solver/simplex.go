package solver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/lintang-b-s/amodpower/pkg"
	"github.com/lintang-b-s/amodpower/pkg/assembler"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

var errBasisInfeasible = errors.New("simplex: crash basis is infeasible on the unperturbed rhs")

const (
	// gonum rejects a warm basis with a basic value below -lpWarmTol
	lpWarmTol = 1e-13
	// default crash pivot cap per row plus column
	iterationsPerDim = 50
)

type SimplexOptions struct {
	Tolerance       float64
	MaxDenseEntries int
	// Perturbation scales the rhs shift of the crash phase, 0 crashes on the exact rhs.
	Perturbation float64
	// MaxIterations caps crash pivots, 0 means 50 per row plus column.
	MaxIterations int
	// Timeout bounds one Solve call, 0 means only the caller's context applies.
	Timeout time.Duration
}

func DefaultSimplexOptions() SimplexOptions {
	return SimplexOptions{
		Tolerance:       pkg.SIMPLEX_TOLERANCE,
		MaxDenseEntries: pkg.MAX_DENSE_ENTRIES,
		Perturbation:    pkg.SIMPLEX_PERTURBATION,
	}
}

// SimplexSolver brings the LP to full row rank standard form, crashes an optimal basis with a
// perturbed dense tableau and lets the simplex method of gonum finish from that basis.
type SimplexSolver struct {
	opts    SimplexOptions
	running sync.WaitGroup
}

func NewSimplexSolver(opts SimplexOptions) *SimplexSolver {
	if opts.Tolerance <= 0 {
		opts.Tolerance = pkg.SIMPLEX_TOLERANCE
	}
	if opts.MaxDenseEntries <= 0 {
		opts.MaxDenseEntries = pkg.MAX_DENSE_ENTRIES
	}
	if opts.Perturbation < 0 {
		opts.Perturbation = 0
	}
	return &SimplexSolver{opts: opts}
}

// Wait blocks until every simplex goroutine started by Solve has returned, including those
// whose Solve call already gave up on its context.
func (s *SimplexSolver) Wait() {
	s.running.Wait()
}

type simplexOutcome struct {
	x   []float64
	err error
}

func (s *SimplexSolver) Solve(ctx context.Context, program *assembler.LinearProgram) (*Result, error) {
	start := time.Now()
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	fail := func(status Status, diag Diagnostics, err error) (*Result, error) {
		res := &Result{Status: status, SolveTime: time.Since(start), Diagnostics: diag}
		serr := newSolverError(status, diag, err)
		res.Diagnostics = serr.Diagnostics
		return res, serr
	}

	pre := &presolver{
		lp:              program,
		tol:             s.opts.Tolerance,
		pivotTol:        pkg.PRESOLVE_PIVOT_TOL,
		maxDenseEntries: s.opts.MaxDenseEntries,
	}
	sf, err := pre.build()
	switch {
	case errors.Is(err, errTrivialInfeasible):
		return fail(StatusInfeasible, Diagnostics{}, err)
	case errors.Is(err, errTrivialUnbounded):
		return fail(StatusUnbounded, Diagnostics{}, err)
	case err != nil:
		return fail(StatusError, Diagnostics{}, err)
	}

	if err := ctx.Err(); err != nil {
		return fail(StatusError, sf.diag, err)
	}

	y := make([]float64, len(sf.c))
	if len(sf.b) > 0 {
		done := make(chan simplexOutcome, 1)
		s.running.Add(1)
		go func() {
			defer s.running.Done()
			defer func() {
				if r := recover(); r != nil {
					done <- simplexOutcome{err: fmt.Errorf("simplex panicked: %v", r)}
				}
			}()
			x, err := s.solveStandard(ctx, sf)
			done <- simplexOutcome{x: x, err: err}
		}()

		select {
		case <-ctx.Done():
			// the crash phase notices ctx within ctxCheckEvery pivots, a gonum finish runs to completion
			return fail(StatusError, sf.diag, ctx.Err())
		case out := <-done:
			switch {
			case errors.Is(out.err, lp.ErrInfeasible), errors.Is(out.err, errPhaseOneInfeasible):
				return fail(StatusInfeasible, sf.diag, out.err)
			case errors.Is(out.err, lp.ErrUnbounded), errors.Is(out.err, errUnboundedRay):
				return fail(StatusUnbounded, sf.diag, out.err)
			case out.err != nil:
				return fail(StatusError, sf.diag, out.err)
			}
			y = out.x
		}
	}

	x := sf.recover(y, s.opts.Tolerance)
	return &Result{
		X:           x,
		Objective:   program.Objective(x),
		SolveTime:   time.Since(start),
		Status:      StatusOptimal,
		Diagnostics: sf.diag,
	}, nil
}

// solveStandard crashes a basis on the perturbed rhs and warm starts gonum from it. a basis
// that the perturbation made infeasible for the exact rhs is crashed again without it.
func (s *SimplexSolver) solveStandard(ctx context.Context, sf *standardForm) ([]float64, error) {
	m, n := sf.a.Dims()
	maxIter := s.opts.MaxIterations
	if maxIter <= 0 {
		maxIter = iterationsPerDim * (m + n)
	}

	deltas := []float64{s.opts.Perturbation}
	if s.opts.Perturbation > 0 {
		deltas = append(deltas, 0)
	}

	var err error
	for _, delta := range deltas {
		var basis []int
		basis, err = crashBasis(ctx, sf, delta, s.opts.Tolerance, maxIter)
		if errors.Is(err, errDependentRow) {
			// presolve kept a redundant row, gonum finds its own basis
			_, y, err := lp.Simplex(sf.c, sf.a, sf.b, s.opts.Tolerance, nil)
			return y, err
		}
		if err != nil {
			return nil, err
		}

		var y []float64
		y, err = warmStart(sf, basis, s.opts.Tolerance)
		if errors.Is(err, errBasisInfeasible) {
			continue
		}
		return y, err
	}
	return nil, err
}

// warmStart solves A_B x_B = b for the crash basis. gonum finishes from a basis it accepts as
// feasible, a basis within tol of feasible is used as it stands.
func warmStart(sf *standardForm, basis []int, tol float64) ([]float64, error) {
	m, n := sf.a.Dims()
	ab := mat.NewDense(m, m, nil)
	col := make([]float64, m)
	for i, j := range basis {
		mat.Col(col, j, sf.a)
		ab.SetCol(i, col)
	}

	var xb mat.VecDense
	if err := xb.SolveVec(ab, mat.NewVecDense(m, sf.b)); err != nil {
		return nil, fmt.Errorf("%w: %v", errBasisInfeasible, err)
	}
	low := mat.Min(&xb)
	if low < -tol*(1+floats.Max(sf.b)) {
		return nil, errBasisInfeasible
	}
	if low >= -lpWarmTol {
		return warmSimplex(sf, basis, tol)
	}

	y := make([]float64, n)
	for i, j := range basis {
		y[j] = math.Max(xb.AtVec(i), 0)
	}
	return y, nil
}

func warmSimplex(sf *standardForm, basis []int, tol float64) (y []float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			y, err = nil, fmt.Errorf("%w: %v", errBasisInfeasible, r)
		}
	}()
	_, y, err = lp.Simplex(sf.c, sf.a, sf.b, tol, basis)
	return y, err
}
