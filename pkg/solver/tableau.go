package solver

import (
	"context"
	"errors"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	errPhaseOneInfeasible = errors.New("simplex: phase one left artificial mass in the basis")
	errUnboundedRay       = errors.New("simplex: entering column has no positive entry")
	errIterationLimit     = errors.New("simplex: iteration limit reached")
	errDependentRow       = errors.New("simplex: row kept an artificial basic column")
	errBreakdown          = errors.New("simplex: phase one found a ray")
)

const (
	// pivots between two context checks
	ctxCheckEvery = 64
	// entries at or below this are never chosen as a pivot
	tableauPivotTol = 1e-9
	// seed of the rhs perturbation, fixed so solves are reproducible
	perturbSeed = 1
	// artificial mass above phaseOneTol*(1+max b), plus the perturbation, means infeasible
	phaseOneTol = 1e-6
)

// tableau is the dense simplex tableau of [A | I]·(y, a) = b over a standard form, one
// artificial column a_i per row. artificials start basic and never re-enter once they leave.
type tableau struct {
	m, n  int
	t     *mat.Dense
	rhs   []float64
	basis []int
	basic []bool
	// reduced costs of the artificial sum and of c over all n+m columns
	phase1 []float64
	phase2 []float64
	// rows whose artificial could not be driven out
	dead []bool

	tol     float64
	maxIter int
	iter    int
}

// newTableau loads sf with the rhs b_i + delta*(1+|b_i|)*u_i, u_i drawn from [0.5, 1).
func newTableau(sf *standardForm, delta, tol float64, maxIter int) *tableau {
	m, n := sf.a.Dims()
	tb := &tableau{
		m:       m,
		n:       n,
		t:       mat.NewDense(m, n+m, nil),
		rhs:     make([]float64, m),
		basis:   make([]int, m),
		basic:   make([]bool, n+m),
		phase1:  make([]float64, n+m),
		phase2:  make([]float64, n+m),
		dead:    make([]bool, m),
		tol:     tol,
		maxIter: maxIter,
	}

	rng := rand.New(rand.NewSource(perturbSeed))
	for i := 0; i < m; i++ {
		row := tb.t.RawRowView(i)
		mat.Row(row[:n], i, sf.a)
		row[n+i] = 1
		floats.Sub(tb.phase1[:n], row[:n])

		tb.rhs[i] = sf.b[i]
		if delta > 0 {
			tb.rhs[i] += delta * (1 + math.Abs(sf.b[i])) * (0.5 + 0.5*rng.Float64())
		}
		tb.basis[i] = n + i
		tb.basic[n+i] = true
	}
	copy(tb.phase2, sf.c)
	return tb
}

// pivot makes column q basic in row r.
func (tb *tableau) pivot(r, q int) {
	row := tb.t.RawRowView(r)
	p := row[q]
	floats.Scale(1/p, row)
	row[q] = 1
	tb.rhs[r] /= p

	for i := 0; i < tb.m; i++ {
		if i == r {
			continue
		}
		other := tb.t.RawRowView(i)
		f := other[q]
		if f == 0 {
			continue
		}
		floats.AddScaled(other, -f, row)
		other[q] = 0
		tb.rhs[i] -= f * tb.rhs[r]
		if tb.rhs[i] < 0 && tb.rhs[i] > -tb.tol {
			tb.rhs[i] = 0
		}
	}
	for _, d := range [][]float64{tb.phase1, tb.phase2} {
		if f := d[q]; f != 0 {
			floats.AddScaled(d, -f, row)
			d[q] = 0
		}
	}

	tb.basic[tb.basis[r]] = false
	tb.basic[q] = true
	tb.basis[r] = q
	tb.iter++
}

// price returns the entering structural column, -1 when d has no negative reduced cost.
// bland picks the lowest index instead of the steepest one.
func (tb *tableau) price(d []float64, bland bool) int {
	q, best := -1, -tb.tol
	for j := 0; j < tb.n; j++ {
		if tb.basic[j] || d[j] >= best {
			continue
		}
		if bland {
			return j
		}
		q, best = j, d[j]
	}
	return q
}

// ratio is the leaving row for column q, -1 when the column is unbounded. ties go to the
// larger pivot, or to the lowest basic index under bland.
func (tb *tableau) ratio(q int, bland bool) int {
	r, best := -1, math.Inf(1)
	for i := 0; i < tb.m; i++ {
		if tb.dead[i] {
			continue
		}
		a := tb.t.At(i, q)
		if a <= tableauPivotTol {
			continue
		}
		v := math.Max(tb.rhs[i], 0) / a
		switch {
		case r < 0 || v < best-tb.tol:
			r, best = i, v
		case v <= best+tb.tol:
			if bland {
				if tb.basis[i] < tb.basis[r] {
					r = i
				}
			} else if a > tb.t.At(r, q) {
				r = i
			}
			best = math.Min(best, v)
		}
	}
	return r
}

// optimize runs primal simplex on the reduced costs d until no column prices out. after m
// degenerate pivots in a row it switches to bland until a pivot makes progress.
func (tb *tableau) optimize(ctx context.Context, d []float64) error {
	degenerate := 0
	for {
		if tb.iter%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		bland := degenerate > tb.m
		q := tb.price(d, bland)
		if q < 0 {
			return nil
		}
		if tb.iter >= tb.maxIter {
			return errIterationLimit
		}
		r := tb.ratio(q, bland)
		if r < 0 {
			return errUnboundedRay
		}
		if tb.rhs[r] <= tb.tol {
			degenerate++
		} else {
			degenerate = 0
		}
		tb.pivot(r, q)
	}
}

// infeasibility is the artificial mass still in the basis.
func (tb *tableau) infeasibility() float64 {
	s := 0.0
	for i, j := range tb.basis {
		if j >= tb.n {
			s += math.Max(tb.rhs[i], 0)
		}
	}
	return s
}

// driveOut pivots every basic artificial out on its largest structural entry. a row with no
// such entry is redundant and is marked dead.
func (tb *tableau) driveOut() {
	for i, j := range tb.basis {
		if j < tb.n {
			continue
		}
		row := tb.t.RawRowView(i)
		q, best := -1, tableauPivotTol
		for c := 0; c < tb.n; c++ {
			if !tb.basic[c] && math.Abs(row[c]) > best {
				q, best = c, math.Abs(row[c])
			}
		}
		if q < 0 {
			tb.dead[i] = true
			continue
		}
		tb.pivot(i, q)
	}
}

// crashBasis runs both simplex phases on the perturbed tableau and returns the optimal basis,
// one structural column per row.
func crashBasis(ctx context.Context, sf *standardForm, delta, tol float64, maxIter int) ([]int, error) {
	tb := newTableau(sf, delta, tol, maxIter)

	if err := tb.optimize(ctx, tb.phase1); err != nil {
		if errors.Is(err, errUnboundedRay) {
			// phase one is bounded below by zero
			return nil, errBreakdown
		}
		return nil, err
	}

	slack := 0.0
	for i := range sf.b {
		slack += delta * (1 + math.Abs(sf.b[i]))
	}
	if tb.infeasibility() > phaseOneTol*(1+floats.Max(sf.b))+slack {
		return nil, errPhaseOneInfeasible
	}

	tb.driveOut()
	for _, dead := range tb.dead {
		if dead {
			return nil, errDependentRow
		}
	}

	if err := tb.optimize(ctx, tb.phase2); err != nil {
		return nil, err
	}
	return tb.basis, nil
}
