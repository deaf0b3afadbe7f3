package solver

import (
	"errors"
	"fmt"
	"math"

	"github.com/lintang-b-s/amodpower/pkg/assembler"
	"gonum.org/v1/gonum/mat"
)

var (
	errTrivialInfeasible = errors.New("presolve: constraint cannot be satisfied")
	errTrivialUnbounded  = errors.New("presolve: negative cost column without constraints")
	errFreeVariable      = errors.New("presolve: variables without a finite lower bound are not supported")
	errTooLarge          = errors.New("presolve: standard form exceeds the dense size limit")
)

type sfRow struct {
	cols []int
	vals []float64
	b    float64
}

// standardForm is
//
//	min c·y  s.t.  A·y = b,  y >= 0
//
// with x = lo + y on the kept columns, one slack per inequality and per finite upper bound.
type standardForm struct {
	c []float64
	a *mat.Dense
	b []float64

	// colOf[j] is the standard form column of lp variable j, -1 when presolve fixed it to lower[j]
	colOf []int
	lower []float64

	diag Diagnostics
}

// recover maps a standard form solution back onto the lp variables.
func (sf *standardForm) recover(y []float64, tol float64) []float64 {
	x := make([]float64, len(sf.colOf))
	for j, col := range sf.colOf {
		x[j] = sf.lower[j]
		if col >= 0 {
			x[j] += y[col]
		}
		if math.Abs(x[j]) < tol {
			x[j] = 0
		}
	}
	return x
}

type presolver struct {
	lp              *assembler.LinearProgram
	tol             float64
	pivotTol        float64
	maxDenseEntries int
}

// build converts lp to standard form. errTrivialInfeasible / errTrivialUnbounded are returned
// when presolve alone decides the outcome.
func (p *presolver) build() (*standardForm, error) {
	lp := p.lp
	n := lp.NumVariables
	diag := Diagnostics{}

	fixed := make([]bool, n)
	for j := 0; j < n; j++ {
		if math.IsInf(lp.Lower[j], -1) {
			return nil, errFreeVariable
		}
		if !math.IsInf(lp.Upper[j], 1) {
			if lp.Upper[j] < lp.Lower[j]-p.tol {
				return nil, fmt.Errorf("%w: variable %d has upper bound below lower bound", errTrivialInfeasible, j+1)
			}
			if lp.Upper[j]-lp.Lower[j] <= p.tol {
				fixed[j] = true
				diag.FixedColumns++
			}
		}
	}

	// restrict a constraint matrix to the free columns, moving lower bounds into the rhs
	restrict := func(cols []int, vals []float64, b float64) sfRow {
		row := sfRow{b: b}
		for k, j := range cols {
			row.b -= vals[k] * lp.Lower[j]
			if fixed[j] {
				continue
			}
			row.cols = append(row.cols, j)
			row.vals = append(row.vals, vals[k])
		}
		return row
	}

	eqRows := make([]sfRow, 0, lp.NumEqualityRows())
	for i := 0; i < lp.NumEqualityRows(); i++ {
		cols, vals := lp.Aeq.Row(i)
		row := restrict(cols, vals, lp.Beq[i])
		if len(row.cols) == 0 {
			if math.Abs(row.b) > p.tol {
				return nil, fmt.Errorf("%w: equality row %d reads 0 = %g", errTrivialInfeasible, i+1, row.b)
			}
			diag.DroppedZeroRows++
			continue
		}
		eqRows = append(eqRows, row)
	}

	inRows := make([]sfRow, 0, lp.NumInequalityRows())
	for i := 0; i < lp.NumInequalityRows(); i++ {
		cols, vals := lp.Aineq.Row(i)
		row := restrict(cols, vals, lp.Bineq[i])
		if len(row.cols) == 0 {
			if row.b < -p.tol {
				return nil, fmt.Errorf("%w: inequality row %d reads 0 <= %g", errTrivialInfeasible, i+1, row.b)
			}
			diag.DroppedZeroRows++
			continue
		}
		inRows = append(inRows, row)
	}

	used := make([]bool, n)
	for _, rows := range [][]sfRow{eqRows, inRows} {
		for _, row := range rows {
			for _, j := range row.cols {
				used[j] = true
			}
		}
	}

	colOf := make([]int, n)
	kept := 0
	for j := 0; j < n; j++ {
		colOf[j] = -1
		if fixed[j] {
			continue
		}
		if !used[j] && math.IsInf(lp.Upper[j], 1) {
			if lp.Cost[j] < -p.tol {
				return nil, fmt.Errorf("%w: variable %d", errTrivialUnbounded, j+1)
			}
			diag.DroppedZeroColumns++
			continue
		}
		colOf[j] = kept
		kept++
	}

	if len(eqRows)*kept > p.maxDenseEntries {
		return nil, fmt.Errorf("%w: %d equality rows x %d columns", errTooLarge, len(eqRows), kept)
	}
	eqRows, dropped, err := p.dropDependentRows(eqRows, colOf, kept)
	if err != nil {
		return nil, err
	}
	diag.DroppedDependentRows = dropped

	// bounded columns get y_j + s = upper - lower
	ubRows := make([]sfRow, 0)
	for j := 0; j < n; j++ {
		if colOf[j] >= 0 && !math.IsInf(lp.Upper[j], 1) {
			ubRows = append(ubRows, sfRow{cols: []int{j}, vals: []float64{1}, b: lp.Upper[j] - lp.Lower[j]})
		}
	}

	m := len(eqRows) + len(inRows) + len(ubRows)
	cols := kept + len(inRows) + len(ubRows)
	if m*cols > p.maxDenseEntries {
		return nil, fmt.Errorf("%w: %d rows x %d columns", errTooLarge, m, cols)
	}

	sf := &standardForm{
		c:     make([]float64, cols),
		b:     make([]float64, m),
		colOf: colOf,
		lower: lp.Lower,
	}
	for j := 0; j < n; j++ {
		if colOf[j] >= 0 {
			sf.c[colOf[j]] = lp.Cost[j]
		}
	}

	if m == 0 {
		diag.Columns = cols
		sf.diag = diag
		return sf, nil
	}

	a := mat.NewDense(m, cols, nil)
	r := 0
	slack := kept
	put := func(row sfRow, withSlack bool) {
		sign := 1.0
		if row.b < 0 {
			sign = -1
			diag.FlippedRows++
		}
		for k, j := range row.cols {
			a.Set(r, colOf[j], sign*row.vals[k])
		}
		if withSlack {
			a.Set(r, slack, sign)
			slack++
		}
		sf.b[r] = sign * row.b
		r++
	}
	for _, row := range eqRows {
		put(row, false)
	}
	for _, row := range inRows {
		put(row, true)
	}
	for _, row := range ubRows {
		put(row, true)
	}

	diag.Rows, diag.Columns = m, cols
	sf.a = a
	sf.diag = diag
	return sf, nil
}

// dropDependentRows forward gaussian elimination over the equality rows. a row that reduces to
// zero is redundant if its rhs reduces to zero too, otherwise the system is inconsistent.
func (p *presolver) dropDependentRows(rows []sfRow, colOf []int, kept int) ([]sfRow, int, error) {
	type basisRow struct {
		v     []float64
		b     float64
		pivot int
	}
	basis := make([]basisRow, 0, len(rows))
	out := make([]sfRow, 0, len(rows))
	dropped := 0

	for i, row := range rows {
		v := make([]float64, kept)
		scale := 0.0
		for k, j := range row.cols {
			v[colOf[j]] += row.vals[k]
			scale = math.Max(scale, math.Abs(row.vals[k]))
		}
		rhs := row.b

		for _, br := range basis {
			f := v[br.pivot]
			if f == 0 {
				continue
			}
			for c, x := range br.v {
				if x != 0 {
					v[c] -= f * x
				}
			}
			rhs -= f * br.b
		}

		pivot, best := -1, p.pivotTol*(1+scale)
		for c, x := range v {
			if math.Abs(x) > best {
				pivot, best = c, math.Abs(x)
			}
		}
		if pivot < 0 {
			if math.Abs(rhs) > p.tol*(1+math.Abs(row.b)) {
				return nil, 0, fmt.Errorf("%w: equality row %d contradicts the rows before it", errTrivialInfeasible, i+1)
			}
			dropped++
			continue
		}

		inv := 1 / v[pivot]
		for c := range v {
			v[c] *= inv
		}
		basis = append(basis, basisRow{v: v, b: rhs * inv, pivot: pivot})
		out = append(out, row)
	}
	return out, dropped, nil
}
