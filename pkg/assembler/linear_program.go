package assembler

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	da "github.com/lintang-b-s/amodpower/pkg/datastructure"
)

// LinearProgram
//
//	min  Cost·x
//	s.t. Aeq·x = Beq
//	     Aineq·x <= Bineq
//	     Lower <= x <= Upper
//
// rows and columns are 0-based: column idx-1 holds decision variable idx of the index scheme.
type LinearProgram struct {
	NumVariables int
	Cost         []float64
	Aeq          *da.SparseMatrix[float64]
	Beq          []float64
	Aineq        *da.SparseMatrix[float64]
	Bineq        []float64
	Lower        []float64
	Upper        []float64

	Diagnostics Diagnostics
}

type Diagnostics struct {
	FamilyNonzeros map[string]int // constraint entries produced per variable family
	DeadVariables  int            // variables fixed to zero because their transition leaves the network
	EqualityRows   int
	InequalityRows int
}

func (lp *LinearProgram) NumEqualityRows() int {
	return len(lp.Beq)
}

func (lp *LinearProgram) NumInequalityRows() int {
	return len(lp.Bineq)
}

func (lp *LinearProgram) Objective(x []float64) float64 {
	obj := 0.0
	for j, c := range lp.Cost {
		obj += c * x[j]
	}
	return obj
}

// MaxViolation largest violation of any equality, inequality or bound at x.
func (lp *LinearProgram) MaxViolation(x []float64) float64 {
	worst := 0.0
	for i, v := range lp.Aeq.MulVec(x) {
		worst = math.Max(worst, math.Abs(v-lp.Beq[i]))
	}
	for i, v := range lp.Aineq.MulVec(x) {
		worst = math.Max(worst, v-lp.Bineq[i])
	}
	for j, v := range x {
		worst = math.Max(worst, lp.Lower[j]-v)
		if !math.IsInf(lp.Upper[j], 1) {
			worst = math.Max(worst, v-lp.Upper[j])
		}
	}
	return worst
}

// WriteMatrices exports Aeq and Aineq as bzip2 compressed CRS files into dir.
func (lp *LinearProgram) WriteMatrices(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := lp.Aeq.WriteToFile(filepath.Join(dir, "aeq.crs.bz2")); err != nil {
		return fmt.Errorf("write equality matrix: %w", err)
	}
	if err := lp.Aineq.WriteToFile(filepath.Join(dir, "aineq.crs.bz2")); err != nil {
		return fmt.Errorf("write inequality matrix: %w", err)
	}
	return nil
}
