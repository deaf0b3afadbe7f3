package pkg

import "math"

// enum of flow regime
type Regime uint8

const (
	STANDARD Regime = iota
	REAL_TIME
)

func (r Regime) String() string {
	switch r {
	case STANDARD:
		return "standard"
	case REAL_TIME:
		return "real-time"
	default:
		return "unknown"
	}
}

func GetRegime(name string) (Regime, bool) {
	switch name {
	case "standard", "":
		return STANDARD, true
	case "real-time", "realtime", "real_time":
		return REAL_TIME, true
	default:
		return STANDARD, false
	}
}

const (
	INF_WEIGHT     float64 = 1e15
	INF_WEIGHT_INT         = 1 << 40

	// marks a node pair without a charge-feasible route in the route table.
	UNREACHABLE = -1

	SIMPLEX_TOLERANCE = 1e-9
	// rhs shift of the crash phase, relative to 1+|b_i|
	SIMPLEX_PERTURBATION = 1e-7
	PRESOLVE_PIVOT_TOL   = 1e-9
	MAX_DENSE_ENTRIES    = 50_000_000
	DEFAULT_HEAP_DEGREE  = 4
)

var (
	INF = math.Inf(1)
)
