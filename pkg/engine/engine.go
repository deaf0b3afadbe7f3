package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/lintang-b-s/amodpower/pkg/assembler"
	"github.com/lintang-b-s/amodpower/pkg/index"
	"github.com/lintang-b-s/amodpower/pkg/metrics"
	"github.com/lintang-b-s/amodpower/pkg/problem"
	"github.com/lintang-b-s/amodpower/pkg/routes"
	"github.com/lintang-b-s/amodpower/pkg/solver"
	"github.com/lintang-b-s/amodpower/pkg/util"
	"go.uber.org/zap"
)

type Options struct {
	RouteWorkers int
	Assembler    assembler.Options
}

// Engine owns everything built from one ProblemSpec: the route table, the index scheme and
// the assembled LP. it is read-only after NewEngine and can be solved any number of times.
type Engine struct {
	spec   *problem.ProblemSpec
	routes *routes.RouteTable
	scheme index.Scheme
	lp     *assembler.LinearProgram
	log    *zap.Logger
}

func (e *Engine) GetSpec() *problem.ProblemSpec {
	return e.spec
}

func (e *Engine) GetRoutes() *routes.RouteTable {
	return e.routes
}

func (e *Engine) GetScheme() index.Scheme {
	return e.scheme
}

func (e *Engine) GetLinearProgram() *assembler.LinearProgram {
	return e.lp
}

func NewEngine(ctx context.Context, spec *problem.ProblemSpec, logger *zap.Logger, opts Options) (*Engine, error) {
	metrics.RegisterDefault()

	logger.Info("Building charge-feasible routes...",
		zap.Int("nodes", spec.NumNodes()), zap.Int("edges", spec.NumEdges()), zap.Int("chargeLevels", spec.ChargeLevels()))
	start := time.Now()
	rt, err := routes.BuildRoutes(spec.Graph(), spec.ChargeLevels(), opts.RouteWorkers)
	if err != nil {
		return nil, err
	}
	metrics.StageDuration.WithLabelValues("routes").Observe(time.Since(start).Seconds())

	suspicious := rt.Suspicious()
	metrics.SuspiciousRoutes.Set(float64(len(suspicious)))
	for _, p := range suspicious {
		logger.Warn("route crosses a zero-capacity road link", zap.Int("from", p.From), zap.Int("to", p.To))
	}

	if sccs, n := spec.Graph().RunKosaraju(); n > 1 {
		logger.Warn("road graph is not strongly connected, vehicles can get stranded",
			zap.Int("components", n), zap.Int("componentOfNode1", int(sccs[0])))
	}

	if err := checkTripsReachable(spec, rt); err != nil {
		return nil, err
	}

	scheme, err := index.NewScheme(index.NewDims(spec), spec.Regime())
	if err != nil {
		return nil, err
	}
	logger.Info("Assembling linear program...", zap.String("regime", spec.Regime().String()),
		zap.Int("variables", scheme.StateSize()),
		zap.Int("equalityRows", scheme.NumEqualityRows()),
		zap.Int("inequalityRows", scheme.NumInequalityRows()))

	start = time.Now()
	lp, err := assembler.Assemble(ctx, spec, rt, scheme, opts.Assembler)
	if err != nil {
		return nil, err
	}
	metrics.StageDuration.WithLabelValues("assemble").Observe(time.Since(start).Seconds())

	nnz := lp.Aeq.NumNonzeros() + lp.Aineq.NumNonzeros()
	metrics.LPSize.WithLabelValues("variables").Set(float64(lp.NumVariables))
	metrics.LPSize.WithLabelValues("equality_rows").Set(float64(lp.NumEqualityRows()))
	metrics.LPSize.WithLabelValues("inequality_rows").Set(float64(lp.NumInequalityRows()))
	metrics.LPSize.WithLabelValues("nonzeros").Set(float64(nnz))
	metrics.LPSize.WithLabelValues("dead_variables").Set(float64(lp.Diagnostics.DeadVariables))
	logger.Sugar().Infof("Assembled LP with %d variables, %d nonzeros, %d dead variables",
		lp.NumVariables, nnz, lp.Diagnostics.DeadVariables)

	return &Engine{spec: spec, routes: rt, scheme: scheme, lp: lp, log: logger}, nil
}

// checkTripsReachable every customer trip needs a charge-feasible route to its sink.
func checkTripsReachable(spec *problem.ProblemSpec, rt *routes.RouteTable) error {
	for k := 1; k <= spec.NumSinks(); k++ {
		dest := spec.Sink(k).GetNode()
		for s := 1; s <= spec.NumSourcesPerSink(k); s++ {
			orig := spec.Source(k, s).GetNode()
			if _, err := rt.Time(orig, dest); err != nil {
				return util.WrapErrorf(err, util.ErrUnreachableRoute, "trip %d of sink %d", s, k)
			}
		}
	}
	return nil
}

// Assignment one nonzero decision variable of a solution.
type Assignment struct {
	Index int
	Tuple index.Tuple
	Value float64
}

type RelaxedTrip struct {
	Sink   int
	Source int
	Amount float64
}

type Solution struct {
	Result *solver.Result
	// Flow sum of every variable family, keyed by family name.
	Flow          map[string]float64
	Relaxed       []RelaxedTrip
	TotalRelaxed  float64
	Assignments   []Assignment
	ServedDemand  float64
	TotalDemand   float64
	FleetSize     float64
	ObjectiveCost float64
}

const solutionTol = 1e-7

// Solve runs s on the assembled LP and decodes the result. a non-optimal result is returned
// together with the solver error.
func (e *Engine) Solve(ctx context.Context, s solver.Solver) (*Solution, error) {
	start := time.Now()
	res, err := s.Solve(ctx, e.lp)
	metrics.StageDuration.WithLabelValues("solve").Observe(time.Since(start).Seconds())
	if res != nil {
		metrics.Solves.WithLabelValues(res.Status.String()).Inc()
	} else {
		metrics.Solves.WithLabelValues(solver.StatusError.String()).Inc()
	}
	if err != nil {
		var serr *solver.SolverError
		if errors.As(err, &serr) {
			e.log.Error("solver did not find an optimum", zap.String("status", serr.Status.String()),
				zap.String("diagnostics", serr.Diagnostics.Message))
		} else {
			e.log.Error("solver failed", zap.Error(err))
		}
		return &Solution{Result: res}, err
	}

	sol, err := e.decode(res)
	if err != nil {
		return nil, err
	}
	metrics.RelaxedDemand.Set(sol.TotalRelaxed)
	e.log.Info("Solved",
		zap.Float64("objective", res.Objective),
		zap.Duration("solveTime", res.SolveTime),
		zap.Float64("servedDemand", sol.ServedDemand),
		zap.Float64("relaxedDemand", sol.TotalRelaxed))
	return sol, nil
}

func (e *Engine) decode(res *solver.Result) (*Solution, error) {
	if len(res.X) != e.scheme.StateSize() {
		return nil, fmt.Errorf("solution has %d values, expected %d", len(res.X), e.scheme.StateSize())
	}
	sol := &Solution{
		Result:        res,
		Flow:          make(map[string]float64),
		Relaxed:       make([]RelaxedTrip, 0),
		Assignments:   make([]Assignment, 0),
		TotalDemand:   e.spec.TotalDemand(),
		FleetSize:     e.spec.FleetSize(),
		ObjectiveCost: res.Objective,
	}

	for _, seg := range e.scheme.Families() {
		r := seg.Range()
		sum := 0.0
		for idx := r.First; idx <= r.Last; idx++ {
			v := res.X[idx-1]
			sum += v
			if math.Abs(v) <= solutionTol {
				continue
			}
			tu, err := e.scheme.Decode(idx)
			if err != nil {
				return nil, err
			}
			sol.Assignments = append(sol.Assignments, Assignment{Index: idx, Tuple: tu, Value: v})
			if tu.Family == index.Relax {
				sol.Relaxed = append(sol.Relaxed, RelaxedTrip{Sink: tu.K, Source: tu.S, Amount: v})
				sol.TotalRelaxed += v
			}
		}
		sol.Flow[seg.Family.String()] = sum
	}
	sol.ServedDemand = sol.TotalDemand - sol.TotalRelaxed
	return sol, nil
}
