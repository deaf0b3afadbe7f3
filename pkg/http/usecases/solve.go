package usecases

import (
	"context"
	"fmt"

	"github.com/lintang-b-s/amodpower/pkg/engine"
	"github.com/lintang-b-s/amodpower/pkg/problem"
	"github.com/lintang-b-s/amodpower/pkg/solver"
	"github.com/lintang-b-s/amodpower/pkg/util"
	"go.uber.org/zap"
)

// jobSolver is a solver whose background work can be waited on after Solve returns.
type jobSolver interface {
	solver.Solver
	Wait()
}

type SolveService struct {
	log          *zap.Logger
	solverOpts   solver.SimplexOptions
	routeWorkers int
	slots        chan struct{}
	newSolver    func(opts solver.SimplexOptions) jobSolver
}

// NewSolveService at most maxConcurrent solves run at once, further requests wait for a slot.
func NewSolveService(log *zap.Logger, solverOpts solver.SimplexOptions, routeWorkers, maxConcurrent int) *SolveService {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &SolveService{
		log:          log,
		solverOpts:   solverOpts,
		routeWorkers: routeWorkers,
		slots:        make(chan struct{}, maxConcurrent),
		newSolver: func(opts solver.SimplexOptions) jobSolver {
			return solver.NewSimplexSolver(opts)
		},
	}
}

func (ss *SolveService) Solve(ctx context.Context, jobID string, cfg *problem.ProblemConfig) (*engine.Solution, error) {
	spec, err := problem.NewProblemSpec(cfg)
	if err != nil {
		return nil, err
	}

	select {
	case ss.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, util.WrapErrorf(ctx.Err(), util.ErrInternalServerError, "job %s: waiting for a solver slot", jobID)
	}

	log := ss.log.With(zap.String("job", jobID))
	e, err := engine.NewEngine(ctx, spec, log, engine.Options{RouteWorkers: ss.routeWorkers})
	if err != nil {
		<-ss.slots
		return nil, err
	}

	s := ss.newSolver(ss.solverOpts)
	defer ss.releaseAfter(s)

	sol, err := e.Solve(ctx, s)
	if err != nil {
		return nil, fmt.Errorf("job %s: %w", jobID, err)
	}
	return sol, nil
}

// releaseAfter frees the slot once s has no goroutine left, a timed out Solve may return before that.
func (ss *SolveService) releaseAfter(s jobSolver) {
	go func() {
		s.Wait()
		<-ss.slots
	}()
}
