package usecases

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/lintang-b-s/amodpower/pkg/assembler"
	"github.com/lintang-b-s/amodpower/pkg/problem"
	"github.com/lintang-b-s/amodpower/pkg/solver"
	"github.com/lintang-b-s/amodpower/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func twoNodeConfig() *problem.ProblemConfig {
	cfg := problem.NewProblemConfig()
	cfg.NumNodes = 2
	cfg.Horizon = 2
	cfg.ChargeLevels = 1
	cfg.Edges = []problem.EdgeConfig{{From: 1, To: 2, TravelTime: 1, Capacity: 5}}
	cfg.Sinks = []problem.SinkConfig{{Node: 2, Sources: []problem.SourceConfig{{Node: 1, StartTime: 1, Demand: 1}}}}
	cfg.InitialVehicles = []problem.VehicleConfig{{Node: 1, Charge: 1, Count: 1}}
	return cfg
}

// stuckSolver gives up on ctx but leaves a goroutine running until release is closed.
type stuckSolver struct {
	started chan struct{}
	release chan struct{}
	wg      sync.WaitGroup
}

func (s *stuckSolver) Solve(ctx context.Context, _ *assembler.LinearProgram) (*solver.Result, error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		close(s.started)
		<-s.release
	}()
	<-ctx.Done()
	return nil, ctx.Err()
}

func (s *stuckSolver) Wait() {
	s.wg.Wait()
}

func TestSolveHoldsSlotUntilSolverExits(t *testing.T) {
	baseline := runtime.NumGoroutine()

	stuck := &stuckSolver{started: make(chan struct{}), release: make(chan struct{})}
	ss := NewSolveService(zap.NewNop(), solver.DefaultSimplexOptions(), 1, 1)
	ss.newSolver = func(solver.SimplexOptions) jobSolver { return stuck }

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := ss.Solve(ctx, "job-1", twoNodeConfig())
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	<-stuck.started

	assert.Len(t, ss.slots, 1)

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer waitCancel()
	_, err = ss.Solve(waitCtx, "job-2", twoNodeConfig())
	require.Error(t, err)
	assert.True(t, errors.Is(err, util.ErrInternalServerError))

	close(stuck.release)
	require.Eventually(t, func() bool {
		return len(ss.slots) == 0
	}, time.Second, time.Millisecond)
	require.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= baseline
	}, 5*time.Second, 10*time.Millisecond)
}

func TestSolveReleasesSlot(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(cfg *problem.ProblemConfig)
		wantErr error
		wantObj float64
	}{
		{
			name:    "optimal",
			mutate:  func(cfg *problem.ProblemConfig) {},
			wantObj: 1,
		},
		{
			name:    "infeasible",
			mutate:  func(cfg *problem.ProblemConfig) { cfg.InitialVehicles = nil },
			wantErr: util.ErrSolver,
		},
		{
			name:    "unreachable trip",
			mutate:  func(cfg *problem.ProblemConfig) { cfg.Sinks[0].Node, cfg.Sinks[0].Sources[0].Node = 1, 2 },
			wantErr: util.ErrUnreachableRoute,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ss := NewSolveService(zap.NewNop(), solver.DefaultSimplexOptions(), 1, 1)
			cfg := twoNodeConfig()
			tc.mutate(cfg)

			sol, err := ss.Solve(context.Background(), "job", cfg)
			if tc.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tc.wantErr))
			} else {
				require.NoError(t, err)
				assert.InDelta(t, tc.wantObj, sol.ObjectiveCost, 1e-7)
			}

			require.Eventually(t, func() bool {
				return len(ss.slots) == 0
			}, time.Second, time.Millisecond)
		})
	}
}
