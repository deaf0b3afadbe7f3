package assembler

import (
	"context"
	"math"
	"testing"

	"github.com/lintang-b-s/amodpower/pkg"
	"github.com/lintang-b-s/amodpower/pkg/index"
	"github.com/lintang-b-s/amodpower/pkg/problem"
	"github.com/lintang-b-s/amodpower/pkg/routes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// two nodes A=1, B=2, one link A->B taking one step, one trip A->B at t=1, one vehicle at A.
func twoNodeConfig(regime string) *problem.ProblemConfig {
	cfg := problem.NewProblemConfig()
	cfg.NumNodes = 2
	cfg.Horizon = 2
	cfg.ChargeLevels = 1
	cfg.Regime = regime
	cfg.Edges = []problem.EdgeConfig{{From: 1, To: 2, TravelTime: 1, Capacity: 5}}
	cfg.Sinks = []problem.SinkConfig{{Node: 2, Sources: []problem.SourceConfig{{Node: 1, StartTime: 1, Demand: 1}}}}
	cfg.InitialVehicles = []problem.VehicleConfig{{Node: 1, Charge: 1, Count: 1}}
	return cfg
}

func assemble(t *testing.T, cfg *problem.ProblemConfig, opts Options) (*LinearProgram, index.Scheme) {
	spec, err := problem.NewProblemSpec(cfg)
	require.NoError(t, err)
	rt, err := routes.BuildRoutes(spec.Graph(), spec.ChargeLevels(), 1)
	require.NoError(t, err)
	scheme, err := index.NewScheme(index.NewDims(spec), spec.Regime())
	require.NoError(t, err)

	lp, err := Assemble(context.Background(), spec, rt, scheme, opts)
	require.NoError(t, err)
	return lp, scheme
}

func TestAssembleStandardTwoNode(t *testing.T) {
	lp, scheme := assemble(t, twoNodeConfig("standard"), Options{})

	// x1 pax(1) x2 pax(2) x3 reb(1) x4 reb(2) x5 source x6 sink(1) x7 sink(2) x8 end(A) x9 end(B)
	require.Equal(t, 9, lp.NumVariables)
	inf := math.Inf(1)
	assert.Equal(t, []float64{inf, 0, inf, 0, inf, inf, inf, inf, inf}, lp.Upper)
	assert.Equal(t, []float64{1, 1, 1, 1, 0, 0, 0, 0, 0}, lp.Cost)
	assert.Equal(t, 2, lp.Diagnostics.DeadVariables)

	require.Equal(t, 10, lp.NumEqualityRows())
	require.Equal(t, 2, lp.NumInequalityRows())

	paxA1, err := scheme.PaxConservationRow(1, 1, 1, 1)
	require.NoError(t, err)
	paxB2, err := scheme.PaxConservationRow(2, 1, 1, 2)
	require.NoError(t, err)
	rebA1, err := scheme.RebConservationRow(1, 1, 1)
	require.NoError(t, err)

	assert.Equal(t, 1.0, lp.Aeq.Get(paxA1-1, 0))
	assert.Equal(t, -1.0, lp.Aeq.Get(paxA1-1, 4))
	assert.Equal(t, -1.0, lp.Aeq.Get(paxB2-1, 0))
	assert.Equal(t, 1.0, lp.Aeq.Get(paxB2-1, 6))
	assert.Equal(t, 1.0, lp.Aeq.Get(rebA1-1, 4))
	assert.Equal(t, 1.0, lp.Aeq.Get(rebA1-1, 2))

	// dead variables have no entries
	for row := 0; row < lp.NumEqualityRows(); row++ {
		assert.Equal(t, 0.0, lp.Aeq.Get(row, 1))
		assert.Equal(t, 0.0, lp.Aeq.Get(row, 3))
	}

	assert.Equal(t, 1.0, lp.Beq[rebA1-1])
	assert.Equal(t, []float64{5, 5}, lp.Bineq)
	assert.Equal(t, 1.0, lp.Aineq.Get(0, 0))
	assert.Equal(t, 1.0, lp.Aineq.Get(0, 2))

	want := []float64{1, 0, 0, 0, 1, 0, 1, 0, 1}
	assert.InDelta(t, 0, lp.MaxViolation(want), 1e-12)
	assert.InDelta(t, 1, lp.Objective(want), 1e-12)

	// the trip cannot be dropped
	assert.Greater(t, lp.MaxViolation(make([]float64, 9)), 0.5)
}

func TestAssembleRealTimeTwoNode(t *testing.T) {
	lp, scheme := assemble(t, twoNodeConfig("real-time"), Options{})

	// x1 reb(1) x2 reb(2) x3 source x4 sink(1) x5 sink(2) x6 end(A) x7 end(B)
	require.Equal(t, 7, lp.NumVariables)
	assert.Equal(t, 1.0, lp.Cost[2])

	customer, err := scheme.CustomerChargeRow(2, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, -1.0, lp.Aeq.Get(customer-1, 2))
	assert.Equal(t, 1.0, lp.Aeq.Get(customer-1, 4))

	want := []float64{0, 0, 1, 0, 1, 0, 1}
	assert.InDelta(t, 0, lp.MaxViolation(want), 1e-12)
	assert.InDelta(t, 1, lp.Objective(want), 1e-12)
}

func TestAssembleRealTimeTripPastHorizon(t *testing.T) {
	cfg := twoNodeConfig("real-time")
	cfg.Sinks[0].Sources[0].StartTime = 2

	lp, scheme := assemble(t, cfg, Options{})
	idx, err := scheme.Source(1, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 0.0, lp.Upper[idx-1])
}

func TestAssembleRelaxation(t *testing.T) {
	cfg := twoNodeConfig("standard")
	cfg.Relaxation = true
	cfg.Costs.RelaxationPenalty = 50
	cfg.Sinks[0].Sources[0].Demand = 3

	lp, scheme := assemble(t, cfg, Options{})
	idx, err := scheme.Relax(1, 1)
	require.NoError(t, err)
	assert.Equal(t, scheme.StateSize(), lp.NumVariables)
	assert.Equal(t, 50.0, lp.Cost[idx-1])
	assert.Equal(t, 3.0, lp.Upper[idx-1])

	srcRow, err := scheme.SourceConservationRow(1, 1)
	require.NoError(t, err)
	sinkRow, err := scheme.SinkConservationRow(1)
	require.NoError(t, err)
	assert.Equal(t, 1.0, lp.Aeq.Get(srcRow-1, idx-1))
	assert.Equal(t, 1.0, lp.Aeq.Get(sinkRow-1, idx-1))
	assert.Equal(t, 3.0, lp.Beq[srcRow-1])
	assert.Equal(t, 3.0, lp.Beq[sinkRow-1])
}

func chargerConfig() *problem.ProblemConfig {
	cfg := problem.NewProblemConfig()
	cfg.NumNodes = 2
	cfg.Horizon = 3
	cfg.ChargeLevels = 3
	cfg.MinEndCharge = 2
	cfg.Edges = []problem.EdgeConfig{
		{From: 1, To: 2, TravelTime: 1, ChargeCost: 1, Distance: 2, Capacity: 4},
		{From: 1, To: 1, TravelTime: 1, Capacity: 10},
	}
	cfg.Chargers = []problem.ChargerConfig{{Node: 1, Speed: 1, Duration: 2, Capacity: 1}}
	cfg.Sinks = []problem.SinkConfig{{Node: 2, Sources: []problem.SourceConfig{{Node: 1, StartTime: 1, Demand: 1}}}}
	cfg.Costs = problem.CostConfig{
		ValueOfTime:      1,
		CostPerDistance:  0.5,
		RebalanceWeight:  2,
		CongestionWeight: 4,
		DefaultPrice:     2,
	}
	return cfg
}

func TestAssembleChargers(t *testing.T) {
	lp, scheme := assemble(t, chargerConfig(), Options{})

	charge, err := scheme.ChargeLink(1, 1, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, math.Inf(1), lp.Upper[charge-1])
	assert.Equal(t, 1*2+2*1.0, lp.Cost[charge-1])

	from, err := scheme.PaxConservationRow(1, 1, 1, 1)
	require.NoError(t, err)
	to, err := scheme.PaxConservationRow(3, 2, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 1.0, lp.Aeq.Get(from-1, charge-1))
	assert.Equal(t, -1.0, lp.Aeq.Get(to-1, charge-1))

	// occupies the charger at t=1 and t=2
	for tt, want := range map[int]float64{1: 1, 2: 1, 3: 0} {
		row, err := scheme.ChargerCongestionRow(tt, 1)
		require.NoError(t, err)
		assert.Equal(t, want, lp.Aineq.Get(row-1, charge-1), "t=%d", tt)
		assert.Equal(t, 1.0, lp.Bineq[row-1])
	}

	// discharging from the lowest level is impossible
	discharge, err := scheme.DischargeLink(1, 1, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 0.0, lp.Upper[discharge-1])

	discharge, err = scheme.DischargeLink(1, 2, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, math.Inf(1), lp.Upper[discharge-1])
	assert.Equal(t, 1*2-2*1.0, lp.Cost[discharge-1])

	// finishing at t=4 is past the horizon
	late, err := scheme.ChargeLink(2, 1, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 0.0, lp.Upper[late-1])

	// rebalancing pays RebalanceWeight, passengers do not
	pax, err := scheme.RoadLink(1, 2, 1, 1, 2)
	require.NoError(t, err)
	reb, err := scheme.RoadLinkReb(1, 2, 1, 2)
	require.NoError(t, err)
	base := 1*1 + 0.5*2 + 4.0/4
	assert.InDelta(t, base, lp.Cost[pax-1], 1e-12)
	assert.InDelta(t, 2*base, lp.Cost[reb-1], 1e-12)

	// a link costing one level cannot leave from the lowest level
	dead, err := scheme.RoadLinkReb(1, 1, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 0.0, lp.Upper[dead-1])

	// below MinEndCharge vehicles may not finish
	end, err := scheme.EndReb(1, 2)
	require.NoError(t, err)
	assert.Equal(t, 0.0, lp.Upper[end-1])
	end, err = scheme.EndReb(2, 2)
	require.NoError(t, err)
	assert.Equal(t, math.Inf(1), lp.Upper[end-1])
}

func TestAssembleIsDeterministic(t *testing.T) {
	collect := func(lp *LinearProgram) [][3]float64 {
		out := make([][3]float64, 0)
		lp.Aeq.ForEachNonzero(func(row, col int, val float64) {
			out = append(out, [3]float64{float64(row), float64(col), val})
		})
		lp.Aineq.ForEachNonzero(func(row, col int, val float64) {
			out = append(out, [3]float64{-float64(row) - 1, float64(col), val})
		})
		return out
	}

	for _, regime := range []string{"standard", "real-time"} {
		cfg := chargerConfig()
		cfg.Regime = regime
		serial, _ := assemble(t, cfg, Options{MaxConcurrency: 1})
		parallel, _ := assemble(t, cfg, Options{})
		assert.Equal(t, collect(serial), collect(parallel))
		assert.Equal(t, serial.Cost, parallel.Cost)
		assert.Equal(t, serial.Upper, parallel.Upper)
		assert.Equal(t, serial.Diagnostics, parallel.Diagnostics)
	}
}

func TestAssembleCancelled(t *testing.T) {
	spec, err := problem.NewProblemSpec(chargerConfig())
	require.NoError(t, err)
	rt, err := routes.BuildRoutes(spec.Graph(), spec.ChargeLevels(), 1)
	require.NoError(t, err)
	scheme, err := index.NewScheme(index.NewDims(spec), pkg.STANDARD)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Assemble(ctx, spec, rt, scheme, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWriteMatrices(t *testing.T) {
	lp, _ := assemble(t, twoNodeConfig("standard"), Options{})
	dir := t.TempDir()
	require.NoError(t, lp.WriteMatrices(dir))
}
