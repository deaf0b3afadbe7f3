package problem

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/lintang-b-s/amodpower/pkg"
	"github.com/lintang-b-s/amodpower/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoNodeConfig() *ProblemConfig {
	cfg := NewProblemConfig()
	cfg.NumNodes = 2
	cfg.Horizon = 2
	cfg.ChargeLevels = 1
	cfg.Edges = []EdgeConfig{{From: 1, To: 2, TravelTime: 1, Capacity: 10}}
	cfg.Sinks = []SinkConfig{{Node: 2, Sources: []SourceConfig{{Node: 1, StartTime: 1, Demand: 1}}}}
	cfg.InitialVehicles = []VehicleConfig{{Node: 1, Charge: 1, Count: 1}}
	return cfg
}

func TestNewProblemSpec(t *testing.T) {
	cfg := twoNodeConfig()
	cfg.Chargers = []ChargerConfig{{Node: 2, Speed: 1, Duration: 1, Capacity: 2, Price: []float64{3, 4}}}
	cfg.Sinks = append(cfg.Sinks, SinkConfig{Node: 1, Sources: []SourceConfig{
		{Node: 2, StartTime: 1, Demand: 2},
		{Node: 2, StartTime: 2, Demand: 0.5},
	}})

	ps, err := NewProblemSpec(cfg)
	require.NoError(t, err)

	assert.Equal(t, 2, ps.NumNodes())
	assert.Equal(t, 1, ps.NumEdges())
	assert.Equal(t, 2, ps.NumSinks())
	assert.Equal(t, 2, ps.NumPassengerClasses())
	assert.Equal(t, []int{1, 2}, ps.NumSourcesPerSinkAll())
	assert.Equal(t, []int{0, 1, 3}, ps.CumNumSourcesPerSink())
	assert.Equal(t, 3, ps.TotNumSources())
	assert.InDelta(t, 3.5, ps.TotalDemand(), 1e-12)
	assert.InDelta(t, 1.0, ps.FleetSize(), 1e-12)
	assert.Equal(t, pkg.STANDARD, ps.Regime())

	assert.Equal(t, 4.0, ps.ChargerPrice(1, 2))
	assert.Equal(t, 2, ps.Source(2, 2).GetStartTime())

	e, ok := ps.Edge(1, 2)
	require.True(t, ok)
	assert.Equal(t, 1, e.GetTravelTime())
	_, ok = ps.Edge(2, 1)
	assert.False(t, ok)

	// returned slices are copies
	cum := ps.CumNumSourcesPerSink()
	cum[1] = 99
	assert.Equal(t, []int{0, 1, 3}, ps.CumNumSourcesPerSink())
}

func TestNewProblemSpecDefaultPrice(t *testing.T) {
	cfg := twoNodeConfig()
	cfg.Costs.DefaultPrice = 0.25
	cfg.Chargers = []ChargerConfig{{Node: 1, Speed: 1, Duration: 1, Capacity: 1}}
	ps, err := NewProblemSpec(cfg)
	require.NoError(t, err)
	assert.Equal(t, 0.25, ps.ChargerPrice(1, 1))
}

func TestNewProblemSpecInvalid(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(cfg *ProblemConfig)
		field  string
	}{
		{
			name:   "zero horizon",
			mutate: func(cfg *ProblemConfig) { cfg.Horizon = 0 },
			field:  "horizon",
		},
		{
			name:   "edge to unknown node",
			mutate: func(cfg *ProblemConfig) { cfg.Edges[0].To = 3 },
			field:  "edges[0].to",
		},
		{
			name: "duplicate edge",
			mutate: func(cfg *ProblemConfig) {
				cfg.Edges = append(cfg.Edges, EdgeConfig{From: 1, To: 2, TravelTime: 2})
			},
			field: "edges[1]",
		},
		{
			name:   "charge cost too large",
			mutate: func(cfg *ProblemConfig) { cfg.Edges[0].ChargeCost = 1 },
			field:  "edges[0].charge_cost",
		},
		{
			name:   "no sinks",
			mutate: func(cfg *ProblemConfig) { cfg.Sinks = nil },
			field:  "sinks",
		},
		{
			name:   "source after horizon",
			mutate: func(cfg *ProblemConfig) { cfg.Sinks[0].Sources[0].StartTime = 3 },
			field:  "sinks[0].sources[0].start_time",
		},
		{
			name:   "zero demand",
			mutate: func(cfg *ProblemConfig) { cfg.Sinks[0].Sources[0].Demand = 0 },
			field:  "sinks[0].sources[0].demand",
		},
		{
			name: "charger price length",
			mutate: func(cfg *ProblemConfig) {
				cfg.Chargers = []ChargerConfig{{Node: 1, Speed: 1, Duration: 1, Price: []float64{1}}}
			},
			field: "chargers[0].price",
		},
		{
			name:   "vehicle charge out of range",
			mutate: func(cfg *ProblemConfig) { cfg.InitialVehicles[0].Charge = 2 },
			field:  "initial_vehicles[0].charge",
		},
		{
			name:   "unknown regime",
			mutate: func(cfg *ProblemConfig) { cfg.Regime = "offline" },
			field:  "regime",
		},
		{
			name:   "negative cost",
			mutate: func(cfg *ProblemConfig) { cfg.Costs.ValueOfTime = -1 },
			field:  "costs.value_of_time",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := twoNodeConfig()
			tc.mutate(cfg)

			_, err := NewProblemSpec(cfg)
			require.Error(t, err)
			assert.True(t, errors.Is(err, util.ErrSpec))

			var specErr *SpecError
			require.True(t, errors.As(err, &specErr))
			assert.Equal(t, tc.field, specErr.Field)
		})
	}
}

func TestNewProblemSpecReportsAllIssues(t *testing.T) {
	cfg := twoNodeConfig()
	cfg.Edges[0].Distance = -1
	cfg.MinEndCharge = 5

	_, err := NewProblemSpec(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 issues")
	assert.Contains(t, err.Error(), "edges[0].distance")
	assert.Contains(t, err.Error(), "min_end_charge")
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	yamlDoc := `
num_nodes: 2
horizon: 2
charge_levels: 1
regime: real-time
edges:
  - {from: 1, to: 2, travel_time: 1, capacity: 10}
sinks:
  - node: 2
    sources:
      - {node: 1, start_time: 1, demand: 1}
initial_vehicles:
  - {node: 1, charge: 1, count: 1}
costs:
  value_of_time: 2
`
	yamlPath := filepath.Join(dir, "problem.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(yamlDoc), 0o644))

	ps, err := Load(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, pkg.REAL_TIME, ps.Regime())
	assert.Equal(t, 2.0, ps.Costs().ValueOfTime)
	// unset cost fields keep their defaults
	assert.Equal(t, 1.0, ps.Costs().RebalanceWeight)
	assert.Equal(t, 1e4, ps.Costs().RelaxationPenalty)

	jsonDoc := `{"num_nodes":2,"horizon":2,"charge_levels":1,
"edges":[{"from":1,"to":2,"travel_time":1,"capacity":10}],
"sinks":[{"node":2,"sources":[{"node":1,"start_time":1,"demand":1}]}],
"relaxation":true}`
	jsonPath := filepath.Join(dir, "problem.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(jsonDoc), 0o644))

	ps, err = Load(jsonPath)
	require.NoError(t, err)
	assert.True(t, ps.RelaxationEnabled())
	assert.Equal(t, 0.0, ps.FleetSize())

	badPath := filepath.Join(dir, "problem.yaml.txt")
	require.NoError(t, os.WriteFile(badPath, []byte(yamlDoc), 0o644))
	_, err = Load(badPath)
	assert.Error(t, err)

	unknownField := filepath.Join(dir, "unknown.yaml")
	require.NoError(t, os.WriteFile(unknownField, []byte("num_nodes: 1\nhorizons: 2\n"), 0o644))
	_, err = Load(unknownField)
	assert.Error(t, err)
}
