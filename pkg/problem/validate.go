package problem

import (
	"errors"
	"fmt"

	"github.com/lintang-b-s/amodpower/pkg"
	"github.com/lintang-b-s/amodpower/pkg/util"
)

// SpecError is one inconsistency in a ProblemConfig.
type SpecError struct {
	Field  string
	Reason string
}

func (e *SpecError) Error() string {
	return fmt.Sprintf("problem spec: %s: %s", e.Field, e.Reason)
}

func (e *SpecError) Unwrap() error {
	return util.ErrSpec
}

type specValidator struct {
	cfg    *ProblemConfig
	issues []error
}

func newValidator(cfg *ProblemConfig) *specValidator {
	return &specValidator{cfg: cfg}
}

func (v *specValidator) addf(field, format string, a ...interface{}) {
	v.issues = append(v.issues, &SpecError{Field: field, Reason: fmt.Sprintf(format, a...)})
}

func (v *specValidator) err() error {
	if len(v.issues) == 0 {
		return nil
	}
	return util.WrapErrorf(errors.Join(v.issues...), util.ErrSpec, "invalid problem spec (%d issues)", len(v.issues))
}

func (v *specValidator) nodeInRange(field string, node int) bool {
	if node < 1 || node > v.cfg.NumNodes {
		v.addf(field, "node %d outside 1..%d", node, v.cfg.NumNodes)
		return false
	}
	return true
}

func (v *specValidator) validate() {
	cfg := v.cfg
	if cfg == nil {
		v.addf("problem", "missing")
		return
	}
	if cfg.NumNodes < 1 {
		v.addf("num_nodes", "must be at least 1, got %d", cfg.NumNodes)
	}
	if cfg.Horizon < 1 {
		v.addf("horizon", "must be at least 1, got %d", cfg.Horizon)
	}
	if cfg.ChargeLevels < 1 {
		v.addf("charge_levels", "must be at least 1, got %d", cfg.ChargeLevels)
	}
	if len(v.issues) > 0 {
		// every other check depends on the dimensions
		return
	}

	if _, ok := pkg.GetRegime(cfg.Regime); !ok {
		v.addf("regime", "unknown regime %q", cfg.Regime)
	}

	seen := make(map[[2]int]struct{}, len(cfg.Edges))
	for n, e := range cfg.Edges {
		field := fmt.Sprintf("edges[%d]", n)
		okFrom := v.nodeInRange(field+".from", e.From)
		okTo := v.nodeInRange(field+".to", e.To)
		if e.TravelTime < 1 {
			v.addf(field+".travel_time", "must be at least one time step, got %d", e.TravelTime)
		}
		if e.ChargeCost < 0 || e.ChargeCost > cfg.ChargeLevels-1 {
			v.addf(field+".charge_cost", "must be within 0..%d, got %d", cfg.ChargeLevels-1, e.ChargeCost)
		}
		if e.Distance < 0 {
			v.addf(field+".distance", "must be non-negative, got %g", e.Distance)
		}
		if e.Capacity < 0 {
			v.addf(field+".capacity", "must be non-negative, got %g", e.Capacity)
		}
		if okFrom && okTo {
			key := [2]int{e.From, e.To}
			if _, dup := seen[key]; dup {
				v.addf(field, "duplicate road link %d->%d", e.From, e.To)
			}
			seen[key] = struct{}{}
		}
	}

	for l, c := range cfg.Chargers {
		field := fmt.Sprintf("chargers[%d]", l)
		v.nodeInRange(field+".node", c.Node)
		if c.Speed < 1 {
			v.addf(field+".speed", "must be at least 1, got %d", c.Speed)
		}
		if c.Duration < 1 {
			v.addf(field+".duration", "must be at least one time step, got %d", c.Duration)
		}
		if c.Capacity < 0 {
			v.addf(field+".capacity", "must be non-negative, got %g", c.Capacity)
		}
		if len(c.Price) != 0 && len(c.Price) != cfg.Horizon {
			v.addf(field+".price", "needs one price per time step (%d), got %d", cfg.Horizon, len(c.Price))
		}
	}

	if len(cfg.Sinks) == 0 {
		v.addf("sinks", "at least one sink is required")
	}
	for k, s := range cfg.Sinks {
		field := fmt.Sprintf("sinks[%d]", k)
		v.nodeInRange(field+".node", s.Node)
		if len(s.Sources) == 0 {
			v.addf(field+".sources", "at least one source is required")
		}
		for n, src := range s.Sources {
			sfield := fmt.Sprintf("%s.sources[%d]", field, n)
			v.nodeInRange(sfield+".node", src.Node)
			if src.StartTime < 1 || src.StartTime > cfg.Horizon {
				v.addf(sfield+".start_time", "must be within 1..%d, got %d", cfg.Horizon, src.StartTime)
			}
			if !(src.Demand > 0) {
				v.addf(sfield+".demand", "must be positive, got %g", src.Demand)
			}
		}
	}

	for n, veh := range cfg.InitialVehicles {
		field := fmt.Sprintf("initial_vehicles[%d]", n)
		v.nodeInRange(field+".node", veh.Node)
		if veh.Charge < 1 || veh.Charge > cfg.ChargeLevels {
			v.addf(field+".charge", "must be within 1..%d, got %d", cfg.ChargeLevels, veh.Charge)
		}
		if veh.Count < 0 {
			v.addf(field+".count", "must be non-negative, got %g", veh.Count)
		}
	}

	if cfg.MinEndCharge < 0 || cfg.MinEndCharge > cfg.ChargeLevels {
		v.addf("min_end_charge", "must be within 0..%d, got %d", cfg.ChargeLevels, cfg.MinEndCharge)
	}

	c := cfg.Costs
	for _, f := range []struct {
		name string
		val  float64
	}{
		{"costs.value_of_time", c.ValueOfTime},
		{"costs.cost_per_distance", c.CostPerDistance},
		{"costs.rebalance_weight", c.RebalanceWeight},
		{"costs.congestion_weight", c.CongestionWeight},
		{"costs.relaxation_penalty", c.RelaxationPenalty},
		{"costs.default_price", c.DefaultPrice},
	} {
		if f.val < 0 {
			v.addf(f.name, "must be non-negative, got %g", f.val)
		}
	}
}
