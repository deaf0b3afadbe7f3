package assembler

import (
	"context"
	"fmt"

	"github.com/lintang-b-s/amodpower/pkg"
	da "github.com/lintang-b-s/amodpower/pkg/datastructure"
	"github.com/lintang-b-s/amodpower/pkg/index"
	"github.com/lintang-b-s/amodpower/pkg/problem"
	"github.com/lintang-b-s/amodpower/pkg/routes"
	"golang.org/x/sync/errgroup"
)

type Options struct {
	// MaxConcurrency bounds the family goroutines, <= 0 means one goroutine per family.
	MaxConcurrency int
}

// familyTriplets collects the constraint entries of one variable family.
// rows and columns are converted from 1-based scheme indices on append.
type familyTriplets struct {
	name string
	eq   []da.Triplet[float64]
	ineq []da.Triplet[float64]
	dead int
}

func (f *familyTriplets) addEq(row, idx int, val float64) {
	f.eq = append(f.eq, da.NewTriplet(row-1, idx-1, val))
}

func (f *familyTriplets) addIneq(row, idx int, val float64) {
	f.ineq = append(f.ineq, da.NewTriplet(row-1, idx-1, val))
}

type assembler struct {
	spec     *problem.ProblemSpec
	routes   *routes.RouteTable
	scheme   index.Scheme
	d        *index.Dims
	costs    problem.Costs
	standard bool

	// every family writes a disjoint range of these
	cost  []float64
	upper []float64
}

// Assemble builds the flow LP of spec on the index layout of scheme. triplets are produced
// per variable family in parallel and merged in family order, so the result does not depend
// on scheduling.
func Assemble(ctx context.Context, spec *problem.ProblemSpec, rt *routes.RouteTable, scheme index.Scheme, opts Options) (*LinearProgram, error) {
	n := scheme.StateSize()
	a := &assembler{
		spec:     spec,
		routes:   rt,
		scheme:   scheme,
		d:        scheme.Dims(),
		costs:    spec.Costs(),
		standard: scheme.Regime() == pkg.STANDARD,
		cost:     make([]float64, n),
		upper:    make([]float64, n),
	}
	for j := range a.upper {
		a.upper[j] = pkg.INF
	}

	families := []struct {
		out *familyTriplets
		gen func(ctx context.Context, out *familyTriplets) error
	}{
		{&familyTriplets{name: "RoadLinks"}, a.roadLinks},
		{&familyTriplets{name: "Chargers"}, a.chargers},
		{&familyTriplets{name: "Source"}, a.sources},
		{&familyTriplets{name: "Sink"}, a.sinks},
		{&familyTriplets{name: "EndReb"}, a.endReb},
		{&familyTriplets{name: "Relax"}, a.relax},
	}

	g, gctx := errgroup.WithContext(ctx)
	if opts.MaxConcurrency > 0 {
		g.SetLimit(opts.MaxConcurrency)
	}
	for _, fam := range families {
		g.Go(func() error {
			if err := fam.gen(gctx, fam.out); err != nil {
				return fmt.Errorf("assemble %s: %w", fam.out.name, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	diag := Diagnostics{
		FamilyNonzeros: make(map[string]int, len(families)),
		EqualityRows:   scheme.NumEqualityRows(),
		InequalityRows: scheme.NumInequalityRows(),
	}
	eq := make([]da.Triplet[float64], 0)
	ineq := make([]da.Triplet[float64], 0)
	for _, fam := range families {
		eq = append(eq, fam.out.eq...)
		ineq = append(ineq, fam.out.ineq...)
		diag.FamilyNonzeros[fam.out.name] = len(fam.out.eq) + len(fam.out.ineq)
		diag.DeadVariables += fam.out.dead
	}

	aeq, err := da.NewSparseMatrixFromTriplets(scheme.NumEqualityRows(), n, eq)
	if err != nil {
		return nil, fmt.Errorf("assemble equality matrix: %w", err)
	}
	aineq, err := da.NewSparseMatrixFromTriplets(scheme.NumInequalityRows(), n, ineq)
	if err != nil {
		return nil, fmt.Errorf("assemble inequality matrix: %w", err)
	}

	beq, err := a.equalityRHS()
	if err != nil {
		return nil, err
	}
	bineq, err := a.inequalityRHS()
	if err != nil {
		return nil, err
	}

	return &LinearProgram{
		NumVariables: n,
		Cost:         a.cost,
		Aeq:          aeq,
		Beq:          beq,
		Aineq:        aineq,
		Bineq:        bineq,
		Lower:        make([]float64, n),
		Upper:        a.upper,
		Diagnostics:  diag,
	}, nil
}

func (a *assembler) kill(idx int, out *familyTriplets) {
	a.upper[idx-1] = 0
	out.dead++
}

// flowRow is the conservation row of state (t, c, node) in the network of commodity k.
func (a *assembler) flowRow(t, c, k, node int, rebalancing bool) (int, error) {
	if rebalancing {
		return a.scheme.RebConservationRow(t, c, node)
	}
	return a.scheme.PaxConservationRow(t, c, k, node)
}

// numCommodities routed on road links and chargers: M passenger + rebalancing in the standard
// regime, rebalancing only in real-time.
func (a *assembler) numCommodities() int {
	if a.standard {
		return a.d.M + 1
	}
	return 1
}

func (a *assembler) isRebalancing(k int) bool {
	return !a.standard || k == a.d.M+1
}

func (a *assembler) roadCost(e *da.OutEdge) float64 {
	cost := a.costs.ValueOfTime*float64(e.GetTravelTime()) + a.costs.CostPerDistance*e.GetLength()
	if e.GetCapacity() > 0 {
		cost += a.costs.CongestionWeight / e.GetCapacity()
	}
	return cost
}

func (a *assembler) roadLinks(ctx context.Context, out *familyTriplets) error {
	d := a.d
	g := a.spec.Graph()
	for t := 1; t <= d.Thor; t++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		for c := 1; c <= d.C; c++ {
			for e := 0; e < d.E; e++ {
				if err := a.roadLink(t, c, g.GetOutEdge(da.Index(e)), out); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (a *assembler) roadLink(t, c int, e *da.OutEdge, out *familyTriplets) error {
	d := a.d
	i, j := int(e.GetTail())+1, int(e.GetHead())+1
	tau, q := e.GetTravelTime(), e.GetChargeCost()
	alive := t+tau <= d.Thor && c-q >= 1
	base := a.roadCost(e)

	congRow, err := a.scheme.RoadCongestionRow(t, i, j)
	if err != nil {
		return err
	}

	for k := 1; k <= a.numCommodities(); k++ {
		reb := a.isRebalancing(k)
		var idx int
		if a.standard {
			idx, err = a.scheme.RoadLink(t, c, k, i, j)
		} else {
			idx, err = a.scheme.RoadLinkReb(t, c, i, j)
		}
		if err != nil {
			return err
		}

		w := 1.0
		if reb {
			w = a.costs.RebalanceWeight
		}
		a.cost[idx-1] = w * base

		if !alive {
			a.kill(idx, out)
			continue
		}
		from, err := a.flowRow(t, c, k, i, reb)
		if err != nil {
			return err
		}
		to, err := a.flowRow(t+tau, c-q, k, j, reb)
		if err != nil {
			return err
		}
		out.addEq(from, idx, 1)
		out.addEq(to, idx, -1)
		out.addIneq(congRow, idx, 1)
	}
	return nil
}

func (a *assembler) chargers(ctx context.Context, out *familyTriplets) error {
	d := a.d
	for t := 1; t <= d.Thor; t++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		for c := 1; c <= d.C; c++ {
			for k := 1; k <= a.numCommodities(); k++ {
				for l := 1; l <= d.L; l++ {
					if err := a.chargerLink(index.Charge, t, c, k, l, out); err != nil {
						return err
					}
					if err := a.chargerLink(index.Discharge, t, c, k, l, out); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

// chargerLink a vehicle plugged in at charger l from t to t+duration, gaining (Charge) or
// selling back (Discharge) speed charge levels.
func (a *assembler) chargerLink(f index.Family, t, c, k, l int, out *familyTriplets) error {
	d := a.d
	ch := a.spec.Charger(l)
	node, dur, sigma := ch.GetNode(), ch.GetDuration(), ch.GetSpeed()
	price := a.spec.ChargerPrice(l, t)
	reb := a.isRebalancing(k)

	var (
		idx int
		err error
	)
	switch {
	case f == index.Charge && a.standard:
		idx, err = a.scheme.ChargeLink(t, c, k, l)
	case f == index.Charge:
		idx, err = a.scheme.ChargeLinkReb(t, c, l)
	case a.standard:
		idx, err = a.scheme.DischargeLink(t, c, k, l)
	default:
		idx, err = a.scheme.DischargeLinkReb(t, c, l)
	}
	if err != nil {
		return err
	}

	endCharge := c + sigma
	a.cost[idx-1] = a.costs.ValueOfTime*float64(dur) + price*float64(sigma)
	if f == index.Discharge {
		endCharge = c - sigma
		a.cost[idx-1] = a.costs.ValueOfTime*float64(dur) - price*float64(sigma)
	}

	if t+dur > d.Thor || endCharge < 1 || endCharge > d.C {
		a.kill(idx, out)
		return nil
	}

	from, err := a.flowRow(t, c, k, node, reb)
	if err != nil {
		return err
	}
	to, err := a.flowRow(t+dur, endCharge, k, node, reb)
	if err != nil {
		return err
	}
	out.addEq(from, idx, 1)
	out.addEq(to, idx, -1)

	// occupies the charger during t..t+dur-1
	for tt := t; tt < t+dur; tt++ {
		row, err := a.scheme.ChargerCongestionRow(tt, l)
		if err != nil {
			return err
		}
		out.addIneq(row, idx, 1)
	}
	return nil
}

func (a *assembler) sources(ctx context.Context, out *familyTriplets) error {
	d := a.d
	for c := 1; c <= d.C; c++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		for k := 1; k <= d.NumSinks; k++ {
			for s := 1; s <= d.NumSourcesPerSink[k-1]; s++ {
				if err := a.source(c, k, s, out); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (a *assembler) source(c, k, s int, out *familyTriplets) error {
	src := a.spec.Source(k, s)
	node, start := src.GetNode(), src.GetStartTime()

	idx, err := a.scheme.Source(c, k, s)
	if err != nil {
		return err
	}
	from, err := a.scheme.RebConservationRow(start, c, node)
	if err != nil {
		return err
	}
	demandRow, err := a.scheme.SourceConservationRow(k, s)
	if err != nil {
		return err
	}

	var to int
	if a.standard {
		// the vehicle picks the passengers up and joins commodity k where it stands
		to, err = a.scheme.PaxConservationRow(start, c, k, node)
		if err != nil {
			return err
		}
	} else {
		// the whole customer trip is one jump along the precomputed route
		dest := a.spec.Sink(k).GetNode()
		tau, errT := a.routes.Time(node, dest)
		q, errQ := a.routes.Charge(node, dest)
		dist, errD := a.routes.Distance(node, dest)
		if errT != nil || errQ != nil || errD != nil {
			a.kill(idx, out)
			return nil
		}
		a.cost[idx-1] = a.costs.ValueOfTime*float64(tau) + a.costs.CostPerDistance*dist

		arrival, endCharge := start+tau, c-q
		if arrival > a.d.Thor || endCharge < 1 {
			a.kill(idx, out)
			return nil
		}
		to, err = a.scheme.CustomerChargeRow(arrival, endCharge, k)
		if err != nil {
			return err
		}
	}

	out.addEq(from, idx, 1)
	out.addEq(to, idx, -1)
	out.addEq(demandRow, idx, 1)
	return nil
}

func (a *assembler) sinks(ctx context.Context, out *familyTriplets) error {
	d := a.d
	for t := 1; t <= d.Thor; t++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		for c := 1; c <= d.C; c++ {
			for k := 1; k <= d.M; k++ {
				node := a.spec.Sink(k).GetNode()
				idx, err := a.scheme.Sink(t, c, k)
				if err != nil {
					return err
				}

				var from int
				if a.standard {
					from, err = a.scheme.PaxConservationRow(t, c, k, node)
				} else {
					from, err = a.scheme.CustomerChargeRow(t, c, k)
				}
				if err != nil {
					return err
				}
				to, err := a.scheme.RebConservationRow(t, c, node)
				if err != nil {
					return err
				}
				demandRow, err := a.scheme.SinkConservationRow(k)
				if err != nil {
					return err
				}
				out.addEq(from, idx, 1)
				out.addEq(to, idx, -1)
				out.addEq(demandRow, idx, 1)
			}
		}
	}
	return nil
}

func (a *assembler) endReb(ctx context.Context, out *familyTriplets) error {
	d := a.d
	for c := 1; c <= d.C; c++ {
		for i := 1; i <= d.N; i++ {
			idx, err := a.scheme.EndReb(c, i)
			if err != nil {
				return err
			}
			if c < a.spec.MinEndCharge() {
				a.kill(idx, out)
				continue
			}
			row, err := a.scheme.RebConservationRow(d.Thor, c, i)
			if err != nil {
				return err
			}
			out.addEq(row, idx, 1)
		}
	}
	return nil
}

func (a *assembler) relax(ctx context.Context, out *familyTriplets) error {
	d := a.d
	if !d.Relaxation {
		return nil
	}
	for k := 1; k <= d.NumSinks; k++ {
		for s := 1; s <= d.NumSourcesPerSink[k-1]; s++ {
			idx, err := a.scheme.Relax(k, s)
			if err != nil {
				return err
			}
			a.cost[idx-1] = a.costs.RelaxationPenalty
			a.upper[idx-1] = a.spec.Source(k, s).GetDemand()

			srcRow, err := a.scheme.SourceConservationRow(k, s)
			if err != nil {
				return err
			}
			sinkRow, err := a.scheme.SinkConservationRow(k)
			if err != nil {
				return err
			}
			out.addEq(srcRow, idx, 1)
			out.addEq(sinkRow, idx, 1)
		}
	}
	return nil
}

func (a *assembler) equalityRHS() ([]float64, error) {
	d := a.d
	beq := make([]float64, a.scheme.NumEqualityRows())
	for c := 1; c <= d.C; c++ {
		for i := 1; i <= d.N; i++ {
			row, err := a.scheme.RebConservationRow(1, c, i)
			if err != nil {
				return nil, err
			}
			beq[row-1] = a.spec.InitialVehicles(i, c)
		}
	}
	for k := 1; k <= d.NumSinks; k++ {
		for s := 1; s <= d.NumSourcesPerSink[k-1]; s++ {
			row, err := a.scheme.SourceConservationRow(k, s)
			if err != nil {
				return nil, err
			}
			beq[row-1] = a.spec.Source(k, s).GetDemand()
		}
		row, err := a.scheme.SinkConservationRow(k)
		if err != nil {
			return nil, err
		}
		beq[row-1] = a.spec.Sink(k).TotalDemand()
	}
	return beq, nil
}

func (a *assembler) inequalityRHS() ([]float64, error) {
	d := a.d
	g := a.spec.Graph()
	bineq := make([]float64, a.scheme.NumInequalityRows())
	for t := 1; t <= d.Thor; t++ {
		for e := 0; e < d.E; e++ {
			edge := g.GetOutEdge(da.Index(e))
			row, err := a.scheme.RoadCongestionRow(t, int(edge.GetTail())+1, int(edge.GetHead())+1)
			if err != nil {
				return nil, err
			}
			bineq[row-1] = edge.GetCapacity()
		}
		for l := 1; l <= d.L; l++ {
			row, err := a.scheme.ChargerCongestionRow(t, l)
			if err != nil {
				return nil, err
			}
			bineq[row-1] = a.spec.Charger(l).GetCapacity()
		}
	}
	return bineq, nil
}
