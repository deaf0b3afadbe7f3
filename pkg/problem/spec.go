package problem

import (
	"github.com/lintang-b-s/amodpower/pkg"
	da "github.com/lintang-b-s/amodpower/pkg/datastructure"
	"github.com/lintang-b-s/amodpower/pkg/util"
)

type Charger struct {
	node     int
	speed    int
	duration int
	capacity float64
	price    []float64 // per time step, empty = default price
}

func (c Charger) GetNode() int         { return c.node }
func (c Charger) GetSpeed() int        { return c.speed }
func (c Charger) GetDuration() int     { return c.duration }
func (c Charger) GetCapacity() float64 { return c.capacity }

type Source struct {
	node      int
	startTime int
	demand    float64
}

func (s Source) GetNode() int       { return s.node }
func (s Source) GetStartTime() int  { return s.startTime }
func (s Source) GetDemand() float64 { return s.demand }

type Sink struct {
	node    int
	sources []Source
}

func (s Sink) GetNode() int    { return s.node }
func (s Sink) NumSources() int { return len(s.sources) }
func (s Sink) GetSource(i int) Source {
	return s.sources[i-1]
}

func (s Sink) TotalDemand() float64 {
	total := 0.0
	for _, src := range s.sources {
		total += src.demand
	}
	return total
}

type Costs struct {
	ValueOfTime       float64
	CostPerDistance   float64
	RebalanceWeight   float64
	CongestionWeight  float64
	RelaxationPenalty float64
	DefaultPrice      float64
}

// ProblemSpec is the validated, immutable description of one AMoD instance.
// all accessors take 1-based ids. nothing hands out a mutable view of internal state.
type ProblemSpec struct {
	graph        *da.RoadGraph
	horizon      int
	chargeLevels int

	chargers []Charger
	sinks    []Sink

	numSourcesPerSink    []int
	cumNumSourcesPerSink []int // len numSinks+1
	totNumSources        int

	initialVehicles [][]float64 // [node-1][charge-1]
	minEndCharge    int

	costs      Costs
	regime     pkg.Regime
	relaxation bool
}

func (ps *ProblemSpec) Graph() *da.RoadGraph {
	return ps.graph
}

func (ps *ProblemSpec) NumNodes() int {
	return ps.graph.NumberOfVertices()
}

func (ps *ProblemSpec) NumEdges() int {
	return ps.graph.NumberOfEdges()
}

func (ps *ProblemSpec) Horizon() int {
	return ps.horizon
}

func (ps *ProblemSpec) ChargeLevels() int {
	return ps.chargeLevels
}

// NumPassengerClasses each sink bundle is one passenger commodity.
func (ps *ProblemSpec) NumPassengerClasses() int {
	return len(ps.sinks)
}

func (ps *ProblemSpec) NumChargers() int {
	return len(ps.chargers)
}

func (ps *ProblemSpec) NumSinks() int {
	return len(ps.sinks)
}

func (ps *ProblemSpec) NumSourcesPerSink(k int) int {
	return ps.numSourcesPerSink[k-1]
}

func (ps *ProblemSpec) NumSourcesPerSinkAll() []int {
	out := make([]int, len(ps.numSourcesPerSink))
	copy(out, ps.numSourcesPerSink)
	return out
}

func (ps *ProblemSpec) CumNumSourcesPerSink() []int {
	out := make([]int, len(ps.cumNumSourcesPerSink))
	copy(out, ps.cumNumSourcesPerSink)
	return out
}

func (ps *ProblemSpec) TotNumSources() int {
	return ps.totNumSources
}

// Edge looks up road link i -> j.
func (ps *ProblemSpec) Edge(i, j int) (*da.OutEdge, bool) {
	if i < 1 || j < 1 {
		return nil, false
	}
	return ps.graph.FindEdge(da.Index(i-1), da.Index(j-1))
}

func (ps *ProblemSpec) Charger(l int) Charger {
	return ps.chargers[l-1]
}

// ChargerPrice electricity price at charger l during time step t.
func (ps *ProblemSpec) ChargerPrice(l, t int) float64 {
	c := ps.chargers[l-1]
	if len(c.price) == 0 {
		return ps.costs.DefaultPrice
	}
	return c.price[t-1]
}

func (ps *ProblemSpec) Sink(k int) Sink {
	return ps.sinks[k-1]
}

func (ps *ProblemSpec) Source(k, s int) Source {
	return ps.sinks[k-1].sources[s-1]
}

func (ps *ProblemSpec) InitialVehicles(i, c int) float64 {
	return ps.initialVehicles[i-1][c-1]
}

func (ps *ProblemSpec) FleetSize() float64 {
	total := 0.0
	for _, row := range ps.initialVehicles {
		for _, v := range row {
			total += v
		}
	}
	return total
}

func (ps *ProblemSpec) MinEndCharge() int {
	return ps.minEndCharge
}

func (ps *ProblemSpec) Costs() Costs {
	return ps.costs
}

func (ps *ProblemSpec) Regime() pkg.Regime {
	return ps.regime
}

func (ps *ProblemSpec) RelaxationEnabled() bool {
	return ps.relaxation
}

func (ps *ProblemSpec) TotalDemand() float64 {
	total := 0.0
	for _, s := range ps.sinks {
		total += s.TotalDemand()
	}
	return total
}

// NewProblemSpec validates cfg and copies it into an immutable spec.
// every problem found is reported, wrapped with util.ErrSpec.
func NewProblemSpec(cfg *ProblemConfig) (*ProblemSpec, error) {
	v := newValidator(cfg)
	v.validate()
	if err := v.err(); err != nil {
		return nil, err
	}

	regime, _ := pkg.GetRegime(cfg.Regime)

	edges := make([]*da.OutEdge, len(cfg.Edges))
	for i, e := range cfg.Edges {
		edges[i] = da.NewOutEdge(da.Index(e.From-1), da.Index(e.To-1), e.TravelTime, e.ChargeCost, e.Distance, e.Capacity)
	}
	graph, err := da.NewRoadGraph(cfg.NumNodes, edges)
	if err != nil {
		return nil, util.WrapErrorf(&SpecError{Field: "edges", Reason: err.Error()}, util.ErrSpec, "invalid road graph")
	}

	chargers := make([]Charger, len(cfg.Chargers))
	for l, c := range cfg.Chargers {
		price := make([]float64, len(c.Price))
		copy(price, c.Price)
		chargers[l] = Charger{node: c.Node, speed: c.Speed, duration: c.Duration, capacity: c.Capacity, price: price}
	}

	sinks := make([]Sink, len(cfg.Sinks))
	numSources := make([]int, len(cfg.Sinks))
	for k, s := range cfg.Sinks {
		sources := make([]Source, len(s.Sources))
		for i, src := range s.Sources {
			sources[i] = Source{node: src.Node, startTime: src.StartTime, demand: src.Demand}
		}
		sinks[k] = Sink{node: s.Node, sources: sources}
		numSources[k] = len(sources)
	}
	cum := util.PrefixSum(numSources)

	initial := make([][]float64, cfg.NumNodes)
	for i := range initial {
		initial[i] = make([]float64, cfg.ChargeLevels)
	}
	for _, veh := range cfg.InitialVehicles {
		initial[veh.Node-1][veh.Charge-1] += veh.Count
	}

	c := cfg.Costs
	return &ProblemSpec{
		graph:                graph,
		horizon:              cfg.Horizon,
		chargeLevels:         cfg.ChargeLevels,
		chargers:             chargers,
		sinks:                sinks,
		numSourcesPerSink:    numSources,
		cumNumSourcesPerSink: cum,
		totNumSources:        cum[len(cum)-1],
		initialVehicles:      initial,
		minEndCharge:         cfg.MinEndCharge,
		costs: Costs{
			ValueOfTime:       c.ValueOfTime,
			CostPerDistance:   c.CostPerDistance,
			RebalanceWeight:   c.RebalanceWeight,
			CongestionWeight:  c.CongestionWeight,
			RelaxationPenalty: c.RelaxationPenalty,
			DefaultPrice:      c.DefaultPrice,
		},
		regime:     regime,
		relaxation: cfg.Relaxation,
	}, nil
}
