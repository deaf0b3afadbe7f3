package problem

// ProblemConfig is the mutable input form of a problem. ids are 1-based.
// NewProblemSpec validates it and freezes a copy into a ProblemSpec.
type ProblemConfig struct {
	NumNodes     int `yaml:"num_nodes" json:"num_nodes" validate:"required,min=1"`
	Horizon      int `yaml:"horizon" json:"horizon" validate:"required,min=1"`
	ChargeLevels int `yaml:"charge_levels" json:"charge_levels" validate:"required,min=1"`

	Edges    []EdgeConfig    `yaml:"edges" json:"edges" validate:"dive"`
	Chargers []ChargerConfig `yaml:"chargers" json:"chargers" validate:"dive"`
	Sinks    []SinkConfig    `yaml:"sinks" json:"sinks" validate:"required,min=1,dive"`

	InitialVehicles []VehicleConfig `yaml:"initial_vehicles" json:"initial_vehicles" validate:"dive"`
	MinEndCharge    int             `yaml:"min_end_charge" json:"min_end_charge" validate:"min=0"`

	Costs CostConfig `yaml:"costs" json:"costs"`

	Regime     string `yaml:"regime" json:"regime" validate:"omitempty,oneof=standard real-time realtime real_time"`
	Relaxation bool   `yaml:"relaxation" json:"relaxation"`
}

type EdgeConfig struct {
	From       int     `yaml:"from" json:"from" validate:"required,min=1"`
	To         int     `yaml:"to" json:"to" validate:"required,min=1"`
	TravelTime int     `yaml:"travel_time" json:"travel_time" validate:"required,min=1"`
	ChargeCost int     `yaml:"charge_cost" json:"charge_cost" validate:"min=0"`
	Distance   float64 `yaml:"distance" json:"distance" validate:"min=0"`
	Capacity   float64 `yaml:"capacity" json:"capacity" validate:"min=0"`
}

type ChargerConfig struct {
	Node     int       `yaml:"node" json:"node" validate:"required,min=1"`
	Speed    int       `yaml:"speed" json:"speed" validate:"required,min=1"`
	Duration int       `yaml:"duration" json:"duration" validate:"required,min=1"`
	Capacity float64   `yaml:"capacity" json:"capacity" validate:"min=0"`
	Price    []float64 `yaml:"price" json:"price"`
}

type SinkConfig struct {
	Node    int            `yaml:"node" json:"node" validate:"required,min=1"`
	Sources []SourceConfig `yaml:"sources" json:"sources" validate:"required,min=1,dive"`
}

type SourceConfig struct {
	Node      int     `yaml:"node" json:"node" validate:"required,min=1"`
	StartTime int     `yaml:"start_time" json:"start_time" validate:"required,min=1"`
	Demand    float64 `yaml:"demand" json:"demand" validate:"gt=0"`
}

type VehicleConfig struct {
	Node   int     `yaml:"node" json:"node" validate:"required,min=1"`
	Charge int     `yaml:"charge" json:"charge" validate:"required,min=1"`
	Count  float64 `yaml:"count" json:"count" validate:"min=0"`
}

type CostConfig struct {
	ValueOfTime       float64 `yaml:"value_of_time" json:"value_of_time" validate:"min=0"`
	CostPerDistance   float64 `yaml:"cost_per_distance" json:"cost_per_distance" validate:"min=0"`
	RebalanceWeight   float64 `yaml:"rebalance_weight" json:"rebalance_weight" validate:"min=0"`
	CongestionWeight  float64 `yaml:"congestion_weight" json:"congestion_weight" validate:"min=0"`
	RelaxationPenalty float64 `yaml:"relaxation_penalty" json:"relaxation_penalty" validate:"min=0"`
	DefaultPrice      float64 `yaml:"default_price" json:"default_price" validate:"min=0"`
}

func DefaultCosts() CostConfig {
	return CostConfig{
		ValueOfTime:       1,
		CostPerDistance:   0,
		RebalanceWeight:   1,
		CongestionWeight:  0,
		RelaxationPenalty: 1e4,
		DefaultPrice:      0,
	}
}

// NewProblemConfig returns a config with default costs, meant to be filled by a decoder.
func NewProblemConfig() *ProblemConfig {
	return &ProblemConfig{Costs: DefaultCosts()}
}
