package index

import (
	"fmt"

	"github.com/lintang-b-s/amodpower/pkg"
	"github.com/lintang-b-s/amodpower/pkg/util"
)

// Family of decision variables.
type Family uint8

const (
	RoadPax Family = iota
	RoadReb
	Charge
	Discharge
	Source
	Sink
	EndReb
	Relax
)

func (f Family) String() string {
	switch f {
	case RoadPax:
		return "RoadPax"
	case RoadReb:
		return "RoadReb"
	case Charge:
		return "Charge"
	case Discharge:
		return "Discharge"
	case Source:
		return "Source"
	case Sink:
		return "Sink"
	case EndReb:
		return "EndReb"
	case Relax:
		return "Relax"
	default:
		return "unknown"
	}
}

// RowFamily of equality or inequality constraints.
type RowFamily uint8

const (
	PaxConservation RowFamily = iota
	RebConservation
	CustomerChargeConservation
	SourceConservation
	SinkConservation
	RoadCongestion
	ChargerCongestion
)

func (f RowFamily) String() string {
	switch f {
	case PaxConservation:
		return "PaxConservation"
	case RebConservation:
		return "RebConservation"
	case CustomerChargeConservation:
		return "CustomerChargeConservation"
	case SourceConservation:
		return "SourceConservation"
	case SinkConservation:
		return "SinkConservation"
	case RoadCongestion:
		return "RoadCongestion"
	case ChargerCongestion:
		return "ChargerCongestion"
	default:
		return "unknown"
	}
}

// Range closed 1-based interval First..Last, empty when Last < First.
type Range struct {
	First int
	Last  int
}

func (r Range) Len() int {
	if r.Last < r.First {
		return 0
	}
	return r.Last - r.First + 1
}

func (r Range) Contains(idx int) bool {
	return idx >= r.First && idx <= r.Last
}

// Segment is where one variable family sits in the decision vector: Base+1..Base+Size.
type Segment struct {
	Family Family
	Base   int
	Size   int
}

func (s Segment) Range() Range {
	return Range{First: s.Base + 1, Last: s.Base + s.Size}
}

type RowSegment struct {
	Family RowFamily
	Base   int
	Size   int
}

func (s RowSegment) Range() Range {
	return Range{First: s.Base + 1, Last: s.Base + s.Size}
}

// Tuple is a decoded decision variable. components a family does not use are 0,
// K is 0 for the single rebalancing commodity of the real-time charger families.
type Tuple struct {
	Family Family
	T      int
	C      int
	K      int
	I      int
	J      int
	L      int
	S      int
}

type RowTuple struct {
	Family RowFamily
	T      int
	C      int
	K      int
	I      int
	J      int
	L      int
	S      int
}

// IndexRangeError a tuple component outside its valid range, or a road link that does not exist.
type IndexRangeError struct {
	Family    string
	Component string
	Value     int
	Min       int
	Max       int
	Head      int // Component "edge": Value is the tail, Head the head of the missing link
}

func (e *IndexRangeError) Error() string {
	if e.Component == "edge" {
		return fmt.Sprintf("%s: no road link %d -> %d", e.Family, e.Value, e.Head)
	}
	return fmt.Sprintf("%s: %s=%d outside %d..%d", e.Family, e.Component, e.Value, e.Min, e.Max)
}

func (e *IndexRangeError) Unwrap() error {
	return util.ErrIndexRange
}

// RegimeError an accessor that only exists in the other regime.
type RegimeError struct {
	Accessor string
	Regime   pkg.Regime
}

func (e *RegimeError) Error() string {
	return fmt.Sprintf("%s is not defined in the %s regime", e.Accessor, e.Regime)
}

func (e *RegimeError) Unwrap() error {
	return util.ErrIndexRange
}

type component struct {
	name string
	v    int
	lo   int
	hi   int
}

func comp(name string, v, lo, hi int) component {
	return component{name: name, v: v, lo: lo, hi: hi}
}

func checkRange(family fmt.Stringer, comps ...component) error {
	for _, c := range comps {
		if c.v < c.lo || c.v > c.hi {
			return &IndexRangeError{Family: family.String(), Component: c.name, Value: c.v, Min: c.lo, Max: c.hi}
		}
	}
	return nil
}
