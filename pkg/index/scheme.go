package index

import (
	"fmt"

	"github.com/lintang-b-s/amodpower/pkg"
)

// Scheme maps structured tuples to flat 1-based positions in the decision vector and in the
// equality / inequality row spaces, and back. NewScheme picks the strategy for the regime once.
type Scheme interface {
	Regime() pkg.Regime
	Dims() *Dims

	// standard only. k = M+1 is the rebalancing commodity.
	RoadLink(t, c, k, i, j int) (int, error)
	ChargeLink(t, c, k, l int) (int, error)
	DischargeLink(t, c, k, l int) (int, error)
	PaxConservationRow(t, c, k, i int) (int, error)

	// real-time only.
	CustomerChargeRow(t, c, k int) (int, error)

	RoadLinkReb(t, c, i, j int) (int, error)
	ChargeLinkReb(t, c, l int) (int, error)
	DischargeLinkReb(t, c, l int) (int, error)
	Source(c, k, s int) (int, error)
	Sink(t, c, k int) (int, error)
	EndReb(c, i int) (int, error)
	Relax(k, s int) (int, error)

	RebConservationRow(t, c, i int) (int, error)
	SourceConservationRow(k, s int) (int, error)
	SinkConservationRow(k int) (int, error)
	RoadCongestionRow(t, i, j int) (int, error)
	ChargerCongestionRow(t, l int) (int, error)

	StateSize() int
	StateRange() Range
	RelaxRange() Range
	NumEqualityRows() int
	NumInequalityRows() int
	Families() []Segment
	EqualityFamilies() []RowSegment
	InequalityFamilies() []RowSegment

	Decode(idx int) (Tuple, error)
	DecodeEqualityRow(row int) (RowTuple, error)
	DecodeInequalityRow(row int) (RowTuple, error)
}

func NewScheme(d *Dims, regime pkg.Regime) (Scheme, error) {
	switch regime {
	case pkg.STANDARD:
		return newStandardScheme(d), nil
	case pkg.REAL_TIME:
		return newRealTimeScheme(d), nil
	default:
		return nil, fmt.Errorf("index: unknown regime %d", regime)
	}
}

// layout is the part both strategies share: family placement and every accessor whose
// formula does not depend on the regime.
type layout struct {
	d      *Dims
	regime pkg.Regime
	// commodities per charger family and the one rebalancing uses
	chargeK int
	rebK    int

	families   []Segment
	byFamily   map[Family]Segment
	eqFamilies []RowSegment
	eqByFamily map[RowFamily]RowSegment
	inFamilies []RowSegment
	inByFamily map[RowFamily]RowSegment

	stateSize int
	endRebTop int
	numEq     int
	numIneq   int
}

func newLayout(d *Dims, regime pkg.Regime, chargeK, rebK int, fams []Segment, eqFams []RowSegment) *layout {
	lay := &layout{
		d:          d,
		regime:     regime,
		chargeK:    chargeK,
		rebK:       rebK,
		byFamily:   make(map[Family]Segment, len(fams)),
		eqByFamily: make(map[RowFamily]RowSegment, len(eqFams)),
		inByFamily: make(map[RowFamily]RowSegment, 2),
	}

	base := 0
	for _, f := range fams {
		f.Base = base
		base += f.Size
		lay.families = append(lay.families, f)
		lay.byFamily[f.Family] = f
		if f.Family == EndReb {
			lay.endRebTop = base
		}
	}
	lay.stateSize = base

	base = 0
	for _, f := range eqFams {
		f.Base = base
		base += f.Size
		lay.eqFamilies = append(lay.eqFamilies, f)
		lay.eqByFamily[f.Family] = f
	}
	lay.numEq = base

	base = 0
	for _, f := range []RowSegment{
		{Family: RoadCongestion, Size: d.Thor * d.E},
		{Family: ChargerCongestion, Size: d.Thor * d.L},
	} {
		f.Base = base
		base += f.Size
		lay.inFamilies = append(lay.inFamilies, f)
		lay.inByFamily[f.Family] = f
	}
	lay.numIneq = base

	return lay
}

func (lay *layout) Regime() pkg.Regime     { return lay.regime }
func (lay *layout) Dims() *Dims            { return lay.d }
func (lay *layout) StateSize() int         { return lay.stateSize }
func (lay *layout) NumEqualityRows() int   { return lay.numEq }
func (lay *layout) NumInequalityRows() int { return lay.numIneq }

func (lay *layout) StateRange() Range {
	return Range{First: 1, Last: lay.endRebTop}
}

func (lay *layout) RelaxRange() Range {
	return Range{First: lay.endRebTop + 1, Last: lay.stateSize}
}

func (lay *layout) Families() []Segment {
	out := make([]Segment, len(lay.families))
	copy(out, lay.families)
	return out
}

func (lay *layout) EqualityFamilies() []RowSegment {
	out := make([]RowSegment, len(lay.eqFamilies))
	copy(out, lay.eqFamilies)
	return out
}

func (lay *layout) InequalityFamilies() []RowSegment {
	out := make([]RowSegment, len(lay.inFamilies))
	copy(out, lay.inFamilies)
	return out
}

func (lay *layout) regimeErr(accessor string) error {
	return &RegimeError{Accessor: accessor, Regime: lay.regime}
}

func (lay *layout) edgePos(family fmt.Stringer, i, j int) (int, error) {
	d := lay.d
	if err := checkRange(family, comp("i", i, 1, d.N), comp("j", j, 1, d.N)); err != nil {
		return 0, err
	}
	pos, ok := d.EdgePos(i, j)
	if !ok {
		return 0, &IndexRangeError{Family: family.String(), Component: "edge", Value: i, Head: j}
	}
	return pos, nil
}

func (lay *layout) RoadLinkReb(t, c, i, j int) (int, error) {
	d := lay.d
	if err := checkRange(RoadReb, comp("t", t, 1, d.Thor), comp("c", c, 1, d.C)); err != nil {
		return 0, err
	}
	pos, err := lay.edgePos(RoadReb, i, j)
	if err != nil {
		return 0, err
	}
	return lay.byFamily[RoadReb].Base + RoadRebOffset(t, c, pos, d.C, d.E), nil
}

func (lay *layout) charger(f Family, t, c, k, l int) (int, error) {
	d := lay.d
	if err := checkRange(f, comp("t", t, 1, d.Thor), comp("c", c, 1, d.C),
		comp("k", k, 1, lay.chargeK), comp("l", l, 1, d.L)); err != nil {
		return 0, err
	}
	return lay.byFamily[f].Base + ChargeOffset(t, c, k, l, d.C, lay.chargeK, d.L), nil
}

func (lay *layout) ChargeLinkReb(t, c, l int) (int, error) {
	return lay.charger(Charge, t, c, lay.rebK, l)
}

func (lay *layout) DischargeLinkReb(t, c, l int) (int, error) {
	return lay.charger(Discharge, t, c, lay.rebK, l)
}

func (lay *layout) sourceRange(f fmt.Stringer, k, s int) error {
	d := lay.d
	if err := checkRange(f, comp("k", k, 1, d.NumSinks)); err != nil {
		return err
	}
	return checkRange(f, comp("s", s, 1, d.NumSourcesPerSink[k-1]))
}

func (lay *layout) Source(c, k, s int) (int, error) {
	d := lay.d
	if err := checkRange(Source, comp("c", c, 1, d.C)); err != nil {
		return 0, err
	}
	if err := lay.sourceRange(Source, k, s); err != nil {
		return 0, err
	}
	return lay.byFamily[Source].Base + SourceOffset(c, k, s, d.CumNumSourcesPerSink, d.TotNumSources), nil
}

func (lay *layout) Sink(t, c, k int) (int, error) {
	d := lay.d
	if err := checkRange(Sink, comp("t", t, 1, d.Thor), comp("c", c, 1, d.C), comp("k", k, 1, d.M)); err != nil {
		return 0, err
	}
	return lay.byFamily[Sink].Base + SinkOffset(t, c, k, d.C, d.M), nil
}

func (lay *layout) EndReb(c, i int) (int, error) {
	d := lay.d
	if err := checkRange(EndReb, comp("c", c, 1, d.C), comp("i", i, 1, d.N)); err != nil {
		return 0, err
	}
	return lay.byFamily[EndReb].Base + EndRebOffset(c, i, d.N), nil
}

func (lay *layout) Relax(k, s int) (int, error) {
	d := lay.d
	if !d.Relaxation {
		return 0, &IndexRangeError{Family: Relax.String(), Component: "k", Value: k, Min: 1, Max: 0}
	}
	if err := lay.sourceRange(Relax, k, s); err != nil {
		return 0, err
	}
	return lay.byFamily[Relax].Base + RelaxOffset(k, s, d.CumNumSourcesPerSink), nil
}

func (lay *layout) RebConservationRow(t, c, i int) (int, error) {
	d := lay.d
	if err := checkRange(RebConservation, comp("t", t, 1, d.Thor), comp("c", c, 1, d.C), comp("i", i, 1, d.N)); err != nil {
		return 0, err
	}
	return lay.eqByFamily[RebConservation].Base + RebConservationOffset(t, c, i, d.C, d.N), nil
}

func (lay *layout) SourceConservationRow(k, s int) (int, error) {
	if err := lay.sourceRange(SourceConservation, k, s); err != nil {
		return 0, err
	}
	return lay.eqByFamily[SourceConservation].Base + SourceConservationOffset(k, s, lay.d.CumNumSourcesPerSink), nil
}

func (lay *layout) SinkConservationRow(k int) (int, error) {
	if err := checkRange(SinkConservation, comp("k", k, 1, lay.d.NumSinks)); err != nil {
		return 0, err
	}
	return lay.eqByFamily[SinkConservation].Base + SinkConservationOffset(k), nil
}

func (lay *layout) RoadCongestionRow(t, i, j int) (int, error) {
	d := lay.d
	if err := checkRange(RoadCongestion, comp("t", t, 1, d.Thor)); err != nil {
		return 0, err
	}
	pos, err := lay.edgePos(RoadCongestion, i, j)
	if err != nil {
		return 0, err
	}
	return lay.inByFamily[RoadCongestion].Base + RoadCongestionOffset(t, pos, d.E), nil
}

func (lay *layout) ChargerCongestionRow(t, l int) (int, error) {
	d := lay.d
	if err := checkRange(ChargerCongestion, comp("t", t, 1, d.Thor), comp("l", l, 1, d.L)); err != nil {
		return 0, err
	}
	return lay.inByFamily[ChargerCongestion].Base + ChargerCongestionOffset(t, l, d.L), nil
}
