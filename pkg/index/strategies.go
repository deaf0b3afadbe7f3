package index

import "github.com/lintang-b-s/amodpower/pkg"

// standardScheme every sink bundle is its own passenger commodity 1..M routed through the
// network, M+1 is rebalancing.
type standardScheme struct {
	*layout
}

func newStandardScheme(d *Dims) *standardScheme {
	K := d.M + 1
	fams := []Segment{
		{Family: RoadPax, Size: RoadPaxSize(d)},
		{Family: RoadReb, Size: RoadRebSize(d)},
		{Family: Charge, Size: ChargeSize(d, K)},
		{Family: Discharge, Size: ChargeSize(d, K)},
		{Family: Source, Size: SourceSize(d)},
		{Family: Sink, Size: SinkSize(d)},
		{Family: EndReb, Size: EndRebSize(d)},
	}
	if d.Relaxation {
		fams = append(fams, Segment{Family: Relax, Size: RelaxSize(d)})
	}
	eq := []RowSegment{
		{Family: PaxConservation, Size: d.Thor * d.C * d.M * d.N},
		{Family: RebConservation, Size: d.Thor * d.C * d.N},
		{Family: SourceConservation, Size: d.TotNumSources},
		{Family: SinkConservation, Size: d.NumSinks},
	}
	return &standardScheme{layout: newLayout(d, pkg.STANDARD, K, K, fams, eq)}
}

func (s *standardScheme) RoadLink(t, c, k, i, j int) (int, error) {
	d := s.d
	if k == d.M+1 {
		return s.RoadLinkReb(t, c, i, j)
	}
	if err := checkRange(RoadPax, comp("t", t, 1, d.Thor), comp("c", c, 1, d.C), comp("k", k, 1, d.M+1)); err != nil {
		return 0, err
	}
	pos, err := s.edgePos(RoadPax, i, j)
	if err != nil {
		return 0, err
	}
	return s.byFamily[RoadPax].Base + RoadPaxOffset(t, c, k, pos, d.C, d.M, d.E), nil
}

func (s *standardScheme) ChargeLink(t, c, k, l int) (int, error) {
	return s.charger(Charge, t, c, k, l)
}

func (s *standardScheme) DischargeLink(t, c, k, l int) (int, error) {
	return s.charger(Discharge, t, c, k, l)
}

func (s *standardScheme) PaxConservationRow(t, c, k, i int) (int, error) {
	d := s.d
	if err := checkRange(PaxConservation, comp("t", t, 1, d.Thor), comp("c", c, 1, d.C),
		comp("k", k, 1, d.M), comp("i", i, 1, d.N)); err != nil {
		return 0, err
	}
	return s.eqByFamily[PaxConservation].Base + PaxConservationOffset(t, c, k, i, d.C, d.M, d.N), nil
}

func (s *standardScheme) CustomerChargeRow(t, c, k int) (int, error) {
	return 0, s.regimeErr("CustomerChargeRow")
}

func (s *standardScheme) Decode(idx int) (Tuple, error) {
	return s.decode(idx)
}

func (s *standardScheme) DecodeEqualityRow(row int) (RowTuple, error) {
	return s.decodeRow(row, s.eqFamilies, "equality")
}

func (s *standardScheme) DecodeInequalityRow(row int) (RowTuple, error) {
	return s.decodeRow(row, s.inFamilies, "inequality")
}

// realTimeScheme passengers are not routed in the network: a customer trip is a single
// source variable that jumps to the destination along the precomputed route. only the
// rebalancing commodity flows on road links and chargers.
type realTimeScheme struct {
	*layout
}

func newRealTimeScheme(d *Dims) *realTimeScheme {
	fams := []Segment{
		{Family: RoadReb, Size: RoadRebSize(d)},
		{Family: Charge, Size: ChargeSize(d, 1)},
		{Family: Discharge, Size: ChargeSize(d, 1)},
		{Family: Source, Size: SourceSize(d)},
		{Family: Sink, Size: SinkSize(d)},
		{Family: EndReb, Size: EndRebSize(d)},
	}
	if d.Relaxation {
		fams = append(fams, Segment{Family: Relax, Size: RelaxSize(d)})
	}
	eq := []RowSegment{
		{Family: RebConservation, Size: d.Thor * d.C * d.N},
		{Family: CustomerChargeConservation, Size: d.Thor * d.C * d.M},
		{Family: SourceConservation, Size: d.TotNumSources},
		{Family: SinkConservation, Size: d.NumSinks},
	}
	return &realTimeScheme{layout: newLayout(d, pkg.REAL_TIME, 1, 1, fams, eq)}
}

func (s *realTimeScheme) RoadLink(t, c, k, i, j int) (int, error) {
	return 0, s.regimeErr("RoadLink")
}

func (s *realTimeScheme) ChargeLink(t, c, k, l int) (int, error) {
	return 0, s.regimeErr("ChargeLink")
}

func (s *realTimeScheme) DischargeLink(t, c, k, l int) (int, error) {
	return 0, s.regimeErr("DischargeLink")
}

func (s *realTimeScheme) PaxConservationRow(t, c, k, i int) (int, error) {
	return 0, s.regimeErr("PaxConservationRow")
}

func (s *realTimeScheme) CustomerChargeRow(t, c, k int) (int, error) {
	d := s.d
	if err := checkRange(CustomerChargeConservation, comp("t", t, 1, d.Thor), comp("c", c, 1, d.C), comp("k", k, 1, d.M)); err != nil {
		return 0, err
	}
	return s.eqByFamily[CustomerChargeConservation].Base + CustomerChargeOffset(t, c, k, d.C, d.M), nil
}

func (s *realTimeScheme) Decode(idx int) (Tuple, error) {
	tu, err := s.decode(idx)
	if err != nil {
		return tu, err
	}
	if tu.Family == Charge || tu.Family == Discharge {
		tu.K = 0
	}
	return tu, nil
}

func (s *realTimeScheme) DecodeEqualityRow(row int) (RowTuple, error) {
	return s.decodeRow(row, s.eqFamilies, "equality")
}

func (s *realTimeScheme) DecodeInequalityRow(row int) (RowTuple, error) {
	return s.decodeRow(row, s.inFamilies, "inequality")
}
