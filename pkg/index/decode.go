package index

func (lay *layout) decode(idx int) (Tuple, error) {
	d := lay.d
	if idx < 1 || idx > lay.stateSize {
		return Tuple{}, &IndexRangeError{Family: "state", Component: "idx", Value: idx, Min: 1, Max: lay.stateSize}
	}

	var seg Segment
	for _, f := range lay.families {
		if f.Range().Contains(idx) {
			seg = f
			break
		}
	}
	o := idx - seg.Base - 1 // 0-based within the family
	tu := Tuple{Family: seg.Family}

	switch seg.Family {
	case RoadPax:
		pos := o%d.E + 1
		o /= d.E
		tu.K = o%d.M + 1
		o /= d.M
		tu.C = o%d.C + 1
		tu.T = o/d.C + 1
		tu.I, tu.J = d.EdgeAt(pos)
	case RoadReb:
		pos := o%d.E + 1
		o /= d.E
		tu.C = o%d.C + 1
		tu.T = o/d.C + 1
		tu.I, tu.J = d.EdgeAt(pos)
	case Charge, Discharge:
		tu.L = o%d.L + 1
		o /= d.L
		tu.K = o%lay.chargeK + 1
		o /= lay.chargeK
		tu.C = o%d.C + 1
		tu.T = o/d.C + 1
	case Source:
		tu.C = o/d.TotNumSources + 1
		tu.K, tu.S = d.sinkOfSource(o % d.TotNumSources)
	case Sink:
		tu.K = o%d.M + 1
		o /= d.M
		tu.C = o%d.C + 1
		tu.T = o/d.C + 1
	case EndReb:
		tu.I = o%d.N + 1
		tu.C = o/d.N + 1
	case Relax:
		tu.K, tu.S = d.sinkOfSource(o)
	}
	return tu, nil
}

func (lay *layout) decodeRow(row int, segs []RowSegment, space string) (RowTuple, error) {
	d := lay.d
	total := 0
	if len(segs) > 0 {
		total = segs[len(segs)-1].Range().Last
	}
	if row < 1 || row > total {
		return RowTuple{}, &IndexRangeError{Family: space, Component: "row", Value: row, Min: 1, Max: total}
	}

	var seg RowSegment
	for _, f := range segs {
		if f.Range().Contains(row) {
			seg = f
			break
		}
	}
	o := row - seg.Base - 1
	rt := RowTuple{Family: seg.Family}

	switch seg.Family {
	case PaxConservation:
		rt.I = o%d.N + 1
		o /= d.N
		rt.K = o%d.M + 1
		o /= d.M
		rt.C = o%d.C + 1
		rt.T = o/d.C + 1
	case RebConservation:
		rt.I = o%d.N + 1
		o /= d.N
		rt.C = o%d.C + 1
		rt.T = o/d.C + 1
	case CustomerChargeConservation:
		rt.K = o%d.M + 1
		o /= d.M
		rt.C = o%d.C + 1
		rt.T = o/d.C + 1
	case SourceConservation:
		rt.K, rt.S = d.sinkOfSource(o)
	case SinkConservation:
		rt.K = o + 1
	case RoadCongestion:
		pos := o%d.E + 1
		rt.T = o/d.E + 1
		rt.I, rt.J = d.EdgeAt(pos)
	case ChargerCongestion:
		rt.L = o%d.L + 1
		rt.T = o/d.L + 1
	}
	return rt, nil
}
