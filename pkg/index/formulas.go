package index

// offset formulas, 1-based within their family. every argument is already range checked.
// K is the number of commodities a charger family carries (M+1 standard, 1 real-time).

func RoadPaxOffset(t, c, k, pos, C, M, E int) int {
	return (t-1)*C*M*E + (c-1)*M*E + (k-1)*E + pos
}

func RoadRebOffset(t, c, pos, C, E int) int {
	return (t-1)*C*E + (c-1)*E + pos
}

func ChargeOffset(t, c, k, l, C, K, L int) int {
	return (t-1)*C*K*L + (c-1)*K*L + (k-1)*L + l
}

func SourceOffset(c, k, s int, cum []int, totNumSources int) int {
	return (c-1)*totNumSources + cum[k-1] + s
}

func SinkOffset(t, c, k, C, M int) int {
	return (t-1)*C*M + (c-1)*M + k
}

func EndRebOffset(c, i, N int) int {
	return (c-1)*N + i
}

func RelaxOffset(k, s int, cum []int) int {
	return cum[k-1] + s
}

func PaxConservationOffset(t, c, k, i, C, M, N int) int {
	return (t-1)*C*M*N + (c-1)*M*N + (k-1)*N + i
}

func RebConservationOffset(t, c, i, C, N int) int {
	return (t-1)*C*N + (c-1)*N + i
}

func CustomerChargeOffset(t, c, k, C, M int) int {
	return (t-1)*C*M + (c-1)*M + k
}

func SourceConservationOffset(k, s int, cum []int) int {
	return cum[k-1] + s
}

func SinkConservationOffset(k int) int {
	return k
}

func RoadCongestionOffset(t, pos, E int) int {
	return (t-1)*E + pos
}

func ChargerCongestionOffset(t, l, L int) int {
	return (t-1)*L + l
}

// family sizes

func RoadPaxSize(d *Dims) int       { return d.Thor * d.C * d.M * d.E }
func RoadRebSize(d *Dims) int       { return d.Thor * d.C * d.E }
func ChargeSize(d *Dims, K int) int { return d.Thor * d.C * K * d.L }
func SourceSize(d *Dims) int        { return d.C * d.TotNumSources }
func SinkSize(d *Dims) int          { return d.Thor * d.C * d.M }
func EndRebSize(d *Dims) int        { return d.C * d.N }

func RelaxSize(d *Dims) int {
	if !d.Relaxation {
		return 0
	}
	return d.TotNumSources
}
