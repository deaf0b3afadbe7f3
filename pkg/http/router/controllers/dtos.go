package controllers

import (
	"github.com/lintang-b-s/amodpower/pkg/engine"
	"github.com/lintang-b-s/amodpower/pkg/solver"
	"github.com/lintang-b-s/amodpower/pkg/util"
)

type relaxedTripResponse struct {
	Sink   int     `json:"sink"`
	Source int     `json:"source"`
	Amount float64 `json:"amount"`
}

type assignmentResponse struct {
	Index  int     `json:"index"`
	Family string  `json:"family"`
	T      int     `json:"t,omitempty"`
	C      int     `json:"c,omitempty"`
	K      int     `json:"k,omitempty"`
	I      int     `json:"i,omitempty"`
	J      int     `json:"j,omitempty"`
	L      int     `json:"l,omitempty"`
	S      int     `json:"s,omitempty"`
	Value  float64 `json:"value"`
}

type diagnosticsResponse struct {
	Rows                 int    `json:"rows"`
	Columns              int    `json:"columns"`
	FixedColumns         int    `json:"fixed_columns"`
	DroppedZeroRows      int    `json:"dropped_zero_rows"`
	DroppedZeroColumns   int    `json:"dropped_zero_columns"`
	DroppedDependentRows int    `json:"dropped_dependent_rows"`
	Message              string `json:"message,omitempty"`
}

type solveResponse struct {
	JobID        string                `json:"job_id"`
	Status       string                `json:"status"`
	Objective    float64               `json:"objective"`
	SolveTimeMs  float64               `json:"solve_time_ms"`
	ServedDemand float64               `json:"served_demand"`
	TotalDemand  float64               `json:"total_demand"`
	FleetSize    float64               `json:"fleet_size"`
	Flow         map[string]float64    `json:"flow"`
	Relaxed      []relaxedTripResponse `json:"relaxed"`
	Assignments  []assignmentResponse  `json:"assignments,omitempty"`
	Diagnostics  diagnosticsResponse   `json:"diagnostics"`
}

func newDiagnosticsResponse(d solver.Diagnostics) diagnosticsResponse {
	return diagnosticsResponse{
		Rows:                 d.Rows,
		Columns:              d.Columns,
		FixedColumns:         d.FixedColumns,
		DroppedZeroRows:      d.DroppedZeroRows,
		DroppedZeroColumns:   d.DroppedZeroColumns,
		DroppedDependentRows: d.DroppedDependentRows,
		Message:              d.Message,
	}
}

func NewSolveResponse(jobID string, sol *engine.Solution, withAssignments bool) solveResponse {
	res := solveResponse{
		JobID:        jobID,
		Status:       sol.Result.Status.String(),
		Objective:    sol.ObjectiveCost,
		SolveTimeMs:  util.RoundFloat(float64(sol.Result.SolveTime.Microseconds())/1000, 3),
		ServedDemand: sol.ServedDemand,
		TotalDemand:  sol.TotalDemand,
		FleetSize:    sol.FleetSize,
		Flow:         sol.Flow,
		Relaxed:      make([]relaxedTripResponse, 0, len(sol.Relaxed)),
		Diagnostics:  newDiagnosticsResponse(sol.Result.Diagnostics),
	}
	for _, rt := range sol.Relaxed {
		res.Relaxed = append(res.Relaxed, relaxedTripResponse{Sink: rt.Sink, Source: rt.Source, Amount: rt.Amount})
	}
	if withAssignments {
		res.Assignments = make([]assignmentResponse, 0, len(sol.Assignments))
		for _, a := range sol.Assignments {
			tu := a.Tuple
			res.Assignments = append(res.Assignments, assignmentResponse{
				Index: a.Index, Family: tu.Family.String(),
				T: tu.T, C: tu.C, K: tu.K, I: tu.I, J: tu.J, L: tu.L, S: tu.S,
				Value: a.Value,
			})
		}
	}
	return res
}

// solverFailureResponse body of a solve that ended without an optimum.
type solverFailureResponse struct {
	JobID       string              `json:"job_id"`
	Status      string              `json:"status"`
	Diagnostics diagnosticsResponse `json:"diagnostics"`
}

func newSolverFailureResponse(jobID string, serr *solver.SolverError) solverFailureResponse {
	return solverFailureResponse{
		JobID:       jobID,
		Status:      serr.Status.String(),
		Diagnostics: newDiagnosticsResponse(serr.Diagnostics),
	}
}
