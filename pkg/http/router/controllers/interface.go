package controllers

import (
	"context"

	"github.com/lintang-b-s/amodpower/pkg/engine"
	"github.com/lintang-b-s/amodpower/pkg/problem"
)

type SolveService interface {
	Solve(ctx context.Context, jobID string, cfg *problem.ProblemConfig) (*engine.Solution, error)
}
