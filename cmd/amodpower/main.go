package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/lintang-b-s/amodpower/pkg/engine"
	"github.com/lintang-b-s/amodpower/pkg/logger"
	"github.com/lintang-b-s/amodpower/pkg/metrics"
	"github.com/lintang-b-s/amodpower/pkg/problem"
	"github.com/lintang-b-s/amodpower/pkg/solver"
	"github.com/lintang-b-s/amodpower/pkg/util"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	problemFile = flag.String("problem", "./data/problems/two_node.yaml", "problem file (.yaml or .json)")
	configDir   = flag.String("config", "./data/", "directory holding config.yaml")
	exportDir   = flag.String("export", "", "write the constraint matrices as bzip2 compressed CRS files into this directory")
)

func main() {
	flag.Parse()
	_ = godotenv.Load()

	if err := util.ReadConfig(*configDir); err != nil {
		panic(err)
	}
	log, err := logger.NewWithLevel(viper.GetString("log.level"))
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if err := run(log); err != nil {
		log.Error("amodpower failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	spec, err := problem.Load(*problemFile)
	if err != nil {
		return err
	}

	e, err := engine.NewEngine(ctx, spec, log, engine.Options{RouteWorkers: viper.GetInt("routes.workers")})
	if err != nil {
		return err
	}

	if *exportDir != "" {
		if err := os.MkdirAll(*exportDir, 0o755); err != nil {
			return err
		}
		if err := e.GetLinearProgram().WriteMatrices(*exportDir); err != nil {
			return err
		}
		log.Info("Exported constraint matrices", zap.String("dir", *exportDir))
	}

	s := solver.NewSimplexSolver(solver.SimplexOptions{
		Tolerance:       viper.GetFloat64("solver.tolerance"),
		MaxDenseEntries: viper.GetInt("solver.max_dense_entries"),
		Perturbation:    viper.GetFloat64("solver.perturbation"),
		MaxIterations:   viper.GetInt("solver.max_iterations"),
		Timeout:         viper.GetDuration("solver.timeout"),
	})
	sol, solveErr := e.Solve(ctx, s)

	if textfile := viper.GetString("metrics.textfile"); textfile != "" {
		if err := metrics.WriteTextfile(textfile); err != nil {
			log.Warn("failed to write metrics textfile", zap.Error(err))
		}
	}
	if solveErr != nil {
		return solveErr
	}

	log.Sugar().Infof("status=%s objective=%.6f served=%.3f/%.3f fleet=%.3f solveTime=%s",
		sol.Result.Status, sol.ObjectiveCost, sol.ServedDemand, sol.TotalDemand, sol.FleetSize, sol.Result.SolveTime)
	for family, flow := range sol.Flow {
		log.Info("family flow", zap.String("family", family), zap.Float64("flow", flow))
	}
	for _, rt := range sol.Relaxed {
		log.Warn("unserved demand", zap.Int("sink", rt.Sink), zap.Int("source", rt.Source), zap.Float64("amount", rt.Amount))
	}
	return nil
}
