package main

import (
	"context"
	"errors"
	"flag"

	"github.com/joho/godotenv"
	"github.com/lintang-b-s/amodpower/pkg/http"
	"github.com/lintang-b-s/amodpower/pkg/http/usecases"
	"github.com/lintang-b-s/amodpower/pkg/logger"
	"github.com/lintang-b-s/amodpower/pkg/solver"
	"github.com/lintang-b-s/amodpower/pkg/util"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	configDir     = flag.String("config", "./data/", "directory holding config.yaml")
	useRateLimit  = flag.Bool("rate_limit", true, "limit requests per client ip (API_RATE_LIMIT, API_RATE_BURST)")
	maxConcurrent = flag.Int("max_concurrent_solves", 2, "solves running at the same time")
)

func main() {
	flag.Parse()
	_ = godotenv.Load()

	if err := util.ReadConfig(*configDir); err != nil {
		panic(err)
	}
	logger, err := logger.NewWithLevel(viper.GetString("log.level"))
	if err != nil {
		panic(err)
	}

	solveService := usecases.NewSolveService(logger, solver.SimplexOptions{
		Tolerance:       viper.GetFloat64("solver.tolerance"),
		MaxDenseEntries: viper.GetInt("solver.max_dense_entries"),
		Perturbation:    viper.GetFloat64("solver.perturbation"),
		MaxIterations:   viper.GetInt("solver.max_iterations"),
		Timeout:         viper.GetDuration("solver.timeout"),
	}, viper.GetInt("routes.workers"), *maxConcurrent)

	ctx, cancel := context.WithCancel(context.Background())

	api := http.NewServer(logger)
	if _, err := api.Use(ctx, logger, *useRateLimit, solveService); err != nil {
		panic(err)
	}

	signal := http.GracefulShutdown()
	cancel()
	if err := api.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("API stopped with error", zap.Error(err))
	}

	logger.Info("amodpower server stopped", zap.String("signal", signal.String()))
}
