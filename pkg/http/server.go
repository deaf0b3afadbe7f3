package http

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	http_router "github.com/lintang-b-s/amodpower/pkg/http/router"
	"github.com/lintang-b-s/amodpower/pkg/http/router/controllers"
	http_server "github.com/lintang-b-s/amodpower/pkg/http/server"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Server struct {
	Log *zap.Logger
	g   *errgroup.Group
}

func NewServer(log *zap.Logger) *Server {
	return &Server{Log: log}
}

// ConfigFromViper reads the API_* keys, see util.SetConfigDefaults.
func ConfigFromViper() http_server.Config {
	return http_server.Config{
		Port:           viper.GetInt("API_PORT"),
		Timeout:        viper.GetDuration("API_TIMEOUT"),
		RateLimit:      viper.GetFloat64("API_RATE_LIMIT"),
		RateBurst:      viper.GetInt("API_RATE_BURST"),
		RateLimitIdle:  viper.GetDuration("API_RATE_LIMIT_IDLE"),
		MaxBodyBytes:   viper.GetInt64("API_MAX_BODY_BYTES"),
		TrustedProxies: viper.GetStringSlice("API_TRUSTED_PROXIES"),
	}
}

// Use starts the api in the background, Wait blocks until it stops.
func (s *Server) Use(
	ctx context.Context,
	log *zap.Logger,

	useRateLimit bool,
	solveService controllers.SolveService,
) (*Server, error) {
	config := ConfigFromViper()

	server := http_router.NewAPI(log)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(ctx, config, useRateLimit, solveService)
	})
	s.g = g

	return s, nil
}

func (s *Server) Wait() error {
	if s.g == nil {
		return nil
	}
	return s.g.Wait()
}

// GracefulShutdown blocks until SIGINT or SIGTERM.
func GracefulShutdown() os.Signal {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	return <-quit
}
