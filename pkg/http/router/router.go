package router

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/justinas/alice"
	"github.com/lintang-b-s/amodpower/pkg/http/router/controllers"
	router_helper "github.com/lintang-b-s/amodpower/pkg/http/router/routerhelper"
	http_server "github.com/lintang-b-s/amodpower/pkg/http/server"
	"github.com/lintang-b-s/amodpower/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

type API struct {
	log *zap.Logger
}

func NewAPI(log *zap.Logger) *API {
	return &API{log: log}
}

// Handler the full middleware chain in front of the api routes.
func (api *API) Handler(config http_server.Config, useRateLimit bool, solveService controllers.SolveService) http.Handler {
	metrics.RegisterDefault()
	router := httprouter.New()

	corsHandler := cors.New(cors.Options{ //nolint:gocritic // ignore
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "X-Job-Id"},
		AllowCredentials: true,
		MaxAge:           300, //nolint:mnd // ignore
	})

	root := router_helper.NewRouteGroup(router, "/")
	root.Handler(http.MethodGet, "/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	group := root.Group("/api/v1")
	solveRoutes := controllers.New(solveService, api.log, config.MaxBodyBytes)
	solveRoutes.Routes(group)

	trusted, err := ParseTrustedProxies(config.TrustedProxies)
	if err != nil {
		api.log.Error("ignoring trusted proxies, forwarding headers are not honoured", zap.Error(err))
		trusted = nil
	}

	var mwChain []alice.Constructor
	mwChain = append(mwChain, corsHandler.Handler, EnforceJSONHandler, api.recoverPanic,
		RealIP(trusted), Heartbeat("/api/v1/healthz"), Logger(api.log, RouteLabel(router, root.Templates())))
	if useRateLimit {
		mwChain = append(mwChain, Limit(config.RateLimit, config.RateBurst, config.RateLimitIdle))
	}
	return alice.New(mwChain...).Then(router)
}

func (api *API) Run(
	ctx context.Context,
	config http_server.Config,
	useRateLimit bool,
	solveService controllers.SolveService,
) error {
	api.log.Info("Run httprouter API")

	srv := http_server.New(ctx, api.Handler(config, useRateLimit, solveService), config)
	api.log.Info(fmt.Sprintf("API run on port %d", config.Port))

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		api.log.Info("HTTP server stopped", zap.Error(err))
		return err
	case <-ctx.Done():
		api.log.Info("Context canceled, shutting down server")
		_ = srv.Shutdown(context.Background())
		return ctx.Err()
	}
}
