package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"
)

const defaultTimeout = 1000 * time.Second

type Config struct {
	Port    int
	Timeout time.Duration

	RateLimit float64
	RateBurst int
	// RateLimitIdle drops the bucket of a client not seen for this long, 0 keeps buckets forever.
	RateLimitIdle time.Duration
	MaxBodyBytes  int64
	// TrustedProxies ips or CIDRs whose X-Real-IP / X-Forwarded-For headers are believed.
	TrustedProxies []string
}

// New wraps handler in an http.Server bound to config.Port. requests inherit ctx.
func New(ctx context.Context, handler http.Handler, config Config) *http.Server {
	if config.Timeout <= 0 {
		config.Timeout = defaultTimeout
	}
	return &http.Server{
		Addr:    fmt.Sprintf(":%d", config.Port),
		Handler: http.TimeoutHandler(handler, config.Timeout, "request timed out"),
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       time.Minute,
		WriteTimeout:      config.Timeout + 10*time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}
