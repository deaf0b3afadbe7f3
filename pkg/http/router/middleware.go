package router

import (
	"fmt"
	"mime"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/justinas/alice"
	router_helper "github.com/lintang-b-s/amodpower/pkg/http/router/routerhelper"
	"github.com/lintang-b-s/amodpower/pkg/metrics"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// EnforceJSONHandler rejects request bodies that are not application/json.
func EnforceJSONHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			contentType := r.Header.Get("Content-Type")
			if contentType == "" {
				http.Error(w, "Content-Type header must be application/json", http.StatusUnsupportedMediaType)
				return
			}
			mt, _, err := mime.ParseMediaType(contentType)
			if err != nil || mt != "application/json" {
				http.Error(w, "Content-Type header must be application/json", http.StatusUnsupportedMediaType)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (api *API) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				w.Header().Set("Connection", "close")
				api.log.Error("panic while serving request", zap.String("path", r.URL.Path), zap.Error(fmt.Errorf("%v", err)))
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// ParseTrustedProxies reads proxy addresses as CIDRs or single ips.
func ParseTrustedProxies(list []string) ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(list))
	for _, entry := range list {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			p, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("trusted proxy %q: %w", entry, err)
			}
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", entry, err)
		}
		prefixes = append(prefixes, netip.PrefixFrom(addr.Unmap(), addr.Unmap().BitLen()))
	}
	return prefixes, nil
}

func hostOf(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}

func isTrusted(trusted []netip.Prefix, host string) bool {
	addr, err := netip.ParseAddr(strings.TrimSpace(host))
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// RealIP rewrites r.RemoteAddr from X-Real-IP or X-Forwarded-For, only for requests whose
// peer is a trusted proxy. X-Forwarded-For is walked right to left past trusted hops.
func RealIP(trusted []netip.Prefix) alice.Constructor {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(trusted) == 0 || !isTrusted(trusted, hostOf(r.RemoteAddr)) {
				next.ServeHTTP(w, r)
				return
			}
			if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
				r.RemoteAddr = ip
			} else if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
				hops := strings.Split(xff, ",")
				for i := len(hops) - 1; i >= 0; i-- {
					hop := strings.TrimSpace(hops[i])
					if hop == "" {
						continue
					}
					r.RemoteAddr = hop
					if !isTrusted(trusted, hop) {
						break
					}
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Heartbeat answers GET endpoint with 200 before the rest of the chain runs.
func Heartbeat(endpoint string) alice.Constructor {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == endpoint {
				w.Header().Set("Content-Type", "text/plain")
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte("."))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

// Logger logs one line per request and records the request metrics under route(r).
func Logger(log *zap.Logger, route func(r *http.Request) string) alice.Constructor {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			elapsed := time.Since(start)

			status := strconv.Itoa(rec.status)
			label := route(r)
			metrics.HTTPRequests.WithLabelValues(r.Method, label, status).Inc()
			metrics.HTTPDuration.WithLabelValues(r.Method, label, status).Observe(elapsed.Seconds())

			log.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("route", label),
				zap.String("remote", r.RemoteAddr),
				zap.Int("status", rec.status),
				zap.Int("bytes", rec.bytes),
				zap.Duration("duration", elapsed))
		})
	}
}

// otherRoute labels every request that no registered route serves.
const otherRoute = "other"

// RouteLabel maps a request onto the template of the route serving it, otherRoute when none does.
func RouteLabel(router *httprouter.Router, templates *router_helper.Templates) func(r *http.Request) string {
	return func(r *http.Request) string {
		handle, params, _ := router.Lookup(r.Method, r.URL.Path)
		if handle == nil {
			return otherRoute
		}
		if tpl, ok := templates.Match(r.Method, r.URL.Path, params); ok {
			return tpl
		}
		return otherRoute
	}
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clientLimiters one token bucket per client ip. buckets idle longer than idle are dropped,
// swept at most once per idle period.
type clientLimiters struct {
	mu        sync.Mutex
	clients   map[string]*client
	limit     rate.Limit
	burst     int
	idle      time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func newClientLimiters(limit float64, burst int, idle time.Duration, now func() time.Time) *clientLimiters {
	return &clientLimiters{
		clients:   make(map[string]*client),
		limit:     rate.Limit(limit),
		burst:     burst,
		idle:      idle,
		lastSweep: now(),
		now:       now,
	}
}

func (cl *clientLimiters) get(ip string) *rate.Limiter {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	now := cl.now()
	if cl.idle > 0 && now.Sub(cl.lastSweep) >= cl.idle {
		for key, c := range cl.clients {
			if now.Sub(c.lastSeen) >= cl.idle {
				delete(cl.clients, key)
			}
		}
		cl.lastSweep = now
	}

	c, ok := cl.clients[ip]
	if !ok {
		c = &client{limiter: rate.NewLimiter(cl.limit, cl.burst)}
		cl.clients[ip] = c
	}
	c.lastSeen = now
	return c.limiter
}

func (cl *clientLimiters) size() int {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return len(cl.clients)
}

func limitWith(cl *clientLimiters) alice.Constructor {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cl.get(hostOf(r.RemoteAddr)).Allow() {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Limit token bucket per client ip, a client idle for idle starts over with a full bucket.
func Limit(limit float64, burst int, idle time.Duration) alice.Constructor {
	return limitWith(newClientLimiters(limit, burst, idle, time.Now))
}
