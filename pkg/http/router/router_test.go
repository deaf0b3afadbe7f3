package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	router_helper "github.com/lintang-b-s/amodpower/pkg/http/router/routerhelper"
	http_server "github.com/lintang-b-s/amodpower/pkg/http/server"
	"github.com/lintang-b-s/amodpower/pkg/http/usecases"
	"github.com/lintang-b-s/amodpower/pkg/metrics"
	"github.com/lintang-b-s/amodpower/pkg/solver"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const twoNodeProblem = `{
	"num_nodes": 2,
	"horizon": 2,
	"charge_levels": 1,
	"edges": [{"from": 1, "to": 2, "travel_time": 1, "capacity": 5}],
	"sinks": [{"node": 2, "sources": [{"node": 1, "start_time": 1, "demand": 1}]}],
	"initial_vehicles": [%VEHICLES%]
}`

func problemBody(vehicles string) string {
	return strings.Replace(twoNodeProblem, "%VEHICLES%", vehicles, 1)
}

func newTestHandler(useRateLimit bool, burst int) http.Handler {
	log := zap.NewNop()
	service := usecases.NewSolveService(log, solver.DefaultSimplexOptions(), 1, 2)
	config := http_server.Config{
		Port:           0,
		Timeout:        time.Minute,
		RateLimit:      0.001,
		RateBurst:      burst,
		RateLimitIdle:  time.Minute,
		MaxBodyBytes:   1 << 20,
		TrustedProxies: []string{"192.168.0.0/16"},
	}
	return NewAPI(log).Handler(config, useRateLimit, service)
}

func postSolve(t *testing.T, h http.Handler, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSolveEndpoint(t *testing.T) {
	h := newTestHandler(false, 0)

	testCases := []struct {
		name       string
		target     string
		body       string
		wantStatus int
		check      func(t *testing.T, body map[string]any)
	}{
		{
			name:       "optimal",
			target:     "/api/v1/solve?assignments=true",
			body:       problemBody(`{"node": 1, "charge": 1, "count": 1}`),
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				data := body["data"].(map[string]any)
				assert.Equal(t, "optimal", data["status"])
				assert.InDelta(t, 1, data["objective"].(float64), 1e-7)
				assert.InDelta(t, 1, data["served_demand"].(float64), 1e-7)
				assert.NotEmpty(t, data["job_id"])
				assert.NotEmpty(t, data["assignments"])
			},
		},
		{
			name:       "infeasible",
			target:     "/api/v1/solve",
			body:       problemBody(""),
			wantStatus: http.StatusUnprocessableEntity,
			check: func(t *testing.T, body map[string]any) {
				data := body["data"].(map[string]any)
				assert.Equal(t, "infeasible", data["status"])
			},
		},
		{
			name:       "validation error",
			target:     "/api/v1/solve",
			body:       `{"horizon": 2, "charge_levels": 1, "sinks": [{"node": 2, "sources": [{"node": 1, "start_time": 1, "demand": 1}]}]}`,
			wantStatus: http.StatusBadRequest,
			check: func(t *testing.T, body map[string]any) {
				e := body["error"].(map[string]any)
				assert.Equal(t, "BAD_REQUEST", e["code"])
				assert.Contains(t, e["message"], "NumNodes")
			},
		},
		{
			name:       "invalid spec",
			target:     "/api/v1/solve",
			body:       strings.Replace(problemBody(`{"node": 1, "charge": 1, "count": 1}`), `"to": 2`, `"to": 7`, 1),
			wantStatus: http.StatusBadRequest,
			check: func(t *testing.T, body map[string]any) {
				e := body["error"].(map[string]any)
				assert.Contains(t, e["message"], "edges[0]")
			},
		},
		{
			name:       "unknown field",
			target:     "/api/v1/solve",
			body:       `{"num_nodes": 2, "fleet": 3}`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postSolve(t, h, tc.target, tc.body)
			require.Equal(t, tc.wantStatus, rec.Code, rec.Body.String())
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			if tc.check != nil {
				tc.check(t, body)
			}
		})
	}
}

func TestSolveRequiresJSON(t *testing.T) {
	h := newTestHandler(false, 0)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/solve", strings.NewReader("num_nodes: 2"))
	req.Header.Set("Content-Type", "application/yaml")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestHealthzAndMetrics(t *testing.T) {
	h := newTestHandler(false, 0)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	postSolve(t, h, "/api/v1/solve", problemBody(`{"node": 1, "charge": 1, "count": 1}`))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "amodpower_solves_total")
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestRateLimit(t *testing.T) {
	testCases := []struct {
		name      string
		remote    string
		forwarded []string
		wantCodes []int
	}{
		{
			name:      "same client",
			remote:    "10.0.0.1:1234",
			forwarded: []string{"", ""},
			wantCodes: []int{http.StatusOK, http.StatusTooManyRequests},
		},
		{
			name:      "untrusted peer cannot rotate X-Forwarded-For",
			remote:    "10.0.0.2:1234",
			forwarded: []string{"1.1.1.1", "2.2.2.2"},
			wantCodes: []int{http.StatusOK, http.StatusTooManyRequests},
		},
		{
			name:      "clients behind a trusted proxy get their own bucket",
			remote:    "192.168.1.1:80",
			forwarded: []string{"3.3.3.3", "4.4.4.4"},
			wantCodes: []int{http.StatusOK, http.StatusOK},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestHandler(true, 1)
			for k, fwd := range tc.forwarded {
				req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
				req.RemoteAddr = tc.remote
				if fwd != "" {
					req.Header.Set("X-Forwarded-For", fwd)
				}
				rec := httptest.NewRecorder()
				h.ServeHTTP(rec, req)
				assert.Equal(t, tc.wantCodes[k], rec.Code, "request %d", k)
			}
		})
	}
}

func TestRealIP(t *testing.T) {
	trusted, err := ParseTrustedProxies([]string{"10.0.0.0/8", "192.168.1.1"})
	require.NoError(t, err)

	testCases := []struct {
		name    string
		trusted []netip.Prefix
		remote  string
		headers map[string]string
		want    string
	}{
		{
			name:    "no trusted proxies",
			remote:  "10.1.1.1:80",
			headers: map[string]string{"X-Real-IP": "5.5.5.5"},
			want:    "10.1.1.1:80",
		},
		{
			name:    "untrusted peer",
			trusted: trusted,
			remote:  "8.8.8.8:80",
			headers: map[string]string{"X-Real-IP": "5.5.5.5", "X-Forwarded-For": "6.6.6.6"},
			want:    "8.8.8.8:80",
		},
		{
			name:    "trusted peer with X-Real-IP",
			trusted: trusted,
			remote:  "192.168.1.1:80",
			headers: map[string]string{"X-Real-IP": "5.5.5.5"},
			want:    "5.5.5.5",
		},
		{
			name:    "forwarded chain skips trusted hops",
			trusted: trusted,
			remote:  "10.0.0.1:80",
			headers: map[string]string{"X-Forwarded-For": "9.9.9.9, 7.7.7.7, 10.0.0.9"},
			want:    "7.7.7.7",
		},
		{
			name:    "forwarded chain of trusted hops only",
			trusted: trusted,
			remote:  "10.0.0.1:80",
			headers: map[string]string{"X-Forwarded-For": "10.0.0.3, 10.0.0.2"},
			want:    "10.0.0.3",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var got string
			h := RealIP(tc.trusted)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r.RemoteAddr
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remote
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseTrustedProxies(t *testing.T) {
	testCases := []struct {
		name    string
		list    []string
		want    []string
		wantErr bool
	}{
		{name: "empty", list: nil, want: []string{}},
		{name: "ips and cidrs", list: []string{"10.1.2.3/8", " 127.0.0.1 ", "::1", ""}, want: []string{"10.0.0.0/8", "127.0.0.1/32", "::1/128"}},
		{name: "invalid cidr", list: []string{"10.0.0.0/40"}, wantErr: true},
		{name: "invalid ip", list: []string{"proxy.local"}, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseTrustedProxies(tc.list)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			gotStr := make([]string, 0, len(got))
			for _, p := range got {
				gotStr = append(gotStr, p.String())
			}
			assert.Equal(t, tc.want, gotStr)
		})
	}
}

func TestClientLimitersEvictIdle(t *testing.T) {
	var mu sync.Mutex
	now := time.Unix(0, 0)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	advance := func(d time.Duration) {
		mu.Lock()
		now = now.Add(d)
		mu.Unlock()
	}

	cl := newClientLimiters(1, 1, time.Minute, clock)
	a := cl.get("1.1.1.1")
	cl.get("2.2.2.2")
	assert.Equal(t, 2, cl.size())
	assert.True(t, a.Allow())
	assert.False(t, a.Allow())

	advance(30 * time.Second)
	cl.get("1.1.1.1")
	assert.Equal(t, 2, cl.size())

	// 2.2.2.2 has been idle for a full minute, 1.1.1.1 for half of one
	advance(30 * time.Second)
	cl.get("3.3.3.3")
	assert.Equal(t, 2, cl.size())

	advance(2 * time.Minute)
	fresh := cl.get("1.1.1.1")
	assert.Equal(t, 1, cl.size())
	assert.NotSame(t, a, fresh)
}

func TestRequestMetricsUseRouteTemplate(t *testing.T) {
	h := newTestHandler(false, 0)
	metrics.RegisterDefault()

	otherBefore := testutil.ToFloat64(metrics.HTTPRequests.WithLabelValues(http.MethodGet, "other", "404"))
	solveBefore := testutil.ToFloat64(metrics.HTTPRequests.WithLabelValues(http.MethodPost, "/api/v1/solve", "200"))

	for _, path := range []string{"/a", "/b/c", "/api/v1/solve/x"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	}
	rec := postSolve(t, h, "/api/v1/solve", problemBody(`{"node": 1, "charge": 1, "count": 1}`))
	require.Equal(t, http.StatusOK, rec.Code)

	assert.InDelta(t, otherBefore+3, testutil.ToFloat64(metrics.HTTPRequests.WithLabelValues(http.MethodGet, "other", "404")), 1e-9)
	assert.InDelta(t, solveBefore+1, testutil.ToFloat64(metrics.HTTPRequests.WithLabelValues(http.MethodPost, "/api/v1/solve", "200")), 1e-9)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.NotContains(t, rec.Body.String(), `route="/b/c"`)
}

func TestRouteLabel(t *testing.T) {
	router := httprouter.New()
	noop := func(http.ResponseWriter, *http.Request, httprouter.Params) {}
	root := router_helper.NewRouteGroup(router, "/")
	jobs := root.Group("/jobs")
	jobs.GET("/:id", noop)
	jobs.GET("/:id/flows/:family", noop)
	root.Group("/static").GET("/*file", noop)
	root.Group("/api/v1").POST("/solve", noop)
	label := RouteLabel(router, root.Templates())

	testCases := []struct {
		method string
		path   string
		want   string
	}{
		{method: http.MethodGet, path: "/jobs/42", want: "/jobs/:id"},
		{method: http.MethodGet, path: "/jobs/j", want: "/jobs/:id"},
		{method: http.MethodGet, path: "/jobs/jobs/flows/RoadPax", want: "/jobs/:id/flows/:family"},
		{method: http.MethodGet, path: "/static/css/site.css", want: "/static/*file"},
		{method: http.MethodPost, path: "/api/v1/solve", want: "/api/v1/solve"},
		{method: http.MethodGet, path: "/api/v1/solve", want: "other"},
		{method: http.MethodGet, path: "/unknown/path", want: "other"},
	}

	for _, tc := range testCases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			assert.Equal(t, tc.want, label(httptest.NewRequest(tc.method, tc.path, nil)))
		})
	}
}
