package routerhelper

import (
	"net/http"
	"path"
	"strings"
	"sync"

	"github.com/julienschmidt/httprouter"
)

// Templates remembers every route path registered through a RouteGroup, per method.
type Templates struct {
	mu     sync.RWMutex
	byVerb map[string][]string
}

func newTemplates() *Templates {
	return &Templates{byVerb: make(map[string][]string)}
}

func (ts *Templates) add(method, p string) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.byVerb[method] = append(ts.byVerb[method], p)
}

// Match returns the registered template that yields urlPath once params are filled in.
func (ts *Templates) Match(method, urlPath string, params httprouter.Params) (string, bool) {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	for _, tpl := range ts.byVerb[method] {
		segs := strings.Split(tpl, "/")
		for i, s := range segs {
			switch {
			case strings.HasPrefix(s, ":"):
				segs[i] = params.ByName(s[1:])
			case strings.HasPrefix(s, "*"):
				segs[i] = strings.TrimPrefix(params.ByName(s[1:]), "/")
			}
		}
		if strings.Join(segs, "/") == urlPath {
			return tpl, true
		}
	}
	return "", false
}

// RouteGroup registers httprouter handles under a common path prefix.
type RouteGroup struct {
	router    *httprouter.Router
	prefix    string
	templates *Templates
}

func NewRouteGroup(router *httprouter.Router, prefix string) *RouteGroup {
	return &RouteGroup{router: router, prefix: prefix, templates: newTemplates()}
}

func (g *RouteGroup) Group(prefix string) *RouteGroup {
	return &RouteGroup{router: g.router, prefix: g.path(prefix), templates: g.templates}
}

// Templates is shared by a group and every group derived from it.
func (g *RouteGroup) Templates() *Templates {
	return g.templates
}

func (g *RouteGroup) GET(p string, handle httprouter.Handle) {
	g.Handle(http.MethodGet, p, handle)
}

func (g *RouteGroup) POST(p string, handle httprouter.Handle) {
	g.Handle(http.MethodPost, p, handle)
}

func (g *RouteGroup) Handle(method, p string, handle httprouter.Handle) {
	full := g.path(p)
	g.templates.add(method, full)
	g.router.Handle(method, full, handle)
}

func (g *RouteGroup) Handler(method, p string, handler http.Handler) {
	full := g.path(p)
	g.templates.add(method, full)
	g.router.Handler(method, full, handler)
}

func (g *RouteGroup) path(p string) string {
	return path.Join(g.prefix, p)
}
