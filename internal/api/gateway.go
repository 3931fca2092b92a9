package api

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

// Gateway forwards /api/{service}/* to the upstream registered for service,
// stripping the /api/{service} prefix.
type Gateway struct {
	proxies map[string]*httputil.ReverseProxy
	log     logrus.FieldLogger
}

func NewGateway(routes map[string]string, log logrus.FieldLogger) (*Gateway, error) {
	g := &Gateway{
		proxies: make(map[string]*httputil.ReverseProxy, len(routes)),
		log:     log,
	}

	for name, raw := range routes {
		target, err := url.Parse(raw)
		if err != nil || target.Scheme == "" || target.Host == "" {
			return nil, fmt.Errorf("gateway route %q: invalid upstream %q", name, raw)
		}
		g.proxies[name] = g.newProxy(name, target)
	}
	return g, nil
}

func (g *Gateway) newProxy(name string, target *url.URL) *httputil.ReverseProxy {
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
			pr.Out.Header.Set("X-Request-ID", GetRequestID(pr.In.Context()))
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			g.log.WithError(err).WithFields(logrus.Fields{
				"service":    name,
				"request_id": GetRequestID(r.Context()),
			}).Warn("upstream unreachable")
			writeError(w, http.StatusServiceUnavailable, "service_unavailable",
				fmt.Sprintf("service %s is not reachable", name))
		},
	}
}

// Services lists the configured route names.
func (g *Gateway) Services() []string {
	names := make([]string, 0, len(g.proxies))
	for name := range g.proxies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	service := chi.URLParam(r, "service")
	proxy, ok := g.proxies[service]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown_service", fmt.Sprintf("service %q not found", service))
		return
	}

	out := r.Clone(r.Context())
	out.URL.Path = "/" + strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	out.URL.RawPath = ""
	proxy.ServeHTTP(w, out)
}
