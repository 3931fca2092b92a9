package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGatewayServer(t *testing.T, routes map[string]string) *httptest.Server {
	t.Helper()
	logger, _ := test.NewNullLogger()

	gw, err := NewGateway(routes, logger)
	require.NoError(t, err)

	srv := httptest.NewServer(NewGatewayRouter(RouterConfig{Log: logger}, gw))
	t.Cleanup(srv.Close)
	return srv
}

func TestGatewayForwardsStrippedPath(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"path":      r.URL.Path,
			"query":     r.URL.RawQuery,
			"requestId": r.Header.Get("X-Request-ID"),
		})
	}))
	defer upstream.Close()

	srv := newGatewayServer(t, map[string]string{"registry": upstream.URL})

	var echoed map[string]string
	require.Equal(t, http.StatusOK, call(t, http.MethodGet, srv.URL+"/api/registry/patients/search?q=ana", nil, &echoed))
	assert.Equal(t, "/patients/search", echoed["path"])
	assert.Equal(t, "q=ana", echoed["query"])
	assert.NotEmpty(t, echoed["requestId"])

	var services map[string][]string
	require.Equal(t, http.StatusOK, call(t, http.MethodGet, srv.URL+"/api", nil, &services))
	assert.Equal(t, []string{"registry"}, services["services"])
}

func TestGatewayUnknownService(t *testing.T) {
	srv := newGatewayServer(t, map[string]string{})

	var errResp ErrorResponse
	assert.Equal(t, http.StatusNotFound, call(t, http.MethodGet, srv.URL+"/api/billing/invoices", nil, &errResp))
	assert.Equal(t, "unknown_service", errResp.Error)
}

func TestGatewayUpstreamDown(t *testing.T) {
	upstream := httptest.NewServer(http.NotFoundHandler())
	url := upstream.URL
	upstream.Close()

	srv := newGatewayServer(t, map[string]string{"notifications": url})

	var errResp ErrorResponse
	assert.Equal(t, http.StatusServiceUnavailable, call(t, http.MethodGet, srv.URL+"/api/notifications/notifications", nil, &errResp))
	assert.Equal(t, "service_unavailable", errResp.Error)
}

func TestNewGatewayRejectsBadUpstream(t *testing.T) {
	logger, _ := test.NewNullLogger()
	_, err := NewGateway(map[string]string{"registry": "not a url"}, logger)
	assert.Error(t, err)
}
