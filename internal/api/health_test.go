package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisclient "github.com/hackgods/medical-appointment-scheduling/internal/redis"
)

func TestReadinessWithRedisUnreachable(t *testing.T) {
	// nothing listens on port 1
	rdb := redisclient.NewClient("127.0.0.1:1", "", "")
	t.Cleanup(func() { _ = rdb.Close() })

	up := PingFunc(func(context.Context) error { return nil })
	h := NewHealthHandler("test", "v1",
		Dependency{Name: "postgres", Check: up, Critical: true},
		Dependency{Name: "redis", Check: RedisPinger(rdb)},
	)
	srv := httptest.NewServer(http.HandlerFunc(h.Readiness))
	t.Cleanup(srv.Close)

	var ready ReadinessResponse
	require.Equal(t, http.StatusOK, call(t, http.MethodGet, srv.URL, nil, &ready))
	assert.Equal(t, "degraded", ready.Status)
	assert.Equal(t, "down", ready.Dependencies["redis"])
	assert.Equal(t, "ok", ready.Dependencies["postgres"])
}

func TestReadinessCriticalDependencyDown(t *testing.T) {
	down := PingFunc(func(context.Context) error { return errors.New("connection refused") })
	h := NewHealthHandler("test", "v1", Dependency{Name: "postgres", Check: down, Critical: true})
	srv := httptest.NewServer(http.HandlerFunc(h.Readiness))
	t.Cleanup(srv.Close)

	var ready ReadinessResponse
	require.Equal(t, http.StatusServiceUnavailable, call(t, http.MethodGet, srv.URL, nil, &ready))
	assert.Equal(t, "error", ready.Status)
}
