package health

import (
	"context"
	"errors"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestStatusPredicates(t *testing.T) {
	assert.True(t, Healthy("ok").IsHealthy())
	assert.True(t, Degraded("slow", nil).IsDegraded())
	assert.True(t, Unhealthy("down", nil).IsUnhealthy())
	assert.False(t, Healthy("ok").IsUnhealthy())
}

func TestPingCheck(t *testing.T) {
	ctx := context.Background()

	t.Run("reachable", func(t *testing.T) {
		s := PingCheck("neo4j", pingFunc(func(context.Context) error { return nil }), StatusUnhealthy)(ctx)
		assert.True(t, s.IsHealthy())
		assert.Equal(t, "neo4j is reachable", s.Message)
	})

	t.Run("unreachable uses fail status", func(t *testing.T) {
		p := pingFunc(func(context.Context) error { return errors.New("connection refused") })

		s := PingCheck("neo4j", p, StatusUnhealthy)(ctx)
		assert.True(t, s.IsUnhealthy())
		assert.Equal(t, "connection refused", s.Details["error"])

		s = PingCheck("redis", p, StatusDegraded)(ctx)
		assert.True(t, s.IsDegraded())
	})

	t.Run("nil pinger", func(t *testing.T) {
		s := PingCheck("redis", nil, StatusDegraded)(ctx)
		assert.True(t, s.IsDegraded())
		assert.Equal(t, "redis is not configured", s.Message)
	})
}

func TestNetworkCheck(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	port := ln.Addr().(*net.TCPAddr).Port

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	assert.True(t, NetworkCheck(ctx, "127.0.0.1", port).IsHealthy())
	assert.True(t, NetworkCheck(ctx, "", port).IsUnhealthy())
	assert.True(t, NetworkCheck(ctx, "127.0.0.1", 0).IsUnhealthy())
	assert.True(t, NetworkCheck(ctx, "127.0.0.1", 70000).IsUnhealthy())

	t.Run("endpoint", func(t *testing.T) {
		s := EndpointCheck("http://127.0.0.1:" + strconv.Itoa(port) + "/v1/")(ctx)
		assert.True(t, s.IsHealthy(), s.Message)

		s = EndpointCheck("::not a url")(ctx)
		assert.True(t, s.IsUnhealthy())
	})
}

func TestCombine(t *testing.T) {
	tests := []struct {
		name   string
		checks []Status
		want   string
	}{
		{"none", nil, StatusHealthy},
		{"all healthy", []Status{Healthy("a"), Healthy("b")}, StatusHealthy},
		{"degraded wins over healthy", []Status{Healthy("a"), Degraded("b", nil)}, StatusDegraded},
		{"unhealthy wins", []Status{Degraded("a", nil), Unhealthy("b", nil), Healthy("c")}, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Combine(tt.checks...).Status)
		})
	}

	failed := Combine(Unhealthy("", nil))
	assert.Equal(t, []string{"unnamed check"}, failed.Details["failed_checks"])
}

func TestRun(t *testing.T) {
	report := Run(context.Background(), map[string]Check{
		"graph": func(context.Context) Status { return Healthy("graph ok") },
		"queue": func(context.Context) Status { return Degraded("queue slow", nil) },
	})

	assert.Equal(t, StatusDegraded, report.Status)
	assert.Len(t, report.Checks, 2)
	assert.Equal(t, "graph ok", report.Checks["graph"].Message)
	assert.False(t, report.Timestamp.IsZero())

	empty := Run(context.Background(), nil)
	assert.Equal(t, StatusHealthy, empty.Status)
}
