// Package health checks the dependencies the question answering service
// relies on and aggregates them into a single report.
package health

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"sort"
	"strconv"
	"sync"
	"time"
)

// Pinger is anything that can verify its own connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Check reports the status of one dependency.
type Check func(ctx context.Context) Status

// PingCheck turns a Pinger into a Check. A failed ping is reported with
// failStatus, which lets optional dependencies degrade instead of fail.
func PingCheck(name string, p Pinger, failStatus string) Check {
	return func(ctx context.Context) Status {
		if p == nil {
			return Status{Status: failStatus, Message: fmt.Sprintf("%s is not configured", name)}
		}
		if err := p.Ping(ctx); err != nil {
			return Status{
				Status:  failStatus,
				Message: fmt.Sprintf("%s is unreachable", name),
				Details: map[string]any{"error": err.Error()},
			}
		}
		return Healthy(fmt.Sprintf("%s is reachable", name))
	}
}

// NetworkCheck verifies TCP connectivity to a host and port.
// A nil context gets a 5 second timeout.
func NetworkCheck(ctx context.Context, host string, port int) Status {
	if host == "" {
		return Unhealthy("host cannot be empty", nil)
	}

	if port <= 0 || port > 65535 {
		return Unhealthy(
			fmt.Sprintf("invalid port number: %d", port),
			map[string]any{"port": port},
		)
	}

	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
	}

	address := net.JoinHostPort(host, strconv.Itoa(port))
	var dialer net.Dialer

	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return Unhealthy(
			fmt.Sprintf("failed to connect to %s", address),
			map[string]any{
				"host":  host,
				"port":  port,
				"error": err.Error(),
			},
		)
	}
	conn.Close()

	return Healthy(fmt.Sprintf("successfully connected to %s", address))
}

// EndpointCheck dials the host of rawURL. The port defaults from the scheme
// (443 for https, 80 for http).
func EndpointCheck(rawURL string) Check {
	return func(ctx context.Context) Status {
		u, err := url.Parse(rawURL)
		if err != nil || u.Hostname() == "" {
			return Unhealthy(fmt.Sprintf("invalid endpoint %q", rawURL), nil)
		}

		port := 443
		if u.Scheme == "http" {
			port = 80
		}
		if p := u.Port(); p != "" {
			if n, err := strconv.Atoi(p); err == nil {
				port = n
			}
		}
		return NetworkCheck(ctx, u.Hostname(), port)
	}
}

// Report is the aggregated outcome of a set of named checks.
type Report struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]Status `json:"checks,omitempty"`
}

// Run executes checks concurrently and aggregates them.
func Run(ctx context.Context, checks map[string]Check) Report {
	results := make(map[string]Status, len(checks))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for name, check := range checks {
		wg.Add(1)
		go func(name string, check Check) {
			defer wg.Done()
			s := check(ctx)
			mu.Lock()
			results[name] = s
			mu.Unlock()
		}(name, check)
	}
	wg.Wait()

	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	ordered := make([]Status, 0, len(names))
	for _, name := range names {
		ordered = append(ordered, results[name])
	}

	return Report{
		Status:    Combine(ordered...).Status,
		Timestamp: time.Now().UTC(),
		Checks:    results,
	}
}

// Combine aggregates statuses. Any unhealthy status makes the result
// unhealthy; otherwise any degraded status makes it degraded. No checks at
// all is healthy.
func Combine(checks ...Status) Status {
	if len(checks) == 0 {
		return Healthy("no checks to perform")
	}

	var unhealthyChecks []string
	var degradedChecks []string
	healthyCount := 0

	for _, check := range checks {
		msg := check.Message
		if msg == "" {
			msg = "unnamed check"
		}
		switch check.Status {
		case StatusUnhealthy:
			unhealthyChecks = append(unhealthyChecks, msg)
		case StatusDegraded:
			degradedChecks = append(degradedChecks, msg)
		case StatusHealthy:
			healthyCount++
		}
	}

	if len(unhealthyChecks) > 0 {
		return Unhealthy(
			fmt.Sprintf("%d check(s) failed", len(unhealthyChecks)),
			map[string]any{
				"total":         len(checks),
				"unhealthy":     len(unhealthyChecks),
				"degraded":      len(degradedChecks),
				"healthy":       healthyCount,
				"failed_checks": unhealthyChecks,
			},
		)
	}

	if len(degradedChecks) > 0 {
		return Degraded(
			fmt.Sprintf("%d check(s) degraded", len(degradedChecks)),
			map[string]any{
				"total":           len(checks),
				"degraded":        len(degradedChecks),
				"healthy":         healthyCount,
				"degraded_checks": degradedChecks,
			},
		)
	}

	return Healthy(fmt.Sprintf("all %d check(s) passed", len(checks)))
}
