package runtime

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// HealthStatus is the outcome of probing one tool server.
type HealthStatus struct {
	Name string
	URL  string
	OK   bool
	Err  string
}

// HealthChecker probes the MCP tool servers before a session starts. The
// health endpoint lives at the server root (e.g. http://host:port/health)
// and bypasses authentication.
type HealthChecker struct {
	client *resty.Client
}

// NewHealthChecker builds a checker with a short per-probe timeout.
func NewHealthChecker(timeout time.Duration) *HealthChecker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(1)
	return &HealthChecker{client: client}
}

// Check probes every server in the map and returns statuses sorted by name.
func (h *HealthChecker) Check(ctx context.Context, servers map[string]string) []HealthStatus {
	names := make([]string, 0, len(servers))
	for name := range servers {
		names = append(names, name)
	}
	sort.Strings(names)

	statuses := make([]HealthStatus, 0, len(names))
	for _, name := range names {
		statuses = append(statuses, h.probe(ctx, name, servers[name]))
	}
	return statuses
}

func (h *HealthChecker) probe(ctx context.Context, name, rawURL string) HealthStatus {
	status := HealthStatus{Name: name, URL: rawURL}

	healthURL, err := healthEndpoint(rawURL)
	if err != nil {
		status.Err = err.Error()
		return status
	}

	resp, err := h.client.R().SetContext(ctx).Get(healthURL)
	if err != nil {
		status.Err = err.Error()
		return status
	}
	if resp.StatusCode() != 200 {
		status.Err = fmt.Sprintf("HTTP %d from %s", resp.StatusCode(), healthURL)
		return status
	}

	status.OK = true
	return status
}

func healthEndpoint(rawURL string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("parse server url %q: %w", rawURL, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("server url %q has no scheme or host", rawURL)
	}
	return fmt.Sprintf("%s://%s/health", parsed.Scheme, parsed.Host), nil
}

// AllHealthy reports whether every probe succeeded.
func AllHealthy(statuses []HealthStatus) bool {
	for _, s := range statuses {
		if !s.OK {
			return false
		}
	}
	return true
}
