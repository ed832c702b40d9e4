package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const (
	healthSlowThreshold = time.Second
	httpTimeout         = 10 * time.Second
)

type HealthCheckCommand struct{}

func (c *HealthCheckCommand) Name() string {
	return "health-check"
}

func (c *HealthCheckCommand) Description() string {
	return "Probe /healthz and /readyz of a running service [base-url]"
}

func (c *HealthCheckCommand) Run(args []string) error {
	base := serviceURL(args)
	PrintHeader(fmt.Sprintf("Health Check (%s)", base))

	client := &http.Client{Timeout: httpTimeout}
	for _, path := range []string{"/healthz", "/readyz"} {
		start := time.Now()
		if err := probe(client, base+path); err != nil {
			PrintError("%s failed: %v", path, err)
			return err
		}
		duration := time.Since(start)
		if duration > healthSlowThreshold {
			PrintWarning("%s slow response time (%v)", path, duration)
		} else {
			PrintSuccess("%s passed (response time: %v)", path, duration)
		}
	}
	return nil
}

func probe(client *http.Client, url string) error {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

// serviceURL takes the base URL from the first argument, then SERVICE_URL, then PORT.
func serviceURL(args []string) string {
	if len(args) > 0 && args[0] != "" {
		return strings.TrimRight(args[0], "/")
	}
	if u := os.Getenv("SERVICE_URL"); u != "" {
		return strings.TrimRight(u, "/")
	}
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	return "http://localhost:" + port
}
