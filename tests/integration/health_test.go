package integration

import (
	"net/http"
	"testing"
	"time"
)

// TestAllServicesHealthy checks the /health/live endpoint for all services.
// Each service is tested as a subtest so failures are reported individually.
// If a service is unreachable, the subtest is skipped (not failed), allowing
// the suite to run in environments where only some services are up.
func TestAllServicesHealthy(t *testing.T) {
	services := map[string]int{
		"catalog": catalogPort,
		"order":   orderPort,
		"search":  searchPort,
	}

	client := &http.Client{Timeout: 3 * time.Second}

	for name, port := range services {
		t.Run(name, func(t *testing.T) {
			url := baseURL(port) + "/health/live"
			resp, err := client.Get(url)
			if err != nil {
				t.Skipf("service %s on port %d not reachable: %v", name, port, err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				t.Errorf("service %s liveness returned %d, want %d", name, resp.StatusCode, http.StatusOK)
			}
		})
	}
}

// TestAllServicesReady checks readiness, which includes dependency health
// (Postgres, Kafka, Elasticsearch).
func TestAllServicesReady(t *testing.T) {
	services := map[string]int{
		"catalog": catalogPort,
		"order":   orderPort,
		"search":  searchPort,
	}

	client := &http.Client{Timeout: 5 * time.Second}

	for name, port := range services {
		t.Run(name, func(t *testing.T) {
			url := baseURL(port) + "/health/ready"
			resp, err := client.Get(url)
			if err != nil {
				t.Skipf("service %s on port %d not reachable: %v", name, port, err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				t.Errorf("service %s readiness returned %d, want %d", name, resp.StatusCode, http.StatusOK)
			}
		})
	}
}
