// Package testenv provides backing services for integration tests.
//
// Each service is taken from the environment when its host variable is set. Otherwise
// TESTCONTAINERS=true starts a disposable container that is terminated when the test
// finishes. Without either the test is skipped.
package testenv

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func skipUnlessContainers(t *testing.T, service, hostVar string) {
	t.Helper()
	if testing.Short() {
		t.Skipf("Skipping %s integration test in short mode", service)
	}
	if os.Getenv("TESTCONTAINERS") != "true" {
		t.Skipf("%s not set and TESTCONTAINERS disabled", hostVar)
	}
}

// startContainer starts req and returns the host and mapped port of exposedPort
func startContainer(t *testing.T, req testcontainers.ContainerRequest, exposedPort nat.Port) (string, int) {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("failed to start %s container: %v", req.Image, err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate %s container: %v", req.Image, err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("failed to read %s container host: %v", req.Image, err)
	}
	port, err := container.MappedPort(ctx, exposedPort)
	if err != nil {
		t.Fatalf("failed to read %s container port: %v", req.Image, err)
	}
	return host, port.Int()
}

// Endpoint locates a service started for a test
type Endpoint struct {
	Host     string
	Port     int
	User     string
	Password string
}

// Redis returns a Redis endpoint
func Redis(t *testing.T) Endpoint {
	t.Helper()
	if host := os.Getenv("REDIS_HOST"); host != "" && !testing.Short() {
		return Endpoint{Host: host, Port: getEnvInt("REDIS_PORT", 6379), Password: os.Getenv("REDIS_PASSWORD")}
	}
	skipUnlessContainers(t, "redis", "REDIS_HOST")

	host, port := startContainer(t, testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor: wait.ForLog("Ready to accept connections").
			WithStartupTimeout(30 * time.Second),
	}, "6379")
	return Endpoint{Host: host, Port: port}
}

// Graph returns a bolt endpoint backed by Memgraph
func Graph(t *testing.T) Endpoint {
	t.Helper()
	if host := os.Getenv("GRAPH_DB_HOST"); host != "" && !testing.Short() {
		return Endpoint{
			Host:     host,
			Port:     getEnvInt("GRAPH_DB_PORT", 7687),
			User:     os.Getenv("GRAPH_DB_USER"),
			Password: os.Getenv("GRAPH_DB_PASSWORD"),
		}
	}
	skipUnlessContainers(t, "graph", "GRAPH_DB_HOST")

	host, port := startContainer(t, testcontainers.ContainerRequest{
		Image:        "memgraph/memgraph:latest",
		ExposedPorts: []string{"7687/tcp"},
		WaitingFor: wait.ForLog("Server is fully armed and operational").
			WithStartupTimeout(60 * time.Second),
	}, "7687")
	return Endpoint{Host: host, Port: port}
}
