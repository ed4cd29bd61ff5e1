package testhelpers

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	sharedRedisAddr string
	sharedRedisOnce sync.Once
	sharedRedisErr  error
)

// GetTestRedis returns host:port of a shared redis:7-alpine container. Set
// TEST_REDIS_ADDR to use an existing server instead.
func GetTestRedis(t *testing.T) string {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedRedisOnce.Do(func() {
		sharedRedisAddr, sharedRedisErr = setupTestRedis(context.Background())
	})
	if sharedRedisErr != nil {
		t.Fatalf("Failed to setup test redis: %v", sharedRedisErr)
	}
	return sharedRedisAddr
}

func setupTestRedis(ctx context.Context) (string, error) {
	if addr := os.Getenv("TEST_REDIS_ADDR"); addr != "" {
		return addr, nil
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return "", fmt.Errorf("failed to start redis container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get redis host: %w", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		return "", fmt.Errorf("failed to get redis port: %w", err)
	}
	return fmt.Sprintf("%s:%s", host, port.Port()), nil
}
