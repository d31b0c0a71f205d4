package testutil

import (
	"context"
	"fmt"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const startupTimeout = 30 * time.Second

// PostgresContainer wraps a postgres testcontainer.
type PostgresContainer struct {
	*postgres.PostgresContainer
	ConnectionString string
}

// RedisContainer wraps a Redis testcontainer used by the rate limiter.
type RedisContainer struct {
	testcontainers.Container
	URL string
}

// MailpitContainer wraps Mailpit, an SMTP sink with a REST API for
// inspecting delivered mail.
type MailpitContainer struct {
	testcontainers.Container
	SMTPHost string
	SMTPPort int
	APIHost  string
	APIPort  int
}

// NewPostgresContainer starts PostgreSQL 16 with an empty jobgarden database.
func NewPostgresContainer(ctx context.Context) (*PostgresContainer, error) {
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("jobgarden"),
		postgres.WithUsername("jobgarden"),
		postgres.WithPassword("jobgarden"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(startupTimeout),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("start postgres container: %w", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, fmt.Errorf("get connection string: %w", err)
	}

	return &PostgresContainer{PostgresContainer: container, ConnectionString: connStr}, nil
}

// NewRedisContainer starts Redis 7.
func NewRedisContainer(ctx context.Context) (*RedisContainer, error) {
	container, err := startGeneric(ctx, "redis", testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(startupTimeout),
	})
	if err != nil {
		return nil, err
	}

	host, port, err := endpoint(ctx, container, "6379/tcp")
	if err != nil {
		return nil, fmt.Errorf("redis endpoint: %w", err)
	}

	return &RedisContainer{
		Container: container,
		URL:       fmt.Sprintf("redis://%s:%d/0", host, port),
	}, nil
}

// NewMailpitContainer starts Mailpit with SMTP on 1025 and the API on 8025.
func NewMailpitContainer(ctx context.Context) (*MailpitContainer, error) {
	container, err := startGeneric(ctx, "mailpit", testcontainers.ContainerRequest{
		Image:        "ghcr.io/axllent/mailpit:latest",
		ExposedPorts: []string{"1025/tcp", "8025/tcp"},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("1025/tcp"),
			wait.ForHTTP("/api/v1/info").WithPort("8025/tcp"),
		).WithDeadline(startupTimeout),
	})
	if err != nil {
		return nil, err
	}

	smtpHost, smtpPort, err := endpoint(ctx, container, "1025/tcp")
	if err != nil {
		return nil, fmt.Errorf("mailpit smtp endpoint: %w", err)
	}
	apiHost, apiPort, err := endpoint(ctx, container, "8025/tcp")
	if err != nil {
		return nil, fmt.Errorf("mailpit api endpoint: %w", err)
	}

	return &MailpitContainer{
		Container: container,
		SMTPHost:  smtpHost,
		SMTPPort:  smtpPort,
		APIHost:   apiHost,
		APIPort:   apiPort,
	}, nil
}

func startGeneric(ctx context.Context, name string, req testcontainers.ContainerRequest) (testcontainers.Container, error) {
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("start %s container: %w", name, err)
	}
	return container, nil
}

func endpoint(ctx context.Context, container testcontainers.Container, port nat.Port) (string, int, error) {
	host, err := container.Host(ctx)
	if err != nil {
		return "", 0, fmt.Errorf("get host: %w", err)
	}
	mapped, err := container.MappedPort(ctx, port)
	if err != nil {
		return "", 0, fmt.Errorf("get port %s: %w", port, err)
	}
	return host, mapped.Int(), nil
}
