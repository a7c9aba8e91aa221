// Package testutil starts throwaway infrastructure for integration tests.
// Every helper skips the calling test in -short mode or when Docker is
// unavailable.
package testutil

import (
	"context"
	"fmt"
	"net"
	"path/filepath"
	"runtime"
	"strconv"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/TomMcIver/Stock-Port/pkg/database"
)

// Logger returns a development logger for integration tests
func Logger() ectologger.Logger {
	zapLogger, _ := zap.NewDevelopment()
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

func start(t *testing.T, req testcontainers.ContainerRequest) (testcontainers.Container, string) {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Skipping integration test, container %s unavailable: %v", req.Image, err)
	}
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	// Endpoint resolves the first exposed port as host:port
	addr, err := container.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("failed to get container endpoint: %v", err)
	}
	return container, addr
}

// migrationsDir locates db/pg relative to this file
func migrationsDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "db", "pg")
}

// Postgres starts postgres:15-alpine, applies the migrations and returns a
// connected DB.
func Postgres(t *testing.T) database.DB {
	t.Helper()
	_, addr := start(t, testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "user",
			"POSTGRES_PASSWORD": "password",
			"POSTGRES_DB":       "symtag",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	})

	host, port, _ := net.SplitHostPort(addr)
	logger := Logger()
	db, err := database.Open(context.Background(), database.Options{
		DSN: fmt.Sprintf("host=%s port=%s user=user password=password dbname=symtag sslmode=disable", host, port),
	}, logger)
	if err != nil {
		t.Fatalf("failed to connect to postgres: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	migrations := database.NewMigrationService(logger, &database.MigrationConfig{
		MigrationFolderPath: migrationsDir(),
		AutoRollback:        true,
	})
	if err := migrations.MigratePostgres(db.SqlDB(), "symtag"); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	return db
}

// Redis starts redis:7-alpine and returns its host and port
func Redis(t *testing.T) (string, int) {
	t.Helper()
	_, addr := start(t, testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor: wait.ForLog("Ready to accept connections").
			WithStartupTimeout(30 * time.Second),
	})

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatalf("bad redis address %s: %v", addr, err)
	}
	p, err := strconv.Atoi(port)
	if err != nil {
		t.Fatalf("bad redis port %s: %v", port, err)
	}
	return host, p
}
