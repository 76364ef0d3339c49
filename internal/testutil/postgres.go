package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/MohamedRasheqA/bents-v3/db"
)

// DockerTestEnv gates container-backed tests. Set it to any non-empty value
// to run them; they skip otherwise so unit runs stay Docker-free.
const DockerTestEnv = "BENTS_TEST_DOCKER"

// TestDBContainer wraps a PostgreSQL test container with a connection pool.
// The database has the pgvector extension and the full migrated schema.
type TestDBContainer struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
}

// SetupTestDB starts a pgvector-enabled PostgreSQL container, runs the
// embedded migrations, and returns a ready pool. The returned cleanup
// function must be called to terminate the container.
func SetupTestDB(t *testing.T) (*TestDBContainer, func()) {
	t.Helper()

	if os.Getenv(DockerTestEnv) == "" {
		t.Skipf("%s not set - skipping test requiring Docker", DockerTestEnv)
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"pgvector/pgvector:pg16",
		postgres.WithDatabase("bents_test"),
		postgres.WithUsername("bents_test"),
		postgres.WithPassword("test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		t.Fatalf("Failed to get connection string: %v", err)
	}

	if err := db.Migrate(connStr); err != nil {
		_ = pgContainer.Terminate(ctx)
		t.Fatalf("Failed to run migrations: %v", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		t.Fatalf("Failed to create connection pool: %v", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
		t.Fatalf("Failed to ping database: %v", err)
	}

	container := &TestDBContainer{
		Container: pgContainer,
		Pool:      pool,
		ConnStr:   connStr,
	}

	cleanup := func() {
		pool.Close()
		_ = pgContainer.Terminate(context.Background())
	}

	return container, cleanup
}
