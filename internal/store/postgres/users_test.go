//go:build integration

package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/secureface/secureface/internal/config"
	"github.com/secureface/secureface/internal/store"
)

func setupTestContainer(t *testing.T) (*Pool, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil, func() {}
	}
	if container == nil {
		t.Skip("Docker not available, skipping integration test")
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	dbURL := fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())

	cfg := &config.DatabaseConfig{
		URL:          dbURL,
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	}

	pool, err := NewPool(cfg)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to create pool: %v", err)
	}

	if err := pool.Migrate(ctx); err != nil {
		pool.Close()
		container.Terminate(ctx)
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		pool.Close()
		container.Terminate(ctx)
	}

	return pool, cleanup
}

func TestUserRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := NewUserRepository(pool)

	record := &store.UserRecord{
		ID:            uuid.NewString(),
		Name:          "Alice",
		Email:         "Alice@Example.com",
		Phone:         "+420123456789",
		PIN:           "1234",
		FaceReference: []byte{0xff, 0xd8, 0xff, 0xe0},
		EnrolledAt:    time.Now().UTC().Truncate(time.Microsecond),
	}

	t.Run("RegisterAndFind", func(t *testing.T) {
		if err := repo.Register(ctx, record); err != nil {
			t.Fatalf("Register() error = %v", err)
		}

		got, err := repo.FindByEmail(ctx, "ALICE@example.COM")
		if err != nil {
			t.Fatalf("FindByEmail() error = %v", err)
		}
		if got == nil {
			t.Fatal("FindByEmail() = nil, want record")
		}
		if got.ID != record.ID {
			t.Errorf("ID = %s, want %s", got.ID, record.ID)
		}
		if got.Email != "Alice@Example.com" {
			t.Errorf("Email = %s, want original casing preserved", got.Email)
		}
		if len(got.FaceReference) != len(record.FaceReference) {
			t.Errorf("FaceReference length = %d, want %d", len(got.FaceReference), len(record.FaceReference))
		}
	})

	t.Run("DuplicateRejected", func(t *testing.T) {
		dup := *record
		dup.ID = uuid.NewString()
		dup.Email = "alice@EXAMPLE.com"

		err := repo.Register(ctx, &dup)
		if !errors.Is(err, store.ErrAlreadyExists) {
			t.Errorf("Register() duplicate error = %v, want ErrAlreadyExists", err)
		}
	})

	t.Run("UnknownEmail", func(t *testing.T) {
		got, err := repo.FindByEmail(ctx, "nobody@example.com")
		if err != nil {
			t.Fatalf("FindByEmail() error = %v", err)
		}
		if got != nil {
			t.Errorf("FindByEmail() = %+v, want nil", got)
		}
	})
}
