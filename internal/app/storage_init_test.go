package app

import (
	"context"
	"testing"

	log "github.com/sirupsen/logrus"
)

func TestInitRuntimeDependencies_Memory(t *testing.T) {
	t.Parallel()

	deps, err := initRuntimeDependencies(context.Background(), Config{
		StorageDriver: StorageDriverMemory,
	}, log.WithField("test", "memory-storage"))
	if err != nil {
		t.Fatalf("initRuntimeDependencies(memory) failed: %v", err)
	}
	defer deps.closeStorage()

	if deps.products == nil {
		t.Fatal("products repository should not be nil")
	}
	if deps.orders == nil {
		t.Fatal("orders repository should not be nil")
	}
	if deps.reviews == nil {
		t.Fatal("reviews repository should not be nil")
	}
	if deps.outbox == nil {
		t.Fatal("outbox repository should not be nil")
	}
	if deps.timeline == nil {
		t.Fatal("timeline repository should not be nil")
	}
	if deps.idempotency == nil {
		t.Fatal("idempotency repository should not be nil")
	}
}

func TestInitRuntimeDependencies_PostgresRequiresDSN(t *testing.T) {
	t.Parallel()

	_, err := initRuntimeDependencies(context.Background(), Config{
		StorageDriver: StorageDriverPostgres,
	}, log.WithField("test", "postgres-missing-dsn"))
	if err == nil {
		t.Fatal("expected error when postgres driver is selected without DSN")
	}
}

func TestInitRuntimeDependencies_UnsupportedDriver(t *testing.T) {
	t.Parallel()

	_, err := initRuntimeDependencies(context.Background(), Config{
		StorageDriver: "sqlite",
	}, log.WithField("test", "unsupported-driver"))
	if err == nil {
		t.Fatal("expected error for unsupported storage driver")
	}
}
