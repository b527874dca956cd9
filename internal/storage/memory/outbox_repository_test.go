package memory_test

import (
	"testing"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

func TestOutboxRepository_EnqueuePull(t *testing.T) {
	repo := memory.NewOutboxRepository()

	msg, err := repo.Enqueue(domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   "1",
		EventType:     "order.created",
		Payload:       []byte(`{"order_id":1}`),
	})
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	if msg.ID == "" {
		t.Fatal("expected generated id")
	}

	pending, err := repo.PullPending(10)
	if err != nil {
		t.Fatalf("pull failed: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != msg.ID {
		t.Fatalf("unexpected pending: %+v", pending)
	}
}

func TestOutboxRepository_MarkSent(t *testing.T) {
	repo := memory.NewOutboxRepository()
	msg, _ := repo.Enqueue(domain.OutboxMessage{EventType: "order.created"})

	if err := repo.MarkSent(msg.ID); err != nil {
		t.Fatalf("mark sent failed: %v", err)
	}

	pending, _ := repo.PullPending(10)
	if len(pending) != 0 {
		t.Fatalf("expected empty backlog, got %d", len(pending))
	}
}

func TestOutboxRepository_MarkUnknownID(t *testing.T) {
	repo := memory.NewOutboxRepository()
	if err := repo.MarkSent("missing"); err == nil {
		t.Fatal("expected error for unknown id")
	}
	if err := repo.MarkFailed("missing"); err == nil {
		t.Fatal("expected error for unknown id")
	}
}

func TestOutboxRepository_Stats(t *testing.T) {
	repo := memory.NewOutboxRepository()

	stats, err := repo.Stats()
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.PendingCount != 0 {
		t.Fatalf("expected empty backlog, got %d", stats.PendingCount)
	}

	before := time.Now().UTC()
	if _, err := repo.Enqueue(domain.OutboxMessage{EventType: "order.created"}); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	stats, _ = repo.Stats()
	if stats.PendingCount != 1 {
		t.Fatalf("expected 1 pending, got %d", stats.PendingCount)
	}
	if stats.OldestPendingAt.Before(before.Add(-time.Second)) {
		t.Fatalf("oldest pending looks wrong: %v", stats.OldestPendingAt)
	}
}
