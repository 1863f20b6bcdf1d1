package memory

import (
	"context"
	"testing"
	"time"

	"solana-curve-sniper/internal/domain"
)

func TestEventArchive_AppendAndGetByMint(t *testing.T) {
	s := NewEventArchive()
	ctx := context.Background()
	base := time.Now()

	events := []*domain.PipelineEvent{
		{Type: domain.EventTradeExecuted, Mint: "mint-1", SizeSol: 0.1, OccurredAt: base.Add(time.Second)},
		{Type: domain.EventCandidateAdmitted, Mint: "mint-1", OccurredAt: base},
		{Type: domain.EventCandidateRejected, Mint: "mint-2", Reason: "blocklist", OccurredAt: base},
	}
	if err := s.Append(ctx, events); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	got, err := s.GetByMint(ctx, "mint-1")
	if err != nil {
		t.Fatalf("GetByMint failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(got))
	}
	if got[0].Type != domain.EventCandidateAdmitted || got[1].Type != domain.EventTradeExecuted {
		t.Errorf("Expected time-ordered events, got %s then %s", got[0].Type, got[1].Type)
	}
}

func TestEventArchive_EmptyMint(t *testing.T) {
	s := NewEventArchive()
	got, err := s.GetByMint(context.Background(), "missing")
	if err != nil {
		t.Fatalf("GetByMint failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Expected no events, got %d", len(got))
	}
}
