package fsm

import (
	"testing"

	"github.com/serviplace/serviplace-backend/pkg/enums"
)

var allStatuses = []enums.OrderStatus{
	enums.OrderStatusDraft,
	enums.OrderStatusSubmitted,
	enums.OrderStatusSearching,
	enums.OrderStatusNegotiating,
	enums.OrderStatusAccepted,
	enums.OrderStatusEnRoute,
	enums.OrderStatusInProgress,
	enums.OrderStatusCompleted,
	enums.OrderStatusCancelled,
}

func TestIsValidTransition_ForwardChain(t *testing.T) {
	chain := []enums.OrderStatus{
		enums.OrderStatusDraft,
		enums.OrderStatusSubmitted,
		enums.OrderStatusSearching,
		enums.OrderStatusNegotiating,
		enums.OrderStatusAccepted,
		enums.OrderStatusEnRoute,
		enums.OrderStatusInProgress,
		enums.OrderStatusCompleted,
	}
	for i := 0; i < len(chain)-1; i++ {
		if !IsValidTransition(chain[i], chain[i+1]) {
			t.Fatalf("expected %s -> %s to be valid", chain[i], chain[i+1])
		}
	}
}

func TestIsValidTransition_ExhaustiveTable(t *testing.T) {
	for _, from := range allStatuses {
		for _, to := range allStatuses {
			got := IsValidTransition(from, to)

			want := false
			if !from.IsTerminal() {
				if to == enums.OrderStatusCancelled {
					want = true
				} else if next, ok := forwardSuccessor[from]; ok && next == to {
					want = true
				}
			}

			if got != want {
				t.Errorf("IsValidTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestIsValidTransition_TerminalStates(t *testing.T) {
	for _, from := range []enums.OrderStatus{enums.OrderStatusCompleted, enums.OrderStatusCancelled} {
		for _, to := range allStatuses {
			if IsValidTransition(from, to) {
				t.Errorf("terminal %s must not transition to %s", from, to)
			}
		}
	}
}

func TestIsValidTransition_SelfTransitions(t *testing.T) {
	for _, status := range allStatuses {
		if status == enums.OrderStatusCancelled {
			continue
		}
		if IsValidTransition(status, status) {
			t.Errorf("self transition %s -> %s must be invalid", status, status)
		}
	}
	if IsValidTransition(enums.OrderStatusCancelled, enums.OrderStatusCancelled) {
		t.Error("cancelled -> cancelled must be invalid")
	}
}

func TestIsValidTransition_UnknownStatus(t *testing.T) {
	if IsValidTransition("bogus", enums.OrderStatusCancelled) {
		t.Error("unknown from-status must be invalid")
	}
	if IsValidTransition(enums.OrderStatusDraft, "bogus") {
		t.Error("unknown to-status must be invalid")
	}
}

func TestValidNextStatuses(t *testing.T) {
	next := ValidNextStatuses(enums.OrderStatusNegotiating)
	if len(next) != 2 || next[0] != enums.OrderStatusAccepted || next[1] != enums.OrderStatusCancelled {
		t.Fatalf("unexpected next statuses for negotiating: %v", next)
	}

	if got := ValidNextStatuses(enums.OrderStatusCompleted); len(got) != 0 {
		t.Fatalf("expected no next statuses for completed, got %v", got)
	}
	if got := ValidNextStatuses(enums.OrderStatusCancelled); len(got) != 0 {
		t.Fatalf("expected no next statuses for cancelled, got %v", got)
	}
}
