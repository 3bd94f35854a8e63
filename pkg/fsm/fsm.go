// Package fsm holds the single source of truth for legal order status
// transitions. Every user-facing mutation path consults this table; the
// administrative override path is the only caller allowed to skip it.
package fsm

import "github.com/serviplace/serviplace-backend/pkg/enums"

// forwardSuccessor maps each status to the next status on the delivery chain.
// Terminal statuses have no entry.
var forwardSuccessor = map[enums.OrderStatus]enums.OrderStatus{
	enums.OrderStatusDraft:       enums.OrderStatusSubmitted,
	enums.OrderStatusSubmitted:   enums.OrderStatusSearching,
	enums.OrderStatusSearching:   enums.OrderStatusNegotiating,
	enums.OrderStatusNegotiating: enums.OrderStatusAccepted,
	enums.OrderStatusAccepted:    enums.OrderStatusEnRoute,
	enums.OrderStatusEnRoute:     enums.OrderStatusInProgress,
	enums.OrderStatusInProgress:  enums.OrderStatusCompleted,
}

// IsValidTransition reports whether an order may move from one status to
// another. Any non-terminal status may move to cancelled; otherwise only the
// forward-chain successor is legal.
func IsValidTransition(from, to enums.OrderStatus) bool {
	if !from.IsValid() || !to.IsValid() {
		return false
	}
	if from.IsTerminal() {
		return false
	}
	if to == enums.OrderStatusCancelled {
		return true
	}
	next, ok := forwardSuccessor[from]
	return ok && next == to
}

// ValidNextStatuses returns every status reachable from the given one: the
// forward successor (if any) plus cancelled for non-terminal statuses. Terminal
// statuses yield an empty slice.
func ValidNextStatuses(from enums.OrderStatus) []enums.OrderStatus {
	if !from.IsValid() || from.IsTerminal() {
		return nil
	}
	out := make([]enums.OrderStatus, 0, 2)
	if next, ok := forwardSuccessor[from]; ok {
		out = append(out, next)
	}
	return append(out, enums.OrderStatusCancelled)
}
