package db

import "strings"

// IsUniqueViolation reports whether the provided error references a Postgres
// unique violation constraint. When constraintName is provided, the helper looks
// for the constraint text in the error message.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if constraintName != "" {
		return strings.Contains(msg, constraintName)
	}
	return strings.Contains(msg, "duplicate key value")
}

// IsSeqConflict reports whether the error is a unique violation on one of the
// per-order (order_id, seq) indexes, meaning two writers computed the same
// next seq. The loser's statement is safe to retry.
func IsSeqConflict(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, name := range []string{
		"idx_status_events_order_seq",
		"idx_messages_order_seq",
		"idx_offers_order_seq",
	} {
		if strings.Contains(msg, name) {
			return true
		}
	}
	// sqlite names the column pair instead of the index.
	return strings.Contains(msg, "UNIQUE constraint failed") && strings.Contains(msg, ".seq")
}
