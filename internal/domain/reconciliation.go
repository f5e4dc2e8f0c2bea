package domain

import (
	"time"

	"github.com/google/uuid"
)

type ReconciliationResult string

const (
	ReconciliationCompleted ReconciliationResult = "completed"
	ReconciliationFailed    ReconciliationResult = "failed"
	ReconciliationTimedOut  ReconciliationResult = "timed_out"
	ReconciliationCancelled ReconciliationResult = "cancelled"
)

// Unresolved results ended without telling the user anything.
func (r ReconciliationResult) Unresolved() bool {
	return r == ReconciliationTimedOut || r == ReconciliationCancelled
}

type ReconciliationOutcome struct {
	ID          uuid.UUID
	Reference   string
	Phone       string
	Result      ReconciliationResult
	Attempts    int
	Detail      string
	InitiatedAt time.Time
	FinishedAt  time.Time
}
