package payment

import "time"

const (
	StatusPending   = "PENDING"
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"

	MethodMpesa = "MPESA"
)

// CallbackOutcome is what a single callback delivery did to the payment store.
type CallbackOutcome string

const (
	OutcomeApplied           CallbackOutcome = "applied"
	OutcomeUnknown           CallbackOutcome = "unknown"
	OutcomeAlreadyReconciled CallbackOutcome = "already_reconciled"
	OutcomeMalformed         CallbackOutcome = "malformed"
	// OutcomeError is recorded when storage failed while applying the callback.
	OutcomeError CallbackOutcome = "error"
)

var validTransitions = map[string][]string{
	StatusPending: {StatusCompleted, StatusFailed},
}

func IsValidTransition(from, to string) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func IsTerminal(status string) bool {
	return status == StatusCompleted || status == StatusFailed
}

func IsValidStatus(status string) bool {
	return status == StatusPending || IsTerminal(status)
}

// Transition is a terminal update of a PENDING payment. ReceiptNumber and
// PaidAt are set only when Status is COMPLETED.
type Transition struct {
	Status        string
	ReceiptNumber *string
	PaidAt        *time.Time
	ProcessedBy   *string
	Notes         *string
}

func completedTransition(receipt string, paidAt time.Time, processedBy, notes *string) Transition {
	return Transition{
		Status:        StatusCompleted,
		ReceiptNumber: &receipt,
		PaidAt:        &paidAt,
		ProcessedBy:   processedBy,
		Notes:         notes,
	}
}

func failedTransition(notes, processedBy *string) Transition {
	return Transition{
		Status:      StatusFailed,
		ProcessedBy: processedBy,
		Notes:       notes,
	}
}
