package credits

import "errors"

// Domain errors returned by the credits service. Handlers map these onto
// HTTP statuses; only store failures are treated as server errors.
var (
	// ErrInsufficientCredits is an expected, user-facing outcome. Not logged
	// as an error.
	ErrInsufficientCredits = errors.New("insufficient credits")
	// ErrInvalidSignature covers any webhook signature mismatch. The caller
	// must answer with a uniform rejection regardless of the exact cause.
	ErrInvalidSignature = errors.New("invalid webhook signature")
	// ErrDuplicateSettlement marks a redelivered notification whose credits
	// were already applied. Treated as success-no-op, never as a failure.
	ErrDuplicateSettlement = errors.New("settlement already applied")
	// ErrLedgerNotFound means no ledger row exists for the user.
	ErrLedgerNotFound = errors.New("credit ledger not found")
	// ErrUnknownPlan means the notification named a plan outside the catalog.
	ErrUnknownPlan = errors.New("unknown plan")
	// ErrUnknownOperation means the cost table has no entry for the operation.
	ErrUnknownOperation = errors.New("unknown operation")
	// ErrStarterOfferClaimed rejects a second starter-plan purchase.
	ErrStarterOfferClaimed = errors.New("starter offer already claimed")
)
