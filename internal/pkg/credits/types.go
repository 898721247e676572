package credits

import "time"

// Operation identifies a costed AI operation.
type Operation string

const (
	OperationAnalysis            Operation = "analysis"
	OperationOptimizationGeneral Operation = "optimization_general"
	OperationOptimizationJD      Operation = "optimization_jd"
	OperationBuildExport         Operation = "build_export"
)

// Admission is the outcome of an admission check. When Allowed is false,
// Required and Available let the caller build a payment-required response.
type Admission struct {
	Allowed   bool      `json:"allowed"`
	Operation Operation `json:"operation"`
	Cost      int64     `json:"cost"`
	Required  int64     `json:"required"`
	Available int64     `json:"available"`
}

// SettleOutcome classifies what a settlement notification did.
type SettleOutcome string

const (
	// SettleOutcomeSettled means credits were granted for this notification.
	SettleOutcomeSettled SettleOutcome = "settled"
	// SettleOutcomeIgnored means the notification was a duplicate or not
	// attributable; nothing was credited.
	SettleOutcomeIgnored SettleOutcome = "ignored"
	// SettleOutcomeFailed means the gateway reported a failed payment; the
	// record was stored and the ledger untouched.
	SettleOutcomeFailed SettleOutcome = "failed"
)

// UsageBucket is one day of deductions for one operation type.
type UsageBucket struct {
	Day       string    `json:"day"`
	Operation Operation `json:"operation"`
	Credits   int64     `json:"credits"`
	Count     int64     `json:"count"`
}

// RecentPayment is the audit-facing view of a payment record.
type RecentPayment struct {
	GatewayPaymentID string    `json:"gateway_payment_id"`
	Plan             string    `json:"plan"`
	Amount           int64     `json:"amount"`
	Currency         string    `json:"currency"`
	Status           string    `json:"status"`
	Method           string    `json:"method"`
	CreditsGranted   int64     `json:"credits_granted"`
	CreditsApplied   bool      `json:"credits_applied"`
	CreatedAt        time.Time `json:"created_at"`
}

// UsageReport aggregates the read-only view served by the credits endpoint.
type UsageReport struct {
	Balance             int64           `json:"balance"`
	LifetimeUsed        int64           `json:"lifetime_used"`
	Tier                string          `json:"tier"`
	StarterOfferClaimed bool            `json:"starter_offer_claimed"`
	Usage               []UsageBucket   `json:"usage"`
	RecentPayments      []RecentPayment `json:"recent_payments"`
}
