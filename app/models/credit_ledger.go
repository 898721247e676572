package models

import "time"

// Credit tier constants. The tier is informational only; it never gates
// admission decisions.
const (
	TierFree = "free"
	TierPro  = "pro"
	TierMax  = "max"
)

// CreditLedger holds the prepaid credit balance for one user. Balance is
// mutated exclusively through conditional updates in the ledger repository:
// the admission deduct and the settlement grant. Balance never goes below
// zero and LifetimeUsed only increases.
type CreditLedger struct {
	ID                  uint      `gorm:"primaryKey" json:"id"`
	UserID              uint      `gorm:"not null;uniqueIndex" json:"user_id"`
	Balance             int64     `gorm:"not null;default:0" json:"balance"`
	LifetimeUsed        int64     `gorm:"not null;default:0" json:"lifetime_used"`
	Tier                string    `gorm:"type:varchar(20);not null;default:'free'" json:"tier"`
	StarterOfferClaimed bool      `gorm:"default:false" json:"starter_offer_claimed"`
	CreatedAt           time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
