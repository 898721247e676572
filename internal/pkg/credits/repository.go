package credits

import (
	"time"

	"github.com/ManuelReschke/ResumeFox/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides DB operations used by the credits service. Every
// balance mutation is a single conditional write with its precondition in
// the WHERE clause; the database is the only synchronization point shared
// by concurrent handlers and horizontally scaled instances.
type Repository interface {
	CreateLedger(ledger *models.CreditLedger) error
	GetLedgerByUserID(userID uint) (*models.CreditLedger, error)
	// DeductBalance decrements balance and bumps lifetime_used in one guarded
	// update. Returns false when the guard (balance >= cost) did not hold.
	DeductBalance(userID uint, cost int64) (bool, error)
	// CreatePaymentIfNotExists inserts the record unless one already exists
	// for the gateway payment id, and returns the stored row either way.
	CreatePaymentIfNotExists(payment *models.Payment) (bool, *models.Payment, error)
	GetPaymentByGatewayID(gatewayPaymentID string) (*models.Payment, error)
	// ApplyCredits flips credits_applied and increments the ledger in one
	// transaction. Returns false without side effects when the flag was
	// already set (duplicate delivery).
	ApplyCredits(gatewayPaymentID string, userID uint, creditsGranted int64, markStarterClaimed bool) (bool, error)
	UpdatePaymentStatus(gatewayPaymentID string, status, failureReason string) error
	// UpdatePaymentMetadata refreshes method and signature on the stored
	// record without touching status, flags or the ledger.
	UpdatePaymentMetadata(gatewayPaymentID string, method, signature string) error
	RecordUsageEvent(event *models.UsageEvent) error
	SumUsageByDay(userID uint, since time.Time) ([]UsageBucket, error)
	ListRecentPayments(userID uint, limit int) ([]models.Payment, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a credits repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) CreateLedger(ledger *models.CreditLedger) error {
	return r.db.Create(ledger).Error
}

func (r *gormRepository) GetLedgerByUserID(userID uint) (*models.CreditLedger, error) {
	var ledger models.CreditLedger
	if err := r.db.Where("user_id = ?", userID).First(&ledger).Error; err != nil {
		return nil, err
	}
	return &ledger, nil
}

func (r *gormRepository) DeductBalance(userID uint, cost int64) (bool, error) {
	tx := r.db.Model(&models.CreditLedger{}).
		Where("user_id = ? AND balance >= ?", userID, cost).
		Updates(map[string]interface{}{
			"balance":       gorm.Expr("balance - ?", cost),
			"lifetime_used": gorm.Expr("lifetime_used + ?", cost),
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *gormRepository) CreatePaymentIfNotExists(payment *models.Payment) (bool, *models.Payment, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "gateway_payment_id"}},
		DoNothing: true,
	}).Create(payment)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.Payment
	if err := r.db.Where("gateway_payment_id = ?", payment.GatewayPaymentID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) GetPaymentByGatewayID(gatewayPaymentID string) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.Where("gateway_payment_id = ?", gatewayPaymentID).First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *gormRepository) ApplyCredits(gatewayPaymentID string, userID uint, creditsGranted int64, markStarterClaimed bool) (bool, error) {
	applied := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		// The credits_applied guard is the exactly-once enforcement point:
		// a concurrent or redelivered notification hits zero rows here.
		res := tx.Model(&models.Payment{}).
			Where("gateway_payment_id = ? AND credits_applied = ?", gatewayPaymentID, false).
			Updates(map[string]interface{}{
				"credits_applied": true,
				"credits_granted": creditsGranted,
				"status":          models.PaymentStatusSuccess,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}

		updates := map[string]interface{}{
			"balance": gorm.Expr("balance + ?", creditsGranted),
		}
		grant := tx.Model(&models.CreditLedger{}).Where("user_id = ?", userID)
		if markStarterClaimed {
			// The one-time starter offer is enforced here, not just at
			// order creation: a second starter payment grants nothing.
			updates["starter_offer_claimed"] = true
			grant = grant.Where("starter_offer_claimed = ?", false)
		}
		res = grant.Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Rolls back the flag flip; the returned error says why the
			// grant could not land.
			if markStarterClaimed {
				var count int64
				if err := tx.Model(&models.CreditLedger{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
					return err
				}
				if count > 0 {
					return ErrStarterOfferClaimed
				}
			}
			return ErrLedgerNotFound
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

func (r *gormRepository) UpdatePaymentStatus(gatewayPaymentID string, status, failureReason string) error {
	updates := map[string]interface{}{"status": status}
	if failureReason != "" {
		updates["failure_reason"] = failureReason
	}
	return r.db.Model(&models.Payment{}).
		Where("gateway_payment_id = ?", gatewayPaymentID).
		Updates(updates).Error
}

func (r *gormRepository) UpdatePaymentMetadata(gatewayPaymentID string, method, signature string) error {
	updates := map[string]interface{}{}
	if method != "" {
		updates["method"] = method
	}
	if signature != "" {
		updates["signature"] = signature
	}
	if len(updates) == 0 {
		return nil
	}
	return r.db.Model(&models.Payment{}).
		Where("gateway_payment_id = ?", gatewayPaymentID).
		Updates(updates).Error
}

func (r *gormRepository) RecordUsageEvent(event *models.UsageEvent) error {
	return r.db.Create(event).Error
}

func (r *gormRepository) SumUsageByDay(userID uint, since time.Time) ([]UsageBucket, error) {
	var buckets []UsageBucket
	err := r.db.Model(&models.UsageEvent{}).
		Select("DATE(created_at) AS day, operation, SUM(cost) AS credits, COUNT(*) AS count").
		Where("user_id = ? AND created_at >= ?", userID, since).
		Group("DATE(created_at), operation").
		Order("day DESC").
		Scan(&buckets).Error
	return buckets, err
}

func (r *gormRepository) ListRecentPayments(userID uint, limit int) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&payments).Error
	return payments, err
}
