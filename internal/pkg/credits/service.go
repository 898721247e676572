package credits

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/ManuelReschke/ResumeFox/app/models"
	"gorm.io/gorm"
)

// Service implements the admission gate and the settlement processor over an
// injected repository.
type Service struct {
	repo Repository
}

// NewService creates a credits service from an injected repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// NewServiceFromDB creates a credits service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(NewRepository(db))
}

// EnsureLedger creates the user's ledger with the free starting balance if
// none exists yet. Called at account creation.
func (s *Service) EnsureLedger(ctx context.Context, userID uint) (*models.CreditLedger, error) {
	_ = ctx
	if userID == 0 {
		return nil, errors.New("user_id is required")
	}
	ledger, err := s.repo.GetLedgerByUserID(userID)
	if err == nil {
		return ledger, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	ledger = &models.CreditLedger{
		UserID:  userID,
		Balance: DefaultFreeCredits,
		Tier:    models.TierFree,
	}
	if err := s.repo.CreateLedger(ledger); err != nil {
		return nil, err
	}
	return ledger, nil
}

// Admit gates one costed operation. Zero-cost operations are admitted
// without touching the ledger. Otherwise the check and the deduct happen as
// a single conditional update, so two concurrent calls can never both pass
// against the same stale balance. Charging happens at admission; a failing
// downstream AI call does not refund.
func (s *Service) Admit(ctx context.Context, userID uint, op Operation) (*Admission, error) {
	_ = ctx
	cost, ok := OperationCost(op)
	if !ok {
		return nil, ErrUnknownOperation
	}
	admission := &Admission{Operation: op, Cost: cost, Required: cost}
	if cost == 0 {
		admission.Allowed = true
		return admission, nil
	}
	if userID == 0 {
		return nil, errors.New("user_id is required")
	}

	deducted, err := s.repo.DeductBalance(userID, cost)
	if err != nil {
		return nil, err
	}
	if !deducted {
		ledger, err := s.repo.GetLedgerByUserID(userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrLedgerNotFound
			}
			return nil, err
		}
		admission.Available = ledger.Balance
		return admission, ErrInsufficientCredits
	}

	admission.Allowed = true
	// Best effort; the post-deduct balance is informational.
	if ledger, err := s.repo.GetLedgerByUserID(userID); err == nil {
		admission.Available = ledger.Balance
	}
	// Audit trail only; a write failure here must not revoke admission.
	if err := s.repo.RecordUsageEvent(&models.UsageEvent{
		UserID:    userID,
		Operation: string(op),
		Cost:      cost,
	}); err != nil {
		log.Printf("usage event write failed for user %d op %s: %v", userID, op, err)
	}
	return admission, nil
}

// Settle consumes a verified gateway notification and applies it to the
// payment record and, exactly once per gateway payment id, to the ledger.
func (s *Service) Settle(ctx context.Context, event *RazorpayWebhookEvent) (SettleOutcome, error) {
	_ = ctx
	if event == nil || strings.TrimSpace(event.GatewayPaymentID) == "" {
		return SettleOutcomeIgnored, errors.New("settlement event has no payment id")
	}

	switch event.Event {
	case RazorpayEventPaymentCaptured:
		return s.settleCaptured(event)
	case RazorpayEventPaymentFailed:
		return s.settleFailed(event)
	case RazorpayEventRefundProcessed:
		// Reversal of already-applied credits is out of scope; the record
		// status is the only thing that changes.
		if err := s.repo.UpdatePaymentStatus(event.GatewayPaymentID, models.PaymentStatusRefunded, ""); err != nil {
			return SettleOutcomeIgnored, err
		}
		return SettleOutcomeIgnored, nil
	default:
		return SettleOutcomeIgnored, nil
	}
}

func (s *Service) settleCaptured(event *RazorpayWebhookEvent) (SettleOutcome, error) {
	plan, ok := LookupPlan(event.Plan)
	if !ok {
		return SettleOutcomeIgnored, ErrUnknownPlan
	}

	created, stored, err := s.repo.CreatePaymentIfNotExists(&models.Payment{
		UserID:           event.UserID,
		GatewayPaymentID: event.GatewayPaymentID,
		GatewayOrderID:   event.GatewayOrderID,
		Signature:        event.Signature,
		Amount:           event.Amount,
		Currency:         event.Currency,
		Status:           models.PaymentStatusPending,
		Method:           models.NormalizePaymentMethod(event.Method),
		Plan:             plan.ID,
		CreditsGranted:   plan.Credits,
	})
	if err != nil {
		return SettleOutcomeIgnored, err
	}
	if !created && stored.CreditsApplied {
		// At-least-once delivery: the gateway resent a notification whose
		// credits are already on the ledger. Metadata may still be fresher
		// than what the first delivery carried; the ledger stays untouched.
		if err := s.repo.UpdatePaymentMetadata(event.GatewayPaymentID, models.NormalizePaymentMethod(event.Method), event.Signature); err != nil {
			log.Printf("metadata refresh failed for payment %s: %v", event.GatewayPaymentID, err)
		}
		return SettleOutcomeIgnored, ErrDuplicateSettlement
	}

	ownerID := stored.UserID
	if ownerID == 0 {
		ownerID = event.UserID
	}
	applied, err := s.repo.ApplyCredits(event.GatewayPaymentID, ownerID, plan.Credits, IsStarterPlan(plan.ID))
	if errors.Is(err, ErrStarterOfferClaimed) {
		if uerr := s.repo.UpdatePaymentStatus(event.GatewayPaymentID, models.PaymentStatusFailed, "starter offer already claimed"); uerr != nil {
			return SettleOutcomeIgnored, uerr
		}
		return SettleOutcomeIgnored, ErrStarterOfferClaimed
	}
	if err != nil {
		return SettleOutcomeIgnored, err
	}
	if !applied {
		// Lost the race against a concurrent delivery of the same payment.
		return SettleOutcomeIgnored, ErrDuplicateSettlement
	}
	return SettleOutcomeSettled, nil
}

func (s *Service) settleFailed(event *RazorpayWebhookEvent) (SettleOutcome, error) {
	created, stored, err := s.repo.CreatePaymentIfNotExists(&models.Payment{
		UserID:           event.UserID,
		GatewayPaymentID: event.GatewayPaymentID,
		GatewayOrderID:   event.GatewayOrderID,
		Amount:           event.Amount,
		Currency:         event.Currency,
		Status:           models.PaymentStatusFailed,
		Method:           models.NormalizePaymentMethod(event.Method),
		Plan:             strings.ToLower(strings.TrimSpace(event.Plan)),
		FailureReason:    event.FailureReason,
	})
	if err != nil {
		return SettleOutcomeIgnored, err
	}
	if !created && !stored.CreditsApplied {
		if err := s.repo.UpdatePaymentStatus(event.GatewayPaymentID, models.PaymentStatusFailed, event.FailureReason); err != nil {
			return SettleOutcomeIgnored, err
		}
	}
	return SettleOutcomeFailed, nil
}
