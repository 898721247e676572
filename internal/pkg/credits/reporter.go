package credits

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

const (
	usageWindowDays     = 30
	recentPaymentsLimit = 10
)

// Report assembles the read-only balance and usage view for one user. The
// reads are not transactional; slightly stale numbers are acceptable here,
// unlike in admission and settlement.
func (s *Service) Report(ctx context.Context, userID uint) (*UsageReport, error) {
	_ = ctx
	if userID == 0 {
		return nil, errors.New("user_id is required")
	}

	ledger, err := s.repo.GetLedgerByUserID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLedgerNotFound
		}
		return nil, err
	}

	since := time.Now().AddDate(0, 0, -usageWindowDays)
	buckets, err := s.repo.SumUsageByDay(userID, since)
	if err != nil {
		return nil, err
	}

	payments, err := s.repo.ListRecentPayments(userID, recentPaymentsLimit)
	if err != nil {
		return nil, err
	}

	report := &UsageReport{
		Balance:             ledger.Balance,
		LifetimeUsed:        ledger.LifetimeUsed,
		Tier:                ledger.Tier,
		StarterOfferClaimed: ledger.StarterOfferClaimed,
		Usage:               buckets,
		RecentPayments:      make([]RecentPayment, 0, len(payments)),
	}
	for _, p := range payments {
		report.RecentPayments = append(report.RecentPayments, RecentPayment{
			GatewayPaymentID: p.GatewayPaymentID,
			Plan:             p.Plan,
			Amount:           p.Amount,
			Currency:         p.Currency,
			Status:           p.Status,
			Method:           p.Method,
			CreditsGranted:   p.CreditsGranted,
			CreditsApplied:   p.CreditsApplied,
			CreatedAt:        p.CreatedAt,
		})
	}
	return report, nil
}
