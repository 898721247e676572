package credits

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ManuelReschke/ResumeFox/app/models"
)

// fakeRepository implements Repository in memory with the same conditional
// semantics the SQL layer guarantees, so the race-sensitive properties can
// be exercised without a database.
type fakeRepository struct {
	mu       sync.Mutex
	ledgers  map[uint]*models.CreditLedger
	payments map[string]*models.Payment
	events   []models.UsageEvent
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		ledgers:  make(map[uint]*models.CreditLedger),
		payments: make(map[string]*models.Payment),
	}
}

func (f *fakeRepository) CreateLedger(ledger *models.CreditLedger) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ledgers[ledger.UserID] = ledger
	return nil
}

func (f *fakeRepository) GetLedgerByUserID(userID uint) (*models.CreditLedger, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ledger, ok := f.ledgers[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *ledger
	return &copied, nil
}

func (f *fakeRepository) DeductBalance(userID uint, cost int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ledger, ok := f.ledgers[userID]
	if !ok || ledger.Balance < cost {
		return false, nil
	}
	ledger.Balance -= cost
	ledger.LifetimeUsed += cost
	return true, nil
}

func (f *fakeRepository) CreatePaymentIfNotExists(payment *models.Payment) (bool, *models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if stored, ok := f.payments[payment.GatewayPaymentID]; ok {
		copied := *stored
		return false, &copied, nil
	}
	copied := *payment
	f.payments[payment.GatewayPaymentID] = &copied
	result := copied
	return true, &result, nil
}

func (f *fakeRepository) GetPaymentByGatewayID(gatewayPaymentID string) (*models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.payments[gatewayPaymentID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *stored
	return &copied, nil
}

func (f *fakeRepository) ApplyCredits(gatewayPaymentID string, userID uint, creditsGranted int64, markStarterClaimed bool) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	payment, ok := f.payments[gatewayPaymentID]
	if !ok || payment.CreditsApplied {
		return false, nil
	}
	ledger, ok := f.ledgers[userID]
	if !ok {
		return false, ErrLedgerNotFound
	}
	if markStarterClaimed && ledger.StarterOfferClaimed {
		return false, ErrStarterOfferClaimed
	}
	payment.CreditsApplied = true
	payment.CreditsGranted = creditsGranted
	payment.Status = models.PaymentStatusSuccess
	ledger.Balance += creditsGranted
	if markStarterClaimed {
		ledger.StarterOfferClaimed = true
	}
	return true, nil
}

func (f *fakeRepository) UpdatePaymentStatus(gatewayPaymentID string, status, failureReason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if payment, ok := f.payments[gatewayPaymentID]; ok {
		payment.Status = status
		if failureReason != "" {
			payment.FailureReason = failureReason
		}
	}
	return nil
}

func (f *fakeRepository) UpdatePaymentMetadata(gatewayPaymentID string, method, signature string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if payment, ok := f.payments[gatewayPaymentID]; ok {
		if method != "" {
			payment.Method = method
		}
		if signature != "" {
			payment.Signature = signature
		}
	}
	return nil
}

func (f *fakeRepository) RecordUsageEvent(event *models.UsageEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, *event)
	return nil
}

func (f *fakeRepository) SumUsageByDay(userID uint, since time.Time) ([]UsageBucket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	totals := make(map[Operation]*UsageBucket)
	var buckets []UsageBucket
	for _, ev := range f.events {
		if ev.UserID != userID {
			continue
		}
		op := Operation(ev.Operation)
		if b, ok := totals[op]; ok {
			b.Credits += ev.Cost
			b.Count++
			continue
		}
		totals[op] = &UsageBucket{Operation: op, Credits: ev.Cost, Count: 1}
	}
	for _, b := range totals {
		buckets = append(buckets, *b)
	}
	return buckets, nil
}

func (f *fakeRepository) ListRecentPayments(userID uint, limit int) ([]models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var payments []models.Payment
	for _, p := range f.payments {
		if p.UserID == userID {
			payments = append(payments, *p)
		}
	}
	if len(payments) > limit {
		payments = payments[:limit]
	}
	return payments, nil
}

func newTestService(t *testing.T, balance int64) (*Service, *fakeRepository) {
	t.Helper()
	repo := newFakeRepository()
	repo.ledgers[1] = &models.CreditLedger{UserID: 1, Balance: balance, Tier: models.TierFree}
	return NewService(repo), repo
}

func capturedEvent(paymentID, plan string, userID uint) *RazorpayWebhookEvent {
	return &RazorpayWebhookEvent{
		Event:            RazorpayEventPaymentCaptured,
		GatewayPaymentID: paymentID,
		GatewayOrderID:   "order_123",
		UserID:           userID,
		Plan:             plan,
		Amount:           19900,
		Currency:         "INR",
		Method:           "upi",
	}
}

func TestEnsureLedgerSeedsFreeBalance(t *testing.T) {
	svc := NewService(newFakeRepository())

	ledger, err := svc.EnsureLedger(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, DefaultFreeCredits, ledger.Balance)
	assert.Equal(t, models.TierFree, ledger.Tier)
	assert.False(t, ledger.StarterOfferClaimed)

	// Second call returns the existing ledger untouched.
	again, err := svc.EnsureLedger(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, ledger.Balance, again.Balance)
}

func TestAdmitExactBalanceThenDenied(t *testing.T) {
	svc, repo := newTestService(t, 5)

	admission, err := svc.Admit(context.Background(), 1, OperationAnalysis)
	require.NoError(t, err)
	assert.True(t, admission.Allowed)
	assert.EqualValues(t, 5, admission.Cost)
	assert.EqualValues(t, 0, repo.ledgers[1].Balance)
	assert.EqualValues(t, 5, repo.ledgers[1].LifetimeUsed)

	admission, err = svc.Admit(context.Background(), 1, OperationAnalysis)
	require.ErrorIs(t, err, ErrInsufficientCredits)
	assert.False(t, admission.Allowed)
	assert.EqualValues(t, 5, admission.Required)
	assert.EqualValues(t, 0, admission.Available)
}

func TestAdmitZeroCostOperationAlwaysPasses(t *testing.T) {
	svc := NewService(newFakeRepository())

	// No ledger exists at all; build_export must still be admitted.
	admission, err := svc.Admit(context.Background(), 1, OperationBuildExport)
	require.NoError(t, err)
	assert.True(t, admission.Allowed)
	assert.EqualValues(t, 0, admission.Cost)
}

func TestAdmitUnknownOperation(t *testing.T) {
	svc, _ := newTestService(t, 100)

	_, err := svc.Admit(context.Background(), 1, Operation("resume_tarot"))
	require.ErrorIs(t, err, ErrUnknownOperation)
}

func TestAdmitConcurrentSingleWinner(t *testing.T) {
	svc, repo := newTestService(t, 10)

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = svc.Admit(context.Background(), 1, OperationOptimizationGeneral)
		}(i)
	}
	wg.Wait()

	admitted := 0
	for _, err := range results {
		if err == nil {
			admitted++
		} else {
			require.ErrorIs(t, err, ErrInsufficientCredits)
		}
	}
	assert.Equal(t, 1, admitted)
	assert.EqualValues(t, 0, repo.ledgers[1].Balance)
}

func TestAdmitConcurrentNeverOverspends(t *testing.T) {
	const start = 47
	svc, repo := newTestService(t, start)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var spent int64
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			admission, err := svc.Admit(context.Background(), 1, OperationAnalysis)
			if err == nil {
				mu.Lock()
				spent += admission.Cost
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.GreaterOrEqual(t, repo.ledgers[1].Balance, int64(0))
	assert.EqualValues(t, start-spent, repo.ledgers[1].Balance)
	assert.EqualValues(t, spent, repo.ledgers[1].LifetimeUsed)
}

func TestSettleBasicPlanGrantsCredits(t *testing.T) {
	svc, repo := newTestService(t, 0)

	outcome, err := svc.Settle(context.Background(), capturedEvent("pay_abc", PlanBasic, 1))
	require.NoError(t, err)
	assert.Equal(t, SettleOutcomeSettled, outcome)

	ledger := repo.ledgers[1]
	assert.EqualValues(t, 200, ledger.Balance)
	assert.EqualValues(t, 0, ledger.LifetimeUsed)

	payment := repo.payments["pay_abc"]
	require.NotNil(t, payment)
	assert.True(t, payment.CreditsApplied)
	assert.EqualValues(t, 200, payment.CreditsGranted)
	assert.Equal(t, models.PaymentStatusSuccess, payment.Status)
}

func TestSettleReplayGrantsOnce(t *testing.T) {
	svc, repo := newTestService(t, 0)
	event := capturedEvent("pay_replay", PlanBasic, 1)

	settled := 0
	for i := 0; i < 5; i++ {
		outcome, err := svc.Settle(context.Background(), event)
		if outcome == SettleOutcomeSettled {
			require.NoError(t, err)
			settled++
		} else {
			require.ErrorIs(t, err, ErrDuplicateSettlement)
			assert.Equal(t, SettleOutcomeIgnored, outcome)
		}
	}

	assert.Equal(t, 1, settled)
	assert.EqualValues(t, 200, repo.ledgers[1].Balance)
	assert.True(t, repo.payments["pay_replay"].CreditsApplied)
}

func TestSettleReplayRefreshesMetadataOnly(t *testing.T) {
	svc, repo := newTestService(t, 0)

	outcome, err := svc.Settle(context.Background(), capturedEvent("pay_meta", PlanBasic, 1))
	require.NoError(t, err)
	require.Equal(t, SettleOutcomeSettled, outcome)

	replay := capturedEvent("pay_meta", PlanBasic, 1)
	replay.Method = "card"
	replay.Signature = "resent-signature"
	outcome, err = svc.Settle(context.Background(), replay)
	require.ErrorIs(t, err, ErrDuplicateSettlement)
	assert.Equal(t, SettleOutcomeIgnored, outcome)

	payment := repo.payments["pay_meta"]
	assert.Equal(t, models.PaymentMethodCard, payment.Method)
	assert.Equal(t, "resent-signature", payment.Signature)
	// Metadata only: the grant and the ledger stay as the first delivery
	// left them.
	assert.EqualValues(t, 200, payment.CreditsGranted)
	assert.EqualValues(t, 200, repo.ledgers[1].Balance)
}

func TestSettleConcurrentReplayGrantsOnce(t *testing.T) {
	svc, repo := newTestService(t, 0)
	event := capturedEvent("pay_race", PlanPro, 1)

	var wg sync.WaitGroup
	outcomes := make([]SettleOutcome, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i], _ = svc.Settle(context.Background(), event)
		}(i)
	}
	wg.Wait()

	settled := 0
	for _, outcome := range outcomes {
		if outcome == SettleOutcomeSettled {
			settled++
		}
	}
	assert.Equal(t, 1, settled)
	assert.EqualValues(t, 500, repo.ledgers[1].Balance)
}

func TestSettleFailedNeverTouchesLedger(t *testing.T) {
	svc, repo := newTestService(t, 30)

	event := capturedEvent("pay_bad", PlanBasic, 1)
	event.Event = RazorpayEventPaymentFailed
	event.FailureReason = "card declined"

	outcome, err := svc.Settle(context.Background(), event)
	require.NoError(t, err)
	assert.Equal(t, SettleOutcomeFailed, outcome)
	assert.EqualValues(t, 30, repo.ledgers[1].Balance)

	payment := repo.payments["pay_bad"]
	require.NotNil(t, payment)
	assert.Equal(t, models.PaymentStatusFailed, payment.Status)
	assert.Equal(t, "card declined", payment.FailureReason)
	assert.False(t, payment.CreditsApplied)
}

func TestSettleRefundKeepsCredits(t *testing.T) {
	svc, repo := newTestService(t, 0)

	_, err := svc.Settle(context.Background(), capturedEvent("pay_ref", PlanBasic, 1))
	require.NoError(t, err)

	outcome, err := svc.Settle(context.Background(), &RazorpayWebhookEvent{
		Event:            RazorpayEventRefundProcessed,
		GatewayPaymentID: "pay_ref",
	})
	require.NoError(t, err)
	assert.Equal(t, SettleOutcomeIgnored, outcome)

	assert.Equal(t, models.PaymentStatusRefunded, repo.payments["pay_ref"].Status)
	assert.EqualValues(t, 200, repo.ledgers[1].Balance)
}

func TestSettleUnknownPlanIsIgnored(t *testing.T) {
	svc, repo := newTestService(t, 0)

	outcome, err := svc.Settle(context.Background(), capturedEvent("pay_odd", "mystery", 1))
	require.ErrorIs(t, err, ErrUnknownPlan)
	assert.Equal(t, SettleOutcomeIgnored, outcome)
	assert.EqualValues(t, 0, repo.ledgers[1].Balance)
	assert.Nil(t, repo.payments["pay_odd"])
}

func TestSettleStarterPlanMarksOfferClaimed(t *testing.T) {
	svc, repo := newTestService(t, 0)

	outcome, err := svc.Settle(context.Background(), capturedEvent("pay_st", PlanStarter, 1))
	require.NoError(t, err)
	assert.Equal(t, SettleOutcomeSettled, outcome)
	assert.True(t, repo.ledgers[1].StarterOfferClaimed)
	assert.EqualValues(t, 50, repo.ledgers[1].Balance)
}

func TestSettleSecondStarterPaymentGrantsNothing(t *testing.T) {
	svc, repo := newTestService(t, 0)

	outcome, err := svc.Settle(context.Background(), capturedEvent("pay_st1", PlanStarter, 1))
	require.NoError(t, err)
	require.Equal(t, SettleOutcomeSettled, outcome)

	// A distinct starter payment for the same user must not grant again.
	outcome, err = svc.Settle(context.Background(), capturedEvent("pay_st2", PlanStarter, 1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStarterOfferClaimed))
	assert.Equal(t, SettleOutcomeIgnored, outcome)
	assert.EqualValues(t, 50, repo.ledgers[1].Balance)
	assert.Equal(t, models.PaymentStatusFailed, repo.payments["pay_st2"].Status)
}

func TestSettleMissingLedgerRollsBack(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo)

	outcome, err := svc.Settle(context.Background(), capturedEvent("pay_orphan", PlanBasic, 99))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLedgerNotFound))
	assert.Equal(t, SettleOutcomeIgnored, outcome)
	// The flag must not be set when no credits landed.
	assert.False(t, repo.payments["pay_orphan"].CreditsApplied)
}

func TestReportAggregatesUsageAndPayments(t *testing.T) {
	svc, _ := newTestService(t, 100)

	_, err := svc.Admit(context.Background(), 1, OperationAnalysis)
	require.NoError(t, err)
	_, err = svc.Admit(context.Background(), 1, OperationAnalysis)
	require.NoError(t, err)
	_, err = svc.Settle(context.Background(), capturedEvent("pay_rep", PlanBasic, 1))
	require.NoError(t, err)

	report, err := svc.Report(context.Background(), 1)
	require.NoError(t, err)
	assert.EqualValues(t, 290, report.Balance)
	assert.EqualValues(t, 10, report.LifetimeUsed)
	require.Len(t, report.Usage, 1)
	assert.EqualValues(t, 10, report.Usage[0].Credits)
	assert.EqualValues(t, 2, report.Usage[0].Count)
	require.Len(t, report.RecentPayments, 1)
	assert.Equal(t, "pay_rep", report.RecentPayments[0].GatewayPaymentID)
}

func TestReportUnknownUser(t *testing.T) {
	svc := NewService(newFakeRepository())

	_, err := svc.Report(context.Background(), 404)
	require.ErrorIs(t, err, ErrLedgerNotFound)
}
