package jobqueue

import (
	"fmt"
	"strings"

	"github.com/ManuelReschke/ResumeFox/app/models"
	"github.com/ManuelReschke/ResumeFox/internal/pkg/credits"
	"github.com/ManuelReschke/ResumeFox/internal/pkg/database"
	"github.com/ManuelReschke/ResumeFox/internal/pkg/env"
	"github.com/ManuelReschke/ResumeFox/internal/pkg/mail"
)

// processActivationEmailJob sends the account activation mail
func (q *Queue) processActivationEmailJob(job *Job) error {
	payload, err := ActivationEmailJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid activation email payload: %w", err)
	}

	base := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", "http://localhost:8080"), "/")
	link := fmt.Sprintf("%s/activate?token=%s", base, payload.Token)

	body := fmt.Sprintf(
		"<p>Hi %s,</p><p>welcome to ResumeFox! Please confirm your email address:</p>"+
			"<p><a href=\"%s\">Activate account</a></p>",
		payload.Username, link,
	)
	return mail.SendMail(payload.Email, "Activate your ResumeFox account", body)
}

// processPurchaseEmailJob sends the purchase confirmation mail, honoring the
// user's notification preference.
func (q *Queue) processPurchaseEmailJob(job *Job) error {
	payload, err := PurchaseEmailJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid purchase email payload: %w", err)
	}

	db := database.GetDB()
	var user models.User
	if err := db.First(&user, payload.UserID).Error; err != nil {
		return fmt.Errorf("user %d not found: %w", payload.UserID, err)
	}

	settings, err := models.GetOrCreateUserSettings(db, payload.UserID)
	if err != nil {
		return err
	}
	if !settings.EmailOnPurchase {
		return nil
	}

	plan, _ := credits.LookupPlan(payload.Plan)

	body := fmt.Sprintf(
		"<p>Hi %s,</p><p>your payment was received and <strong>%d credits</strong> "+
			"were added to your balance (plan: %s, payment %s).</p>",
		user.Name, plan.Credits, plan.ID, payload.GatewayPaymentID,
	)
	return mail.SendMail(user.Email, "Your ResumeFox credits have arrived", body)
}

// processLowCreditEmailJob warns a user whose balance dropped below the
// cheapest paid operation.
func (q *Queue) processLowCreditEmailJob(job *Job) error {
	payload, err := LowCreditEmailJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid low credit email payload: %w", err)
	}

	db := database.GetDB()
	var user models.User
	if err := db.First(&user, payload.UserID).Error; err != nil {
		return fmt.Errorf("user %d not found: %w", payload.UserID, err)
	}

	settings, err := models.GetOrCreateUserSettings(db, payload.UserID)
	if err != nil {
		return err
	}
	if !settings.EmailOnLowCredit {
		return nil
	}

	body := fmt.Sprintf(
		"<p>Hi %s,</p><p>your credit balance is down to <strong>%d</strong>. "+
			"Top up to keep analyzing and optimizing your resume.</p>",
		user.Name, payload.Balance,
	)
	return mail.SendMail(user.Email, "Your ResumeFox credits are running low", body)
}

// EnqueueActivationEmail queues the account activation mail.
func EnqueueActivationEmail(userID uint, email, username, token string) error {
	payload := ActivationEmailJobPayload{UserID: userID, Email: email, Username: username, Token: token}
	_, err := GetManager().GetQueue().EnqueueJob(JobTypeActivationEmail, payload.ToMap())
	return err
}

// EnqueuePurchaseEmail queues the purchase confirmation mail after a
// successful settlement.
func EnqueuePurchaseEmail(userID uint, plan, gatewayPaymentID string) error {
	payload := PurchaseEmailJobPayload{UserID: userID, Plan: plan, GatewayPaymentID: gatewayPaymentID}
	_, err := GetManager().GetQueue().EnqueueJob(JobTypePurchaseEmail, payload.ToMap())
	return err
}

// EnqueueLowCreditEmail queues a low balance warning.
func EnqueueLowCreditEmail(userID uint, balance int64) error {
	payload := LowCreditEmailJobPayload{UserID: userID, Balance: balance}
	_, err := GetManager().GetQueue().EnqueueJob(JobTypeLowCreditEmail, payload.ToMap())
	return err
}
