package jobqueue

import (
	"encoding/json"
	"time"
)

// JobType defines the type of job
type JobType string

const (
	JobTypeActivationEmail JobType = "activation_email"
	JobTypePurchaseEmail   JobType = "purchase_email"
	JobTypeLowCreditEmail  JobType = "low_credit_email"
)

// JobStatus defines the status of a job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusRetrying   JobStatus = "retrying"
)

// Job represents a background job
type Job struct {
	ID          string                 `json:"id"`
	Type        JobType                `json:"type"`
	Status      JobStatus              `json:"status"`
	Payload     map[string]interface{} `json:"payload"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	ProcessedAt *time.Time             `json:"processed_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	ErrorMsg    string                 `json:"error_msg,omitempty"`
	RetryCount  int                    `json:"retry_count"`
	MaxRetries  int                    `json:"max_retries"`
}

// ActivationEmailJobPayload contains the payload for account activation mails
type ActivationEmailJobPayload struct {
	UserID   uint   `json:"user_id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Token    string `json:"token"`
}

// ToMap converts the payload to a map for storage
func (p ActivationEmailJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"user_id":  p.UserID,
		"email":    p.Email,
		"username": p.Username,
		"token":    p.Token,
	}
}

// FromMap creates a payload from a map
func ActivationEmailJobPayloadFromMap(data map[string]interface{}) (*ActivationEmailJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var payload ActivationEmailJobPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}

// PurchaseEmailJobPayload contains the payload for purchase confirmation mails
type PurchaseEmailJobPayload struct {
	UserID           uint   `json:"user_id"`
	Plan             string `json:"plan"`
	GatewayPaymentID string `json:"gateway_payment_id"`
}

// ToMap converts the payload to a map for storage
func (p PurchaseEmailJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"user_id":            p.UserID,
		"plan":               p.Plan,
		"gateway_payment_id": p.GatewayPaymentID,
	}
}

// FromMap creates a payload from a map
func PurchaseEmailJobPayloadFromMap(data map[string]interface{}) (*PurchaseEmailJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var payload PurchaseEmailJobPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}

// LowCreditEmailJobPayload contains the payload for low balance warnings
type LowCreditEmailJobPayload struct {
	UserID  uint  `json:"user_id"`
	Balance int64 `json:"balance"`
}

// ToMap converts the payload to a map for storage
func (p LowCreditEmailJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"user_id": p.UserID,
		"balance": p.Balance,
	}
}

// FromMap creates a payload from a map
func LowCreditEmailJobPayloadFromMap(data map[string]interface{}) (*LowCreditEmailJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var payload LowCreditEmailJobPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}

// IsRetryable checks if the job can be retried
func (j *Job) IsRetryable() bool {
	return j.Status == JobStatusFailed && j.RetryCount < j.MaxRetries
}

// MarkAsProcessing updates the job status to processing
func (j *Job) MarkAsProcessing() {
	now := time.Now()
	j.Status = JobStatusProcessing
	j.UpdatedAt = now
	j.ProcessedAt = &now
}

// MarkAsCompleted updates the job status to completed
func (j *Job) MarkAsCompleted() {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.UpdatedAt = now
	j.CompletedAt = &now
	j.ErrorMsg = ""
}

// MarkAsFailed updates the job status to failed
func (j *Job) MarkAsFailed(errorMsg string) {
	j.Status = JobStatusFailed
	j.UpdatedAt = time.Now()
	j.ErrorMsg = errorMsg
	j.RetryCount++
}

// MarkAsRetrying updates the job status to retrying
func (j *Job) MarkAsRetrying() {
	j.Status = JobStatusRetrying
	j.UpdatedAt = time.Now()
}
