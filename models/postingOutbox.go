package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// Posting outbox statuses. PENDING rows are claimable; PROCESSING rows are
// owned by a dispatcher; SUCCEEDED/DEAD are terminal; FAILED rows retry after
// NextAttemptAt; CANCELLED rows belong to documents reversed before their
// posting ever ran.
const (
	OutboxStatusPending    = "PENDING"
	OutboxStatusProcessing = "PROCESSING"
	OutboxStatusSucceeded  = "SUCCEEDED"
	OutboxStatusFailed     = "FAILED"
	OutboxStatusDead       = "DEAD"
	OutboxStatusCancelled  = "CANCELLED"
)

// OutboxMaxAttempts is how many posting attempts a row gets before it is
// parked as DEAD for operator attention.
const OutboxMaxAttempts = 5

// PostingOutbox is the durable hand-off between document creation and ledger
// posting. The row is inserted in the same transaction as the document, so a
// posting request can never be lost, and a posting failure is visible in the
// row instead of being swallowed.
type PostingOutbox struct {
	ID              int             `gorm:"primary_key" json:"id"`
	TenantId        int             `gorm:"index;not null" json:"tenant_id"`
	TransactionType TransactionType `gorm:"size:50;not null" json:"transaction_type"`
	ReferenceId     int             `gorm:"index;not null" json:"reference_id"`
	ReferenceNumber string          `gorm:"size:100" json:"reference_number"`
	Username        string          `gorm:"size:255" json:"username"`
	Payload         string          `gorm:"type:text;not null" json:"payload"`
	Status          string          `gorm:"size:20;not null;default:'PENDING';index:idx_outbox_claim" json:"status"`
	Attempts        int             `gorm:"not null;default:0" json:"attempts"`
	NextAttemptAt   time.Time       `gorm:"index:idx_outbox_claim" json:"next_attempt_at"`
	LockedAt        *time.Time      `json:"locked_at"`
	LockedBy        string          `gorm:"size:100" json:"locked_by"`
	LastError       string          `gorm:"type:text" json:"last_error"`
	VoucherId       *int            `json:"voucher_id"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// EnqueuePosting stages a ledger posting inside the caller's transaction.
func EnqueuePosting(tx *gorm.DB, tenantId int, username string, transactionType TransactionType, referenceId int, referenceNumber string, data TransactionData) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	row := PostingOutbox{
		TenantId:        tenantId,
		TransactionType: transactionType,
		ReferenceId:     referenceId,
		ReferenceNumber: referenceNumber,
		Username:        username,
		Payload:         string(payload),
		Status:          OutboxStatusPending,
		NextAttemptAt:   time.Now().UTC(),
	}
	return tx.Create(&row).Error
}

// CancelPendingPostings marks not-yet-processed outbox rows of a document as
// CANCELLED. Used when a document is reversed before the dispatcher got to
// it, so the reversal does not race a late posting.
func CancelPendingPostings(tx *gorm.DB, tenantId int, transactionType TransactionType, referenceId int) (int64, error) {
	result := tx.Model(&PostingOutbox{}).
		Where("tenant_id = ? AND transaction_type = ? AND reference_id = ? AND status IN ?",
			tenantId, transactionType, referenceId, []string{OutboxStatusPending, OutboxStatusFailed}).
		Updates(map[string]interface{}{
			"status":     OutboxStatusCancelled,
			"updated_at": time.Now().UTC(),
		})
	return result.RowsAffected, result.Error
}

// RequeueDeadPostings puts DEAD (and stuck FAILED) rows back in line after
// the underlying fault is fixed, ops tooling only. Returns how many rows
// were requeued.
func RequeueDeadPostings(tx *gorm.DB, tenantId int, ids []int) (int64, error) {
	q := tx.Model(&PostingOutbox{}).
		Where("status IN ?", []string{OutboxStatusDead, OutboxStatusFailed})
	if tenantId > 0 {
		q = q.Where("tenant_id = ?", tenantId)
	}
	if len(ids) > 0 {
		q = q.Where("id IN ?", ids)
	}
	result := q.Updates(map[string]interface{}{
		"status":          OutboxStatusPending,
		"attempts":        0,
		"last_error":      "",
		"next_attempt_at": time.Now().UTC(),
		"locked_at":       nil,
		"locked_by":       "",
	})
	return result.RowsAffected, result.Error
}

// OutboxBackoff returns the retry delay before the given attempt number
// (1-based): 1m, 2m, 4m, ... capped at an hour.
func OutboxBackoff(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	delay := time.Minute << (attempts - 1)
	if delay > time.Hour || delay <= 0 {
		delay = time.Hour
	}
	return delay
}
