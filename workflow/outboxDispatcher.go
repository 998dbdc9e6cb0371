package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/erp_backend/appctx"
	"bitbucket.org/mmdatafocus/erp_backend/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OutboxDispatcher drains the posting outbox: it claims due rows under
// SKIP LOCKED, runs the posting engine for each inside its own transaction
// and records the outcome on the row. Multiple dispatchers can run against
// the same database without stepping on each other.
type OutboxDispatcher struct {
	DB           *gorm.DB
	Logger       *logrus.Logger
	DispatcherID string

	BatchSize    int
	PollInterval time.Duration
	LockTimeout  time.Duration
	MaxAttempts  int
}

func NewOutboxDispatcher(db *gorm.DB, logger *logrus.Logger) *OutboxDispatcher {
	return &OutboxDispatcher{
		DB:           db,
		Logger:       logger,
		DispatcherID: uuid.NewString(),
		BatchSize:    50,
		PollInterval: 500 * time.Millisecond,
		LockTimeout:  30 * time.Second,
		MaxAttempts:  models.OutboxMaxAttempts,
	}
}

func (d *OutboxDispatcher) Run(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		d.dispatchOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-time.After(d.PollInterval):
		}
	}
}

func (d *OutboxDispatcher) dispatchOnce(ctx context.Context) {
	now := time.Now().UTC()
	staleBefore := now.Add(-d.LockTimeout)
	db := d.DB
	if db == nil {
		return
	}

	var claimed []models.PostingOutbox
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Eligible:
		// - PENDING / FAILED and ready to retry
		// - PROCESSING but lock is stale (dispatcher crashed mid-batch), reclaim after LockTimeout
		q := tx.
			Where(`
				(
					status IN ? AND (next_attempt_at IS NULL OR next_attempt_at <= ?)
				)
				OR
				(
					status = ? AND locked_at IS NOT NULL AND locked_at <= ?
				)
			`, []string{models.OutboxStatusPending, models.OutboxStatusFailed}, now, models.OutboxStatusProcessing, staleBefore).
			Order("id ASC").
			Limit(d.BatchSize).
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		if err := q.Find(&claimed).Error; err != nil {
			return err
		}
		if len(claimed) == 0 {
			return nil
		}
		for i := range claimed {
			// Enforce max attempts: poison rows go terminal.
			if d.MaxAttempts > 0 && claimed[i].Attempts >= d.MaxAttempts {
				msg := fmt.Sprintf("max posting attempts exceeded (%d)", d.MaxAttempts)
				claimed[i].Status = models.OutboxStatusDead
				if err := tx.Model(&models.PostingOutbox{}).Where("id = ?", claimed[i].ID).Updates(map[string]interface{}{
					"status":          models.OutboxStatusDead,
					"last_error":      msg,
					"next_attempt_at": nil,
					"locked_at":       nil,
					"locked_by":       nil,
				}).Error; err != nil {
					return err
				}
				continue
			}

			// Claim for posting.
			claimed[i].Status = models.OutboxStatusProcessing
			claimed[i].LockedAt = &now
			claimed[i].LockedBy = d.DispatcherID
			claimed[i].Attempts = claimed[i].Attempts + 1
			if err := tx.Model(&models.PostingOutbox{}).Where("id = ?", claimed[i].ID).Updates(map[string]interface{}{
				"status":          claimed[i].Status,
				"locked_at":       claimed[i].LockedAt,
				"locked_by":       claimed[i].LockedBy,
				"attempts":        gorm.Expr("attempts + 1"),
				"last_error":      "",
				"next_attempt_at": nil,
			}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil || len(claimed) == 0 {
		return
	}

	for _, rec := range claimed {
		// Skip terminal rows that were marked DEAD in the claim transaction.
		if rec.Status == models.OutboxStatusDead {
			continue
		}
		if err := d.processRecord(ctx, rec); err != nil {
			d.markFailed(ctx, rec, err)
			continue
		}
	}
}

// processRecord runs the posting engine for one claimed row. Voucher
// creation and the SUCCEEDED mark commit atomically; a crash in between can
// at worst leave a stale PROCESSING row for the reclaim path.
func (d *OutboxDispatcher) processRecord(ctx context.Context, rec models.PostingOutbox) error {
	var data models.TransactionData
	if err := json.Unmarshal([]byte(rec.Payload), &data); err != nil {
		return fmt.Errorf("payload unmarshal: %w", err)
	}
	rc := appctx.RequestContext{TenantId: rec.TenantId, Username: rec.Username}
	postingCtx := rc.Inject(ctx)

	return d.DB.WithContext(postingCtx).Transaction(func(tx *gorm.DB) error {
		if err := AcquireTenantPostingLock(tx, rec.TenantId); err != nil {
			return err
		}

		// The document may have been reversed while this row waited; posting
		// now would immediately need a reversal, so drop the row instead.
		var cancelled int64
		if err := tx.Model(&models.PostingOutbox{}).
			Where("id = ? AND status = ?", rec.ID, models.OutboxStatusCancelled).
			Count(&cancelled).Error; err != nil {
			return err
		}
		if cancelled > 0 {
			return nil
		}

		voucher, err := models.PostTransaction(postingCtx, tx, rc, rec.TransactionType, rec.ReferenceId, rec.ReferenceNumber, data)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		return tx.Model(&models.PostingOutbox{}).
			Where("id = ?", rec.ID).
			Updates(map[string]interface{}{
				"status":          models.OutboxStatusSucceeded,
				"voucher_id":      voucher.ID,
				"locked_at":       nil,
				"locked_by":       "",
				"next_attempt_at": nil,
				"updated_at":      now,
			}).Error
	})
}

func (d *OutboxDispatcher) markFailed(ctx context.Context, rec models.PostingOutbox, err error) {
	db := d.DB.WithContext(ctx)
	now := time.Now().UTC()
	msg := err.Error()

	// Terminal after MaxAttempts.
	if d.MaxAttempts > 0 && rec.Attempts >= d.MaxAttempts {
		_ = db.Model(&models.PostingOutbox{}).
			Where("id = ?", rec.ID).
			Updates(map[string]interface{}{
				"status":          models.OutboxStatusDead,
				"last_error":      msg,
				"next_attempt_at": nil,
				"locked_at":       nil,
				"locked_by":       "",
			}).Error

		if d.Logger != nil {
			d.Logger.WithFields(logrus.Fields{
				"field":     "OutboxDispatcher",
				"tenant_id": rec.TenantId,
				"record_id": rec.ID,
				"attempt":   rec.Attempts,
			}).Error("outbox posting moved to DEAD after max attempts: " + msg)
		}
		return
	}

	next := now.Add(models.OutboxBackoff(rec.Attempts))
	_ = db.Model(&models.PostingOutbox{}).
		Where("id = ?", rec.ID).
		Updates(map[string]interface{}{
			"status":          models.OutboxStatusFailed,
			"last_error":      msg,
			"next_attempt_at": &next,
			"locked_at":       nil,
			"locked_by":       "",
		}).Error

	if d.Logger != nil {
		d.Logger.WithFields(logrus.Fields{
			"field":           "OutboxDispatcher",
			"tenant_id":       rec.TenantId,
			"record_id":       rec.ID,
			"attempt":         rec.Attempts,
			"next_attempt_at": next.Format(time.RFC3339Nano),
		}).Error("outbox posting failed: " + msg)
	}
}
