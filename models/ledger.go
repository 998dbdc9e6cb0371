package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/erp_backend/config"
	"bitbucket.org/mmdatafocus/erp_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LedgerEntry is the flattened per-account view of posted journal details,
// kept for fast account-statement and balance queries. Entries are written in
// the same transaction as their voucher so the ledger can never drift from
// the journals.
type LedgerEntry struct {
	ID              int             `gorm:"primary_key" json:"id"`
	TenantId        int             `gorm:"index;not null" json:"tenant_id"`
	AccountId       int             `gorm:"index;not null" json:"account_id"`
	VoucherId       int             `gorm:"index;not null" json:"voucher_id"`
	JournalId       int             `gorm:"index" json:"journal_id"`
	JournalDetailId int             `gorm:"index" json:"journal_detail_id"`
	EntryDate       time.Time       `gorm:"index;not null" json:"entry_date"`
	Debit           decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"debit"`
	Credit          decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"credit"`
	Description     string          `gorm:"size:255" json:"description"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// CreateLedgerEntriesFromVoucher materializes every journal detail of the
// voucher as one ledger row. The voucher must carry its journals and details
// in memory (freshly created or preloaded).
func CreateLedgerEntriesFromVoucher(tx *gorm.DB, voucher *Voucher) error {
	var entries []LedgerEntry
	for _, journal := range voucher.Journals {
		for _, detail := range journal.Details {
			entries = append(entries, LedgerEntry{
				TenantId:        voucher.TenantId,
				AccountId:       detail.AccountId,
				VoucherId:       voucher.ID,
				JournalId:       journal.ID,
				JournalDetailId: detail.ID,
				EntryDate:       voucher.VoucherDate,
				Debit:           detail.DebitAmount,
				Credit:          detail.CreditAmount,
				Description:     detail.Description,
			})
		}
	}
	if len(entries) == 0 {
		return nil
	}
	return tx.Create(&entries).Error
}

// GetAccountBalance returns SUM(debit) - SUM(credit) for one account.
func GetAccountBalance(ctx context.Context, accountId int) (decimal.Decimal, error) {

	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId <= 0 {
		return decimal.Zero, errors.New("tenant id is required")
	}

	var balance decimal.Decimal
	db := config.GetDB()
	err := db.WithContext(ctx).
		Model(&LedgerEntry{}).
		Select("COALESCE(SUM(debit - credit), 0)").
		Where("tenant_id = ?", tenantId).
		Where("account_id = ?", accountId).
		Scan(&balance).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}
	return balance, nil
}
