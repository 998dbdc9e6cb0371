package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Voucher is the top-level accounting document; it groups one Journal.
type Voucher struct {
	ID              int             `gorm:"primary_key" json:"id"`
	TenantId        int             `gorm:"index;not null" json:"tenant_id"`
	VoucherNumber   string          `gorm:"size:100;not null" json:"voucher_number"`
	SequenceNo      decimal.Decimal `gorm:"type:decimal(15);not null" json:"sequence_no"`
	VoucherType     string          `gorm:"size:10;not null" json:"voucher_type"`
	TransactionType TransactionType `gorm:"size:50;index" json:"transaction_type"`
	ReferenceId     int             `gorm:"index" json:"reference_id"`
	ReferenceNumber string          `gorm:"size:100" json:"reference_number"`
	VoucherDate     time.Time       `gorm:"not null" json:"voucher_date"`
	TotalAmount     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_amount"`
	IsPosted        *bool           `gorm:"not null;default:false" json:"is_posted"`

	IsReversal          bool       `gorm:"not null;default:false;index" json:"is_reversal"`
	ReversesVoucherId   *int       `gorm:"index" json:"reverses_voucher_id"`
	ReversedByVoucherId *int       `gorm:"index" json:"reversed_by_voucher_id"`
	ReversedAt          *time.Time `json:"reversed_at"`

	Journals []Journal `gorm:"foreignKey:VoucherId" json:"journals"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Journal is the balanced debit/credit entry set for one voucher.
// Invariant: sum(debit_amount) == sum(credit_amount) across Details.
type Journal struct {
	ID           int             `gorm:"primary_key" json:"id"`
	TenantId     int             `gorm:"index;not null" json:"tenant_id"`
	VoucherId    int             `gorm:"index;not null" json:"voucher_id"`
	JournalDate  time.Time       `gorm:"not null" json:"journal_date"`
	JournalNotes string          `gorm:"type:text" json:"journal_notes"`
	CurrencyId   int             `json:"currency_id"`
	ExchangeRate decimal.Decimal `gorm:"type:decimal(20,4);default:1" json:"exchange_rate"`
	TotalAmount  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_amount"`

	Details []JournalDetail `gorm:"foreignKey:JournalId" json:"details"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type JournalDetail struct {
	ID           int             `gorm:"primary_key" json:"id"`
	JournalId    int             `gorm:"index;not null" json:"journal_id"`
	AccountId    int             `gorm:"index;not null" json:"account_id"`
	LineNumber   int             `gorm:"not null" json:"line_number"`
	Description  string          `gorm:"size:255" json:"description"`
	DebitAmount  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"debit_amount"`
	CreditAmount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"credit_amount"`
}

func (v *Voucher) GetId() int {
	return v.ID
}
