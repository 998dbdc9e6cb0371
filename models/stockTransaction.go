package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// StockTransaction is the append-only stock movement ledger. Rows are never
// updated or deleted; reversals insert an opposite-direction row referencing
// the original, and the original only ever gains reversal metadata.
type StockTransaction struct {
	ID              int                    `gorm:"primary_key" json:"id"`
	TenantId        int                    `gorm:"index;not null" json:"tenant_id"`
	WarehouseId     int                    `gorm:"index" json:"warehouse_id"`
	ProductId       int                    `gorm:"index;not null" json:"product_id"`
	BatchNumber     string                 `gorm:"size:100" json:"batch_number"`
	TransactionType StockTransactionType   `gorm:"size:10;not null;check:transaction_type IN ('IN','OUT')" json:"transaction_type"`
	Source          StockTransactionSource `gorm:"size:30;index;not null" json:"transaction_source"`
	ReferenceId     int                    `gorm:"index" json:"reference_id"`
	ReferenceNumber string                 `gorm:"size:100" json:"reference_number"`
	Quantity        decimal.Decimal        `gorm:"type:decimal(20,4);not null" json:"quantity"`
	UnitPrice       decimal.Decimal        `gorm:"type:decimal(20,4);default:0" json:"unit_price"`
	TransactionDate time.Time              `gorm:"index;not null" json:"transaction_date"`

	IsReversal               bool       `gorm:"not null;default:false;index" json:"is_reversal"`
	ReversesTransactionId    *int       `gorm:"index" json:"reverses_transaction_id"`
	ReversedByTransactionId  *int       `gorm:"index" json:"reversed_by_transaction_id"`
	ReversedAt               *time.Time `json:"reversed_at"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// BeforeSave keeps the ledger's internal invariant: quantity is stored as a
// positive magnitude, direction lives in TransactionType.
func (st *StockTransaction) BeforeSave(tx *gorm.DB) error {
	_ = tx // signature required by gorm; tx may be nil in tests
	if st == nil {
		return nil
	}
	if st.Quantity.IsNegative() {
		st.Quantity = st.Quantity.Abs()
	}
	return nil
}
