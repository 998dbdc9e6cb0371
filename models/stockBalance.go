package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/erp_backend/config"
	"bitbucket.org/mmdatafocus/erp_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StockBalance is the denormalized current-quantity/average-cost aggregate
// per (tenant, product, batch). It is the only frequently-contended mutable
// row in the stock core, so every read-modify-write happens under a
// SELECT ... FOR UPDATE and quantity increments are applied as atomic
// UPDATE ... SET x = x + ? statements.
type StockBalance struct {
	ID                int             `gorm:"primary_key" json:"id"`
	TenantId          int             `gorm:"index;not null" json:"tenant_id"`
	ProductId         int             `gorm:"index;not null" json:"product_id"`
	BatchNumber       string          `gorm:"size:100" json:"batch_number"`
	TotalQuantity     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_quantity"`
	AvailableQuantity decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"available_quantity"`
	ReservedQuantity  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"reserved_quantity"`
	AverageCost       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"average_cost"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// FirstOrCreateStockBalance locks (FOR UPDATE) and returns the balance row
// for the key, creating a zeroed row when absent.
func FirstOrCreateStockBalance(tx *gorm.DB, tenantId int, productId int, batchNumber string) (*StockBalance, error) {
	stockBalance := StockBalance{
		TenantId:    tenantId,
		ProductId:   productId,
		BatchNumber: batchNumber,
	}
	result := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND product_id = ? AND batch_number = ?",
			tenantId, productId, batchNumber).
		FirstOrCreate(&stockBalance)
	if result.Error != nil {
		return nil, result.Error
	}
	return &stockBalance, nil
}

// nextAverageCost applies the weighted moving average for an incoming lot:
// (old_qty*old_avg + in_qty*in_price) / (old_qty + in_qty).
// Non-positive combined quantity falls back to the incoming price.
func nextAverageCost(oldQty, oldAvg, inQty, inPrice decimal.Decimal) decimal.Decimal {
	combined := oldQty.Add(inQty)
	if !combined.IsPositive() {
		return inPrice
	}
	if !oldQty.IsPositive() {
		return inPrice
	}
	return oldQty.Mul(oldAvg).Add(inQty.Mul(inPrice)).Div(combined)
}

// applyMovement computes the balance row's next state for one ledger row.
// IN recomputes the weighted average and adds quantity; OUT only subtracts
// quantity (average cost is untouched on the way out). Pure so the invariants
// are testable without a database.
func applyMovement(b StockBalance, txnType StockTransactionType, qty, unitPrice decimal.Decimal) StockBalance {
	switch txnType {
	case StockTransactionTypeIn:
		b.AverageCost = nextAverageCost(b.TotalQuantity, b.AverageCost, qty, unitPrice)
		b.TotalQuantity = b.TotalQuantity.Add(qty)
		b.AvailableQuantity = b.AvailableQuantity.Add(qty)
	case StockTransactionTypeOut:
		b.TotalQuantity = b.TotalQuantity.Sub(qty)
		b.AvailableQuantity = b.AvailableQuantity.Sub(qty)
	}
	return b
}

// updateStockBalance folds one stock transaction into the aggregate.
// There is deliberately no negative-quantity guard here: document-level
// services (transfers) enforce availability before calling in.
func updateStockBalance(tx *gorm.DB, tenantId int, productId int, batchNumber string, txnType StockTransactionType, qty, unitPrice decimal.Decimal) error {
	balance, err := FirstOrCreateStockBalance(tx, tenantId, productId, batchNumber)
	if err != nil {
		return err
	}

	next := applyMovement(*balance, txnType, qty, unitPrice)

	delta := qty
	if txnType == StockTransactionTypeOut {
		delta = qty.Neg()
	}
	if err := tx.Exec(
		"UPDATE stock_balances SET total_quantity = total_quantity + ?, available_quantity = available_quantity + ?, average_cost = ?, updated_at = ? WHERE id = ?",
		delta, delta, next.AverageCost, time.Now().UTC(), balance.ID,
	).Error; err != nil {
		return err
	}
	return nil
}

// GetStockBalance returns the current balance row for a product/batch, or a
// zeroed aggregate when no stock has ever moved for the key.
func GetStockBalance(tx *gorm.DB, tenantId int, productId int, batchNumber string) (*StockBalance, error) {
	var balance StockBalance
	err := tx.Where("tenant_id = ? AND product_id = ? AND batch_number = ?",
		tenantId, productId, batchNumber).
		First(&balance).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &StockBalance{TenantId: tenantId, ProductId: productId, BatchNumber: batchNumber}, nil
		}
		return nil, err
	}
	return &balance, nil
}

// GetStockInHand sums current on-hand quantity across batches for a product.
func GetStockInHand(ctx context.Context, productId int) (decimal.Decimal, error) {

	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId <= 0 {
		return decimal.Zero, errors.New("tenant id is required")
	}

	var stockInHand decimal.Decimal
	db := config.GetDB()
	err := db.WithContext(ctx).
		Model(&StockBalance{}).
		Select("COALESCE(SUM(total_quantity), 0)").
		Where("tenant_id = ?", tenantId).
		Where("product_id = ?", productId).
		Scan(&stockInHand).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}

	return stockInHand, nil
}
