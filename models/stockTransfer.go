package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/erp_backend/appctx"
	"bitbucket.org/mmdatafocus/erp_backend/config"
	"bitbucket.org/mmdatafocus/erp_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type StockTransfer struct {
	ID              int                 `gorm:"primary_key" json:"id"`
	TenantId        int                 `gorm:"index;not null" json:"tenant_id"`
	ReferenceNumber string              `gorm:"size:100;not null" json:"reference_number"`
	SequenceNo      int64               `gorm:"not null" json:"sequence_no"`
	FromWarehouseId int                 `gorm:"index;not null" json:"from_warehouse_id"`
	ToWarehouseId   int                 `gorm:"index;not null" json:"to_warehouse_id"`
	TransferDate    time.Time           `gorm:"not null" json:"transfer_date"`
	Status          StockTransferStatus `gorm:"size:20;not null;default:'DRAFT'" json:"status"`
	Reason          string              `gorm:"size:500" json:"reason"`
	CurrencyId      int                 `json:"currency_id"`
	ExchangeRate    decimal.Decimal     `gorm:"type:decimal(20,4);default:1" json:"exchange_rate"`

	TotalItems    int             `gorm:"default:0" json:"total_items"`
	TotalQuantity decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_quantity"`
	TotalValue    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_value"`

	VoucherId *int   `json:"voucher_id"`
	CreatedBy string `gorm:"size:255" json:"created_by"`

	Items []StockTransferItem `gorm:"foreignKey:TransferId" json:"items"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type StockTransferItem struct {
	ID          int             `gorm:"primary_key" json:"id"`
	TransferId  int             `gorm:"index;not null" json:"transfer_id"`
	ProductId   int             `gorm:"index;not null" json:"product_id"`
	BatchNumber string          `gorm:"size:100" json:"batch_number"`
	Quantity    decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity"`

	UnitCost     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_cost"`
	UnitCostBase decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_cost_base"`
	TotalValue   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_value"`

	FromStockBefore decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"from_stock_before"`
	FromStockAfter  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"from_stock_after"`
}

type NewStockTransfer struct {
	FromWarehouseId int                   `json:"from_warehouse_id" validate:"required"`
	ToWarehouseId   int                   `json:"to_warehouse_id" validate:"required"`
	TransferDate    time.Time             `json:"transfer_date"`
	Status          StockTransferStatus   `json:"status"`
	Reason          string                `json:"reason"`
	CurrencyId      *int                  `json:"currency_id"`
	ExchangeRate    *decimal.Decimal      `json:"exchange_rate"`
	Items           []NewStockTransferItem `json:"items" validate:"required,min=1"`
}

type NewStockTransferItem struct {
	ProductId   int              `json:"product_id" validate:"required"`
	BatchNumber string           `json:"batch_number"`
	Quantity    decimal.Decimal  `json:"quantity"`
	UnitCost    *decimal.Decimal `json:"unit_cost"`
}

// Allowed status transitions. Stock moves exactly once, on the transition
// into APPROVED; DRAFT and CANCELLED never touch the stock ledger.
var transferTransitions = map[StockTransferStatus][]StockTransferStatus{
	TransferStatusDraft:     {TransferStatusApproved, TransferStatusCancelled},
	TransferStatusApproved:  {TransferStatusInTransit, TransferStatusCompleted, TransferStatusCancelled},
	TransferStatusInTransit: {TransferStatusCompleted},
	TransferStatusCompleted: {},
	TransferStatusCancelled: {},
}

func transferTransitionAllowed(from, to StockTransferStatus) bool {
	for _, allowed := range transferTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// applyTransferStock runs the availability guard and writes the paired
// OUT/IN ledger rows for every line. Called exactly once per transfer, on
// the transition into APPROVED.
func applyTransferStock(tx *gorm.DB, transfer *StockTransfer) error {
	for i := range transfer.Items {
		item := &transfer.Items[i]

		balance, err := GetStockBalance(tx, transfer.TenantId, item.ProductId, item.BatchNumber)
		if err != nil {
			return err
		}
		fromBefore := balance.TotalQuantity
		fromAfter := fromBefore.Sub(item.Quantity)
		if fromAfter.IsNegative() {
			return fmt.Errorf("insufficient stock for product %d: available %s, requested %s",
				item.ProductId, fromBefore, item.Quantity)
		}

		// Transfers move at cost; missing cost defaults to the current average.
		if item.UnitCostBase.IsZero() {
			item.UnitCostBase = balance.AverageCost
			item.TotalValue = item.Quantity.Mul(item.UnitCostBase)
		}
		item.FromStockBefore = fromBefore
		item.FromStockAfter = fromAfter

		if err := tx.Model(&StockTransferItem{}).
			Where("id = ?", item.ID).
			Updates(map[string]interface{}{
				"unit_cost_base":    item.UnitCostBase,
				"total_value":       item.TotalValue,
				"from_stock_before": item.FromStockBefore,
				"from_stock_after":  item.FromStockAfter,
			}).Error; err != nil {
			return err
		}
		if err := RecordTransferTransaction(tx, item, transfer); err != nil {
			return err
		}
	}

	// Costs defaulted from the average can change the header total.
	total := decimal.Zero
	for _, item := range transfer.Items {
		total = total.Add(item.TotalValue)
	}
	if !total.Equal(transfer.TotalValue) {
		transfer.TotalValue = total
		if err := tx.Model(&StockTransfer{}).
			Where("id = ?", transfer.ID).
			Update("total_value", total).Error; err != nil {
			return err
		}
	}
	return nil
}

// postTransferVoucher moves the transfer value through goods-in-transit when
// the tenant has a STOCK_TRANSFER template configured. Tenants that treat
// transfers as ledger-neutral simply configure no template.
func postTransferVoucher(ctx context.Context, tx *gorm.DB, rc appctx.RequestContext, transfer *StockTransfer) error {
	if transfer.TotalValue.IsZero() {
		return nil
	}
	if _, err := GetActiveTemplate(tx, rc.TenantId, TransactionTypeStockTransfer); err != nil {
		return nil
	}
	data := TransactionData{
		"total_amount": transfer.TotalValue,
	}
	voucher, err := PostTransaction(ctx, tx, rc, TransactionTypeStockTransfer, transfer.ID, transfer.ReferenceNumber, data)
	if err != nil {
		return err
	}
	transfer.VoucherId = &voucher.ID
	return tx.Model(&StockTransfer{}).
		Where("id = ?", transfer.ID).
		Update("voucher_id", voucher.ID).Error
}

// CreateStockTransfer creates the transfer document. Stock only moves when
// the transfer is created as (or later moved to) APPROVED; a DRAFT transfer
// is a pure intent record.
func CreateStockTransfer(ctx context.Context, input *NewStockTransfer) (*StockTransfer, error) {
	logger := config.GetLogger()

	rc, err := appctx.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	if input.FromWarehouseId == input.ToWarehouseId {
		return nil, errors.New("source and destination warehouse must differ")
	}
	if err := utils.ValidateResourcesId[Warehouse, int](ctx, rc.TenantId,
		[]int{input.FromWarehouseId, input.ToWarehouseId}); err != nil {
		return nil, errors.New("warehouse not found")
	}
	status := input.Status
	if status == "" {
		status = TransferStatusDraft
	}
	if status != TransferStatusDraft && status != TransferStatusApproved {
		return nil, fmt.Errorf("a transfer cannot be created as %s", status)
	}
	for _, item := range input.Items {
		if !item.Quantity.IsPositive() {
			return nil, fmt.Errorf("quantity must be positive for product %d", item.ProductId)
		}
	}

	release, err := utils.TenantLock(ctx, rc.TenantId, "stock", "stockTransfer", "CreateStockTransfer")
	if err != nil {
		return nil, err
	}
	defer release()

	seqNo, err := utils.GetSequence[StockTransfer](ctx, rc.TenantId)
	if err != nil {
		return nil, err
	}

	transferDate := input.TransferDate
	if transferDate.IsZero() {
		transferDate = time.Now().UTC()
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}

	currencyId, exchangeRate, err := ResolveDocumentCurrency(tx, rc.TenantId, input.CurrencyId, input.ExchangeRate)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	transfer := StockTransfer{
		TenantId:        rc.TenantId,
		ReferenceNumber: fmt.Sprintf("TRF-%d", seqNo),
		SequenceNo:      seqNo,
		FromWarehouseId: input.FromWarehouseId,
		ToWarehouseId:   input.ToWarehouseId,
		TransferDate:    transferDate,
		Status:          TransferStatusDraft,
		Reason:          input.Reason,
		CurrencyId:      currencyId,
		ExchangeRate:    exchangeRate,
		CreatedBy:       rc.Username,
	}

	totalQuantity := decimal.Zero
	totalValue := decimal.Zero
	for _, in := range input.Items {
		if err := utils.ValidateResourceId[Product](ctx, rc.TenantId, in.ProductId); err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("product %d not found", in.ProductId)
		}
		unitCost := decimal.Zero
		unitCostBase := decimal.Zero
		if in.UnitCost != nil && in.UnitCost.IsPositive() {
			unitCost = *in.UnitCost
			unitCostBase = unitCost.Mul(exchangeRate)
		}
		item := StockTransferItem{
			ProductId:    in.ProductId,
			BatchNumber:  in.BatchNumber,
			Quantity:     in.Quantity,
			UnitCost:     unitCost,
			UnitCostBase: unitCostBase,
			TotalValue:   in.Quantity.Mul(unitCostBase),
		}
		transfer.Items = append(transfer.Items, item)
		totalQuantity = totalQuantity.Add(in.Quantity)
		totalValue = totalValue.Add(item.TotalValue)
	}
	transfer.TotalItems = len(transfer.Items)
	transfer.TotalQuantity = totalQuantity
	transfer.TotalValue = totalValue

	if err := tx.Create(&transfer).Error; err != nil {
		tx.Rollback()
		config.LogError(logger, "stockTransfer", "CreateStockTransfer", "Transfer create failed", input, err)
		return nil, err
	}

	if status == TransferStatusApproved {
		if err := applyTransferStock(tx, &transfer); err != nil {
			tx.Rollback()
			config.LogError(logger, "stockTransfer", "CreateStockTransfer", "Stock guard failed", transfer.ReferenceNumber, err)
			return nil, err
		}
		transfer.Status = TransferStatusApproved
		if err := tx.Model(&StockTransfer{}).
			Where("id = ?", transfer.ID).
			Update("status", TransferStatusApproved).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		if err := postTransferVoucher(ctx, tx, rc, &transfer); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	logger.WithFields(map[string]interface{}{
		"tenant_id":        rc.TenantId,
		"reference_number": transfer.ReferenceNumber,
		"status":           transfer.Status,
	}).Info("Created stock transfer")
	return &transfer, nil
}

// UpdateStockTransferStatus moves a transfer through its state machine.
// Only the transition into APPROVED touches stock and the ledger.
func UpdateStockTransferStatus(ctx context.Context, id int, newStatus StockTransferStatus) (*StockTransfer, error) {
	logger := config.GetLogger()

	rc, err := appctx.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	release, err := utils.TenantLock(ctx, rc.TenantId, "stock", "stockTransfer", "UpdateStockTransferStatus")
	if err != nil {
		return nil, err
	}
	defer release()

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}

	var transfer StockTransfer
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Items").
		Where("tenant_id = ?", rc.TenantId).
		First(&transfer, id).Error; err != nil {
		tx.Rollback()
		return nil, utils.ErrorRecordNotFound
	}
	if !transferTransitionAllowed(transfer.Status, newStatus) {
		tx.Rollback()
		return nil, fmt.Errorf("cannot change transfer %s from %s to %s",
			transfer.ReferenceNumber, transfer.Status, newStatus)
	}

	if transfer.Status == TransferStatusDraft && newStatus != TransferStatusCancelled {
		if err := applyTransferStock(tx, &transfer); err != nil {
			tx.Rollback()
			config.LogError(logger, "stockTransfer", "UpdateStockTransferStatus", "Stock guard failed", transfer.ReferenceNumber, err)
			return nil, err
		}
	}

	transfer.Status = newStatus
	if err := tx.Model(&StockTransfer{}).
		Where("id = ?", transfer.ID).
		Update("status", newStatus).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if newStatus == TransferStatusApproved {
		if err := postTransferVoucher(ctx, tx, rc, &transfer); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	logger.WithFields(map[string]interface{}{
		"tenant_id":        rc.TenantId,
		"reference_number": transfer.ReferenceNumber,
		"status":           newStatus,
	}).Info("Updated stock transfer status")
	return &transfer, nil
}

// ReverseStockTransfer undoes an approved or completed transfer: both ledger
// sides come back via reversal rows and any voucher gets its mirror. The
// transfer ends up CANCELLED.
func ReverseStockTransfer(ctx context.Context, id int) (*StockTransfer, error) {
	logger := config.GetLogger()

	rc, err := appctx.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	release, err := utils.TenantLock(ctx, rc.TenantId, "stock", "stockTransfer", "ReverseStockTransfer")
	if err != nil {
		return nil, err
	}
	defer release()

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}

	var transfer StockTransfer
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ?", rc.TenantId).
		First(&transfer, id).Error; err != nil {
		tx.Rollback()
		return nil, utils.ErrorRecordNotFound
	}
	switch transfer.Status {
	case TransferStatusApproved, TransferStatusInTransit, TransferStatusCompleted:
	default:
		tx.Rollback()
		return nil, fmt.Errorf("transfer %s in status %s has no stock movement to reverse",
			transfer.ReferenceNumber, transfer.Status)
	}

	if err := ReverseTransferTransaction(tx, &transfer); err != nil {
		tx.Rollback()
		config.LogError(logger, "stockTransfer", "ReverseStockTransfer", "Stock reversal failed", transfer.ReferenceNumber, err)
		return nil, err
	}
	if _, err := ReverseVouchersForReference(ctx, tx, rc, TransactionTypeStockTransfer, transfer.ID); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Model(&StockTransfer{}).
		Where("id = ?", transfer.ID).
		Update("status", TransferStatusCancelled).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	transfer.Status = TransferStatusCancelled
	return &transfer, nil
}

func GetStockTransfer(ctx context.Context, id int) (*StockTransfer, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId <= 0 {
		return nil, errors.New("tenant id is required")
	}
	return utils.FetchModel[StockTransfer](ctx, tenantId, id, "Items")
}
