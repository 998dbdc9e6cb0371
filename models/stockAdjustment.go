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
)

type StockAdjustment struct {
	ID              int             `gorm:"primary_key" json:"id"`
	TenantId        int             `gorm:"index;not null" json:"tenant_id"`
	ReferenceNumber string          `gorm:"size:100;not null" json:"reference_number"`
	SequenceNo      int64           `gorm:"not null" json:"sequence_no"`
	WarehouseId     int             `gorm:"index;not null" json:"warehouse_id"`
	AdjustmentType  AdjustmentType  `gorm:"size:20;not null;check:adjustment_type IN ('INCREASE','DECREASE','RECOUNT')" json:"adjustment_type"`
	AdjustmentDate  time.Time       `gorm:"not null" json:"adjustment_date"`
	Reason          string          `gorm:"size:500" json:"reason"`
	CurrencyId      int             `json:"currency_id"`
	ExchangeRate    decimal.Decimal `gorm:"type:decimal(20,4);default:1" json:"exchange_rate"`

	TotalItems        int             `gorm:"default:0" json:"total_items"`
	NetQuantityChange decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"net_quantity_change"`
	TotalCostImpact   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_cost_impact"`

	VoucherId *int   `json:"voucher_id"`
	CreatedBy string `gorm:"size:255" json:"created_by"`

	Items []StockAdjustmentItem `gorm:"foreignKey:AdjustmentId" json:"items"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// StockAdjustmentItem keeps before/after snapshots of the balance so the
// document stays auditable even after later movements change the aggregate.
type StockAdjustmentItem struct {
	ID           int             `gorm:"primary_key" json:"id"`
	AdjustmentId int             `gorm:"index;not null" json:"adjustment_id"`
	ProductId    int             `gorm:"index;not null" json:"product_id"`
	BatchNumber  string          `gorm:"size:100" json:"batch_number"`

	// Signed: positive adds stock, negative removes.
	AdjustmentQty decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"adjustment_qty"`

	StockBefore decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"stock_before"`
	StockAfter  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"stock_after"`

	// UnitCost is in the document currency; UnitCostBase in the tenant base
	// currency feeds the stock ledger and the cost impact.
	UnitCost     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_cost"`
	UnitCostBase decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_cost_base"`
	CostImpact   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"cost_impact"`

	Reason string `gorm:"size:500" json:"reason"`
}

type NewStockAdjustment struct {
	WarehouseId    int                      `json:"warehouse_id" validate:"required"`
	AdjustmentType AdjustmentType           `json:"adjustment_type" validate:"required,oneof=INCREASE DECREASE RECOUNT"`
	AdjustmentDate time.Time                `json:"adjustment_date"`
	Reason         string                   `json:"reason"`
	CurrencyId     *int                     `json:"currency_id"`
	ExchangeRate   *decimal.Decimal         `json:"exchange_rate"`
	Items          []NewStockAdjustmentItem `json:"items" validate:"required,min=1"`
}

type NewStockAdjustmentItem struct {
	ProductId     int              `json:"product_id" validate:"required"`
	BatchNumber   string           `json:"batch_number"`
	AdjustmentQty decimal.Decimal  `json:"adjustment_qty"`
	UnitCost      *decimal.Decimal `json:"unit_cost"`
	StockBefore   *decimal.Decimal `json:"stock_before"`
	Reason        string           `json:"reason"`
}

// CreateStockAdjustment writes the adjustment document, its stock ledger
// rows and, when the adjustment carries a cost impact, the accounting voucher
// for it, all in one transaction. Unlike order posting, the voucher here is
// posted synchronously: an adjustment that cannot post does not exist.
func CreateStockAdjustment(ctx context.Context, input *NewStockAdjustment) (*StockAdjustment, error) {
	logger := config.GetLogger()

	rc, err := appctx.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	if err := utils.ValidateResourceId[Warehouse](ctx, rc.TenantId, input.WarehouseId); err != nil {
		return nil, errors.New("warehouse not found")
	}
	for _, item := range input.Items {
		if item.AdjustmentQty.IsZero() {
			return nil, fmt.Errorf("adjustment quantity cannot be zero for product %d", item.ProductId)
		}
	}

	release, err := utils.TenantLock(ctx, rc.TenantId, "stock", "stockAdjustment", "CreateStockAdjustment")
	if err != nil {
		return nil, err
	}
	defer release()

	seqNo, err := utils.GetSequence[StockAdjustment](ctx, rc.TenantId)
	if err != nil {
		return nil, err
	}

	adjustmentDate := input.AdjustmentDate
	if adjustmentDate.IsZero() {
		adjustmentDate = time.Now().UTC()
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

	// Header goes in first with zeroed totals so item rows have their FK;
	// totals are written back once every line is processed.
	adjustment := StockAdjustment{
		TenantId:        rc.TenantId,
		ReferenceNumber: fmt.Sprintf("ADJ-%d", seqNo),
		SequenceNo:      seqNo,
		WarehouseId:     input.WarehouseId,
		AdjustmentType:  input.AdjustmentType,
		AdjustmentDate:  adjustmentDate,
		Reason:          input.Reason,
		CurrencyId:      currencyId,
		ExchangeRate:    exchangeRate,
		CreatedBy:       rc.Username,
	}
	if err := tx.Create(&adjustment).Error; err != nil {
		tx.Rollback()
		config.LogError(logger, "stockAdjustment", "CreateStockAdjustment", "Header create failed", input, err)
		return nil, err
	}

	netQuantityChange := decimal.Zero
	totalCostImpact := decimal.Zero
	for _, in := range input.Items {
		if err := utils.ValidateResourceId[Product](ctx, rc.TenantId, in.ProductId); err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("product %d not found", in.ProductId)
		}

		balance, err := GetStockBalance(tx, rc.TenantId, in.ProductId, in.BatchNumber)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		stockBefore := balance.TotalQuantity
		if in.StockBefore != nil {
			stockBefore = *in.StockBefore
		}
		stockAfter := stockBefore.Add(in.AdjustmentQty)

		// Base-currency unit cost: supplied document cost converted at the
		// document rate, else the current average cost of the batch.
		unitCost := decimal.Zero
		unitCostBase := balance.AverageCost
		if in.UnitCost != nil && in.UnitCost.IsPositive() {
			unitCost = *in.UnitCost
			unitCostBase = unitCost.Mul(exchangeRate)
		}
		costImpact := in.AdjustmentQty.Mul(unitCostBase)

		item := StockAdjustmentItem{
			AdjustmentId:  adjustment.ID,
			ProductId:     in.ProductId,
			BatchNumber:   in.BatchNumber,
			AdjustmentQty: in.AdjustmentQty,
			StockBefore:   stockBefore,
			StockAfter:    stockAfter,
			UnitCost:      unitCost,
			UnitCostBase:  unitCostBase,
			CostImpact:    costImpact,
			Reason:        in.Reason,
		}
		if err := tx.Create(&item).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		if err := RecordAdjustmentTransaction(tx, &item, &adjustment); err != nil {
			tx.Rollback()
			config.LogError(logger, "stockAdjustment", "CreateStockAdjustment", "Stock ledger write failed", adjustment.ReferenceNumber, err)
			return nil, err
		}
		adjustment.Items = append(adjustment.Items, item)
		netQuantityChange = netQuantityChange.Add(in.AdjustmentQty)
		totalCostImpact = totalCostImpact.Add(costImpact)
	}

	adjustment.TotalItems = len(adjustment.Items)
	adjustment.NetQuantityChange = netQuantityChange
	adjustment.TotalCostImpact = totalCostImpact

	if !totalCostImpact.IsZero() {
		data := TransactionData{
			"total_amount":      totalCostImpact.Abs(),
			"total_cost_impact": totalCostImpact.Abs(),
		}
		voucher, err := PostTransaction(ctx, tx, rc, TransactionTypeStockAdjustment, adjustment.ID, adjustment.ReferenceNumber, data)
		if err != nil {
			tx.Rollback()
			config.LogError(logger, "stockAdjustment", "CreateStockAdjustment", "Posting failed", adjustment.ReferenceNumber, err)
			return nil, err
		}
		adjustment.VoucherId = &voucher.ID
	}

	if err := tx.Model(&StockAdjustment{}).
		Where("id = ?", adjustment.ID).
		Updates(map[string]interface{}{
			"total_items":         adjustment.TotalItems,
			"net_quantity_change": adjustment.NetQuantityChange,
			"total_cost_impact":   adjustment.TotalCostImpact,
			"voucher_id":          adjustment.VoucherId,
		}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	logger.WithFields(map[string]interface{}{
		"tenant_id":         rc.TenantId,
		"reference_number":  adjustment.ReferenceNumber,
		"net_change":        netQuantityChange,
		"total_cost_impact": totalCostImpact,
	}).Info("Created stock adjustment")
	return &adjustment, nil
}

// ReverseStockAdjustment appends reversing stock rows and the mirror voucher
// for a posted adjustment.
func ReverseStockAdjustment(ctx context.Context, id int) (*StockAdjustment, error) {
	logger := config.GetLogger()

	rc, err := appctx.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	release, err := utils.TenantLock(ctx, rc.TenantId, "stock", "stockAdjustment", "ReverseStockAdjustment")
	if err != nil {
		return nil, err
	}
	defer release()

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}

	var adjustment StockAdjustment
	if err := tx.Where("tenant_id = ?", rc.TenantId).
		First(&adjustment, id).Error; err != nil {
		tx.Rollback()
		return nil, utils.ErrorRecordNotFound
	}

	if err := ReverseAdjustmentTransaction(tx, &adjustment); err != nil {
		tx.Rollback()
		config.LogError(logger, "stockAdjustment", "ReverseStockAdjustment", "Stock reversal failed", adjustment.ReferenceNumber, err)
		return nil, err
	}
	if _, err := ReverseVouchersForReference(ctx, tx, rc, TransactionTypeStockAdjustment, adjustment.ID); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &adjustment, nil
}

func GetStockAdjustment(ctx context.Context, id int) (*StockAdjustment, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId <= 0 {
		return nil, errors.New("tenant id is required")
	}
	return utils.FetchModel[StockAdjustment](ctx, tenantId, id, "Items")
}
