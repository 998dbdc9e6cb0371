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
	"gorm.io/gorm/clause"
)

type SalesOrder struct {
	ID           int             `gorm:"primary_key" json:"id"`
	TenantId     int             `gorm:"index;not null" json:"tenant_id"`
	OrderNumber  string          `gorm:"size:100;not null" json:"order_number"`
	SequenceNo   int64           `gorm:"not null" json:"sequence_no"`
	CustomerId   int             `gorm:"index" json:"customer_id"`
	WarehouseId  int             `gorm:"index;not null" json:"warehouse_id"`
	OrderDate    time.Time       `gorm:"not null" json:"order_date"`
	Status       OrderStatus     `gorm:"size:20;not null;default:'PENDING'" json:"status"`
	CurrencyId   int             `json:"currency_id"`
	ExchangeRate decimal.Decimal `gorm:"type:decimal(20,4);default:1" json:"exchange_rate"`

	SubTotal       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"sub_total"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"discount_amount"`
	TaxAmount      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"tax_amount"`
	TotalAmount    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_amount"`
	Notes          string          `gorm:"type:text" json:"notes"`

	ReversedAt *time.Time `json:"reversed_at"`
	ReversedBy string     `gorm:"size:255" json:"reversed_by"`

	Items []SalesOrderItem `gorm:"foreignKey:OrderId" json:"items"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type SalesOrderItem struct {
	ID           int             `gorm:"primary_key" json:"id"`
	OrderId      int             `gorm:"index;not null" json:"order_id"`
	ProductId    int             `gorm:"index;not null" json:"product_id"`
	BatchNumber  string          `gorm:"size:100" json:"batch_number"`
	Quantity     decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity"`
	FreeQuantity decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"free_quantity"`
	UnitPrice    decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"unit_price"`

	DiscountAmount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"discount_amount"`
	CgstAmount     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"cgst_amount"`
	SgstAmount     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"sgst_amount"`
	IgstAmount     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"igst_amount"`
	TaxAmount      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"tax_amount"`
	TotalAmount    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_amount"`
}

type NewSalesOrder struct {
	CustomerId   int                 `json:"customer_id"`
	WarehouseId  int                 `json:"warehouse_id" validate:"required"`
	OrderDate    time.Time           `json:"order_date"`
	CurrencyId   *int                `json:"currency_id"`
	ExchangeRate *decimal.Decimal    `json:"exchange_rate"`
	Notes        string              `json:"notes"`
	Items        []NewSalesOrderItem `json:"items" validate:"required,min=1"`
}

type NewSalesOrderItem struct {
	ProductId      int             `json:"product_id" validate:"required"`
	BatchNumber    string          `json:"batch_number"`
	Quantity       decimal.Decimal `json:"quantity"`
	FreeQuantity   decimal.Decimal `json:"free_quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
}

// CreateSalesOrder mirrors CreatePurchaseOrder on the outbound side: order
// plus items, OUT stock rows (free quantities issued at average cost) and a
// staged posting, one transaction. There is no availability guard here;
// selling into negative stock is allowed and corrected by later receipts.
func CreateSalesOrder(ctx context.Context, input *NewSalesOrder) (*SalesOrder, error) {
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
		if !item.Quantity.IsPositive() {
			return nil, fmt.Errorf("quantity must be positive for product %d", item.ProductId)
		}
		if item.FreeQuantity.IsNegative() {
			return nil, fmt.Errorf("free quantity cannot be negative for product %d", item.ProductId)
		}
	}

	release, err := utils.TenantLock(ctx, rc.TenantId, "stock", "salesOrder", "CreateSalesOrder")
	if err != nil {
		return nil, err
	}
	defer release()

	seqNo, err := utils.GetSequence[SalesOrder](ctx, rc.TenantId)
	if err != nil {
		return nil, err
	}

	orderDate := input.OrderDate
	if orderDate.IsZero() {
		orderDate = time.Now().UTC()
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

	order := SalesOrder{
		TenantId:     rc.TenantId,
		OrderNumber:  fmt.Sprintf("SO-%d", seqNo),
		SequenceNo:   seqNo,
		CustomerId:   input.CustomerId,
		WarehouseId:  input.WarehouseId,
		OrderDate:    orderDate,
		Status:       OrderStatusPending,
		CurrencyId:   currencyId,
		ExchangeRate: exchangeRate,
		Notes:        input.Notes,
	}

	subTotal, discountTotal, taxTotal, grandTotal := decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero
	for _, in := range input.Items {
		product, err := GetProduct(ctx, in.ProductId)
		if err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("product %d not found", in.ProductId)
		}
		unitPrice := in.UnitPrice
		if unitPrice.IsZero() {
			unitPrice = product.UnitPrice
		}
		cgst, sgst, igst, itemTax, itemTotal := buildOrderItemAmounts(product, in.Quantity, unitPrice, in.DiscountAmount)

		order.Items = append(order.Items, SalesOrderItem{
			ProductId:      in.ProductId,
			BatchNumber:    in.BatchNumber,
			Quantity:       in.Quantity,
			FreeQuantity:   in.FreeQuantity,
			UnitPrice:      unitPrice,
			DiscountAmount: in.DiscountAmount,
			CgstAmount:     cgst,
			SgstAmount:     sgst,
			IgstAmount:     igst,
			TaxAmount:      itemTax,
			TotalAmount:    itemTotal,
		})
		subTotal = subTotal.Add(in.Quantity.Mul(unitPrice))
		discountTotal = discountTotal.Add(in.DiscountAmount)
		taxTotal = taxTotal.Add(itemTax)
		grandTotal = grandTotal.Add(itemTotal)
	}
	order.SubTotal = subTotal
	order.DiscountAmount = discountTotal
	order.TaxAmount = taxTotal
	order.TotalAmount = grandTotal

	if err := tx.Create(&order).Error; err != nil {
		tx.Rollback()
		config.LogError(logger, "salesOrder", "CreateSalesOrder", "Order create failed", input, err)
		return nil, err
	}
	if err := RecordSalesTransaction(tx, &order, order.Items); err != nil {
		tx.Rollback()
		config.LogError(logger, "salesOrder", "CreateSalesOrder", "Stock ledger write failed", order.OrderNumber, err)
		return nil, err
	}
	data := TransactionData{
		"total_amount":    order.TotalAmount,
		"sub_total":       order.SubTotal,
		"tax_amount":      order.TaxAmount,
		"discount_amount": order.DiscountAmount,
	}
	if err := EnqueuePosting(tx, rc.TenantId, rc.Username, TransactionTypeSalesOrder, order.ID, order.OrderNumber, data); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	logger.WithFields(map[string]interface{}{
		"tenant_id":    rc.TenantId,
		"order_number": order.OrderNumber,
		"total_amount": order.TotalAmount,
	}).Info("Created sales order")
	return &order, nil
}

// ReverseSalesOrder is the outbound mirror of ReversePurchaseOrder.
func ReverseSalesOrder(ctx context.Context, id int) (*SalesOrder, error) {
	logger := config.GetLogger()

	rc, err := appctx.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	release, err := utils.TenantLock(ctx, rc.TenantId, "stock", "salesOrder", "ReverseSalesOrder")
	if err != nil {
		return nil, err
	}
	defer release()

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}

	var order SalesOrder
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ?", rc.TenantId).
		First(&order, id).Error; err != nil {
		tx.Rollback()
		return nil, utils.ErrorRecordNotFound
	}
	if order.Status == OrderStatusReversed {
		tx.Rollback()
		return nil, fmt.Errorf("sales order %s is already reversed", order.OrderNumber)
	}

	if err := ReverseSalesTransaction(tx, &order); err != nil {
		tx.Rollback()
		config.LogError(logger, "salesOrder", "ReverseSalesOrder", "Stock reversal failed", order.OrderNumber, err)
		return nil, err
	}
	if _, err := CancelPendingPostings(tx, rc.TenantId, TransactionTypeSalesOrder, order.ID); err != nil {
		tx.Rollback()
		return nil, err
	}
	if _, err := ReverseVouchersForReference(ctx, tx, rc, TransactionTypeSalesOrder, order.ID); err != nil {
		tx.Rollback()
		config.LogError(logger, "salesOrder", "ReverseSalesOrder", "Voucher reversal failed", order.OrderNumber, err)
		return nil, err
	}

	now := time.Now().UTC()
	order.Status = OrderStatusReversed
	order.ReversedAt = &now
	order.ReversedBy = rc.Username
	if err := tx.Model(&SalesOrder{}).
		Where("id = ?", order.ID).
		Updates(map[string]interface{}{
			"status":      OrderStatusReversed,
			"reversed_at": &now,
			"reversed_by": rc.Username,
		}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	logger.WithFields(map[string]interface{}{
		"tenant_id":    rc.TenantId,
		"order_number": order.OrderNumber,
	}).Info("Reversed sales order")
	return &order, nil
}

func GetSalesOrder(ctx context.Context, id int) (*SalesOrder, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId <= 0 {
		return nil, errors.New("tenant id is required")
	}
	return utils.FetchModel[SalesOrder](ctx, tenantId, id, "Items")
}
