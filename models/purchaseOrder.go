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

type PurchaseOrder struct {
	ID          int             `gorm:"primary_key" json:"id"`
	TenantId    int             `gorm:"index;not null" json:"tenant_id"`
	OrderNumber string          `gorm:"size:100;not null" json:"order_number"`
	SequenceNo  int64           `gorm:"not null" json:"sequence_no"`
	SupplierId  int             `gorm:"index" json:"supplier_id"`
	WarehouseId int             `gorm:"index;not null" json:"warehouse_id"`
	OrderDate   time.Time       `gorm:"not null" json:"order_date"`
	Status      OrderStatus     `gorm:"size:20;not null;default:'PENDING'" json:"status"`
	CurrencyId  int             `json:"currency_id"`
	ExchangeRate decimal.Decimal `gorm:"type:decimal(20,4);default:1" json:"exchange_rate"`

	SubTotal       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"sub_total"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"discount_amount"`
	TaxAmount      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"tax_amount"`
	TotalAmount    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_amount"`
	Notes          string          `gorm:"type:text" json:"notes"`

	ReversedAt *time.Time `json:"reversed_at"`
	ReversedBy string     `gorm:"size:255" json:"reversed_by"`

	Items []PurchaseOrderItem `gorm:"foreignKey:OrderId" json:"items"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type PurchaseOrderItem struct {
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

	ExpiryDate *time.Time `json:"expiry_date"`
}

type NewPurchaseOrder struct {
	SupplierId   int                   `json:"supplier_id"`
	WarehouseId  int                   `json:"warehouse_id" validate:"required"`
	OrderDate    time.Time             `json:"order_date"`
	CurrencyId   *int                  `json:"currency_id"`
	ExchangeRate *decimal.Decimal      `json:"exchange_rate"`
	Notes        string                `json:"notes"`
	Items        []NewPurchaseOrderItem `json:"items" validate:"required,min=1"`
}

type NewPurchaseOrderItem struct {
	ProductId      int             `json:"product_id" validate:"required"`
	BatchNumber    string          `json:"batch_number"`
	Quantity       decimal.Decimal `json:"quantity"`
	FreeQuantity   decimal.Decimal `json:"free_quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	ExpiryDate     *time.Time      `json:"expiry_date"`
}

// buildOrderItemAmounts computes the taxable, GST and total amounts of one
// order line from the product's GST rates. Shared by purchase and sales.
func buildOrderItemAmounts(product *Product, qty, unitPrice, discount decimal.Decimal) (cgst, sgst, igst, tax, total decimal.Decimal) {
	hundred := decimal.NewFromInt(100)
	taxable := qty.Mul(unitPrice).Sub(discount)
	cgst = taxable.Mul(product.CgstRate).Div(hundred)
	sgst = taxable.Mul(product.SgstRate).Div(hundred)
	igst = taxable.Mul(product.IgstRate).Div(hundred)
	tax = cgst.Add(sgst).Add(igst)
	total = taxable.Add(tax)
	return
}

// CreatePurchaseOrder creates the order with its items, writes the stock
// ledger rows (free quantities included) and stages the accounting posting in
// the outbox, all in one transaction. The ledger posting itself runs async;
// its failure can delay the voucher but never lose it.
func CreatePurchaseOrder(ctx context.Context, input *NewPurchaseOrder) (*PurchaseOrder, error) {
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

	release, err := utils.TenantLock(ctx, rc.TenantId, "stock", "purchaseOrder", "CreatePurchaseOrder")
	if err != nil {
		return nil, err
	}
	defer release()

	seqNo, err := utils.GetSequence[PurchaseOrder](ctx, rc.TenantId)
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

	order := PurchaseOrder{
		TenantId:     rc.TenantId,
		OrderNumber:  fmt.Sprintf("PO-%d", seqNo),
		SequenceNo:   seqNo,
		SupplierId:   input.SupplierId,
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
			unitPrice = product.CostPrice
		}
		cgst, sgst, igst, itemTax, itemTotal := buildOrderItemAmounts(product, in.Quantity, unitPrice, in.DiscountAmount)

		order.Items = append(order.Items, PurchaseOrderItem{
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
			ExpiryDate:     in.ExpiryDate,
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
		config.LogError(logger, "purchaseOrder", "CreatePurchaseOrder", "Order create failed", input, err)
		return nil, err
	}
	if err := RecordPurchaseTransaction(tx, &order, order.Items); err != nil {
		tx.Rollback()
		config.LogError(logger, "purchaseOrder", "CreatePurchaseOrder", "Stock ledger write failed", order.OrderNumber, err)
		return nil, err
	}
	data := TransactionData{
		"total_amount":    order.TotalAmount,
		"sub_total":       order.SubTotal,
		"tax_amount":      order.TaxAmount,
		"discount_amount": order.DiscountAmount,
	}
	if err := EnqueuePosting(tx, rc.TenantId, rc.Username, TransactionTypePurchaseOrder, order.ID, order.OrderNumber, data); err != nil {
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
	}).Info("Created purchase order")
	return &order, nil
}

// ReversePurchaseOrder undoes an order: appends reversing stock rows, cancels
// any posting still waiting in the outbox, reverses any voucher already
// posted and flips the order status. Reversing twice is rejected.
func ReversePurchaseOrder(ctx context.Context, id int) (*PurchaseOrder, error) {
	logger := config.GetLogger()

	rc, err := appctx.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	release, err := utils.TenantLock(ctx, rc.TenantId, "stock", "purchaseOrder", "ReversePurchaseOrder")
	if err != nil {
		return nil, err
	}
	defer release()

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}

	var order PurchaseOrder
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ?", rc.TenantId).
		First(&order, id).Error; err != nil {
		tx.Rollback()
		return nil, utils.ErrorRecordNotFound
	}
	if order.Status == OrderStatusReversed {
		tx.Rollback()
		return nil, fmt.Errorf("purchase order %s is already reversed", order.OrderNumber)
	}

	if err := ReversePurchaseTransaction(tx, &order); err != nil {
		tx.Rollback()
		config.LogError(logger, "purchaseOrder", "ReversePurchaseOrder", "Stock reversal failed", order.OrderNumber, err)
		return nil, err
	}
	if _, err := CancelPendingPostings(tx, rc.TenantId, TransactionTypePurchaseOrder, order.ID); err != nil {
		tx.Rollback()
		return nil, err
	}
	if _, err := ReverseVouchersForReference(ctx, tx, rc, TransactionTypePurchaseOrder, order.ID); err != nil {
		tx.Rollback()
		config.LogError(logger, "purchaseOrder", "ReversePurchaseOrder", "Voucher reversal failed", order.OrderNumber, err)
		return nil, err
	}

	now := time.Now().UTC()
	order.Status = OrderStatusReversed
	order.ReversedAt = &now
	order.ReversedBy = rc.Username
	if err := tx.Model(&PurchaseOrder{}).
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
	}).Info("Reversed purchase order")
	return &order, nil
}

func GetPurchaseOrder(ctx context.Context, id int) (*PurchaseOrder, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId <= 0 {
		return nil, errors.New("tenant id is required")
	}
	return utils.FetchModel[PurchaseOrder](ctx, tenantId, id, "Items")
}
