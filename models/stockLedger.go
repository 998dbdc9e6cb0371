package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Stock ledger writes. Every function here operates inside the caller's open
// transaction and never commits; a document service owns the transaction
// boundary. Balance maintenance goes through updateStockBalance, which locks
// the aggregate row for the duration of the transaction.

func oppositeTransactionType(t StockTransactionType) StockTransactionType {
	if t == StockTransactionTypeIn {
		return StockTransactionTypeOut
	}
	return StockTransactionTypeIn
}

func reversalSource(s StockTransactionSource) StockTransactionSource {
	switch s {
	case StockSourcePurchase, StockSourcePurchaseFree:
		return StockSourcePurchaseReversal
	case StockSourceSales, StockSourceSalesFree:
		return StockSourceSalesReversal
	case StockSourceAdjustment:
		return StockSourceAdjustmentReversal
	case StockSourceTransferIn, StockSourceTransferOut:
		return StockSourceTransferReversal
	default:
		return s
	}
}

// recordStockMovement inserts one ledger row and folds it into the balance
// aggregate. Warehouse-scoped callers (transfers) pass warehouseId; the
// balance key itself is (tenant, product, batch).
func recordStockMovement(tx *gorm.DB, txn *StockTransaction) error {
	if err := tx.Create(txn).Error; err != nil {
		return err
	}
	return updateStockBalance(tx, txn.TenantId, txn.ProductId, txn.BatchNumber, txn.TransactionType, txn.Quantity, txn.UnitPrice)
}

// recordFreeQuantity writes the free-goods portion of a line as a separate
// ledger row under a derived reference ({ref}-FREE) and a *_FREE source.
// Free units are priced at the current average cost so they increase on-hand
// quantity without distorting the paid-unit average.
func recordFreeQuantity(tx *gorm.DB, base *StockTransaction, freeQty decimal.Decimal, freeSource StockTransactionSource) error {
	if !freeQty.IsPositive() {
		return nil
	}
	balance, err := GetStockBalance(tx, base.TenantId, base.ProductId, base.BatchNumber)
	if err != nil {
		return err
	}
	free := *base
	free.ID = 0
	free.Quantity = freeQty
	free.UnitPrice = balance.AverageCost
	free.Source = freeSource
	free.ReferenceNumber = base.ReferenceNumber + "-FREE"
	return recordStockMovement(tx, &free)
}

// RecordPurchaseTransaction writes IN/PURCHASE ledger rows for every order
// line, free quantities as separate rows.
func RecordPurchaseTransaction(tx *gorm.DB, order *PurchaseOrder, items []PurchaseOrderItem) error {
	for _, item := range items {
		txn := StockTransaction{
			TenantId:        order.TenantId,
			WarehouseId:     order.WarehouseId,
			ProductId:       item.ProductId,
			BatchNumber:     item.BatchNumber,
			TransactionType: StockTransactionTypeIn,
			Source:          StockSourcePurchase,
			ReferenceId:     order.ID,
			ReferenceNumber: order.OrderNumber,
			Quantity:        item.Quantity,
			UnitPrice:       item.UnitPrice,
			TransactionDate: order.OrderDate,
		}
		if err := recordStockMovement(tx, &txn); err != nil {
			return err
		}
		if err := recordFreeQuantity(tx, &txn, item.FreeQuantity, StockSourcePurchaseFree); err != nil {
			return err
		}
	}
	return nil
}

// RecordSalesTransaction mirrors RecordPurchaseTransaction with OUT/SALES
// rows. Free-goods lines go out at average cost, not at zero, so issuing
// them never distorts costing.
func RecordSalesTransaction(tx *gorm.DB, order *SalesOrder, items []SalesOrderItem) error {
	for _, item := range items {
		txn := StockTransaction{
			TenantId:        order.TenantId,
			WarehouseId:     order.WarehouseId,
			ProductId:       item.ProductId,
			BatchNumber:     item.BatchNumber,
			TransactionType: StockTransactionTypeOut,
			Source:          StockSourceSales,
			ReferenceId:     order.ID,
			ReferenceNumber: order.OrderNumber,
			Quantity:        item.Quantity,
			UnitPrice:       item.UnitPrice,
			TransactionDate: order.OrderDate,
		}
		if err := recordStockMovement(tx, &txn); err != nil {
			return err
		}
		if err := recordFreeQuantity(tx, &txn, item.FreeQuantity, StockSourceSalesFree); err != nil {
			return err
		}
	}
	return nil
}

// RecordAdjustmentTransaction writes the ledger row for one adjustment line.
// The sign of the line quantity selects direction; the ledger stores the
// magnitude.
func RecordAdjustmentTransaction(tx *gorm.DB, item *StockAdjustmentItem, header *StockAdjustment) error {
	txnType := StockTransactionTypeIn
	if item.AdjustmentQty.IsNegative() {
		txnType = StockTransactionTypeOut
	}
	txn := StockTransaction{
		TenantId:        header.TenantId,
		WarehouseId:     header.WarehouseId,
		ProductId:       item.ProductId,
		BatchNumber:     item.BatchNumber,
		TransactionType: txnType,
		Source:          StockSourceAdjustment,
		ReferenceId:     header.ID,
		ReferenceNumber: header.ReferenceNumber,
		Quantity:        item.AdjustmentQty.Abs(),
		UnitPrice:       item.UnitCostBase,
		TransactionDate: header.AdjustmentDate,
	}
	return recordStockMovement(tx, &txn)
}

// RecordTransferTransaction writes the paired OUT (source warehouse) and IN
// (destination warehouse) rows for one transfer line. The shared balance key
// is (tenant, product, batch), so the pair nets to zero on the aggregate;
// per-warehouse tracking is the caller's concern.
func RecordTransferTransaction(tx *gorm.DB, item *StockTransferItem, header *StockTransfer) error {
	out := StockTransaction{
		TenantId:        header.TenantId,
		WarehouseId:     header.FromWarehouseId,
		ProductId:       item.ProductId,
		BatchNumber:     item.BatchNumber,
		TransactionType: StockTransactionTypeOut,
		Source:          StockSourceTransferOut,
		ReferenceId:     header.ID,
		ReferenceNumber: header.ReferenceNumber,
		Quantity:        item.Quantity,
		UnitPrice:       item.UnitCostBase,
		TransactionDate: header.TransferDate,
	}
	if err := recordStockMovement(tx, &out); err != nil {
		return err
	}
	in := out
	in.ID = 0
	in.WarehouseId = header.ToWarehouseId
	in.TransactionType = StockTransactionTypeIn
	in.Source = StockSourceTransferIn
	return recordStockMovement(tx, &in)
}

// ReverseStockTransactions appends an opposite-direction row for every
// not-yet-reversed original matching the reference, tagged with a *_REVERSAL
// source and a REV- reference number. Originals are never mutated beyond the
// reversed-by back-pointer.
func ReverseStockTransactions(tx *gorm.DB, tenantId int, referenceId int, sources []StockTransactionSource) ([]*StockTransaction, error) {
	var originals []*StockTransaction
	if err := tx.
		Where("tenant_id = ? AND reference_id = ? AND source IN ? AND is_reversal = ? AND reversed_by_transaction_id IS NULL",
			tenantId, referenceId, sources, false).
		Order("id ASC").
		Find(&originals).Error; err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	reversals := make([]*StockTransaction, 0, len(originals))
	for _, o := range originals {
		rev := &StockTransaction{
			TenantId:              o.TenantId,
			WarehouseId:           o.WarehouseId,
			ProductId:             o.ProductId,
			BatchNumber:           o.BatchNumber,
			TransactionType:       oppositeTransactionType(o.TransactionType),
			Source:                reversalSource(o.Source),
			ReferenceId:           o.ReferenceId,
			ReferenceNumber:       "REV-" + o.ReferenceNumber,
			Quantity:              o.Quantity,
			UnitPrice:             o.UnitPrice,
			TransactionDate:       now,
			IsReversal:            true,
			ReversesTransactionId: &o.ID,
		}
		if err := recordStockMovement(tx, rev); err != nil {
			return nil, err
		}

		// Mark original reversed (metadata-only update).
		if err := tx.Model(&StockTransaction{}).
			Where("id = ?", o.ID).
			Updates(map[string]interface{}{
				"reversed_by_transaction_id": rev.ID,
				"reversed_at":                &now,
			}).Error; err != nil {
			return nil, err
		}
		reversals = append(reversals, rev)
	}
	return reversals, nil
}

// ReversePurchaseTransaction undoes the stock effect of a purchase order.
func ReversePurchaseTransaction(tx *gorm.DB, order *PurchaseOrder) error {
	_, err := ReverseStockTransactions(tx, order.TenantId, order.ID,
		[]StockTransactionSource{StockSourcePurchase, StockSourcePurchaseFree})
	return err
}

// ReverseSalesTransaction undoes the stock effect of a sales order.
func ReverseSalesTransaction(tx *gorm.DB, order *SalesOrder) error {
	_, err := ReverseStockTransactions(tx, order.TenantId, order.ID,
		[]StockTransactionSource{StockSourceSales, StockSourceSalesFree})
	return err
}

// ReverseAdjustmentTransaction undoes the stock effect of an adjustment.
func ReverseAdjustmentTransaction(tx *gorm.DB, adjustment *StockAdjustment) error {
	_, err := ReverseStockTransactions(tx, adjustment.TenantId, adjustment.ID,
		[]StockTransactionSource{StockSourceAdjustment})
	return err
}

// ReverseTransferTransaction undoes both sides of a transfer.
func ReverseTransferTransaction(tx *gorm.DB, transfer *StockTransfer) error {
	reversals, err := ReverseStockTransactions(tx, transfer.TenantId, transfer.ID,
		[]StockTransactionSource{StockSourceTransferOut, StockSourceTransferIn})
	if err != nil {
		return err
	}
	if len(reversals) == 0 {
		return fmt.Errorf("no stock transactions to reverse for transfer %d", transfer.ID)
	}
	return nil
}
