package models

// StockTransactionType is the direction of a stock ledger row.
type StockTransactionType string

const (
	StockTransactionTypeIn  StockTransactionType = "IN"
	StockTransactionTypeOut StockTransactionType = "OUT"
)

// StockTransactionSource identifies the business document that produced a
// stock ledger row. *_FREE rows record free-goods quantities separately so
// the paid-unit average-cost math is never polluted by them. *_REVERSAL rows
// are append-only negations of earlier rows.
type StockTransactionSource string

const (
	StockSourcePurchase           StockTransactionSource = "PURCHASE"
	StockSourcePurchaseFree       StockTransactionSource = "PURCHASE_FREE"
	StockSourcePurchaseReversal   StockTransactionSource = "PURCHASE_REVERSAL"
	StockSourceSales              StockTransactionSource = "SALES"
	StockSourceSalesFree          StockTransactionSource = "SALES_FREE"
	StockSourceSalesReversal      StockTransactionSource = "SALES_REVERSAL"
	StockSourceAdjustment         StockTransactionSource = "ADJUSTMENT"
	StockSourceAdjustmentReversal StockTransactionSource = "ADJUSTMENT_REVERSAL"
	StockSourceTransferOut        StockTransactionSource = "TRANSFER_OUT"
	StockSourceTransferIn         StockTransactionSource = "TRANSFER_IN"
	StockSourceTransferReversal   StockTransactionSource = "TRANSFER_REVERSAL"
)

// OrderStatus transitions one way: PENDING -> REVERSED.
type OrderStatus string

const (
	OrderStatusPending  OrderStatus = "PENDING"
	OrderStatusReversed OrderStatus = "REVERSED"
)

// StockTransferStatus state machine:
// DRAFT -> APPROVED -> IN_TRANSIT -> COMPLETED, or DRAFT/APPROVED -> CANCELLED.
// Only APPROVED/COMPLETED transfers touch the stock ledger.
type StockTransferStatus string

const (
	TransferStatusDraft     StockTransferStatus = "DRAFT"
	TransferStatusApproved  StockTransferStatus = "APPROVED"
	TransferStatusInTransit StockTransferStatus = "IN_TRANSIT"
	TransferStatusCompleted StockTransferStatus = "COMPLETED"
	TransferStatusCancelled StockTransferStatus = "CANCELLED"
)

// AdjustmentType is persisted with a check constraint; the signed item
// quantity remains the source of truth for direction.
type AdjustmentType string

const (
	AdjustmentTypeIncrease AdjustmentType = "INCREASE"
	AdjustmentTypeDecrease AdjustmentType = "DECREASE"
	AdjustmentTypeRecount  AdjustmentType = "RECOUNT"
)

// TransactionType is the business event fed into the posting engine.
type TransactionType string

const (
	TransactionTypeSalesOrder            TransactionType = "SALES_ORDER"
	TransactionTypePurchaseOrder         TransactionType = "PURCHASE_ORDER"
	TransactionTypeSalesOrderReversal    TransactionType = "SALES_ORDER_REVERSAL"
	TransactionTypePurchaseOrderReversal TransactionType = "PURCHASE_ORDER_REVERSAL"
	TransactionTypeStockAdjustment       TransactionType = "STOCK_ADJUSTMENT"
	TransactionTypeStockTransfer         TransactionType = "STOCK_TRANSFER"
)

// EntryType says which side of the journal a template rule posts to.
type EntryType string

const (
	EntryTypeDebit  EntryType = "DEBIT"
	EntryTypeCredit EntryType = "CREDIT"
)

// Abstract account types resolvable through AccountConfiguration or the
// default code table in posting.go.
const (
	AccountTypeAccountsReceivable = "ACCOUNTS_RECEIVABLE"
	AccountTypeAccountsPayable    = "ACCOUNTS_PAYABLE"
	AccountTypeSalesRevenue       = "SALES_REVENUE"
	AccountTypePurchaseExpense    = "PURCHASE_EXPENSE"
	AccountTypeInventoryAsset     = "INVENTORY_ASSET"
	AccountTypeGstOutput          = "GST_OUTPUT"
	AccountTypeGstInput           = "GST_INPUT"
	AccountTypeCash               = "CASH"
	AccountTypeStockAdjustment    = "STOCK_ADJUSTMENT_EXPENSE"
	AccountTypeGoodsInTransit     = "GOODS_IN_TRANSIT"
)
