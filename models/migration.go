package models

import (
	"gorm.io/gorm"
)

// MigrateTable creates/updates the schema for every model in dependency
// order. Reference data first, documents next, accounting last.
func MigrateTable(db *gorm.DB) error {
	return db.AutoMigrate(
		&Tenant{},
		&Currency{},
		&FinancialYear{},
		&Account{},
		&AccountConfiguration{},
		&Warehouse{},
		&Product{},

		&PurchaseOrder{},
		&PurchaseOrderItem{},
		&SalesOrder{},
		&SalesOrderItem{},
		&StockAdjustment{},
		&StockAdjustmentItem{},
		&StockTransfer{},
		&StockTransferItem{},

		&StockTransaction{},
		&StockBalance{},

		&TransactionTemplate{},
		&TransactionTemplateRule{},
		&Voucher{},
		&Journal{},
		&JournalDetail{},
		&LedgerEntry{},
		&PostingOutbox{},
	)
}
