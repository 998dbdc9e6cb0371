package models_test

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/erp_backend/config"
	"bitbucket.org/mmdatafocus/erp_backend/models"
	"bitbucket.org/mmdatafocus/erp_backend/utils"
	"bitbucket.org/mmdatafocus/erp_backend/workflow"
	"github.com/shopspring/decimal"
)

// Full stock + posting flow against a live Postgres/Redis pair.
// Set INTEGRATION_TESTS=1 and the usual DB_*/REDIS_ADDRESS env vars to run.
func TestPurchaseToReversalFlow(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires postgres + redis)")
	}

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	db := config.GetDB()
	if err := models.MigrateTable(db); err != nil {
		t.Fatalf("MigrateTable: %v", err)
	}

	tenant := models.Tenant{Name: "Flow Test Co", Timezone: "UTC"}
	if err := db.Create(&tenant).Error; err != nil {
		t.Fatalf("create tenant: %v", err)
	}
	currency := models.Currency{TenantId: tenant.ID, Code: "INR", Name: "Indian Rupee", IsBase: utils.NewTrue()}
	if err := db.Create(&currency).Error; err != nil {
		t.Fatalf("create currency: %v", err)
	}
	if err := db.Model(&models.Tenant{}).Where("id = ?", tenant.ID).
		Update("base_currency_id", currency.ID).Error; err != nil {
		t.Fatalf("set base currency: %v", err)
	}

	// Chart of accounts with the default codes the posting engine falls
	// back to when no AccountConfiguration exists.
	for code, name := range map[string]string{
		"AP001":  "Accounts Payable",
		"PE001":  "Purchase Expense",
		"GSTI01": "GST Input",
	} {
		account := models.Account{TenantId: tenant.ID, Code: code, Name: name}
		if err := db.Create(&account).Error; err != nil {
			t.Fatalf("create account %s: %v", code, err)
		}
	}

	ctx := context.Background()
	ctx = utils.SetTenantIdInContext(ctx, tenant.ID)
	ctx = utils.SetUsernameInContext(ctx, "test@local")

	if _, err := models.CreateTransactionTemplate(ctx, &models.NewTransactionTemplate{
		TransactionType: models.TransactionTypePurchaseOrder,
		Name:            "Purchase posting",
		Rules: []models.NewTransactionTemplateRule{
			{EntryType: models.EntryTypeDebit, AccountType: models.AccountTypePurchaseExpense, AmountSource: "sub_total"},
			{EntryType: models.EntryTypeDebit, AccountType: models.AccountTypeGstInput, AmountSource: "tax_amount"},
			{EntryType: models.EntryTypeCredit, AccountType: models.AccountTypeAccountsPayable},
		},
	}); err != nil {
		t.Fatalf("CreateTransactionTemplate: %v", err)
	}

	warehouse, err := models.CreateWarehouse(ctx, &models.NewWarehouse{Code: "WH1", Name: "Main"})
	if err != nil {
		t.Fatalf("CreateWarehouse: %v", err)
	}
	product, err := models.CreateProduct(ctx, &models.NewProduct{Sku: "SKU-1", Name: "Widget"})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}

	qty := decimal.NewFromInt(10)
	price := decimal.NewFromInt(100)
	free := decimal.NewFromInt(2)
	order, err := models.CreatePurchaseOrder(ctx, &models.NewPurchaseOrder{
		WarehouseId: warehouse.ID,
		Items: []models.NewPurchaseOrderItem{
			{ProductId: product.ID, BatchNumber: "B1", Quantity: qty, FreeQuantity: free, UnitPrice: price},
		},
	})
	if err != nil {
		t.Fatalf("CreatePurchaseOrder: %v", err)
	}

	balance, err := models.GetStockBalance(db, tenant.ID, product.ID, "B1")
	if err != nil {
		t.Fatalf("GetStockBalance: %v", err)
	}
	if !balance.TotalQuantity.Equal(decimal.NewFromInt(12)) {
		t.Fatalf("expected quantity 12 after purchase with free goods, got %s", balance.TotalQuantity)
	}
	// Free units come in at the running average, so the average stays at the
	// paid price.
	if !balance.AverageCost.Equal(price) {
		t.Fatalf("expected average cost 100, got %s", balance.AverageCost)
	}

	// Drain the outbox and wait for the voucher.
	dispatcherCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go workflow.NewOutboxDispatcher(db, config.GetLogger()).Run(dispatcherCtx)

	deadline := time.Now().Add(15 * time.Second)
	var outbox models.PostingOutbox
	for {
		if err := db.Where("tenant_id = ? AND reference_id = ?", tenant.ID, order.ID).
			First(&outbox).Error; err == nil && outbox.Status == models.OutboxStatusSucceeded {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("outbox row never reached SUCCEEDED, status %q (last error %q)", outbox.Status, outbox.LastError)
		}
		time.Sleep(200 * time.Millisecond)
	}
	cancel()

	var voucher models.Voucher
	if err := db.Preload("Journals.Details").
		Where("tenant_id = ? AND reference_id = ? AND transaction_type = ?",
			tenant.ID, order.ID, models.TransactionTypePurchaseOrder).
		First(&voucher).Error; err != nil {
		t.Fatalf("load voucher: %v", err)
	}
	debit, credit := decimal.Zero, decimal.Zero
	for _, journal := range voucher.Journals {
		for _, d := range journal.Details {
			debit = debit.Add(d.DebitAmount)
			credit = credit.Add(d.CreditAmount)
		}
	}
	if !debit.Equal(credit) {
		t.Fatalf("journal out of balance: debit %s, credit %s", debit, credit)
	}
	if !debit.Equal(order.TotalAmount) {
		t.Fatalf("expected journal total %s, got %s", order.TotalAmount, debit)
	}

	// Reverse and verify the balance comes back and the voucher is mirrored.
	if _, err := models.ReversePurchaseOrder(ctx, order.ID); err != nil {
		t.Fatalf("ReversePurchaseOrder: %v", err)
	}
	balance, err = models.GetStockBalance(db, tenant.ID, product.ID, "B1")
	if err != nil {
		t.Fatalf("GetStockBalance after reversal: %v", err)
	}
	if !balance.TotalQuantity.IsZero() {
		t.Fatalf("expected zero quantity after reversal, got %s", balance.TotalQuantity)
	}

	var reversalCount int64
	if err := db.Model(&models.Voucher{}).
		Where("tenant_id = ? AND reference_id = ? AND is_reversal = ?", tenant.ID, order.ID, true).
		Count(&reversalCount).Error; err != nil {
		t.Fatalf("count reversal vouchers: %v", err)
	}
	if reversalCount != 1 {
		t.Fatalf("expected 1 reversal voucher, got %d", reversalCount)
	}

	// Second reversal must be rejected.
	if _, err := models.ReversePurchaseOrder(ctx, order.ID); err == nil {
		t.Fatal("expected already-reversed error")
	}

	// Transfer guard: cannot move more than in stock.
	warehouse2, err := models.CreateWarehouse(ctx, &models.NewWarehouse{Code: "WH2", Name: "Branch"})
	if err != nil {
		t.Fatalf("CreateWarehouse: %v", err)
	}
	_, err = models.CreateStockTransfer(ctx, &models.NewStockTransfer{
		FromWarehouseId: warehouse.ID,
		ToWarehouseId:   warehouse2.ID,
		Status:          models.TransferStatusApproved,
		Items: []models.NewStockTransferItem{
			{ProductId: product.ID, BatchNumber: "B1", Quantity: decimal.NewFromInt(5)},
		},
	})
	if err == nil || !strings.Contains(err.Error(), "insufficient stock") {
		t.Fatalf("expected insufficient stock error, got %v", err)
	}
}
