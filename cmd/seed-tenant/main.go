// seed-tenant creates a tenant with its base currency, default chart of
// accounts and the posting templates every document type needs. Intended for
// fresh environments and local development.
//
// Usage (from backend directory):
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... \
//   REDIS_ADDRESS=... go run ./cmd/seed-tenant -name "Demo Co"
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"bitbucket.org/mmdatafocus/erp_backend/config"
	"bitbucket.org/mmdatafocus/erp_backend/models"
	"bitbucket.org/mmdatafocus/erp_backend/utils"
)

var defaultAccounts = []struct {
	Code        string
	Name        string
	Type        string
	AccountType string
}{
	{"AR001", "Accounts Receivable", "ASSET", models.AccountTypeAccountsReceivable},
	{"AP001", "Accounts Payable", "LIABILITY", models.AccountTypeAccountsPayable},
	{"SR001", "Sales Revenue", "INCOME", models.AccountTypeSalesRevenue},
	{"PE001", "Purchase Expense", "EXPENSE", models.AccountTypePurchaseExpense},
	{"IA001", "Inventory Asset", "ASSET", models.AccountTypeInventoryAsset},
	{"GSTO01", "GST Output", "LIABILITY", models.AccountTypeGstOutput},
	{"GSTI01", "GST Input", "ASSET", models.AccountTypeGstInput},
	{"CA001", "Cash", "ASSET", models.AccountTypeCash},
	{"SAE001", "Stock Adjustment Expense", "EXPENSE", models.AccountTypeStockAdjustment},
	{"GIT001", "Goods In Transit", "ASSET", models.AccountTypeGoodsInTransit},
}

func main() {
	name := flag.String("name", "Demo Co", "tenant name")
	currencyCode := flag.String("currency", "INR", "base currency code")
	flag.Parse()

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}
	if err := models.MigrateTable(db); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}

	tenant := models.Tenant{Name: *name, Timezone: "UTC"}
	if err := db.Create(&tenant).Error; err != nil {
		fmt.Fprintf(os.Stderr, "create tenant: %v\n", err)
		os.Exit(1)
	}

	currency := models.Currency{
		TenantId: tenant.ID,
		Code:     *currencyCode,
		Name:     *currencyCode,
		IsBase:   utils.NewTrue(),
	}
	if err := db.Create(&currency).Error; err != nil {
		fmt.Fprintf(os.Stderr, "create currency: %v\n", err)
		os.Exit(1)
	}
	if err := db.Model(&models.Tenant{}).Where("id = ?", tenant.ID).
		Update("base_currency_id", currency.ID).Error; err != nil {
		fmt.Fprintf(os.Stderr, "set base currency: %v\n", err)
		os.Exit(1)
	}

	for _, a := range defaultAccounts {
		account := models.Account{TenantId: tenant.ID, Code: a.Code, Name: a.Name, Type: a.Type}
		if err := db.Create(&account).Error; err != nil {
			fmt.Fprintf(os.Stderr, "create account %s: %v\n", a.Code, err)
			os.Exit(1)
		}
		cfg := models.AccountConfiguration{TenantId: tenant.ID, AccountType: a.AccountType, AccountId: account.ID}
		if err := db.Create(&cfg).Error; err != nil {
			fmt.Fprintf(os.Stderr, "create account configuration %s: %v\n", a.AccountType, err)
			os.Exit(1)
		}
	}

	ctx = utils.SetTenantIdInContext(ctx, tenant.ID)
	ctx = utils.SetUsernameInContext(ctx, "seed")

	templates := []models.NewTransactionTemplate{
		{
			TransactionType: models.TransactionTypePurchaseOrder,
			Name:            "Purchase posting",
			Rules: []models.NewTransactionTemplateRule{
				{EntryType: models.EntryTypeDebit, AccountType: models.AccountTypePurchaseExpense, AmountSource: "sub_total", Description: "Purchase"},
				{EntryType: models.EntryTypeDebit, AccountType: models.AccountTypeGstInput, AmountSource: "tax_amount", Description: "GST input"},
				{EntryType: models.EntryTypeCredit, AccountType: models.AccountTypeAccountsPayable, Description: "Payable"},
			},
		},
		{
			TransactionType: models.TransactionTypeSalesOrder,
			Name:            "Sales posting",
			Rules: []models.NewTransactionTemplateRule{
				{EntryType: models.EntryTypeDebit, AccountType: models.AccountTypeAccountsReceivable, Description: "Receivable"},
				{EntryType: models.EntryTypeCredit, AccountType: models.AccountTypeSalesRevenue, AmountSource: "sub_total", Description: "Revenue"},
				{EntryType: models.EntryTypeCredit, AccountType: models.AccountTypeGstOutput, AmountSource: "tax_amount", Description: "GST output"},
			},
		},
		{
			TransactionType: models.TransactionTypeStockAdjustment,
			Name:            "Adjustment posting",
			Rules: []models.NewTransactionTemplateRule{
				{EntryType: models.EntryTypeDebit, AccountType: models.AccountTypeStockAdjustment, Description: "Adjustment expense"},
				{EntryType: models.EntryTypeCredit, AccountType: models.AccountTypeInventoryAsset, Description: "Inventory"},
			},
		},
		{
			TransactionType: models.TransactionTypeStockTransfer,
			Name:            "Transfer posting",
			Rules: []models.NewTransactionTemplateRule{
				{EntryType: models.EntryTypeDebit, AccountType: models.AccountTypeGoodsInTransit, Description: "In transit"},
				{EntryType: models.EntryTypeCredit, AccountType: models.AccountTypeInventoryAsset, Description: "Inventory"},
			},
		},
	}
	for i := range templates {
		if _, err := models.CreateTransactionTemplate(ctx, &templates[i]); err != nil {
			fmt.Fprintf(os.Stderr, "create template %s: %v\n", templates[i].TransactionType, err)
			os.Exit(1)
		}
	}

	fmt.Printf("seeded tenant %d (%s) with %d accounts and %d posting templates\n",
		tenant.ID, tenant.Name, len(defaultAccounts), len(templates))
}
