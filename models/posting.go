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
)

// TransactionData carries the named amounts of a business document into the
// posting engine. Template rules pick fields out of it by AmountSource.
type TransactionData map[string]decimal.Decimal

const amountSourceDefault = "total_amount"

// Voucher type per transaction type; everything unlisted posts as a plain
// journal voucher.
var voucherTypeByTransaction = map[TransactionType]string{
	TransactionTypeSalesOrder:    "SAL",
	TransactionTypePurchaseOrder: "PUR",
}

// Fallback account codes used when a tenant has no AccountConfiguration row
// for the rule's account type. These match the seeded chart of accounts.
var defaultAccountCodes = map[string]string{
	AccountTypeAccountsReceivable:     "AR001",
	AccountTypeAccountsPayable:        "AP001",
	AccountTypeSalesRevenue:           "SR001",
	AccountTypePurchaseExpense:        "PE001",
	AccountTypeInventoryAsset:         "IA001",
	AccountTypeGstOutput:              "GSTO01",
	AccountTypeGstInput:               "GSTI01",
	AccountTypeCash:                   "CA001",
	AccountTypeStockAdjustment:        "SAE001",
	AccountTypeGoodsInTransit:         "GIT001",
}

func voucherTypeForTransaction(transactionType TransactionType) string {
	if vt, ok := voucherTypeByTransaction[transactionType]; ok {
		return vt
	}
	return "JV"
}

func reversalTransactionType(transactionType TransactionType) TransactionType {
	switch transactionType {
	case TransactionTypeSalesOrder:
		return TransactionTypeSalesOrderReversal
	case TransactionTypePurchaseOrder:
		return TransactionTypePurchaseOrderReversal
	default:
		return transactionType
	}
}

type postingLine struct {
	Rule   TransactionTemplateRule
	Amount decimal.Decimal
}

// resolveRuleAmount maps a rule onto the transaction data. An empty or
// unknown amount source falls back to total_amount; a field absent from the
// data posts as zero rather than failing the whole voucher.
func resolveRuleAmount(rule TransactionTemplateRule, data TransactionData) decimal.Decimal {
	source := rule.AmountSource
	if source == "" {
		source = amountSourceDefault
	}
	if amount, ok := data[source]; ok {
		return amount
	}
	return decimal.Zero
}

// buildPostingLines evaluates every template rule against the transaction
// data and enforces the double-entry invariant before anything is written.
func buildPostingLines(rules []TransactionTemplateRule, data TransactionData) ([]postingLine, decimal.Decimal, error) {
	lines := make([]postingLine, 0, len(rules))
	totalDebit := decimal.Zero
	totalCredit := decimal.Zero
	for _, rule := range rules {
		amount := resolveRuleAmount(rule, data)
		if amount.IsNegative() {
			return nil, decimal.Zero, fmt.Errorf("negative amount for posting line %d", rule.LineNumber)
		}
		switch rule.EntryType {
		case EntryTypeDebit:
			totalDebit = totalDebit.Add(amount)
		case EntryTypeCredit:
			totalCredit = totalCredit.Add(amount)
		default:
			return nil, decimal.Zero, fmt.Errorf("unknown entry type %q on posting line %d", rule.EntryType, rule.LineNumber)
		}
		lines = append(lines, postingLine{Rule: rule, Amount: amount})
	}
	if !totalDebit.Equal(totalCredit) {
		return nil, decimal.Zero, fmt.Errorf("journal out of balance: debit %s, credit %s", totalDebit, totalCredit)
	}
	return lines, totalDebit, nil
}

// resolvePostingAccount turns one rule into a concrete account id:
// explicit AccountId, else the tenant's AccountConfiguration for the rule's
// account type, else the default chart code for that type.
func resolvePostingAccount(tx *gorm.DB, tenantId int, rule TransactionTemplateRule) (int, error) {
	if rule.AccountId != nil && *rule.AccountId > 0 {
		return *rule.AccountId, nil
	}
	if rule.AccountType == "" {
		return 0, fmt.Errorf("posting line %d has no account id or account type", rule.LineNumber)
	}

	var cfg AccountConfiguration
	err := tx.Where("tenant_id = ? AND account_type = ?", tenantId, rule.AccountType).
		First(&cfg).Error
	if err == nil {
		return cfg.AccountId, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}

	code, ok := defaultAccountCodes[rule.AccountType]
	if !ok {
		return 0, fmt.Errorf("no account configured for account type %s", rule.AccountType)
	}
	var account Account
	err = tx.Where("tenant_id = ? AND code = ?", tenantId, code).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, fmt.Errorf("no account configured for account type %s (default code %s missing)", rule.AccountType, code)
		}
		return 0, err
	}
	return account.ID, nil
}

// PostTransaction is the single entry point from business documents into the
// general ledger. It runs inside the caller's transaction and never commits:
// template lookup, rule evaluation, voucher + journal creation and ledger
// materialization all succeed or fail as one unit with the caller.
func PostTransaction(ctx context.Context, tx *gorm.DB, rc appctx.RequestContext, transactionType TransactionType, referenceId int, referenceNumber string, data TransactionData) (*Voucher, error) {
	logger := config.GetLogger()
	tenantId := rc.TenantId

	template, err := GetActiveTemplate(tx, tenantId, transactionType)
	if err != nil {
		config.LogError(logger, "posting", "PostTransaction", "Template lookup failed", transactionType, err)
		return nil, err
	}

	lines, total, err := buildPostingLines(template.Rules, data)
	if err != nil {
		config.LogError(logger, "posting", "PostTransaction", "Rule evaluation failed", template.ID, err)
		return nil, err
	}

	voucherType := voucherTypeForTransaction(transactionType)
	seqNo, voucherNumber, err := NextVoucherNumber(ctx, tenantId, voucherType+"-")
	if err != nil {
		return nil, err
	}

	currencyId, exchangeRate, err := ResolveDocumentCurrency(tx, tenantId, nil, nil)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	details := make([]JournalDetail, 0, len(lines))
	for _, line := range lines {
		accountId, err := resolvePostingAccount(tx, tenantId, line.Rule)
		if err != nil {
			config.LogError(logger, "posting", "PostTransaction", "Account resolution failed", line.Rule.ID, err)
			return nil, err
		}
		detail := JournalDetail{
			AccountId:   accountId,
			LineNumber:  line.Rule.LineNumber,
			Description: line.Rule.Description,
		}
		if line.Rule.EntryType == EntryTypeDebit {
			detail.DebitAmount = line.Amount
		} else {
			detail.CreditAmount = line.Amount
		}
		details = append(details, detail)
	}

	voucher := Voucher{
		TenantId:        tenantId,
		VoucherNumber:   voucherNumber,
		SequenceNo:      decimal.NewFromInt(seqNo),
		VoucherType:     voucherType,
		TransactionType: transactionType,
		ReferenceId:     referenceId,
		ReferenceNumber: referenceNumber,
		VoucherDate:     now,
		TotalAmount:     total,
		IsPosted:        utils.NewTrue(),
		Journals: []Journal{{
			TenantId:     tenantId,
			JournalDate:  now,
			JournalNotes: fmt.Sprintf("%s %s", transactionType, referenceNumber),
			CurrencyId:   currencyId,
			ExchangeRate: exchangeRate,
			TotalAmount:  total,
			Details:      details,
		}},
	}
	if err := tx.Create(&voucher).Error; err != nil {
		config.LogError(logger, "posting", "PostTransaction", "Voucher create failed", voucherNumber, err)
		return nil, err
	}
	if err := CreateLedgerEntriesFromVoucher(tx, &voucher); err != nil {
		return nil, err
	}

	logger.WithFields(map[string]interface{}{
		"tenant_id":        tenantId,
		"voucher_number":   voucherNumber,
		"transaction_type": transactionType,
		"total_amount":     total,
	}).Info("Posted transaction")
	return &voucher, nil
}

// ReverseVouchersForReference posts a mirror voucher (debits and credits
// swapped) for every not-yet-reversed voucher of a business document and
// back-links the pair. Returns how many vouchers were reversed; zero is not
// an error because order reversals can run before the outbox has posted.
func ReverseVouchersForReference(ctx context.Context, tx *gorm.DB, rc appctx.RequestContext, transactionType TransactionType, referenceId int) (int, error) {
	tenantId := rc.TenantId

	var originals []*Voucher
	if err := tx.Preload("Journals.Details").
		Where("tenant_id = ? AND transaction_type = ? AND reference_id = ? AND is_reversal = ? AND reversed_by_voucher_id IS NULL",
			tenantId, transactionType, referenceId, false).
		Find(&originals).Error; err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	for _, original := range originals {
		seqNo, _, err := NextVoucherNumber(ctx, tenantId, original.VoucherType+"-")
		if err != nil {
			return 0, err
		}
		reversal := Voucher{
			TenantId:          tenantId,
			VoucherNumber:     "REV-" + original.VoucherNumber,
			SequenceNo:        decimal.NewFromInt(seqNo),
			VoucherType:       original.VoucherType,
			TransactionType:   reversalTransactionType(transactionType),
			ReferenceId:       original.ReferenceId,
			ReferenceNumber:   "REV-" + original.ReferenceNumber,
			VoucherDate:       now,
			TotalAmount:       original.TotalAmount,
			IsPosted:          utils.NewTrue(),
			IsReversal:        true,
			ReversesVoucherId: &original.ID,
		}
		for _, journal := range original.Journals {
			details := make([]JournalDetail, 0, len(journal.Details))
			for _, d := range journal.Details {
				details = append(details, JournalDetail{
					AccountId:    d.AccountId,
					LineNumber:   d.LineNumber,
					Description:  d.Description,
					DebitAmount:  d.CreditAmount,
					CreditAmount: d.DebitAmount,
				})
			}
			reversal.Journals = append(reversal.Journals, Journal{
				TenantId:     tenantId,
				JournalDate:  now,
				JournalNotes: "Reversal of " + original.VoucherNumber,
				CurrencyId:   journal.CurrencyId,
				ExchangeRate: journal.ExchangeRate,
				TotalAmount:  journal.TotalAmount,
				Details:      details,
			})
		}
		if err := tx.Create(&reversal).Error; err != nil {
			return 0, err
		}
		if err := CreateLedgerEntriesFromVoucher(tx, &reversal); err != nil {
			return 0, err
		}
		if err := tx.Model(&Voucher{}).
			Where("id = ?", original.ID).
			Updates(map[string]interface{}{
				"reversed_by_voucher_id": reversal.ID,
				"reversed_at":            &now,
			}).Error; err != nil {
			return 0, err
		}
	}
	return len(originals), nil
}
