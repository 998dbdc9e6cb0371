package models

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func rule(line int, entryType EntryType, accountType string, amountSource string) TransactionTemplateRule {
	return TransactionTemplateRule{
		LineNumber:   line,
		EntryType:    entryType,
		AccountType:  accountType,
		AmountSource: amountSource,
	}
}

func TestBuildPostingLinesBalanced(t *testing.T) {
	rules := []TransactionTemplateRule{
		rule(1, EntryTypeDebit, AccountTypeAccountsReceivable, ""),
		rule(2, EntryTypeCredit, AccountTypeSalesRevenue, "sub_total"),
		rule(3, EntryTypeCredit, AccountTypeGstOutput, "tax_amount"),
	}
	data := TransactionData{
		"total_amount": dec("118"),
		"sub_total":    dec("100"),
		"tax_amount":   dec("18"),
	}

	lines, total, err := buildPostingLines(rules, data)
	if err != nil {
		t.Fatalf("buildPostingLines: %v", err)
	}
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if !total.Equal(dec("118")) {
		t.Fatalf("expected total 118, got %s", total)
	}
}

func TestBuildPostingLinesRejectsUnbalanced(t *testing.T) {
	rules := []TransactionTemplateRule{
		rule(1, EntryTypeDebit, AccountTypeAccountsReceivable, ""),
		rule(2, EntryTypeCredit, AccountTypeSalesRevenue, "sub_total"),
	}
	data := TransactionData{
		"total_amount": dec("118"),
		"sub_total":    dec("100"),
	}

	_, _, err := buildPostingLines(rules, data)
	if err == nil {
		t.Fatal("expected out-of-balance error")
	}
	if !strings.Contains(err.Error(), "out of balance") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBuildPostingLinesRejectsNegativeAmount(t *testing.T) {
	rules := []TransactionTemplateRule{
		rule(1, EntryTypeDebit, AccountTypeCash, ""),
		rule(2, EntryTypeCredit, AccountTypeSalesRevenue, ""),
	}
	data := TransactionData{"total_amount": dec("-5")}

	_, _, err := buildPostingLines(rules, data)
	if err == nil {
		t.Fatal("expected negative amount error")
	}
}

func TestResolveRuleAmountDefaultsToTotalAmount(t *testing.T) {
	data := TransactionData{"total_amount": dec("99")}

	got := resolveRuleAmount(rule(1, EntryTypeDebit, AccountTypeCash, ""), data)
	if !got.Equal(dec("99")) {
		t.Fatalf("expected default total_amount 99, got %s", got)
	}
}

func TestResolveRuleAmountMissingFieldIsZero(t *testing.T) {
	data := TransactionData{"total_amount": dec("99")}

	got := resolveRuleAmount(rule(1, EntryTypeDebit, AccountTypeCash, "freight_amount"), data)
	if !got.IsZero() {
		t.Fatalf("expected zero for missing field, got %s", got)
	}
}

func TestVoucherTypeForTransaction(t *testing.T) {
	if vt := voucherTypeForTransaction(TransactionTypeSalesOrder); vt != "SAL" {
		t.Fatalf("sales order voucher type = %s", vt)
	}
	if vt := voucherTypeForTransaction(TransactionTypePurchaseOrder); vt != "PUR" {
		t.Fatalf("purchase order voucher type = %s", vt)
	}
	if vt := voucherTypeForTransaction(TransactionTypeStockAdjustment); vt != "JV" {
		t.Fatalf("adjustment voucher type = %s", vt)
	}
	if vt := voucherTypeForTransaction(TransactionTypeStockTransfer); vt != "JV" {
		t.Fatalf("transfer voucher type = %s", vt)
	}
}

func TestReversalTransactionType(t *testing.T) {
	if rt := reversalTransactionType(TransactionTypeSalesOrder); rt != TransactionTypeSalesOrderReversal {
		t.Fatalf("sales order reversal type = %s", rt)
	}
	if rt := reversalTransactionType(TransactionTypePurchaseOrder); rt != TransactionTypePurchaseOrderReversal {
		t.Fatalf("purchase order reversal type = %s", rt)
	}
	if rt := reversalTransactionType(TransactionTypeStockAdjustment); rt != TransactionTypeStockAdjustment {
		t.Fatalf("adjustment reversal type = %s", rt)
	}
}

func TestDefaultAccountCodesCoverAllAccountTypes(t *testing.T) {
	for _, accountType := range []string{
		AccountTypeAccountsReceivable,
		AccountTypeAccountsPayable,
		AccountTypeSalesRevenue,
		AccountTypePurchaseExpense,
		AccountTypeInventoryAsset,
		AccountTypeGstOutput,
		AccountTypeGstInput,
		AccountTypeCash,
		AccountTypeStockAdjustment,
		AccountTypeGoodsInTransit,
	} {
		if _, ok := defaultAccountCodes[accountType]; !ok {
			t.Fatalf("no default code for account type %s", accountType)
		}
	}
}

func TestBuildOrderItemAmountsGstSplit(t *testing.T) {
	product := &Product{
		CgstRate: dec("9"),
		SgstRate: dec("9"),
		IgstRate: decimal.Zero,
	}
	cgst, sgst, igst, tax, total := buildOrderItemAmounts(product, dec("10"), dec("10"), decimal.Zero)
	if !cgst.Equal(dec("9")) || !sgst.Equal(dec("9")) {
		t.Fatalf("expected 9/9 CGST/SGST, got %s/%s", cgst, sgst)
	}
	if !igst.IsZero() {
		t.Fatalf("expected zero IGST, got %s", igst)
	}
	if !tax.Equal(dec("18")) {
		t.Fatalf("expected tax 18, got %s", tax)
	}
	if !total.Equal(dec("118")) {
		t.Fatalf("expected total 118, got %s", total)
	}
}
