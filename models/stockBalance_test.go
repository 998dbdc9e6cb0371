package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestNextAverageCostWeightedFormula(t *testing.T) {
	// 10 @ 100 in stock, receive 5 @ 130 -> (10*100 + 5*130) / 15 = 110
	got := nextAverageCost(dec("10"), dec("100"), dec("5"), dec("130"))
	if !got.Equal(dec("110")) {
		t.Fatalf("expected average 110, got %s", got)
	}
}

func TestNextAverageCostEmptyStockTakesIncomingPrice(t *testing.T) {
	got := nextAverageCost(dec("0"), dec("0"), dec("5"), dec("42"))
	if !got.Equal(dec("42")) {
		t.Fatalf("expected average 42, got %s", got)
	}
}

func TestNextAverageCostNegativeStockTakesIncomingPrice(t *testing.T) {
	// Negative balances are allowed; the first receipt re-anchors the average.
	got := nextAverageCost(dec("-3"), dec("80"), dec("10"), dec("95"))
	if !got.Equal(dec("95")) {
		t.Fatalf("expected average 95, got %s", got)
	}
}

func TestApplyMovementInUpdatesAverageAndQuantity(t *testing.T) {
	b := StockBalance{TotalQuantity: dec("10"), AvailableQuantity: dec("10"), AverageCost: dec("100")}
	next := applyMovement(b, StockTransactionTypeIn, dec("5"), dec("130"))
	if !next.TotalQuantity.Equal(dec("15")) {
		t.Fatalf("expected quantity 15, got %s", next.TotalQuantity)
	}
	if !next.AvailableQuantity.Equal(dec("15")) {
		t.Fatalf("expected available 15, got %s", next.AvailableQuantity)
	}
	if !next.AverageCost.Equal(dec("110")) {
		t.Fatalf("expected average 110, got %s", next.AverageCost)
	}
}

func TestApplyMovementOutKeepsAverage(t *testing.T) {
	b := StockBalance{TotalQuantity: dec("15"), AvailableQuantity: dec("15"), AverageCost: dec("110")}
	next := applyMovement(b, StockTransactionTypeOut, dec("8"), dec("200"))
	if !next.TotalQuantity.Equal(dec("7")) {
		t.Fatalf("expected quantity 7, got %s", next.TotalQuantity)
	}
	// Issue price never touches the average.
	if !next.AverageCost.Equal(dec("110")) {
		t.Fatalf("expected average 110, got %s", next.AverageCost)
	}
}

func TestApplyMovementOutAllowsNegativeQuantity(t *testing.T) {
	b := StockBalance{TotalQuantity: dec("2"), AvailableQuantity: dec("2"), AverageCost: dec("50")}
	next := applyMovement(b, StockTransactionTypeOut, dec("5"), dec("50"))
	if !next.TotalQuantity.Equal(dec("-3")) {
		t.Fatalf("expected quantity -3, got %s", next.TotalQuantity)
	}
}

func TestFreeQuantityAtAverageCostKeepsAverage(t *testing.T) {
	// Free goods come in priced at the current average, so quantity grows
	// while the average stays put.
	b := StockBalance{TotalQuantity: dec("10"), AvailableQuantity: dec("10"), AverageCost: dec("110")}
	next := applyMovement(b, StockTransactionTypeIn, dec("4"), b.AverageCost)
	if !next.TotalQuantity.Equal(dec("14")) {
		t.Fatalf("expected quantity 14, got %s", next.TotalQuantity)
	}
	if !next.AverageCost.Equal(dec("110")) {
		t.Fatalf("expected average unchanged at 110, got %s", next.AverageCost)
	}
}

func TestReversalReplayRestoresBalance(t *testing.T) {
	// A document's reversal replays each row with the opposite direction at
	// the original unit price; the balance must come back exactly.
	start := StockBalance{TotalQuantity: dec("10"), AvailableQuantity: dec("10"), AverageCost: dec("100")}

	afterIn := applyMovement(start, StockTransactionTypeIn, dec("5"), dec("130"))
	afterOut := applyMovement(afterIn, StockTransactionTypeOut, dec("5"), dec("130"))

	if !afterOut.TotalQuantity.Equal(start.TotalQuantity) {
		t.Fatalf("expected quantity restored to %s, got %s", start.TotalQuantity, afterOut.TotalQuantity)
	}
	if !afterOut.AvailableQuantity.Equal(start.AvailableQuantity) {
		t.Fatalf("expected available restored to %s, got %s", start.AvailableQuantity, afterOut.AvailableQuantity)
	}
}

func TestOppositeTransactionType(t *testing.T) {
	if oppositeTransactionType(StockTransactionTypeIn) != StockTransactionTypeOut {
		t.Fatal("IN must reverse to OUT")
	}
	if oppositeTransactionType(StockTransactionTypeOut) != StockTransactionTypeIn {
		t.Fatal("OUT must reverse to IN")
	}
}

func TestReversalSourceMapping(t *testing.T) {
	cases := map[StockTransactionSource]StockTransactionSource{
		StockSourcePurchase:     StockSourcePurchaseReversal,
		StockSourcePurchaseFree: StockSourcePurchaseReversal,
		StockSourceSales:        StockSourceSalesReversal,
		StockSourceSalesFree:    StockSourceSalesReversal,
		StockSourceAdjustment:   StockSourceAdjustmentReversal,
		StockSourceTransferOut:  StockSourceTransferReversal,
		StockSourceTransferIn:   StockSourceTransferReversal,
	}
	for src, want := range cases {
		if got := reversalSource(src); got != want {
			t.Fatalf("reversalSource(%s) = %s, want %s", src, got, want)
		}
	}
}

func TestBeforeSaveNormalizesQuantitySign(t *testing.T) {
	txn := StockTransaction{Quantity: dec("-7")}
	if err := txn.BeforeSave(nil); err != nil {
		t.Fatalf("BeforeSave: %v", err)
	}
	if !txn.Quantity.Equal(dec("7")) {
		t.Fatalf("expected quantity normalized to 7, got %s", txn.Quantity)
	}
}
