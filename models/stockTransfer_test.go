package models

import "testing"

func TestTransferTransitions(t *testing.T) {
	allowed := []struct {
		from, to StockTransferStatus
	}{
		{TransferStatusDraft, TransferStatusApproved},
		{TransferStatusDraft, TransferStatusCancelled},
		{TransferStatusApproved, TransferStatusInTransit},
		{TransferStatusApproved, TransferStatusCompleted},
		{TransferStatusApproved, TransferStatusCancelled},
		{TransferStatusInTransit, TransferStatusCompleted},
	}
	for _, c := range allowed {
		if !transferTransitionAllowed(c.from, c.to) {
			t.Fatalf("%s -> %s should be allowed", c.from, c.to)
		}
	}

	forbidden := []struct {
		from, to StockTransferStatus
	}{
		{TransferStatusDraft, TransferStatusInTransit},
		{TransferStatusDraft, TransferStatusCompleted},
		{TransferStatusInTransit, TransferStatusCancelled},
		{TransferStatusCompleted, TransferStatusDraft},
		{TransferStatusCompleted, TransferStatusCancelled},
		{TransferStatusCancelled, TransferStatusApproved},
		{TransferStatusApproved, TransferStatusDraft},
	}
	for _, c := range forbidden {
		if transferTransitionAllowed(c.from, c.to) {
			t.Fatalf("%s -> %s should be rejected", c.from, c.to)
		}
	}
}
