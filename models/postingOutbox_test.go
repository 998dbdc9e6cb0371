package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestOutboxBackoffDoublesAndCaps(t *testing.T) {
	cases := []struct {
		attempts int
		want     time.Duration
	}{
		{0, time.Minute},
		{1, time.Minute},
		{2, 2 * time.Minute},
		{3, 4 * time.Minute},
		{4, 8 * time.Minute},
		{5, 16 * time.Minute},
		{6, 32 * time.Minute},
		{7, time.Hour},
		{50, time.Hour},
	}
	for _, c := range cases {
		if got := OutboxBackoff(c.attempts); got != c.want {
			t.Fatalf("OutboxBackoff(%d) = %s, want %s", c.attempts, got, c.want)
		}
	}
}

func TestTransactionDataPayloadRoundTrip(t *testing.T) {
	data := TransactionData{
		"total_amount": dec("118.50"),
		"tax_amount":   dec("18.50"),
	}
	payload, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded TransactionData
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !decoded["total_amount"].Equal(dec("118.50")) {
		t.Fatalf("total_amount round trip = %s", decoded["total_amount"])
	}
	if !decoded["tax_amount"].Equal(dec("18.50")) {
		t.Fatalf("tax_amount round trip = %s", decoded["tax_amount"])
	}
}
