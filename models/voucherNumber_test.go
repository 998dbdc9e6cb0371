package models

import (
	"testing"
	"time"
)

func TestFormatVoucherNumberLayout(t *testing.T) {
	at := time.Date(2025, 1, 2, 3, 4, 5, 6*int(time.Millisecond), time.UTC)
	got := FormatVoucherNumber("JV-", 7, at)
	want := "JV-702012025030405006"
	if got != want {
		t.Fatalf("FormatVoucherNumber = %q, want %q", got, want)
	}
}

func TestFormatVoucherNumberMillisecondPadding(t *testing.T) {
	at := time.Date(2024, 12, 31, 23, 59, 59, 999*int(time.Millisecond), time.UTC)
	got := FormatVoucherNumber("SAL-", 42, at)
	want := "SAL-4231122024235959999"
	if got != want {
		t.Fatalf("FormatVoucherNumber = %q, want %q", got, want)
	}
}

func TestGenerateVoucherNumberUsesClock(t *testing.T) {
	orig := voucherClock
	defer func() { voucherClock = orig }()
	voucherClock = func() time.Time {
		return time.Date(2025, 1, 2, 3, 4, 5, 6*int(time.Millisecond), time.UTC)
	}

	got := GenerateVoucherNumber("JV-", 7)
	if got != "JV-702012025030405006" {
		t.Fatalf("GenerateVoucherNumber = %q", got)
	}
}

func TestGenerateVoucherNumberSameMillisecondCollides(t *testing.T) {
	// Documents the known limitation that motivated sequence-based numbers.
	orig := voucherClock
	defer func() { voucherClock = orig }()
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	voucherClock = func() time.Time { return fixed }

	a := GenerateVoucherNumber("JV-", 3)
	b := GenerateVoucherNumber("JV-", 3)
	if a != b {
		t.Fatalf("expected identical numbers inside one millisecond, got %q and %q", a, b)
	}
}
