package utils

import (
	"testing"
)

func TestParseDecimal(t *testing.T) {
	d, err := ParseDecimal(" 12.50 ")
	if err != nil {
		t.Fatalf("ParseDecimal: %v", err)
	}
	if d.String() != "12.5" {
		t.Fatalf("got %s", d)
	}
	if _, err := ParseDecimal(""); err == nil {
		t.Fatal("expected error for empty string")
	}
	if _, err := ParseDecimal("abc"); err == nil {
		t.Fatal("expected error for non-numeric string")
	}
}

func TestUniqueSlice(t *testing.T) {
	got := UniqueSlice([]int{3, 1, 3, 2, 1})
	if len(got) != 3 || got[0] != 3 || got[1] != 1 || got[2] != 2 {
		t.Fatalf("got %v", got)
	}
}

func TestDereferencePtr(t *testing.T) {
	v := 5
	if DereferencePtr(&v) != 5 {
		t.Fatal("expected 5")
	}
	if DereferencePtr[int](nil) != 0 {
		t.Fatal("expected zero value")
	}
	if DereferencePtr(nil, 9) != 9 {
		t.Fatal("expected default 9")
	}
}

func TestValidateStructFlattensFirstFailure(t *testing.T) {
	type input struct {
		Name string `validate:"required"`
	}
	err := ValidateStruct(&input{})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if err.Error() != "invalid name (required)" {
		t.Fatalf("got %q", err.Error())
	}
}
