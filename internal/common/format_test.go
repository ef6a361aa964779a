package common

import (
	"testing"

	"taskona-ledger-go/internal/money"
)

func TestFormatNaira(t *testing.T) {
	tests := []struct {
		amount money.Money
		want   string
	}{
		{money.Zero, "₦0.00"},
		{money.FromKobo(5), "₦0.05"},
		{money.FromNaira(1500), "₦1,500.00"},
		{money.FromKobo(123456789), "₦1,234,567.89"},
		{money.FromNaira(-2050), "-₦2,050.00"},
		{money.FromNaira(100), "₦100.00"},
		{money.FromNaira(100000), "₦100,000.00"},
		{money.FromNaira(-1000000000), "-₦1,000,000,000.00"},
	}
	for _, tt := range tests {
		if got := FormatNaira(tt.amount); got != tt.want {
			t.Errorf("FormatNaira(%d) = %q, want %q", tt.amount.Kobo(), got, tt.want)
		}
	}
}

func TestShortId(t *testing.T) {
	if got := ShortId(""); got != "none" {
		t.Errorf("ShortId(\"\") = %q", got)
	}
	if got := ShortId("abc"); got != "abc" {
		t.Errorf("ShortId(abc) = %q", got)
	}
	if got := ShortId("0123456789"); got != "01234567..." {
		t.Errorf("ShortId long = %q", got)
	}
}
