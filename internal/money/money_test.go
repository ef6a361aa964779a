package money

import (
	"errors"
	"math"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseNaira(t *testing.T) {
	tests := []struct {
		input string
		want  Money
	}{
		{"1500", FromNaira(1500)},
		{"49.50", FromKobo(4950)},
		{" 0.01 ", FromKobo(1)},
		{"-300", FromNaira(-300)},
	}
	for _, tt := range tests {
		got, err := ParseNaira(tt.input)
		if err != nil {
			t.Fatalf("ParseNaira(%q) failed: %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("ParseNaira(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestParseNaira_Rejects(t *testing.T) {
	for _, input := range []string{"", "abc", "1.005", "99999999999999999999999"} {
		if _, err := ParseNaira(input); !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("ParseNaira(%q) error = %v, want ErrInvalidAmount", input, err)
		}
	}
}

func TestString(t *testing.T) {
	if got := FromKobo(150050).String(); got != "1500.50" {
		t.Errorf("String() = %q, want 1500.50", got)
	}
	if got := FromNaira(-50).String(); got != "-50.00" {
		t.Errorf("String() = %q, want -50.00", got)
	}
	if !FromKobo(4950).Naira().Equal(decimal.RequireFromString("49.5")) {
		t.Errorf("Naira() = %s, want 49.5", FromKobo(4950).Naira())
	}
}

func TestSubNonNegative(t *testing.T) {
	got, err := FromNaira(5000).SubNonNegative(FromNaira(2050))
	if err != nil {
		t.Fatalf("SubNonNegative failed: %v", err)
	}
	if got != FromNaira(2950) {
		t.Errorf("expected 2950, got %s", got)
	}

	if _, err := FromNaira(10).SubNonNegative(FromNaira(11)); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount, got %v", err)
	}
	if _, err := FromNaira(10).SubNonNegative(FromNaira(-1)); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount for negative operand, got %v", err)
	}
}

func TestCheckedAdd(t *testing.T) {
	if _, err := Money(math.MaxInt64).CheckedAdd(1); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("expected overflow error, got %v", err)
	}
	if _, err := Money(math.MinInt64).CheckedAdd(-1); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("expected underflow error, got %v", err)
	}
	got, err := FromNaira(1000).CheckedAdd(FromNaira(300))
	if err != nil || got != FromNaira(1300) {
		t.Errorf("CheckedAdd = %s, %v; want 1300.00", got, err)
	}
}

func TestRequirePositive(t *testing.T) {
	if err := RequirePositive(Zero); !errors.Is(err, ErrZeroOrNegative) {
		t.Errorf("zero: expected ErrZeroOrNegative, got %v", err)
	}
	if err := RequirePositive(FromKobo(-1)); !errors.Is(err, ErrZeroOrNegative) {
		t.Errorf("negative: expected ErrZeroOrNegative, got %v", err)
	}
	if err := RequirePositive(FromKobo(1)); err != nil {
		t.Errorf("positive: unexpected error %v", err)
	}
}

func TestCmp(t *testing.T) {
	if FromNaira(1).Cmp(FromNaira(2)) != -1 || FromNaira(2).Cmp(FromNaira(1)) != 1 || FromNaira(1).Cmp(FromKobo(100)) != 0 {
		t.Error("Cmp returned unexpected ordering")
	}
}
