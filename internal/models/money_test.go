package models

import (
	"testing"
)

func TestParseMoney(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"plain", "1234.50", "1234.5", false},
		{"thousands separators", "1,234.50", "1234.5", false},
		{"rupee symbol", "₹99.99", "99.99", false},
		{"dollar symbol", "$15", "15", false},
		{"negative", "-250", "-250", false},
		{"whitespace", "  42 ", "42", false},
		{"empty", "", "", true},
		{"garbage", "12a.b", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := ParseMoney(tt.in, "INR")
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseMoney(%q) expected error, got %v", tt.in, m)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseMoney(%q) unexpected error: %v", tt.in, err)
			}
			if m.Amount.String() != tt.want {
				t.Errorf("ParseMoney(%q).Amount = %s, want %s", tt.in, m.Amount.String(), tt.want)
			}
			if m.Currency != "INR" {
				t.Errorf("currency = %q, want INR", m.Currency)
			}
		})
	}
}

func TestMoneyArithmetic(t *testing.T) {
	a := MustMoney("100.10", "INR")
	b := MustMoney("0.20", "INR")

	sum := a.Add(b)
	if sum.Amount.String() != "100.3" {
		t.Errorf("100.10 + 0.20 = %s, want 100.3 (exact decimal, not float)", sum.Amount.String())
	}

	diff := a.Sub(b)
	if diff.Amount.String() != "99.9" {
		t.Errorf("100.10 - 0.20 = %s, want 99.9", diff.Amount.String())
	}

	if a.Cmp(b) != 1 || b.Cmp(a) != -1 || a.Cmp(a) != 0 {
		t.Error("Cmp ordering wrong")
	}

	if !NewMoneyZero("INR").IsZero() {
		t.Error("NewMoneyZero should be zero")
	}
	if !a.Neg().IsNegative() {
		t.Error("Neg of positive should be negative")
	}
}

func TestMoneyPercentOf(t *testing.T) {
	spent := MustMoney("75", "INR")
	budget := MustMoney("300", "INR")
	if got := spent.PercentOf(budget); got != 25 {
		t.Errorf("75/300 = %v%%, want 25", got)
	}
	if got := spent.PercentOf(NewMoneyZero("INR")); got != 0 {
		t.Errorf("percent of zero total = %v, want 0", got)
	}
}

func TestMoneyStoreRoundTrip(t *testing.T) {
	orig := MustMoney("1234.56", "INR")
	back, err := MoneyFromStore(orig.StoreAmount(), orig.Currency)
	if err != nil {
		t.Fatalf("MoneyFromStore: %v", err)
	}
	if back.Cmp(orig) != 0 || back.Currency != orig.Currency {
		t.Errorf("round trip produced %v, want %v", back, orig)
	}

	if _, err := MoneyFromStore("not-a-number", "INR"); err == nil {
		t.Error("corrupt stored amount should error")
	}
}

func TestMoneyString(t *testing.T) {
	m := MustMoney("1234.5", "INR")
	if got := m.String(); got != "1234.50 INR" {
		t.Errorf("String() = %q, want %q", got, "1234.50 INR")
	}
}

func TestMonthlyEquivalent(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		cycle  BillingCycle
		want   string
	}{
		{"monthly passthrough", "499", CycleMonthly, "499.00"},
		{"weekly", "120", CycleWeekly, "520.00"},
		{"weekly rounds", "100", CycleWeekly, "433.33"},
		{"quarterly", "300", CycleQuarterly, "100.00"},
		{"yearly", "1200", CycleYearly, "100.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MonthlyEquivalent(MustMoney(tt.amount, "INR"), tt.cycle)
			if got.Amount.StringFixed(2) != tt.want {
				t.Errorf("MonthlyEquivalent(%s, %s) = %s, want %s", tt.amount, tt.cycle, got.Amount.StringFixed(2), tt.want)
			}
			if got.Currency != "INR" {
				t.Errorf("currency dropped: %q", got.Currency)
			}
		})
	}
}
