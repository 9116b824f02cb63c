package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when no currency is configured.
const DefaultCurrency = "INR"

// Money is an exact decimal amount in a single currency.
// Amounts are stored and compared with decimal arithmetic; float64 is used
// only for display percentages.
type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// NewMoney creates a Money value.
func NewMoney(amount decimal.Decimal, currency string) Money {
	return Money{Amount: amount, Currency: currency}
}

// NewMoneyZero creates a zero Money value in the given currency.
func NewMoneyZero(currency string) Money {
	return Money{Amount: decimal.Zero, Currency: currency}
}

// ParseMoney parses a user-entered amount like "1234.50", "1,234.50" or
// "₹1234.50" into a Money value in the given currency.
func ParseMoney(s, currency string) (Money, error) {
	cleaned := strings.TrimSpace(s)
	cleaned = strings.TrimPrefix(cleaned, "₹")
	cleaned = strings.TrimPrefix(cleaned, "$")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	if cleaned == "" {
		return Money{}, fmt.Errorf("empty amount")
	}
	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount %q", s)
	}
	return Money{Amount: amount, Currency: currency}, nil
}

// MustMoney parses an amount or panics. Test helper.
func MustMoney(s, currency string) Money {
	m, err := ParseMoney(s, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// Add returns m + other. Currencies are assumed to match within one ledger.
func (m Money) Add(other Money) Money {
	return Money{Amount: m.Amount.Add(other.Amount), Currency: m.Currency}
}

// Sub returns m - other.
func (m Money) Sub(other Money) Money {
	return Money{Amount: m.Amount.Sub(other.Amount), Currency: m.Currency}
}

// Neg returns -m.
func (m Money) Neg() Money {
	return Money{Amount: m.Amount.Neg(), Currency: m.Currency}
}

// Cmp compares amounts: -1 if m < other, 0 if equal, 1 if m > other.
func (m Money) Cmp(other Money) int {
	return m.Amount.Cmp(other.Amount)
}

// IsZero reports whether the amount is exactly zero.
func (m Money) IsZero() bool {
	return m.Amount.IsZero()
}

// IsNegative reports whether the amount is below zero.
func (m Money) IsNegative() bool {
	return m.Amount.IsNegative()
}

// IsPositive reports whether the amount is above zero.
func (m Money) IsPositive() bool {
	return m.Amount.IsPositive()
}

// PercentOf returns m as a percentage of total, for display.
// Returns 0 when total is zero.
func (m Money) PercentOf(total Money) float64 {
	if total.Amount.IsZero() {
		return 0
	}
	return m.Amount.Div(total.Amount).Mul(decimal.NewFromInt(100)).InexactFloat64()
}

// String renders the amount with two decimal places and the currency code.
func (m Money) String() string {
	return m.Amount.StringFixed(2) + " " + m.Currency
}

// MonthlyEquivalent normalizes a per-cycle amount to its monthly cost.
// Weekly cycles use 52 weeks across 12 months.
func MonthlyEquivalent(amount Money, cycle BillingCycle) Money {
	switch cycle {
	case CycleWeekly:
		return Money{
			Amount:   amount.Amount.Mul(decimal.NewFromInt(52)).Div(decimal.NewFromInt(12)),
			Currency: amount.Currency,
		}
	case CycleQuarterly:
		return Money{Amount: amount.Amount.Div(decimal.NewFromInt(3)), Currency: amount.Currency}
	case CycleYearly:
		return Money{Amount: amount.Amount.Div(decimal.NewFromInt(12)), Currency: amount.Currency}
	}
	return amount
}

// StoreAmount returns the canonical string form persisted to the database.
func (m Money) StoreAmount() string {
	return m.Amount.String()
}

// MoneyFromStore reconstructs a Money value from stored amount and currency.
func MoneyFromStore(amount, currency string) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("corrupt amount %q: %w", amount, err)
	}
	return Money{Amount: d, Currency: currency}, nil
}
