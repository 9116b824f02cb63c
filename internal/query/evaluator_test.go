package query

import (
	"testing"
	"time"

	"github.com/zmrishh/moneyai/internal/models"
)

// Fixed reference time: Thursday, 2026-08-20 12:00:00 UTC
var evalNow = time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

func mustMatcher(t *testing.T, queryStr string) func(models.Transaction) bool {
	t.Helper()
	q, err := Parse(queryStr)
	if err != nil {
		t.Fatalf("parse %q: %v", queryStr, err)
	}
	if errs := q.Validate(); len(errs) > 0 {
		t.Fatalf("validate %q: %v", queryStr, errs)
	}
	matcher, err := NewEvaluator(&EvalContext{Now: evalNow}, q).ToMatcher()
	if err != nil {
		t.Fatalf("matcher %q: %v", queryStr, err)
	}
	return matcher
}

func TestNewEvalContext(t *testing.T) {
	ctx := NewEvalContext()
	if ctx.Now.IsZero() {
		t.Error("Now should not be zero")
	}
}

func TestToMatcher(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		tx      models.Transaction
		matches bool
	}{
		{
			name:  "category equals",
			query: "category = food",
			tx: models.Transaction{
				ID:       "tx-001",
				Category: "food",
			},
			matches: true,
		},
		{
			name:  "category equals is case insensitive",
			query: "category = Food",
			tx: models.Transaction{
				ID:       "tx-002",
				Category: "food",
			},
			matches: true,
		},
		{
			name:  "category not matches",
			query: "category = food",
			tx: models.Transaction{
				ID:       "tx-003",
				Category: "transport",
			},
			matches: false,
		},
		{
			name:  "type equals",
			query: "type = income",
			tx: models.Transaction{
				ID:   "tx-004",
				Type: models.TransactionIncome,
			},
			matches: true,
		},
		{
			name:  "type not equals",
			query: "type != income",
			tx: models.Transaction{
				ID:   "tx-005",
				Type: models.TransactionExpense,
			},
			matches: true,
		},
		{
			name:  "merchant contains",
			query: "merchant ~ swiggy",
			tx: models.Transaction{
				ID:       "tx-006",
				Merchant: "Swiggy Instamart",
			},
			matches: true,
		},
		{
			name:  "merchant not contains",
			query: "merchant !~ swiggy",
			tx: models.Transaction{
				ID:       "tx-007",
				Merchant: "Zomato",
			},
			matches: true,
		},
		{
			name:  "amount strictly greater",
			query: "amount > 500",
			tx: models.Transaction{
				ID:     "tx-008",
				Amount: models.MustMoney("500.01", "INR"),
			},
			matches: true,
		},
		{
			name:  "amount equal boundary excluded for greater",
			query: "amount > 500",
			tx: models.Transaction{
				ID:     "tx-009",
				Amount: models.MustMoney("500", "INR"),
			},
			matches: false,
		},
		{
			name:  "amount exact decimal equality",
			query: "amount = 100.10",
			tx: models.Transaction{
				ID:     "tx-010",
				Amount: models.MustMoney("100.10", "INR"),
			},
			matches: true,
		},
		{
			name:  "amount lte includes boundary",
			query: "amount <= 499.99",
			tx: models.Transaction{
				ID:     "tx-011",
				Amount: models.MustMoney("499.99", "INR"),
			},
			matches: true,
		},
		{
			name:  "source equals",
			query: "source = aa",
			tx: models.Transaction{
				ID:     "tx-012",
				Source: models.SourceAA,
			},
			matches: true,
		},
		{
			name:  "AND expression",
			query: "type = expense AND category = food",
			tx: models.Transaction{
				ID:       "tx-013",
				Type:     models.TransactionExpense,
				Category: "food",
			},
			matches: true,
		},
		{
			name:  "AND expression partial fail",
			query: "type = expense AND category = food",
			tx: models.Transaction{
				ID:       "tx-014",
				Type:     models.TransactionExpense,
				Category: "transport",
			},
			matches: false,
		},
		{
			name:  "OR expression",
			query: "category = food OR category = transport",
			tx: models.Transaction{
				ID:       "tx-015",
				Category: "transport",
			},
			matches: true,
		},
		{
			name:  "NOT expression",
			query: "NOT type = income",
			tx: models.Transaction{
				ID:   "tx-016",
				Type: models.TransactionExpense,
			},
			matches: true,
		},
		{
			name:  "implicit AND",
			query: "category = food amount > 100",
			tx: models.Transaction{
				ID:       "tx-017",
				Category: "food",
				Amount:   models.MustMoney("250", "INR"),
			},
			matches: true,
		},
		{
			name:  "grouped expression",
			query: "(category = food OR category = transport) AND amount > 100",
			tx: models.Transaction{
				ID:       "tx-018",
				Category: "food",
				Amount:   models.MustMoney("50", "INR"),
			},
			matches: false,
		},
		{
			name:  "bare text search matches merchant",
			query: "zomato",
			tx: models.Transaction{
				ID:       "tx-019",
				Merchant: "Zomato",
			},
			matches: true,
		},
		{
			name:  "quoted text search matches note",
			query: `"team lunch"`,
			tx: models.Transaction{
				ID:   "tx-020",
				Note: "Team lunch at office",
			},
			matches: true,
		},
		{
			name:  "text search matches category",
			query: "groceries",
			tx: models.Transaction{
				ID:       "tx-021",
				Category: "groceries",
			},
			matches: true,
		},
		{
			name:  "text search does not look at id",
			query: "beef",
			tx: models.Transaction{
				ID:       "tx-beef01",
				Merchant: "Big Basket",
				Category: "groceries",
			},
			matches: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matcher := mustMatcher(t, tt.query)
			if got := matcher(tt.tx); got != tt.matches {
				t.Errorf("matcher(%q) = %v, want %v", tt.query, got, tt.matches)
			}
		})
	}
}

func TestDateMatching(t *testing.T) {
	txOn := func(year int, month time.Month, day, hour int) models.Transaction {
		return models.Transaction{
			ID:         "tx-date",
			OccurredAt: time.Date(year, month, day, hour, 0, 0, 0, time.UTC),
		}
	}

	tests := []struct {
		name    string
		query   string
		tx      models.Transaction
		matches bool
	}{
		{"today matches same day", "date = today", txOn(2026, 8, 20, 9), true},
		{"today rejects yesterday", "date = today", txOn(2026, 8, 19, 9), false},
		{"exact date is day granular", "date = 2026-08-05", txOn(2026, 8, 5, 18), true},
		{"last 30 days includes recent", "date >= -30d", txOn(2026, 8, 1, 12), true},
		{"last 30 days excludes old", "date >= -30d", txOn(2026, 7, 1, 12), false},
		{"before excludes the day itself", "date < 2026-08-15", txOn(2026, 8, 14, 23), true},
		{"before boundary", "date < 2026-08-15", txOn(2026, 8, 15, 0), false},
		{"this month start", "date >= this_month", txOn(2026, 8, 1, 0), true},
		{"this month excludes july", "date >= this_month", txOn(2026, 7, 31, 23), false},
		{"this week starts monday", "date >= this_week", txOn(2026, 8, 17, 0), true},
		{"this week excludes sunday before", "date >= this_week", txOn(2026, 8, 16, 23), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matcher := mustMatcher(t, tt.query)
			if got := matcher(tt.tx); got != tt.matches {
				t.Errorf("matcher(%q) on %v = %v, want %v", tt.query, tt.tx.OccurredAt, got, tt.matches)
			}
		})
	}
}

func TestFunctions(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		tx      models.Transaction
		matches bool
	}{
		{
			name:    "has matches non-empty note",
			query:   "has(note)",
			tx:      models.Transaction{Note: "lunch"},
			matches: true,
		},
		{
			name:    "has rejects empty note",
			query:   "has(note)",
			tx:      models.Transaction{Note: ""},
			matches: false,
		},
		{
			name:    "has rejects zero amount",
			query:   "has(amount)",
			tx:      models.Transaction{Amount: models.NewMoneyZero("INR")},
			matches: false,
		},
		{
			name:    "is expense",
			query:   "is(expense)",
			tx:      models.Transaction{Type: models.TransactionExpense},
			matches: true,
		},
		{
			name:    "is income rejects expense",
			query:   "is(income)",
			tx:      models.Transaction{Type: models.TransactionExpense},
			matches: false,
		},
		{
			name:    "any matches second value",
			query:   "any(category, food, transport)",
			tx:      models.Transaction{Category: "transport"},
			matches: true,
		},
		{
			name:    "any is case insensitive",
			query:   "any(category, Food, Transport)",
			tx:      models.Transaction{Category: "food"},
			matches: true,
		},
		{
			name:    "any rejects unlisted value",
			query:   "any(category, food, transport)",
			tx:      models.Transaction{Category: "rent"},
			matches: false,
		},
		{
			name:    "between includes start day",
			query:   "between(2026-08-01, 2026-08-31)",
			tx:      models.Transaction{OccurredAt: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)},
			matches: true,
		},
		{
			name:    "between includes end day",
			query:   "between(2026-08-01, 2026-08-31)",
			tx:      models.Transaction{OccurredAt: time.Date(2026, 8, 31, 18, 30, 0, 0, time.UTC)},
			matches: true,
		},
		{
			name:    "between excludes day after range",
			query:   "between(2026-08-01, 2026-08-31)",
			tx:      models.Transaction{OccurredAt: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)},
			matches: false,
		},
		{
			name:    "between accepts relative dates",
			query:   "between(-7d, today)",
			tx:      models.Transaction{OccurredAt: time.Date(2026, 8, 14, 12, 0, 0, 0, time.UTC)},
			matches: true,
		},
		{
			name:    "between relative excludes older",
			query:   "between(-7d, today)",
			tx:      models.Transaction{OccurredAt: time.Date(2026, 8, 12, 12, 0, 0, 0, time.UTC)},
			matches: false,
		},
		{
			name:    "over is strict",
			query:   "over(1000)",
			tx:      models.Transaction{Amount: models.MustMoney("1000", "INR")},
			matches: false,
		},
		{
			name:    "over matches larger",
			query:   "over(1000)",
			tx:      models.Transaction{Amount: models.MustMoney("1000.01", "INR")},
			matches: true,
		},
		{
			name:    "under is strict",
			query:   "under(50)",
			tx:      models.Transaction{Amount: models.MustMoney("50", "INR")},
			matches: false,
		},
		{
			name:    "under matches smaller",
			query:   "under(50)",
			tx:      models.Transaction{Amount: models.MustMoney("49.99", "INR")},
			matches: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matcher := mustMatcher(t, tt.query)
			if got := matcher(tt.tx); got != tt.matches {
				t.Errorf("matcher(%q) = %v, want %v", tt.query, got, tt.matches)
			}
		})
	}
}

func TestEmptyQueryMatchesEverything(t *testing.T) {
	matcher := mustMatcher(t, "")
	if !matcher(models.Transaction{ID: "tx-anything"}) {
		t.Error("empty query should match all transactions")
	}
}
