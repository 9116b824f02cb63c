package db

import (
	"strings"
	"testing"
	"time"

	"github.com/zmrishh/moneyai/internal/models"
)

func TestCreateBudgetDefaults(t *testing.T) {
	db := testDB(t)

	b := &models.Budget{
		Category: "food",
		Amount:   models.MustMoney("8000", "INR"),
	}
	if err := db.CreateBudget(b); err != nil {
		t.Fatalf("CreateBudget failed: %v", err)
	}
	if b.Period != models.PeriodMonthly {
		t.Errorf("period should default to monthly, got %s", b.Period)
	}
	if b.AlertThreshold != 80 {
		t.Errorf("alert threshold should default to 80, got %d", b.AlertThreshold)
	}
	if !strings.HasPrefix(b.ID, "bg-") {
		t.Errorf("ID %s missing bg- prefix", b.ID)
	}
}

func TestDuplicateBudgetRejected(t *testing.T) {
	db := testDB(t)

	first := &models.Budget{Category: "food", Amount: models.MustMoney("8000", "INR")}
	if err := db.CreateBudget(first); err != nil {
		t.Fatal(err)
	}

	dupe := &models.Budget{Category: "food", Amount: models.MustMoney("9000", "INR")}
	err := db.CreateBudget(dupe)
	if err == nil {
		t.Fatal("duplicate (category, period) should be rejected")
	}
	if !strings.Contains(err.Error(), "already exists") {
		t.Errorf("unexpected error: %v", err)
	}

	// same category, different period is fine
	weekly := &models.Budget{Category: "food", Amount: models.MustMoney("2000", "INR"), Period: models.PeriodWeekly}
	if err := db.CreateBudget(weekly); err != nil {
		t.Errorf("different period should be allowed: %v", err)
	}
}

func TestBudgetProgress(t *testing.T) {
	db := testDB(t)

	b := &models.Budget{Category: "food", Amount: models.MustMoney("1000", "INR")}
	if err := db.CreateBudget(b); err != nil {
		t.Fatal(err)
	}

	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	seed := []models.Transaction{
		// inside the August window
		{Amount: models.MustMoney("300", "INR"), Type: models.TransactionExpense, Category: "food", OccurredAt: time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC)},
		{Amount: models.MustMoney("450", "INR"), Type: models.TransactionExpense, Category: "food", OccurredAt: time.Date(2026, 8, 14, 0, 0, 0, 0, time.UTC)},
		// wrong category
		{Amount: models.MustMoney("999", "INR"), Type: models.TransactionExpense, Category: "transport", OccurredAt: now},
		// previous month
		{Amount: models.MustMoney("500", "INR"), Type: models.TransactionExpense, Category: "food", OccurredAt: time.Date(2026, 7, 20, 0, 0, 0, 0, time.UTC)},
		// income does not count against a budget
		{Amount: models.MustMoney("100", "INR"), Type: models.TransactionIncome, Category: "food", OccurredAt: now},
	}
	for i := range seed {
		if err := db.CreateTransaction(&seed[i]); err != nil {
			t.Fatal(err)
		}
	}

	progress, err := db.BudgetProgress(*b, now)
	if err != nil {
		t.Fatalf("BudgetProgress failed: %v", err)
	}
	if progress.Spent.StoreAmount() != "750" {
		t.Errorf("spent = %s, want 750", progress.Spent.StoreAmount())
	}
	if progress.Percent != 75.0 {
		t.Errorf("percent = %.1f, want 75.0", progress.Percent)
	}
	if progress.From != time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC) {
		t.Errorf("period start = %v", progress.From)
	}
}

func TestUpdateAndDeleteBudget(t *testing.T) {
	db := testDB(t)

	b := &models.Budget{Category: "food", Amount: models.MustMoney("8000", "INR")}
	if err := db.CreateBudget(b); err != nil {
		t.Fatal(err)
	}

	b.Amount = models.MustMoney("10000", "INR")
	b.AlertThreshold = 90
	if err := db.UpdateBudget(b); err != nil {
		t.Fatalf("UpdateBudget failed: %v", err)
	}

	got, err := db.GetBudget(b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Amount.StoreAmount() != "10000" || got.AlertThreshold != 90 {
		t.Errorf("update not applied: %s / %d", got.Amount.StoreAmount(), got.AlertThreshold)
	}

	if err := db.DeleteBudget(b.ID); err != nil {
		t.Fatalf("DeleteBudget failed: %v", err)
	}
	if _, err := db.GetBudget(b.ID); err == nil {
		t.Error("deleted budget still retrievable")
	}
}
