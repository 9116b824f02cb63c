package db

import (
	"strings"
	"testing"
	"time"

	"github.com/zmrishh/moneyai/internal/models"
)

func TestDebtPaymentLifecycle(t *testing.T) {
	db := testDB(t)

	d := &models.Debt{
		Name:         "Laptop loan",
		Kind:         models.DebtOwe,
		Counterparty: "Ankit",
		Principal:    models.MustMoney("30000", "INR"),
	}
	if err := db.CreateDebt(d); err != nil {
		t.Fatalf("CreateDebt failed: %v", err)
	}
	if d.Remaining.Cmp(d.Principal) != 0 {
		t.Errorf("remaining should start at principal: %s", d.Remaining)
	}

	// partial payment
	updated, err := db.RecordDebtPayment(d.ID, models.MustMoney("10000", "INR"), "first instalment", time.Time{})
	if err != nil {
		t.Fatalf("RecordDebtPayment failed: %v", err)
	}
	if updated.Remaining.StoreAmount() != "20000" {
		t.Errorf("remaining = %s, want 20000", updated.Remaining.StoreAmount())
	}
	if updated.Settled {
		t.Error("debt should not be settled yet")
	}

	// overpayment rejected
	_, err = db.RecordDebtPayment(d.ID, models.MustMoney("25000", "INR"), "", time.Time{})
	if err == nil {
		t.Fatal("overpayment should be rejected")
	}
	if !strings.Contains(err.Error(), "exceeds remaining") {
		t.Errorf("unexpected error: %v", err)
	}

	// exact payoff settles
	updated, err = db.RecordDebtPayment(d.ID, models.MustMoney("20000", "INR"), "done", time.Time{})
	if err != nil {
		t.Fatalf("final payment failed: %v", err)
	}
	if !updated.Settled || updated.SettledAt == nil {
		t.Error("debt should be settled at zero remaining")
	}
	if !updated.Remaining.IsZero() {
		t.Errorf("remaining = %s, want 0", updated.Remaining.StoreAmount())
	}

	// settled debts accept no more payments
	if _, err := db.RecordDebtPayment(d.ID, models.MustMoney("1", "INR"), "", time.Time{}); err == nil {
		t.Error("payment on settled debt should fail")
	}

	payments, err := db.ListDebtPayments(d.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(payments) != 2 {
		t.Errorf("got %d payments, want 2", len(payments))
	}
}

func TestListDebtsHidesSettled(t *testing.T) {
	db := testDB(t)

	owe := &models.Debt{Name: "Dinner split", Kind: models.DebtOwe, Principal: models.MustMoney("500", "INR")}
	owed := &models.Debt{Name: "Cab fare", Kind: models.DebtOwed, Principal: models.MustMoney("300", "INR")}
	for _, d := range []*models.Debt{owe, owed} {
		if err := db.CreateDebt(d); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := db.RecordDebtPayment(owe.ID, models.MustMoney("500", "INR"), "", time.Time{}); err != nil {
		t.Fatal(err)
	}

	open, err := db.ListDebts(ListDebtsOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(open) != 1 || open[0].ID != owed.ID {
		t.Errorf("settled debt should be hidden by default: %d", len(open))
	}

	all, err := db.ListDebts(ListDebtsOptions{IncludeSettled: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Errorf("include settled = %d, want 2", len(all))
	}

	owedOnly, err := db.ListDebts(ListDebtsOptions{Kind: models.DebtOwed})
	if err != nil {
		t.Fatal(err)
	}
	if len(owedOnly) != 1 || owedOnly[0].Kind != models.DebtOwed {
		t.Errorf("kind filter wrong")
	}
}

func TestCreateDebtValidation(t *testing.T) {
	db := testDB(t)

	if err := db.CreateDebt(&models.Debt{Name: "x", Kind: "borrowed", Principal: models.MustMoney("1", "INR")}); err == nil {
		t.Error("invalid kind should be rejected")
	}
	if err := db.CreateDebt(&models.Debt{Name: "x", Kind: models.DebtOwe, Principal: models.MustMoney("0", "INR")}); err == nil {
		t.Error("zero principal should be rejected")
	}
}
