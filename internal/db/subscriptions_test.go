package db

import (
	"testing"
	"time"

	"github.com/zmrishh/moneyai/internal/models"
)

func TestRenewSubscriptionAdvancesBilling(t *testing.T) {
	db := testDB(t)

	s := &models.Subscription{
		Name:            "Netflix",
		Amount:          models.MustMoney("649", "INR"),
		BillingCycle:    models.CycleMonthly,
		NextBillingDate: time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC),
	}
	if err := db.CreateSubscription(s); err != nil {
		t.Fatalf("CreateSubscription failed: %v", err)
	}

	renewed, err := db.RenewSubscription(s.ID)
	if err != nil {
		t.Fatalf("RenewSubscription failed: %v", err)
	}
	want := time.Date(2026, 9, 20, 0, 0, 0, 0, time.UTC)
	if !renewed.NextBillingDate.Equal(want) {
		t.Errorf("next billing = %v, want %v", renewed.NextBillingDate, want)
	}
}

func TestChangeSubscriptionPriceKeepsHistory(t *testing.T) {
	db := testDB(t)

	s := &models.Subscription{
		Name:            "Spotify",
		Amount:          models.MustMoney("119", "INR"),
		NextBillingDate: time.Now().AddDate(0, 1, 0),
	}
	if err := db.CreateSubscription(s); err != nil {
		t.Fatal(err)
	}

	updated, err := db.ChangeSubscriptionPrice(s.ID, models.MustMoney("139", "INR"))
	if err != nil {
		t.Fatalf("ChangeSubscriptionPrice failed: %v", err)
	}
	if updated.Amount.StoreAmount() != "139" {
		t.Errorf("amount = %s, want 139", updated.Amount.StoreAmount())
	}

	if _, err := db.ChangeSubscriptionPrice(s.ID, models.MustMoney("149", "INR")); err != nil {
		t.Fatal(err)
	}

	changes, err := db.ListPriceChanges(s.ID)
	if err != nil {
		t.Fatalf("ListPriceChanges failed: %v", err)
	}
	if len(changes) != 2 {
		t.Fatalf("got %d price changes, want 2", len(changes))
	}
	// newest first
	if changes[0].OldAmount.StoreAmount() != "139" || changes[0].NewAmount.StoreAmount() != "149" {
		t.Errorf("latest change wrong: %s -> %s", changes[0].OldAmount.StoreAmount(), changes[0].NewAmount.StoreAmount())
	}

	// same price is not a change
	if _, err := db.ChangeSubscriptionPrice(s.ID, models.MustMoney("149", "INR")); err == nil {
		t.Error("unchanged price should be rejected")
	}
}

func TestCancelSubscription(t *testing.T) {
	db := testDB(t)

	s := &models.Subscription{
		Name:            "Gym",
		Amount:          models.MustMoney("1500", "INR"),
		NextBillingDate: time.Now().AddDate(0, 1, 0),
	}
	if err := db.CreateSubscription(s); err != nil {
		t.Fatal(err)
	}

	if err := db.CancelSubscription(s.ID); err != nil {
		t.Fatalf("CancelSubscription failed: %v", err)
	}

	got, err := db.GetSubscription(s.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Active || got.CancelledAt == nil {
		t.Error("subscription should be cancelled")
	}

	// cancelled subscriptions cannot renew or re-cancel
	if _, err := db.RenewSubscription(s.ID); err == nil {
		t.Error("renew on cancelled subscription should fail")
	}
	if err := db.CancelSubscription(s.ID); err == nil {
		t.Error("second cancel should fail")
	}

	active, err := db.ListSubscriptions(ListSubscriptionsOptions{ActiveOnly: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 0 {
		t.Errorf("active list should be empty, got %d", len(active))
	}
}

func TestListSubscriptionsDueSoon(t *testing.T) {
	db := testDB(t)

	subs := []models.Subscription{
		{Name: "Soon", Amount: models.MustMoney("100", "INR"), NextBillingDate: time.Now().AddDate(0, 0, 2)},
		{Name: "Later", Amount: models.MustMoney("200", "INR"), NextBillingDate: time.Now().AddDate(0, 0, 25)},
	}
	for i := range subs {
		if err := db.CreateSubscription(&subs[i]); err != nil {
			t.Fatal(err)
		}
	}

	due, err := db.ListSubscriptions(ListSubscriptionsOptions{DueWithinDays: 7})
	if err != nil {
		t.Fatal(err)
	}
	if len(due) != 1 || due[0].Name != "Soon" {
		t.Errorf("due-soon filter wrong: %d", len(due))
	}
}
