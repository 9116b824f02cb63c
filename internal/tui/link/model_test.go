package link

import (
	"strings"
	"testing"
	"time"

	"github.com/zmrishh/moneyai/internal/aa"
	"github.com/zmrishh/moneyai/internal/models"
)

func TestIsDigits(t *testing.T) {
	tests := []struct {
		s    string
		n    int
		want bool
	}{
		{"9876543210", 10, true},
		{"123456", 6, true},
		{"12345", 6, false},
		{"1234567", 6, false},
		{"12345a", 6, false},
		{"", 6, false},
		{"98765 4321", 10, false},
	}

	for _, tt := range tests {
		if got := isDigits(tt.s, tt.n); got != tt.want {
			t.Errorf("isDigits(%q, %d) = %v, want %v", tt.s, tt.n, got, tt.want)
		}
	}
}

func TestBuildFormPerStep(t *testing.T) {
	tests := []struct {
		step     aa.Step
		wantForm bool
	}{
		{aa.StepInitialization, false},
		{aa.StepLogin, true},
		{aa.StepOTPVerification, true},
		{aa.StepFIPSelection, true},
		{aa.StepAccountDiscovery, true},
		{aa.StepAccountLinking, true},
		{aa.StepLinkingOTP, true},
		{aa.StepConsentReview, false},
		{aa.StepConsentApproval, true},
		{aa.StepCompleted, false},
		{aa.StepError, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.step), func(t *testing.T) {
			m := Model{}
			m.State.Step = tt.step
			form := m.buildForm()
			if (form != nil) != tt.wantForm {
				t.Errorf("buildForm() at %s: form = %v, want form %v", tt.step, form != nil, tt.wantForm)
			}
		})
	}
}

func TestDiscoveryFormIdentifiers(t *testing.T) {
	t.Run("defaults to mobile when details are missing", func(t *testing.T) {
		m := Model{Mobile: "9876543210"}
		m.State.Step = aa.StepAccountDiscovery
		m.discoveryForm()

		if len(m.Identifiers) != 1 {
			t.Fatalf("identifiers = %d, want 1", len(m.Identifiers))
		}
		in := m.Identifiers[0]
		if in.Spec.Type != "MOBILE" || in.Spec.Category != aa.IdentifierStrong {
			t.Errorf("default spec = %s/%s, want STRONG/MOBILE", in.Spec.Category, in.Spec.Type)
		}
		if in.Value != "9876543210" {
			t.Errorf("mobile prefill = %q, want %q", in.Value, "9876543210")
		}
	})

	t.Run("follows the provider's published requirements", func(t *testing.T) {
		m := Model{Mobile: "9876543210"}
		m.State.Step = aa.StepAccountDiscovery
		m.State.FIPDetails = &aa.FIPDetails{
			FIPID: "fip-hdfc",
			Name:  "HDFC Bank",
			Identifiers: []aa.IdentifierSpec{
				{Category: aa.IdentifierStrong, Type: "MOBILE"},
				{Category: aa.IdentifierWeak, Type: "PAN"},
			},
		}
		m.discoveryForm()

		if len(m.Identifiers) != 2 {
			t.Fatalf("identifiers = %d, want 2", len(m.Identifiers))
		}
		if got := m.Identifiers[0].Value; got != "9876543210" {
			t.Errorf("mobile prefill = %q, want %q", got, "9876543210")
		}
		if got := m.Identifiers[1].Value; got != "" {
			t.Errorf("pan prefill = %q, want empty", got)
		}
	})
}

func TestAccountSelectDefaultsToAll(t *testing.T) {
	m := Model{}
	m.State.Step = aa.StepAccountLinking
	m.State.DiscoveredAccounts = []aa.DiscoveredAccount{
		{AccountReferenceNumber: "acc-1", MaskedAccountNumber: "XXXXXX1234"},
		{AccountReferenceNumber: "acc-2", MaskedAccountNumber: "XXXXXX5678"},
	}
	m.accountSelectForm()

	if len(m.AccountRefs) != 2 {
		t.Fatalf("preselected refs = %d, want 2", len(m.AccountRefs))
	}
	if m.AccountRefs[0] != "acc-1" || m.AccountRefs[1] != "acc-2" {
		t.Errorf("preselected refs = %v, want [acc-1 acc-2]", m.AccountRefs)
	}
}

func TestConnectionsFromState(t *testing.T) {
	expires := time.Date(2027, 2, 1, 0, 0, 0, 0, time.UTC)
	state := aa.JourneyState{
		ConsentID:      "consent-123",
		ConsentGranted: true,
		ConsentDetails: &aa.ConsentDetails{ExpiresAt: expires},
		SelectedAccountsForConsent: []aa.LinkedAccount{
			{
				AccountReferenceNumber: "acc-1",
				MaskedAccountNumber:    "XXXXXX1234",
				FIPID:                  "fip-hdfc",
				FIPName:                "HDFC Bank",
				AccountType:            "SAVINGS",
				FIType:                 "DEPOSIT",
			},
			{
				AccountReferenceNumber: "acc-2",
				MaskedAccountNumber:    "XXXXXX5678",
				FIPID:                  "fip-hdfc",
				FIPName:                "HDFC Bank",
				AccountType:            "CURRENT",
				FIType:                 "DEPOSIT",
			},
		},
	}

	conns := connectionsFromState(state)
	if len(conns) != 2 {
		t.Fatalf("connections = %d, want 2", len(conns))
	}

	c := conns[0]
	if c.AccountReference != "acc-1" {
		t.Errorf("AccountReference = %q, want %q", c.AccountReference, "acc-1")
	}
	if c.FIPName != "HDFC Bank" {
		t.Errorf("FIPName = %q, want %q", c.FIPName, "HDFC Bank")
	}
	if c.ConsentID != "consent-123" {
		t.Errorf("ConsentID = %q, want %q", c.ConsentID, "consent-123")
	}
	if c.ConsentStatus != models.ConsentActive {
		t.Errorf("ConsentStatus = %q, want %q", c.ConsentStatus, models.ConsentActive)
	}
	if c.ConsentExpiresAt == nil || !c.ConsentExpiresAt.Equal(expires) {
		t.Errorf("ConsentExpiresAt = %v, want %v", c.ConsentExpiresAt, expires)
	}

	state.ConsentDetails = nil
	conns = connectionsFromState(state)
	if conns[0].ConsentExpiresAt != nil {
		t.Errorf("ConsentExpiresAt without consent details = %v, want nil", conns[0].ConsentExpiresAt)
	}
}

func TestCloneOutcomeIsolation(t *testing.T) {
	state := aa.JourneyState{
		Step:           aa.StepCompleted,
		ConsentGranted: true,
		LinkedAccounts: []aa.LinkedAccount{
			{AccountReferenceNumber: "acc-1"},
		},
		SelectedAccountsForConsent: []aa.LinkedAccount{
			{AccountReferenceNumber: "acc-1"},
		},
	}

	clone := cloneOutcome(state)
	clone.LinkedAccounts[0].AccountReferenceNumber = "changed"
	clone.SelectedAccountsForConsent[0].AccountReferenceNumber = "changed"

	if state.LinkedAccounts[0].AccountReferenceNumber != "acc-1" {
		t.Error("mutating the clone changed the original LinkedAccounts")
	}
	if state.SelectedAccountsForConsent[0].AccountReferenceNumber != "acc-1" {
		t.Error("mutating the clone changed the original SelectedAccountsForConsent")
	}
}

func TestConsentMarkdown(t *testing.T) {
	details := &aa.ConsentDetails{
		Purpose:   "Personal finance management",
		Requester: "moneyAI",
		DataFrom:  time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC),
		DataTo:    time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		ExpiresAt: time.Date(2027, 2, 1, 0, 0, 0, 0, time.UTC),
		Frequency: "4 times per day",
		FITypes:   []string{"DEPOSIT"},
	}
	accounts := []aa.LinkedAccount{
		{FIPName: "HDFC Bank", MaskedAccountNumber: "XXXXXX1234", AccountType: "SAVINGS"},
	}

	md := consentMarkdown(details, accounts)

	for _, want := range []string{
		"Consent request from moneyAI",
		"01 Aug 2025 to 01 Aug 2026",
		"01 Feb 2027",
		"4 times per day",
		"DEPOSIT",
		"HDFC Bank XXXXXX1234 (SAVINGS)",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("consent markdown missing %q:\n%s", want, md)
		}
	}
}
