// Package aa implements the Account Aggregator linking journey: a ten-step
// state machine that walks a user from SDK initialization through consent
// approval, orchestrating an external AA gateway SDK with asynchronous,
// fallible steps and mandatory logout/disconnect teardown on every exit path.
package aa

import "time"

// Step represents the journey's current position.
type Step string

const (
	StepInitialization   Step = "INITIALIZATION"
	StepLogin            Step = "LOGIN"
	StepOTPVerification  Step = "OTP_VERIFICATION"
	StepFIPSelection     Step = "FIP_SELECTION"
	StepAccountDiscovery Step = "ACCOUNT_DISCOVERY"
	StepAccountLinking   Step = "ACCOUNT_LINKING"
	StepLinkingOTP       Step = "LINKING_OTP"
	StepConsentReview    Step = "CONSENT_REVIEW"
	StepConsentApproval  Step = "CONSENT_APPROVAL"
	StepCompleted        Step = "COMPLETED"
	StepError            Step = "ERROR"
)

// successTransitions maps each step to the step reached when its advancing
// operation succeeds. Terminal steps have no entry.
var successTransitions = map[Step]Step{
	StepInitialization:   StepLogin,
	StepLogin:            StepOTPVerification,
	StepOTPVerification:  StepFIPSelection,
	StepFIPSelection:     StepAccountDiscovery,
	StepAccountDiscovery: StepAccountLinking,
	StepAccountLinking:   StepLinkingOTP,
	StepLinkingOTP:       StepConsentReview,
	StepConsentReview:    StepConsentApproval,
	StepConsentApproval:  StepCompleted,
}

// fatalSteps marks the steps whose SDK failure is structural: no further
// progress is possible, so the journey moves to ERROR. Failures on the
// remaining steps are user-correctable and keep the journey in place.
var fatalSteps = map[Step]bool{
	StepInitialization:  true,
	StepFIPSelection:    true,
	StepConsentReview:   true,
	StepConsentApproval: true,
}

// IsTerminal reports whether the step accepts no further transitions
// (teardown only).
func (s Step) IsTerminal() bool {
	return s == StepCompleted || s == StepError
}

// IsValidStep checks if a step name is valid.
func IsValidStep(s Step) bool {
	if s == StepCompleted || s == StepError {
		return true
	}
	_, ok := successTransitions[s]
	return ok
}

// OrderedSteps returns the happy-path steps in order, for progress displays.
func OrderedSteps() []Step {
	return []Step{
		StepInitialization,
		StepLogin,
		StepOTPVerification,
		StepFIPSelection,
		StepAccountDiscovery,
		StepAccountLinking,
		StepLinkingOTP,
		StepConsentReview,
		StepConsentApproval,
		StepCompleted,
	}
}

// IdentifierCategory classifies the data points a FIP needs to discover a
// user's accounts. STRONG identifiers (e.g. mobile number) are mandatory;
// WEAK and ANCILLARY narrow the search.
type IdentifierCategory string

const (
	IdentifierStrong    IdentifierCategory = "STRONG"
	IdentifierWeak      IdentifierCategory = "WEAK"
	IdentifierAncillary IdentifierCategory = "ANCILLARY"
)

// FIP describes a Financial Information Provider (a bank or similar
// institution holding the user's data).
type FIP struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	FITypes []string `json:"fi_types,omitempty"` // e.g. DEPOSIT, RECURRING_DEPOSIT
}

// IdentifierSpec is one identifier requirement published by a FIP.
type IdentifierSpec struct {
	Category IdentifierCategory `json:"category"`
	Type     string             `json:"type"` // MOBILE, PAN, ACCNO, ...
}

// FIPDetails carries a provider's identifier requirements, fetched after
// the user selects a FIP.
type FIPDetails struct {
	FIPID       string           `json:"fip_id"`
	Name        string           `json:"name"`
	Identifiers []IdentifierSpec `json:"identifiers"`
}

// Identifier is a user-supplied value satisfying one IdentifierSpec.
type Identifier struct {
	Category IdentifierCategory `json:"category"`
	Type     string             `json:"type"`
	Value    string             `json:"value"`
}

// DiscoveredAccount is an account a FIP reported for the supplied
// identifiers. AccountReferenceNumber is unique within one discovery result.
type DiscoveredAccount struct {
	AccountReferenceNumber string `json:"account_reference_number"`
	MaskedAccountNumber    string `json:"masked_account_number"`
	AccountType            string `json:"account_type"` // SAVINGS, CURRENT, ...
	FIType                 string `json:"fi_type"`
}

// LinkedAccount is an account confirmed linked after the linking OTP.
type LinkedAccount struct {
	AccountReferenceNumber string `json:"account_reference_number"`
	MaskedAccountNumber    string `json:"masked_account_number"`
	FIPID                  string `json:"fip_id"`
	FIPName                string `json:"fip_name"`
	AccountType            string `json:"account_type"`
	FIType                 string `json:"fi_type"`
	LinkReferenceNumber    string `json:"link_reference_number"`
}

// ConsentDetails holds the consent terms fetched for review.
type ConsentDetails struct {
	ConsentHandle string    `json:"consent_handle"`
	Purpose       string    `json:"purpose"`
	DataFrom      time.Time `json:"data_from"`
	DataTo        time.Time `json:"data_to"`
	ExpiresAt     time.Time `json:"expires_at"`
	Frequency     string    `json:"frequency,omitempty"` // e.g. "4 times per day"
	FetchType     string    `json:"fetch_type,omitempty"`
	Mode          string    `json:"mode,omitempty"`
	DataLife      string    `json:"data_life,omitempty"`
	FITypes       []string  `json:"fi_types,omitempty"`
	Requester     string    `json:"requester,omitempty"`
}

// JourneyState is the full journey snapshot exposed to callers. It is a
// value copy; mutating it never affects the journey.
type JourneyState struct {
	Step            Step   `json:"step"`
	ConsentHandleID string `json:"consent_handle_id"`

	Initialized   bool   `json:"initialized"`
	Connected     bool   `json:"connected"`
	Authenticated bool   `json:"authenticated"`
	UserID        string `json:"user_id,omitempty"`

	OTPReference  string `json:"otp_reference,omitempty"`
	LinkReference string `json:"link_reference,omitempty"`

	AvailableFIPs []FIP       `json:"available_fips,omitempty"`
	SelectedFIP   *FIP        `json:"selected_fip,omitempty"`
	FIPDetails    *FIPDetails `json:"fip_details,omitempty"`

	DiscoveredAccounts         []DiscoveredAccount `json:"discovered_accounts,omitempty"`
	SelectedAccountsToLink     []DiscoveredAccount `json:"selected_accounts_to_link,omitempty"`
	LinkedAccounts             []LinkedAccount     `json:"linked_accounts,omitempty"`
	SelectedAccountsForConsent []LinkedAccount     `json:"selected_accounts_for_consent,omitempty"`

	ConsentDetails *ConsentDetails `json:"consent_details,omitempty"`
	ConsentID      string          `json:"consent_id,omitempty"`
	ConsentGranted bool            `json:"consent_granted"`

	Loading bool   `json:"loading"`
	Error   string `json:"error,omitempty"`
}

func newState(consentHandleID string) JourneyState {
	return JourneyState{
		Step:            StepInitialization,
		ConsentHandleID: consentHandleID,
	}
}
