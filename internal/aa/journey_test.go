package aa

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"
)

// fakeSDK is a scripted gateway: every method records its call, returns the
// injected error for that method if one is set, and otherwise serves canned
// data. Hooks run inside a method call, before it returns, to exercise
// busy-rejection and mid-flight cancellation.
type fakeSDK struct {
	mu     sync.Mutex
	calls  []string
	failOn map[string]error
	hooks  map[string]func()

	fips      []FIP
	details   *FIPDetails
	accounts  []DiscoveredAccount
	linked    []LinkedAccount
	consent   *ConsentDetails
	otpRef    string
	userID    string
	linkRef   string
	consentID string
}

func newFakeSDK() *fakeSDK {
	return &fakeSDK{
		failOn: make(map[string]error),
		hooks:  make(map[string]func()),
		fips: []FIP{
			{ID: "fip-hdfc", Name: "HDFC Bank", FITypes: []string{"DEPOSIT"}},
			{ID: "fip-sbi", Name: "State Bank of India", FITypes: []string{"DEPOSIT"}},
		},
		details: &FIPDetails{
			FIPID: "fip-hdfc",
			Name:  "HDFC Bank",
			Identifiers: []IdentifierSpec{
				{Category: IdentifierStrong, Type: "MOBILE"},
			},
		},
		accounts: []DiscoveredAccount{
			{AccountReferenceNumber: "ref-1", MaskedAccountNumber: "XXXX1234", AccountType: "SAVINGS", FIType: "DEPOSIT"},
			{AccountReferenceNumber: "ref-2", MaskedAccountNumber: "XXXX5678", AccountType: "CURRENT", FIType: "DEPOSIT"},
		},
		linked: []LinkedAccount{
			{AccountReferenceNumber: "ref-1", MaskedAccountNumber: "XXXX1234", FIPID: "fip-hdfc", FIPName: "HDFC Bank", AccountType: "SAVINGS", FIType: "DEPOSIT", LinkReferenceNumber: "link-1"},
		},
		consent: &ConsentDetails{
			ConsentHandle: "handle-1",
			Purpose:       "Personal finance management",
			DataFrom:      time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC),
			DataTo:        time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
			ExpiresAt:     time.Date(2027, 8, 1, 0, 0, 0, 0, time.UTC),
			FITypes:       []string{"DEPOSIT"},
		},
		otpRef:    "otp-ref-1",
		userID:    "user-1",
		linkRef:   "link-ref-1",
		consentID: "consent-1",
	}
}

func (f *fakeSDK) record(method string) error {
	f.mu.Lock()
	f.calls = append(f.calls, method)
	err := f.failOn[method]
	hook := f.hooks[method]
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return err
}

func (f *fakeSDK) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == method {
			n++
		}
	}
	return n
}

func (f *fakeSDK) callSequence() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeSDK) InitializeWith(ctx context.Context, cfg Config) error {
	return f.record("InitializeWith")
}

func (f *fakeSDK) Connect(ctx context.Context) error { return f.record("Connect") }

func (f *fakeSDK) Disconnect(ctx context.Context) error { return f.record("Disconnect") }

func (f *fakeSDK) LoginWithUsernameOrMobileNumber(ctx context.Context, username, mobile, handle string) (string, error) {
	if err := f.record("Login"); err != nil {
		return "", err
	}
	return f.otpRef, nil
}

func (f *fakeSDK) VerifyLoginOtp(ctx context.Context, otp, ref string) (string, error) {
	if err := f.record("VerifyLoginOtp"); err != nil {
		return "", err
	}
	return f.userID, nil
}

func (f *fakeSDK) Logout(ctx context.Context) error { return f.record("Logout") }

func (f *fakeSDK) FipsAllFIPOptions(ctx context.Context) ([]FIP, error) {
	if err := f.record("FipsAllFIPOptions"); err != nil {
		return nil, err
	}
	return f.fips, nil
}

func (f *fakeSDK) FetchFipDetails(ctx context.Context, fipID string) (*FIPDetails, error) {
	if err := f.record("FetchFipDetails"); err != nil {
		return nil, err
	}
	return f.details, nil
}

func (f *fakeSDK) DiscoverAccounts(ctx context.Context, fipID string, ids []Identifier) ([]DiscoveredAccount, error) {
	if err := f.record("DiscoverAccounts"); err != nil {
		return nil, err
	}
	return f.accounts, nil
}

func (f *fakeSDK) LinkAccounts(ctx context.Context, fipID string, accounts []DiscoveredAccount) (string, error) {
	if err := f.record("LinkAccounts"); err != nil {
		return "", err
	}
	return f.linkRef, nil
}

func (f *fakeSDK) ConfirmAccountLinking(ctx context.Context, otp, ref string) error {
	return f.record("ConfirmAccountLinking")
}

func (f *fakeSDK) FetchLinkedAccounts(ctx context.Context) ([]LinkedAccount, error) {
	if err := f.record("FetchLinkedAccounts"); err != nil {
		return nil, err
	}
	return f.linked, nil
}

func (f *fakeSDK) GetConsentRequestDetails(ctx context.Context, handle string) (*ConsentDetails, error) {
	if err := f.record("GetConsentRequestDetails"); err != nil {
		return nil, err
	}
	return f.consent, nil
}

func (f *fakeSDK) ApproveConsentRequest(ctx context.Context, details *ConsentDetails, accounts []LinkedAccount) (string, error) {
	if err := f.record("ApproveConsentRequest"); err != nil {
		return "", err
	}
	return f.consentID, nil
}

func (f *fakeSDK) DenyConsentRequest(ctx context.Context, details *ConsentDetails) error {
	return f.record("DenyConsentRequest")
}

func newTestJourney(t *testing.T, sdk SDK) *Journey {
	t.Helper()
	j, err := New(sdk, Config{GatewayURL: "https://aa.example"}, "handle-1", nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return j
}

// advanceTo drives the journey along the happy path until it reaches target.
func advanceTo(t *testing.T, j *Journey, target Step) {
	t.Helper()
	ctx := context.Background()
	steps := []struct {
		at Step
		op func() error
	}{
		{StepInitialization, func() error { return j.InitializeSDK(ctx) }},
		{StepLogin, func() error { return j.LoginWithMobile(ctx, "user", "9998887777") }},
		{StepOTPVerification, func() error { return j.VerifyLoginOTP(ctx, "123456") }},
		{StepFIPSelection, func() error {
			if err := j.FetchFIPOptions(ctx); err != nil {
				return err
			}
			if err := j.SelectFIP("fip-hdfc"); err != nil {
				return err
			}
			return j.FetchFIPDetails(ctx)
		}},
		{StepAccountDiscovery, func() error {
			return j.DiscoverAccounts(ctx, []Identifier{{Category: IdentifierStrong, Type: "MOBILE", Value: "9998887777"}})
		}},
		{StepAccountLinking, func() error {
			if err := j.SelectAccountsToLink([]string{"ref-1"}); err != nil {
				return err
			}
			return j.LinkSelectedAccounts(ctx)
		}},
		{StepLinkingOTP, func() error { return j.VerifyLinkingOTP(ctx, "654321") }},
		{StepConsentReview, func() error { return j.FetchConsentDetails(ctx) }},
		{StepConsentApproval, func() error { return j.ApproveConsentRequest(ctx) }},
	}
	for _, s := range steps {
		if j.Snapshot().Step == target {
			return
		}
		if j.Snapshot().Step != s.at {
			t.Fatalf("advanceTo(%s): unexpected step %s, want %s", target, j.Snapshot().Step, s.at)
		}
		if err := s.op(); err != nil {
			t.Fatalf("advanceTo(%s): op at %s failed: %v", target, s.at, err)
		}
	}
	if j.Snapshot().Step != target {
		t.Fatalf("advanceTo(%s): ended at %s", target, j.Snapshot().Step)
	}
}

func TestHappyPathThroughAllSteps(t *testing.T) {
	sdk := newFakeSDK()
	j := newTestJourney(t, sdk)
	ctx := context.Background()

	if err := j.InitializeSDK(ctx); err != nil {
		t.Fatalf("InitializeSDK: %v", err)
	}
	st := j.Snapshot()
	if st.Step != StepLogin || !st.Initialized || !st.Connected {
		t.Fatalf("after init: step=%s initialized=%v connected=%v", st.Step, st.Initialized, st.Connected)
	}

	if err := j.LoginWithMobile(ctx, "user", "9998887777"); err != nil {
		t.Fatalf("LoginWithMobile: %v", err)
	}
	if st = j.Snapshot(); st.Step != StepOTPVerification || st.OTPReference != "otp-ref-1" {
		t.Fatalf("after login: step=%s ref=%q", st.Step, st.OTPReference)
	}

	if err := j.VerifyLoginOTP(ctx, "123456"); err != nil {
		t.Fatalf("VerifyLoginOTP: %v", err)
	}
	if st = j.Snapshot(); st.Step != StepFIPSelection || !st.Authenticated || st.UserID != "user-1" {
		t.Fatalf("after otp: step=%s authenticated=%v user=%q", st.Step, st.Authenticated, st.UserID)
	}

	if err := j.FetchFIPOptions(ctx); err != nil {
		t.Fatalf("FetchFIPOptions: %v", err)
	}
	if st = j.Snapshot(); st.Step != StepFIPSelection || len(st.AvailableFIPs) != 2 {
		t.Fatalf("fip options should not advance: step=%s fips=%d", st.Step, len(st.AvailableFIPs))
	}

	if err := j.SelectFIP("fip-hdfc"); err != nil {
		t.Fatalf("SelectFIP: %v", err)
	}
	if err := j.FetchFIPDetails(ctx); err != nil {
		t.Fatalf("FetchFIPDetails: %v", err)
	}
	if st = j.Snapshot(); st.Step != StepAccountDiscovery || st.FIPDetails == nil {
		t.Fatalf("after fip details: step=%s details=%v", st.Step, st.FIPDetails)
	}

	ids := []Identifier{{Category: IdentifierStrong, Type: "MOBILE", Value: "9998887777"}}
	if err := j.DiscoverAccounts(ctx, ids); err != nil {
		t.Fatalf("DiscoverAccounts: %v", err)
	}
	if st = j.Snapshot(); st.Step != StepAccountLinking || len(st.DiscoveredAccounts) != 2 {
		t.Fatalf("after discovery: step=%s accounts=%d", st.Step, len(st.DiscoveredAccounts))
	}

	if err := j.SelectAccountsToLink([]string{"ref-1"}); err != nil {
		t.Fatalf("SelectAccountsToLink: %v", err)
	}
	if err := j.LinkSelectedAccounts(ctx); err != nil {
		t.Fatalf("LinkSelectedAccounts: %v", err)
	}
	if st = j.Snapshot(); st.Step != StepLinkingOTP || st.LinkReference != "link-ref-1" {
		t.Fatalf("after linking: step=%s ref=%q", st.Step, st.LinkReference)
	}

	if err := j.VerifyLinkingOTP(ctx, "654321"); err != nil {
		t.Fatalf("VerifyLinkingOTP: %v", err)
	}
	if st = j.Snapshot(); st.Step != StepConsentReview || len(st.LinkedAccounts) != 1 {
		t.Fatalf("after linking otp: step=%s linked=%d", st.Step, len(st.LinkedAccounts))
	}

	if err := j.FetchConsentDetails(ctx); err != nil {
		t.Fatalf("FetchConsentDetails: %v", err)
	}
	if st = j.Snapshot(); st.Step != StepConsentApproval || st.ConsentDetails == nil {
		t.Fatalf("after consent fetch: step=%s", st.Step)
	}

	if err := j.ApproveConsentRequest(ctx); err != nil {
		t.Fatalf("ApproveConsentRequest: %v", err)
	}
	st = j.Snapshot()
	if st.Step != StepCompleted || !st.ConsentGranted || st.ConsentID != "consent-1" {
		t.Fatalf("after approval: step=%s granted=%v id=%q", st.Step, st.ConsentGranted, st.ConsentID)
	}

	if err := j.CompleteJourney(ctx); err != nil {
		t.Fatalf("CompleteJourney: %v", err)
	}

	want := newState("handle-1")
	got := j.Snapshot()
	if !reflect.DeepEqual(got, want) {
		t.Errorf("state after complete = %+v, want initial %+v", got, want)
	}
	if n := sdk.count("Logout"); n != 1 {
		t.Errorf("Logout called %d times, want 1", n)
	}
	if n := sdk.count("Disconnect"); n != 1 {
		t.Errorf("Disconnect called %d times, want 1", n)
	}

	// logout must precede disconnect
	seq := sdk.callSequence()
	logoutIdx, disconnectIdx := -1, -1
	for i, c := range seq {
		if c == "Logout" {
			logoutIdx = i
		}
		if c == "Disconnect" {
			disconnectIdx = i
		}
	}
	if logoutIdx > disconnectIdx {
		t.Errorf("teardown order wrong: %v", seq)
	}
}

func TestInitializeFailure(t *testing.T) {
	t.Run("initialize fails", func(t *testing.T) {
		sdk := newFakeSDK()
		sdk.failOn["InitializeWith"] = errors.New("bad cert")
		j := newTestJourney(t, sdk)

		err := j.InitializeSDK(context.Background())
		if err == nil {
			t.Fatal("expected error")
		}
		st := j.Snapshot()
		if st.Step != StepError {
			t.Errorf("step = %s, want ERROR", st.Step)
		}
		if st.Error != "bad cert" {
			t.Errorf("error = %q, want %q", st.Error, "bad cert")
		}
		if st.Initialized {
			t.Error("initialized should be false when InitializeWith fails")
		}
	})

	t.Run("connect fails after successful init", func(t *testing.T) {
		sdk := newFakeSDK()
		sdk.failOn["Connect"] = errors.New("gateway unreachable")
		j := newTestJourney(t, sdk)

		if err := j.InitializeSDK(context.Background()); err == nil {
			t.Fatal("expected error")
		}
		st := j.Snapshot()
		if st.Step != StepError {
			t.Errorf("step = %s, want ERROR", st.Step)
		}
		// partial state is kept for diagnostics, not rolled back
		if !st.Initialized {
			t.Error("initialized flag should survive a connect failure")
		}
		if st.Connected {
			t.Error("connected must stay false")
		}
	})
}

func TestRecoverableFailuresHoldStep(t *testing.T) {
	tests := []struct {
		name   string
		at     Step
		method string
		op     func(j *Journey) error
	}{
		{"login", StepLogin, "Login", func(j *Journey) error {
			return j.LoginWithMobile(context.Background(), "user", "9998887777")
		}},
		{"login otp", StepOTPVerification, "VerifyLoginOtp", func(j *Journey) error {
			return j.VerifyLoginOTP(context.Background(), "000000")
		}},
		{"discovery", StepAccountDiscovery, "DiscoverAccounts", func(j *Journey) error {
			return j.DiscoverAccounts(context.Background(), []Identifier{{Category: IdentifierStrong, Type: "MOBILE", Value: "1"}})
		}},
		{"linking", StepAccountLinking, "LinkAccounts", func(j *Journey) error {
			if err := j.SelectAccountsToLink([]string{"ref-1"}); err != nil {
				return err
			}
			return j.LinkSelectedAccounts(context.Background())
		}},
		{"linking otp", StepLinkingOTP, "ConfirmAccountLinking", func(j *Journey) error {
			return j.VerifyLinkingOTP(context.Background(), "000000")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sdk := newFakeSDK()
			j := newTestJourney(t, sdk)
			advanceTo(t, j, tt.at)

			sdk.mu.Lock()
			sdk.failOn[tt.method] = errors.New("boom")
			sdk.mu.Unlock()

			if err := tt.op(j); err == nil {
				t.Fatal("expected error")
			}
			st := j.Snapshot()
			if st.Step != tt.at {
				t.Errorf("step = %s, want unchanged %s", st.Step, tt.at)
			}
			if st.Error != "boom" {
				t.Errorf("error = %q, want %q", st.Error, "boom")
			}
			if st.Loading {
				t.Error("loading must be false after settle")
			}
		})
	}
}

func TestFatalFailuresReachError(t *testing.T) {
	tests := []struct {
		name   string
		at     Step
		method string
		op     func(j *Journey) error
	}{
		{"fip options", StepFIPSelection, "FipsAllFIPOptions", func(j *Journey) error {
			return j.FetchFIPOptions(context.Background())
		}},
		{"fip details", StepFIPSelection, "FetchFipDetails", func(j *Journey) error {
			if err := j.FetchFIPOptions(context.Background()); err != nil {
				return err
			}
			if err := j.SelectFIP("fip-hdfc"); err != nil {
				return err
			}
			return j.FetchFIPDetails(context.Background())
		}},
		{"consent details", StepConsentReview, "GetConsentRequestDetails", func(j *Journey) error {
			return j.FetchConsentDetails(context.Background())
		}},
		{"approval", StepConsentApproval, "ApproveConsentRequest", func(j *Journey) error {
			return j.ApproveConsentRequest(context.Background())
		}},
		{"denial", StepConsentApproval, "DenyConsentRequest", func(j *Journey) error {
			return j.DenyConsentRequest(context.Background())
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sdk := newFakeSDK()
			j := newTestJourney(t, sdk)
			advanceTo(t, j, tt.at)

			sdk.mu.Lock()
			sdk.failOn[tt.method] = errors.New("structural failure")
			sdk.mu.Unlock()

			if err := tt.op(j); err == nil {
				t.Fatal("expected error")
			}
			st := j.Snapshot()
			if st.Step != StepError {
				t.Errorf("step = %s, want ERROR", st.Step)
			}
			if st.Error != "structural failure" {
				t.Errorf("error = %q, want verbatim message", st.Error)
			}
		})
	}
}

func TestOutOfSequenceRejectedWithoutMutation(t *testing.T) {
	sdk := newFakeSDK()
	j := newTestJourney(t, sdk)
	advanceTo(t, j, StepLogin)

	before := j.Snapshot()
	callsBefore := len(sdk.callSequence())

	ops := []struct {
		name string
		op   func() error
	}{
		{"verify otp at login", func() error { return j.VerifyLoginOTP(context.Background(), "123456") }},
		{"discover at login", func() error {
			return j.DiscoverAccounts(context.Background(), []Identifier{{Category: IdentifierStrong, Type: "MOBILE", Value: "1"}})
		}},
		{"approve at login", func() error { return j.ApproveConsentRequest(context.Background()) }},
		{"complete at login", func() error { return j.CompleteJourney(context.Background()) }},
		{"initialize again", func() error { return j.InitializeSDK(context.Background()) }},
		{"select accounts at login", func() error { return j.SelectAccountsToLink([]string{"ref-1"}) }},
	}

	for _, tt := range ops {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.op()
			var pe *PreconditionError
			if !errors.As(err, &pe) {
				t.Fatalf("error = %v, want *PreconditionError", err)
			}
			if got := j.Snapshot(); !reflect.DeepEqual(got, before) {
				t.Errorf("state mutated by rejected op: %+v", got)
			}
		})
	}

	if n := len(sdk.callSequence()); n != callsBefore {
		t.Errorf("rejected ops contacted the SDK: %d calls, want %d", n, callsBefore)
	}
}

func TestOTPExpiredStaysOnVerification(t *testing.T) {
	sdk := newFakeSDK()
	j := newTestJourney(t, sdk)
	advanceTo(t, j, StepOTPVerification)

	sdk.mu.Lock()
	sdk.failOn["VerifyLoginOtp"] = errors.New("OTP expired")
	sdk.mu.Unlock()

	if err := j.VerifyLoginOTP(context.Background(), "000000"); err == nil {
		t.Fatal("expected error")
	}
	st := j.Snapshot()
	if st.Step != StepOTPVerification {
		t.Errorf("step = %s, want OTP_VERIFICATION", st.Step)
	}
	if st.Error != "OTP expired" {
		t.Errorf("error = %q, want %q", st.Error, "OTP expired")
	}

	// retry clears the stale error before the new attempt
	sdk.mu.Lock()
	delete(sdk.failOn, "VerifyLoginOtp")
	sdk.mu.Unlock()

	if err := j.VerifyLoginOTP(context.Background(), "123456"); err != nil {
		t.Fatalf("retry: %v", err)
	}
	st = j.Snapshot()
	if st.Error != "" {
		t.Errorf("error not cleared on retry: %q", st.Error)
	}
	if st.Step != StepFIPSelection {
		t.Errorf("step = %s, want FIP_SELECTION", st.Step)
	}
}

func TestSelectAccountsToLinkFiltersUnknownRefs(t *testing.T) {
	sdk := newFakeSDK()
	j := newTestJourney(t, sdk)
	advanceTo(t, j, StepAccountLinking)

	if err := j.SelectAccountsToLink([]string{"ref-2", "ref-bogus", "ref-1"}); err != nil {
		t.Fatalf("SelectAccountsToLink: %v", err)
	}
	st := j.Snapshot()
	if len(st.SelectedAccountsToLink) != 2 {
		t.Fatalf("selected %d accounts, want 2 (unknown ref dropped)", len(st.SelectedAccountsToLink))
	}
	for _, acc := range st.SelectedAccountsToLink {
		if acc.AccountReferenceNumber == "ref-bogus" {
			t.Error("unknown reference survived the filter")
		}
	}
}

func TestSelectFIPRejectsUnknown(t *testing.T) {
	sdk := newFakeSDK()
	j := newTestJourney(t, sdk)
	advanceTo(t, j, StepFIPSelection)
	if err := j.FetchFIPOptions(context.Background()); err != nil {
		t.Fatal(err)
	}

	err := j.SelectFIP("fip-unknown")
	var pe *PreconditionError
	if !errors.As(err, &pe) {
		t.Fatalf("error = %v, want *PreconditionError", err)
	}
	if j.Snapshot().SelectedFIP != nil {
		t.Error("rejected selection must not stick")
	}
}

func TestCancelResetsAndTearsDownOnce(t *testing.T) {
	sdk := newFakeSDK()
	j := newTestJourney(t, sdk)
	advanceTo(t, j, StepAccountDiscovery)

	if err := j.CancelJourney(context.Background()); err != nil {
		t.Fatalf("CancelJourney: %v", err)
	}

	want := newState("handle-1")
	if got := j.Snapshot(); !reflect.DeepEqual(got, want) {
		t.Errorf("state after cancel = %+v, want initial", got)
	}
	if n := sdk.count("Logout"); n != 1 {
		t.Errorf("Logout called %d times, want 1", n)
	}
	if n := sdk.count("Disconnect"); n != 1 {
		t.Errorf("Disconnect called %d times, want 1", n)
	}

	// second cancel is a no-op, teardown stays exactly-once
	if err := j.CancelJourney(context.Background()); err != nil {
		t.Fatalf("second CancelJourney: %v", err)
	}
	if n := sdk.count("Logout"); n != 1 {
		t.Errorf("Logout called %d times after double cancel, want 1", n)
	}
}

func TestCancelDismissesErrorState(t *testing.T) {
	sdk := newFakeSDK()
	sdk.failOn["InitializeWith"] = errors.New("bad cert")
	j := newTestJourney(t, sdk)

	if err := j.InitializeSDK(context.Background()); err == nil {
		t.Fatal("expected init failure")
	}
	if j.Snapshot().Step != StepError {
		t.Fatalf("step = %s, want ERROR", j.Snapshot().Step)
	}

	if err := j.CancelJourney(context.Background()); err != nil {
		t.Fatalf("cancel at ERROR: %v", err)
	}
	want := newState("handle-1")
	if got := j.Snapshot(); !reflect.DeepEqual(got, want) {
		t.Errorf("state after dismissal = %+v, want initial", got)
	}
	if sdk.count("Logout") != 1 || sdk.count("Disconnect") != 1 {
		t.Error("teardown must run when dismissing the error state")
	}
}

func TestCancelBeforeSessionStartSkipsSDK(t *testing.T) {
	sdk := newFakeSDK()
	j := newTestJourney(t, sdk)

	if err := j.CancelJourney(context.Background()); err != nil {
		t.Fatalf("CancelJourney: %v", err)
	}
	if n := len(sdk.callSequence()); n != 0 {
		t.Errorf("cancel before any session made %d SDK calls, want 0", n)
	}
	if got := j.Snapshot(); got.Step != StepInitialization {
		t.Errorf("step = %s, want INITIALIZATION", got.Step)
	}
}

func TestBusyRejectionDuringFlight(t *testing.T) {
	sdk := newFakeSDK()
	j := newTestJourney(t, sdk)
	advanceTo(t, j, StepLogin)

	var busyErr error
	sdk.mu.Lock()
	sdk.hooks["Login"] = func() {
		// runs while LoginWithMobile is in flight and the journey is loading
		busyErr = j.VerifyLoginOTP(context.Background(), "123456")
	}
	sdk.mu.Unlock()

	if err := j.LoginWithMobile(context.Background(), "user", "9998887777"); err != nil {
		t.Fatalf("LoginWithMobile: %v", err)
	}
	if !errors.Is(busyErr, ErrBusy) {
		t.Errorf("concurrent op returned %v, want ErrBusy", busyErr)
	}
}

func TestCancelDuringFlightTearsDownAfterSettle(t *testing.T) {
	sdk := newFakeSDK()
	j := newTestJourney(t, sdk)
	advanceTo(t, j, StepAccountDiscovery)

	sdk.mu.Lock()
	sdk.hooks["DiscoverAccounts"] = func() {
		if err := j.CancelJourney(context.Background()); err != nil {
			t.Errorf("CancelJourney during flight: %v", err)
		}
		// the in-flight call has not settled yet; teardown must not have run
		if n := sdk.count("Logout"); n != 0 {
			t.Errorf("teardown ran before the in-flight call settled")
		}
	}
	sdk.mu.Unlock()

	ids := []Identifier{{Category: IdentifierStrong, Type: "MOBILE", Value: "9998887777"}}
	err := j.DiscoverAccounts(context.Background(), ids)
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("in-flight op returned %v, want ErrCancelled", err)
	}

	want := newState("handle-1")
	if got := j.Snapshot(); !reflect.DeepEqual(got, want) {
		t.Errorf("state after cooperative cancel = %+v, want initial", got)
	}
	if sdk.count("Logout") != 1 || sdk.count("Disconnect") != 1 {
		t.Error("teardown must run exactly once after the in-flight call settles")
	}
}

func TestLinkingRetryDoesNotReconfirmOTP(t *testing.T) {
	sdk := newFakeSDK()
	j := newTestJourney(t, sdk)
	advanceTo(t, j, StepLinkingOTP)

	sdk.mu.Lock()
	sdk.failOn["FetchLinkedAccounts"] = errors.New("temporarily unavailable")
	sdk.mu.Unlock()

	if err := j.VerifyLinkingOTP(context.Background(), "654321"); err == nil {
		t.Fatal("expected fetch failure")
	}
	st := j.Snapshot()
	if st.Step != StepLinkingOTP {
		t.Fatalf("step = %s, want LINKING_OTP", st.Step)
	}
	if n := sdk.count("ConfirmAccountLinking"); n != 1 {
		t.Fatalf("ConfirmAccountLinking called %d times, want 1", n)
	}

	sdk.mu.Lock()
	delete(sdk.failOn, "FetchLinkedAccounts")
	sdk.mu.Unlock()

	if err := j.VerifyLinkingOTP(context.Background(), "654321"); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if n := sdk.count("ConfirmAccountLinking"); n != 1 {
		t.Errorf("retry re-confirmed the consumed OTP: %d calls, want 1", n)
	}
	if st = j.Snapshot(); st.Step != StepConsentReview || len(st.LinkedAccounts) != 1 {
		t.Errorf("after retry: step=%s linked=%d", st.Step, len(st.LinkedAccounts))
	}
}

func TestDenyCompletesWithoutGrant(t *testing.T) {
	sdk := newFakeSDK()
	j := newTestJourney(t, sdk)
	advanceTo(t, j, StepConsentApproval)

	if err := j.DenyConsentRequest(context.Background()); err != nil {
		t.Fatalf("DenyConsentRequest: %v", err)
	}
	st := j.Snapshot()
	if st.Step != StepCompleted {
		t.Errorf("step = %s, want COMPLETED", st.Step)
	}
	if st.ConsentGranted {
		t.Error("denial must not grant consent")
	}
	if st.ConsentID != "" {
		t.Errorf("consent id = %q, want empty on denial", st.ConsentID)
	}
}

func TestRestartAfterTeardown(t *testing.T) {
	sdk := newFakeSDK()
	j := newTestJourney(t, sdk)
	advanceTo(t, j, StepLogin)

	if err := j.CancelJourney(context.Background()); err != nil {
		t.Fatal(err)
	}

	// explicit restart: a fresh InitializeSDK on the reset journey
	if err := j.InitializeSDK(context.Background()); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if got := j.Snapshot().Step; got != StepLogin {
		t.Errorf("step after restart = %s, want LOGIN", got)
	}
	if err := j.CancelJourney(context.Background()); err != nil {
		t.Fatal(err)
	}
	if n := sdk.count("Logout"); n != 2 {
		t.Errorf("each session tears down once: Logout called %d times, want 2", n)
	}
}

func TestSnapshotIsImmutableCopy(t *testing.T) {
	sdk := newFakeSDK()
	j := newTestJourney(t, sdk)
	advanceTo(t, j, StepAccountLinking)

	snap := j.Snapshot()
	snap.DiscoveredAccounts[0].AccountReferenceNumber = "tampered"
	snap.Step = StepError

	fresh := j.Snapshot()
	if fresh.Step != StepAccountLinking {
		t.Errorf("journey step changed via snapshot: %s", fresh.Step)
	}
	if fresh.DiscoveredAccounts[0].AccountReferenceNumber != "ref-1" {
		t.Error("journey data changed via snapshot slice")
	}
}

func TestEmptySelectionCannotLink(t *testing.T) {
	sdk := newFakeSDK()
	j := newTestJourney(t, sdk)
	advanceTo(t, j, StepAccountLinking)

	err := j.LinkSelectedAccounts(context.Background())
	var pe *PreconditionError
	if !errors.As(err, &pe) {
		t.Fatalf("error = %v, want *PreconditionError", err)
	}
	if n := sdk.count("LinkAccounts"); n != 0 {
		t.Errorf("LinkAccounts called %d times on empty selection, want 0", n)
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := New(nil, Config{}, "handle", nil); err == nil {
		t.Error("nil sdk must be rejected")
	}
	if _, err := New(newFakeSDK(), Config{}, "", nil); err == nil {
		t.Error("empty consent handle must be rejected")
	}
}
