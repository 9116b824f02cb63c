package aa

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// Journey is the state store for one AA linking session: the single source of
// truth for journey progress and the only component that calls the SDK or
// mutates journey state. One Journey per linking session; instances are
// independent, so concurrent journeys never interfere.
//
// Concurrency contract: a mutex-guarded single writer. The lock is never held
// across SDK calls; instead the Loading flag marks an operation slot, and any
// transition attempted while it is set is rejected with ErrBusy. CancelJourney
// is the one operation accepted mid-flight: it flags the cancellation, and the
// in-flight operation performs teardown once its SDK call settles.
type Journey struct {
	mu     sync.Mutex
	sdk    SDK
	cfg    Config
	logger *slog.Logger

	state JourneyState

	// active is true from the first InitializeSDK attempt until teardown.
	// It scopes the at-most-once logout/disconnect guarantee to one session.
	active bool

	// linkConfirmed remembers that ConfirmAccountLinking succeeded, so a
	// retry after a failed linked-accounts fetch never re-submits the OTP.
	linkConfirmed bool

	cancelRequested bool
}

// New creates a journey for the given consent handle. The handle correlates
// the data-sharing request across the whole journey and is immutable for the
// session. A nil logger discards teardown diagnostics.
func New(sdk SDK, cfg Config, consentHandleID string, logger *slog.Logger) (*Journey, error) {
	if sdk == nil {
		return nil, fmt.Errorf("sdk is required")
	}
	if consentHandleID == "" {
		return nil, fmt.Errorf("consent handle id is required")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Journey{
		sdk:    sdk,
		cfg:    cfg,
		logger: logger,
		state:  newState(consentHandleID),
	}, nil
}

// Snapshot returns a value copy of the journey state. Mutating the copy has
// no effect on the journey.
func (j *Journey) Snapshot() JourneyState {
	j.mu.Lock()
	defer j.mu.Unlock()
	return cloneState(j.state)
}

// InitializeSDK initializes the gateway SDK and connects. Both calls must
// succeed to reach LOGIN; a failure of either is structural. When connect
// fails after a successful init, the Initialized flag is kept for diagnostics
// rather than rolled back.
func (j *Journey) InitializeSDK(ctx context.Context) error {
	if err := j.beginOp("initialize", StepInitialization, nil); err != nil {
		return err
	}

	j.mu.Lock()
	j.active = true
	j.mu.Unlock()

	if err := j.sdk.InitializeWith(ctx, j.cfg); err != nil {
		return j.settle(ctx, err, nil)
	}

	j.mu.Lock()
	j.state.Initialized = true
	if j.cancelRequested {
		j.cancelRequested = false
		j.teardownLocked(ctx)
		j.mu.Unlock()
		return ErrCancelled
	}
	j.mu.Unlock()

	if err := j.sdk.Connect(ctx); err != nil {
		return j.settle(ctx, err, nil)
	}

	return j.settle(ctx, nil, func() {
		j.state.Connected = true
	})
}

// LoginWithMobile starts authentication. The OTP reference from a successful
// call is consumed by VerifyLoginOTP. Failures are user-correctable.
func (j *Journey) LoginWithMobile(ctx context.Context, username, mobileNumber string) error {
	if err := j.beginOp("login", StepLogin, func(s *JourneyState) string {
		if username == "" && mobileNumber == "" {
			return "username or mobile number is required"
		}
		return ""
	}); err != nil {
		return err
	}

	ref, err := j.sdk.LoginWithUsernameOrMobileNumber(ctx, username, mobileNumber, j.handleID())
	if err != nil {
		return j.settle(ctx, err, nil)
	}
	return j.settle(ctx, nil, func() {
		j.state.OTPReference = ref
	})
}

// VerifyLoginOTP verifies the login OTP. Failures (wrong or expired OTP) are
// user-correctable; the journey stays on OTP_VERIFICATION for a fresh attempt.
func (j *Journey) VerifyLoginOTP(ctx context.Context, otp string) error {
	if err := j.beginOp("verify login otp", StepOTPVerification, func(s *JourneyState) string {
		if s.OTPReference == "" {
			return "no OTP reference from a prior login"
		}
		return ""
	}); err != nil {
		return err
	}

	userID, err := j.sdk.VerifyLoginOtp(ctx, otp, j.ref())
	if err != nil {
		return j.settle(ctx, err, nil)
	}
	return j.settle(ctx, nil, func() {
		j.state.Authenticated = true
		j.state.UserID = userID
	})
}

// FetchFIPOptions loads the list of financial institutions available for
// linking. It does not advance the journey; the user still has to pick one.
// A failure here is structural: without the list the path is dead.
func (j *Journey) FetchFIPOptions(ctx context.Context) error {
	if err := j.beginOp("fetch fip options", StepFIPSelection, nil); err != nil {
		return err
	}

	fips, err := j.sdk.FipsAllFIPOptions(ctx)
	if err != nil {
		return j.settle(ctx, err, nil)
	}
	return j.settleInPlace(ctx, func() {
		j.state.AvailableFIPs = fips
	})
}

// SelectFIP records the user's institution choice. Purely local: no SDK call,
// resolved synchronously. The choice must be one of the fetched options.
func (j *Journey) SelectFIP(fipID string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state.Loading {
		return ErrBusy
	}
	if j.state.Step != StepFIPSelection {
		return &PreconditionError{Op: "select fip", Step: j.state.Step, Want: StepFIPSelection}
	}
	for i := range j.state.AvailableFIPs {
		if j.state.AvailableFIPs[i].ID == fipID {
			fip := j.state.AvailableFIPs[i]
			j.state.SelectedFIP = &fip
			return nil
		}
	}
	return &PreconditionError{
		Op:     "select fip",
		Step:   j.state.Step,
		Want:   StepFIPSelection,
		Reason: fmt.Sprintf("fip %q is not among the available options", fipID),
	}
}

// FetchFIPDetails loads the selected institution's identifier requirements
// and advances to account discovery. Structural on failure.
func (j *Journey) FetchFIPDetails(ctx context.Context) error {
	if err := j.beginOp("fetch fip details", StepFIPSelection, func(s *JourneyState) string {
		if s.SelectedFIP == nil {
			return "no fip selected"
		}
		return ""
	}); err != nil {
		return err
	}

	details, err := j.sdk.FetchFipDetails(ctx, j.selectedFIPID())
	if err != nil {
		return j.settle(ctx, err, nil)
	}
	return j.settle(ctx, nil, func() {
		j.state.FIPDetails = details
	})
}

// DiscoverAccounts asks the selected FIP for accounts matching the supplied
// identifiers. Failures (e.g. no accounts found for the mobile number) are
// user-correctable.
func (j *Journey) DiscoverAccounts(ctx context.Context, identifiers []Identifier) error {
	if err := j.beginOp("discover accounts", StepAccountDiscovery, func(s *JourneyState) string {
		if len(identifiers) == 0 {
			return "at least one identifier is required"
		}
		return ""
	}); err != nil {
		return err
	}

	accounts, err := j.sdk.DiscoverAccounts(ctx, j.selectedFIPID(), identifiers)
	if err != nil {
		return j.settle(ctx, err, nil)
	}
	return j.settle(ctx, nil, func() {
		j.state.DiscoveredAccounts = accounts
		j.state.SelectedAccountsToLink = nil
	})
}

// SelectAccountsToLink records which discovered accounts to link, by account
// reference number. Purely local. References that were never discovered are
// silently dropped, so the selection is always a subset of the discovery
// result.
func (j *Journey) SelectAccountsToLink(refs []string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state.Loading {
		return ErrBusy
	}
	if j.state.Step != StepAccountLinking {
		return &PreconditionError{Op: "select accounts", Step: j.state.Step, Want: StepAccountLinking}
	}
	byRef := make(map[string]DiscoveredAccount, len(j.state.DiscoveredAccounts))
	for _, acc := range j.state.DiscoveredAccounts {
		byRef[acc.AccountReferenceNumber] = acc
	}
	var selected []DiscoveredAccount
	for _, ref := range refs {
		if acc, ok := byRef[ref]; ok {
			selected = append(selected, acc)
		}
	}
	j.state.SelectedAccountsToLink = selected
	return nil
}

// LinkSelectedAccounts submits the selected accounts for linking and stores
// the link reference for the linking OTP. User-correctable on failure.
func (j *Journey) LinkSelectedAccounts(ctx context.Context) error {
	if err := j.beginOp("link accounts", StepAccountLinking, func(s *JourneyState) string {
		if len(s.SelectedAccountsToLink) == 0 {
			return "no accounts selected to link"
		}
		return ""
	}); err != nil {
		return err
	}

	j.mu.Lock()
	selection := append([]DiscoveredAccount(nil), j.state.SelectedAccountsToLink...)
	j.mu.Unlock()

	ref, err := j.sdk.LinkAccounts(ctx, j.selectedFIPID(), selection)
	if err != nil {
		return j.settle(ctx, err, nil)
	}
	return j.settle(ctx, nil, func() {
		j.state.LinkReference = ref
		j.linkConfirmed = false
	})
}

// VerifyLinkingOTP confirms the link with the OTP, then refreshes the linked
// account list. User-correctable on failure. A confirmed link is remembered,
// so if only the refresh failed, the retry re-fetches without re-submitting
// the consumed OTP.
func (j *Journey) VerifyLinkingOTP(ctx context.Context, otp string) error {
	if err := j.beginOp("verify linking otp", StepLinkingOTP, func(s *JourneyState) string {
		if s.LinkReference == "" {
			return "no link reference from a prior linking request"
		}
		return ""
	}); err != nil {
		return err
	}

	j.mu.Lock()
	confirmed := j.linkConfirmed
	ref := j.state.LinkReference
	j.mu.Unlock()

	if !confirmed {
		if err := j.sdk.ConfirmAccountLinking(ctx, otp, ref); err != nil {
			return j.settle(ctx, err, nil)
		}
		j.mu.Lock()
		j.linkConfirmed = true
		if j.cancelRequested {
			j.cancelRequested = false
			j.teardownLocked(ctx)
			j.mu.Unlock()
			return ErrCancelled
		}
		j.mu.Unlock()
	}

	linked, err := j.sdk.FetchLinkedAccounts(ctx)
	if err != nil {
		return j.settle(ctx, err, nil)
	}
	return j.settle(ctx, nil, func() {
		j.state.LinkedAccounts = linked
		j.state.SelectedAccountsForConsent = append([]LinkedAccount(nil), linked...)
	})
}

// FetchConsentDetails loads the consent terms for review and advances to
// approval. Structural on failure.
func (j *Journey) FetchConsentDetails(ctx context.Context) error {
	if err := j.beginOp("fetch consent details", StepConsentReview, nil); err != nil {
		return err
	}

	details, err := j.sdk.GetConsentRequestDetails(ctx, j.handleID())
	if err != nil {
		return j.settle(ctx, err, nil)
	}
	return j.settle(ctx, nil, func() {
		j.state.ConsentDetails = details
	})
}

// SelectAccountsForConsent narrows the consent grant to a subset of the
// linked accounts, by reference number. Purely local; defaults to all linked
// accounts when never called. Unknown references are dropped.
func (j *Journey) SelectAccountsForConsent(refs []string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state.Loading {
		return ErrBusy
	}
	if j.state.Step != StepConsentApproval {
		return &PreconditionError{Op: "select consent accounts", Step: j.state.Step, Want: StepConsentApproval}
	}
	byRef := make(map[string]LinkedAccount, len(j.state.LinkedAccounts))
	for _, acc := range j.state.LinkedAccounts {
		byRef[acc.AccountReferenceNumber] = acc
	}
	var selected []LinkedAccount
	for _, ref := range refs {
		if acc, ok := byRef[ref]; ok {
			selected = append(selected, acc)
		}
	}
	j.state.SelectedAccountsForConsent = selected
	return nil
}

// ApproveConsentRequest grants the consent for the selected accounts and
// completes the journey. Structural on failure.
func (j *Journey) ApproveConsentRequest(ctx context.Context) error {
	if err := j.beginOp("approve consent", StepConsentApproval, func(s *JourneyState) string {
		if len(s.SelectedAccountsForConsent) == 0 {
			return "no accounts selected for consent"
		}
		return ""
	}); err != nil {
		return err
	}

	j.mu.Lock()
	details := j.state.ConsentDetails
	accounts := append([]LinkedAccount(nil), j.state.SelectedAccountsForConsent...)
	j.mu.Unlock()

	consentID, err := j.sdk.ApproveConsentRequest(ctx, details, accounts)
	if err != nil {
		return j.settle(ctx, err, nil)
	}
	return j.settle(ctx, nil, func() {
		j.state.ConsentID = consentID
		j.state.ConsentGranted = true
	})
}

// DenyConsentRequest declines the consent and completes the journey with a
// negative decision. Structural on failure.
func (j *Journey) DenyConsentRequest(ctx context.Context) error {
	if err := j.beginOp("deny consent", StepConsentApproval, nil); err != nil {
		return err
	}

	j.mu.Lock()
	details := j.state.ConsentDetails
	j.mu.Unlock()

	if err := j.sdk.DenyConsentRequest(ctx, details); err != nil {
		return j.settle(ctx, err, nil)
	}
	return j.settle(ctx, nil, func() {
		j.state.ConsentGranted = false
	})
}

// CancelJourney abandons the journey from any state, including ERROR (where
// it doubles as error dismissal). If an operation is in flight the
// cancellation is cooperative: the in-flight SDK call is not aborted, but
// once it settles the operation proceeds straight to teardown instead of
// advancing. Cancelling an already-reset journey is a no-op.
func (j *Journey) CancelJourney(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.state.Loading {
		j.cancelRequested = true
		return nil
	}
	if !j.active {
		j.resetLocked()
		return nil
	}
	j.state.Loading = true
	j.teardownLocked(ctx)
	return nil
}

// CompleteJourney finishes a journey that reached COMPLETED, tearing the SDK
// session down and resetting the state to its initial value.
func (j *Journey) CompleteJourney(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.state.Loading {
		return ErrBusy
	}
	if j.state.Step != StepCompleted {
		return &PreconditionError{Op: "complete", Step: j.state.Step, Want: StepCompleted}
	}
	j.state.Loading = true
	j.teardownLocked(ctx)
	return nil
}

// beginOp claims the operation slot for an SDK-calling transition: rejects
// overlapping attempts, enforces the step precondition and any extra input
// check, then clears the stale error and raises Loading. All rejections
// happen before any mutation.
func (j *Journey) beginOp(op string, want Step, check func(*JourneyState) string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.state.Loading {
		return ErrBusy
	}
	if j.state.Step != want {
		return &PreconditionError{Op: op, Step: j.state.Step, Want: want}
	}
	if check != nil {
		if reason := check(&j.state); reason != "" {
			return &PreconditionError{Op: op, Step: j.state.Step, Want: want, Reason: reason}
		}
	}
	j.state.Error = ""
	j.state.Loading = true
	return nil
}

// settle finishes an SDK-calling transition. A cancellation that arrived
// while the call was in flight wins over the call's own outcome. On failure
// the SDK-reported message lands in the state verbatim, and the step either
// holds (user-correctable) or moves to ERROR (structural), per the step's
// classification. On success apply runs under the lock and the step advances.
func (j *Journey) settle(ctx context.Context, callErr error, apply func()) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.cancelRequested {
		j.cancelRequested = false
		j.teardownLocked(ctx)
		return ErrCancelled
	}

	j.state.Loading = false
	if callErr != nil {
		j.state.Error = callErr.Error()
		if fatalSteps[j.state.Step] {
			j.state.Step = StepError
		}
		return callErr
	}

	if apply != nil {
		apply()
	}
	j.state.Step = successTransitions[j.state.Step]
	return nil
}

// settleInPlace is settle for data-load operations that succeed without
// advancing the step.
func (j *Journey) settleInPlace(ctx context.Context, apply func()) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.cancelRequested {
		j.cancelRequested = false
		j.teardownLocked(ctx)
		return ErrCancelled
	}

	j.state.Loading = false
	apply()
	return nil
}

// teardownLocked runs the mandatory exit sequence: logout, then disconnect,
// then reset to the initial state. Both SDK calls are best-effort; failures
// are logged and never block cleanup. The caller must hold the lock with the
// operation slot claimed (Loading true); the lock is released during the SDK
// calls and re-held on return. Runs at most once per active session.
func (j *Journey) teardownLocked(ctx context.Context) {
	if !j.active {
		j.resetLocked()
		return
	}
	j.active = false
	handle := j.state.ConsentHandleID

	j.mu.Unlock()
	if err := j.sdk.Logout(ctx); err != nil {
		j.logger.Warn("aa teardown: logout failed", "consent_handle", handle, "error", err)
	}
	if err := j.sdk.Disconnect(ctx); err != nil {
		j.logger.Warn("aa teardown: disconnect failed", "consent_handle", handle, "error", err)
	}
	j.mu.Lock()

	j.resetLocked()
}

// resetLocked restores the initial state, keeping only the consent handle
// the journey was constructed with.
func (j *Journey) resetLocked() {
	j.state = newState(j.state.ConsentHandleID)
	j.active = false
	j.linkConfirmed = false
	j.cancelRequested = false
}

func (j *Journey) handleID() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state.ConsentHandleID
}

func (j *Journey) ref() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state.OTPReference
}

func (j *Journey) selectedFIPID() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state.SelectedFIP == nil {
		return ""
	}
	return j.state.SelectedFIP.ID
}

func cloneState(s JourneyState) JourneyState {
	out := s
	out.AvailableFIPs = append([]FIP(nil), s.AvailableFIPs...)
	out.DiscoveredAccounts = append([]DiscoveredAccount(nil), s.DiscoveredAccounts...)
	out.SelectedAccountsToLink = append([]DiscoveredAccount(nil), s.SelectedAccountsToLink...)
	out.LinkedAccounts = append([]LinkedAccount(nil), s.LinkedAccounts...)
	out.SelectedAccountsForConsent = append([]LinkedAccount(nil), s.SelectedAccountsForConsent...)
	if s.SelectedFIP != nil {
		fip := *s.SelectedFIP
		out.SelectedFIP = &fip
	}
	if s.FIPDetails != nil {
		details := *s.FIPDetails
		details.Identifiers = append([]IdentifierSpec(nil), s.FIPDetails.Identifiers...)
		out.FIPDetails = &details
	}
	if s.ConsentDetails != nil {
		details := *s.ConsentDetails
		details.FITypes = append([]string(nil), s.ConsentDetails.FITypes...)
		out.ConsentDetails = &details
	}
	return out
}
