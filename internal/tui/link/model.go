// Package link is the interactive account-linking flow: a Bubble Tea
// program that walks the AA journey from gateway initialization through
// consent decision, one view per step.
package link

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/zmrishh/moneyai/internal/aa"
	"github.com/zmrishh/moneyai/internal/db"
	"github.com/zmrishh/moneyai/internal/models"
	"github.com/zmrishh/moneyai/internal/version"
)

// identifierInput binds one FIP identifier requirement to a form value.
type identifierInput struct {
	Spec  aa.IdentifierSpec
	Value string
}

// Model is the Bubble Tea model for the linking flow.
type Model struct {
	Journey *aa.Journey
	DB      *db.DB
	Version string

	// State is the last journey snapshot; refreshed after every operation.
	State aa.JourneyState

	Width  int
	Height int

	Spinner spinner.Model

	// Form is the active input form; rebuilt whenever the step changes or
	// a recoverable failure asks for another attempt.
	Form     *huh.Form
	FormStep aa.Step

	// Bound form values
	Username    string
	Mobile      string
	OTP         string
	LinkOTP     string
	FIPID       string
	Identifiers []*identifierInput
	AccountRefs []string
	Approve     bool

	// Busy bridges the gap between dispatching an operation and its
	// settlement message; the journey's own Loading flag takes over then.
	Busy bool

	// OpErr holds synchronous rejections (preconditions, busy) that never
	// reach JourneyState.Error.
	OpErr error

	FetchedFIPs bool

	// Outcome is the state snapshot at COMPLETED, taken before teardown
	// resets the journey. FatalErr is the terminal error, if any.
	Outcome  *aa.JourneyState
	FatalErr string

	SavedCount int
	SaveErr    error
	Cancelling bool
	Done       bool

	UpdateInfo *version.UpdateAvailableMsg
}

// opMsg reports a settled journey operation.
type opMsg struct {
	op  string
	err error
}

// savedMsg reports the connection persistence that runs on completion.
type savedMsg struct {
	count int
	err   error
}

// NewModel creates the linking flow model. database may be nil, in which
// case completed links are not persisted.
func NewModel(journey *aa.Journey, database *db.DB, appVersion string) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	m := Model{
		Journey: journey,
		DB:      database,
		Version: appVersion,
		Spinner: sp,
		Busy:    true,
	}
	m.State = journey.Snapshot()
	return m
}

// Init implements tea.Model. It kicks off gateway initialization right away.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.Spinner.Tick,
		opCmd("initialize", m.Journey.InitializeSDK),
		version.CheckAsync(m.Version),
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m.startCancel()
		}
		if m.State.Step == aa.StepError {
			switch msg.String() {
			case "enter", "q":
				return m.startCancel()
			}
			return m, nil
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd

	case version.UpdateAvailableMsg:
		m.UpdateInfo = &msg
		return m, nil

	case opMsg:
		return m.handleOpDone(msg)

	case savedMsg:
		m.SavedCount = msg.count
		m.SaveErr = msg.err
		return m, opCmd("complete", m.Journey.CompleteJourney)
	}

	return m.updateForm(msg)
}

// View implements tea.Model.
func (m Model) View() string {
	return m.render()
}

// opCmd runs one journey operation off the UI goroutine and reports how it
// settled.
func opCmd(op string, fn func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return opMsg{op: op, err: fn(context.Background())}
	}
}

// startCancel begins cooperative cancellation. If an operation is in
// flight the journey tears down once it settles; otherwise teardown runs
// immediately.
func (m Model) startCancel() (tea.Model, tea.Cmd) {
	if m.Cancelling {
		return m, nil
	}
	m.Cancelling = true
	journey := m.Journey
	return m, func() tea.Msg {
		err := journey.CancelJourney(context.Background())
		return opMsg{op: "cancel", err: err}
	}
}

// handleOpDone refreshes the snapshot after a settled operation and decides
// what runs next.
func (m Model) handleOpDone(msg opMsg) (tea.Model, tea.Cmd) {
	m.Busy = false
	m.State = m.Journey.Snapshot()

	if msg.op == "fetch fips" {
		m.FetchedFIPs = true
	}
	if m.State.Step == aa.StepError && m.State.Error != "" {
		m.FatalErr = m.State.Error
	}
	if m.State.Step == aa.StepCompleted && m.Outcome == nil {
		outcome := cloneOutcome(m.State)
		m.Outcome = &outcome
	}

	if m.Cancelling {
		if !m.State.Loading {
			m.Done = true
			return m, tea.Quit
		}
		// an operation is still in flight; quit when it settles
		return m, nil
	}

	if errors.Is(msg.err, aa.ErrCancelled) {
		m.Done = true
		return m, tea.Quit
	}

	if msg.op == "complete" {
		m.Done = true
		return m, tea.Quit
	}

	// Synchronous rejections never reach journey state; keep them visible.
	if msg.err != nil && m.State.Error == "" && m.State.Step != aa.StepError {
		m.OpErr = msg.err
	} else {
		m.OpErr = nil
	}

	// Recoverable failure: same step, error recorded. Offer another attempt.
	if m.State.Error != "" && m.State.Step != aa.StepError {
		m.Form = nil
		m.ensureForm()
		return m, m.formInit()
	}

	return m.advance()
}

// advance issues the operations some steps run without user input, and
// prepares the input form everywhere else.
func (m Model) advance() (tea.Model, tea.Cmd) {
	if m.State.Loading {
		return m, nil
	}

	switch m.State.Step {
	case aa.StepFIPSelection:
		if len(m.State.AvailableFIPs) == 0 && !m.FetchedFIPs {
			m.Busy = true
			return m, opCmd("fetch fips", m.Journey.FetchFIPOptions)
		}
	case aa.StepConsentReview:
		m.Busy = true
		return m, opCmd("fetch consent", m.Journey.FetchConsentDetails)
	case aa.StepCompleted:
		m.Busy = true
		return m, m.persistCmd()
	case aa.StepError:
		return m, nil
	}

	m.ensureForm()
	return m, m.formInit()
}

// updateForm forwards a message to the active form and submits it when the
// user finishes the last field.
func (m Model) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.Form == nil || m.Busy || m.State.Loading || m.State.Step == aa.StepError {
		return m, nil
	}

	form, cmd := m.Form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.Form = f
	}

	if m.Form.State == huh.StateCompleted {
		return m.submitForm()
	}
	return m, cmd
}

// submitForm translates the completed form into the journey operation for
// the current step.
func (m Model) submitForm() (tea.Model, tea.Cmd) {
	journey := m.Journey
	m.Form = nil
	m.Busy = true

	switch m.State.Step {
	case aa.StepLogin:
		username, mobile := strings.TrimSpace(m.Username), strings.TrimSpace(m.Mobile)
		return m, opCmd("login", func(ctx context.Context) error {
			return journey.LoginWithMobile(ctx, username, mobile)
		})

	case aa.StepOTPVerification:
		otp := strings.TrimSpace(m.OTP)
		m.OTP = ""
		return m, opCmd("verify otp", func(ctx context.Context) error {
			return journey.VerifyLoginOTP(ctx, otp)
		})

	case aa.StepFIPSelection:
		fipID := m.FIPID
		return m, opCmd("fip details", func(ctx context.Context) error {
			if err := journey.SelectFIP(fipID); err != nil {
				return err
			}
			return journey.FetchFIPDetails(ctx)
		})

	case aa.StepAccountDiscovery:
		idents := make([]aa.Identifier, 0, len(m.Identifiers))
		for _, in := range m.Identifiers {
			if v := strings.TrimSpace(in.Value); v != "" {
				idents = append(idents, aa.Identifier{
					Category: in.Spec.Category,
					Type:     in.Spec.Type,
					Value:    v,
				})
			}
		}
		return m, opCmd("discover", func(ctx context.Context) error {
			return journey.DiscoverAccounts(ctx, idents)
		})

	case aa.StepAccountLinking:
		refs := append([]string(nil), m.AccountRefs...)
		return m, opCmd("link", func(ctx context.Context) error {
			if err := journey.SelectAccountsToLink(refs); err != nil {
				return err
			}
			return journey.LinkSelectedAccounts(ctx)
		})

	case aa.StepLinkingOTP:
		otp := strings.TrimSpace(m.LinkOTP)
		m.LinkOTP = ""
		return m, opCmd("verify linking otp", func(ctx context.Context) error {
			return journey.VerifyLinkingOTP(ctx, otp)
		})

	case aa.StepConsentApproval:
		if m.Approve {
			return m, opCmd("approve", journey.ApproveConsentRequest)
		}
		return m, opCmd("deny", journey.DenyConsentRequest)
	}

	m.Busy = false
	return m, nil
}

// ensureForm (re)builds the input form when the journey moves to a new step.
func (m *Model) ensureForm() {
	if m.Form != nil && m.FormStep == m.State.Step {
		return
	}
	m.Form = m.buildForm()
	m.FormStep = m.State.Step
}

func (m Model) formInit() tea.Cmd {
	if m.Form == nil {
		return nil
	}
	return m.Form.Init()
}

// persistCmd saves granted connections to the ledger before teardown.
func (m Model) persistCmd() tea.Cmd {
	database := m.DB
	state := m.State
	return func() tea.Msg {
		if !state.ConsentGranted || database == nil {
			return savedMsg{}
		}
		conns := connectionsFromState(state)
		if err := database.SaveConnections(conns); err != nil {
			return savedMsg{err: err}
		}
		return savedMsg{count: len(conns)}
	}
}

// cloneOutcome copies the completion state for post-exit reporting.
func cloneOutcome(s aa.JourneyState) aa.JourneyState {
	out := s
	out.SelectedAccountsForConsent = append([]aa.LinkedAccount(nil), s.SelectedAccountsForConsent...)
	out.LinkedAccounts = append([]aa.LinkedAccount(nil), s.LinkedAccounts...)
	return out
}

// connectionsFromState maps the granted accounts to ledger connections.
func connectionsFromState(s aa.JourneyState) []models.Connection {
	var expires *time.Time
	if s.ConsentDetails != nil && !s.ConsentDetails.ExpiresAt.IsZero() {
		t := s.ConsentDetails.ExpiresAt
		expires = &t
	}

	conns := make([]models.Connection, 0, len(s.SelectedAccountsForConsent))
	for _, acc := range s.SelectedAccountsForConsent {
		conns = append(conns, models.Connection{
			FIPID:               acc.FIPID,
			FIPName:             acc.FIPName,
			AccountReference:    acc.AccountReferenceNumber,
			MaskedAccountNumber: acc.MaskedAccountNumber,
			AccountType:         acc.AccountType,
			FIType:              acc.FIType,
			ConsentID:           s.ConsentID,
			ConsentStatus:       models.ConsentActive,
			ConsentExpiresAt:    expires,
		})
	}
	return conns
}
