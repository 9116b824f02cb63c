package link

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/zmrishh/moneyai/internal/aa"
	"github.com/zmrishh/moneyai/internal/output"
)

// visibleSteps is the progress rail, in journey order. Initialization and
// the terminal steps are not shown as milestones.
var visibleSteps = []aa.Step{
	aa.StepLogin,
	aa.StepOTPVerification,
	aa.StepFIPSelection,
	aa.StepAccountDiscovery,
	aa.StepAccountLinking,
	aa.StepLinkingOTP,
	aa.StepConsentReview,
	aa.StepConsentApproval,
}

var stepLabels = map[aa.Step]string{
	aa.StepLogin:            "Login",
	aa.StepOTPVerification:  "OTP",
	aa.StepFIPSelection:     "Bank",
	aa.StepAccountDiscovery: "Discover",
	aa.StepAccountLinking:   "Link",
	aa.StepLinkingOTP:       "Confirm",
	aa.StepConsentReview:    "Review",
	aa.StepConsentApproval:  "Consent",
}

var stepIndex = func() map[aa.Step]int {
	idx := make(map[aa.Step]int, len(visibleSteps))
	for i, s := range visibleSteps {
		idx[s] = i
	}
	return idx
}()

func (m Model) render() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Link bank accounts"))
	b.WriteString("  ")
	b.WriteString(subtleStyle.Render("consent " + m.State.ConsentHandleID))
	b.WriteString("\n\n")

	if m.State.Step != aa.StepError {
		b.WriteString(m.renderRail())
		b.WriteString("\n\n")
	}

	switch {
	case m.Cancelling:
		b.WriteString(m.spinLine("Cancelling, cleaning up session"))
	case m.State.Step == aa.StepError:
		b.WriteString(m.renderFatal())
	case m.Busy || m.State.Loading:
		b.WriteString(m.spinLine(m.busyLabel()))
	default:
		b.WriteString(m.renderStep())
	}

	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("esc cancel"))
	b.WriteString("\n")

	return b.String()
}

// renderRail draws the step progress line.
func (m Model) renderRail() string {
	current, onRail := stepIndex[m.State.Step]
	if !onRail {
		// COMPLETED and teardown states sit past the end of the rail.
		current = len(visibleSteps)
	}

	parts := make([]string, 0, len(visibleSteps))
	for i, s := range visibleSteps {
		label := stepLabels[s]
		switch {
		case i < current:
			parts = append(parts, stepDoneStyle.Render("✓ "+label))
		case i == current:
			parts = append(parts, stepCurrentStyle.Render("● "+label))
		default:
			parts = append(parts, stepTodoStyle.Render("○ "+label))
		}
	}

	rail := strings.Join(parts, subtleStyle.Render(" · "))
	if m.Width > 0 {
		rail = ansi.Truncate(rail, m.Width, "…")
	}
	return rail
}

func (m Model) spinLine(label string) string {
	return m.Spinner.View() + " " + label + "…"
}

func (m Model) busyLabel() string {
	switch m.State.Step {
	case aa.StepInitialization:
		return "Connecting to the AA gateway"
	case aa.StepLogin:
		return "Requesting OTP"
	case aa.StepOTPVerification:
		return "Verifying OTP"
	case aa.StepFIPSelection:
		if len(m.State.AvailableFIPs) == 0 {
			return "Loading providers"
		}
		return "Loading provider details"
	case aa.StepAccountDiscovery:
		return "Discovering accounts"
	case aa.StepAccountLinking:
		return "Submitting link request"
	case aa.StepLinkingOTP:
		return "Confirming link"
	case aa.StepConsentReview:
		return "Loading consent terms"
	case aa.StepConsentApproval:
		return "Submitting decision"
	case aa.StepCompleted:
		return "Saving linked accounts"
	}
	return "Working"
}

// renderStep draws the interactive body for the current step.
func (m Model) renderStep() string {
	var b strings.Builder

	if m.State.Error != "" {
		b.WriteString(errorStyle.Render("✗ " + m.State.Error))
		b.WriteString("\n")
		b.WriteString(subtleStyle.Render("  correct the details and try again"))
		b.WriteString("\n\n")
	} else if m.OpErr != nil {
		b.WriteString(warningStyle.Render("! " + m.OpErr.Error()))
		b.WriteString("\n\n")
	}

	switch m.State.Step {
	case aa.StepFIPSelection:
		if len(m.State.AvailableFIPs) == 0 {
			b.WriteString(subtleStyle.Render("No account providers are available right now."))
			return b.String()
		}
	case aa.StepAccountLinking:
		if len(m.State.DiscoveredAccounts) == 0 {
			b.WriteString(subtleStyle.Render("No accounts were found for the supplied identifiers."))
			return b.String()
		}
	case aa.StepConsentApproval:
		b.WriteString(m.renderConsentTerms())
		b.WriteString("\n")
	case aa.StepCompleted:
		return b.String()
	}

	if m.Form != nil {
		b.WriteString(m.Form.View())
	}
	return b.String()
}

// renderConsentTerms shows what the requester is asking for, as markdown.
func (m Model) renderConsentTerms() string {
	d := m.State.ConsentDetails
	if d == nil {
		return subtleStyle.Render("Consent terms are unavailable.")
	}

	md := consentMarkdown(d, m.State.SelectedAccountsForConsent)
	width := m.Width
	if width <= 0 {
		width = 80
	}
	rendered, err := output.RenderMarkdownWithWidth(md, width)
	if err != nil {
		return md
	}
	return strings.TrimRight(rendered, "\n")
}

func consentMarkdown(d *aa.ConsentDetails, accounts []aa.LinkedAccount) string {
	var b strings.Builder

	requester := d.Requester
	if requester == "" {
		requester = "the requester"
	}
	fmt.Fprintf(&b, "## Consent request from %s\n\n", requester)
	if d.Purpose != "" {
		fmt.Fprintf(&b, "%s\n\n", d.Purpose)
	}

	const day = "02 Jan 2006"
	fmt.Fprintf(&b, "- **Data range**: %s to %s\n", d.DataFrom.Format(day), d.DataTo.Format(day))
	fmt.Fprintf(&b, "- **Valid until**: %s\n", d.ExpiresAt.Format(day))
	if d.Frequency != "" {
		fmt.Fprintf(&b, "- **Fetch frequency**: %s\n", d.Frequency)
	}
	if d.FetchType != "" {
		fmt.Fprintf(&b, "- **Fetch type**: %s\n", d.FetchType)
	}
	if d.Mode != "" {
		fmt.Fprintf(&b, "- **Mode**: %s\n", d.Mode)
	}
	if d.DataLife != "" {
		fmt.Fprintf(&b, "- **Data retained for**: %s\n", d.DataLife)
	}
	if len(d.FITypes) > 0 {
		fmt.Fprintf(&b, "- **Account types**: %s\n", strings.Join(d.FITypes, ", "))
	}

	if len(accounts) > 0 {
		fmt.Fprintf(&b, "\nAccounts covered:\n\n")
		for _, acc := range accounts {
			fmt.Fprintf(&b, "- %s %s (%s)\n", acc.FIPName, acc.MaskedAccountNumber, acc.AccountType)
		}
	}
	return b.String()
}

// renderFatal draws the terminal error view.
func (m Model) renderFatal() string {
	var b strings.Builder
	msg := m.State.Error
	if msg == "" {
		msg = "the linking session failed"
	}
	b.WriteString(errorBoxStyle.Render(errorStyle.Render("Linking failed") + "\n" + msg))
	b.WriteString("\n\n")
	b.WriteString(subtleStyle.Render("press enter to close"))
	return b.String()
}
