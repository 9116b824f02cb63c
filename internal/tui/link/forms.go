package link

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/zmrishh/moneyai/internal/aa"
)

var (
	errMobileRequired  = errors.New("a 10-digit mobile number is required")
	errOTPRequired     = errors.New("the 6-digit OTP is required")
	errAccountRequired = errors.New("select at least one account")
)

// buildForm constructs the input form for the current step. Steps that run
// without user input return nil.
func (m *Model) buildForm() *huh.Form {
	var form *huh.Form

	switch m.State.Step {
	case aa.StepLogin:
		form = m.loginForm()
	case aa.StepOTPVerification:
		form = otpForm("Login OTP", "OTP sent to your mobile number", &m.OTP)
	case aa.StepFIPSelection:
		form = m.fipSelectForm()
	case aa.StepAccountDiscovery:
		form = m.discoveryForm()
	case aa.StepAccountLinking:
		form = m.accountSelectForm()
	case aa.StepLinkingOTP:
		form = otpForm("Linking OTP", "OTP sent by the bank to confirm linking", &m.LinkOTP)
	case aa.StepConsentApproval:
		form = m.consentForm()
	default:
		return nil
	}

	if form != nil {
		form.WithTheme(huh.ThemeDracula())
	}
	return form
}

func (m *Model) loginForm() *huh.Form {
	return huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("Username").
			Value(&m.Username).
			Placeholder("optional"),
		huh.NewInput().
			Title("Mobile number").
			Value(&m.Mobile).
			Placeholder("9876543210").
			Validate(func(s string) error {
				if !isDigits(strings.TrimSpace(s), 10) {
					return errMobileRequired
				}
				return nil
			}),
	).Title("Sign in to your Account Aggregator"))
}

func otpForm(title, description string, value *string) *huh.Form {
	return huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title(title).
			Description(description).
			Value(value).
			Placeholder("______").
			Validate(func(s string) error {
				if !isDigits(strings.TrimSpace(s), 6) {
					return errOTPRequired
				}
				return nil
			}),
	))
}

func (m *Model) fipSelectForm() *huh.Form {
	options := make([]huh.Option[string], 0, len(m.State.AvailableFIPs))
	for _, fip := range m.State.AvailableFIPs {
		label := fip.Name
		if len(fip.FITypes) > 0 {
			label = fmt.Sprintf("%s  (%s)", fip.Name, strings.Join(fip.FITypes, ", "))
		}
		options = append(options, huh.NewOption(label, fip.ID))
	}

	return huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title("Select your bank").
			Options(options...).
			Value(&m.FIPID),
	))
}

// discoveryForm asks for one value per identifier the selected FIP
// requires. The mobile number from login is prefilled.
func (m *Model) discoveryForm() *huh.Form {
	specs := []aa.IdentifierSpec{{Category: aa.IdentifierStrong, Type: "MOBILE"}}
	if m.State.FIPDetails != nil && len(m.State.FIPDetails.Identifiers) > 0 {
		specs = m.State.FIPDetails.Identifiers
	}

	m.Identifiers = m.Identifiers[:0]
	fields := make([]huh.Field, 0, len(specs))
	for _, spec := range specs {
		in := &identifierInput{Spec: spec}
		if strings.EqualFold(spec.Type, "MOBILE") && in.Value == "" {
			in.Value = strings.TrimSpace(m.Mobile)
		}
		m.Identifiers = append(m.Identifiers, in)

		input := huh.NewInput().
			Title(identifierTitle(spec)).
			Value(&in.Value)
		if spec.Category == aa.IdentifierStrong {
			input = input.Validate(func(s string) error {
				if strings.TrimSpace(s) == "" {
					return fmt.Errorf("%s is required", strings.ToLower(spec.Type))
				}
				return nil
			})
		} else {
			input = input.Placeholder("optional")
		}
		fields = append(fields, input)
	}

	return huh.NewForm(huh.NewGroup(fields...).
		Title("Discover accounts at " + m.fipName()))
}

func (m *Model) accountSelectForm() *huh.Form {
	options := make([]huh.Option[string], 0, len(m.State.DiscoveredAccounts))
	refs := make([]string, 0, len(m.State.DiscoveredAccounts))
	for _, acc := range m.State.DiscoveredAccounts {
		label := fmt.Sprintf("%s  %s %s", acc.MaskedAccountNumber, acc.AccountType, acc.FIType)
		options = append(options, huh.NewOption(label, acc.AccountReferenceNumber))
		refs = append(refs, acc.AccountReferenceNumber)
	}

	// All accounts start selected; deselect to narrow the link.
	m.AccountRefs = refs

	return huh.NewForm(huh.NewGroup(
		huh.NewMultiSelect[string]().
			Title("Accounts to link").
			Options(options...).
			Value(&m.AccountRefs).
			Validate(func(selected []string) error {
				if len(selected) == 0 {
					return errAccountRequired
				}
				return nil
			}),
	))
}

func (m *Model) consentForm() *huh.Form {
	m.Approve = true
	return huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title("Grant this consent?").
			Affirmative("Approve").
			Negative("Deny").
			Value(&m.Approve),
	))
}

func (m *Model) fipName() string {
	if m.State.SelectedFIP != nil {
		return m.State.SelectedFIP.Name
	}
	return "your bank"
}

func identifierTitle(spec aa.IdentifierSpec) string {
	switch strings.ToUpper(spec.Type) {
	case "MOBILE":
		return "Mobile number"
	case "PAN":
		return "PAN"
	case "ACCNO":
		return "Account number"
	default:
		return spec.Type
	}
}

// isDigits reports whether s is exactly n ASCII digits.
func isDigits(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
