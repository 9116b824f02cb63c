// Package output provides styled terminal output helpers (success, error,
// warning, money and transaction formatting) using lipgloss.
package output

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/zmrishh/moneyai/internal/models"
)

var (
	// Styles
	titleStyle    = lipgloss.NewStyle().Bold(true)
	subtleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	successStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warningStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	priorityStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	consentStyles = map[models.ConsentStatus]lipgloss.Style{
		models.ConsentActive:  lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		models.ConsentPaused:  lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		models.ConsentRevoked: lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		models.ConsentExpired: lipgloss.NewStyle().Foreground(lipgloss.Color("242")),
	}
)

const (
	barFilled = "█"
	barEmpty  = "░"
)

// OutputMode determines output format
type OutputMode int

const (
	ModeShort OutputMode = iota
	ModeLong
	ModeJSON
)

// Success prints a success message
func Success(format string, args ...interface{}) {
	fmt.Println(successStyle.Render(fmt.Sprintf(format, args...)))
}

// Error prints an error message
func Error(format string, args ...interface{}) {
	fmt.Println(errorStyle.Render("ERROR: " + fmt.Sprintf(format, args...)))
}

// Warning prints a warning message
func Warning(format string, args ...interface{}) {
	fmt.Println(warningStyle.Render("Warning: " + fmt.Sprintf(format, args...)))
}

// Info prints an info message
func Info(format string, args ...interface{}) {
	fmt.Println(fmt.Sprintf(format, args...))
}

// Faint renders text in the subdued style
func Faint(s string) string {
	return subtleStyle.Render(s)
}

// Bold renders text in the emphasis style
func Bold(s string) string {
	return titleStyle.Render(s)
}

// JSON outputs data as JSON
func JSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// Error codes for structured JSON output
const (
	ErrCodeNotFound         = "not_found"
	ErrCodeInvalidInput     = "invalid_input"
	ErrCodeConflict         = "conflict"
	ErrCodeDatabaseError    = "database_error"
	ErrCodeParseError       = "parse_error"
	ErrCodeNetworkError     = "network_error"
	ErrCodeNotAuthenticated = "not_authenticated"
	ErrCodePrecondition     = "precondition_failed"
	ErrCodeJourneyBusy      = "journey_busy"
)

// JSONError outputs an error as JSON
func JSONError(code, message string) {
	fmt.Printf(`{"error":{"code":"%s","message":"%s"}}`, code, message)
	fmt.Println()
}

// JSONErrorWithDetails outputs an error as JSON with additional context
func JSONErrorWithDetails(code, message string, details map[string]interface{}) {
	errObj := map[string]interface{}{
		"code":    code,
		"message": message,
	}
	if len(details) > 0 {
		errObj["details"] = details
	}
	result := map[string]interface{}{
		"error": errObj,
	}
	data, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(data))
}

var currencySymbols = map[string]string{
	"INR": "₹",
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
}

// FormatMoney renders an amount with its currency symbol and digit grouping.
// INR groups in the Indian system (1,23,456.78), other currencies by thousands.
// Unknown currencies fall back to "1234.56 XXX".
func FormatMoney(m models.Money) string {
	symbol, ok := currencySymbols[m.Currency]
	if !ok {
		return m.String()
	}

	fixed := m.Amount.Abs().StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")
	out := symbol + groupDigits(whole, m.Currency == "INR") + "." + frac
	if m.Amount.IsNegative() {
		out = "-" + out
	}
	return out
}

// groupDigits inserts comma separators. Indian grouping keeps the last three
// digits together and groups by two above that.
func groupDigits(s string, indian bool) string {
	if len(s) <= 3 {
		return s
	}

	head, tail := s[:len(s)-3], s[len(s)-3:]
	groups := []string{tail}
	step := 3
	if indian {
		step = 2
	}
	for len(head) > step {
		groups = append([]string{head[len(head)-step:]}, groups...)
		head = head[:len(head)-step]
	}
	groups = append([]string{head}, groups...)
	return strings.Join(groups, ",")
}

// FormatSignedAmount renders a transaction amount with its direction sign.
// Income is green with a leading +, expenses carry a leading -.
func FormatSignedAmount(tx *models.Transaction) string {
	if tx.Type == models.TransactionIncome {
		return successStyle.Render("+" + FormatMoney(tx.Amount))
	}
	return "-" + FormatMoney(tx.Amount)
}

// FormatDate formats a date for display
func FormatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

// FormatConsentStatus formats a consent status with color
func FormatConsentStatus(s models.ConsentStatus) string {
	style, ok := consentStyles[s]
	if !ok {
		return string(s)
	}
	return style.Render(fmt.Sprintf("[%s]", s))
}

// ConsentBadge returns a consent status indicator with symbol
// e.g., "● ACTIVE", "◐ PAUSED", "✗ REVOKED", "○ EXPIRED"
func ConsentBadge(status models.ConsentStatus) string {
	symbols := map[models.ConsentStatus]string{
		models.ConsentActive:  "●",
		models.ConsentPaused:  "◐",
		models.ConsentRevoked: "✗",
		models.ConsentExpired: "○",
	}
	symbol, ok := symbols[status]
	if !ok {
		symbol = "?"
	}
	style, hasStyle := consentStyles[status]
	if hasStyle {
		return style.Render(fmt.Sprintf("%s %s", symbol, status))
	}
	return fmt.Sprintf("%s %s", symbol, status)
}

// FormatPriority formats a goal priority
func FormatPriority(p models.GoalPriority) string {
	return priorityStyle.Render(fmt.Sprintf("[%s]", p))
}

// FormatBudgetStatus renders a budget health badge: OK below the alert
// threshold, WARN at or above it, OVER past 100%.
func FormatBudgetStatus(pct float64, threshold int) string {
	switch {
	case pct >= 100:
		return errorStyle.Render("OVER")
	case pct >= float64(threshold):
		return warningStyle.Render("WARN")
	default:
		return successStyle.Render("OK")
	}
}

// FormatTransactionShort formats a transaction in short format
func FormatTransactionShort(tx *models.Transaction) string {
	var parts []string
	parts = append(parts, titleStyle.Render(tx.ID))
	parts = append(parts, subtleStyle.Render(FormatDate(tx.OccurredAt)))
	parts = append(parts, FormatSignedAmount(tx))
	parts = append(parts, tx.Category)

	if tx.Merchant != "" {
		parts = append(parts, subtleStyle.Render(tx.Merchant))
	}
	if tx.Source == models.SourceAA {
		parts = append(parts, subtleStyle.Render("[aa]"))
	}

	return strings.Join(parts, "  ")
}

// FormatTransactionLong formats a transaction in long format
func FormatTransactionLong(tx *models.Transaction) string {
	var sb strings.Builder

	header := tx.ID
	if tx.Merchant != "" {
		header = fmt.Sprintf("%s: %s", tx.ID, tx.Merchant)
	}
	sb.WriteString(titleStyle.Render(header))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Amount: %s\n", FormatSignedAmount(tx)))
	sb.WriteString(fmt.Sprintf("Type: %s | Category: %s", tx.Type, tx.Category))
	if tx.Account != "" {
		sb.WriteString(fmt.Sprintf(" | Account: %s", tx.Account))
	}
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Date: %s | Source: %s\n", FormatDate(tx.OccurredAt), tx.Source))

	if tx.Note != "" {
		sb.WriteString("\n")
		sb.WriteString(subtleStyle.Render("Note:"))
		sb.WriteString("\n")
		sb.WriteString(tx.Note)
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(subtleStyle.Render(fmt.Sprintf("recorded %s", FormatTimeAgo(tx.CreatedAt))))
	sb.WriteString("\n")

	return sb.String()
}

// FormatTimeAgo formats a time as a human-readable "ago" string
func FormatTimeAgo(t time.Time) string {
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		mins := int(diff.Minutes())
		if mins == 1 {
			return "1m ago"
		}
		return fmt.Sprintf("%dm ago", mins)
	case diff < 24*time.Hour:
		hours := int(diff.Hours())
		if hours == 1 {
			return "1h ago"
		}
		return fmt.Sprintf("%dh ago", hours)
	case diff < 7*24*time.Hour:
		days := int(diff.Hours() / 24)
		if days == 1 {
			return "1d ago"
		}
		return fmt.Sprintf("%dd ago", days)
	default:
		return t.Format("2006-01-02")
	}
}

// ProgressBar renders a fixed-width bar for a 0-100 percentage. The fill
// colors by how close spending is to the limit: green, then orange from
// 80%, red at or past 100%.
func ProgressBar(pct float64, width int) string {
	if width <= 0 {
		width = 10
	}

	ratio := pct / 100
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	barLen := int(ratio * float64(width))

	fillStyle := successStyle
	switch {
	case pct >= 100:
		fillStyle = errorStyle
	case pct >= 80:
		fillStyle = warningStyle
	}

	filled := fillStyle.Render(strings.Repeat(barFilled, barLen))
	empty := subtleStyle.Render(strings.Repeat(barEmpty, width-barLen))
	return filled + empty
}

// FormatPercent formats a 0-100 percentage for display next to a bar
func FormatPercent(pct float64) string {
	return fmt.Sprintf("%.0f%%", pct)
}

// SectionHeader returns a formatted section header for CLI output
// e.g., "\nBUDGETS:\n"
func SectionHeader(title string) string {
	return fmt.Sprintf("\n%s:\n", strings.ToUpper(title))
}

// IndentLines indents each line by the specified number of spaces
func IndentLines(lines []string, spaces int) []string {
	indent := strings.Repeat(" ", spaces)
	result := make([]string, len(lines))
	for i, line := range lines {
		result[i] = indent + line
	}
	return result
}

// IndentString indents each line in a string by the specified number of spaces
func IndentString(s string, spaces int) string {
	if s == "" {
		return ""
	}
	lines := strings.Split(s, "\n")
	indented := IndentLines(lines, spaces)
	return strings.Join(indented, "\n")
}

// BulletList formats items as a bulleted list with optional indentation
func BulletList(items []string, indent int) []string {
	prefix := strings.Repeat(" ", indent)
	result := make([]string, len(items))
	for i, item := range items {
		result[i] = prefix + "- " + item
	}
	return result
}
