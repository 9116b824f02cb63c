package models

import (
	"time"
)

// TransactionType represents the direction of a transaction
type TransactionType string

const (
	TransactionIncome  TransactionType = "income"
	TransactionExpense TransactionType = "expense"
)

// TransactionSource represents how a transaction entered the ledger
type TransactionSource string

const (
	SourceManual TransactionSource = "manual"
	SourceImport TransactionSource = "import"
	SourceAA     TransactionSource = "aa"
)

// Period represents a budget period
type Period string

const (
	PeriodWeekly    Period = "weekly"
	PeriodMonthly   Period = "monthly"
	PeriodQuarterly Period = "quarterly"
	PeriodYearly    Period = "yearly"
)

// Recurrence represents how often a bill repeats
type Recurrence string

const (
	RecurNone      Recurrence = "none"
	RecurMonthly   Recurrence = "monthly"
	RecurQuarterly Recurrence = "quarterly"
	RecurYearly    Recurrence = "yearly"
)

// BillingCycle represents a subscription billing cycle
type BillingCycle string

const (
	CycleWeekly    BillingCycle = "weekly"
	CycleMonthly   BillingCycle = "monthly"
	CycleQuarterly BillingCycle = "quarterly"
	CycleYearly    BillingCycle = "yearly"
)

// DebtKind distinguishes money the user owes from money owed to the user
type DebtKind string

const (
	DebtOwe  DebtKind = "owe"
	DebtOwed DebtKind = "owed"
)

// GoalKind represents the purpose of a savings goal
type GoalKind string

const (
	GoalSavings       GoalKind = "savings"
	GoalDebtPayoff    GoalKind = "debt_payoff"
	GoalInvestment    GoalKind = "investment"
	GoalEmergencyFund GoalKind = "emergency_fund"
)

// GoalPriority represents goal priority
type GoalPriority string

const (
	PriorityLow    GoalPriority = "low"
	PriorityMedium GoalPriority = "medium"
	PriorityHigh   GoalPriority = "high"
)

// ConsentStatus represents the lifecycle state of an AA consent
type ConsentStatus string

const (
	ConsentActive  ConsentStatus = "ACTIVE"
	ConsentPaused  ConsentStatus = "PAUSED"
	ConsentRevoked ConsentStatus = "REVOKED"
	ConsentExpired ConsentStatus = "EXPIRED"
)

// Transaction represents a single income or expense entry
type Transaction struct {
	ID              string            `json:"id"`
	Amount          Money             `json:"amount"`
	Type            TransactionType   `json:"type"`
	Category        string            `json:"category"`
	Merchant        string            `json:"merchant,omitempty"`
	Account         string            `json:"account,omitempty"`
	Note            string            `json:"note,omitempty"`
	Source          TransactionSource `json:"source"`
	OccurredAt      time.Time         `json:"occurred_at"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
	DeletedAt       *time.Time        `json:"deleted_at,omitempty"`
	AATransactionID string            `json:"aa_transaction_id,omitempty"`
}

// Budget represents a per-category spending limit
type Budget struct {
	ID             string    `json:"id"`
	Category       string    `json:"category"`
	Amount         Money     `json:"amount"`
	Period         Period    `json:"period"`
	AlertThreshold int       `json:"alert_threshold"` // percent, default 80
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// BudgetProgress pairs a budget with its spending for the current period
type BudgetProgress struct {
	Budget  Budget    `json:"budget"`
	Spent   Money     `json:"spent"`
	Percent float64   `json:"percent"`
	From    time.Time `json:"from"`
	To      time.Time `json:"to"`
}

// Bill represents a one-off or recurring payable
type Bill struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Amount       Money      `json:"amount"`
	DueDate      time.Time  `json:"due_date"`
	Recurrence   Recurrence `json:"recurrence"`
	ReminderDays int        `json:"reminder_days"` // default 3
	Autopay      bool       `json:"autopay,omitempty"`
	Category     string     `json:"category,omitempty"`
	Paid         bool       `json:"paid"`
	PaidAt       *time.Time `json:"paid_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Debt represents money owed by or to the user
type Debt struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Kind         DebtKind   `json:"kind"`
	Counterparty string     `json:"counterparty,omitempty"`
	Principal    Money      `json:"principal"`
	Remaining    Money      `json:"remaining"`
	DueDate      *time.Time `json:"due_date,omitempty"`
	Settled      bool       `json:"settled"`
	SettledAt    *time.Time `json:"settled_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// DebtPayment represents one payment against a debt
type DebtPayment struct {
	ID     int64     `json:"id"`
	DebtID string    `json:"debt_id"`
	Amount Money     `json:"amount"`
	Note   string    `json:"note,omitempty"`
	PaidAt time.Time `json:"paid_at"`
}

// Subscription represents a recurring paid service
type Subscription struct {
	ID              string       `json:"id"`
	Name            string       `json:"name"`
	Amount          Money        `json:"amount"`
	BillingCycle    BillingCycle `json:"billing_cycle"`
	NextBillingDate time.Time    `json:"next_billing_date"`
	Category        string       `json:"category,omitempty"`
	Active          bool         `json:"active"`
	CancelledAt     *time.Time   `json:"cancelled_at,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// GoalContribution represents one deposit toward a goal
type GoalContribution struct {
	ID            int64     `json:"id"`
	GoalID        string    `json:"goal_id"`
	Amount        Money     `json:"amount"`
	Note          string    `json:"note,omitempty"`
	ContributedAt time.Time `json:"contributed_at"`
}

// PriceChange records a subscription price revision
type PriceChange struct {
	ID             int64     `json:"id"`
	SubscriptionID string    `json:"subscription_id"`
	OldAmount      Money     `json:"old_amount"`
	NewAmount      Money     `json:"new_amount"`
	ChangedAt      time.Time `json:"changed_at"`
}

// Goal represents a savings goal
type Goal struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Kind       GoalKind     `json:"kind"`
	Target     Money        `json:"target"`
	Saved      Money        `json:"saved"`
	TargetDate *time.Time   `json:"target_date,omitempty"`
	Priority   GoalPriority `json:"priority"`
	Completed  bool         `json:"completed"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// Connection represents a bank account linked through the AA journey
type Connection struct {
	ID                  string        `json:"id"`
	FIPID               string        `json:"fip_id"`
	FIPName             string        `json:"fip_name"`
	AccountReference    string        `json:"account_reference"`
	MaskedAccountNumber string        `json:"masked_account_number"`
	AccountType         string        `json:"account_type,omitempty"`
	FIType              string        `json:"fi_type,omitempty"`
	ConsentID           string        `json:"consent_id,omitempty"`
	ConsentStatus       ConsentStatus `json:"consent_status"`
	ConsentExpiresAt    *time.Time    `json:"consent_expires_at,omitempty"`
	LinkedAt            time.Time     `json:"linked_at"`
	LastSyncedAt        *time.Time    `json:"last_synced_at,omitempty"`
}

// Config holds per-user settings persisted outside the database
type Config struct {
	Currency   string `json:"currency,omitempty"`
	GatewayURL string `json:"gateway_url,omitempty"`
	BackendURL string `json:"backend_url,omitempty"`
	AuthToken  string `json:"auth_token,omitempty"`
	AuthEmail  string `json:"auth_email,omitempty"`
	JSONOutput bool   `json:"json_output,omitempty"`
}

// ActionType represents the kind of mutation recorded in the activity trail
type ActionType string

const (
	ActionCreate     ActionType = "create"
	ActionUpdate     ActionType = "update"
	ActionDelete     ActionType = "delete"
	ActionPay        ActionType = "pay"
	ActionRenew      ActionType = "renew"
	ActionCancel     ActionType = "cancel"
	ActionContribute ActionType = "contribute"
	ActionMilestone  ActionType = "milestone"
	ActionSettle     ActionType = "settle"
	ActionLink       ActionType = "link"
	ActionUnlink     ActionType = "unlink"
)

// EntityType names the ledger entities referenced by activity entries
type EntityType string

const (
	EntityTransaction  EntityType = "transaction"
	EntityBudget       EntityType = "budget"
	EntityBill         EntityType = "bill"
	EntityDebt         EntityType = "debt"
	EntitySubscription EntityType = "subscription"
	EntityGoal         EntityType = "goal"
	EntityConnection   EntityType = "connection"
)

// Activity represents one entry in the append-only audit trail
type Activity struct {
	ID         int64      `json:"id"`
	ActionType ActionType `json:"action_type"`
	EntityType EntityType `json:"entity_type"`
	EntityID   string     `json:"entity_id"`
	Detail     string     `json:"detail,omitempty"` // JSON payload
	Timestamp  time.Time  `json:"timestamp"`
}

// IsValidTransactionType checks if a transaction type is valid
func IsValidTransactionType(t TransactionType) bool {
	switch t {
	case TransactionIncome, TransactionExpense:
		return true
	}
	return false
}

// IsValidSource checks if a transaction source is valid
func IsValidSource(s TransactionSource) bool {
	switch s {
	case SourceManual, SourceImport, SourceAA:
		return true
	}
	return false
}

// IsValidPeriod checks if a budget period is valid
func IsValidPeriod(p Period) bool {
	switch p {
	case PeriodWeekly, PeriodMonthly, PeriodQuarterly, PeriodYearly:
		return true
	}
	return false
}

// IsValidRecurrence checks if a bill recurrence is valid
func IsValidRecurrence(r Recurrence) bool {
	switch r {
	case RecurNone, RecurMonthly, RecurQuarterly, RecurYearly:
		return true
	}
	return false
}

// IsValidBillingCycle checks if a subscription billing cycle is valid
func IsValidBillingCycle(c BillingCycle) bool {
	switch c {
	case CycleWeekly, CycleMonthly, CycleQuarterly, CycleYearly:
		return true
	}
	return false
}

// IsValidDebtKind checks if a debt kind is valid
func IsValidDebtKind(k DebtKind) bool {
	switch k {
	case DebtOwe, DebtOwed:
		return true
	}
	return false
}

// IsValidGoalKind checks if a goal kind is valid
func IsValidGoalKind(k GoalKind) bool {
	switch k {
	case GoalSavings, GoalDebtPayoff, GoalInvestment, GoalEmergencyFund:
		return true
	}
	return false
}

// IsValidGoalPriority checks if a goal priority is valid
func IsValidGoalPriority(p GoalPriority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// IsValidConsentStatus checks if a consent status is valid
func IsValidConsentStatus(s ConsentStatus) bool {
	switch s {
	case ConsentActive, ConsentPaused, ConsentRevoked, ConsentExpired:
		return true
	}
	return false
}

// NormalizeTransactionType converts alternate spellings to canonical form
// Accepts: "in"/"credit" for income, "out"/"debit"/"spend" for expense
func NormalizeTransactionType(t string) TransactionType {
	switch t {
	case "in", "credit":
		return TransactionIncome
	case "out", "debit", "spend":
		return TransactionExpense
	default:
		return TransactionType(t)
	}
}

// NormalizePeriod converts alternate period names to canonical form
// Accepts singular forms: "week", "month", "quarter", "year"
func NormalizePeriod(p string) Period {
	switch p {
	case "week":
		return PeriodWeekly
	case "month":
		return PeriodMonthly
	case "quarter":
		return PeriodQuarterly
	case "year":
		return PeriodYearly
	default:
		return Period(p)
	}
}

// NormalizeBillingCycle converts alternate cycle names to canonical form
func NormalizeBillingCycle(c string) BillingCycle {
	switch c {
	case "week":
		return CycleWeekly
	case "month":
		return CycleMonthly
	case "quarter":
		return CycleQuarterly
	case "year", "annual", "annually":
		return CycleYearly
	default:
		return BillingCycle(c)
	}
}

// NormalizeGoalKind converts alternate kind names to canonical form
// Accepts: "emergency" for emergency_fund, "debt" for debt_payoff
func NormalizeGoalKind(k string) GoalKind {
	switch k {
	case "emergency":
		return GoalEmergencyFund
	case "debt":
		return GoalDebtPayoff
	default:
		return GoalKind(k)
	}
}

// PeriodStart returns the start of the period window containing now.
// Weekly periods start on Monday; quarterly on the calendar quarter.
func PeriodStart(p Period, now time.Time) time.Time {
	year, month, day := now.Date()
	switch p {
	case PeriodWeekly:
		offset := (int(now.Weekday()) - int(time.Monday) + 7) % 7
		return time.Date(year, month, day-offset, 0, 0, 0, 0, now.Location())
	case PeriodMonthly:
		return time.Date(year, month, 1, 0, 0, 0, 0, now.Location())
	case PeriodQuarterly:
		qm := time.Month((int(month)-1)/3*3 + 1)
		return time.Date(year, qm, 1, 0, 0, 0, 0, now.Location())
	case PeriodYearly:
		return time.Date(year, time.January, 1, 0, 0, 0, 0, now.Location())
	}
	return time.Date(year, month, 1, 0, 0, 0, 0, now.Location())
}

// PeriodEnd returns the exclusive end of the period window containing now.
func PeriodEnd(p Period, now time.Time) time.Time {
	start := PeriodStart(p, now)
	switch p {
	case PeriodWeekly:
		return start.AddDate(0, 0, 7)
	case PeriodMonthly:
		return start.AddDate(0, 1, 0)
	case PeriodQuarterly:
		return start.AddDate(0, 3, 0)
	case PeriodYearly:
		return start.AddDate(1, 0, 0)
	}
	return start.AddDate(0, 1, 0)
}

// NextRecurrence returns the due date one recurrence cycle after from.
// Returns from unchanged for RecurNone.
func NextRecurrence(r Recurrence, from time.Time) time.Time {
	switch r {
	case RecurMonthly:
		return from.AddDate(0, 1, 0)
	case RecurQuarterly:
		return from.AddDate(0, 3, 0)
	case RecurYearly:
		return from.AddDate(1, 0, 0)
	}
	return from
}

// NextBilling returns the billing date one cycle after from.
func NextBilling(c BillingCycle, from time.Time) time.Time {
	switch c {
	case CycleWeekly:
		return from.AddDate(0, 0, 7)
	case CycleMonthly:
		return from.AddDate(0, 1, 0)
	case CycleQuarterly:
		return from.AddDate(0, 3, 0)
	case CycleYearly:
		return from.AddDate(1, 0, 0)
	}
	return from
}

// GoalMilestones are the saved/target percentages recorded in the activity trail
func GoalMilestones() []int {
	return []int{25, 50, 75, 100}
}
