package query

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/zmrishh/moneyai/internal/models"
)

// EvalContext provides context for query evaluation
type EvalContext struct {
	Now time.Time // for relative date calculation
}

// NewEvalContext creates a new evaluation context
func NewEvalContext() *EvalContext {
	return &EvalContext{Now: time.Now()}
}

// Evaluator converts a Query AST into an in-memory transaction matcher.
// Amount comparisons use exact decimal arithmetic. Date equality is
// day-granular; ordered date comparisons compare against midnight of the
// resolved day.
type Evaluator struct {
	ctx   *EvalContext
	query *Query
}

// NewEvaluator creates a new query evaluator
func NewEvaluator(ctx *EvalContext, query *Query) *Evaluator {
	return &Evaluator{ctx: ctx, query: query}
}

// ToMatcher returns a function that matches transactions in memory
func (e *Evaluator) ToMatcher() (func(models.Transaction) bool, error) {
	if e.query.Root == nil {
		return func(models.Transaction) bool { return true }, nil
	}
	return e.nodeToMatcher(e.query.Root)
}

func (e *Evaluator) nodeToMatcher(n Node) (func(models.Transaction) bool, error) {
	switch node := n.(type) {
	case *BinaryExpr:
		leftMatcher, err := e.nodeToMatcher(node.Left)
		if err != nil {
			return nil, err
		}
		rightMatcher, err := e.nodeToMatcher(node.Right)
		if err != nil {
			return nil, err
		}
		if node.Op == OpAnd {
			return func(tx models.Transaction) bool {
				return leftMatcher(tx) && rightMatcher(tx)
			}, nil
		}
		return func(tx models.Transaction) bool {
			return leftMatcher(tx) || rightMatcher(tx)
		}, nil

	case *UnaryExpr:
		matcher, err := e.nodeToMatcher(node.Expr)
		if err != nil {
			return nil, err
		}
		return func(tx models.Transaction) bool {
			return !matcher(tx)
		}, nil

	case *FieldExpr:
		return e.fieldExprToMatcher(node)

	case *FunctionCall:
		return e.functionToMatcher(node)

	case *TextSearch:
		pattern := strings.ToLower(node.Text)
		return func(tx models.Transaction) bool {
			return strings.Contains(strings.ToLower(tx.Merchant), pattern) ||
				strings.Contains(strings.ToLower(tx.Note), pattern) ||
				strings.Contains(strings.ToLower(tx.Category), pattern)
		}, nil

	default:
		return nil, fmt.Errorf("unsupported node type for matcher: %T", n)
	}
}

func (e *Evaluator) fieldExprToMatcher(node *FieldExpr) (func(models.Transaction) bool, error) {
	value := e.resolveValue(node.Value)

	getter := fieldGetter(node.Field)
	if getter == nil {
		return func(models.Transaction) bool { return true }, nil
	}

	switch node.Operator {
	case OpEq:
		return func(tx models.Transaction) bool {
			return compareEqual(getter(tx), value)
		}, nil
	case OpNeq:
		return func(tx models.Transaction) bool {
			return !compareEqual(getter(tx), value)
		}, nil
	case OpContains:
		pattern := strings.ToLower(fmt.Sprintf("%v", value))
		return func(tx models.Transaction) bool {
			fieldVal := strings.ToLower(fmt.Sprintf("%v", getter(tx)))
			return strings.Contains(fieldVal, pattern)
		}, nil
	case OpNotContains:
		pattern := strings.ToLower(fmt.Sprintf("%v", value))
		return func(tx models.Transaction) bool {
			fieldVal := strings.ToLower(fmt.Sprintf("%v", getter(tx)))
			return !strings.Contains(fieldVal, pattern)
		}, nil
	case OpLt, OpGt, OpLte, OpGte:
		return func(tx models.Transaction) bool {
			return compareOrder(getter(tx), value, node.Operator)
		}, nil
	default:
		return func(models.Transaction) bool { return true }, nil
	}
}

func fieldGetter(field string) func(models.Transaction) interface{} {
	switch field {
	case "id":
		return func(tx models.Transaction) interface{} { return tx.ID }
	case "amount":
		return func(tx models.Transaction) interface{} { return tx.Amount }
	case "category":
		return func(tx models.Transaction) interface{} { return tx.Category }
	case "type":
		return func(tx models.Transaction) interface{} { return string(tx.Type) }
	case "merchant":
		return func(tx models.Transaction) interface{} { return tx.Merchant }
	case "account":
		return func(tx models.Transaction) interface{} { return tx.Account }
	case "source":
		return func(tx models.Transaction) interface{} { return string(tx.Source) }
	case "note":
		return func(tx models.Transaction) interface{} { return tx.Note }
	case "date", "occurred_at":
		return func(tx models.Transaction) interface{} { return tx.OccurredAt }
	default:
		return nil
	}
}

// compareEqual compares a field value against a query value.
// Money fields compare by exact decimal equality, dates by calendar day,
// strings case-insensitively.
func compareEqual(a, b interface{}) bool {
	switch av := a.(type) {
	case models.Money:
		if d, ok := toDecimal(b); ok {
			return av.Amount.Equal(d)
		}
		return false
	case time.Time:
		return av.Format("2006-01-02") == fmt.Sprintf("%v", b)
	default:
		return strings.EqualFold(fmt.Sprintf("%v", a), fmt.Sprintf("%v", b))
	}
}

func compareOrder(a, b interface{}, op string) bool {
	switch av := a.(type) {
	case models.Money:
		d, ok := toDecimal(b)
		if !ok {
			return false
		}
		return cmpResult(av.Amount.Cmp(d), op)
	case time.Time:
		t, err := time.Parse("2006-01-02", fmt.Sprintf("%v", b))
		if err != nil {
			return false
		}
		return cmpResult(compareTimes(av, t), op)
	default:
		as := fmt.Sprintf("%v", a)
		bs := fmt.Sprintf("%v", b)
		return cmpResult(strings.Compare(as, bs), op)
	}
}

func compareTimes(a, b time.Time) int {
	if a.Before(b) {
		return -1
	}
	if a.After(b) {
		return 1
	}
	return 0
}

func cmpResult(cmp int, op string) bool {
	switch op {
	case OpLt:
		return cmp < 0
	case OpGt:
		return cmp > 0
	case OpLte:
		return cmp <= 0
	case OpGte:
		return cmp >= 0
	default:
		return false
	}
}

func toDecimal(v interface{}) (decimal.Decimal, bool) {
	switch val := v.(type) {
	case decimal.Decimal:
		return val, true
	case string:
		d, err := decimal.NewFromString(val)
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	default:
		return decimal.Zero, false
	}
}

func (e *Evaluator) functionToMatcher(node *FunctionCall) (func(models.Transaction) bool, error) {
	switch node.Name {
	case "has":
		if len(node.Args) < 1 {
			return nil, fmt.Errorf("has() requires 1 argument")
		}
		field := fmt.Sprintf("%v", node.Args[0])
		getter := fieldGetter(field)
		if getter == nil {
			return func(models.Transaction) bool { return false }, nil
		}
		return func(tx models.Transaction) bool {
			switch v := getter(tx).(type) {
			case string:
				return v != ""
			case models.Money:
				return !v.IsZero()
			case time.Time:
				return !v.IsZero()
			default:
				return v != nil
			}
		}, nil

	case "is":
		if len(node.Args) < 1 {
			return nil, fmt.Errorf("is() requires 1 argument")
		}
		txType := fmt.Sprintf("%v", node.Args[0])
		return func(tx models.Transaction) bool {
			return strings.EqualFold(string(tx.Type), txType)
		}, nil

	case "any":
		if len(node.Args) < 2 {
			return nil, fmt.Errorf("any() requires at least 2 arguments")
		}
		field := fmt.Sprintf("%v", node.Args[0])
		getter := fieldGetter(field)
		if getter == nil {
			return func(models.Transaction) bool { return false }, nil
		}
		values := make([]interface{}, len(node.Args)-1)
		for i := 1; i < len(node.Args); i++ {
			values[i-1] = e.resolveValue(node.Args[i])
		}
		return func(tx models.Transaction) bool {
			fieldVal := getter(tx)
			for _, v := range values {
				if compareEqual(fieldVal, v) {
					return true
				}
			}
			return false
		}, nil

	case "between":
		if len(node.Args) != 2 {
			return nil, fmt.Errorf("between() requires 2 arguments")
		}
		start, err := e.resolveDateArg(node.Args[0])
		if err != nil {
			return nil, err
		}
		end, err := e.resolveDateArg(node.Args[1])
		if err != nil {
			return nil, err
		}
		// Inclusive of both days
		endExclusive := end.AddDate(0, 0, 1)
		return func(tx models.Transaction) bool {
			return !tx.OccurredAt.Before(start) && tx.OccurredAt.Before(endExclusive)
		}, nil

	case "over":
		if len(node.Args) < 1 {
			return nil, fmt.Errorf("over() requires 1 argument")
		}
		d, ok := toDecimal(node.Args[0])
		if !ok {
			return nil, fmt.Errorf("over() requires a numeric amount")
		}
		return func(tx models.Transaction) bool {
			return tx.Amount.Amount.Cmp(d) > 0
		}, nil

	case "under":
		if len(node.Args) < 1 {
			return nil, fmt.Errorf("under() requires 1 argument")
		}
		d, ok := toDecimal(node.Args[0])
		if !ok {
			return nil, fmt.Errorf("under() requires a numeric amount")
		}
		return func(tx models.Transaction) bool {
			return tx.Amount.Amount.Cmp(d) < 0
		}, nil

	default:
		return nil, fmt.Errorf("unknown function: %s", node.Name)
	}
}

// resolveDateArg resolves a date function argument to midnight of that day
func (e *Evaluator) resolveDateArg(arg interface{}) (time.Time, error) {
	dv, ok := arg.(*DateValue)
	if !ok {
		return time.Time{}, fmt.Errorf("expected date argument, got %v", arg)
	}
	resolved := fmt.Sprintf("%v", e.resolveDate(dv))
	t, err := time.Parse("2006-01-02", resolved)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date: %s", dv.Raw)
	}
	return t, nil
}

func (e *Evaluator) resolveValue(v interface{}) interface{} {
	if dv, ok := v.(*DateValue); ok {
		return e.resolveDate(dv)
	}
	return v
}

func (e *Evaluator) resolveDate(d *DateValue) interface{} {
	if !d.Relative {
		return d.Raw
	}

	now := e.ctx.Now

	switch d.Raw {
	case "today":
		return now.Format("2006-01-02")
	case "yesterday":
		return now.AddDate(0, 0, -1).Format("2006-01-02")
	case "this_week":
		// Start of current week (Monday)
		weekday := int(now.Weekday())
		if weekday == 0 {
			weekday = 7
		}
		return now.AddDate(0, 0, -(weekday - 1)).Format("2006-01-02")
	case "last_week":
		weekday := int(now.Weekday())
		if weekday == 0 {
			weekday = 7
		}
		return now.AddDate(0, 0, -(weekday-1)-7).Format("2006-01-02")
	case "this_month":
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).Format("2006-01-02")
	case "last_month":
		return time.Date(now.Year(), now.Month()-1, 1, 0, 0, 0, 0, now.Location()).Format("2006-01-02")
	default:
		// Parse relative offset like -30d, +2w
		return e.parseRelativeOffset(d.Raw)
	}
}

func (e *Evaluator) parseRelativeOffset(s string) string {
	if len(s) < 2 {
		return s
	}

	sign := 1
	start := 0
	if s[0] == '-' {
		sign = -1
		start = 1
	} else if s[0] == '+' {
		start = 1
	}

	unit := s[len(s)-1]
	numStr := s[start : len(s)-1]
	num, err := strconv.Atoi(numStr)
	if err != nil {
		return s
	}

	num *= sign
	now := e.ctx.Now

	switch unit {
	case 'd':
		return now.AddDate(0, 0, num).Format("2006-01-02")
	case 'w':
		return now.AddDate(0, 0, num*7).Format("2006-01-02")
	case 'm':
		return now.AddDate(0, num, 0).Format("2006-01-02")
	case 'y':
		return now.AddDate(num, 0, 0).Format("2006-01-02")
	default:
		return s
	}
}
