package query

import (
	"fmt"
	"strings"
)

// Node is the interface for all AST nodes
type Node interface {
	String() string
	nodeType() string
}

// BinaryExpr represents a binary expression (AND, OR)
type BinaryExpr struct {
	Op    string // "AND" or "OR"
	Left  Node
	Right Node
}

func (b *BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", b.Left.String(), b.Op, b.Right.String())
}

func (b *BinaryExpr) nodeType() string { return "BinaryExpr" }

// UnaryExpr represents a unary expression (NOT)
type UnaryExpr struct {
	Op   string // "NOT"
	Expr Node
}

func (u *UnaryExpr) String() string {
	return fmt.Sprintf("(%s %s)", u.Op, u.Expr.String())
}

func (u *UnaryExpr) nodeType() string { return "UnaryExpr" }

// FieldExpr represents a field comparison (field op value)
type FieldExpr struct {
	Field    string      // e.g., "amount", "category"
	Operator string      // =, !=, ~, !~, <, >, <=, >=
	Value    interface{} // string, decimal.Decimal, or *DateValue
}

func (f *FieldExpr) String() string {
	return fmt.Sprintf("%s %s %v", f.Field, f.Operator, f.Value)
}

func (f *FieldExpr) nodeType() string { return "FieldExpr" }

// FunctionCall represents a function call like has(merchant), is(expense)
type FunctionCall struct {
	Name string
	Args []interface{}
}

func (fn *FunctionCall) String() string {
	args := make([]string, len(fn.Args))
	for i, arg := range fn.Args {
		args[i] = fmt.Sprintf("%v", arg)
	}
	return fmt.Sprintf("%s(%s)", fn.Name, strings.Join(args, ", "))
}

func (fn *FunctionCall) nodeType() string { return "FunctionCall" }

// TextSearch represents a bare text search (searches merchant, note, category)
type TextSearch struct {
	Text string
}

func (t *TextSearch) String() string {
	return fmt.Sprintf(`"%s"`, t.Text)
}

func (t *TextSearch) nodeType() string { return "TextSearch" }

// DateValue represents a date (absolute or relative)
type DateValue struct {
	Raw      string // original value: "2026-08-01", "-30d", "today", etc.
	Relative bool   // true if relative date
}

func (d *DateValue) String() string {
	return d.Raw
}

// Operator constants
const (
	OpEq          = "="
	OpNeq         = "!="
	OpLt          = "<"
	OpGt          = ">"
	OpLte         = "<="
	OpGte         = ">="
	OpContains    = "~"
	OpNotContains = "!~"
)

// Boolean operator constants
const (
	OpAnd = "AND"
	OpOr  = "OR"
	OpNot = "NOT"
)

// Known field names for validation
var KnownFields = map[string]string{
	"id":       "string",
	"amount":   "money",
	"category": "string",
	"type":     "enum",
	"merchant": "string",
	"account":  "string",
	"source":   "enum",
	"note":     "string",
	"date":     "date",
}

// Enum values for validation
var EnumValues = map[string][]string{
	"type":   {"income", "expense"},
	"source": {"manual", "import", "aa"},
}

// Known functions
var KnownFunctions = map[string]struct {
	MinArgs int
	MaxArgs int
	Help    string
}{
	"has":     {1, 1, "has(field) - field is not empty"},
	"is":      {1, 1, "is(income|expense) - shorthand for type check"},
	"any":     {2, -1, "any(field, v1, v2, ...) - field matches any value"},
	"between": {2, 2, "between(date1, date2) - occurred within range, inclusive"},
	"over":    {1, 1, "over(amount) - amount greater than"},
	"under":   {1, 1, "under(amount) - amount less than"},
}

// SortClause represents a sort specification
type SortClause struct {
	Field      string // DB column name (e.g., "occurred_at", "amount")
	Descending bool   // true for descending order
}

func (s *SortClause) String() string {
	if s.Descending {
		return fmt.Sprintf("sort:-%s", s.Field)
	}
	return fmt.Sprintf("sort:%s", s.Field)
}

// SortFieldToColumn maps user-facing sort field names to DB columns
var SortFieldToColumn = map[string]string{
	"date":     "occurred_at",
	"created":  "created_at",
	"amount":   "amount",
	"category": "category",
}

// Query represents a parsed TXQ query
type Query struct {
	Root Node
	Raw  string      // original query string
	Sort *SortClause // optional sort clause
}

func (q *Query) String() string {
	var parts []string
	if q.Root != nil {
		parts = append(parts, q.Root.String())
	}
	if q.Sort != nil {
		parts = append(parts, q.Sort.String())
	}
	return strings.Join(parts, " ")
}
