package query

import (
	"fmt"

	"github.com/zmrishh/moneyai/internal/db"
	"github.com/zmrishh/moneyai/internal/models"
)

// DefaultMaxResults limits in-memory filtering to prevent OOM
const DefaultMaxResults = 10000

// ExecuteOptions contains options for query execution
type ExecuteOptions struct {
	Limit      int
	SortBy     string
	SortDesc   bool
	MaxResults int // Max transactions to process in-memory (0 = DefaultMaxResults)
}

// Execute parses and executes a TXQ query against the ledger.
// The store applies sorting; filtering happens in memory so amount
// comparisons stay exact.
func Execute(store *db.DB, queryStr string, opts ExecuteOptions) ([]models.Transaction, error) {
	parsed, err := Parse(queryStr)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}

	if errs := parsed.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("validation error: %v", errs[0])
	}

	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	// Sort clause in the query takes precedence over opts
	sortBy := opts.SortBy
	sortDesc := opts.SortDesc
	if parsed.Sort != nil {
		sortBy = parsed.Sort.Field
		sortDesc = parsed.Sort.Descending
	}

	txs, err := store.ListTransactions(db.ListTransactionsOptions{
		SortBy:   sortBy,
		SortDesc: sortDesc,
		Limit:    maxResults, // cap fetch to prevent loading an unbounded ledger
	})
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}

	matcher, err := NewEvaluator(NewEvalContext(), parsed).ToMatcher()
	if err != nil {
		return nil, fmt.Errorf("matcher error: %w", err)
	}

	var filtered []models.Transaction
	for _, tx := range txs {
		if matcher(tx) {
			filtered = append(filtered, tx)
		}
	}

	if opts.Limit > 0 && len(filtered) > opts.Limit {
		filtered = filtered[:opts.Limit]
	}

	return filtered, nil
}
