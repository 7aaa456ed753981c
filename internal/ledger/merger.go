// Package ledger combines normalized transaction batches into the canonical
// ledger, deduplicating by external order ID.
package ledger

import (
	"sort"

	"github.com/aristath/stockfolio/internal/domain"
)

// Merge appends incoming transactions to the existing ledger, dropping any
// whose external order ID is already present. Transactions without an order
// ID have no identity and are always appended; repeated imports of a file
// containing such rows will duplicate them, a deliberate compatibility
// compromise with brokers that export no stable identifiers.
//
// The result is sorted newest-first for display; aggregation does not rely
// on this ordering.
func Merge(existing, incoming []domain.Transaction) (merged []domain.Transaction, added, duplicates int) {
	seen := make(map[string]bool, len(existing))
	for _, tx := range existing {
		if key, ok := tx.OrderKey(); ok {
			seen[key] = true
		}
	}

	merged = make([]domain.Transaction, 0, len(existing)+len(incoming))
	merged = append(merged, existing...)

	for _, tx := range incoming {
		if key, ok := tx.OrderKey(); ok {
			if seen[key] {
				duplicates++
				continue
			}
			seen[key] = true
		}
		merged = append(merged, tx)
		added++
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Timestamp.After(merged[j].Timestamp)
	})

	return merged, added, duplicates
}
