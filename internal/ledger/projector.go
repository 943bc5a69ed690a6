package ledger

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/ahosny-dev/wallet-ledger/internal/models"
)

// ProjectedEntry pairs a transaction with its wallet's balance immediately
// after the entry is applied in chronological order.
type ProjectedEntry struct {
	Transaction    models.Transaction
	RunningBalance decimal.Decimal
}

// Project computes the chronological running balance per wallet.
//
// Entries are stable-sorted by business date, so same-day entries keep their
// relative input order. The fold is sequential and order-dependent: the
// output is one interleaved list across all wallets, as the export template
// expects it.
func Project(transactions []models.Transaction, settings models.Settings) []ProjectedEntry {
	sorted := make([]models.Transaction, len(transactions))
	copy(sorted, transactions)
	// Dates are ISO strings, so lexicographic order is chronological.
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date < sorted[j].Date
	})

	running := make(map[models.Wallet]decimal.Decimal, len(models.AllWallets))
	for _, w := range models.AllWallets {
		running[w] = settings.Opening(w)
	}

	entries := make([]ProjectedEntry, 0, len(sorted))
	for _, t := range sorted {
		if t.Type == models.TypeDeposit {
			running[t.Wallet] = running[t.Wallet].Add(t.Amount)
		} else {
			running[t.Wallet] = running[t.Wallet].Sub(t.Amount)
		}
		entries = append(entries, ProjectedEntry{Transaction: t, RunningBalance: running[t.Wallet]})
	}
	return entries
}
