package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/ahosny-dev/wallet-ledger/internal/models"
)

// ComputeStats derives per-wallet stats from the transaction log and the
// opening balances. It is a pure single-pass fold: deposits add, withdrawals
// subtract. A withdrawal that is half of a transfer still subtracts from its
// source wallet; transfers are two ordinary entries that happen to be linked.
func ComputeStats(transactions []models.Transaction, settings models.Settings) []models.WalletStats {
	deposits := make(map[models.Wallet]decimal.Decimal, len(models.AllWallets))
	withdrawals := make(map[models.Wallet]decimal.Decimal, len(models.AllWallets))
	counts := make(map[models.Wallet]int, len(models.AllWallets))

	for _, t := range transactions {
		counts[t.Wallet]++
		if t.Type == models.TypeDeposit {
			deposits[t.Wallet] = deposits[t.Wallet].Add(t.Amount)
		} else {
			withdrawals[t.Wallet] = withdrawals[t.Wallet].Add(t.Amount)
		}
	}

	stats := make([]models.WalletStats, 0, len(models.AllWallets))
	for _, w := range models.AllWallets {
		opening := settings.Opening(w)
		stats = append(stats, models.WalletStats{
			Wallet:           w,
			Balance:          opening.Add(deposits[w]).Sub(withdrawals[w]),
			TotalDeposits:    deposits[w],
			TotalWithdrawals: withdrawals[w],
			TransactionCount: counts[w],
		})
	}
	return stats
}
