package models

import (
	"github.com/shopspring/decimal"
)

// Settings holds the opening balance per wallet. There is a single settings
// record per installation; it changes only through explicit user action or
// a factory reset.
type Settings struct {
	OpeningBalances map[Wallet]decimal.Decimal `json:"openingBalances"`
}

// DefaultSettings returns settings with a zero opening balance per wallet.
func DefaultSettings() Settings {
	balances := make(map[Wallet]decimal.Decimal, len(AllWallets))
	for _, w := range AllWallets {
		balances[w] = decimal.Zero
	}
	return Settings{OpeningBalances: balances}
}

// Opening returns the opening balance for a wallet, zero if unset.
func (s Settings) Opening(w Wallet) decimal.Decimal {
	if b, ok := s.OpeningBalances[w]; ok {
		return b
	}
	return decimal.Zero
}

// WalletStats is the derived per-wallet view. It is never persisted and is
// always rebuilt from settings plus the transaction log.
type WalletStats struct {
	Wallet           Wallet          `json:"wallet"`
	Balance          decimal.Decimal `json:"balance"`
	TotalDeposits    decimal.Decimal `json:"totalDeposits"`
	TotalWithdrawals decimal.Decimal `json:"totalWithdrawals"`
	TransactionCount int             `json:"transactionCount"`
}
