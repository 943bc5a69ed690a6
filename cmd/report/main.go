package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"

	"github.com/ahosny-dev/wallet-ledger/internal/ledger"
	"github.com/ahosny-dev/wallet-ledger/internal/models"
	"github.com/ahosny-dev/wallet-ledger/internal/services"
)

// report prints the per-wallet balance summary as a terminal table. It reads
// the same table storage the service uses.
func main() {
	walletFilter := flag.String("wallet", "", "limit the report to one wallet code")
	flag.Parse()

	if err := godotenv.Load(); err == nil {
		slog.Info("loaded environment from .env")
	}

	dbService, err := services.NewDatabaseService()
	if err != nil {
		slog.Error("Failed to init DatabaseService", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	transactions, err := dbService.ListTransactions(ctx)
	if err != nil {
		slog.Error("Failed to list transactions", "error", err)
		os.Exit(1)
	}
	settings, err := dbService.GetSettings(ctx)
	if err != nil {
		slog.Error("Failed to load settings", "error", err)
		os.Exit(1)
	}

	stats := ledger.ComputeStats(transactions, settings)

	var onlyWallet models.Wallet
	if *walletFilter != "" {
		onlyWallet, err = models.ParseWallet(*walletFilter)
		if err != nil {
			slog.Error("Unknown wallet", "wallet", *walletFilter)
			os.Exit(1)
		}
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Wallet", "Opening", "Deposits", "Withdrawals", "Balance", "Entries"})
	for _, s := range stats {
		if onlyWallet != "" && s.Wallet != onlyWallet {
			continue
		}
		table.Append([]string{
			s.Wallet.Label(),
			settings.Opening(s.Wallet).StringFixed(2),
			s.TotalDeposits.StringFixed(2),
			s.TotalWithdrawals.StringFixed(2),
			s.Balance.StringFixed(2),
			strconv.Itoa(s.TransactionCount),
		})
	}
	table.Render()
}
