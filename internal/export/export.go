package export

import (
	"bytes"
	"encoding/csv"
	"sort"
	"strconv"

	"github.com/ahosny-dev/wallet-ledger/internal/csvparse"
	"github.com/ahosny-dev/wallet-ledger/internal/ledger"
	"github.com/ahosny-dev/wallet-ledger/internal/models"
)

// bom prefixes every CSV file so spreadsheet applications detect UTF-8.
const bom = "\uFEFF"

// TransactionRows renders the chronological 12-column export rows, one per
// ledger entry, with the running balance after each entry.
func TransactionRows(transactions []models.Transaction, settings models.Settings) [][]string {
	projected := ledger.Project(transactions, settings)
	rows := make([][]string, 0, len(projected))
	for i, entry := range projected {
		t := entry.Transaction
		transferTo := ""
		if t.TransferTo != nil {
			transferTo = t.TransferTo.Label()
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			csvparse.FormatDisplayDate(t.Date),
			t.Wallet.Label(),
			t.Type.Label(),
			t.Amount.StringFixed(2),
			t.Channel,
			t.CustomerName,
			t.AccountNumber,
			t.Employee,
			t.Note,
			entry.RunningBalance.StringFixed(2),
			transferTo,
		})
	}
	return rows
}

// SummaryRows renders the 5-column per-wallet summary.
func SummaryRows(transactions []models.Transaction, settings models.Settings) [][]string {
	stats := ledger.ComputeStats(transactions, settings)
	rows := make([][]string, 0, len(stats))
	for _, s := range stats {
		rows = append(rows, []string{
			s.Wallet.Label(),
			settings.Opening(s.Wallet).StringFixed(2),
			s.TotalDeposits.StringFixed(2),
			s.TotalWithdrawals.StringFixed(2),
			s.Balance.StringFixed(2),
		})
	}
	return rows
}

func writeCSV(headers []string, rows [][]string) (string, error) {
	var buf bytes.Buffer
	buf.WriteString(bom)
	writer := csv.NewWriter(&buf)
	if err := writer.Write(headers); err != nil {
		return "", err
	}
	if err := writer.WriteAll(rows); err != nil {
		return "", err
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// QuickHeaders is the reduced 9-column layout: the template without the
// sequence number, running balance and transfer destination.
var QuickHeaders = []string{
	csvparse.TransactionHeaders[1],
	csvparse.TransactionHeaders[2],
	csvparse.TransactionHeaders[3],
	csvparse.TransactionHeaders[4],
	csvparse.TransactionHeaders[5],
	csvparse.TransactionHeaders[6],
	csvparse.TransactionHeaders[7],
	csvparse.TransactionHeaders[8],
	csvparse.TransactionHeaders[9],
}

// QuickRows renders the 9-column quick export, newest business date first.
func QuickRows(transactions []models.Transaction) [][]string {
	sorted := make([]models.Transaction, len(transactions))
	copy(sorted, transactions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date > sorted[j].Date
	})

	rows := make([][]string, 0, len(sorted))
	for _, t := range sorted {
		rows = append(rows, []string{
			csvparse.FormatDisplayDate(t.Date),
			t.Wallet.Label(),
			t.Type.Label(),
			t.Amount.StringFixed(2),
			t.Channel,
			t.CustomerName,
			t.AccountNumber,
			t.Employee,
			t.Note,
		})
	}
	return rows
}

// TransactionsCSV renders the full transaction export file.
func TransactionsCSV(transactions []models.Transaction, settings models.Settings) (string, error) {
	return writeCSV(csvparse.TransactionHeaders, TransactionRows(transactions, settings))
}

// SummaryCSV renders the summary export file.
func SummaryCSV(transactions []models.Transaction, settings models.Settings) (string, error) {
	return writeCSV(csvparse.SummaryHeaders, SummaryRows(transactions, settings))
}

// TemplateCSV renders an empty import template: the header row only.
func TemplateCSV() (string, error) {
	return writeCSV(csvparse.TransactionHeaders, nil)
}

// QuickCSV renders the reduced quick export without running balances.
func QuickCSV(transactions []models.Transaction) (string, error) {
	return writeCSV(QuickHeaders, QuickRows(transactions))
}

// CombinedCSV renders the transaction log and the wallet summary as one
// file, the two sections separated by a blank row.
func CombinedCSV(transactions []models.Transaction, settings models.Settings) (string, error) {
	var buf bytes.Buffer
	buf.WriteString(bom)
	writer := csv.NewWriter(&buf)
	if err := writer.Write(csvparse.TransactionHeaders); err != nil {
		return "", err
	}
	if err := writer.WriteAll(TransactionRows(transactions, settings)); err != nil {
		return "", err
	}
	if err := writer.Write([]string{""}); err != nil {
		return "", err
	}
	if err := writer.Write(csvparse.SummaryHeaders); err != nil {
		return "", err
	}
	if err := writer.WriteAll(SummaryRows(transactions, settings)); err != nil {
		return "", err
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", err
	}
	return buf.String(), nil
}
