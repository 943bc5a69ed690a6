package export

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/ahosny-dev/wallet-ledger/internal/csvparse"
	"github.com/ahosny-dev/wallet-ledger/internal/ledger"
	"github.com/ahosny-dev/wallet-ledger/internal/models"
)

func transaction(wallet models.Wallet, txType models.TransactionType, amount float64, date string) models.Transaction {
	return models.Transaction{
		ID:        models.NewID(),
		CreatedAt: models.Now(),
		Date:      date,
		Wallet:    wallet,
		Type:      txType,
		Amount:    decimal.NewFromFloat(amount),
	}
}

func TestTransactionRows(t *testing.T) {
	settings := models.DefaultSettings()
	settings.OpeningBalances[models.WalletVodafone] = decimal.NewFromInt(100)

	dest := models.WalletEtisalat
	withdrawal := transaction(models.WalletVodafone, models.TypeWithdraw, 40, "2024-01-02")
	withdrawal.TransferTo = &dest
	deposit := transaction(models.WalletVodafone, models.TypeDeposit, 10.5, "2024-01-01")
	deposit.CustomerName = "أحمد"

	rows := TransactionRows([]models.Transaction{withdrawal, deposit}, settings)

	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(rows))
	}
	for i, row := range rows {
		if len(row) != len(csvparse.TransactionHeaders) {
			t.Errorf("Row %d: expected %d columns, got %d", i, len(csvparse.TransactionHeaders), len(row))
		}
	}

	// Chronological: the deposit comes first despite input order.
	first := rows[0]
	if first[0] != "1" || first[1] != "01/01/2024" {
		t.Errorf("Expected seq 1 on 01/01/2024, got %s on %s", first[0], first[1])
	}
	if first[2] != "فودافون كاش" || first[3] != "إيداع" {
		t.Errorf("Expected Arabic labels, got %s / %s", first[2], first[3])
	}
	if first[4] != "10.50" {
		t.Errorf("Expected amount 10.50, got %s", first[4])
	}
	if first[6] != "أحمد" {
		t.Errorf("Expected customer name carried, got %s", first[6])
	}
	if first[10] != "110.50" {
		t.Errorf("Expected running balance 110.50, got %s", first[10])
	}

	second := rows[1]
	if second[10] != "70.50" {
		t.Errorf("Expected running balance 70.50, got %s", second[10])
	}
	if second[11] != "اتصالات كاش" {
		t.Errorf("Expected transfer destination label, got %s", second[11])
	}
}

func TestSummaryRows(t *testing.T) {
	settings := models.DefaultSettings()
	settings.OpeningBalances[models.WalletFawry] = decimal.NewFromInt(20)
	transactions := []models.Transaction{
		transaction(models.WalletFawry, models.TypeDeposit, 30, "2024-01-01"),
		transaction(models.WalletFawry, models.TypeWithdraw, 5, "2024-01-02"),
	}

	rows := SummaryRows(transactions, settings)

	if len(rows) != len(models.AllWallets) {
		t.Fatalf("Expected one row per wallet, got %d", len(rows))
	}
	var fawry []string
	for _, row := range rows {
		if len(row) != len(csvparse.SummaryHeaders) {
			t.Fatalf("Expected %d columns, got %d", len(csvparse.SummaryHeaders), len(row))
		}
		if row[0] == models.WalletFawry.Label() {
			fawry = row
		}
	}
	if fawry == nil {
		t.Fatal("Missing Fawry summary row")
	}
	if fawry[1] != "20.00" || fawry[2] != "30.00" || fawry[3] != "5.00" || fawry[4] != "45.00" {
		t.Errorf("Unexpected summary row: %v", fawry)
	}
}

func TestCSVFilesCarryBOMAndHeaders(t *testing.T) {
	settings := models.DefaultSettings()

	content, err := TransactionsCSV(nil, settings)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !strings.HasPrefix(content, "\uFEFF") {
		t.Error("Expected a UTF-8 BOM prefix")
	}
	if !strings.Contains(content, "التاريخ") {
		t.Error("Expected the template header row")
	}

	template, err := TemplateCSV()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	lines := strings.Split(strings.TrimSpace(strings.TrimPrefix(template, "\uFEFF")), "\n")
	if len(lines) != 1 {
		t.Errorf("Expected a header-only template, got %d lines", len(lines))
	}

	summary, err := SummaryCSV(nil, settings)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !strings.Contains(summary, "الرصيد الحالي") {
		t.Error("Expected the summary header row")
	}
}

func TestQuickRows(t *testing.T) {
	older := transaction(models.WalletVodafone, models.TypeDeposit, 10, "2024-01-01")
	newer := transaction(models.WalletEtisalat, models.TypeWithdraw, 5, "2024-01-05")
	newer.Note = "مصروفات"

	rows := QuickRows([]models.Transaction{older, newer})

	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(rows))
	}
	for i, row := range rows {
		if len(row) != len(QuickHeaders) {
			t.Errorf("Row %d: expected %d columns, got %d", i, len(QuickHeaders), len(row))
		}
	}
	// Newest first, no sequence or running balance columns.
	if rows[0][0] != "05/01/2024" || rows[0][8] != "مصروفات" {
		t.Errorf("Unexpected first row: %v", rows[0])
	}
	if rows[1][1] != "فودافون كاش" {
		t.Errorf("Unexpected second row: %v", rows[1])
	}
}

func TestCombinedCSV(t *testing.T) {
	settings := models.DefaultSettings()
	transactions := []models.Transaction{
		transaction(models.WalletVodafone, models.TypeDeposit, 100, "2024-01-01"),
	}

	content, err := CombinedCSV(transactions, settings)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !strings.HasPrefix(content, "\uFEFF") {
		t.Error("Expected a UTF-8 BOM prefix")
	}
	// Both section headers present, summary after the transaction rows.
	txIdx := strings.Index(content, "التاريخ")
	sumIdx := strings.Index(content, "الرصيد الحالي")
	if txIdx < 0 || sumIdx < 0 || sumIdx < txIdx {
		t.Errorf("Expected transaction section before summary section: %d, %d", txIdx, sumIdx)
	}
	lines := strings.Split(strings.TrimSpace(content), "\n")
	// Header + 1 row + separator + summary header + 4 wallet rows.
	if len(lines) != 8 {
		t.Errorf("Expected 8 lines, got %d", len(lines))
	}
}

// Exporting, importing the export and exporting again must yield identical
// rows. IDs and group IDs change across the round trip, but everything the
// template carries survives.
func TestExportImportRoundTrip(t *testing.T) {
	settings := models.DefaultSettings()

	dest := models.WalletEtisalat
	withdrawal := transaction(models.WalletVodafone, models.TypeWithdraw, 100, "2024-01-01")
	withdrawal.TransferTo = &dest
	withdrawal.Note = "تسوية"
	plan, err := ledger.PlanCreate(withdrawal)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	transactions := append(plan.Puts, plan.Adds...)
	standalone := transaction(models.WalletFawry, models.TypeDeposit, 42.75, "2024-01-02")
	standalone.Employee = "منى"
	transactions = append(transactions, standalone)

	exported, err := TransactionsCSV(transactions, settings)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	results, headerErrs := csvparse.ParseImportCSV(exported)
	if len(headerErrs) > 0 {
		t.Fatalf("Exported file failed its own header check: %v", headerErrs)
	}
	rows := make([]ledger.ImportRow, 0, len(results))
	for _, r := range results {
		if r.HasErrors() {
			t.Fatalf("Exported row %d failed validation: %v", r.RowNumber, r.Errors)
		}
		rows = append(rows, *r.Row)
	}

	reimported := ledger.Reconcile(rows)
	if len(reimported) != len(transactions) {
		t.Fatalf("Expected %d transactions after reimport, got %d", len(transactions), len(reimported))
	}

	again, err := TransactionsCSV(reimported, settings)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if again != exported {
		t.Error("Round trip changed the export contents")
	}
}
