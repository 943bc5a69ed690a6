package csvparse

import (
	"encoding/csv"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ahosny-dev/wallet-ledger/internal/ledger"
	"github.com/ahosny-dev/wallet-ledger/internal/models"
)

// TransactionHeaders is the 12-column import/export template. Column order
// and presence are a compatibility contract: files round-trip through the
// same spreadsheet template.
var TransactionHeaders = []string{
	"رقم",
	"التاريخ",
	"المصدر",
	"نوع العملية",
	"المبلغ",
	"نوع الإيداع/القناة",
	"اسم العميل",
	"رقم الحساب",
	"الموظف",
	"البيان/ملاحظات",
	"الرصيد التراكمي للمصدر",
	"تحويل إلى",
}

// SummaryHeaders is the 5-column summary sheet schema.
var SummaryHeaders = []string{
	"المصدر",
	"رصيد افتتاحي",
	"إجمالي الإيداعات",
	"إجمالي السحوبات",
	"الرصيد الحالي",
}

// Column indexes into TransactionHeaders.
const (
	colDate       = 1
	colWallet     = 2
	colType       = 3
	colAmount     = 4
	colChannel    = 5
	colCustomer   = 6
	colAccount    = 7
	colEmployee   = 8
	colNote       = 9
	colTransferTo = 11
)

// RowResult is the outcome of validating one data row. Row is nil when the
// row failed validation; Errors lists every problem found.
type RowResult struct {
	RowNumber int
	Row       *ledger.ImportRow
	Errors    []string
}

// HasErrors reports whether the row failed validation.
func (r RowResult) HasErrors() bool {
	return len(r.Errors) > 0
}

func normalizeHeader(value string) string {
	return strings.Join(strings.Fields(value), "")
}

// dateLayouts are accepted business-date formats, tried in order.
var dateLayouts = []string{
	models.DateLayout,
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"2-1-2006",
}

// ParseDate parses a business date in any accepted layout.
func ParseDate(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, fmt.Errorf("missing date")
	}
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, trimmed); err == nil {
			return d, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date: %s", trimmed)
}

// FormatDisplayDate renders a stored ISO date as dd/mm/yyyy for the template.
func FormatDisplayDate(isoDate string) string {
	d, err := time.Parse(models.DateLayout, isoDate)
	if err != nil {
		return isoDate
	}
	return d.Format("02/01/2006")
}

// ValidateHeaders checks the header row against the template and returns the
// missing required columns. A non-empty result is a hard stop: no row-level
// validation runs after it.
func ValidateHeaders(headers []string) []string {
	present := make(map[string]bool, len(headers))
	for _, h := range headers {
		present[normalizeHeader(h)] = true
	}
	var missing []string
	for _, required := range TransactionHeaders {
		if !present[normalizeHeader(required)] {
			missing = append(missing, required)
		}
	}
	return missing
}

// ParseImportCSV parses and validates an import file. It returns the
// validated row results plus header-level errors. Header errors mean the
// rows slice is empty and nothing may be committed.
func ParseImportCSV(content string) ([]RowResult, []string) {
	content = strings.TrimPrefix(content, "\uFEFF")
	reader := csv.NewReader(strings.NewReader(content))
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, []string{fmt.Sprintf("failed to read CSV: %v", err)}
	}
	if len(records) == 0 {
		return nil, []string{"empty file"}
	}

	headers := records[0]
	if missing := ValidateHeaders(headers); len(missing) > 0 {
		return nil, []string{fmt.Sprintf("missing columns: %s", strings.Join(missing, "، "))}
	}

	// Map template columns to their position in this file.
	position := make(map[string]int, len(headers))
	for i, h := range headers {
		position[normalizeHeader(h)] = i
	}
	cell := func(record []string, templateIdx int) string {
		idx, ok := position[normalizeHeader(TransactionHeaders[templateIdx])]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	var results []RowResult
	for i, record := range records[1:] {
		rowNum := i + 2
		if isBlank(record) {
			continue
		}
		results = append(results, validateRow(record, rowNum, cell))
	}
	return results, nil
}

func isBlank(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

func validateRow(record []string, rowNum int, cell func([]string, int) string) RowResult {
	var errs []string

	date, err := ParseDate(cell(record, colDate))
	if err != nil {
		errs = append(errs, err.Error())
	}

	wallet, err := models.ParseWallet(cell(record, colWallet))
	if err != nil {
		errs = append(errs, err.Error())
	}

	txType, err := models.ParseTransactionType(cell(record, colType))
	if err != nil {
		errs = append(errs, err.Error())
	}

	amountStr := cell(record, colAmount)
	amount, err := decimal.NewFromString(strings.ReplaceAll(amountStr, ",", ""))
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid amount: %s", amountStr))
	} else if !amount.IsPositive() {
		errs = append(errs, "amount must be greater than zero")
	}

	var transferTo *models.Wallet
	if raw := cell(record, colTransferTo); raw != "" {
		dest, err := models.ParseWallet(raw)
		if err != nil {
			errs = append(errs, fmt.Sprintf("invalid transfer destination: %s", raw))
		} else if txType == models.TypeWithdraw && dest == wallet {
			errs = append(errs, "cannot transfer to the same wallet")
		} else {
			transferTo = &dest
		}
	}

	if len(errs) > 0 {
		return RowResult{RowNumber: rowNum, Errors: errs}
	}

	return RowResult{
		RowNumber: rowNum,
		Row: &ledger.ImportRow{
			Date:          date,
			Wallet:        wallet,
			Type:          txType,
			Amount:        amount,
			Channel:       cell(record, colChannel),
			CustomerName:  cell(record, colCustomer),
			AccountNumber: cell(record, colAccount),
			Employee:      cell(record, colEmployee),
			Note:          cell(record, colNote),
			TransferTo:    transferTo,
		},
	}
}
