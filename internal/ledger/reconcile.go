package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ahosny-dev/wallet-ledger/internal/models"
)

// ImportRow is one validated candidate row from a spreadsheet import. The
// external format carries no transfer group IDs, so pairs are inferred here.
type ImportRow struct {
	Date          time.Time
	Wallet        models.Wallet
	Type          models.TransactionType
	Amount        decimal.Decimal
	Channel       string
	CustomerName  string
	AccountNumber string
	Employee      string
	Note          string
	TransferTo    *models.Wallet
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

func (r ImportRow) toTransaction(now string) models.Transaction {
	return models.Transaction{
		ID:            models.NewID(),
		CreatedAt:     now,
		Date:          r.Date.Format(models.DateLayout),
		Wallet:        r.Wallet,
		Type:          r.Type,
		Amount:        r.Amount,
		Channel:       r.Channel,
		CustomerName:  r.CustomerName,
		AccountNumber: r.AccountNumber,
		Employee:      r.Employee,
		Note:          r.Note,
	}
}

// Reconcile infers transfer pairs within an import batch and emits a fully
// linked transaction set.
//
// Rows are processed in file order, each consumed at most once. A withdrawal
// with a destination wallet searches the remaining unconsumed rows for the
// first deposit into that wallet with an equal amount on the same calendar
// day. A matched deposit keeps its own descriptive fields; when no match
// exists the deposit side is synthesized with the transfer note convention.
// Matching never looks outside the batch.
//
// When several same-day, same-amount, same-route transfers exist, the
// first-match rule may pair a withdrawal with a deposit that a human would
// have paired differently. That ambiguity is accepted: matching is a
// heuristic, not guaranteed unique.
func Reconcile(rows []ImportRow) []models.Transaction {
	now := models.Now()
	consumed := make([]bool, len(rows))
	out := make([]models.Transaction, 0, len(rows))

	for i, row := range rows {
		if consumed[i] {
			continue
		}
		consumed[i] = true

		if row.Type != models.TypeWithdraw || row.TransferTo == nil {
			out = append(out, row.toTransaction(now))
			continue
		}

		matchIdx := -1
		for j := i + 1; j < len(rows); j++ {
			if consumed[j] {
				continue
			}
			candidate := rows[j]
			if candidate.Type == models.TypeDeposit &&
				candidate.Wallet == *row.TransferTo &&
				candidate.Amount.Equal(row.Amount) &&
				sameDay(candidate.Date, row.Date) {
				matchIdx = j
				break
			}
		}

		groupID := models.NewID()
		withdrawal := row.toTransaction(now)
		withdrawal.TransferTo = row.TransferTo
		withdrawal.TransferGroupID = &groupID
		out = append(out, withdrawal)

		if matchIdx >= 0 {
			consumed[matchIdx] = true
			deposit := rows[matchIdx].toTransaction(now)
			deposit.TransferGroupID = &groupID
			out = append(out, deposit)
		} else {
			out = append(out, synthesizeCounterpart(withdrawal))
		}
	}
	return out
}
