package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType determines the sign of an entry's contribution to balance.
type TransactionType string

const (
	TypeDeposit  TransactionType = "DEPOSIT"
	TypeWithdraw TransactionType = "WITHDRAW"
)

// typeLabels are the display names used in the spreadsheet template.
var typeLabels = map[TransactionType]string{
	TypeDeposit:  "إيداع",
	TypeWithdraw: "سحب",
}

var typeAliases = map[string]TransactionType{
	"ايداع":    TypeDeposit,
	"إيداع":    TypeDeposit,
	"deposit":  TypeDeposit,
	"سحب":      TypeWithdraw,
	"withdraw": TypeWithdraw,
}

// Label returns the display name for the transaction type.
func (t TransactionType) Label() string {
	if label, ok := typeLabels[t]; ok {
		return label
	}
	return string(t)
}

// IsValid reports whether t is DEPOSIT or WITHDRAW.
func (t TransactionType) IsValid() bool {
	return t == TypeDeposit || t == TypeWithdraw
}

// ParseTransactionType resolves a type code, label or alias.
func ParseTransactionType(value string) (TransactionType, error) {
	normalized := strings.ToLower(normalizeText(value))
	if t, ok := typeAliases[normalized]; ok {
		return t, nil
	}
	upper := TransactionType(strings.ToUpper(normalized))
	if upper.IsValid() {
		return upper, nil
	}
	return "", fmt.Errorf("unknown transaction type: %s", value)
}

// DateLayout is the business-date format stored on every transaction.
const DateLayout = "2006-01-02"

// Transaction is a single ledger entry. ID and CreatedAt are assigned once
// and never change; edits replace the remaining fields under the same ID.
//
// A transfer between wallets is two linked entries: a WITHDRAW carrying
// TransferTo and a DEPOSIT in the receiving wallet, both sharing a
// TransferGroupID. A nil TransferGroupID means a standalone entry.
type Transaction struct {
	ID              string          `json:"id"`
	CreatedAt       string          `json:"createdAt"`
	Date            string          `json:"date"`
	Wallet          Wallet          `json:"wallet"`
	Type            TransactionType `json:"type"`
	Amount          decimal.Decimal `json:"amount"`
	Channel         string          `json:"channel,omitempty"`
	CustomerName    string          `json:"customerName,omitempty"`
	AccountNumber   string          `json:"accountNumber,omitempty"`
	Employee        string          `json:"employee,omitempty"`
	Note            string          `json:"note,omitempty"`
	TransferTo      *Wallet         `json:"transferTo,omitempty"`
	TransferGroupID *string         `json:"transferGroupId,omitempty"`
}

// NewID returns a fresh transaction or transfer-group identifier.
func NewID() string {
	return uuid.NewString()
}

// Now returns the creation timestamp in the stored format.
func Now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// IsTransferWithdrawal reports whether t is the withdrawal half of a
// transfer, i.e. a WITHDRAW with a destination wallet set.
func (t *Transaction) IsTransferWithdrawal() bool {
	return t.Type == TypeWithdraw && t.TransferTo != nil
}

// Validate checks the entry before any write. Amount positivity and
// self-transfer rejection happen here, not at display time.
func (t *Transaction) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("transaction id is required")
	}
	if _, err := time.Parse(DateLayout, t.Date); err != nil {
		return fmt.Errorf("invalid date: %s", t.Date)
	}
	if !t.Wallet.IsValid() {
		return fmt.Errorf("unknown wallet: %s", t.Wallet)
	}
	if !t.Type.IsValid() {
		return fmt.Errorf("unknown transaction type: %s", t.Type)
	}
	if !t.Amount.IsPositive() {
		return fmt.Errorf("amount must be greater than zero")
	}
	if t.TransferTo != nil {
		if t.Type != TypeWithdraw {
			return fmt.Errorf("transferTo is only valid on a withdrawal")
		}
		if !t.TransferTo.IsValid() {
			return fmt.Errorf("unknown transfer destination: %s", *t.TransferTo)
		}
		if *t.TransferTo == t.Wallet {
			return fmt.Errorf("cannot transfer to the same wallet")
		}
	}
	return nil
}
