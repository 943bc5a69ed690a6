package export

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ahosny-dev/wallet-ledger/internal/models"
)

// BackupVersion identifies the backup bundle layout.
const BackupVersion = 1

// Backup is the JSON backup bundle: the full transaction log plus settings.
type Backup struct {
	Version      int                  `json:"version"`
	Date         string               `json:"date"`
	Transactions []models.Transaction `json:"transactions"`
	Settings     *models.Settings     `json:"settings"`
}

// NewBackup builds a bundle from the current state.
func NewBackup(transactions []models.Transaction, settings models.Settings) Backup {
	if transactions == nil {
		transactions = []models.Transaction{}
	}
	return Backup{
		Version:      BackupVersion,
		Date:         time.Now().UTC().Format(time.RFC3339),
		Transactions: transactions,
		Settings:     &settings,
	}
}

// Marshal renders the bundle as indented JSON.
func (b Backup) Marshal() ([]byte, error) {
	return json.MarshalIndent(b, "", "  ")
}

// ParseBackup validates and decodes a backup bundle. Both transactions and
// settings must be present; a malformed bundle is rejected here, before any
// destructive write happens.
func ParseBackup(data []byte) (*Backup, error) {
	var raw struct {
		Version      int                   `json:"version"`
		Date         string                `json:"date"`
		Transactions *[]models.Transaction `json:"transactions"`
		Settings     *models.Settings      `json:"settings"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid backup file: %w", err)
	}
	if raw.Transactions == nil || raw.Settings == nil {
		return nil, fmt.Errorf("invalid backup file: transactions and settings are required")
	}
	for i := range *raw.Transactions {
		if err := (*raw.Transactions)[i].Validate(); err != nil {
			return nil, fmt.Errorf("invalid backup transaction %d: %w", i+1, err)
		}
	}
	return &Backup{
		Version:      raw.Version,
		Date:         raw.Date,
		Transactions: *raw.Transactions,
		Settings:     raw.Settings,
	}, nil
}
