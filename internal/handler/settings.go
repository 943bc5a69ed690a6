package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/ahosny-dev/wallet-ledger/internal/ledger"
	"github.com/ahosny-dev/wallet-ledger/internal/models"
)

// HandleSettings handles GET and POST for the opening balances record.
func (d *Dependencies) HandleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		settings, err := d.Database.GetSettings(r.Context())
		if err != nil {
			slog.Error("failed to get settings", "error", err)
			WriteError(w, http.StatusInternalServerError, "Failed to get settings")
			return
		}
		WriteJSON(w, http.StatusOK, settings)

	case http.MethodPost:
		var req struct {
			OpeningBalances map[string]decimal.Decimal `json:"openingBalances"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		settings := models.DefaultSettings()
		for raw, balance := range req.OpeningBalances {
			wallet, err := models.ParseWallet(raw)
			if err != nil {
				WriteError(w, http.StatusBadRequest, err.Error())
				return
			}
			settings.OpeningBalances[wallet] = balance
		}

		if err := d.Database.PutSettings(r.Context(), settings); err != nil {
			slog.Error("failed to save settings", "error", err)
			WriteError(w, http.StatusInternalServerError, "Failed to save settings")
			return
		}
		slog.Info("saved settings")
		WriteJSON(w, http.StatusOK, settings)

	default:
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// HandleFactoryReset wipes the transaction log and zeroes every opening
// balance.
func (d *Dependencies) HandleFactoryReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if err := d.Database.Clear(r.Context()); err != nil {
		slog.Error("failed to clear transactions", "error", err)
		WriteError(w, http.StatusInternalServerError, "Failed to clear transactions")
		return
	}
	if err := d.Database.PutSettings(r.Context(), models.DefaultSettings()); err != nil {
		slog.Error("failed to reset settings", "error", err)
		WriteError(w, http.StatusInternalServerError, "Failed to reset settings")
		return
	}

	slog.Info("factory reset complete")
	WriteJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// HandleStats returns the derived per-wallet stats, always rebuilt from the
// settings plus the transaction log.
func (d *Dependencies) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	transactions, err := d.Database.ListTransactions(r.Context())
	if err != nil {
		slog.Error("failed to list transactions for stats", "error", err)
		WriteError(w, http.StatusInternalServerError, "Failed to compute stats")
		return
	}
	settings, err := d.Database.GetSettings(r.Context())
	if err != nil {
		slog.Error("failed to get settings for stats", "error", err)
		WriteError(w, http.StatusInternalServerError, "Failed to compute stats")
		return
	}

	WriteJSON(w, http.StatusOK, ledger.ComputeStats(transactions, settings))
}
