package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/ahosny-dev/wallet-ledger/internal/ledger"
	"github.com/ahosny-dev/wallet-ledger/internal/models"
)

// transactionRequest is the payload for creating or editing a ledger entry.
type transactionRequest struct {
	Date          string          `json:"date"`
	Wallet        string          `json:"wallet"`
	Type          string          `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	Channel       string          `json:"channel"`
	CustomerName  string          `json:"customerName"`
	AccountNumber string          `json:"accountNumber"`
	Employee      string          `json:"employee"`
	Note          string          `json:"note"`
	TransferTo    string          `json:"transferTo"`
}

func (req transactionRequest) toTransaction(id, createdAt string) (models.Transaction, error) {
	wallet, err := models.ParseWallet(req.Wallet)
	if err != nil {
		return models.Transaction{}, err
	}
	txType, err := models.ParseTransactionType(req.Type)
	if err != nil {
		return models.Transaction{}, err
	}

	t := models.Transaction{
		ID:            id,
		CreatedAt:     createdAt,
		Date:          req.Date,
		Wallet:        wallet,
		Type:          txType,
		Amount:        req.Amount,
		Channel:       req.Channel,
		CustomerName:  req.CustomerName,
		AccountNumber: req.AccountNumber,
		Employee:      req.Employee,
		Note:          req.Note,
	}
	if req.TransferTo != "" {
		dest, err := models.ParseWallet(req.TransferTo)
		if err != nil {
			return models.Transaction{}, err
		}
		t.TransferTo = &dest
	}
	return t, nil
}

// HandleTransactions handles GET, POST, PUT and DELETE for ledger entries.
func (d *Dependencies) HandleTransactions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		d.listTransactions(w, r)
	case http.MethodPost:
		d.createTransaction(w, r)
	case http.MethodPut:
		d.editTransaction(w, r)
	case http.MethodDelete:
		d.deleteTransaction(w, r)
	default:
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (d *Dependencies) listTransactions(w http.ResponseWriter, r *http.Request) {
	transactions, err := d.Database.ListTransactions(r.Context())
	if err != nil {
		slog.Error("failed to list transactions", "error", err)
		WriteError(w, http.StatusInternalServerError, "Failed to list transactions")
		return
	}

	walletFilter := r.URL.Query().Get("wallet")
	typeFilter := r.URL.Query().Get("type")
	filtered := make([]models.Transaction, 0, len(transactions))
	for _, t := range transactions {
		if walletFilter != "" && string(t.Wallet) != walletFilter {
			continue
		}
		if typeFilter != "" && string(t.Type) != typeFilter {
			continue
		}
		filtered = append(filtered, t)
	}

	// Newest business date first, as the transaction log view shows them.
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Date > filtered[j].Date
	})

	WriteJSON(w, http.StatusOK, filtered)
}

func (d *Dependencies) createTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	entry, err := req.toTransaction(models.NewID(), models.Now())
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	plan, err := ledger.PlanCreate(entry)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := d.Database.Apply(r.Context(), plan); err != nil {
		slog.Error("failed to save transaction", "id", entry.ID, "error", err)
		WriteError(w, http.StatusInternalServerError, "Failed to save transaction")
		return
	}

	created := append(plan.Puts, plan.Adds...)
	slog.Info("created transaction", "id", entry.ID, "wallet", entry.Wallet, "entries", len(created))
	WriteJSON(w, http.StatusOK, created)
}

func (d *Dependencies) editTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		WriteError(w, http.StatusBadRequest, "Missing transaction ID")
		return
	}

	existing, err := d.Database.GetTransaction(r.Context(), id)
	if err != nil {
		d.writeLookupError(w, id, err)
		return
	}

	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	// Identity is immutable: the edit keeps the original ID and creation
	// timestamp and replaces everything else.
	edited, err := req.toTransaction(existing.ID, existing.CreatedAt)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	siblings, err := d.groupSiblings(r, existing)
	if err != nil {
		slog.Error("failed to query transfer group", "id", id, "error", err)
		WriteError(w, http.StatusInternalServerError, "Failed to query transfer group")
		return
	}

	plan, err := ledger.PlanEdit(edited, siblings)
	if err != nil {
		if errors.Is(err, ledger.ErrGroupCorrupted) {
			slog.Error("transfer group corrupted", "id", id, "error", err)
			WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := d.Database.Apply(r.Context(), plan); err != nil {
		slog.Error("failed to apply edit", "id", id, "error", err)
		WriteError(w, http.StatusInternalServerError, "Failed to save transaction")
		return
	}

	updated := append(plan.Puts, plan.Adds...)
	slog.Info("edited transaction", "id", id, "entries", len(updated))
	WriteJSON(w, http.StatusOK, updated)
}

// deleteTransaction implements the two-step delete protocol. Deleting a
// transfer group member without a mode does not delete anything: the
// response reports the conflict and the two resolution modes, and the caller
// re-issues the request with the mode it picked.
func (d *Dependencies) deleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		WriteError(w, http.StatusBadRequest, "Missing transaction ID")
		return
	}

	target, err := d.Database.GetTransaction(r.Context(), id)
	if err != nil {
		d.writeLookupError(w, id, err)
		return
	}

	var mode ledger.DeleteMode
	if raw := r.URL.Query().Get("mode"); raw != "" {
		mode, err = ledger.ParseDeleteMode(raw)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	siblings, err := d.groupSiblings(r, target)
	if err != nil {
		slog.Error("failed to query transfer group", "id", id, "error", err)
		WriteError(w, http.StatusInternalServerError, "Failed to query transfer group")
		return
	}

	plan, err := ledger.PlanDelete(*target, siblings, mode)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrDeleteModeRequired):
			WriteJSON(w, http.StatusConflict, map[string]any{
				"error":              "entry is part of a transfer",
				"requiresResolution": true,
				"modes":              []string{string(ledger.DeleteSingle), string(ledger.DeleteGroup)},
			})
		case errors.Is(err, ledger.ErrGroupCorrupted):
			slog.Error("transfer group corrupted", "id", id, "error", err)
			WriteError(w, http.StatusInternalServerError, err.Error())
		default:
			WriteError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	if err := d.Database.Apply(r.Context(), plan); err != nil {
		slog.Error("failed to apply delete", "id", id, "mode", mode, "error", err)
		WriteError(w, http.StatusInternalServerError, "Failed to delete transaction")
		return
	}

	slog.Info("deleted transaction", "id", id, "mode", mode, "removed", len(plan.Deletes))
	WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// groupSiblings returns the other members of t's transfer group, empty for a
// standalone entry.
func (d *Dependencies) groupSiblings(r *http.Request, t *models.Transaction) ([]models.Transaction, error) {
	if t.TransferGroupID == nil {
		return nil, nil
	}
	members, err := d.Database.QueryByTransferGroup(r.Context(), *t.TransferGroupID)
	if err != nil {
		return nil, err
	}
	siblings := make([]models.Transaction, 0, len(members))
	for _, m := range members {
		if m.ID != t.ID {
			siblings = append(siblings, m)
		}
	}
	return siblings, nil
}

func (d *Dependencies) writeLookupError(w http.ResponseWriter, id string, err error) {
	if errors.Is(err, ledger.ErrNotFound) {
		WriteError(w, http.StatusNotFound, "Transaction not found: "+id)
		return
	}
	slog.Error("failed to load transaction", "id", id, "error", err)
	WriteError(w, http.StatusInternalServerError, "Failed to load transaction")
}
