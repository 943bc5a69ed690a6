package handler

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/ahosny-dev/wallet-ledger/internal/export"
)

// HandleBackup produces the JSON backup bundle and archives a copy in blob
// storage.
func (d *Dependencies) HandleBackup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	transactions, err := d.Database.ListTransactions(r.Context())
	if err != nil {
		slog.Error("failed to list transactions for backup", "error", err)
		WriteError(w, http.StatusInternalServerError, "Failed to build backup")
		return
	}
	settings, err := d.Database.GetSettings(r.Context())
	if err != nil {
		slog.Error("failed to get settings for backup", "error", err)
		WriteError(w, http.StatusInternalServerError, "Failed to build backup")
		return
	}

	bundle := export.NewBackup(transactions, settings)
	data, err := bundle.Marshal()
	if err != nil {
		slog.Error("failed to marshal backup", "error", err)
		WriteError(w, http.StatusInternalServerError, "Failed to build backup")
		return
	}

	blobName := fmt.Sprintf("backups/wallet_backup_%s.json", time.Now().Format("2006-01-02"))
	if err := d.Blob.UploadText(r.Context(), DataContainer, blobName, string(data)); err != nil {
		slog.Warn("failed to archive backup", "blob_name", blobName, "error", err)
	}

	slog.Info("backup created", "transactions", len(transactions), "size_bytes", len(data))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		slog.Error("failed to write backup response", "error", err)
	}
}

// HandleRestore replaces the full state from a backup bundle. The bundle is
// validated before any destructive write; a malformed file changes nothing.
func (d *Dependencies) HandleRestore(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	bundle, err := export.ParseBackup(data)
	if err != nil {
		slog.Warn("restore rejected", "error", err)
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := d.Database.ReplaceAll(r.Context(), bundle.Transactions, *bundle.Settings); err != nil {
		slog.Error("failed to restore backup", "error", err)
		WriteError(w, http.StatusInternalServerError, "Failed to restore backup")
		return
	}

	slog.Info("backup restored", "transactions", len(bundle.Transactions))
	WriteJSON(w, http.StatusOK, map[string]any{
		"status":       "restored",
		"transactions": len(bundle.Transactions),
	})
}
