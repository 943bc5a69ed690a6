package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ahosny-dev/wallet-ledger/internal/export"
	"github.com/ahosny-dev/wallet-ledger/internal/models"
)

// HandleExport renders the transaction log, the summary, both combined, the
// reduced quick layout or a blank template as a CSV file compatible with the
// spreadsheet template. A copy of every generated export is archived in blob
// storage.
func (d *Dependencies) HandleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	kind := r.URL.Query().Get("kind")
	if kind == "" {
		kind = "transactions"
	}

	var (
		content  string
		err      error
		filename string
	)

	switch kind {
	case "template":
		content, err = export.TemplateCSV()
		filename = "wallet_template.csv"
	case "transactions", "summary", "combined", "quick":
		var transactions []models.Transaction
		var settings models.Settings
		transactions, err = d.Database.ListTransactions(r.Context())
		if err == nil {
			settings, err = d.Database.GetSettings(r.Context())
		}
		if err != nil {
			slog.Error("failed to load state for export", "kind", kind, "error", err)
			WriteError(w, http.StatusInternalServerError, "Failed to load ledger state")
			return
		}
		switch kind {
		case "summary":
			content, err = export.SummaryCSV(transactions, settings)
			filename = "wallet_summary.csv"
		case "combined":
			content, err = export.CombinedCSV(transactions, settings)
			filename = "wallet_combined.csv"
		case "quick":
			content, err = export.QuickCSV(transactions)
			filename = "wallet_quick.csv"
		default:
			content, err = export.TransactionsCSV(transactions, settings)
			filename = "wallet_transactions.csv"
		}
	default:
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("unknown export kind: %q", kind))
		return
	}
	if err != nil {
		slog.Error("failed to render export", "kind", kind, "error", err)
		WriteError(w, http.StatusInternalServerError, "Failed to render export")
		return
	}

	blobName := fmt.Sprintf("exports/%s-%s", time.Now().Format("20060102-150405"), filename)
	if err := d.Blob.UploadText(r.Context(), DataContainer, blobName, content); err != nil {
		// The caller still gets the file; archiving is best effort.
		slog.Warn("failed to archive export", "blob_name", blobName, "error", err)
	}

	slog.Info("rendered export", "kind", kind, "size_bytes", len(content))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(content)); err != nil {
		slog.Error("failed to write export response", "error", err)
	}
}
