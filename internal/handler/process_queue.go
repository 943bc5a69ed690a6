package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/ahosny-dev/wallet-ledger/internal/csvparse"
	"github.com/ahosny-dev/wallet-ledger/internal/ledger"
)

// invokeRequest represents the payload from the Functions host.
type invokeRequest struct {
	Data     map[string]any `json:"Data"`
	Metadata map[string]any `json:"Metadata"`
}

// RejectedRow reports one import row that failed validation.
type RejectedRow struct {
	RowNumber int      `json:"rowNumber"`
	Errors    []string `json:"errors"`
}

// ImportReport summarizes one processed import. It is returned to the host
// and archived next to the uploaded file.
type ImportReport struct {
	BlobName     string        `json:"blobName"`
	Mode         ImportMode    `json:"mode"`
	Committed    bool          `json:"committed"`
	Imported     int           `json:"imported"`
	Rejected     []RejectedRow `json:"rejected,omitempty"`
	HeaderErrors []string      `json:"headerErrors,omitempty"`
	CommitError  string        `json:"commitError,omitempty"`
}

// ProcessQueue handles the queue trigger that runs a bulk import. Parsing
// and validation finish before any write starts; the linked transaction set
// is committed as one bulk write, or not at all.
func (d *Dependencies) ProcessQueue(w http.ResponseWriter, r *http.Request) {
	var invokeReq invokeRequest
	bodyBytes, err := io.ReadAll(r.Body)
	if err != nil {
		slog.Error("failed to read queue request body", "error", err)
		WriteError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}
	if err := json.Unmarshal(bodyBytes, &invokeReq); err != nil {
		slog.Error("failed to unmarshal queue request", "error", err)
		WriteError(w, http.StatusBadRequest, "Failed to unmarshal request")
		return
	}

	queueItemVal, ok := invokeReq.Data["queueItem"]
	if !ok {
		queueItemVal, ok = invokeReq.Data["queueitem"]
		if !ok {
			WriteError(w, http.StatusBadRequest, "Missing queueItem in Data")
			return
		}
	}
	queueItemStr, ok := queueItemVal.(string)
	if !ok {
		WriteError(w, http.StatusBadRequest, "queueItem is not a string")
		return
	}

	var queueData map[string]string
	if err := json.Unmarshal([]byte(queueItemStr), &queueData); err != nil {
		slog.Error("failed to unmarshal queueItem", "error", err)
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("Invalid queueItem JSON: %v", err))
		return
	}

	blobName := queueData["blob_name"]
	if blobName == "" {
		slog.Warn("queue message missing blob_name", "queue_data", queueData)
		WriteError(w, http.StatusBadRequest, "Missing blob_name")
		return
	}
	mode, err := ParseImportMode(queueData["mode"])
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	slog.Info("processing import", "blob_name", blobName, "mode", mode)

	csvContent, err := d.Blob.DownloadText(r.Context(), DataContainer, blobName)
	if err != nil {
		slog.Error("failed to download import file", "blob_name", blobName, "error", err)
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to download import file: %v", err))
		return
	}

	report := d.runImport(r, blobName, mode, csvContent)
	d.archiveReport(r, blobName, report)

	// Validation outcomes are reported with 200; a failed commit is a
	// storage failure, not an import outcome, so the host sees a 500 and
	// can retry the message.
	status := http.StatusOK
	if report.CommitError != "" {
		status = http.StatusInternalServerError
	}
	WriteJSON(w, status, report)
}

// runImport validates, reconciles and commits one import file.
func (d *Dependencies) runImport(r *http.Request, blobName string, mode ImportMode, csvContent string) ImportReport {
	report := ImportReport{BlobName: blobName, Mode: mode}

	rows, headerErrors := csvparse.ParseImportCSV(csvContent)
	if len(headerErrors) > 0 {
		// Hard stop before row-level validation.
		slog.Warn("import rejected by header validation", "blob_name", blobName, "errors", headerErrors)
		report.HeaderErrors = headerErrors
		return report
	}

	candidates := make([]ledger.ImportRow, 0, len(rows))
	for _, row := range rows {
		if row.HasErrors() {
			report.Rejected = append(report.Rejected, RejectedRow{RowNumber: row.RowNumber, Errors: row.Errors})
			continue
		}
		candidates = append(candidates, *row.Row)
	}

	if mode == ImportStrict && len(report.Rejected) > 0 {
		slog.Warn("strict import refused", "blob_name", blobName, "rejected_rows", len(report.Rejected))
		return report
	}
	if len(candidates) == 0 {
		slog.Warn("import contained no valid rows", "blob_name", blobName, "rejected_rows", len(report.Rejected))
		return report
	}

	linked := ledger.Reconcile(candidates)
	if err := d.Database.BulkAdd(r.Context(), linked); err != nil {
		slog.Error("failed to commit import", "blob_name", blobName, "count", len(linked), "error", err)
		report.CommitError = fmt.Sprintf("commit failed: %v", err)
		return report
	}

	report.Committed = true
	report.Imported = len(linked)
	slog.Info("import committed", "blob_name", blobName, "imported", len(linked), "rejected_rows", len(report.Rejected))
	return report
}

// archiveReport stores the import outcome next to the uploaded file.
func (d *Dependencies) archiveReport(r *http.Request, blobName string, report ImportReport) {
	data, err := json.Marshal(report)
	if err != nil {
		slog.Error("failed to marshal import report", "blob_name", blobName, "error", err)
		return
	}
	reportName := blobName + ".report.json"
	if err := d.Blob.UploadText(r.Context(), DataContainer, reportName, string(data)); err != nil {
		slog.Error("failed to archive import report", "blob_name", reportName, "error", err)
	}
}
