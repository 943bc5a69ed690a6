package handler

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"
)

// ImportMode is the commit policy for a bulk import. There is no implicit
// partial-commit-with-warnings mode.
type ImportMode string

const (
	// ImportValidOnly commits rows with zero validation errors and reports
	// the rejected set.
	ImportValidOnly ImportMode = "valid-only"
	// ImportStrict refuses to commit anything while any invalid row exists.
	ImportStrict ImportMode = "strict"
)

// ParseImportMode validates a caller-supplied import mode, defaulting to
// valid-only.
func ParseImportMode(value string) (ImportMode, error) {
	switch ImportMode(value) {
	case ImportValidOnly, ImportStrict:
		return ImportMode(value), nil
	case "":
		return ImportValidOnly, nil
	}
	return "", fmt.Errorf("unknown import mode: %q", value)
}

// HandleUpload accepts a spreadsheet export for bulk import. The raw file is
// stored in blob storage and a processing message is queued; no ledger write
// happens on this path.
func (d *Dependencies) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		slog.Warn("upload attempt with invalid method", "method", r.Method, "path", r.URL.Path)
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	mode, err := ParseImportMode(r.URL.Query().Get("mode"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	// 10MB limit
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		slog.Warn("failed to parse multipart form", "error", err, "max_size_mb", 10)
		WriteError(w, http.StatusBadRequest, "File too large or invalid form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		slog.Warn("failed to get file from form", "error", err)
		WriteError(w, http.StatusBadRequest, "Failed to get file")
		return
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		slog.Error("failed to read uploaded file", "filename", header.Filename, "error", err)
		WriteError(w, http.StatusInternalServerError, "Failed to read file")
		return
	}
	slog.Info("received import upload", "filename", header.Filename, "size_bytes", len(bytes), "mode", mode)

	timestamp := time.Now().Format("20060102-150405")
	filename := filepath.Base(header.Filename)
	blobName := fmt.Sprintf("uploads/%s-%s", timestamp, filename)

	if err := d.Blob.UploadText(r.Context(), DataContainer, blobName, string(bytes)); err != nil {
		slog.Error("failed to upload blob", "blob_name", blobName, "error", err)
		WriteError(w, http.StatusInternalServerError, "Failed to upload blob: "+err.Error())
		return
	}

	msg := map[string]string{
		"blob_name": blobName,
		"filename":  filename,
		"mode":      string(mode),
	}
	if err := d.Queue.EnqueueMessage(r.Context(), ProcessQueueName, msg); err != nil {
		slog.Error("failed to enqueue message", "queue", ProcessQueueName, "blob_name", blobName, "error", err)
		WriteError(w, http.StatusInternalServerError, "Failed to enqueue message: "+err.Error())
		return
	}

	slog.Info("queued import for processing", "queue", ProcessQueueName, "blob_name", blobName, "mode", mode)
	WriteJSON(w, http.StatusOK, map[string]string{
		"status":   "queued",
		"blobName": blobName,
	})
}
