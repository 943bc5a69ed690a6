package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ahosny-dev/wallet-ledger/internal/ledger"
	"github.com/ahosny-dev/wallet-ledger/internal/models"
)

// DatabaseClient defines the ledger store operations used by the handlers.
type DatabaseClient interface {
	GetTransaction(ctx context.Context, id string) (*models.Transaction, error)
	ListTransactions(ctx context.Context) ([]models.Transaction, error)
	QueryByTransferGroup(ctx context.Context, groupID string) ([]models.Transaction, error)
	Apply(ctx context.Context, plan ledger.WritePlan) error
	BulkAdd(ctx context.Context, transactions []models.Transaction) error
	Clear(ctx context.Context) error
	ReplaceAll(ctx context.Context, transactions []models.Transaction, settings models.Settings) error
	GetSettings(ctx context.Context) (models.Settings, error)
	PutSettings(ctx context.Context, settings models.Settings) error
}

// BlobClient defines the blob storage operations used by the handlers.
type BlobClient interface {
	UploadText(ctx context.Context, containerName, blobName, content string) error
	DownloadText(ctx context.Context, containerName, blobName string) (string, error)
}

// QueueClient defines the queue operations used by the handlers.
type QueueClient interface {
	EnqueueMessage(ctx context.Context, queueName string, message any) error
}

// Dependencies holds the services required by the handlers.
type Dependencies struct {
	Database DatabaseClient
	Blob     BlobClient
	Queue    QueueClient
}

// Storage names shared by the upload, processing and export paths.
const (
	DataContainer    = "wallet-ledger-data"
	ProcessQueueName = "process-queue"
)

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", "error", err)
		}
	}
}

// WriteError writes an error response.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"error": message})
}
