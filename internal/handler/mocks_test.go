package handler

import (
	"context"
	"fmt"

	"github.com/ahosny-dev/wallet-ledger/internal/ledger"
	"github.com/ahosny-dev/wallet-ledger/internal/models"
)

// MockDatabaseClient implements DatabaseClient with swappable behavior.
type MockDatabaseClient struct {
	GetTransactionFunc       func(ctx context.Context, id string) (*models.Transaction, error)
	ListTransactionsFunc     func(ctx context.Context) ([]models.Transaction, error)
	QueryByTransferGroupFunc func(ctx context.Context, groupID string) ([]models.Transaction, error)
	ApplyFunc                func(ctx context.Context, plan ledger.WritePlan) error
	BulkAddFunc              func(ctx context.Context, transactions []models.Transaction) error
	ClearFunc                func(ctx context.Context) error
	ReplaceAllFunc           func(ctx context.Context, transactions []models.Transaction, settings models.Settings) error
	GetSettingsFunc          func(ctx context.Context) (models.Settings, error)
	PutSettingsFunc          func(ctx context.Context, settings models.Settings) error
}

func (m *MockDatabaseClient) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	if m.GetTransactionFunc != nil {
		return m.GetTransactionFunc(ctx, id)
	}
	return nil, fmt.Errorf("%w: %s", ledger.ErrNotFound, id)
}

func (m *MockDatabaseClient) ListTransactions(ctx context.Context) ([]models.Transaction, error) {
	if m.ListTransactionsFunc != nil {
		return m.ListTransactionsFunc(ctx)
	}
	return nil, nil
}

func (m *MockDatabaseClient) QueryByTransferGroup(ctx context.Context, groupID string) ([]models.Transaction, error) {
	if m.QueryByTransferGroupFunc != nil {
		return m.QueryByTransferGroupFunc(ctx, groupID)
	}
	return nil, nil
}

func (m *MockDatabaseClient) Apply(ctx context.Context, plan ledger.WritePlan) error {
	if m.ApplyFunc != nil {
		return m.ApplyFunc(ctx, plan)
	}
	return nil
}

func (m *MockDatabaseClient) BulkAdd(ctx context.Context, transactions []models.Transaction) error {
	if m.BulkAddFunc != nil {
		return m.BulkAddFunc(ctx, transactions)
	}
	return nil
}

func (m *MockDatabaseClient) Clear(ctx context.Context) error {
	if m.ClearFunc != nil {
		return m.ClearFunc(ctx)
	}
	return nil
}

func (m *MockDatabaseClient) ReplaceAll(ctx context.Context, transactions []models.Transaction, settings models.Settings) error {
	if m.ReplaceAllFunc != nil {
		return m.ReplaceAllFunc(ctx, transactions, settings)
	}
	return nil
}

func (m *MockDatabaseClient) GetSettings(ctx context.Context) (models.Settings, error) {
	if m.GetSettingsFunc != nil {
		return m.GetSettingsFunc(ctx)
	}
	return models.DefaultSettings(), nil
}

func (m *MockDatabaseClient) PutSettings(ctx context.Context, settings models.Settings) error {
	if m.PutSettingsFunc != nil {
		return m.PutSettingsFunc(ctx, settings)
	}
	return nil
}

// MockBlobClient implements BlobClient with swappable behavior.
type MockBlobClient struct {
	UploadTextFunc   func(ctx context.Context, containerName, blobName, content string) error
	DownloadTextFunc func(ctx context.Context, containerName, blobName string) (string, error)
}

func (m *MockBlobClient) UploadText(ctx context.Context, containerName, blobName, content string) error {
	if m.UploadTextFunc != nil {
		return m.UploadTextFunc(ctx, containerName, blobName, content)
	}
	return nil
}

func (m *MockBlobClient) DownloadText(ctx context.Context, containerName, blobName string) (string, error) {
	if m.DownloadTextFunc != nil {
		return m.DownloadTextFunc(ctx, containerName, blobName)
	}
	return "", nil
}

// MockQueueClient implements QueueClient with swappable behavior.
type MockQueueClient struct {
	EnqueueMessageFunc func(ctx context.Context, queueName string, message any) error
}

func (m *MockQueueClient) EnqueueMessage(ctx context.Context, queueName string, message any) error {
	if m.EnqueueMessageFunc != nil {
		return m.EnqueueMessageFunc(ctx, queueName, message)
	}
	return nil
}
