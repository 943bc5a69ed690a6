package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahosny-dev/wallet-ledger/internal/models"
)

const importHeader = "رقم,التاريخ,المصدر,نوع العملية,المبلغ,نوع الإيداع/القناة,اسم العميل,رقم الحساب,الموظف,البيان/ملاحظات,الرصيد التراكمي للمصدر,تحويل إلى"

func queueInvokeBody(t *testing.T, blobName, mode string) *bytes.Buffer {
	t.Helper()
	queueItem, err := json.Marshal(map[string]string{
		"blob_name": blobName,
		"filename":  "export.csv",
		"mode":      mode,
	})
	require.NoError(t, err)
	body, err := json.Marshal(map[string]any{
		"Data":     map[string]any{"queueItem": string(queueItem)},
		"Metadata": map[string]any{},
	})
	require.NoError(t, err)
	return bytes.NewBuffer(body)
}

func importDeps(csvContent string) (*Dependencies, *[]models.Transaction, *[]string) {
	var committed []models.Transaction
	var archived []string
	deps := &Dependencies{
		Database: &MockDatabaseClient{
			BulkAddFunc: func(ctx context.Context, transactions []models.Transaction) error {
				committed = append(committed, transactions...)
				return nil
			},
		},
		Blob: &MockBlobClient{
			DownloadTextFunc: func(ctx context.Context, containerName, blobName string) (string, error) {
				return csvContent, nil
			},
			UploadTextFunc: func(ctx context.Context, containerName, blobName, content string) error {
				archived = append(archived, blobName)
				return nil
			},
		},
	}
	return deps, &committed, &archived
}

func TestProcessQueue_CommitsLinkedImport(t *testing.T) {
	content := importHeader + "\n" +
		"1,2024-01-01,فودافون كاش,سحب,100,,,,,,,اتصالات كاش\n" +
		"2,2024-01-01,اتصالات كاش,إيداع,100,,,,,,,\n"
	deps, committed, archived := importDeps(content)

	req := httptest.NewRequest(http.MethodPost, "/ProcessQueue", queueInvokeBody(t, "uploads/x.csv", "valid-only"))
	rec := httptest.NewRecorder()
	deps.ProcessQueue(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var report ImportReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.True(t, report.Committed)
	assert.Equal(t, 2, report.Imported)
	assert.Empty(t, report.Rejected)

	require.Len(t, *committed, 2)
	withdrawal, deposit := (*committed)[0], (*committed)[1]
	require.NotNil(t, withdrawal.TransferGroupID)
	require.NotNil(t, deposit.TransferGroupID)
	assert.Equal(t, *withdrawal.TransferGroupID, *deposit.TransferGroupID)

	// The outcome report lands next to the uploaded file.
	assert.Contains(t, *archived, "uploads/x.csv.report.json")
}

func TestProcessQueue_ValidOnlySkipsBadRows(t *testing.T) {
	content := importHeader + "\n" +
		"1,2024-01-01,فودافون كاش,إيداع,50,,,,,,,\n" +
		"2,bad-date,فودافون كاش,إيداع,50,,,,,,,\n"
	deps, committed, _ := importDeps(content)

	req := httptest.NewRequest(http.MethodPost, "/ProcessQueue", queueInvokeBody(t, "uploads/x.csv", "valid-only"))
	rec := httptest.NewRecorder()
	deps.ProcessQueue(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var report ImportReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.True(t, report.Committed)
	assert.Equal(t, 1, report.Imported)
	require.Len(t, report.Rejected, 1)
	assert.Equal(t, 3, report.Rejected[0].RowNumber)
	assert.Len(t, *committed, 1)
}

func TestProcessQueue_StrictRefusesOnAnyBadRow(t *testing.T) {
	content := importHeader + "\n" +
		"1,2024-01-01,فودافون كاش,إيداع,50,,,,,,,\n" +
		"2,bad-date,فودافون كاش,إيداع,50,,,,,,,\n"
	deps, committed, _ := importDeps(content)

	req := httptest.NewRequest(http.MethodPost, "/ProcessQueue", queueInvokeBody(t, "uploads/x.csv", "strict"))
	rec := httptest.NewRecorder()
	deps.ProcessQueue(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var report ImportReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.False(t, report.Committed)
	assert.Equal(t, 0, report.Imported)
	assert.Len(t, report.Rejected, 1)
	assert.Empty(t, *committed, "strict mode must not commit anything")
}

func TestProcessQueue_HeaderErrorsAreHardStop(t *testing.T) {
	content := "رقم,التاريخ\n1,2024-01-01\n"
	deps, committed, _ := importDeps(content)

	req := httptest.NewRequest(http.MethodPost, "/ProcessQueue", queueInvokeBody(t, "uploads/x.csv", "valid-only"))
	rec := httptest.NewRecorder()
	deps.ProcessQueue(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var report ImportReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.False(t, report.Committed)
	assert.NotEmpty(t, report.HeaderErrors)
	assert.Empty(t, report.Rejected, "no row validation after a header error")
	assert.Empty(t, *committed)
}

func TestProcessQueue_CommitFailureReturns500(t *testing.T) {
	content := importHeader + "\n" +
		"1,2024-01-01,فودافون كاش,إيداع,50,,,,,,,\n"
	deps, _, archived := importDeps(content)
	deps.Database = &MockDatabaseClient{
		BulkAddFunc: func(ctx context.Context, transactions []models.Transaction) error {
			return errors.New("table unavailable")
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/ProcessQueue", queueInvokeBody(t, "uploads/x.csv", "valid-only"))
	rec := httptest.NewRecorder()
	deps.ProcessQueue(rec, req)

	// A storage failure is not a validation outcome: the host gets a 500
	// so the queue message is retried.
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var report ImportReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.False(t, report.Committed)
	assert.NotEmpty(t, report.CommitError)
	assert.Empty(t, report.HeaderErrors)
	assert.Contains(t, *archived, "uploads/x.csv.report.json")
}

func TestProcessQueue_BadEnvelope(t *testing.T) {
	deps := &Dependencies{Database: &MockDatabaseClient{}, Blob: &MockBlobClient{}}

	req := httptest.NewRequest(http.MethodPost, "/ProcessQueue", bytes.NewBufferString("not json"))
	rec := httptest.NewRecorder()
	deps.ProcessQueue(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body, err := json.Marshal(map[string]any{"Data": map[string]any{}})
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodPost, "/ProcessQueue", bytes.NewBuffer(body))
	rec = httptest.NewRecorder()
	deps.ProcessQueue(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProcessQueue_MissingBlobName(t *testing.T) {
	deps := &Dependencies{Database: &MockDatabaseClient{}, Blob: &MockBlobClient{}}

	queueItem, err := json.Marshal(map[string]string{"filename": "export.csv"})
	require.NoError(t, err)
	body, err := json.Marshal(map[string]any{
		"Data": map[string]any{"queueItem": string(queueItem)},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/ProcessQueue", bytes.NewBuffer(body))
	rec := httptest.NewRecorder()
	deps.ProcessQueue(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
