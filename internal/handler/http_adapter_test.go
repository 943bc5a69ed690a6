package handler

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func triggerEnvelope(t *testing.T, method, url, body string) *bytes.Buffer {
	t.Helper()
	var envelope HTTPTriggerRequest
	envelope.Data.Req.Method = method
	envelope.Data.Req.URL = url
	envelope.Data.Req.Body = body
	envelope.Data.Req.Headers = map[string][]string{"X-Test": {"yes"}}
	data, err := json.Marshal(envelope)
	require.NoError(t, err)
	return bytes.NewBuffer(data)
}

func TestHandleHTTPTrigger(t *testing.T) {
	deps := &Dependencies{}
	var seenBody string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "yes", r.Header.Get("X-Test"))
		raw, _ := io.ReadAll(r.Body)
		seenBody = string(raw)
		WriteJSON(w, http.StatusOK, map[string]string{"path": r.URL.Path})
	})

	req := httptest.NewRequest(http.MethodPost, "/HttpTrigger", triggerEnvelope(t, http.MethodPost, "/api/stats", `{"k":"v"}`))
	rec := httptest.NewRecorder()
	deps.HandleHTTPTrigger(next)(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp HTTPTriggerResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusOK, resp.Outputs.Res.StatusCode)
	assert.Contains(t, resp.Outputs.Res.Body, `"path":"/api/stats"`)
	assert.Equal(t, "application/json", resp.Outputs.Res.Headers["Content-Type"])
	assert.Equal(t, `{"k":"v"}`, seenBody)
}

func TestHandleHTTPTrigger_Base64Body(t *testing.T) {
	deps := &Dependencies{}
	var seenBody string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		seenBody = string(raw)
		w.WriteHeader(http.StatusOK)
	})

	encoded := base64.StdEncoding.EncodeToString([]byte("hello"))
	req := httptest.NewRequest(http.MethodPost, "/HttpTrigger", triggerEnvelope(t, http.MethodPost, "/api/transactions", encoded))
	rec := httptest.NewRecorder()
	deps.HandleHTTPTrigger(next)(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello", seenBody)
}

func TestHandleHTTPTrigger_BadEnvelope(t *testing.T) {
	deps := &Dependencies{}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("the inner handler must not run for a malformed envelope")
	})

	req := httptest.NewRequest(http.MethodPost, "/HttpTrigger", bytes.NewBufferString("not json"))
	rec := httptest.NewRecorder()
	deps.HandleHTTPTrigger(next)(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
