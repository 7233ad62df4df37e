package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	riskapp "fraud-risk-engine/internal/application/risk"
	"fraud-risk-engine/internal/infrastructure/ml"
	"fraud-risk-engine/internal/infrastructure/store/memory"
	"fraud-risk-engine/internal/pkg/metrics"
)

func newTestHandler(t *testing.T) *RiskHandler {
	t.Helper()

	codec := ml.NewCodec()
	encoder := ml.NewEncoder(codec, slog.Default())
	scorer := ml.NewScorer()
	detector := ml.NewOutlierDetector()
	profiler := ml.NewProfiler(detector, ml.NewHeuristicDetector(rand.New(rand.NewSource(3))), slog.Default())
	store := memory.NewHistoryStore()
	collector := metrics.NewCollector()

	analyze := riskapp.NewAnalyzeUseCase(scorer, profiler, encoder, codec, store, collector, slog.Default())
	ingest := riskapp.NewIngestUseCase(analyze, scorer, detector, profiler, encoder, store, collector, slog.Default())
	return NewRiskHandler(analyze, ingest)
}

func newTestMux(h *RiskHandler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/risk/analyze", h.Analyze)
	mux.HandleFunc("POST /api/v1/risk/analyze/batch", h.BatchAnalyze)
	mux.HandleFunc("GET /api/v1/risk/users/{id}/profile", h.GetUserProfile)
	mux.HandleFunc("GET /api/v1/risk/transactions", h.ListTransactions)
	mux.HandleFunc("GET /api/v1/risk/dashboard", h.Dashboard)
	mux.HandleFunc("POST /api/v1/risk/ingest", h.IngestCSV)
	return mux
}

func TestAnalyzeEndpoint(t *testing.T) {
	h := newTestHandler(t)
	mux := newTestMux(h)

	t.Run("valid transaction", func(t *testing.T) {
		body := `{"userId":"user_1","transactionType":"Credit Card","loginAttempts":2,"transactionVelocity":0.8,"location":"Mumbai"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/risk/analyze", strings.NewReader(body))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var out riskapp.AnalyzeOutput
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		assert.Equal(t, "user_1", out.UserID)
		assert.NotEmpty(t, out.TransactionID)
		assert.NotEmpty(t, out.RiskCategory)
		assert.NotEmpty(t, out.Recommendations)
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/risk/analyze", strings.NewReader("{"))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("validation failure", func(t *testing.T) {
		body := `{"userId":"user_1","transactionType":"Cheque"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/risk/analyze", strings.NewReader(body))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestBatchEndpoint(t *testing.T) {
	h := newTestHandler(t)
	mux := newTestMux(h)

	t.Run("empty batch", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/risk/analyze/batch", strings.NewReader(`{"transactions":[]}`))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("oversized batch", func(t *testing.T) {
		var items []string
		for i := 0; i < 101; i++ {
			items = append(items, fmt.Sprintf(`{"userId":"user_%d","transactionType":"UPI"}`, i))
		}
		body := `{"transactions":[` + strings.Join(items, ",") + `]}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/risk/analyze/batch", strings.NewReader(body))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("mixed batch keeps order", func(t *testing.T) {
		body := `{"transactions":[
			{"userId":"user_1","transactionType":"Credit Card"},
			{"userId":"","transactionType":"UPI"},
			{"userId":"user_3","transactionType":"Debit Card"}
		]}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/risk/analyze/batch", strings.NewReader(body))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var out riskapp.BatchOutput
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		require.Len(t, out.Results, 3)
		assert.Empty(t, out.Results[0].Error)
		assert.NotEmpty(t, out.Results[1].Error)
		assert.Empty(t, out.Results[2].Error)
		assert.Equal(t, 2, out.Summary.Analyzed)
		assert.Equal(t, 1, out.Summary.Failed)
	})
}

func TestUserProfileEndpoint(t *testing.T) {
	h := newTestHandler(t)
	mux := newTestMux(h)

	t.Run("unknown user", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/risk/users/nobody/profile", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("recorded user", func(t *testing.T) {
		body := `{"userId":"user_1","transactionType":"Credit Card"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/risk/analyze", strings.NewReader(body))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		req = httptest.NewRequest(http.MethodGet, "/api/v1/risk/users/user_1/profile", nil)
		rec = httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var profile map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &profile))
		assert.Equal(t, "user_1", profile["userId"])
		assert.Equal(t, float64(1), profile["transactionCount"])
	})
}

func TestDashboardEndpoint(t *testing.T) {
	h := newTestHandler(t)
	mux := newTestMux(h)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/risk/dashboard", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var dash map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dash))
	assert.Equal(t, float64(0), dash["totalTransactions"])
}

func TestListTransactionsEndpoint(t *testing.T) {
	h := newTestHandler(t)
	mux := newTestMux(h)

	t.Run("invalid limit", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/risk/transactions?limit=0", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("empty listing", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/risk/transactions", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var out map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		assert.Equal(t, float64(0), out["count"])
	})
}

func TestIngestEndpoint(t *testing.T) {
	h := newTestHandler(t)
	mux := newTestMux(h)

	t.Run("missing file", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/risk/ingest", strings.NewReader(""))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("non-csv filename rejected", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		part, err := mw.CreateFormFile("file", "transactions.xlsx")
		require.NoError(t, err)
		_, err = part.Write([]byte("userId\nuser_1\n"))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/v1/risk/ingest", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("csv upload", func(t *testing.T) {
		csv := "userId,transactionType,loginAttempts,transactionVelocity\n" +
			"user_1,Credit Card,2,0.8\n" +
			"user_2,UPI,1,0.5\n"

		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		part, err := mw.CreateFormFile("file", "transactions.csv")
		require.NoError(t, err)
		_, err = part.Write([]byte(csv))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/v1/risk/ingest", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var out riskapp.IngestResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		assert.Equal(t, 2, out.RowsRead)
		assert.Equal(t, 2, out.RowsAnalyzed)
		assert.Len(t, out.Results, 2)
		assert.Equal(t, "user_1", out.Results[0].UserID)
		assert.Equal(t, "user_2", out.Results[1].UserID)
	})
}
