package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	riskapp "fraud-risk-engine/internal/application/risk"
	"fraud-risk-engine/internal/domain/risk"
	"fraud-risk-engine/internal/domain/transaction"
)

// maxBatchSize bounds one batch request
const maxBatchSize = 100

// RiskHandler handles risk analysis HTTP requests
type RiskHandler struct {
	analyzeUseCase *riskapp.AnalyzeUseCase
	ingestUseCase  *riskapp.IngestUseCase
}

// NewRiskHandler creates a new risk handler
func NewRiskHandler(analyzeUseCase *riskapp.AnalyzeUseCase, ingestUseCase *riskapp.IngestUseCase) *RiskHandler {
	return &RiskHandler{
		analyzeUseCase: analyzeUseCase,
		ingestUseCase:  ingestUseCase,
	}
}

// Analyze handles POST /api/v1/risk/analyze
func (h *RiskHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var raw transaction.Raw
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.analyzeUseCase.Execute(r.Context(), riskapp.AnalyzeInput{Raw: raw})
	if err != nil {
		if errors.Is(err, transaction.ErrValidation) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "Risk analysis failed: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// BatchAnalyze handles POST /api/v1/risk/analyze/batch
func (h *RiskHandler) BatchAnalyze(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Transactions []transaction.Raw `json:"transactions"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if len(req.Transactions) == 0 {
		writeError(w, http.StatusBadRequest, "No transactions provided")
		return
	}
	if len(req.Transactions) > maxBatchSize {
		writeError(w, http.StatusBadRequest, "Maximum 100 transactions per batch")
		return
	}

	result, err := h.analyzeUseCase.ExecuteBatch(r.Context(), riskapp.BatchInput{
		Transactions: req.Transactions,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Batch analysis failed: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// GetUserProfile handles GET /api/v1/risk/users/{id}/profile
func (h *RiskHandler) GetUserProfile(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "User ID is required")
		return
	}

	profile, err := h.analyzeUseCase.UserProfile(r.Context(), userID)
	if err != nil {
		if errors.Is(err, risk.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get user profile: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

// ListTransactions handles GET /api/v1/risk/transactions
func (h *RiskHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	filter := riskapp.TransactionFilter{
		UserID:       r.URL.Query().Get("userId"),
		RiskCategory: r.URL.Query().Get("risk"),
		Limit:        50,
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > 500 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		filter.Limit = limit
	}

	transactions, err := h.analyzeUseCase.Transactions(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list transactions: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": transactions,
		"count":        len(transactions),
	})
}

// Dashboard handles GET /api/v1/risk/dashboard
func (h *RiskHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.analyzeUseCase.DashboardStats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute dashboard: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// IngestCSV handles POST /api/v1/risk/ingest
func (h *RiskHandler) IngestCSV(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing file upload: "+err.Error())
		return
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".csv") {
		writeError(w, http.StatusBadRequest, "File must be a CSV")
		return
	}

	result, err := h.ingestUseCase.ExecuteCSV(r.Context(), file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Ingestion failed: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Helper functions
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
