package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/saaskit/backend/internal/middleware"
	"github.com/saaskit/backend/internal/models"
	"github.com/saaskit/backend/internal/services"
)

// CreditLedger is the part of services.CreditService the HTTP layer needs.
type CreditLedger interface {
	GetBalance(ctx context.Context, userID string) (*models.Balance, error)
	DebitCredits(ctx context.Context, userID string, amount int64, description string) (*models.DebitResult, error)
	ListTransactions(ctx context.Context, userID string, limit int) ([]models.CreditTransaction, error)
}

type CreditHandler struct {
	service   CreditLedger
	validator *services.ValidationHelper
}

func NewCreditHandler(service CreditLedger) *CreditHandler {
	return &CreditHandler{
		service:   service,
		validator: services.NewValidationHelper(),
	}
}

// UseCreditsRequest is the body of POST /credits. Amount is kept raw so that
// non-integer values are reported as an invalid amount rather than a malformed body.
type UseCreditsRequest struct {
	Amount      json.RawMessage `json:"amount" swaggertype:"integer" example:"10"`
	Description string          `json:"description" validate:"max=500" example:"AI chat message"`
}

// TransactionsResponse is the body of GET /credits/transactions.
type TransactionsResponse struct {
	Transactions []models.CreditTransaction `json:"transactions"`
	Count        int                        `json:"count"`
}

// GetCredits returns the caller's balance
// @Summary Get credit balance
// @Description Returns the current balance, opening the account with the welcome bonus on first access
// @Tags credits
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.Balance
// @Failure 401 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Router /credits [get]
func (h *CreditHandler) GetCredits(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		services.WriteError(w, models.ErrUnauthenticated)
		return
	}

	balance, err := h.service.GetBalance(r.Context(), userID)
	if err != nil {
		services.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(balance)
}

// UseCredits debits the caller's balance
// @Summary Use credits
// @Description Atomically debits a positive whole number of credits from the caller's balance
// @Tags credits
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body UseCreditsRequest true "Debit request"
// @Success 200 {object} models.DebitResult
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Router /credits [post]
func (h *CreditHandler) UseCredits(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		services.WriteError(w, models.ErrUnauthenticated)
		return
	}

	var req UseCreditsRequest

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		services.WriteError(w, err)
		return
	}

	result, err := h.service.DebitCredits(r.Context(), userID, amount, req.Description)
	if err != nil {
		services.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// ListTransactions returns recent ledger entries
// @Summary List credit transactions
// @Description Returns the caller's most recent credit transactions, newest first
// @Tags credits
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Maximum number of transactions (1-100)" default(20)
// @Success 200 {object} TransactionsResponse
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Router /credits/transactions [get]
func (h *CreditHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		services.WriteError(w, models.ErrUnauthenticated)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 100 {
			services.SendErrorResponse(w, "limit must be between 1 and 100", http.StatusBadRequest, nil)
			return
		}
		limit = parsed
	}

	transactions, err := h.service.ListTransactions(r.Context(), userID, limit)
	if err != nil {
		services.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(TransactionsResponse{Transactions: transactions, Count: len(transactions)})
}

// parseAmount accepts only a JSON integer greater than zero.
func parseAmount(raw json.RawMessage) (int64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, models.ErrInvalidAmount
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return 0, models.ErrInvalidAmount
	}
	num, ok := v.(json.Number)
	if !ok {
		return 0, models.ErrInvalidAmount
	}
	amount, err := num.Int64()
	if err != nil || amount <= 0 {
		return 0, models.ErrInvalidAmount
	}
	return amount, nil
}
