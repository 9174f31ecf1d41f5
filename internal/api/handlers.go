/**
 * @description
 * This file contains the HTTP handlers for the ledger-service's transaction
 * endpoints. Handlers are responsible for parsing incoming requests, calling
 * the appropriate methods on the application service, and writing the HTTP
 * response. They act as the bridge between the web layer and the business
 * logic layer.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - internal/app, internal/domain, internal/store: For service logic, models, and custom errors.
 */

package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sunupay/ledger-service/internal/app"
	"github.com/sunupay/ledger-service/internal/auth"
	"github.com/sunupay/ledger-service/internal/domain"
	"github.com/sunupay/ledger-service/internal/store"
)

// LedgerHandlers holds the application service that handlers will use.
type LedgerHandlers struct {
	service *app.Service
}

// NewLedgerHandlers creates a new instance of LedgerHandlers.
func NewLedgerHandlers(service *app.Service) *LedgerHandlers {
	return &LedgerHandlers{service: service}
}

// transactionResponse is the envelope returned by all movement endpoints.
type transactionResponse struct {
	TransactionID string `json:"transaction_id"`
	Reference     string `json:"reference"`
	Type          string `json:"type"`
	Status        string `json:"status"`
	Amount        int64  `json:"amount"`
	Fee           int64  `json:"fee"`
	Total         int64  `json:"total"`
	Description   string `json:"description,omitempty"`
	Message       string `json:"message,omitempty"`
}

func buildTransactionResponse(tx *domain.Transaction, message string) transactionResponse {
	return transactionResponse{
		TransactionID: tx.ID.String(),
		Reference:     tx.Reference,
		Type:          tx.Type,
		Status:        tx.Status,
		Amount:        tx.Amount,
		Fee:           tx.Fee,
		Total:         tx.Total,
		Description:   tx.Description,
		Message:       message,
	}
}

// claims pulls the authenticated identity out of the context, replying 401
// when the middleware did not run.
func (h *LedgerHandlers) claims(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	claims, ok := GetAuthClaims(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Authentication required")
		return nil, false
	}
	return claims, true
}

// TransferHandler handles requests to initiate a transfer to another account.
func (h *LedgerHandlers) TransferHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}

	var req domain.TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	tx, err := h.service.InitiateTransfer(r.Context(), claims.UserID, claims.Role, req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusAccepted, buildTransactionResponse(tx, "Confirmation code sent. Verify to complete the transfer."))
}

// PaymentHandler handles requests to initiate a merchant payment.
func (h *LedgerHandlers) PaymentHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}

	var req domain.PaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	tx, err := h.service.InitiatePayment(r.Context(), claims.UserID, claims.Role, req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusAccepted, buildTransactionResponse(tx, "Confirmation code sent. Verify to complete the payment."))
}

// VerifyCodeHandler settles a pending transaction with its one-time code.
func (h *LedgerHandlers) VerifyCodeHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}

	var req domain.VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.TransactionID == uuid.Nil || req.Code == "" {
		h.writeError(w, http.StatusBadRequest, "transaction_id and code are required")
		return
	}

	tx, err := h.service.Verify(r.Context(), claims.UserID, req)
	if err != nil {
		// A settled failure still returns the transaction so the client can
		// show the failed receipt.
		if tx != nil && tx.Status == domain.StatusFailed {
			h.writeJSON(w, http.StatusUnprocessableEntity, buildTransactionResponse(tx, err.Error()))
			return
		}
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, buildTransactionResponse(tx, "Transaction completed."))
}

// CancelHandler cancels a still-pending transaction owned by the caller.
func (h *LedgerHandlers) CancelHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}

	transactionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid transaction id")
		return
	}

	tx, err := h.service.CancelPending(r.Context(), claims.UserID, transactionID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, buildTransactionResponse(tx, "Transaction cancelled."))
}

// DepositHandler settles a deposit in a single step.
func (h *LedgerHandlers) DepositHandler(w http.ResponseWriter, r *http.Request) {
	h.cashHandler(w, r, h.service.ProcessDeposit)
}

// WithdrawalHandler settles a withdrawal in a single step.
func (h *LedgerHandlers) WithdrawalHandler(w http.ResponseWriter, r *http.Request) {
	h.cashHandler(w, r, h.service.ProcessWithdrawal)
}

func (h *LedgerHandlers) cashHandler(
	w http.ResponseWriter,
	r *http.Request,
	process func(ctx context.Context, userID uuid.UUID, role string, req domain.CashRequest) (*domain.Transaction, error),
) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}

	var req domain.CashRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	tx, err := process(r.Context(), claims.UserID, claims.Role, req)
	if err != nil {
		if tx != nil && tx.Status == domain.StatusFailed {
			h.writeJSON(w, http.StatusUnprocessableEntity, buildTransactionResponse(tx, err.Error()))
			return
		}
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, buildTransactionResponse(tx, "Transaction completed."))
}

// GetTransactionHandler returns one transaction the caller is party to.
func (h *LedgerHandlers) GetTransactionHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}

	transactionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid transaction id")
		return
	}

	entry, err := h.service.GetTransaction(r.Context(), claims.UserID, transactionID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, entry)
}

// BalanceHandler returns the caller's account balance summary.
func (h *LedgerHandlers) BalanceHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}

	summary, err := h.service.Balance(r.Context(), claims.UserID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, summary)
}

// TotalBalanceHandler returns the caller's aggregate across active accounts.
func (h *LedgerHandlers) TotalBalanceHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}

	total, err := h.service.TotalBalance(r.Context(), claims.UserID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"total_balance": total,
		"formatted":     app.FormatBalance(total),
	})
}

// writeServiceError maps service and store errors onto HTTP statuses.
func (h *LedgerHandlers) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrInvalidAmount):
		h.writeError(w, http.StatusBadRequest, "Amount must be a positive whole number.")
	case errors.Is(err, app.ErrSelfTransfer):
		h.writeError(w, http.StatusBadRequest, "Sender and recipient are the same account.")
	case errors.Is(err, app.ErrUnauthorized):
		h.writeError(w, http.StatusForbidden, "You are not allowed to perform this operation.")
	case errors.Is(err, app.ErrMerchantClosed):
		h.writeError(w, http.StatusUnprocessableEntity, "This merchant is not accepting payments.")
	case errors.Is(err, store.ErrRecipientNotFound):
		h.writeError(w, http.StatusNotFound, "Recipient account not found.")
	case errors.Is(err, store.ErrMerchantNotFound):
		h.writeError(w, http.StatusNotFound, "Merchant not found.")
	case errors.Is(err, store.ErrAccountNotFound), errors.Is(err, store.ErrUserNotFound):
		h.writeError(w, http.StatusNotFound, "Account not found.")
	case errors.Is(err, store.ErrTransactionNotFound):
		h.writeError(w, http.StatusNotFound, "Transaction not found.")
	case errors.Is(err, store.ErrNotOwner):
		h.writeError(w, http.StatusForbidden, "This transaction does not belong to you.")
	case errors.Is(err, store.ErrTransactionNotPending):
		h.writeError(w, http.StatusConflict, "Transaction is no longer pending.")
	case errors.Is(err, store.ErrInvalidOrExpiredCode):
		h.writeError(w, http.StatusUnauthorized, "Invalid or expired verification code.")
	case errors.Is(err, store.ErrInsufficientFunds):
		h.writeError(w, http.StatusUnprocessableEntity, "Insufficient funds.")
	case errors.Is(err, store.ErrDailyLimitExceeded):
		h.writeError(w, http.StatusUnprocessableEntity, "Daily transaction ceiling exceeded.")
	case errors.Is(err, store.ErrAccountNotActive):
		h.writeError(w, http.StatusUnprocessableEntity, "Account is not active.")
	case errors.Is(err, store.ErrSerializationFailure):
		h.writeError(w, http.StatusConflict, "Conflicting concurrent operation, please retry.")
	default:
		log.Printf("level=error component=api msg=\"unhandled service error\" err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "An internal error occurred.")
	}
}

// writeJSON is a helper for writing JSON responses.
func (h *LedgerHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError is a helper for writing JSON error responses.
func (h *LedgerHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
