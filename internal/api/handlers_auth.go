/**
 * @description
 * Login handlers: phone lookup with SMS code dispatch, then secret-code
 * verification exchanging the code and secret for a bearer token.
 */

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sunupay/ledger-service/internal/app"
	"github.com/sunupay/ledger-service/internal/store"
)

type loginRequest struct {
	Phone string `json:"phone"`
}

type verifySecretRequest struct {
	Phone  string `json:"phone"`
	Secret string `json:"secret"`
	Code   string `json:"code"`
}

// LoginHandler checks the phone is registered and sends a login code.
func (h *LedgerHandlers) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Phone == "" {
		h.writeError(w, http.StatusBadRequest, "phone is required")
		return
	}

	masked, err := h.service.Login(r.Context(), req.Phone)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			h.writeError(w, http.StatusNotFound, "No account registered with this phone.")
			return
		}
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"message": "A login code has been sent by SMS.",
		"sent_to": masked,
	})
}

// VerifySecretHandler finishes the login and issues a token.
func (h *LedgerHandlers) VerifySecretHandler(w http.ResponseWriter, r *http.Request) {
	var req verifySecretRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Phone == "" || req.Secret == "" || req.Code == "" {
		h.writeError(w, http.StatusBadRequest, "phone, secret and code are required")
		return
	}

	token, user, err := h.service.VerifySecret(r.Context(), req.Phone, req.Secret, req.Code)
	if err != nil {
		if errors.Is(err, app.ErrInvalidSecret) {
			h.writeError(w, http.StatusUnauthorized, "Invalid phone, secret code or verification code.")
			return
		}
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user": map[string]string{
			"id":    user.ID.String(),
			"name":  user.FullName(),
			"phone": user.Phone,
			"role":  user.Role,
		},
	})
}
