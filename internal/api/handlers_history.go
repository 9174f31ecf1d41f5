/**
 * @description
 * Transaction history handler: parses the filter query parameters and returns
 * the caller's paginated statement with per-row signed display amounts.
 */

package api

import (
	"net/http"
	"strconv"

	"github.com/sunupay/ledger-service/internal/domain"
)

// HistoryHandler lists the caller's transactions.
//
// Query parameters: type, status, min_amount, max_amount,
// period (today|week|month|year), search, limit, offset.
func (h *LedgerHandlers) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	opts := domain.HistoryOptions{
		Type:   q.Get("type"),
		Status: q.Get("status"),
		Period: q.Get("period"),
		Search: q.Get("search"),
	}
	opts.MinAmount = parseInt64Param(q.Get("min_amount"))
	opts.MaxAmount = parseInt64Param(q.Get("max_amount"))
	opts.Limit = int(parseInt64Param(q.Get("limit")))
	opts.Offset = int(parseInt64Param(q.Get("offset")))

	entries, err := h.service.History(r.Context(), claims.UserID, opts)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": entries,
		"count":        len(entries),
		"offset":       opts.Offset,
	})
}

// parseInt64Param returns 0 for empty or malformed values; filters are
// best-effort and a bad number simply means no bound.
func parseInt64Param(raw string) int64 {
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}
