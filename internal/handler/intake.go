package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/tcengine/crm/internal/model"
	"github.com/tcengine/crm/internal/store"
	"github.com/tcengine/crm/internal/token"
)

type IntakeHandler struct {
	codec         *token.Codec
	purchaseStore *store.PurchaseStore
	intakeStore   *store.IntakeStore
	logger        *slog.Logger
}

func NewIntakeHandler(
	codec *token.Codec,
	ps *store.PurchaseStore,
	is *store.IntakeStore,
	logger *slog.Logger,
) *IntakeHandler {
	return &IntakeHandler{
		codec:         codec,
		purchaseStore: ps,
		intakeStore:   is,
		logger:        logger,
	}
}

// Submit stores the engagement intake answers for a paid purchase. The
// intake-link token is the only credential; resubmission overwrites.
func (h *IntakeHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string          `json:"token"`
		Data  json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	if req.Token == "" {
		writeError(w, http.StatusBadRequest, "missing_token")
		return
	}

	// Answers must be a JSON object, not null or an array.
	var obj map[string]any
	if len(req.Data) == 0 || json.Unmarshal(req.Data, &obj) != nil || obj == nil {
		writeError(w, http.StatusBadRequest, "invalid_data")
		return
	}

	purchaseID, ok := h.codec.VerifyIntakeLink(req.Token)
	if !ok {
		writeError(w, http.StatusForbidden, "invalid_token")
		return
	}

	purchase, err := h.purchaseStore.GetByID(purchaseID)
	if err != nil {
		h.logger.Error("get purchase", "error", err)
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	if purchase == nil || purchase.Status != model.PurchaseStatusPaid {
		writeError(w, http.StatusForbidden, "not_allowed")
		return
	}

	if err := h.intakeStore.Upsert(purchase.ID, string(req.Data)); err != nil {
		h.logger.Error("upsert intake", "error", err)
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
