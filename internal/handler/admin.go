package handler

import (
	"log/slog"
	"net/http"

	"github.com/tcengine/crm/internal/backup"
	"github.com/tcengine/crm/internal/model"
	"github.com/tcengine/crm/internal/store"
)

type AdminHandler struct {
	customerStore *store.CustomerStore
	leadStore     *store.LeadStore
	purchaseStore *store.PurchaseStore
	intakeStore   *store.IntakeStore
	backups       *backup.Manager
	logger        *slog.Logger
}

func NewAdminHandler(
	cs *store.CustomerStore,
	ls *store.LeadStore,
	ps *store.PurchaseStore,
	is *store.IntakeStore,
	backups *backup.Manager,
	logger *slog.Logger,
) *AdminHandler {
	return &AdminHandler{
		customerStore: cs,
		leadStore:     ls,
		purchaseStore: ps,
		intakeStore:   is,
		backups:       backups,
		logger:        logger,
	}
}

// Customers lists the most recently seen customers.
func (h *AdminHandler) Customers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.customerStore.ListRecent(500)
	if err != nil {
		h.logger.Error("list customers", "error", err)
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "customers": customers})
}

type customerDetail struct {
	Customer  *model.Customer          `json:"customer"`
	Leads     []model.Lead             `json:"leads"`
	Purchases []model.Purchase         `json:"purchases"`
	Intakes   []model.EngagementIntake `json:"intakes"`
}

// CustomerDetail returns one customer with their leads, purchases, and any
// submitted intake forms.
func (h *AdminHandler) CustomerDetail(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	customer, err := h.customerStore.GetByID(id)
	if err != nil {
		h.logger.Error("get customer", "error", err)
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	if customer == nil {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}

	leads, err := h.leadStore.ListByCustomer(customer.ID)
	if err != nil {
		h.logger.Error("list leads", "error", err)
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	purchases, err := h.purchaseStore.ListByCustomer(customer.ID)
	if err != nil {
		h.logger.Error("list purchases", "error", err)
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	intakes := []model.EngagementIntake{}
	for _, p := range purchases {
		intake, err := h.intakeStore.GetByPurchaseID(p.ID)
		if err != nil {
			h.logger.Error("get intake", "error", err)
			writeError(w, http.StatusInternalServerError, "db_error")
			return
		}
		if intake != nil {
			intakes = append(intakes, *intake)
		}
	}

	writeJSON(w, http.StatusOK, customerDetail{
		Customer:  customer,
		Leads:     leads,
		Purchases: purchases,
		Intakes:   intakes,
	})
}

// BackupStatus reports the backup manager state.
func (h *AdminHandler) BackupStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "backup": h.backups.Status()})
}

// BackupRun triggers an immediate backup.
func (h *AdminHandler) BackupRun(w http.ResponseWriter, r *http.Request) {
	if !h.backups.Enabled() {
		writeError(w, http.StatusServiceUnavailable, "backup_not_configured")
		return
	}

	key, err := h.backups.RunNow(r.Context())
	if err != nil {
		h.logger.Error("run backup", "error", err)
		writeError(w, http.StatusInternalServerError, "backup_failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "key": key})
}
