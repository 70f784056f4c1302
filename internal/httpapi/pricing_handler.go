package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"genstudio/internal/logging"
	"genstudio/internal/models"
	"genstudio/internal/storage"
	"genstudio/internal/utils"
)

// PricingHandler serves the pricing model endpoints. It checks request
// structure only; credit values are validated by the admin editor.
type PricingHandler struct {
	store  storage.PricingStore
	audit  logging.AuditSink
	logger *logging.Logger
}

// NewPricingHandler creates a new pricing handler
func NewPricingHandler(store storage.PricingStore, audit logging.AuditSink) *PricingHandler {
	return &PricingHandler{
		store:  store,
		audit:  audit,
		logger: logging.NewLogger("pricing"),
	}
}

// RegisterRoutes mounts reads on viewer and writes on admin.
func (h *PricingHandler) RegisterRoutes(viewer, admin *mux.Router) {
	viewer.HandleFunc("/pricing", h.List).Methods(http.MethodGet)
	admin.HandleFunc("/pricing", h.Create).Methods(http.MethodPost)
	admin.HandleFunc("/pricing/{id}", h.Update).Methods(http.MethodPut)
	admin.HandleFunc("/pricing/{id}/cell", h.UpdateCell).Methods(http.MethodPatch)
	admin.HandleFunc("/pricing/{id}", h.Delete).Methods(http.MethodDelete)
}

// List handles GET /pricing?tool=&engine=&modelKey=&version=
func (h *PricingHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := storage.ListFilter{
		Tool:     query.Get("tool"),
		Engine:   query.Get("engine"),
		ModelKey: query.Get("modelKey"),
		Version:  query.Get("version"),
	}

	list, err := h.store.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list pricing models", "error", err)
		utils.RespondWithJSON(w, http.StatusInternalServerError, models.ListResponse{
			Data:    []*models.PricingModel{},
			Message: "Failed to list pricing models",
		})
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, models.ListResponse{Success: true, Data: list})
}

// Create handles POST /pricing
func (h *PricingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input models.PricingModelInput
	if err := utils.DecodeJSON(r, &input); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if msg := checkInput(&input); msg != "" {
		utils.RespondWithError(w, http.StatusBadRequest, msg)
		return
	}

	m := &models.PricingModel{}
	input.Apply(m)
	if err := h.store.Create(r.Context(), m); err != nil {
		h.respondStoreError(w, "create", err)
		return
	}

	h.record(r, "create", m.ID, m)
	utils.RespondWithJSON(w, http.StatusCreated, models.Response{Success: true, Message: "Pricing model created", ID: m.ID})
}

// Update handles PUT /pricing/{id}
func (h *PricingHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var input models.PricingModelInput
	if err := utils.DecodeJSON(r, &input); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if msg := checkInput(&input); msg != "" {
		utils.RespondWithError(w, http.StatusBadRequest, msg)
		return
	}

	m := &models.PricingModel{ID: id}
	input.Apply(m)
	if err := h.store.Update(r.Context(), m); err != nil {
		h.respondStoreError(w, "update", err)
		return
	}

	h.record(r, "update", id, m)
	utils.RespondWithJSON(w, http.StatusOK, models.Response{Success: true, Message: "Pricing model updated", ID: id})
}

// UpdateCell handles PATCH /pricing/{id}/cell
func (h *PricingHandler) UpdateCell(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var cell models.CellUpdate
	if err := utils.DecodeJSON(r, &cell); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	cell.Resolution = strings.TrimSpace(cell.Resolution)
	if cell.Resolution == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Resolution is required")
		return
	}
	if cell.Duration <= 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "Duration must be a positive number of seconds")
		return
	}

	if _, err := h.store.UpdateCell(r.Context(), id, cell.Resolution, strconv.Itoa(cell.Duration), cell.Credits); err != nil {
		h.respondStoreError(w, "update cell", err)
		return
	}

	h.record(r, "update_cell", id, cell)
	utils.RespondWithJSON(w, http.StatusOK, models.Response{Success: true, Message: "Pricing cell updated", ID: id})
}

// Delete handles DELETE /pricing/{id}
func (h *PricingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := h.store.Delete(r.Context(), id); err != nil {
		h.respondStoreError(w, "delete", err)
		return
	}

	h.record(r, "delete", id, nil)
	utils.RespondWithJSON(w, http.StatusOK, models.Response{Success: true, Message: "Pricing model deleted", ID: id})
}

func (h *PricingHandler) respondStoreError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, storage.ErrPricingModelNotFound):
		utils.RespondWithError(w, http.StatusNotFound, "Pricing model not found")
	case errors.Is(err, storage.ErrDuplicateModelKey):
		utils.RespondWithError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error("Pricing store failure", "op", op, "error", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to "+op+" pricing model")
	}
}

func (h *PricingHandler) record(r *http.Request, action, modelID string, detail any) {
	h.audit.Record(logging.AuditEntry{
		Timestamp: time.Now().UTC(),
		Subject:   subject(r),
		Action:    action,
		ModelID:   modelID,
		Detail:    detail,
	})
}

// checkInput returns a message for a structurally unusable body.
func checkInput(in *models.PricingModelInput) string {
	switch {
	case strings.TrimSpace(in.Engine) == "":
		return "Engine is required"
	case strings.TrimSpace(in.ModelKey) == "":
		return "Model key is required"
	case strings.TrimSpace(in.Name) == "":
		return "Name is required"
	}
	switch in.Tool {
	case models.ToolImage, models.ToolVideo, models.ToolMusic:
	default:
		return "Tool must be image, video or music"
	}
	switch in.Status {
	case "", models.StatusActive, models.StatusInactive:
	default:
		return "Status must be active or inactive"
	}
	return ""
}
