package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"genstudio/internal/jobs"
	"genstudio/internal/ledger"
	"genstudio/internal/logging"
	"genstudio/internal/models"
	"genstudio/internal/queue"
	"genstudio/internal/storage"
	"genstudio/internal/utils"
)

// JobsHandler accepts generation submissions and reports credit balances.
type JobsHandler struct {
	store     storage.PricingStore
	submitter jobs.Submitter
	ledger    ledger.Ledger
	admin     JobAdmin
	logger    *logging.Logger
}

// NewJobsHandler creates a jobs handler. admin may be nil when no
// dispatcher runs in this process.
func NewJobsHandler(store storage.PricingStore, submitter jobs.Submitter, l ledger.Ledger, admin JobAdmin) *JobsHandler {
	return &JobsHandler{
		store:     store,
		submitter: submitter,
		ledger:    l,
		admin:     admin,
		logger:    logging.NewLogger("jobs-api"),
	}
}

// RegisterRoutes mounts submission and balance on viewer and queue
// administration on admin.
func (h *JobsHandler) RegisterRoutes(viewer, admin *mux.Router) {
	viewer.HandleFunc("/jobs", h.Submit).Methods(http.MethodPost)
	viewer.HandleFunc("/credits", h.Balance).Methods(http.MethodGet)
	if h.admin != nil {
		admin.HandleFunc("/jobs/queue", h.QueueStatus).Methods(http.MethodGet)
		admin.HandleFunc("/jobs/dead-letters/{id}/retry", h.Retry).Methods(http.MethodPost)
	}
}

// Submit handles POST /jobs. The caller is always the token subject and
// every job is priced from the stored model, whatever cost the body names.
func (h *JobsHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var sub jobs.Submission
	if err := utils.DecodeJSON(r, &sub); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	sub.UserID = subject(r)

	loaded := make(map[string]*models.PricingModel)
	for i := range sub.Descriptors {
		d := &sub.Descriptors[i]
		m, ok := loaded[d.ModelID]
		if !ok {
			var err error
			m, err = h.store.Get(r.Context(), d.ModelID)
			if errors.Is(err, storage.ErrPricingModelNotFound) {
				utils.RespondWithError(w, http.StatusBadRequest, "Unknown model: "+d.ModelID)
				return
			}
			if err != nil {
				h.logger.Error("Model lookup failed", "model", d.ModelID, "error", err)
				utils.RespondWithError(w, http.StatusServiceUnavailable, "Failed to price jobs")
				return
			}
			loaded[d.ModelID] = m
		}
		if err := jobs.Quote(m, d); err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	receipt, err := h.submitter.Submit(r.Context(), sub)
	switch {
	case err == nil:
		utils.RespondWithJSON(w, http.StatusAccepted, utils.Envelope{Success: true, Data: receipt, ID: receipt.SubmissionID})
	case errors.Is(err, jobs.ErrEmptySubmission):
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, jobs.ErrRateLimited):
		utils.RespondWithError(w, http.StatusTooManyRequests, err.Error())
	case jobs.IsInsufficientCredits(err):
		utils.RespondWithError(w, http.StatusPaymentRequired, "Insufficient credits")
	default:
		h.logger.Error("Submission failed", "user", sub.UserID, "error", err)
		if len(receipt.JobIDs) > 0 {
			// Part of the batch was queued; report what was accepted.
			utils.RespondWithJSON(w, http.StatusServiceUnavailable, utils.Envelope{Success: false, Data: receipt, Message: err.Error()})
			return
		}
		utils.RespondWithError(w, http.StatusServiceUnavailable, "Failed to submit jobs")
	}
}

// Balance handles GET /credits
func (h *JobsHandler) Balance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.ledger.Balance(r.Context(), subject(r))
	if err != nil {
		h.logger.Error("Balance lookup failed", "error", err)
		utils.RespondWithError(w, http.StatusServiceUnavailable, "Failed to read credit balance")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.Envelope{Success: true, Data: map[string]float64{"balance": balance}})
}

// QueueStatus handles GET /jobs/queue?limit=
func (h *JobsHandler) QueueStatus(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	length, err := h.admin.QueueLength(r.Context())
	if err != nil {
		utils.RespondWithError(w, http.StatusServiceUnavailable, "Failed to read queue length")
		return
	}
	dead, err := h.admin.DeadLetters(r.Context(), limit)
	if err != nil {
		utils.RespondWithError(w, http.StatusServiceUnavailable, "Failed to list dead letters")
		return
	}
	if dead == nil {
		dead = []queue.DeadLetterItem[jobs.Descriptor]{}
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.Envelope{Success: true, Data: map[string]any{
		"queued":      length,
		"deadLetters": dead,
	}})
}

// Retry handles POST /jobs/dead-letters/{id}/retry
func (h *JobsHandler) Retry(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	err := h.admin.Retry(r.Context(), id)
	switch {
	case err == nil:
		utils.RespondWithJSON(w, http.StatusOK, utils.Envelope{Success: true, Message: "Job re-queued", ID: id})
	case errors.Is(err, queue.ErrItemNotFound):
		utils.RespondWithError(w, http.StatusNotFound, "Dead letter not found")
	case jobs.IsInsufficientCredits(err):
		utils.RespondWithError(w, http.StatusPaymentRequired, "Insufficient credits")
	default:
		h.logger.Error("Retry failed", "id", id, "error", err)
		utils.RespondWithError(w, http.StatusServiceUnavailable, "Failed to retry job")
	}
}
