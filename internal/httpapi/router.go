package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"genstudio/internal/auth"
	"genstudio/internal/jobs"
	"genstudio/internal/ledger"
	"genstudio/internal/logging"
	"genstudio/internal/middleware"
	"genstudio/internal/queue"
	"genstudio/internal/storage"
	"genstudio/internal/utils"
)

// JobAdmin exposes the dispatcher's queue state to admins.
type JobAdmin interface {
	QueueLength(ctx context.Context) (int, error)
	DeadLetters(ctx context.Context, maxItems int) ([]queue.DeadLetterItem[jobs.Descriptor], error)
	Retry(ctx context.Context, id string) error
}

// Dependencies aggregates all services the HTTP layer needs.
type Dependencies struct {
	Store     storage.PricingStore
	JWTSecret []byte
	Submitter jobs.Submitter
	Ledger    ledger.Ledger
	Jobs      JobAdmin
	Audit     logging.AuditSink

	// Health reports backing store problems; nil means always healthy.
	Health func(ctx context.Context) error
}

// NewRouter creates the pricing service router. Reads and job submission
// need a viewer token, pricing writes and job administration an admin one.
func NewRouter(deps *Dependencies) *mux.Router {
	if deps.Audit == nil {
		deps.Audit = logging.NoopAudit{}
	}
	if deps.Ledger == nil {
		deps.Ledger = ledger.NewNoopLedger()
	}

	r := mux.NewRouter()
	r.Use(middleware.RequestLogging(logging.NewLogger("http")))
	r.HandleFunc("/health", deps.handleHealth).Methods(http.MethodGet)

	viewer := r.NewRoute().Subrouter()
	viewer.Use(middleware.JWTMiddleware(deps.JWTSecret, auth.RoleViewer))

	admin := r.NewRoute().Subrouter()
	admin.Use(middleware.JWTMiddleware(deps.JWTSecret, auth.RoleAdmin))

	pricing := NewPricingHandler(deps.Store, deps.Audit)
	pricing.RegisterRoutes(viewer, admin)

	if deps.Submitter != nil {
		jobsHandler := NewJobsHandler(deps.Store, deps.Submitter, deps.Ledger, deps.Jobs)
		jobsHandler.RegisterRoutes(viewer, admin)
	}

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		utils.RespondWithError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	return r
}

func (deps *Dependencies) handleHealth(w http.ResponseWriter, r *http.Request) {
	if deps.Health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := deps.Health(ctx); err != nil {
			utils.RespondWithError(w, http.StatusServiceUnavailable, "Unhealthy: "+err.Error())
			return
		}
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.Envelope{Success: true, Message: "OK"})
}

// subject returns the authenticated caller, or "anonymous".
func subject(r *http.Request) string {
	if sub, ok := middleware.GetSubject(r.Context()); ok {
		return sub
	}
	return "anonymous"
}
