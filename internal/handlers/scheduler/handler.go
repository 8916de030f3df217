package scheduler

import (
	"net/http"

	"github.com/gorilla/mux"

	"gitlab.com/steer-2025.net/internal/domain"
	"gitlab.com/steer-2025.net/internal/handlers"
)

// SnapshotProvider exposes the scheduler state of a running master
type SnapshotProvider interface {
	Snapshot() domain.SchedulerSnapshot
}

type ApiHandler struct {
	Scheduler SnapshotProvider
}

func NewHandler(scheduler SnapshotProvider) *ApiHandler {
	return &ApiHandler{Scheduler: scheduler}
}

func (api *ApiHandler) Register(r *mux.Router) {
	r.HandleFunc("/scheduler/status", api.GetStatus).Methods("GET")
}

func (api *ApiHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	handlers.ResponseWithJson(w, http.StatusOK, api.Scheduler.Snapshot())
}
