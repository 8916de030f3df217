package workers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"gitlab.com/steer-2025.net/internal/core/services/worker"
	"gitlab.com/steer-2025.net/internal/handlers"
)

type ApiHandler struct {
	WorkerService worker.IWorkerRegistrationService
}

func NewHandler(WorkerService worker.IWorkerRegistrationService) *ApiHandler {
	return &ApiHandler{
		WorkerService: WorkerService,
	}
}

func (api *ApiHandler) Register(r *mux.Router) {
	r.HandleFunc("/workers", api.GetWorkers).Methods("GET")
	r.HandleFunc("/workers/{workerId:[0-9]+}", api.GetWorker).Methods("GET")
}

func (api *ApiHandler) GetWorkers(w http.ResponseWriter, r *http.Request) {
	workers, err := api.WorkerService.GetAllWorkers(r.Context())
	if err != nil {
		handlers.ResponseError(w, "Failed to get workers", http.StatusInternalServerError)
		return
	}

	handlers.ResponseWithJson(w, http.StatusOK, map[string]interface{}{"workers": workers})
}

func (api *ApiHandler) GetWorker(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["workerId"])
	if err != nil {
		handlers.ResponseError(w, "invalid worker id", http.StatusBadRequest)
		return
	}

	workers, err := api.WorkerService.GetAllWorkers(r.Context())
	if err != nil {
		handlers.ResponseError(w, "Failed to get workers", http.StatusInternalServerError)
		return
	}
	for _, info := range workers {
		if info.ID == id {
			handlers.ResponseWithJson(w, http.StatusOK, info)
			return
		}
	}
	handlers.ResponseError(w, "worker not connected", http.StatusNotFound)
}
