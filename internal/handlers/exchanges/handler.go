package exchanges

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"gitlab.com/steer-2025.net/internal/core/ports/primary"
	"gitlab.com/steer-2025.net/internal/core/ports/secondary"
	"gitlab.com/steer-2025.net/internal/handlers"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
)

type ApiHandler struct {
	ExchangeRepo secondary.ExchangeRepository
	Logger       primary.Logger
}

func NewHandler(exchangeRepo secondary.ExchangeRepository, logger primary.Logger) *ApiHandler {
	return &ApiHandler{
		ExchangeRepo: exchangeRepo,
		Logger:       logger,
	}
}

func (api *ApiHandler) Register(r *mux.Router) {
	r.HandleFunc("/runs/{runId}/exchanges", api.ListExchanges).Methods("GET")
	r.HandleFunc("/runs/{runId}/commands", api.CountCommands).Methods("GET")
}

func (api *ApiHandler) ListExchanges(w http.ResponseWriter, r *http.Request) {
	runID, ok := parseRunID(w, r)
	if !ok {
		return
	}

	limit := defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			handlers.ResponseError(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = min(n, maxLimit)
	}

	exchanges, err := api.ExchangeRepo.ListExchanges(r.Context(), runID, limit)
	if err != nil {
		api.Logger.Error("Failed to list exchanges", "runId", runID, "error", err)
		handlers.ResponseError(w, "Failed to list exchanges", http.StatusInternalServerError)
		return
	}
	handlers.ResponseWithJson(w, http.StatusOK, map[string]interface{}{"exchanges": exchanges})
}

func (api *ApiHandler) CountCommands(w http.ResponseWriter, r *http.Request) {
	runID, ok := parseRunID(w, r)
	if !ok {
		return
	}

	counts, err := api.ExchangeRepo.CountByCommand(r.Context(), runID)
	if err != nil {
		api.Logger.Error("Failed to count commands", "runId", runID, "error", err)
		handlers.ResponseError(w, "Failed to count commands", http.StatusInternalServerError)
		return
	}
	handlers.ResponseWithJson(w, http.StatusOK, map[string]interface{}{"commands": counts})
}

func parseRunID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	runID, err := uuid.Parse(mux.Vars(r)["runId"])
	if err != nil {
		handlers.ResponseError(w, "invalid run id", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return runID, true
}
