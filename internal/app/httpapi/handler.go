// Package httpapi exposes the ledger operations as a REST API.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	app "github.com/R3E-Network/data_ledger/internal/app"
	"github.com/R3E-Network/data_ledger/internal/app/auth"
	registrysvc "github.com/R3E-Network/data_ledger/internal/app/services/registry"
	treasurysvc "github.com/R3E-Network/data_ledger/internal/app/services/treasury"
	"github.com/R3E-Network/data_ledger/internal/app/storage"
	"github.com/R3E-Network/data_ledger/internal/middleware"
)

// handler bundles HTTP endpoints for the ledger services.
type handler struct {
	app *app.Application
}

// NewHandler returns a router exposing the ledger REST API.
func NewHandler(application *app.Application) http.Handler {
	h := &handler{app: application}

	r := mux.NewRouter()
	r.HandleFunc("/health", h.health).Methods(http.MethodGet)

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/datapoints", h.submit).Methods(http.MethodPost)
	v1.HandleFunc("/datapoints/{id}", h.dataPoint).Methods(http.MethodGet)
	v1.HandleFunc("/datapoints/{id}/verify", h.verify).Methods(http.MethodPost)
	v1.HandleFunc("/contributors/{id}/datapoints", h.contributorData).Methods(http.MethodGet)
	v1.HandleFunc("/contributors/{id}/balance", h.balance).Methods(http.MethodGet)
	v1.HandleFunc("/contributors/{id}/payouts", h.payouts).Methods(http.MethodGet)
	v1.HandleFunc("/claims", h.claim).Methods(http.MethodPost)
	v1.HandleFunc("/categories", h.addCategory).Methods(http.MethodPost)
	v1.HandleFunc("/categories", h.categories).Methods(http.MethodGet)
	v1.HandleFunc("/treasury/fund", h.fund).Methods(http.MethodPost)
	v1.HandleFunc("/stats", h.stats).Methods(http.MethodGet)

	return r
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *handler) submit(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}

	var payload struct {
		Fingerprint string `json:"fingerprint"`
		Category    string `json:"category"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	dp, err := h.app.Registry.Submit(r.Context(), caller, payload.Fingerprint, payload.Category)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, dp)
}

func (h *handler) dataPoint(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	dp, err := h.app.Registry.DataPoint(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dp)
}

func (h *handler) verify(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	dp, err := h.app.Registry.Verify(r.Context(), caller, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dp)
}

func (h *handler) contributorData(w http.ResponseWriter, r *http.Request) {
	ids, err := h.app.Registry.ContributorData(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ids)
}

func (h *handler) balance(w http.ResponseWriter, r *http.Request) {
	contributor := mux.Vars(r)["id"]
	balance, err := h.app.Registry.RewardBalance(r.Context(), contributor)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"contributor": contributor,
		"balance":     balance,
	})
}

func (h *handler) payouts(w http.ResponseWriter, r *http.Request) {
	payouts, err := h.app.Treasury.Payouts(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payouts)
}

func (h *handler) claim(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}

	payout, err := h.app.Treasury.Claim(r.Context(), caller)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payout)
}

func (h *handler) addCategory(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}

	var payload struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := h.app.Registry.AddCategory(r.Context(), caller, payload.Name); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"name": payload.Name})
}

func (h *handler) categories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.app.Registry.Categories(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

func (h *handler) fund(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}

	var payload struct {
		Amount int64 `json:"amount"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	stats, err := h.app.Treasury.Fund(r.Context(), caller, payload.Amount)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *handler) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.app.Treasury.Stats(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// --- Helpers ----------------------------------------------------------------

func requireCaller(w http.ResponseWriter, r *http.Request) (string, bool) {
	caller := middleware.Caller(r.Context())
	if caller == "" {
		writeError(w, http.StatusUnauthorized, errors.New("caller identity required"))
		return "", false
	}
	return caller, true
}

func pathID(r *http.Request) (int64, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errors.New("id must be an integer")
	}
	return id, nil
}

// writeServiceError maps the ledger error taxonomy onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, registrysvc.ErrEmptyFingerprint),
		errors.Is(err, registrysvc.ErrInvalidCategory),
		errors.Is(err, registrysvc.ErrEmptyCategory),
		errors.Is(err, treasurysvc.ErrInvalidAmount):
		status = http.StatusBadRequest
	case errors.Is(err, auth.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, registrysvc.ErrInvalidID),
		errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, storage.ErrAlreadyVerified),
		errors.Is(err, storage.ErrDuplicateCategory),
		errors.Is(err, storage.ErrNoRewards),
		errors.Is(err, storage.ErrInsufficientTreasury):
		status = http.StatusConflict
	case errors.Is(err, treasurysvc.ErrTransferFailed):
		status = http.StatusBadGateway
	}
	writeError(w, status, err)
}

func decodeJSON(body io.ReadCloser, dst any) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
