package api

import (
	"encoding/json"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/keyward/keyward/internal/core/domain"
	"github.com/keyward/keyward/internal/core/ports"
	"github.com/keyward/keyward/internal/infrastructure/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// APIHandler handles HTTP requests for custody and registry management.
type APIHandler struct {
	ledger   ports.LedgerService
	registry ports.RegistryService
	repo     ports.Repository
	logger   *slog.Logger
}

// NewAPIHandler creates and returns a new APIHandler instance.
func NewAPIHandler(ledger ports.LedgerService, registry ports.RegistryService, repo ports.Repository, logger *slog.Logger) *APIHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &APIHandler{ledger: ledger, registry: registry, repo: repo, logger: logger}
}

// RegisterRoutes registers the API routes with the provided ServeMux.
func (h *APIHandler) RegisterRoutes(mux *http.ServeMux) {
	// Public Routes
	mux.HandleFunc("GET /health", h.HealthCheck)
	mux.HandleFunc("GET /metrics", h.Metrics)

	// Middleware
	rl := newRateLimiter(20, 40)
	go rl.cleanupLoop()
	limit := RateLimitMiddleware(rl)
	auth := AuthMiddleware(h.repo)
	write := RequireRole(domain.RoleAdmin, domain.RoleIssuer)
	admin := RequireRole(domain.RoleAdmin)

	// Protected Routes (actor identity comes from the bearer token)
	mux.Handle("POST /assignments", limit(auth(write(http.HandlerFunc(h.Assign)))))
	mux.Handle("POST /keys/{id}/return", limit(auth(write(http.HandlerFunc(h.Return)))))
	mux.Handle("GET /keys/{id}/history", limit(auth(http.HandlerFunc(h.History))))
	mux.Handle("GET /keys", limit(auth(http.HandlerFunc(h.ListKeys))))
	mux.Handle("POST /keys", limit(auth(admin(http.HandlerFunc(h.CreateKey)))))
	mux.Handle("POST /keys/{id}/retire", limit(auth(admin(http.HandlerFunc(h.RetireKey)))))
}

// Metrics handles Prometheus metrics scraping requests.
func (h *APIHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// HealthCheck handles health check requests.
func (h *APIHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := "UP"
	details := make(map[string]string)
	checks := h.ledger.HealthCheck(r.Context())

	for name, checkErr := range checks {
		if checkErr != nil {
			status = "DEGRADED"
			details[name] = checkErr.Error()
		} else {
			details[name] = "OK"
		}
	}

	resp := map[string]interface{}{
		"status":  status,
		"details": details,
	}

	w.Header().Set("Content-Type", "application/json")
	if status == "DEGRADED" {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("failed to encode health check response: %v", err)
	}
}

type assignRequest struct {
	KeyID      int64 `json:"key_id"`
	AssignedTo int64 `json:"assigned_to"`
}

type assignResponse struct {
	ID int64 `json:"id"`
}

// Assign grants custody of a key. The actor is always the authenticated
// identity, never a request field.
func (h *APIHandler) Assign(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, r, err.Error(), http.StatusBadRequest)
		return
	}

	actorID, ok := r.Context().Value(CtxUserID).(int64)
	if !ok || actorID == 0 {
		h.logger.Error("assign: missing user identity in context")
		httpError(w, r, "Unauthorized: missing identity context", http.StatusUnauthorized)
		return
	}

	id, err := h.ledger.Assign(r.Context(), req.KeyID, req.AssignedTo, actorID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	metrics.RequestsTotal.WithLabelValues(r.Method, strconv.Itoa(http.StatusCreated)).Inc()
	if err := json.NewEncoder(w).Encode(assignResponse{ID: id}); err != nil {
		log.Printf("failed to encode assignment response: %v", err)
	}
}

// Return closes the open assignment for a key. A return against a key with
// nothing out still answers ok; the ledger records the no-op internally.
func (h *APIHandler) Return(w http.ResponseWriter, r *http.Request) {
	keyID, err := pathID(r)
	if err != nil {
		httpError(w, r, "invalid key id", http.StatusBadRequest)
		return
	}

	actorID, ok := r.Context().Value(CtxUserID).(int64)
	if !ok || actorID == 0 {
		h.logger.Error("return: missing user identity in context")
		httpError(w, r, "Unauthorized: missing identity context", http.StatusUnauthorized)
		return
	}

	if err := h.ledger.Return(r.Context(), keyID, actorID); err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	metrics.RequestsTotal.WithLabelValues(r.Method, strconv.Itoa(http.StatusOK)).Inc()
	if err := json.NewEncoder(w).Encode(map[string]bool{"ok": true}); err != nil {
		log.Printf("failed to encode return response: %v", err)
	}
}

// History lists all assignments for a key, newest first, open and closed.
func (h *APIHandler) History(w http.ResponseWriter, r *http.Request) {
	keyID, err := pathID(r)
	if err != nil {
		httpError(w, r, "invalid key id", http.StatusBadRequest)
		return
	}

	history, err := h.ledger.History(r.Context(), keyID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if history == nil {
		history = []domain.Assignment{}
	}

	w.Header().Set("Content-Type", "application/json")
	metrics.RequestsTotal.WithLabelValues(r.Method, strconv.Itoa(http.StatusOK)).Inc()
	if err := json.NewEncoder(w).Encode(history); err != nil {
		log.Printf("failed to encode history response: %v", err)
	}
}

func (h *APIHandler) ListKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := h.ledger.ListKeys(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if keys == nil {
		keys = []domain.Key{}
	}

	w.Header().Set("Content-Type", "application/json")
	metrics.RequestsTotal.WithLabelValues(r.Method, strconv.Itoa(http.StatusOK)).Inc()
	if err := json.NewEncoder(w).Encode(keys); err != nil {
		log.Printf("failed to encode keys response: %v", err)
	}
}

type createKeyRequest struct {
	Label string `json:"label"`
}

func (h *APIHandler) CreateKey(w http.ResponseWriter, r *http.Request) {
	var req createKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, r, err.Error(), http.StatusBadRequest)
		return
	}

	if err := domain.ValidateKeyLabel(req.Label); err != nil {
		httpError(w, r, "Invalid key label: "+err.Error(), http.StatusBadRequest)
		return
	}

	key, err := h.registry.CreateKey(r.Context(), req.Label)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	metrics.RequestsTotal.WithLabelValues(r.Method, strconv.Itoa(http.StatusCreated)).Inc()
	if err := json.NewEncoder(w).Encode(key); err != nil {
		log.Printf("failed to encode key response: %v", err)
	}
}

func (h *APIHandler) RetireKey(w http.ResponseWriter, r *http.Request) {
	keyID, err := pathID(r)
	if err != nil {
		httpError(w, r, "invalid key id", http.StatusBadRequest)
		return
	}

	if err := h.registry.RetireKey(r.Context(), keyID); err != nil {
		h.writeError(w, r, err)
		return
	}

	metrics.RequestsTotal.WithLabelValues(r.Method, strconv.Itoa(http.StatusNoContent)).Inc()
	w.WriteHeader(http.StatusNoContent)
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

// httpError writes a plain error response and counts it, so every rejection
// shows up in the request counter no matter which layer produced it.
func httpError(w http.ResponseWriter, r *http.Request, msg string, status int) {
	metrics.RequestsTotal.WithLabelValues(r.Method, strconv.Itoa(status)).Inc()
	http.Error(w, msg, status)
}

// writeError maps domain errors to HTTP statuses. Storage faults stay opaque.
func (h *APIHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var status int
	var msg string

	switch {
	case errors.Is(err, domain.ErrKeyNotFound), errors.Is(err, domain.ErrKeyRetired):
		status, msg = http.StatusNotFound, "key not found"
	case errors.Is(err, domain.ErrKeyAlreadyAssigned):
		status, msg = http.StatusBadRequest, "key already assigned"
	case errors.Is(err, domain.ErrInvalidHolder):
		status, msg = http.StatusUnprocessableEntity, "holder does not exist"
	case errors.Is(err, domain.ErrInvalidActor):
		status, msg = http.StatusUnprocessableEntity, "actor does not exist"
	case errors.Is(err, domain.ErrKeyAssigned):
		status, msg = http.StatusConflict, "key has an open assignment"
	case errors.Is(err, domain.ErrDuplicateLabel):
		status, msg = http.StatusConflict, "key label already exists"
	default:
		h.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		status, msg = http.StatusInternalServerError, "internal server error"
	}

	httpError(w, r, msg, status)
}
