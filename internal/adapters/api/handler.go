package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/poyrazK/gatekeep/internal/core/domain"
	"github.com/poyrazK/gatekeep/internal/core/ports"
)

// APIHandler handles HTTP requests for the accounting core and the
// gated CRUD surface.
type APIHandler struct {
	auth     ports.AuthService
	users    ports.UserService
	todos    ports.TodoService
	repo     ports.Repository
	limiter  ports.RateLimitService
	recorder ports.AuditRecorder
	logger   *slog.Logger
}

// NewAPIHandler creates and returns a new APIHandler instance.
func NewAPIHandler(auth ports.AuthService, users ports.UserService, todos ports.TodoService, repo ports.Repository, limiter ports.RateLimitService, recorder ports.AuditRecorder, logger *slog.Logger) *APIHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &APIHandler{auth: auth, users: users, todos: todos, repo: repo, limiter: limiter, recorder: recorder, logger: logger}
}

// RegisterRoutes registers the API routes with the provided ServeMux.
// Everything except health and metrics passes through the audit and
// rate-limit layers; the business surface additionally requires auth.
func (h *APIHandler) RegisterRoutes(mux *http.ServeMux) {
	// Public routes, unthrottled
	mux.HandleFunc("GET /health", h.HealthCheck)
	mux.HandleFunc("GET /metrics", h.Metrics)

	audit := AuditMiddleware(h.recorder)
	limit := RateLimitMiddleware(h.limiter)
	auth := AuthMiddleware(h.auth)
	admin := RequireRole(domain.RoleAdmin)

	public := func(fn http.HandlerFunc) http.Handler {
		return audit(limit(fn))
	}
	protected := func(fn http.HandlerFunc) http.Handler {
		return audit(limit(auth(fn)))
	}
	adminOnly := func(fn http.HandlerFunc) http.Handler {
		return audit(limit(auth(admin(fn))))
	}

	mux.Handle("POST /auth/register", public(h.Register))
	mux.Handle("POST /auth/login", public(h.Login))

	mux.Handle("POST /todos", protected(h.CreateTodo))
	mux.Handle("GET /todos", protected(h.ListTodos))
	mux.Handle("GET /todos/{id}", protected(h.GetTodo))
	mux.Handle("PUT /todos/{id}", protected(h.UpdateTodo))
	mux.Handle("DELETE /todos/{id}", protected(h.DeleteTodo))

	mux.Handle("GET /users", adminOnly(h.ListUsers))
	mux.Handle("PUT /users/{id}/role", adminOnly(h.ChangeUserRole))
	mux.Handle("DELETE /users/{id}", adminOnly(h.DeactivateUser))
	mux.Handle("GET /audit-logs", adminOnly(h.ListAuditLogs))
	mux.Handle("GET /stats/usage", adminOnly(h.UsageStats))
}

// Metrics handles Prometheus metrics scraping requests.
func (h *APIHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// HealthCheck reports store reachability.
func (h *APIHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := "UP"
	details := make(map[string]string)

	if err := h.repo.Ping(r.Context()); err != nil {
		status = "DEGRADED"
		details["database"] = err.Error()
	} else {
		details["database"] = "OK"
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
	h.writeJSON(w, resp)
}

// --- Auth ---

func (h *APIHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.users.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	h.writeJSON(w, user)
}

func (h *APIHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Username == "" {
		h.respondError(w, r, &domain.ValidationError{Field: "username", Reason: "cannot be empty"})
		return
	}

	token, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	h.writeJSON(w, map[string]string{"token": token})
}

// --- Todos ---

func (h *APIHandler) CreateTodo(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(CtxUserID).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	todo, err := h.todos.Create(r.Context(), userID, req.Title, req.Description)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	h.writeJSON(w, todo)
}

func (h *APIHandler) ListTodos(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(CtxUserID).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	todos, err := h.todos.List(r.Context(), userID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if todos == nil {
		todos = []domain.Todo{}
	}

	w.Header().Set("Content-Type", "application/json")
	h.writeJSON(w, todos)
}

func (h *APIHandler) GetTodo(w http.ResponseWriter, r *http.Request) {
	userID, _ := r.Context().Value(CtxUserID).(string)
	todo, err := h.todos.Get(r.Context(), r.PathValue("id"), userID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	h.writeJSON(w, todo)
}

func (h *APIHandler) UpdateTodo(w http.ResponseWriter, r *http.Request) {
	userID, _ := r.Context().Value(CtxUserID).(string)

	var req struct {
		Title       *string `json:"title"`
		Description *string `json:"description"`
		Done        *bool   `json:"done"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	todo, err := h.todos.Update(r.Context(), r.PathValue("id"), userID, req.Title, req.Description, req.Done)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	h.writeJSON(w, todo)
}

func (h *APIHandler) DeleteTodo(w http.ResponseWriter, r *http.Request) {
	userID, _ := r.Context().Value(CtxUserID).(string)
	if err := h.todos.Delete(r.Context(), r.PathValue("id"), userID); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Admin ---

func (h *APIHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	h.writeJSON(w, users)
}

func (h *APIHandler) ChangeUserRole(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Role string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.users.ChangeRole(r.Context(), r.PathValue("id"), domain.Role(req.Role)); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) DeactivateUser(w http.ResponseWriter, r *http.Request) {
	if err := h.users.Deactivate(r.Context(), r.PathValue("id")); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListAuditLogs retrieves recent audit entries via the management API.
func (h *APIHandler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 1000 {
			h.respondError(w, r, &domain.ValidationError{Field: "limit", Reason: "must be between 1 and 1000"})
			return
		}
		limit = n
	}

	logs, err := h.repo.ListRequestLogs(r.Context(), limit)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if logs == nil {
		logs = []domain.RequestLog{}
	}

	w.Header().Set("Content-Type", "application/json")
	h.writeJSON(w, logs)
}

// UsageStats serves the per-endpoint aggregates from the usage_stats view.
func (h *APIHandler) UsageStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.repo.GetUsageStats(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if stats == nil {
		stats = []domain.UsageStat{}
	}

	w.Header().Set("Content-Type", "application/json")
	h.writeJSON(w, stats)
}

// respondError maps the domain error taxonomy onto HTTP statuses.
// Internal errors are logged server-side and surfaced as an opaque 500.
func (h *APIHandler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *domain.ValidationError
	var rle *domain.RateLimitError

	switch {
	case errors.As(err, &ve):
		http.Error(w, ve.Error(), http.StatusBadRequest)
	case errors.As(err, &rle):
		w.Header().Set("Retry-After", strconv.Itoa(int(rle.RetryAfter.Seconds())))
		http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
	case errors.Is(err, domain.ErrUnauthorized):
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, "Not found", http.StatusNotFound)
	default:
		setAuditError(r, err)
		h.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *APIHandler) writeJSON(w http.ResponseWriter, v interface{}) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}
