package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"retailhub/backend/internal/domain"
	"retailhub/backend/internal/metrics"
	"retailhub/backend/internal/recovery"
	"retailhub/backend/internal/session"
	"retailhub/backend/internal/store"
)

var (
	adminOnly   = []string{domain.RoleAdmin}
	posRoles    = []string{domain.RoleCashier, domain.RoleAdmin}
	errNoAccess = errors.New("forbidden role")
)

type API struct {
	sessions      *session.Registry
	auth          *AuthManager
	metrics       *metrics.Recorder
	allowedOrigin string
	loginLimiter  *attemptLimiter
	pinLimiter    *attemptLimiter
	csrf          *csrfSigner
	now           func() time.Time
}

func New(sessions *session.Registry, auth *AuthManager, allowedOrigin string, recorder *metrics.Recorder) *API {
	return &API{
		sessions:      sessions,
		auth:          auth,
		metrics:       recorder,
		allowedOrigin: allowedOrigin,
		loginLimiter:  newAttemptLimiter(5, time.Minute),
		pinLimiter:    newAttemptLimiter(8, time.Minute),
		csrf:          newCSRFSigner(),
		now:           time.Now,
	}
}

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", a.handleHealth)
	mux.HandleFunc("/api/v1/auth/login", a.handleLogin)
	mux.HandleFunc("/api/v1/auth/csrf-token", a.handleCSRFToken)
	mux.HandleFunc("/api/v1/auth/logout", a.requireAuth(a.handleLogout, posRoles...))

	mux.HandleFunc("/api/v1/products", a.requireAuth(a.handleProducts, posRoles...))
	mux.HandleFunc("/api/v1/products/{id}", a.requireAuth(a.handleProductActions, adminOnly...))
	mux.HandleFunc("/api/v1/categories", a.requireAuth(a.handleCategories, adminOnly...))

	mux.HandleFunc("/api/v1/sales", a.requireAuth(a.handleSales, posRoles...))
	mux.HandleFunc("/api/v1/sales/{id}", a.requireAuth(a.handleSaleActions, adminOnly...))
	mux.HandleFunc("/api/v1/sales/{id}/receipt", a.requireAuth(a.handleReceipt, posRoles...))
	mux.HandleFunc("/api/v1/sales/{id}/receipt.pdf", a.requireAuth(a.handleReceiptPDF, posRoles...))
	mux.HandleFunc("/api/v1/sales/export.xlsx", a.requireAuth(a.handleSalesExport, adminOnly...))

	mux.HandleFunc("/api/v1/customers", a.requireAuth(a.handleCustomers, posRoles...))
	mux.HandleFunc("/api/v1/customers/{id}", a.requireAuth(a.handleCustomerActions, adminOnly...))
	mux.HandleFunc("/api/v1/suppliers", a.requireAuth(a.handleSuppliers, adminOnly...))
	mux.HandleFunc("/api/v1/suppliers/{id}", a.requireAuth(a.handleSupplierActions, adminOnly...))
	mux.HandleFunc("/api/v1/expenses", a.requireAuth(a.handleExpenses, adminOnly...))
	mux.HandleFunc("/api/v1/expenses/{id}", a.requireAuth(a.handleExpenseActions, adminOnly...))
	mux.HandleFunc("/api/v1/purchases", a.requireAuth(a.handlePurchases, adminOnly...))
	mux.HandleFunc("/api/v1/purchases/{id}", a.requireAuth(a.handlePurchaseActions, adminOnly...))

	mux.HandleFunc("/api/v1/settings", a.requireAuth(a.handleSettings, posRoles...))
	mux.HandleFunc("/api/v1/activities", a.requireAuth(a.handleActivities, posRoles...))
	mux.HandleFunc("/api/v1/session", a.requireAuth(a.handleSessionSnapshot, adminOnly...))
	mux.HandleFunc("/api/v1/dashboard", a.requireAuth(a.handleDashboard, adminOnly...))
	mux.HandleFunc("/api/v1/reports/summary", a.requireAuth(a.handleSummary, adminOnly...))

	mux.HandleFunc("/api/v1/trash/{kind}", a.requireAuth(a.handleTrash, adminOnly...))
	mux.HandleFunc("/api/v1/trash/{kind}/{id}/restore", a.requireAuth(a.handleRestore, adminOnly...))
	mux.HandleFunc("/api/v1/data/{kind}", a.requireAuth(a.handleClearKind, adminOnly...))
	mux.HandleFunc("/api/v1/system/reset", a.requireAuth(a.handleSystemReset, adminOnly...))

	mux.HandleFunc("/api/v1/users/cashiers", a.requireAuth(a.handleCashiers, adminOnly...))

	return a.withMiddleware(mux)
}

func (a *API) requireAuth(next http.HandlerFunc, roles ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authorization := strings.TrimSpace(r.Header.Get("Authorization"))
		if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
			writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
			return
		}

		token := strings.TrimSpace(authorization[len("Bearer "):])
		actor, err := a.auth.ParseToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err)
			return
		}

		if len(roles) > 0 && !slices.Contains(roles, actor.Role) {
			writeError(w, http.StatusForbidden, errNoAccess)
			return
		}

		next(w, r.WithContext(session.WithActor(r.Context(), actor)))
	}
}

// session returns the caller's session, starting one when the token outlived
// a server restart.
func (a *API) session(r *http.Request) (*session.Session, error) {
	actor, ok := session.ActorFromContext(r.Context())
	if !ok {
		return nil, errors.New("missing actor")
	}
	if sess, ok := a.sessions.Get(actor.Username); ok {
		return sess, nil
	}
	return a.sessions.Start(r.Context(), actor.Username)
}

// withSession resolves the session and hands it to fn, or writes the error.
func (a *API) withSession(w http.ResponseWriter, r *http.Request, fn func(*session.Session)) {
	sess, err := a.session(r)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	fn(sess)
}

func isAdmin(r *http.Request) bool {
	actor, ok := session.ActorFromContext(r.Context())
	return ok && actor.Role == domain.RoleAdmin
}

// statusFor maps session, recovery and store errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, recovery.ErrSoftDeleteRequired), errors.Is(err, store.ErrReferenced):
		return http.StatusConflict
	case errors.Is(err, store.ErrInvalidRecord):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusUnprocessableEntity
	}
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":       true,
		"at":       time.Now().UTC().Format(time.RFC3339),
		"sessions": a.sessions.Len(),
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	if !a.loginLimiter.Allow(clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, errors.New("too many login attempts"))
		return
	}

	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := a.auth.Login(r.Context(), req)
	switch {
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrAccountInactive):
		writeError(w, http.StatusUnauthorized, err)
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if _, err := a.sessions.Start(r.Context(), resp.Username); err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	actor, _ := session.ActorFromContext(r.Context())
	a.sessions.End(actor.Username)
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleCSRFToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"csrf_token": a.csrf.Issue(),
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (a *API) withMiddleware(mux *http.ServeMux) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-CSRF-Token")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PATCH,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition")
		w.Header().Set("Vary", "Origin")

		if (r.Method == http.MethodPost || r.Method == http.MethodPatch || r.Method == http.MethodPut) && strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
			r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		if requiresCSRF(r) && !a.csrf.Valid(r.Header.Get("X-CSRF-Token")) {
			writeError(w, http.StatusForbidden, errors.New("missing or invalid CSRF token"))
			return
		}

		_, route := mux.Handler(r)
		if route == "" {
			route = "unmatched"
		}
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		startedAt := time.Now()
		mux.ServeHTTP(rec, r)
		elapsed := time.Since(startedAt)

		a.metrics.Request(r.Method, route, strconv.Itoa(rec.status/100)+"xx", elapsed.Seconds())
		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", elapsed).
			Msg("request")
	})
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return nil
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

// writeError hides the message of 5xx responses; 4xx messages are user facing.
func writeError(w http.ResponseWriter, status int, err error) {
	msg := err.Error()
	if status >= 500 {
		log.Error().Err(err).Int("status", status).Msg("internal error")
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
