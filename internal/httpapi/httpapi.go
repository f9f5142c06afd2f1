package httpapi

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"lafavorita/backend/internal/auth"
	"lafavorita/backend/internal/domain"
	"lafavorita/backend/internal/service"
)

type API struct {
	service         *service.Service
	auth            *auth.Manager
	allowedOrigin   string
	log             zerolog.Logger
	loginLimiter    *attemptLimiter
	recoveryLimiter *attemptLimiter
	csrfSecret      []byte
	now             func() time.Time
}

func New(svc *service.Service, authManager *auth.Manager, allowedOrigin string, log zerolog.Logger) *API {
	csrfSecret := make([]byte, 32)
	if _, err := rand.Read(csrfSecret); err != nil {
		csrfSecret = []byte("csrf-fallback-secret-change-me!!")
	}
	return &API{
		service:         svc,
		auth:            authManager,
		allowedOrigin:   allowedOrigin,
		log:             log,
		loginLimiter:    newAttemptLimiter(5, time.Minute),
		recoveryLimiter: newAttemptLimiter(5, time.Minute),
		csrfSecret:      csrfSecret,
		now:             time.Now,
	}
}

func (a *API) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(a.accessLog)
	r.Use(a.recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(a.withSecurity)

	r.Get("/healthz", a.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", a.handleLogin)
		r.Get("/auth/csrf-token", a.handleCSRFToken)
		r.Post("/auth/recovery", a.handleRecoveryStart)
		r.Post("/auth/recovery/{id}/answers", a.handleRecoveryAnswers)
		r.Post("/auth/recovery/{id}/password", a.handleRecoveryPassword)
		r.Delete("/auth/recovery/{id}", a.handleRecoveryCancel)

		r.Group(func(r chi.Router) {
			r.Use(a.requireAuth)

			r.Get("/me", a.handleMe)

			r.Get("/products", a.handleListProducts)
			r.Post("/products", a.handleCreateProduct)
			r.Get("/products/summary", a.handleInventorySummary)
			r.With(requireRole(domain.RoleAdmin)).Post("/products/import", a.handleImportCatalog)
			r.Get("/products/{id}", a.handleGetProduct)
			r.Put("/products/{id}", a.handleUpdateProduct)
			r.Delete("/products/{id}", a.handleDeleteProduct)
			r.Post("/products/{id}/stock", a.handleAddStock)

			r.Get("/promotions", a.handlePromotions)
			r.Post("/promotions/{id}/discount", a.handleApplyDiscount)
			r.Delete("/promotions/{id}/discount", a.handleRemoveDiscount)

			r.Post("/carts", a.handleOpenCart)
			r.Get("/carts/{id}", a.handleGetCart)
			r.Delete("/carts/{id}", a.handleDiscardCart)
			r.Post("/carts/{id}/lines", a.handleAddCartLine)
			r.Patch("/carts/{id}/lines/{productId}", a.handleUpdateCartLine)
			r.Delete("/carts/{id}/lines/{productId}", a.handleRemoveCartLine)
			r.Post("/carts/{id}/checkout", a.handleCheckout)

			r.Get("/sales", a.handleListSales)
			r.Get("/reports/sales", a.handleSalesReport)
			r.Get("/reports/sales.xlsx", a.handleSalesWorkbook)
			r.Get("/reports/cash-drawer", a.handleCashDrawer)

			r.Group(func(r chi.Router) {
				r.Use(requireRole(domain.RoleAdmin))

				r.Get("/employees", a.handleListEmployees)
				r.Post("/employees", a.handleCreateEmployee)
				r.Put("/employees/{username}", a.handleUpdateEmployee)
				r.Delete("/employees/{username}", a.handleDeleteEmployee)

				r.Get("/backup", a.handleExportBackup)
				r.Post("/backup", a.handleImportBackup)
				r.Post("/backup/reset", a.handleResetData)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, errors.New("route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeMethodNotAllowed(w)
	})
	return r
}

func (a *API) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authorization := strings.TrimSpace(r.Header.Get("Authorization"))
		if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
			writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
			return
		}

		token := strings.TrimSpace(authorization[len("Bearer "):])
		actor, err := a.auth.Authenticate(r.Context(), token)
		if err != nil {
			a.writeServiceError(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(service.WithActor(r.Context(), actor)))
	})
}

func requireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := service.ActorFromContext(r.Context())
			if !ok || !isRoleAllowed(actor.Role, roles) {
				writeError(w, http.StatusForbidden, errors.New("forbidden role"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isRoleAllowed(role string, allowed []string) bool {
	for _, allow := range allowed {
		if role == allow {
			return true
		}
	}
	return false
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": a.now().UTC().Format(time.RFC3339),
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

// writeError hides the message of 5xx responses; 4xx messages are shown to
// the operator as-is.
func writeError(w http.ResponseWriter, status int, err error) {
	msg := err.Error()
	if status >= 500 {
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
