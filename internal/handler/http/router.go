package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/cmlabs-hris/hris-billing-go/internal/domain/user"
	"github.com/cmlabs-hris/hris-billing-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/hris-billing-go/internal/handler/http/response"
	"github.com/cmlabs-hris/hris-billing-go/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

// RouterOptions carries the outer HTTP settings.
type RouterOptions struct {
	AllowedOrigins []string
	RequestTimeout time.Duration
}

func NewRouter(
	logger *slog.Logger,
	JWTService jwt.Service,
	billingHandler BillingHandler,
	notificationHandler NotificationHandler,
	opts RouterOptions,
) *chi.Mux {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 60 * time.Second
	}

	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelDebug,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.AllowContentEncoding("application/json"))
	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Route("/api/v1", func(r chi.Router) {
		// Requires authentication
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verify(JWTService.JWTAuth(), jwtauth.TokenFromHeader, middleware.TokenFromQuery))
			r.Use(middleware.AuthRequired)
			r.Use(middleware.RequireCompany)

			r.Route("/billing", func(r chi.Router) {
				r.Use(chiMiddleware.Timeout(opts.RequestTimeout))

				r.With(middleware.RequirePermission(user.PermissionBillingCalculate)).Get("/calculate", billingHandler.Calculate)

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequirePermission(user.PermissionBillingFinalize))
					r.Post("/finalize", billingHandler.Finalize)
					r.Post("/finalize/summaries", billingHandler.FinalizeSummaries)
				})

				r.Route("/records", func(r chi.Router) {
					r.Use(middleware.RequirePermission(user.PermissionBillingView))
					r.Get("/", billingHandler.ListRecords)
					r.Get("/{id}", billingHandler.GetRecord)
				})
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Use(middleware.RequirePermission(user.PermissionNotificationViewOwn))
				r.With(chiMiddleware.Timeout(opts.RequestTimeout)).Get("/", notificationHandler.List)
				r.With(chiMiddleware.Timeout(opts.RequestTimeout)).Post("/read", notificationHandler.MarkAsRead)
				// no timeout: the stream lives until the client disconnects
				r.Get("/stream", notificationHandler.Stream)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.NotFound(w, "Route not found")
	})

	return r
}
