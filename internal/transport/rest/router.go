package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/terpspark/admission-service/internal/domain"
	"github.com/terpspark/admission-service/internal/metrics"
	"github.com/terpspark/admission-service/internal/security"
	"github.com/terpspark/admission-service/internal/transport/rest/response"
)

type RateLimit struct {
	Enabled bool
	Limit   int
	Window  time.Duration
	// Cache backs a shared fixed window. Nil falls back to httprate's
	// in-process limiter.
	Cache domain.Cache
}

type RouterDeps struct {
	Handler   *Handler
	Verifier  security.AccessTokenVerifier
	RateLimit RateLimit
	// Health reports dependency status for /healthz. Nil means always healthy.
	Health func(ctx context.Context) error
}

func NewRouter(d RouterDeps) http.Handler {
	if d.Handler == nil {
		panic("rest.NewRouter: nil handler")
	}
	if d.Verifier == nil {
		panic("rest.NewRouter: nil verifier")
	}

	r := chi.NewRouter()

	// Request ID + structured access log
	r.Use(RequestID)
	r.Use(HTTPLogger)
	r.Use(metrics.Middleware)

	// Panic recovery
	r.Use(middleware.Recoverer)

	if rl := d.RateLimit; rl.Enabled {
		if rl.Cache != nil {
			r.Use(RateLimitMiddleware(rl.Cache, rl.Limit, rl.Window))
		} else {
			r.Use(httprate.LimitByIP(rl.Limit, rl.Window))
		}
	}
	r.Use(SecurityHeaders)

	r.Get("/healthz", healthz(d.Health))
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	h := d.Handler
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(AuthMiddleware(d.Verifier))

		r.Get("/events", h.ListEvents)
		r.Get("/events/{eventID}", h.GetEvent)
		r.Post("/events/{eventID}/registrations", h.Register)
		r.Get("/events/{eventID}/registration-status", h.RegistrationStatus)
		r.Delete("/registrations/{registrationID}", h.CancelRegistration)
		r.Delete("/waitlist/{waitlistID}", h.LeaveWaitlist)

		r.Get("/me/registrations", h.MyRegistrations)
		r.Get("/me/waitlist", h.MyWaitlist)

		r.Post("/organizer-requests", h.RequestOrganizer)
		r.Get("/categories", h.ListCategories)
		r.Get("/venues", h.ListVenues)

		r.Route("/organizer/events", func(r chi.Router) {
			r.Post("/", h.SubmitEvent)
			r.Post("/{eventID}/cancel", h.CancelEvent)
			r.Post("/{eventID}/check-in", h.CheckIn)
			r.Get("/{eventID}/waitlist", h.EventWaitlist)
		})

		// role checks live in the service
		r.Route("/admin", func(r chi.Router) {
			r.Get("/organizer-requests", h.OrganizerRequests())
			r.Post("/organizer-requests/{id}/approve", h.ApproveOrganizer())
			r.Post("/organizer-requests/{id}/reject", h.RejectOrganizer())

			r.Get("/event-submissions", h.EventSubmissions())
			r.Post("/event-submissions/{id}/approve", h.ApproveEvent())
			r.Post("/event-submissions/{id}/reject", h.RejectEvent())

			r.Get("/audit-logs", h.AuditLogs)

			r.Get("/categories", h.ListCategories)
			r.Post("/categories", h.CreateCategory)
			r.Post("/categories/{id}/toggle", h.ToggleCategory)
			r.Get("/venues", h.ListVenues)
			r.Post("/venues", h.CreateVenue)
			r.Post("/venues/{id}/toggle", h.ToggleVenue)
		})
	})

	return r
}

func healthz(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				fail(w, r, http.StatusServiceUnavailable, "unhealthy", err.Error(), nil)
				return
			}
		}
		response.Data(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
