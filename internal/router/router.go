package router

import (
	"net/http"

	"chatbot-economy-api/internal/handler"
	"chatbot-economy-api/internal/metrics"
	"chatbot-economy-api/internal/middleware"
	"chatbot-economy-api/pkg/apierror"
	"chatbot-economy-api/pkg/response"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// Config holds the configuration for creating a router.
type Config struct {
	Handler          *handler.Handler
	AccountHandler   *handler.AccountHandler
	InventoryHandler *handler.InventoryHandler
	LoanHandler      *handler.LoanHandler
	AdminHandler     *handler.AdminHandler
	AuthMiddleware   func(http.Handler) http.Handler
	AdminMiddleware  func(http.Handler) http.Handler
	// ChanceLimiter throttles gamble and rob per user.
	ChanceLimiter  func(http.Handler) http.Handler
	AllowedOrigins []string
	EnableMetrics  bool
}

// New creates and configures the HTTP router.
func New(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	// Global middleware stack (applies to ALL routes)
	r.Use(middleware.Recovery)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	if cfg.EnableMetrics {
		r.Use(metrics.InstrumentHandler)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-API-Key", "X-Admin-Key", "X-Admin-ID"},
		ExposedHeaders: []string{"X-Request-ID", "Retry-After"},
		MaxAge:         300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, apierror.NotFound("Route not found"))
	})

	if cfg.EnableMetrics {
		r.Handle("/metrics", metrics.Handler())
	}

	chanceLimit := passThrough
	if cfg.ChanceLimiter != nil {
		chanceLimit = cfg.ChanceLimiter
	}

	r.Group(func(r chi.Router) {
		if cfg.AuthMiddleware != nil {
			r.Use(cfg.AuthMiddleware)
		}

		r.Route("/api/v1", func(r chi.Router) {
			if cfg.Handler != nil {
				r.Get("/health", cfg.Handler.Health)
				r.Get("/ready", cfg.Handler.Ready)
			}

			if cfg.InventoryHandler != nil {
				r.Get("/items", cfg.InventoryHandler.ListItems)
			}

			r.Route("/accounts/{user_id}", func(r chi.Router) {
				if h := cfg.AccountHandler; h != nil {
					r.Get("/", h.GetAccount)
					r.Post("/activity", h.RecordActivity)
					r.Post("/daily", h.ClaimDaily)
					r.Post("/deposit", h.Deposit)
					r.Post("/withdraw", h.Withdraw)
					r.Post("/transfer", h.Transfer)
					r.Post("/gift", h.Gift)
					r.With(chanceLimit).Post("/gamble", h.Gamble)
					r.With(chanceLimit).Post("/rob", h.Rob)
					r.Post("/repay", h.Repay)
					r.Get("/journal", h.Journal)
				}
				if h := cfg.InventoryHandler; h != nil {
					r.Get("/inventory", h.GetInventory)
					r.Post("/inventory/buy", h.BuyItem)
					r.Post("/inventory/use", h.UseItem)
					r.Post("/inventory/gift", h.GiftItem)
				}
			})

			if h := cfg.LoanHandler; h != nil {
				r.Post("/loans", h.Offer)
				r.Post("/loans/{key}/resolve", h.Resolve)
			}

			if h := cfg.AdminHandler; h != nil {
				r.Route("/admin", func(r chi.Router) {
					if cfg.AdminMiddleware != nil {
						r.Use(cfg.AdminMiddleware)
					}
					r.Put("/accounts/{user_id}/exp", h.SetExp)
					r.Put("/accounts/{user_id}/money", h.SetMoney)
					r.Post("/accounts/{user_id}/items", h.GrantItem)
					r.Post("/sweep", h.Sweep)
					r.Get("/stats", h.GetStats)
				})
			}
		})
	})

	return r
}

func passThrough(next http.Handler) http.Handler {
	return next
}
