// Package httpapi exposes the REST API handlers and router.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/cpcoders/codetrack/internal/service"
)

// Options carries router wiring that is not a service.
type Options struct {
	SignKey              []byte
	CORSAllowedOrigins   []string
	CORSAllowCredentials bool
}

// NewRouter wires services into the HTTP route table.
func NewRouter(log *zap.Logger, auth service.AuthService, quests service.QuestionService, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(Recover(log))
	r.Use(Logging(log))

	if len(opts.CORSAllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.CORSAllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			ExposedHeaders:   []string{"X-Request-Id"},
			AllowCredentials: opts.CORSAllowCredentials,
			MaxAge:           300,
		}))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	ah := &AuthHandler{auth: auth}
	qh := &QuestionHandler{quests: quests}
	requireAuth := RequireAuth(opts.SignKey)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", ah.Register)
		r.Post("/auth/login", ah.Login)
		r.Post("/auth/google", ah.Google)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/profile", ah.Profile)
			r.Patch("/profile", ah.UpdateProfile)
		})

		r.Route("/quests", func(r chi.Router) {
			r.Use(requireAuth)

			r.Post("/", qh.Create)
			r.Get("/", qh.List)
			r.Post("/upsert", qh.Upsert)
			r.Post("/bulk", qh.BulkCreate)

			r.Get("/stats", qh.Stats)
			r.Get("/topics", qh.Topics)
			r.Get("/grouped/topics", qh.GroupedByTopic)
			r.Get("/heatmap", qh.Heatmap)

			r.Get("/{id}", qh.Get)
			r.Patch("/{id}", qh.Update)
			r.Delete("/{id}", qh.Delete)
			r.Patch("/{id}/status", qh.UpdateStatus)
			r.Patch("/{id}/bookmark", qh.ToggleBookmark)
			r.Patch("/{id}/revise", qh.MarkRevised)
		})
	})

	return r
}
