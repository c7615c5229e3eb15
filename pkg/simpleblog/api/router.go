package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth"
	"github.com/go-chi/render"

	"github.com/simple-blog/pkg/simpleblog"
)

// RouterConfig carries the settings the HTTP layer needs beyond the service
type RouterConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
	Logger    *slog.Logger
}

// NewRouter assembles the full API under /api: public auth and read routes,
// token-protected mutation routes, and asset streaming.
func NewRouter(service simpleblog.Service, cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	tokenAuth := jwtauth.New("HS256", []byte(cfg.JWTSecret), nil)
	auth := NewAuthHandler(service, tokenAuth, cfg.TokenTTL)
	blog := NewBlogHandler(service, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		render.JSON(w, req, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Mount("/auth", auth.Routes())

		blog.RegisterPublic(r)

		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(tokenAuth))
			r.Use(jwtauth.Authenticator)
			blog.RegisterProtected(r)
		})
	})

	return r
}
