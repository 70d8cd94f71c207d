package handler

import (
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"completion-proxy/config"
)

// NewRouter mounts h on POST /generate behind the CORS policy.
func NewRouter(h *HTTPHandler, corsCfg config.CORSConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(h.logRequests)
	r.Use(middleware.Recoverer)
	if len(corsCfg.AllowedOrigins) > 0 {
		r.Use(cors.Handler(corsOptions(corsCfg)))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, DetailBody{Detail: "Not Found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, DetailBody{Detail: "Method Not Allowed"})
	})

	r.Method(http.MethodPost, "/generate", h)
	return r
}

// corsOptions maps the config onto go-chi/cors. Browsers refuse a literal "*"
// origin on credentialed requests, so a wildcard with credentials echoes the
// caller's Origin back instead.
func corsOptions(cfg config.CORSConfig) cors.Options {
	opts := cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   cfg.AllowedMethods,
		AllowedHeaders:   cfg.AllowedHeaders,
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           600,
	}
	if cfg.AllowCredentials && slices.Contains(cfg.AllowedOrigins, "*") {
		opts.AllowedOrigins = nil
		opts.AllowOriginFunc = func(*http.Request, string) bool { return true }
	}
	return opts
}
