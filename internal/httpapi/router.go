// Package httpapi exposes server.Service over a JSON REST surface.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/matheus3301/pollchat/internal/server"
	"github.com/matheus3301/pollchat/internal/uploads"
	"go.uber.org/zap"
)

// Options configures the router.
type Options struct {
	AllowedOrigins []string
	MaxBodyBytes   int64
}

// Handler serves the REST API.
type Handler struct {
	svc    *server.Service
	signer *uploads.Signer
	blobs  *uploads.Dir
	logger *zap.Logger
	opts   Options
}

// New builds the router. signer and blobs may be nil to disable uploads.
func New(svc *server.Service, signer *uploads.Signer, blobs *uploads.Dir, opts Options, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	h := &Handler{svc: svc, signer: signer, blobs: blobs, logger: logger, opts: opts}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(h.recoverJSON)
	r.Use(h.requestLog)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(h.authenticate)

		r.Get("/messages/sync", h.sync)
		r.Get("/messages", h.listMessages)
		r.Post("/messages", h.sendMessage)
		r.Patch("/messages", h.updateStatus)

		r.Get("/chats", h.listChats)
		r.Post("/chats", h.createChat)

		r.Get("/users", h.searchUsers)
		r.Post("/users", h.upsertProfile)
		r.Get("/users/me", h.me)
		r.Get("/users/status", h.onlineUsers)
		r.Patch("/users/status", h.setPresence)

		r.Post("/uploads/sign", h.signUpload)
	})

	r.Put("/uploads/*", h.putUpload)
	r.Get("/uploads/*", h.getUpload)
	return r
}

func (h *Handler) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", chimw.GetReqID(r.Context())),
		)
	})
}
