package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/matheus3301/pollchat/internal/server"
	"go.uber.org/zap"
)

// responseWriter remembers whether the header was already sent.
type responseWriter struct {
	http.ResponseWriter
	wrote bool
}

func (w *responseWriter) WriteHeader(code int) {
	if w.wrote {
		return
	}
	w.wrote = true
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.wrote = true
	return w.ResponseWriter.Write(b)
}

// recoverJSON turns a handler panic into a JSON 500 when nothing was written yet.
func (h *Handler) recoverJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wrap := &responseWriter{ResponseWriter: w}
		defer func() {
			if err := recover(); err != nil {
				h.logger.Error("panic recovered", zap.Any("panic", err), zap.String("path", r.URL.Path))
				if !wrap.wrote {
					wrap.Header().Set("Content-Type", "application/json; charset=utf-8")
					wrap.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(wrap.ResponseWriter).Encode(errorResponse{Error: "internal server error"})
				}
			}
		}()
		next.ServeHTTP(wrap, r)
	})
}

// authenticate resolves the bearer token and stores the caller on the context.
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, _ := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		userID, err := h.svc.Authenticate(r.Context(), strings.TrimSpace(token))
		if err != nil {
			h.fail(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(server.WithUserID(r.Context(), userID)))
	})
}
