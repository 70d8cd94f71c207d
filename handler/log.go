package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

func (h *HTTPHandler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logRequest(r, h.Instance, ww.Status(), time.Since(start))
	})
}

func logRequest(req *http.Request, instance string, status int, elapsed time.Duration) {
	log.Infof("%s -- %s -- %s -- %s -- %d -- %s", req.RemoteAddr, instance, req.Method, req.URL.Path, status, elapsed.Round(time.Millisecond))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debugf("Failed to write response: %s", err)
	}
}

func logAndReturnError(w http.ResponseWriter, httpResponseStr string, code int, consoleStr ...string) {
	// consoleStr is optional.
	if len(consoleStr) > 0 {
		log.Errorln(consoleStr[0])
	} else {
		log.Errorln(httpResponseStr)
	}
	writeJSON(w, code, ErrorBody{Error: httpResponseStr})
}
