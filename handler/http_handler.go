package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"completion-proxy/manager"
)

// HTTPHandler serves POST /generate for one instance.
type HTTPHandler struct {
	Instance     string
	Model        string
	Backend      Completer
	Concurrency  *manager.ConcurrencyManager
	MaxBodyBytes int64
}

// NewHTTPHandler creates a new instance of HTTPHandler.
// cm may be nil, in which case requests are never limited.
func NewHTTPHandler(instance, model string, b Completer, cm *manager.ConcurrencyManager) *HTTPHandler {
	return &HTTPHandler{
		Instance:     instance,
		Model:        model,
		Backend:      b,
		Concurrency:  cm,
		MaxBodyBytes: DefaultMaxBodyBytes,
	}
}

// ServeHTTP implements the http.Handler interface for HTTPHandler.
func (h *HTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxBodyBytes)
	req, issues, err := decodePromptRequest(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			log.Debugf("Rejected request from %s: body over %d bytes", r.RemoteAddr, tooLarge.Limit)
			writeJSON(w, http.StatusRequestEntityTooLarge, DetailBody{Detail: "Request body too large"})
			return
		}
		log.Debugf("Failed to read request body from %s: %s", r.RemoteAddr, err)
		writeJSON(w, http.StatusBadRequest, DetailBody{Detail: "Unable to read request body"})
		return
	}
	if issues != nil {
		log.Debugf("Rejected request from %s: %+v", r.RemoteAddr, issues)
		writeJSON(w, http.StatusUnprocessableEntity, ValidationErrorBody{Detail: issues})
		return
	}

	if h.Concurrency != nil {
		release, ok := h.Concurrency.Acquire(r.Context(), h.Instance)
		if !ok {
			logAndReturnError(w, TooManyRequests, http.StatusServiceUnavailable,
				fmt.Sprintf("Instance %s: no slot available for %s", h.Instance, r.RemoteAddr))
			return
		}
		defer release()
	}

	payload := req.Payload(h.Model)
	log.Debugf("Instance %s: forwarding prompt (%d chars, max_tokens=%d) to %s", h.Instance, len(payload.Prompt), payload.MaxTokens, payload.Model)

	resp, err := h.Backend.Complete(r.Context(), payload)
	if err != nil {
		logAndReturnError(w, InvalidBackendResponse, http.StatusInternalServerError,
			fmt.Sprintf("Instance %s: backend request failed: %s", h.Instance, err))
		return
	}

	body := bytes.TrimSpace(resp.Body)
	if len(body) == 0 || !json.Valid(body) {
		logAndReturnError(w, InvalidBackendResponse, http.StatusInternalServerError,
			fmt.Sprintf("Instance %s: backend returned a non-JSON body (status %d, %d bytes)", h.Instance, resp.StatusCode, len(resp.Body)))
		return
	}

	// The backend status is not translated: a JSON error body is relayed as-is.
	if !resp.Healthy() {
		log.Warnf("Instance %s: backend answered %d, relaying body unchanged", h.Instance, resp.StatusCode)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Debugf("Instance %s: failed to write response: %s", h.Instance, err)
	}
}
