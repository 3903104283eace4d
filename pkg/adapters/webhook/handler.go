// Package webhook is the HTTP surface of the service. It acknowledges a
// meeting as soon as its fields are extracted and leaves the vault work to a
// background queue.
package webhook

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/boydwold/spellar-vault/pkg/core"
	"github.com/boydwold/spellar-vault/pkg/ingest"
	"github.com/boydwold/spellar-vault/pkg/metrics"
)

const (
	// ServiceName is reported by the status endpoint.
	ServiceName = "spellar-obsidian-webhook"
	// SecretHeader carries the shared secret configured in Spellar.
	SecretHeader = "SpWebhookSecret"

	prettyLimit = 5000
	rawLimit    = 2000
)

// Submitter accepts extracted meetings for background processing.
type Submitter interface {
	Submit(fields core.Fields) (string, error)
}

// Handler serves the webhook endpoint.
type Handler struct {
	submitter   Submitter
	decoder     ingest.Decoder
	vault       string
	notesFolder string
	secret      string
	logRequests bool
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

// Option configures a Handler.
type Option func(*Handler)

// WithSecret requires every POST to carry secret in SecretHeader.
// An empty secret disables the check.
func WithSecret(secret string) Option {
	return func(h *Handler) {
		h.secret = secret
	}
}

// WithMaxBytes caps request bodies.
func WithMaxBytes(n int64) Option {
	return func(h *Handler) {
		h.decoder.MaxBytes = n
	}
}

// WithRequestLogging logs path, headers and a body preview of every POST.
func WithRequestLogging(enabled bool) Option {
	return func(h *Handler) {
		h.logRequests = enabled
	}
}

// WithStatus sets the vault details reported on GET.
func WithStatus(vault, notesFolder string) Option {
	return func(h *Handler) {
		h.vault = vault
		h.notesFolder = notesFolder
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithMetrics enables metric collection.
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) {
		h.metrics = m
	}
}

// NewHandler creates a handler that hands meetings to submitter.
func NewHandler(submitter Submitter, opts ...Option) *Handler {
	h := &Handler{
		submitter: submitter,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Router routes GET and POST on every path.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(recovery(h.logger))
	r.PathPrefix("/").Methods(http.MethodGet).HandlerFunc(h.Status)
	r.PathPrefix("/").Methods(http.MethodPost).HandlerFunc(h.Receive)
	return r
}

// Status reports that the service is up and where it writes.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, status{
		Status:      "ok",
		Service:     ServiceName,
		Vault:       h.vault,
		NotesFolder: h.notesFolder,
	})
}

// Receive decodes, authenticates and extracts one webhook, queues it and
// answers before any vault work starts.
func (h *Handler) Receive(w http.ResponseWriter, r *http.Request) {
	code := h.receive(w, r)
	h.metrics.Webhook(strconv.Itoa(code))
}

func (h *Handler) receive(w http.ResponseWriter, r *http.Request) int {
	// net/http has already removed the message framing.
	body, err := h.decoder.Decode(ingest.RawRequest{
		Header:   r.Header,
		Body:     r.Body,
		Path:     r.URL.Path,
		Unframed: true,
	})
	if err != nil {
		h.logger.Error("failed to read webhook body", "path", r.URL.Path, "error", err)
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return http.StatusInternalServerError
	}

	if h.logRequests {
		h.logRequest(r, body)
	}

	if !h.authorized(r) {
		h.logger.Warn("rejected webhook", "path", r.URL.Path, "error", core.ErrUnauthorized)
		h.writeError(w, http.StatusUnauthorized, "Invalid secret")
		return http.StatusUnauthorized
	}

	fields, err := ingest.Extract(body, r.Header.Get("Content-Type"))
	if err != nil {
		h.logger.Error("failed to extract webhook", "path", r.URL.Path, "error", err)
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return http.StatusInternalServerError
	}

	id, err := h.submitter.Submit(fields)
	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, core.ErrQueueFull) {
			code = http.StatusServiceUnavailable
		}
		h.logger.Error("failed to queue meeting", "error", err)
		h.writeError(w, code, err.Error())
		return code
	}

	h.logger.Info("meeting queued", "task", id, "path", r.URL.Path)
	h.writeJSON(w, http.StatusOK, reply{Success: true})
	return http.StatusOK
}

func (h *Handler) authorized(r *http.Request) bool {
	if h.secret == "" {
		return true
	}
	got := r.Header.Get(SecretHeader)
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) == 1
}

func (h *Handler) logRequest(r *http.Request, body []byte) {
	h.logger.Info("incoming webhook",
		"path", r.URL.Path,
		"headers", r.Header,
		"body", preview(body),
	)
}

// preview pretty-prints JSON bodies and falls back to the raw bytes.
func preview(body []byte) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, body, "", "  "); err == nil {
		s := buf.String()
		if len(s) > prettyLimit {
			return s[:prettyLimit] + "...(truncated)"
		}
		return s
	}
	if len(body) > rawLimit {
		body = body[:rawLimit]
	}
	return string(body)
}
