package webhook

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime/debug"
)

// reply is the body of every POST response.
type reply struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// status is the body of every GET response.
type status struct {
	Status      string `json:"status"`
	Service     string `json:"service"`
	Vault       string `json:"vault"`
	NotesFolder string `json:"notes_folder"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, code int, msg string) {
	h.writeJSON(w, code, reply{Success: false, Error: msg})
}

// recovery turns a panicking handler into a 500 instead of a dropped connection.
func recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered",
						"panic", rec,
						"method", r.Method,
						"url", r.URL.String(),
						"remote", r.RemoteAddr,
						"stack", string(debug.Stack()),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_, _ = w.Write([]byte(`{"success":false,"error":"Internal Server Error"}`))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
