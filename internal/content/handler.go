package content

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/jward/slicer"
)

// Handler serves file bytes from p at GET ?fileID=<id>, the same
// protocol the HTTP provider speaks.
func Handler(p slicer.ContentProvider, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		fileID, err := strconv.ParseInt(r.URL.Query().Get("fileID"), 10, 64)
		if err != nil {
			http.Error(w, "invalid fileID", http.StatusBadRequest)
			return
		}
		b, err := p.Content(r.Context(), fileID)
		if err != nil {
			logger.Error("serve file", "file", fileID, "err", err)
			http.Error(w, "content unavailable", http.StatusInternalServerError)
			return
		}
		if b == nil {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Length", strconv.Itoa(len(b)))
		_, _ = w.Write(b)
	})
}
