package export

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/fsmforge/fsmforge/backend-go/internal/diagram"
)

const maxDocumentSize = 4 << 20 // 4MB

type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

// Render converts a posted document to the format named in the URL.
func (h *Handler) Render(w http.ResponseWriter, r *http.Request) {
	format := Format(mux.Vars(r)["format"])

	r.Body = http.MaxBytesReader(w, r.Body, maxDocumentSize)
	var doc diagram.Document
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		http.Error(w, "invalid document", http.StatusBadRequest)
		return
	}

	out, err := Render(doc, format)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	slog.Info("rendered export", "format", format, "states", len(doc.States))
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(out))
}
