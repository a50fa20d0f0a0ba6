// Serves the whole data file.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/maruel/bibliodb/internal/docstore"
)

// DocumentHandler serves the backing document.
type DocumentHandler struct {
	store *docstore.Store
}

// NewDocumentHandler creates a new document handler.
func NewDocumentHandler(store *docstore.Store) *DocumentHandler {
	return &DocumentHandler{store: store}
}

// Raw writes the data file as stored, in its own content type.
func (h *DocumentHandler) Raw(w http.ResponseWriter, r *http.Request) {
	data, err := h.store.Raw()
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to read document", "err", err)
		WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", h.store.Codec().ContentType())
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// JSON writes the decoded document as JSON whatever its format.
func (h *DocumentHandler) JSON(w http.ResponseWriter, r *http.Request) {
	var data []byte
	err := h.store.View(func(doc *docstore.Document) error {
		var err error
		data, err = docstore.JSON{}.Encode(doc.Root)
		return err
	})
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to convert document", "err", err)
		WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Favicon answers browsers with no content.
func Favicon(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}
