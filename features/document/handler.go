package document

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/IvanBalandraCamacho/Caso01-sub000/internal/middleware"
)

var uploadExtensions = map[string]bool{
	".txt": true, ".md": true, ".json": true, ".csv": true,
}

type Handler struct {
	service   *Service
	uploadDir string
	maxBytes  int64
}

func NewHandler(s *Service, uploadDir string, maxBytes int64) *Handler {
	if maxBytes <= 0 {
		maxBytes = 32 << 20
	}
	return &Handler{service: s, uploadDir: uploadDir, maxBytes: maxBytes}
}

type createRequest struct {
	DisplayName string `json:"display_name"`
	Text        string `json:"text"`
}

// Create queues raw text for ingestion.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(ctx, w, "BAD_REQUEST", "Invalid JSON", http.StatusBadRequest)
		return
	}

	doc, err := h.service.Enqueue(ctx, EnqueueRequest{
		NamespaceID: r.PathValue("namespace"),
		DisplayName: req.DisplayName,
		RawText:     req.Text,
	})
	if err != nil {
		h.writeServiceError(ctx, w, err)
		return
	}
	h.writeJSON(ctx, w, http.StatusAccepted, doc)
}

// Upload stores a multipart file under the upload directory and queues it.
// The worker removes the file once ingestion ends.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+(1<<20))

	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		h.writeError(ctx, w, "BAD_REQUEST", "File too large", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(ctx, w, "BAD_REQUEST", "Unable to retrieve file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if !uploadExtensions[filepath.Ext(header.Filename)] {
		h.writeError(ctx, w, "BAD_REQUEST", "Unsupported file type", http.StatusBadRequest)
		return
	}

	name := r.FormValue("name")
	if name == "" {
		name = filepath.Base(header.Filename)
	}

	path, err := h.save(file, header.Filename)
	if err != nil {
		slog.ErrorContext(ctx, "failed to store upload", "error", err)
		h.writeError(ctx, w, "INTERNAL_ERROR", "Failed to save file", http.StatusInternalServerError)
		return
	}

	doc, err := h.service.Enqueue(ctx, EnqueueRequest{
		NamespaceID: r.PathValue("namespace"),
		DisplayName: name,
		SourcePath:  path,
	})
	if err != nil {
		if removeErr := os.Remove(path); removeErr != nil {
			slog.WarnContext(ctx, "failed to clean up uploaded file", "error", removeErr, "path", path)
		}
		h.writeServiceError(ctx, w, err)
		return
	}
	h.writeJSON(ctx, w, http.StatusAccepted, doc)
}

func (h *Handler) save(src io.Reader, filename string) (string, error) {
	if err := os.MkdirAll(h.uploadDir, 0o750); err != nil {
		return "", err
	}
	path := filepath.Clean(filepath.Join(h.uploadDir, fmt.Sprintf("%s_%s", uuid.New().String(), filepath.Base(filename))))

	dst, err := os.Create(path) // #nosec G304 -- path is a UUID plus a sanitized basename
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(path)
		return "", err
	}
	return path, dst.Close()
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	doc, err := h.service.Status(ctx, r.PathValue("id"))
	if err == nil && doc.NamespaceID != r.PathValue("namespace") {
		err = ErrNotFound
	}
	if err != nil {
		h.writeServiceError(ctx, w, err)
		return
	}
	h.writeJSON(ctx, w, http.StatusOK, doc)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docs, err := h.service.List(ctx, r.PathValue("namespace"))
	if err != nil {
		h.writeServiceError(ctx, w, err)
		return
	}
	h.writeJSON(ctx, w, http.StatusOK, docs)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.service.Delete(ctx, r.PathValue("namespace"), r.PathValue("id")); err != nil {
		h.writeServiceError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) DeleteNamespace(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.service.DeleteNamespace(ctx, r.PathValue("namespace")); err != nil {
		h.writeServiceError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		h.writeError(ctx, w, "BAD_REQUEST", err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNotFound):
		h.writeError(ctx, w, "NOT_FOUND", "Document not found", http.StatusNotFound)
	default:
		slog.ErrorContext(ctx, "document request failed", "error", err)
		h.writeError(ctx, w, "INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) writeJSON(ctx context.Context, w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": data}); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"correlationId": middleware.GetCorrelationID(ctx),
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}
