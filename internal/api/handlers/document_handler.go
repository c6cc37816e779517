package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/markdave123-py/AmityBot/internal/core"
	"github.com/markdave123-py/AmityBot/internal/models"
	"github.com/markdave123-py/AmityBot/internal/services"
)

// MaxUploadBytes bounds a single knowledge-base upload.
const MaxUploadBytes = 32 << 20

type Uploader interface {
	Upload(ctx context.Context, fileName, contentType string, data []byte) (*services.UploadResult, error)
	Delete(ctx context.Context, storedName string) error
}

type Reindexer interface {
	Reindex(ctx context.Context) (models.IngestReport, error)
}

// DocumentHandler manages the knowledge-base documents.
type DocumentHandler struct {
	uploads Uploader
	reindex Reindexer
	logger  *slog.Logger
}

func NewDocumentHandler(uploads Uploader, reindex Reindexer, logger *slog.Logger) *DocumentHandler {
	return &DocumentHandler{uploads: uploads, reindex: reindex, logger: logger}
}

// UploadDocument handles a multipart "file" upload into the knowledge base.
func (h *DocumentHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid upload")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read file")
		return
	}

	res, err := h.uploads.Upload(r.Context(), header.Filename, header.Header.Get("Content-Type"), data)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, res)
	case errors.Is(err, core.ErrUnsupportedType):
		writeError(w, http.StatusBadRequest, "Unsupported file type")
	case errors.Is(err, services.ErrNoText):
		writeError(w, http.StatusBadRequest, "No text could be extracted")
	case errors.Is(err, core.ErrExtractionFailure):
		h.logger.Warn("upload extraction failed", "file", header.Filename, "error", err)
		writeError(w, http.StatusUnprocessableEntity, "Upload failed: text extraction failed")
	default:
		h.logger.Error("upload failed", "file", header.Filename, "error", err)
		writeError(w, http.StatusInternalServerError, "Upload failed")
	}
}

// DeleteDocument removes a stored upload by its stored name.
func (h *DocumentHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	err := h.uploads.Delete(r.Context(), name)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"message": "File removed and KB reindex scheduled."})
	case errors.Is(err, services.ErrDocumentNotFound):
		writeError(w, http.StatusNotFound, "Document not found")
	default:
		h.logger.Error("delete failed", "file", name, "error", err)
		writeError(w, http.StatusInternalServerError, "Delete failed")
	}
}

type reindexResponse struct {
	Status  string               `json:"status"`
	Message string               `json:"message"`
	Report  *models.IngestReport `json:"report,omitempty"`
}

// Reindex rebuilds the knowledge base synchronously.
func (h *DocumentHandler) Reindex(w http.ResponseWriter, r *http.Request) {
	report, err := h.reindex.Reindex(r.Context())
	if err != nil {
		h.logger.Error("reindex failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, reindexResponse{Status: "error", Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, reindexResponse{Status: "success", Message: "Reindexing complete", Report: &report})
}
