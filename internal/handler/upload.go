package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/convertia/backend/internal/domain"
	"github.com/convertia/backend/internal/upload"
)

// UploadHandler handles document uploads.
type UploadHandler struct {
	store    *upload.Store
	maxBytes int64
}

// NewUploadHandler creates a new UploadHandler.
func NewUploadHandler(store *upload.Store, maxBytes int64) *UploadHandler {
	return &UploadHandler{store: store, maxBytes: maxBytes}
}

// Upload handles POST /api/upload (multipart form, field "file").
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	// +1 so an exactly-at-limit file passes and the store rejects one byte
	// over with a proper error instead of a truncated read.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+(1<<20))

	file, header, err := r.FormFile("file")
	if err != nil {
		Error(w, domain.ErrBadRequest("missing file upload"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		Error(w, domain.ErrBadRequest("could not read file upload"))
		return
	}

	handle, err := h.store.Put(data, header.Filename)
	if err != nil {
		switch {
		case errors.Is(err, upload.ErrUnsupportedFormat),
			errors.Is(err, upload.ErrTooLarge),
			errors.Is(err, upload.ErrTooManyPages):
			Error(w, domain.ErrBadRequest(err.Error()))
		default:
			Error(w, domain.ErrInternal("failed to store upload", err))
		}
		return
	}

	JSON(w, http.StatusOK, domain.UploadResponse{UploadID: handle})
}
