package handler

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Sibikrish3000/cr-agent/internal/api/response"
	"github.com/Sibikrish3000/cr-agent/internal/domain"
	"github.com/Sibikrish3000/cr-agent/internal/service"
)

const defaultCleanupHours = 24

// StorageService stores uploads and reports on storage usage
type StorageService interface {
	Save(filename string, content io.Reader, persistent bool) (*domain.UploadResult, error)
	Info() (*domain.StorageInfo, error)
	CleanupUploads(maxAge time.Duration) (int, error)
}

// UploadHandler handles file upload and storage endpoints
type UploadHandler struct {
	storage  StorageService
	maxBytes int64
}

// NewUploadHandler creates a new upload handler. maxBytes bounds the multipart body.
func NewUploadHandler(storage StorageService, maxBytes int64) *UploadHandler {
	return &UploadHandler{storage: storage, maxBytes: maxBytes}
}

// Upload stores a document for the document agent. ?persistent=true keeps it out of cleanup.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	persistent := false
	if v := r.URL.Query().Get("persistent"); v != "" {
		p, err := strconv.ParseBool(v)
		if err != nil {
			response.BadRequest(w, "invalid persistent flag")
			return
		}
		persistent = p
	}

	// headroom for the multipart envelope; the service enforces the file limit
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+1<<20)
	if err := r.ParseMultipartForm(h.maxBytes + 1<<20); err != nil {
		response.BadRequest(w, "invalid multipart form: "+err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		response.BadRequest(w, "no file uploaded")
		return
	}
	defer file.Close()

	result, err := h.storage.Save(header.Filename, file, persistent)
	if err != nil {
		if service.IsValidationError(err) {
			response.BadRequest(w, err.Error())
			return
		}
		log.Error().Err(err).Str("filename", header.Filename).Msg("Upload failed")
		response.InternalError(w, "Upload failed: "+err.Error())
		return
	}

	response.OK(w, result)
}

// StorageInfo reports storage usage
func (h *UploadHandler) StorageInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.storage.Info()
	if err != nil {
		response.InternalError(w, err.Error())
		return
	}
	response.OK(w, info)
}

// Cleanup deletes temporary uploads older than ?max_age_hours (default 24, 1..168).
func (h *UploadHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	hours := defaultCleanupHours
	if v := r.URL.Query().Get("max_age_hours"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			response.BadRequest(w, "max_age_hours must be an integer")
			return
		}
		hours = n
	}
	if err := service.ValidateCleanupHours(hours); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	removed, err := h.storage.CleanupUploads(time.Duration(hours) * time.Hour)
	if err != nil {
		response.InternalError(w, err.Error())
		return
	}

	response.OK(w, map[string]any{
		"message":       "Cleanup completed for files older than " + strconv.Itoa(hours) + " hours",
		"files_removed": removed,
	})
}
