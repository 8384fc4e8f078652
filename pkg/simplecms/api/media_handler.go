package api

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth"
	"github.com/go-chi/render"
	"github.com/tendant/simple-cms/pkg/simplecms"
)

const maxUploadBytes = 32 << 20

// MediaHandler handles attachment upload and download API endpoints using
// pkg/simplecms
type MediaHandler struct {
	service simplecms.Service
	guard   *Guard
}

// NewMediaHandler creates a new media handler. A nil guard disables token
// verification and capability checks.
func NewMediaHandler(service simplecms.Service, guard *Guard) *MediaHandler {
	return &MediaHandler{
		service: service,
		guard:   guard,
	}
}

// Routes returns the router for media endpoints
func (h *MediaHandler) Routes() chi.Router {
	r := chi.NewRouter()

	if h.guard != nil {
		r.Use(jwtauth.Verifier(h.guard.auth))
		r.Use(jwtauth.Authenticator)
	}

	r.With(h.requireEdit()).Post("/", h.UploadFile)
	r.Get("/{postID}", h.GetFileInfo)
	r.Get("/{postID}/download", h.DownloadFile)
	r.With(h.requireDelete()).Delete("/{postID}", h.DeleteFile)

	return r
}

// FileResponse represents attachment information including the download URL
type FileResponse struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	FileName    string    `json:"file_name,omitempty"`
	MimeType    string    `json:"mime_type,omitempty"`
	FileSize    int64     `json:"file_size,omitempty"`
	Backend     string    `json:"backend,omitempty"`
	Status      string    `json:"status"`
	DownloadURL string    `json:"download_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// UploadFile stores an uploaded file and creates its attachment post
//
// Multipart form fields: "file" carries the content; "title", "author_id",
// "backend" and "status" are optional.
func (h *MediaHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		slog.Error("Invalid multipart form", "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Missing file field", "error", err)
		http.Error(w, "Missing required 'file' field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	req := simplecms.UploadAttachmentRequest{
		FileName: header.Filename,
		MimeType: header.Header.Get("Content-Type"),
		Backend:  r.FormValue("backend"),
		Title:    r.FormValue("title"),
		Reader:   file,
	}
	if raw := r.FormValue("author_id"); raw != "" {
		authorID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			http.Error(w, "Invalid author ID", http.StatusBadRequest)
			return
		}
		req.AuthorID = authorID
	}
	if raw := r.FormValue("status"); raw != "" {
		status, err := simplecms.ParsePostStatus(raw)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		req.Status = status
	}

	post, err := h.service.UploadAttachment(r.Context(), req)
	if err != nil {
		slog.Error("Failed to upload attachment", "file_name", header.Filename, "error", err)
		writeError(w, r, err)
		return
	}

	slog.Info("Attachment uploaded", "post_id", post.ID, "file_name", header.Filename)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, h.fileResponse(r, post))
}

// GetFileInfo returns attachment information including the download URL
func (h *MediaHandler) GetFileInfo(w http.ResponseWriter, r *http.Request) {
	id, ok := h.postID(w, r)
	if !ok {
		return
	}

	mgr, err := h.service.Type(simplecms.AttachmentTypeKey)
	if err != nil {
		writeError(w, r, err)
		return
	}

	post, err := mgr.Get(r.Context(), id)
	if err != nil {
		slog.Error("Failed to get attachment", "post_id", id, "error", err)
		writeError(w, r, err)
		return
	}

	render.JSON(w, r, h.fileResponse(r, post))
}

// DownloadFile streams the attachment's stored bytes
func (h *MediaHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	id, ok := h.postID(w, r)
	if !ok {
		return
	}

	rc, err := h.service.OpenAttachment(r.Context(), id)
	if err != nil {
		slog.Error("Failed to open attachment", "post_id", id, "error", err)
		writeError(w, r, err)
		return
	}
	defer rc.Close()

	mimeType := "application/octet-stream"
	fileName := ""
	if mgr, err := h.service.Type(simplecms.AttachmentTypeKey); err == nil {
		if meta, err := mgr.Meta(r.Context(), id); err == nil {
			if v, ok := meta.Metadata[simplecms.MetaKeyMimeType].(string); ok && v != "" {
				mimeType = v
			}
			if v, ok := meta.Metadata[simplecms.MetaKeyFileName].(string); ok {
				fileName = v
			}
		}
	}

	w.Header().Set("Content-Type", mimeType)
	if fileName != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	}

	if _, err := io.Copy(w, rc); err != nil {
		slog.Error("Failed to stream attachment", "post_id", id, "error", err)
	}
}

// DeleteFile removes the attachment post and its stored bytes
func (h *MediaHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	id, ok := h.postID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteAttachment(r.Context(), id); err != nil {
		slog.Error("Failed to delete attachment", "post_id", id, "error", err)
		writeError(w, r, err)
		return
	}

	slog.Info("Attachment deleted", "post_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *MediaHandler) fileResponse(r *http.Request, post *simplecms.Post) FileResponse {
	resp := FileResponse{
		ID:        post.ID,
		Title:     post.Title,
		MimeType:  post.MimeType,
		Status:    string(post.Status),
		CreatedAt: post.CreatedAt,
		UpdatedAt: post.UpdatedAt,
	}

	if mgr, err := h.service.Type(simplecms.AttachmentTypeKey); err == nil {
		if meta, err := mgr.Meta(r.Context(), post.ID); err == nil {
			if v, ok := meta.Metadata[simplecms.MetaKeyFileName].(string); ok {
				resp.FileName = v
			}
			if v, ok := meta.Metadata[simplecms.MetaKeyBackend].(string); ok {
				resp.Backend = v
			}
			resp.FileSize = metaFileSize(meta.Metadata)
		}
	}

	if url, err := h.service.AttachmentURL(r.Context(), post.ID); err == nil {
		resp.DownloadURL = url
	} else {
		slog.Warn("Failed to build download URL", "post_id", post.ID, "error", err)
	}

	return resp
}

// metaFileSize reads the stored file size, whose numeric type depends on the
// repository backend's JSON round-trip.
func metaFileSize(metadata map[string]interface{}) int64 {
	switch v := metadata[simplecms.MetaKeyFileSize].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}

func (h *MediaHandler) postID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	idStr := chi.URLParam(r, "postID")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		slog.Error("Invalid post ID", "post_id", idStr)
		http.Error(w, "Invalid post ID", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func (h *MediaHandler) requireEdit() func(http.Handler) http.Handler {
	if h.guard == nil {
		return passthrough
	}
	return h.guard.RequireEditType(simplecms.AttachmentTypeKey)
}

func (h *MediaHandler) requireDelete() func(http.Handler) http.Handler {
	if h.guard == nil {
		return passthrough
	}
	return h.guard.RequireDeleteType(simplecms.AttachmentTypeKey)
}
