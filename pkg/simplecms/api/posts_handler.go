package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth"
	"github.com/go-chi/render"
	"github.com/tendant/simple-cms/pkg/simplecms"
)

// PostsHandler handles HTTP requests for post types using pkg/simplecms
type PostsHandler struct {
	service simplecms.Service
	guard   *Guard
}

// NewPostsHandler creates a new posts handler. A nil guard disables token
// verification and capability checks.
func NewPostsHandler(service simplecms.Service, guard *Guard) *PostsHandler {
	return &PostsHandler{
		service: service,
		guard:   guard,
	}
}

// Routes returns the routes for registered post types
func (h *PostsHandler) Routes() chi.Router {
	r := chi.NewRouter()

	if h.guard != nil {
		r.Use(jwtauth.Verifier(h.guard.auth))
		r.Use(jwtauth.Authenticator)
	}

	r.Get("/", h.ListTypes)

	r.Route("/{type}", func(r chi.Router) {
		r.Get("/capabilities", h.GetCapabilities)
		r.With(h.requireAdmin()).Post("/capabilities", h.ApplyCapabilities)

		r.Route("/posts", func(r chi.Router) {
			r.With(h.requireEdit()).Post("/", h.CreatePost)
			r.Get("/", h.ListPosts)
			r.Get("/exists", h.ExistsPost)

			r.Route("/{postID}", func(r chi.Router) {
				r.Get("/", h.GetPost)
				r.With(h.requireEdit()).Put("/", h.UpdatePost)
				r.With(h.requireDelete()).Delete("/", h.DeletePost)

				r.Get("/terms/{taxonomy}", h.GetTerms)
				r.With(h.requireEdit()).Put("/terms/{taxonomy}", h.AttachTerms)
				r.With(h.requireEdit()).Delete("/terms/{taxonomy}", h.DetachTerms)
			})
		})
	})

	return r
}

// CreatePostRequest is the request body for creating a post
type CreatePostRequest struct {
	Title    string                 `json:"title"`
	Slug     string                 `json:"slug,omitempty"`
	Body     string                 `json:"body,omitempty"`
	Excerpt  string                 `json:"excerpt,omitempty"`
	Status   string                 `json:"status,omitempty"`
	AuthorID int64                  `json:"author_id,omitempty"`
	MimeType string                 `json:"mime_type,omitempty"`
	Meta     map[string]interface{} `json:"meta,omitempty"`
}

// UpdatePostRequest is the request body for updating a post. Absent fields
// are left unchanged.
type UpdatePostRequest struct {
	Title    *string `json:"title,omitempty"`
	Slug     *string `json:"slug,omitempty"`
	Body     *string `json:"body,omitempty"`
	Excerpt  *string `json:"excerpt,omitempty"`
	Status   *string `json:"status,omitempty"`
	AuthorID *int64  `json:"author_id,omitempty"`
}

// PostResponse is the response body for a post
type PostResponse struct {
	ID        int64      `json:"id"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Slug      string     `json:"slug"`
	Body      string     `json:"body,omitempty"`
	Excerpt   string     `json:"excerpt,omitempty"`
	Status    string     `json:"status"`
	AuthorID  int64      `json:"author_id,omitempty"`
	MimeType  string     `json:"mime_type,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// TermsRequest is the request body for attaching or detaching terms
type TermsRequest struct {
	TermIDs []int64 `json:"term_ids"`
}

func toPostResponse(post *simplecms.Post) PostResponse {
	return PostResponse{
		ID:        post.ID,
		Type:      post.Type,
		Title:     post.Title,
		Slug:      post.Slug,
		Body:      post.Body,
		Excerpt:   post.Excerpt,
		Status:    string(post.Status),
		AuthorID:  post.AuthorID,
		MimeType:  post.MimeType,
		CreatedAt: post.CreatedAt,
		UpdatedAt: post.UpdatedAt,
		DeletedAt: post.DeletedAt,
	}
}

// ListTypes lists the registered post type keys
func (h *PostsHandler) ListTypes(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{"types": h.service.Types()})
}

// GetCapabilities returns the effective grant table for a post type
func (h *PostsHandler) GetCapabilities(w http.ResponseWriter, r *http.Request) {
	mgr, ok := h.manager(w, r)
	if !ok {
		return
	}
	render.JSON(w, r, mgr.Grants())
}

// ApplyCapabilities re-applies the type's grant table to the capability store
func (h *PostsHandler) ApplyCapabilities(w http.ResponseWriter, r *http.Request) {
	mgr, ok := h.manager(w, r)
	if !ok {
		return
	}

	if err := mgr.SetupCapabilities(r.Context()); err != nil {
		slog.Error("Failed to apply capabilities", "type", mgr.Key(), "error", err)
		writeError(w, r, err)
		return
	}

	slog.Info("Capabilities applied", "type", mgr.Key())
	render.JSON(w, r, map[string]string{"status": "applied"})
}

// CreatePost creates a new post of the given type
func (h *PostsHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	mgr, ok := h.manager(w, r)
	if !ok {
		return
	}

	var req CreatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Invalid request body", "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	status := simplecms.PostStatus(req.Status)
	if status == "" {
		status = simplecms.PostStatusPublished
	}
	if h.guard != nil && status == simplecms.PostStatusPublished && !h.guard.Can(r, mgr.Capabilities().Publish) {
		http.Error(w, "insufficient capabilities to publish", http.StatusForbidden)
		return
	}

	id, err := mgr.Create(r.Context(), simplecms.CreatePostRequest{
		Title:    req.Title,
		Slug:     req.Slug,
		Body:     req.Body,
		Excerpt:  req.Excerpt,
		Status:   simplecms.PostStatus(req.Status),
		AuthorID: req.AuthorID,
		MimeType: req.MimeType,
		Meta:     req.Meta,
	})
	if err != nil {
		slog.Error("Failed to create post", "type", mgr.Key(), "error", err)
		writeError(w, r, err)
		return
	}

	post, err := mgr.Get(r.Context(), id)
	if err != nil {
		slog.Error("Failed to load created post", "type", mgr.Key(), "post_id", id, "error", err)
		writeError(w, r, err)
		return
	}

	slog.Info("Post created", "type", mgr.Key(), "post_id", id)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, toPostResponse(post))
}

// GetPost retrieves a post by ID
func (h *PostsHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	mgr, ok := h.manager(w, r)
	if !ok {
		return
	}

	id, ok := h.postID(w, r)
	if !ok {
		return
	}

	post, err := mgr.Get(r.Context(), id)
	if err != nil {
		slog.Error("Failed to get post", "type", mgr.Key(), "post_id", id, "error", err)
		writeError(w, r, err)
		return
	}

	if h.guard != nil && post.Status == simplecms.PostStatusPrivate && !h.guard.Can(r, mgr.Capabilities().ReadPrivate) {
		http.Error(w, "insufficient capabilities", http.StatusForbidden)
		return
	}

	render.JSON(w, r, toPostResponse(post))
}

// UpdatePost updates a post by ID
func (h *PostsHandler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	mgr, ok := h.manager(w, r)
	if !ok {
		return
	}

	id, ok := h.postID(w, r)
	if !ok {
		return
	}

	var req UpdatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Invalid request body", "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if h.guard != nil && req.Status != nil && simplecms.PostStatus(*req.Status) == simplecms.PostStatusPublished &&
		!h.guard.Can(r, mgr.Capabilities().Publish) {
		http.Error(w, "insufficient capabilities to publish", http.StatusForbidden)
		return
	}

	update := simplecms.UpdatePostRequest{
		Title:    req.Title,
		Slug:     req.Slug,
		Body:     req.Body,
		Excerpt:  req.Excerpt,
		AuthorID: req.AuthorID,
	}
	if req.Status != nil {
		status := simplecms.PostStatus(*req.Status)
		update.Status = &status
	}

	if _, err := mgr.Update(r.Context(), id, update); err != nil {
		slog.Error("Failed to update post", "type", mgr.Key(), "post_id", id, "error", err)
		writeError(w, r, err)
		return
	}

	post, err := mgr.Get(r.Context(), id)
	if err != nil {
		slog.Error("Failed to load updated post", "type", mgr.Key(), "post_id", id, "error", err)
		writeError(w, r, err)
		return
	}

	slog.Info("Post updated", "type", mgr.Key(), "post_id", id)
	render.JSON(w, r, toPostResponse(post))
}

// DeletePost trashes a post, or deletes it permanently when skip_trash=true
func (h *PostsHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	mgr, ok := h.manager(w, r)
	if !ok {
		return
	}

	id, ok := h.postID(w, r)
	if !ok {
		return
	}

	skipTrash := r.URL.Query().Get("skip_trash") == "true"

	if err := mgr.Delete(r.Context(), id, skipTrash); err != nil {
		slog.Error("Failed to delete post", "type", mgr.Key(), "post_id", id, "error", err)
		writeError(w, r, err)
		return
	}

	slog.Info("Post deleted", "type", mgr.Key(), "post_id", id, "skip_trash", skipTrash)
	w.WriteHeader(http.StatusNoContent)
}

// ListPosts lists posts of the given type
// Query parameters:
//   - status: repeatable status filter
//   - author_id: filter by author
//   - q: case-insensitive title/body search
//   - limit, offset: pagination
//   - include_trashed=true: include trashed posts
func (h *PostsHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	mgr, ok := h.manager(w, r)
	if !ok {
		return
	}

	params, err := listParamsFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	for _, status := range params.Statuses {
		if h.guard != nil && status == simplecms.PostStatusPrivate && !h.guard.Can(r, mgr.Capabilities().ReadPrivate) {
			http.Error(w, "insufficient capabilities", http.StatusForbidden)
			return
		}
	}

	posts, err := mgr.List(r.Context(), params)
	if err != nil {
		slog.Error("Failed to list posts", "type", mgr.Key(), "error", err)
		writeError(w, r, err)
		return
	}

	resp := make([]PostResponse, 0, len(posts))
	for _, post := range posts {
		resp = append(resp, toPostResponse(post))
	}
	render.JSON(w, r, resp)
}

// ExistsPost reports whether a post with the given title exists
// Responds 200 with the post id, or 404 when no live post carries the title.
func (h *PostsHandler) ExistsPost(w http.ResponseWriter, r *http.Request) {
	mgr, ok := h.manager(w, r)
	if !ok {
		return
	}

	title := r.URL.Query().Get("title")
	if title == "" {
		http.Error(w, "Missing required 'title' parameter", http.StatusBadRequest)
		return
	}

	id, err := mgr.ExistsByTitle(r.Context(), title)
	if err != nil {
		slog.Error("Failed to check title", "type", mgr.Key(), "title", title, "error", err)
		writeError(w, r, err)
		return
	}
	if id == 0 {
		http.Error(w, "post not found", http.StatusNotFound)
		return
	}

	render.JSON(w, r, map[string]int64{"id": id})
}

// GetTerms returns the term IDs attached to a post for a taxonomy
func (h *PostsHandler) GetTerms(w http.ResponseWriter, r *http.Request) {
	mgr, ok := h.manager(w, r)
	if !ok {
		return
	}

	id, ok := h.postID(w, r)
	if !ok {
		return
	}

	taxonomy := chi.URLParam(r, "taxonomy")
	ids := mgr.TermIDs(r.Context(), simplecms.PostID(id), taxonomy)

	render.JSON(w, r, map[string]interface{}{
		"post_id":  id,
		"taxonomy": taxonomy,
		"term_ids": ids,
	})
}

// AttachTerms attaches terms to a post for a taxonomy
func (h *PostsHandler) AttachTerms(w http.ResponseWriter, r *http.Request) {
	h.modifyTerms(w, r, func(mgr *simplecms.TypeManager, id int64, taxonomy string, termIDs []int64) error {
		return mgr.AttachTerms(r.Context(), id, taxonomy, termIDs)
	})
}

// DetachTerms detaches terms from a post for a taxonomy
func (h *PostsHandler) DetachTerms(w http.ResponseWriter, r *http.Request) {
	h.modifyTerms(w, r, func(mgr *simplecms.TypeManager, id int64, taxonomy string, termIDs []int64) error {
		return mgr.DetachTerms(r.Context(), id, taxonomy, termIDs)
	})
}

func (h *PostsHandler) modifyTerms(w http.ResponseWriter, r *http.Request, apply func(*simplecms.TypeManager, int64, string, []int64) error) {
	mgr, ok := h.manager(w, r)
	if !ok {
		return
	}

	id, ok := h.postID(w, r)
	if !ok {
		return
	}

	var req TermsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Invalid request body", "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.TermIDs) == 0 {
		http.Error(w, "Missing required 'term_ids' field", http.StatusBadRequest)
		return
	}

	taxonomy := chi.URLParam(r, "taxonomy")
	if err := apply(mgr, id, taxonomy, req.TermIDs); err != nil {
		slog.Error("Failed to modify terms", "type", mgr.Key(), "post_id", id, "taxonomy", taxonomy, "error", err)
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// manager resolves the type manager for the request's {type} URL parameter,
// writing a 404 when the type is not registered.
func (h *PostsHandler) manager(w http.ResponseWriter, r *http.Request) (*simplecms.TypeManager, bool) {
	typeKey := chi.URLParam(r, "type")
	mgr, err := h.service.Type(typeKey)
	if err != nil {
		slog.Error("Unknown post type", "type", typeKey, "error", err)
		http.Error(w, err.Error(), http.StatusNotFound)
		return nil, false
	}
	return mgr, true
}

func (h *PostsHandler) postID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	idStr := chi.URLParam(r, "postID")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		slog.Error("Invalid post ID", "post_id", idStr)
		http.Error(w, "Invalid post ID", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func (h *PostsHandler) requireEdit() func(http.Handler) http.Handler {
	if h.guard == nil {
		return passthrough
	}
	return h.guard.RequireEdit()
}

func (h *PostsHandler) requireDelete() func(http.Handler) http.Handler {
	if h.guard == nil {
		return passthrough
	}
	return h.guard.RequireDelete()
}

func (h *PostsHandler) requireAdmin() func(http.Handler) http.Handler {
	if h.guard == nil {
		return passthrough
	}
	return h.guard.RequireAdmin()
}

func passthrough(next http.Handler) http.Handler { return next }

func listParamsFromQuery(r *http.Request) (simplecms.ListPostsParams, error) {
	var params simplecms.ListPostsParams

	for _, raw := range r.URL.Query()["status"] {
		status, err := simplecms.ParsePostStatus(raw)
		if err != nil {
			return params, err
		}
		params.Statuses = append(params.Statuses, status)
	}

	if raw := r.URL.Query().Get("author_id"); raw != "" {
		authorID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return params, err
		}
		params.AuthorID = &authorID
	}

	params.Search = r.URL.Query().Get("q")

	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return params, err
		}
		params.Limit = &limit
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil {
			return params, err
		}
		params.Offset = &offset
	}

	params.IncludeTrashed = r.URL.Query().Get("include_trashed") == "true"

	return params, nil
}
