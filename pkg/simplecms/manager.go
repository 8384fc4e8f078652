package simplecms

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// TypeManager performs post operations scoped to a single registered type.
// Managers are created by Service.RegisterType and shared; all methods are
// safe for concurrent use as long as the underlying backends are.
type TypeManager struct {
	svc       *service
	key       string
	plural    string
	overrides GrantTable
}

// Key returns the singular type key.
func (m *TypeManager) Key() string { return m.key }

// PluralKey returns the plural type key.
func (m *TypeManager) PluralKey() string { return m.plural }

// Capabilities returns the capability names derived from the type's keys.
func (m *TypeManager) Capabilities() CapabilitySet {
	return CapabilitiesFor(m.key, m.plural)
}

// Create inserts a new post of the manager's type and returns its id.
//
// The request is merged over the type defaults: Type is always the manager's
// key, Status defaults to published, Body to the empty string, and Slug is
// derived from the title when absent. A missing title fails before the
// repository is ever called.
func (m *TypeManager) Create(ctx context.Context, req CreatePostRequest) (int64, error) {
	if err := m.svc.hooks.executeBeforePostCreate(ctx, m.key, &req); err != nil {
		return 0, err
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		err := &StoreError{TypeKey: m.key, Op: "create", Args: createArgs(m.key, req), Err: ErrTitleRequired}
		m.svc.hooks.executeOnError(ctx, "create", err)
		return 0, err
	}

	status := req.Status
	if status == "" {
		status = PostStatusPublished
	}
	if !status.IsValid() {
		err := &StoreError{TypeKey: m.key, Op: "create", Args: createArgs(m.key, req), Err: ErrInvalidPostStatus}
		m.svc.hooks.executeOnError(ctx, "create", err)
		return 0, err
	}

	slug := req.Slug
	if slug == "" {
		slug = Slugify(title)
	}

	now := time.Now().UTC()
	post := &Post{
		Type:      m.key,
		Title:     title,
		Slug:      slug,
		Body:      req.Body,
		Excerpt:   req.Excerpt,
		Status:    status,
		AuthorID:  req.AuthorID,
		MimeType:  req.MimeType,
		CreatedAt: now,
		UpdatedAt: now,
	}

	id, err := m.svc.repository.InsertPost(ctx, post)
	if err != nil {
		serr := &StoreError{TypeKey: m.key, Op: "create", Args: createArgs(m.key, req), Err: err}
		m.svc.hooks.executeOnError(ctx, "create", serr)
		return 0, serr
	}
	post.ID = id

	if len(req.Meta) > 0 {
		if err := m.svc.repository.SetPostMeta(ctx, &PostMeta{PostID: id, Metadata: req.Meta}); err != nil {
			serr := &StoreError{TypeKey: m.key, PostID: id, Op: "create", Args: req.Meta, Err: err}
			m.svc.hooks.executeOnError(ctx, "create", serr)
			return 0, serr
		}
	}

	if err := m.svc.hooks.executeAfterPostCreate(ctx, post); err != nil {
		return 0, err
	}
	if m.svc.eventSink != nil {
		if err := m.svc.eventSink.PostCreated(ctx, post); err != nil {
			m.svc.logger.ErrorContext(ctx, "post created event failed", "post_id", id, "error", err)
		}
	}

	m.svc.logger.InfoContext(ctx, "post created",
		"type", m.key,
		"post_id", id,
		"title", post.Title,
		"slug", post.Slug,
		"status", post.Status)
	return id, nil
}

// Update loads the post, applies the non-nil request fields, and saves it.
// The post id and type are always forced from the call, never from the
// stored record or the request. Returns the id of the updated post.
func (m *TypeManager) Update(ctx context.Context, id int64, req UpdatePostRequest) (int64, error) {
	if err := m.svc.hooks.executeBeforePostUpdate(ctx, id, &req); err != nil {
		return 0, err
	}

	post, err := m.svc.repository.GetPost(ctx, id)
	if err != nil {
		serr := &StoreError{TypeKey: m.key, PostID: id, Op: "update", Args: updateArgs(req), Err: err}
		m.svc.hooks.executeOnError(ctx, "update", serr)
		return 0, serr
	}

	oldStatus := post.Status
	if req.Title != nil {
		post.Title = strings.TrimSpace(*req.Title)
	}
	if req.Slug != nil {
		post.Slug = *req.Slug
	}
	if req.Body != nil {
		post.Body = *req.Body
	}
	if req.Excerpt != nil {
		post.Excerpt = *req.Excerpt
	}
	if req.AuthorID != nil {
		post.AuthorID = *req.AuthorID
	}
	if req.Status != nil && *req.Status != oldStatus {
		if _, err := canTransition(oldStatus, *req.Status); err != nil {
			serr := &StoreError{TypeKey: m.key, PostID: id, Op: "update", Args: updateArgs(req), Err: err}
			m.svc.hooks.executeOnError(ctx, "update", serr)
			return 0, serr
		}
		post.Status = *req.Status
		if oldStatus == PostStatusTrashed {
			post.DeletedAt = nil
		}
	}

	if post.Title == "" {
		serr := &StoreError{TypeKey: m.key, PostID: id, Op: "update", Args: updateArgs(req), Err: ErrTitleRequired}
		m.svc.hooks.executeOnError(ctx, "update", serr)
		return 0, serr
	}

	post.ID = id
	post.Type = m.key
	post.UpdatedAt = time.Now().UTC()

	if err := m.svc.repository.UpdatePost(ctx, post); err != nil {
		serr := &StoreError{TypeKey: m.key, PostID: id, Op: "update", Args: updateArgs(req), Err: err}
		m.svc.hooks.executeOnError(ctx, "update", serr)
		return 0, serr
	}

	if post.Status != oldStatus {
		if err := m.svc.hooks.executeOnStatusChange(ctx, id, oldStatus, post.Status); err != nil {
			return 0, err
		}
	}
	if err := m.svc.hooks.executeAfterPostUpdate(ctx, post); err != nil {
		return 0, err
	}
	if m.svc.eventSink != nil {
		if err := m.svc.eventSink.PostUpdated(ctx, post); err != nil {
			m.svc.logger.ErrorContext(ctx, "post updated event failed", "post_id", id, "error", err)
		}
	}

	m.svc.logger.InfoContext(ctx, "post updated",
		"type", m.key,
		"post_id", id,
		"status", post.Status)
	return id, nil
}

// Delete trashes the post (skipTrash=false) or removes it permanently along
// with its metadata and term links (skipTrash=true). Trashing an
// already-trashed post fails.
func (m *TypeManager) Delete(ctx context.Context, id int64, skipTrash bool) error {
	op := "trash"
	if skipTrash {
		op = "delete"
	}

	if err := m.svc.hooks.executeBeforePostDelete(ctx, id, skipTrash); err != nil {
		return err
	}

	post, err := m.svc.repository.GetPost(ctx, id)
	if err != nil {
		serr := &StoreError{TypeKey: m.key, PostID: id, Op: op, Err: err}
		m.svc.hooks.executeOnError(ctx, op, serr)
		return serr
	}
	if _, err := canDelete(post.Status, skipTrash); err != nil {
		serr := &StoreError{TypeKey: m.key, PostID: id, Op: op, Err: err}
		m.svc.hooks.executeOnError(ctx, op, serr)
		return serr
	}

	if err := m.svc.repository.DeletePost(ctx, id, skipTrash); err != nil {
		serr := &StoreError{TypeKey: m.key, PostID: id, Op: op, Err: err}
		m.svc.hooks.executeOnError(ctx, op, serr)
		return serr
	}

	if !skipTrash {
		if err := m.svc.hooks.executeOnStatusChange(ctx, id, post.Status, PostStatusTrashed); err != nil {
			return err
		}
	}
	if err := m.svc.hooks.executeAfterPostDelete(ctx, id, skipTrash); err != nil {
		return err
	}
	if m.svc.eventSink != nil {
		var eerr error
		if skipTrash {
			eerr = m.svc.eventSink.PostDeleted(ctx, id)
		} else {
			eerr = m.svc.eventSink.PostTrashed(ctx, id)
		}
		if eerr != nil {
			m.svc.logger.ErrorContext(ctx, "post delete event failed", "post_id", id, "error", eerr)
		}
	}

	m.svc.logger.InfoContext(ctx, "post removed",
		"type", m.key,
		"post_id", id,
		"skip_trash", skipTrash)
	return nil
}

// ExistsByTitle looks up a post of the manager's type by exact title.
// Returns the post id when found and 0 with a nil error when absent;
// absence is not an error.
func (m *TypeManager) ExistsByTitle(ctx context.Context, title string) (int64, error) {
	post, err := m.svc.repository.FindPostByTitle(ctx, m.key, title)
	if err != nil {
		if errors.Is(err, ErrPostNotFound) {
			return 0, nil
		}
		return 0, &StoreError{TypeKey: m.key, Op: "exists_by_title", Args: map[string]any{"title": title}, Err: err}
	}
	return post.ID, nil
}

// TermIDs returns the ids of the taxonomy terms attached to the referenced
// post. Lookup failures and missing term lists both yield an empty slice;
// the result is never nil and the method never fails.
func (m *TypeManager) TermIDs(ctx context.Context, ref PostRef, taxonomy string) []int64 {
	ids := make([]int64, 0)
	if ref == nil {
		return ids
	}
	if m.svc.taxonomies == nil {
		m.svc.logger.DebugContext(ctx, "term lookup skipped: no taxonomy repository", "taxonomy", taxonomy)
		return ids
	}

	terms, err := m.svc.taxonomies.TermsForPost(ctx, ref.PostID(), taxonomy)
	if err != nil {
		m.svc.logger.DebugContext(ctx, "term lookup failed",
			"type", m.key,
			"post_id", ref.PostID(),
			"taxonomy", taxonomy,
			"error", err)
		return ids
	}
	for _, term := range terms {
		ids = append(ids, term.ID)
	}
	return ids
}

// AttachTerms links the given terms to the post under the taxonomy.
func (m *TypeManager) AttachTerms(ctx context.Context, id int64, taxonomy string, termIDs []int64) error {
	if m.svc.taxonomies == nil {
		return &TaxonomyError{Taxonomy: taxonomy, PostID: id, Op: "attach", Err: errors.New("taxonomy repository is required")}
	}
	if err := m.svc.taxonomies.AttachTerms(ctx, id, taxonomy, termIDs); err != nil {
		return &TaxonomyError{Taxonomy: taxonomy, PostID: id, Op: "attach", Err: err}
	}
	return nil
}

// DetachTerms unlinks the given terms from the post under the taxonomy.
func (m *TypeManager) DetachTerms(ctx context.Context, id int64, taxonomy string, termIDs []int64) error {
	if m.svc.taxonomies == nil {
		return &TaxonomyError{Taxonomy: taxonomy, PostID: id, Op: "detach", Err: errors.New("taxonomy repository is required")}
	}
	if err := m.svc.taxonomies.DetachTerms(ctx, id, taxonomy, termIDs); err != nil {
		return &TaxonomyError{Taxonomy: taxonomy, PostID: id, Op: "detach", Err: err}
	}
	return nil
}

// Grants returns the effective grant table for the type: the default table
// for the derived capability names, overlaid with the type's overrides.
func (m *TypeManager) Grants() GrantTable {
	table := DefaultGrants(m.Capabilities()).Clone()
	table.Merge(m.overrides)
	return table
}

// SetupCapabilities writes the type's effective grant table entry by entry
// to the capability store, in a stable role/capability order. A service
// without a capability store treats this as a no-op.
func (m *TypeManager) SetupCapabilities(ctx context.Context) error {
	if m.svc.capabilities == nil {
		return nil
	}

	table := m.Grants()

	roles := maps.Keys(table)
	slices.Sort(roles)
	applied := 0
	for _, role := range roles {
		caps := maps.Keys(table[role])
		slices.Sort(caps)
		for _, cap := range caps {
			if err := m.svc.capabilities.Grant(ctx, string(role), cap, table[role][cap]); err != nil {
				return &CapabilityError{Role: role, Capability: cap, Err: err}
			}
			applied++
		}
	}

	m.svc.logger.InfoContext(ctx, "capabilities applied", "type", m.key, "grants", applied)
	return nil
}

// Get retrieves a post of the manager's type. Posts of other types are not
// visible through the manager and report ErrPostNotFound.
func (m *TypeManager) Get(ctx context.Context, id int64) (*Post, error) {
	post, err := m.svc.repository.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.Type != m.key {
		return nil, ErrPostNotFound
	}
	return post, nil
}

// List returns posts of the manager's type matching the given filters.
func (m *TypeManager) List(ctx context.Context, params ListPostsParams) ([]*Post, error) {
	params.Type = m.key
	return m.svc.repository.ListPosts(ctx, params)
}

// Meta retrieves the post's metadata map.
func (m *TypeManager) Meta(ctx context.Context, id int64) (*PostMeta, error) {
	return m.svc.repository.GetPostMeta(ctx, id)
}

// SetMeta replaces the post's metadata map.
func (m *TypeManager) SetMeta(ctx context.Context, id int64, metadata map[string]any) error {
	if err := m.svc.repository.SetPostMeta(ctx, &PostMeta{PostID: id, Metadata: metadata}); err != nil {
		return &StoreError{TypeKey: m.key, PostID: id, Op: "set_meta", Args: metadata, Err: err}
	}
	return nil
}

// createArgs captures the attempted payload of a create operation for error
// reporting.
func createArgs(typeKey string, req CreatePostRequest) map[string]any {
	args := map[string]any{
		"type":  typeKey,
		"title": req.Title,
		"body":  req.Body,
	}
	if req.Slug != "" {
		args["slug"] = req.Slug
	}
	if req.Excerpt != "" {
		args["excerpt"] = req.Excerpt
	}
	if req.Status != "" {
		args["status"] = string(req.Status)
	}
	if req.AuthorID != 0 {
		args["author_id"] = req.AuthorID
	}
	if req.MimeType != "" {
		args["mime_type"] = req.MimeType
	}
	return args
}

// updateArgs captures the attempted payload of an update operation for error
// reporting.
func updateArgs(req UpdatePostRequest) map[string]any {
	args := make(map[string]any)
	if req.Title != nil {
		args["title"] = *req.Title
	}
	if req.Slug != nil {
		args["slug"] = *req.Slug
	}
	if req.Body != nil {
		args["body"] = *req.Body
	}
	if req.Excerpt != nil {
		args["excerpt"] = *req.Excerpt
	}
	if req.Status != nil {
		args["status"] = string(*req.Status)
	}
	if req.AuthorID != nil {
		args["author_id"] = *req.AuthorID
	}
	return args
}
