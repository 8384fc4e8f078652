package simplecms

import (
	"strings"
	"time"
)

// PostStatus is the domain type for post lifecycle states.
type PostStatus string

// Post status constants (typed).
const (
	PostStatusDraft     PostStatus = "draft"
	PostStatusPending   PostStatus = "pending"
	PostStatusPublished PostStatus = "published"
	PostStatusPrivate   PostStatus = "private"
	PostStatusTrashed   PostStatus = "trashed"
)

// IsValid returns true if the status is one of the known lifecycle states.
func (s PostStatus) IsValid() bool {
	switch s {
	case PostStatusDraft, PostStatusPending, PostStatusPublished, PostStatusPrivate, PostStatusTrashed:
		return true
	default:
		return false
	}
}

// ParsePostStatus parses a string into a PostStatus.
// Returns ErrInvalidPostStatus if the string is not a known status.
func ParsePostStatus(s string) (PostStatus, error) {
	status := PostStatus(strings.ToLower(strings.TrimSpace(s)))
	if !status.IsValid() {
		return "", ErrInvalidPostStatus
	}
	return status, nil
}

// Role is the domain type for the built-in role identifiers.
type Role string

// Built-in roles, ordered from most to least privileged.
const (
	RoleAdministrator Role = "administrator"
	RoleEditor        Role = "editor"
	RoleAuthor        Role = "author"
	RoleContributor   Role = "contributor"
	RoleSubscriber    Role = "subscriber"
)

// BuiltinRoles returns the built-in roles in privilege order.
func BuiltinRoles() []Role {
	return []Role{RoleAdministrator, RoleEditor, RoleAuthor, RoleContributor, RoleSubscriber}
}

// Post represents a single content record of a registered type.
//
// The Type field holds the owning post type key (e.g., "post", "page",
// "attachment"); it is always forced by the managing TypeManager on writes.
// MimeType is only populated for attachment posts.
type Post struct {
	ID        int64      `json:"id"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Slug      string     `json:"slug,omitempty"`
	Body      string     `json:"body,omitempty"`
	Excerpt   string     `json:"excerpt,omitempty"`
	Status    PostStatus `json:"status"`
	AuthorID  int64      `json:"author_id,omitempty"`
	MimeType  string     `json:"mime_type,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// PostID implements PostRef so a *Post can be passed wherever a post
// reference is expected.
func (p *Post) PostID() int64 { return p.ID }

// PostID is a plain numeric post reference.
type PostID int64

// PostID implements PostRef.
func (id PostID) PostID() int64 { return int64(id) }

// PostRef identifies a post either by bare id (PostID) or by an object that
// knows its own id (*Post).
type PostRef interface {
	PostID() int64
}

// Term represents a single taxonomy term (e.g., a category or tag).
type Term struct {
	ID       int64  `json:"id"`
	Taxonomy string `json:"taxonomy"`
	Name     string `json:"name"`
	Slug     string `json:"slug,omitempty"`
}

// PostMeta represents extensible per-post metadata.
//
// First-class Post fields are authoritative; the Metadata map carries
// everything else (attachment bookkeeping, plugin data). Avoid mirroring
// first-class values into the map.
type PostMeta struct {
	PostID    int64          `json:"post_id"`
	Metadata  map[string]any `json:"metadata"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Post meta keys used by the attachment machinery.
const (
	MetaKeyFileKey  = "_file_key"
	MetaKeyFileName = "_file_name"
	MetaKeyMimeType = "_mime_type"
	MetaKeyBackend  = "_storage_backend"
	MetaKeyFileSize = "_file_size"
)

// GrantTable maps role -> capability name -> allowed.
type GrantTable map[Role]map[string]bool

// Clone returns a deep copy of the table.
func (t GrantTable) Clone() GrantTable {
	out := make(GrantTable, len(t))
	for role, grants := range t {
		m := make(map[string]bool, len(grants))
		for cap, allowed := range grants {
			m[cap] = allowed
		}
		out[role] = m
	}
	return out
}

// Merge overlays other onto the table, entry by entry. Roles present only in
// other are added; individual capability entries in other win.
func (t GrantTable) Merge(other GrantTable) {
	for role, grants := range other {
		if t[role] == nil {
			t[role] = make(map[string]bool, len(grants))
		}
		for cap, allowed := range grants {
			t[role][cap] = allowed
		}
	}
}
