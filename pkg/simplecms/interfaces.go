package simplecms

import (
	"context"
	"io"
	"time"
)

// Repository defines the interface for post persistence
type Repository interface {
	// Post operations
	InsertPost(ctx context.Context, post *Post) (int64, error)
	GetPost(ctx context.Context, id int64) (*Post, error)
	UpdatePost(ctx context.Context, post *Post) error
	// DeletePost trashes the post (skipTrash=false) or removes it and its
	// metadata and term links for good (skipTrash=true).
	DeletePost(ctx context.Context, id int64, skipTrash bool) error
	FindPostByTitle(ctx context.Context, typeKey, title string) (*Post, error)
	ListPosts(ctx context.Context, params ListPostsParams) ([]*Post, error)

	// Reporting operations. Both apply the same filters as ListPosts;
	// Limit and Offset are ignored.
	CountPosts(ctx context.Context, params ListPostsParams) (int64, error)
	PostStatistics(ctx context.Context, params ListPostsParams, opts StatisticsOptions) (*PostStatistics, error)

	// Post metadata operations
	SetPostMeta(ctx context.Context, meta *PostMeta) error
	GetPostMeta(ctx context.Context, postID int64) (*PostMeta, error)
}

// TaxonomyRepository defines the interface for taxonomy term persistence
type TaxonomyRepository interface {
	CreateTerm(ctx context.Context, term *Term) (int64, error)
	GetTerm(ctx context.Context, id int64) (*Term, error)
	// TermsForPost returns the terms of the given taxonomy attached to the
	// post, ordered by term id.
	TermsForPost(ctx context.Context, postID int64, taxonomy string) ([]*Term, error)
	AttachTerms(ctx context.Context, postID int64, taxonomy string, termIDs []int64) error
	DetachTerms(ctx context.Context, postID int64, taxonomy string, termIDs []int64) error
}

// CapabilityStore defines the interface for role capability persistence
type CapabilityStore interface {
	// Grant records whether the role holds the capability, overwriting any
	// previous entry.
	Grant(ctx context.Context, role, capability string, allowed bool) error
	// Allowed reports whether the role holds the capability. Unknown
	// role/capability pairs are not an error; they are simply not allowed.
	Allowed(ctx context.Context, role, capability string) (bool, error)
	// Grants returns all recorded capability entries for the role.
	Grants(ctx context.Context, role string) (map[string]bool, error)
}

// BlobStore defines the interface for attachment file storage backends
type BlobStore interface {
	// Upload stores the object under the given key
	Upload(ctx context.Context, objectKey string, reader io.Reader) error

	// UploadWithParams stores the object with additional parameters
	UploadWithParams(ctx context.Context, reader io.Reader, params UploadParams) error

	// Download opens the object for reading
	Download(ctx context.Context, objectKey string) (io.ReadCloser, error)

	// GetDownloadURL returns a URL for downloading the object
	GetDownloadURL(ctx context.Context, objectKey string, downloadFilename string) (string, error)

	// Delete removes the object
	Delete(ctx context.Context, objectKey string) error

	// GetObjectMeta retrieves metadata for a stored object
	GetObjectMeta(ctx context.Context, objectKey string) (*ObjectMeta, error)
}

// EventSink defines the interface for post lifecycle event handling
type EventSink interface {
	// PostCreated is fired after a post is created
	PostCreated(ctx context.Context, post *Post) error

	// PostUpdated is fired after a post is updated
	PostUpdated(ctx context.Context, post *Post) error

	// PostTrashed is fired after a post is moved to the trash
	PostTrashed(ctx context.Context, postID int64) error

	// PostDeleted is fired after a post is permanently deleted
	PostDeleted(ctx context.Context, postID int64) error
}

// ObjectMeta contains metadata about an object in blob storage
type ObjectMeta struct {
	Key         string
	Size        int64
	ContentType string
	UpdatedAt   time.Time
	ETag        string
	Metadata    map[string]string
}

// UploadParams contains parameters for uploading an object
type UploadParams struct {
	ObjectKey string
	MimeType  string
}

// ListPostsParams defines filtering options for listing posts
type ListPostsParams struct {
	Type           string
	Status         *PostStatus
	Statuses       []PostStatus
	AuthorID       *int64
	Search         string
	CreatedAfter   *time.Time
	CreatedBefore  *time.Time
	Limit          *int
	Offset         *int
	IncludeTrashed bool
}

// StatisticsOptions selects which breakdowns PostStatistics computes
type StatisticsOptions struct {
	ByStatus  bool `json:"by_status"`
	ByType    bool `json:"by_type"`
	ByAuthor  bool `json:"by_author"`
	TimeRange bool `json:"time_range"`
}

// DefaultStatisticsOptions returns statistics options with all breakdowns
// enabled
func DefaultStatisticsOptions() StatisticsOptions {
	return StatisticsOptions{
		ByStatus:  true,
		ByType:    true,
		ByAuthor:  true,
		TimeRange: true,
	}
}

// PostStatistics provides aggregated counts over the posts matching a
// filter. Author keys are decimal author ids.
type PostStatistics struct {
	TotalCount int64            `json:"total_count"`
	ByStatus   map[string]int64 `json:"by_status,omitempty"`
	ByType     map[string]int64 `json:"by_type,omitempty"`
	ByAuthor   map[string]int64 `json:"by_author,omitempty"`
	OldestPost *time.Time       `json:"oldest_post,omitempty"`
	NewestPost *time.Time       `json:"newest_post,omitempty"`
}
