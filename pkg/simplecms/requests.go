package simplecms

import "io"

// Request/Response DTOs

// CreatePostRequest contains parameters for creating a post.
//
// Zero-value fields fall back to the type defaults: Status defaults to
// published, Body to the empty string, and Slug is derived from the title.
// Title is required.
type CreatePostRequest struct {
	Title    string
	Slug     string
	Body     string
	Excerpt  string
	Status   PostStatus
	AuthorID int64
	MimeType string
	Meta     map[string]any
}

// UpdatePostRequest contains parameters for updating a post. Only non-nil
// fields are applied; the post id and type always come from the managing
// TypeManager, never from the request.
type UpdatePostRequest struct {
	Title    *string
	Slug     *string
	Body     *string
	Excerpt  *string
	Status   *PostStatus
	AuthorID *int64
}

// UploadAttachmentRequest contains parameters for uploading an attachment.
//
// Backend selects the blob store by registered name; empty means the
// service's default backend. Status defaults to published.
type UploadAttachmentRequest struct {
	FileName string
	MimeType string
	Backend  string
	Title    string
	AuthorID int64
	Status   PostStatus
	Reader   io.Reader
}

// CreateTermRequest contains parameters for creating a taxonomy term
type CreateTermRequest struct {
	Taxonomy string
	Name     string
	Slug     string
}
