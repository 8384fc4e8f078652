package simplecms

import (
	"context"
	"io"
)

// AttachmentTypeKey is the reserved post type key for media attachments.
const AttachmentTypeKey = "attachment"

// Service defines the main interface for the simple-cms library
type Service interface {
	// Type registration
	RegisterType(ctx context.Context, pt PostType) (*TypeManager, error)
	Type(key string) (*TypeManager, error)
	Types() []string

	// Attachment operations. The attachment post type must be registered
	// (see AttachmentType) before these are used.
	UploadAttachment(ctx context.Context, req UploadAttachmentRequest) (*Post, error)
	OpenAttachment(ctx context.Context, id int64) (io.ReadCloser, error)
	AttachmentURL(ctx context.Context, id int64) (string, error)
	DeleteAttachment(ctx context.Context, id int64) error

	// Storage backend operations
	RegisterBackend(name string, backend BlobStore)
	GetBackend(name string) (BlobStore, error)
}

// AttachmentType returns the built-in attachment post type.
func AttachmentType() PostType {
	return BaseType{TypeKey: AttachmentTypeKey, Plural: "attachments"}
}
