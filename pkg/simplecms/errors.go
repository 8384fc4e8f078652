package simplecms

import (
	"errors"
	"fmt"
)

// Error types
var (
	// ErrPostNotFound indicates a post was not found
	ErrPostNotFound = errors.New("post not found")

	// ErrTermNotFound indicates a taxonomy term was not found
	ErrTermNotFound = errors.New("term not found")

	// ErrTitleRequired indicates a post was submitted without a title
	ErrTitleRequired = errors.New("post title is required")

	// ErrInvalidPostStatus indicates an invalid post status
	ErrInvalidPostStatus = errors.New("invalid post status")

	// ErrPostTrashed indicates the post is already in the trash
	ErrPostTrashed = errors.New("post is trashed")

	// ErrTypeNotRegistered indicates no post type is registered under the key
	ErrTypeNotRegistered = errors.New("post type not registered")

	// ErrTypeAlreadyRegistered indicates the post type key is already taken
	ErrTypeAlreadyRegistered = errors.New("post type already registered")

	// ErrStorageBackendNotFound indicates a storage backend was not found
	ErrStorageBackendNotFound = errors.New("storage backend not found")

	// ErrNotAttachment indicates the post is not an attachment
	ErrNotAttachment = errors.New("post is not an attachment")
)

// StoreError represents a failed data-store operation. It carries the failing
// operation, the post type and id involved, and the payload that was being
// written, so callers can report what was attempted alongside the cause.
type StoreError struct {
	TypeKey string
	PostID  int64
	Op      string
	Args    map[string]any
	Err     error
}

func (e *StoreError) Error() string {
	if e.PostID != 0 {
		return fmt.Sprintf("store operation %s failed for %s %d: %v", e.Op, e.TypeKey, e.PostID, e.Err)
	}
	return fmt.Sprintf("store operation %s failed for %s: %v", e.Op, e.TypeKey, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// TaxonomyError represents an error related to taxonomy operations
type TaxonomyError struct {
	Taxonomy string
	PostID   int64
	Op       string
	Err      error
}

func (e *TaxonomyError) Error() string {
	return fmt.Sprintf("taxonomy operation %s failed for %s on post %d: %v", e.Op, e.Taxonomy, e.PostID, e.Err)
}

func (e *TaxonomyError) Unwrap() error {
	return e.Err
}

// CapabilityError represents an error applying a capability grant
type CapabilityError struct {
	Role       Role
	Capability string
	Err        error
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("capability grant %s for role %s failed: %v", e.Capability, e.Role, e.Err)
}

func (e *CapabilityError) Unwrap() error {
	return e.Err
}

// StorageError represents an error related to blob storage operations
type StorageError struct {
	Backend string
	Key     string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %s on backend %s: %v", e.Op, e.Key, e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
