package simplecms

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
)

// service implements the Service interface
type service struct {
	repository     Repository
	taxonomies     TaxonomyRepository
	capabilities   CapabilityStore
	blobStores     map[string]BlobStore
	defaultBackend string
	eventSink      EventSink
	hooks          *Hooks
	logger         *slog.Logger
	keys           *KeyGenerator

	mu       sync.RWMutex
	managers map[string]*TypeManager
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the post repository for the service
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithTaxonomyRepository sets the taxonomy repository for the service
func WithTaxonomyRepository(repo TaxonomyRepository) Option {
	return func(s *service) {
		s.taxonomies = repo
	}
}

// WithCapabilityStore sets the capability store for the service
func WithCapabilityStore(store CapabilityStore) Option {
	return func(s *service) {
		s.capabilities = store
	}
}

// WithBlobStore adds a blob storage backend for attachments
func WithBlobStore(name string, store BlobStore) Option {
	return func(s *service) {
		if s.blobStores == nil {
			s.blobStores = make(map[string]BlobStore)
		}
		s.blobStores[name] = store
		if s.defaultBackend == "" {
			s.defaultBackend = name
		}
	}
}

// WithDefaultBackend selects the backend used when a request names none
func WithDefaultBackend(name string) Option {
	return func(s *service) {
		s.defaultBackend = name
	}
}

// WithEventSink sets the event sink for the service
func WithEventSink(sink EventSink) Option {
	return func(s *service) {
		s.eventSink = sink
	}
}

// WithHooks sets the lifecycle hooks for the service
func WithHooks(hooks *Hooks) Option {
	return func(s *service) {
		s.hooks = hooks
	}
}

// WithLogger sets the structured logger for the service
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// WithKeyGenerator sets the object key generator used for attachment files
func WithKeyGenerator(gen *KeyGenerator) Option {
	return func(s *service) {
		s.keys = gen
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		blobStores: make(map[string]BlobStore),
		managers:   make(map[string]*TypeManager),
	}

	for _, option := range options {
		option(s)
	}

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.hooks == nil {
		s.hooks = &Hooks{}
	}
	if s.keys == nil {
		s.keys = NewKeyGenerator("")
	}

	return s, nil
}

// Type registration

func (s *service) RegisterType(ctx context.Context, pt PostType) (*TypeManager, error) {
	key := pt.Key()
	plural := pt.PluralKey()
	if key == "" {
		return nil, fmt.Errorf("post type key is required")
	}
	if plural == "" {
		return nil, fmt.Errorf("post type plural key is required")
	}

	s.mu.Lock()
	if _, exists := s.managers[key]; exists {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrTypeAlreadyRegistered, key)
	}
	mgr := &TypeManager{
		svc:    s,
		key:    key,
		plural: plural,
	}
	if o, ok := pt.(CapabilityOverrider); ok {
		mgr.overrides = o.CapabilityOverrides()
	}
	s.managers[key] = mgr
	s.mu.Unlock()

	if err := pt.Register(ctx, mgr); err != nil {
		s.mu.Lock()
		delete(s.managers, key)
		s.mu.Unlock()
		return nil, fmt.Errorf("register type %q: %w", key, err)
	}

	if err := mgr.SetupCapabilities(ctx); err != nil {
		return nil, fmt.Errorf("setup capabilities for type %q: %w", key, err)
	}

	s.logger.InfoContext(ctx, "post type registered", "type", key, "plural", plural)
	return mgr, nil
}

func (s *service) Type(key string) (*TypeManager, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	mgr, exists := s.managers[key]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrTypeNotRegistered, key)
	}
	return mgr, nil
}

func (s *service) Types() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.managers))
	for key := range s.managers {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Attachment operations

func (s *service) UploadAttachment(ctx context.Context, req UploadAttachmentRequest) (*Post, error) {
	mgr, err := s.Type(AttachmentTypeKey)
	if err != nil {
		return nil, err
	}

	backendName := req.Backend
	if backendName == "" {
		backendName = s.defaultBackend
	}
	store, err := s.GetBackend(backendName)
	if err != nil {
		return nil, err
	}

	title := req.Title
	if title == "" {
		title = req.FileName
	}

	id, err := mgr.Create(ctx, CreatePostRequest{
		Title:    title,
		Status:   req.Status,
		AuthorID: req.AuthorID,
		MimeType: req.MimeType,
	})
	if err != nil {
		return nil, err
	}

	objectKey := s.keys.Generate(req.FileName)
	if err := store.UploadWithParams(ctx, req.Reader, UploadParams{ObjectKey: objectKey, MimeType: req.MimeType}); err != nil {
		// Roll the post back so a failed upload leaves nothing behind.
		if derr := mgr.Delete(ctx, id, true); derr != nil {
			s.logger.ErrorContext(ctx, "failed to remove post after upload error", "post_id", id, "error", derr)
		}
		return nil, &StorageError{Backend: backendName, Key: objectKey, Op: "upload", Err: err}
	}

	metadata := map[string]any{
		MetaKeyFileKey:  objectKey,
		MetaKeyFileName: req.FileName,
		MetaKeyMimeType: req.MimeType,
		MetaKeyBackend:  backendName,
	}
	if om, err := store.GetObjectMeta(ctx, objectKey); err == nil {
		metadata[MetaKeyFileSize] = om.Size
	}
	if err := s.repository.SetPostMeta(ctx, &PostMeta{PostID: id, Metadata: metadata}); err != nil {
		return nil, &StoreError{TypeKey: AttachmentTypeKey, PostID: id, Op: "set_meta", Args: metadata, Err: err}
	}

	s.logger.InfoContext(ctx, "attachment uploaded",
		"post_id", id,
		"backend", backendName,
		"object_key", objectKey,
		"file_name", req.FileName,
		"mime_type", req.MimeType)
	return s.repository.GetPost(ctx, id)
}

func (s *service) OpenAttachment(ctx context.Context, id int64) (io.ReadCloser, error) {
	store, key, _, err := s.attachmentObject(ctx, id)
	if err != nil {
		return nil, err
	}
	return store.Download(ctx, key)
}

func (s *service) AttachmentURL(ctx context.Context, id int64) (string, error) {
	store, key, meta, err := s.attachmentObject(ctx, id)
	if err != nil {
		return "", err
	}
	fileName, _ := meta.Metadata[MetaKeyFileName].(string)
	return store.GetDownloadURL(ctx, key, fileName)
}

func (s *service) DeleteAttachment(ctx context.Context, id int64) error {
	mgr, err := s.Type(AttachmentTypeKey)
	if err != nil {
		return err
	}

	store, key, _, err := s.attachmentObject(ctx, id)
	if err != nil {
		return err
	}
	if err := store.Delete(ctx, key); err != nil {
		// The database row still wins: log and keep going.
		s.logger.ErrorContext(ctx, "failed to delete attachment object", "post_id", id, "object_key", key, "error", err)
	}
	return mgr.Delete(ctx, id, true)
}

// attachmentObject resolves an attachment post to its backend, object key,
// and metadata.
func (s *service) attachmentObject(ctx context.Context, id int64) (BlobStore, string, *PostMeta, error) {
	post, err := s.repository.GetPost(ctx, id)
	if err != nil {
		return nil, "", nil, err
	}
	if post.Type != AttachmentTypeKey {
		return nil, "", nil, fmt.Errorf("%w: post %d has type %s", ErrNotAttachment, id, post.Type)
	}

	meta, err := s.repository.GetPostMeta(ctx, id)
	if err != nil {
		return nil, "", nil, err
	}
	key, _ := meta.Metadata[MetaKeyFileKey].(string)
	if key == "" {
		return nil, "", nil, fmt.Errorf("%w: post %d has no stored file", ErrNotAttachment, id)
	}
	backendName, _ := meta.Metadata[MetaKeyBackend].(string)
	if backendName == "" {
		backendName = s.defaultBackend
	}

	store, err := s.GetBackend(backendName)
	if err != nil {
		return nil, "", nil, err
	}
	return store, key, meta, nil
}

// Storage backend operations

func (s *service) RegisterBackend(name string, backend BlobStore) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.blobStores[name] = backend
	if s.defaultBackend == "" {
		s.defaultBackend = name
	}
}

func (s *service) GetBackend(name string) (BlobStore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	backend, exists := s.blobStores[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrStorageBackendNotFound, name)
	}
	return backend, nil
}
