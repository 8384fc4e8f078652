package simplecms

import "context"

// Hook system allows extending post handling without modifying core code.
// Hooks are called at specific points in the post lifecycle.

// Hooks defines all available lifecycle hooks
type Hooks struct {
	// Post lifecycle hooks
	BeforePostCreate []BeforePostCreateHook
	AfterPostCreate  []AfterPostCreateHook
	BeforePostUpdate []BeforePostUpdateHook
	AfterPostUpdate  []AfterPostUpdateHook
	BeforePostDelete []BeforePostDeleteHook
	AfterPostDelete  []AfterPostDeleteHook

	// Status change hooks
	OnStatusChange []StatusChangeHook

	// Error hooks
	OnError []ErrorHook
}

// HookContext carries information through the hook chain
type HookContext struct {
	Context   context.Context
	Metadata  map[string]any // Custom metadata passed between hooks
	StopChain bool           // Set to true to stop processing remaining hooks
}

// NewHookContext creates a new hook context
func NewHookContext(ctx context.Context) *HookContext {
	return &HookContext{
		Context:  ctx,
		Metadata: make(map[string]any),
	}
}

// Post Lifecycle Hooks

// BeforePostCreateHook is called before a post is created. The hook may
// mutate the request; returning an error aborts the operation.
type BeforePostCreateHook func(hctx *HookContext, typeKey string, req *CreatePostRequest) error

// AfterPostCreateHook is called after a post is created
type AfterPostCreateHook func(hctx *HookContext, post *Post) error

// BeforePostUpdateHook is called before a post is updated. The hook may
// mutate the request; returning an error aborts the operation.
type BeforePostUpdateHook func(hctx *HookContext, postID int64, req *UpdatePostRequest) error

// AfterPostUpdateHook is called after a post is updated
type AfterPostUpdateHook func(hctx *HookContext, post *Post) error

// BeforePostDeleteHook is called before a post is trashed or deleted
type BeforePostDeleteHook func(hctx *HookContext, postID int64, skipTrash bool) error

// AfterPostDeleteHook is called after a post is trashed or deleted
type AfterPostDeleteHook func(hctx *HookContext, postID int64, skipTrash bool) error

// Status Change Hooks

// StatusChangeHook is called when a post's status changes
type StatusChangeHook func(hctx *HookContext, postID int64, oldStatus, newStatus PostStatus) error

// Error Hooks

// ErrorHook is called when an operation fails
type ErrorHook func(hctx *HookContext, operation string, err error)

// Hook execution helpers

// executeBeforePostCreate runs all BeforePostCreate hooks
func (h *Hooks) executeBeforePostCreate(ctx context.Context, typeKey string, req *CreatePostRequest) error {
	if len(h.BeforePostCreate) == 0 {
		return nil
	}

	hctx := NewHookContext(ctx)
	for _, hook := range h.BeforePostCreate {
		if err := hook(hctx, typeKey, req); err != nil {
			return err
		}
		if hctx.StopChain {
			break
		}
	}
	return nil
}

// executeAfterPostCreate runs all AfterPostCreate hooks
func (h *Hooks) executeAfterPostCreate(ctx context.Context, post *Post) error {
	if len(h.AfterPostCreate) == 0 {
		return nil
	}

	hctx := NewHookContext(ctx)
	for _, hook := range h.AfterPostCreate {
		if err := hook(hctx, post); err != nil {
			return err
		}
		if hctx.StopChain {
			break
		}
	}
	return nil
}

// executeBeforePostUpdate runs all BeforePostUpdate hooks
func (h *Hooks) executeBeforePostUpdate(ctx context.Context, postID int64, req *UpdatePostRequest) error {
	if len(h.BeforePostUpdate) == 0 {
		return nil
	}

	hctx := NewHookContext(ctx)
	for _, hook := range h.BeforePostUpdate {
		if err := hook(hctx, postID, req); err != nil {
			return err
		}
		if hctx.StopChain {
			break
		}
	}
	return nil
}

// executeAfterPostUpdate runs all AfterPostUpdate hooks
func (h *Hooks) executeAfterPostUpdate(ctx context.Context, post *Post) error {
	if len(h.AfterPostUpdate) == 0 {
		return nil
	}

	hctx := NewHookContext(ctx)
	for _, hook := range h.AfterPostUpdate {
		if err := hook(hctx, post); err != nil {
			return err
		}
		if hctx.StopChain {
			break
		}
	}
	return nil
}

// executeBeforePostDelete runs all BeforePostDelete hooks
func (h *Hooks) executeBeforePostDelete(ctx context.Context, postID int64, skipTrash bool) error {
	if len(h.BeforePostDelete) == 0 {
		return nil
	}

	hctx := NewHookContext(ctx)
	for _, hook := range h.BeforePostDelete {
		if err := hook(hctx, postID, skipTrash); err != nil {
			return err
		}
		if hctx.StopChain {
			break
		}
	}
	return nil
}

// executeAfterPostDelete runs all AfterPostDelete hooks
func (h *Hooks) executeAfterPostDelete(ctx context.Context, postID int64, skipTrash bool) error {
	if len(h.AfterPostDelete) == 0 {
		return nil
	}

	hctx := NewHookContext(ctx)
	for _, hook := range h.AfterPostDelete {
		if err := hook(hctx, postID, skipTrash); err != nil {
			return err
		}
		if hctx.StopChain {
			break
		}
	}
	return nil
}

// executeOnStatusChange runs all OnStatusChange hooks
func (h *Hooks) executeOnStatusChange(ctx context.Context, postID int64, oldStatus, newStatus PostStatus) error {
	if len(h.OnStatusChange) == 0 {
		return nil
	}

	hctx := NewHookContext(ctx)
	for _, hook := range h.OnStatusChange {
		if err := hook(hctx, postID, oldStatus, newStatus); err != nil {
			return err
		}
		if hctx.StopChain {
			break
		}
	}
	return nil
}

// executeOnError runs all OnError hooks
func (h *Hooks) executeOnError(ctx context.Context, operation string, err error) {
	if len(h.OnError) == 0 {
		return
	}

	hctx := NewHookContext(ctx)
	for _, hook := range h.OnError {
		hook(hctx, operation, err)
		if hctx.StopChain {
			break
		}
	}
}

// Common hook implementations

// ValidationHook adds custom validation before post creation
func ValidationHook(validator func(*CreatePostRequest) error) BeforePostCreateHook {
	return func(hctx *HookContext, typeKey string, req *CreatePostRequest) error {
		return validator(req)
	}
}
