package simplecms

import "fmt"

// canTransition checks whether a post may move from one status to another.
// Returns true if the transition is allowed, false with an error otherwise.
func canTransition(from, to PostStatus) (bool, error) {
	if !to.IsValid() {
		return false, fmt.Errorf("%w: %s", ErrInvalidPostStatus, to)
	}
	switch from {
	case PostStatusTrashed:
		// A trashed post can only be restored. Restoring lands in draft.
		if to == PostStatusDraft {
			return true, nil
		}
		return false, fmt.Errorf("%w: restore it before changing status to %s", ErrPostTrashed, to)
	case PostStatusDraft, PostStatusPending, PostStatusPublished, PostStatusPrivate:
		return true, nil
	default:
		return false, fmt.Errorf("%w: unknown status %s", ErrInvalidPostStatus, from)
	}
}

// canDelete checks whether a post in the given status can be deleted.
// skipTrash=false trashes the post; trashing an already-trashed post is
// rejected. skipTrash=true removes the post outright from any status.
func canDelete(status PostStatus, skipTrash bool) (bool, error) {
	if skipTrash {
		return true, nil
	}
	if status == PostStatusTrashed {
		return false, fmt.Errorf("%w: already in trash", ErrPostTrashed)
	}
	return true, nil
}
