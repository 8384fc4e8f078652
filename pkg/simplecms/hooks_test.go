package simplecms_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-cms/pkg/simplecms"
	"github.com/tendant/simple-cms/pkg/simplecms/repo/memory"
)

func setupHookedService(t *testing.T, hooks *simplecms.Hooks) *simplecms.TypeManager {
	svc, err := simplecms.New(
		simplecms.WithRepository(memory.New()),
		simplecms.WithHooks(hooks),
	)
	require.NoError(t, err)

	mgr, err := svc.RegisterType(context.Background(), simplecms.BaseType{TypeKey: "article"})
	require.NoError(t, err)
	return mgr
}

func TestBeforePostCreateHooks(t *testing.T) {
	ctx := context.Background()

	t.Run("MutatesRequest", func(t *testing.T) {
		hooks := &simplecms.Hooks{
			BeforePostCreate: []simplecms.BeforePostCreateHook{
				func(hctx *simplecms.HookContext, typeKey string, req *simplecms.CreatePostRequest) error {
					req.Title = strings.ToUpper(req.Title)
					return nil
				},
			},
		}
		mgr := setupHookedService(t, hooks)

		id, err := mgr.Create(ctx, simplecms.CreatePostRequest{Title: "quiet title"})
		require.NoError(t, err)

		post, err := mgr.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "QUIET TITLE", post.Title)
	})

	t.Run("AbortsOnError", func(t *testing.T) {
		hooks := &simplecms.Hooks{
			BeforePostCreate: []simplecms.BeforePostCreateHook{
				func(hctx *simplecms.HookContext, typeKey string, req *simplecms.CreatePostRequest) error {
					return errors.New("rejected by policy")
				},
			},
		}
		mgr := setupHookedService(t, hooks)

		_, err := mgr.Create(ctx, simplecms.CreatePostRequest{Title: "Never Saved"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rejected by policy")

		posts, err := mgr.List(ctx, simplecms.ListPostsParams{IncludeTrashed: true})
		require.NoError(t, err)
		assert.Empty(t, posts)
	})

	t.Run("StopChainSkipsRemaining", func(t *testing.T) {
		var secondCalled bool
		hooks := &simplecms.Hooks{
			BeforePostCreate: []simplecms.BeforePostCreateHook{
				func(hctx *simplecms.HookContext, typeKey string, req *simplecms.CreatePostRequest) error {
					hctx.StopChain = true
					return nil
				},
				func(hctx *simplecms.HookContext, typeKey string, req *simplecms.CreatePostRequest) error {
					secondCalled = true
					return nil
				},
			},
		}
		mgr := setupHookedService(t, hooks)

		_, err := mgr.Create(ctx, simplecms.CreatePostRequest{Title: "Chained"})
		require.NoError(t, err)
		assert.False(t, secondCalled)
	})

	t.Run("ValidationHook", func(t *testing.T) {
		hooks := &simplecms.Hooks{
			BeforePostCreate: []simplecms.BeforePostCreateHook{
				simplecms.ValidationHook(func(req *simplecms.CreatePostRequest) error {
					if len(req.Title) > 20 {
						return errors.New("title too long")
					}
					return nil
				}),
			},
		}
		mgr := setupHookedService(t, hooks)

		_, err := mgr.Create(ctx, simplecms.CreatePostRequest{Title: "Short Enough"})
		assert.NoError(t, err)

		_, err = mgr.Create(ctx, simplecms.CreatePostRequest{Title: "This Title Goes On And On And On"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "title too long")
	})
}

func TestAfterPostCreateHooks(t *testing.T) {
	ctx := context.Background()

	var created *simplecms.Post
	hooks := &simplecms.Hooks{
		AfterPostCreate: []simplecms.AfterPostCreateHook{
			func(hctx *simplecms.HookContext, post *simplecms.Post) error {
				created = post
				return nil
			},
		},
	}
	mgr := setupHookedService(t, hooks)

	id, err := mgr.Create(ctx, simplecms.CreatePostRequest{Title: "Observed"})
	require.NoError(t, err)

	require.NotNil(t, created)
	assert.Equal(t, id, created.ID)
	assert.Equal(t, "Observed", created.Title)
}

func TestUpdateHooks(t *testing.T) {
	ctx := context.Background()

	var beforeID int64
	var afterTitle string
	hooks := &simplecms.Hooks{
		BeforePostUpdate: []simplecms.BeforePostUpdateHook{
			func(hctx *simplecms.HookContext, postID int64, req *simplecms.UpdatePostRequest) error {
				beforeID = postID
				return nil
			},
		},
		AfterPostUpdate: []simplecms.AfterPostUpdateHook{
			func(hctx *simplecms.HookContext, post *simplecms.Post) error {
				afterTitle = post.Title
				return nil
			},
		},
	}
	mgr := setupHookedService(t, hooks)

	id, err := mgr.Create(ctx, simplecms.CreatePostRequest{Title: "Before"})
	require.NoError(t, err)

	title := "After"
	_, err = mgr.Update(ctx, id, simplecms.UpdatePostRequest{Title: &title})
	require.NoError(t, err)

	assert.Equal(t, id, beforeID)
	assert.Equal(t, "After", afterTitle)
}

func TestDeleteHooks(t *testing.T) {
	ctx := context.Background()

	var beforeSkip, afterSkip *bool
	hooks := &simplecms.Hooks{
		BeforePostDelete: []simplecms.BeforePostDeleteHook{
			func(hctx *simplecms.HookContext, postID int64, skipTrash bool) error {
				beforeSkip = &skipTrash
				return nil
			},
		},
		AfterPostDelete: []simplecms.AfterPostDeleteHook{
			func(hctx *simplecms.HookContext, postID int64, skipTrash bool) error {
				afterSkip = &skipTrash
				return nil
			},
		},
	}
	mgr := setupHookedService(t, hooks)

	id, err := mgr.Create(ctx, simplecms.CreatePostRequest{Title: "Doomed"})
	require.NoError(t, err)
	require.NoError(t, mgr.Delete(ctx, id, false))

	require.NotNil(t, beforeSkip)
	require.NotNil(t, afterSkip)
	assert.False(t, *beforeSkip)
	assert.False(t, *afterSkip)
}

func TestOnStatusChangeHooks(t *testing.T) {
	ctx := context.Background()

	type change struct {
		postID   int64
		from, to simplecms.PostStatus
	}

	var changes []change
	hooks := &simplecms.Hooks{
		OnStatusChange: []simplecms.StatusChangeHook{
			func(hctx *simplecms.HookContext, postID int64, oldStatus, newStatus simplecms.PostStatus) error {
				changes = append(changes, change{postID, oldStatus, newStatus})
				return nil
			},
		},
	}
	mgr := setupHookedService(t, hooks)

	id, err := mgr.Create(ctx, simplecms.CreatePostRequest{Title: "Tracked", Status: simplecms.PostStatusDraft})
	require.NoError(t, err)

	status := simplecms.PostStatusPublished
	_, err = mgr.Update(ctx, id, simplecms.UpdatePostRequest{Status: &status})
	require.NoError(t, err)

	require.NoError(t, mgr.Delete(ctx, id, false))

	require.Len(t, changes, 2)
	assert.Equal(t, change{id, simplecms.PostStatusDraft, simplecms.PostStatusPublished}, changes[0])
	assert.Equal(t, change{id, simplecms.PostStatusPublished, simplecms.PostStatusTrashed}, changes[1])
}

func TestOnErrorHooks(t *testing.T) {
	ctx := context.Background()

	var operation string
	var hookErr error
	hooks := &simplecms.Hooks{
		OnError: []simplecms.ErrorHook{
			func(hctx *simplecms.HookContext, op string, err error) {
				operation = op
				hookErr = err
			},
		},
	}
	mgr := setupHookedService(t, hooks)

	_, err := mgr.Create(ctx, simplecms.CreatePostRequest{})
	require.Error(t, err)

	assert.Equal(t, "create", operation)
	assert.ErrorIs(t, hookErr, simplecms.ErrTitleRequired)
}
