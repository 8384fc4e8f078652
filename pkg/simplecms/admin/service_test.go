package admin_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-cms/pkg/simplecms"
	"github.com/tendant/simple-cms/pkg/simplecms/admin"
	"github.com/tendant/simple-cms/pkg/simplecms/repo/memory"
)

// setupAdminService seeds five posts across two types and three authors.
func setupAdminService(t *testing.T) (admin.AdminService, *memory.Repository) {
	repo := memory.New()
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

	posts := []*simplecms.Post{
		{Type: "post", Title: "Launch Notes", Body: "rollout details", Status: simplecms.PostStatusPublished, AuthorID: 1},
		{Type: "post", Title: "Draft Ideas", Body: "brainstorm", Status: simplecms.PostStatusDraft, AuthorID: 2},
		{Type: "page", Title: "About", Body: "who we are", Status: simplecms.PostStatusPublished, AuthorID: 1},
		{Type: "page", Title: "Careers", Body: "open roles", Status: simplecms.PostStatusPublished, AuthorID: 3},
		{Type: "post", Title: "Roadmap", Body: "next quarter", Status: simplecms.PostStatusPrivate, AuthorID: 2},
	}
	for i, post := range posts {
		post.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		post.UpdatedAt = post.CreatedAt
		_, err := repo.InsertPost(ctx, post)
		require.NoError(t, err)
	}

	return admin.New(repo), repo
}

func TestListAllPosts(t *testing.T) {
	svc, _ := setupAdminService(t)
	ctx := context.Background()

	t.Run("Defaults", func(t *testing.T) {
		resp, err := svc.ListAllPosts(ctx, admin.ListPostsRequest{})
		require.NoError(t, err)

		assert.Len(t, resp.Posts, 5)
		assert.Equal(t, 100, resp.Limit)
		assert.Equal(t, 0, resp.Offset)
		assert.False(t, resp.HasMore)

		// Spans every post type, newest first.
		assert.Equal(t, "Roadmap", resp.Posts[0].Title)
		assert.Equal(t, "Launch Notes", resp.Posts[4].Title)
	})

	t.Run("Filtered", func(t *testing.T) {
		resp, err := svc.ListAllPosts(ctx, admin.ListPostsRequest{
			Filters: admin.NewFilters(admin.WithType("page")),
		})
		require.NoError(t, err)
		assert.Len(t, resp.Posts, 2)
	})

	t.Run("Paginated", func(t *testing.T) {
		firstPage, err := svc.ListAllPosts(ctx, admin.ListPostsRequest{
			Filters: admin.NewFilters(admin.WithPagination(2, 0)),
		})
		require.NoError(t, err)
		assert.Len(t, firstPage.Posts, 2)
		assert.Equal(t, 2, firstPage.Limit)
		assert.Equal(t, 0, firstPage.Offset)
		assert.True(t, firstPage.HasMore)

		lastPage, err := svc.ListAllPosts(ctx, admin.ListPostsRequest{
			Filters: admin.NewFilters(admin.WithPagination(2, 4)),
		})
		require.NoError(t, err)
		assert.Len(t, lastPage.Posts, 1)
		assert.Equal(t, 4, lastPage.Offset)
		assert.False(t, lastPage.HasMore)
	})
}

func TestCountPosts(t *testing.T) {
	svc, _ := setupAdminService(t)
	ctx := context.Background()

	t.Run("All", func(t *testing.T) {
		resp, err := svc.CountPosts(ctx, admin.CountRequest{})
		require.NoError(t, err)
		assert.Equal(t, int64(5), resp.Count)
	})

	t.Run("ByStatus", func(t *testing.T) {
		resp, err := svc.CountPosts(ctx, admin.CountRequest{
			Filters: admin.NewFilters(admin.WithStatus(simplecms.PostStatusPublished)),
		})
		require.NoError(t, err)
		assert.Equal(t, int64(3), resp.Count)
	})

	t.Run("ByAuthor", func(t *testing.T) {
		resp, err := svc.CountPosts(ctx, admin.CountRequest{
			Filters: admin.NewFilters(admin.WithAuthorID(2)),
		})
		require.NoError(t, err)
		assert.Equal(t, int64(2), resp.Count)
	})
}

func TestGetStatistics(t *testing.T) {
	svc, _ := setupAdminService(t)
	ctx := context.Background()

	resp, err := svc.GetStatistics(ctx, admin.StatisticsRequest{
		Options: simplecms.DefaultStatisticsOptions(),
	})
	require.NoError(t, err)

	stats := resp.Statistics
	assert.Equal(t, int64(5), stats.TotalCount)
	assert.Equal(t, int64(3), stats.ByStatus["published"])
	assert.Equal(t, int64(1), stats.ByStatus["draft"])
	assert.Equal(t, int64(1), stats.ByStatus["private"])
	assert.Equal(t, int64(3), stats.ByType["post"])
	assert.Equal(t, int64(2), stats.ByType["page"])
	assert.Equal(t, int64(2), stats.ByAuthor["1"])
	assert.Equal(t, int64(2), stats.ByAuthor["2"])
	assert.Equal(t, int64(1), stats.ByAuthor["3"])
	require.NotNil(t, stats.OldestPost)
	require.NotNil(t, stats.NewestPost)

	assert.WithinDuration(t, time.Now(), resp.ComputedAt, 5*time.Second)
}

func TestNewFilters(t *testing.T) {
	after := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	before := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)

	params := admin.NewFilters(
		admin.WithType("post"),
		admin.WithStatuses(simplecms.PostStatusDraft, simplecms.PostStatusPending),
		admin.WithAuthorID(7),
		admin.WithSearch("deadline"),
		admin.WithCreatedAfter(after),
		admin.WithCreatedBefore(before),
		admin.WithPagination(25, 50),
		admin.WithTrashed(),
	)

	assert.Equal(t, "post", params.Type)
	assert.Equal(t, []simplecms.PostStatus{simplecms.PostStatusDraft, simplecms.PostStatusPending}, params.Statuses)
	require.NotNil(t, params.AuthorID)
	assert.Equal(t, int64(7), *params.AuthorID)
	assert.Equal(t, "deadline", params.Search)
	require.NotNil(t, params.CreatedAfter)
	assert.True(t, params.CreatedAfter.Equal(after))
	require.NotNil(t, params.CreatedBefore)
	assert.True(t, params.CreatedBefore.Equal(before))
	require.NotNil(t, params.Limit)
	assert.Equal(t, 25, *params.Limit)
	require.NotNil(t, params.Offset)
	assert.Equal(t, 50, *params.Offset)
	assert.True(t, params.IncludeTrashed)
}
