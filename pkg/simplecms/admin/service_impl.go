package admin

import (
	"context"
	"time"

	"github.com/tendant/simple-cms/pkg/simplecms"
)

// adminService implements the AdminService interface
type adminService struct {
	repo simplecms.Repository
}

// Ensure adminService implements AdminService
var _ AdminService = (*adminService)(nil)

// ListAllPosts returns a paginated list of posts with optional filtering
func (s *adminService) ListAllPosts(ctx context.Context, req ListPostsRequest) (*ListPostsResponse, error) {
	posts, err := s.repo.ListPosts(ctx, req.Filters)
	if err != nil {
		return nil, err
	}

	limit := 100 // default
	if req.Filters.Limit != nil {
		limit = *req.Filters.Limit
	}
	offset := 0
	if req.Filters.Offset != nil {
		offset = *req.Filters.Offset
	}

	// A full page suggests there are more results behind it.
	hasMore := len(posts) == limit

	return &ListPostsResponse{
		Posts:   posts,
		Limit:   limit,
		Offset:  offset,
		HasMore: hasMore,
	}, nil
}

// CountPosts returns the count of posts matching the given filters
func (s *adminService) CountPosts(ctx context.Context, req CountRequest) (*CountResponse, error) {
	count, err := s.repo.CountPosts(ctx, req.Filters)
	if err != nil {
		return nil, err
	}

	return &CountResponse{Count: count}, nil
}

// GetStatistics returns aggregated statistics about posts
func (s *adminService) GetStatistics(ctx context.Context, req StatisticsRequest) (*StatisticsResponse, error) {
	stats, err := s.repo.PostStatistics(ctx, req.Filters, req.Options)
	if err != nil {
		return nil, err
	}

	return &StatisticsResponse{
		Statistics: *stats,
		ComputedAt: time.Now(),
	}, nil
}
