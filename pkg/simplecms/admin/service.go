package admin

import (
	"context"

	"github.com/tendant/simple-cms/pkg/simplecms"
)

// AdminService defines the interface for administrative post operations.
// Unlike TypeManager operations these are not scoped to a registered post
// type and perform no capability checks, so they are intended for
// operational, monitoring, and bulk inspection use cases.
//
// IMPORTANT: Endpoints or tools built on this service must be protected
// with their own authentication layer.
type AdminService interface {
	// ListAllPosts returns a paginated list of posts with optional
	// filtering. Unlike TypeManager listing this spans every post type.
	ListAllPosts(ctx context.Context, req ListPostsRequest) (*ListPostsResponse, error)

	// CountPosts returns the count of posts matching the given filters.
	CountPosts(ctx context.Context, req CountRequest) (*CountResponse, error)

	// GetStatistics returns aggregated statistics about posts, broken
	// down by status, type, and author.
	GetStatistics(ctx context.Context, req StatisticsRequest) (*StatisticsResponse, error)
}

// New creates a new AdminService instance that uses the provided repository.
func New(repo simplecms.Repository) AdminService {
	return &adminService{
		repo: repo,
	}
}
