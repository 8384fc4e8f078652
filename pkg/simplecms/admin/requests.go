package admin

import (
	"time"

	"github.com/tendant/simple-cms/pkg/simplecms"
)

// ListPostsRequest contains parameters for admin post listing
type ListPostsRequest struct {
	Filters simplecms.ListPostsParams `json:"filters"`
}

// ListPostsResponse contains the paginated list of posts
type ListPostsResponse struct {
	Posts   []*simplecms.Post `json:"posts"`
	Limit   int               `json:"limit"`
	Offset  int               `json:"offset"`
	HasMore bool              `json:"has_more"`
}

// CountRequest contains parameters for counting posts
type CountRequest struct {
	Filters simplecms.ListPostsParams `json:"filters"`
}

// CountResponse contains the count result
type CountResponse struct {
	Count int64 `json:"count"`
}

// StatisticsRequest contains parameters for retrieving post statistics
type StatisticsRequest struct {
	Filters simplecms.ListPostsParams   `json:"filters"`
	Options simplecms.StatisticsOptions `json:"options"`
}

// StatisticsResponse contains the statistics result
type StatisticsResponse struct {
	Statistics simplecms.PostStatistics `json:"statistics"`
	ComputedAt time.Time                `json:"computed_at"`
}

// FilterOption provides functional options for building post filters
type FilterOption func(*simplecms.ListPostsParams)

// NewFilters builds a filter set from the given options
func NewFilters(opts ...FilterOption) simplecms.ListPostsParams {
	params := simplecms.ListPostsParams{}
	for _, opt := range opts {
		opt(&params)
	}
	return params
}

// WithType filters by post type
func WithType(typeKey string) FilterOption {
	return func(p *simplecms.ListPostsParams) {
		p.Type = typeKey
	}
}

// WithStatus filters by status
func WithStatus(status simplecms.PostStatus) FilterOption {
	return func(p *simplecms.ListPostsParams) {
		p.Status = &status
	}
}

// WithStatuses filters by multiple statuses
func WithStatuses(statuses ...simplecms.PostStatus) FilterOption {
	return func(p *simplecms.ListPostsParams) {
		p.Statuses = statuses
	}
}

// WithAuthorID filters by author id
func WithAuthorID(authorID int64) FilterOption {
	return func(p *simplecms.ListPostsParams) {
		p.AuthorID = &authorID
	}
}

// WithSearch filters by a substring match over title and body
func WithSearch(query string) FilterOption {
	return func(p *simplecms.ListPostsParams) {
		p.Search = query
	}
}

// WithCreatedAfter filters by created after time
func WithCreatedAfter(t time.Time) FilterOption {
	return func(p *simplecms.ListPostsParams) {
		p.CreatedAfter = &t
	}
}

// WithCreatedBefore filters by created before time
func WithCreatedBefore(t time.Time) FilterOption {
	return func(p *simplecms.ListPostsParams) {
		p.CreatedBefore = &t
	}
}

// WithPagination sets both limit and offset
func WithPagination(limit, offset int) FilterOption {
	return func(p *simplecms.ListPostsParams) {
		p.Limit = &limit
		p.Offset = &offset
	}
}

// WithTrashed includes trashed posts in results
func WithTrashed() FilterOption {
	return func(p *simplecms.ListPostsParams) {
		p.IncludeTrashed = true
	}
}
