package memory

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tendant/simple-cms/pkg/simplecms"
)

// Repository implements simplecms.Repository, simplecms.TaxonomyRepository,
// and simplecms.CapabilityStore using in-memory storage
type Repository struct {
	mu         sync.RWMutex
	nextPostID int64
	nextTermID int64
	posts      map[int64]*simplecms.Post
	postMeta   map[int64]*simplecms.PostMeta
	terms      map[int64]*simplecms.Term
	postTerms  map[int64]map[string]map[int64]struct{} // post_id -> taxonomy -> term ids
	grants     map[string]map[string]bool              // role -> capability -> allowed
}

// New creates a new in-memory repository
func New() *Repository {
	return &Repository{
		posts:     make(map[int64]*simplecms.Post),
		postMeta:  make(map[int64]*simplecms.PostMeta),
		terms:     make(map[int64]*simplecms.Term),
		postTerms: make(map[int64]map[string]map[int64]struct{}),
		grants:    make(map[string]map[string]bool),
	}
}

// Post operations

func (r *Repository) InsertPost(ctx context.Context, post *simplecms.Post) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextPostID++
	id := r.nextPostID

	// Create a copy to avoid external modifications
	postCopy := *post
	postCopy.ID = id
	r.posts[id] = &postCopy

	return id, nil
}

func (r *Repository) GetPost(ctx context.Context, id int64) (*simplecms.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	post, exists := r.posts[id]
	if !exists {
		return nil, simplecms.ErrPostNotFound
	}

	// Return a copy to prevent external modifications
	postCopy := *post
	return &postCopy, nil
}

func (r *Repository) UpdatePost(ctx context.Context, post *simplecms.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.posts[post.ID]; !exists {
		return simplecms.ErrPostNotFound
	}

	// Create a copy to avoid external modifications
	postCopy := *post
	r.posts[post.ID] = &postCopy

	return nil
}

func (r *Repository) DeletePost(ctx context.Context, id int64, skipTrash bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	post, exists := r.posts[id]
	if !exists {
		return simplecms.ErrPostNotFound
	}

	if skipTrash {
		delete(r.posts, id)
		delete(r.postMeta, id)
		delete(r.postTerms, id)
		return nil
	}

	now := time.Now().UTC()
	post.Status = simplecms.PostStatusTrashed
	post.DeletedAt = &now
	post.UpdatedAt = now
	return nil
}

func (r *Repository) FindPostByTitle(ctx context.Context, typeKey, title string) (*simplecms.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var found *simplecms.Post
	for _, post := range r.posts {
		if post.Type != typeKey || post.Title != title {
			continue
		}
		if post.DeletedAt != nil || post.Status == simplecms.PostStatusTrashed {
			continue
		}
		// Lowest id wins so repeated lookups are stable.
		if found == nil || post.ID < found.ID {
			found = post
		}
	}
	if found == nil {
		return nil, simplecms.ErrPostNotFound
	}

	postCopy := *found
	return &postCopy, nil
}

// statusFilter collapses the Status and Statuses params into a single set
func statusFilter(params simplecms.ListPostsParams) map[simplecms.PostStatus]bool {
	statuses := make(map[simplecms.PostStatus]bool)
	if params.Status != nil {
		statuses[*params.Status] = true
	}
	for _, s := range params.Statuses {
		statuses[s] = true
	}
	return statuses
}

func matchesFilters(post *simplecms.Post, params simplecms.ListPostsParams, statuses map[simplecms.PostStatus]bool) bool {
	if params.Type != "" && post.Type != params.Type {
		return false
	}
	if len(statuses) > 0 {
		if !statuses[post.Status] {
			return false
		}
	} else if post.Status == simplecms.PostStatusTrashed && !params.IncludeTrashed {
		return false
	}
	if params.AuthorID != nil && post.AuthorID != *params.AuthorID {
		return false
	}
	if params.Search != "" {
		needle := strings.ToLower(params.Search)
		if !strings.Contains(strings.ToLower(post.Title), needle) &&
			!strings.Contains(strings.ToLower(post.Body), needle) {
			return false
		}
	}
	if params.CreatedAfter != nil && !post.CreatedAt.After(*params.CreatedAfter) {
		return false
	}
	if params.CreatedBefore != nil && !post.CreatedAt.Before(*params.CreatedBefore) {
		return false
	}
	return true
}

func (r *Repository) ListPosts(ctx context.Context, params simplecms.ListPostsParams) ([]*simplecms.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	statuses := statusFilter(params)

	var result []*simplecms.Post
	for _, post := range r.posts {
		if !matchesFilters(post, params, statuses) {
			continue
		}
		postCopy := *post
		result = append(result, &postCopy)
	}

	// Sort by created_at descending, id as tiebreaker
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	// Apply limit and offset
	if params.Offset != nil && *params.Offset > 0 {
		if *params.Offset >= len(result) {
			return []*simplecms.Post{}, nil
		}
		result = result[*params.Offset:]
	}
	if params.Limit != nil && *params.Limit > 0 && *params.Limit < len(result) {
		result = result[:*params.Limit]
	}

	return result, nil
}

func (r *Repository) CountPosts(ctx context.Context, params simplecms.ListPostsParams) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	statuses := statusFilter(params)

	var count int64
	for _, post := range r.posts {
		if matchesFilters(post, params, statuses) {
			count++
		}
	}
	return count, nil
}

func (r *Repository) PostStatistics(ctx context.Context, params simplecms.ListPostsParams, opts simplecms.StatisticsOptions) (*simplecms.PostStatistics, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &simplecms.PostStatistics{}
	if opts.ByStatus {
		stats.ByStatus = make(map[string]int64)
	}
	if opts.ByType {
		stats.ByType = make(map[string]int64)
	}
	if opts.ByAuthor {
		stats.ByAuthor = make(map[string]int64)
	}

	statuses := statusFilter(params)
	for _, post := range r.posts {
		if !matchesFilters(post, params, statuses) {
			continue
		}
		stats.TotalCount++
		if opts.ByStatus {
			stats.ByStatus[string(post.Status)]++
		}
		if opts.ByType {
			stats.ByType[post.Type]++
		}
		if opts.ByAuthor {
			stats.ByAuthor[strconv.FormatInt(post.AuthorID, 10)]++
		}
		if opts.TimeRange {
			created := post.CreatedAt
			if stats.OldestPost == nil || created.Before(*stats.OldestPost) {
				stats.OldestPost = &created
			}
			if stats.NewestPost == nil || created.After(*stats.NewestPost) {
				stats.NewestPost = &created
			}
		}
	}

	return stats, nil
}

// Post metadata operations

func (r *Repository) SetPostMeta(ctx context.Context, meta *simplecms.PostMeta) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Verify post exists
	if _, exists := r.posts[meta.PostID]; !exists {
		return simplecms.ErrPostNotFound
	}

	// Create a copy to avoid external modifications
	metaCopy := *meta
	metaCopy.Metadata = make(map[string]any, len(meta.Metadata))
	for k, v := range meta.Metadata {
		metaCopy.Metadata[k] = v
	}
	if existing, ok := r.postMeta[meta.PostID]; ok {
		metaCopy.CreatedAt = existing.CreatedAt
	}
	if metaCopy.CreatedAt.IsZero() {
		metaCopy.CreatedAt = time.Now().UTC()
	}
	metaCopy.UpdatedAt = time.Now().UTC()

	r.postMeta[meta.PostID] = &metaCopy

	return nil
}

func (r *Repository) GetPostMeta(ctx context.Context, postID int64) (*simplecms.PostMeta, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	meta, exists := r.postMeta[postID]
	if !exists {
		return nil, fmt.Errorf("post metadata not found for post %d", postID)
	}

	// Return a copy to prevent external modifications
	metaCopy := *meta
	metaCopy.Metadata = make(map[string]any, len(meta.Metadata))
	for k, v := range meta.Metadata {
		metaCopy.Metadata[k] = v
	}
	return &metaCopy, nil
}

// Taxonomy operations

func (r *Repository) CreateTerm(ctx context.Context, term *simplecms.Term) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextTermID++
	id := r.nextTermID

	termCopy := *term
	termCopy.ID = id
	r.terms[id] = &termCopy

	return id, nil
}

func (r *Repository) GetTerm(ctx context.Context, id int64) (*simplecms.Term, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	term, exists := r.terms[id]
	if !exists {
		return nil, simplecms.ErrTermNotFound
	}

	termCopy := *term
	return &termCopy, nil
}

func (r *Repository) TermsForPost(ctx context.Context, postID int64, taxonomy string) ([]*simplecms.Term, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, exists := r.posts[postID]; !exists {
		return nil, simplecms.ErrPostNotFound
	}

	result := []*simplecms.Term{}
	ids, exists := r.postTerms[postID][taxonomy]
	if !exists {
		return result, nil
	}

	for id := range ids {
		if term, ok := r.terms[id]; ok {
			termCopy := *term
			result = append(result, &termCopy)
		}
	}

	// Sort by term id ascending
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})

	return result, nil
}

func (r *Repository) AttachTerms(ctx context.Context, postID int64, taxonomy string, termIDs []int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.posts[postID]; !exists {
		return simplecms.ErrPostNotFound
	}
	for _, id := range termIDs {
		term, exists := r.terms[id]
		if !exists {
			return fmt.Errorf("%w: %d", simplecms.ErrTermNotFound, id)
		}
		if term.Taxonomy != taxonomy {
			return fmt.Errorf("%w: term %d belongs to taxonomy %s", simplecms.ErrTermNotFound, id, term.Taxonomy)
		}
	}

	if r.postTerms[postID] == nil {
		r.postTerms[postID] = make(map[string]map[int64]struct{})
	}
	if r.postTerms[postID][taxonomy] == nil {
		r.postTerms[postID][taxonomy] = make(map[int64]struct{})
	}
	for _, id := range termIDs {
		r.postTerms[postID][taxonomy][id] = struct{}{}
	}

	return nil
}

func (r *Repository) DetachTerms(ctx context.Context, postID int64, taxonomy string, termIDs []int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.posts[postID]; !exists {
		return simplecms.ErrPostNotFound
	}

	ids, exists := r.postTerms[postID][taxonomy]
	if !exists {
		return nil
	}
	for _, id := range termIDs {
		delete(ids, id)
	}

	return nil
}

// Capability operations

func (r *Repository) Grant(ctx context.Context, role, capability string, allowed bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.grants[role] == nil {
		r.grants[role] = make(map[string]bool)
	}
	r.grants[role][capability] = allowed

	return nil
}

func (r *Repository) Allowed(ctx context.Context, role, capability string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.grants[role][capability], nil
}

func (r *Repository) Grants(ctx context.Context, role string) (map[string]bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]bool, len(r.grants[role]))
	for cap, allowed := range r.grants[role] {
		result[cap] = allowed
	}
	return result, nil
}
