package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-cms/pkg/simplecms"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements simplecms.Repository, simplecms.TaxonomyRepository,
// and simplecms.CapabilityStore using PostgreSQL
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL repository
func New(db DBTX) *Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

// Error handling helper
func (r *Repository) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			if strings.Contains(pgErr.ConstraintName, "terms") {
				return fmt.Errorf("term already exists")
			}
			return fmt.Errorf("duplicate entry")
		case "23503": // foreign_key_violation
			if strings.Contains(pgErr.ConstraintName, "post_id") {
				return simplecms.ErrPostNotFound
			}
			if strings.Contains(pgErr.ConstraintName, "term_id") {
				return simplecms.ErrTermNotFound
			}
			return fmt.Errorf("referenced record not found")
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("record not found")
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}

// Post operations

func (r *Repository) InsertPost(ctx context.Context, post *simplecms.Post) (int64, error) {
	query := `
		INSERT INTO posts (
			type, title, slug, body, excerpt, status,
			author_id, mime_type, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`

	var id int64
	err := r.db.QueryRow(ctx, query,
		post.Type, post.Title, post.Slug, post.Body, post.Excerpt,
		post.Status, post.AuthorID, post.MimeType, post.CreatedAt, post.UpdatedAt).Scan(&id)

	if err != nil {
		return 0, r.handlePostgresError("insert post", err)
	}

	post.ID = id
	return id, nil
}

func (r *Repository) GetPost(ctx context.Context, id int64) (*simplecms.Post, error) {
	query := `
		SELECT id, type, title, slug, body, excerpt, status,
		       author_id, mime_type, created_at, updated_at, deleted_at
		FROM posts WHERE id = $1`

	var post simplecms.Post
	err := r.db.QueryRow(ctx, query, id).Scan(
		&post.ID, &post.Type, &post.Title, &post.Slug, &post.Body,
		&post.Excerpt, &post.Status, &post.AuthorID, &post.MimeType,
		&post.CreatedAt, &post.UpdatedAt, &post.DeletedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, simplecms.ErrPostNotFound
		}
		return nil, r.handlePostgresError("get post", err)
	}

	return &post, nil
}

func (r *Repository) UpdatePost(ctx context.Context, post *simplecms.Post) error {
	query := `
		UPDATE posts SET
			type = $2, title = $3, slug = $4, body = $5, excerpt = $6,
			status = $7, author_id = $8, mime_type = $9,
			updated_at = $10, deleted_at = $11
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query,
		post.ID, post.Type, post.Title, post.Slug, post.Body, post.Excerpt,
		post.Status, post.AuthorID, post.MimeType, post.UpdatedAt, post.DeletedAt)

	if err != nil {
		return r.handlePostgresError("update post", err)
	}
	if tag.RowsAffected() == 0 {
		return simplecms.ErrPostNotFound
	}

	return nil
}

func (r *Repository) DeletePost(ctx context.Context, id int64, skipTrash bool) error {
	if skipTrash {
		// Hard delete: post_meta and term_relationships rows cascade.
		tag, err := r.db.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
		if err != nil {
			return r.handlePostgresError("delete post", err)
		}
		if tag.RowsAffected() == 0 {
			return simplecms.ErrPostNotFound
		}
		return nil
	}

	query := `
		UPDATE posts SET status = $2, deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id, simplecms.PostStatusTrashed)
	if err != nil {
		return r.handlePostgresError("trash post", err)
	}
	if tag.RowsAffected() == 0 {
		return simplecms.ErrPostNotFound
	}

	return nil
}

func (r *Repository) FindPostByTitle(ctx context.Context, typeKey, title string) (*simplecms.Post, error) {
	query := `
		SELECT id, type, title, slug, body, excerpt, status,
		       author_id, mime_type, created_at, updated_at, deleted_at
		FROM posts
		WHERE type = $1 AND title = $2 AND status <> $3 AND deleted_at IS NULL
		ORDER BY id
		LIMIT 1`

	var post simplecms.Post
	err := r.db.QueryRow(ctx, query, typeKey, title, simplecms.PostStatusTrashed).Scan(
		&post.ID, &post.Type, &post.Title, &post.Slug, &post.Body,
		&post.Excerpt, &post.Status, &post.AuthorID, &post.MimeType,
		&post.CreatedAt, &post.UpdatedAt, &post.DeletedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, simplecms.ErrPostNotFound
		}
		return nil, r.handlePostgresError("find post by title", err)
	}

	return &post, nil
}

// filterClauses renders the WHERE conditions shared by ListPosts,
// CountPosts, and PostStatistics. The returned clause is empty or starts
// with " AND".
func filterClauses(params simplecms.ListPostsParams) (string, []interface{}) {
	clause := strings.Builder{}
	args := []interface{}{}
	argIdx := 1
	addArg := func(fragment string, value interface{}) {
		clause.WriteString(fmt.Sprintf(fragment, argIdx))
		args = append(args, value)
		argIdx++
	}

	if params.Type != "" {
		addArg(" AND type = $%d", params.Type)
	}

	statuses := []simplecms.PostStatus{}
	if params.Status != nil {
		statuses = append(statuses, *params.Status)
	}
	statuses = append(statuses, params.Statuses...)
	if len(statuses) > 0 {
		addArg(" AND status = ANY($%d)", statuses)
	} else if !params.IncludeTrashed {
		addArg(" AND status <> $%d", simplecms.PostStatusTrashed)
	}

	if params.AuthorID != nil {
		addArg(" AND author_id = $%d", *params.AuthorID)
	}
	if params.Search != "" {
		addArg(" AND (title ILIKE $%d", "%"+params.Search+"%")
		addArg(" OR body ILIKE $%d)", "%"+params.Search+"%")
	}
	if params.CreatedAfter != nil {
		addArg(" AND created_at > $%d", *params.CreatedAfter)
	}
	if params.CreatedBefore != nil {
		addArg(" AND created_at < $%d", *params.CreatedBefore)
	}

	return clause.String(), args
}

func (r *Repository) ListPosts(ctx context.Context, params simplecms.ListPostsParams) ([]*simplecms.Post, error) {
	where, args := filterClauses(params)

	query := strings.Builder{}
	query.WriteString(`
		SELECT id, type, title, slug, body, excerpt, status,
		       author_id, mime_type, created_at, updated_at, deleted_at
		FROM posts WHERE 1=1`)
	query.WriteString(where)
	query.WriteString(" ORDER BY created_at DESC, id DESC")

	argIdx := len(args) + 1
	if params.Limit != nil && *params.Limit > 0 {
		query.WriteString(fmt.Sprintf(" LIMIT $%d", argIdx))
		args = append(args, *params.Limit)
		argIdx++
	}
	if params.Offset != nil && *params.Offset > 0 {
		query.WriteString(fmt.Sprintf(" OFFSET $%d", argIdx))
		args = append(args, *params.Offset)
	}

	rows, err := r.db.Query(ctx, query.String(), args...)
	if err != nil {
		return nil, r.handlePostgresError("list posts", err)
	}
	defer rows.Close()

	var posts []*simplecms.Post
	for rows.Next() {
		var post simplecms.Post
		if err := rows.Scan(
			&post.ID, &post.Type, &post.Title, &post.Slug, &post.Body,
			&post.Excerpt, &post.Status, &post.AuthorID, &post.MimeType,
			&post.CreatedAt, &post.UpdatedAt, &post.DeletedAt); err != nil {
			return nil, err
		}
		posts = append(posts, &post)
	}

	return posts, rows.Err()
}

func (r *Repository) CountPosts(ctx context.Context, params simplecms.ListPostsParams) (int64, error) {
	where, args := filterClauses(params)

	var count int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM posts WHERE 1=1`+where, args...).Scan(&count)
	if err != nil {
		return 0, r.handlePostgresError("count posts", err)
	}

	return count, nil
}

// groupCount runs a GROUP BY aggregation over the filtered posts. The
// column is cast to text so bigint keys come back as decimal strings.
func (r *Repository) groupCount(ctx context.Context, column, where string, args []interface{}) (map[string]int64, error) {
	query := fmt.Sprintf(
		"SELECT %s::text, COUNT(*) FROM posts WHERE 1=1%s GROUP BY %s",
		column, where, column)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, r.handlePostgresError("post statistics", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var key string
		var count int64
		if err := rows.Scan(&key, &count); err != nil {
			return nil, err
		}
		counts[key] = count
	}

	return counts, rows.Err()
}

func (r *Repository) PostStatistics(ctx context.Context, params simplecms.ListPostsParams, opts simplecms.StatisticsOptions) (*simplecms.PostStatistics, error) {
	where, args := filterClauses(params)

	total, err := r.CountPosts(ctx, params)
	if err != nil {
		return nil, err
	}
	stats := &simplecms.PostStatistics{TotalCount: total}

	if opts.ByStatus {
		if stats.ByStatus, err = r.groupCount(ctx, "status", where, args); err != nil {
			return nil, err
		}
	}
	if opts.ByType {
		if stats.ByType, err = r.groupCount(ctx, "type", where, args); err != nil {
			return nil, err
		}
	}
	if opts.ByAuthor {
		if stats.ByAuthor, err = r.groupCount(ctx, "author_id", where, args); err != nil {
			return nil, err
		}
	}
	if opts.TimeRange {
		// MIN/MAX over zero rows yields a single NULL row, which the
		// pointer targets absorb.
		query := `SELECT MIN(created_at), MAX(created_at) FROM posts WHERE 1=1` + where
		if err := r.db.QueryRow(ctx, query, args...).Scan(&stats.OldestPost, &stats.NewestPost); err != nil {
			return nil, r.handlePostgresError("post statistics", err)
		}
	}

	return stats, nil
}

// Post metadata operations

func (r *Repository) SetPostMeta(ctx context.Context, meta *simplecms.PostMeta) error {
	query := `
		INSERT INTO post_meta (post_id, metadata, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		ON CONFLICT (post_id) DO UPDATE SET
			metadata = EXCLUDED.metadata,
			updated_at = NOW()`

	_, err := r.db.Exec(ctx, query, meta.PostID, meta.Metadata)
	if err != nil {
		return r.handlePostgresError("set post meta", err)
	}

	return nil
}

func (r *Repository) GetPostMeta(ctx context.Context, postID int64) (*simplecms.PostMeta, error) {
	query := `
		SELECT post_id, metadata, created_at, updated_at
		FROM post_meta WHERE post_id = $1`

	var meta simplecms.PostMeta
	err := r.db.QueryRow(ctx, query, postID).Scan(
		&meta.PostID, &meta.Metadata, &meta.CreatedAt, &meta.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("post metadata not found for post %d", postID)
		}
		return nil, r.handlePostgresError("get post meta", err)
	}

	return &meta, nil
}

// Taxonomy operations

func (r *Repository) CreateTerm(ctx context.Context, term *simplecms.Term) (int64, error) {
	query := `
		INSERT INTO terms (taxonomy, name, slug)
		VALUES ($1, $2, $3)
		RETURNING id`

	var id int64
	err := r.db.QueryRow(ctx, query, term.Taxonomy, term.Name, term.Slug).Scan(&id)
	if err != nil {
		return 0, r.handlePostgresError("create term", err)
	}

	term.ID = id
	return id, nil
}

func (r *Repository) GetTerm(ctx context.Context, id int64) (*simplecms.Term, error) {
	query := `SELECT id, taxonomy, name, slug FROM terms WHERE id = $1`

	var term simplecms.Term
	err := r.db.QueryRow(ctx, query, id).Scan(&term.ID, &term.Taxonomy, &term.Name, &term.Slug)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, simplecms.ErrTermNotFound
		}
		return nil, r.handlePostgresError("get term", err)
	}

	return &term, nil
}

func (r *Repository) TermsForPost(ctx context.Context, postID int64, taxonomy string) ([]*simplecms.Term, error) {
	query := `
		SELECT t.id, t.taxonomy, t.name, t.slug
		FROM terms t
		JOIN term_relationships tr ON tr.term_id = t.id
		WHERE tr.post_id = $1 AND t.taxonomy = $2
		ORDER BY t.id`

	rows, err := r.db.Query(ctx, query, postID, taxonomy)
	if err != nil {
		return nil, r.handlePostgresError("terms for post", err)
	}
	defer rows.Close()

	terms := []*simplecms.Term{}
	for rows.Next() {
		var term simplecms.Term
		if err := rows.Scan(&term.ID, &term.Taxonomy, &term.Name, &term.Slug); err != nil {
			return nil, err
		}
		terms = append(terms, &term)
	}

	return terms, rows.Err()
}

func (r *Repository) AttachTerms(ctx context.Context, postID int64, taxonomy string, termIDs []int64) error {
	if len(termIDs) == 0 {
		return nil
	}

	// All terms must exist under the taxonomy before any link is written.
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM terms WHERE id = ANY($1) AND taxonomy = $2`,
		termIDs, taxonomy).Scan(&count)
	if err != nil {
		return r.handlePostgresError("attach terms", err)
	}
	if count != len(termIDs) {
		return simplecms.ErrTermNotFound
	}

	query := `
		INSERT INTO term_relationships (post_id, term_id)
		SELECT $1, id FROM terms WHERE id = ANY($2)
		ON CONFLICT DO NOTHING`

	if _, err := r.db.Exec(ctx, query, postID, termIDs); err != nil {
		return r.handlePostgresError("attach terms", err)
	}

	return nil
}

func (r *Repository) DetachTerms(ctx context.Context, postID int64, taxonomy string, termIDs []int64) error {
	if len(termIDs) == 0 {
		return nil
	}

	query := `
		DELETE FROM term_relationships
		WHERE post_id = $1
		  AND term_id = ANY($2)
		  AND term_id IN (SELECT id FROM terms WHERE taxonomy = $3)`

	if _, err := r.db.Exec(ctx, query, postID, termIDs, taxonomy); err != nil {
		return r.handlePostgresError("detach terms", err)
	}

	return nil
}

// Capability operations

func (r *Repository) Grant(ctx context.Context, role, capability string, allowed bool) error {
	query := `
		INSERT INTO role_capabilities (role, capability, allowed, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (role, capability) DO UPDATE SET
			allowed = EXCLUDED.allowed,
			updated_at = NOW()`

	if _, err := r.db.Exec(ctx, query, role, capability, allowed); err != nil {
		return r.handlePostgresError("grant capability", err)
	}

	return nil
}

func (r *Repository) Allowed(ctx context.Context, role, capability string) (bool, error) {
	query := `SELECT allowed FROM role_capabilities WHERE role = $1 AND capability = $2`

	var allowed bool
	err := r.db.QueryRow(ctx, query, role, capability).Scan(&allowed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, r.handlePostgresError("capability allowed", err)
	}

	return allowed, nil
}

func (r *Repository) Grants(ctx context.Context, role string) (map[string]bool, error) {
	query := `SELECT capability, allowed FROM role_capabilities WHERE role = $1`

	rows, err := r.db.Query(ctx, query, role)
	if err != nil {
		return nil, r.handlePostgresError("role grants", err)
	}
	defer rows.Close()

	grants := make(map[string]bool)
	for rows.Next() {
		var capability string
		var allowed bool
		if err := rows.Scan(&capability, &allowed); err != nil {
			return nil, err
		}
		grants[capability] = allowed
	}

	return grants, rows.Err()
}
