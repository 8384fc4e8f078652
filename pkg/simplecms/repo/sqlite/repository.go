// Package sqlite provides a SQLite-backed repository implementation.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/tendant/simple-cms/pkg/simplecms"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

const schema = `
CREATE TABLE IF NOT EXISTS posts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    type TEXT NOT NULL,
    title TEXT NOT NULL,
    slug TEXT NOT NULL DEFAULT '',
    body TEXT NOT NULL DEFAULT '',
    excerpt TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'published',
    author_id INTEGER NOT NULL DEFAULT 0,
    mime_type TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    deleted_at INTEGER
);

CREATE INDEX IF NOT EXISTS idx_posts_type_status ON posts (type, status);
CREATE INDEX IF NOT EXISTS idx_posts_type_title ON posts (type, title);

CREATE TABLE IF NOT EXISTS post_meta (
    post_id INTEGER PRIMARY KEY REFERENCES posts(id) ON DELETE CASCADE,
    metadata TEXT NOT NULL DEFAULT '{}',
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS terms (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    taxonomy TEXT NOT NULL,
    name TEXT NOT NULL,
    slug TEXT NOT NULL DEFAULT '',
    UNIQUE (taxonomy, slug)
);

CREATE TABLE IF NOT EXISTS term_relationships (
    post_id INTEGER NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
    term_id INTEGER NOT NULL REFERENCES terms(id) ON DELETE CASCADE,
    PRIMARY KEY (post_id, term_id)
);

CREATE TABLE IF NOT EXISTS role_capabilities (
    role TEXT NOT NULL,
    capability TEXT NOT NULL,
    allowed INTEGER NOT NULL DEFAULT 0,
    updated_at INTEGER NOT NULL,
    PRIMARY KEY (role, capability)
);
`

// Repository implements simplecms.Repository, simplecms.TaxonomyRepository,
// and simplecms.CapabilityStore over a SQLite database.
type Repository struct {
	db *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite repository at the given path and applies the schema.
func Open(path string) (*Repository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("database path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Repository{db: db}, nil
}

// Close closes the database handle.
func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

// Post operations

func (r *Repository) InsertPost(ctx context.Context, post *simplecms.Post) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO posts (
		   type, title, slug, body, excerpt, status,
		   author_id, mime_type, created_at, updated_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		post.Type, post.Title, post.Slug, post.Body, post.Excerpt,
		string(post.Status), post.AuthorID, post.MimeType,
		toMillis(post.CreatedAt), toMillis(post.UpdatedAt))
	if err != nil {
		return 0, fmt.Errorf("insert post: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert post id: %w", err)
	}
	post.ID = id
	return id, nil
}

func (r *Repository) GetPost(ctx context.Context, id int64) (*simplecms.Post, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, type, title, slug, body, excerpt, status,
		        author_id, mime_type, created_at, updated_at, deleted_at
		   FROM posts
		  WHERE id = ?`,
		id)

	return scanPost(row)
}

func (r *Repository) UpdatePost(ctx context.Context, post *simplecms.Post) error {
	var deletedAt sql.NullInt64
	if post.DeletedAt != nil {
		deletedAt = sql.NullInt64{Int64: toMillis(*post.DeletedAt), Valid: true}
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE posts SET
		   type = ?, title = ?, slug = ?, body = ?, excerpt = ?,
		   status = ?, author_id = ?, mime_type = ?,
		   updated_at = ?, deleted_at = ?
		 WHERE id = ?`,
		post.Type, post.Title, post.Slug, post.Body, post.Excerpt,
		string(post.Status), post.AuthorID, post.MimeType,
		toMillis(post.UpdatedAt), deletedAt, post.ID)
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	if affected == 0 {
		return simplecms.ErrPostNotFound
	}
	return nil
}

func (r *Repository) DeletePost(ctx context.Context, id int64, skipTrash bool) error {
	if skipTrash {
		res, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete post: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete post: %w", err)
		}
		if affected == 0 {
			return simplecms.ErrPostNotFound
		}
		return nil
	}

	now := toMillis(time.Now())
	res, err := r.db.ExecContext(ctx,
		`UPDATE posts SET status = ?, deleted_at = ?, updated_at = ? WHERE id = ?`,
		string(simplecms.PostStatusTrashed), now, now, id)
	if err != nil {
		return fmt.Errorf("trash post: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("trash post: %w", err)
	}
	if affected == 0 {
		return simplecms.ErrPostNotFound
	}
	return nil
}

func (r *Repository) FindPostByTitle(ctx context.Context, typeKey, title string) (*simplecms.Post, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, type, title, slug, body, excerpt, status,
		        author_id, mime_type, created_at, updated_at, deleted_at
		   FROM posts
		  WHERE type = ? AND title = ? AND status <> ? AND deleted_at IS NULL
		  ORDER BY id
		  LIMIT 1`,
		typeKey, title, string(simplecms.PostStatusTrashed))

	return scanPost(row)
}

// filterClauses renders the WHERE conditions shared by ListPosts,
// CountPosts, and PostStatistics. The returned clause is empty or starts
// with " AND".
func filterClauses(params simplecms.ListPostsParams) (string, []any) {
	clause := strings.Builder{}
	args := []any{}

	if params.Type != "" {
		clause.WriteString(" AND type = ?")
		args = append(args, params.Type)
	}

	statuses := []simplecms.PostStatus{}
	if params.Status != nil {
		statuses = append(statuses, *params.Status)
	}
	statuses = append(statuses, params.Statuses...)
	if len(statuses) > 0 {
		clause.WriteString(" AND status IN (?" + strings.Repeat(", ?", len(statuses)-1) + ")")
		for _, s := range statuses {
			args = append(args, string(s))
		}
	} else if !params.IncludeTrashed {
		clause.WriteString(" AND status <> ?")
		args = append(args, string(simplecms.PostStatusTrashed))
	}

	if params.AuthorID != nil {
		clause.WriteString(" AND author_id = ?")
		args = append(args, *params.AuthorID)
	}
	if params.Search != "" {
		clause.WriteString(" AND (title LIKE ? OR body LIKE ?)")
		needle := "%" + params.Search + "%"
		args = append(args, needle, needle)
	}
	if params.CreatedAfter != nil {
		clause.WriteString(" AND created_at > ?")
		args = append(args, toMillis(*params.CreatedAfter))
	}
	if params.CreatedBefore != nil {
		clause.WriteString(" AND created_at < ?")
		args = append(args, toMillis(*params.CreatedBefore))
	}

	return clause.String(), args
}

func (r *Repository) ListPosts(ctx context.Context, params simplecms.ListPostsParams) ([]*simplecms.Post, error) {
	where, args := filterClauses(params)

	query := strings.Builder{}
	query.WriteString(
		`SELECT id, type, title, slug, body, excerpt, status,
		        author_id, mime_type, created_at, updated_at, deleted_at
		   FROM posts
		  WHERE 1=1`)
	query.WriteString(where)
	query.WriteString(" ORDER BY created_at DESC, id DESC")

	if params.Limit != nil && *params.Limit > 0 {
		query.WriteString(" LIMIT ?")
		args = append(args, *params.Limit)
	} else if params.Offset != nil && *params.Offset > 0 {
		// SQLite rejects OFFSET without LIMIT; -1 means unlimited.
		query.WriteString(" LIMIT -1")
	}
	if params.Offset != nil && *params.Offset > 0 {
		query.WriteString(" OFFSET ?")
		args = append(args, *params.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	var posts []*simplecms.Post
	for rows.Next() {
		post, err := scanPostRow(rows)
		if err != nil {
			return nil, fmt.Errorf("list posts: %w", err)
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

func (r *Repository) CountPosts(ctx context.Context, params simplecms.ListPostsParams) (int64, error) {
	where, args := filterClauses(params)

	var count int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM posts WHERE 1=1`+where, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	return count, nil
}

// groupCount runs a GROUP BY aggregation over the filtered posts. The
// column is cast to text so integer keys come back as decimal strings.
func (r *Repository) groupCount(ctx context.Context, column, where string, args []any) (map[string]int64, error) {
	query := fmt.Sprintf(
		"SELECT CAST(%s AS TEXT), COUNT(*) FROM posts WHERE 1=1%s GROUP BY %s",
		column, where, column)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("post statistics: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var key string
		var count int64
		if err := rows.Scan(&key, &count); err != nil {
			return nil, fmt.Errorf("post statistics: %w", err)
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
		var oldest, newest sql.NullInt64
		err := r.db.QueryRowContext(ctx,
			`SELECT MIN(created_at), MAX(created_at) FROM posts WHERE 1=1`+where,
			args...).Scan(&oldest, &newest)
		if err != nil {
			return nil, fmt.Errorf("post statistics: %w", err)
		}
		if oldest.Valid {
			t := fromMillis(oldest.Int64)
			stats.OldestPost = &t
		}
		if newest.Valid {
			t := fromMillis(newest.Int64)
			stats.NewestPost = &t
		}
	}

	return stats, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row *sql.Row) (*simplecms.Post, error) {
	post, err := scanPostRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, simplecms.ErrPostNotFound
		}
		return nil, err
	}
	return post, nil
}

func scanPostRow(row rowScanner) (*simplecms.Post, error) {
	var post simplecms.Post
	var status string
	var createdAt, updatedAt int64
	var deletedAt sql.NullInt64
	if err := row.Scan(
		&post.ID, &post.Type, &post.Title, &post.Slug, &post.Body,
		&post.Excerpt, &status, &post.AuthorID, &post.MimeType,
		&createdAt, &updatedAt, &deletedAt); err != nil {
		return nil, err
	}
	post.Status = simplecms.PostStatus(status)
	post.CreatedAt = fromMillis(createdAt)
	post.UpdatedAt = fromMillis(updatedAt)
	if deletedAt.Valid {
		t := fromMillis(deletedAt.Int64)
		post.DeletedAt = &t
	}
	return &post, nil
}

// Post metadata operations

func (r *Repository) SetPostMeta(ctx context.Context, meta *simplecms.PostMeta) error {
	encoded, err := json.Marshal(meta.Metadata)
	if err != nil {
		return fmt.Errorf("encode post meta: %w", err)
	}

	now := toMillis(time.Now())
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO post_meta (post_id, metadata, created_at, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (post_id) DO UPDATE SET
		   metadata = excluded.metadata,
		   updated_at = excluded.updated_at`,
		meta.PostID, string(encoded), now, now)
	if err != nil {
		return fmt.Errorf("set post meta: %w", err)
	}
	return nil
}

func (r *Repository) GetPostMeta(ctx context.Context, postID int64) (*simplecms.PostMeta, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT post_id, metadata, created_at, updated_at
		   FROM post_meta
		  WHERE post_id = ?`,
		postID)

	var meta simplecms.PostMeta
	var encoded string
	var createdAt, updatedAt int64
	if err := row.Scan(&meta.PostID, &encoded, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("post metadata not found for post %d", postID)
		}
		return nil, fmt.Errorf("get post meta: %w", err)
	}
	if err := json.Unmarshal([]byte(encoded), &meta.Metadata); err != nil {
		return nil, fmt.Errorf("decode post meta: %w", err)
	}
	meta.CreatedAt = fromMillis(createdAt)
	meta.UpdatedAt = fromMillis(updatedAt)
	return &meta, nil
}

// Taxonomy operations

func (r *Repository) CreateTerm(ctx context.Context, term *simplecms.Term) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO terms (taxonomy, name, slug) VALUES (?, ?, ?)`,
		term.Taxonomy, term.Name, term.Slug)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("term already exists: %w", err)
		}
		return 0, fmt.Errorf("create term: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("create term id: %w", err)
	}
	term.ID = id
	return id, nil
}

func (r *Repository) GetTerm(ctx context.Context, id int64) (*simplecms.Term, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, taxonomy, name, slug FROM terms WHERE id = ?`, id)

	var term simplecms.Term
	if err := row.Scan(&term.ID, &term.Taxonomy, &term.Name, &term.Slug); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, simplecms.ErrTermNotFound
		}
		return nil, fmt.Errorf("get term: %w", err)
	}
	return &term, nil
}

func (r *Repository) TermsForPost(ctx context.Context, postID int64, taxonomy string) ([]*simplecms.Term, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT t.id, t.taxonomy, t.name, t.slug
		   FROM terms t
		   JOIN term_relationships tr ON tr.term_id = t.id
		  WHERE tr.post_id = ? AND t.taxonomy = ?
		  ORDER BY t.id`,
		postID, taxonomy)
	if err != nil {
		return nil, fmt.Errorf("terms for post: %w", err)
	}
	defer rows.Close()

	terms := []*simplecms.Term{}
	for rows.Next() {
		var term simplecms.Term
		if err := rows.Scan(&term.ID, &term.Taxonomy, &term.Name, &term.Slug); err != nil {
			return nil, fmt.Errorf("terms for post: %w", err)
		}
		terms = append(terms, &term)
	}
	return terms, rows.Err()
}

func (r *Repository) AttachTerms(ctx context.Context, postID int64, taxonomy string, termIDs []int64) error {
	if len(termIDs) == 0 {
		return nil
	}

	for _, termID := range termIDs {
		term, err := r.GetTerm(ctx, termID)
		if err != nil {
			return err
		}
		if term.Taxonomy != taxonomy {
			return fmt.Errorf("%w: term %d belongs to taxonomy %s", simplecms.ErrTermNotFound, termID, term.Taxonomy)
		}
	}

	for _, termID := range termIDs {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO term_relationships (post_id, term_id)
			 VALUES (?, ?)
			 ON CONFLICT DO NOTHING`,
			postID, termID)
		if err != nil {
			return fmt.Errorf("attach terms: %w", err)
		}
	}
	return nil
}

func (r *Repository) DetachTerms(ctx context.Context, postID int64, taxonomy string, termIDs []int64) error {
	if len(termIDs) == 0 {
		return nil
	}

	placeholders := "?" + strings.Repeat(", ?", len(termIDs)-1)
	args := []any{postID}
	for _, id := range termIDs {
		args = append(args, id)
	}
	args = append(args, taxonomy)

	_, err := r.db.ExecContext(ctx,
		`DELETE FROM term_relationships
		  WHERE post_id = ?
		    AND term_id IN (`+placeholders+`)
		    AND term_id IN (SELECT id FROM terms WHERE taxonomy = ?)`,
		args...)
	if err != nil {
		return fmt.Errorf("detach terms: %w", err)
	}
	return nil
}

// Capability operations

func (r *Repository) Grant(ctx context.Context, role, capability string, allowed bool) error {
	allowedInt := 0
	if allowed {
		allowedInt = 1
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO role_capabilities (role, capability, allowed, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (role, capability) DO UPDATE SET
		   allowed = excluded.allowed,
		   updated_at = excluded.updated_at`,
		role, capability, allowedInt, toMillis(time.Now()))
	if err != nil {
		return fmt.Errorf("grant capability: %w", err)
	}
	return nil
}

func (r *Repository) Allowed(ctx context.Context, role, capability string) (bool, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT allowed FROM role_capabilities WHERE role = ? AND capability = ?`,
		role, capability)

	var allowed int
	if err := row.Scan(&allowed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("capability allowed: %w", err)
	}
	return allowed != 0, nil
}

func (r *Repository) Grants(ctx context.Context, role string) (map[string]bool, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT capability, allowed FROM role_capabilities WHERE role = ?`, role)
	if err != nil {
		return nil, fmt.Errorf("role grants: %w", err)
	}
	defer rows.Close()

	grants := make(map[string]bool)
	for rows.Next() {
		var capability string
		var allowed int
		if err := rows.Scan(&capability, &allowed); err != nil {
			return nil, fmt.Errorf("role grants: %w", err)
		}
		grants[capability] = allowed != 0
	}
	return grants, rows.Err()
}

var (
	_ simplecms.Repository         = (*Repository)(nil)
	_ simplecms.TaxonomyRepository = (*Repository)(nil)
	_ simplecms.CapabilityStore    = (*Repository)(nil)
)
