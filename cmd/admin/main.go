package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/tendant/simple-cms/pkg/simplecms"
	"github.com/tendant/simple-cms/pkg/simplecms/admin"
	"github.com/tendant/simple-cms/pkg/simplecms/repo/memory"
	repopg "github.com/tendant/simple-cms/pkg/simplecms/repo/postgres"
	reposqlite "github.com/tendant/simple-cms/pkg/simplecms/repo/sqlite"
	"golang.org/x/exp/maps"
)

const usage = `Simple CMS Admin CLI

A lightweight admin tool for post management that only requires database access.

USAGE:
  admin <command> [options]

COMMANDS:
  list      List posts with optional filtering
  count     Count posts with optional filtering
  stats     Get aggregated statistics

ENVIRONMENT VARIABLES:
  DATABASE_TYPE     Database type: postgres, sqlite, or memory (default: memory)
  DATABASE_URL      PostgreSQL connection string, or file path for sqlite
  DB_SCHEMA         PostgreSQL schema name (default: cms)

  Configuration can be loaded from a .env file in the current directory.
  Command line environment variables override .env file values.

EXAMPLES:
  # List all posts
  admin list

  # List posts of a specific type
  admin list --type=page

  # List with pagination
  admin list --limit=10 --offset=0

  # List by status
  admin list --status=draft

  # Count all posts
  admin count

  # Count posts by an author
  admin count --author-id=42

  # Get statistics
  admin stats

  # Get statistics for one type
  admin stats --type=attachment

  # Output as JSON
  admin list --json
  admin stats --json

OPTIONS (for list/count/stats):
  --type=<key>                 Filter by post type
  --status=<status>            Filter by status (draft, pending, published, private, trashed)
  --author-id=<n>              Filter by author ID
  --search=<text>              Filter by substring match over title and body
  --limit=<n>                  Maximum results (list only, default: 100)
  --offset=<n>                 Pagination offset (list only, default: 0)
  --include-trashed            Include trashed posts
  --json                       Output as JSON
`

func main() {
	// Load .env file if it exists (silently ignore if not found)
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	command := os.Args[1]

	// Check for help
	if command == "help" || command == "--help" || command == "-h" {
		fmt.Println(usage)
		os.Exit(0)
	}

	// Create admin service
	adminSvc, cleanup, err := createAdminService()
	if err != nil {
		log.Fatalf("Failed to create admin service: %v", err)
	}
	defer cleanup()

	ctx := context.Background()

	// Parse common flags
	filters, useJSON := parseFilters(os.Args[2:])

	// Execute command
	switch command {
	case "list":
		handleList(ctx, adminSvc, filters, useJSON)
	case "count":
		handleCount(ctx, adminSvc, filters, useJSON)
	case "stats":
		handleStats(ctx, adminSvc, filters, useJSON)
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		fmt.Println(usage)
		os.Exit(1)
	}
}

func createAdminService() (admin.AdminService, func(), error) {
	dbType := getEnv("DATABASE_TYPE", "memory")

	switch dbType {
	case "postgres":
		dbURL := os.Getenv("DATABASE_URL")
		if dbURL == "" {
			return nil, nil, fmt.Errorf("DATABASE_URL environment variable is required for postgres")
		}

		dbSchema := getEnv("DB_SCHEMA", "cms")

		// Connect to postgres
		poolConfig, err := pgxpool.ParseConfig(dbURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to parse database URL: %w", err)
		}

		// Set search_path
		poolConfig.ConnConfig.RuntimeParams["search_path"] = dbSchema

		pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		// Test connection
		if err := pool.Ping(context.Background()); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("failed to ping database: %w", err)
		}

		repo := repopg.NewWithPool(pool)
		return admin.New(repo), pool.Close, nil

	case "sqlite":
		path := os.Getenv("DATABASE_URL")
		if path == "" {
			return nil, nil, fmt.Errorf("DATABASE_URL environment variable is required for sqlite")
		}

		repo, err := reposqlite.Open(path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}
		return admin.New(repo), func() { _ = repo.Close() }, nil

	case "memory":
		return admin.New(memory.New()), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unsupported database type: %s (use 'postgres', 'sqlite', or 'memory')", dbType)
	}
}

func parseFilters(args []string) (simplecms.ListPostsParams, bool) {
	var opts []admin.FilterOption
	useJSON := false

	// Default pagination
	limit := 100
	offset := 0

	for _, arg := range args {
		if arg == "--json" {
			useJSON = true
			continue
		}

		// Parse key=value flags
		key, value := parseFlag(arg)

		switch key {
		case "type":
			opts = append(opts, admin.WithType(value))
		case "status":
			if status, err := simplecms.ParsePostStatus(value); err == nil {
				opts = append(opts, admin.WithStatus(status))
			}
		case "author-id":
			if id, err := strconv.ParseInt(value, 10, 64); err == nil {
				opts = append(opts, admin.WithAuthorID(id))
			}
		case "search":
			opts = append(opts, admin.WithSearch(value))
		case "limit":
			if n, err := strconv.Atoi(value); err == nil {
				limit = n
			}
		case "offset":
			if n, err := strconv.Atoi(value); err == nil {
				offset = n
			}
		case "include-trashed":
			opts = append(opts, admin.WithTrashed())
		}
	}

	opts = append(opts, admin.WithPagination(limit, offset))
	return admin.NewFilters(opts...), useJSON
}

func parseFlag(arg string) (string, string) {
	if len(arg) > 2 && arg[:2] == "--" {
		arg = arg[2:]
		for i, c := range arg {
			if c == '=' {
				return arg[:i], arg[i+1:]
			}
		}
		return arg, "true"
	}
	return "", ""
}

func handleList(ctx context.Context, adminSvc admin.AdminService, filters simplecms.ListPostsParams, useJSON bool) {
	resp, err := adminSvc.ListAllPosts(ctx, admin.ListPostsRequest{
		Filters: filters,
	})
	if err != nil {
		log.Fatalf("Failed to list posts: %v", err)
	}

	if useJSON {
		data, _ := json.MarshalIndent(resp, "", "  ")
		fmt.Println(string(data))
		return
	}

	// Table output
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tTITLE\tTYPE\tSTATUS\tAUTHOR\tCREATED\n")
	fmt.Fprintf(w, "────────\t──────────────────────────────\t────────────────\t──────────\t────────\t──────────────────────\n")

	for _, post := range resp.Posts {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%s\n",
			post.ID,
			truncate(post.Title, 30),
			truncate(post.Type, 15),
			post.Status,
			post.AuthorID,
			post.CreatedAt.Format("2006-01-02 15:04:05"),
		)
	}
	w.Flush()

	fmt.Printf("\nTotal: %d", len(resp.Posts))
	if resp.HasMore {
		fmt.Printf(" (has more, use --offset=%d to continue)", resp.Offset+resp.Limit)
	}
	fmt.Println()
}

func handleCount(ctx context.Context, adminSvc admin.AdminService, filters simplecms.ListPostsParams, useJSON bool) {
	resp, err := adminSvc.CountPosts(ctx, admin.CountRequest{
		Filters: filters,
	})
	if err != nil {
		log.Fatalf("Failed to count posts: %v", err)
	}

	if useJSON {
		data, _ := json.MarshalIndent(resp, "", "  ")
		fmt.Println(string(data))
		return
	}

	fmt.Printf("Total count: %d\n", resp.Count)
}

func handleStats(ctx context.Context, adminSvc admin.AdminService, filters simplecms.ListPostsParams, useJSON bool) {
	resp, err := adminSvc.GetStatistics(ctx, admin.StatisticsRequest{
		Filters: filters,
		Options: simplecms.DefaultStatisticsOptions(),
	})
	if err != nil {
		log.Fatalf("Failed to get statistics: %v", err)
	}

	if useJSON {
		data, _ := json.MarshalIndent(resp, "", "  ")
		fmt.Println(string(data))
		return
	}

	stats := resp.Statistics

	fmt.Println("=== Post Statistics ===")
	fmt.Printf("\nTotal Count: %d\n", stats.TotalCount)

	printBreakdown("By Status", stats.ByStatus)
	printBreakdown("By Type", stats.ByType)
	printBreakdown("By Author", stats.ByAuthor)

	if stats.OldestPost != nil && stats.NewestPost != nil {
		fmt.Println("\nTime Range:")
		fmt.Printf("  Oldest: %s\n", stats.OldestPost.Format(time.RFC3339))
		fmt.Printf("  Newest: %s\n", stats.NewestPost.Format(time.RFC3339))
	}

	fmt.Printf("\nComputed at: %s\n", resp.ComputedAt.Format(time.RFC3339))
}

func printBreakdown(title string, counts map[string]int64) {
	if len(counts) == 0 {
		return
	}

	fmt.Printf("\n%s:\n", title)
	keys := maps.Keys(counts)
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Printf("  %-15s: %d\n", key, counts[key])
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
