// Package simplecms provides a reusable library for typed content ("post
// type") management with pluggable persistence, taxonomy, and capability
// backends.
//
// It exposes a single Service interface that registers post types and hands
// out per-type managers for creating, updating, trashing and deleting posts,
// title lookups, taxonomy term resolution, and role capability setup.
// Implementations of repositories (e.g., memory, Postgres, SQLite) and blob
// stores for media attachments (e.g., memory, filesystem, S3) are provided
// under subpackages.
//
// Capability Model
//
// Each registered type derives seven capability names from its singular and
// plural keys (edit_{s}, read_{s}, delete_{s}, edit_{p}, edit_others_{p},
// publish_{p}, read_private_{p}). Default grants follow a least-privilege
// chain across the built-in roles; individual entries can be overridden per
// type at registration time.
package simplecms
