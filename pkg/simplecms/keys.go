package simplecms

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// KeyGenerator builds object keys for attachment files. Keys are sharded on
// the random object id git-style: {prefix}/ab/cdef0123..._filename.
type KeyGenerator struct {
	// Prefix is the top-level key namespace (default: "uploads").
	Prefix string
	// ShardLength controls how many characters to use for sharding (default: 2)
	ShardLength int
}

// NewKeyGenerator creates a key generator over the given prefix. An empty
// prefix falls back to "uploads".
func NewKeyGenerator(prefix string) *KeyGenerator {
	if prefix == "" {
		prefix = "uploads"
	}
	return &KeyGenerator{
		Prefix:      prefix,
		ShardLength: 2,
	}
}

// Generate creates an object key for a new attachment file.
func (g *KeyGenerator) Generate(fileName string) string {
	id := strings.ReplaceAll(uuid.New().String(), "-", "")

	shardLen := g.ShardLength
	if shardLen <= 0 || shardLen >= len(id) {
		shardLen = 2
	}
	shardDir := id[:shardLen]
	remaining := id[shardLen:]

	filename := remaining
	if fileName != "" {
		filename = fmt.Sprintf("%s_%s", remaining, sanitizeFilename(fileName))
	}

	return fmt.Sprintf("%s/%s/%s", g.Prefix, shardDir, filename)
}

// sanitizeFilename replaces characters that are problematic in object keys
// and filesystem paths.
func sanitizeFilename(filename string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "_",
	)
	return replacer.Replace(filename)
}
