// Package cache defines the advisory cache-store contract: keyed TTL
// entries for vocabulary/annotation/similarity status summaries, plus an
// ephemeral asset key. Every value is reconstructible from the document,
// graph, and vector stores, so the cache may be invalidated at any time
// without data loss.
package cache

import (
	"context"
	"fmt"
	"time"

	"bioterms/internal/model"
)

// Default TTLs per spec: statuses live an hour, the site-map asset a day.
const (
	DefaultStatusTTL  = time.Hour
	DefaultSiteMapTTL = 24 * time.Hour
)

// Store is the cache adapter contract. Get returns (nil, false, nil) on a
// miss and returns stored bytes unchecked; GetJSON (status.go) treats an
// unmarshalable payload as a miss and deletes it, per spec.md §4.9's
// "invalid payloads cause deletion on read".
type Store interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Delete(ctx context.Context, key string) error
	Purge(ctx context.Context) error
	Close() error
}

// VocabStatusKey names the cache key for a vocabulary's status summary.
func VocabStatusKey(prefix model.Prefix) string {
	return fmt.Sprintf("vocab_status:%s", prefix)
}

// AnnotationStatusKey names the cache key for an annotation pair's status.
func AnnotationStatusKey(p1, p2 model.Prefix) string {
	return fmt.Sprintf("anno_status:%s:%s", p1, p2)
}

// SimilarityStatusKey names the cache key for a prefix's similarity status.
func SimilarityStatusKey(prefix model.Prefix) string {
	return fmt.Sprintf("sim_status:%s", prefix)
}

// SiteMapKey is the ephemeral asset cache key.
const SiteMapKey = "assets:site_map"
