package projector

import (
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/segmentio/fasthash/fnv1a"

	"github.com/ajitpratap0/prism/pkg/config"
	"github.com/ajitpratap0/prism/pkg/expr"
	"github.com/ajitpratap0/prism/pkg/selection"
)

// keySeed starts every cache key hash.
const keySeed uint64 = 4

// CacheKey identifies a compiled projector: the input schema, the ordered
// canonical expression strings, the selection mode, the configuration and a
// uniqifier that separates otherwise identical keys into shards.
type CacheKey struct {
	schema    *arrow.Schema
	schemaStr string
	exprs     []string
	mode      selection.Mode
	config    *config.Configuration
	uniqifier uint32
	hash      uint64
}

// NewCacheKey builds the key for exprs over schema. The uniqifier is folded
// in last.
func NewCacheKey(schema *arrow.Schema, cfg *config.Configuration, exprs []*expr.Expression, mode selection.Mode, uniqifier uint32) *CacheKey {
	strs := make([]string, len(exprs))
	for i, e := range exprs {
		strs[i] = e.String()
	}
	return newCacheKey(schema, cfg, strs, mode, uniqifier)
}

func newCacheKey(schema *arrow.Schema, cfg *config.Configuration, exprs []string, mode selection.Mode, uniqifier uint32) *CacheKey {
	k := &CacheKey{
		schema:    schema,
		schemaStr: schema.String(),
		exprs:     exprs,
		mode:      mode,
		config:    cfg,
		uniqifier: uniqifier,
	}

	h := keySeed
	for _, e := range exprs {
		h = combine(h, fnv1a.HashString64(e))
	}
	h = combine(h, uint64(mode))
	h = combine(h, cfg.Hash())
	h = combine(h, fnv1a.HashString64(k.schemaStr))
	h = combine(h, uint64(uniqifier))
	k.hash = h
	return k
}

// combine folds value into seed.
func combine(seed, value uint64) uint64 {
	return seed ^ (value + 0x9e3779b9 + (seed << 6) + (seed >> 2))
}

// Hash returns the key's hash. Equal keys have equal hashes.
func (k *CacheKey) Hash() uint64 { return k.hash }

// Equal reports whether k and other identify the same compiled projector.
func (k *CacheKey) Equal(other *CacheKey) bool {
	if k == other {
		return true
	}
	if k == nil || other == nil {
		return false
	}
	if k.hash != other.hash || k.mode != other.mode || k.uniqifier != other.uniqifier {
		return false
	}
	if !k.config.Equal(other.config) || !k.schema.Equal(other.schema) {
		return false
	}
	if len(k.exprs) != len(other.exprs) {
		return false
	}
	for i := range k.exprs {
		if k.exprs[i] != other.exprs[i] {
			return false
		}
	}
	return true
}

// Expressions returns the canonical expression strings in order.
func (k *CacheKey) Expressions() []string { return k.exprs }

// Mode returns the selection mode.
func (k *CacheKey) Mode() selection.Mode { return k.mode }

// Uniqifier returns the shard the key was placed in.
func (k *CacheKey) Uniqifier() uint32 { return k.uniqifier }

// Fingerprint returns the full canonical text of the key. Two keys have the
// same fingerprint exactly when their canonical parts match.
func (k *CacheKey) Fingerprint() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Schema: %s\n", k.schemaStr)
	for _, e := range k.exprs {
		fmt.Fprintf(&b, "Expression: %s\n", e)
	}
	fmt.Fprintf(&b, "Mode: %s\nConfiguration: %s\nUniqifier: %d", k.mode, k.config, k.uniqifier)
	return b.String()
}

func (k *CacheKey) String() string {
	return fmt.Sprintf("CacheKey{hash=%016x, expressions=%d, mode=%s, uniqifier=%d}", k.hash, len(k.exprs), k.mode, k.uniqifier)
}
