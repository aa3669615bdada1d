package projector

import (
	"bytes"
	"context"
	"runtime"
	"strconv"
	"strings"
)

// Disambiguator picks the uniqifier of a cache key from the canonical
// expression strings. Keys with different uniqifiers never share a
// compiled projector.
type Disambiguator func(ctx context.Context, exprs []string) uint32

type shardKey struct{}

// WithShard pins the uniqifier of every pattern-matching key built under ctx
// to shard.
func WithShard(ctx context.Context, shard uint32) context.Context {
	return context.WithValue(ctx, shardKey{}, shard)
}

// ShardFromContext returns the shard pinned by WithShard.
func ShardFromContext(ctx context.Context) (uint32, bool) {
	if ctx == nil {
		return 0, false
	}
	shard, ok := ctx.Value(shardKey{}).(uint32)
	return shard, ok
}

// ContainsLike reports whether an expression string uses the like function.
func ContainsLike(e string) bool {
	return strings.Contains(e, " like(")
}

// NoDisambiguation places every key in shard 0.
func NoDisambiguation(context.Context, []string) uint32 { return 0 }

// ShardedDisambiguator returns a Disambiguator that leaves keys in shard 0
// unless some expression satisfies sensitive, in which case the key goes to
// the shard pinned on the context or, failing that, to the calling
// goroutine's id modulo shards.
func ShardedDisambiguator(shards uint32, sensitive func(string) bool) Disambiguator {
	if shards == 0 {
		shards = 1
	}
	return func(ctx context.Context, exprs []string) uint32 {
		match := false
		for _, e := range exprs {
			if sensitive(e) {
				match = true
				break
			}
		}
		if !match {
			return 0
		}
		if shard, ok := ShardFromContext(ctx); ok {
			return shard
		}
		return uint32(goroutineID() % uint64(shards))
	}
}

// DefaultDisambiguator shards like expressions over 16 shards.
func DefaultDisambiguator() Disambiguator {
	return ShardedDisambiguator(16, ContainsLike)
}

var goroutinePrefix = []byte("goroutine ")

// goroutineID parses the current goroutine's id from its stack header,
// "goroutine 42 [running]:".
func goroutineID() uint64 {
	var buf [64]byte
	b := buf[:runtime.Stack(buf[:], false)]
	b = bytes.TrimPrefix(b, goroutinePrefix)
	if i := bytes.IndexByte(b, ' '); i >= 0 {
		b = b[:i]
	}
	id, err := strconv.ParseUint(string(b), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
