package dedup

import (
	"context"
	"fmt"

	"github.com/fintrack-dev/fintrack/internal/model"
)

// HashSource returns hashes already imported for a user and source.
type HashSource interface {
	ImportedHashes(ctx context.Context, userID string, source model.Source) (map[string]struct{}, error)
}

// Gate is the per-run set of known hashes. It is not safe for concurrent
// use; a commit run owns its gate.
type Gate struct {
	seen map[string]struct{}
}

// New returns a gate that already knows hashes.
func New(hashes ...string) *Gate {
	g := &Gate{seen: make(map[string]struct{}, len(hashes))}
	for _, h := range hashes {
		g.seen[h] = struct{}{}
	}
	return g
}

// Load fetches the user's imported hashes for source once.
func Load(ctx context.Context, src HashSource, userID string, source model.Source) (*Gate, error) {
	hashes, err := src.ImportedHashes(ctx, userID, source)
	if err != nil {
		return nil, fmt.Errorf("loading imported hashes for %s/%s: %w", userID, source, err)
	}
	g := New()
	for h := range hashes {
		g.Record(h)
	}
	return g, nil
}

// IsDuplicate reports whether hash was imported before or earlier in this run.
func (g *Gate) IsDuplicate(hash string) bool {
	_, ok := g.seen[hash]
	return ok
}

// Record marks hash as imported. Call it only once the record is persisted.
func (g *Gate) Record(hash string) {
	g.seen[hash] = struct{}{}
}

// Len returns the number of known hashes.
func (g *Gate) Len() int { return len(g.seen) }
