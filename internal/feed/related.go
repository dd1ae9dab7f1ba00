package feed

import (
	"math/rand/v2"

	"github.com/yanizio/tenantcms/internal/model"
)

// Shuffler permutes n elements through swap.  *rand.Rand from math/rand/v2
// satisfies it, so tests can pass a seeded source.
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

type globalShuffler struct{}

func (globalShuffler) Shuffle(n int, swap func(i, j int)) { rand.Shuffle(n, swap) }

// RandomShuffler draws from the runtime-seeded global source, so every
// call yields a fresh order.
var RandomShuffler Shuffler = globalShuffler{}

// Related returns up to n articles related to src.
//
// The explicit related list wins when it resolves to at least one article
// of tenantID other than src.  Otherwise a random sample of the tenant's
// other articles in pool is returned, sized min(n, available).  src is
// never included.  A nil sh uses RandomShuffler.
func Related(src *model.Article, pool []model.Article, tenantID string, n int, sh Shuffler) []model.Article {
	if n <= 0 {
		return []model.Article{}
	}
	if sh == nil {
		sh = RandomShuffler
	}

	byID := make(map[string]*model.Article, len(pool))
	for i := range pool {
		if eligible(&pool[i], src, tenantID) {
			if _, dup := byID[pool[i].ID]; !dup {
				byID[pool[i].ID] = &pool[i]
			}
		}
	}

	out := make([]model.Article, 0, n)
	picked := make(map[string]bool)
	for _, id := range src.RelatedIDs {
		a, ok := byID[id]
		if !ok || picked[id] {
			continue
		}
		picked[id] = true
		out = append(out, *a)
		if len(out) == n {
			return out
		}
	}
	if len(out) > 0 {
		return out
	}

	candidates := make([]model.Article, 0, len(byID))
	seen := make(map[string]bool, len(byID))
	for i := range pool {
		id := pool[i].ID
		if _, ok := byID[id]; ok && !seen[id] {
			seen[id] = true
			candidates = append(candidates, pool[i])
		}
	}
	sh.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	return candidates[:min(n, len(candidates))]
}

func eligible(a, src *model.Article, tenantID string) bool {
	return a.ID != src.ID && a.BelongsTo(tenantID)
}
