package scoring

import (
	"sort"

	"github.com/sitescout/sitescout/internal/models"
)

// DefaultTopN bounds the ranked view shown for confirmation when no
// configuration overrides it.
const DefaultTopN = 25

// Ranking holds the full scored collection in descending score order.
// Top is a bounded view over it; the complete set stays reachable.
type Ranking struct {
	entries []models.ScoredEntry
}

// Rank sorts scored entries by score descending. The sort is stable over
// discovery order, so tied scores keep their first-seen ranking and the
// output is deterministic for a fixed tree and configuration.
func Rank(scored []models.ScoredEntry) *Ranking {
	entries := make([]models.ScoredEntry, len(scored))
	copy(entries, scored)

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})

	return &Ranking{entries: entries}
}

func (r *Ranking) Len() int { return len(r.entries) }

// All returns the complete ranked set.
func (r *Ranking) All() []models.ScoredEntry { return r.entries }

// Top returns the first n ranked entries, or everything when n exceeds
// the set. n <= 0 yields nothing.
func (r *Ranking) Top(n int) []models.ScoredEntry {
	if n <= 0 {
		return nil
	}
	if n > len(r.entries) {
		n = len(r.entries)
	}
	return r.entries[:n]
}

// Row is one display tuple of the ranked output.
type Row struct {
	Rank       int
	Score      float64
	Depth      int
	HasKeyword bool
	URL        string
}

// Rows materializes display tuples for the top n entries.
func (r *Ranking) Rows(n int) []Row {
	top := r.Top(n)
	rows := make([]Row, len(top))
	for i, e := range top {
		rows[i] = Row{
			Rank:       i + 1,
			Score:      e.Score,
			Depth:      e.Depth,
			HasKeyword: e.HasKeyword,
			URL:        e.URL,
		}
	}
	return rows
}
