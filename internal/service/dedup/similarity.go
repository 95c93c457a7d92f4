package dedup

import (
	"github.com/agnivade/levenshtein"

	"github.com/blackflag/requestbot/internal/domain"
)

// Title similarity blends token overlap (order-insensitive, catches
// reordered titles) with edit distance (catches typos token overlap
// misses). Structured fields adjust the blend: an exact match on a field
// both sides specify is a small boost, a mismatch is a conflict the
// engine later caps below auto-confirm.
const (
	tokenWeight = 0.55
	editWeight  = 0.45
	fieldBoost  = 0.05
)

// Similarity scores a draft against a candidate request in [0,1]. The
// second return reports a structured-field conflict: year, season or
// episode specified on both sides with different values.
func Similarity(d *domain.Draft, r *domain.Request) (float64, bool) {
	draftTokens := domain.TitleTokens(d.Title)
	candTokens := domain.TitleTokens(r.Title)
	if len(draftTokens) == 0 || len(candTokens) == 0 {
		return 0, false
	}

	score := tokenWeight*jaccard(draftTokens, candTokens) +
		editWeight*editRatio(domain.NormalizeTitle(d.Title), domain.NormalizeTitle(r.Title))

	conflict := false
	for _, pair := range [][2]*int{
		{d.Year, r.Year},
		{d.Season, r.Season},
		{d.Episode, r.Episode},
	} {
		a, b := pair[0], pair[1]
		if a == nil || b == nil {
			continue
		}
		if *a == *b {
			score += fieldBoost
		} else {
			conflict = true
		}
	}

	if score > 1 {
		score = 1
	}
	return score, conflict
}

// jaccard is |A∩B| / |A∪B| over token sets.
func jaccard(a, b []string) float64 {
	set := make(map[string]struct{}, len(a))
	for _, t := range a {
		set[t] = struct{}{}
	}

	inter := 0
	union := len(set)
	seen := make(map[string]struct{}, len(b))
	for _, t := range b {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := set[t]; ok {
			inter++
		} else {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// editRatio is 1 - dist/maxLen over normalized titles, in [0,1].
func editRatio(a, b string) float64 {
	if a == b {
		return 1
	}
	la, lb := len([]rune(a)), len([]rune(b))
	longest := max(la, lb)
	if longest == 0 {
		return 0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}
