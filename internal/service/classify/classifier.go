// Package classify turns free-text content requests into structured
// drafts. Extraction is rule based and pure: no I/O, no state, the same
// text always yields the same draft.
package classify

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/blackflag/requestbot/internal/domain"
)

// DefaultLanguage is stored when the text carries no explicit hint.
const DefaultLanguage = "hebrew"

// Classifier extracts structured request drafts from raw messages.
type Classifier struct{}

func NewClassifier() *Classifier { return &Classifier{} }

// Classify extracts a draft from raw text. Each successfully matched
// field adds its fixed weight to the confidence score, capped at 100. A
// title is mandatory: text that yields none fails with
// domain.ErrUnclassifiable, and the caller keeps the raw text for manual
// handling.
func (c *Classifier) Classify(raw string) (*domain.Draft, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, fmt.Errorf("classify %q: %w", raw, domain.ErrUnclassifiable)
	}

	d := &domain.Draft{
		Category:     domain.CategoryGeneral,
		LanguagePref: DefaultLanguage,
		Priority:     detectPriority(text),
	}

	// remainder is the text with every recognized marker cut out; what
	// survives becomes the title.
	remainder := text

	// SxxEyy is the most specific marker and overrides bare word forms.
	if m := reSeasonEpisode.FindStringSubmatch(remainder); m != nil {
		d.Season = atoiPtr(m[1])
		d.Episode = atoiPtr(m[2])
	} else {
		if m := reSeasonWord.FindStringSubmatch(remainder); m != nil {
			d.Season = atoiPtr(m[1])
		}
		if m := reEpisodeWord.FindStringSubmatch(remainder); m != nil {
			d.Episode = atoiPtr(m[1])
		}
	}
	remainder = reSeasonEpisode.ReplaceAllString(remainder, " ")
	remainder = reSeasonWord.ReplaceAllString(remainder, " ")
	remainder = reEpisodeWord.ReplaceAllString(remainder, " ")

	if m := reYear.FindStringSubmatch(remainder); m != nil {
		d.Year = atoiPtr(m[1])
		remainder = reYear.ReplaceAllString(remainder, " ")
	}

	if m := reQuality.FindStringSubmatch(remainder); m != nil {
		q := strings.ToLower(m[1])
		if canon, ok := qualityCanon[q]; ok {
			q = canon
		}
		d.Quality = &q
		remainder = reQuality.ReplaceAllString(remainder, " ")
	}

	langMatched := false
	for _, tok := range strings.Fields(domain.NormalizeTitle(text)) {
		if lang, ok := languageHints[tok]; ok {
			d.LanguagePref = lang
			langMatched = true
			break
		}
	}

	d.Category = detectCategory(text, d)
	d.Title = extractTitle(remainder, d.Category)
	if d.Title == "" {
		return nil, fmt.Errorf("classify %q: %w", raw, domain.ErrUnclassifiable)
	}

	d.Confidence = confidence(d, langMatched)
	return d, nil
}

// detectCategory scores keyword evidence per category over the whole
// message. With no keyword evidence at all, structural markers decide:
// season/episode fields imply a series, a year plus a plausible title
// implies a movie.
func detectCategory(text string, d *domain.Draft) domain.Category {
	padded := " " + domain.NormalizeTitle(text) + " "

	best := domain.CategoryGeneral
	bestScore := 0
	for _, cat := range []domain.Category{
		domain.CategorySeries, domain.CategoryMovies, domain.CategoryAnime,
		domain.CategoryGames, domain.CategoryBooks, domain.CategoryApps,
	} {
		score := 0
		for _, rule := range categoryRules[cat] {
			if strings.Contains(padded, " "+rule.term+" ") {
				score += rule.weight
			}
		}
		if score > bestScore {
			best, bestScore = cat, score
		}
	}
	if bestScore > 0 {
		return best
	}

	if d.Season != nil || d.Episode != nil {
		return domain.CategorySeries
	}
	if d.Year != nil && len(domain.TitleTokens(text)) >= 2 {
		return domain.CategoryMovies
	}
	return domain.CategoryGeneral
}

// detectPriority walks the keyword tables. Negation phrases go first:
// "לא דחוף" contains the urgent marker and must not trip it.
func detectPriority(text string) domain.Priority {
	padded := " " + domain.NormalizeTitle(text) + " "
	for _, kw := range lowKeywords {
		if strings.Contains(padded, " "+kw+" ") {
			return domain.PriorityLow
		}
	}
	if strings.Contains(text, "!!") {
		return domain.PriorityUrgent
	}
	for _, kw := range urgentKeywords {
		if strings.Contains(padded, " "+kw+" ") {
			return domain.PriorityUrgent
		}
	}
	for _, kw := range highKeywords {
		if strings.Contains(padded, " "+kw+" ") {
			return domain.PriorityHigh
		}
	}
	return domain.PriorityMedium
}

// extractTitle keeps what the markers left behind: filler words, the
// detected category's own keywords, and language hints are dropped, and
// the first titleWordLimit surviving words (original casing) become the
// title.
func extractTitle(remainder string, cat domain.Category) string {
	catTerms := make(map[string]struct{}, len(categoryRules[cat]))
	for _, rule := range categoryRules[cat] {
		catTerms[rule.term] = struct{}{}
	}

	var words []string
	for _, field := range strings.Fields(remainder) {
		norm := domain.NormalizeTitle(field)
		if norm == "" || len(domain.TitleTokens(norm)) == 0 {
			continue
		}
		if _, skip := catTerms[norm]; skip {
			continue
		}
		if _, skip := languageHints[norm]; skip {
			continue
		}
		words = append(words, strings.Trim(field, ".,;:!?\"'()[]"))
		if len(words) == titleWordLimit {
			break
		}
	}
	return strings.TrimSpace(strings.Join(words, " "))
}

func confidence(d *domain.Draft, langMatched bool) int {
	score := 0
	if d.Title != "" {
		score += weightTitle
	}
	if d.Category != domain.CategoryGeneral {
		score += weightCategory
	}
	if d.Year != nil {
		score += weightYear
	}
	if d.Season != nil {
		score += weightSeason
	}
	if d.Episode != nil {
		score += weightEpisode
	}
	if d.Quality != nil {
		score += weightQuality
	}
	if langMatched {
		score += weightLanguage
	}
	if score > maxConfidence {
		score = maxConfidence
	}
	return score
}

func atoiPtr(s string) *int {
	n, _ := strconv.Atoi(s)
	return &n
}
