package classify

import (
	"regexp"

	"github.com/blackflag/requestbot/internal/domain"
)

// Extraction patterns, ordered from most to least specific. An explicit
// SxxEyy token wins over bare season/episode words, which in turn win over
// a lone number guess.
var (
	reSeasonEpisode = regexp.MustCompile(`(?i)\bS(\d{1,2})\s*E(\d{1,3})\b`)
	reSeasonWord    = regexp.MustCompile(`(?i)(?:\bseason\b|עונה)\s*:?\s*(\d{1,2})`)
	reEpisodeWord   = regexp.MustCompile(`(?i)(?:\bepisode\b|\bep\b|פרק)\s*:?\s*(\d{1,3})`)
	reYear          = regexp.MustCompile(`\b(19[5-9]\d|20[0-4]\d)\b`)
	reQuality       = regexp.MustCompile(`(?i)\b(4K|UHD|2160p|1080p|720p|480p|BluRay|WEB-?DL|WEBRip|HDTV|HDR|HD)\b`)
)

// qualityCanon maps a lowercased quality token to its stored form.
var qualityCanon = map[string]string{
	"4k":     "4K",
	"uhd":    "UHD",
	"hd":     "HD",
	"hdr":    "HDR",
	"hdtv":   "HDTV",
	"bluray": "BluRay",
	"webdl":  "WEB-DL",
	"web-dl": "WEB-DL",
	"webrip": "WEBRip",
}

// languageHints map explicit language tokens to the stored preference.
// Requests without a hint default to hebrew, the community's language.
var languageHints = map[string]string{
	"עברית":     "hebrew",
	"כתוביות":   "hebrew",
	"מדובב":     "hebrew",
	"דובב":      "hebrew",
	"hebrew":    "hebrew",
	"אנגלית":    "english",
	"english":   "english",
	"subtitles": "english",
	"dubbed":    "english",
}

// keywordRule is a normalized term (single word or space-joined phrase)
// with its category-evidence weight.
type keywordRule struct {
	term   string
	weight int
}

// categoryRules score category evidence per normalized term. Weights
// follow a strong/medium/weak ladder: an explicit genre word counts 5, a
// related word 3, a platform hint 1.
var categoryRules = map[domain.Category][]keywordRule{
	domain.CategorySeries: {
		{"סדרה", 5}, {"סדרת", 5}, {"הסדרה", 5}, {"עונה", 5}, {"פרק", 5},
		{"season", 5}, {"episode", 5},
		{"series", 3}, {"show", 3}, {"tv", 3},
		{"netflix", 1}, {"hbo", 1}, {"disney", 1},
	},
	domain.CategoryMovies: {
		{"סרט", 5}, {"הסרט", 5}, {"movie", 5}, {"film", 5},
		{"cinema", 3}, {"במאי", 3}, {"שחקן", 3},
		{"trailer", 1}, {"imdb", 1},
	},
	domain.CategoryAnime: {
		{"אנימה", 5}, {"anime", 5}, {"מנגה", 5}, {"manga", 5},
		{"crunchyroll", 3},
		{"יפני", 1}, {"japanese", 1},
	},
	domain.CategoryGames: {
		{"משחק", 5}, {"המשחק", 5}, {"game", 5},
		{"gaming", 3}, {"steam", 3}, {"xbox", 3}, {"playstation", 3},
		{"pc", 1}, {"ps5", 1}, {"ps4", 1},
	},
	domain.CategoryBooks: {
		{"ספר", 5}, {"הספר", 5}, {"book", 5},
		{"pdf", 3}, {"epub", 3}, {"novel", 3}, {"קריאה", 3},
		{"audiobook", 1}, {"ebook", 1},
	},
	domain.CategoryApps: {
		{"אפליקציה", 5}, {"האפליקציה", 5}, {"תוכנה", 5}, {"app", 5},
		{"software", 3}, {"apk", 3}, {"תוכנת", 3},
		{"android", 1}, {"ios", 1}, {"windows", 1},
	},
}

// Priority keyword tables. The community once ran a separate VIP tier;
// here its markers fold into urgent.
var (
	urgentKeywords = []string{
		"דחוף", "דחופה", "חירום", "קריטי", "מיידי", "עכשיו",
		"urgent", "emergency", "critical", "asap", "now", "immediately",
		"vip", "פרימיום", "premium", "בלעדי", "exclusive", "תורם", "donor",
	}
	highKeywords = []string{
		"חשוב", "בקרוב", "important", "נואש",
		"צריך מהר", "מחפש הרבה זמן", "חפשתי בכל מקום", "לא מוצא",
		"פרויקט", "עבודה", "לימודים", "חשוב לי", "זקוק",
	}
	lowKeywords = []string{
		"אם אפשר", "כשיהיה זמן", "לא דחוף", "whenever", "no rush",
	}
)

// Confidence weights per successfully matched field, additive and capped
// at 100. Monotonic: matching more fields never lowers the score.
const (
	weightTitle    = 30
	weightCategory = 25
	weightYear     = 15
	weightSeason   = 10
	weightEpisode  = 10
	weightQuality  = 10
	weightLanguage = 5

	maxConfidence = 100

	// titleWordLimit bounds how much of a rambling message becomes the
	// title after markers are stripped.
	titleWordLimit = 10
)
