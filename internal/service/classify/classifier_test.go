package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackflag/requestbot/internal/domain"
)

func TestClassify_FullyStructuredRequest(t *testing.T) {
	d, err := NewClassifier().Classify("Breaking Bad S02E05 1080p hebrew")
	require.NoError(t, err)

	assert.Equal(t, "Breaking Bad", d.Title)
	assert.Equal(t, domain.CategorySeries, d.Category)
	require.NotNil(t, d.Season)
	assert.Equal(t, 2, *d.Season)
	require.NotNil(t, d.Episode)
	assert.Equal(t, 5, *d.Episode)
	require.NotNil(t, d.Quality)
	assert.Equal(t, "1080p", *d.Quality)
	assert.Equal(t, "hebrew", d.LanguagePref)
	assert.GreaterOrEqual(t, d.Confidence, 80)
}

func TestClassify_CategoryDetection(t *testing.T) {
	tests := []struct {
		name string
		text string
		want domain.Category
	}{
		{"explicit series keyword", "הסדרה The Wire", domain.CategorySeries},
		{"explicit movie keyword", "סרט Inception", domain.CategoryMovies},
		{"english movie keyword", "movie The Godfather", domain.CategoryMovies},
		{"anime", "anime One Piece", domain.CategoryAnime},
		{"game", "המשחק Elden Ring", domain.CategoryGames},
		{"book", "ספר Dune PDF", domain.CategoryBooks},
		{"app", "אפליקציה Photoshop", domain.CategoryApps},
		{"no keywords at all", "Something Completely Vague", domain.CategoryGeneral},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := NewClassifier().Classify(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Category)
		})
	}
}

func TestClassify_StructuralCategoryFallback(t *testing.T) {
	t.Run("episode marker implies series", func(t *testing.T) {
		d, err := NewClassifier().Classify("The Wire S01E03")
		require.NoError(t, err)
		assert.Equal(t, domain.CategorySeries, d.Category)
	})

	t.Run("year with title implies movie", func(t *testing.T) {
		d, err := NewClassifier().Classify("The Godfather 1972")
		require.NoError(t, err)
		assert.Equal(t, domain.CategoryMovies, d.Category)
		require.NotNil(t, d.Year)
		assert.Equal(t, 1972, *d.Year)
	})
}

func TestClassify_SpecificPatternWins(t *testing.T) {
	// An explicit SxxEyy token overrides the bare word guesses around it.
	d, err := NewClassifier().Classify("The Wire S03E07 episode 1")
	require.NoError(t, err)
	require.NotNil(t, d.Season)
	require.NotNil(t, d.Episode)
	assert.Equal(t, 3, *d.Season)
	assert.Equal(t, 7, *d.Episode)
}

func TestClassify_HebrewSeasonEpisodeWords(t *testing.T) {
	d, err := NewClassifier().Classify("הסדרה פאודה עונה 4 פרק 2")
	require.NoError(t, err)
	assert.Equal(t, domain.CategorySeries, d.Category)
	require.NotNil(t, d.Season)
	assert.Equal(t, 4, *d.Season)
	require.NotNil(t, d.Episode)
	assert.Equal(t, 2, *d.Episode)
	assert.Equal(t, "פאודה", d.Title)
}

func TestClassify_QualityCanonicalForms(t *testing.T) {
	tests := []struct{ text, want string }{
		{"Dune 4k", "4K"},
		{"Dune BLURAY", "BluRay"},
		{"Dune web-dl", "WEB-DL"},
		{"Dune 720p", "720p"},
	}
	for _, tt := range tests {
		d, err := NewClassifier().Classify(tt.text)
		require.NoError(t, err)
		require.NotNil(t, d.Quality, tt.text)
		assert.Equal(t, tt.want, *d.Quality)
	}
}

func TestClassify_Priority(t *testing.T) {
	tests := []struct {
		text string
		want domain.Priority
	}{
		{"דחוף The Wire", domain.PriorityUrgent},
		{"The Wire urgent", domain.PriorityUrgent},
		{"The Wire!!", domain.PriorityUrgent},
		{"premium The Wire", domain.PriorityUrgent},
		{"חשוב The Wire", domain.PriorityHigh},
		{"The Wire לא דחוף", domain.PriorityLow},
		{"The Wire", domain.PriorityMedium},
	}
	for _, tt := range tests {
		d, err := NewClassifier().Classify(tt.text)
		require.NoError(t, err)
		assert.Equal(t, tt.want, d.Priority, tt.text)
	}
}

func TestClassify_LanguageDefaultsToHebrew(t *testing.T) {
	d, err := NewClassifier().Classify("The Wire S01E01")
	require.NoError(t, err)
	assert.Equal(t, DefaultLanguage, d.LanguagePref)

	d, err = NewClassifier().Classify("The Wire S01E01 english")
	require.NoError(t, err)
	assert.Equal(t, "english", d.LanguagePref)
}

func TestClassify_ConfidenceMonotonicInMatchedFields(t *testing.T) {
	c := NewClassifier()

	bare, err := c.Classify("The Wire")
	require.NoError(t, err)

	withYear, err := c.Classify("The Wire 2002")
	require.NoError(t, err)
	assert.Greater(t, withYear.Confidence, bare.Confidence)

	full, err := c.Classify("The Wire 2002 S01E01 1080p")
	require.NoError(t, err)
	assert.Greater(t, full.Confidence, withYear.Confidence)
	assert.LessOrEqual(t, full.Confidence, 100)
}

func TestClassify_Unclassifiable(t *testing.T) {
	c := NewClassifier()
	for _, text := range []string{
		"",
		"   ",
		"סדרה",        // category word alone, no title survives
		"את של על עם", // all stopwords
	} {
		_, err := c.Classify(text)
		assert.ErrorIs(t, err, domain.ErrUnclassifiable, "%q", text)
	}
}
