// Package sentiment scores news headlines and aggregates them into a daily series that can be
// joined onto price rows.
package sentiment

import (
	"regexp"
	"strings"

	"github.com/jonreiter/govader"
)

var (
	urlPattern       = regexp.MustCompile(`http\S+`)
	nonLetterPattern = regexp.MustCompile(`[^a-zA-Z\s]`)
)

// Polarity scores a single piece of text in [-1, 1]
type Polarity interface {
	Score(text string) float64
}

// CleanText removes URLs and anything that is not a letter or whitespace, then lower cases
func CleanText(text string) string {
	text = urlPattern.ReplaceAllString(text, "")
	text = nonLetterPattern.ReplaceAllString(text, "")
	return strings.ToLower(text)
}

// Scorer computes the VADER compound polarity of cleaned headline text
type Scorer struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

// NewScorer loads the VADER lexicon. The analyzer is read only after construction and safe to
// share across goroutines.
func NewScorer() *Scorer {
	return &Scorer{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

// Score returns the compound score of text. Text with no lexicon words scores 0.
func (s *Scorer) Score(text string) float64 {
	cleaned := CleanText(text)
	if strings.TrimSpace(cleaned) == "" {
		return 0
	}
	return s.analyzer.PolarityScores(cleaned).Compound
}
