package moderation

import (
	"strings"

	"github.com/wardenhq/warden/internal/models"
)

// URLImageScorer scores images from URL tokens alone. It is a stand-in for
// a vision classifier behind the ImageScorer interface: it never fetches
// the referenced resource and accepts any syntactically valid reference.
type URLImageScorer struct{}

var _ ImageScorer = (*URLImageScorer)(nil)

// NewURLImageScorer returns the default heuristic image scorer.
func NewURLImageScorer() *URLImageScorer {
	return &URLImageScorer{}
}

var (
	nsfwTokens     = []string{"nsfw", "adult", "xxx", "explicit"}
	violenceTokens = []string{"violence", "violent", "weapon", "gore", "blood"}
)

const (
	nsfwHitScore     = 0.9
	violenceHitScore = 0.8
	baselineScore    = 0.1
)

// ScoreImage returns nsfw and violence scores derived from the URL.
func (s *URLImageScorer) ScoreImage(url string) models.ScoreSet {
	lower := strings.ToLower(url)

	scores := models.ScoreSet{
		models.DimNSFW:     baselineScore,
		models.DimViolence: baselineScore,
	}
	if url == "" {
		scores[models.DimNSFW] = 0
		scores[models.DimViolence] = 0
		return scores
	}
	if containsAny(lower, nsfwTokens) {
		scores[models.DimNSFW] = nsfwHitScore
	}
	if containsAny(lower, violenceTokens) {
		scores[models.DimViolence] = violenceHitScore
	}
	return scores
}

func containsAny(s string, tokens []string) bool {
	for _, tok := range tokens {
		if strings.Contains(s, tok) {
			return true
		}
	}
	return false
}
