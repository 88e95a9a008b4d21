package moderation

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/wardenhq/warden/internal/models"
)

// Heuristic term lists standing in for a trained classifier. Each matched
// occurrence contributes a fixed increment; scores are clamped to [0,1],
// so adding matching terms never lowers a score.
var (
	toxicTerms = regexp.MustCompile(`(?i)\b(hate|hateful|toxic|abusive|harassment|racism|sexism|discrimination|idiots?|stupid|morons?|worthless|kill yourself|death threats?)\b`)

	spamPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(buy|sale|discount|offer|deal)s?\b[\s\S]*?\b(now|today|limited)\b`),
		regexp.MustCompile(`(?i)click here|visit our website|make money`),
		regexp.MustCompile(`(https?://\S+[\s]*){3,}`),
	}

	urlPattern = regexp.MustCompile(`https?://\S+`)

	insultTerms = regexp.MustCompile(`(?i)\b(idiots?|stupid|morons?|worthless|losers?|pathetic)\b`)

	secondPerson = regexp.MustCompile(`(?i)\byou('?re)?\b|\byour\b`)
)

// profanityWords contribute a small toxicity increment per token.
var profanityWords = map[string]bool{
	"damn": true, "hell": true, "crap": true,
}

const (
	toxicTermWeight   = 0.3
	profanityWeight   = 0.1
	capsRatioWeight   = 0.2
	spamPatternWeight = 0.3
	urlExcessWeight   = 0.3
	repetitionWeight  = 0.3
)

// LexicalScorer scores text with keyword and pattern heuristics. It is
// stateless after construction and safe for concurrent use.
type LexicalScorer struct{}

var _ TextScorer = (*LexicalScorer)(nil)

// NewLexicalScorer returns the default heuristic text scorer.
func NewLexicalScorer() *LexicalScorer {
	return &LexicalScorer{}
}

// ScoreText computes toxicity, harassment and spam scores for content.
// Each dimension is computed independently from the raw text. Empty or
// whitespace-only content yields all-zero scores.
func (s *LexicalScorer) ScoreText(content string) models.ScoreSet {
	scores := models.ScoreSet{
		models.DimToxicity:   0,
		models.DimHarassment: 0,
		models.DimSpam:       0,
	}
	if strings.TrimSpace(content) == "" {
		return scores
	}

	scores[models.DimToxicity] = s.toxicityScore(content)
	scores[models.DimHarassment] = s.harassmentScore(content)
	scores[models.DimSpam] = s.spamScore(content)
	return scores
}

func (s *LexicalScorer) toxicityScore(content string) float64 {
	score := float64(len(toxicTerms.FindAllString(content, -1))) * toxicTermWeight

	for _, word := range strings.Fields(strings.ToLower(content)) {
		if profanityWords[strings.Trim(word, ".,!?;:'\"")] {
			score += profanityWeight
		}
	}

	// A mostly-uppercase message reads as shouting.
	var letters, upper int
	for _, r := range content {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}
	if letters > 0 && float64(upper)/float64(letters) > 0.5 {
		score += capsRatioWeight
	}

	return clamp01(score)
}

func (s *LexicalScorer) harassmentScore(content string) float64 {
	// Insults alone are toxicity; insults aimed at "you" are harassment.
	if !secondPerson.MatchString(content) {
		return 0
	}
	insults := len(insultTerms.FindAllString(content, -1))
	if insults == 0 {
		return 0
	}
	return clamp01(0.2 + 0.15*float64(insults))
}

func (s *LexicalScorer) spamScore(content string) float64 {
	var score float64
	for _, p := range spamPatterns {
		if p.MatchString(content) {
			score += spamPatternWeight
		}
	}
	// Equivalent of `(.)\1{9,}`, which RE2 cannot express (no
	// backreferences): any non-newline character repeated 10+ times.
	if hasLongCharRun(content, 10) {
		score += spamPatternWeight
	}

	if len(urlPattern.FindAllString(content, -1)) > 2 {
		score += urlExcessWeight
	}

	// Low unique-word density signals copy-paste spam.
	words := strings.Fields(strings.ToLower(content))
	if len(words) > 10 {
		unique := make(map[string]struct{}, len(words))
		for _, w := range words {
			unique[w] = struct{}{}
		}
		if float64(len(unique))/float64(len(words)) < 0.3 {
			score += repetitionWeight
		}
	}

	return clamp01(score)
}

func hasLongCharRun(content string, n int) bool {
	var prev rune
	run := 0
	for _, r := range content {
		if r == prev && r != '\n' {
			run++
			if run >= n {
				return true
			}
		} else {
			prev = r
			run = 1
		}
	}
	return false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
