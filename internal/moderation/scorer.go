// Package moderation implements the content-moderation decision engine:
// heuristic text and image scorers, the threshold policy that turns scores
// into actions, and the manager that orchestrates scoring, logging,
// reputation and appeals.
package moderation

import "github.com/wardenhq/warden/internal/models"

// TextScorer maps a text string to per-dimension scores in [0,1].
// Implementations must be deterministic and side-effect free. Swap in a
// real classifier here without touching the policy or manager.
type TextScorer interface {
	ScoreText(content string) models.ScoreSet
}

// ImageScorer maps an image reference to per-dimension scores in [0,1].
// Implementations never fetch the resource and never fail merely because
// the reference is unreachable.
type ImageScorer interface {
	ScoreImage(url string) models.ScoreSet
}
