package models

// TrustLevel is the discrete tier derived from a reputation score. Tiers
// are ordered; comparisons use Rank.
type TrustLevel string

const (
	TrustRestricted  TrustLevel = "restricted"
	TrustNew         TrustLevel = "new"
	TrustEstablished TrustLevel = "established"
	TrustTrusted     TrustLevel = "trusted"
)

// Rank returns the ordinal position of the trust level, restricted being
// lowest. Unknown levels rank below restricted.
func (t TrustLevel) Rank() int {
	switch t {
	case TrustRestricted:
		return 0
	case TrustNew:
		return 1
	case TrustEstablished:
		return 2
	case TrustTrusted:
		return 3
	}
	return -1
}

// ReputationEvent names a reputation-changing occurrence. Deltas live in
// the reputation package configuration.
type ReputationEvent string

const (
	EventPositiveContribution ReputationEvent = "positive_contribution"
	EventContentApproved      ReputationEvent = "content_approved"
	EventViolation            ReputationEvent = "violation"
	EventSpamViolation        ReputationEvent = "spam_violation"
	EventHarassment           ReputationEvent = "harassment"
	EventFalseReport          ReputationEvent = "false_report"
	EventAppealApproved       ReputationEvent = "appeal_approved"
)

// UserAction is a permission-gated activity checked against trust level.
type UserAction string

const (
	UserActionPost     UserAction = "post"
	UserActionComment  UserAction = "comment"
	UserActionReport   UserAction = "report"
	UserActionModerate UserAction = "moderate"
)

// ReputationChange describes the result of applying one reputation event.
type ReputationChange struct {
	UserID             string          `json:"user_id"`
	Event              ReputationEvent `json:"event"`
	PreviousReputation int             `json:"previous_reputation"`
	NewReputation      int             `json:"new_reputation"`
	Change             int             `json:"change"`
	TrustLevel         TrustLevel      `json:"trust_level"`
}
