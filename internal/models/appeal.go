package models

import "time"

// AppealStatus is the state of an appeal. The only legal transition is
// pending -> approved or pending -> rejected; both are terminal.
type AppealStatus string

const (
	AppealPending  AppealStatus = "pending"
	AppealApproved AppealStatus = "approved"
	AppealRejected AppealStatus = "rejected"
)

// Terminal reports whether the status admits no further transitions.
func (s AppealStatus) Terminal() bool {
	return s == AppealApproved || s == AppealRejected
}

// ValidResolution reports whether s is an acceptable resolution value for
// a pending appeal.
func (s AppealStatus) ValidResolution() bool {
	return s == AppealApproved || s == AppealRejected
}

// Appeal is a user's contest of a prior moderation action. ActionID
// references the LogEntry the appeal is filed against.
type Appeal struct {
	ID         string       `json:"id"`
	UserID     string       `json:"user_id"`
	ActionID   string       `json:"action_id"`
	Reason     string       `json:"reason"`
	Status     AppealStatus `json:"status"`
	ReviewerID string       `json:"reviewer_id,omitempty"`
	ReviewNote string       `json:"review_note,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
	ResolvedAt *time.Time   `json:"resolved_at,omitempty"`
}
