// internal/model/campaign_status.go
package model

var transitions = map[string][]string{
	StatusDraft:            {StatusInReview, StatusScheduled, StatusSent, StatusArchived},
	StatusInReview:         {StatusApproved, StatusChangesRequested, StatusDraft},
	StatusChangesRequested: {StatusInReview, StatusDraft, StatusArchived},
	StatusApproved:         {StatusScheduled, StatusSent, StatusDraft, StatusArchived},
	StatusScheduled:        {StatusSent, StatusDraft, StatusArchived},
	StatusArchived:         {StatusDraft},
	StatusSent:             {},
}

// CanTransition reports whether a campaign may move from one status to another.
// Approval requirements are checked by the caller.
func CanTransition(from, to string) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsValidStatus reports whether s is a known campaign status.
func IsValidStatus(s string) bool {
	_, ok := transitions[s]
	return ok
}

// IsEditableStatus reports whether campaign fields may be changed in status s.
// The edit lock is a separate check.
func IsEditableStatus(s string) bool {
	switch s {
	case StatusDraft, StatusChangesRequested, StatusApproved:
		return true
	}
	return false
}
