package qualification

import (
	"slices"
	"time"

	"qualifier/internal/evidence/profile"
	"qualifier/internal/registration"
)

// Status is the closed set of qualification verdicts.
type Status string

const (
	StatusIncomplete     Status = "INCOMPLETE_REGISTRATION"
	StatusTermsDeclined  Status = "TERMS_DECLINED"
	StatusNoProfileURL   Status = "NO_PROFILE_URL"
	StatusDuplicate      Status = "DUPLICATE_ENTRY"
	StatusHardQualified  Status = "HARD_QUALIFIED"
	StatusQualifiedTier2 Status = "QUALIFIED_TIER2"
	StatusFlaggedDiff    Status = "FLAGGED_DIFF_ACCOUNT"
	StatusDisqualified   Status = "DISQUALIFIED"
	StatusCautionPreYear Status = "CAUTION_PRE2025"
	StatusReviewNeeded   Status = "REVIEW_NEEDED"
	StatusReviewPreYear  Status = "REVIEW_PRE2025"
	StatusUnknown        Status = "UNKNOWN"
)

// Statuses lists every status in rule order.
var Statuses = []Status{
	StatusIncomplete,
	StatusTermsDeclined,
	StatusNoProfileURL,
	StatusDuplicate,
	StatusHardQualified,
	StatusQualifiedTier2,
	StatusFlaggedDiff,
	StatusDisqualified,
	StatusCautionPreYear,
	StatusReviewNeeded,
	StatusReviewPreYear,
	StatusUnknown,
}

// IsValid reports whether s is one of the known statuses.
func (s Status) IsValid() bool {
	return slices.Contains(Statuses, s)
}

// Rank returns the position of s in rule order, or len(Statuses) if unknown.
func (s Status) Rank() int {
	if i := slices.Index(Statuses, s); i >= 0 {
		return i
	}
	return len(Statuses)
}

// IsShortCircuit reports whether s is decided without profile evidence and
// never re-evaluated.
func (s Status) IsShortCircuit() bool {
	return s == StatusIncomplete || s == StatusTermsDeclined || s == StatusNoProfileURL
}

// IsValidEntry reports whether s counts toward the valid subset.
func (s Status) IsValidEntry() bool {
	return !s.IsShortCircuit() && s != StatusDuplicate
}

// IsQualified reports whether s is a qualifying verdict.
func (s Status) IsQualified() bool {
	return s == StatusHardQualified || s == StatusQualifiedTier2
}

// RequiresAction reports whether s needs a human to follow up.
func (s Status) RequiresAction() bool {
	switch s {
	case StatusFlaggedDiff, StatusReviewNeeded, StatusCautionPreYear, StatusReviewPreYear:
		return true
	}
	return false
}

// Verdict is the (status, reason) pair assigned to one record.
type Verdict struct {
	Status Status
	Reason string
}

// Policy holds the fixed parameters of the rule set for one run.
type Policy struct {
	ProgramYear     int
	ReservedDomain  string
	AcceptedConsent string
}

// Input is everything the rule engine looks at for one record.
type Input struct {
	Entry registration.Entry
	// ConsentColumn is true when the dataset has a consent column.
	ConsentColumn bool
	// Evidence is nil until the profile has been fetched.
	Evidence *profile.Evidence
}

// Outcome is the final, exportable result for one record.
type Outcome struct {
	Entry    registration.Entry
	Verdict  Verdict
	Evidence *profile.Evidence
	// ProfileStatus is the evidence status, "skipped" for short-circuited
	// records and "skipped: interrupted" when the run stopped first.
	ProfileStatus         string
	EmailMatches          bool
	EmailHasDomain        bool
	ProgramEmailHasDomain bool
}

// Run is the result of one qualification pass over a dataset.
type Run struct {
	ID          string
	StartedAt   time.Time
	FinishedAt  time.Time
	Interrupted bool
	// Outcomes are ordered by (duplicate group, duplicate position).
	Outcomes []Outcome
}
