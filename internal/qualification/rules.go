package qualification

import (
	"fmt"

	"qualifier/internal/registration"
)

// Rule is one predicate/verdict pair. Rules are evaluated in order and the
// first match wins.
type Rule struct {
	Status Status
	Match  func(p Policy, in Input, f Facts) bool
	Reason func(p Policy, in Input, f Facts) string
}

// Facts are the evidence signals after the zero-or-absent folding: a missing
// badge count or point total reads as zero and a missing league as "".
type Facts struct {
	HasYear bool
	Year    int
	Badges  int
	Points  int
	League  string
}

// EmptyProfile reports whether the profile shows no badges, points or league.
func (f Facts) EmptyProfile() bool {
	return f.Badges == 0 && f.Points == 0 && f.League == ""
}

// FactsOf folds the optional evidence fields of in.
func FactsOf(in Input) Facts {
	var f Facts
	ev := in.Evidence
	if ev == nil {
		return f
	}
	if ev.CreationYear != nil {
		f.HasYear = true
		f.Year = *ev.CreationYear
	}
	if ev.BadgeCount != nil {
		f.Badges = *ev.BadgeCount
	}
	if ev.Points != nil {
		f.Points = *ev.Points
	}
	if ev.League != nil {
		f.League = *ev.League
	}
	return f
}

func reason(text string) func(Policy, Input, Facts) string {
	return func(Policy, Input, Facts) string { return text }
}

// Rules is the ordered rule table. The order is part of the contract: a
// record matching several rules always gets the earliest one.
var Rules = []Rule{
	// Rule 1: any required identity field missing
	{
		Status: StatusIncomplete,
		Match: func(_ Policy, in Input, _ Facts) bool {
			return !in.Entry.HasRequiredFields()
		},
		Reason: reason("Missing required fields (Name, Email, or Phone)"),
	},
	// Rule 2: consent column present and not the accepted answer
	{
		Status: StatusTermsDeclined,
		Match: func(p Policy, in Input, _ Facts) bool {
			return in.ConsentColumn && in.Entry.Consent != p.AcceptedConsent
		},
		Reason: reason("Terms and conditions not accepted"),
	},
	// Rule 3: nothing to look up
	{
		Status: StatusNoProfileURL,
		Match: func(_ Policy, in Input, _ Facts) bool {
			return in.Entry.ProfileURL == ""
		},
		Reason: reason("Profile URL missing"),
	},
	// Rule 4: later members of a phone-number group
	{
		Status: StatusDuplicate,
		Match: func(_ Policy, in Input, _ Facts) bool {
			return in.Entry.Position > 1
		},
		Reason: func(_ Policy, in Input, _ Facts) string {
			return fmt.Sprintf("Duplicate entry #%d for same phone number", in.Entry.Position)
		},
	},
	// Rule 5: program-issued address on a new, untouched account
	{
		Status: StatusHardQualified,
		Match: func(p Policy, in Input, f Facts) bool {
			return registration.HasDomain(in.Entry.Email, p.ReservedDomain) &&
				f.HasYear && f.Year == p.ProgramYear && f.EmptyProfile()
		},
		Reason: func(p Policy, _ Input, _ Facts) string {
			return fmt.Sprintf("Reserved domain + %d creation + empty profile", p.ProgramYear)
		},
	},
	// Rule 6: self-consistent emails on a new, untouched account
	{
		Status: StatusQualifiedTier2,
		Match: func(p Policy, in Input, f Facts) bool {
			return in.Entry.EmailsMatch() &&
				f.HasYear && f.Year == p.ProgramYear && f.EmptyProfile()
		},
		Reason: func(p Policy, _ Input, _ Facts) string {
			return fmt.Sprintf("Matching emails + %d creation + empty profile", p.ProgramYear)
		},
	},
	// Rule 7: program email is reserved but the contact email differs
	{
		Status: StatusFlaggedDiff,
		Match: func(p Policy, in Input, _ Facts) bool {
			return !in.Entry.EmailsMatch() && registration.HasDomain(in.Entry.ProgramEmail, p.ReservedDomain)
		},
		Reason: reason("Different email but program email has reserved domain"),
	},
	// Rule 8: any badge disqualifies
	{
		Status: StatusDisqualified,
		Match: func(_ Policy, _ Input, f Facts) bool {
			return f.Badges > 0
		},
		Reason: func(_ Policy, _ Input, f Facts) string {
			return fmt.Sprintf("Has %d badges", f.Badges)
		},
	},
	// Rule 9: older account that was never used
	{
		Status: StatusCautionPreYear,
		Match: func(p Policy, _ Input, f Facts) bool {
			return f.HasYear && f.Year < p.ProgramYear && f.EmptyProfile()
		},
		Reason: func(_ Policy, _ Input, f Facts) string {
			return fmt.Sprintf("Created in %d but empty profile", f.Year)
		},
	},
	// Rule 10: current-year account that did not qualify above
	{
		Status: StatusReviewNeeded,
		Match: func(p Policy, _ Input, f Facts) bool {
			return f.HasYear && f.Year == p.ProgramYear
		},
		Reason: func(p Policy, _ Input, f Facts) string {
			return fmt.Sprintf("%d account with %d badges, %d points", p.ProgramYear, f.Badges, f.Points)
		},
	},
	// Rule 11: older account with activity
	{
		Status: StatusReviewPreYear,
		Match: func(p Policy, _ Input, f Facts) bool {
			return f.HasYear && f.Year < p.ProgramYear
		},
		Reason: func(p Policy, _ Input, f Facts) string {
			return fmt.Sprintf("Pre-%d account (%d) needs review", p.ProgramYear, f.Year)
		},
	},
	// Rule 12: no usable creation year
	{
		Status: StatusUnknown,
		Match: func(Policy, Input, Facts) bool {
			return true
		},
		Reason: reason("Could not determine profile details"),
	},
}

// Classify returns the verdict of the first matching rule. It is total: the
// last rule always matches.
func Classify(p Policy, in Input) Verdict {
	f := FactsOf(in)
	for _, r := range Rules {
		if r.Match(p, in, f) {
			return Verdict{Status: r.Status, Reason: r.Reason(p, in, f)}
		}
	}
	return Verdict{Status: StatusUnknown, Reason: "Could not determine profile details"}
}
