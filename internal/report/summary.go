// Package report aggregates qualification outcomes into the run summary and
// writes the exported results table.
package report

import (
	"sort"

	"qualifier/internal/evidence/profile"
	"qualifier/internal/qualification"
)

// StatusCount is one line of a status breakdown. Percent is relative to the
// breakdown's own denominator.
type StatusCount struct {
	Status  qualification.Status
	Count   int
	Percent float64
}

// Person identifies one record in a named listing.
type Person struct {
	Row          int
	Name         string
	Email        string
	ProgramEmail string
	Reason       string
}

// DuplicateMember is one record of a duplicate group.
type DuplicateMember struct {
	Name     string
	Email    string
	Position int
	Status   qualification.Status
}

// DuplicateGroup lists every record sharing one phone number.
type DuplicateGroup struct {
	Phone   string
	Members []DuplicateMember
}

// BadgeCount is how many profiles show a tracked badge.
type BadgeCount struct {
	Badge string
	Count int
}

// Summary is the aggregate view of one run.
type Summary struct {
	Total        int
	UniquePhones int
	// Duplicates counts group members after position 1.
	Duplicates int
	// Breakdown is over all records; percentages use Total.
	Breakdown []StatusCount

	Valid        int
	ValidPercent float64
	// ValidBreakdown is over the valid subset; percentages use Valid.
	ValidBreakdown []StatusCount

	Qualified             int
	QualifiedPercent      float64
	ActionRequired        int
	ActionRequiredPercent float64

	// Interrupted counts records finalized without evidence because the run stopped.
	Interrupted int

	DuplicateGroups []DuplicateGroup
	HardQualified   []Person
	Tier2           []Person
	Flagged         []Person
	Disqualified    []Person
	TrackedBadges   []BadgeCount
}

// Summarize aggregates outcomes, which are expected in grouped order.
// trackedBadges may be empty.
func Summarize(outcomes []qualification.Outcome, trackedBadges []string) Summary {
	s := Summary{Total: len(outcomes)}

	phones := make(map[string]struct{})
	all := make(map[qualification.Status]int)
	valid := make(map[qualification.Status]int)
	groups := make(map[int]int)

	for _, o := range outcomes {
		e := o.Entry
		status := o.Verdict.Status
		if e.Phone != "" {
			phones[e.Phone] = struct{}{}
		}
		if e.Position > 1 {
			s.Duplicates++
		}
		if o.ProfileStatus == profile.StatusInterrupted {
			s.Interrupted++
		}
		all[status]++

		if status.IsValidEntry() {
			s.Valid++
			valid[status]++
		}
		if status.IsQualified() {
			s.Qualified++
		}
		if status.RequiresAction() {
			s.ActionRequired++
		}

		if e.IsDuplicate {
			idx, ok := groups[e.Group]
			if !ok {
				idx = len(s.DuplicateGroups)
				groups[e.Group] = idx
				s.DuplicateGroups = append(s.DuplicateGroups, DuplicateGroup{Phone: e.Phone})
			}
			s.DuplicateGroups[idx].Members = append(s.DuplicateGroups[idx].Members, DuplicateMember{
				Name:     e.Name,
				Email:    e.Email,
				Position: e.Position,
				Status:   status,
			})
		}

		p := Person{Row: e.Row, Name: e.Name, Email: e.Email, ProgramEmail: e.ProgramEmail, Reason: o.Verdict.Reason}
		switch status {
		case qualification.StatusHardQualified:
			s.HardQualified = append(s.HardQualified, p)
		case qualification.StatusQualifiedTier2:
			s.Tier2 = append(s.Tier2, p)
		case qualification.StatusFlaggedDiff:
			s.Flagged = append(s.Flagged, p)
		case qualification.StatusDisqualified:
			s.Disqualified = append(s.Disqualified, p)
		}
	}

	s.UniquePhones = len(phones)
	s.Breakdown = breakdown(all, s.Total)
	s.ValidPercent = percent(s.Valid, s.Total)
	s.ValidBreakdown = breakdown(valid, s.Valid)
	s.QualifiedPercent = percent(s.Qualified, s.Valid)
	s.ActionRequiredPercent = percent(s.ActionRequired, s.Valid)
	s.TrackedBadges = countBadges(outcomes, trackedBadges)
	return s
}

// percent returns 100*n/d, or 0 when d is 0.
func percent(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d) * 100
}

// breakdown orders statuses by count, most frequent first, with ties in rule order.
func breakdown(counts map[qualification.Status]int, denominator int) []StatusCount {
	out := make([]StatusCount, 0, len(counts))
	for status, n := range counts {
		out = append(out, StatusCount{Status: status, Count: n, Percent: percent(n, denominator)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Status.Rank() < out[j].Status.Rank()
	})
	return out
}

func countBadges(outcomes []qualification.Outcome, tracked []string) []BadgeCount {
	if len(tracked) == 0 {
		return nil
	}
	out := make([]BadgeCount, 0, len(tracked))
	for _, name := range tracked {
		n := 0
		for _, o := range outcomes {
			if _, ok := o.Evidence.EarnedBadge(name); ok {
				n++
			}
		}
		out = append(out, BadgeCount{Badge: name, Count: n})
	}
	return out
}
