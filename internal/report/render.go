package report

import (
	"fmt"
	"io"
	"strings"
)

const rule = "================================================================================"

// RenderText writes the console summary of s.
func RenderText(w io.Writer, s Summary) error {
	p := &printer{w: w}

	p.line("")
	p.line(rule)
	p.line("FINAL ANALYSIS SUMMARY")
	p.line(rule)

	p.line("OVERALL STATISTICS:")
	p.line("  Total Entries: %d", s.Total)
	p.line("  Unique Phone Numbers: %d", s.UniquePhones)
	p.line("  Duplicate Entries: %d", s.Duplicates)
	if s.Interrupted > 0 {
		p.line("  Interrupted Before Profile Check: %d", s.Interrupted)
	}

	p.line("")
	p.line("QUALIFICATION STATUS BREAKDOWN:")
	for _, c := range s.Breakdown {
		p.line("  %s: %d (%.1f%%)", c.Status, c.Count, c.Percent)
	}

	p.line("")
	p.line("VALID ENTRIES ANALYSIS:")
	p.line("  Total Valid Entries: %d out of %d (%.1f%%)", s.Valid, s.Total, s.ValidPercent)
	if s.Valid > 0 {
		p.line("  Valid Entries Breakdown:")
		for _, c := range s.ValidBreakdown {
			p.line("    %s: %d (%.1f%%)", c.Status, c.Count, c.Percent)
		}
	}

	p.line("")
	p.line("QUALIFIED CANDIDATES:")
	p.line("  Total Qualified: %d out of %d valid entries (%.1f%%)", s.Qualified, s.Valid, s.QualifiedPercent)

	p.line("")
	p.line("ACTION REQUIRED:")
	p.line("  Entries Needing Review: %d out of %d valid entries (%.1f%%)", s.ActionRequired, s.Valid, s.ActionRequiredPercent)

	if len(s.DuplicateGroups) > 0 {
		members := 0
		for _, g := range s.DuplicateGroups {
			members += len(g.Members)
		}
		p.line("")
		p.line("DUPLICATE ENTRIES (%d):", members)
		for _, g := range s.DuplicateGroups {
			p.line("")
			p.line("  Phone: %s", g.Phone)
			for _, m := range g.Members {
				marker := "[first]"
				if m.Position > 1 {
					marker = fmt.Sprintf("[dup #%d]", m.Position)
				}
				p.line("    %s %s - %s (%s)", marker, m.Name, m.Email, m.Status)
			}
		}
	}

	p.section("HARD QUALIFIED", s.HardQualified, func(x Person) string {
		return fmt.Sprintf("%s (%s)", x.Name, x.Email)
	})
	p.section("TIER 2 QUALIFIED", s.Tier2, func(x Person) string {
		return fmt.Sprintf("%s (%s)", x.Name, x.Email)
	})
	p.section("FLAGGED DIFFERENT ACCOUNTS", s.Flagged, func(x Person) string {
		return fmt.Sprintf("%s (Email: %s, Program email: %s)", x.Name, x.Email, x.ProgramEmail)
	})
	p.section("DISQUALIFIED", s.Disqualified, func(x Person) string {
		return fmt.Sprintf("%s - %s", x.Name, x.Reason)
	})

	if len(s.TrackedBadges) > 0 {
		p.line("")
		p.line("BADGE EARNED COUNTS:")
		for _, b := range s.TrackedBadges {
			p.line("  %s: %d users", b.Badge, b.Count)
		}
	}
	return p.err
}

// printer keeps the first write error so rendering reads top to bottom.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) line(format string, args ...any) {
	if p.err != nil {
		return
	}
	if len(args) == 0 {
		_, p.err = io.WriteString(p.w, format+"\n")
		return
	}
	_, p.err = fmt.Fprintf(p.w, format+"\n", args...)
}

func (p *printer) section(title string, people []Person, format func(Person) string) {
	p.line("")
	p.line("%s (%d):", title, len(people))
	for _, x := range people {
		p.line("  - %s", strings.TrimSpace(format(x)))
	}
}
