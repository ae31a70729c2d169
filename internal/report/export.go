package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"qualifier/internal/evidence/profile"
	"qualifier/internal/qualification"
	"qualifier/internal/registration"
)

// AppendedColumns are added after the input columns, in this order.
var AppendedColumns = []string{
	"is_duplicate",
	"duplicate_group",
	"duplicate_position",
	"email_matches",
	"email_has_reserved_domain",
	"program_email_has_reserved_domain",
	"profile_creation_year",
	"profile_badge_count",
	"profile_league",
	"profile_points",
	"profile_badges",
	"profile_status",
	"qualification_status",
	"qualification_reason",
}

// WriteCSV writes the results table: the input columns except those named in
// drop, followed by AppendedColumns. Rows follow the order of outcomes.
func WriteCSV(w io.Writer, ds *registration.Dataset, outcomes []qualification.Outcome, drop []string) error {
	if ds == nil {
		return fmt.Errorf("dataset is required")
	}
	keep := make([]int, 0, len(ds.Header))
	for i, col := range ds.Header {
		if !slices.Contains(drop, col) {
			keep = append(keep, i)
		}
	}

	cw := csv.NewWriter(w)
	header := make([]string, 0, len(keep)+len(AppendedColumns))
	for _, i := range keep {
		header = append(header, ds.Header[i])
	}
	header = append(header, AppendedColumns...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, o := range outcomes {
		if o.Entry.Row < 0 || o.Entry.Row >= len(ds.Rows) {
			return fmt.Errorf("outcome refers to row %d outside the dataset", o.Entry.Row)
		}
		raw := ds.Rows[o.Entry.Row]
		row := make([]string, 0, len(header))
		for _, i := range keep {
			if i < len(raw) {
				row = append(row, raw[i])
			} else {
				row = append(row, "")
			}
		}
		row = append(row, resultCells(o)...)
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", o.Entry.Row, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush results: %w", err)
	}
	return nil
}

func resultCells(o qualification.Outcome) []string {
	e := o.Entry
	var year, badges, league, points, list string
	if ev := o.Evidence; ev != nil {
		year = optInt(ev.CreationYear)
		badges = optInt(ev.BadgeCount)
		points = optInt(ev.Points)
		if ev.League != nil {
			league = *ev.League
		}
		list = formatBadges(ev.Badges)
	}
	return []string{
		strconv.FormatBool(e.IsDuplicate),
		strconv.Itoa(e.Group),
		strconv.Itoa(e.Position),
		strconv.FormatBool(o.EmailMatches),
		strconv.FormatBool(o.EmailHasDomain),
		strconv.FormatBool(o.ProgramEmailHasDomain),
		year,
		badges,
		league,
		points,
		list,
		o.ProfileStatus,
		string(o.Verdict.Status),
		o.Verdict.Reason,
	}
}

func optInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

// formatBadges renders "Name (YYYY-MM-DD); Name" for the export.
func formatBadges(badges []profile.Badge) string {
	parts := make([]string, 0, len(badges))
	for _, b := range badges {
		if b.EarnedDate == "" {
			parts = append(parts, b.Name)
			continue
		}
		parts = append(parts, b.Name+" ("+b.EarnedDate+")")
	}
	return strings.Join(parts, "; ")
}
