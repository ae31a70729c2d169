package registration

import "strings"

// Columns maps each field the engine reads to its header in the input file.
// Consent may be empty, in which case the consent rule never applies.
type Columns struct {
	Name         string
	Email        string
	ProgramEmail string
	Phone        string
	Consent      string
	ProfileURL   string
}

// Record is one submitted registration form. Fields hold trimmed cell values;
// an empty string means the cell was absent or blank.
type Record struct {
	// Row is the 0-based position of the record in the input file.
	Row          int
	Name         string
	Email        string
	ProgramEmail string
	Phone        string
	// Consent is only meaningful when the owning Dataset has a consent column.
	// It keeps the raw cell because it must equal the accepted answer exactly.
	Consent    string
	ProfileURL string
}

// HasRequiredFields reports whether name, both emails and phone are present.
func (r Record) HasRequiredFields() bool {
	return r.Name != "" && r.Email != "" && r.ProgramEmail != "" && r.Phone != ""
}

// EmailsMatch reports whether the declared email equals the program email.
func (r Record) EmailsMatch() bool {
	return r.Email != "" && r.Email == r.ProgramEmail
}

// HasDomain reports whether email contains the reserved-domain marker,
// compared case-insensitively as a literal substring.
func HasDomain(email, marker string) bool {
	if email == "" || marker == "" {
		return false
	}
	return strings.Contains(strings.ToLower(email), strings.ToLower(marker))
}

// Dataset is the parsed input file. Header and Rows keep the original cells so
// exports can mirror the input table.
type Dataset struct {
	Header     []string
	Rows       [][]string
	Records    []Record
	HasConsent bool
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	return len(d.Records)
}
