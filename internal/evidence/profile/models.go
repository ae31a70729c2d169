package profile

import (
	"strings"
	"time"
)

// Evidence status values. Failed fetches use "error: <message>".
const (
	StatusSuccess     = "success"
	StatusSkipped     = "skipped"
	StatusInterrupted = "skipped: interrupted"
	statusErrorPrefix = "error: "
)

// Badge is one badge-marker element on a profile page.
type Badge struct {
	Name string `json:"name"`
	// EarnedDate is YYYY-MM-DD when the page text could be parsed, otherwise
	// the text as shown.
	EarnedDate string `json:"earned_date,omitempty"`
}

// Evidence holds externally observed profile attributes. Content fields are
// nil when the page did not carry the marker or the fetch failed.
type Evidence struct {
	URL          string    `json:"url"`
	CreationText *string   `json:"creation_text,omitempty"`
	CreationYear *int      `json:"creation_year,omitempty"`
	BadgeCount   *int      `json:"badge_count,omitempty"`
	League       *string   `json:"league,omitempty"`
	Points       *int      `json:"points,omitempty"`
	Badges       []Badge   `json:"badges,omitempty"`
	Status       string    `json:"status"`
	FetchedAt    time.Time `json:"fetched_at"`
}

// Succeeded reports whether the page was fetched and parsed.
func (e *Evidence) Succeeded() bool {
	return e != nil && e.Status == StatusSuccess
}

// Failed reports whether every fetch attempt failed.
func (e *Evidence) Failed() bool {
	return e != nil && strings.HasPrefix(e.Status, statusErrorPrefix)
}

// Unavailable builds the evidence value returned after the final failed attempt.
func Unavailable(url string, err error, at time.Time) Evidence {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return Evidence{URL: url, Status: statusErrorPrefix + msg, FetchedAt: at}
}

// EarnedBadge returns the badge with the given name, if the profile shows it.
func (e *Evidence) EarnedBadge(name string) (Badge, bool) {
	if e == nil {
		return Badge{}, false
	}
	for _, b := range e.Badges {
		if b.Name == name {
			return b, true
		}
	}
	return Badge{}, false
}
