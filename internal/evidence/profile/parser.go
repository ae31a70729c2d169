package profile

import (
	"fmt"
	"io"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"
)

var (
	memberSinceRe = regexp.MustCompile(`Member since (\d{4})`)
	firstIntRe    = regexp.MustCompile(`\d+`)
)

// earnedLayout matches "Oct 8, 2025" after whitespace is collapsed.
const earnedLayout = "Jan 2, 2006"

// Parse extracts profile attributes from a public profile page. Each missing
// marker leaves its field nil; only an unreadable document is an error.
func Parse(r io.Reader) (Evidence, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return Evidence{}, fmt.Errorf("parse profile html: %w", err)
	}

	var ev Evidence

	// Rule 1: creation marker "Member since YYYY"
	if p := findFirst(doc, "p", "ql-body-large", "l-mbl"); p != nil {
		text := strings.TrimSpace(textContent(p))
		ev.CreationText = &text
		if m := memberSinceRe.FindStringSubmatch(text); m != nil {
			if year, err := strconv.Atoi(m[1]); err == nil {
				ev.CreationYear = &year
			}
		}
	}

	// Rule 2: badge markers; the count is the number of elements even when
	// a badge carries no readable title
	badges := findAll(doc, "div", "profile-badge")
	count := len(badges)
	ev.BadgeCount = &count
	for _, b := range badges {
		title := findFirst(b, "span", "ql-title-medium")
		if title == nil {
			continue
		}
		badge := Badge{Name: collapse(textContent(title))}
		if date := findFirst(b, "span", "ql-body-medium"); date != nil {
			badge.EarnedDate = NormalizeEarnedDate(textContent(date))
		}
		ev.Badges = append(ev.Badges, badge)
	}

	// Rule 3: league block with a name heading and a points string
	if league := findFirst(doc, "div", "profile-league"); league != nil {
		if h := findFirst(league, "h2", "ql-headline-medium"); h != nil {
			name := collapse(textContent(h))
			ev.League = &name
		}
		if s := findFirst(league, "strong"); s != nil {
			if m := firstIntRe.FindString(textContent(s)); m != "" {
				if pts, err := strconv.Atoi(m); err == nil {
					ev.Points = &pts
				}
			}
		}
	}

	return ev, nil
}

// NormalizeEarnedDate turns "Earned Oct  8, 2025 EDT" into "2025-10-08". Text
// that does not parse is returned trimmed, without the "Earned" prefix.
func NormalizeEarnedDate(text string) string {
	text = strings.TrimSpace(strings.Replace(text, "Earned", "", 1))
	cleaned := text
	for _, tz := range []string{"EDT", "EST", "PDT", "PST"} {
		cleaned = strings.ReplaceAll(cleaned, tz, "")
	}
	cleaned = collapse(cleaned)
	if t, err := time.Parse(earnedLayout, cleaned); err == nil {
		return t.Format(time.DateOnly)
	}
	return text
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// findFirst returns the first element in document order below n (n included)
// with the given tag and all of the given classes.
func findFirst(n *html.Node, tag string, classes ...string) *html.Node {
	if matches(n, tag, classes) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, tag, classes...); found != nil {
			return found
		}
	}
	return nil
}

func findAll(n *html.Node, tag string, classes ...string) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if matches(n, tag, classes) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func matches(n *html.Node, tag string, classes []string) bool {
	if n.Type != html.ElementNode || n.Data != tag {
		return false
	}
	if len(classes) == 0 {
		return true
	}
	have := strings.Fields(attr(n, "class"))
	for _, want := range classes {
		if !slices.Contains(have, want) {
			return false
		}
	}
	return true
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
