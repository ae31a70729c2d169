package profile

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseFile(t *testing.T, name string) Evidence {
	t.Helper()
	f, err := os.Open("testdata/" + name)
	require.NoError(t, err)
	defer f.Close()

	ev, err := Parse(f)
	require.NoError(t, err)
	return ev
}

func TestParse_FullProfile(t *testing.T) {
	ev := parseFile(t, "profile_full.html")

	require.NotNil(t, ev.CreationText)
	assert.Equal(t, "Member since 2025", *ev.CreationText)
	require.NotNil(t, ev.CreationYear)
	assert.Equal(t, 2025, *ev.CreationYear)

	require.NotNil(t, ev.BadgeCount)
	assert.Equal(t, 3, *ev.BadgeCount)

	require.NotNil(t, ev.League)
	assert.Equal(t, "Silver League", *ev.League)
	require.NotNil(t, ev.Points)
	assert.Equal(t, 2, *ev.Points, "points are the first integer substring")

	assert.Equal(t, []Badge{
		{Name: "The Basics of Google Cloud Compute", EarnedDate: "2025-10-08"},
		{Name: "Get Started with Pub/Sub", EarnedDate: "2025-01-15"},
		{Name: "Level 3: Generative AI", EarnedDate: "sometime"},
	}, ev.Badges)
}

func TestParse_EmptyProfile(t *testing.T) {
	ev := parseFile(t, "profile_empty.html")

	require.NotNil(t, ev.CreationYear)
	assert.Equal(t, 2025, *ev.CreationYear)
	require.NotNil(t, ev.BadgeCount)
	assert.Zero(t, *ev.BadgeCount)
	assert.Nil(t, ev.League)
	assert.Nil(t, ev.Points)
	assert.Empty(t, ev.Badges)
}

func TestParse_MissingMarkersLeaveFieldsNil(t *testing.T) {
	tests := []struct {
		name  string
		html  string
		check func(t *testing.T, ev Evidence)
	}{
		{
			name: "no creation marker",
			html: `<html><body><p class="other">Member since 2020</p></body></html>`,
			check: func(t *testing.T, ev Evidence) {
				assert.Nil(t, ev.CreationText)
				assert.Nil(t, ev.CreationYear)
			},
		},
		{
			name: "creation text without year",
			html: `<p class="ql-body-large l-mbl">Joined recently</p>`,
			check: func(t *testing.T, ev Evidence) {
				require.NotNil(t, ev.CreationText)
				assert.Nil(t, ev.CreationYear)
			},
		},
		{
			name: "league without points",
			html: `<div class="profile-league"><h2 class="ql-headline-medium">Bronze</h2><strong>no points yet</strong></div>`,
			check: func(t *testing.T, ev Evidence) {
				require.NotNil(t, ev.League)
				assert.Equal(t, "Bronze", *ev.League)
				assert.Nil(t, ev.Points)
			},
		},
		{
			name: "league block without heading",
			html: `<div class="profile-league"><strong>15 points</strong></div>`,
			check: func(t *testing.T, ev Evidence) {
				assert.Nil(t, ev.League)
				require.NotNil(t, ev.Points)
				assert.Equal(t, 15, *ev.Points)
			},
		},
		{
			name: "badge without title still counts",
			html: `<div class="profile-badge"><img src="x"></div><div class="profile-badge"><span class="ql-title-medium">A</span></div>`,
			check: func(t *testing.T, ev Evidence) {
				require.NotNil(t, ev.BadgeCount)
				assert.Equal(t, 2, *ev.BadgeCount)
				assert.Equal(t, []Badge{{Name: "A"}}, ev.Badges)
			},
		},
		{
			name: "not html at all",
			html: `{"error":"nope"}`,
			check: func(t *testing.T, ev Evidence) {
				assert.Nil(t, ev.CreationYear)
				require.NotNil(t, ev.BadgeCount)
				assert.Zero(t, *ev.BadgeCount)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := Parse(strings.NewReader(tt.html))
			require.NoError(t, err)
			tt.check(t, ev)
		})
	}
}

func TestNormalizeEarnedDate(t *testing.T) {
	assert.Equal(t, "2025-10-08", NormalizeEarnedDate("Earned Oct  8, 2025 EDT"))
	assert.Equal(t, "2025-01-15", NormalizeEarnedDate("Jan 15, 2025 PST"))
	assert.Equal(t, "2024-12-01", NormalizeEarnedDate("  Dec 1, 2024  "))
	assert.Equal(t, "last week", NormalizeEarnedDate("Earned last week"))
}
