package qualification

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qualifier/internal/evidence/profile"
)

func TestMachine_Start(t *testing.T) {
	m := Machine{Policy: testPolicy, ConsentColumn: true}

	t.Run("short circuit rules are terminal", func(t *testing.T) {
		e := baseEntry()
		e.ProfileURL = ""
		s := m.Start(e)
		require.IsType(t, ShortCircuited{}, s)
		assert.False(t, NeedsEvidence(s))

		// evidence cannot move a short-circuited record
		assert.Equal(t, s, m.Observe(e, s, *evidence(intPtr(2025), intPtr(0), nil, nil)))
	})

	t.Run("everything else waits for evidence", func(t *testing.T) {
		s := m.Start(baseEntry())
		prov, ok := s.(Provisional)
		require.True(t, ok)
		assert.True(t, NeedsEvidence(s))
		assert.Equal(t, StatusUnknown, prov.Verdict.Status)
	})
}

func TestMachine_Observe(t *testing.T) {
	m := Machine{Policy: testPolicy, ConsentColumn: true}

	t.Run("primary record is re-classified", func(t *testing.T) {
		e := baseEntry()
		s := m.Observe(e, m.Start(e), *evidence(intPtr(2025), intPtr(0), nil, nil))
		final, ok := s.(Final)
		require.True(t, ok)
		assert.Equal(t, StatusHardQualified, final.Verdict.Status)
	})

	t.Run("duplicate keeps its verdict", func(t *testing.T) {
		e := baseEntry()
		e.Position = 2
		e.IsDuplicate = true
		s := m.Observe(e, m.Start(e), *evidence(intPtr(2025), intPtr(0), nil, nil))
		obs, ok := s.(Observed)
		require.True(t, ok)
		assert.Equal(t, StatusDuplicate, obs.Verdict.Status)
		assert.Equal(t, "Duplicate entry #2 for same phone number", obs.Verdict.Reason)
	})

	t.Run("failed fetch yields unknown", func(t *testing.T) {
		e := baseEntry()
		ev := profile.Evidence{URL: e.ProfileURL, Status: "error: timeout"}
		s := m.Observe(e, m.Start(e), ev)
		final, ok := s.(Final)
		require.True(t, ok)
		assert.Equal(t, StatusUnknown, final.Verdict.Status)
	})
}

func TestMachine_Outcome(t *testing.T) {
	m := Machine{Policy: testPolicy, ConsentColumn: true}

	t.Run("short circuited is skipped", func(t *testing.T) {
		e := baseEntry()
		e.Consent = "No"
		out := m.Outcome(e, m.Start(e))
		assert.Equal(t, StatusTermsDeclined, out.Verdict.Status)
		assert.Equal(t, profile.StatusSkipped, out.ProfileStatus)
		assert.Nil(t, out.Evidence)
	})

	t.Run("provisional is marked interrupted", func(t *testing.T) {
		e := baseEntry()
		out := m.Outcome(e, m.Start(e))
		assert.Equal(t, StatusUnknown, out.Verdict.Status)
		assert.Equal(t, profile.StatusInterrupted, out.ProfileStatus)
	})

	t.Run("final carries evidence and flags", func(t *testing.T) {
		e := baseEntry()
		ev := *evidence(intPtr(2025), intPtr(0), nil, nil)
		out := m.Outcome(e, m.Observe(e, m.Start(e), ev))
		require.NotNil(t, out.Evidence)
		assert.Equal(t, profile.StatusSuccess, out.ProfileStatus)
		assert.True(t, out.EmailMatches)
		assert.True(t, out.EmailHasDomain)
		assert.True(t, out.ProgramEmailHasDomain)
	})

	t.Run("observed duplicate exposes evidence", func(t *testing.T) {
		e := baseEntry()
		e.Position = 3
		ev := *evidence(intPtr(2025), intPtr(4), nil, nil)
		out := m.Outcome(e, m.Observe(e, m.Start(e), ev))
		assert.Equal(t, StatusDuplicate, out.Verdict.Status)
		require.NotNil(t, out.Evidence)
		assert.Equal(t, 4, *out.Evidence.BadgeCount)
	})
}
