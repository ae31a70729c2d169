package qualification

import (
	"qualifier/internal/evidence/profile"
	"qualifier/internal/registration"
)

// State is the per-record evaluation state. The concrete types are Pending,
// ShortCircuited, Provisional, Observed and Final.
//
//	Pending -> ShortCircuited                (rules 1-3, terminal)
//	Pending -> Provisional -> Final          (evidence re-classifies)
//	Pending -> Provisional -> Observed       (duplicates: evidence kept, verdict unchanged)
type State interface {
	isState()
}

// Pending has not been classified yet.
type Pending struct{}

// ShortCircuited was decided without evidence and is never fetched.
type ShortCircuited struct {
	Verdict Verdict
}

// Provisional was classified without evidence and is waiting for a fetch.
type Provisional struct {
	Verdict Verdict
}

// Observed is a non-primary duplicate whose evidence was fetched for the
// record but does not change the verdict.
type Observed struct {
	Verdict  Verdict
	Evidence profile.Evidence
}

// Final was re-classified with evidence.
type Final struct {
	Verdict  Verdict
	Evidence profile.Evidence
}

func (Pending) isState()        {}
func (ShortCircuited) isState() {}
func (Provisional) isState()    {}
func (Observed) isState()       {}
func (Final) isState()          {}

// Machine drives records through their states under one Policy.
type Machine struct {
	Policy        Policy
	ConsentColumn bool
}

// Start runs the evidence-free pass.
func (m Machine) Start(entry registration.Entry) State {
	v := Classify(m.Policy, Input{Entry: entry, ConsentColumn: m.ConsentColumn})
	if v.Status.IsShortCircuit() {
		return ShortCircuited{Verdict: v}
	}
	return Provisional{Verdict: v}
}

// Observe applies fetched evidence to a provisional record. Any other state
// is returned unchanged.
func (m Machine) Observe(entry registration.Entry, s State, ev profile.Evidence) State {
	prov, ok := s.(Provisional)
	if !ok {
		return s
	}
	if prov.Verdict.Status == StatusDuplicate {
		return Observed{Verdict: prov.Verdict, Evidence: ev}
	}
	v := Classify(m.Policy, Input{Entry: entry, ConsentColumn: m.ConsentColumn, Evidence: &ev})
	return Final{Verdict: v, Evidence: ev}
}

// NeedsEvidence reports whether s is waiting for a profile fetch.
func NeedsEvidence(s State) bool {
	_, ok := s.(Provisional)
	return ok
}

// Outcome builds the exportable result for entry in state s. A record still
// Provisional keeps its evidence-free verdict and is marked interrupted.
func (m Machine) Outcome(entry registration.Entry, s State) Outcome {
	out := Outcome{
		Entry:                 entry,
		EmailMatches:          entry.EmailsMatch(),
		EmailHasDomain:        registration.HasDomain(entry.Email, m.Policy.ReservedDomain),
		ProgramEmailHasDomain: registration.HasDomain(entry.ProgramEmail, m.Policy.ReservedDomain),
	}
	switch st := s.(type) {
	case ShortCircuited:
		out.Verdict = st.Verdict
		out.ProfileStatus = profile.StatusSkipped
	case Provisional:
		out.Verdict = st.Verdict
		out.ProfileStatus = profile.StatusInterrupted
	case Observed:
		ev := st.Evidence
		out.Verdict = st.Verdict
		out.Evidence = &ev
		out.ProfileStatus = ev.Status
	case Final:
		ev := st.Evidence
		out.Verdict = st.Verdict
		out.Evidence = &ev
		out.ProfileStatus = ev.Status
	default:
		out.Verdict = Classify(m.Policy, Input{Entry: entry, ConsentColumn: m.ConsentColumn})
		out.ProfileStatus = profile.StatusSkipped
	}
	return out
}
