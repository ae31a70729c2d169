package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/goleak"
	"go.uber.org/mock/gomock"

	"qualifier/internal/evidence/profile"
	"qualifier/internal/qualification"
	"qualifier/internal/qualification/metrics"
	"qualifier/internal/qualification/service/mocks"
	"qualifier/internal/registration"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const (
	domain   = ".gdgocbcet@gmail.com"
	accepted = "Yes, I accept the terms"
)

var policy = qualification.Policy{ProgramYear: 2025, ReservedDomain: domain, AcceptedConsent: accepted}

func record(row int, name, phone, url string) registration.Record {
	email := name + "@x" + domain
	return registration.Record{
		Row:          row,
		Name:         name,
		Email:        email,
		ProgramEmail: email,
		Phone:        phone,
		Consent:      accepted,
		ProfileURL:   url,
	}
}

func successEvidence(url string, year, badges int) profile.Evidence {
	return profile.Evidence{
		URL:          url,
		CreationYear: &year,
		BadgeCount:   &badges,
		Status:       profile.StatusSuccess,
	}
}

// =============================================================================
// Qualification Service Test Suite
// =============================================================================
// The service owns ordering, the fetch pool and sink error semantics; rule
// behavior is covered by the qualification package tests.

type ServiceSuite struct {
	suite.Suite
	ctrl          *gomock.Controller
	mockCollector *mocks.MockCollector
	mockStore     *mocks.MockStore
	mockPublisher *mocks.MockPublisher
	registry      *prometheus.Registry
	service       *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockCollector = mocks.NewMockCollector(s.ctrl)
	s.mockStore = mocks.NewMockStore(s.ctrl)
	s.mockPublisher = mocks.NewMockPublisher(s.ctrl)
	s.registry = prometheus.NewRegistry()

	fixed := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)
	svc, err := New(s.mockCollector, policy,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithMetrics(metrics.New(s.registry)),
		WithStore(s.mockStore),
		WithPublisher(s.mockPublisher),
		WithWorkers(2),
		WithClock(func() time.Time { return fixed }),
		WithIDGenerator(func() string { return "run-1" }),
	)
	s.Require().NoError(err)
	s.service = svc
}

func (s *ServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *ServiceSuite) dataset() *registration.Dataset {
	incomplete := record(1, "", "222", "https://p/b")
	return &registration.Dataset{
		Records: []registration.Record{
			record(0, "a", "111", "https://p/a"),
			incomplete,
			record(2, "c", "111", "https://p/c"),
			record(3, "d", "333", "https://p/d"),
		},
		HasConsent: true,
	}
}

func (s *ServiceSuite) TestNew() {
	s.Run("nil collector returns error", func() {
		_, err := New(nil, policy)
		s.ErrorContains(err, "evidence collector is required")
	})

	s.Run("missing program year returns error", func() {
		_, err := New(s.mockCollector, qualification.Policy{})
		s.ErrorContains(err, "program year is required")
	})

	s.Run("non-positive workers keep the default", func() {
		svc, err := New(s.mockCollector, policy, WithWorkers(0))
		s.Require().NoError(err)
		s.Equal(defaultWorkers, svc.workers)
	})
}

func (s *ServiceSuite) TestRun() {
	s.Run("classifies in grouped order and persists the run", func() {
		s.mockCollector.EXPECT().Fetch(gomock.Any(), "https://p/a").
			Return(successEvidence("https://p/a", 2025, 0))
		s.mockCollector.EXPECT().Fetch(gomock.Any(), "https://p/c").
			Return(successEvidence("https://p/c", 2025, 7))
		s.mockCollector.EXPECT().Fetch(gomock.Any(), "https://p/d").
			Return(profile.Unavailable("https://p/d", errors.New("timeout"), time.Time{}))

		var saved []qualification.Outcome
		s.mockStore.EXPECT().Save(gomock.Any(), "run-1", gomock.Any()).
			DoAndReturn(func(_ context.Context, _ string, outcomes []qualification.Outcome) error {
				saved = outcomes
				return nil
			})
		s.mockPublisher.EXPECT().Publish(gomock.Any(), "run-1", gomock.Any()).Return(nil)

		run, err := s.service.Run(context.Background(), s.dataset())
		s.Require().NoError(err)
		s.Equal("run-1", run.ID)
		s.False(run.Interrupted)
		s.Len(saved, 4)

		rows := make([]int, len(run.Outcomes))
		statuses := make([]qualification.Status, len(run.Outcomes))
		for i, o := range run.Outcomes {
			rows[i] = o.Entry.Row
			statuses[i] = o.Verdict.Status
		}
		s.Equal([]int{0, 2, 1, 3}, rows)
		s.Equal([]qualification.Status{
			qualification.StatusHardQualified,
			qualification.StatusDuplicate,
			qualification.StatusIncomplete,
			qualification.StatusUnknown,
		}, statuses)

		dup := run.Outcomes[1]
		s.Require().NotNil(dup.Evidence)
		s.Equal(7, *dup.Evidence.BadgeCount)
		s.Equal(profile.StatusSkipped, run.Outcomes[2].ProfileStatus)
		s.Equal("error: timeout", run.Outcomes[3].ProfileStatus)

		s.Equal(float64(4), testutil.ToFloat64(s.service.metrics.RecordsTotal))
		s.Equal(float64(1), testutil.ToFloat64(
			s.service.metrics.VerdictsTotal.WithLabelValues(string(qualification.StatusHardQualified))))
	})
}

func (s *ServiceSuite) TestRunSinkErrors() {
	s.Run("store failure is returned with the run", func() {
		ds := &registration.Dataset{Records: []registration.Record{record(0, "a", "111", "")}}
		s.mockStore.EXPECT().Save(gomock.Any(), "run-1", gomock.Any()).Return(errors.New("db down"))

		run, err := s.service.Run(context.Background(), ds)
		s.ErrorContains(err, "db down")
		s.Require().NotNil(run)
		s.Len(run.Outcomes, 1)
		s.Equal(qualification.StatusNoProfileURL, run.Outcomes[0].Verdict.Status)
	})

	s.Run("publish failure does not fail the run", func() {
		ds := &registration.Dataset{Records: []registration.Record{record(0, "a", "111", "")}}
		s.mockStore.EXPECT().Save(gomock.Any(), "run-1", gomock.Any()).Return(nil)
		s.mockPublisher.EXPECT().Publish(gomock.Any(), "run-1", gomock.Any()).Return(errors.New("broker down"))

		run, err := s.service.Run(context.Background(), ds)
		s.NoError(err)
		s.Len(run.Outcomes, 1)
		s.Equal(float64(1), testutil.ToFloat64(s.service.metrics.SinkErrors.WithLabelValues("publish")))
	})

	s.Run("nil dataset is rejected", func() {
		_, err := s.service.Run(context.Background(), nil)
		s.Error(err)
	})
}

func (s *ServiceSuite) TestRunInterrupted() {
	s.Run("cancelled context skips fetching and still saves", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		s.mockStore.EXPECT().Save(gomock.Any(), "run-1", gomock.Any()).Return(nil)
		s.mockPublisher.EXPECT().Publish(gomock.Any(), "run-1", gomock.Any()).Return(nil)

		run, err := s.service.Run(ctx, s.dataset())
		s.Require().NoError(err)
		s.True(run.Interrupted)

		for _, o := range run.Outcomes {
			if o.Verdict.Status == qualification.StatusIncomplete {
				s.Equal(profile.StatusSkipped, o.ProfileStatus)
				continue
			}
			s.Equal(profile.StatusInterrupted, o.ProfileStatus)
			s.Nil(o.Evidence)
		}
		s.Equal(float64(3), testutil.ToFloat64(s.service.metrics.InterruptedTotal))
	})
}

// concurrencyGauge records the highest number of overlapping Fetch calls.
type concurrencyGauge struct {
	inFlight atomic.Int32
	mu       sync.Mutex
	peak     int32
	calls    atomic.Int32
}

func (p *concurrencyGauge) Fetch(_ context.Context, url string) profile.Evidence {
	n := p.inFlight.Add(1)
	defer p.inFlight.Add(-1)
	p.calls.Add(1)

	p.mu.Lock()
	if n > p.peak {
		p.peak = n
	}
	p.mu.Unlock()

	time.Sleep(5 * time.Millisecond)
	return successEvidence(url, 2025, 0)
}

func TestRun_BoundedPool(t *testing.T) {
	gauge := &concurrencyGauge{}
	svc, err := New(gauge, policy,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithWorkers(3),
	)
	if err != nil {
		t.Fatal(err)
	}

	var records []registration.Record
	for i := range 12 {
		phone := string(rune('a' + i))
		records = append(records, record(i, "n"+phone, phone, "https://p/"+phone))
	}

	run, err := svc.Run(context.Background(), &registration.Dataset{Records: records})
	if err != nil {
		t.Fatal(err)
	}
	if got := gauge.calls.Load(); got != 12 {
		t.Fatalf("expected 12 fetches, got %d", got)
	}
	if gauge.peak > 3 {
		t.Fatalf("expected at most 3 concurrent fetches, saw %d", gauge.peak)
	}
	for i, o := range run.Outcomes {
		if o.Entry.Row != i {
			t.Fatalf("outcome %d has row %d", i, o.Entry.Row)
		}
		if o.Verdict.Status != qualification.StatusHardQualified {
			t.Fatalf("row %d: got %s", i, o.Verdict.Status)
		}
	}
}
