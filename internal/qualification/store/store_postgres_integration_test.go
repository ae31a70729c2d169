//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"qualifier/internal/evidence/profile"
	"qualifier/internal/qualification"
	"qualifier/internal/qualification/store"
	"qualifier/internal/registration"
	"qualifier/pkg/platform/sentinel"
	"qualifier/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
	s.Require().NoError(s.store.EnsureSchema(context.Background()))
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.Truncate(context.Background(), "qualification_outcomes"))
}

func (s *PostgresStoreSuite) outcomes() []qualification.Outcome {
	year, badges := 2025, 0
	return []qualification.Outcome{
		{
			Entry: registration.Entry{
				Record: registration.Record{
					Row: 4, Name: "Ada", Email: "ada@x.gdgocbcet@gmail.com", ProgramEmail: "ada@x.gdgocbcet@gmail.com",
					Phone: "111", Consent: "Yes, I accept the terms", ProfileURL: "https://p/ada",
				},
				Group: 0, Position: 1, IsDuplicate: true,
			},
			Verdict: qualification.Verdict{Status: qualification.StatusHardQualified, Reason: "Reserved domain + 2025 creation + empty profile"},
			Evidence: &profile.Evidence{
				URL:          "https://p/ada",
				CreationYear: &year,
				BadgeCount:   &badges,
				Status:       profile.StatusSuccess,
				FetchedAt:    time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC),
			},
			ProfileStatus:         profile.StatusSuccess,
			EmailMatches:          true,
			EmailHasDomain:        true,
			ProgramEmailHasDomain: true,
		},
		{
			Entry: registration.Entry{
				Record:   registration.Record{Row: 0, Name: "Bob", Phone: "222"},
				Group:    1,
				Position: 1,
			},
			Verdict:       qualification.Verdict{Status: qualification.StatusIncomplete, Reason: "Missing required fields (Name, Email, or Phone)"},
			ProfileStatus: profile.StatusSkipped,
		},
	}
}

func (s *PostgresStoreSuite) TestSaveAndList() {
	ctx := context.Background()
	in := s.outcomes()
	s.Require().NoError(s.store.Save(ctx, "run-1", in))

	got, err := s.store.ListByRun(ctx, "run-1")
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal(in[0].Entry, got[0].Entry)
	s.Equal(in[0].Verdict, got[0].Verdict)
	s.Require().NotNil(got[0].Evidence)
	s.Equal(2025, *got[0].Evidence.CreationYear)
	s.True(in[0].Evidence.FetchedAt.Equal(got[0].Evidence.FetchedAt))
	s.Nil(got[1].Evidence)
	s.Equal(profile.StatusSkipped, got[1].ProfileStatus)
}

func (s *PostgresStoreSuite) TestSaveReplacesRun() {
	ctx := context.Background()
	s.Require().NoError(s.store.Save(ctx, "run-1", s.outcomes()))
	s.Require().NoError(s.store.Save(ctx, "run-1", s.outcomes()[:1]))

	got, err := s.store.ListByRun(ctx, "run-1")
	s.Require().NoError(err)
	s.Len(got, 1)
}

func (s *PostgresStoreSuite) TestLatestRun() {
	ctx := context.Background()
	_, err := s.store.LatestRun(ctx)
	s.ErrorIs(err, sentinel.ErrNotFound)

	s.Require().NoError(s.store.Save(ctx, "run-1", s.outcomes()))
	time.Sleep(10 * time.Millisecond)
	s.Require().NoError(s.store.Save(ctx, "run-2", s.outcomes()))

	latest, err := s.store.LatestRun(ctx)
	s.Require().NoError(err)
	s.Equal("run-2", latest)
}

func (s *PostgresStoreSuite) TestMissingRun() {
	_, err := s.store.ListByRun(context.Background(), "nope")
	s.ErrorIs(err, sentinel.ErrNotFound)
}
