package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"qualifier/internal/evidence/profile"
	"qualifier/internal/qualification"
	"qualifier/internal/registration"
	"qualifier/pkg/platform/sentinel"
	"qualifier/pkg/platform/tx"
)

const schema = `
CREATE TABLE IF NOT EXISTS qualification_outcomes (
    run_id                       TEXT        NOT NULL,
    seq                          INTEGER     NOT NULL,
    source_row                   INTEGER     NOT NULL,
    name                         TEXT        NOT NULL,
    email                        TEXT        NOT NULL,
    program_email                TEXT        NOT NULL,
    phone                        TEXT        NOT NULL,
    consent                      TEXT        NOT NULL,
    profile_url                  TEXT        NOT NULL,
    duplicate_group              INTEGER     NOT NULL,
    duplicate_position           INTEGER     NOT NULL,
    is_duplicate                 BOOLEAN     NOT NULL,
    status                       TEXT        NOT NULL,
    reason                       TEXT        NOT NULL,
    profile_status               TEXT        NOT NULL,
    email_matches                BOOLEAN     NOT NULL,
    email_has_domain             BOOLEAN     NOT NULL,
    program_email_has_domain     BOOLEAN     NOT NULL,
    evidence                     JSONB,
    created_at                   TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (run_id, seq)
);
CREATE INDEX IF NOT EXISTS idx_qualification_outcomes_created_at
    ON qualification_outcomes (created_at DESC);
`

const insertOutcome = `
INSERT INTO qualification_outcomes (
    run_id, seq, source_row, name, email, program_email, phone, consent, profile_url,
    duplicate_group, duplicate_position, is_duplicate, status, reason, profile_status,
    email_matches, email_has_domain, program_email_has_domain, evidence
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
`

const selectByRun = `
SELECT source_row, name, email, program_email, phone, consent, profile_url,
       duplicate_group, duplicate_position, is_duplicate, status, reason, profile_status,
       email_matches, email_has_domain, program_email_has_domain, evidence
FROM qualification_outcomes
WHERE run_id = $1
ORDER BY seq
`

// PostgresStore persists run outcomes in PostgreSQL, one row per record.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed outcome store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the outcomes table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure outcome schema: %w", err)
	}
	return nil
}

// Save replaces the outcomes of runID in a single transaction.
func (s *PostgresStore) Save(ctx context.Context, runID string, outcomes []qualification.Outcome) error {
	if runID == "" {
		return fmt.Errorf("run id is required: %w", sentinel.ErrInvalidInput)
	}
	return tx.Run(ctx, s.db, func(ctx context.Context) error {
		exec := tx.ExecutorFrom(ctx, s.db)
		if _, err := exec.ExecContext(ctx, `DELETE FROM qualification_outcomes WHERE run_id = $1`, runID); err != nil {
			return fmt.Errorf("clear run %s: %w", runID, err)
		}
		for i, o := range outcomes {
			evidence, err := marshalEvidence(o.Evidence)
			if err != nil {
				return err
			}
			e := o.Entry
			_, err = exec.ExecContext(ctx, insertOutcome,
				runID, i, e.Row, e.Name, e.Email, e.ProgramEmail, e.Phone, e.Consent, e.ProfileURL,
				e.Group, e.Position, e.IsDuplicate,
				string(o.Verdict.Status), o.Verdict.Reason, o.ProfileStatus,
				o.EmailMatches, o.EmailHasDomain, o.ProgramEmailHasDomain, evidence,
			)
			if err != nil {
				return fmt.Errorf("insert outcome %d of run %s: %w", i, runID, err)
			}
		}
		return nil
	})
}

func (s *PostgresStore) ListByRun(ctx context.Context, runID string) ([]qualification.Outcome, error) {
	rows, err := s.db.QueryContext(ctx, selectByRun, runID)
	if err != nil {
		return nil, fmt.Errorf("list outcomes of run %s: %w", runID, err)
	}
	defer rows.Close()

	var outcomes []qualification.Outcome
	for rows.Next() {
		var (
			o        qualification.Outcome
			e        registration.Entry
			status   string
			evidence []byte
		)
		if err := rows.Scan(
			&e.Row, &e.Name, &e.Email, &e.ProgramEmail, &e.Phone, &e.Consent, &e.ProfileURL,
			&e.Group, &e.Position, &e.IsDuplicate, &status, &o.Verdict.Reason, &o.ProfileStatus,
			&o.EmailMatches, &o.EmailHasDomain, &o.ProgramEmailHasDomain, &evidence,
		); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		o.Entry = e
		o.Verdict.Status = qualification.Status(status)
		if len(evidence) > 0 {
			var ev profile.Evidence
			if err := json.Unmarshal(evidence, &ev); err != nil {
				return nil, fmt.Errorf("unmarshal evidence: %w", err)
			}
			o.Evidence = &ev
		}
		outcomes = append(outcomes, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcomes: %w", err)
	}
	if len(outcomes) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return outcomes, nil
}

// LatestRun returns the id of the most recently saved run.
func (s *PostgresStore) LatestRun(ctx context.Context) (string, error) {
	var runID string
	err := s.db.QueryRowContext(ctx,
		`SELECT run_id FROM qualification_outcomes ORDER BY created_at DESC, run_id DESC LIMIT 1`,
	).Scan(&runID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", sentinel.ErrNotFound
		}
		return "", fmt.Errorf("find latest run: %w", err)
	}
	return runID, nil
}

func marshalEvidence(ev *profile.Evidence) (any, error) {
	if ev == nil {
		return nil, nil
	}
	raw, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal evidence: %w", err)
	}
	return string(raw), nil
}

var _ Store = (*PostgresStore)(nil)
