// Package sqlite is a single-file evidence store for local and embedded use.
// It matches the Postgres store's behavior except for related-claim search,
// which needs vector support.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // pure Go SQLite driver

	"github.com/credenceproj/credence/internal/domain"
	"github.com/credenceproj/credence/internal/store"
	"github.com/google/uuid"
)

const schema = `
CREATE TABLE IF NOT EXISTS claims (
	id           TEXT PRIMARY KEY,
	proposition  TEXT NOT NULL,
	subject_id   TEXT,
	subject_type TEXT,
	polarity     TEXT NOT NULL DEFAULT 'affirmative',
	created_at   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS evidence (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	claim_id    TEXT NOT NULL REFERENCES claims(id) ON DELETE CASCADE,
	type        TEXT NOT NULL,
	source      TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	confidence  REAL NOT NULL,
	captured_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_evidence_claim ON evidence(claim_id);

CREATE TABLE IF NOT EXISTS contradictions (
	id                   TEXT PRIMARY KEY,
	subject_id           TEXT NOT NULL,
	proposition          TEXT NOT NULL,
	affirmative_claim_id TEXT NOT NULL,
	negative_claim_id    TEXT NOT NULL,
	resolution           TEXT NOT NULL,
	detected_at          TEXT NOT NULL,
	related_claim_ids    TEXT,
	UNIQUE (subject_id, proposition)
);
`

type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and bootstraps the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) RegisterClaim(ctx context.Context, c domain.EvidenceClaim) error {
	var subjectID, subjectType sql.NullString
	if c.Subject != nil {
		subjectID = sql.NullString{String: c.Subject.ID, Valid: true}
		subjectType = sql.NullString{String: c.Subject.Type, Valid: true}
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO claims (id, proposition, subject_id, subject_type, polarity, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.Proposition, subjectID, subjectType, string(c.EffectivePolarity()), formatTime(time.Now().UTC()),
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrConflict
	}
	return nil
}

func (s *Store) GetClaim(ctx context.Context, id string) (*domain.EvidenceClaim, error) {
	c := &domain.EvidenceClaim{}
	var subjectID, subjectType sql.NullString
	var polarity string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, proposition, subject_id, subject_type, polarity
		 FROM claims WHERE id = ?`,
		id,
	).Scan(&c.ID, &c.Proposition, &subjectID, &subjectType, &polarity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	applySubject(c, subjectID, subjectType)
	c.Polarity = domain.Polarity(polarity)
	return c, nil
}

func (s *Store) ListClaims(ctx context.Context) ([]domain.EvidenceClaim, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, proposition, subject_id, subject_type, polarity
		 FROM claims ORDER BY created_at, id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var claims []domain.EvidenceClaim
	for rows.Next() {
		var c domain.EvidenceClaim
		var subjectID, subjectType sql.NullString
		var polarity string
		if err := rows.Scan(&c.ID, &c.Proposition, &subjectID, &subjectType, &polarity); err != nil {
			return nil, err
		}
		applySubject(&c, subjectID, subjectType)
		c.Polarity = domain.Polarity(polarity)
		claims = append(claims, c)
	}
	return claims, rows.Err()
}

func (s *Store) ListEvidenceForClaim(ctx context.Context, claimID string) ([]domain.EvidenceRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT claim_id, type, source, description, confidence, captured_at
		 FROM evidence WHERE claim_id = ?
		 ORDER BY captured_at, id`,
		claimID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.EvidenceRecord
	for rows.Next() {
		var r domain.EvidenceRecord
		var typ, capturedAt string
		if err := rows.Scan(&r.ClaimID, &typ, &r.Source, &r.Description, &r.Confidence, &capturedAt); err != nil {
			return nil, err
		}
		r.Type = domain.EvidenceType(typ)
		r.CapturedAt, err = parseTime(capturedAt)
		if err != nil {
			return nil, fmt.Errorf("evidence for claim %s: %w", claimID, err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *Store) AppendEvidence(ctx context.Context, records ...domain.EvidenceRecord) error {
	for _, r := range records {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO evidence (claim_id, type, source, description, confidence, captured_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			r.ClaimID, string(r.Type), r.Source, r.Description, r.Confidence, formatTime(r.CapturedAt),
		)
		if err != nil {
			return fmt.Errorf("append evidence for claim %s: %w", r.ClaimID, err)
		}
	}
	return nil
}

// UpdateEvidenceForClaim replaces the claim's full evidence set atomically.
func (s *Store) UpdateEvidenceForClaim(ctx context.Context, claimID string, records []domain.EvidenceRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin evidence update: %w", err)
	}
	defer tx.Rollback()

	if err := replaceEvidence(ctx, tx, claimID, records); err != nil {
		return err
	}
	return tx.Commit()
}

// UpdateEvidenceBatch replaces the evidence sets of many claims in one
// transaction.
func (s *Store) UpdateEvidenceBatch(ctx context.Context, updates map[string][]domain.EvidenceRecord) error {
	if len(updates) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin evidence batch: %w", err)
	}
	defer tx.Rollback()

	for claimID, records := range updates {
		if err := replaceEvidence(ctx, tx, claimID, records); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) RecordContradiction(ctx context.Context, c *domain.Contradiction) error {
	related, err := json.Marshal(c.RelatedClaimIDs)
	if err != nil {
		return fmt.Errorf("encode related claim ids: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO contradictions (id, subject_id, proposition, affirmative_claim_id, negative_claim_id, resolution, detected_at, related_claim_ids)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID.String(), c.SubjectID, c.Proposition, c.AffirmativeClaimID, c.NegativeClaimID, c.Resolution, formatTime(c.DetectedAt), string(related),
	)
	return err
}

func (s *Store) ListOpenContradictions(ctx context.Context, limit int) ([]domain.Contradiction, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, subject_id, proposition, affirmative_claim_id, negative_claim_id, resolution, detected_at, related_claim_ids
		 FROM contradictions WHERE resolution = ?
		 ORDER BY detected_at DESC
		 LIMIT ?`,
		domain.ResolutionNeedsHuman, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Contradiction
	for rows.Next() {
		var c domain.Contradiction
		var id, detectedAt string
		var related sql.NullString
		if err := rows.Scan(&id, &c.SubjectID, &c.Proposition, &c.AffirmativeClaimID, &c.NegativeClaimID, &c.Resolution, &detectedAt, &related); err != nil {
			return nil, err
		}
		c.ID, err = uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("contradiction id: %w", err)
		}
		c.DetectedAt, err = parseTime(detectedAt)
		if err != nil {
			return nil, fmt.Errorf("contradiction detected_at: %w", err)
		}
		if related.Valid && related.String != "" {
			if err := json.Unmarshal([]byte(related.String), &c.RelatedClaimIDs); err != nil {
				return nil, fmt.Errorf("decode related claim ids: %w", err)
			}
		}
		results = append(results, c)
	}
	return results, rows.Err()
}

// ResolveContradiction records the human verdict for a conflict.
func (s *Store) ResolveContradiction(ctx context.Context, id uuid.UUID, resolution string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE contradictions SET resolution = ? WHERE id = ?`,
		resolution, id.String(),
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func replaceEvidence(ctx context.Context, tx *sql.Tx, claimID string, records []domain.EvidenceRecord) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM evidence WHERE claim_id = ?`, claimID); err != nil {
		return fmt.Errorf("clear evidence for claim %s: %w", claimID, err)
	}
	for _, r := range records {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO evidence (claim_id, type, source, description, confidence, captured_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			claimID, string(r.Type), r.Source, r.Description, r.Confidence, formatTime(r.CapturedAt),
		)
		if err != nil {
			return fmt.Errorf("write evidence for claim %s: %w", claimID, err)
		}
	}
	return nil
}

func applySubject(c *domain.EvidenceClaim, subjectID, subjectType sql.NullString) {
	if !subjectID.Valid {
		return
	}
	c.Subject = &domain.Subject{ID: subjectID.String}
	if subjectType.Valid {
		c.Subject.Type = subjectType.String
	}
}

// Timestamps are stored as fixed-width RFC 3339 UTC text so that
// lexicographic order in ORDER BY matches chronological order.
func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000000Z07:00")
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}
