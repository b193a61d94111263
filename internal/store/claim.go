package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/credenceproj/credence/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
)

// ClaimStore persists claims and their evidence records. Claims may carry an
// optional embedding used only for related-claim lookups; the domain types
// never see it.
type ClaimStore struct {
	db *pgxpool.Pool
}

func NewClaimStore(db *pgxpool.Pool) *ClaimStore {
	return &ClaimStore{db: db}
}

func (s *ClaimStore) RegisterClaim(ctx context.Context, c domain.EvidenceClaim, embedding []float32) error {
	var vec *pgvector.Vector
	if len(embedding) > 0 {
		v := pgvector.NewVector(embedding)
		vec = &v
	}

	var subjectID, subjectType *string
	if c.Subject != nil {
		subjectID = &c.Subject.ID
		subjectType = &c.Subject.Type
	}

	_, err := s.db.Exec(ctx,
		`INSERT INTO claims (id, proposition, subject_id, subject_type, polarity, embedding)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.Proposition, subjectID, subjectType, string(c.EffectivePolarity()), vec,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return err
	}
	return nil
}

func (s *ClaimStore) GetClaim(ctx context.Context, id string) (*domain.EvidenceClaim, error) {
	c := &domain.EvidenceClaim{}
	var subjectID, subjectType *string
	var polarity string
	err := s.db.QueryRow(ctx,
		`SELECT id, proposition, subject_id, subject_type, polarity
		 FROM claims WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.Proposition, &subjectID, &subjectType, &polarity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if subjectID != nil {
		c.Subject = &domain.Subject{ID: *subjectID}
		if subjectType != nil {
			c.Subject.Type = *subjectType
		}
	}
	c.Polarity = domain.Polarity(polarity)
	return c, nil
}

func (s *ClaimStore) ListClaims(ctx context.Context) ([]domain.EvidenceClaim, error) {
	rows, err := s.db.Query(ctx,
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
		var subjectID, subjectType *string
		var polarity string
		if err := rows.Scan(&c.ID, &c.Proposition, &subjectID, &subjectType, &polarity); err != nil {
			return nil, err
		}
		if subjectID != nil {
			c.Subject = &domain.Subject{ID: *subjectID}
			if subjectType != nil {
				c.Subject.Type = *subjectType
			}
		}
		c.Polarity = domain.Polarity(polarity)
		claims = append(claims, c)
	}
	return claims, rows.Err()
}

// FindRelatedClaims returns the claims nearest to the given one by embedding
// distance. Claims without embeddings never match; an unknown or
// embedding-less source claim yields an empty result, not an error.
func (s *ClaimStore) FindRelatedClaims(ctx context.Context, claimID string, limit int) ([]domain.EvidenceClaim, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.Query(ctx,
		`SELECT c.id, c.proposition, c.subject_id, c.subject_type, c.polarity
		 FROM claims c, claims src
		 WHERE src.id = $1
		   AND src.embedding IS NOT NULL
		   AND c.embedding IS NOT NULL
		   AND c.id <> src.id
		 ORDER BY c.embedding <=> src.embedding
		 LIMIT $2`,
		claimID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("related claims query: %w", err)
	}
	defer rows.Close()

	var claims []domain.EvidenceClaim
	for rows.Next() {
		var c domain.EvidenceClaim
		var subjectID, subjectType *string
		var polarity string
		if err := rows.Scan(&c.ID, &c.Proposition, &subjectID, &subjectType, &polarity); err != nil {
			return nil, fmt.Errorf("scan related claim row: %w", err)
		}
		if subjectID != nil {
			c.Subject = &domain.Subject{ID: *subjectID}
			if subjectType != nil {
				c.Subject.Type = *subjectType
			}
		}
		c.Polarity = domain.Polarity(polarity)
		claims = append(claims, c)
	}
	return claims, rows.Err()
}

func (s *ClaimStore) ListEvidenceForClaim(ctx context.Context, claimID string) ([]domain.EvidenceRecord, error) {
	rows, err := s.db.Query(ctx,
		`SELECT claim_id, type, source, description, confidence, captured_at
		 FROM evidence WHERE claim_id = $1
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
		var typ string
		if err := rows.Scan(&r.ClaimID, &typ, &r.Source, &r.Description, &r.Confidence, &r.CapturedAt); err != nil {
			return nil, err
		}
		r.Type = domain.EvidenceType(typ)
		records = append(records, r)
	}
	return records, rows.Err()
}

// AppendEvidence adds records without touching what is already stored. Each
// record names its own claim.
func (s *ClaimStore) AppendEvidence(ctx context.Context, records ...domain.EvidenceRecord) error {
	for _, r := range records {
		_, err := s.db.Exec(ctx,
			`INSERT INTO evidence (claim_id, type, source, description, confidence, captured_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			r.ClaimID, string(r.Type), r.Source, r.Description, r.Confidence, r.CapturedAt,
		)
		if err != nil {
			return fmt.Errorf("append evidence for claim %s: %w", r.ClaimID, err)
		}
	}
	return nil
}

// UpdateEvidenceForClaim replaces the claim's full evidence set atomically.
func (s *ClaimStore) UpdateEvidenceForClaim(ctx context.Context, claimID string, records []domain.EvidenceRecord) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin evidence update: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := replaceEvidence(ctx, tx, claimID, records); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// UpdateEvidenceBatch replaces the evidence sets of many claims in a single
// transaction, so a failed sweep flush leaves nothing half-written.
func (s *ClaimStore) UpdateEvidenceBatch(ctx context.Context, updates map[string][]domain.EvidenceRecord) error {
	if len(updates) == 0 {
		return nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin evidence batch: %w", err)
	}
	defer tx.Rollback(ctx)

	for claimID, records := range updates {
		if err := replaceEvidence(ctx, tx, claimID, records); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func replaceEvidence(ctx context.Context, tx pgx.Tx, claimID string, records []domain.EvidenceRecord) error {
	if _, err := tx.Exec(ctx, `DELETE FROM evidence WHERE claim_id = $1`, claimID); err != nil {
		return fmt.Errorf("clear evidence for claim %s: %w", claimID, err)
	}
	for _, r := range records {
		_, err := tx.Exec(ctx,
			`INSERT INTO evidence (claim_id, type, source, description, confidence, captured_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			claimID, string(r.Type), r.Source, r.Description, r.Confidence, r.CapturedAt,
		)
		if err != nil {
			return fmt.Errorf("write evidence for claim %s: %w", claimID, err)
		}
	}
	return nil
}
