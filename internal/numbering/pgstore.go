package numbering

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore persists issued numbers in the document_numbers table. Suffixes are
// stored as integers so the max scan never falls into lexicographic ordering
// ("9" after "10"). Taken additionally consults quotations.number to catch
// rows inserted outside the generator.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore constructs a PGStore.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) MaxIssued(ctx context.Context, prefix string) (int64, error) {
	var max int64
	err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(MAX(seq), 0) FROM document_numbers WHERE prefix = $1
	`, prefix).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("numbering/pg: max issued: %w", err)
	}
	return max, nil
}

func (s *PGStore) Taken(ctx context.Context, prefix string, seq int64) (bool, error) {
	var taken bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM document_numbers WHERE prefix = $1 AND seq = $2)
		    OR EXISTS (SELECT 1 FROM quotations WHERE number = $1 || '-' || $2::text)
	`, prefix, seq).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("numbering/pg: taken check: %w", err)
	}
	return taken, nil
}

func (s *PGStore) Reserve(ctx context.Context, prefix string, seq int64) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO document_numbers (prefix, seq) VALUES ($1, $2)
	`, prefix, seq)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("numbering/pg: %s-%d reserved concurrently: %w", prefix, seq, ErrContention)
		}
		return fmt.Errorf("numbering/pg: reserve: %w", err)
	}
	return nil
}
