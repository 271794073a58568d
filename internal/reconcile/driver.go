package reconcile

import (
	"context"
	"fmt"

	"github.com/avlasov/pdfrecon/internal/domain"
	"github.com/avlasov/pdfrecon/internal/logger"
	"github.com/avlasov/pdfrecon/internal/match"
)

// Driver runs statement records against the reference tables.
type Driver struct {
	source TableSource
}

// NewDriver creates a driver over the given table source.
func NewDriver(source TableSource) *Driver {
	return &Driver{source: source}
}

// Reconcile matches each record against its entity's reference table,
// in input order. A record number that already appeared is dropped
// after its candidates are computed, so the first occurrence wins.
// Records whose entity resolves to no table, or whose table cannot be
// loaded, come back with zero candidates rather than failing the run.
func (d *Driver) Reconcile(ctx context.Context, records []domain.TransactionRecord) ([]domain.RecordMatches, error) {
	log := logger.FromContext(ctx)

	names, err := d.source.Tables(ctx)
	if err != nil {
		return nil, fmt.Errorf("list reference tables: %w", err)
	}

	cache := make(map[string][]domain.ReferenceRow)
	seen := make(map[string]bool)

	var results []domain.RecordMatches
	for _, rec := range records {
		candidates := d.candidatesFor(ctx, rec, names, cache)
		if seen[rec.Number] {
			log.Debug().Str("number", rec.Number).Msg("dropping duplicate record number")
			continue
		}
		seen[rec.Number] = true
		results = append(results, domain.RecordMatches{Record: rec, Candidates: candidates})
	}
	return results, nil
}

// FindUnmatched reruns the match and keeps only the records that found
// no candidate at all. Unlike Reconcile, duplicate record numbers stay
// in, so repeated unmatched lines each show up.
func (d *Driver) FindUnmatched(ctx context.Context, records []domain.TransactionRecord) ([]domain.RecordMatches, error) {
	names, err := d.source.Tables(ctx)
	if err != nil {
		return nil, fmt.Errorf("list reference tables: %w", err)
	}

	cache := make(map[string][]domain.ReferenceRow)

	var unmatched []domain.RecordMatches
	for _, rec := range records {
		if candidates := d.candidatesFor(ctx, rec, names, cache); len(candidates) == 0 {
			unmatched = append(unmatched, domain.RecordMatches{Record: rec})
		}
	}
	return unmatched, nil
}

// candidatesFor resolves the record's entity to a table, loads it once
// per run and scores the record against its rows.
func (d *Driver) candidatesFor(ctx context.Context, rec domain.TransactionRecord, names []string, cache map[string][]domain.ReferenceRow) []domain.MatchCandidate {
	log := logger.FromContext(ctx)

	name, ok := match.ResolveTable(ctx, rec.EndCustomer, names)
	if !ok {
		log.Info().Str("customer", rec.EndCustomer).Str("number", rec.Number).Msg("no reference table for customer")
		return nil
	}

	rows, cached := cache[name]
	if !cached {
		loaded, err := d.source.Rows(ctx, name)
		if err != nil {
			log.Warn().Err(err).Str("table", name).Msg("failed to load reference table")
			loaded = nil
		}
		cache[name] = loaded
		rows = loaded
	}

	return match.Candidates(rec, rows)
}
