package duckdb

import (
	"context"
	"database/sql/driver"
	"fmt"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/regulomics/v2gscore/internal/predict"
)

// WriteScores batch-inserts a score set into the cache using the Appender
// API. Cells already cached are skipped rather than rewritten, keeping the
// cache append-only.
func (s *Store) WriteScores(set *predict.ScoreSet) error {
	if set.Len() == 0 {
		return nil
	}

	cached, err := s.cachedCells()
	if err != nil {
		return err
	}

	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "prediction_scores")
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	for _, key := range set.Keys() {
		for _, modality := range set.Modalities() {
			raw, ok := set.Get(key.Variant, key.Gene, modality)
			if !ok {
				continue
			}
			if cached[cellKey{key.Variant, key.Gene, modality}] {
				continue
			}
			if err := appender.AppendRow(key.Variant, key.Gene, modality, raw); err != nil {
				return fmt.Errorf("append prediction score: %w", err)
			}
		}
	}

	return appender.Flush()
}

type cellKey struct {
	variant, gene, modality string
}

func (s *Store) cachedCells() (map[cellKey]bool, error) {
	rows, err := s.db.Query(`SELECT variant_id, gene_id, modality FROM prediction_scores`)
	if err != nil {
		return nil, fmt.Errorf("query cached cells: %w", err)
	}
	defer rows.Close()

	cells := make(map[cellKey]bool)
	for rows.Next() {
		var k cellKey
		if err := rows.Scan(&k.variant, &k.gene, &k.modality); err != nil {
			return nil, fmt.Errorf("scan cached cell: %w", err)
		}
		cells[k] = true
	}
	return cells, rows.Err()
}

// LoadScores reads every cached score into a score set.
func (s *Store) LoadScores() (*predict.ScoreSet, error) {
	rows, err := s.db.Query(`SELECT variant_id, gene_id, modality, raw_score FROM prediction_scores`)
	if err != nil {
		return nil, fmt.Errorf("query prediction scores: %w", err)
	}
	defer rows.Close()

	set := predict.NewScoreSet()
	for rows.Next() {
		var variant, gene, modality string
		var raw float64
		if err := rows.Scan(&variant, &gene, &modality, &raw); err != nil {
			return nil, fmt.Errorf("scan prediction score: %w", err)
		}
		set.Set(variant, gene, modality, raw)
	}
	return set, rows.Err()
}

// ScoredVariants returns the ids of variants with at least one cached score.
func (s *Store) ScoredVariants() (map[string]bool, error) {
	rows, err := s.db.Query(`SELECT DISTINCT variant_id FROM prediction_scores`)
	if err != nil {
		return nil, fmt.Errorf("query scored variants: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan variant id: %w", err)
		}
		ids[id] = true
	}
	return ids, rows.Err()
}
