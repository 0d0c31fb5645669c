package db

import (
	"context"
	"fmt"
)

// NextSequence atomically increments and returns the per-year counter named
// name. Human-readable record codes (EARN-2026-0001 and friends) are built
// from these counters; the upsert keeps them safe under concurrent writers.
func NextSequence(ctx context.Context, q Queryable, name string, year int) (int, error) {
	var value int
	err := q.QueryRow(ctx, `
		INSERT INTO sequences (name, year, value) VALUES ($1, $2, 1)
		ON CONFLICT (name, year) DO UPDATE SET value = sequences.value + 1
		RETURNING value`, name, year).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("next sequence %s/%d: %w", name, year, err)
	}
	return value, nil
}

// FormatCode renders a human-readable record code such as EARN-2026-0001.
func FormatCode(prefix string, year, value int) string {
	return fmt.Sprintf("%s-%d-%04d", prefix, year, value)
}
