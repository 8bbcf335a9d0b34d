// Package ingest pulls price observations from the intelligence platform's
// API. Loose upstream spellings stay verbatim in the persisted rows; the
// engine normalises them at its own boundary.
package ingest

import (
	"context"
	"time"

	"price-insight/internal/storage"
)

// Source yields observation batches for incremental sync and backfill.
type Source interface {
	// FetchSince returns every observation whose effective date is on or
	// after since, walking the API's pages to exhaustion.
	FetchSince(ctx context.Context, since time.Time) ([]storage.ObservationRecord, error)
}
