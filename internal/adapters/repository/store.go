// Package repository defines the identification journal interface and errors.
package repository

import (
	"context"

	"github.com/llavero/llavero/internal/domain/types"
)

// Journal keeps the recent identification history for the kiosk's
// check-in screen and the stats endpoint.
type Journal interface {
	// Record appends a resolved identification. The oldest record is
	// evicted once the journal is at capacity.
	Record(ctx context.Context, rec types.IdentificationRecord) error

	// Recent returns up to limit records, newest first.
	// Returns ErrInvalidLimit for a non-positive limit.
	Recent(ctx context.Context, limit int) ([]types.IdentificationRecord, error)

	// Count returns the number of records currently held.
	Count(ctx context.Context) int
}
