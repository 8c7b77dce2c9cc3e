// Package publish pushes a finished price table to optional downstream sinks.
// Sinks are best effort: the JSON file written by the snapshot run is the
// source of truth.
package publish

import (
	"context"

	"pricesnapshot/internal/pricetable"
)

// Publisher delivers a completed table somewhere other than the output file.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, table *pricetable.Table) error
}
