// Package cache defines the invalidate-on-write port for downstream caches.
package cache

import (
	"context"

	"github.com/goran-ethernal/ChainIngestor/pkg/types"
)

// Invalidator is notified of entities changed by a committed batch or a rollback.
type Invalidator interface {
	Invalidate(ctx context.Context, refs []types.EntityRef) error
	Close() error
}
