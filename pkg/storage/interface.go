package storage

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/datasniffing/caramelo/pkg/config"
	"github.com/datasniffing/caramelo/pkg/utils"
)

// VisitedStore is the per-run set of normalized URLs the frontier has already queued.
// A store belongs to exactly one run and is discarded when the run ends.
type VisitedStore interface {
	// MarkVisited records normalizedURL.
	// Returns true if the URL was newly added, false if it was already present
	MarkVisited(normalizedURL string) (bool, error)

	// Count returns the number of recorded URLs
	Count() int

	// Close releases the store's resources
	Close() error
}

// Open builds the VisitedStore selected by kind (config.VisitedStoreMemory or config.VisitedStoreBadger)
func Open(kind string, logger *logrus.Entry) (VisitedStore, error) {
	switch kind {
	case "", config.VisitedStoreMemory:
		return NewMemoryStore(), nil
	case config.VisitedStoreBadger:
		return NewBadgerStore(logger)
	}
	return nil, fmt.Errorf("%w: unknown visited store %q", utils.ErrConfigValidation, kind)
}
