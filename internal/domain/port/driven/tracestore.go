package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/setoolkit/internal/domain/model"
)

// ErrTraceNotFound indicates the requested trace record does not exist.
var ErrTraceNotFound = errors.New("trace not found")

// TraceStore persists the finalized trace record list. The correlator owns the
// list in memory and writes it back in full after every append or prune.
type TraceStore interface {
	// Load returns all persisted records ordered oldest first.
	Load(ctx context.Context) ([]model.TraceRecord, error)
	// Save replaces the persisted records with the given list.
	Save(ctx context.Context, records []model.TraceRecord) error
}
