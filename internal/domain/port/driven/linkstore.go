package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/setoolkit/internal/domain/model"
)

// ErrLinkNotFound indicates the requested link does not exist.
var ErrLinkNotFound = errors.New("link not found")

// LinkStore defines the driven port for quick-access links.
// Remove returns ErrLinkNotFound if the link does not exist.
type LinkStore interface {
	Add(ctx context.Context, link model.Link) (model.Link, error)
	Remove(ctx context.Context, id int64) error
	// ListAll returns links ordered by position, then ID.
	ListAll(ctx context.Context) ([]model.Link, error)
}
