package application

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/ericfisherdev/setoolkit/internal/domain/model"
	"github.com/ericfisherdev/setoolkit/internal/domain/port/driven"
)

// ErrInvalidLink is returned when a link is missing a title or has an unusable URL.
var ErrInvalidLink = errors.New("invalid link")

// LinkService manages quick-access links.
type LinkService struct {
	store driven.LinkStore
}

// NewLinkService creates a LinkService.
func NewLinkService(store driven.LinkStore) *LinkService {
	return &LinkService{store: store}
}

// List returns links ordered by position.
func (s *LinkService) List(ctx context.Context) ([]model.Link, error) {
	links, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	return links, nil
}

// Add validates and stores a link. A zero position appends it after the
// existing links.
func (s *LinkService) Add(ctx context.Context, link model.Link) (model.Link, error) {
	link.Title = strings.TrimSpace(link.Title)
	link.URL = strings.TrimSpace(link.URL)
	if link.Title == "" {
		return model.Link{}, fmt.Errorf("%w: title is required", ErrInvalidLink)
	}
	u, err := url.ParseRequestURI(link.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return model.Link{}, fmt.Errorf("%w: url must be an absolute http(s) URL", ErrInvalidLink)
	}

	if link.Position <= 0 {
		existing, err := s.store.ListAll(ctx)
		if err != nil {
			return model.Link{}, fmt.Errorf("list links: %w", err)
		}
		for _, l := range existing {
			link.Position = max(link.Position, l.Position)
		}
		link.Position++
	}

	created, err := s.store.Add(ctx, link)
	if err != nil {
		return model.Link{}, fmt.Errorf("add link: %w", err)
	}
	return created, nil
}

// Remove deletes a link by ID.
func (s *LinkService) Remove(ctx context.Context, id int64) error {
	if err := s.store.Remove(ctx, id); err != nil {
		return fmt.Errorf("remove link %d: %w", id, err)
	}
	return nil
}
