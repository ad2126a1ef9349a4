package application

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/ericfisherdev/setoolkit/internal/domain/model"
)

// DefaultNotificationCapacity bounds the in-memory notification list.
const DefaultNotificationCapacity = 100

// NotificationService keeps a bounded, newest-first list of user-facing
// notifications. It is safe for concurrent use.
type NotificationService struct {
	mu       sync.RWMutex
	items    []model.Notification
	capacity int
	now      func() time.Time
}

// NewNotificationService creates a NotificationService holding at most capacity
// notifications. A non-positive capacity selects DefaultNotificationCapacity.
func NewNotificationService(capacity int) *NotificationService {
	if capacity <= 0 {
		capacity = DefaultNotificationCapacity
	}
	return &NotificationService{capacity: capacity, now: time.Now}
}

// Push adds a notification at the front, evicting the oldest beyond capacity.
// Missing IDs and timestamps are filled in.
func (s *NotificationService) Push(n model.Notification) model.Notification {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = append([]model.Notification{n}, s.items...)
	if len(s.items) > s.capacity {
		s.items = s.items[:s.capacity]
	}
	return n
}

// List returns up to limit notifications, newest first. A non-positive limit
// returns all.
func (s *NotificationService) List(limit int) []model.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.items)
	if limit > 0 && limit < n {
		n = limit
	}
	return append([]model.Notification(nil), s.items[:n]...)
}

// Dismiss removes a notification by ID. It reports whether one was removed.
func (s *NotificationService) Dismiss(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := len(s.items)
	s.items = lo.Reject(s.items, func(n model.Notification, _ int) bool { return n.ID == id })
	return len(s.items) != before
}

// Clear removes every notification.
func (s *NotificationService) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
}
