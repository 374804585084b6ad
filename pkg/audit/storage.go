package audit

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/dmitrymomot/portalgate/pkg/logger"
)

// Storage persists audit events.
type Storage interface {
	Store(ctx context.Context, events ...Event) error
}

// Criteria selects events from a MemoryStorage. Zero fields match anything.
type Criteria struct {
	UserID    string
	SessionID string
	Action    string
	Result    Result
	Limit     int
}

func (c Criteria) match(e Event) bool {
	switch {
	case c.UserID != "" && e.UserID != c.UserID:
		return false
	case c.SessionID != "" && e.SessionID != c.SessionID:
		return false
	case c.Action != "" && e.Action != c.Action:
		return false
	case c.Result != "" && e.Result != c.Result:
		return false
	}
	return true
}

// MemoryStorage keeps events in memory, newest last. It is meant for tests
// and single-node deployments that only need a recent window.
type MemoryStorage struct {
	mu     sync.RWMutex
	events []Event
	max    int
}

// NewMemoryStorage creates a storage holding at most max events; the
// oldest are dropped first. max <= 0 means unbounded.
func NewMemoryStorage(max int) *MemoryStorage {
	return &MemoryStorage{max: max}
}

func (s *MemoryStorage) Store(_ context.Context, events ...Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, events...)
	if s.max > 0 && len(s.events) > s.max {
		s.events = slices.Clone(s.events[len(s.events)-s.max:])
	}
	return nil
}

// Query returns matching events, newest first.
func (s *MemoryStorage) Query(_ context.Context, c Criteria) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Event
	for i := len(s.events) - 1; i >= 0; i-- {
		if !c.match(s.events[i]) {
			continue
		}
		out = append(out, s.events[i])
		if c.Limit > 0 && len(out) == c.Limit {
			break
		}
	}
	return out, nil
}

// Len returns the number of stored events.
func (s *MemoryStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// SlogStorage writes events as structured log records.
type SlogStorage struct {
	log *slog.Logger
}

func NewSlogStorage(l *slog.Logger) *SlogStorage {
	if l == nil {
		l = logger.Discard()
	}
	return &SlogStorage{log: l.With(logger.Component("audit"))}
}

func (s *SlogStorage) Store(ctx context.Context, events ...Event) error {
	for _, e := range events {
		level := slog.LevelInfo
		if e.Result != ResultSuccess {
			level = slog.LevelWarn
		}
		attrs := []slog.Attr{
			slog.String("audit_id", e.ID),
			logger.Event(e.Action),
			slog.String("result", string(e.Result)),
			logger.UserID(e.UserID),
			logger.SessionID(e.SessionID),
			logger.Role(e.Role),
		}
		if e.Reason != "" {
			attrs = append(attrs, logger.Reason(e.Reason))
		}
		if e.Resource != "" {
			attrs = append(attrs, slog.String("resource", e.Resource), slog.String("resource_id", e.ResourceID))
		}
		if e.IP != "" {
			attrs = append(attrs, slog.String("ip", e.IP))
		}
		if e.Error != "" {
			attrs = append(attrs, slog.String("error", e.Error))
		}
		if len(e.Metadata) > 0 {
			attrs = append(attrs, slog.Any("metadata", e.Metadata))
		}
		s.log.LogAttrs(ctx, level, "audit event", attrs...)
	}
	return nil
}

// MultiStorage fans events out to every storage and joins their errors.
type MultiStorage []Storage

func (m MultiStorage) Store(ctx context.Context, events ...Event) error {
	var errs []error
	for _, s := range m {
		if err := s.Store(ctx, events...); err != nil {
			errs = append(errs, err)
		}
	}
	return joinErrors(errs)
}
