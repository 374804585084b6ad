package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/portalgate/pkg/async"
)

// contextExtractor pulls one string out of a request context.
type contextExtractor func(context.Context) (string, bool)

// Logger builds audit events and hands them to a Storage, either inline or
// through an async.Writer.
type Logger struct {
	storage            Storage
	writer             *async.Writer
	ownsWriter         bool
	filter             *MetadataFilter
	now                func() time.Time
	userIDExtractor    contextExtractor
	sessionIDExtractor contextExtractor
	requestIDExtractor contextExtractor
}

// Option configures a Logger.
type Option func(*Logger)

// WithUserIDExtractor reads Event.UserID from the context. WithActor overrides it.
func WithUserIDExtractor(fn func(context.Context) (string, bool)) Option {
	return func(l *Logger) { l.userIDExtractor = fn }
}

// WithSessionIDExtractor reads Event.SessionID from the context.
func WithSessionIDExtractor(fn func(context.Context) (string, bool)) Option {
	return func(l *Logger) { l.sessionIDExtractor = fn }
}

// WithRequestIDExtractor reads Event.RequestID from the context.
func WithRequestIDExtractor(fn func(context.Context) (string, bool)) Option {
	return func(l *Logger) { l.requestIDExtractor = fn }
}

// WithAsync makes Log enqueue events on w instead of storing inline.
// A nil writer makes the Logger start and own one.
func WithAsync(w *async.Writer) Option {
	return func(l *Logger) {
		if w == nil {
			w = async.NewWriter()
			l.ownsWriter = true
		}
		l.writer = w
	}
}

// WithMetadataFilter replaces the default metadata filter.
func WithMetadataFilter(f *MetadataFilter) Option {
	return func(l *Logger) {
		if f != nil {
			l.filter = f
		}
	}
}

// WithClock replaces time.Now for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Logger) {
		if now != nil {
			l.now = now
		}
	}
}

// NewLogger creates an audit logger writing to storage.
func NewLogger(storage Storage, opts ...Option) (*Logger, error) {
	if storage == nil {
		return nil, ErrStorageNotAvailable
	}
	l := &Logger{
		storage: storage,
		filter:  NewMetadataFilter(nil),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Log records a successful action unless an option sets another result.
func (l *Logger) Log(ctx context.Context, action string, opts ...EventOption) error {
	e := l.eventFromContext(ctx, action)
	e.Result = ResultSuccess
	return l.record(ctx, e, opts)
}

// LogError records a failed action carrying err.
func (l *Logger) LogError(ctx context.Context, action string, err error, opts ...EventOption) error {
	e := l.eventFromContext(ctx, action)
	e.Result = ResultError
	if err != nil {
		e.Error = err.Error()
	}
	return l.record(ctx, e, opts)
}

// Close flushes pending events when the Logger owns its writer.
func (l *Logger) Close(ctx context.Context) error {
	if l.ownsWriter {
		return l.writer.Close(ctx)
	}
	return nil
}

func (l *Logger) record(ctx context.Context, e Event, opts []EventOption) error {
	for _, opt := range opts {
		opt(&e)
	}
	if err := e.Validate(); err != nil {
		return err
	}
	e.Metadata = l.filter.Apply(e.Metadata)

	if l.writer == nil {
		return l.storage.Store(ctx, e)
	}
	return l.writer.Submit(async.Job{
		Name: "audit.store",
		Run: func(ctx context.Context) error {
			return l.storage.Store(ctx, e)
		},
	})
}

func (l *Logger) eventFromContext(ctx context.Context, action string) Event {
	e := Event{
		ID:        uuid.New().String(),
		Action:    action,
		CreatedAt: l.now(),
	}
	if l.userIDExtractor != nil {
		if v, ok := l.userIDExtractor(ctx); ok {
			e.UserID = v
		}
	}
	if l.sessionIDExtractor != nil {
		if v, ok := l.sessionIDExtractor(ctx); ok {
			e.SessionID = v
		}
	}
	if l.requestIDExtractor != nil {
		if v, ok := l.requestIDExtractor(ctx); ok {
			e.RequestID = v
		}
	}
	return e
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}
