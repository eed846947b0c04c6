// Package audit records an append-only trail of state transitions. Recording
// never blocks or fails the operation that produced the entry.
package audit

import (
	"context"
	"sync"
	"time"

	"flightbook/pkg/logger"
	"flightbook/pkg/middleware"
	"flightbook/pkg/model"
)

const writeTimeout = 5 * time.Second

type actorKey struct{}

// WithActor attaches the acting user to ctx.
func WithActor(ctx context.Context, userID string) context.Context {
	if userID == "" {
		return ctx
	}
	return context.WithValue(ctx, actorKey{}, userID)
}

// ActorFrom returns the acting user of ctx, falling back to the request
// identity and then to model.SystemActor.
func ActorFrom(ctx context.Context) string {
	if id, ok := ctx.Value(actorKey{}).(string); ok && id != "" {
		return id
	}
	if id := middleware.UserIDFromContext(ctx); id != "" {
		return id
	}
	return model.SystemActor
}

// Sink is the boundary the domain services write to.
type Sink interface {
	Record(ctx context.Context, action, entity, entityID string, changes map[string]any)
}

// Writer persists or forwards a single entry.
type Writer interface {
	Write(ctx context.Context, entry *model.AuditLog) error
}

// AsyncSink hands entries to a Writer on a background goroutine.
type AsyncSink struct {
	writer Writer
	log    *logger.Logger
	wg     sync.WaitGroup
	now    func() time.Time
}

func NewAsyncSink(writer Writer, log *logger.Logger) *AsyncSink {
	return &AsyncSink{writer: writer, log: log, now: time.Now}
}

func (s *AsyncSink) Record(ctx context.Context, action, entity, entityID string, changes map[string]any) {
	entry := &model.AuditLog{
		Action:     action,
		Entity:     entity,
		EntityID:   entityID,
		ActingUser: ActorFrom(ctx),
		Changes:    changes,
		Timestamp:  s.now().UTC().Truncate(time.Millisecond),
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
		defer cancel()

		if err := s.writer.Write(writeCtx, entry); err != nil {
			s.log.Error("Failed to record audit entry",
				"action", entry.Action,
				"entity", entry.Entity,
				"entity_id", entry.EntityID,
				"error", err,
			)
		}
	}()
}

// Flush waits for in-flight entries. Used on shutdown and in tests.
func (s *AsyncSink) Flush() {
	s.wg.Wait()
}

// Discard drops every entry.
type Discard struct{}

func (Discard) Record(context.Context, string, string, string, map[string]any) {}
