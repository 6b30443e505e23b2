package trace

import (
	"context"
	"sync/atomic"
	"time"
)

var (
	seq     atomic.Uint64
	spanIDs atomic.Uint64
)

// Span is an open begin/end pair. The zero-id span returned when tracing is
// off is safe to use and costs nothing.
type Span struct {
	tracer  Tracer
	id      uint64
	parent  uint64
	scope   Scope
	name    string
	started time.Time
	attrs   []Attr
}

func emit(t Tracer, ev Event) {
	ev.Time = time.Now()
	ev.Seq = seq.Add(1)
	t.Emit(&ev)
}

// Begin opens a span on t under parent (0 for a root span).
func Begin(t Tracer, scope Scope, name string, parent uint64) *Span {
	s := &Span{started: time.Now()}
	if !Enabled(t) || !t.Level().Admits(scope) {
		return s
	}
	s.tracer, s.id, s.parent, s.scope, s.name = t, spanIDs.Add(1), parent, scope, name
	emit(t, Event{Kind: KindBegin, Scope: scope, SpanID: s.id, ParentID: parent, Name: name})
	return s
}

// Start opens a span on the tracer in ctx, nested under the span ctx
// already carries, and returns a context carrying the new span.
func Start(ctx context.Context, scope Scope, name string) (context.Context, *Span) {
	s := Begin(FromContext(ctx), scope, name, currentSpan(ctx))
	if s.id == 0 {
		return ctx, s
	}
	return context.WithValue(ctx, spanKey{}, s.id), s
}

// Attr attaches a key/value pair reported with the end event.
func (s *Span) Attr(key, value string) *Span {
	if s != nil && s.id != 0 {
		s.attrs = append(s.attrs, Attr{Key: key, Value: value})
	}
	return s
}

// End closes the span and returns how long it was open.
func (s *Span) End(detail string) time.Duration {
	if s == nil {
		return 0
	}
	elapsed := time.Since(s.started)
	if s.id != 0 {
		emit(s.tracer, Event{
			Kind:     KindEnd,
			Scope:    s.scope,
			SpanID:   s.id,
			ParentID: s.parent,
			Name:     s.name,
			Detail:   detail,
			Elapsed:  elapsed,
			Attrs:    s.attrs,
		})
	}
	return elapsed
}

// ID is 0 for spans that were not recorded.
func (s *Span) ID() uint64 {
	if s == nil {
		return 0
	}
	return s.id
}

// Note records an instant event under the span carried by ctx.
func Note(ctx context.Context, scope Scope, name, detail string) {
	t := FromContext(ctx)
	if !Enabled(t) || !t.Level().Admits(scope) {
		return
	}
	emit(t, Event{Kind: KindPoint, Scope: scope, ParentID: currentSpan(ctx), Name: name, Detail: detail})
}
