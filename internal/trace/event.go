package trace

import "time"

// Kind is what an event marks.
type Kind uint8

const (
	KindBegin Kind = iota + 1
	KindEnd
	KindPoint
	KindHeartbeat
)

var kindNames = []string{KindBegin: "begin", KindEnd: "end", KindPoint: "point", KindHeartbeat: "heartbeat"}

func (k Kind) String() string { return nameOf(kindNames, k) }

// Scope is the granularity of an event; smaller values are coarser.
type Scope uint8

const (
	// ScopeDriver covers a whole CLI command.
	ScopeDriver Scope = iota + 1
	// ScopePass covers one pipeline stage (libraries, compile, maps...).
	ScopePass
	// ScopeFile covers the work done for a single source file.
	ScopeFile
	// ScopeProcess covers one external compiler process.
	ScopeProcess
)

var scopeNames = []string{ScopeDriver: "driver", ScopePass: "pass", ScopeFile: "file", ScopeProcess: "process"}

func (s Scope) String() string { return nameOf(scopeNames, s) }

// Attr is an ordered key/value pair attached to an event.
type Attr struct {
	Key   string
	Value string
}

// Event is one trace record.
type Event struct {
	Time     time.Time
	Seq      uint64
	Kind     Kind
	Scope    Scope
	SpanID   uint64
	ParentID uint64
	Name     string
	Detail   string
	Elapsed  time.Duration // set on KindEnd
	Attrs    []Attr
}

func nameOf[T ~uint8](names []string, v T) string {
	if int(v) < len(names) && names[v] != "" {
		return names[v]
	}
	return "unknown"
}
