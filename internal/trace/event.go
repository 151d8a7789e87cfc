package trace

import "time"

// Kind is the type of a trace event.
type Kind uint8

const (
	KindSpanBegin Kind = iota + 1
	KindSpanEnd
	KindPoint
	KindHeartbeat
)

func (k Kind) String() string {
	switch k {
	case KindSpanBegin:
		return "begin"
	case KindSpanEnd:
		return "end"
	case KindPoint:
		return "point"
	case KindHeartbeat:
		return "heartbeat"
	default:
		return "unknown"
	}
}

// Scope is the granularity of an event. Lower values are coarser.
type Scope uint8

const (
	ScopeCommand Scope = iota + 1
	ScopeStage
	ScopeFile
	ScopeDetail
)

func (s Scope) String() string {
	switch s {
	case ScopeCommand:
		return "command"
	case ScopeStage:
		return "stage"
	case ScopeFile:
		return "file"
	case ScopeDetail:
		return "detail"
	default:
		return "unknown"
	}
}

// Event is a single trace record.
type Event struct {
	Time     time.Time
	Seq      uint64 // assigned by the tracer that stores it
	Kind     Kind
	Scope    Scope
	SpanID   uint64
	ParentID uint64 // 0 for roots
	Depth    int
	Name     string // "command:tree", "build", "file:export.xml"
	Detail   string
	Extra    map[string]string
}
