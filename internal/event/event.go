// Package event classifies raw tracer records and places them on the trace's time axis.
package event

import "time"

// UnknownInteraction is the interaction id used when a record carries none.
const UnknownInteraction = "Unknown"

// Raw is one instrumentation record as it appears in the export.
type Raw struct {
	Name        string `json:"name"`
	KeyName     string `json:"keyname,omitempty"`
	StepMethod  string `json:"stepMethod,omitempty"`
	EventType   string `json:"eventType,omitempty"`
	Sequence    string `json:"sequence,omitempty"`
	Interaction string `json:"interaction,omitempty"`
	DateTime    string `json:"dateTime,omitempty"`
}

// BaseName is the key used to pair begin and end records.
func (r Raw) BaseName() string {
	if r.KeyName != "" {
		return r.KeyName
	}
	return r.Name
}

// Kind represents how a record participates in the interval structure.
type Kind uint8

const (
	// KindOther records neither open nor close anything.
	KindOther Kind = iota
	// KindBegin opens an activity.
	KindBegin
	// KindEnd closes the activity on top of the stack.
	KindEnd
	// KindIgnored marks cache-hit sub-events that are dropped outright.
	KindIgnored
)

// String returns the string representation of Kind.
func (k Kind) String() string {
	switch k {
	case KindBegin:
		return "begin"
	case KindEnd:
		return "end"
	case KindIgnored:
		return "ignored"
	default:
		return "other"
	}
}

// Normalized is a Raw record with its derived fields resolved.
type Normalized struct {
	Raw
	Kind        Kind
	Base        string
	Interaction string
	// At is the absolute instant; zero when the timestamp could not be parsed.
	At time.Time
	// Relative is seconds since the trace origin; 0 when At is zero.
	Relative float64
}

// HasTime reports whether the record's timestamp was parsed.
func (n Normalized) HasTime() bool {
	return !n.At.IsZero()
}
