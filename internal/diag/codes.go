package diag

import (
	"fmt"
	"strconv"
	"strings"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Loading
	LoadInfo         Code = 1000
	LoadMalformedXML Code = 1001
	LoadTooLarge     Code = 1002
	LoadNoEvents     Code = 1003

	// Event normalisation
	EventInfo               Code = 2000
	EventUnparsedTimestamp  Code = 2001
	EventUnparsedOrigin     Code = 2002
	EventMissingInteraction Code = 2003

	// Hierarchy building
	TraceInfo             Code = 3000
	TraceDiscardedEnd     Code = 3001
	TraceOpenAtEOF        Code = 3002
	TraceNegativeDuration Code = 3003

	// Observability
	ObsInfo    Code = 6000
	ObsTimings Code = 6001
)

var codeDescription = map[Code]string{
	UnknownCode:             "Unknown error",
	LoadInfo:                "Loading information",
	LoadMalformedXML:        "Malformed trace document",
	LoadTooLarge:            "Trace document exceeds size limit",
	LoadNoEvents:            "Trace document contains no events",
	EventInfo:               "Event information",
	EventUnparsedTimestamp:  "Event timestamp could not be parsed",
	EventUnparsedOrigin:     "First event timestamp could not be parsed; origin is now",
	EventMissingInteraction: "Event has no interaction id",
	TraceInfo:               "Hierarchy information",
	TraceDiscardedEnd:       "End event does not match the open activity",
	TraceOpenAtEOF:          "Activity still open at end of trace",
	TraceNegativeDuration:   "Activity ends before it begins",
	ObsInfo:                 "Observability information",
	ObsTimings:              "Pipeline timings",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("LOAD%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("EVT%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("TRC%04d", ic)
	case ic >= 6000 && ic < 7000:
		return fmt.Sprintf("OBS%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[Code(0)]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}

// MarshalText encodes the code by its stable ID.
func (c Code) MarshalText() ([]byte, error) {
	return []byte(c.ID()), nil
}

// UnmarshalText accepts IDs produced by MarshalText, such as "TRC3001".
func (c *Code) UnmarshalText(b []byte) error {
	s := strings.TrimLeft(string(b), "ABCDEFGHIJKLMNOPQRSTUVWXYZ")
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return fmt.Errorf("invalid diagnostic code %q", b)
	}
	*c = Code(n)
	return nil
}
