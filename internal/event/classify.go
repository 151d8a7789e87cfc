package event

import "strings"

const dataPageMarker = "Data Page"

// Classify decides whether r opens, closes, or is skipped.
// Cache-hit data page records are ignored before begin/end matching; begin wins
// over end when both markers are present.
func Classify(r Raw) Kind {
	dataPage := strings.Contains(r.Name, dataPageMarker)
	if dataPage && (strings.Contains(r.StepMethod, "instance found") || strings.Contains(r.StepMethod, "is fresh")) {
		return KindIgnored
	}
	switch {
	case strings.Contains(r.StepMethod, "Begin"),
		strings.Contains(r.EventType, "Begin"),
		dataPage && strings.Contains(r.StepMethod, "Load Begin"):
		return KindBegin
	case strings.Contains(r.StepMethod, "End"),
		strings.Contains(r.EventType, "End"),
		dataPage && strings.Contains(r.StepMethod, "Load End"):
		return KindEnd
	}
	return KindOther
}
