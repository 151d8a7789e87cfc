package diag

// Diagnostic is one finding about a trace.
type Diagnostic struct {
	Severity Severity `json:"severity" msgpack:"severity"`
	Code     Code     `json:"code" msgpack:"code"`
	Message  string   `json:"message" msgpack:"message"`
	// Sequence is the sequence attribute of the offending event, empty for document-level findings.
	Sequence string `json:"sequence,omitempty" msgpack:"sequence,omitempty"`
	Name     string `json:"name,omitempty" msgpack:"name,omitempty"`
}
