package diag

// Reporter is the minimal contract phases use to emit diagnostics.
type Reporter interface {
	Report(code Code, sev Severity, sequence, name, msg string)
}

// BagReporter writes into a *Bag.
type BagReporter struct{ Bag *Bag }

func (r BagReporter) Report(code Code, sev Severity, sequence, name, msg string) {
	if r.Bag == nil {
		return
	}
	r.Bag.Add(Diagnostic{Severity: sev, Code: code, Message: msg, Sequence: sequence, Name: name})
}

// NopReporter drops everything.
type NopReporter struct{}

func (NopReporter) Report(Code, Severity, string, string, string) {}
