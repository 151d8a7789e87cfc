package event

import (
	"io"
	"log/slog"
	"time"

	"tracetree/internal/diag"
	"tracetree/internal/instant"
)

// Options tunes Normalize. The zero value is usable.
type Options struct {
	Logger   *slog.Logger
	Reporter diag.Reporter
	// Now supplies the fallback origin when the first timestamp is unusable.
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if o.Reporter == nil {
		o.Reporter = diag.NopReporter{}
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Origin returns the instant the relative time axis starts from: the first
// record's timestamp, or now when it is missing or unparseable.
func Origin(raws []Raw, now func() time.Time) (time.Time, bool) {
	if len(raws) > 0 {
		if t, ok := instant.Parse(raws[0].DateTime); ok {
			return t, true
		}
	}
	if now == nil {
		now = time.Now
	}
	return now().UTC(), false
}

// Normalize resolves names, kinds, interactions, and relative times for raws in order.
func Normalize(raws []Raw, opts Options) []Normalized {
	opts = opts.withDefaults()
	if len(raws) == 0 {
		return nil
	}
	origin, ok := Origin(raws, opts.Now)
	if !ok {
		opts.Logger.Warn("first event timestamp unparseable, using current time as origin",
			slog.String("sequence", raws[0].Sequence),
			slog.String("datetime", raws[0].DateTime))
		opts.Reporter.Report(diag.EventUnparsedOrigin, diag.SevWarning, raws[0].Sequence, raws[0].Name,
			"origin falls back to the current time")
	}

	out := make([]Normalized, len(raws))
	for i, r := range raws {
		n := Normalized{
			Raw:         r,
			Kind:        Classify(r),
			Base:        r.BaseName(),
			Interaction: r.Interaction,
		}
		if n.Interaction == "" {
			n.Interaction = UnknownInteraction
		}
		if n.Kind == KindIgnored {
			out[i] = n
			continue
		}
		if at, ok := instant.Parse(r.DateTime); ok {
			n.At = at
			n.Relative = instant.Seconds(origin, at)
		} else {
			opts.Logger.Warn("unparseable event timestamp",
				slog.String("sequence", r.Sequence),
				slog.String("name", r.Name),
				slog.String("datetime", r.DateTime))
			opts.Reporter.Report(diag.EventUnparsedTimestamp, diag.SevWarning, r.Sequence, r.Name,
				"timestamp "+quoteOrEmpty(r.DateTime)+" does not match "+instant.Layout)
		}
		out[i] = n
	}
	return out
}

func quoteOrEmpty(s string) string {
	if s == "" {
		return "<empty>"
	}
	return "\"" + s + "\""
}
