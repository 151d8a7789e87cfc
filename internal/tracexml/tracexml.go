// Package tracexml reads tracer XML exports into raw event records.
package tracexml

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/unicode/norm"

	"tracetree/internal/event"
)

// DefaultMaxBytes bounds how much of a file LoadFile reads.
const DefaultMaxBytes = 256 << 20

var (
	// ErrMalformed wraps any decoder failure; the document cannot be used.
	ErrMalformed = errors.New("invalid XML format in tracer file")
	// ErrTooLarge is returned when the input exceeds the byte limit.
	ErrTooLarge = errors.New("tracer file exceeds size limit")
)

const (
	elemEvent       = "TraceEvent"
	elemDateTime    = "DateTime"
	elemInteraction = "Interaction"
)

// pending is a TraceEvent whose element is still open.
type pending struct {
	index int // position in the output
	// capture is the child element whose text is being collected, if any.
	capture string
	depth   int // depth of capture element relative to the event
	text    strings.Builder
	gotTime bool
	gotIact bool
}

// Decode collects every TraceEvent element of the document in document order.
// Each record takes the first DateTime and Interaction descendant text.
func Decode(r io.Reader) ([]event.Raw, error) {
	dec := xml.NewDecoder(r)
	var (
		out     []event.Raw
		open    []*pending
		sawRoot bool
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			sawRoot = true
			for _, p := range open {
				if p.capture != "" {
					p.depth++
				}
			}
			if t.Name.Local == elemEvent {
				out = append(out, rawFromAttrs(t.Attr))
				open = append(open, &pending{index: len(out) - 1})
				continue
			}
			for _, p := range open {
				if p.capture != "" {
					continue
				}
				if (t.Name.Local == elemDateTime && !p.gotTime) || (t.Name.Local == elemInteraction && !p.gotIact) {
					p.capture = t.Name.Local
					p.depth = 0
					p.text.Reset()
				}
			}
		case xml.CharData:
			for _, p := range open {
				if p.capture != "" {
					p.text.Write(t)
				}
			}
		case xml.EndElement:
			if t.Name.Local == elemEvent && len(open) > 0 {
				open = open[:len(open)-1]
				continue
			}
			for _, p := range open {
				if p.capture == "" {
					continue
				}
				if p.depth > 0 {
					p.depth--
					continue
				}
				rec := &out[p.index]
				text := norm.NFC.String(p.text.String())
				switch p.capture {
				case elemDateTime:
					rec.DateTime = strings.TrimSpace(text)
					p.gotTime = true
				case elemInteraction:
					rec.Interaction = text
					p.gotIact = true
				}
				p.capture = ""
			}
		}
	}
	if !sawRoot {
		return nil, fmt.Errorf("%w: no root element", ErrMalformed)
	}
	return out, nil
}

func rawFromAttrs(attrs []xml.Attr) event.Raw {
	var r event.Raw
	for _, a := range attrs {
		v := norm.NFC.String(a.Value)
		switch a.Name.Local {
		case "name":
			r.Name = v
		case "keyname":
			r.KeyName = v
		case "stepMethod":
			r.StepMethod = v
		case "eventType":
			r.EventType = v
		case "sequence":
			r.Sequence = v
		}
	}
	return r
}

// DecodeBytes is Decode over an in-memory document.
func DecodeBytes(doc []byte) ([]event.Raw, error) {
	return Decode(bytes.NewReader(doc))
}

// ReadFileLimited reads path, failing with ErrTooLarge past maxBytes.
// A non-positive maxBytes selects DefaultMaxBytes.
func ReadFileLimited(path string, maxBytes int64) ([]byte, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadLimited(f, maxBytes)
}

// ReadLimited reads r to the end, failing with ErrTooLarge past maxBytes.
func ReadLimited(r io.Reader, maxBytes int64) ([]byte, error) {
	lr := &io.LimitedReader{R: r, N: maxBytes + 1}
	b, err := io.ReadAll(lr)
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > maxBytes {
		return nil, fmt.Errorf("%w (%d bytes)", ErrTooLarge, maxBytes)
	}
	return b, nil
}

// LoadFile reads at most maxBytes of path and decodes it.
func LoadFile(path string, maxBytes int64) ([]event.Raw, error) {
	doc, err := ReadFileLimited(path, maxBytes)
	if err != nil {
		return nil, err
	}
	raws, err := DecodeBytes(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return raws, nil
}
