package tracexml

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sample = `<?xml version="1.0" encoding="UTF-8"?>
<TraceEvents>
  <TraceEvent name="Activity Begin" keyname="Load" stepMethod="Load-DataPage" eventType="Activity" sequence="1">
    <DateTime>
      20240115T103000.000 GMT
    </DateTime>
    <Interaction>7</Interaction>
  </TraceEvent>
  <TraceEvent name="Data Page cached instance found" sequence="2"/>
  <TraceEvent name="Activity End" keyname="Load" sequence="3">
    <DateTime>20240115T103001.500 GMT</DateTime>
  </TraceEvent>
</TraceEvents>`

func TestDecodeCollectsEventsInOrder(t *testing.T) {
	raws, err := DecodeBytes([]byte(sample))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(raws) != 3 {
		t.Fatalf("want 3 events, got %d", len(raws))
	}
	first := raws[0]
	if first.Name != "Activity Begin" || first.KeyName != "Load" || first.Sequence != "1" {
		t.Fatalf("unexpected attrs: %+v", first)
	}
	if first.StepMethod != "Load-DataPage" || first.EventType != "Activity" {
		t.Fatalf("unexpected step attrs: %+v", first)
	}
	if first.DateTime != "20240115T103000.000 GMT" {
		t.Fatalf("DateTime not trimmed: %q", first.DateTime)
	}
	if first.Interaction != "7" {
		t.Fatalf("interaction: %q", first.Interaction)
	}
	if raws[1].DateTime != "" || raws[1].Interaction != "" {
		t.Fatalf("childless event should have empty text: %+v", raws[1])
	}
	if raws[2].Interaction != "" {
		t.Fatalf("missing Interaction should stay empty, got %q", raws[2].Interaction)
	}
}

func TestDecodeTakesFirstChildOnly(t *testing.T) {
	doc := `<r><TraceEvent sequence="1"><DateTime>A</DateTime><DateTime>B</DateTime>` +
		`<Interaction>1</Interaction><Interaction>2</Interaction></TraceEvent></r>`
	raws, err := DecodeBytes([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	if raws[0].DateTime != "A" || raws[0].Interaction != "1" {
		t.Fatalf("want first children, got %+v", raws[0])
	}
}

func TestDecodeNestedDescendantText(t *testing.T) {
	doc := `<r><TraceEvent sequence="1"><Meta><DateTime>X<b>y</b>Z</DateTime></Meta></TraceEvent></r>`
	raws, err := DecodeBytes([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	if raws[0].DateTime != "XyZ" {
		t.Fatalf("want concatenated descendant text, got %q", raws[0].DateTime)
	}
}

func TestDecodeNormalizesNFC(t *testing.T) {
	// "e" followed by a combining acute accent.
	doc := "<r><TraceEvent name=\"Activity Begin\" keyname=\"Cafe\u0301\" sequence=\"1\"/></r>"
	raws, err := DecodeBytes([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	if raws[0].KeyName != "Caf\u00e9" {
		t.Fatalf("want composed form, got %q", raws[0].KeyName)
	}
}

func TestDecodeMalformed(t *testing.T) {
	for name, doc := range map[string]string{
		"unclosed": `<r><TraceEvent sequence="1">`,
		"garbage":  `<<<>>>`,
		"empty":    ``,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeBytes([]byte(doc))
			if !errors.Is(err, ErrMalformed) {
				t.Fatalf("want ErrMalformed, got %v", err)
			}
		})
	}
}

func TestDecodeNoEventsIsNotAnError(t *testing.T) {
	raws, err := DecodeBytes([]byte(`<TraceEvents/>`))
	if err != nil {
		t.Fatal(err)
	}
	if len(raws) != 0 {
		t.Fatalf("want no events, got %d", len(raws))
	}
}

func TestReadLimited(t *testing.T) {
	if _, err := ReadLimited(strings.NewReader("12345"), 5); err != nil {
		t.Fatalf("exact limit should pass: %v", err)
	}
	if _, err := ReadLimited(strings.NewReader("123456"), 5); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("want ErrTooLarge, got %v", err)
	}
}

func TestReadFileLimited(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.xml")
	if err := os.WriteFile(path, []byte(sample), 0o600); err != nil {
		t.Fatal(err)
	}
	b, err := ReadFileLimited(path, 0)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != sample {
		t.Fatal("content mismatch")
	}
	if _, err := ReadFileLimited(path, 10); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("want ErrTooLarge, got %v", err)
	}
	if _, err := ReadFileLimited(filepath.Join(t.TempDir(), "missing.xml"), 0); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("want not-exist, got %v", err)
	}
}

func TestLoadFileWrapsPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.xml")
	if err := os.WriteFile(path, []byte("<r>"), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := LoadFile(path, 0)
	if !errors.Is(err, ErrMalformed) || !strings.Contains(err.Error(), "bad.xml") {
		t.Fatalf("want wrapped ErrMalformed naming the file, got %v", err)
	}
}
