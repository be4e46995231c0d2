package segment

import "testing"

func TestSegmentSingleSentence(t *testing.T) {
	seg := NewRule()

	spans := seg.Segment("Hello there, how are you")
	if len(spans) != 1 {
		t.Fatalf("Expected 1 span, got %d: %v", len(spans), spans)
	}
}

func TestSegmentMultipleSentences(t *testing.T) {
	seg := NewRule()

	spans := seg.Segment("I went home. Then I slept.")
	if len(spans) != 2 {
		t.Fatalf("Expected 2 spans, got %d: %v", len(spans), spans)
	}
	if spans[0] != "I went home." {
		t.Errorf("Unexpected first span: %q", spans[0])
	}
	if spans[1] != "Then I slept." {
		t.Errorf("Unexpected second span: %q", spans[1])
	}
}

// The orchestrator appends " ." before segmenting; the result must cross the
// two-span threshold only when the transcript already closed a sentence.
func TestSegmentTerminatorProbe(t *testing.T) {
	seg := NewRule()

	cases := []struct {
		text     string
		finished bool
	}{
		{"Hello there", false},
		{"Hello there, how are you", false},
		{"How are you?", true},
		{"Stop right now!", true},
		{"I'm done talking.", true},
	}

	for _, c := range cases {
		spans := seg.Segment(c.text + " .")
		if got := len(spans) > 1; got != c.finished {
			t.Errorf("%q + \" .\": got %d spans (finished=%v), want finished=%v",
				c.text, len(spans), got, c.finished)
		}
	}
}

func TestSegmentAbbreviations(t *testing.T) {
	seg := NewRule()

	spans := seg.Segment("Dr. Smith arrived. He was late.")
	if len(spans) != 2 {
		t.Fatalf("Expected abbreviation to be suppressed, got %d spans: %v", len(spans), spans)
	}
	if spans[0] != "Dr. Smith arrived." {
		t.Errorf("Unexpected first span: %q", spans[0])
	}
}

func TestSegmentDecimalsStayWhole(t *testing.T) {
	seg := NewRule()

	spans := seg.Segment("Pi is about 3.14 roughly")
	if len(spans) != 1 {
		t.Fatalf("Expected 1 span, got %d: %v", len(spans), spans)
	}
}

func TestSegmentClosingQuote(t *testing.T) {
	seg := NewRule()

	spans := seg.Segment(`He said "stop." Then he left.`)
	if len(spans) != 2 {
		t.Fatalf("Expected 2 spans, got %d: %v", len(spans), spans)
	}
	if spans[0] != `He said "stop."` {
		t.Errorf("Unexpected first span: %q", spans[0])
	}
}

func TestSegmentEmpty(t *testing.T) {
	seg := NewRule()

	if spans := seg.Segment(""); len(spans) != 0 {
		t.Errorf("Expected no spans for empty input, got %v", spans)
	}
	if spans := seg.Segment("   "); len(spans) != 0 {
		t.Errorf("Expected no spans for whitespace input, got %v", spans)
	}
}
