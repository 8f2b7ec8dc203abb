package aggregate

import (
	"strings"
	"testing"

	"marketbrief/internal/quote"
)

func ptr(v float64) *float64 { return &v }

func q(symbol string, current, reference *float64, provenance ...string) quote.Quote {
	return quote.Quote{Symbol: symbol, Current: current, Reference: reference, Provenance: provenance}
}

func TestSummarize_BullishWithRotation(t *testing.T) {
	in := []quote.Quote{
		q("ES=F", ptr(101), ptr(100)),   // +1.00
		q("NQ=F", ptr(100.2), ptr(100)), // +0.20
		q("YM=F", nil, ptr(100)),        // skipped
		q("RTY=F", ptr(100.3), ptr(100)),
	}

	s, ok := Summarize(in)
	if !ok {
		t.Fatalf("want a summary")
	}
	if s.Count != 3 {
		t.Fatalf("want 3 valid changes, got %d", s.Count)
	}
	if s.Tone != Bullish {
		t.Fatalf("want bullish, got %s (mean %.3f)", s.Tone, s.Mean)
	}
	if s.Best.Name != "ES=F" || s.Worst.Name != "NQ=F" {
		t.Fatalf("unexpected best/worst: %+v / %+v", s.Best, s.Worst)
	}
	if !s.Rotation() {
		t.Fatalf("spread %.3f should be a rotation", s.Spread)
	}
}

func TestSummarize_ToneThresholds(t *testing.T) {
	cases := []struct {
		name string
		cur  float64
		want Tone
	}{
		{"neutral below +0.2", 100.19, Neutral},
		{"bullish above", 100.21, Bullish},
		{"neutral above -0.2", 99.81, Neutral},
		{"bearish below", 99.79, Bearish},
	}
	for _, tc := range cases {
		s, ok := Summarize([]quote.Quote{q("ES=F", ptr(tc.cur), ptr(100))})
		if !ok {
			t.Fatalf("%s: want a summary", tc.name)
		}
		if s.Tone != tc.want {
			t.Fatalf("%s: want %s, got %s (mean %.4f)", tc.name, tc.want, s.Tone, s.Mean)
		}
	}
}

func TestSummarize_NoValidChanges(t *testing.T) {
	in := []quote.Quote{
		q("ES=F", nil, nil),
		q("NQ=F", ptr(100), ptr(0)),
	}
	if _, ok := Summarize(in); ok {
		t.Fatalf("want no summary")
	}
	if got := Interpretation(in); got != NoData {
		t.Fatalf("want no-data sentence, got %q", got)
	}
}

func TestInterpretation_Text(t *testing.T) {
	in := []quote.Quote{
		q("ES=F", ptr(99), ptr(100)),
		q("NQ=F", ptr(98.9), ptr(100)),
	}
	got := Interpretation(in)
	for _, want := range []string{"Sesgo bajista", "media -1.05%", "Mejor: ES=F -1.00%", "Peor: NQ=F -1.10%", "homogéneo", "Apertura con presión"} {
		if !strings.Contains(got, want) {
			t.Fatalf("want %q in %q", want, got)
		}
	}
}

func TestInterpretation_UsesLabels(t *testing.T) {
	sp := q("ES=F", ptr(101), ptr(100))
	sp.Label = "S&P 500"
	ndx := q("NQ=F", ptr(99.5), ptr(100))
	ndx.Label = "Nasdaq 100"

	got := Interpretation([]quote.Quote{sp, ndx})
	for _, want := range []string{"Mejor: S&P 500 +1.00%", "Peor: Nasdaq 100 -0.50%"} {
		if !strings.Contains(got, want) {
			t.Fatalf("want %q in %q", want, got)
		}
	}
	if strings.Contains(got, "ES=F") {
		t.Fatalf("symbol leaked into labelled text: %q", got)
	}
}

func TestBreakdown_SortedByCountThenSource(t *testing.T) {
	in := []quote.Quote{
		q("A", nil, nil, "snapshot.live", "snapshot.prev_close"),
		q("B", nil, nil, "intraday.5m", "daily.prev"),
		q("C", nil, nil, "snapshot.live", "snapshot.prev_close"),
		q("D", nil, nil),
	}
	out := Breakdown(in)
	if len(out) != 3 {
		t.Fatalf("want 3 rows, got %d: %+v", len(out), out)
	}
	if out[0].Source != "snapshot.live+snapshot.prev_close" || out[0].Count != 2 {
		t.Fatalf("unexpected first row: %+v", out[0])
	}
	if out[1].Source != "intraday.5m+daily.prev" || out[2].Source != "none" {
		t.Fatalf("unexpected order: %+v", out)
	}
}
