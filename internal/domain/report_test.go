package domain

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestReport_MarshalJSON_OrderAndTraceID(t *testing.T) {
	r := Report{
		TraceID: "t-1",
		Sections: []Section{
			{Name: "market_analysis", Text: "big market"},
			{Name: "competitor_analysis", Text: "few rivals"},
		},
	}

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	want := `{"market_analysis":"big market","competitor_analysis":"few rivals","trace_id":"t-1"}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}
}

func TestReport_MarshalJSON_EscapesText(t *testing.T) {
	r := Report{TraceID: `a"b`, Sections: []Section{{Name: "market_analysis", Text: "line1\nline2"}}}

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(data), "\n") {
		t.Errorf("raw newline leaked into JSON: %s", data)
	}

	var back map[string]string
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if back["trace_id"] != `a"b` {
		t.Errorf("trace_id = %q", back["trace_id"])
	}
}

func TestReport_UnmarshalJSON_KeepsOrder(t *testing.T) {
	doc := `{"competitor_analysis":"c","market_analysis":"m","trace_id":"t-9"}`

	var r Report
	if err := json.Unmarshal([]byte(doc), &r); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if r.TraceID != "t-9" {
		t.Errorf("trace id = %q", r.TraceID)
	}
	if len(r.Sections) != 2 || r.Sections[0].Name != "competitor_analysis" || r.Sections[1].Name != "market_analysis" {
		t.Fatalf("unexpected sections: %+v", r.Sections)
	}
	if text, ok := r.Section("market_analysis"); !ok || text != "m" {
		t.Errorf("Section(market_analysis) = %q, %v", text, ok)
	}
}

func TestReport_UnmarshalJSON_RejectsNonObject(t *testing.T) {
	var r Report
	if err := json.Unmarshal([]byte(`["x"]`), &r); err == nil {
		t.Fatal("expected error for array document")
	}
}
