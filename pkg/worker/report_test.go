package worker_test

import (
	"testing"

	"github.com/Tendo33/AgentTracks/pkg/worker"
)

func TestParseReportFencedJSON(t *testing.T) {
	text := "Checklist complete.\n```json\n" +
		`{"status":"done","summary":"wrote the survey","generated_files":{"survey.md":"the survey"}}` +
		"\n```\n"
	r := worker.ParseReport(text)
	if !r.Done() {
		t.Errorf("status = %q", r.Status)
	}
	if r.Summary != "wrote the survey" {
		t.Errorf("summary = %q", r.Summary)
	}
	if r.GeneratedFiles["survey.md"] != "the survey" {
		t.Errorf("files = %v", r.GeneratedFiles)
	}
}

func TestParseReportBareJSON(t *testing.T) {
	r := worker.ParseReport(`{"status":"blocked","summary":"need the dataset path"}`)
	if r.Status != "blocked" || r.Done() {
		t.Errorf("report = %+v", r)
	}
}

func TestParseReportPlainTextFallsBack(t *testing.T) {
	r := worker.ParseReport("I finished most of it but ran out of iterations.")
	if r.Status != "in_progress" {
		t.Errorf("status = %q", r.Status)
	}
	if r.Summary == "" {
		t.Error("summary should carry the raw text")
	}
}

func TestExtractJSONVariants(t *testing.T) {
	cases := []struct{ in, want string }{
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{`{"a":1}`, `{"a":1}`},
		{"prose first\n```json\n{\"a\":1}\n```\nprose after", `{"a":1}`},
	}
	for _, tc := range cases {
		if got := worker.ExtractJSON(tc.in); got != tc.want {
			t.Errorf("ExtractJSON(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestExtractGeneric(t *testing.T) {
	type payload struct {
		N int `json:"n"`
	}
	got, err := worker.Extract[payload]("```json\n{\"n\": 7}\n```")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got.N != 7 {
		t.Errorf("n = %d", got.N)
	}
	if _, err := worker.Extract[payload]("not json at all"); err == nil {
		t.Error("expected error for non-JSON input")
	}
}
