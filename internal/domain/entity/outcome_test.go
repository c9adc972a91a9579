package entity

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestFailedKinds(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want OutcomeKind
	}{
		{"missing file", ErrMissingFile, OutcomeMissingFile},
		{"wrapped unsupported", fmt.Errorf("%w: x.txt", ErrUnsupportedType), OutcomeUnsupportedType},
		{"wrapped timeout", fmt.Errorf("%w: deadline", ErrTimeout), OutcomeTimeout},
		{"tool unavailable", fmt.Errorf("start npx: %w", ErrToolUnavailable), OutcomeToolUnavailable},
		{"internal", ErrInternal, OutcomeInternalError},
		{"unknown", errors.New("disk on fire"), OutcomeInternalError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out := Failed(tc.err)
			if out.Kind != tc.want {
				t.Fatalf("Failed(%v).Kind = %s, want %s", tc.err, out.Kind, tc.want)
			}
			if out.OK() || out.Linted() {
				t.Fatalf("failure outcome must not be OK or Linted: %+v", out)
			}
			if !errors.Is(out.Err, tc.err) {
				t.Fatalf("outcome lost its cause: %v", out.Err)
			}
		})
	}
}

func TestPassedAndFindings(t *testing.T) {
	if p := Passed(); !p.OK() || !p.Linted() {
		t.Fatalf("Passed() = %+v, want OK and Linted", p)
	}

	f := Findings("", 1)
	if f.OK() {
		t.Fatal("findings with empty diagnostics must still not be OK")
	}
	if !f.Linted() || f.ExitCode != 1 {
		t.Fatalf("Findings() = %+v", f)
	}
}

func TestUploadHasExtension(t *testing.T) {
	testCases := []struct {
		filename string
		expected bool
	}{
		{"diagram.bpmn", true},
		{"DIAGRAM.BPMN", true},
		{"nested/dir/process.bpmn", true},
		{"diagram.txt", false},
		{"diagram.bpmn.txt", false},
		{"bpmn", false},
		{".bpmn", true},
		{"", false},
	}

	for _, tc := range testCases {
		u := NewUpload(tc.filename, 0, strings.NewReader(""))
		if got := u.HasExtension(".bpmn"); got != tc.expected {
			t.Errorf("HasExtension(%q) = %v, want %v", tc.filename, got, tc.expected)
		}
	}

	var nilUpload *Upload
	if nilUpload.HasExtension(".bpmn") {
		t.Error("nil upload must not match")
	}
}

func TestDefaultRulesetRender(t *testing.T) {
	data, err := DefaultRuleset().Render()
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	var decoded struct {
		Extends string            `json:"extends"`
		Rules   map[string]string `json:"rules"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("rendered ruleset is not JSON: %v\n%s", err, data)
	}
	if decoded.Extends != "bpmnlint:recommended" {
		t.Fatalf("extends = %q", decoded.Extends)
	}
	for _, rule := range []string{"label-required", "no-implicit-split", "no-implicit-join", "single-blank-start-event", "single-end-event"} {
		if decoded.Rules[rule] != "error" {
			t.Errorf("rule %s = %q, want error", rule, decoded.Rules[rule])
		}
	}
}
