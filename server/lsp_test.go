package server

import (
	"strings"
	"testing"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/chazu/bfi/vm"
)

// ---------------------------------------------------------------------------
// Position helpers
// ---------------------------------------------------------------------------

func TestPositionAt(t *testing.T) {
	text := "++\n+é[\n]"
	cases := []struct {
		offset     int
		line, char protocol.UInteger
	}{
		{0, 0, 0},
		{2, 0, 2},
		{3, 1, 0},
		{4, 1, 1},
		{6, 1, 2}, // after the two-byte é
		{8, 2, 0},
		{100, 2, 1},
	}
	for _, tc := range cases {
		pos := positionAt(text, tc.offset)
		if pos.Line != tc.line || pos.Character != tc.char {
			t.Errorf("positionAt(%d) = %d:%d, want %d:%d", tc.offset, pos.Line, pos.Character, tc.line, tc.char)
		}
	}
}

func TestOffsetAt(t *testing.T) {
	text := "++\n+é[\n]"
	cases := []struct {
		line, char protocol.UInteger
		want       int
	}{
		{0, 0, 0},
		{0, 5, 2}, // clamped to end of line
		{1, 2, 6},
		{2, 0, 8},
		{3, 0, -1},
	}
	for _, tc := range cases {
		got := offsetAt(text, protocol.Position{Line: tc.line, Character: tc.char})
		if got != tc.want {
			t.Errorf("offsetAt(%d:%d) = %d, want %d", tc.line, tc.char, got, tc.want)
		}
	}
}

// ---------------------------------------------------------------------------
// Diagnostics and hover
// ---------------------------------------------------------------------------

func TestDiagnosticsFor(t *testing.T) {
	s := NewLSP(vm.DefaultStackDepth)
	diags := s.diagnosticsFor("+++\n]\n,")
	if len(diags) != 2 {
		t.Fatalf("len(diags) = %d, want 2: %+v", len(diags), diags)
	}
	first := diags[0]
	if first.Range.Start.Line != 1 || first.Range.Start.Character != 0 || first.Range.End.Character != 1 {
		t.Errorf("range = %+v", first.Range)
	}
	if first.Severity == nil || *first.Severity != protocol.DiagnosticSeverityError {
		t.Errorf("severity = %v", first.Severity)
	}
	if first.Code == nil || first.Code.Value != "UnmatchedClose" {
		t.Errorf("code = %v", first.Code)
	}
	if diags[1].Range.Start.Line != 2 || !strings.Contains(diags[1].Message, "Unimplemented") {
		t.Errorf("second diagnostic = %+v", diags[1])
	}
}

func TestDiagnosticsForCleanDocument(t *testing.T) {
	s := NewLSP(vm.DefaultStackDepth)
	if diags := s.diagnosticsFor("+++[>+<-]\n>.\r\n"); len(diags) != 0 {
		t.Errorf("diags = %+v, want none", diags)
	}
}

func TestDiagnosticsForDepthWarning(t *testing.T) {
	s := NewLSP(1)
	diags := s.diagnosticsFor("+[[-]]")
	if len(diags) != 1 {
		t.Fatalf("len(diags) = %d, want 1", len(diags))
	}
	if *diags[0].Severity != protocol.DiagnosticSeverityWarning {
		t.Errorf("severity = %v, want warning", *diags[0].Severity)
	}
}

func TestHoverAt(t *testing.T) {
	text := "+ [\n]"
	hover := hoverAt(text, protocol.Position{Line: 0, Character: 2})
	if hover == nil {
		t.Fatal("hover on '[' = nil")
	}
	content := hover.Contents.(protocol.MarkupContent)
	if !strings.Contains(content.Value, "LoopStackOverflow") {
		t.Errorf("hover = %q", content.Value)
	}
	if hover.Range.Start.Character != 2 || hover.Range.End.Character != 3 {
		t.Errorf("range = %+v", hover.Range)
	}

	if h := hoverAt(text, protocol.Position{Line: 0, Character: 1}); h != nil {
		t.Errorf("hover on space = %+v, want nil", h)
	}
	if h := hoverAt(text, protocol.Position{Line: 5, Character: 0}); h != nil {
		t.Errorf("hover past end = %+v, want nil", h)
	}
	if h := hoverAt(text, protocol.Position{Line: 1, Character: 0}); h == nil {
		t.Error("hover on ']' = nil")
	}
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

func TestShutdownDropsDocuments(t *testing.T) {
	s := NewLSP(vm.DefaultStackDepth)
	s.docs["file:///a.bf"] = "+."
	s.docs["file:///b.bf"] = "]"

	if err := s.setTrace(nil, &protocol.SetTraceParams{Value: protocol.TraceValueVerbose}); err != nil {
		t.Fatal(err)
	}
	if got := protocol.GetTraceValue(); got != protocol.TraceValueVerbose {
		t.Errorf("trace = %q, want verbose", got)
	}

	if err := s.shutdown(nil); err != nil {
		t.Fatal(err)
	}
	if len(s.docs) != 0 {
		t.Errorf("docs = %v, want none after shutdown", s.docs)
	}
	if got := protocol.GetTraceValue(); got != protocol.TraceValueOff {
		t.Errorf("trace = %q, want off after shutdown", got)
	}

	hover, err := s.textDocumentHover(nil, &protocol.HoverParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: "file:///a.bf"},
		},
	})
	if err != nil || hover != nil {
		t.Errorf("hover on dropped document = %v, %v", hover, err)
	}
}
