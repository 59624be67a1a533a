package server

import (
	"fmt"
	"strings"
	"sync"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/chazu/bfi/check"
	"github.com/chazu/bfi/vm"

	_ "github.com/tliron/commonlog/simple"
)

const lspName = "bfi-lsp"

// LspServer publishes static diagnostics for open documents and describes
// the instruction under the cursor.
type LspServer struct {
	maxDepth int

	mu   sync.Mutex
	docs map[string]string // URI → full document content

	handler protocol.Handler
	server  *glspserver.Server
	version string
}

// NewLSP creates a new LSP server. maxDepth is the loop stack capacity used
// for nesting warnings.
func NewLSP(maxDepth int) *LspServer {
	s := &LspServer{
		maxDepth: maxDepth,
		docs:     make(map[string]string),
		version:  "0.1.0",
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentHover: s.textDocumentHover,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, false)

	return s
}

// Run starts the LSP server on stdio. Blocks until the client disconnects.
func (s *LspServer) Run() error {
	return s.server.RunStdio()
}

// --- LSP lifecycle handlers ---

func (s *LspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	log.Info("bfi LSP initializing")

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}
	capabilities.HoverProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &s.version,
		},
	}, nil
}

func (s *LspServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	log.Infof("bfi LSP ready, loop stack capacity %d", s.maxDepth)
	return nil
}

// shutdown drops all open documents; the client exits next.
func (s *LspServer) shutdown(ctx *glsp.Context) error {
	s.mu.Lock()
	n := len(s.docs)
	s.docs = make(map[string]string)
	s.mu.Unlock()

	protocol.SetTraceValue(protocol.TraceValueOff)
	log.Infof("bfi LSP shutting down, %d documents closed", n)
	return nil
}

func (s *LspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	log.Debugf("trace level set to %s", params.Value)
	return nil
}

// --- Document synchronization ---

func (s *LspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	text := params.TextDocument.Text

	s.mu.Lock()
	s.docs[string(uri)] = text
	s.mu.Unlock()

	s.publishDiagnostics(ctx, uri, text)
	return nil
}

func (s *LspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI

	// With Full sync, the last change event contains the full text
	if len(params.ContentChanges) > 0 {
		last := params.ContentChanges[len(params.ContentChanges)-1]
		if whole, ok := last.(protocol.TextDocumentContentChangeEventWhole); ok {
			s.mu.Lock()
			s.docs[string(uri)] = whole.Text
			s.mu.Unlock()

			s.publishDiagnostics(ctx, uri, whole.Text)
		}
	}
	return nil
}

func (s *LspServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	s.mu.Lock()
	delete(s.docs, string(uri))
	s.mu.Unlock()

	// Clear diagnostics for the closed document
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

// --- Language features ---

func (s *LspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	s.mu.Lock()
	text, ok := s.docs[string(params.TextDocument.URI)]
	s.mu.Unlock()

	if !ok {
		return nil, nil
	}
	return hoverAt(text, params.Position), nil
}

// hoverAt describes the instruction at pos, or returns nil.
func hoverAt(text string, pos protocol.Position) *protocol.Hover {
	offset := offsetAt(text, pos)
	if offset < 0 || offset >= len(text) {
		return nil
	}
	in, ok := vm.Lookup(text[offset])
	if !ok || in.Symbol == ' ' {
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**`%c`** %s\n\n%s", in.Symbol, in.Name, in.Doc)
	if in.Fails != 0 {
		fmt.Fprintf(&b, "\n\nMay halt with `%s`.", in.Fails)
	}

	start := positionAt(text, offset)
	end := positionAt(text, offset+1)
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: b.String(),
		},
		Range: &protocol.Range{Start: start, End: end},
	}
}

// --- Diagnostics ---

func (s *LspServer) publishDiagnostics(ctx *glsp.Context, uri protocol.DocumentUri, text string) {
	diagnostics := s.diagnosticsFor(text)
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

// diagnosticsFor analyzes an editor buffer. Line breaks are layout in a
// document, so they are folded to the no-op before analysis.
func (s *LspServer) diagnosticsFor(text string) []protocol.Diagnostic {
	found := check.Analyze(check.FoldLineBreaks(text), s.maxDepth)
	diagnostics := make([]protocol.Diagnostic, 0, len(found))
	source := lspName
	for _, d := range found {
		severity := protocol.DiagnosticSeverityError
		if d.Severity == check.SeverityWarning {
			severity = protocol.DiagnosticSeverityWarning
		}
		diagnostics = append(diagnostics, protocol.Diagnostic{
			Range: protocol.Range{
				Start: positionAt(text, d.Offset),
				End:   positionAt(text, d.Offset+d.Length),
			},
			Severity: &severity,
			Code:     &protocol.IntegerOrString{Value: d.Kind.String()},
			Source:   &source,
			Message:  d.Message,
		})
	}
	return diagnostics
}

// --- Position helpers ---

// positionAt converts a byte offset to an LSP position. Characters are
// counted in UTF-16 code units.
func positionAt(text string, offset int) protocol.Position {
	if offset > len(text) {
		offset = len(text)
	}
	var line, char protocol.UInteger
	for _, r := range text[:offset] {
		if r == '\n' {
			line++
			char = 0
			continue
		}
		char += protocol.UInteger(utf16Len(r))
	}
	return protocol.Position{Line: line, Character: char}
}

// offsetAt converts an LSP position to a byte offset, or -1 if the line
// does not exist.
func offsetAt(text string, pos protocol.Position) int {
	offset := 0
	for line := protocol.UInteger(0); line < pos.Line; line++ {
		nl := strings.IndexByte(text[offset:], '\n')
		if nl < 0 {
			return -1
		}
		offset += nl + 1
	}
	var char protocol.UInteger
	for offset < len(text) && char < pos.Character {
		r, size := utf8.DecodeRuneInString(text[offset:])
		if r == '\n' {
			break
		}
		char += protocol.UInteger(utf16Len(r))
		offset += size
	}
	return offset
}

func utf16Len(r rune) int {
	if n := utf16.RuneLen(r); n > 0 {
		return n
	}
	return 1
}

func boolPtr(b bool) *bool {
	return &b
}
