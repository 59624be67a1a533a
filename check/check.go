// Package check inspects source without running it. It reports every
// problem the engine could stop on that is visible statically, so editors
// and the service can flag them up front. Execution never consults it.
package check

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/chazu/bfi/vm"
)

// Severity of a Diagnostic.
type Severity uint8

const (
	SeverityError Severity = iota + 1
	SeverityWarning
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	}
	return "unknown"
}

// MarshalText encodes the severity by name.
func (s Severity) MarshalText() ([]byte, error) {
	switch s {
	case SeverityError, SeverityWarning:
		return []byte(s.String()), nil
	}
	return nil, fmt.Errorf("check: cannot encode severity %d", uint8(s))
}

// UnmarshalText is the inverse of MarshalText.
func (s *Severity) UnmarshalText(data []byte) error {
	switch string(data) {
	case "error":
		*s = SeverityError
	case "warning":
		*s = SeverityWarning
	default:
		return fmt.Errorf("check: unknown severity %q", data)
	}
	return nil
}

// MarshalBinary is MarshalText, for CBOR.
func (s Severity) MarshalBinary() ([]byte, error) { return s.MarshalText() }

// UnmarshalBinary is UnmarshalText.
func (s *Severity) UnmarshalBinary(data []byte) error { return s.UnmarshalText(data) }

// Diagnostic is one problem found at a byte offset of the source.
type Diagnostic struct {
	Offset   int      `cbor:"1,keyasint" json:"offset"`
	Length   int      `cbor:"2,keyasint" json:"length"`
	Kind     vm.Kind  `cbor:"3,keyasint" json:"kind"`
	Severity Severity `cbor:"4,keyasint" json:"severity"`
	Message  string   `cbor:"5,keyasint" json:"message"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%d: %s: %s", d.Offset, d.Severity, d.Message)
}

// Analyze reports unmatched brackets, unsupported and invalid characters,
// and loops nested deeper than maxDepth. maxDepth <= 0 disables the depth
// warning. Diagnostics are ordered by offset.
func Analyze(source string, maxDepth int) []Diagnostic {
	var diags []Diagnostic
	var open []int

	for i := 0; i < len(source); {
		c := source[i]
		width := 1
		switch c {
		case '+', '-', '>', '<', '.', ' ':
		case '[':
			open = append(open, i)
			if maxDepth > 0 && len(open) > maxDepth {
				diags = append(diags, Diagnostic{
					Offset:   i,
					Length:   1,
					Kind:     vm.LoopStackOverflow,
					Severity: SeverityWarning,
					Message:  fmt.Sprintf("loop nesting depth %d exceeds loop stack capacity %d", len(open), maxDepth),
				})
			}
		case ']':
			if len(open) == 0 {
				diags = append(diags, errorAt(i, 1, vm.UnmatchedClose))
			} else {
				open = open[:len(open)-1]
			}
		case ',':
			diags = append(diags, errorAt(i, 1, vm.UnsupportedInstruction))
		default:
			if c >= utf8.RuneSelf {
				_, width = utf8.DecodeRuneInString(source[i:])
			}
			d := errorAt(i, width, vm.InvalidInstruction)
			d.Message = fmt.Sprintf("%s %q", d.Message, source[i:i+width])
			diags = append(diags, d)
		}
		i += width
	}
	for _, pos := range open {
		diags = append(diags, errorAt(pos, 1, vm.UnmatchedOpen))
	}

	sort.SliceStable(diags, func(a, b int) bool {
		return diags[a].Offset < diags[b].Offset
	})
	return diags
}

func errorAt(offset, length int, kind vm.Kind) Diagnostic {
	return Diagnostic{
		Offset:   offset,
		Length:   length,
		Kind:     kind,
		Severity: SeverityError,
		Message:  kind.Message(),
	}
}

// Valid reports whether diags contains no errors.
func Valid(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == SeverityError {
			return false
		}
	}
	return true
}

var lineBreaks = strings.NewReplacer("\r", " ", "\n", " ", "\t", " ")

// FoldLineBreaks turns tabs and line breaks into the space no-op. Offsets
// are preserved, so diagnostics still point into the original text.
func FoldLineBreaks(source string) string {
	return lineBreaks.Replace(source)
}
