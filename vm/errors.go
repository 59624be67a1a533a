package vm

import (
	"errors"
	"fmt"
)

// Kind names a category of fatal condition. Kinds are errors themselves, so
// callers can match with errors.Is(err, vm.UnmatchedClose).
type Kind uint8

const (
	CellOverflow Kind = iota + 1
	CellUnderflow
	PointerOverflow
	PointerUnderflow
	LoopStackOverflow
	UnmatchedOpen
	UnmatchedClose
	UnsupportedInstruction
	InvalidInstruction
)

var kindNames = [...]string{
	CellOverflow:           "CellOverflow",
	CellUnderflow:          "CellUnderflow",
	PointerOverflow:        "PointerOverflow",
	PointerUnderflow:       "PointerUnderflow",
	LoopStackOverflow:      "LoopStackOverflow",
	UnmatchedOpen:          "UnmatchedOpen",
	UnmatchedClose:         "UnmatchedClose",
	UnsupportedInstruction: "UnsupportedInstruction",
	InvalidInstruction:     "InvalidInstruction",
}

var kindMessages = [...]string{
	CellOverflow:           "Memory overflow",
	CellUnderflow:          "Memory underflow",
	PointerOverflow:        "Memory pointer overflow",
	PointerUnderflow:       "Memory pointer underflow",
	LoopStackOverflow:      "Stack overflow",
	UnmatchedOpen:          "Unmatched '['",
	UnmatchedClose:         "Unmatched ']'",
	UnsupportedInstruction: "Unimplemented instruction",
	InvalidInstruction:     "Invalid instruction",
}

// Kinds lists every category in declaration order.
func Kinds() []Kind {
	out := make([]Kind, 0, len(kindNames)-1)
	for k := CellOverflow; k <= InvalidInstruction; k++ {
		out = append(out, k)
	}
	return out
}

func (k Kind) valid() bool { return k >= CellOverflow && k <= InvalidInstruction }

// String returns the stable category name, e.g. "CellOverflow".
func (k Kind) String() string {
	if !k.valid() {
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
	return kindNames[k]
}

// Message returns the human-readable text for the category.
func (k Kind) Message() string {
	if !k.valid() {
		return "Unknown error"
	}
	return kindMessages[k]
}

func (k Kind) Error() string { return k.Message() }

// ParseKind is the inverse of Kind.String.
func ParseKind(name string) (Kind, bool) {
	for _, k := range Kinds() {
		if kindNames[k] == name {
			return k, true
		}
	}
	return 0, false
}

// MarshalText encodes the category by its name, so encoded values do not
// depend on declaration order.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.valid() {
		return nil, fmt.Errorf("vm: cannot encode %s", k)
	}
	return []byte(k.String()), nil
}

// UnmarshalText is the inverse of MarshalText.
func (k *Kind) UnmarshalText(data []byte) error {
	parsed, ok := ParseKind(string(data))
	if !ok {
		return fmt.Errorf("vm: unknown error kind %q", data)
	}
	*k = parsed
	return nil
}

// MarshalBinary is MarshalText. CBOR encoders use it, so a Kind travels by
// name there too.
func (k Kind) MarshalBinary() ([]byte, error) { return k.MarshalText() }

// UnmarshalBinary is UnmarshalText.
func (k *Kind) UnmarshalBinary(data []byte) error { return k.UnmarshalText(data) }

// ExecError reports why a run halted and the instruction pointer at which
// the violation was detected.
type ExecError struct {
	Kind Kind
	IP   int
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("%s at ip %d", e.Kind.Message(), e.IP)
}

// Unwrap exposes the Kind for errors.Is.
func (e *ExecError) Unwrap() error { return e.Kind }

// KindOf extracts the category from err. The second result is false when
// err did not come from the engine.
func KindOf(err error) (Kind, bool) {
	var k Kind
	if errors.As(err, &k) {
		return k, true
	}
	return 0, false
}

// AsExecError returns the *ExecError wrapped in err, if any.
func AsExecError(err error) (*ExecError, bool) {
	var e *ExecError
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
