package server

import "github.com/chazu/bfi/check"

// Procedure paths served by the interpreter service.
const (
	ServiceName    = "bfi.v1.Interpreter"
	RunProcedure   = "/" + ServiceName + "/Run"
	CheckProcedure = "/" + ServiceName + "/Check"
)

// RunRequest asks the service to execute a program.
type RunRequest struct {
	Source string `cbor:"1,keyasint" json:"source"`
	// MaxSteps tightens the server's step budget; it cannot raise it.
	MaxSteps int64 `cbor:"2,keyasint,omitempty" json:"max_steps,omitempty"`
}

// RunResponse carries the outcome of a run. Engine failures are reported
// here with Success=false, not as RPC errors.
type RunResponse struct {
	ID      string `cbor:"1,keyasint,omitempty" json:"id,omitempty"`
	Success bool   `cbor:"2,keyasint" json:"success"`
	Outcome string `cbor:"3,keyasint" json:"outcome"`
	Message string `cbor:"4,keyasint,omitempty" json:"message,omitempty"`
	IP      int    `cbor:"5,keyasint" json:"ip"`
	MP      int    `cbor:"6,keyasint" json:"mp"`
	Steps   int64  `cbor:"7,keyasint" json:"steps"`
	Output  []byte `cbor:"8,keyasint,omitempty" json:"output,omitempty"`
}

// CheckRequest asks for a static analysis of a program.
type CheckRequest struct {
	Source string `cbor:"1,keyasint" json:"source"`
}

// CheckResponse lists the problems found.
type CheckResponse struct {
	Valid       bool               `cbor:"1,keyasint" json:"valid"`
	Diagnostics []check.Diagnostic `cbor:"2,keyasint,omitempty" json:"diagnostics,omitempty"`
}
