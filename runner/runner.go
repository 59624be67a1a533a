// Package runner drives a vm.Machine at the call boundary, adding what the
// engine lacks: a step budget, context cancellation, timing and
// a serializable Report of the outcome.
package runner

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/tliron/commonlog"

	"github.com/chazu/bfi/vm"
)

var log = commonlog.GetLogger("bfi.runner")

// ErrStepLimit is returned when a run exhausts its step budget.
var ErrStepLimit = errors.New("step limit exceeded")

// Outcome names that are not engine error kinds.
const (
	OutcomeOK        = "ok"
	OutcomeStepLimit = "StepLimitExceeded"
	OutcomeCanceled  = "Canceled"
)

// ctx is polled once per this many steps.
const checkEvery = 1024

// windowRadius is how many cells on each side of the memory pointer a
// Report keeps.
const windowRadius = 8

// Config controls a single run.
type Config struct {
	// MaxSteps bounds the number of dispatched instructions; 0 is unlimited.
	MaxSteps int64
	// CaptureOutput copies emitted bytes into Report.Output.
	CaptureOutput bool
	// Machine options, e.g. vm.WithTapeSize.
	Machine []vm.Option
}

// Report describes a finished run.
type Report struct {
	Outcome   string        `cbor:"1,keyasint" json:"outcome"`
	Message   string        `cbor:"2,keyasint,omitempty" json:"message,omitempty"`
	IP        int           `cbor:"3,keyasint" json:"ip"`
	MP        int           `cbor:"4,keyasint" json:"mp"`
	Steps     int64         `cbor:"5,keyasint" json:"steps"`
	Output    []byte        `cbor:"6,keyasint,omitempty" json:"output,omitempty"`
	SourceSum string        `cbor:"7,keyasint" json:"source_sha256"`
	Elapsed   time.Duration `cbor:"8,keyasint" json:"elapsed_ns"`

	// Loops is the number of loops still open when the run stopped.
	Loops int `cbor:"9,keyasint" json:"loops"`
	// Window holds the cells around MP when the run stopped, starting at
	// cell WindowStart.
	WindowStart int    `cbor:"10,keyasint" json:"window_start"`
	Window      []byte `cbor:"11,keyasint,omitempty" json:"window,omitempty"`
}

// Success reports whether the program ran to completion.
func (r *Report) Success() bool { return r.Outcome == OutcomeOK }

// Kind returns the engine error category of a failed run, if the failure
// came from the engine.
func (r *Report) Kind() (vm.Kind, bool) { return vm.ParseKind(r.Outcome) }

// SourceSum returns the hex SHA-256 of source, the key runs are recorded under.
func SourceSum(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])
}

// Run executes source until it halts, the budget is spent or ctx is done.
// The returned Report is never nil; the error is the reason the run did not
// succeed.
func Run(ctx context.Context, source string, out vm.Sink, cfg Config) (*Report, error) {
	var captured vm.Buffer
	sink := out
	if sink == nil {
		sink = vm.Discard
	}
	if cfg.CaptureOutput {
		sink = vm.Tee(sink, &captured)
	}

	m := vm.NewMachine(source, sink, cfg.Machine...)
	start := time.Now()
	runErr := drive(ctx, m, cfg.MaxSteps)

	snap := m.Snapshot()
	windowStart := max(snap.MP-windowRadius, 0)
	report := &Report{
		Outcome:     OutcomeOK,
		IP:          snap.IP,
		MP:          snap.MP,
		Steps:       snap.Steps,
		SourceSum:   SourceSum(source),
		Elapsed:     time.Since(start),
		Loops:       snap.LoopDepth,
		WindowStart: windowStart,
		Window:      m.Tape().Window(windowStart, 2*windowRadius+1),
	}
	if cfg.CaptureOutput {
		report.Output = captured.Bytes()
	}

	switch {
	case runErr == nil:
	case errors.Is(runErr, ErrStepLimit):
		report.Outcome = OutcomeStepLimit
		report.Message = runErr.Error()
	case errors.Is(runErr, context.Canceled), errors.Is(runErr, context.DeadlineExceeded):
		report.Outcome = OutcomeCanceled
		report.Message = runErr.Error()
	default:
		if e, ok := vm.AsExecError(runErr); ok {
			report.Outcome = e.Kind.String()
			report.Message = e.Kind.Message()
			report.IP = e.IP
		} else {
			report.Outcome = "Error"
			report.Message = runErr.Error()
		}
	}

	log.Debugf("run %.12s: %s after %d steps in %s", report.SourceSum, report.Outcome, report.Steps, report.Elapsed)
	return report, runErr
}

func drive(ctx context.Context, m *vm.Machine, maxSteps int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for {
		done, err := m.Step()
		if done {
			return err
		}
		steps := m.Steps()
		if maxSteps > 0 && steps >= maxSteps {
			return ErrStepLimit
		}
		if steps%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
	}
}
