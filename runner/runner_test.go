package runner

import (
	"context"
	"errors"
	"testing"

	"github.com/chazu/bfi/vm"
)

const helloWorld = "++ ++ ++ ++[ > ++ ++[ > ++ > ++ + > ++ + > + < < < < -] > + > + >->> +[ < ] < -] >>.> -- -.++ ++ ++ +..++ +.>>.<-.<.++ +.-- -- --.-- -- -- --.>> +.>++."

func TestRunSuccess(t *testing.T) {
	var out vm.Buffer
	report, err := Run(context.Background(), helloWorld, &out, Config{CaptureOutput: true})
	if err != nil {
		t.Fatalf("Run = %v", err)
	}
	if !report.Success() {
		t.Errorf("Outcome = %q, want ok", report.Outcome)
	}
	if string(report.Output) != "Hello World!\n" {
		t.Errorf("report output = %q", report.Output)
	}
	if out.String() != "Hello World!\n" {
		t.Errorf("sink output = %q", out.String())
	}
	if report.Steps != 1571 {
		t.Errorf("Steps = %d, want 1571", report.Steps)
	}
	if report.SourceSum != SourceSum(helloWorld) || len(report.SourceSum) != 64 {
		t.Errorf("SourceSum = %q", report.SourceSum)
	}
}

func TestRunEngineFailure(t *testing.T) {
	report, err := Run(context.Background(), "+.>>-", nil, Config{CaptureOutput: true})
	if !errors.Is(err, vm.CellUnderflow) {
		t.Fatalf("err = %v, want CellUnderflow", err)
	}
	if report.Outcome != "CellUnderflow" {
		t.Errorf("Outcome = %q", report.Outcome)
	}
	if report.Message != "Memory underflow" {
		t.Errorf("Message = %q", report.Message)
	}
	if report.IP != 4 || report.MP != 2 {
		t.Errorf("IP, MP = %d, %d; want 4, 2", report.IP, report.MP)
	}
	if k, ok := report.Kind(); !ok || k != vm.CellUnderflow {
		t.Errorf("Kind = %v, %v", k, ok)
	}
	if string(report.Output) != "\x01" {
		t.Errorf("Output = %q, want partial output", report.Output)
	}
}

func TestRunStepLimit(t *testing.T) {
	report, err := Run(context.Background(), "+[]", nil, Config{MaxSteps: 1000})
	if !errors.Is(err, ErrStepLimit) {
		t.Fatalf("err = %v, want ErrStepLimit", err)
	}
	if report.Outcome != OutcomeStepLimit {
		t.Errorf("Outcome = %q", report.Outcome)
	}
	if report.Steps != 1000 {
		t.Errorf("Steps = %d, want 1000", report.Steps)
	}
	if _, ok := report.Kind(); ok {
		t.Error("step limit reported as an engine kind")
	}
}

func TestRunExactBudgetSucceeds(t *testing.T) {
	report, err := Run(context.Background(), "+++.", nil, Config{MaxSteps: 4})
	if err != nil {
		t.Fatalf("Run = %v", err)
	}
	if report.Steps != 4 {
		t.Errorf("Steps = %d, want 4", report.Steps)
	}
}

func TestRunCanceledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := Run(ctx, "+++", nil, Config{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if report.Outcome != OutcomeCanceled || report.Steps != 0 {
		t.Errorf("report = %+v", report)
	}
}

func TestRunCanceledMidway(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sink := vm.SinkFunc(func(byte) { cancel() })

	report, err := Run(ctx, "+[.]", sink, Config{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if report.Steps > 2*checkEvery {
		t.Errorf("Steps = %d, cancellation noticed too late", report.Steps)
	}
}

func TestRunMachineOptions(t *testing.T) {
	_, err := Run(context.Background(), ">>", nil, Config{Machine: []vm.Option{vm.WithTapeSize(2)}})
	if !errors.Is(err, vm.PointerOverflow) {
		t.Errorf("err = %v, want PointerOverflow", err)
	}
}

func TestRunReportsTapeWindow(t *testing.T) {
	report, err := Run(context.Background(), ">>>>>>>>>>+", nil, Config{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.WindowStart != 2 || len(report.Window) != 2*windowRadius+1 {
		t.Fatalf("WindowStart, len(Window) = %d, %d", report.WindowStart, len(report.Window))
	}
	for i, c := range report.Window {
		want := byte(0)
		if report.WindowStart+i == report.MP {
			want = 1
		}
		if c != want {
			t.Errorf("cell %d = %d, want %d", report.WindowStart+i, c, want)
		}
	}

	report, _ = Run(context.Background(), ">", nil, Config{Machine: []vm.Option{vm.WithTapeSize(3)}})
	if report.WindowStart != 0 || len(report.Window) != 3 {
		t.Errorf("small tape: WindowStart, len(Window) = %d, %d", report.WindowStart, len(report.Window))
	}
}

func TestRunReportsOpenLoops(t *testing.T) {
	report, err := Run(context.Background(), "+[", nil, Config{})
	if !errors.Is(err, vm.UnmatchedOpen) {
		t.Fatalf("err = %v, want UnmatchedOpen", err)
	}
	if report.Loops != 1 || report.Window[0] != 1 {
		t.Errorf("Loops, Window[0] = %d, %d", report.Loops, report.Window[0])
	}
}
