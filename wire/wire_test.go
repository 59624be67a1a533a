package wire

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/chazu/bfi/check"
	"github.com/chazu/bfi/runner"
	"github.com/chazu/bfi/vm"
)

func TestReport_CBORRoundTrip(t *testing.T) {
	r := &runner.Report{
		Outcome:   "UnmatchedClose",
		Message:   "Unmatched ']'",
		IP:        7,
		MP:        2,
		Steps:     8,
		Output:    []byte{1, 2, 3},
		SourceSum: runner.SourceSum("+.+.+.>>]"),
		Elapsed:   3 * time.Millisecond,
	}

	data, err := MarshalReport(r)
	if err != nil {
		t.Fatalf("MarshalReport: %v", err)
	}
	got, err := UnmarshalReport(data)
	if err != nil {
		t.Fatalf("UnmarshalReport: %v", err)
	}

	if got.Outcome != r.Outcome || got.Message != r.Message {
		t.Errorf("outcome: got %q/%q, want %q/%q", got.Outcome, got.Message, r.Outcome, r.Message)
	}
	if got.IP != r.IP || got.MP != r.MP || got.Steps != r.Steps {
		t.Errorf("position: got %d/%d/%d", got.IP, got.MP, got.Steps)
	}
	if !bytes.Equal(got.Output, r.Output) {
		t.Errorf("Output: got %v, want %v", got.Output, r.Output)
	}
	if got.SourceSum != r.SourceSum || got.Elapsed != r.Elapsed {
		t.Error("SourceSum or Elapsed mismatch")
	}
}

func TestReport_DeterministicEncoding(t *testing.T) {
	a, _ := runner.Run(context.Background(), "+++.", nil, runner.Config{CaptureOutput: true})
	b, _ := runner.Run(context.Background(), "+++.", nil, runner.Config{CaptureOutput: true})
	a.Elapsed, b.Elapsed = 0, 0

	da, err := MarshalReport(a)
	if err != nil {
		t.Fatal(err)
	}
	db, err := MarshalReport(b)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(da, db) {
		t.Error("identical runs encoded differently")
	}
}

func TestUnmarshalReport_Garbage(t *testing.T) {
	if _, err := UnmarshalReport([]byte{0xff, 0x00}); err == nil {
		t.Error("expected error for malformed CBOR")
	}
}

func TestCodecs(t *testing.T) {
	type msg struct {
		Source string `cbor:"1,keyasint" json:"source"`
	}
	for _, c := range []interface {
		Name() string
		Marshal(any) ([]byte, error)
		Unmarshal([]byte, any) error
	}{CBORCodec{}, JSONCodec{}} {
		data, err := c.Marshal(&msg{Source: "+."})
		if err != nil {
			t.Fatalf("%s Marshal: %v", c.Name(), err)
		}
		var got msg
		if err := c.Unmarshal(data, &got); err != nil {
			t.Fatalf("%s Unmarshal: %v", c.Name(), err)
		}
		if got.Source != "+." {
			t.Errorf("%s round trip = %q", c.Name(), got.Source)
		}
	}
	if (JSONCodec{}).Name() != "json" || (CBORCodec{}).Name() != "cbor" {
		t.Error("unexpected codec names")
	}
}

func TestCBORCodecEncodesKindNames(t *testing.T) {
	diags := check.Analyze("+[", 32)
	data, err := CBORCodec{}.Marshal(diags[0])
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var raw map[int]any
	if err := cbor.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal raw: %v", err)
	}
	if kind, ok := raw[3].([]byte); !ok || string(kind) != "UnmatchedOpen" {
		t.Errorf("kind field = %#v, want name", raw[3])
	}
	if sev, ok := raw[4].([]byte); !ok || string(sev) != "error" {
		t.Errorf("severity field = %#v, want name", raw[4])
	}

	var got check.Diagnostic
	if err := (CBORCodec{}).Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got != diags[0] || got.Kind != vm.UnmatchedOpen {
		t.Errorf("round trip = %+v, want %+v", got, diags[0])
	}
}
