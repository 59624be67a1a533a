// Package wire holds the byte encodings bfi uses on disk and over the
// network: canonical CBOR for run reports, and CBOR/JSON codecs for the
// Connect service.
package wire

import (
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/chazu/bfi/runner"
)

// cborEncMode uses canonical mode so equal reports encode to equal bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("wire: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// MarshalReport serializes a Report to CBOR bytes.
func MarshalReport(r *runner.Report) ([]byte, error) {
	return cborEncMode.Marshal(r)
}

// UnmarshalReport deserializes a Report from CBOR bytes.
func UnmarshalReport(data []byte) (*runner.Report, error) {
	var r runner.Report
	if err := cbor.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("wire: unmarshal report: %w", err)
	}
	return &r, nil
}

// CBORCodec is a connect.Codec for plain Go structs. It is served under the
// "cbor" name, i.e. Content-Type application/cbor.
type CBORCodec struct{}

func (CBORCodec) Name() string { return "cbor" }

func (CBORCodec) Marshal(msg any) ([]byte, error) {
	return cborEncMode.Marshal(msg)
}

func (CBORCodec) Unmarshal(data []byte, msg any) error {
	return cbor.Unmarshal(data, msg)
}

// JSONCodec replaces connect's protobuf-JSON codec so plain structs can be
// exchanged as application/json.
type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

func (JSONCodec) Unmarshal(data []byte, msg any) error {
	return json.Unmarshal(data, msg)
}
