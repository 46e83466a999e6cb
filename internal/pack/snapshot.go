// Snapshot encodes golden test vectors for spec.md section 8's concrete
// scenarios as cbor, mirroring the teacher's use of
// github.com/fxamacker/cbor/v2 to wire-encode request/response bodies
// in cmd/fletcher/server.go. Here cbor encodes a fixture rather than a
// live request body: the --test flag loads a named scenario's inputs
// and expected outputs from a Snapshot rather than recomputing them by
// hand in Go source.
package pack

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/vela-silicon/tensorcore-sim/internal/fp"
)

// Snapshot is one named golden test vector: a job plus its expected
// D_fp22 output, for a scenario where the expected result is known in
// advance (e.g. scenario A's all-zero D, scenario B's identity matmul).
type Snapshot struct {
	Name       string
	A, B, C    [8][8]uint32
	InputPrec  fp.InputPrec
	OutputPrec fp.OutputPrec
	RM         fp.RoundMode
	WantDFP22  [8][8]uint32
}

// EncodeSnapshots serializes a set of Snapshots to cbor.
func EncodeSnapshots(snaps []Snapshot) ([]byte, error) {
	b, err := cbor.Marshal(snaps)
	if err != nil {
		return nil, fmt.Errorf("pack: encode snapshots: %w", err)
	}
	return b, nil
}

// DecodeSnapshots deserializes a cbor-encoded snapshot set.
func DecodeSnapshots(data []byte) ([]Snapshot, error) {
	var snaps []Snapshot
	if err := cbor.Unmarshal(data, &snaps); err != nil {
		return nil, fmt.Errorf("pack: decode snapshots: %w", err)
	}
	return snaps, nil
}
