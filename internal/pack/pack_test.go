package pack

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vela-silicon/tensorcore-sim/internal/fp"
)

func sampleJob() Job {
	var j Job
	j.A[0][0] = fp.FP16.FromFloat64(1.0)
	j.B[3][5] = fp.FP16.FromFloat64(-2.5)
	j.C[7][7] = fp.FP22.FromFloat64(0.25)
	j.InputPrec = fp.PrecFP16
	j.OutputPrec = fp.PrecOutFP32
	j.RM = fp.RDN
	return j
}

func TestBuildAndParseJobRecordRoundTrips(t *testing.T) {
	mem := memory.NewGoAllocator()
	jobs := []Job{sampleJob(), {}}

	rec := BuildJobRecord(mem, jobs)
	defer rec.Release()
	require.EqualValues(t, len(jobs), rec.NumRows())

	got, err := ParseJobRecord(rec)
	require.NoError(t, err)
	assert.Equal(t, jobs, got)
}

func TestParseJobRecordRejectsWrongSchema(t *testing.T) {
	mem := memory.NewGoAllocator()
	results := []Result{{Cycles: 11}}
	rec := BuildResultRecord(mem, results)
	defer rec.Release()

	_, err := ParseJobRecord(rec)
	assert.Error(t, err)
}

func sampleResult() Result {
	var r Result
	r.DOut[2][2] = fp.FP16.FromFloat64(3.5)
	r.DFP22[2][2] = fp.FP22.FromFloat64(3.5)
	r.Cycles = 11
	return r
}

func TestBuildAndParseResultRecordRoundTrips(t *testing.T) {
	mem := memory.NewGoAllocator()
	results := []Result{sampleResult(), {Cycles: 100}}

	rec := BuildResultRecord(mem, results)
	defer rec.Release()
	require.EqualValues(t, len(results), rec.NumRows())

	got, err := ParseResultRecord(rec)
	require.NoError(t, err)
	assert.Equal(t, results, got)
}

func TestParseResultRecordRejectsWrongSchema(t *testing.T) {
	mem := memory.NewGoAllocator()
	jobs := []Job{sampleJob()}
	rec := BuildJobRecord(mem, jobs)
	defer rec.Release()

	_, err := ParseResultRecord(rec)
	assert.Error(t, err)
}

func TestEncodeDecodeSnapshotsRoundTrips(t *testing.T) {
	snaps := []Snapshot{
		{
			Name:       "A",
			InputPrec:  fp.PrecFP16,
			OutputPrec: fp.PrecOutFP16,
			RM:         fp.RNE,
		},
		{
			Name:       "B",
			InputPrec:  fp.PrecFP4,
			OutputPrec: fp.PrecOutFP32,
			RM:         fp.RDN,
		},
	}
	snaps[1].WantDFP22[0][0] = fp.FP22.FromFloat64(1.0)

	data, err := EncodeSnapshots(snaps)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	got, err := DecodeSnapshots(data)
	require.NoError(t, err)
	assert.Equal(t, snaps, got)
}

func TestDecodeSnapshotsRejectsGarbage(t *testing.T) {
	_, err := DecodeSnapshots([]byte("not cbor"))
	assert.Error(t, err)
}
