// Package pack provides packed-word Arrow I/O for tensor-core jobs,
// adapted from the teacher's internal/client.RecordBatchBuilder
// (arrow.go): instead of a variable-length float32 vector column, a job
// is a fixed 8x8 grid of packed-integer cells for each of A, B, C, and
// (once computed) D. This is the "packed-word I/O" glue spec.md section
// 2's component table calls out, carried over Arrow Flight/IPC by
// cmd/tcsim's flight server and client.
package pack

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/vela-silicon/tensorcore-sim/internal/fp"
)

// JobSchema is the Arrow schema for one submitted job: 8x8 fixed-size
// lists of uint32 for A, B, and C, plus scalar precision/rounding-mode
// tags. One row per job.
var JobSchema = arrow.NewSchema(
	[]arrow.Field{
		{Name: "a", Type: arrow.FixedSizeListOf(64, arrow.PrimitiveTypes.Uint32)},
		{Name: "b", Type: arrow.FixedSizeListOf(64, arrow.PrimitiveTypes.Uint32)},
		{Name: "c", Type: arrow.FixedSizeListOf(64, arrow.PrimitiveTypes.Uint32)},
		{Name: "input_prec", Type: arrow.PrimitiveTypes.Uint8},
		{Name: "output_prec", Type: arrow.PrimitiveTypes.Uint8},
		{Name: "rm", Type: arrow.PrimitiveTypes.Uint8},
	},
	nil,
)

// ResultSchema is the Arrow schema for one completed job's D matrix
// (both d_out and the internal d_fp22 accumulator) plus the cycle count
// run_to_completion reported.
var ResultSchema = arrow.NewSchema(
	[]arrow.Field{
		{Name: "d_out", Type: arrow.FixedSizeListOf(64, arrow.PrimitiveTypes.Uint32)},
		{Name: "d_fp22", Type: arrow.FixedSizeListOf(64, arrow.PrimitiveTypes.Uint32)},
		{Name: "cycles", Type: arrow.PrimitiveTypes.Uint32},
	},
	nil,
)

// Job is the decoded form of one JobSchema row.
type Job struct {
	A, B, C    [8][8]uint32
	InputPrec  fp.InputPrec
	OutputPrec fp.OutputPrec
	RM         fp.RoundMode
}

// BuildJobRecord packs a batch of jobs into a single Arrow RecordBatch
// under JobSchema, mirroring RecordBatchBuilder.BuildRecordBatch's
// list-builder pattern.
func BuildJobRecord(mem memory.Allocator, jobs []Job) arrow.Record {
	aBuilder := array.NewFixedSizeListBuilder(mem, 64, arrow.PrimitiveTypes.Uint32)
	defer aBuilder.Release()
	bBuilder := array.NewFixedSizeListBuilder(mem, 64, arrow.PrimitiveTypes.Uint32)
	defer bBuilder.Release()
	cBuilder := array.NewFixedSizeListBuilder(mem, 64, arrow.PrimitiveTypes.Uint32)
	defer cBuilder.Release()
	precBuilder := array.NewUint8Builder(mem)
	defer precBuilder.Release()
	outPrecBuilder := array.NewUint8Builder(mem)
	defer outPrecBuilder.Release()
	rmBuilder := array.NewUint8Builder(mem)
	defer rmBuilder.Release()

	aVals := aBuilder.ValueBuilder().(*array.Uint32Builder)
	bVals := bBuilder.ValueBuilder().(*array.Uint32Builder)
	cVals := cBuilder.ValueBuilder().(*array.Uint32Builder)

	for _, j := range jobs {
		aBuilder.Append(true)
		aVals.AppendValues(flatten(j.A), nil)
		bBuilder.Append(true)
		bVals.AppendValues(flatten(j.B), nil)
		cBuilder.Append(true)
		cVals.AppendValues(flatten(j.C), nil)
		precBuilder.Append(uint8(j.InputPrec))
		outPrecBuilder.Append(uint8(j.OutputPrec))
		rmBuilder.Append(uint8(j.RM))
	}

	cols := []arrow.Array{
		aBuilder.NewArray(),
		bBuilder.NewArray(),
		cBuilder.NewArray(),
		precBuilder.NewArray(),
		outPrecBuilder.NewArray(),
		rmBuilder.NewArray(),
	}
	for _, c := range cols {
		defer c.Release()
	}

	return array.NewRecordBatch(JobSchema, cols, int64(len(jobs)))
}

// ParseJobRecord unpacks every row of rec (which must conform to
// JobSchema) back into Jobs.
func ParseJobRecord(rec arrow.Record) ([]Job, error) {
	if rec.NumCols() < 6 {
		return nil, fmt.Errorf("pack: job record has %d columns, want 6", rec.NumCols())
	}
	aCol, ok := rec.Column(0).(*array.FixedSizeList)
	if !ok {
		return nil, fmt.Errorf("pack: column 0 is not a fixed-size list")
	}
	bCol, ok := rec.Column(1).(*array.FixedSizeList)
	if !ok {
		return nil, fmt.Errorf("pack: column 1 is not a fixed-size list")
	}
	cCol, ok := rec.Column(2).(*array.FixedSizeList)
	if !ok {
		return nil, fmt.Errorf("pack: column 2 is not a fixed-size list")
	}
	precCol, ok := rec.Column(3).(*array.Uint8)
	if !ok {
		return nil, fmt.Errorf("pack: column 3 is not uint8")
	}
	outPrecCol, ok := rec.Column(4).(*array.Uint8)
	if !ok {
		return nil, fmt.Errorf("pack: column 4 is not uint8")
	}
	rmCol, ok := rec.Column(5).(*array.Uint8)
	if !ok {
		return nil, fmt.Errorf("pack: column 5 is not uint8")
	}

	aVals, ok := aCol.ListValues().(*array.Uint32)
	if !ok {
		return nil, fmt.Errorf("pack: a values are not uint32")
	}
	bVals, ok := bCol.ListValues().(*array.Uint32)
	if !ok {
		return nil, fmt.Errorf("pack: b values are not uint32")
	}
	cVals, ok := cCol.ListValues().(*array.Uint32)
	if !ok {
		return nil, fmt.Errorf("pack: c values are not uint32")
	}

	n := int(rec.NumRows())
	jobs := make([]Job, n)
	for row := 0; row < n; row++ {
		jobs[row].A = unflatten(aVals, row*64)
		jobs[row].B = unflatten(bVals, row*64)
		jobs[row].C = unflatten(cVals, row*64)
		jobs[row].InputPrec = fp.InputPrec(precCol.Value(row))
		jobs[row].OutputPrec = fp.OutputPrec(outPrecCol.Value(row))
		jobs[row].RM = fp.RoundMode(rmCol.Value(row))
	}
	return jobs, nil
}

// Result is the decoded form of one ResultSchema row.
type Result struct {
	DOut, DFP22 [8][8]uint32
	Cycles      uint32
}

// BuildResultRecord packs a batch of completed-job results under
// ResultSchema.
func BuildResultRecord(mem memory.Allocator, results []Result) arrow.Record {
	dOutBuilder := array.NewFixedSizeListBuilder(mem, 64, arrow.PrimitiveTypes.Uint32)
	defer dOutBuilder.Release()
	dFP22Builder := array.NewFixedSizeListBuilder(mem, 64, arrow.PrimitiveTypes.Uint32)
	defer dFP22Builder.Release()
	cyclesBuilder := array.NewUint32Builder(mem)
	defer cyclesBuilder.Release()

	dOutVals := dOutBuilder.ValueBuilder().(*array.Uint32Builder)
	dFP22Vals := dFP22Builder.ValueBuilder().(*array.Uint32Builder)

	for _, r := range results {
		dOutBuilder.Append(true)
		dOutVals.AppendValues(flatten(r.DOut), nil)
		dFP22Builder.Append(true)
		dFP22Vals.AppendValues(flatten(r.DFP22), nil)
		cyclesBuilder.Append(r.Cycles)
	}

	cols := []arrow.Array{
		dOutBuilder.NewArray(),
		dFP22Builder.NewArray(),
		cyclesBuilder.NewArray(),
	}
	for _, c := range cols {
		defer c.Release()
	}

	return array.NewRecordBatch(ResultSchema, cols, int64(len(results)))
}

// ParseResultRecord unpacks every row of rec (which must conform to
// ResultSchema) back into Results.
func ParseResultRecord(rec arrow.Record) ([]Result, error) {
	if rec.NumCols() < 3 {
		return nil, fmt.Errorf("pack: result record has %d columns, want 3", rec.NumCols())
	}
	dOutCol, ok := rec.Column(0).(*array.FixedSizeList)
	if !ok {
		return nil, fmt.Errorf("pack: column 0 is not a fixed-size list")
	}
	dFP22Col, ok := rec.Column(1).(*array.FixedSizeList)
	if !ok {
		return nil, fmt.Errorf("pack: column 1 is not a fixed-size list")
	}
	cyclesCol, ok := rec.Column(2).(*array.Uint32)
	if !ok {
		return nil, fmt.Errorf("pack: column 2 is not uint32")
	}

	dOutVals, ok := dOutCol.ListValues().(*array.Uint32)
	if !ok {
		return nil, fmt.Errorf("pack: d_out values are not uint32")
	}
	dFP22Vals, ok := dFP22Col.ListValues().(*array.Uint32)
	if !ok {
		return nil, fmt.Errorf("pack: d_fp22 values are not uint32")
	}

	n := int(rec.NumRows())
	results := make([]Result, n)
	for row := 0; row < n; row++ {
		results[row].DOut = unflatten(dOutVals, row*64)
		results[row].DFP22 = unflatten(dFP22Vals, row*64)
		results[row].Cycles = cyclesCol.Value(row)
	}
	return results, nil
}

func flatten(m [8][8]uint32) []uint32 {
	out := make([]uint32, 64)
	for i := 0; i < 8; i++ {
		for j := 0; j < 8; j++ {
			out[i*8+j] = m[i][j]
		}
	}
	return out
}

func unflatten(vals *array.Uint32, offset int) [8][8]uint32 {
	var out [8][8]uint32
	for i := 0; i < 8; i++ {
		for j := 0; j < 8; j++ {
			out[i][j] = vals.Value(offset + i*8 + j)
		}
	}
	return out
}
