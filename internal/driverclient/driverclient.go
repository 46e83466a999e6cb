// Package driverclient adapts the teacher's internal/client.FlightClient
// to submit tensor-core jobs to a remote cmd/tcsim Flight server and
// retrieve their results, instead of forwarding embedding vectors to a
// Longbow server.
package driverclient

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/vela-silicon/tensorcore-sim/internal/pack"
)

// Client submits packed jobs to a remote tensor-core Flight server and
// reads back packed results, mirroring FlightClient's conn/client pair.
type Client struct {
	client flight.Client
	conn   *grpc.ClientConn
	mem    memory.Allocator
}

// New connects to a tensor-core Flight server at addr.
func New(addr string) (*Client, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("driverclient: dial %s: %w", addr, err)
	}
	return &Client{
		client: flight.NewClientFromConn(conn, nil),
		conn:   conn,
		mem:    memory.NewGoAllocator(),
	}, nil
}

// SubmitJobs sends jobs as a single packed RecordBatch under the given
// path, mirroring FlightClient.DoPut's descriptor-then-write sequence.
func (c *Client) SubmitJobs(ctx context.Context, path string, jobs []pack.Job) error {
	rec := pack.BuildJobRecord(c.mem, jobs)
	defer rec.Release()

	desc := &flight.FlightDescriptor{
		Type: flight.DescriptorPATH,
		Path: []string{path},
	}

	stream, err := c.client.DoPut(ctx)
	if err != nil {
		return fmt.Errorf("driverclient: open DoPut stream: %w", err)
	}

	writer := flight.NewRecordWriter(stream)
	writer.SetFlightDescriptor(desc)
	if err := writer.Write(rec); err != nil {
		return fmt.Errorf("driverclient: write job batch: %w", err)
	}
	return writer.Close()
}

// FetchResults reads back every RecordBatch a DoGet call against path
// returns. The records are returned as-is, each retained; they are not
// parsed into pack.Result values.
func (c *Client) FetchResults(ctx context.Context, path string) ([]arrow.Record, error) {
	ticket := &flight.Ticket{Ticket: []byte(path)}
	stream, err := c.client.DoGet(ctx, ticket)
	if err != nil {
		return nil, fmt.Errorf("driverclient: open DoGet stream: %w", err)
	}

	reader, err := flight.NewRecordReader(stream)
	if err != nil {
		return nil, fmt.Errorf("driverclient: open record reader: %w", err)
	}
	defer reader.Release()

	var recs []arrow.Record
	for reader.Next() {
		rec := reader.Record()
		rec.Retain()
		recs = append(recs, rec)
	}
	if reader.Err() != nil {
		return nil, fmt.Errorf("driverclient: read result stream: %w", reader.Err())
	}
	return recs, nil
}

// Close closes the underlying gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
