// Command tcsim drives the tensor-core simulator: it runs one of
// spec.md section 8's named scenarios, or serves jobs over HTTP/Arrow
// Flight, exactly as the teacher's cmd/fletcher/main.go drives its
// embedder or starts its servers.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime/pprof"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"

	"github.com/vela-silicon/tensorcore-sim/internal/fp"
	"github.com/vela-silicon/tensorcore-sim/internal/metrics"
)

var (
	precFlag     = flag.String("prec", "fp16", "input precision filter: fp4, fp8e4m3, fp8e5m2, fp16")
	outPrecFlag  = flag.String("out-prec", "fp16", "output precision filter: fp8e4m3, fp8e5m2, fp16, fp32")
	testFlag     = flag.Int("test", 0, "run scenario 1..6 from spec section 8 (0 = run all)")
	rmFlag       = flag.String("rm", "rne", "rounding mode: rne, rtz, rdn, rup, rmm")
	seedFlag     = flag.Int64("seed", 42, "RNG seed for scenario F's stress jobs")
	listenAddr   = flag.String("listen", "", "address to serve Prometheus metrics on (e.g. :8080)")
	flightAddr   = flag.String("flight", "", "address to serve the tensor-core Flight endpoint on (e.g. :9090)")
	enableOTel   = flag.Bool("otel", false, "enable OpenTelemetry tracing (stdout exporter)")
	cpuProfile   = flag.String("cpuprofile", "", "write a CPU profile to this file")
	maxConcurrent = flag.Int("max-concurrent", 16, "maximum number of concurrent TensorCore instances the HTTP /run server keeps live")
	remoteAddr    = flag.String("server", "", "remote tcsim Flight server address to forward scenario F's stress jobs to, instead of running them locally")
	remotePath    = flag.String("dataset", "tcsim_stress", "Flight descriptor path used when --server forwards jobs")
	dumpSnapshotsPath = flag.String("dump-snapshots", "", "write cbor golden snapshots for scenarios A-E to this path and exit")
	checkSnapshotPath = flag.String("check-snapshot", "", "re-run a cbor snapshot file written by --dump-snapshots and report any D_fp22 regressions")
)

func parseInputPrec(s string) (fp.InputPrec, error) {
	switch s {
	case "fp4":
		return fp.PrecFP4, nil
	case "fp8e4m3":
		return fp.PrecFP8E4M3, nil
	case "fp8e5m2":
		return fp.PrecFP8E5M2, nil
	case "fp16":
		return fp.PrecFP16, nil
	default:
		return 0, fmt.Errorf("unknown --prec %q", s)
	}
}

func parseOutputPrec(s string) (fp.OutputPrec, error) {
	switch s {
	case "fp8e4m3":
		return fp.PrecOutFP8E4M3, nil
	case "fp8e5m2":
		return fp.PrecOutFP8E5M2, nil
	case "fp16":
		return fp.PrecOutFP16, nil
	case "fp32":
		return fp.PrecOutFP32, nil
	default:
		return 0, fmt.Errorf("unknown --out-prec %q", s)
	}
}

func parseRoundMode(s string) (fp.RoundMode, error) {
	switch s {
	case "rne":
		return fp.RNE, nil
	case "rtz":
		return fp.RTZ, nil
	case "rdn":
		return fp.RDN, nil
	case "rup":
		return fp.RUP, nil
	case "rmm":
		return fp.RMM, nil
	default:
		return 0, fmt.Errorf("unknown --rm %q", s)
	}
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Caller().Logger()

	flag.Parse()

	if *enableOTel {
		shutdown, err := initTracer()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize tracer")
		}
		defer shutdown(context.Background())
	}

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create CPU profile file")
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal().Err(err).Msg("Could not start CPU profile")
		}
		defer pprof.StopCPUProfile()
	}

	inputPrec, err := parseInputPrec(*precFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid --prec")
	}
	outputPrec, err := parseOutputPrec(*outPrecFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid --out-prec")
	}
	rm, err := parseRoundMode(*rmFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid --rm")
	}

	stats := metrics.NewStats()

	if *dumpSnapshotsPath != "" {
		if err := dumpSnapshots(*dumpSnapshotsPath); err != nil {
			log.Fatal().Err(err).Msg("Failed to dump snapshots")
		}
		log.Info().Str("path", *dumpSnapshotsPath).Msg("Wrote golden snapshots")
		return
	}

	if *checkSnapshotPath != "" {
		ok, err := checkSnapshotFile(*checkSnapshotPath)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to check snapshot file")
		}
		log.Info().Str("path", *checkSnapshotPath).Bool("pass", ok).Msg("Snapshot check complete")
		if !ok {
			os.Exit(1)
		}
		return
	}

	if *remoteAddr != "" {
		if err := forwardStressJobs(*remoteAddr, *remotePath, *seedFlag); err != nil {
			log.Fatal().Err(err).Msg("Failed to forward jobs to remote tcsim")
		}
		return
	}

	if *listenAddr != "" {
		go startServer(*listenAddr, stats, *maxConcurrent)
	}
	if *flightAddr != "" {
		go startFlightServer(*flightAddr, stats)
	}
	if *listenAddr != "" || *flightAddr != "" {
		select {}
	}

	ok := runTests(*testFlag, inputPrec, outputPrec, rm, *seedFlag)
	snap := stats.Snapshot()
	log.Info().
		Int64("jobs_submitted", snap.JobsSubmitted).
		Int64("jobs_completed", snap.JobsCompleted).
		Int64("cycle_cap_hits", snap.CycleCapHits).
		Int64("ref_mismatches", snap.RefMismatches).
		Msg("Run complete")

	if !ok {
		os.Exit(1)
	}
}

func initTracer() (func(context.Context) error, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String("tcsim"),
		)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	return tp.Shutdown, nil
}
