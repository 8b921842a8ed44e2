// Command curvesweep builds every curve in a JSON file and writes each one
// back with a reference grid of discount factors and zero rates.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"FinCurve/internal/domain/models"
	"FinCurve/internal/usecase"
	"FinCurve/pkg/curve"
	xhttp "FinCurve/pkg/http"
	"FinCurve/pkg/logger"
	"FinCurve/pkg/metrics"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "curvesweep: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	input   string
	output  string
	grid    models.Grid
	workers int
	level   string
	timeout time.Duration
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("curvesweep", flag.ContinueOnError)
	fs.SetOutput(stderr)

	o := &options{}
	fs.StringVar(&o.input, "input", "", "curves JSON file or http(s) URL")
	fs.StringVar(&o.output, "output", "-", "output file, - for stdout")
	fs.Float64Var(&o.grid.From, "from", models.DefaultGrid.From, "first grid time in years")
	fs.Float64Var(&o.grid.To, "to", models.DefaultGrid.To, "last grid time in years")
	fs.Float64Var(&o.grid.Step, "step", models.DefaultGrid.Step, "grid step in years")
	fs.IntVar(&o.workers, "workers", 4, "curves swept concurrently")
	fs.StringVar(&o.level, "log-level", "info", "log level")
	fs.DurationVar(&o.timeout, "timeout", 30*time.Second, "timeout for URL input")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if o.input == "" {
		return nil, fmt.Errorf("-input is required")
	}
	if err := o.grid.Validate(); err != nil {
		return nil, err
	}
	return o, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	o, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	log, err := logger.New(&logger.Config{Level: o.level, Format: "console", Output: "stderr"})
	if err != nil {
		return err
	}

	raw, err := readInput(ctx, o.input, o.timeout)
	if err != nil {
		return err
	}

	var doc map[string]map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("decode %s: %w", o.input, err)
	}

	defs := make(map[string]curve.Config, len(doc))
	for name, obj := range doc {
		cfg, err := curve.ParseConfig(obj)
		if err != nil {
			log.Error("curve rejected", logger.String("curve", name), logger.Error(err))
			continue
		}
		defs[name] = cfg
	}

	sweeper := usecase.NewSweeper(nil, nil, metrics.NewWithRegisterer(prometheus.NewRegistry()), log, o.workers)
	results, failures, err := sweeper.SweepAll(ctx, defs, o.grid)
	if err != nil {
		return err
	}

	out := make(map[string]map[string]any, len(results))
	for _, res := range results {
		obj := doc[res.Curve]
		obj["reference"] = res.Reference
		out[res.Curve] = obj
		if len(res.Skipped) > 0 {
			log.Warn("points skipped", logger.String("curve", res.Curve), logger.Int("count", len(res.Skipped)))
		}
	}

	log.Info("sweep done",
		logger.Int("curves", len(results)),
		logger.Int("failed", len(failures)+len(doc)-len(defs)),
	)
	return writeOutput(o.output, out, stdout)
}

func readInput(ctx context.Context, input string, timeout time.Duration) ([]byte, error) {
	if strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://") {
		var body []byte
		client := xhttp.NewClient(xhttp.WithTimeout(timeout))
		if err := client.SendAndParse(ctx, &xhttp.RequestOptions{URL: input}, &body); err != nil {
			return nil, fmt.Errorf("fetch %s: %w", input, err)
		}
		return body, nil
	}

	b, err := os.ReadFile(input)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return b, nil
}

func writeOutput(path string, v any, stdout io.Writer) error {
	w := stdout
	if path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		w = f
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
