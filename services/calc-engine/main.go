package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"financial_model/pkg/core/assumption"
	"financial_model/pkg/core/historical"
	"financial_model/pkg/core/pipeline"
	"financial_model/pkg/core/valuation"
)

// Payload is the -data document for the check and calculate modes.
type Payload struct {
	Historical map[string][]interface{} `json:"historical"`
	Overrides  assumption.Overrides     `json:"overrides"`
	Years      int                      `json:"years"`
}

// CheckResult is printed by -mode check.
type CheckResult struct {
	Passed   bool     `json:"passed"`
	Failures []string `json:"failures,omitempty"`
}

func main() {
	mode := flag.String("mode", "calculate", "Mode: check, calculate or value")
	dataStr := flag.String("data", "", "JSON data payload")
	flag.Parse()

	if *dataStr == "" {
		fmt.Fprintln(os.Stderr, "Error: No data provided")
		os.Exit(1)
	}

	if err := run(context.Background(), *mode, []byte(*dataStr), os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, mode string, data []byte, w io.Writer) error {
	switch mode {
	case "check":
		return runChecks(ctx, data, w)
	case "calculate":
		return runCalculations(ctx, data, w)
	case "value":
		return runValuation(data, w)
	default:
		return fmt.Errorf("unknown mode: %s", mode)
	}
}

func decodePayload(data []byte) (pipeline.Request, error) {
	var p Payload
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&p); err != nil {
		return pipeline.Request{}, fmt.Errorf("unmarshaling data: %w", err)
	}
	h, err := historical.FromRaw(p.Historical)
	if err != nil {
		return pipeline.Request{}, err
	}
	return pipeline.Request{Historical: h, Overrides: p.Overrides, Years: p.Years}, nil
}

// runChecks projects the statements and verifies every accounting identity.
func runChecks(ctx context.Context, data []byte, w io.Writer) error {
	req, err := decodePayload(data)
	if err != nil {
		return err
	}
	req.SkipScenarios, req.SkipSensitivity = true, true

	rec, err := pipeline.NewOrchestrator(nil, 1, nil).Run(ctx, req)
	if err != nil {
		return err
	}
	res := CheckResult{Passed: rec.Checks.AllPassed, Failures: rec.Checks.Failures()}
	if err := json.NewEncoder(w).Encode(res); err != nil {
		return err
	}
	if !res.Passed {
		return fmt.Errorf("accounting identity imbalance (%d failures)", len(res.Failures))
	}
	return nil
}

// runCalculations runs the full pipeline and prints the run record.
func runCalculations(ctx context.Context, data []byte, w io.Writer) error {
	req, err := decodePayload(data)
	if err != nil {
		return err
	}
	rec, err := pipeline.NewOrchestrator(nil, 0, nil).Run(ctx, req)
	if err != nil {
		return err
	}
	return json.NewEncoder(w).Encode(rec)
}

// runValuation values a bare cash-flow series.
func runValuation(data []byte, w io.Writer) error {
	var in valuation.DCFInput
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("unmarshaling data: %w", err)
	}
	res, err := valuation.CalculateDCF(in)
	if err != nil {
		return err
	}
	return json.NewEncoder(w).Encode(res)
}
