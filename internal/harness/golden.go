package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/SGrasshopper/Chlamydial-developmental-cycle/internal/cell"
)

// Trace is the golden form of a scenario run: its final digest and the full
// event log.
type Trace struct {
	Scenario string       `json:"scenario"`
	Ticks    int64        `json:"ticks"`
	Digest   string       `json:"digest"`
	Events   []cell.Event `json:"events"`
}

// MarshalTrace renders a result as indented JSON with a trailing newline.
func MarshalTrace(name string, result *Result) ([]byte, error) {
	data, err := json.MarshalIndent(Trace{
		Scenario: name,
		Ticks:    result.Ticks,
		Digest:   result.Digest,
		Events:   result.Events,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal trace: %w", err)
	}
	return append(data, '\n'), nil
}

// TraceStatus is the outcome of comparing a run with its golden trace.
type TraceStatus string

const (
	TraceMatch   TraceStatus = "match"
	TraceDiffers TraceStatus = "differs"
	TraceMissing TraceStatus = "missing"
	TraceUpdated TraceStatus = "updated"
)

// TracePath returns the golden file of the named scenario in dir.
func TracePath(dir, name string) string {
	return filepath.Join(dir, name+".golden")
}

// CheckTrace compares a result with dir/<name>.golden, or rewrites the file
// when update is set. A missing file is reported, not treated as a failure.
// For TraceDiffers the returned line is the first line that differs.
func CheckTrace(dir, name string, result *Result, update bool) (TraceStatus, int, error) {
	data, err := MarshalTrace(name, result)
	if err != nil {
		return "", 0, err
	}
	path := TracePath(dir, name)

	if update {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", 0, fmt.Errorf("create golden dir: %w", err)
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return "", 0, fmt.Errorf("write golden trace: %w", err)
		}
		return TraceUpdated, 0, nil
	}

	want, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return TraceMissing, 0, nil
	}
	if err != nil {
		return "", 0, fmt.Errorf("read golden trace: %w", err)
	}
	if bytes.Equal(want, data) {
		return TraceMatch, 0, nil
	}
	return TraceDiffers, firstDiffLine(want, data), nil
}

func firstDiffLine(a, b []byte) int {
	la := bytes.Split(a, []byte("\n"))
	lb := bytes.Split(b, []byte("\n"))
	for i := 0; i < len(la) && i < len(lb); i++ {
		if !bytes.Equal(la[i], lb[i]) {
			return i + 1
		}
	}
	return min(len(la), len(lb)) + 1
}

// RunWithGolden executes a scenario and compares its trace against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Extra options are applied after the defaults, so a test may point the
// fixture directory elsewhere.
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...goldie.Option) error {
	t.Helper()

	result, err := Run(t.Context(), scenario)
	if err != nil {
		return err
	}
	return AssertGolden(t, scenario.Name, result, opts...)
}

// AssertGolden compares an existing result against its golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, name string, result *Result, opts ...goldie.Option) error {
	t.Helper()

	data, err := MarshalTrace(name, result)
	if err != nil {
		return err
	}

	g := goldie.New(t, append([]goldie.Option{
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	}, opts...)...)
	g.Assert(t, name, data)
	return nil
}
