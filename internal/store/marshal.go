package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/SGrasshopper/Chlamydial-developmental-cycle/internal/cell"
)

// marshalJSON encodes v as compact JSON TEXT without HTML escaping, so the
// stored text matches what the population digest hashes.
func marshalJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSpace(buf.String()), nil
}

func marshalState(s *cell.State) (string, error) {
	data, err := marshalJSON(s)
	if err != nil {
		return "", fmt.Errorf("marshal cell %d: %w", s.ID, err)
	}
	return data, nil
}

func unmarshalState(data string) (*cell.State, error) {
	var s cell.State
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return nil, fmt.Errorf("unmarshal cell: %w", err)
	}
	return &s, nil
}

func marshalCounts(counts [cell.NumTypes]int) (string, error) {
	data, err := marshalJSON(counts)
	if err != nil {
		return "", fmt.Errorf("marshal counts: %w", err)
	}
	return data, nil
}

func unmarshalCounts(data string) ([cell.NumTypes]int, error) {
	var counts [cell.NumTypes]int
	if err := json.Unmarshal([]byte(data), &counts); err != nil {
		return counts, fmt.Errorf("unmarshal counts: %w", err)
	}
	return counts, nil
}
