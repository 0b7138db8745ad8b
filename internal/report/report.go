// Package report turns stored snapshots into population summaries: a CSV
// table of stage counts per tick and a PNG line chart of the same data.
package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/SGrasshopper/Chlamydial-developmental-cycle/internal/cell"
	"github.com/SGrasshopper/Chlamydial-developmental-cycle/internal/store"
)

// ErrTooFewSnapshots is returned by Chart when there is nothing to plot.
var ErrTooFewSnapshots = errors.New("chart needs at least two snapshots")

// Header returns the CSV column names.
func Header() []string {
	cols := []string{"tick", "cells"}
	for t := cell.Type(0); t < cell.NumTypes; t++ {
		cols = append(cols, t.String())
	}
	return cols
}

// WriteCSV writes one row per snapshot in tick order.
func WriteCSV(w io.Writer, snaps []store.Snapshot) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header()); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, s := range snaps {
		row := []string{
			strconv.FormatInt(s.Tick, 10),
			strconv.Itoa(s.Cells),
		}
		for _, n := range s.Counts {
			row = append(row, strconv.Itoa(n))
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %d: %w", s.Tick, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// stageColors follows the cell colors of the model where they are fixed.
var stageColors = [cell.NumTypes]drawing.Color{
	cell.Germinating: {R: 200, G: 200, B: 200, A: 255},
	cell.RBr:         {R: 40, G: 170, B: 60, A: 255},
	cell.RBe:         {R: 120, G: 210, B: 80, A: 255},
	cell.IB:          {R: 40, G: 90, B: 220, A: 255},
	cell.PreEB:       {R: 150, G: 60, B: 200, A: 255},
	cell.EB:          {R: 220, G: 40, B: 110, A: 255},
	cell.Dormant:     {R: 240, G: 160, B: 0, A: 255},
}

// Chart renders stage counts over time as a PNG. Stages that never occur
// are left out of the legend.
func Chart(w io.Writer, snaps []store.Snapshot, title string) error {
	if len(snaps) < 2 {
		return ErrTooFewSnapshots
	}

	xs := make([]float64, len(snaps))
	totals := make([]float64, len(snaps))
	var ys [cell.NumTypes][]float64
	var seen [cell.NumTypes]bool
	for t := range ys {
		ys[t] = make([]float64, len(snaps))
	}
	for i, s := range snaps {
		xs[i] = float64(s.Tick)
		totals[i] = float64(s.Cells)
		for t, n := range s.Counts {
			ys[t][i] = float64(n)
			if n > 0 {
				seen[t] = true
			}
		}
	}

	series := []chart.Series{
		chart.ContinuousSeries{
			Name:    "cells",
			XValues: xs,
			YValues: totals,
			Style:   chart.Style{StrokeColor: chart.ColorBlack, StrokeWidth: 3.0},
		},
	}
	for t := cell.Type(0); t < cell.NumTypes; t++ {
		if !seen[t] {
			continue
		}
		series = append(series, chart.ContinuousSeries{
			Name:    t.String(),
			XValues: xs,
			YValues: ys[t],
			Style:   chart.Style{StrokeColor: stageColors[t], StrokeWidth: 2.0},
		})
	}

	graph := chart.Chart{
		Title:  title,
		Width:  960,
		Height: 480,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: chart.XAxis{
			Name:  "tick",
			Style: chart.Style{FontSize: 10.0},
			ValueFormatter: func(v interface{}) string {
				return fmt.Sprintf("%d", int(v.(float64)))
			},
		},
		YAxis: chart.YAxis{
			Name:  "cells",
			Style: chart.Style{FontSize: 10.0},
			ValueFormatter: func(v interface{}) string {
				return fmt.Sprintf("%d", int(v.(float64)))
			},
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.LegendLeft(&graph)}

	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}

// Peak returns the snapshot with the most cells of stage t. ok is false if
// the stage never occurs.
func Peak(snaps []store.Snapshot, t cell.Type) (snap store.Snapshot, ok bool) {
	best := 0
	for _, s := range snaps {
		if n := s.Counts[t]; n > best {
			best, snap, ok = n, s, true
		}
	}
	return snap, ok
}
