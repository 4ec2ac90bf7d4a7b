package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/Ratz-innovator/fusionsim/internal/pde"
)

type ExportData struct {
	Kind      string             `json:"kind"`
	Params    pde.Params         `json:"params"`
	Steps     []int              `json:"steps"`
	Times     []float64          `json:"times"`
	Centers   []float64          `json:"centers"`
	Snapshots [][]float64        `json:"snapshots"`
	Metrics   map[string]float64 `json:"metrics"`
}

// NewExportData lays out a run with the step index, the simulated time and
// the cell centres needed to plot every snapshot.
func NewExportData(cfg pde.Config, snaps pde.Snapshots, metrics map[string]float64) (*ExportData, error) {
	mesh, err := pde.NewMesh(cfg.CellCount, cfg.CellSize)
	if err != nil {
		return nil, err
	}
	steps := pde.Retain(cfg.StepCount, cfg.StoreFrames)
	times := make([]float64, len(steps))
	for i, s := range steps {
		times[i] = float64(s) * cfg.TimeStep
	}
	return &ExportData{
		Kind:      string(cfg.Kind()),
		Params:    cfg.Params(),
		Steps:     steps,
		Times:     times,
		Centers:   mesh.Centers(),
		Snapshots: snaps,
		Metrics:   metrics,
	}, nil
}

func ExportJSON(path string, data *ExportData) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return WriteJSON(file, data)
}

func WriteJSON(w io.Writer, data *ExportData) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// WriteCSV writes one row per snapshot: step, time, then one column per
// cell.
func WriteCSV(out io.Writer, cfg pde.Config, snaps pde.Snapshots) error {
	w := csv.NewWriter(out)

	header := []string{"step", "time"}
	for i := 0; i < cfg.CellCount; i++ {
		header = append(header, fmt.Sprintf("c%d", i))
	}
	if err := w.Write(header); err != nil {
		return err
	}

	steps := pde.Retain(cfg.StepCount, cfg.StoreFrames)
	for i, field := range snaps {
		step := i
		if i < len(steps) {
			step = steps[i]
		}
		row := make([]string, 0, len(field)+2)
		row = append(row,
			strconv.Itoa(step),
			strconv.FormatFloat(float64(step)*cfg.TimeStep, 'f', 6, 64),
		)
		for _, val := range field {
			row = append(row, strconv.FormatFloat(val, 'g', -1, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}
