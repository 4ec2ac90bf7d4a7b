package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// Columns taken by the y axis labels of an ASCII plot.
const plotGutter = 12

// plotSize returns the plot dimensions, fitting the width to the terminal
// unless --width was given.
func plotSize(cmd *cobra.Command) (int, int) {
	width := plotWidth
	if cmd.Flags().Changed("width") {
		return width, plotHeight
	}
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return width, plotHeight
	}
	if cols, _, err := term.GetSize(fd); err == nil && cols-plotGutter > 20 {
		width = cols - plotGutter
	}
	return width, plotHeight
}

// metricTable renders one row per result with a column per metric name.
func metricTable(w io.Writer, lead []string, names []string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	header := make(table.Row, 0, len(lead)+len(names))
	for _, col := range lead {
		header = append(header, strings.ToUpper(col))
	}
	for _, name := range names {
		header = append(header, name)
	}
	t.AppendHeader(header)
	return t
}

func metricCells(summary map[string]float64, names []string) table.Row {
	row := make(table.Row, len(names))
	for i, name := range names {
		v, ok := summary[name]
		if !ok {
			row[i] = "-"
			continue
		}
		row[i] = fmt.Sprintf("%.4g", v)
	}
	return row
}
