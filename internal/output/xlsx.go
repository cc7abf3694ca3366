package output

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/zebrafishlab/fishviz/internal/activity"
	"github.com/zebrafishlab/fishviz/internal/summary"
)

// Workbook sheet names.
const (
	DataSheet    = "data"
	SummarySheet = "summary"
	TracesSheet  = "traces"
)

// ErrEmptyDataset is returned when there is nothing to write.
var ErrEmptyDataset = errors.New("no data to write")

var dataHeader = []interface{}{"fish", "genotype", "time", "day", "light", "zt_left", "zt_right", "activity", "sleep"}

var summaryHeader = []interface{}{"genotype", "zt_left", "zt_right", "n", "value", "low", "high"}

// WorkbookPath returns the .xlsx path written next to htmlPath. When that
// path is one of inputs, <stem>_summary.xlsx is used so an input workbook is
// never overwritten.
func WorkbookPath(htmlPath string, inputs ...string) string {
	stem := strings.TrimSuffix(htmlPath, filepath.Ext(htmlPath))
	path := stem + ".xlsx"
	for _, in := range inputs {
		if samePath(path, in) {
			return stem + "_summary.xlsx"
		}
	}
	return path
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}

// WriteWorkbook writes the resampled samples of ds, the summary traces in
// long form and the traces side by side with a line chart.
func WriteWorkbook(path string, ds *activity.Dataset, sig activity.Signal, traces []summary.Trace) error {
	if ds.Len() == 0 {
		return ErrEmptyDataset
	}

	f := excelize.NewFile()
	defer f.Close()

	defaultSheet := f.GetSheetName(0)
	if err := f.SetSheetName(defaultSheet, DataSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeData(f, ds); err != nil {
		return err
	}

	if len(traces) > 0 {
		if err := writeSummary(f, traces); err != nil {
			return err
		}
		if err := writeTraces(f, ds, sig, traces); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

func writeData(f *excelize.File, ds *activity.Dataset) error {
	if err := f.SetSheetRow(DataSheet, "A1", &dataHeader); err != nil {
		return err
	}
	row := 2
	for _, fish := range ds.Fish() {
		for _, s := range ds.Series[fish] {
			cell, err := excelize.CoordinatesToCellName(1, row)
			if err != nil {
				return err
			}
			values := []interface{}{
				s.Fish, s.Genotype, s.Time.Format(time.DateTime), s.Day, s.Light,
				s.Left, s.Right, s.Activity, s.Sleep,
			}
			if err := f.SetSheetRow(DataSheet, cell, &values); err != nil {
				return err
			}
			row++
		}
	}
	return nil
}

func writeSummary(f *excelize.File, traces []summary.Trace) error {
	if _, err := f.NewSheet(SummarySheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(SummarySheet, "A1", &summaryHeader); err != nil {
		return err
	}
	row := 2
	for _, tr := range traces {
		for _, pt := range tr.Points {
			cell, err := excelize.CoordinatesToCellName(1, row)
			if err != nil {
				return err
			}
			values := []interface{}{tr.Genotype, pt.Left, pt.Right, pt.N, cellValue(pt.Value), nil, nil}
			if tr.Band {
				values[5], values[6] = cellValue(pt.Low), cellValue(pt.High)
			}
			if err := f.SetSheetRow(SummarySheet, cell, &values); err != nil {
				return err
			}
			row++
		}
	}
	return nil
}

// writeTraces lays the traces out one column per genotype on a shared
// zeitgeber axis and charts them.
func writeTraces(f *excelize.File, ds *activity.Dataset, sig activity.Signal, traces []summary.Trace) error {
	if _, err := f.NewSheet(TracesSheet); err != nil {
		return err
	}

	var lefts []float64
	seen := make(map[float64]bool)
	for _, tr := range traces {
		for _, pt := range tr.Points {
			if !seen[pt.Left] {
				seen[pt.Left] = true
				lefts = append(lefts, pt.Left)
			}
		}
	}
	sort.Float64s(lefts)
	rowOf := make(map[float64]int, len(lefts))
	for i, l := range lefts {
		rowOf[l] = i + 2
		if err := f.SetCellFloat(TracesSheet, fmt.Sprintf("A%d", i+2), l, 4, 64); err != nil {
			return err
		}
	}
	if err := f.SetCellStr(TracesSheet, "A1", "zt_left"); err != nil {
		return err
	}

	endRow := len(lefts) + 1
	chart := &excelize.Chart{
		Type:   excelize.Line,
		Title:  []excelize.RichTextRun{{Text: fmt.Sprintf("%s by genotype", sig)}},
		Legend: excelize.ChartLegend{Position: "bottom"},
		XAxis:  excelize.ChartAxis{Title: []excelize.RichTextRun{{Text: "time (hr)"}}},
		YAxis: excelize.ChartAxis{
			Title:          []excelize.RichTextRun{{Text: fmt.Sprintf("%s (%s./%g min)", sig, sig.Units(), ds.BinWidth.Minutes())}},
			MajorGridLines: true,
		},
	}

	for i, tr := range traces {
		col, err := excelize.ColumnNumberToName(i + 2)
		if err != nil {
			return err
		}
		if err := f.SetCellStr(TracesSheet, col+"1", tr.Genotype); err != nil {
			return err
		}
		for _, pt := range tr.Points {
			if math.IsNaN(pt.Value) {
				continue
			}
			if err := f.SetCellFloat(TracesSheet, fmt.Sprintf("%s%d", col, rowOf[pt.Left]), pt.Value, 6, 64); err != nil {
				return err
			}
		}
		chart.Series = append(chart.Series, excelize.ChartSeries{
			Name:       fmt.Sprintf("%s!$%s$1", TracesSheet, col),
			Categories: fmt.Sprintf("%s!$A$2:$A$%d", TracesSheet, endRow),
			Values:     fmt.Sprintf("%s!$%s$2:$%s$%d", TracesSheet, col, col, endRow),
		})
	}

	if err := f.AddChart(TracesSheet, chartAnchor(len(traces)), chart); err != nil {
		return fmt.Errorf("add chart: %w", err)
	}
	return nil
}

func chartAnchor(columns int) string {
	col, err := excelize.ColumnNumberToName(columns + 3)
	if err != nil {
		return "H2"
	}
	return col + "2"
}

func cellValue(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}
