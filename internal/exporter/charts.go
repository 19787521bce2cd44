package exporter

import (
	"fmt"
	"io"
	"math"

	"github.com/xuri/excelize/v2"

	"github.com/galtons-data/family-heights/internal/dataprocessing"
	"github.com/galtons-data/family-heights/pkg/contracts/domain"
)

// Sheet names of the chart workbook
const (
	ChartsSheet     = "charts"
	ParentsSheet    = "parents"
	HistogramsSheet = "histograms"
	StatisticsSheet = "statistics"
)

// chartCells anchors the charts in a two-column grid
var chartCells = []string{"A1", "J1", "A17", "J17", "A33", "J33"}

// BuildChartWorkbook renders the description as a workbook: data sheets for
// parents, histograms and statistics plus native scatter, histogram and
// density charts on the first sheet.
func BuildChartWorkbook(table *domain.FamilyTable, desc *dataprocessing.Description) (*excelize.File, error) {
	if len(desc.NormalizedParents) != len(table.Records) {
		return nil, fmt.Errorf("description covers %d families, table has %d", len(desc.NormalizedParents), len(table.Records))
	}

	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), ChartsSheet); err != nil {
		f.Close()
		return nil, err
	}

	steps := []func(*excelize.File) error{
		func(f *excelize.File) error { return writeParentsSheet(f, table, desc) },
		func(f *excelize.File) error { return writeHistogramSheet(f, desc) },
		func(f *excelize.File) error { return writeStatisticsSheet(f, desc) },
		func(f *excelize.File) error { return addCharts(f, len(table.Records), desc) },
	}
	for _, step := range steps {
		if err := step(f); err != nil {
			f.Close()
			return nil, err
		}
	}

	f.SetActiveSheet(0)
	return f, nil
}

// ChartWorkbookWriter returns a batch WriteFunc for the chart workbook
func ChartWorkbookWriter(table *domain.FamilyTable, desc *dataprocessing.Description) WriteFunc {
	return func(w io.Writer) error {
		f, err := BuildChartWorkbook(table, desc)
		if err != nil {
			return err
		}
		defer f.Close()
		return f.Write(w)
	}
}

func writeParentsSheet(f *excelize.File, table *domain.FamilyTable, desc *dataprocessing.Description) error {
	if _, err := f.NewSheet(ParentsSheet); err != nil {
		return err
	}
	rows := [][]interface{}{{"family_id", "father_height", "mother_height", "father_z", "mother_z"}}
	for i, rec := range table.Records {
		z := desc.NormalizedParents[i]
		rows = append(rows, []interface{}{rec.FamilyID, rec.Father.Value, rec.Mother.Value, z.Father, z.Mother})
	}
	return setRows(f, ParentsSheet, rows)
}

func writeHistogramSheet(f *excelize.File, desc *dataprocessing.Description) error {
	if _, err := f.NewSheet(HistogramsSheet); err != nil {
		return err
	}
	headers := HistogramHeaders(desc)
	rows := [][]interface{}{make([]interface{}, len(headers))}
	for i, h := range headers {
		rows[0][i] = h
	}
	for i, c := range desc.Centers {
		row := []interface{}{desc.Edges[i], desc.Edges[i+1], c}
		for _, g := range desc.Groups {
			row = append(row, g.Counts[i])
		}
		for _, g := range desc.Groups {
			row = append(row, cellFloat(g.Density[i]))
		}
		for _, g := range desc.Groups {
			row = append(row, cellFloat(g.NormalPDF[i]))
		}
		rows = append(rows, row)
	}
	return setRows(f, HistogramsSheet, rows)
}

func writeStatisticsSheet(f *excelize.File, desc *dataprocessing.Description) error {
	if _, err := f.NewSheet(StatisticsSheet); err != nil {
		return err
	}
	rows := [][]interface{}{make([]interface{}, len(StatisticsHeaders))}
	for i, h := range StatisticsHeaders {
		rows[0][i] = h
	}
	for _, g := range desc.Groups {
		rows = append(rows, []interface{}{
			string(g.Group), g.Count,
			cellFloat(g.Mean), cellFloat(g.Std), cellFloat(g.Min), cellFloat(g.Median), cellFloat(g.Max),
		})
	}
	return setRows(f, StatisticsSheet, rows)
}

func setRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		row := row
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

// cellFloat leaves NaN cells blank
func cellFloat(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

// histogramColumn returns the histogram sheet column of a group value block:
// block 0 counts, 1 density, 2 normal pdf
func histogramColumn(desc *dataprocessing.Description, block int, group dataprocessing.Group) string {
	idx := 0
	for i, g := range desc.Groups {
		if g.Group == group {
			idx = i
		}
	}
	name, _ := excelize.ColumnNumberToName(4 + block*len(desc.Groups) + idx)
	return name
}

func sheetRange(sheet, col string, first, last int) string {
	return fmt.Sprintf("%s!$%s$%d:$%s$%d", sheet, col, first, col, last)
}

func title(text string) []excelize.RichTextRun {
	return []excelize.RichTextRun{{Text: text}}
}

func addCharts(f *excelize.File, families int, desc *dataprocessing.Description) error {
	lastParent := families + 1
	lastBin := len(desc.Centers) + 1
	centers := sheetRange(HistogramsSheet, "C", 2, lastBin)

	scatter := func(name, xCol, yCol, chartTitle, xTitle, yTitle string) *excelize.Chart {
		return &excelize.Chart{
			Type: excelize.Scatter,
			Series: []excelize.ChartSeries{{
				Name:       name,
				Categories: sheetRange(ParentsSheet, xCol, 2, lastParent),
				Values:     sheetRange(ParentsSheet, yCol, 2, lastParent),
				Line:       excelize.ChartLine{Type: excelize.ChartLineNone},
				Marker:     excelize.ChartMarker{Symbol: "circle", Size: 5},
			}},
			Title:  title(chartTitle),
			XAxis:  excelize.ChartAxis{Title: title(xTitle)},
			YAxis:  excelize.ChartAxis{Title: title(yTitle)},
			Legend: excelize.ChartLegend{Position: "none"},
		}
	}

	histogram := func(chartTitle string, groups ...dataprocessing.Group) *excelize.Chart {
		var series []excelize.ChartSeries
		for _, g := range groups {
			series = append(series, excelize.ChartSeries{
				Name:       string(g),
				Categories: centers,
				Values:     sheetRange(HistogramsSheet, histogramColumn(desc, 0, g), 2, lastBin),
			})
		}
		return &excelize.Chart{
			Type:   excelize.Col,
			Series: series,
			Title:  title(chartTitle),
			XAxis:  excelize.ChartAxis{Title: title("height (in - 60)")},
			YAxis:  excelize.ChartAxis{Title: title("count")},
			Legend: excelize.ChartLegend{Position: "top"},
		}
	}

	density := func(chartTitle string, g dataprocessing.Group) (*excelize.Chart, *excelize.Chart) {
		bars := &excelize.Chart{
			Type: excelize.Col,
			Series: []excelize.ChartSeries{{
				Name:       string(g) + " density",
				Categories: centers,
				Values:     sheetRange(HistogramsSheet, histogramColumn(desc, 1, g), 2, lastBin),
			}},
			Title:  title(chartTitle),
			XAxis:  excelize.ChartAxis{Title: title("height (in - 60)")},
			YAxis:  excelize.ChartAxis{Title: title("density")},
			Legend: excelize.ChartLegend{Position: "top"},
		}
		curve := &excelize.Chart{
			Type: excelize.Line,
			Series: []excelize.ChartSeries{{
				Name:       "normal fit",
				Categories: centers,
				Values:     sheetRange(HistogramsSheet, histogramColumn(desc, 2, g), 2, lastBin),
				Line:       excelize.ChartLine{Type: excelize.ChartLineSolid, Smooth: true, Width: 1.5},
				Marker:     excelize.ChartMarker{Symbol: "none"},
			}},
		}
		return bars, curve
	}

	charts := [][]*excelize.Chart{
		{scatter("parents", "B", "C", "Father and mother heights", "father (in - 60)", "mother (in - 60)")},
		{scatter("normalized parents", "D", "E", "Normalized parent heights", "father z-score", "mother z-score")},
		{histogram("Parent heights", dataprocessing.GroupFathers, dataprocessing.GroupMothers)},
		{histogram("Child heights", dataprocessing.GroupSons, dataprocessing.GroupDaughters)},
	}
	for _, g := range []dataprocessing.Group{dataprocessing.GroupSons, dataprocessing.GroupDaughters} {
		bars, curve := density(fmt.Sprintf("Distribution of %s", g), g)
		charts = append(charts, []*excelize.Chart{bars, curve})
	}

	for i, c := range charts {
		if err := f.AddChart(ChartsSheet, chartCells[i], c[0], c[1:]...); err != nil {
			return fmt.Errorf("failed to add chart %d: %w", i+1, err)
		}
	}
	return nil
}
