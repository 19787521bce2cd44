package exporter

import (
	"math"
	"strconv"

	"github.com/galtons-data/family-heights/internal/dataprocessing"
)

// formatFloat formats a float64 for report CSVs; NaN is written empty
func formatFloat(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return ""
	}
	return strconv.FormatFloat(f, 'f', 6, 64)
}

// formatEdge formats a bin edge with the shortest exact representation
func formatEdge(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// StatisticsHeaders are the columns of the statistics report
var StatisticsHeaders = []string{"group", "count", "mean", "std", "min", "median", "max"}

// StatisticsRecords renders one row per group
func StatisticsRecords(desc *dataprocessing.Description) WriteOptions {
	records := make([][]string, 0, len(desc.Groups))
	for _, g := range desc.Groups {
		records = append(records, []string{
			string(g.Group),
			strconv.Itoa(g.Count),
			formatFloat(g.Mean),
			formatFloat(g.Std),
			formatFloat(g.Min),
			formatFloat(g.Median),
			formatFloat(g.Max),
		})
	}
	return WriteOptions{Headers: StatisticsHeaders, Records: records}
}

// HistogramHeaders returns the histogram report columns for the groups of desc
func HistogramHeaders(desc *dataprocessing.Description) []string {
	headers := []string{"bin_left", "bin_right", "center"}
	for _, suffix := range []string{"count", "density", "normal_pdf"} {
		for _, g := range desc.Groups {
			headers = append(headers, string(g.Group)+"_"+suffix)
		}
	}
	return headers
}

// HistogramRecords renders one row per bin: edges, centre, then counts,
// densities and fitted normal values for every group
func HistogramRecords(desc *dataprocessing.Description) WriteOptions {
	records := make([][]string, len(desc.Centers))
	for i, c := range desc.Centers {
		row := []string{formatEdge(desc.Edges[i]), formatEdge(desc.Edges[i+1]), formatEdge(c)}
		for _, g := range desc.Groups {
			row = append(row, strconv.Itoa(g.Counts[i]))
		}
		for _, g := range desc.Groups {
			row = append(row, formatFloat(g.Density[i]))
		}
		for _, g := range desc.Groups {
			row = append(row, formatFloat(g.NormalPDF[i]))
		}
		records[i] = row
	}
	return WriteOptions{Headers: HistogramHeaders(desc), Records: records}
}
