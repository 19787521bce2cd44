package dataprocessing

import (
	"fmt"
	"math"
	"sort"

	"github.com/go-gota/gota/series"
	"gonum.org/v1/gonum/stat/distuv"

	apperrors "github.com/galtons-data/family-heights/internal/errors"
	"github.com/galtons-data/family-heights/pkg/contracts/domain"
)

// Group names one population of heights
type Group string

const (
	GroupFathers   Group = "fathers"
	GroupMothers   Group = "mothers"
	GroupSons      Group = "sons"
	GroupDaughters Group = "daughters"
)

// Groups lists every group in report order
var Groups = []Group{GroupFathers, GroupMothers, GroupSons, GroupDaughters}

// BinSpec defines Edges evenly spaced histogram edges from Start to Stop
type BinSpec struct {
	Start float64
	Stop  float64
	Edges int
}

// DefaultBinSpec covers every recorded height in half-inch bins
func DefaultBinSpec() BinSpec {
	return BinSpec{Start: -3.25, Stop: 19.25, Edges: 46}
}

// Validate checks that the edges describe at least one bin
func (b BinSpec) Validate() error {
	if b.Edges < 2 {
		return apperrors.NewAppValidationError(fmt.Sprintf("histogram needs at least 2 edges, got %d", b.Edges))
	}
	if !(b.Stop > b.Start) {
		return apperrors.NewAppValidationError(fmt.Sprintf("histogram range %g..%g is empty", b.Start, b.Stop))
	}
	return nil
}

// EdgeValues returns the bin edges; the last edge is exactly Stop
func (b BinSpec) EdgeValues() []float64 {
	edges := make([]float64, b.Edges)
	step := (b.Stop - b.Start) / float64(b.Edges-1)
	for i := range edges {
		edges[i] = b.Start + float64(i)*step
	}
	edges[len(edges)-1] = b.Stop
	return edges
}

// GroupStats holds the descriptive statistics of one group
type GroupStats struct {
	Group  Group
	Count  int
	Mean   float64
	Std    float64
	Min    float64
	Median float64
	Max    float64

	// Per-bin values, aligned with Description.Centers
	Counts    []int
	Density   []float64
	NormalPDF []float64
}

// NormalizedParent holds the z-scores of one family's parents
type NormalizedParent struct {
	FamilyID int
	Father   float64
	Mother   float64
}

// Description is the statistics output for a family table
type Description struct {
	Edges             []float64
	Centers           []float64
	Groups            []GroupStats
	NormalizedParents []NormalizedParent
}

// Group returns the statistics of g
func (d *Description) Group(g Group) (GroupStats, bool) {
	for _, s := range d.Groups {
		if s.Group == g {
			return s, true
		}
	}
	return GroupStats{}, false
}

// Describe computes count, mean, sample standard deviation and histogram of
// every group. Sons and daughters pool all recorded slots.
func Describe(table *domain.FamilyTable, bins BinSpec) (*Description, error) {
	if table == nil {
		return nil, apperrors.NewAppValidationError("statistics need a family table")
	}
	if err := bins.Validate(); err != nil {
		return nil, err
	}

	values, err := groupValues(table.Records)
	if err != nil {
		return nil, err
	}

	edges := bins.EdgeValues()
	centers := make([]float64, len(edges)-1)
	for i := range centers {
		centers[i] = (edges[i] + edges[i+1]) / 2
	}

	desc := &Description{Edges: edges, Centers: centers}
	for _, g := range Groups {
		desc.Groups = append(desc.Groups, describeGroup(g, values[g], edges, centers))
	}

	fathers, _ := desc.Group(GroupFathers)
	mothers, _ := desc.Group(GroupMothers)
	for _, rec := range table.Records {
		desc.NormalizedParents = append(desc.NormalizedParents, NormalizedParent{
			FamilyID: rec.FamilyID,
			Father:   zScore(rec.Father.Value, fathers),
			Mother:   zScore(rec.Mother.Value, mothers),
		})
	}

	return desc, nil
}

func groupValues(records []domain.FamilyRecord) (map[Group][]float64, error) {
	values := make(map[Group][]float64, len(Groups))
	for _, rec := range records {
		values[GroupFathers] = append(values[GroupFathers], rec.Father.Value)
		values[GroupMothers] = append(values[GroupMothers], rec.Mother.Value)

		for _, sex := range []domain.Sex{domain.SexSon, domain.SexDaughter} {
			g := GroupSons
			if sex == domain.SexDaughter {
				g = GroupDaughters
			}
			for slot, h := range rec.Children(sex) {
				switch {
				case h.IsNumeric():
					values[g] = append(values[g], h.Value)
				case h.IsLabel():
					return nil, apperrors.NewUnmappedCategoryError(h.Label, fmt.Sprintf("%s_height_%d", sex, slot+1), rec.FamilyID)
				}
			}
		}
	}
	return values, nil
}

func describeGroup(g Group, values []float64, edges, centers []float64) GroupStats {
	stats := GroupStats{
		Group:  g,
		Count:  len(values),
		Mean:   math.NaN(),
		Std:    math.NaN(),
		Min:    math.NaN(),
		Median: math.NaN(),
		Max:    math.NaN(),
	}
	if len(values) > 0 {
		s := series.New(values, series.Float, string(g))
		stats.Mean = s.Mean()
		stats.Std = s.StdDev()
		stats.Min = s.Min()
		stats.Median = s.Median()
		stats.Max = s.Max()
	}

	stats.Counts = Histogram(values, edges)
	stats.Density = Density(stats.Counts, edges)
	stats.NormalPDF = make([]float64, len(centers))
	if stats.Std > 0 && !math.IsInf(stats.Std, 0) {
		normal := distuv.Normal{Mu: stats.Mean, Sigma: stats.Std}
		for i, c := range centers {
			stats.NormalPDF[i] = normal.Prob(c)
		}
	}
	return stats
}

// Histogram counts values per bin. Bins are half-open except the last, which
// includes its right edge; values outside the edges are ignored.
func Histogram(values, edges []float64) []int {
	counts := make([]int, len(edges)-1)
	first, last := edges[0], edges[len(edges)-1]
	for _, v := range values {
		if math.IsNaN(v) || v < first || v > last {
			continue
		}
		i := sort.Search(len(edges), func(i int) bool { return edges[i] > v }) - 1
		if i == len(counts) {
			i--
		}
		counts[i]++
	}
	return counts
}

// Density normalizes counts so the histogram integrates to one
func Density(counts []int, edges []float64) []float64 {
	total := 0
	for _, c := range counts {
		total += c
	}
	density := make([]float64, len(counts))
	if total == 0 {
		return density
	}
	for i, c := range counts {
		density[i] = float64(c) / (float64(total) * (edges[i+1] - edges[i]))
	}
	return density
}

func zScore(v float64, g GroupStats) float64 {
	if !(g.Std > 0) {
		return 0
	}
	return (v - g.Mean) / g.Std
}
