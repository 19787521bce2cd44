package dataprocessing

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/galtons-data/family-heights/internal/errors"
)

func TestBinSpec_EdgeValues(t *testing.T) {
	edges := DefaultBinSpec().EdgeValues()
	require.Len(t, edges, 46)
	assert.Equal(t, -3.25, edges[0])
	assert.Equal(t, -2.75, edges[1])
	assert.Equal(t, 19.25, edges[45])
	for i := 1; i < len(edges); i++ {
		assert.InDelta(t, 0.5, edges[i]-edges[i-1], 1e-12)
	}
}

func TestBinSpec_Validate(t *testing.T) {
	assert.NoError(t, DefaultBinSpec().Validate())
	assert.Error(t, BinSpec{Start: 0, Stop: 1, Edges: 1}.Validate())
	assert.Error(t, BinSpec{Start: 1, Stop: 1, Edges: 5}.Validate())
}

func TestHistogram(t *testing.T) {
	edges := []float64{0, 1, 2, 3}

	tests := []struct {
		name   string
		values []float64
		want   []int
	}{
		{name: "left edge is inclusive", values: []float64{0, 1, 2}, want: []int{1, 1, 1}},
		{name: "last bin is closed", values: []float64{3}, want: []int{0, 0, 1}},
		{name: "interior values", values: []float64{0.5, 0.99, 2.5}, want: []int{2, 0, 1}},
		{name: "out of range ignored", values: []float64{-0.1, 3.1, math.NaN()}, want: []int{0, 0, 0}},
		{name: "empty", values: nil, want: []int{0, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Histogram(tt.values, edges))
		})
	}
}

func TestDensity(t *testing.T) {
	edges := []float64{0, 0.5, 1, 1.5}
	density := Density([]int{1, 2, 1}, edges)
	assert.Equal(t, []float64{0.5, 1, 0.5}, density)

	area := 0.0
	for i, d := range density {
		area += d * (edges[i+1] - edges[i])
	}
	assert.InDelta(t, 1.0, area, 1e-12)

	assert.Equal(t, []float64{0, 0, 0}, Density([]int{0, 0, 0}, edges))
}

func TestDescribe(t *testing.T) {
	table := masterTable(t,
		family{id: "1", father: "1", mother: "2", sons: []string{"4", "6"}, daughters: []string{"1"}},
		family{id: "2", father: "2", mother: "2", sons: []string{"5"}},
		family{id: "3", father: "3", mother: "5"},
		family{id: "4", father: "4", mother: "7", daughters: []string{"3"}},
	)

	desc, err := Describe(table, DefaultBinSpec())
	require.NoError(t, err)
	require.Len(t, desc.Groups, 4)
	require.Len(t, desc.Centers, 45)
	assert.Equal(t, -3.0, desc.Centers[0])

	fathers, ok := desc.Group(GroupFathers)
	require.True(t, ok)
	assert.Equal(t, 4, fathers.Count)
	assert.InDelta(t, 2.5, fathers.Mean, 1e-12)
	assert.InDelta(t, math.Sqrt(5.0/3.0), fathers.Std, 1e-12, "sample std uses n-1")
	assert.Equal(t, 1.0, fathers.Min)
	assert.Equal(t, 2.5, fathers.Median)
	assert.Equal(t, 4.0, fathers.Max)

	sons, _ := desc.Group(GroupSons)
	assert.Equal(t, 3, sons.Count)
	assert.InDelta(t, 5.0, sons.Mean, 1e-12)
	assert.InDelta(t, 1.0, sons.Std, 1e-12)

	daughters, _ := desc.Group(GroupDaughters)
	assert.Equal(t, 2, daughters.Count)
	assert.InDelta(t, 2.0, daughters.Mean, 1e-12)

	// histogram counts every value once
	total := 0
	for _, c := range sons.Counts {
		total += c
	}
	assert.Equal(t, sons.Count, total)

	// fitted normal peaks at the bin holding the mean
	peak := 0
	for i, p := range sons.NormalPDF {
		if p > sons.NormalPDF[peak] {
			peak = i
		}
	}
	assert.Equal(t, 16, peak, "bin [4.75, 5.25) holds the mean")
	assert.InDelta(t, 1/math.Sqrt(2*math.Pi), sons.NormalPDF[16], 1e-12)

	require.Len(t, desc.NormalizedParents, 4)
	assert.Equal(t, 1, desc.NormalizedParents[0].FamilyID)
	assert.InDelta(t, (1-2.5)/math.Sqrt(5.0/3.0), desc.NormalizedParents[0].Father, 1e-12)
}

func TestDescribe_EmptyGroup(t *testing.T) {
	desc, err := Describe(masterTable(t, family{id: "1", father: "1", mother: "2"}), DefaultBinSpec())
	require.NoError(t, err)

	sons, _ := desc.Group(GroupSons)
	assert.Equal(t, 0, sons.Count)
	assert.True(t, math.IsNaN(sons.Mean))
	assert.True(t, math.IsNaN(sons.Std))
	for _, p := range sons.NormalPDF {
		assert.Zero(t, p)
	}

	// a single father has no sample deviation
	fathers, _ := desc.Group(GroupFathers)
	assert.True(t, math.IsNaN(fathers.Std))
	assert.Zero(t, desc.NormalizedParents[0].Father)
}

func TestDescribe_Errors(t *testing.T) {
	_, err := Describe(masterTable(t, family{id: "1", father: "1", mother: "2", sons: []string{"medium"}}), DefaultBinSpec())
	assert.True(t, errors.Is(err, apperrors.ErrUnmappedCategory))

	_, err = Describe(nil, DefaultBinSpec())
	assert.True(t, errors.Is(err, apperrors.ErrValidation))

	_, err = Describe(masterTable(t, family{id: "1", father: "1", mother: "2"}), BinSpec{Start: 0, Stop: 1, Edges: 1})
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
}
