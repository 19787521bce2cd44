package dataprocessing

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/galtons-data/family-heights/internal/errors"
	"github.com/galtons-data/family-heights/pkg/contracts/domain"
)

func familiesWithFathers(fathers ...float64) *domain.FamilyTable {
	table := &domain.FamilyTable{Schema: domain.ImputedSchema}
	for i, f := range fathers {
		rec := domain.FamilyRecord{
			FamilyID: i + 1,
			Father:   domain.NumericHeight(f),
			Mother:   domain.NumericHeight(float64(i)),
		}
		rec.Sons[0] = domain.NumericHeight(float64(100 + i))
		table.Records = append(table.Records, rec)
	}
	return table
}

func ids(table *domain.FamilyTable) []int {
	out := make([]int, len(table.Records))
	for i, rec := range table.Records {
		out[i] = rec.FamilyID
	}
	return out
}

func TestReindex_ResolvesGaltonPosition(t *testing.T) {
	// 204 families in descending father order, then the anomalous family
	// whose father equals family 136's
	fathers := make([]float64, 0, 205)
	for i := 1; i <= 204; i++ {
		fathers = append(fathers, 20-float64(i)*0.05)
	}
	fathers = append(fathers, fathers[135])
	table := familiesWithFathers(fathers...)

	target, err := ResolveReindexTarget(table, 205)
	require.NoError(t, err)
	assert.Equal(t, 137, target)

	result, err := Reindex(table, ReindexOptions{Anomalous: 205})
	require.NoError(t, err)
	assert.Equal(t, 137, result.Target)

	got := ids(result.Table)
	for i := 0; i < 136; i++ {
		assert.Equal(t, i+1, got[i], "family %d is a fixed point", i+1)
	}
	for i := 136; i < 204; i++ {
		assert.Equal(t, i+2, got[i], "family %d shifts by one", i+1)
	}
	assert.Equal(t, 137, got[204])
	assert.Len(t, result.Mapping, 205-136)
}

func TestReindex_SampleTable(t *testing.T) {
	sons, daughters := testLookups(t)
	imputed, err := Impute(masterTable(t, sampleFamilies()...), sons, daughters)
	require.NoError(t, err)

	result, err := Reindex(imputed.Final, ReindexOptions{Anomalous: 205})
	require.NoError(t, err)

	// 18.5, 15.5 and the two earlier 15.0 fathers stay ahead
	assert.Equal(t, 5, result.Target)
	assert.Equal(t, []int{1, 2, 3, 4, 6, 5}, ids(result.Table))
	assert.Equal(t, map[int]int{5: 6, 205: 5}, result.Mapping)
}

func TestReindex_PreservesPayload(t *testing.T) {
	table := familiesWithFathers(9, 8, 7, 6, 5, 4, 7.5)
	before := table.Rows()

	result, err := Reindex(table, ReindexOptions{Anomalous: 7})
	require.NoError(t, err)
	after := result.Table.Rows()

	require.Len(t, after, len(before))
	for i := range before {
		assert.Equal(t, before[i][1:], after[i][1:], "row %d payload", i)
	}
	assert.Equal(t, before, table.Rows(), "input table untouched")
}

func TestReindex_Bijection(t *testing.T) {
	tests := []struct {
		name      string
		fathers   []float64
		opts      ReindexOptions
		wantIDs   []int
		wantRange [2]int
	}{
		{
			name:      "move down",
			fathers:   []float64{9, 8, 7, 6, 5, 4, 7.5},
			opts:      ReindexOptions{Anomalous: 7},
			wantIDs:   []int{1, 2, 4, 5, 6, 7, 3},
			wantRange: [2]int{3, 7},
		},
		{
			name:      "explicit target above anomalous",
			fathers:   []float64{9, 8, 7, 6, 5},
			opts:      ReindexOptions{Anomalous: 2, Target: 4},
			wantIDs:   []int{1, 4, 2, 3, 5},
			wantRange: [2]int{2, 4},
		},
		{
			name:      "already in place",
			fathers:   []float64{9, 8, 7, 6, 5},
			opts:      ReindexOptions{Anomalous: 5},
			wantIDs:   []int{1, 2, 3, 4, 5},
			wantRange: [2]int{0, -1},
		},
		{
			name:      "ascending table",
			fathers:   []float64{1, 2, 3, 4, 2.5},
			opts:      ReindexOptions{Anomalous: 5},
			wantIDs:   []int{1, 2, 4, 5, 3},
			wantRange: [2]int{3, 5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Reindex(familiesWithFathers(tt.fathers...), tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.wantIDs, ids(result.Table))

			keys := map[int]bool{}
			values := map[int]bool{}
			for old, next := range result.Mapping {
				assert.GreaterOrEqual(t, old, tt.wantRange[0])
				assert.LessOrEqual(t, old, tt.wantRange[1])
				keys[old] = true
				values[next] = true
			}
			assert.Equal(t, keys, values, "mapping permutes the affected range")
		})
	}
}

func TestDetectOrdering(t *testing.T) {
	tests := []struct {
		name         string
		fathers      []float64
		skip         int
		want         Ordering
		wantDetected bool
	}{
		{name: "descending", fathers: []float64{9, 5, 1}, want: OrderingDescending, wantDetected: true},
		{name: "ascending", fathers: []float64{1, 5, 9}, want: OrderingAscending, wantDetected: true},
		{name: "skipped family does not take part", fathers: []float64{1, 5, 0}, skip: 3, want: OrderingAscending, wantDetected: true},
		{name: "equal end fathers fall back", fathers: []float64{5, 9, 5}, want: OrderingDescending, wantDetected: false},
		{name: "single family falls back", fathers: []float64{5, 9}, skip: 2, want: OrderingDescending, wantDetected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, detected := DetectOrdering(familiesWithFathers(tt.fathers...).Records, tt.skip)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantDetected, detected)
		})
	}
}

func TestReindex_ReportsOrdering(t *testing.T) {
	result, err := Reindex(familiesWithFathers(9, 5, 1, 6), ReindexOptions{Anomalous: 4})
	require.NoError(t, err)
	assert.Equal(t, OrderingDescending, result.Ordering)
	assert.True(t, result.OrderingDetected)

	result, err = Reindex(familiesWithFathers(5, 9, 5, 6), ReindexOptions{Anomalous: 4})
	require.NoError(t, err)
	assert.False(t, result.OrderingDetected)

	result, err = Reindex(familiesWithFathers(9, 5, 1, 6), ReindexOptions{Anomalous: 4, Target: 2})
	require.NoError(t, err)
	assert.Empty(t, result.Ordering)
}

func TestReindex_Errors(t *testing.T) {
	dup := familiesWithFathers(9, 8, 7)
	dup.Records[2].FamilyID = 1

	tests := []struct {
		name    string
		table   *domain.FamilyTable
		opts    ReindexOptions
		wantErr error
	}{
		{name: "missing anomalous", table: familiesWithFathers(9, 8, 7), opts: ReindexOptions{Anomalous: 205}, wantErr: apperrors.ErrMissingIdentifier},
		{name: "duplicate input id", table: dup, opts: ReindexOptions{Anomalous: 2}, wantErr: apperrors.ErrIdentifierCollision},
		{name: "target out of range", table: familiesWithFathers(9, 8, 7), opts: ReindexOptions{Anomalous: 3, Target: 300}, wantErr: apperrors.ErrSchema},
		{name: "negative target", table: familiesWithFathers(9, 8, 7), opts: ReindexOptions{Anomalous: 3, Target: -1}, wantErr: apperrors.ErrSchema},
		{name: "nil table", table: nil, opts: ReindexOptions{Anomalous: 3}, wantErr: apperrors.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Reindex(tt.table, tt.opts)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), fmt.Sprintf("got %v", err))
		})
	}
}
