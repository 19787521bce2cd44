package dataprocessing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/galtons-data/family-heights/internal/errors"
	"github.com/galtons-data/family-heights/pkg/contracts/domain"
)

func TestReshape_ConcreteScenario(t *testing.T) {
	sons, err := domain.NewCategoryLookup(domain.SexSon, []domain.Category{{Label: "medium", Value: 7.0}})
	require.NoError(t, err)
	daughters, err := domain.NewCategoryLookup(domain.SexDaughter, []domain.Category{{Label: "tall", Value: 6.0}})
	require.NoError(t, err)

	imputed, err := Impute(masterTable(t, family{id: "1", father: "10", mother: "8", sons: []string{"medium"}, daughters: []string{"tall"}}), sons, daughters)
	require.NoError(t, err)

	result, err := Reshape(imputed.Final)
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"1", "10", "8", "7.0"}}, ChildRows(result.ParentsSons))
	assert.Equal(t, [][]string{{"1", "10", "8", "6.0"}}, ChildRows(result.ParentsDaughters))
}

func TestReshape_RowCountConservation(t *testing.T) {
	sons, daughters := testLookups(t)
	imputed, err := Impute(masterTable(t, sampleFamilies()...), sons, daughters)
	require.NoError(t, err)

	result, err := Reshape(imputed.Final)
	require.NoError(t, err)

	wantSons, wantDaughters := 0, 0
	for _, rec := range imputed.Final.Records {
		wantSons += rec.SonCount()
		wantDaughters += rec.DaughterCount()
	}
	assert.Len(t, result.ParentsSons, wantSons)
	assert.Len(t, result.ParentsDaughters, wantDaughters)
	assert.Equal(t, 9, wantSons)
	assert.Equal(t, 9, wantDaughters)
}

func TestReshape_Traceability(t *testing.T) {
	sons, daughters := testLookups(t)
	master := masterTable(t, sampleFamilies()...)
	imputed, err := Impute(master, sons, daughters)
	require.NoError(t, err)

	result, err := Reshape(imputed.Final)
	require.NoError(t, err)

	byID := map[int][]domain.FamilyRecord{}
	for _, rec := range master.Records {
		byID[rec.FamilyID] = append(byID[rec.FamilyID], rec)
	}

	for _, child := range append(result.ParentsSons, result.ParentsDaughters...) {
		matches := byID[child.FamilyID]
		require.Len(t, matches, 1, "family %d", child.FamilyID)
		assert.Equal(t, matches[0].Father.String(), child.Father.String())
		assert.Equal(t, matches[0].Mother.String(), child.Mother.String())

		// the child is the imputed value of its own slot
		src := imputed.Final.Records[0]
		for _, rec := range imputed.Final.Records {
			if rec.FamilyID == child.FamilyID {
				src = rec
			}
		}
		assert.Equal(t, src.Children(child.Sex)[child.Slot-1].String(), child.Height.String())
	}
}

func TestReshape_SlotMajorOrder(t *testing.T) {
	table := masterTable(t,
		family{id: "1", father: "10", mother: "8", sons: []string{"1", "2"}},
		family{id: "2", father: "9", mother: "7", sons: []string{"3", "", "4"}},
		family{id: "3", father: "8", mother: "6", sons: []string{"5"}},
	)

	result, err := Reshape(table)
	require.NoError(t, err)

	assert.Equal(t, [][]string{
		{"1", "10", "8", "1"},
		{"2", "9", "7", "3"},
		{"3", "8", "6", "5"},
		{"1", "10", "8", "2"},
		{"2", "9", "7", "4"},
	}, ChildRows(result.ParentsSons))
	assert.Empty(t, result.ParentsDaughters)

	assert.Equal(t, 1, result.ParentsSons[0].Slot)
	assert.Equal(t, 3, result.ParentsSons[4].Slot)
	assert.Equal(t, domain.SexSon, result.ParentsSons[4].Sex)
}

func TestReshape_IntegerFamilyID(t *testing.T) {
	rows := [][]string{family{id: "7.0", father: "10", mother: "8", daughters: []string{"5.5"}}.row()[:22]}
	table, err := ParseFamilyRecords(rows, domain.ImputedSchema, ParseOptions{})
	require.NoError(t, err)

	result, err := Reshape(table)
	require.NoError(t, err)
	require.Len(t, result.ParentsDaughters, 1)
	assert.Equal(t, "7", result.ParentsDaughters[0].Row()[0])
}

func TestReshape_LabelIsUnmapped(t *testing.T) {
	_, err := Reshape(masterTable(t, family{id: "1", father: "10", mother: "8", daughters: []string{"6", "tall"}}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrUnmappedCategory))
	assert.Contains(t, err.Error(), "daughter_height_2")
}
