package dataprocessing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/galtons-data/family-heights/pkg/contracts/domain"
)

// family describes one master row; unset slots are absent
type family struct {
	id        string
	father    string
	mother    string
	sons      []string
	daughters []string
	count     string
}

func (f family) row() []string {
	row := []string{f.id, f.father, f.mother}
	for i := 0; i < domain.SonSlots; i++ {
		row = append(row, slotValue(f.sons, i))
	}
	for i := 0; i < domain.DaughterSlots; i++ {
		row = append(row, slotValue(f.daughters, i))
	}
	count := f.count
	if count == "" {
		count = "0"
	}
	return append(row, count)
}

func slotValue(values []string, i int) string {
	if i < len(values) {
		return values[i]
	}
	return ""
}

func masterRows(families ...family) [][]string {
	rows := make([][]string, len(families))
	for i, f := range families {
		rows[i] = f.row()
	}
	return rows
}

func masterCSV(families ...family) string {
	var b strings.Builder
	for _, row := range masterRows(families...) {
		b.WriteString(strings.Join(row, ","))
		b.WriteString("\n")
	}
	return b.String()
}

func masterTable(t *testing.T, families ...family) *domain.FamilyTable {
	t.Helper()
	table, err := ParseFamilyRecords(masterRows(families...), domain.MasterSchema, ParseOptions{
		Aliases: map[string]int{"136A": 205},
	})
	require.NoError(t, err)
	return table
}

func testLookups(t *testing.T) (*domain.CategoryLookup, *domain.CategoryLookup) {
	t.Helper()
	sons, err := domain.NewCategoryLookup(domain.SexSon, domain.DefaultSonCategories())
	require.NoError(t, err)
	daughters, err := domain.NewCategoryLookup(domain.SexDaughter, domain.DefaultDaughterCategories())
	require.NoError(t, err)
	return sons, daughters
}

// sampleFamilies is a small Galton-like table: identifiers follow
// descending father height and the anomalous family comes last.
func sampleFamilies() []family {
	return []family{
		{id: "1", father: "18.5", mother: "7.0", sons: []string{"13.2"}, daughters: []string{"9.2", "9.0", "9.0"}, count: "4"},
		{id: "2", father: "15.5", mother: "6.5", sons: []string{"13.5", "12.5"}, daughters: []string{"5.5", "5.5"}, count: "4"},
		{id: "3", father: "15.0", mother: "4.0", daughters: []string{"short"}, count: "2"},
		{id: "4", father: "15.0", mother: "4.0", sons: []string{"10.5", "medium"}, daughters: []string{"6.5"}, count: "5"},
		{id: "5", father: "12.0", mother: "5.0", sons: []string{"11.0", "tallish", "7.5"}, count: "3"},
		{id: "136A", father: "15.0", mother: "3.0", sons: []string{"9.5"}, daughters: []string{"tall", "very tall"}, count: "1"},
	}
}
