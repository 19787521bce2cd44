package domain

import "strconv"

// Sex distinguishes the two child groups
type Sex string

const (
	SexSon      Sex = "son"
	SexDaughter Sex = "daughter"
)

// FamilyRecord is one row of a family table
type FamilyRecord struct {
	FamilyID   int
	Father     Height
	Mother     Height
	Sons       [SonSlots]Height
	Daughters  [DaughterSlots]Height
	ChildCount int

	// Line is the 1-based source line, zero for records built in memory
	Line int
}

// SonCount returns the number of non-absent son slots
func (r FamilyRecord) SonCount() int {
	n := 0
	for _, h := range r.Sons {
		if !h.IsAbsent() {
			n++
		}
	}
	return n
}

// DaughterCount returns the number of non-absent daughter slots
func (r FamilyRecord) DaughterCount() int {
	n := 0
	for _, h := range r.Daughters {
		if !h.IsAbsent() {
			n++
		}
	}
	return n
}

// Children returns the slots of one sex
func (r FamilyRecord) Children(sex Sex) []Height {
	if sex == SexSon {
		return r.Sons[:]
	}
	return r.Daughters[:]
}

// Cell renders the value of a column for this record
func (r FamilyRecord) Cell(col Column) string {
	switch col.Kind {
	case ColumnFamilyID:
		return strconv.Itoa(r.FamilyID)
	case ColumnFather:
		return r.Father.String()
	case ColumnMother:
		return r.Mother.String()
	case ColumnSon:
		return r.Sons[col.Slot-1].String()
	case ColumnDaughter:
		return r.Daughters[col.Slot-1].String()
	case ColumnChildCount:
		return strconv.Itoa(r.ChildCount)
	}
	return ""
}

// FamilyTable is an ordered set of family records under one schema
type FamilyTable struct {
	Schema  Schema
	Records []FamilyRecord
}

// Rows renders the table as CSV records in schema column order
func (t *FamilyTable) Rows() [][]string {
	rows := make([][]string, len(t.Records))
	for i, rec := range t.Records {
		row := make([]string, len(t.Schema.Columns))
		for j, col := range t.Schema.Columns {
			row[j] = rec.Cell(col)
		}
		rows[i] = row
	}
	return rows
}

// Project returns a view of the same records under another schema
func (t *FamilyTable) Project(schema Schema) *FamilyTable {
	return &FamilyTable{Schema: schema, Records: t.Records}
}

// ChildRecord is one child with the heights of both parents
type ChildRecord struct {
	FamilyID int
	Father   Height
	Mother   Height
	Height   Height
	Sex      Sex
	Slot     int
}

// Row renders the child as a CSV record: family_id, father, mother, child
func (c ChildRecord) Row() []string {
	return []string{strconv.Itoa(c.FamilyID), c.Father.String(), c.Mother.String(), c.Height.String()}
}
