package domain

import "fmt"

const (
	// SonSlots is the number of son columns in the transcription
	SonSlots = 10
	// DaughterSlots is the number of daughter columns in the transcription
	DaughterSlots = 9
)

// ColumnKind identifies what a column holds
type ColumnKind string

const (
	ColumnFamilyID   ColumnKind = "family_id"
	ColumnFather     ColumnKind = "father_height"
	ColumnMother     ColumnKind = "mother_height"
	ColumnSon        ColumnKind = "son_height"
	ColumnDaughter   ColumnKind = "daughter_height"
	ColumnChildCount ColumnKind = "child_count"
)

// Column is one named, typed column. Slot is the 1-based child slot for
// son and daughter columns and zero otherwise.
type Column struct {
	Name string
	Kind ColumnKind
	Slot int
}

// Schema is an ordered list of columns
type Schema struct {
	Name    string
	Columns []Column
}

// Width returns the number of columns
func (s Schema) Width() int { return len(s.Columns) }

// Names returns the column names in order
func (s Schema) Names() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// Has reports whether the schema carries a column of the given kind
func (s Schema) Has(kind ColumnKind) bool {
	for _, c := range s.Columns {
		if c.Kind == kind {
			return true
		}
	}
	return false
}

var (
	parentColumns = []Column{
		{Name: "family_id", Kind: ColumnFamilyID},
		{Name: "father_height", Kind: ColumnFather},
		{Name: "mother_height", Kind: ColumnMother},
	}
	sonColumns      = slotColumns(ColumnSon, SonSlots)
	daughterColumns = slotColumns(ColumnDaughter, DaughterSlots)
	countColumn     = Column{Name: "child_count", Kind: ColumnChildCount}
)

// MasterSchema is the transcription layout: identifier, parents, ten son
// slots, nine daughter slots and the number of children.
var MasterSchema = Schema{
	Name:    "master",
	Columns: concatColumns(parentColumns, sonColumns, daughterColumns, []Column{countColumn}),
}

// ImputedSchema is the layout of the imputed tables: the master layout
// without the child count.
var ImputedSchema = Schema{
	Name:    "imputed",
	Columns: concatColumns(parentColumns, sonColumns, daughterColumns),
}

// ParentsSchema projects the identifier and both parents
var ParentsSchema = Schema{Name: "parents", Columns: concatColumns(parentColumns)}

// SonsSchema projects the son slots
var SonsSchema = Schema{Name: "sons", Columns: concatColumns(sonColumns)}

// DaughtersSchema projects the daughter slots
var DaughtersSchema = Schema{Name: "daughters", Columns: concatColumns(daughterColumns)}

func slotColumns(kind ColumnKind, n int) []Column {
	cols := make([]Column, n)
	for i := range cols {
		cols[i] = Column{Name: fmt.Sprintf("%s_%d", kind, i+1), Kind: kind, Slot: i + 1}
	}
	return cols
}

func concatColumns(groups ...[]Column) []Column {
	var out []Column
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}
