package dataprocessing

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "github.com/galtons-data/family-heights/internal/errors"
	"github.com/galtons-data/family-heights/pkg/contracts/domain"
)

// ParseOptions controls how raw family rows are interpreted
type ParseOptions struct {
	// Aliases maps non-numeric family identifiers to numeric ones ("136A" -> 205)
	Aliases map[string]int
}

// ReadFamilyTable reads a headerless family table from a CSV file or, for
// .xlsx paths, from the first sheet of a workbook.
func ReadFamilyTable(path string, schema domain.Schema, opts ParseOptions) (*domain.FamilyTable, error) {
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		rows, err = readWorkbookRows(path, schema.Width())
	default:
		rows, err = readCSVRows(path)
	}
	if err != nil {
		return nil, err
	}
	return ParseFamilyRecords(rows, schema, opts)
}

func readCSVRows(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to open table", err).WithContext("path", path)
	}
	defer f.Close()

	rows, err := ReadCSVRows(f)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to read table", err).WithContext("path", path)
	}
	return rows, nil
}

// ReadCSVRows reads every record of r. Records may have any width; the
// schema check happens in ParseFamilyRecords so it can name the line.
func ReadCSVRows(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	return reader.ReadAll()
}

// readWorkbookRows reads the first sheet. excelize drops trailing empty
// cells, so short rows are padded up to width.
func readWorkbookRows(path string, width int) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to open workbook", err).WithContext("path", path)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperrors.NewSchemaError("workbook has no sheets").WithContext("path", path)
	}

	raw, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, apperrors.NewStorageError("failed to read sheet", err).
			WithContext("path", path).
			WithContext("sheet", sheets[0])
	}

	rows := make([][]string, 0, len(raw))
	for _, row := range raw {
		if isBlankRow(row) {
			continue
		}
		for len(row) < width {
			row = append(row, "")
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// ParseFamilyRecords converts raw rows into a family table under schema.
// A leading row equal to the schema column names is treated as a header and
// skipped. Any width mismatch or malformed identifier is a schema error.
func ParseFamilyRecords(rows [][]string, schema domain.Schema, opts ParseOptions) (*domain.FamilyTable, error) {
	table := &domain.FamilyTable{Schema: schema, Records: make([]domain.FamilyRecord, 0, len(rows))}

	for i, row := range rows {
		line := i + 1
		if i == 0 && isHeaderRow(row, schema) {
			continue
		}
		if len(row) != schema.Width() {
			return nil, apperrors.NewSchemaError(
				fmt.Sprintf("row has %d columns, want %d for the %s table", len(row), schema.Width(), schema.Name)).
				WithContext("line", line)
		}

		rec := domain.FamilyRecord{Line: line}
		for j, col := range schema.Columns {
			if err := setCell(&rec, col, row[j], opts); err != nil {
				return nil, err
			}
		}
		table.Records = append(table.Records, rec)
	}

	return table, nil
}

func isHeaderRow(row []string, schema domain.Schema) bool {
	if len(row) != schema.Width() {
		return false
	}
	for i, name := range schema.Names() {
		if strings.TrimSpace(row[i]) != name {
			return false
		}
	}
	return true
}

func setCell(rec *domain.FamilyRecord, col domain.Column, raw string, opts ParseOptions) error {
	switch col.Kind {
	case domain.ColumnFamilyID:
		id, err := parseFamilyID(raw, opts.Aliases)
		if err != nil {
			return apperrors.NewSchemaError(err.Error()).
				WithContext("column", col.Name).
				WithContext("line", rec.Line).
				WithContext("value", raw)
		}
		rec.FamilyID = id
	case domain.ColumnFather, domain.ColumnMother:
		h := domain.ParseHeight(raw)
		if !h.IsNumeric() {
			return apperrors.NewSchemaError(fmt.Sprintf("parent height must be numeric, got %s", h.Kind)).
				WithContext("column", col.Name).
				WithContext("line", rec.Line).
				WithContext("value", raw)
		}
		if col.Kind == domain.ColumnFather {
			rec.Father = h
		} else {
			rec.Mother = h
		}
	case domain.ColumnSon:
		rec.Sons[col.Slot-1] = domain.ParseHeight(raw)
	case domain.ColumnDaughter:
		rec.Daughters[col.Slot-1] = domain.ParseHeight(raw)
	case domain.ColumnChildCount:
		n, err := parseWholeNumber(raw)
		if err != nil || n < 0 {
			return apperrors.NewSchemaError("child count must be a non-negative integer").
				WithContext("column", col.Name).
				WithContext("line", rec.Line).
				WithContext("value", raw)
		}
		rec.ChildCount = n
	}
	return nil
}

// parseFamilyID accepts integers, integral floats ("12.0") and configured aliases
func parseFamilyID(raw string, aliases map[string]int) (int, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, fmt.Errorf("family identifier is empty")
	}
	if id, ok := aliases[s]; ok {
		return id, nil
	}
	id, err := parseWholeNumber(s)
	if err != nil {
		return 0, fmt.Errorf("family identifier is not an integer")
	}
	if id <= 0 {
		return 0, fmt.Errorf("family identifier must be positive")
	}
	return id, nil
}

func parseWholeNumber(raw string) (int, error) {
	s := strings.TrimSpace(raw)
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, fmt.Errorf("%q is not a whole number", raw)
	}
	return int(f), nil
}
