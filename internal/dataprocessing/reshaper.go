package dataprocessing

import (
	"fmt"

	apperrors "github.com/galtons-data/family-heights/internal/errors"
	"github.com/galtons-data/family-heights/pkg/contracts/domain"
)

// ReshapeResult holds the long-format child tables
type ReshapeResult struct {
	ParentsSons      []domain.ChildRecord
	ParentsDaughters []domain.ChildRecord
}

// Reshape un-pivots the child slots into one row per recorded child.
// Rows are grouped by slot, then by input row order. Absent slots produce
// no row; a slot still holding a label is an unmapped category.
func Reshape(table *domain.FamilyTable) (*ReshapeResult, error) {
	if table == nil {
		return nil, apperrors.NewAppValidationError("reshaping needs a family table")
	}

	sons, err := unpivot(table.Records, domain.SexSon, domain.SonSlots)
	if err != nil {
		return nil, err
	}
	daughters, err := unpivot(table.Records, domain.SexDaughter, domain.DaughterSlots)
	if err != nil {
		return nil, err
	}

	return &ReshapeResult{ParentsSons: sons, ParentsDaughters: daughters}, nil
}

func unpivot(records []domain.FamilyRecord, sex domain.Sex, slots int) ([]domain.ChildRecord, error) {
	var out []domain.ChildRecord
	for slot := 0; slot < slots; slot++ {
		for _, rec := range records {
			h := rec.Children(sex)[slot]
			if h.IsAbsent() {
				continue
			}
			if h.IsLabel() {
				return nil, apperrors.NewUnmappedCategoryError(h.Label, fmt.Sprintf("%s_height_%d", sex, slot+1), rec.FamilyID)
			}
			out = append(out, domain.ChildRecord{
				FamilyID: rec.FamilyID,
				Father:   rec.Father,
				Mother:   rec.Mother,
				Height:   h,
				Sex:      sex,
				Slot:     slot + 1,
			})
		}
	}
	return out, nil
}

// ChildRows renders child records as CSV rows
func ChildRows(children []domain.ChildRecord) [][]string {
	rows := make([][]string, len(children))
	for i, c := range children {
		rows[i] = c.Row()
	}
	return rows
}
