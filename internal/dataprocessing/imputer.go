package dataprocessing

import (
	"fmt"

	apperrors "github.com/galtons-data/family-heights/internal/errors"
	"github.com/galtons-data/family-heights/pkg/contracts/domain"
)

// Substitution counts how often one label was replaced
type Substitution struct {
	Sex   domain.Sex
	Label string
	Value float64
	Count int
}

// ImputeResult holds the four imputation outputs. All tables share the same
// records in input order; they differ only in the projected columns.
type ImputeResult struct {
	Parents   *domain.FamilyTable
	Sons      *domain.FamilyTable
	Daughters *domain.FamilyTable
	Final     *domain.FamilyTable

	// Substitutions lists every label that was replaced, sons first, in
	// lookup order
	Substitutions []Substitution

	// CountMismatches holds the families whose child count is lower than
	// the number of recorded children
	CountMismatches []int
}

// Impute replaces every categorical son and daughter height with its lookup
// value. Numeric and absent cells pass through untouched. Parent, identifier
// and count columns are never substituted.
func Impute(table *domain.FamilyTable, sons, daughters *domain.CategoryLookup) (*ImputeResult, error) {
	if table == nil {
		return nil, apperrors.NewAppValidationError("imputation needs a family table")
	}
	if sons == nil || daughters == nil {
		return nil, apperrors.NewAppValidationError("imputation needs son and daughter lookups")
	}

	counts := map[domain.Sex]map[string]int{
		domain.SexSon:      {},
		domain.SexDaughter: {},
	}
	records := make([]domain.FamilyRecord, len(table.Records))
	var mismatches []int

	for i, rec := range table.Records {
		if err := checkParents(rec); err != nil {
			return nil, err
		}

		out := rec
		if err := imputeSlots(out.Sons[:], rec.FamilyID, domain.SexSon, sons, counts[domain.SexSon]); err != nil {
			return nil, err
		}
		if err := imputeSlots(out.Daughters[:], rec.FamilyID, domain.SexDaughter, daughters, counts[domain.SexDaughter]); err != nil {
			return nil, err
		}

		if table.Schema.Has(domain.ColumnChildCount) && rec.ChildCount < rec.SonCount()+rec.DaughterCount() {
			mismatches = append(mismatches, rec.FamilyID)
		}
		records[i] = out
	}

	final := &domain.FamilyTable{Schema: domain.ImputedSchema, Records: records}
	return &ImputeResult{
		Parents:         final.Project(domain.ParentsSchema),
		Sons:            final.Project(domain.SonsSchema),
		Daughters:       final.Project(domain.DaughtersSchema),
		Final:           final,
		Substitutions:   substitutions(counts, sons, daughters),
		CountMismatches: mismatches,
	}, nil
}

// imputeSlots rewrites slots in place; slots is a copy owned by the caller
func imputeSlots(slots []domain.Height, familyID int, sex domain.Sex, lookup *domain.CategoryLookup, counts map[string]int) error {
	for i, h := range slots {
		if !h.IsLabel() {
			continue
		}
		v, ok := lookup.Lookup(h.Label)
		if !ok {
			return apperrors.NewUnmappedCategoryError(h.Label, fmt.Sprintf("%s_height_%d", sex, i+1), familyID)
		}
		slots[i] = domain.NumericHeight(v)
		counts[h.Label]++
	}
	return nil
}

func checkParents(rec domain.FamilyRecord) error {
	for _, p := range []struct {
		column string
		h      domain.Height
	}{
		{"father_height", rec.Father},
		{"mother_height", rec.Mother},
	} {
		if !p.h.IsNumeric() {
			return apperrors.NewSchemaError(fmt.Sprintf("parent height must be numeric, got %s", p.h.Kind)).
				WithContext("column", p.column).
				WithContext("family_id", rec.FamilyID).
				WithContext("value", p.h.String())
		}
	}
	return nil
}

func substitutions(counts map[domain.Sex]map[string]int, lookups ...*domain.CategoryLookup) []Substitution {
	var out []Substitution
	for _, l := range lookups {
		for _, c := range l.Categories() {
			n := counts[l.Sex()][c.Label]
			if n == 0 {
				continue
			}
			out = append(out, Substitution{Sex: l.Sex(), Label: c.Label, Value: c.Value, Count: n})
		}
	}
	return out
}
