package dataprocessing

import (
	"fmt"
	"sort"

	apperrors "github.com/galtons-data/family-heights/internal/errors"
	"github.com/galtons-data/family-heights/pkg/contracts/domain"
)

// Ordering is the direction in which family identifiers follow father height
type Ordering string

const (
	OrderingAscending  Ordering = "ascending"
	OrderingDescending Ordering = "descending"
)

// ReindexOptions names the family to move and where it goes.
// A zero Target is resolved from father-height ordering.
type ReindexOptions struct {
	Anomalous int
	Target    int
}

// ReindexResult is the renumbered table plus the identifiers that changed
type ReindexResult struct {
	Table  *domain.FamilyTable
	Target int

	// Ordering is the father-height direction a resolved target was based
	// on; empty when the target was given. OrderingDetected is false when
	// the direction could not be told from the table and was assumed.
	Ordering         Ordering
	OrderingDetected bool

	// Mapping holds old -> new for every changed identifier; identifiers
	// missing from it are fixed points.
	Mapping map[int]int
}

// Reindex moves the anomalous family to the target identifier and shifts the
// families in between by one step to close the gap. Only identifiers change;
// rows keep their order and payload.
func Reindex(table *domain.FamilyTable, opts ReindexOptions) (*ReindexResult, error) {
	if table == nil {
		return nil, apperrors.NewAppValidationError("reindexing needs a family table")
	}
	if err := checkUniqueIDs(table.Records); err != nil {
		return nil, err
	}
	if indexOf(table.Records, opts.Anomalous) < 0 {
		return nil, apperrors.NewMissingIdentifierError(opts.Anomalous)
	}

	target := opts.Target
	var (
		order    Ordering
		detected bool
	)
	if target == 0 {
		resolved, err := ResolveReindexTarget(table, opts.Anomalous)
		if err != nil {
			return nil, err
		}
		target = resolved
		order, detected = DetectOrdering(table.Records, opts.Anomalous)
	}
	if maxID := maxFamilyID(table.Records); target < 1 || target > maxID {
		return nil, apperrors.NewSchemaError(fmt.Sprintf("reindex target must be within 1..%d", maxID)).
			WithContext("family_id", opts.Anomalous).
			WithContext("target", target)
	}

	mapping := make(map[int]int)
	records := make([]domain.FamilyRecord, len(table.Records))
	for i, rec := range table.Records {
		newID := shiftID(rec.FamilyID, opts.Anomalous, target)
		if newID != rec.FamilyID {
			mapping[rec.FamilyID] = newID
		}
		rec.FamilyID = newID
		records[i] = rec
	}

	if err := checkUniqueIDs(records); err != nil {
		return nil, err
	}

	return &ReindexResult{
		Table:            &domain.FamilyTable{Schema: table.Schema, Records: records},
		Target:           target,
		Mapping:          mapping,
		Ordering:         order,
		OrderingDetected: detected,
	}, nil
}

// shiftID applies the reindex permutation to one identifier
func shiftID(id, anomalous, target int) int {
	switch {
	case id == anomalous:
		return target
	case target < anomalous && id >= target && id < anomalous:
		return id + 1
	case target > anomalous && id > anomalous && id <= target:
		return id - 1
	default:
		return id
	}
}

// DetectOrdering reports whether identifiers follow ascending or descending
// father height, comparing the lowest and highest identifier outside skip.
// When those fathers are equal, or fewer than two families remain, it
// returns descending and false.
func DetectOrdering(records []domain.FamilyRecord, skip int) (Ordering, bool) {
	var lo, hi *domain.FamilyRecord
	for i := range records {
		r := &records[i]
		if r.FamilyID == skip {
			continue
		}
		if lo == nil || r.FamilyID < lo.FamilyID {
			lo = r
		}
		if hi == nil || r.FamilyID > hi.FamilyID {
			hi = r
		}
	}
	switch {
	case lo == nil || lo == hi || lo.Father.Value == hi.Father.Value:
		return OrderingDescending, false
	case lo.Father.Value > hi.Father.Value:
		return OrderingDescending, true
	default:
		return OrderingAscending, true
	}
}

// ResolveReindexTarget finds the identifier that slots the anomalous family
// into father-height order. Families with a taller father (shorter, for an
// ascending table) stay ahead of it, as do equal fathers listed earlier in
// the input.
func ResolveReindexTarget(table *domain.FamilyTable, anomalous int) (int, error) {
	idx := indexOf(table.Records, anomalous)
	if idx < 0 {
		return 0, apperrors.NewMissingIdentifierError(anomalous)
	}
	moving := table.Records[idx]
	order, _ := DetectOrdering(table.Records, anomalous)

	ids := make([]int, 0, len(table.Records))
	ahead := 0
	for i, rec := range table.Records {
		ids = append(ids, rec.FamilyID)
		if i == idx {
			continue
		}

		f, a := rec.Father.Value, moving.Father.Value
		before := f > a
		if order == OrderingAscending {
			before = f < a
		}
		if before || (f == a && i < idx) {
			ahead++
		}
	}

	// the family takes the identifier at its rank among all identifiers
	sort.Ints(ids)
	return ids[ahead], nil
}

func indexOf(records []domain.FamilyRecord, id int) int {
	for i, rec := range records {
		if rec.FamilyID == id {
			return i
		}
	}
	return -1
}

func maxFamilyID(records []domain.FamilyRecord) int {
	maxID := 0
	for _, rec := range records {
		if rec.FamilyID > maxID {
			maxID = rec.FamilyID
		}
	}
	return maxID
}

func checkUniqueIDs(records []domain.FamilyRecord) error {
	seen := make(map[int]int, len(records))
	for i, rec := range records {
		if first, dup := seen[rec.FamilyID]; dup {
			return apperrors.NewIdentifierCollisionError(rec.FamilyID,
				fmt.Sprintf("family identifier appears on rows %d and %d", first+1, i+1))
		}
		seen[rec.FamilyID] = i
	}
	return nil
}
