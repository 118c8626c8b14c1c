package shape

import (
	"realtime-editor/internal/model"
)

// Plan is the outcome of reconciling a page against an incoming shape list.
//
// Result holds pointers into Updates and Creates in incoming-list order, so
// ids assigned while saving Creates show up in Result.
type Plan struct {
	Updates []*model.Shape
	Creates []*model.Shape
	Deletes []int64
	Result  []*model.Shape
}

// Reconcile computes the upsert-and-prune plan for one page.
//
// Records whose id matches an existing shape replace that shape's columns and
// attribute map. Records without a matching id become new shapes. Existing
// shapes not matched by any record are deleted. If the same id appears twice,
// the later record wins and the shape appears once in Result.
func Reconcile(pageID string, existing []model.Shape, incoming []Record) Plan {
	byID := make(map[int64]*model.Shape, len(existing))
	for i := range existing {
		byID[existing[i].ID] = &existing[i]
	}

	var plan Plan
	matched := make(map[int64]bool, len(incoming))
	for _, rec := range incoming {
		if rec.HasID {
			if s, ok := byID[rec.ID]; ok {
				rec.Apply(s)
				if !matched[rec.ID] {
					matched[rec.ID] = true
					plan.Updates = append(plan.Updates, s)
					plan.Result = append(plan.Result, s)
				}
				continue
			}
		}
		s := rec.New(pageID)
		plan.Creates = append(plan.Creates, &s)
		plan.Result = append(plan.Result, &s)
	}

	for i := range existing {
		if !matched[existing[i].ID] {
			plan.Deletes = append(plan.Deletes, existing[i].ID)
		}
	}
	return plan
}
