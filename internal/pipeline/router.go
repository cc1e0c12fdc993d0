package pipeline

import (
	"github.com/sells-group/risk-cli/internal/model"
)

// autoThreshold is how much larger one tally must be for auto mode to pick a
// single-path strategy instead of hybrid.
const autoThreshold = 1.5

// Routing partitions classified items into work groups. Groups holds item
// indexes; every index appears in exactly one group.
type Routing struct {
	Requested   model.Strategy
	Resolved    model.Strategy
	TaxIDCount  int
	NameCount   int
	Assignments []model.Group
	Groups      map[model.Group][]int
}

// Distribution returns the size of each non-empty group.
func (r Routing) Distribution() map[model.Group]int {
	out := make(map[model.Group]int, len(r.Groups))
	for g, idx := range r.Groups {
		if len(idx) > 0 {
			out[g] = len(idx)
		}
	}
	return out
}

// ResolveStrategy turns auto into a concrete strategy by comparing how many
// items carry a tax ID against how many carry a name. Mixed items count
// toward both tallies. Explicit strategies are returned unchanged.
func ResolveStrategy(items []model.DataItem, requested model.Strategy) (model.Strategy, int, int) {
	var taxIDs, names int
	for _, it := range items {
		switch it.DataType {
		case model.DataTypeTaxID:
			taxIDs++
		case model.DataTypeCompanyName:
			names++
		case model.DataTypeMixed:
			taxIDs++
			names++
		}
	}

	if requested != model.StrategyAuto && requested != "" {
		return requested, taxIDs, names
	}

	switch {
	case float64(taxIDs) > float64(names)*autoThreshold:
		return model.StrategyTaxIDOnly, taxIDs, names
	case float64(names) > float64(taxIDs)*autoThreshold:
		return model.StrategyNameOnly, taxIDs, names
	default:
		return model.StrategyHybrid, taxIDs, names
	}
}

// Route resolves the strategy and buckets every item. Pure: no I/O, and the
// same input always yields the same routing.
func Route(items []model.DataItem, requested model.Strategy) Routing {
	resolved, taxIDs, names := ResolveStrategy(items, requested)

	r := Routing{
		Requested:   requested,
		Resolved:    resolved,
		TaxIDCount:  taxIDs,
		NameCount:   names,
		Assignments: make([]model.Group, len(items)),
		Groups:      make(map[model.Group][]int, len(model.Groups)),
	}
	for i, it := range items {
		g := assign(it, resolved)
		r.Assignments[i] = g
		r.Groups[g] = append(r.Groups[g], i)
	}
	return r
}

func assign(it model.DataItem, strategy model.Strategy) model.Group {
	switch strategy {
	case model.StrategyTaxIDOnly:
		if it.HasTaxID() {
			return model.GroupEnrichment
		}
	case model.StrategyNameOnly:
		if it.HasName() {
			return model.GroupNameSearch
		}
	case model.StrategyHybrid:
		switch {
		case it.DataType == model.DataTypeMixed:
			return model.GroupHybrid
		case it.HasTaxID():
			return model.GroupEnrichment
		case it.HasName():
			return model.GroupNameSearch
		}
	}
	return model.GroupUnprocessable
}
