package domain

// Positioned is a desired item together with its position in the payload.
type Positioned[T any] struct {
	Index int
	Item  T
}

// SetPlan is the diff between a stored id set and a desired list.
type SetPlan[T any] struct {
	Delete  []int64
	Update  []Positioned[T]
	Create  []Positioned[T]
	Unknown []Positioned[T] // ids that are not part of the stored set, or repeated
}

// Reconcile diffs desired items against the current ids. Items whose id is 0 are new;
// stored ids missing from desired are deleted. Positions drive the final order.
func Reconcile[T any](current []int64, desired []T, idOf func(T) int64) SetPlan[T] {
	stored := make(map[int64]bool, len(current))
	for _, id := range current {
		stored[id] = true
	}

	var plan SetPlan[T]
	kept := make(map[int64]bool, len(desired))
	for i, item := range desired {
		id := idOf(item)
		switch {
		case id == 0:
			plan.Create = append(plan.Create, Positioned[T]{Index: i, Item: item})
		case stored[id] && !kept[id]:
			kept[id] = true
			plan.Update = append(plan.Update, Positioned[T]{Index: i, Item: item})
		default:
			plan.Unknown = append(plan.Unknown, Positioned[T]{Index: i, Item: item})
		}
	}
	for _, id := range current {
		if !kept[id] {
			plan.Delete = append(plan.Delete, id)
		}
	}
	return plan
}
