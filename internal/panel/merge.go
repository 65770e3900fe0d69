package panel

import "sort"

// Direction moves a widget one slot toward the front (up) or back (down).
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// Upsert merges incoming widgets into the current board. Incoming widgets
// occupy the front of the result in their given order; current widgets whose
// id is not among the incoming set follow in their prior relative order.
// A widget sharing an id with an incoming one is replaced wholesale, with no
// field-level merging. An id repeated within the incoming batch collapses to
// its last payload, so the result never carries an id twice. Orders are
// reassigned contiguously afterward.
//
// An empty incoming set returns the current board unchanged, including Order
// values, so callers can feed every turn through here without reshuffles.
func Upsert(current, incoming []Widget) []Widget {
	if len(incoming) == 0 {
		return current
	}

	pos := make(map[string]int, len(incoming))
	next := make([]Widget, 0, len(current)+len(incoming))
	for _, w := range incoming {
		if i, ok := pos[w.ID]; ok {
			next[i] = w
			continue
		}
		pos[w.ID] = len(next)
		next = append(next, w)
	}
	for _, w := range current {
		if _, ok := pos[w.ID]; ok {
			continue
		}
		next = append(next, w)
	}
	return reassign(next)
}

// Remove filters the widget out and reassigns orders. Absent ids are a
// silent no-op.
func Remove(current []Widget, id string) []Widget {
	idx := indexOf(current, id)
	if idx < 0 {
		return current
	}
	next := make([]Widget, 0, len(current)-1)
	next = append(next, current[:idx]...)
	next = append(next, current[idx+1:]...)
	return reassign(next)
}

// Move swaps the target widget with its immediate neighbor. At either
// boundary, or for an absent id, the board is returned unchanged.
func Move(current []Widget, id string, dir Direction) []Widget {
	idx := indexOf(current, id)
	if idx < 0 {
		return current
	}
	swap := idx
	switch dir {
	case DirectionUp:
		swap = idx - 1
	case DirectionDown:
		swap = idx + 1
	default:
		return current
	}
	if swap < 0 || swap >= len(current) {
		return current
	}
	next := make([]Widget, len(current))
	copy(next, current)
	next[idx], next[swap] = next[swap], next[idx]
	return reassign(next)
}

// DisplaySort returns the board in render order: the pinned token-price
// widget first when present, then ascending Order, then Title on exact Order
// ties. Ties are only possible on boards built by hand before any merge has
// assigned orders.
func DisplaySort(widgets []Widget) []Widget {
	out := make([]Widget, len(widgets))
	copy(out, widgets)
	sort.SliceStable(out, func(i, j int) bool {
		if (out[i].ID == WidgetIDTokenPrice) != (out[j].ID == WidgetIDTokenPrice) {
			return out[i].ID == WidgetIDTokenPrice
		}
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].Title < out[j].Title
	})
	return out
}

func indexOf(widgets []Widget, id string) int {
	for i, w := range widgets {
		if w.ID == id {
			return i
		}
	}
	return -1
}

func reassign(widgets []Widget) []Widget {
	for i := range widgets {
		widgets[i].Order = i
	}
	return widgets
}
