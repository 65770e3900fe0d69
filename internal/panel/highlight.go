package panel

import "sort"

// Tracker marks which widgets the latest agent turn touched, for UI
// emphasis. It keeps no timer; callers decide when a turn's highlight is
// superseded, typically on the next successful turn or when the user opens
// a panel directly. Never persisted.
type Tracker struct {
	ids map[string]struct{}
}

func NewTracker() *Tracker {
	return &Tracker{ids: make(map[string]struct{})}
}

// Set replaces the highlight set. Earlier turns never accumulate.
func (t *Tracker) Set(ids []string) {
	next := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		next[id] = struct{}{}
	}
	t.ids = next
}

func (t *Tracker) Clear() {
	t.ids = make(map[string]struct{})
}

func (t *Tracker) Has(id string) bool {
	_, ok := t.ids[id]
	return ok
}

func (t *Tracker) IDs() []string {
	out := make([]string, 0, len(t.ids))
	for id := range t.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
