package store

// ChangeKind says what part of the store changed.
type ChangeKind int

const (
	ChangeItems ChangeKind = iota
	ChangeMeta
	ChangeSelection
	ChangeFilter
	ChangePrefs
	// ChangeReset means the whole collection was replaced.
	ChangeReset
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeItems:
		return "items"
	case ChangeMeta:
		return "meta"
	case ChangeSelection:
		return "selection"
	case ChangeFilter:
		return "filter"
	case ChangePrefs:
		return "prefs"
	case ChangeReset:
		return "reset"
	default:
		return "unknown"
	}
}

// Change is delivered to subscribers after a mutation. IDs lists the items
// involved when the change concerns specific items.
type Change struct {
	Kind ChangeKind
	IDs  []string
}

// Subscribe registers fn to run after every change, on the goroutine that
// made it. The returned function unsubscribes.
func (s *Store) Subscribe(fn func(Change)) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()
	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) notify(c Change) {
	s.subMu.Lock()
	fns := make([]func(Change), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn(c)
	}
}
