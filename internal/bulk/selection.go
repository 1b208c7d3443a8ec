// Package bulk applies one action to many selected records and reports the
// outcome item by item.
package bulk

import "sync"

// Selection is a set of ids scoped to the records currently in view.
// Ids outside the view can never be selected, and narrowing the view drops
// them from the selection. It is safe for concurrent use.
type Selection[K comparable] struct {
	mu       sync.Mutex
	visible  []K
	inView   map[K]struct{}
	selected map[K]struct{}
}

// NewSelection creates an empty selection over the given visible ids
func NewSelection[K comparable](visible []K) *Selection[K] {
	s := &Selection[K]{selected: make(map[K]struct{})}
	s.setVisible(visible)
	return s
}

// SetVisible replaces the visible collection and intersects the selection with it
func (s *Selection[K]) SetVisible(ids []K) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.setVisible(ids)
	for id := range s.selected {
		if _, ok := s.inView[id]; !ok {
			delete(s.selected, id)
		}
	}
}

func (s *Selection[K]) setVisible(ids []K) {
	s.visible = make([]K, 0, len(ids))
	s.inView = make(map[K]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := s.inView[id]; dup {
			continue
		}
		s.inView[id] = struct{}{}
		s.visible = append(s.visible, id)
	}
}

// Toggle flips the selection of id and reports whether it is now selected.
// Ids that are not visible are ignored.
func (s *Selection[K]) Toggle(id K) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.inView[id]; !ok {
		return false
	}
	if _, ok := s.selected[id]; ok {
		delete(s.selected, id)
		return false
	}
	s.selected[id] = struct{}{}
	return true
}

// Select adds the visible ids among ids to the selection
func (s *Selection[K]) Select(ids ...K) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		if _, ok := s.inView[id]; ok {
			s.selected[id] = struct{}{}
		}
	}
}

// ToggleAll clears the selection when every visible id is selected,
// otherwise it selects every visible id. Hidden records are never touched.
func (s *Selection[K]) ToggleAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.allSelected() {
		s.selected = make(map[K]struct{})
		return
	}
	for _, id := range s.visible {
		s.selected[id] = struct{}{}
	}
}

// Clear empties the selection
func (s *Selection[K]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.selected = make(map[K]struct{})
}

// Remove deselects ids
func (s *Selection[K]) Remove(ids ...K) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		delete(s.selected, id)
	}
}

// SelectedIDs returns the selected ids in visible order
func (s *Selection[K]) SelectedIDs() []K {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]K, 0, len(s.selected))
	for _, id := range s.visible {
		if _, ok := s.selected[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// Contains reports whether id is selected
func (s *Selection[K]) Contains(id K) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.selected[id]
	return ok
}

// Count returns the number of selected ids
func (s *Selection[K]) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.selected)
}

// IsAllSelected reports whether every visible id is selected and at least one is visible
func (s *Selection[K]) IsAllSelected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.allSelected()
}

// IsIndeterminate reports whether some but not all visible ids are selected
func (s *Selection[K]) IsIndeterminate() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.selected) > 0 && len(s.selected) < len(s.visible)
}

func (s *Selection[K]) allSelected() bool {
	return len(s.visible) > 0 && len(s.selected) == len(s.visible)
}
