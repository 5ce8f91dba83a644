package languages

import orderedmap "github.com/wk8/go-ordered-map/v2"

// OrderedSet is a set of languages that remembers first-insertion order.
type OrderedSet struct {
	entries *orderedmap.OrderedMap[Language, struct{}]
}

// NewOrderedSet creates an empty set.
func NewOrderedSet() *OrderedSet {
	return &OrderedSet{entries: orderedmap.New[Language, struct{}]()}
}

// Add inserts lang and reports whether it was new. Re-adding keeps the
// original position.
func (s *OrderedSet) Add(lang Language) bool {
	if _, ok := s.entries.Get(lang); ok {
		return false
	}

	s.entries.Set(lang, struct{}{})

	return true
}

// Contains reports membership.
func (s *OrderedSet) Contains(lang Language) bool {
	_, ok := s.entries.Get(lang)

	return ok
}

// Len returns the number of members.
func (s *OrderedSet) Len() int {
	return s.entries.Len()
}

// Values returns the members in insertion order.
func (s *OrderedSet) Values() []Language {
	values := make([]Language, 0, s.entries.Len())
	for pair := s.entries.Oldest(); pair != nil; pair = pair.Next() {
		values = append(values, pair.Key)
	}

	return values
}
