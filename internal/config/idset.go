package config

import "slices"

// IDSet is a read-only set of Telegram ids (chats or users). The zero value
// is an empty set.
type IDSet struct {
	ids map[int64]struct{}
}

// NewIDSet builds a set from ids; duplicates collapse.
func NewIDSet(ids ...int64) IDSet {
	m := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return IDSet{ids: m}
}

// Has reports whether id is in the set.
func (s IDSet) Has(id int64) bool {
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of distinct ids.
func (s IDSet) Len() int { return len(s.ids) }

// Slice returns the ids in ascending order. The result is a fresh copy.
func (s IDSet) Slice() []int64 {
	out := make([]int64, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}
