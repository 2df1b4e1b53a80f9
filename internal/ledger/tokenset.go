package ledger

// tokenSet is an order-irrelevant collection of token ids with O(1)
// membership and O(1) removal. Removal swaps the victim with the last element
// and truncates, so enumeration order changes after removals.
type tokenSet struct {
	ids   []uint64
	index map[uint64]int
}

func newTokenSet() *tokenSet {
	return &tokenSet{index: make(map[uint64]int)}
}

func (s *tokenSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.ids)
}

func (s *tokenSet) Contains(id uint64) bool {
	if s == nil {
		return false
	}
	_, ok := s.index[id]
	return ok
}

// IDs returns a copy of the set's contents in its current internal order.
func (s *tokenSet) IDs() []uint64 {
	if s == nil {
		return nil
	}
	out := make([]uint64, len(s.ids))
	copy(out, s.ids)
	return out
}

func (s *tokenSet) Add(id uint64) bool {
	if _, ok := s.index[id]; ok {
		return false
	}
	s.index[id] = len(s.ids)
	s.ids = append(s.ids, id)
	return true
}

func (s *tokenSet) Remove(id uint64) bool {
	pos, ok := s.index[id]
	if !ok {
		return false
	}
	last := len(s.ids) - 1
	if pos != last {
		moved := s.ids[last]
		s.ids[pos] = moved
		s.index[moved] = pos
	}
	s.ids = s.ids[:last]
	delete(s.index, id)
	return true
}
