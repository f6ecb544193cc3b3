package boxdd

// table is a generational slot table. Slots are recycled through a free list;
// every invalidation bumps the slot's generation so handles minted before the
// recycle resolve to nothing instead of the new occupant.
type table[T any] struct {
	slots []slot[T]
	free  []uint32
	live  int
}

type slot[T any] struct {
	value      T
	generation uint32
	occupied   bool
}

// alloc stores v and returns the slot index and the generation stamped on it.
// Generations start at 1; generation 0 never resolves.
func (t *table[T]) alloc(v T) (index, generation uint32) {
	if n := len(t.free); n > 0 {
		index = t.free[n-1]
		t.free = t.free[:n-1]
		s := &t.slots[index]
		s.value = v
		s.occupied = true
		t.live++
		return index, s.generation
	}
	t.slots = append(t.slots, slot[T]{value: v, generation: 1, occupied: true})
	t.live++
	return uint32(len(t.slots) - 1), 1
}

// resolve returns the value at (index, generation), or false if the slot was
// invalidated or recycled since the handle was issued.
func (t *table[T]) resolve(index, generation uint32) (T, bool) {
	var zero T
	if int(index) >= len(t.slots) {
		return zero, false
	}
	s := &t.slots[index]
	if !s.occupied || s.generation != generation {
		return zero, false
	}
	return s.value, true
}

// invalidate frees the slot, bumping its generation. Returns the evicted
// value, or false if the handle was already stale.
func (t *table[T]) invalidate(index, generation uint32) (T, bool) {
	var zero T
	if int(index) >= len(t.slots) {
		return zero, false
	}
	s := &t.slots[index]
	if !s.occupied || s.generation != generation {
		return zero, false
	}
	out := s.value
	s.value = zero
	s.generation++
	s.occupied = false
	t.free = append(t.free, index)
	t.live--
	return out, true
}

// reset invalidates every live slot at once. Used on world teardown.
func (t *table[T]) reset() {
	var zero T
	for i := range t.slots {
		s := &t.slots[i]
		if s.occupied {
			s.value = zero
			s.generation++
			s.occupied = false
			t.free = append(t.free, uint32(i))
		}
	}
	t.live = 0
}

// each visits every live slot in index order.
func (t *table[T]) each(f func(v T)) {
	for i := range t.slots {
		if t.slots[i].occupied {
			f(t.slots[i].value)
		}
	}
}

func (t *table[T]) count() int { return t.live }
