package vm

// DefaultStackDepth is the number of simultaneously open loops a machine
// tracks when no depth is configured.
const DefaultStackDepth = 32

// LoopStack records the source positions of loop entries whose closing
// bracket has not been reached yet. Only the top is ever inspected.
type LoopStack struct {
	entries []int
}

// NewLoopStack returns an empty stack holding at most capacity entries.
func NewLoopStack(capacity int) *LoopStack {
	if capacity <= 0 {
		capacity = DefaultStackDepth
	}
	return &LoopStack{entries: make([]int, 0, capacity)}
}

// Push saves pos. It fails with LoopStackOverflow instead of growing.
func (s *LoopStack) Push(pos int) error {
	if len(s.entries) == cap(s.entries) {
		return LoopStackOverflow
	}
	s.entries = append(s.entries, pos)
	return nil
}

// Top returns the most recently pushed position.
func (s *LoopStack) Top() (int, bool) {
	if len(s.entries) == 0 {
		return 0, false
	}
	return s.entries[len(s.entries)-1], true
}

// Pop discards the top entry.
func (s *LoopStack) Pop() (int, bool) {
	pos, ok := s.Top()
	if ok {
		s.entries = s.entries[:len(s.entries)-1]
	}
	return pos, ok
}

// Depth returns the number of open loops.
func (s *LoopStack) Depth() int { return len(s.entries) }

// Cap returns the maximum depth.
func (s *LoopStack) Cap() int { return cap(s.entries) }
