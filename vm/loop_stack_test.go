package vm

import "testing"

func TestLoopStackLIFO(t *testing.T) {
	s := NewLoopStack(3)
	for _, pos := range []int{4, 9, 12} {
		if err := s.Push(pos); err != nil {
			t.Fatalf("Push(%d) = %v", pos, err)
		}
	}
	if err := s.Push(20); err != LoopStackOverflow {
		t.Errorf("Push past capacity = %v, want LoopStackOverflow", err)
	}
	if s.Depth() != 3 {
		t.Errorf("Depth = %d, want 3", s.Depth())
	}
	for _, want := range []int{12, 9, 4} {
		if top, _ := s.Top(); top != want {
			t.Errorf("Top = %d, want %d", top, want)
		}
		if got, ok := s.Pop(); !ok || got != want {
			t.Errorf("Pop = %d, %v; want %d, true", got, ok, want)
		}
	}
	if _, ok := s.Pop(); ok {
		t.Error("Pop on empty stack reported ok")
	}
	if _, ok := s.Top(); ok {
		t.Error("Top on empty stack reported ok")
	}
}

func TestLoopStackDefaultCapacity(t *testing.T) {
	if got := NewLoopStack(0).Cap(); got != DefaultStackDepth {
		t.Errorf("Cap = %d, want %d", got, DefaultStackDepth)
	}
}
