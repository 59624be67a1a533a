package vm

// DefaultTapeSize is the number of cells on a tape when no size is configured.
const DefaultTapeSize = 30000

// Tape is the machine's addressable memory: a fixed run of unsigned 8-bit
// cells plus the memory pointer selecting the current one. Every mutation is
// checked; nothing wraps around.
type Tape struct {
	cells []byte
	mp    int
}

// NewTape returns a zeroed tape of the given length.
func NewTape(size int) *Tape {
	if size <= 0 {
		size = DefaultTapeSize
	}
	return &Tape{cells: make([]byte, size)}
}

// Len returns the number of cells.
func (t *Tape) Len() int { return len(t.cells) }

// Pointer returns the memory pointer.
func (t *Tape) Pointer() int { return t.mp }

// Current returns the value of the cell under the pointer.
func (t *Tape) Current() byte { return t.cells[t.mp] }

// Increment adds one to the current cell.
func (t *Tape) Increment() error {
	if t.cells[t.mp] == 255 {
		return CellOverflow
	}
	t.cells[t.mp]++
	return nil
}

// Decrement subtracts one from the current cell.
func (t *Tape) Decrement() error {
	if t.cells[t.mp] == 0 {
		return CellUnderflow
	}
	t.cells[t.mp]--
	return nil
}

// Forward moves the pointer one cell right.
func (t *Tape) Forward() error {
	if t.mp == len(t.cells)-1 {
		return PointerOverflow
	}
	t.mp++
	return nil
}

// Back moves the pointer one cell left.
func (t *Tape) Back() error {
	if t.mp == 0 {
		return PointerUnderflow
	}
	t.mp--
	return nil
}

// Window copies up to n cells starting at from, clipped to the tape.
func (t *Tape) Window(from, n int) []byte {
	if from < 0 {
		from = 0
	}
	if from > len(t.cells) {
		from = len(t.cells)
	}
	end := from + n
	if end > len(t.cells) || n < 0 {
		end = len(t.cells)
	}
	out := make([]byte, end-from)
	copy(out, t.cells[from:end])
	return out
}
