package vm

// State is the lifecycle position of a Machine.
type State uint8

const (
	Running State = iota
	Halted        // source exhausted normally
	Failed        // stopped on an ExecError
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Halted:
		return "halted"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Option configures a Machine.
type Option func(*machineConfig)

type machineConfig struct {
	tapeSize   int
	stackDepth int
}

// WithTapeSize sets the number of cells. Non-positive values keep the default.
func WithTapeSize(n int) Option {
	return func(c *machineConfig) {
		if n > 0 {
			c.tapeSize = n
		}
	}
}

// WithStackDepth sets how many loops may be open at once. Non-positive values
// keep the default.
func WithStackDepth(n int) Option {
	return func(c *machineConfig) {
		if n > 0 {
			c.stackDepth = n
		}
	}
}

// Machine executes one source program against its own tape.
type Machine struct {
	src   string
	out   Sink
	tape  *Tape
	loops *LoopStack

	ip    int
	steps int64
	state State
	err   error
}

// NewMachine prepares a run of source. Output goes to out; a nil out
// discards it.
func NewMachine(source string, out Sink, opts ...Option) *Machine {
	cfg := machineConfig{
		tapeSize:   DefaultTapeSize,
		stackDepth: DefaultStackDepth,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if out == nil {
		out = Discard
	}
	return &Machine{
		src:   source,
		out:   out,
		tape:  NewTape(cfg.tapeSize),
		loops: NewLoopStack(cfg.stackDepth),
	}
}

// Run executes source on a fresh machine until it halts.
func Run(source string, out Sink, opts ...Option) error {
	return NewMachine(source, out, opts...).Run()
}

// Run steps the machine until it halts and returns the terminal error, nil
// on success.
func (m *Machine) Run() error {
	for {
		if done, err := m.Step(); done {
			return err
		}
	}
}

// Step executes a single instruction. A forward skip over a loop body is
// one step. Once the machine has halted, Step keeps returning done with the
// terminal error.
func (m *Machine) Step() (done bool, err error) {
	if m.state != Running {
		return true, m.err
	}
	if m.ip < len(m.src) {
		m.steps++
		if err := m.dispatch(); err != nil {
			return m.halt(err)
		}
	}
	if m.ip >= len(m.src) {
		return m.halt(m.finish())
	}
	return false, nil
}

func (m *Machine) dispatch() error {
	at := m.ip
	var err error
	switch m.src[at] {
	case '+':
		err = m.tape.Increment()
	case '-':
		err = m.tape.Decrement()
	case '>':
		err = m.tape.Forward()
	case '<':
		err = m.tape.Back()
	case '.':
		m.out.Emit(m.tape.Current())
	case '[':
		err = m.enterLoop()
	case ']':
		err = m.exitLoop()
	case ' ':
	case ',':
		err = UnsupportedInstruction
	default:
		err = InvalidInstruction
	}
	if err != nil {
		k, _ := KindOf(err)
		return &ExecError{Kind: k, IP: at}
	}
	m.ip++
	return nil
}

// enterLoop records the '[' and, when the current cell is zero, moves ip
// onto the ']' that closes it. Nested pairs inside the skipped body are
// passed over by depth counting.
func (m *Machine) enterLoop() error {
	if err := m.loops.Push(m.ip); err != nil {
		return err
	}
	if m.tape.Current() != 0 {
		return nil
	}
	depth := 0
	for pos := m.ip + 1; pos < len(m.src); pos++ {
		switch m.src[pos] {
		case '[':
			depth++
		case ']':
			if depth > 0 {
				depth--
				continue
			}
			m.loops.Pop()
			m.ip = pos
			return nil
		}
	}
	return UnmatchedOpen
}

// exitLoop jumps back to the saved '[' while the cell is nonzero. The entry
// stays on the stack for the next iteration.
func (m *Machine) exitLoop() error {
	top, ok := m.loops.Top()
	if !ok {
		return UnmatchedClose
	}
	if m.tape.Current() != 0 {
		m.ip = top
		return nil
	}
	m.loops.Pop()
	return nil
}

// finish decides the result once ip has passed the last instruction. Loops
// entered with a nonzero cell but never closed are reported at the innermost
// open '['.
func (m *Machine) finish() error {
	if pos, open := m.loops.Top(); open {
		return &ExecError{Kind: UnmatchedOpen, IP: pos}
	}
	return nil
}

func (m *Machine) halt(err error) (bool, error) {
	if err != nil {
		m.state = Failed
		m.err = err
	} else {
		m.state = Halted
	}
	return true, err
}

// IP returns the instruction pointer.
func (m *Machine) IP() int { return m.ip }

// Steps returns the number of instructions dispatched so far.
func (m *Machine) Steps() int64 { return m.steps }

// State returns the lifecycle state.
func (m *Machine) State() State { return m.state }

// Err returns the terminal error of a failed machine.
func (m *Machine) Err() error { return m.err }

// Tape returns the machine's memory. Callers must not mutate it while the
// machine is running.
func (m *Machine) Tape() *Tape { return m.tape }
