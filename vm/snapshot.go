package vm

// Snapshot is a point-in-time view of a machine's control state.
type Snapshot struct {
	State     State
	IP        int
	MP        int
	Cell      byte
	LoopDepth int
	Steps     int64
}

// Snapshot captures the current control state.
func (m *Machine) Snapshot() Snapshot {
	return Snapshot{
		State:     m.state,
		IP:        m.ip,
		MP:        m.tape.Pointer(),
		Cell:      m.tape.Current(),
		LoopDepth: m.loops.Depth(),
		Steps:     m.steps,
	}
}
