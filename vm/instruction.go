package vm

// Instruction describes one recognized source character.
type Instruction struct {
	Symbol byte
	Name   string
	Doc    string
	// Fails names the category the instruction can halt with, zero if none.
	Fails Kind
}

var instructions = []Instruction{
	{'+', "increment", "Add one to the current cell.", CellOverflow},
	{'-', "decrement", "Subtract one from the current cell.", CellUnderflow},
	{'>', "forward", "Move the memory pointer one cell right.", PointerOverflow},
	{'<', "back", "Move the memory pointer one cell left.", PointerUnderflow},
	{'.', "output", "Emit the current cell as one byte.", 0},
	{'[', "loop", "Enter the loop body if the current cell is nonzero, otherwise skip past the matching ']'.", LoopStackOverflow},
	{']', "end loop", "Jump back to the matching '[' if the current cell is nonzero.", UnmatchedClose},
	{' ', "nop", "Do nothing.", 0},
	{',', "input", "Read a byte. Not supported.", UnsupportedInstruction},
}

// Lookup returns the description of c, if c is a recognized instruction.
func Lookup(c byte) (Instruction, bool) {
	for _, in := range instructions {
		if in.Symbol == c {
			return in, true
		}
	}
	return Instruction{}, false
}

// Instructions returns all recognized instructions.
func Instructions() []Instruction {
	out := make([]Instruction, len(instructions))
	copy(out, instructions)
	return out
}
