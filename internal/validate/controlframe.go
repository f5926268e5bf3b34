package validate

import "github.com/hack-chain/WAVM/internal/ir"

// stackValue is one entry of the operand stack. unknown marks a
// polymorphic slot: after an unconditional branch or unreachable, the
// validator must accept any subsequent pop until the enclosing block ends,
// per the WebAssembly spec's "stack-polymorphic" code region.
type stackValue struct {
	typ     ir.ValueType
	unknown bool
}

// controlFrame tracks one nested block/loop/if/function scope.
type controlFrame struct {
	opcode      ir.Opcode // OpcodeBlock, OpcodeLoop, OpcodeIf, or 0 for the function itself
	startTypes  []ir.ValueType
	endTypes    []ir.ValueType
	height      int // operand stack depth at frame entry
	unreachable bool
	sawElse     bool
}

// labelTypes returns the types a branch to this frame must supply: a
// loop's branch target is its parameter types (the loop repeats), every
// other frame's branch target is its result types.
func (f *controlFrame) labelTypes() []ir.ValueType {
	if f.opcode == ir.OpcodeLoop {
		return f.startTypes
	}
	return f.endTypes
}

type frameStack struct {
	frames []controlFrame
}

func (s *frameStack) push(f controlFrame) { s.frames = append(s.frames, f) }

func (s *frameStack) pop() controlFrame {
	f := s.frames[len(s.frames)-1]
	s.frames = s.frames[:len(s.frames)-1]
	return f
}

func (s *frameStack) top() *controlFrame { return &s.frames[len(s.frames)-1] }

func (s *frameStack) depth() int { return len(s.frames) }

// at returns the frame `depth` levels up from the top (0 = current).
func (s *frameStack) at(depth int) (*controlFrame, bool) {
	idx := len(s.frames) - 1 - depth
	if idx < 0 {
		return nil, false
	}
	return &s.frames[idx], true
}
