package interp

import (
	"encoding/binary"
	"math"
	"math/bits"

	"github.com/hack-chain/WAVM/internal/ir"
	"github.com/hack-chain/WAVM/jit"
)

// ctrlLabel is a runtime control-flow label: the information branchTo needs
// to unwind the operand stack and redirect the program counter. Pushed on
// entry to every block/loop/if, whether or not a branch ever targets it.
type ctrlLabel struct {
	arity          int  // values carried across a branch to this label
	continuationPC int  // loop: the instruction after Loop itself; block/if: matchingEnd+1
	isLoop         bool // branching to a loop label re-enters the loop body instead of exiting it
	stackHeight    int  // operand stack length this label's body was entered at
}

// execState is the mutable state of one Call: the operand stack, locals
// (params followed by declared locals), and the active control-label
// stack, innermost last.
type execState struct {
	stack  []ir.Value
	locals []ir.Value
	labels []ctrlLabel
	host   jit.Host
}

func (s *execState) push(v ir.Value) { s.stack = append(s.stack, v) }

func (s *execState) pop() ir.Value {
	v := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
	return v
}

func (s *execState) popI32() int32 { return s.pop().I32 }
func (s *execState) popI64() int64 { return s.pop().I64 }
func (s *execState) popF32() float32 { return s.pop().F32 }
func (s *execState) popF64() float64 { return s.pop().F64 }

func zeroValue(t ir.ValueType) ir.Value {
	switch t {
	case ir.ValueTypeI32:
		return ir.I32Value(0)
	case ir.ValueTypeI64:
		return ir.I64Value(0)
	case ir.ValueTypeF32:
		return ir.F32Value(0)
	case ir.ValueTypeF64:
		return ir.F64Value(0)
	case ir.ValueTypeFuncref:
		return ir.Value{Type: ir.ValueTypeFuncref, I64: -1}
	default:
		return ir.Value{}
	}
}

// Call runs the function body against host, the module-bound collaborator
// that resolves every call/global/memory/table instruction back into the
// owning module's state. The operand stack and control-label stack live
// entirely in a fresh execState; nothing here is shared across calls, so
// recursive and concurrent calls to the same compiledFunction are safe.
func (cf *compiledFunction) Call(host jit.Host, args []ir.Value) ([]ir.Value, *jit.Trap) {
	locals := make([]ir.Value, len(cf.sig.Params)+len(cf.localTypes))
	copy(locals, args)
	for i, t := range cf.localTypes {
		locals[len(cf.sig.Params)+i] = zeroValue(t)
	}

	st := &execState{
		stack:  make([]ir.Value, 0, 16),
		locals: locals,
		host:   host,
	}
	st.labels = append(st.labels, ctrlLabel{
		arity:          len(cf.sig.Results),
		continuationPC: len(cf.body),
		stackHeight:    0,
	})

	pc := 0
	for pc < len(cf.body) {
		next, trap := cf.step(st, pc, cf.body[pc])
		if trap != nil {
			return nil, trap
		}
		pc = next
	}

	n := len(cf.sig.Results)
	results := append([]ir.Value{}, st.stack[len(st.stack)-n:]...)
	return results, nil
}

// branchTo resolves a branch of depth labels-from-top, carries that
// label's arity worth of values across the jump, and returns the program
// counter execution resumes at.
func (cf *compiledFunction) branchTo(st *execState, depth ir.Index) int {
	idx := len(st.labels) - 1 - int(depth)
	target := st.labels[idx]

	carried := append([]ir.Value{}, st.stack[len(st.stack)-target.arity:]...)
	st.stack = append(st.stack[:target.stackHeight], carried...)

	if target.isLoop {
		st.labels = st.labels[:idx+1]
	} else {
		st.labels = st.labels[:idx]
	}
	return target.continuationPC
}

// step executes a single instruction and returns the next program counter.
func (cf *compiledFunction) step(st *execState, pc int, ins ir.Instruction) (int, *jit.Trap) {
	switch ins.Opcode {

	case ir.OpcodeUnreachable:
		return 0, jit.NewTrap(jit.TrapUnreachable)

	case ir.OpcodeNop:
		return pc + 1, nil

	case ir.OpcodeBlock, ir.OpcodeLoop:
		params, results := cf.blockTypes(ins.Block)
		height := len(st.stack) - len(params)
		isLoop := ins.Opcode == ir.OpcodeLoop
		cont := cf.matchingEnd[pc] + 1
		arity := len(results)
		if isLoop {
			cont = pc + 1
			arity = len(params)
		}
		st.labels = append(st.labels, ctrlLabel{arity: arity, continuationPC: cont, isLoop: isLoop, stackHeight: height})
		return pc + 1, nil

	case ir.OpcodeIf:
		params, results := cf.blockTypes(ins.Block)
		cond := st.popI32()
		height := len(st.stack) - len(params)
		endPC := cf.matchingEnd[pc]
		if cond != 0 {
			st.labels = append(st.labels, ctrlLabel{arity: len(results), continuationPC: endPC + 1, stackHeight: height})
			return pc + 1, nil
		}
		if elsePC, ok := cf.matchingElse[pc]; ok {
			st.labels = append(st.labels, ctrlLabel{arity: len(results), continuationPC: endPC + 1, stackHeight: height})
			return elsePC + 1, nil
		}
		return endPC + 1, nil

	case ir.OpcodeElse:
		st.labels = st.labels[:len(st.labels)-1]
		return cf.elseToEnd[pc] + 1, nil

	case ir.OpcodeEnd:
		if len(st.labels) > 0 {
			st.labels = st.labels[:len(st.labels)-1]
		}
		return pc + 1, nil

	case ir.OpcodeBr:
		return cf.branchTo(st, ins.Index), nil

	case ir.OpcodeBrIf:
		cond := st.popI32()
		if cond == 0 {
			return pc + 1, nil
		}
		return cf.branchTo(st, ins.Index), nil

	case ir.OpcodeBrTable:
		idx := uint32(st.popI32())
		depth := ins.Index
		if int(idx) < len(ins.BrTableTargets) {
			depth = ins.BrTableTargets[idx]
		}
		return cf.branchTo(st, depth), nil

	case ir.OpcodeReturn:
		return cf.branchTo(st, ir.Index(len(st.labels)-1)), nil

	case ir.OpcodeCall:
		ft := cf.funcTypes[ins.Index]
		args := append([]ir.Value{}, st.stack[len(st.stack)-len(ft.Params):]...)
		st.stack = st.stack[:len(st.stack)-len(ft.Params)]
		results, trap := st.host.CallFunction(ins.Index, args)
		if trap != nil {
			return 0, trap
		}
		st.stack = append(st.stack, results...)
		return pc + 1, nil

	case ir.OpcodeCallIndirect:
		ft := cf.types[ins.Index]
		elemIdx := ir.Index(st.popI32())
		args := append([]ir.Value{}, st.stack[len(st.stack)-len(ft.Params):]...)
		st.stack = st.stack[:len(st.stack)-len(ft.Params)]
		results, trap := st.host.CallIndirect(0, elemIdx, ins.Index, args)
		if trap != nil {
			return 0, trap
		}
		st.stack = append(st.stack, results...)
		return pc + 1, nil

	case ir.OpcodeDrop:
		st.pop()
		return pc + 1, nil

	case ir.OpcodeSelect:
		cond := st.popI32()
		b := st.pop()
		a := st.pop()
		if cond != 0 {
			st.push(a)
		} else {
			st.push(b)
		}
		return pc + 1, nil

	case ir.OpcodeLocalGet:
		st.push(st.locals[ins.Index])
		return pc + 1, nil
	case ir.OpcodeLocalSet:
		st.locals[ins.Index] = st.pop()
		return pc + 1, nil
	case ir.OpcodeLocalTee:
		st.locals[ins.Index] = st.stack[len(st.stack)-1]
		return pc + 1, nil

	case ir.OpcodeGlobalGet:
		st.push(st.host.GlobalGet(ins.Index))
		return pc + 1, nil
	case ir.OpcodeGlobalSet:
		st.host.GlobalSet(ins.Index, st.pop())
		return pc + 1, nil

	case ir.OpcodeMemorySize:
		st.push(ir.I32Value(int32(st.host.MemorySize(0))))
		return pc + 1, nil
	case ir.OpcodeMemoryGrow:
		delta := uint32(st.popI32())
		st.push(ir.I32Value(st.host.MemoryGrow(0, delta)))
		return pc + 1, nil

	case ir.OpcodeI32Const:
		st.push(ir.I32Value(ins.I32))
		return pc + 1, nil
	case ir.OpcodeI64Const:
		st.push(ir.I64Value(ins.I64))
		return pc + 1, nil
	case ir.OpcodeF32Const:
		st.push(ir.F32Value(ins.F32))
		return pc + 1, nil
	case ir.OpcodeF64Const:
		st.push(ir.F64Value(ins.F64))
		return pc + 1, nil

	case ir.OpcodeMemoryInit:
		n := uint32(st.popI32())
		src := uint32(st.popI32())
		dst := uint32(st.popI32())
		if trap := st.host.MemoryInit(0, ins.Index, dst, src, n); trap != nil {
			return 0, trap
		}
		return pc + 1, nil
	case ir.OpcodeDataDrop:
		st.host.DataDrop(ins.Index)
		return pc + 1, nil
	case ir.OpcodeMemoryCopy:
		n := uint32(st.popI32())
		src := uint32(st.popI32())
		dst := uint32(st.popI32())
		buf := make([]byte, n)
		if trap := st.host.MemoryRead(0, src, buf); trap != nil {
			return 0, trap
		}
		if trap := st.host.MemoryWrite(0, dst, buf); trap != nil {
			return 0, trap
		}
		return pc + 1, nil
	case ir.OpcodeMemoryFill:
		n := uint32(st.popI32())
		val := byte(st.popI32())
		dst := uint32(st.popI32())
		buf := make([]byte, n)
		for i := range buf {
			buf[i] = val
		}
		if trap := st.host.MemoryWrite(0, dst, buf); trap != nil {
			return 0, trap
		}
		return pc + 1, nil

	case ir.OpcodeTableInit:
		n := ir.Index(st.popI32())
		src := ir.Index(st.popI32())
		dst := ir.Index(st.popI32())
		if trap := st.host.TableInit(0, ins.Index, dst, src, n); trap != nil {
			return 0, trap
		}
		return pc + 1, nil
	case ir.OpcodeElemDrop:
		st.host.ElemDrop(ins.Index)
		return pc + 1, nil
	case ir.OpcodeTableCopy:
		n := ir.Index(st.popI32())
		src := ir.Index(st.popI32())
		dst := ir.Index(st.popI32())
		if trap := tableCopy(st.host, dst, src, n); trap != nil {
			return 0, trap
		}
		return pc + 1, nil

	case ir.OpcodeRefNull:
		st.push(ir.Value{Type: ir.ValueTypeFuncref, I64: -1})
		return pc + 1, nil
	case ir.OpcodeRefIsNull:
		v := st.pop()
		if v.I64 < 0 {
			st.push(ir.I32Value(1))
		} else {
			st.push(ir.I32Value(0))
		}
		return pc + 1, nil
	case ir.OpcodeRefFunc:
		st.push(ir.Value{Type: ir.ValueTypeFuncref, I64: int64(ins.Index)})
		return pc + 1, nil

	case ir.OpcodeI32Load:
		return cf.load(st, pc, ins, 4, func(b []byte) ir.Value { return ir.I32Value(int32(binary.LittleEndian.Uint32(b))) })
	case ir.OpcodeI32Load8S:
		return cf.load(st, pc, ins, 1, func(b []byte) ir.Value { return ir.I32Value(int32(int8(b[0]))) })
	case ir.OpcodeI32Load8U:
		return cf.load(st, pc, ins, 1, func(b []byte) ir.Value { return ir.I32Value(int32(b[0])) })
	case ir.OpcodeI32Load16S:
		return cf.load(st, pc, ins, 2, func(b []byte) ir.Value { return ir.I32Value(int32(int16(binary.LittleEndian.Uint16(b)))) })
	case ir.OpcodeI32Load16U:
		return cf.load(st, pc, ins, 2, func(b []byte) ir.Value { return ir.I32Value(int32(binary.LittleEndian.Uint16(b))) })
	case ir.OpcodeI64Load:
		return cf.load(st, pc, ins, 8, func(b []byte) ir.Value { return ir.I64Value(int64(binary.LittleEndian.Uint64(b))) })
	case ir.OpcodeI64Load8S:
		return cf.load(st, pc, ins, 1, func(b []byte) ir.Value { return ir.I64Value(int64(int8(b[0]))) })
	case ir.OpcodeI64Load8U:
		return cf.load(st, pc, ins, 1, func(b []byte) ir.Value { return ir.I64Value(int64(b[0])) })
	case ir.OpcodeI64Load16S:
		return cf.load(st, pc, ins, 2, func(b []byte) ir.Value { return ir.I64Value(int64(int16(binary.LittleEndian.Uint16(b)))) })
	case ir.OpcodeI64Load16U:
		return cf.load(st, pc, ins, 2, func(b []byte) ir.Value { return ir.I64Value(int64(binary.LittleEndian.Uint16(b))) })
	case ir.OpcodeI64Load32S:
		return cf.load(st, pc, ins, 4, func(b []byte) ir.Value { return ir.I64Value(int64(int32(binary.LittleEndian.Uint32(b)))) })
	case ir.OpcodeI64Load32U:
		return cf.load(st, pc, ins, 4, func(b []byte) ir.Value { return ir.I64Value(int64(binary.LittleEndian.Uint32(b))) })
	case ir.OpcodeF32Load:
		return cf.load(st, pc, ins, 4, func(b []byte) ir.Value { return ir.F32Value(math.Float32frombits(binary.LittleEndian.Uint32(b))) })
	case ir.OpcodeF64Load:
		return cf.load(st, pc, ins, 8, func(b []byte) ir.Value { return ir.F64Value(math.Float64frombits(binary.LittleEndian.Uint64(b))) })

	case ir.OpcodeI32Store:
		return cf.store(st, pc, ins, 4, func(b []byte, v ir.Value) { binary.LittleEndian.PutUint32(b, uint32(v.I32)) })
	case ir.OpcodeI32Store8:
		return cf.store(st, pc, ins, 1, func(b []byte, v ir.Value) { b[0] = byte(v.I32) })
	case ir.OpcodeI32Store16:
		return cf.store(st, pc, ins, 2, func(b []byte, v ir.Value) { binary.LittleEndian.PutUint16(b, uint16(v.I32)) })
	case ir.OpcodeI64Store:
		return cf.store(st, pc, ins, 8, func(b []byte, v ir.Value) { binary.LittleEndian.PutUint64(b, uint64(v.I64)) })
	case ir.OpcodeI64Store8:
		return cf.store(st, pc, ins, 1, func(b []byte, v ir.Value) { b[0] = byte(v.I64) })
	case ir.OpcodeI64Store16:
		return cf.store(st, pc, ins, 2, func(b []byte, v ir.Value) { binary.LittleEndian.PutUint16(b, uint16(v.I64)) })
	case ir.OpcodeI64Store32:
		return cf.store(st, pc, ins, 4, func(b []byte, v ir.Value) { binary.LittleEndian.PutUint32(b, uint32(v.I64)) })
	case ir.OpcodeF32Store:
		return cf.store(st, pc, ins, 4, func(b []byte, v ir.Value) { binary.LittleEndian.PutUint32(b, math.Float32bits(v.F32)) })
	case ir.OpcodeF64Store:
		return cf.store(st, pc, ins, 8, func(b []byte, v ir.Value) { binary.LittleEndian.PutUint64(b, math.Float64bits(v.F64)) })

	default:
		return cf.stepNumeric(st, pc, ins)
	}
}

// load computes the effective address, reads width bytes through the host,
// decodes them with decode, and pushes the result.
func (cf *compiledFunction) load(st *execState, pc int, ins ir.Instruction, width int, decode func([]byte) ir.Value) (int, *jit.Trap) {
	base := uint32(st.popI32())
	ea, ok := effectiveAddress(base, ins.MemArg.Offset)
	if !ok {
		return 0, jit.NewTrap(jit.TrapOutOfBoundsMemoryAccess)
	}
	buf := make([]byte, width)
	if trap := st.host.MemoryRead(0, ea, buf); trap != nil {
		return 0, trap
	}
	st.push(decode(buf))
	return pc + 1, nil
}

// store computes the effective address, encodes the popped value with
// encode, and writes it through the host.
func (cf *compiledFunction) store(st *execState, pc int, ins ir.Instruction, width int, encode func([]byte, ir.Value)) (int, *jit.Trap) {
	v := st.pop()
	base := uint32(st.popI32())
	ea, ok := effectiveAddress(base, ins.MemArg.Offset)
	if !ok {
		return 0, jit.NewTrap(jit.TrapOutOfBoundsMemoryAccess)
	}
	buf := make([]byte, width)
	encode(buf, v)
	if trap := st.host.MemoryWrite(0, ea, buf); trap != nil {
		return 0, trap
	}
	return pc + 1, nil
}

func effectiveAddress(base, offset uint32) (uint32, bool) {
	ea := uint64(base) + uint64(offset)
	if ea > math.MaxUint32 {
		return 0, false
	}
	return uint32(ea), true
}

// tableCopy moves n elements from src to dst within table 0, using
// TableGet/TableSet (jit.Host has no dedicated copy op) with a memmove
// direction so overlapping ranges copy correctly. A false ok from TableGet
// means the source slot is null; funcIndexNull (an out-of-range function
// index) asks TableSet to write a null slot, matching how moduleHost's
// FunctionByIndex already treats any out-of-range index as "no function".
const funcIndexNull = ir.Index(^uint32(0))

func tableCopy(host jit.Host, dst, src, n ir.Index) *jit.Trap {
	if dst <= src {
		for i := ir.Index(0); i < n; i++ {
			if trap := copyOne(host, dst+i, src+i); trap != nil {
				return trap
			}
		}
	} else {
		for i := n; i > 0; i-- {
			j := i - 1
			if trap := copyOne(host, dst+j, src+j); trap != nil {
				return trap
			}
		}
	}
	return nil
}

func copyOne(host jit.Host, dst, src ir.Index) *jit.Trap {
	fn, ok, trap := host.TableGet(0, src)
	if trap != nil {
		return trap
	}
	if !ok {
		return host.TableSet(0, dst, funcIndexNull)
	}
	return host.TableSet(0, dst, fn)
}

// stepNumeric dispatches the pure numeric instructions: comparisons,
// arithmetic, conversions and reinterpretations. Split out from step's
// control-flow switch purely to keep that switch readable; there is no
// semantic boundary between the two.
func (cf *compiledFunction) stepNumeric(st *execState, pc int, ins ir.Instruction) (int, *jit.Trap) {
	switch ins.Opcode {

	case ir.OpcodeI32Eqz:
		st.push(boolValue(st.popI32() == 0))
	case ir.OpcodeI32Eq:
		b, a := st.popI32(), st.popI32()
		st.push(boolValue(a == b))
	case ir.OpcodeI32Ne:
		b, a := st.popI32(), st.popI32()
		st.push(boolValue(a != b))
	case ir.OpcodeI32LtS:
		b, a := st.popI32(), st.popI32()
		st.push(boolValue(a < b))
	case ir.OpcodeI32LtU:
		b, a := uint32(st.popI32()), uint32(st.popI32())
		st.push(boolValue(a < b))
	case ir.OpcodeI32GtS:
		b, a := st.popI32(), st.popI32()
		st.push(boolValue(a > b))
	case ir.OpcodeI32GtU:
		b, a := uint32(st.popI32()), uint32(st.popI32())
		st.push(boolValue(a > b))
	case ir.OpcodeI32LeS:
		b, a := st.popI32(), st.popI32()
		st.push(boolValue(a <= b))
	case ir.OpcodeI32LeU:
		b, a := uint32(st.popI32()), uint32(st.popI32())
		st.push(boolValue(a <= b))
	case ir.OpcodeI32GeS:
		b, a := st.popI32(), st.popI32()
		st.push(boolValue(a >= b))
	case ir.OpcodeI32GeU:
		b, a := uint32(st.popI32()), uint32(st.popI32())
		st.push(boolValue(a >= b))

	case ir.OpcodeI64Eqz:
		st.push(boolValue(st.popI64() == 0))
	case ir.OpcodeI64Eq:
		b, a := st.popI64(), st.popI64()
		st.push(boolValue(a == b))
	case ir.OpcodeI64Ne:
		b, a := st.popI64(), st.popI64()
		st.push(boolValue(a != b))
	case ir.OpcodeI64LtS:
		b, a := st.popI64(), st.popI64()
		st.push(boolValue(a < b))
	case ir.OpcodeI64LtU:
		b, a := uint64(st.popI64()), uint64(st.popI64())
		st.push(boolValue(a < b))
	case ir.OpcodeI64GtS:
		b, a := st.popI64(), st.popI64()
		st.push(boolValue(a > b))
	case ir.OpcodeI64GtU:
		b, a := uint64(st.popI64()), uint64(st.popI64())
		st.push(boolValue(a > b))
	case ir.OpcodeI64LeS:
		b, a := st.popI64(), st.popI64()
		st.push(boolValue(a <= b))
	case ir.OpcodeI64LeU:
		b, a := uint64(st.popI64()), uint64(st.popI64())
		st.push(boolValue(a <= b))
	case ir.OpcodeI64GeS:
		b, a := st.popI64(), st.popI64()
		st.push(boolValue(a >= b))
	case ir.OpcodeI64GeU:
		b, a := uint64(st.popI64()), uint64(st.popI64())
		st.push(boolValue(a >= b))

	case ir.OpcodeF32Eq:
		b, a := st.popF32(), st.popF32()
		st.push(boolValue(a == b))
	case ir.OpcodeF32Ne:
		b, a := st.popF32(), st.popF32()
		st.push(boolValue(a != b))
	case ir.OpcodeF32Lt:
		b, a := st.popF32(), st.popF32()
		st.push(boolValue(a < b))
	case ir.OpcodeF32Gt:
		b, a := st.popF32(), st.popF32()
		st.push(boolValue(a > b))
	case ir.OpcodeF32Le:
		b, a := st.popF32(), st.popF32()
		st.push(boolValue(a <= b))
	case ir.OpcodeF32Ge:
		b, a := st.popF32(), st.popF32()
		st.push(boolValue(a >= b))

	case ir.OpcodeF64Eq:
		b, a := st.popF64(), st.popF64()
		st.push(boolValue(a == b))
	case ir.OpcodeF64Ne:
		b, a := st.popF64(), st.popF64()
		st.push(boolValue(a != b))
	case ir.OpcodeF64Lt:
		b, a := st.popF64(), st.popF64()
		st.push(boolValue(a < b))
	case ir.OpcodeF64Gt:
		b, a := st.popF64(), st.popF64()
		st.push(boolValue(a > b))
	case ir.OpcodeF64Le:
		b, a := st.popF64(), st.popF64()
		st.push(boolValue(a <= b))
	case ir.OpcodeF64Ge:
		b, a := st.popF64(), st.popF64()
		st.push(boolValue(a >= b))

	case ir.OpcodeI32Clz:
		st.push(ir.I32Value(int32(bits.LeadingZeros32(uint32(st.popI32())))))
	case ir.OpcodeI32Ctz:
		st.push(ir.I32Value(int32(bits.TrailingZeros32(uint32(st.popI32())))))
	case ir.OpcodeI32Popcnt:
		st.push(ir.I32Value(int32(bits.OnesCount32(uint32(st.popI32())))))
	case ir.OpcodeI32Add:
		b, a := st.popI32(), st.popI32()
		st.push(ir.I32Value(a + b))
	case ir.OpcodeI32Sub:
		b, a := st.popI32(), st.popI32()
		st.push(ir.I32Value(a - b))
	case ir.OpcodeI32Mul:
		b, a := st.popI32(), st.popI32()
		st.push(ir.I32Value(a * b))
	case ir.OpcodeI32DivS:
		b, a := st.popI32(), st.popI32()
		if b == 0 {
			return 0, jit.NewTrap(jit.TrapIntegerDivideByZero)
		}
		if a == math.MinInt32 && b == -1 {
			return 0, jit.NewTrap(jit.TrapIntegerOverflow)
		}
		st.push(ir.I32Value(a / b))
	case ir.OpcodeI32DivU:
		b, a := uint32(st.popI32()), uint32(st.popI32())
		if b == 0 {
			return 0, jit.NewTrap(jit.TrapIntegerDivideByZero)
		}
		st.push(ir.I32Value(int32(a / b)))
	case ir.OpcodeI32RemS:
		b, a := st.popI32(), st.popI32()
		if b == 0 {
			return 0, jit.NewTrap(jit.TrapIntegerDivideByZero)
		}
		if b == -1 {
			st.push(ir.I32Value(0))
		} else {
			st.push(ir.I32Value(a % b))
		}
	case ir.OpcodeI32RemU:
		b, a := uint32(st.popI32()), uint32(st.popI32())
		if b == 0 {
			return 0, jit.NewTrap(jit.TrapIntegerDivideByZero)
		}
		st.push(ir.I32Value(int32(a % b)))
	case ir.OpcodeI32And:
		b, a := st.popI32(), st.popI32()
		st.push(ir.I32Value(a & b))
	case ir.OpcodeI32Or:
		b, a := st.popI32(), st.popI32()
		st.push(ir.I32Value(a | b))
	case ir.OpcodeI32Xor:
		b, a := st.popI32(), st.popI32()
		st.push(ir.I32Value(a ^ b))
	case ir.OpcodeI32Shl:
		b, a := uint32(st.popI32()), st.popI32()
		st.push(ir.I32Value(a << (b % 32)))
	case ir.OpcodeI32ShrS:
		b, a := uint32(st.popI32()), st.popI32()
		st.push(ir.I32Value(a >> (b % 32)))
	case ir.OpcodeI32ShrU:
		b, a := uint32(st.popI32()), uint32(st.popI32())
		st.push(ir.I32Value(int32(a >> (b % 32))))
	case ir.OpcodeI32Rotl:
		b, a := uint32(st.popI32()), uint32(st.popI32())
		st.push(ir.I32Value(int32(bits.RotateLeft32(a, int(b%32)))))
	case ir.OpcodeI32Rotr:
		b, a := uint32(st.popI32()), uint32(st.popI32())
		st.push(ir.I32Value(int32(bits.RotateLeft32(a, -int(b%32)))))

	case ir.OpcodeI64Clz:
		st.push(ir.I64Value(int64(bits.LeadingZeros64(uint64(st.popI64())))))
	case ir.OpcodeI64Ctz:
		st.push(ir.I64Value(int64(bits.TrailingZeros64(uint64(st.popI64())))))
	case ir.OpcodeI64Popcnt:
		st.push(ir.I64Value(int64(bits.OnesCount64(uint64(st.popI64())))))
	case ir.OpcodeI64Add:
		b, a := st.popI64(), st.popI64()
		st.push(ir.I64Value(a + b))
	case ir.OpcodeI64Sub:
		b, a := st.popI64(), st.popI64()
		st.push(ir.I64Value(a - b))
	case ir.OpcodeI64Mul:
		b, a := st.popI64(), st.popI64()
		st.push(ir.I64Value(a * b))
	case ir.OpcodeI64DivS:
		b, a := st.popI64(), st.popI64()
		if b == 0 {
			return 0, jit.NewTrap(jit.TrapIntegerDivideByZero)
		}
		if a == math.MinInt64 && b == -1 {
			return 0, jit.NewTrap(jit.TrapIntegerOverflow)
		}
		st.push(ir.I64Value(a / b))
	case ir.OpcodeI64DivU:
		b, a := uint64(st.popI64()), uint64(st.popI64())
		if b == 0 {
			return 0, jit.NewTrap(jit.TrapIntegerDivideByZero)
		}
		st.push(ir.I64Value(int64(a / b)))
	case ir.OpcodeI64RemS:
		b, a := st.popI64(), st.popI64()
		if b == 0 {
			return 0, jit.NewTrap(jit.TrapIntegerDivideByZero)
		}
		if b == -1 {
			st.push(ir.I64Value(0))
		} else {
			st.push(ir.I64Value(a % b))
		}
	case ir.OpcodeI64RemU:
		b, a := uint64(st.popI64()), uint64(st.popI64())
		if b == 0 {
			return 0, jit.NewTrap(jit.TrapIntegerDivideByZero)
		}
		st.push(ir.I64Value(int64(a % b)))
	case ir.OpcodeI64And:
		b, a := st.popI64(), st.popI64()
		st.push(ir.I64Value(a & b))
	case ir.OpcodeI64Or:
		b, a := st.popI64(), st.popI64()
		st.push(ir.I64Value(a | b))
	case ir.OpcodeI64Xor:
		b, a := st.popI64(), st.popI64()
		st.push(ir.I64Value(a ^ b))
	case ir.OpcodeI64Shl:
		b, a := uint64(st.popI64()), st.popI64()
		st.push(ir.I64Value(a << (b % 64)))
	case ir.OpcodeI64ShrS:
		b, a := uint64(st.popI64()), st.popI64()
		st.push(ir.I64Value(a >> (b % 64)))
	case ir.OpcodeI64ShrU:
		b, a := uint64(st.popI64()), uint64(st.popI64())
		st.push(ir.I64Value(int64(a >> (b % 64))))
	case ir.OpcodeI64Rotl:
		b, a := uint64(st.popI64()), uint64(st.popI64())
		st.push(ir.I64Value(int64(bits.RotateLeft64(a, int(b%64)))))
	case ir.OpcodeI64Rotr:
		b, a := uint64(st.popI64()), uint64(st.popI64())
		st.push(ir.I64Value(int64(bits.RotateLeft64(a, -int(b%64)))))

	case ir.OpcodeF32Abs:
		st.push(ir.F32Value(float32(math.Abs(float64(st.popF32())))))
	case ir.OpcodeF32Neg:
		st.push(ir.F32Value(-st.popF32()))
	case ir.OpcodeF32Ceil:
		st.push(ir.F32Value(float32(math.Ceil(float64(st.popF32())))))
	case ir.OpcodeF32Floor:
		st.push(ir.F32Value(float32(math.Floor(float64(st.popF32())))))
	case ir.OpcodeF32Trunc:
		st.push(ir.F32Value(float32(math.Trunc(float64(st.popF32())))))
	case ir.OpcodeF32Nearest:
		st.push(ir.F32Value(float32(math.RoundToEven(float64(st.popF32())))))
	case ir.OpcodeF32Sqrt:
		st.push(ir.F32Value(float32(math.Sqrt(float64(st.popF32())))))
	case ir.OpcodeF32Add:
		b, a := st.popF32(), st.popF32()
		st.push(ir.F32Value(a + b))
	case ir.OpcodeF32Sub:
		b, a := st.popF32(), st.popF32()
		st.push(ir.F32Value(a - b))
	case ir.OpcodeF32Mul:
		b, a := st.popF32(), st.popF32()
		st.push(ir.F32Value(a * b))
	case ir.OpcodeF32Div:
		b, a := st.popF32(), st.popF32()
		st.push(ir.F32Value(a / b))
	case ir.OpcodeF32Min:
		b, a := st.popF32(), st.popF32()
		st.push(ir.F32Value(f32Min(a, b)))
	case ir.OpcodeF32Max:
		b, a := st.popF32(), st.popF32()
		st.push(ir.F32Value(f32Max(a, b)))
	case ir.OpcodeF32Copysign:
		b, a := st.popF32(), st.popF32()
		st.push(ir.F32Value(float32(math.Copysign(float64(a), float64(b)))))

	case ir.OpcodeF64Abs:
		st.push(ir.F64Value(math.Abs(st.popF64())))
	case ir.OpcodeF64Neg:
		st.push(ir.F64Value(-st.popF64()))
	case ir.OpcodeF64Ceil:
		st.push(ir.F64Value(math.Ceil(st.popF64())))
	case ir.OpcodeF64Floor:
		st.push(ir.F64Value(math.Floor(st.popF64())))
	case ir.OpcodeF64Trunc:
		st.push(ir.F64Value(math.Trunc(st.popF64())))
	case ir.OpcodeF64Nearest:
		st.push(ir.F64Value(math.RoundToEven(st.popF64())))
	case ir.OpcodeF64Sqrt:
		st.push(ir.F64Value(math.Sqrt(st.popF64())))
	case ir.OpcodeF64Add:
		b, a := st.popF64(), st.popF64()
		st.push(ir.F64Value(a + b))
	case ir.OpcodeF64Sub:
		b, a := st.popF64(), st.popF64()
		st.push(ir.F64Value(a - b))
	case ir.OpcodeF64Mul:
		b, a := st.popF64(), st.popF64()
		st.push(ir.F64Value(a * b))
	case ir.OpcodeF64Div:
		b, a := st.popF64(), st.popF64()
		st.push(ir.F64Value(a / b))
	case ir.OpcodeF64Min:
		b, a := st.popF64(), st.popF64()
		st.push(ir.F64Value(f64Min(a, b)))
	case ir.OpcodeF64Max:
		b, a := st.popF64(), st.popF64()
		st.push(ir.F64Value(f64Max(a, b)))
	case ir.OpcodeF64Copysign:
		b, a := st.popF64(), st.popF64()
		st.push(ir.F64Value(math.Copysign(a, b)))

	case ir.OpcodeI32WrapI64:
		st.push(ir.I32Value(int32(st.popI64())))
	case ir.OpcodeI32TruncF32S:
		v, trap := truncToI32S(float64(st.popF32()))
		if trap != nil {
			return 0, trap
		}
		st.push(ir.I32Value(v))
	case ir.OpcodeI32TruncF32U:
		v, trap := truncToI32U(float64(st.popF32()))
		if trap != nil {
			return 0, trap
		}
		st.push(ir.I32Value(v))
	case ir.OpcodeI32TruncF64S:
		v, trap := truncToI32S(st.popF64())
		if trap != nil {
			return 0, trap
		}
		st.push(ir.I32Value(v))
	case ir.OpcodeI32TruncF64U:
		v, trap := truncToI32U(st.popF64())
		if trap != nil {
			return 0, trap
		}
		st.push(ir.I32Value(v))
	case ir.OpcodeI64ExtendI32S:
		st.push(ir.I64Value(int64(st.popI32())))
	case ir.OpcodeI64ExtendI32U:
		st.push(ir.I64Value(int64(uint32(st.popI32()))))
	case ir.OpcodeI64TruncF32S:
		v, trap := truncToI64S(float64(st.popF32()))
		if trap != nil {
			return 0, trap
		}
		st.push(ir.I64Value(v))
	case ir.OpcodeI64TruncF32U:
		v, trap := truncToI64U(float64(st.popF32()))
		if trap != nil {
			return 0, trap
		}
		st.push(ir.I64Value(v))
	case ir.OpcodeI64TruncF64S:
		v, trap := truncToI64S(st.popF64())
		if trap != nil {
			return 0, trap
		}
		st.push(ir.I64Value(v))
	case ir.OpcodeI64TruncF64U:
		v, trap := truncToI64U(st.popF64())
		if trap != nil {
			return 0, trap
		}
		st.push(ir.I64Value(v))
	case ir.OpcodeF32ConvertI32S:
		st.push(ir.F32Value(float32(st.popI32())))
	case ir.OpcodeF32ConvertI32U:
		st.push(ir.F32Value(float32(uint32(st.popI32()))))
	case ir.OpcodeF32ConvertI64S:
		st.push(ir.F32Value(float32(st.popI64())))
	case ir.OpcodeF32ConvertI64U:
		st.push(ir.F32Value(float32(uint64(st.popI64()))))
	case ir.OpcodeF32DemoteF64:
		st.push(ir.F32Value(float32(st.popF64())))
	case ir.OpcodeF64ConvertI32S:
		st.push(ir.F64Value(float64(st.popI32())))
	case ir.OpcodeF64ConvertI32U:
		st.push(ir.F64Value(float64(uint32(st.popI32()))))
	case ir.OpcodeF64ConvertI64S:
		st.push(ir.F64Value(float64(st.popI64())))
	case ir.OpcodeF64ConvertI64U:
		st.push(ir.F64Value(float64(uint64(st.popI64()))))
	case ir.OpcodeF64PromoteF32:
		st.push(ir.F64Value(float64(st.popF32())))
	case ir.OpcodeI32ReinterpretF32:
		st.push(ir.I32Value(int32(math.Float32bits(st.popF32()))))
	case ir.OpcodeI64ReinterpretF64:
		st.push(ir.I64Value(int64(math.Float64bits(st.popF64()))))
	case ir.OpcodeF32ReinterpretI32:
		st.push(ir.F32Value(math.Float32frombits(uint32(st.popI32()))))
	case ir.OpcodeF64ReinterpretI64:
		st.push(ir.F64Value(math.Float64frombits(uint64(st.popI64()))))

	case ir.OpcodeI32Extend8S:
		st.push(ir.I32Value(int32(int8(st.popI32()))))
	case ir.OpcodeI32Extend16S:
		st.push(ir.I32Value(int32(int16(st.popI32()))))
	case ir.OpcodeI64Extend8S:
		st.push(ir.I64Value(int64(int8(st.popI64()))))
	case ir.OpcodeI64Extend16S:
		st.push(ir.I64Value(int64(int16(st.popI64()))))
	case ir.OpcodeI64Extend32S:
		st.push(ir.I64Value(int64(int32(st.popI64()))))

	default:
		return 0, jit.NewTrap(jit.TrapUnreachable)
	}
	return pc + 1, nil
}

func boolValue(b bool) ir.Value {
	if b {
		return ir.I32Value(1)
	}
	return ir.I32Value(0)
}

func f32Min(a, b float32) float32 {
	if math.IsNaN(float64(a)) || math.IsNaN(float64(b)) {
		return float32(math.NaN())
	}
	if a == 0 && b == 0 {
		if math.Signbit(float64(a)) || math.Signbit(float64(b)) {
			return float32(math.Copysign(0, -1))
		}
		return 0
	}
	if a < b {
		return a
	}
	return b
}

func f32Max(a, b float32) float32 {
	if math.IsNaN(float64(a)) || math.IsNaN(float64(b)) {
		return float32(math.NaN())
	}
	if a == 0 && b == 0 {
		if !math.Signbit(float64(a)) || !math.Signbit(float64(b)) {
			return 0
		}
		return float32(math.Copysign(0, -1))
	}
	if a > b {
		return a
	}
	return b
}

func f64Min(a, b float64) float64 {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.NaN()
	}
	if a == 0 && b == 0 {
		if math.Signbit(a) || math.Signbit(b) {
			return math.Copysign(0, -1)
		}
		return 0
	}
	if a < b {
		return a
	}
	return b
}

func f64Max(a, b float64) float64 {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.NaN()
	}
	if a == 0 && b == 0 {
		if !math.Signbit(a) || !math.Signbit(b) {
			return 0
		}
		return math.Copysign(0, -1)
	}
	if a > b {
		return a
	}
	return b
}

const (
	minI32F = -2147483648.0
	maxI32F = 2147483648.0
	maxU32F = 4294967296.0
	minI64F = -9223372036854775808.0
	maxI64F = 9223372036854775808.0
	maxU64F = 18446744073709551616.0
)

func truncToI32S(f float64) (int32, *jit.Trap) {
	if math.IsNaN(f) {
		return 0, jit.NewTrap(jit.TrapInvalidConversionToInteger)
	}
	t := math.Trunc(f)
	if t < minI32F || t >= maxI32F {
		return 0, jit.NewTrap(jit.TrapIntegerOverflow)
	}
	return int32(t), nil
}

func truncToI32U(f float64) (int32, *jit.Trap) {
	if math.IsNaN(f) {
		return 0, jit.NewTrap(jit.TrapInvalidConversionToInteger)
	}
	t := math.Trunc(f)
	if t < 0 || t >= maxU32F {
		return 0, jit.NewTrap(jit.TrapIntegerOverflow)
	}
	return int32(uint32(t)), nil
}

func truncToI64S(f float64) (int64, *jit.Trap) {
	if math.IsNaN(f) {
		return 0, jit.NewTrap(jit.TrapInvalidConversionToInteger)
	}
	t := math.Trunc(f)
	if t < minI64F || t >= maxI64F {
		return 0, jit.NewTrap(jit.TrapIntegerOverflow)
	}
	return int64(t), nil
}

func truncToI64U(f float64) (int64, *jit.Trap) {
	if math.IsNaN(f) {
		return 0, jit.NewTrap(jit.TrapInvalidConversionToInteger)
	}
	t := math.Trunc(f)
	if t < 0 || t >= maxU64F {
		return 0, jit.NewTrap(jit.TrapIntegerOverflow)
	}
	return int64(uint64(t)), nil
}
