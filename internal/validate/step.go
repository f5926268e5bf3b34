package validate

import "github.com/hack-chain/WAVM/internal/ir"

var i32 = ir.ValueTypeI32
var i64 = ir.ValueTypeI64
var f32 = ir.ValueTypeF32
var f64 = ir.ValueTypeF64

// step type-checks a single instruction against the current operand and
// control-frame stacks, advancing validator state in place. This follows
// the WebAssembly reference validation algorithm directly: most
// instructions simply pop their declared operand types and push their
// declared result types; control instructions additionally push or pop
// control frames.
func (v *validator) step(offset int, ins ir.Instruction) error {
	op := ins.Opcode
	switch op {
	case ir.OpcodeUnreachable:
		v.setUnreachable()

	case ir.OpcodeNop:
		// no operand effect

	case ir.OpcodeBlock, ir.OpcodeLoop, ir.OpcodeIf:
		params, results, err := v.blockParamResultTypes(ins.Block)
		if err != nil {
			return err
		}
		if op == ir.OpcodeIf {
			if _, err := v.popVal(offset, i32); err != nil {
				return err
			}
		}
		if err := v.popVals(offset, params); err != nil {
			return err
		}
		v.frames.push(controlFrame{
			opcode:     op,
			startTypes: params,
			endTypes:   results,
			height:     len(v.operands),
		})
		v.pushVals(params)

	case ir.OpcodeElse:
		if v.frames.depth() == 0 || v.frames.top().opcode != ir.OpcodeIf {
			return newError(v.funcIdx, offset, "else outside if")
		}
		frame := *v.frames.top()
		if err := v.popVals(offset, frame.endTypes); err != nil {
			return err
		}
		if len(v.operands) != frame.height {
			return newError(v.funcIdx, offset, "type mismatch at end of if branch")
		}
		v.frames.pop()
		frame.sawElse = true
		frame.unreachable = false
		v.frames.push(controlFrame{
			opcode:     ir.OpcodeElse,
			startTypes: frame.startTypes,
			endTypes:   frame.endTypes,
			height:     frame.height,
		})
		v.pushVals(frame.startTypes)

	case ir.OpcodeEnd:
		if v.frames.depth() == 0 {
			return newError(v.funcIdx, offset, "end without matching block")
		}
		frame := *v.frames.top()
		if err := v.popVals(offset, frame.endTypes); err != nil {
			return err
		}
		if len(v.operands) != frame.height {
			return newError(v.funcIdx, offset, "type mismatch at end of block")
		}
		v.frames.pop()
		v.pushVals(frame.endTypes)

	case ir.OpcodeBr:
		frame, ok := v.frames.at(int(ins.Index))
		if !ok {
			return newError(v.funcIdx, offset, "branch depth %d out of range", ins.Index)
		}
		if err := v.popVals(offset, frame.labelTypes()); err != nil {
			return err
		}
		v.setUnreachable()

	case ir.OpcodeBrIf:
		if _, err := v.popVal(offset, i32); err != nil {
			return err
		}
		frame, ok := v.frames.at(int(ins.Index))
		if !ok {
			return newError(v.funcIdx, offset, "branch depth %d out of range", ins.Index)
		}
		lt := frame.labelTypes()
		if err := v.popVals(offset, lt); err != nil {
			return err
		}
		v.pushVals(lt)

	case ir.OpcodeBrTable:
		if _, err := v.popVal(offset, i32); err != nil {
			return err
		}
		def, ok := v.frames.at(int(ins.Index))
		if !ok {
			return newError(v.funcIdx, offset, "branch depth %d out of range", ins.Index)
		}
		arity := len(def.labelTypes())
		for _, target := range ins.BrTableTargets {
			tf, ok := v.frames.at(int(target))
			if !ok {
				return newError(v.funcIdx, offset, "branch depth %d out of range", target)
			}
			if len(tf.labelTypes()) != arity {
				return newError(v.funcIdx, offset, "br_table targets have mismatched arity")
			}
		}
		if err := v.popVals(offset, def.labelTypes()); err != nil {
			return err
		}
		v.setUnreachable()

	case ir.OpcodeReturn:
		fnFrame, _ := v.frames.at(v.frames.depth() - 1)
		if err := v.popVals(offset, fnFrame.endTypes); err != nil {
			return err
		}
		v.setUnreachable()

	case ir.OpcodeCall:
		if int(ins.Index) >= len(v.sig.FunctionTypes) || v.sig.FunctionTypes[ins.Index] == nil {
			return newError(v.funcIdx, offset, "call: function index %d out of range", ins.Index)
		}
		ft := v.sig.FunctionTypes[ins.Index]
		if err := v.popVals(offset, ft.Params); err != nil {
			return err
		}
		v.pushVals(ft.Results)

	case ir.OpcodeCallIndirect:
		if !v.sig.HasTable {
			return newError(v.funcIdx, offset, "call_indirect: no table declared")
		}
		if int(ins.Index) >= len(v.sig.Types) {
			return newError(v.funcIdx, offset, "call_indirect: type index %d out of range", ins.Index)
		}
		if _, err := v.popVal(offset, i32); err != nil {
			return err
		}
		ft := v.sig.Types[ins.Index]
		if err := v.popVals(offset, ft.Params); err != nil {
			return err
		}
		v.pushVals(ft.Results)

	case ir.OpcodeDrop:
		if _, err := v.popAny(offset); err != nil {
			return err
		}

	case ir.OpcodeSelect:
		if _, err := v.popVal(offset, i32); err != nil {
			return err
		}
		b, err := v.popAny(offset)
		if err != nil {
			return err
		}
		a, err := v.popAny(offset)
		if err != nil {
			return err
		}
		if a != 0 && b != 0 && a != b {
			return newError(v.funcIdx, offset, "select: operand types %s and %s differ", a, b)
		}
		if a != 0 {
			v.pushVal(a)
		} else {
			v.pushVal(b)
		}

	case ir.OpcodeLocalGet:
		t, err := v.localType(offset, ins.Index)
		if err != nil {
			return err
		}
		v.pushVal(t)

	case ir.OpcodeLocalSet:
		t, err := v.localType(offset, ins.Index)
		if err != nil {
			return err
		}
		if _, err := v.popVal(offset, t); err != nil {
			return err
		}

	case ir.OpcodeLocalTee:
		t, err := v.localType(offset, ins.Index)
		if err != nil {
			return err
		}
		if _, err := v.popVal(offset, t); err != nil {
			return err
		}
		v.pushVal(t)

	case ir.OpcodeGlobalGet:
		g, err := v.globalType(offset, ins.Index)
		if err != nil {
			return err
		}
		v.pushVal(g.ValType)

	case ir.OpcodeGlobalSet:
		g, err := v.globalType(offset, ins.Index)
		if err != nil {
			return err
		}
		if !g.Mutable {
			return newError(v.funcIdx, offset, "global.set: global %d is immutable", ins.Index)
		}
		if _, err := v.popVal(offset, g.ValType); err != nil {
			return err
		}

	case ir.OpcodeMemorySize:
		if !v.sig.HasMemory {
			return newError(v.funcIdx, offset, "memory.size: no memory declared")
		}
		v.pushVal(i32)

	case ir.OpcodeMemoryGrow:
		if !v.sig.HasMemory {
			return newError(v.funcIdx, offset, "memory.grow: no memory declared")
		}
		if _, err := v.popVal(offset, i32); err != nil {
			return err
		}
		v.pushVal(i32)

	case ir.OpcodeI32Const:
		v.pushVal(i32)
	case ir.OpcodeI64Const:
		v.pushVal(i64)
	case ir.OpcodeF32Const:
		v.pushVal(f32)
	case ir.OpcodeF64Const:
		v.pushVal(f64)

	case ir.OpcodeMemoryInit:
		if int32(ins.Index) > v.result.MaxDataSegmentIndex {
			v.result.MaxDataSegmentIndex = int32(ins.Index)
		}
		if err := v.popVals(offset, []ir.ValueType{i32, i32, i32}); err != nil {
			return err
		}
	case ir.OpcodeDataDrop:
		if int32(ins.Index) > v.result.MaxDataSegmentIndex {
			v.result.MaxDataSegmentIndex = int32(ins.Index)
		}
	case ir.OpcodeMemoryCopy, ir.OpcodeMemoryFill:
		if err := v.popVals(offset, []ir.ValueType{i32, i32, i32}); err != nil {
			return err
		}
	case ir.OpcodeTableInit, ir.OpcodeTableCopy:
		if err := v.popVals(offset, []ir.ValueType{i32, i32, i32}); err != nil {
			return err
		}
	case ir.OpcodeElemDrop:
		// no operand effect

	case ir.OpcodeI32Load, ir.OpcodeI32Load8S, ir.OpcodeI32Load8U, ir.OpcodeI32Load16S, ir.OpcodeI32Load16U:
		if err := v.memAccess(offset, i32); err != nil {
			return err
		}
	case ir.OpcodeI64Load, ir.OpcodeI64Load8S, ir.OpcodeI64Load8U, ir.OpcodeI64Load16S, ir.OpcodeI64Load16U, ir.OpcodeI64Load32S, ir.OpcodeI64Load32U:
		if err := v.memAccess(offset, i64); err != nil {
			return err
		}
	case ir.OpcodeF32Load:
		if err := v.memAccess(offset, f32); err != nil {
			return err
		}
	case ir.OpcodeF64Load:
		if err := v.memAccess(offset, f64); err != nil {
			return err
		}
	case ir.OpcodeI32Store, ir.OpcodeI32Store8, ir.OpcodeI32Store16:
		if err := v.memStore(offset, i32); err != nil {
			return err
		}
	case ir.OpcodeI64Store, ir.OpcodeI64Store8, ir.OpcodeI64Store16, ir.OpcodeI64Store32:
		if err := v.memStore(offset, i64); err != nil {
			return err
		}
	case ir.OpcodeF32Store:
		if err := v.memStore(offset, f32); err != nil {
			return err
		}
	case ir.OpcodeF64Store:
		if err := v.memStore(offset, f64); err != nil {
			return err
		}

	default:
		if err := v.stepNumeric(offset, op); err != nil {
			return err
		}
	}
	return v.checkStackLimit(offset)
}

func (v *validator) memAccess(offset int, result ir.ValueType) error {
	if !v.sig.HasMemory {
		return newError(v.funcIdx, offset, "memory access: no memory declared")
	}
	if _, err := v.popVal(offset, i32); err != nil {
		return err
	}
	v.pushVal(result)
	return nil
}

func (v *validator) memStore(offset int, valueType ir.ValueType) error {
	if !v.sig.HasMemory {
		return newError(v.funcIdx, offset, "memory access: no memory declared")
	}
	if _, err := v.popVal(offset, valueType); err != nil {
		return err
	}
	if _, err := v.popVal(offset, i32); err != nil {
		return err
	}
	return nil
}

func (v *validator) localType(offset int, idx ir.Index) (ir.ValueType, error) {
	if int(idx) >= len(v.locals) {
		return 0, newError(v.funcIdx, offset, "local index %d out of range", idx)
	}
	return v.locals[idx], nil
}

func (v *validator) globalType(offset int, idx ir.Index) (*ir.GlobalType, error) {
	if int(idx) >= len(v.sig.Globals) || v.sig.Globals[idx] == nil {
		return nil, newError(v.funcIdx, offset, "global index %d out of range", idx)
	}
	return v.sig.Globals[idx], nil
}

// stepNumeric handles every "pure" numeric/comparison/conversion
// instruction: a fixed operand arity, operand type, and result type
// entirely determined by the opcode, with no interaction with module
// state. Table-driven since there is no meaningful variation between the
// ~120 opcodes in this class beyond their (operand types, result type).
func (v *validator) stepNumeric(offset int, op ir.Opcode) error {
	sig, ok := numericSignatures[op]
	if !ok {
		return newError(v.funcIdx, offset, "unrecognized opcode 0x%x", byte(op))
	}
	if err := v.popVals(offset, sig.operands); err != nil {
		return err
	}
	v.pushVal(sig.result)
	return nil
}

type numericSig struct {
	operands []ir.ValueType
	result   ir.ValueType
}

func unary(t ir.ValueType) numericSig  { return numericSig{operands: []ir.ValueType{t}, result: t} }
func binary(t ir.ValueType) numericSig { return numericSig{operands: []ir.ValueType{t, t}, result: t} }
func test(t ir.ValueType) numericSig   { return numericSig{operands: []ir.ValueType{t}, result: i32} }
func rel(t ir.ValueType) numericSig    { return numericSig{operands: []ir.ValueType{t, t}, result: i32} }
func cvt(from, to ir.ValueType) numericSig {
	return numericSig{operands: []ir.ValueType{from}, result: to}
}

var numericSignatures = map[ir.Opcode]numericSig{
	ir.OpcodeI32Eqz: test(i32), ir.OpcodeI64Eqz: test(i64),

	ir.OpcodeI32Eq: rel(i32), ir.OpcodeI32Ne: rel(i32), ir.OpcodeI32LtS: rel(i32), ir.OpcodeI32LtU: rel(i32),
	ir.OpcodeI32GtS: rel(i32), ir.OpcodeI32GtU: rel(i32), ir.OpcodeI32LeS: rel(i32), ir.OpcodeI32LeU: rel(i32),
	ir.OpcodeI32GeS: rel(i32), ir.OpcodeI32GeU: rel(i32),

	ir.OpcodeI64Eq: rel(i64), ir.OpcodeI64Ne: rel(i64), ir.OpcodeI64LtS: rel(i64), ir.OpcodeI64LtU: rel(i64),
	ir.OpcodeI64GtS: rel(i64), ir.OpcodeI64GtU: rel(i64), ir.OpcodeI64LeS: rel(i64), ir.OpcodeI64LeU: rel(i64),
	ir.OpcodeI64GeS: rel(i64), ir.OpcodeI64GeU: rel(i64),

	ir.OpcodeF32Eq: rel(f32), ir.OpcodeF32Ne: rel(f32), ir.OpcodeF32Lt: rel(f32), ir.OpcodeF32Gt: rel(f32),
	ir.OpcodeF32Le: rel(f32), ir.OpcodeF32Ge: rel(f32),

	ir.OpcodeF64Eq: rel(f64), ir.OpcodeF64Ne: rel(f64), ir.OpcodeF64Lt: rel(f64), ir.OpcodeF64Gt: rel(f64),
	ir.OpcodeF64Le: rel(f64), ir.OpcodeF64Ge: rel(f64),

	ir.OpcodeI32Clz: unary(i32), ir.OpcodeI32Ctz: unary(i32), ir.OpcodeI32Popcnt: unary(i32),
	ir.OpcodeI32Add: binary(i32), ir.OpcodeI32Sub: binary(i32), ir.OpcodeI32Mul: binary(i32),
	ir.OpcodeI32DivS: binary(i32), ir.OpcodeI32DivU: binary(i32), ir.OpcodeI32RemS: binary(i32), ir.OpcodeI32RemU: binary(i32),
	ir.OpcodeI32And: binary(i32), ir.OpcodeI32Or: binary(i32), ir.OpcodeI32Xor: binary(i32),
	ir.OpcodeI32Shl: binary(i32), ir.OpcodeI32ShrS: binary(i32), ir.OpcodeI32ShrU: binary(i32),
	ir.OpcodeI32Rotl: binary(i32), ir.OpcodeI32Rotr: binary(i32),
	ir.OpcodeI32Extend8S: unary(i32), ir.OpcodeI32Extend16S: unary(i32),

	ir.OpcodeI64Clz: unary(i64), ir.OpcodeI64Ctz: unary(i64), ir.OpcodeI64Popcnt: unary(i64),
	ir.OpcodeI64Add: binary(i64), ir.OpcodeI64Sub: binary(i64), ir.OpcodeI64Mul: binary(i64),
	ir.OpcodeI64DivS: binary(i64), ir.OpcodeI64DivU: binary(i64), ir.OpcodeI64RemS: binary(i64), ir.OpcodeI64RemU: binary(i64),
	ir.OpcodeI64And: binary(i64), ir.OpcodeI64Or: binary(i64), ir.OpcodeI64Xor: binary(i64),
	ir.OpcodeI64Shl: binary(i64), ir.OpcodeI64ShrS: binary(i64), ir.OpcodeI64ShrU: binary(i64),
	ir.OpcodeI64Rotl: binary(i64), ir.OpcodeI64Rotr: binary(i64),
	ir.OpcodeI64Extend8S: unary(i64), ir.OpcodeI64Extend16S: unary(i64), ir.OpcodeI64Extend32S: unary(i64),

	ir.OpcodeF32Abs: unary(f32), ir.OpcodeF32Neg: unary(f32), ir.OpcodeF32Ceil: unary(f32), ir.OpcodeF32Floor: unary(f32),
	ir.OpcodeF32Trunc: unary(f32), ir.OpcodeF32Nearest: unary(f32), ir.OpcodeF32Sqrt: unary(f32),
	ir.OpcodeF32Add: binary(f32), ir.OpcodeF32Sub: binary(f32), ir.OpcodeF32Mul: binary(f32), ir.OpcodeF32Div: binary(f32),
	ir.OpcodeF32Min: binary(f32), ir.OpcodeF32Max: binary(f32), ir.OpcodeF32Copysign: binary(f32),

	ir.OpcodeF64Abs: unary(f64), ir.OpcodeF64Neg: unary(f64), ir.OpcodeF64Ceil: unary(f64), ir.OpcodeF64Floor: unary(f64),
	ir.OpcodeF64Trunc: unary(f64), ir.OpcodeF64Nearest: unary(f64), ir.OpcodeF64Sqrt: unary(f64),
	ir.OpcodeF64Add: binary(f64), ir.OpcodeF64Sub: binary(f64), ir.OpcodeF64Mul: binary(f64), ir.OpcodeF64Div: binary(f64),
	ir.OpcodeF64Min: binary(f64), ir.OpcodeF64Max: binary(f64), ir.OpcodeF64Copysign: binary(f64),

	ir.OpcodeI32WrapI64: cvt(i64, i32),
	ir.OpcodeI32TruncF32S: cvt(f32, i32), ir.OpcodeI32TruncF32U: cvt(f32, i32),
	ir.OpcodeI32TruncF64S: cvt(f64, i32), ir.OpcodeI32TruncF64U: cvt(f64, i32),
	ir.OpcodeI64ExtendI32S: cvt(i32, i64), ir.OpcodeI64ExtendI32U: cvt(i32, i64),
	ir.OpcodeI64TruncF32S: cvt(f32, i64), ir.OpcodeI64TruncF32U: cvt(f32, i64),
	ir.OpcodeI64TruncF64S: cvt(f64, i64), ir.OpcodeI64TruncF64U: cvt(f64, i64),
	ir.OpcodeF32ConvertI32S: cvt(i32, f32), ir.OpcodeF32ConvertI32U: cvt(i32, f32),
	ir.OpcodeF32ConvertI64S: cvt(i64, f32), ir.OpcodeF32ConvertI64U: cvt(i64, f32),
	ir.OpcodeF32DemoteF64: cvt(f64, f32),
	ir.OpcodeF64ConvertI32S: cvt(i32, f64), ir.OpcodeF64ConvertI32U: cvt(i32, f64),
	ir.OpcodeF64ConvertI64S: cvt(i64, f64), ir.OpcodeF64ConvertI64U: cvt(i64, f64),
	ir.OpcodeF64PromoteF32: cvt(f32, f64),
	ir.OpcodeI32ReinterpretF32: cvt(f32, i32), ir.OpcodeI64ReinterpretF64: cvt(f64, i64),
	ir.OpcodeF32ReinterpretI32: cvt(i32, f32), ir.OpcodeF64ReinterpretI64: cvt(i64, f64),
}
