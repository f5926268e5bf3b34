package ir

import "math"

// Value is a single WebAssembly value, tagged by its ValueType. Shared
// between internal/validate's static types and the runtime/jit packages'
// dynamic values so the interpreter backend never needs to convert between
// two different "value" representations.
type Value struct {
	Type ValueType
	I32  int32
	I64  int64
	F32  float32
	F64  float64
}

func I32Value(v int32) Value { return Value{Type: ValueTypeI32, I32: v} }
func I64Value(v int64) Value { return Value{Type: ValueTypeI64, I64: v} }
func F32Value(v float32) Value { return Value{Type: ValueTypeF32, F32: v} }
func F64Value(v float64) Value { return Value{Type: ValueTypeF64, F64: v} }

// AsU32 reinterprets an i32 value's bits as unsigned, used by unsigned
// comparison and division operators.
func (v Value) AsU32() uint32 { return uint32(v.I32) }

// AsU64 reinterprets an i64 value's bits as unsigned.
func (v Value) AsU64() uint64 { return uint64(v.I64) }

// F32Bits and F64Bits expose the IEEE-754 bit pattern, used by the
// reinterpret instructions.
func F32Bits(bits uint32) float32 { return math.Float32frombits(bits) }
func F64Bits(bits uint64) float64 { return math.Float64frombits(bits) }
func F32ToBits(f float32) uint32  { return math.Float32bits(f) }
func F64ToBits(f float64) uint64  { return math.Float64bits(f) }
