package validate

import (
	"github.com/hack-chain/WAVM/internal/ir"
)

// Signature is the cross-function context a ValidateFunction call needs to
// resolve operands that reference other index namespaces: other functions
// (for call), globals (for global.get/set), and the module's declared
// table/memory presence (for the handful of instructions gated on their
// existence rather than their exact limits).
type Signature struct {
	Types         []*ir.FunctionType // module.Types, indexed by TypeIndex
	FunctionTypes []*ir.FunctionType // one entry per function index namespace slot
	Globals       []*ir.GlobalType   // one entry per global index namespace slot
	HasMemory     bool
	HasTable      bool
	// MaxStackValues bounds the operand stack depth a single function may
	// reach; 0 means unbounded. Mirrors spec.md's configurable resource
	// limit, enforced the same way a real embedder caps parse-time
	// recursion depth.
	MaxStackValues int
}

// FunctionResult carries state produced by validation that later passes
// need but which genuinely cannot be checked until the whole module is
// known. Per spec.md 4.2's "Deferred checks" paragraph (and DESIGN.md's
// resolution of Open Question (a)), this is limited to the highest
// literal data-segment index referenced by a memory.init/data.drop in this
// function, which a single-function pass cannot yet bound against the
// module's actual number of data segments.
type FunctionResult struct {
	MaxDataSegmentIndex int32 // -1 if the function references none
}

type validator struct {
	funcIdx  uint32
	sig      *Signature
	locals   []ir.ValueType // params followed by declared locals
	operands []stackValue
	frames   frameStack
	result   FunctionResult
}

// ValidateFunction type-checks a single function body against sig, in the
// manner of WebAssembly's reference validation algorithm: an operand stack
// of abstract types plus a control-frame stack, with "unknown" operand
// slots standing in for the stack-polymorphic region after an
// unconditional transfer of control.
func ValidateFunction(funcIdx uint32, functype *ir.FunctionType, localTypes []ir.ValueType, body []ir.Instruction, sig *Signature) (*FunctionResult, error) {
	v := &validator{
		funcIdx: funcIdx,
		sig:     sig,
		result:  FunctionResult{MaxDataSegmentIndex: -1},
	}
	v.locals = append(append([]ir.ValueType{}, functype.Params...), localTypes...)
	v.frames.push(controlFrame{startTypes: nil, endTypes: functype.Results})

	for i, ins := range body {
		if err := v.step(i, ins); err != nil {
			return nil, err
		}
	}

	if v.frames.depth() != 0 {
		return nil, newError(funcIdx, len(body), "function body missing end")
	}
	return &v.result, nil
}

func (v *validator) pushVal(t ir.ValueType) {
	v.operands = append(v.operands, stackValue{typ: t})
}

func (v *validator) pushUnknown() {
	v.operands = append(v.operands, stackValue{unknown: true})
}

func (v *validator) pushVals(ts []ir.ValueType) {
	for _, t := range ts {
		v.pushVal(t)
	}
}

// popVal pops one operand, requiring it match want unless the current
// frame is unreachable (in which case missing/mismatched operands are
// synthesized as unknown, matching the spec's polymorphic stack rule).
func (v *validator) popVal(offset int, want ir.ValueType) (ir.ValueType, error) {
	frame := v.frames.top()
	if len(v.operands) == frame.height {
		if frame.unreachable {
			return want, nil
		}
		return 0, newError(v.funcIdx, offset, "operand stack underflow, expected %s", want)
	}
	top := v.operands[len(v.operands)-1]
	v.operands = v.operands[:len(v.operands)-1]
	if top.unknown {
		return want, nil
	}
	if top.typ != want {
		return 0, newError(v.funcIdx, offset, "type mismatch: expected %s, got %s", want, top.typ)
	}
	return top.typ, nil
}

// popAny pops one operand of any type, used by drop/select's first operand.
func (v *validator) popAny(offset int) (ir.ValueType, error) {
	frame := v.frames.top()
	if len(v.operands) == frame.height {
		if frame.unreachable {
			return 0, nil
		}
		return 0, newError(v.funcIdx, offset, "operand stack underflow")
	}
	top := v.operands[len(v.operands)-1]
	v.operands = v.operands[:len(v.operands)-1]
	return top.typ, nil
}

func (v *validator) popVals(offset int, ts []ir.ValueType) error {
	for i := len(ts) - 1; i >= 0; i-- {
		if _, err := v.popVal(offset, ts[i]); err != nil {
			return err
		}
	}
	return nil
}

// setUnreachable discards every operand pushed since the current frame
// began and marks it polymorphic: the spec's rule for the code following
// an instruction that unconditionally transfers control (unreachable, br,
// return).
func (v *validator) setUnreachable() {
	frame := v.frames.top()
	v.operands = v.operands[:frame.height]
	frame.unreachable = true
}

func (v *validator) checkStackLimit(offset int) error {
	if v.sig.MaxStackValues > 0 && len(v.operands) > v.sig.MaxStackValues {
		return newError(v.funcIdx, offset, "operand stack exceeds maximum of %d values", v.sig.MaxStackValues)
	}
	return nil
}

func (v *validator) blockParamResultTypes(b ir.BlockType) ([]ir.ValueType, []ir.ValueType, error) {
	if b.FunctionTypeIndex >= 0 {
		idx := int(b.FunctionTypeIndex)
		if idx >= len(v.sig.Types) {
			return nil, nil, newError(v.funcIdx, 0, "block type index %d out of range", idx)
		}
		ft := v.sig.Types[idx]
		return ft.Params, ft.Results, nil
	}
	return b.Params, b.Results, nil
}
