package wast

import (
	"math"
	"strconv"
	"strings"

	"github.com/hack-chain/WAVM/internal/ir"
	"github.com/hack-chain/WAVM/internal/lexer"
)

// parseInstrsUntilRParen parses a function body (or any other instruction
// sequence that ends at its enclosing form's closing paren) starting with
// an empty label stack.
func (p *parser) parseInstrsUntilRParen(mb *moduleBuilder, fb *funcBuilder) ([]ir.Instruction, error) {
	c := &instrCtx{p: p, mb: mb, fb: fb}
	return c.parseUntil(func() bool { return p.atRParen() })
}

// instrCtx is the state threaded through instruction-list parsing: the
// enclosing module and function builders, plus the stack of active
// structured-control label names (innermost last), by which br/br_if/
// br_table resolve a $name operand to a relative depth.
type instrCtx struct {
	p      *parser
	mb     *moduleBuilder
	fb     *funcBuilder
	labels []string
}

func (c *instrCtx) parseUntil(done func() bool) ([]ir.Instruction, error) {
	var out []ir.Instruction
	for !done() {
		ins, err := c.parseOneInstr()
		if err != nil {
			return nil, err
		}
		out = append(out, ins...)
	}
	return out, nil
}

func (c *instrCtx) resolveLabel() (ir.Index, error) {
	p := c.p
	t := p.cur()
	if p.isID(t) {
		for i := len(c.labels) - 1; i >= 0; i-- {
			if c.labels[i] == t.Text {
				p.advance()
				return ir.Index(len(c.labels) - 1 - i), nil
			}
		}
		return 0, p.errorf("unknown label %s", t.Text)
	}
	if t.Type == lexer.TokenInt {
		n, err := strconv.ParseUint(t.Text, 0, 32)
		if err != nil {
			return 0, p.errorf("bad label index %q", t.Text)
		}
		p.advance()
		return ir.Index(n), nil
	}
	return 0, p.errorf("expected a label, got %q", t.Text)
}

// parseOneInstr parses exactly one source-level instruction, folded or
// flat, expanding it to the (possibly many) flat ir.Instruction values it
// represents: a folded instruction's operand sub-forms are emitted before
// the operator itself, and a structured flat instruction (block/loop/if)
// expands to its entire body including the terminating End.
func (c *instrCtx) parseOneInstr() ([]ir.Instruction, error) {
	p := c.p
	if p.atLParen() {
		return c.parseFoldedInstr()
	}
	return c.parseFlatInstr()
}

// parseFoldedInstr parses "(op operand-form* immediate*)", recursively
// expanding nested operand sub-forms before emitting op itself. block/
// loop/if take the folded form "(block label? blocktype body*)", handled
// separately since their body isn't a flat operand list.
func (c *instrCtx) parseFoldedInstr() ([]ir.Instruction, error) {
	p := c.p
	if err := p.expectLParen(); err != nil {
		return nil, err
	}
	kw := p.cur()
	if kw.Type != lexer.TokenName {
		return nil, p.errorf("expected an instruction, got %q", kw.Text)
	}

	switch kw.Text {
	case "block", "loop", "if":
		p.advance()
		out, err := c.parseStructuredBody(kw.Text, true)
		if err != nil {
			return nil, err
		}
		return out, p.expectRParen()
	}

	p.advance()
	spec, ok := instrTable[kw.Text]
	if !ok {
		return nil, p.errorf("unknown instruction %q", kw.Text)
	}
	ins, err := c.parseImmediate(spec)
	if err != nil {
		return nil, err
	}

	var operands []ir.Instruction
	for !p.atRParen() {
		sub, err := c.parseOneInstr()
		if err != nil {
			return nil, err
		}
		operands = append(operands, sub...)
	}
	if err := p.expectRParen(); err != nil {
		return nil, err
	}
	return append(operands, ins), nil
}

// parseFlatInstr parses a single bare-keyword instruction, not wrapped in
// parens. block/loop/if each expand to their entire structured body,
// terminated by a flat "else"/"end" keyword rather than a ')'.
func (c *instrCtx) parseFlatInstr() ([]ir.Instruction, error) {
	p := c.p
	kw := p.cur()
	if kw.Type != lexer.TokenName {
		return nil, p.errorf("expected an instruction, got %q", kw.Text)
	}
	switch kw.Text {
	case "block", "loop", "if":
		p.advance()
		return c.parseStructuredBody(kw.Text, false)
	}
	p.advance()
	spec, ok := instrTable[kw.Text]
	if !ok {
		return nil, p.errorf("unknown instruction %q", kw.Text)
	}
	ins, err := c.parseImmediate(spec)
	if err != nil {
		return nil, err
	}
	return []ir.Instruction{ins}, nil
}

// parseStructuredBody parses a block/loop/if's label, block type, and
// body, already past the leading keyword. folded selects between the two
// termination conventions: a folded body ends at ')'; a flat body ends at
// an "else"/"end" keyword, which this method consumes.
func (c *instrCtx) parseStructuredBody(kind string, folded bool) ([]ir.Instruction, error) {
	p := c.p
	label := p.maybeName()
	bt, err := c.parseBlockType()
	if err != nil {
		return nil, err
	}

	c.labels = append(c.labels, label)
	defer func() { c.labels = c.labels[:len(c.labels)-1] }()

	var opcode ir.Opcode
	switch kind {
	case "block":
		opcode = ir.OpcodeBlock
	case "loop":
		opcode = ir.OpcodeLoop
	case "if":
		opcode = ir.OpcodeIf
	}
	head := ir.Instruction{Opcode: opcode, Block: bt}

	if kind != "if" {
		body, err := c.parseBody(folded)
		if err != nil {
			return nil, err
		}
		out := append([]ir.Instruction{head}, body...)
		out = append(out, ir.Instruction{Opcode: ir.OpcodeEnd})
		return out, nil
	}

	// The folded form carries its condition as operand sub-forms between
	// the block type and the "(then ...)" clause; the flat form leaves the
	// condition to have already been pushed by preceding instructions.
	var cond []ir.Instruction
	if folded {
		for {
			kw, ok := p.peekFieldKeyword()
			if !ok || kw == "then" {
				break
			}
			sub, err := c.parseOneInstr()
			if err != nil {
				return nil, err
			}
			cond = append(cond, sub...)
		}
	}

	thenBody, elseBody, hasElse, err := c.parseIfThen(folded)
	if err != nil {
		return nil, err
	}
	out := append(cond, head)
	out = append(out, thenBody...)
	if hasElse {
		out = append(out, ir.Instruction{Opcode: ir.OpcodeElse})
		out = append(out, elseBody...)
	}
	out = append(out, ir.Instruction{Opcode: ir.OpcodeEnd})
	return out, nil
}

// parseBody parses a plain instruction sequence up to its terminator:
// ')' for a folded body, the "end" keyword for a flat one.
func (c *instrCtx) parseBody(folded bool) ([]ir.Instruction, error) {
	p := c.p
	if folded {
		body, err := c.parseUntil(func() bool { return p.atRParen() })
		return body, err
	}
	body, err := c.parseUntil(func() bool { return p.atKeyword("end") })
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("end"); err != nil {
		return nil, err
	}
	p.maybeName() // end $label is accepted and ignored
	return body, nil
}

// parseIfThen parses an if's then- and else-clauses. The folded form is
// "(then body*) (else body*)?"; the flat form is "body* (else body*)? end".
func (c *instrCtx) parseIfThen(folded bool) (thenBody, elseBody []ir.Instruction, hasElse bool, err error) {
	p := c.p
	if folded {
		if err := p.expectLParen(); err != nil {
			return nil, nil, false, err
		}
		if err := p.expectKeyword("then"); err != nil {
			return nil, nil, false, err
		}
		thenBody, err = c.parseUntil(func() bool { return p.atRParen() })
		if err != nil {
			return nil, nil, false, err
		}
		if err := p.expectRParen(); err != nil {
			return nil, nil, false, err
		}
		if kw, ok := p.peekFieldKeyword(); ok && kw == "else" {
			p.advance() // (
			p.advance() // else
			elseBody, err = c.parseUntil(func() bool { return p.atRParen() })
			if err != nil {
				return nil, nil, false, err
			}
			if err := p.expectRParen(); err != nil {
				return nil, nil, false, err
			}
			return thenBody, elseBody, true, nil
		}
		return thenBody, nil, false, nil
	}

	thenBody, err = c.parseUntil(func() bool { return p.atKeyword("else") || p.atKeyword("end") })
	if err != nil {
		return nil, nil, false, err
	}
	if p.atKeyword("else") {
		p.advance()
		p.maybeName()
		elseBody, err = c.parseUntil(func() bool { return p.atKeyword("end") })
		if err != nil {
			return nil, nil, false, err
		}
		if err := p.expectKeyword("end"); err != nil {
			return nil, nil, false, err
		}
		p.maybeName()
		return thenBody, elseBody, true, nil
	}
	if err := p.expectKeyword("end"); err != nil {
		return nil, nil, false, err
	}
	p.maybeName()
	return thenBody, nil, false, nil
}

// parseBlockType resolves a block/loop/if's optional "(type $t)" clause or
// inline (param...)(result...) fields into a BlockType, defaulting to the
// empty signature. FunctionTypeIndex is always set explicitly (to -1 for
// the plain-result-list forms) since the zero value would otherwise be
// indistinguishable from a real type index 0.
func (c *instrCtx) parseBlockType() (ir.BlockType, error) {
	p := c.p
	if kw, ok := p.peekFieldKeyword(); ok && kw == "type" {
		p.advance() // (
		p.advance() // type
		idx, err := p.parseIndexOrName(c.mb.typeNames, "type")
		if err != nil {
			return ir.BlockType{}, err
		}
		if err := p.expectRParen(); err != nil {
			return ir.BlockType{}, err
		}
		// A (type $t) block may still carry redundant inline param/result
		// fields; consume and discard them, trusting the named type.
		if _, _, err := p.parseParamsResults(); err != nil {
			return ir.BlockType{}, err
		}
		return ir.BlockType{FunctionTypeIndex: int64(idx)}, nil
	}
	ft, _, err := p.parseParamsResults()
	if err != nil {
		return ir.BlockType{}, err
	}
	if len(ft.Params) == 0 && len(ft.Results) <= 1 {
		return ir.BlockType{FunctionTypeIndex: -1, Results: ft.Results}, nil
	}
	idx := ir.Index(len(c.mb.m.Types))
	c.mb.m.Types = append(c.mb.m.Types, ft)
	return ir.BlockType{FunctionTypeIndex: int64(idx)}, nil
}

// immKind names the shape of a plain instruction's immediate operand(s),
// driving parseImmediate's dispatch.
type immKind int

const (
	immNone immKind = iota
	immLocalIdx
	immGlobalIdx
	immFuncIdx
	immLabelIdx
	immTypeUse
	immBrTable
	immI32Const
	immI64Const
	immF32Const
	immF64Const
	immMemArg
	immDataIdx
	immElemIdx
	immRefNull
)

type instrSpec struct {
	op  ir.Opcode
	imm immKind
	// natAlign is the natural alignment (log2 of the access width) used as
	// a load/store's default when no explicit align= attribute is given.
	// The interpreter never consults alignment for correctness, only this
	// parser needs a placeholder value to fill MemArg.Align with.
	natAlign uint32
}

func (c *instrCtx) parseImmediate(spec instrSpec) (ir.Instruction, error) {
	p := c.p
	ins := ir.Instruction{Opcode: spec.op}
	switch spec.imm {
	case immNone:
	case immLocalIdx:
		idx, err := c.parseLocalIdx()
		if err != nil {
			return ins, err
		}
		ins.Index = idx
	case immGlobalIdx:
		idx, err := p.parseIndexOrName(c.mb.globalNames, "global")
		if err != nil {
			return ins, err
		}
		ins.Index = idx
	case immFuncIdx:
		idx, err := p.parseIndexOrName(c.mb.funcNames, "func")
		if err != nil {
			return ins, err
		}
		ins.Index = idx
	case immLabelIdx:
		idx, err := c.resolveLabel()
		if err != nil {
			return ins, err
		}
		ins.Index = idx
	case immTypeUse:
		typeIdx, _, _, err := p.parseTypeUse(c.mb)
		if err != nil {
			return ins, err
		}
		ins.Index = typeIdx
	case immBrTable:
		var targets []ir.Index
		for p.isID(p.cur()) || p.cur().Type == lexer.TokenInt {
			idx, err := c.resolveLabel()
			if err != nil {
				return ins, err
			}
			targets = append(targets, idx)
		}
		if len(targets) == 0 {
			return ins, p.errorf("br_table needs at least one label")
		}
		ins.BrTableTargets = targets[:len(targets)-1]
		ins.Index = targets[len(targets)-1]
	case immI32Const:
		v, err := p.parseIntImm(32)
		if err != nil {
			return ins, err
		}
		ins.I32 = int32(v)
	case immI64Const:
		v, err := p.parseIntImm(64)
		if err != nil {
			return ins, err
		}
		ins.I64 = v
	case immF32Const:
		v, err := p.parseFloatImm(32)
		if err != nil {
			return ins, err
		}
		ins.F32 = float32(v)
	case immF64Const:
		v, err := p.parseFloatImm(64)
		if err != nil {
			return ins, err
		}
		ins.F64 = v
	case immMemArg:
		ma, err := p.parseMemArg(spec.natAlign)
		if err != nil {
			return ins, err
		}
		ins.MemArg = ma
	case immDataIdx:
		t := p.cur()
		if t.Type != lexer.TokenInt {
			return ins, p.errorf("expected a data segment index, got %q", t.Text)
		}
		n, err := strconv.ParseUint(t.Text, 0, 32)
		if err != nil {
			return ins, p.errorf("bad data segment index %q", t.Text)
		}
		p.advance()
		ins.Index = ir.Index(n)
	case immElemIdx:
		t := p.cur()
		if t.Type != lexer.TokenInt {
			return ins, p.errorf("expected an element segment index, got %q", t.Text)
		}
		n, err := strconv.ParseUint(t.Text, 0, 32)
		if err != nil {
			return ins, p.errorf("bad element segment index %q", t.Text)
		}
		p.advance()
		ins.Index = ir.Index(n)
	case immRefNull:
		p.maybeHeapType()
	}
	return ins, nil
}

func (c *instrCtx) parseLocalIdx() (ir.Index, error) {
	p := c.p
	t := p.cur()
	if p.isID(t) {
		idx, ok := c.fb.resolveLocal(t.Text)
		if !ok {
			return 0, p.errorf("unknown local %s", t.Text)
		}
		p.advance()
		return idx, nil
	}
	if t.Type == lexer.TokenInt {
		n, err := strconv.ParseUint(t.Text, 0, 32)
		if err != nil {
			return 0, p.errorf("bad local index %q", t.Text)
		}
		p.advance()
		return ir.Index(n), nil
	}
	return 0, p.errorf("expected a local index or name, got %q", t.Text)
}

func (p *parser) parseMemArg(natAlign uint32) (ir.MemArg, error) {
	ma := ir.MemArg{Align: natAlign}
	for p.cur().Type == lexer.TokenName {
		txt := p.cur().Text
		switch {
		case strings.HasPrefix(txt, "offset="):
			v, err := strconv.ParseUint(txt[len("offset="):], 0, 32)
			if err != nil {
				return ma, p.errorf("bad offset= attribute %q", txt)
			}
			ma.Offset = uint32(v)
			p.advance()
		case strings.HasPrefix(txt, "align="):
			v, err := strconv.ParseUint(txt[len("align="):], 0, 32)
			if err != nil {
				return ma, p.errorf("bad align= attribute %q", txt)
			}
			ma.Align = uint32(v)
			p.advance()
		default:
			return ma, nil
		}
	}
	return ma, nil
}

// parseIntImm parses an i32.const/i64.const immediate: a decimal integer
// literal, optionally signed. A 0x-prefixed literal lexes as a name and
// is rejected here.
func (p *parser) parseIntImm(bits int) (int64, error) {
	t := p.cur()
	if t.Type != lexer.TokenInt {
		return 0, p.errorf("expected an integer literal, got %q", t.Text)
	}
	p.advance()
	v, err := strconv.ParseInt(t.Text, 0, bits)
	if err != nil {
		// Wrap around on unsigned-looking literals (e.g. "4294967295" for
		// an i32), matching the text format's "either signed or unsigned
		// spelling is accepted" convention.
		uv, uerr := strconv.ParseUint(t.Text, 0, bits)
		if uerr != nil {
			return 0, p.errorf("bad integer literal %q", t.Text)
		}
		if bits == 32 {
			return int64(int32(uint32(uv))), nil
		}
		return int64(uv), nil
	}
	return v, nil
}

// parseFloatImm parses an f32.const/f64.const immediate, handling the
// bare nan/inf spellings the lexer hands back as TokenName rather than
// TokenFloat. The nan:0x<payload> form is not supported.
func (p *parser) parseFloatImm(bits int) (float64, error) {
	t := p.cur()
	switch t.Type {
	case lexer.TokenFloat, lexer.TokenInt:
		p.advance()
		v, err := strconv.ParseFloat(t.Text, bits)
		if err != nil {
			return 0, p.errorf("bad float literal %q", t.Text)
		}
		return v, nil
	case lexer.TokenName:
		p.advance()
		switch t.Text {
		case "nan", "+nan":
			if bits == 32 {
				return float64(math.Float32frombits(0x7fc00000)), nil
			}
			return math.NaN(), nil
		case "-nan":
			if bits == 32 {
				return float64(math.Float32frombits(0xffc00000)), nil
			}
			return math.Float64frombits(0xfff8000000000000), nil
		case "inf", "+inf":
			return math.Inf(1), nil
		case "-inf":
			return math.Inf(-1), nil
		default:
			return 0, p.errorf("bad float literal %q", t.Text)
		}
	default:
		return 0, p.errorf("expected a float literal, got %q", t.Text)
	}
}

// instrTable maps every plain (non structured-control) keyword to its
// opcode and immediate shape. block/loop/if/else/end are handled outside
// this table by parseStructuredBody since their grammar isn't a flat
// immediate list.
var instrTable = map[string]instrSpec{
	"unreachable": {ir.OpcodeUnreachable, immNone, 0},
	"nop":         {ir.OpcodeNop, immNone, 0},
	"return":      {ir.OpcodeReturn, immNone, 0},
	"drop":        {ir.OpcodeDrop, immNone, 0},
	"select":      {ir.OpcodeSelect, immNone, 0},

	"br":            {ir.OpcodeBr, immLabelIdx, 0},
	"br_if":         {ir.OpcodeBrIf, immLabelIdx, 0},
	"br_table":      {ir.OpcodeBrTable, immBrTable, 0},
	"call":          {ir.OpcodeCall, immFuncIdx, 0},
	"call_indirect": {ir.OpcodeCallIndirect, immTypeUse, 0},

	"local.get":  {ir.OpcodeLocalGet, immLocalIdx, 0},
	"local.set":  {ir.OpcodeLocalSet, immLocalIdx, 0},
	"local.tee":  {ir.OpcodeLocalTee, immLocalIdx, 0},
	"global.get": {ir.OpcodeGlobalGet, immGlobalIdx, 0},
	"global.set": {ir.OpcodeGlobalSet, immGlobalIdx, 0},

	"memory.size": {ir.OpcodeMemorySize, immNone, 0},
	"memory.grow": {ir.OpcodeMemoryGrow, immNone, 0},
	"memory.copy": {ir.OpcodeMemoryCopy, immNone, 0},
	"memory.fill": {ir.OpcodeMemoryFill, immNone, 0},
	"memory.init": {ir.OpcodeMemoryInit, immDataIdx, 0},
	"data.drop":   {ir.OpcodeDataDrop, immDataIdx, 0},
	"table.init":  {ir.OpcodeTableInit, immElemIdx, 0},
	"table.copy":  {ir.OpcodeTableCopy, immNone, 0},
	"elem.drop":   {ir.OpcodeElemDrop, immElemIdx, 0},

	"ref.null":    {ir.OpcodeRefNull, immRefNull, 0},
	"ref.is_null": {ir.OpcodeRefIsNull, immNone, 0},
	"ref.func":    {ir.OpcodeRefFunc, immFuncIdx, 0},

	"i32.const": {ir.OpcodeI32Const, immI32Const, 0},
	"i64.const": {ir.OpcodeI64Const, immI64Const, 0},
	"f32.const": {ir.OpcodeF32Const, immF32Const, 0},
	"f64.const": {ir.OpcodeF64Const, immF64Const, 0},

	"i32.load":    {ir.OpcodeI32Load, immMemArg, 2},
	"i64.load":    {ir.OpcodeI64Load, immMemArg, 3},
	"f32.load":    {ir.OpcodeF32Load, immMemArg, 2},
	"f64.load":    {ir.OpcodeF64Load, immMemArg, 3},
	"i32.load8_s":  {ir.OpcodeI32Load8S, immMemArg, 0},
	"i32.load8_u":  {ir.OpcodeI32Load8U, immMemArg, 0},
	"i32.load16_s": {ir.OpcodeI32Load16S, immMemArg, 1},
	"i32.load16_u": {ir.OpcodeI32Load16U, immMemArg, 1},
	"i64.load8_s":  {ir.OpcodeI64Load8S, immMemArg, 0},
	"i64.load8_u":  {ir.OpcodeI64Load8U, immMemArg, 0},
	"i64.load16_s": {ir.OpcodeI64Load16S, immMemArg, 1},
	"i64.load16_u": {ir.OpcodeI64Load16U, immMemArg, 1},
	"i64.load32_s": {ir.OpcodeI64Load32S, immMemArg, 2},
	"i64.load32_u": {ir.OpcodeI64Load32U, immMemArg, 2},
	"i32.store":    {ir.OpcodeI32Store, immMemArg, 2},
	"i64.store":    {ir.OpcodeI64Store, immMemArg, 3},
	"f32.store":    {ir.OpcodeF32Store, immMemArg, 2},
	"f64.store":    {ir.OpcodeF64Store, immMemArg, 3},
	"i32.store8":   {ir.OpcodeI32Store8, immMemArg, 0},
	"i32.store16":  {ir.OpcodeI32Store16, immMemArg, 1},
	"i64.store8":   {ir.OpcodeI64Store8, immMemArg, 0},
	"i64.store16":  {ir.OpcodeI64Store16, immMemArg, 1},
	"i64.store32":  {ir.OpcodeI64Store32, immMemArg, 2},

	"i32.eqz": {ir.OpcodeI32Eqz, immNone, 0}, "i32.eq": {ir.OpcodeI32Eq, immNone, 0},
	"i32.ne": {ir.OpcodeI32Ne, immNone, 0}, "i32.lt_s": {ir.OpcodeI32LtS, immNone, 0},
	"i32.lt_u": {ir.OpcodeI32LtU, immNone, 0}, "i32.gt_s": {ir.OpcodeI32GtS, immNone, 0},
	"i32.gt_u": {ir.OpcodeI32GtU, immNone, 0}, "i32.le_s": {ir.OpcodeI32LeS, immNone, 0},
	"i32.le_u": {ir.OpcodeI32LeU, immNone, 0}, "i32.ge_s": {ir.OpcodeI32GeS, immNone, 0},
	"i32.ge_u": {ir.OpcodeI32GeU, immNone, 0},

	"i64.eqz": {ir.OpcodeI64Eqz, immNone, 0}, "i64.eq": {ir.OpcodeI64Eq, immNone, 0},
	"i64.ne": {ir.OpcodeI64Ne, immNone, 0}, "i64.lt_s": {ir.OpcodeI64LtS, immNone, 0},
	"i64.lt_u": {ir.OpcodeI64LtU, immNone, 0}, "i64.gt_s": {ir.OpcodeI64GtS, immNone, 0},
	"i64.gt_u": {ir.OpcodeI64GtU, immNone, 0}, "i64.le_s": {ir.OpcodeI64LeS, immNone, 0},
	"i64.le_u": {ir.OpcodeI64LeU, immNone, 0}, "i64.ge_s": {ir.OpcodeI64GeS, immNone, 0},
	"i64.ge_u": {ir.OpcodeI64GeU, immNone, 0},

	"f32.eq": {ir.OpcodeF32Eq, immNone, 0}, "f32.ne": {ir.OpcodeF32Ne, immNone, 0},
	"f32.lt": {ir.OpcodeF32Lt, immNone, 0}, "f32.gt": {ir.OpcodeF32Gt, immNone, 0},
	"f32.le": {ir.OpcodeF32Le, immNone, 0}, "f32.ge": {ir.OpcodeF32Ge, immNone, 0},

	"f64.eq": {ir.OpcodeF64Eq, immNone, 0}, "f64.ne": {ir.OpcodeF64Ne, immNone, 0},
	"f64.lt": {ir.OpcodeF64Lt, immNone, 0}, "f64.gt": {ir.OpcodeF64Gt, immNone, 0},
	"f64.le": {ir.OpcodeF64Le, immNone, 0}, "f64.ge": {ir.OpcodeF64Ge, immNone, 0},

	"i32.clz": {ir.OpcodeI32Clz, immNone, 0}, "i32.ctz": {ir.OpcodeI32Ctz, immNone, 0},
	"i32.popcnt": {ir.OpcodeI32Popcnt, immNone, 0}, "i32.add": {ir.OpcodeI32Add, immNone, 0},
	"i32.sub": {ir.OpcodeI32Sub, immNone, 0}, "i32.mul": {ir.OpcodeI32Mul, immNone, 0},
	"i32.div_s": {ir.OpcodeI32DivS, immNone, 0}, "i32.div_u": {ir.OpcodeI32DivU, immNone, 0},
	"i32.rem_s": {ir.OpcodeI32RemS, immNone, 0}, "i32.rem_u": {ir.OpcodeI32RemU, immNone, 0},
	"i32.and": {ir.OpcodeI32And, immNone, 0}, "i32.or": {ir.OpcodeI32Or, immNone, 0},
	"i32.xor": {ir.OpcodeI32Xor, immNone, 0}, "i32.shl": {ir.OpcodeI32Shl, immNone, 0},
	"i32.shr_s": {ir.OpcodeI32ShrS, immNone, 0}, "i32.shr_u": {ir.OpcodeI32ShrU, immNone, 0},
	"i32.rotl": {ir.OpcodeI32Rotl, immNone, 0}, "i32.rotr": {ir.OpcodeI32Rotr, immNone, 0},

	"i64.clz": {ir.OpcodeI64Clz, immNone, 0}, "i64.ctz": {ir.OpcodeI64Ctz, immNone, 0},
	"i64.popcnt": {ir.OpcodeI64Popcnt, immNone, 0}, "i64.add": {ir.OpcodeI64Add, immNone, 0},
	"i64.sub": {ir.OpcodeI64Sub, immNone, 0}, "i64.mul": {ir.OpcodeI64Mul, immNone, 0},
	"i64.div_s": {ir.OpcodeI64DivS, immNone, 0}, "i64.div_u": {ir.OpcodeI64DivU, immNone, 0},
	"i64.rem_s": {ir.OpcodeI64RemS, immNone, 0}, "i64.rem_u": {ir.OpcodeI64RemU, immNone, 0},
	"i64.and": {ir.OpcodeI64And, immNone, 0}, "i64.or": {ir.OpcodeI64Or, immNone, 0},
	"i64.xor": {ir.OpcodeI64Xor, immNone, 0}, "i64.shl": {ir.OpcodeI64Shl, immNone, 0},
	"i64.shr_s": {ir.OpcodeI64ShrS, immNone, 0}, "i64.shr_u": {ir.OpcodeI64ShrU, immNone, 0},
	"i64.rotl": {ir.OpcodeI64Rotl, immNone, 0}, "i64.rotr": {ir.OpcodeI64Rotr, immNone, 0},

	"f32.abs": {ir.OpcodeF32Abs, immNone, 0}, "f32.neg": {ir.OpcodeF32Neg, immNone, 0},
	"f32.ceil": {ir.OpcodeF32Ceil, immNone, 0}, "f32.floor": {ir.OpcodeF32Floor, immNone, 0},
	"f32.trunc": {ir.OpcodeF32Trunc, immNone, 0}, "f32.nearest": {ir.OpcodeF32Nearest, immNone, 0},
	"f32.sqrt": {ir.OpcodeF32Sqrt, immNone, 0}, "f32.add": {ir.OpcodeF32Add, immNone, 0},
	"f32.sub": {ir.OpcodeF32Sub, immNone, 0}, "f32.mul": {ir.OpcodeF32Mul, immNone, 0},
	"f32.div": {ir.OpcodeF32Div, immNone, 0}, "f32.min": {ir.OpcodeF32Min, immNone, 0},
	"f32.max": {ir.OpcodeF32Max, immNone, 0}, "f32.copysign": {ir.OpcodeF32Copysign, immNone, 0},

	"f64.abs": {ir.OpcodeF64Abs, immNone, 0}, "f64.neg": {ir.OpcodeF64Neg, immNone, 0},
	"f64.ceil": {ir.OpcodeF64Ceil, immNone, 0}, "f64.floor": {ir.OpcodeF64Floor, immNone, 0},
	"f64.trunc": {ir.OpcodeF64Trunc, immNone, 0}, "f64.nearest": {ir.OpcodeF64Nearest, immNone, 0},
	"f64.sqrt": {ir.OpcodeF64Sqrt, immNone, 0}, "f64.add": {ir.OpcodeF64Add, immNone, 0},
	"f64.sub": {ir.OpcodeF64Sub, immNone, 0}, "f64.mul": {ir.OpcodeF64Mul, immNone, 0},
	"f64.div": {ir.OpcodeF64Div, immNone, 0}, "f64.min": {ir.OpcodeF64Min, immNone, 0},
	"f64.max": {ir.OpcodeF64Max, immNone, 0}, "f64.copysign": {ir.OpcodeF64Copysign, immNone, 0},

	"i32.wrap_i64":     {ir.OpcodeI32WrapI64, immNone, 0},
	"i32.trunc_f32_s":  {ir.OpcodeI32TruncF32S, immNone, 0},
	"i32.trunc_f32_u":  {ir.OpcodeI32TruncF32U, immNone, 0},
	"i32.trunc_f64_s":  {ir.OpcodeI32TruncF64S, immNone, 0},
	"i32.trunc_f64_u":  {ir.OpcodeI32TruncF64U, immNone, 0},
	"i64.extend_i32_s": {ir.OpcodeI64ExtendI32S, immNone, 0},
	"i64.extend_i32_u": {ir.OpcodeI64ExtendI32U, immNone, 0},
	"i64.trunc_f32_s":  {ir.OpcodeI64TruncF32S, immNone, 0},
	"i64.trunc_f32_u":  {ir.OpcodeI64TruncF32U, immNone, 0},
	"i64.trunc_f64_s":  {ir.OpcodeI64TruncF64S, immNone, 0},
	"i64.trunc_f64_u":  {ir.OpcodeI64TruncF64U, immNone, 0},
	"f32.convert_i32_s": {ir.OpcodeF32ConvertI32S, immNone, 0},
	"f32.convert_i32_u": {ir.OpcodeF32ConvertI32U, immNone, 0},
	"f32.convert_i64_s": {ir.OpcodeF32ConvertI64S, immNone, 0},
	"f32.convert_i64_u": {ir.OpcodeF32ConvertI64U, immNone, 0},
	"f32.demote_f64":    {ir.OpcodeF32DemoteF64, immNone, 0},
	"f64.convert_i32_s": {ir.OpcodeF64ConvertI32S, immNone, 0},
	"f64.convert_i32_u": {ir.OpcodeF64ConvertI32U, immNone, 0},
	"f64.convert_i64_s": {ir.OpcodeF64ConvertI64S, immNone, 0},
	"f64.convert_i64_u": {ir.OpcodeF64ConvertI64U, immNone, 0},
	"f64.promote_f32":   {ir.OpcodeF64PromoteF32, immNone, 0},
	"i32.reinterpret_f32": {ir.OpcodeI32ReinterpretF32, immNone, 0},
	"i64.reinterpret_f64": {ir.OpcodeI64ReinterpretF64, immNone, 0},
	"f32.reinterpret_i32": {ir.OpcodeF32ReinterpretI32, immNone, 0},
	"f64.reinterpret_i64": {ir.OpcodeF64ReinterpretI64, immNone, 0},

	"i32.extend8_s":  {ir.OpcodeI32Extend8S, immNone, 0},
	"i32.extend16_s": {ir.OpcodeI32Extend16S, immNone, 0},
	"i64.extend8_s":  {ir.OpcodeI64Extend8S, immNone, 0},
	"i64.extend16_s": {ir.OpcodeI64Extend16S, immNone, 0},
	"i64.extend32_s": {ir.OpcodeI64Extend32S, immNone, 0},
}
