package wast

import (
	"github.com/hack-chain/WAVM/internal/ir"
	"github.com/hack-chain/WAVM/internal/lexer"
)

// moduleBuilder accumulates the ir.Module under construction plus the
// per-namespace name tables a $name token resolves against. Fields are
// populated strictly in file order: a module field may only reference a
// $name bound by a field that appears earlier in the source.
type moduleBuilder struct {
	m *ir.Module

	typeNames   map[string]ir.Index
	funcNames   map[string]ir.Index
	tableNames  map[string]ir.Index
	memNames    map[string]ir.Index
	globalNames map[string]ir.Index
	tagNames    map[string]ir.Index
}

func newModuleBuilder() *moduleBuilder {
	return &moduleBuilder{
		m: &ir.Module{
			Exports: map[string]*ir.Export{},
		},
		typeNames:   map[string]ir.Index{},
		funcNames:   map[string]ir.Index{},
		tableNames:  map[string]ir.Index{},
		memNames:    map[string]ir.Index{},
		globalNames: map[string]ir.Index{},
		tagNames:    map[string]ir.Index{},
	}
}

func (p *parser) parseModule() (*ir.Module, error) {
	if err := p.expectLParen(); err != nil {
		return nil, err
	}
	if err := p.expectKeyword("module"); err != nil {
		return nil, err
	}
	p.maybeName() // an optional module name; this module has no use for it

	mb := newModuleBuilder()
	for !p.atRParen() {
		if err := p.parseModuleField(mb); err != nil {
			return nil, err
		}
	}
	if err := p.expectRParen(); err != nil {
		return nil, err
	}
	if p.cur().Type != lexer.TokenEOF {
		return nil, p.errorf("unexpected input after module")
	}
	return mb.m, nil
}

func (p *parser) parseModuleField(mb *moduleBuilder) error {
	if err := p.expectLParen(); err != nil {
		return err
	}
	kw := p.cur()
	if kw.Type != lexer.TokenName {
		return p.errorf("expected a module field keyword, got %q", kw.Text)
	}
	p.advance()
	var err error
	switch kw.Text {
	case "type":
		err = p.parseTypeField(mb)
	case "import":
		err = p.parseImportField(mb)
	case "func":
		err = p.parseFuncField(mb)
	case "table":
		err = p.parseTableField(mb)
	case "memory":
		err = p.parseMemoryField(mb)
	case "global":
		err = p.parseGlobalField(mb)
	case "tag":
		err = p.parseTagField(mb)
	case "export":
		err = p.parseExportField(mb)
	case "start":
		err = p.parseStartField(mb)
	case "elem":
		err = p.parseElemField(mb)
	case "data":
		err = p.parseDataField(mb)
	default:
		return p.errorf("unknown module field %q", kw.Text)
	}
	if err != nil {
		return err
	}
	return p.expectRParen()
}

// parseTypeField handles "(type $name? (func (param ...)* (result ...)*))".
func (p *parser) parseTypeField(mb *moduleBuilder) error {
	name := p.maybeName()
	if err := p.expectLParen(); err != nil {
		return err
	}
	if err := p.expectKeyword("func"); err != nil {
		return err
	}
	ft, _, err := p.parseParamsResults()
	if err != nil {
		return err
	}
	if err := p.expectRParen(); err != nil {
		return err
	}
	idx := ir.Index(len(mb.m.Types))
	mb.m.Types = append(mb.m.Types, ft)
	if name != "" {
		mb.typeNames[name] = idx
	}
	return nil
}

// parseInlineExports consumes zero or more leading "(export "name")"
// fields, registering each against idx under kind, and returns once the
// next field isn't an export.
func (p *parser) parseInlineExports(mb *moduleBuilder, kind ir.ExternKind, idx ir.Index) error {
	for {
		kw, ok := p.peekFieldKeyword()
		if !ok || kw != "export" {
			return nil
		}
		p.advance() // (
		p.advance() // export
		name, err := p.parseString()
		if err != nil {
			return err
		}
		if err := p.expectRParen(); err != nil {
			return err
		}
		mb.m.Exports[name] = &ir.Export{Kind: kind, Name: name, Index: idx}
	}
}

// parseImportField handles "(import "module" "name" (func|table|memory|
// global|tag $name? desc))".
func (p *parser) parseImportField(mb *moduleBuilder) error {
	modName, err := p.parseString()
	if err != nil {
		return err
	}
	field, err := p.parseString()
	if err != nil {
		return err
	}
	if err := p.expectLParen(); err != nil {
		return err
	}
	descKw := p.cur()
	if descKw.Type != lexer.TokenName {
		return p.errorf("expected an import description, got %q", descKw.Text)
	}
	p.advance()
	name := p.maybeName()

	imp := &ir.Import{Module: modName, Name: field}
	switch descKw.Text {
	case "func":
		imp.Kind = ir.ExternKindFunc
		typeIdx, _, _, err := p.parseTypeUse(mb)
		if err != nil {
			return err
		}
		imp.DescFunc = typeIdx
		idx := mb.m.Functions.Count()
		mb.m.Functions.ImportCount++
		if name != "" {
			mb.funcNames[name] = idx
		}
	case "table":
		imp.Kind = ir.ExternKindTable
		tt, err := p.parseTableType()
		if err != nil {
			return err
		}
		imp.DescTable = tt
		idx := mb.m.Tables.Count()
		mb.m.Tables.ImportType = tt
		if name != "" {
			mb.tableNames[name] = idx
		}
	case "memory":
		imp.Kind = ir.ExternKindMemory
		min, max, err := p.parseLimits()
		if err != nil {
			return err
		}
		mt := &ir.MemoryType{Min: min, Max: max}
		imp.DescMemory = mt
		idx := mb.m.Memories.Count()
		mb.m.Memories.ImportType = mt
		if name != "" {
			mb.memNames[name] = idx
		}
	case "global":
		imp.Kind = ir.ExternKindGlobal
		gt, err := p.parseGlobalType()
		if err != nil {
			return err
		}
		imp.DescGlobal = gt
		idx := mb.m.Globals.Count()
		mb.m.Globals.Imports = append(mb.m.Globals.Imports, gt)
		if name != "" {
			mb.globalNames[name] = idx
		}
	case "tag":
		imp.Kind = ir.ExternKindExceptionType
		et, err := p.parseExceptionType()
		if err != nil {
			return err
		}
		imp.DescTag = et
		idx := mb.m.Tags.Count()
		mb.m.Tags.Imports = append(mb.m.Tags.Imports, et)
		if name != "" {
			mb.tagNames[name] = idx
		}
	default:
		return p.errorf("unknown import description %q", descKw.Text)
	}
	if err := p.expectRParen(); err != nil {
		return err
	}
	mb.m.Imports = append(mb.m.Imports, imp)
	return nil
}

func (p *parser) parseTableType() (*ir.TableType, error) {
	min, max, err := p.parseLimits()
	if err != nil {
		return nil, err
	}
	elem, err := p.parseValueTypeTok()
	if err != nil {
		return nil, err
	}
	return &ir.TableType{ElemType: elem, Limits: ir.Limits{Min: min, Max: max}}, nil
}

func (p *parser) parseExceptionType() (*ir.ExceptionType, error) {
	ft, _, err := p.parseParamsResults()
	if err != nil {
		return nil, err
	}
	return &ir.ExceptionType{Params: ft.Params}, nil
}

// parseFuncField handles "(func $name? (export "x")* (type $t)?
// (param ...)* (result ...)* (local $n? type)* instr*)".
func (p *parser) parseFuncField(mb *moduleBuilder) error {
	idx := mb.m.Functions.Count()
	name := p.maybeName()
	if name != "" {
		mb.funcNames[name] = idx
	}
	if err := p.parseInlineExports(mb, ir.ExternKindFunc, idx); err != nil {
		return err
	}

	typeIdx, ft, paramNames, err := p.parseTypeUse(mb)
	if err != nil {
		return err
	}

	fb := &funcBuilder{params: len(ft.Params), locals: map[string]int{}}
	for i, n := range paramNames {
		if n != "" {
			fb.locals[n] = i
		}
	}
	for {
		kw, ok := p.peekFieldKeyword()
		if !ok || kw != "local" {
			break
		}
		p.advance() // (
		p.advance() // local
		lname := p.maybeName()
		if lname != "" {
			vt, err := p.parseValueTypeTok()
			if err != nil {
				return err
			}
			fb.locals[lname] = fb.params + len(fb.localTypes)
			fb.localTypes = append(fb.localTypes, vt)
		} else {
			for !p.atRParen() {
				vt, err := p.parseValueTypeTok()
				if err != nil {
					return err
				}
				fb.localTypes = append(fb.localTypes, vt)
			}
		}
		if err := p.expectRParen(); err != nil {
			return err
		}
	}

	body, err := p.parseInstrsUntilRParen(mb, fb)
	if err != nil {
		return err
	}
	body = append(body, ir.Instruction{Opcode: ir.OpcodeEnd})

	mb.m.Functions.Defs = append(mb.m.Functions.Defs, &ir.FunctionDef{
		TypeIndex:  typeIdx,
		LocalTypes: fb.localTypes,
		Body:       body,
	})
	return nil
}

func (p *parser) parseTableField(mb *moduleBuilder) error {
	idx := mb.m.Tables.Count()
	name := p.maybeName()
	if name != "" {
		mb.tableNames[name] = idx
	}
	if err := p.parseInlineExports(mb, ir.ExternKindTable, idx); err != nil {
		return err
	}

	// The elements-shorthand form "(table $name? funcref (elem $x $y ...))"
	// declares a table sized to its inline element list instead of giving
	// explicit limits; it is not needed by any module this parser targets
	// and is left unimplemented, matching the scope note in parser.go.
	tt, err := p.parseTableType()
	if err != nil {
		return err
	}
	mb.m.Tables.Defs = append(mb.m.Tables.Defs, tt)
	return nil
}

func (p *parser) parseMemoryField(mb *moduleBuilder) error {
	idx := mb.m.Memories.Count()
	name := p.maybeName()
	if name != "" {
		mb.memNames[name] = idx
	}
	if err := p.parseInlineExports(mb, ir.ExternKindMemory, idx); err != nil {
		return err
	}
	min, max, err := p.parseLimits()
	if err != nil {
		return err
	}
	mb.m.Memories.Defs = append(mb.m.Memories.Defs, &ir.MemoryType{Min: min, Max: max})
	return nil
}

func (p *parser) parseGlobalField(mb *moduleBuilder) error {
	idx := mb.m.Globals.Count()
	name := p.maybeName()
	if name != "" {
		mb.globalNames[name] = idx
	}
	if err := p.parseInlineExports(mb, ir.ExternKindGlobal, idx); err != nil {
		return err
	}
	gt, err := p.parseGlobalType()
	if err != nil {
		return err
	}
	init, err := p.parseConstExpr(mb)
	if err != nil {
		return err
	}
	mb.m.Globals.Defs = append(mb.m.Globals.Defs, &ir.GlobalDef{Type: gt, Init: init})
	return nil
}

func (p *parser) parseTagField(mb *moduleBuilder) error {
	idx := mb.m.Tags.Count()
	name := p.maybeName()
	if name != "" {
		mb.tagNames[name] = idx
	}
	if err := p.parseInlineExports(mb, ir.ExternKindExceptionType, idx); err != nil {
		return err
	}
	et, err := p.parseExceptionType()
	if err != nil {
		return err
	}
	mb.m.Tags.Defs = append(mb.m.Tags.Defs, et)
	return nil
}

func (p *parser) parseExportField(mb *moduleBuilder) error {
	name, err := p.parseString()
	if err != nil {
		return err
	}
	if err := p.expectLParen(); err != nil {
		return err
	}
	descKw := p.cur()
	if descKw.Type != lexer.TokenName {
		return p.errorf("expected an export description, got %q", descKw.Text)
	}
	p.advance()
	var kind ir.ExternKind
	var names map[string]ir.Index
	var label string
	switch descKw.Text {
	case "func":
		kind, names, label = ir.ExternKindFunc, mb.funcNames, "func"
	case "table":
		kind, names, label = ir.ExternKindTable, mb.tableNames, "table"
	case "memory":
		kind, names, label = ir.ExternKindMemory, mb.memNames, "memory"
	case "global":
		kind, names, label = ir.ExternKindGlobal, mb.globalNames, "global"
	case "tag":
		kind, names, label = ir.ExternKindExceptionType, mb.tagNames, "tag"
	default:
		return p.errorf("unknown export description %q", descKw.Text)
	}
	idx, err := p.parseIndexOrName(names, label)
	if err != nil {
		return err
	}
	if err := p.expectRParen(); err != nil {
		return err
	}
	mb.m.Exports[name] = &ir.Export{Kind: kind, Name: name, Index: idx}
	return nil
}

func (p *parser) parseStartField(mb *moduleBuilder) error {
	idx, err := p.parseIndexOrName(mb.funcNames, "func")
	if err != nil {
		return err
	}
	mb.m.StartFunctionIndex = &idx
	return nil
}

// parseOffsetExpr reads the "(offset const-expr)" wrapper element/data
// segments use for their active base offset, or the bare-const shorthand
// "(i32.const N)" some toolchains emit directly in its place.
func (p *parser) parseOffsetExpr(mb *moduleBuilder) (*ir.ConstantExpression, error) {
	if kw, ok := p.peekFieldKeyword(); ok && kw == "offset" {
		p.advance() // (
		p.advance() // offset
		ce, err := p.parseConstExpr(mb)
		if err != nil {
			return nil, err
		}
		return ce, p.expectRParen()
	}
	return p.parseBareConstExpr(mb)
}

// parseBareConstExpr parses a single folded const-expr instruction, i.e.
// "(i32.const N)" or "(global.get $g)", without an enclosing block.
func (p *parser) parseBareConstExpr(mb *moduleBuilder) (*ir.ConstantExpression, error) {
	if err := p.expectLParen(); err != nil {
		return nil, err
	}
	ce, err := p.parseConstExpr(mb)
	if err != nil {
		return nil, err
	}
	return ce, p.expectRParen()
}

func (p *parser) parseConstExpr(mb *moduleBuilder) (*ir.ConstantExpression, error) {
	kw := p.cur()
	if kw.Type != lexer.TokenName {
		return nil, p.errorf("expected a constant expression, got %q", kw.Text)
	}
	p.advance()
	switch kw.Text {
	case "i32.const":
		v, err := p.parseIntImm(32)
		if err != nil {
			return nil, err
		}
		return &ir.ConstantExpression{Opcode: ir.OpcodeI32Const, I32: int32(v)}, nil
	case "i64.const":
		v, err := p.parseIntImm(64)
		if err != nil {
			return nil, err
		}
		return &ir.ConstantExpression{Opcode: ir.OpcodeI64Const, I64: v}, nil
	case "f32.const":
		v, err := p.parseFloatImm(32)
		if err != nil {
			return nil, err
		}
		return &ir.ConstantExpression{Opcode: ir.OpcodeF32Const, F32: float32(v)}, nil
	case "f64.const":
		v, err := p.parseFloatImm(64)
		if err != nil {
			return nil, err
		}
		return &ir.ConstantExpression{Opcode: ir.OpcodeF64Const, F64: v}, nil
	case "global.get":
		idx, err := p.parseIndexOrName(mb.globalNames, "global")
		if err != nil {
			return nil, err
		}
		return &ir.ConstantExpression{Opcode: ir.OpcodeGlobalGet, GlobalIndex: idx}, nil
	case "ref.null":
		p.maybeHeapType()
		return &ir.ConstantExpression{Opcode: ir.OpcodeRefNull}, nil
	default:
		return nil, p.errorf("%q is not a valid constant expression", kw.Text)
	}
}

// maybeHeapType consumes ref.null's optional heap-type keyword ("func" or
// "extern"), which this module ignores: funcref is its only reference
// type, so the keyword carries no information the rest of the pipeline
// needs.
func (p *parser) maybeHeapType() {
	if p.cur().Type == lexer.TokenName && (p.cur().Text == "func" || p.cur().Text == "extern") {
		p.advance()
	}
}

// parseElemField handles both forms this module supports:
//
//	(elem (offset const-expr) $funcidx*)     ; active
//	(elem $funcidx*)                         ; passive
//
// Element segments are always addressed by numeric index elsewhere (memory.
// init/table.init/elem.drop never take a $name), matching the scope note
// documented on the package.
func (p *parser) parseElemField(mb *moduleBuilder) error {
	p.maybeName() // an optional segment name; never used to look up index.* operands
	seg := &ir.ElementSegment{TableIndex: 0}
	if kw, ok := p.peekFieldKeyword(); ok && (kw == "offset" || isConstKeyword(kw)) {
		offset, err := p.parseOffsetExpr(mb)
		if err != nil {
			return err
		}
		seg.Active = true
		seg.OffsetExpr = offset
	}
	for !p.atRParen() {
		idx, err := p.parseIndexOrName(mb.funcNames, "func")
		if err != nil {
			return err
		}
		seg.Init = append(seg.Init, idx)
	}
	mb.m.ElementSegments = append(mb.m.ElementSegments, seg)
	return nil
}

// parseDataField mirrors parseElemField for memory contents:
//
//	(data (offset const-expr) "bytes"*)      ; active
//	(data "bytes"*)                          ; passive
func (p *parser) parseDataField(mb *moduleBuilder) error {
	p.maybeName() // an optional segment name; never used to look up index.* operands
	seg := &ir.DataSegment{MemoryIndex: 0}
	if kw, ok := p.peekFieldKeyword(); ok && (kw == "offset" || isConstKeyword(kw)) {
		offset, err := p.parseOffsetExpr(mb)
		if err != nil {
			return err
		}
		seg.Active = true
		seg.OffsetExpr = offset
	}
	for p.cur().Type == lexer.TokenString {
		b, err := p.parseStringBytes()
		if err != nil {
			return err
		}
		seg.Init = append(seg.Init, b...)
	}
	mb.m.DataSegments = append(mb.m.DataSegments, seg)
	return nil
}

func isConstKeyword(kw string) bool {
	switch kw {
	case "i32.const", "i64.const", "f32.const", "f64.const", "global.get", "ref.null":
		return true
	default:
		return false
	}
}

// funcBuilder tracks the local-index namespace (parameters followed by
// declared locals) and label-name stack while parsing one function body.
type funcBuilder struct {
	params     int
	locals     map[string]int
	localTypes []ir.ValueType
}

func (fb *funcBuilder) resolveLocal(name string) (ir.Index, bool) {
	if idx, ok := fb.locals[name]; ok {
		return ir.Index(idx), true
	}
	return 0, false
}
