// Package wast implements text.Parser over internal/lexer's token stream: a
// minimal recursive-descent reader for the WebAssembly text format, enough
// to parse the literal modules spec.md §8 describes and hand-written
// module fixtures in tests.
//
// Grounded on internal/lexer (this module) for tokens and on the shape of
// the teacher's own internal/wasm/text package (module field dispatch by
// keyword, a typeUse clause shared between (type ...) and func/call_indirect
// signatures) without following its continuation-passing state-machine
// style line for line.
//
// Scope, documented rather than silently assumed: module fields must be
// declared before any reference to their $name (no forward references);
// data and element segments are referred to only by numeric index, never
// by name; ref.null's optional heap-type keyword is accepted and ignored
// (funcref is this module's only reference type); float literals use
// ordinary decimal or the bare nan/inf spellings. Hex floats and the
// nan:0x... payload form are rejected, since the lexer hands any 0x...
// token back as a name.
package wast

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hack-chain/WAVM/internal/ir"
	"github.com/hack-chain/WAVM/internal/lexer"
	"github.com/hack-chain/WAVM/text"
)

// Parser is the stock text.Parser implementation.
type Parser struct{}

func New() *Parser { return &Parser{} }

func (p *Parser) Parse(source []byte) (*ir.Module, []text.SyntaxError) {
	lx := lexer.NewLexer()
	ps := &parser{src: source, toks: lx.Tokenize(source)}
	m, err := ps.parseModule()
	if err != nil {
		if se, ok := err.(*parseError); ok {
			return nil, []text.SyntaxError{se.SyntaxError}
		}
		return nil, []text.SyntaxError{{Message: err.Error()}}
	}
	return m, nil
}

type parseError struct{ text.SyntaxError }

func (e *parseError) Error() string { return e.Message }

// parser is a cursor over a token stream plus the position helpers every
// field parser needs. moduleBuilder (see module.go) carries the
// accumulated module state and name tables; parser carries none of that,
// so it can be reused unchanged by instruction parsing.
type parser struct {
	src  []byte
	toks []lexer.Token
	pos  int
}

func (p *parser) cur() lexer.Token { return p.toks[p.pos] }

func (p *parser) advance() lexer.Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) errorf(format string, args ...any) error {
	t := p.cur()
	loc := lexer.LocusFromOffset(p.src, t.Offset)
	return &parseError{text.SyntaxError{
		Offset:  t.Offset,
		Line:    loc.Line,
		Column:  loc.Column,
		Message: fmt.Sprintf(format, args...),
	}}
}

func (p *parser) atLParen() bool { return p.cur().Type == lexer.TokenLeftParen }
func (p *parser) atRParen() bool { return p.cur().Type == lexer.TokenRightParen }

func (p *parser) expectLParen() error {
	if !p.atLParen() {
		return p.errorf("expected '(', got %q", p.cur().Text)
	}
	p.advance()
	return nil
}

func (p *parser) expectRParen() error {
	if !p.atRParen() {
		return p.errorf("expected ')', got %q", p.cur().Text)
	}
	p.advance()
	return nil
}

func (p *parser) atKeyword(kw string) bool {
	return p.cur().Type == lexer.TokenName && p.cur().Text == kw
}

func (p *parser) expectKeyword(kw string) error {
	if !p.atKeyword(kw) {
		return p.errorf("expected %q, got %q", kw, p.cur().Text)
	}
	p.advance()
	return nil
}

// peekFieldKeyword reports the keyword of the field starting at the next
// '(', without consuming anything: used to decide, e.g., whether the next
// paren in a func body opens a (param), (local), (export), or an
// instruction.
func (p *parser) peekFieldKeyword() (string, bool) {
	if p.cur().Type != lexer.TokenLeftParen {
		return "", false
	}
	next := p.toks[p.pos+1]
	if next.Type != lexer.TokenName {
		return "", false
	}
	return next.Text, true
}

func (p *parser) isID(t lexer.Token) bool {
	return t.Type == lexer.TokenName && strings.HasPrefix(t.Text, "$")
}

func (p *parser) maybeName() string {
	if p.isID(p.cur()) {
		return p.advance().Text
	}
	return ""
}

func (p *parser) parseValueTypeTok() (ir.ValueType, error) {
	t := p.cur()
	if t.Type != lexer.TokenName {
		return 0, p.errorf("expected a value type, got %q", t.Text)
	}
	p.advance()
	switch t.Text {
	case "i32":
		return ir.ValueTypeI32, nil
	case "i64":
		return ir.ValueTypeI64, nil
	case "f32":
		return ir.ValueTypeF32, nil
	case "f64":
		return ir.ValueTypeF64, nil
	case "funcref", "anyfunc":
		return ir.ValueTypeFuncref, nil
	default:
		return 0, p.errorf("unknown value type %q", t.Text)
	}
}

func (p *parser) parseString() (string, error) {
	t := p.cur()
	if t.Type != lexer.TokenString {
		return "", p.errorf("expected a string literal, got %q", t.Text)
	}
	p.advance()
	b, err := decodeWatString(t.Text)
	if err != nil {
		return "", p.errorf("%s", err)
	}
	return string(b), nil
}

func (p *parser) parseStringBytes() ([]byte, error) {
	t := p.cur()
	if t.Type != lexer.TokenString {
		return nil, p.errorf("expected a string literal, got %q", t.Text)
	}
	p.advance()
	b, err := decodeWatString(t.Text)
	if err != nil {
		return nil, p.errorf("%s", err)
	}
	return b, nil
}

// decodeWatString decodes a WAT string literal's raw source text
// (including its surrounding quotes) into its byte value, handling the
// \n \t \r \\ \' \" and \xx hex-byte escapes.
func decodeWatString(raw string) ([]byte, error) {
	if len(raw) < 2 || raw[0] != '"' || raw[len(raw)-1] != '"' {
		return nil, fmt.Errorf("malformed string literal %q", raw)
	}
	body := raw[1 : len(raw)-1]
	out := make([]byte, 0, len(body))
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' {
			out = append(out, c)
			continue
		}
		if i+1 >= len(body) {
			return nil, fmt.Errorf("trailing backslash in string literal")
		}
		esc := body[i+1]
		switch esc {
		case 'n':
			out = append(out, '\n')
			i++
		case 't':
			out = append(out, '\t')
			i++
		case 'r':
			out = append(out, '\r')
			i++
		case '\\':
			out = append(out, '\\')
			i++
		case '\'':
			out = append(out, '\'')
			i++
		case '"':
			out = append(out, '"')
			i++
		default:
			if i+2 >= len(body) {
				return nil, fmt.Errorf("malformed escape in string literal")
			}
			v, err := strconv.ParseUint(body[i+1:i+3], 16, 8)
			if err != nil {
				return nil, fmt.Errorf("malformed \\xx escape in string literal")
			}
			out = append(out, byte(v))
			i += 2
		}
	}
	return out, nil
}

// parseIndexOrName resolves either a bare numeric index or a $name looked
// up in names, used for every index-namespace operand this parser reads.
func (p *parser) parseIndexOrName(names map[string]ir.Index, kindLabel string) (ir.Index, error) {
	t := p.cur()
	if p.isID(t) {
		idx, ok := names[t.Text]
		if !ok {
			return 0, p.errorf("unknown %s %s", kindLabel, t.Text)
		}
		p.advance()
		return idx, nil
	}
	if t.Type == lexer.TokenInt {
		n, err := strconv.ParseUint(t.Text, 0, 32)
		if err != nil {
			return 0, p.errorf("bad %s index %q", kindLabel, t.Text)
		}
		p.advance()
		return ir.Index(n), nil
	}
	return 0, p.errorf("expected a %s index or name, got %q", kindLabel, t.Text)
}

func (p *parser) parseLimits() (uint32, *uint32, error) {
	t := p.cur()
	if t.Type != lexer.TokenInt {
		return 0, nil, p.errorf("expected a limit, got %q", t.Text)
	}
	min, err := strconv.ParseUint(t.Text, 0, 32)
	if err != nil {
		return 0, nil, p.errorf("bad limit %q", t.Text)
	}
	p.advance()
	var max *uint32
	if p.cur().Type == lexer.TokenInt {
		v, err := strconv.ParseUint(p.cur().Text, 0, 32)
		if err != nil {
			return 0, nil, p.errorf("bad limit %q", p.cur().Text)
		}
		v32 := uint32(v)
		max = &v32
		p.advance()
	}
	return uint32(min), max, nil
}

func (p *parser) parseGlobalType() (*ir.GlobalType, error) {
	if kw, ok := p.peekFieldKeyword(); ok && kw == "mut" {
		p.advance() // (
		p.advance() // mut
		vt, err := p.parseValueTypeTok()
		if err != nil {
			return nil, err
		}
		if err := p.expectRParen(); err != nil {
			return nil, err
		}
		return &ir.GlobalType{ValType: vt, Mutable: true}, nil
	}
	vt, err := p.parseValueTypeTok()
	if err != nil {
		return nil, err
	}
	return &ir.GlobalType{ValType: vt, Mutable: false}, nil
}

// parseParamsResults consumes a run of leading (param ...) and (result
// ...) fields, in that grammar order, stopping at the first paren that
// isn't one of those two keywords (or at ')'). Used both for (type (func
// ...)) and for a func field's own inline signature.
func (p *parser) parseParamsResults() (*ir.FunctionType, []string, error) {
	ft := &ir.FunctionType{}
	var names []string
	for {
		kw, ok := p.peekFieldKeyword()
		if !ok || (kw != "param" && kw != "result") {
			break
		}
		p.advance() // (
		p.advance() // param|result
		if kw == "param" {
			name := p.maybeName()
			if name != "" {
				vt, err := p.parseValueTypeTok()
				if err != nil {
					return nil, nil, err
				}
				ft.Params = append(ft.Params, vt)
				names = append(names, name)
			} else {
				for !p.atRParen() {
					vt, err := p.parseValueTypeTok()
					if err != nil {
						return nil, nil, err
					}
					ft.Params = append(ft.Params, vt)
					names = append(names, "")
				}
			}
		} else {
			for !p.atRParen() {
				vt, err := p.parseValueTypeTok()
				if err != nil {
					return nil, nil, err
				}
				ft.Results = append(ft.Results, vt)
			}
		}
		if err := p.expectRParen(); err != nil {
			return nil, nil, err
		}
	}
	return ft, names, nil
}

// parseTypeUse resolves a function signature given either as "(type
// $t-or-N)" (optionally followed by inline param/result fields that this
// parser trusts rather than cross-checks) or as bare inline param/result
// fields, registering a fresh anonymous type in that second case. The
// returned names are the inline (param $x ...) names, if any were given;
// a (type $t) clause's own signature carries no parameter names, so names
// is nil unless the caller also wrote inline param fields alongside it.
func (p *parser) parseTypeUse(mb *moduleBuilder) (ir.Index, *ir.FunctionType, []string, error) {
	var typeIdx ir.Index
	var ft *ir.FunctionType
	haveType := false
	if kw, ok := p.peekFieldKeyword(); ok && kw == "type" {
		p.advance() // (
		p.advance() // type
		idx, err := p.parseIndexOrName(mb.typeNames, "type")
		if err != nil {
			return 0, nil, nil, err
		}
		if err := p.expectRParen(); err != nil {
			return 0, nil, nil, err
		}
		if int(idx) >= len(mb.m.Types) {
			return 0, nil, nil, p.errorf("type index %d out of range", idx)
		}
		typeIdx, ft, haveType = idx, mb.m.Types[idx], true
	}
	inline, names, err := p.parseParamsResults()
	if err != nil {
		return 0, nil, nil, err
	}
	if !haveType {
		typeIdx = ir.Index(len(mb.m.Types))
		mb.m.Types = append(mb.m.Types, inline)
		ft = inline
	}
	return typeIdx, ft, names, nil
}
