package lexer

import "sort"

// StateIndex identifies a state in a Builder's in-progress NFA.
type StateIndex int

// nfaEdge is a single non-epsilon transition: consume any byte in chars and
// move to next.
type nfaEdge struct {
	chars CharSet
	next  StateIndex
}

type nfaState struct {
	edges   []nfaEdge
	epsilon []StateIndex
	// terminal is the value returned by Feed when the machine halts in this
	// state with no further transition possible; terminalPresentFlag
	// distinguishes "terminal value 0" from "non-terminal", since both would
	// otherwise be the zero value.
	terminal uint32
}

// Builder accumulates states and edges for an NFA, then Compile converts it
// to a DFA Machine via subset construction. Grounded on
// WAVM's NFA::Builder (Include/WAVM/NFA/NFA.h): a thin wrapper that lets the
// text lexer assemble token patterns imperatively before compiling once.
type Builder struct {
	states []nfaState
}

// NewBuilder returns an empty Builder with a single start state (index 0).
func NewBuilder() *Builder {
	b := &Builder{}
	b.addState()
	return b
}

// StartState is the fixed index of the NFA's initial state.
const StartState StateIndex = 0

// addState appends a new, non-terminal state and returns its index.
func (b *Builder) addState() StateIndex {
	b.states = append(b.states, nfaState{})
	return StateIndex(len(b.states) - 1)
}

// AddState is the exported form of addState, used by lexer construction
// code outside this package (e.g. text/wast's token table).
func (b *Builder) AddState() StateIndex { return b.addState() }

// AddEdge adds a transition from `from` to `to` consuming any byte in chars.
func (b *Builder) AddEdge(from StateIndex, chars CharSet, to StateIndex) {
	b.states[from].edges = append(b.states[from].edges, nfaEdge{chars: chars, next: to})
}

// AddEpsilonEdge adds a transition from `from` to `to` that consumes no
// input, used to splice sub-machines together (e.g. literal-token chains).
func (b *Builder) AddEpsilonEdge(from, to StateIndex) {
	b.states[from].epsilon = append(b.states[from].epsilon, to)
}

// SetTerminal marks state as accepting, with the given terminal value
// returned by Feed when the DFA halts there. value must be < 0x4000 (see
// the sentinel layout documented on Machine).
func (b *Builder) SetTerminal(state StateIndex, value uint16) {
	b.states[state].terminal = uint32(value) | terminalPresentFlag
}

// AddLiteral adds a chain of states accepting the exact byte string s,
// starting from `from`, terminating with the given terminal value.
// Mirrors WAVM's addLiteralToNFA helper in Lib/WASTParse/Lexer.cpp.
func (b *Builder) AddLiteral(from StateIndex, s string, terminal uint16) {
	cur := from
	for i := 0; i < len(s); i++ {
		next := b.addState()
		b.AddEdge(cur, NewCharSetChars(s[i]), next)
		cur = next
	}
	b.SetTerminal(cur, terminal)
}

func (b *Builder) epsilonClosure(set map[StateIndex]bool, s StateIndex) {
	if set[s] {
		return
	}
	set[s] = true
	for _, e := range b.states[s].epsilon {
		b.epsilonClosure(set, e)
	}
}

// closureKey produces a stable, comparable key for a set of NFA states, used
// to deduplicate DFA states during subset construction.
func closureKey(set map[StateIndex]bool) string {
	idx := make([]int, 0, len(set))
	for s := range set {
		idx = append(idx, int(s))
	}
	sort.Ints(idx)
	key := make([]byte, 0, len(idx)*4)
	for _, i := range idx {
		key = append(key, byte(i), byte(i>>8), byte(i>>16), byte(i>>24))
	}
	return string(key)
}
