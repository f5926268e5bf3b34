// Package lexer implements a byte-level DFA scan engine: a Builder
// assembles an NFA from character-set edges and literal chains, Compile
// performs subset construction with equivalence-class compression into a
// dense transition table, and the resulting Machine's Feed method drives
// the scan loop a token.Lexer and text.Parser run on top of.
//
// Grounded on WAVM's Include/WAVM/NFA/NFA.h and Lib/WASTParse/Lexer.cpp:
// the terminal-state sentinel layout and the unrolled four-byte Feed loop
// are carried over unchanged, since they are the load-bearing algorithm the
// spec names explicitly.
package lexer

const (
	// terminalPresentFlag marks an NFA builder state as accepting; stripped
	// during Compile once terminal values are packed into the DFA's
	// 16-bit-sentinel scheme.
	terminalPresentFlag uint32 = 1 << 31

	// edgeDoesntConsumeInputFlag marks a terminal encoded in the transition
	// table as "accept without consuming the triggering byte" — used when a
	// token's extent is determined by a following separator the token
	// itself must not swallow (e.g. an identifier followed by whitespace).
	edgeDoesntConsumeInputFlag uint16 = 0x4000

	// unmatchedCharacterTerminal is returned by Feed when the current byte
	// has no outgoing transition from the current state and the state is
	// not itself terminal: lexing has hit a character the grammar rejects.
	unmatchedCharacterTerminal uint16 = 0x8000

	// maximumTerminalStateIndex bounds the terminal values a Builder may
	// assign; values above it collide with the sentinel flags above.
	maximumTerminalStateIndex uint16 = 0xbfff
)

// Machine is a compiled DFA: a dense char-class offset map plus a
// state-and-offset indexed transition table, matching WAVM's NFA::Machine
// layout so the Feed loop can be a tight array-indexed walk with no
// per-byte branching on the character itself.
type Machine struct {
	// charToOffsetMap collapses the 256 possible input bytes into a much
	// smaller number of equivalence classes: two bytes map to the same
	// offset iff every DFA state treats them identically. This is the
	// "equivalence-class compression" spec.md 4.1 requires.
	charToOffsetMap [256]uint8
	numOffsets      int

	// stateAndOffsetToNextStateMap is indexed [state*numOffsets+offset] and
	// holds either a state index to transition to, or one of the sentinel
	// sequences above when the DFA halts.
	stateAndOffsetToNextStateMap []uint16

	// stateTerminal[s] holds s's own terminal value (cleared of
	// terminalPresentFlag) if s is accepting, or unmatchedCharacterTerminal
	// otherwise. Consulted only when input ends before a transition would
	// have fired, since Feed's per-byte loop has no byte to look up then.
	stateTerminal []uint16

	// terminalBase is added to a bare terminal value to produce its
	// transition-table encoding; any cell >= terminalBase is a terminal,
	// any cell < terminalBase is a state index, and unmatchedCharacterTerminal
	// (which sits above every valid terminal encoding this compiler
	// produces) marks a dead end.
	terminalBase uint16

	numStates int
}

// Compile performs subset construction over the NFA assembled in b,
// producing a DFA Machine. States that are indistinguishable under Feed
// (two bytes routing every configuration identically) collapse into the
// same character-class offset.
func (b *Builder) Compile() *Machine {
	type dfaState struct {
		nfaSet        map[StateIndex]bool
		terminal      uint32
		perByteTarget [256]string
	}

	start := map[StateIndex]bool{}
	b.epsilonClosure(start, StartState)

	order := []string{closureKey(start)}
	states := map[string]*dfaState{order[0]: {nfaSet: start}}
	queue := []string{order[0]}

	for len(queue) > 0 {
		key := queue[0]
		queue = queue[1:]
		ds := states[key]

		// Determine this DFA state's terminal. A subset-construction state
		// can contain more than one accepting NFA state at once: a bare
		// digit run like "42" satisfies both this lexer's digit-only state
		// and its idchar-run state, since idchar is a superset of digit.
		// Break that tie by terminalPriority rather than by range order
		// over ds.nfaSet (a Go map, whose iteration order is randomized per
		// process and would otherwise make token classification
		// nondeterministic run to run).
		for nfaIdx := range ds.nfaSet {
			t := b.states[nfaIdx].terminal
			if t&terminalPresentFlag == 0 {
				continue
			}
			if ds.terminal&terminalPresentFlag == 0 ||
				terminalPriority(TokenType(t&^terminalPresentFlag)) > terminalPriority(TokenType(ds.terminal&^terminalPresentFlag)) {
				ds.terminal = t
			}
		}

		// Compute, for each byte, which NFA states it reaches.
		var perByteTarget [256]string
		targets := map[string]map[StateIndex]bool{}
		for c := 0; c < 256; c++ {
			reach := map[StateIndex]bool{}
			for nfaIdx := range ds.nfaSet {
				for _, e := range b.states[nfaIdx].edges {
					if e.chars.contains(byte(c)) {
						b.epsilonClosure(reach, e.next)
					}
				}
			}
			if len(reach) == 0 {
				continue
			}
			k := closureKey(reach)
			perByteTarget[c] = k
			if _, ok := targets[k]; !ok {
				targets[k] = reach
			}
		}
		for k, set := range targets {
			if _, ok := states[k]; !ok {
				states[k] = &dfaState{nfaSet: set}
				order = append(order, k)
				queue = append(queue, k)
			}
		}
		ds.perByteTarget = perByteTarget
		states[key] = ds
	}

	// Equivalence-class compression: two bytes share an offset iff, for
	// every DFA state built above, they route to the same target state.
	classOf := [256]int{}
	var classReps []int
	for c := 0; c < 256; c++ {
		found := -1
		for ci, rep := range classReps {
			same := true
			for _, key := range order {
				if states[key].perByteTarget[c] != states[key].perByteTarget[rep] {
					same = false
					break
				}
			}
			if same {
				found = ci
				break
			}
		}
		if found == -1 {
			found = len(classReps)
			classReps = append(classReps, c)
		}
		classOf[c] = found
	}

	m := &Machine{numOffsets: len(classReps), numStates: len(order)}
	for c := 0; c < 256; c++ {
		m.charToOffsetMap[c] = uint8(classOf[c])
	}

	stateIndexOf := map[string]int{}
	for i, key := range order {
		stateIndexOf[key] = i
	}

	m.stateAndOffsetToNextStateMap = make([]uint16, len(order)*len(classReps))
	m.stateTerminal = make([]uint16, len(order))
	for si, key := range order {
		ds := states[key]
		if ds.terminal&terminalPresentFlag != 0 {
			m.stateTerminal[si] = uint16(ds.terminal &^ terminalPresentFlag)
		} else {
			m.stateTerminal[si] = unmatchedCharacterTerminal
		}
		// terminalBase pushes terminal-value encodings past every valid
		// state index, so a transition cell and a terminal cell can never
		// be confused regardless of how small the terminal value is.
		terminalBase := uint16(len(order))
		for oi, rep := range classReps {
			target := ds.perByteTarget[rep]
			cell := unmatchedCharacterTerminal
			switch {
			case target != "":
				// Maximal munch: keep consuming while an edge exists, even
				// from a state that already accepts.
				cell = uint16(stateIndexOf[target])
			case ds.terminal&terminalPresentFlag != 0:
				cell = terminalBase + uint16(ds.terminal&^terminalPresentFlag)
			}
			m.stateAndOffsetToNextStateMap[si*len(classReps)+oi] = cell
		}
	}
	m.terminalBase = uint16(len(order))
	return m
}

// terminalPriority orders the handful of token types this lexer's DFA can
// disagree with itself about when a composite subset-construction state
// accepts more than one of them at once: a number is more specific than
// the general name/identifier catch-all, so it wins the tie.
func terminalPriority(t TokenType) int {
	switch t {
	case TokenInt, TokenFloat:
		return 2
	case TokenName:
		return 1
	default:
		return 0
	}
}

// Feed scans *cursor forward, advancing the DFA one byte at a time, and
// returns the terminal value reached. On return, *cursor points one byte
// past the last byte consumed (unless the matched terminal carries
// edgeDoesntConsumeInputFlag, in which case *cursor is left on the
// unconsumed separator byte). Returns unmatchedCharacterTerminal if the
// current byte has no transition from the current state.
//
// The four-iterations-at-a-time structure mirrors WAVM's NFA::Machine::feed
// (Include/WAVM/NFA/NFA.h): each pass walks up to four bytes and checks the
// remaining input length only once per pass, since the common case (an
// identifier or number body) consumes many bytes between terminals. Each
// byte's transition cell is still checked for a terminal as it is read.
func (m *Machine) Feed(data []byte, cursor *int) uint16 {
	state := 0
	pos := *cursor
	for {
		remaining := len(data) - pos
		steps := 4
		if remaining < steps {
			steps = remaining
		}
		if steps == 0 {
			// End of input mid-scan: accept iff the current state itself
			// terminates, otherwise the token is incomplete.
			*cursor = pos
			return m.stateTerminal[state]
		}
		for i := 0; i < steps; i++ {
			c := data[pos]
			off := m.charToOffsetMap[c]
			cell := m.stateAndOffsetToNextStateMap[state*m.numOffsets+int(off)]
			switch {
			case cell < m.terminalBase:
				state = int(cell)
				pos++
			case cell == unmatchedCharacterTerminal:
				*cursor = pos
				return unmatchedCharacterTerminal
			default:
				*cursor = pos
				return cell - m.terminalBase
			}
		}
	}
}
