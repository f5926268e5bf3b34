package runtime

import (
	"fmt"
	"strings"

	"github.com/hack-chain/WAVM/jit"
)

// Trap is the runtime-visible form of a jit.Trap: the same closed
// TrapCode enum, with a call-stack snapshot attached so an embedder
// catching a trap at the top level can render a useful diagnostic.
// Mirrors spec.md 4.9's error taxonomy: validation failures inside a
// function body are reported as *validate.Error (wrapped by Instantiate;
// the module-level validation checks return plain errors), link failures
// as *LinkError, and every other abnormal termination as *Trap.
type Trap struct {
	Code      jit.TrapCode
	Message   string
	CallStack []string
}

func (t *Trap) Error() string {
	if len(t.CallStack) == 0 {
		return t.Message
	}
	return fmt.Sprintf("%s\n%s", t.Message, strings.Join(t.CallStack, "\n"))
}

func trapFromJIT(jt *jit.Trap, callStack []string) *Trap {
	if jt == nil {
		return nil
	}
	return &Trap{Code: jt.Code, Message: jt.Message, CallStack: callStack}
}
