package scanner

import "fmt"

// Token is a terminal the scanner recognized in [Start, End).
type Token struct {
	Terminal int
	Start    int
	End      int

	// Invalid marks bytes that form no token. The terminal of an invalid token is 0.
	Invalid bool

	// Reach is one past the last byte the scanner examined while producing the batch the token
	// belongs to, or len(src)+1 when it observed the end of the input.
	Reach int

	// Snapshot is the serialized scanner state at End. Only top-level separators carry one.
	Snapshot []byte
}

func (t *Token) String() string {
	if t.Invalid {
		return fmt.Sprintf("<invalid> [%v, %v)", t.Start, t.End)
	}
	return fmt.Sprintf("%v [%v, %v)", t.Terminal, t.Start, t.End)
}
