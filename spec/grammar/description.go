package grammar

// Terminal describes a terminal symbol. Alias is the text the symbol is displayed with when
// it differs from Name, as for literal tokens.
type Terminal struct {
	Number        int    `json:"number"`
	Name          string `json:"name"`
	Alias         string `json:"alias,omitempty"`
	Anonymous     bool   `json:"anonymous"`
	External      bool   `json:"external"`
	Pattern       string `json:"pattern,omitempty"`
	Precedence    int    `json:"prec"`
	Associativity string `json:"assoc"`
}

type NonTerminal struct {
	Number int    `json:"number"`
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	Hidden bool   `json:"hidden"`
}

// Production describes a production. RHS holds terminal numbers as positive values and
// non-terminal numbers as negative values.
type Production struct {
	Number        int      `json:"number"`
	LHS           int      `json:"lhs"`
	RHS           []int    `json:"rhs"`
	Fields        []string `json:"fields,omitempty"`
	Recover       bool     `json:"recover"`
	Precedence    int      `json:"prec"`
	Associativity string   `json:"assoc"`
}

type Item struct {
	Production int `json:"production"`
	Dot        int `json:"dot"`
}

type Transition struct {
	Symbol int `json:"symbol"`
	State  int `json:"state"`
}

type Reduce struct {
	LookAhead  []int `json:"look_ahead"`
	Production int   `json:"production"`
}

const (
	ResolvedByPrec      = 1
	ResolvedByAssoc     = 2
	ResolvedByShift     = 3
	ResolvedByProdOrder = 4
)

type SRConflict struct {
	Symbol            int  `json:"symbol"`
	State             int  `json:"state"`
	Production        int  `json:"production"`
	AdoptedState      *int `json:"adopted_state"`
	AdoptedProduction *int `json:"adopted_production"`
	ResolvedBy        int  `json:"resolved_by"`
}

type RRConflict struct {
	Symbol            int `json:"symbol"`
	Production1       int `json:"production_1"`
	Production2       int `json:"production_2"`
	AdoptedProduction int `json:"adopted_production"`
	ResolvedBy        int `json:"resolved_by"`
}

type State struct {
	Number     int           `json:"number"`
	Trapper    bool          `json:"trapper"`
	Kernel     []*Item       `json:"kernel"`
	Shift      []*Transition `json:"shift"`
	Reduce     []*Reduce     `json:"reduce"`
	GoTo       []*Transition `json:"goto"`
	SRConflict []*SRConflict `json:"sr_conflict"`
	RRConflict []*RRConflict `json:"rr_conflict"`
}

type Report struct {
	Name         string         `json:"name"`
	Terminals    []*Terminal    `json:"terminals"`
	NonTerminals []*NonTerminal `json:"non_terminals"`
	Productions  []*Production  `json:"productions"`
	States       []*State       `json:"states"`
}
