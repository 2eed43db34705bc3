package grammar

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/louiss0/tree-sitter-markdoc/grammar/symbol"
)

type productionID [32]byte

func (id productionID) String() string {
	return hex.EncodeToString(id[:])
}

func genProductionID(lhs symbol.Symbol, rhs []symbol.Symbol) productionID {
	seq := lhs.Byte()
	for _, sym := range rhs {
		seq = append(seq, sym.Byte()...)
	}
	return productionID(sha256.Sum256(seq))
}

type productionNum uint16

const (
	productionNumNil   = productionNum(0)
	productionNumStart = productionNum(1)
	productionNumMin   = productionNum(2)
)

func (n productionNum) Int() int {
	return int(n)
}

type production struct {
	id     productionID
	num    productionNum
	lhs    symbol.Symbol
	rhs    []symbol.Symbol
	rhsLen int
}

func newProduction(lhs symbol.Symbol, rhs []symbol.Symbol) (*production, error) {
	if lhs.IsNil() {
		return nil, fmt.Errorf("LHS must be a non-nil symbol; LHS: %v, RHS: %v", lhs, rhs)
	}
	for _, sym := range rhs {
		if sym.IsNil() {
			return nil, fmt.Errorf("a symbol of RHS must be a non-nil symbol; LHS: %v, RHS: %v", lhs, rhs)
		}
	}

	return &production{
		id:     genProductionID(lhs, rhs),
		lhs:    lhs,
		rhs:    rhs,
		rhsLen: len(rhs),
	}, nil
}

func (p *production) isEmpty() bool {
	return p.rhsLen == 0
}

// productionSet numbers productions in the order they are appended. The order is the
// priority used to resolve reduce/reduce conflicts.
type productionSet struct {
	lhs2Prods map[symbol.Symbol][]*production
	id2Prod   map[productionID]*production
	ordered   []*production
	num       productionNum
}

func newProductionSet() *productionSet {
	return &productionSet{
		lhs2Prods: map[symbol.Symbol][]*production{},
		id2Prod:   map[productionID]*production{},
		num:       productionNumMin,
	}
}

func (ps *productionSet) append(prod *production) bool {
	if _, ok := ps.id2Prod[prod.id]; ok {
		return false
	}

	if prod.lhs.IsStart() {
		prod.num = productionNumStart
	} else {
		prod.num = ps.num
		ps.num++
	}

	ps.lhs2Prods[prod.lhs] = append(ps.lhs2Prods[prod.lhs], prod)
	ps.id2Prod[prod.id] = prod
	ps.ordered = append(ps.ordered, prod)

	return true
}

func (ps *productionSet) findByID(id productionID) (*production, bool) {
	prod, ok := ps.id2Prod[id]
	return prod, ok
}

func (ps *productionSet) findByLHS(lhs symbol.Symbol) ([]*production, bool) {
	if lhs.IsNil() {
		return nil, false
	}

	prods, ok := ps.lhs2Prods[lhs]
	return prods, ok
}

// getAllProductions returns the productions in numbering order.
func (ps *productionSet) getAllProductions() []*production {
	return ps.ordered
}

// count returns the number of production numbers in use, including the nil number 0.
func (ps *productionSet) count() int {
	return len(ps.ordered) + 1
}
