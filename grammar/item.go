package grammar

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"sort"
	"strconv"

	"github.com/louiss0/tree-sitter-markdoc/grammar/symbol"
)

type lrItemID [32]byte

func (id lrItemID) String() string {
	return fmt.Sprintf("%x", id.num())
}

func (id lrItemID) num() uint32 {
	return binary.LittleEndian.Uint32(id[:])
}

type lookAhead struct {
	symbols map[symbol.Symbol]struct{}
}

type lrItem struct {
	id   lrItemID
	prod productionID

	// inline → emphasis
	//
	// Dot | Dotted Symbol | Item
	// ----+---------------+---------------------
	// 0   | emphasis      | inline →・emphasis
	// 1   | Nil           | inline → emphasis・
	dot          int
	dottedSymbol symbol.Symbol

	// When initial is true, the LHS of the production is the augmented start symbol and dot is 0.
	// It looks like S' →・S.
	initial bool

	// When reducible is true, the dot is at the end of the production.
	reducible bool

	// When kernel is true, the item is kernel item.
	kernel bool

	// lookAhead stores look-ahead symbols, and they are terminal symbols.
	// The item is reducible only when the look-ahead symbols appear as the next input symbol.
	lookAhead lookAhead
}

func newLR0Item(prod *production, dot int) (*lrItem, error) {
	if prod == nil {
		return nil, fmt.Errorf("production must be non-nil")
	}
	if dot < 0 || dot > prod.rhsLen {
		return nil, fmt.Errorf("dot must be between 0 and %v", prod.rhsLen)
	}

	seed := binary.LittleEndian.AppendUint64(append([]byte{}, prod.id[:]...), uint64(dot))

	item := &lrItem{
		id:           sha256.Sum256(seed),
		prod:         prod.id,
		dot:          dot,
		dottedSymbol: symbol.SymbolNil,
		initial:      prod.lhs.IsStart() && dot == 0,
		reducible:    dot == prod.rhsLen,
	}
	if !item.reducible {
		item.dottedSymbol = prod.rhs[dot]
	}
	item.kernel = item.initial || dot > 0
	return item, nil
}

type kernelID [32]byte

func (id kernelID) String() string {
	return fmt.Sprintf("%x", binary.LittleEndian.Uint32(id[:]))
}

// A kernel is the set of kernel items identifying an LR state. Its items are deduplicated and
// sorted by ID, so equal sets get equal IDs.
type kernel struct {
	id    kernelID
	items []*lrItem
}

func newKernel(items []*lrItem) (*kernel, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("a kernel needs at least one item")
	}

	seen := make(map[lrItemID]struct{}, len(items))
	k := &kernel{}
	for _, item := range items {
		if !item.kernel {
			return nil, fmt.Errorf("not a kernel item: %v", item)
		}
		if _, ok := seen[item.id]; ok {
			continue
		}
		seen[item.id] = struct{}{}
		k.items = append(k.items, item)
	}
	sort.Slice(k.items, func(i, j int) bool {
		return bytes.Compare(k.items[i].id[:], k.items[j].id[:]) < 0
	})

	h := sha256.New()
	for _, item := range k.items {
		h.Write(item.id[:])
	}
	copy(k.id[:], h.Sum(nil))
	return k, nil
}

type stateNum int

const stateNumInitial = stateNum(0)

func (n stateNum) Int() int {
	return int(n)
}

func (n stateNum) String() string {
	return strconv.Itoa(int(n))
}

func (n stateNum) next() stateNum {
	return stateNum(n + 1)
}

type lrState struct {
	*kernel
	num       stateNum
	next      map[symbol.Symbol]kernelID
	reducible map[productionID]struct{}

	// emptyProdItems stores items that have an empty production like `p → ε` and is reducible.
	// Thus the items emptyProdItems stores are like `p → ・ε`. emptyProdItems is needed to store
	// look-ahead symbols because the kernel items don't include these items.
	//
	// For instance, we have the following productions, and A is a terminal symbol.
	//
	// s' → s
	// s → A | ε
	//
	// CLOSURE({s' → ・s}) generates the following closure, but the kernel of this closure doesn't
	// include `s → ・ε`.
	//
	// s' → ・s
	// s → ・A
	// s → ・ε
	emptyProdItems []*lrItem

	// When isErrorTrapper is `true`, the item can shift the `error` symbol. The item has the following form.
	// The `α` and `β` can be empty.
	//
	// A → α・error β
	isErrorTrapper bool
}
