package scanner

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Container is a block that stays open across block boundaries: a list item or a block tag.
type Container struct {
	// Tag is true for a block tag. Tags are closed only by their closing tag line, never by
	// indentation.
	Tag bool

	// MarkerCol and ContentCol are the columns of a list item's marker and of its content.
	MarkerCol  int
	ContentCol int
}

// State is the scanner state at a block start. Together with the text that follows, it
// determines every token the scanner produces from that point.
type State struct {
	// AtStart is true only at the beginning of a document, where frontmatter may appear.
	AtStart bool

	// Open lists the open containers from the outermost to the innermost.
	Open []Container
}

func (s *State) clone() State {
	c := State{
		AtStart: s.AtStart,
	}
	if len(s.Open) > 0 {
		c.Open = make([]Container, len(s.Open))
		copy(c.Open, s.Open)
	}
	return c
}

// innermostTag returns the index of the innermost open tag, or -1.
func (s *State) innermostTag() int {
	for i := len(s.Open) - 1; i >= 0; i-- {
		if s.Open[i].Tag {
			return i
		}
	}
	return -1
}

// openItems returns the number of list items open above the innermost tag.
func (s *State) openItems() int {
	return len(s.Open) - 1 - s.innermostTag()
}

func (s *State) Equal(o *State) bool {
	if s.AtStart != o.AtStart || len(s.Open) != len(o.Open) {
		return false
	}
	for i, c := range s.Open {
		if c != o.Open[i] {
			return false
		}
	}
	return true
}

const (
	fieldAtStart   protowire.Number = 1
	fieldContainer protowire.Number = 2

	fieldTag        protowire.Number = 1
	fieldMarkerCol  protowire.Number = 2
	fieldContentCol protowire.Number = 3
)

func boolToVarint(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// MarshalBinary encodes a state in the protobuf wire format.
func (s *State) MarshalBinary() ([]byte, error) {
	var b []byte
	b = protowire.AppendTag(b, fieldAtStart, protowire.VarintType)
	b = protowire.AppendVarint(b, boolToVarint(s.AtStart))
	for _, c := range s.Open {
		var cb []byte
		cb = protowire.AppendTag(cb, fieldTag, protowire.VarintType)
		cb = protowire.AppendVarint(cb, boolToVarint(c.Tag))
		cb = protowire.AppendTag(cb, fieldMarkerCol, protowire.VarintType)
		cb = protowire.AppendVarint(cb, uint64(c.MarkerCol))
		cb = protowire.AppendTag(cb, fieldContentCol, protowire.VarintType)
		cb = protowire.AppendVarint(cb, uint64(c.ContentCol))

		b = protowire.AppendTag(b, fieldContainer, protowire.BytesType)
		b = protowire.AppendBytes(b, cb)
	}
	return b, nil
}

func (s *State) UnmarshalBinary(data []byte) error {
	*s = State{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return fmt.Errorf("invalid scanner state: %w", protowire.ParseError(n))
		}
		data = data[n:]
		switch {
		case num == fieldAtStart && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return fmt.Errorf("invalid scanner state: %w", protowire.ParseError(n))
			}
			s.AtStart = v != 0
			data = data[n:]
		case num == fieldContainer && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return fmt.Errorf("invalid scanner state: %w", protowire.ParseError(n))
			}
			c, err := unmarshalContainer(v)
			if err != nil {
				return err
			}
			s.Open = append(s.Open, c)
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return fmt.Errorf("invalid scanner state: %w", protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return nil
}

func unmarshalContainer(data []byte) (Container, error) {
	var c Container
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return c, fmt.Errorf("invalid container: %w", protowire.ParseError(n))
		}
		data = data[n:]
		if typ != protowire.VarintType {
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return c, fmt.Errorf("invalid container: %w", protowire.ParseError(n))
			}
			data = data[n:]
			continue
		}
		v, n := protowire.ConsumeVarint(data)
		if n < 0 {
			return c, fmt.Errorf("invalid container: %w", protowire.ParseError(n))
		}
		data = data[n:]
		switch num {
		case fieldTag:
			c.Tag = v != 0
		case fieldMarkerCol:
			c.MarkerCol = int(v)
		case fieldContentCol:
			c.ContentCol = int(v)
		}
	}
	return c, nil
}
