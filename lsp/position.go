package lsp

import (
	"bytes"
	"unicode/utf8"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// offsetAt converts a position, whose character counts UTF-16 code units, into a byte offset.
// Positions past the end of a line clamp to the line end, and positions past the last line
// clamp to the end of the text.
func offsetAt(text []byte, pos protocol.Position) int {
	off := 0
	for line := protocol.UInteger(0); line < pos.Line; line++ {
		i := bytes.IndexByte(text[off:], '\n')
		if i < 0 {
			return len(text)
		}
		off += i + 1
	}
	units := protocol.UInteger(0)
	for off < len(text) && units < pos.Character {
		r, n := utf8.DecodeRune(text[off:])
		if r == '\n' {
			break
		}
		units += protocol.UInteger(utf16Len(r))
		off += n
	}
	return off
}

// positionAt converts a byte offset into a position.
func positionAt(text []byte, off int) protocol.Position {
	if off > len(text) {
		off = len(text)
	}
	var pos protocol.Position
	for i := 0; i < off; {
		r, n := utf8.DecodeRune(text[i:])
		if r == '\n' {
			pos.Line++
			pos.Character = 0
		} else {
			pos.Character += protocol.UInteger(utf16Len(r))
		}
		i += n
	}
	return pos
}

func rangeOf(text []byte, start, end int) protocol.Range {
	return protocol.Range{
		Start: positionAt(text, start),
		End:   positionAt(text, end),
	}
}

// utf16Len returns the number of UTF-16 code units encoding r. An invalid byte counts as one.
func utf16Len(r rune) int {
	if r >= 0x10000 {
		return 2
	}
	return 1
}
