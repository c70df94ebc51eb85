package ime

import (
	"encoding/binary"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// Composition is a snapshot of the text being composed.
//
// Start and End are byte offsets into Text delimiting the clause the user is
// converting. When the input method has not split the text into clauses both
// hold the cursor position. HasTarget is false when neither a clause nor the
// cursor could be determined; Start and End are then meaningless.
type Composition struct {
	Text      string
	Start     int
	End       int
	HasTarget bool
}

// Target returns the targeted clause, or "" when there is none.
func (c Composition) Target() string {
	if !c.HasTarget || c.Start < 0 || c.End > len(c.Text) || c.Start > c.End {
		return ""
	}
	return c.Text[c.Start:c.End]
}

// Collapsed reports whether the range is a bare cursor position.
func (c Composition) Collapsed() bool {
	return c.HasTarget && c.Start == c.End
}

// ComposingText returns the in-progress composition and its target clause.
// ok is false when no composition is available.
func (c *Context) ComposingText() (Composition, bool) {
	text, ok := c.compositionString(GCSCompStr)
	if !ok {
		return Composition{}, false
	}

	// Attributes only annotate the text; losing them is not fatal.
	attrs, ok := c.compositionData(GCSCompAttr)
	if !ok {
		attrs = nil
	}

	comp := Composition{Text: text}
	comp.Start, comp.End, comp.HasTarget = targetRange(text, attrs)
	if !comp.HasTarget {
		// The input method has not selected a clause yet.
		if cursor, ok := c.compositionCursor(text); ok {
			comp.Start, comp.End, comp.HasTarget = cursor, cursor, true
		}
	}

	c.logger.Debug("composing text",
		"bytes", len(text),
		"attrs", len(attrs),
		"start", comp.Start,
		"end", comp.End,
		"has_target", comp.HasTarget,
	)

	return comp, true
}

// ComposedText returns the most recently committed result string. ok is
// false when there is none, including when the result is empty.
func (c *Context) ComposedText() (string, bool) {
	text, ok := c.compositionString(GCSResultStr)
	if !ok || text == "" {
		return "", false
	}
	return text, true
}

// isTargeted reports whether attr marks a unit of the clause being converted.
func isTargeted(attr byte) bool {
	return attr == AttrTargetConverted || attr == AttrTargetNotConverted
}

// targetRange finds the first contiguous run of targeted characters.
//
// attrs and the characters of text are walked pairwise and the walk stops at
// the shorter of the two. A run that is still open when the walk stops ends
// at len(text).
func targetRange(text string, attrs []byte) (start, end int, ok bool) {
	start, end = -1, -1
	boundary := 0
	rest := text

	for _, attr := range attrs {
		if rest == "" {
			break
		}
		_, size := utf8.DecodeRuneInString(rest)
		targeted := isTargeted(attr)

		if start < 0 && targeted {
			start = boundary
		} else if start >= 0 && end < 0 && !targeted {
			end = boundary
		}

		boundary += size
		rest = rest[size:]
	}

	if start < 0 {
		return 0, 0, false
	}
	if end < 0 {
		end = len(text)
	}
	return start, end, true
}

// compositionCursor returns the cursor of the composition as a byte offset
// into text. The platform reports it in UTF-16 code units and it is applied
// as a count of characters of text.
func (c *Context) compositionCursor(text string) (int, bool) {
	if !c.usable() {
		return 0, false
	}

	pos := c.platform.GetCompositionString(c.himc, GCSCursorPos, nil)
	if pos < 0 {
		return 0, false
	}
	return charsToByteOffset(text, int(pos)), true
}

// charsToByteOffset sums the UTF-8 length of the first n characters of text.
func charsToByteOffset(text string, n int) int {
	offset := 0
	for _, r := range text {
		if n <= 0 {
			break
		}
		offset += utf8.RuneLen(r)
		n--
	}
	return offset
}

// compositionString fetches mode as UTF-16 and decodes it strictly.
func (c *Context) compositionString(mode uint32) (string, bool) {
	data, ok := c.compositionData(mode)
	if !ok {
		return "", false
	}
	if len(data)%2 != 0 {
		c.logger.Debug("misaligned composition string", "mode", mode, "bytes", len(data))
		return "", false
	}

	units := make([]uint16, len(data)/2)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(data[2*i:])
	}

	text, ok := decodeUTF16Strict(units)
	if !ok {
		c.logger.Debug("ill-formed composition string", "mode", mode, "units", len(units))
	}
	return text, ok
}

// compositionData runs the size-probe-then-fill protocol for mode.
//
// A probe of zero yields an empty, non-nil buffer. Negative probe or fill
// results mean the query failed.
func (c *Context) compositionData(mode uint32) ([]byte, bool) {
	if !c.usable() {
		return nil, false
	}

	size := c.platform.GetCompositionString(c.himc, mode, nil)
	switch {
	case size == 0:
		return []byte{}, true
	case size < 0:
		return nil, false
	}

	buf := make([]byte, size)
	n := c.platform.GetCompositionString(c.himc, mode, buf)
	if n < 0 {
		return nil, false
	}
	if int(n) < len(buf) {
		buf = buf[:n]
	}
	return buf, true
}

// decodeUTF16Strict decodes units, rejecting unpaired surrogates.
func decodeUTF16Strict(units []uint16) (string, bool) {
	var sb strings.Builder
	sb.Grow(len(units))

	for i := 0; i < len(units); i++ {
		u := rune(units[i])
		if !utf16.IsSurrogate(u) {
			sb.WriteRune(u)
			continue
		}
		if i+1 >= len(units) {
			return "", false
		}
		r := utf16.DecodeRune(u, rune(units[i+1]))
		if r == utf8.RuneError {
			return "", false
		}
		sb.WriteRune(r)
		i++
	}

	return sb.String(), true
}
