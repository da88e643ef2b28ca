// Package textscan holds small backward scanners over editor buffers.
package textscan

import (
	"unicode"
	"unicode/utf8"
)

// NoChar is returned when there is no character before the offset.
const NoChar rune = 0

// PreviousNonWhitespace walks backward from the character before offset,
// skipping whitespace on the current line. It returns the line terminator
// ('\n' or '\r') if one is reached first, the nearest non-whitespace rune
// otherwise, and NoChar at the start of the buffer.
func PreviousNonWhitespace(buffer string, offset int) rune {
	if offset > len(buffer) {
		offset = len(buffer)
	}
	for offset > 0 {
		r, size := utf8.DecodeLastRuneInString(buffer[:offset])
		if r == '\n' || r == '\r' || !unicode.IsSpace(r) {
			return r
		}
		offset -= size
	}
	return NoChar
}

// RuneBefore returns the rune ending at offset and its encoded width, or
// NoChar and 0 when offset is outside (0, len(buffer)].
func RuneBefore(buffer string, offset int) (rune, int) {
	if offset <= 0 || offset > len(buffer) {
		return NoChar, 0
	}
	return utf8.DecodeLastRuneInString(buffer[:offset])
}

// WordBefore returns the identifier ending at offset: the run of letters,
// digits and underscores before it, less any leading digits.
func WordBefore(buffer string, offset int) string {
	offset = min(max(offset, 0), len(buffer))
	start := offset
	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(buffer[:start])
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			break
		}
		start -= size
	}
	for start < offset {
		r, size := utf8.DecodeRuneInString(buffer[start:])
		if !unicode.IsDigit(r) {
			break
		}
		start += size
	}
	return buffer[start:offset]
}
