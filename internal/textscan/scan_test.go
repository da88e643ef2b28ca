package textscan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPreviousNonWhitespace(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		buffer string
		offset int
		want   rune
	}{
		{name: "member access", buffer: "foo.", offset: 4, want: '.'},
		{name: "skips trailing spaces", buffer: "foo.   ", offset: 7, want: '.'},
		{name: "skips tabs", buffer: "foo.\t \t", offset: 7, want: '.'},
		{name: "identifier", buffer: "foo.bar", offset: 7, want: 'r'},
		{name: "stops at newline", buffer: "foo.\n   ", offset: 8, want: '\n'},
		{name: "stops at carriage return", buffer: "x\r  ", offset: 4, want: '\r'},
		{name: "start of buffer", buffer: "abc", offset: 0, want: NoChar},
		{name: "negative offset", buffer: "abc", offset: -3, want: NoChar},
		{name: "only whitespace", buffer: "   ", offset: 3, want: NoChar},
		{name: "offset past end is clamped", buffer: "a.", offset: 40, want: '.'},
		{name: "multibyte rune", buffer: "héé  ", offset: 7, want: 'é'},
		{name: "middle of buffer", buffer: "a. b", offset: 3, want: '.'},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, PreviousNonWhitespace(tt.buffer, tt.offset))
		})
	}
}

func TestRuneBefore(t *testing.T) {
	t.Parallel()

	r, size := RuneBefore("<div", 1)
	assert.Equal(t, '<', r)
	assert.Equal(t, 1, size)

	r, size = RuneBefore("«x", 2)
	assert.Equal(t, '«', r)
	assert.Equal(t, 2, size)

	r, size = RuneBefore("abc", 0)
	assert.Equal(t, NoChar, r)
	assert.Equal(t, 0, size)

	r, _ = RuneBefore("abc", 9)
	assert.Equal(t, NoChar, r)
}

func TestWordBefore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		buffer string
		offset int
		want   string
	}{
		{"x = fo", 6, "fo"},
		{"obj.for_each", 12, "for_each"},
		{"<ta", 3, "ta"},
		{"fo ", 3, ""},
		{"café", 5, "café"},
		{"abc", 2, "ab"},
		{"abc", 10, "abc"},
		{"abc", -1, ""},
		{"0123456789fo", 12, "fo"},
		{"x1", 2, "x1"},
		{"a = 42", 6, ""},
	}
	for _, tt := range tests {
		t.Run(tt.buffer, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, WordBefore(tt.buffer, tt.offset))
		})
	}
}
