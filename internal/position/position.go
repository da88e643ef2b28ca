// Package position translates offsets defined against a template body into
// offsets valid in the text produced after parameter substitution.
package position

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// Replacement describes one substitution performed on a template body.
// Start is an offset into the unsubstituted body, LengthAdded is the signed
// difference between the replacement and the text it replaced.
type Replacement struct {
	Start       int `json:"start"`
	LengthAdded int `json:"lengthAdded"`
}

// Span is either a single Position or a Group of spans.
type Span interface {
	span()
}

// Position marks an offset/length region inside a piece of text.
type Position struct {
	Offset int `json:"offset"`
	Length int `json:"length"`
}

// End returns the offset just past the region.
func (p Position) End() int {
	return p.Offset + p.Length
}

func (Position) span() {}

func (p Position) String() string {
	return fmt.Sprintf("%d+%d", p.Offset, p.Length)
}

// Group is an ordered list of spans. Groups may nest.
type Group []Span

func (Group) span() {}

// MarshalJSON encodes nested spans as JSON arrays.
func (g Group) MarshalJSON() ([]byte, error) {
	items := make([]json.RawMessage, len(g))
	for i, s := range g {
		raw, err := json.Marshal(s)
		if err != nil {
			return nil, err
		}
		items[i] = raw
	}
	return json.Marshal(items)
}

// DecodeSpan decodes a JSON object or (possibly nested) array of
// {"offset", "length"} objects. Absent or null input decodes to nil.
func DecodeSpan(raw []byte) (Span, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("invalid positions JSON: %s", raw)
	}
	return decode(gjson.ParseBytes(raw))
}

func decode(r gjson.Result) (Span, error) {
	switch {
	case r.Type == gjson.Null:
		return nil, nil
	case r.IsArray():
		elems := r.Array()
		group := make(Group, 0, len(elems))
		for _, elem := range elems {
			s, err := decode(elem)
			if err != nil {
				return nil, err
			}
			group = append(group, s)
		}
		return group, nil
	case r.IsObject():
		offset, length := r.Get("offset"), r.Get("length")
		if offset.Type != gjson.Number || length.Type != gjson.Number {
			return nil, fmt.Errorf("position %s needs numeric offset and length", r.Raw)
		}
		return Position{Offset: int(offset.Int()), Length: int(length.Int())}, nil
	default:
		return nil, fmt.Errorf("unexpected position value %s", r.Raw)
	}
}
