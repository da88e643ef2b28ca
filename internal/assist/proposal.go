package assist

import (
	"strings"

	"github.com/sst/templateassist/internal/position"
	"github.com/sst/templateassist/internal/resolver"
	"github.com/sst/templateassist/internal/templates"
	"github.com/sst/templateassist/internal/textscan"
)

// Proposal is a materialized completion. Offsets are buffer offsets in the
// text after the proposal has been applied.
type Proposal struct {
	Proposal       string        `json:"proposal"`
	Description    string        `json:"description"`
	EscapePosition int           `json:"escapePosition"`
	Positions      position.Span `json:"positions"`
	// Overwrite asks the editor to replace the matched prefix or selection
	// instead of inserting.
	Overwrite bool `json:"overwrite"`
}

// Input is everything Materialize needs. It is captured when proposals are
// computed and never modified afterwards.
type Input struct {
	Template     templates.Template
	ReplaceStart int
	// ImplicitPrefix is the rune just before ReplaceStart in the buffer, or
	// textscan.NoChar.
	ImplicitPrefix rune
	Resolver       resolver.Resolver
}

// Materialize substitutes the template's parameters and remaps its escape
// position and linked positions into buffer coordinates.
//
// When the template body starts with ImplicitPrefix (the user already typed
// the opening delimiter), that rune is stripped from the inserted text and
// the positions are shifted to account for it.
func Materialize(in Input) Proposal {
	body := in.Template.Proposal
	replaceStart := in.ReplaceStart

	var stripped int
	if in.ImplicitPrefix != textscan.NoChar {
		if prefix := string(in.ImplicitPrefix); strings.HasPrefix(body, prefix) {
			stripped = len(prefix)
		}
	}
	origText := body[stripped:]

	r := in.Resolver
	if r == nil {
		r = resolver.Identity
	}
	actualText := r.ReplaceParams(origText)
	replacements := r.FindReplacements(origText)

	var escape int
	if in.Template.EscapePosition != nil {
		escape = position.RemapOffset(*in.Template.EscapePosition-stripped+replaceStart, replaceStart, replacements)
	} else {
		escape = replaceStart + len(actualText)
	}

	replaceStart -= stripped

	return Proposal{
		Proposal:       actualText,
		Description:    in.Template.Description,
		EscapePosition: escape,
		Positions:      position.Remap(in.Template.Positions, replaceStart, replacements),
		Overwrite:      true,
	}
}

// Builder defers materializing a proposal until it is accepted.
type Builder struct {
	Description string
	Trigger     string
	input       Input
}

// Build materializes the proposal. It may be called any number of times.
func (b Builder) Build() Proposal {
	return Materialize(b.input)
}

// Input returns the captured materialization input.
func (b Builder) Input() Input {
	return b.input
}
