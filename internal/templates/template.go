// Package templates defines completion templates and the per-scope cache
// that content assist engines share.
package templates

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sst/templateassist/internal/position"
)

// ErrMalformedTemplate is returned when a loaded template cannot be proposed.
var ErrMalformedTemplate = errors.New("malformed template")

// Template is a completion snippet. Offsets in EscapePosition and Positions
// are relative to Proposal before parameter substitution.
type Template struct {
	Trigger     string
	Proposal    string
	Description string
	// EscapePosition is where the cursor lands after acceptance. Nil means
	// the end of the inserted text.
	EscapePosition *int
	// Positions marks linked-edit regions.
	Positions  position.Span
	IsTemplate bool
}

type templateJSON struct {
	Trigger        string          `json:"trigger"`
	Proposal       string          `json:"proposal"`
	Description    string          `json:"description,omitempty"`
	EscapePosition *int            `json:"escapePosition,omitempty"`
	Positions      json.RawMessage `json:"positions,omitempty"`
	IsTemplate     bool            `json:"isTemplate,omitempty"`
}

func (t *Template) UnmarshalJSON(data []byte) error {
	var raw templateJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	positions, err := position.DecodeSpan(raw.Positions)
	if err != nil {
		return fmt.Errorf("template %q: %w", raw.Trigger, err)
	}
	*t = Template{
		Trigger:        raw.Trigger,
		Proposal:       raw.Proposal,
		Description:    raw.Description,
		EscapePosition: raw.EscapePosition,
		Positions:      positions,
		IsTemplate:     raw.IsTemplate,
	}
	return nil
}

func (t Template) MarshalJSON() ([]byte, error) {
	raw := templateJSON{
		Trigger:        t.Trigger,
		Proposal:       t.Proposal,
		Description:    t.Description,
		EscapePosition: t.EscapePosition,
		IsTemplate:     t.IsTemplate,
	}
	if t.Positions != nil {
		positions, err := json.Marshal(t.Positions)
		if err != nil {
			return nil, err
		}
		raw.Positions = positions
	}
	return json.Marshal(raw)
}

// Validate reports templates that would fail at substitution time.
func (t Template) Validate() error {
	if t.Proposal == "" {
		return fmt.Errorf("%w: trigger %q has no proposal body", ErrMalformedTemplate, t.Trigger)
	}
	if t.EscapePosition != nil && (*t.EscapePosition < 0 || *t.EscapePosition > len(t.Proposal)) {
		return fmt.Errorf("%w: trigger %q escape position %d outside body of length %d",
			ErrMalformedTemplate, t.Trigger, *t.EscapePosition, len(t.Proposal))
	}
	return nil
}

// Validate checks every template and reports the first failure with its index.
func Validate(list []Template) error {
	for i, t := range list {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("template %d: %w", i, err)
		}
	}
	return nil
}
