package resolver

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/sst/templateassist/internal/position"
)

// Diffing adapts a substitute-only function into a Resolver by diffing its
// output against its input to recover the replacements.
func Diffing(replace func(string) string) Resolver {
	return diffing{replace: replace, dmp: diffmatchpatch.New()}
}

type diffing struct {
	replace func(string) string
	dmp     *diffmatchpatch.DiffMatchPatch
}

func (d diffing) ReplaceParams(text string) string {
	return d.replace(text)
}

func (d diffing) FindReplacements(text string) []position.Replacement {
	actual := d.replace(text)
	if out, ok := placeholderReplacements(d.replace, text, actual); ok {
		return out
	}
	return DiffReplacements(d.dmp, text, actual)
}

// placeholderReplacements substitutes each ${name} of text on its own and
// reports one replacement per changed placeholder. It fails when the pieces
// do not reassemble into actual, i.e. when replace depends on context.
func placeholderReplacements(replace func(string) string, text, actual string) ([]position.Replacement, bool) {
	locs := paramPattern.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return nil, text == actual
	}

	var (
		out  []position.Replacement
		b    strings.Builder
		prev int
	)
	for _, loc := range locs {
		b.WriteString(text[prev:loc[0]])
		val := replace(text[loc[0]:loc[1]])
		b.WriteString(val)
		if delta := len(val) - (loc[1] - loc[0]); delta != 0 {
			out = append(out, position.Replacement{Start: loc[0], LengthAdded: delta})
		}
		prev = loc[1]
	}
	b.WriteString(text[prev:])
	if b.String() != actual {
		return nil, false
	}
	return out, true
}

// DiffReplacements describes how to turn orig into actual as replacements.
// Adjacent deletions and insertions collapse into one replacement starting
// where the changed run starts in orig, so edits that touch each other are
// reported as one.
func DiffReplacements(dmp *diffmatchpatch.DiffMatchPatch, orig, actual string) []position.Replacement {
	if orig == actual {
		return nil
	}
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(orig, actual, false))

	var (
		out     []position.Replacement
		offset  int
		pending *position.Replacement
	)
	flush := func() {
		if pending != nil && pending.LengthAdded != 0 {
			out = append(out, *pending)
		}
		pending = nil
	}
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			flush()
			offset += len(d.Text)
		case diffmatchpatch.DiffDelete:
			if pending == nil {
				pending = &position.Replacement{Start: offset}
			}
			pending.LengthAdded -= len(d.Text)
			offset += len(d.Text)
		case diffmatchpatch.DiffInsert:
			if pending == nil {
				pending = &position.Replacement{Start: offset}
			}
			pending.LengthAdded += len(d.Text)
		}
	}
	flush()
	return out
}
