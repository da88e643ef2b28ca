package position

// RemapOffset shifts originalOffset by the length deltas of every replacement
// that starts strictly before it. Replacement starts are relative to the
// template body, which begins at replaceStart in the buffer. Replacements must
// be ordered by ascending Start.
func RemapOffset(originalOffset, replaceStart int, replacements []Replacement) int {
	result := originalOffset
	for _, r := range replacements {
		if replaceStart+r.Start >= originalOffset {
			break
		}
		result += r.LengthAdded
	}
	return result
}

// Remap converts a span defined against the template body into buffer
// coordinates after substitution. Start and end of each Position are mapped
// independently so replacements inside the region change its length.
func Remap(s Span, replaceStart int, replacements []Replacement) Span {
	switch v := s.(type) {
	case nil:
		return nil
	case Position:
		start := RemapOffset(v.Offset+replaceStart, replaceStart, replacements)
		end := RemapOffset(v.End()+replaceStart, replaceStart, replacements)
		return Position{Offset: start, Length: end - start}
	case Group:
		if v == nil {
			return nil
		}
		out := make(Group, len(v))
		for i, elem := range v {
			out[i] = Remap(elem, replaceStart, replacements)
		}
		return out
	default:
		panic("position: unknown span type")
	}
}
