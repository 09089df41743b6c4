package recovery

// scanner tracks whether the current byte sits inside a JSON string literal.
// A quote toggles the string state unless it is escaped by an unescaped backslash.
type scanner struct {
	inString bool
	escaped  bool
}

// step consumes c and reports whether it is structural, i.e. outside any string.
// The opening and closing quotes themselves are not structural.
func (s *scanner) step(c byte) bool {
	if s.inString {
		switch {
		case s.escaped:
			s.escaped = false
		case c == '\\':
			s.escaped = true
		case c == '"':
			s.inString = false
		}
		return false
	}
	if c == '"' {
		s.inString = true
		return false
	}
	return true
}

// matchClose returns the index of the delimiter closing the one at text[start],
// or -1 when the text ends first.
func matchClose(text string, start int, open, close byte) int {
	var sc scanner
	depth := 0
	for i := start; i < len(text); i++ {
		c := text[i]
		if !sc.step(c) {
			continue
		}
		switch c {
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

type span struct {
	start int
	text  string
}

// balancedObjects returns every top-level balanced {...} found in text, in order.
// Scanning stops at the first object that never closes.
func balancedObjects(text string) []span {
	var (
		out []span
		sc  scanner
	)
	for i := 0; i < len(text); i++ {
		c := text[i]
		if !sc.step(c) || c != '{' {
			continue
		}
		end := matchClose(text, i, '{', '}')
		if end < 0 {
			break
		}
		out = append(out, span{start: i, text: text[i : end+1]})
		i = end
	}
	return out
}

// leafObjects returns the objects that contain no nested object, in source order.
// An innermost object left open at the end of the text is returned up to the end,
// so a truncated trailing object still yields a candidate.
func leafObjects(text string) []span {
	type frame struct {
		start  int
		parent bool
	}
	var (
		stack []frame
		out   []span
		sc    scanner
	)
	for i := 0; i < len(text); i++ {
		c := text[i]
		if !sc.step(c) {
			continue
		}
		switch c {
		case '{':
			if n := len(stack); n > 0 {
				stack[n-1].parent = true
			}
			stack = append(stack, frame{start: i})
		case '}':
			n := len(stack)
			if n == 0 {
				continue
			}
			f := stack[n-1]
			stack = stack[:n-1]
			if !f.parent {
				out = append(out, span{start: f.start, text: text[f.start : i+1]})
			}
		}
	}
	if n := len(stack); n > 0 && !stack[n-1].parent {
		f := stack[n-1]
		out = append(out, span{start: f.start, text: text[f.start:]})
	}
	return out
}
