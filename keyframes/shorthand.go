package keyframes

import (
	"regexp"
	"strings"
)

// Extraction is the animation name found in a shorthand value. Start and End
// are byte offsets of the name in the value passed to ExtractName or
// ExtractNames.
type Extraction struct {
	Name       string
	Start, End int
	// Candidates are all tokens no other sub-property claimed, in order.
	Candidates []string
	OK         bool
}

// Ambiguous reports whether more than one token could be the name.
func (e Extraction) Ambiguous() bool {
	return len(e.Candidates) > 1
}

var (
	reTime           = regexp.MustCompile(`(?i)^[-+]?(\d+\.?\d*|\.\d+)(e[-+]?\d+)?(s|ms)$`)
	reIterationCount = regexp.MustCompile(`^\+?(\d+\.?\d*|\.\d+)(e[-+]?\d+)?$`)
)

// keywords of non-name animation sub-properties, lower case
var shorthandKeywords = map[string]struct{}{
	// timing function
	"linear": {}, "ease": {}, "ease-in": {}, "ease-out": {}, "ease-in-out": {}, "step-start": {}, "step-end": {},
	// iteration count
	"infinite": {},
	// direction
	"normal": {}, "reverse": {}, "alternate": {}, "alternate-reverse": {},
	// fill mode
	"none": {}, "forwards": {}, "backwards": {}, "both": {},
	// play state
	"running": {}, "paused": {},
}

// timing functions in functional notation
var timingFunctions = []string{"cubic-bezier(", "steps(", "linear("}

// functions whose value is unknown until computed
var substitutionFunctions = []string{"var(", "env("}

// span is a part of a value.
type span struct {
	start, end int
}

// ExtractName finds animation name in a single animation shorthand value by
// eliminating tokens which belong to other sub-properties: time values, timing
// functions, iteration counts, directions, fill modes and play states. The
// first remaining token is the name. When nothing remains Name is empty and
// OK is false. Tokens using var() or env() and comments are never taken as
// the name. Value is never modified.
func ExtractName(value string) Extraction {
	return extract(value, span{0, len(value)})
}

// ExtractNames splits multi-animation shorthand value at top level commas and
// extracts name of every layer. Offsets are relative to the whole value.
func ExtractNames(value string) []Extraction {
	layers := splitList(value)
	res := make([]Extraction, 0, len(layers))
	for _, l := range layers {
		res = append(res, extract(value, l))
	}
	return res
}

func extract(value string, layer span) Extraction {
	var ex Extraction
	for _, t := range splitTokens(value, layer) {
		text := value[t.start:t.end]
		if isSubstitution(text) || !isNameCandidate(text) {
			continue
		}
		if !ex.OK {
			ex.Name, ex.Start, ex.End, ex.OK = text, t.start, t.end, true
		}
		ex.Candidates = append(ex.Candidates, text)
	}
	return ex
}

// nothingToName reports whether a shorthand layer without name is still
// valid: "none" alone, or a layer using var() or env() whose name is only
// known after substitution.
func nothingToName(value string, layer span) bool {
	tokens := splitTokens(value, layer)
	if len(tokens) == 1 && strings.EqualFold(value[tokens[0].start:tokens[0].end], "none") {
		return true
	}
	for _, t := range tokens {
		if isSubstitution(value[t.start:t.end]) {
			return true
		}
	}
	return false
}

// isNameCandidate reports whether token is not claimed by any non-name
// sub-property of the animation shorthand.
func isNameCandidate(token string) bool {
	lower := strings.ToLower(token)
	if _, ok := shorthandKeywords[lower]; ok {
		return false
	}
	if reTime.MatchString(token) || reIterationCount.MatchString(token) {
		return false
	}
	for _, fn := range timingFunctions {
		if strings.HasPrefix(lower, fn) && strings.HasSuffix(lower, ")") {
			return false
		}
	}
	return true
}

func isSubstitution(token string) bool {
	lower := strings.ToLower(token)
	for _, fn := range substitutionFunctions {
		if strings.HasPrefix(lower, fn) {
			return true
		}
	}
	return false
}

// splitTokens splits value[s.start:s.end] at whitespace and comments outside
// of parentheses and quotes.
func splitTokens(value string, s span) []span {
	var (
		tokens []span
		start  = -1
		depth  int
		quote  byte
	)
	for i := s.start; i < s.end; i++ {
		c := value[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case isCommentStart(value, i, s.end):
			end := commentEnd(value, i, s.end)
			if depth == 0 && start >= 0 {
				tokens = append(tokens, span{start, i})
				start = -1
			}
			i = end - 1
			continue
		case c == '(':
			depth++
		case c == ')':
			if depth > 0 {
				depth--
			}
		case depth == 0 && isSpace(c):
			if start >= 0 {
				tokens = append(tokens, span{start, i})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		tokens = append(tokens, span{start, s.end})
	}
	return tokens
}

// splitList splits value at commas outside of parentheses, quotes and
// comments. Items keep surrounding whitespace.
func splitList(value string) []span {
	var (
		items []span
		start int
		depth int
		quote byte
	)
	for i := 0; i < len(value); i++ {
		c := value[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case isCommentStart(value, i, len(value)):
			i = commentEnd(value, i, len(value)) - 1
		case c == '(':
			depth++
		case c == ')':
			if depth > 0 {
				depth--
			}
		case c == ',' && depth == 0:
			items = append(items, span{start, i})
			start = i + 1
		}
	}
	return append(items, span{start, len(value)})
}

// trimSpan removes whitespace and comments around value[s.start:s.end].
func trimSpan(value string, s span) span {
	for s.start < s.end {
		if isSpace(value[s.start]) {
			s.start++
		} else if isCommentStart(value, s.start, s.end) {
			s.start = commentEnd(value, s.start, s.end)
		} else {
			break
		}
	}
	for s.end > s.start {
		if isSpace(value[s.end-1]) {
			s.end--
			continue
		}
		if !strings.HasSuffix(value[s.start:s.end], "*/") {
			break
		}
		open := strings.LastIndex(value[s.start:s.end-2], "/*")
		if open < 0 {
			break
		}
		s.end = s.start + open
	}
	return s
}

func isCommentStart(value string, i, limit int) bool {
	return i+1 < limit && value[i] == '/' && value[i+1] == '*'
}

// commentEnd returns index just past the comment starting at i, unterminated
// comment runs to limit.
func commentEnd(value string, i, limit int) int {
	if n := strings.Index(value[i+2:limit], "*/"); n >= 0 {
		return i + 2 + n + 2
	}
	return limit
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}
