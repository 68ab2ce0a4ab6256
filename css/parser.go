package css

import (
	"bytes"
	"errors"
	"io"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/zap"
)

const byteOrderMark = "\ufeff"

// Parser parses CSS stylesheets into editable nodes.
type Parser struct {
	log *zap.Logger
}

// NewParser creates a new CSS parser.
func NewParser(log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{log: log.Named("css-parser")}
}

// token is a lexer token detached from the lexer buffer.
type token struct {
	tt  css.TokenType
	s   string
	off int
}

// Parse parses CSS text into a Stylesheet. The from parameter identifies where
// the text came from and may be empty. Parse never fails: text the parser does
// not understand is kept as is.
//
// Grammar level parser of tdewolff/parse drops whitespace and comments, so
// the stylesheet is assembled from the lexer tokens directly.
func (p *Parser) Parse(data []byte, from string) *Stylesheet {
	sheet := &Stylesheet{From: from}

	if bytes.HasPrefix(data, []byte(byteOrderMark)) {
		sheet.segments = append(sheet.segments, segment{raw: byteOrderMark})
		data = data[len(byteOrderMark):]
	}
	sheet.Source = string(data)

	if len(from) > 0 {
		p.log.Debug("Parsing CSS", zap.String("source", from), zap.Int("bytes", len(data)))
	}

	tokens := p.tokenize(data)
	b := &builder{sheet: sheet, lines: lineStarts(sheet.Source)}

	var (
		start int // first token of the current item
		depth int // parentheses and brackets
	)
	for i, t := range tokens {
		switch t.tt {
		case css.FunctionToken, css.LeftParenthesisToken, css.LeftBracketToken:
			depth++
		case css.RightParenthesisToken, css.RightBracketToken:
			if depth > 0 {
				depth--
			}
		case css.LeftBraceToken, css.SemicolonToken, css.RightBraceToken:
			if depth > 0 && t.tt != css.RightBraceToken {
				continue
			}
			depth = 0
			b.item(tokens[start:i], t.tt == css.LeftBraceToken)
			b.raw(t.s)
			start = i + 1
		}
	}
	if start < len(tokens) {
		b.item(tokens[start:], false)
	}

	// Lexer consumes everything it is given, but never lose text if it did not.
	if consumed := b.consumed; consumed < len(sheet.Source) {
		p.log.Debug("CSS lexer stopped early", zap.Int("offset", consumed), zap.Int("bytes", len(sheet.Source)))
		b.raw(sheet.Source[consumed:])
	}

	p.log.Debug("Parsed CSS", zap.String("source", from), zap.Int("nodes", b.nodes))
	return sheet
}

// tokenize splits data into lexer tokens.
func (p *Parser) tokenize(data []byte) []token {
	lexer := css.NewLexer(parse.NewInput(bytes.NewReader(data)))

	var (
		tokens []token
		off    int
	)
	for {
		tt, text := lexer.Next()
		if tt == css.ErrorToken {
			if err := lexer.Err(); err != nil && !errors.Is(err, io.EOF) {
				p.log.Debug("CSS lexer error", zap.Int("offset", off), zap.Error(err))
			}
			return tokens
		}
		tokens = append(tokens, token{tt: tt, s: string(text), off: off})
		off += len(text)
	}
}

// builder accumulates stylesheet segments.
type builder struct {
	sheet    *Stylesheet
	lines    []int
	consumed int
	nodes    int
}

func (b *builder) raw(s string) {
	if len(s) == 0 {
		return
	}
	b.consumed += len(s)
	if n := len(b.sheet.segments); n > 0 && b.sheet.segments[n-1].node == nil {
		b.sheet.segments[n-1].raw += s
		return
	}
	b.sheet.segments = append(b.sheet.segments, segment{raw: s})
}

func (b *builder) node(n Node, size int) {
	b.consumed += size
	b.nodes++
	b.sheet.segments = append(b.sheet.segments, segment{node: n})
}

func (b *builder) position(off int) Position {
	// index of the last line start not after off
	lo, hi := 0, len(b.lines)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if b.lines[mid] <= off {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return Position{Offset: off, Line: lo + 1, Column: off - b.lines[lo] + 1}
}

// item turns tokens between two terminators into segments. Items ending with
// "{" are preludes of rules or at-rules, all others are statements.
func (b *builder) item(tokens []token, block bool) {
	first := nextSignificant(tokens, 0)
	if first < 0 {
		b.raw(join(tokens))
		return
	}

	switch t := tokens[first]; {
	case t.tt == css.AtKeywordToken:
		b.raw(join(tokens[:first]))
		b.atRule(tokens[first:], block)
	case !block && (t.tt == css.IdentToken || t.tt == css.CustomPropertyNameToken):
		colon := nextSignificant(tokens, first+1)
		if colon < 0 || tokens[colon].tt != css.ColonToken {
			b.raw(join(tokens))
			return
		}
		b.raw(join(tokens[:first]))
		b.declaration(tokens[first:], colon-first)
	default:
		// qualified rule prelude or something we do not understand
		b.raw(join(tokens))
	}
}

func (b *builder) atRule(tokens []token, block bool) {
	rule := &AtRule{
		Name:     strings.TrimPrefix(tokens[0].s, "@"),
		HasBlock: block,
		pos:      b.position(tokens[0].off),
	}

	i := skipTrivia(tokens, 1)
	rule.afterName = join(tokens[1:i])

	end := trimTrailingTrivia(tokens, i)
	rule.Params = join(tokens[i:end])

	b.node(rule, len(tokens[0].s)+len(rule.afterName)+len(rule.Params))
	b.raw(join(tokens[end:]))
}

func (b *builder) declaration(tokens []token, colon int) {
	decl := &Declaration{
		Property: tokens[0].s,
		pos:      b.position(tokens[0].off),
	}

	i := skipTrivia(tokens, colon+1)
	decl.between = join(tokens[1:i])

	end := trimTrailingTrivia(tokens, i)
	valueEnd := end
	if bang := importantStart(tokens, i, end); bang >= 0 {
		valueEnd = trimTrailingTrivia(tokens[:bang], i)
		decl.Important = true
		decl.important = join(tokens[valueEnd:end])
	}
	decl.Value = join(tokens[i:valueEnd])

	b.node(decl, len(decl.Property)+len(decl.between)+len(decl.Value)+len(decl.important))
	b.raw(join(tokens[end:]))
}

// importantStart returns index of "!" of a trailing "!important" within
// tokens[from:end] or -1.
func importantStart(tokens []token, from, end int) int {
	last := end - 1
	if last < from || tokens[last].tt != css.IdentToken || !strings.EqualFold(tokens[last].s, "important") {
		return -1
	}
	i := last - 1
	for i >= from && (tokens[i].tt == css.WhitespaceToken || tokens[i].tt == css.CommentToken) {
		i--
	}
	if i < from || tokens[i].tt != css.DelimToken || tokens[i].s != "!" {
		return -1
	}
	return i
}

// nextSignificant returns index of the first token at or after from which is
// neither whitespace nor comment, or -1.
func nextSignificant(tokens []token, from int) int {
	for i := from; i < len(tokens); i++ {
		if tokens[i].tt != css.WhitespaceToken && tokens[i].tt != css.CommentToken {
			return i
		}
	}
	return -1
}

// skipTrivia returns index of the first token at or after from which is
// neither whitespace nor comment, or len(tokens).
func skipTrivia(tokens []token, from int) int {
	if i := nextSignificant(tokens, from); i >= 0 {
		return i
	}
	return len(tokens)
}

// trimTrailingTrivia returns end index of tokens[from:] without trailing
// whitespace and comments.
func trimTrailingTrivia(tokens []token, from int) int {
	end := len(tokens)
	for end > from && (tokens[end-1].tt == css.WhitespaceToken || tokens[end-1].tt == css.CommentToken) {
		end--
	}
	return end
}

func join(tokens []token) string {
	switch len(tokens) {
	case 0:
		return ""
	case 1:
		return tokens[0].s
	}
	var sb strings.Builder
	for _, t := range tokens {
		sb.WriteString(t.s)
	}
	return sb.String()
}

// lineStarts returns offsets of the first byte of every line.
func lineStarts(s string) []int {
	starts := []int{0}
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}
