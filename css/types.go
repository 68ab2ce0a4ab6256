package css

import (
	"io"
	"strings"
)

// Position is a location of a node in the source text. Line and Column are
// 1-based, Column counts bytes.
type Position struct {
	Offset int
	Line   int
	Column int
}

// Node is an editable item of a stylesheet. Only the fields the grammar
// defines are exposed, everything else (comments, whitespace, braces) is kept
// as raw text around the nodes.
type Node interface {
	Pos() Position
	writeTo(sb *strings.Builder)
}

// AtRule represents the prelude of an at-rule, e.g. "@keyframes spin {" or
// "@import url(a.css);".
type AtRule struct {
	Name     string // as written, without "@"
	Params   string // prelude without surrounding whitespace and comments
	HasBlock bool   // prelude is followed by "{"

	afterName string
	pos       Position
}

// Pos returns position of the at-keyword.
func (a *AtRule) Pos() Position { return a.pos }

func (a *AtRule) writeTo(sb *strings.Builder) {
	sb.WriteByte('@')
	sb.WriteString(a.Name)
	sb.WriteString(a.afterName)
	sb.WriteString(a.Params)
}

// Declaration represents a single "property: value" pair.
type Declaration struct {
	Property  string // as written
	Value     string // without surrounding whitespace, comments and "!important"
	Important bool

	between   string // colon with whitespace around it
	important string // "!important" as written, including preceding whitespace
	pos       Position
}

// Pos returns position of the property name.
func (d *Declaration) Pos() Position { return d.pos }

func (d *Declaration) writeTo(sb *strings.Builder) {
	sb.WriteString(d.Property)
	if len(d.between) == 0 {
		sb.WriteString(": ")
	} else {
		sb.WriteString(d.between)
	}
	sb.WriteString(d.Value)
	if d.Important {
		if len(d.important) == 0 {
			sb.WriteString(" !important")
		} else {
			sb.WriteString(d.important)
		}
	}
}

// segment is either raw text or a node.
type segment struct {
	raw  string
	node Node
}

// Stylesheet represents a parsed CSS stylesheet. Printing a stylesheet nobody
// modified reproduces the parsed text exactly.
type Stylesheet struct {
	From   string // file the stylesheet came from, may be empty
	Source string // original text without byte order mark

	segments []segment
}

// Nodes returns all nodes in document order.
func (s *Stylesheet) Nodes() []Node {
	nodes := make([]Node, 0, len(s.segments)/2)
	for _, seg := range s.segments {
		if seg.node != nil {
			nodes = append(nodes, seg.node)
		}
	}
	return nodes
}

// Walk calls fn for every node in document order until fn returns false.
func (s *Stylesheet) Walk(fn func(Node) bool) {
	for _, seg := range s.segments {
		if seg.node == nil {
			continue
		}
		if !fn(seg.node) {
			return
		}
	}
}

// AtRules returns all at-rules with the given name (case-insensitive).
func (s *Stylesheet) AtRules(name string) []*AtRule {
	var rules []*AtRule
	s.Walk(func(n Node) bool {
		if r, ok := n.(*AtRule); ok && strings.EqualFold(r.Name, name) {
			rules = append(rules, r)
		}
		return true
	})
	return rules
}

// Declarations returns all declarations of the given property (case-insensitive).
func (s *Stylesheet) Declarations(property string) []*Declaration {
	var decls []*Declaration
	s.Walk(func(n Node) bool {
		if d, ok := n.(*Declaration); ok && strings.EqualFold(d.Property, property) {
			decls = append(decls, d)
		}
		return true
	})
	return decls
}

// WriteTo writes the stylesheet to w in source order, implementing io.WriterTo.
func (s *Stylesheet) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, s.String())
	return int64(n), err
}

// String returns the CSS text of the stylesheet.
func (s *Stylesheet) String() string {
	var sb strings.Builder
	sb.Grow(len(s.Source) + len(s.Source)/8)
	for _, seg := range s.segments {
		if seg.node != nil {
			seg.node.writeTo(&sb)
			continue
		}
		sb.WriteString(seg.raw)
	}
	return sb.String()
}
