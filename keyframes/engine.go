// Package keyframes scopes CSS animation names to the stylesheet they are
// defined in: @keyframes names and every reference to them in animation and
// animation-name declarations receive a per-stylesheet prefix unless marked as
// global.
package keyframes

import (
	"strings"

	"go.uber.org/zap"

	"kfscope/common"
	"kfscope/css"
)

// PluginName is reported with every diagnostic.
const PluginName = "local-keyframes"

// Diagnostics.
const (
	WarnNoName    = "Can't get animation name from shorthand property"
	WarnAmbiguous = "Ambiguous animation name in shorthand property"
)

var vendors = []string{"-webkit-", "-moz-", "-o-"}

// names which are never scoped in animation-name
var reservedNames = map[string]struct{}{
	"none": {}, "initial": {}, "inherit": {}, "unset": {}, "revert": {}, "revert-layer": {},
}

// Engine rewrites animation names. It is safe to share one Engine between
// traversals, all per-stylesheet state lives in css.Result.
type Engine struct {
	opts Options
	conv Convention
	log  *zap.Logger
}

// New validates options and creates Engine.
func New(opts Options, log *zap.Logger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	conv, err := opts.convention()
	if err != nil {
		return nil, err
	}
	if opts.GenerateHashedPrefix == nil {
		opts.GenerateHashedPrefix = GenerateHashedPrefix
	}
	return &Engine{opts: opts, conv: conv, log: log.Named("keyframes")}, nil
}

// Options returns options engine was created with.
func (e *Engine) Options() Options {
	return e.opts
}

// Plugin returns css.Plugin performing scoping. Plugins of the same engine
// share traversal state, so registering it more than once on a processor does
// not rewrite anything twice.
func (e *Engine) Plugin() *css.Plugin {
	p := &css.Plugin{
		Name: PluginName,
		Once: func(_ *css.Stylesheet, res *css.Result) {
			e.session(res)
		},
		AtRule:      make(map[string]func(*css.AtRule, *css.Result)),
		Declaration: make(map[string]func(*css.Declaration, *css.Result)),
	}
	for _, v := range e.spellings() {
		p.AtRule[v+"keyframes"] = e.keyframes
		p.Declaration[v+"animation-name"] = e.animationName
		p.Declaration[v+"animation"] = e.animation
	}
	return p
}

// Process scopes names in sheet with a fresh traversal.
func (e *Engine) Process(sheet *css.Stylesheet) *css.Result {
	return css.NewProcessor(e.log, e.Plugin()).Process(sheet)
}

func (e *Engine) spellings() []string {
	if !e.opts.VendorPrefixes {
		return []string{""}
	}
	return append([]string{""}, vendors...)
}

// session is state of a single traversal.
type session struct {
	prefix  string
	visited map[css.Node]struct{}
}

type sessionKey struct {
	e *Engine
}

func (e *Engine) session(res *css.Result) *session {
	return res.State(sessionKey{e}, func() any {
		s := &session{
			prefix:  ResolvePrefix(e.opts, res.Sheet),
			visited: make(map[css.Node]struct{}),
		}
		e.log.Debug("Prefix resolved", zap.String("source", res.Sheet.From), zap.String("prefix", s.prefix))
		return s
	}).(*session)
}

// enter marks node as visited, returns false if it already was.
func (s *session) enter(n css.Node) bool {
	if _, ok := s.visited[n]; ok {
		return false
	}
	s.visited[n] = struct{}{}
	return true
}

func (e *Engine) keyframes(rule *css.AtRule, res *css.Result) {
	s := e.session(res)
	if !s.enter(rule) {
		return
	}
	params := rule.Params
	name := trimSpan(params, span{0, len(params)})
	if name.start == name.end {
		return
	}
	scoped := params[:name.start] + e.scope(params[name.start:name.end], s.prefix) + params[name.end:]
	e.logRename(rule, params, scoped)
	rule.Params = scoped
}

func (e *Engine) animationName(decl *css.Declaration, res *css.Result) {
	s := e.session(res)
	if !s.enter(decl) {
		return
	}

	var (
		value = decl.Value
		sb    strings.Builder
		last  int
	)
	for _, item := range splitList(value) {
		item = trimSpan(value, item)
		name := value[item.start:item.end]
		if len(name) == 0 || isReserved(name) {
			continue
		}
		sb.WriteString(value[last:item.start])
		sb.WriteString(e.scope(name, s.prefix))
		last = item.end
	}
	sb.WriteString(value[last:])

	scoped := sb.String()
	e.logRename(decl, value, scoped)
	decl.Value = scoped
}

func (e *Engine) animation(decl *css.Declaration, res *css.Result) {
	s := e.session(res)
	if !s.enter(decl) {
		return
	}

	value := decl.Value
	layers := ExtractNames(value)
	spans := splitList(value)
	for i, l := range layers {
		if !l.OK {
			if nothingToName(value, spans[i]) {
				continue
			}
			decl.Warn(res, WarnNoName)
			return
		}
		if l.Ambiguous() {
			if e.opts.StrictShorthand {
				decl.Warn(res, WarnAmbiguous)
				return
			}
			e.log.Debug("Ambiguous animation shorthand, using first candidate",
				zap.String("source", res.Sheet.From),
				zap.Int("line", decl.Pos().Line),
				zap.Strings("candidates", l.Candidates))
		}
	}

	var (
		sb   strings.Builder
		last int
	)
	for _, l := range layers {
		if !l.OK || isReserved(l.Name) {
			continue
		}
		sb.WriteString(value[last:l.Start])
		sb.WriteString(e.scope(l.Name, s.prefix))
		last = l.End
	}
	sb.WriteString(value[last:])

	scoped := sb.String()
	e.logRename(decl, value, scoped)
	decl.Value = scoped
}

// scope returns name rewritten according to its scope. Quoted names are
// decided on the text inside quotes.
func (e *Engine) scope(name, prefix string) string {
	var quote string
	if n := len(name); n >= 2 && (name[0] == '"' || name[0] == '\'') && name[n-1] == name[0] {
		quote, name = name[:1], name[1:n-1]
	}

	d := e.conv.Decide(name)
	if d.Scope == common.ScopeLocal && !strings.HasPrefix(d.Name, prefix) {
		d.Name = prefix + d.Name
	}
	return quote + d.Name + quote
}

func (e *Engine) logRename(n css.Node, from, to string) {
	if from == to {
		return
	}
	pos := n.Pos()
	e.log.Debug("Animation name scoped",
		zap.Int("line", pos.Line),
		zap.Int("column", pos.Column),
		zap.String("from", from),
		zap.String("to", to))
}

func isReserved(name string) bool {
	lower := strings.ToLower(name)
	if _, ok := reservedNames[lower]; ok {
		return true
	}
	return isSubstitution(lower)
}
