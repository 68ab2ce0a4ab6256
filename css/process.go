package css

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Plugin is a set of listeners invoked by Processor. At-rule and declaration
// listeners are keyed by lower-cased at-rule name (without "@") and property
// name.
type Plugin struct {
	Name        string
	Once        func(sheet *Stylesheet, res *Result)
	AtRule      map[string]func(rule *AtRule, res *Result)
	Declaration map[string]func(decl *Declaration, res *Result)
}

// Warning is a diagnostic produced by a plugin.
type Warning struct {
	Plugin string
	Text   string
	Node   Node
	Line   int
	Column int
}

func (w Warning) String() string {
	var sb strings.Builder
	if len(w.Plugin) > 0 {
		sb.WriteString(w.Plugin)
		sb.WriteString(": ")
	}
	if w.Line > 0 {
		fmt.Fprintf(&sb, "%d:%d: ", w.Line, w.Column)
	}
	sb.WriteString(w.Text)
	return sb.String()
}

// Result is the outcome of a single traversal.
type Result struct {
	Sheet    *Stylesheet
	Warnings []Warning

	plugin string
	state  map[any]any
}

// Warn records a diagnostic for node on behalf of plugin. When plugin is empty
// the plugin currently being dispatched is used.
func (r *Result) Warn(node Node, plugin, text string) {
	if len(plugin) == 0 {
		plugin = r.plugin
	}
	w := Warning{Plugin: plugin, Text: text, Node: node}
	if node != nil {
		pos := node.Pos()
		w.Line, w.Column = pos.Line, pos.Column
	}
	r.Warnings = append(r.Warnings, w)
}

// State returns value stored under key, calling init to create it on first
// access. Values live as long as the Result.
func (r *Result) State(key any, init func() any) any {
	if r.state == nil {
		r.state = make(map[any]any)
	}
	v, ok := r.state[key]
	if !ok {
		v = init()
		r.state[key] = v
	}
	return v
}

// Warn records a diagnostic referencing the declaration.
func (d *Declaration) Warn(res *Result, text string) {
	res.Warn(d, "", text)
}

// Warn records a diagnostic referencing the at-rule.
func (a *AtRule) Warn(res *Result, text string) {
	res.Warn(a, "", text)
}

// Processor runs plugins over stylesheets.
type Processor struct {
	log     *zap.Logger
	plugins []*Plugin
}

// NewProcessor creates processor with given plugins. Plugins are invoked in
// the order they are given.
func NewProcessor(log *zap.Logger, plugins ...*Plugin) *Processor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Processor{log: log.Named("css-processor"), plugins: plugins}
}

// Use adds plugin to the processor.
func (p *Processor) Use(plugin *Plugin) *Processor {
	p.plugins = append(p.plugins, plugin)
	return p
}

// Process runs every plugin Once hook and then dispatches every node of the
// stylesheet to matching listeners in document order. Nodes are modified in
// place.
func (p *Processor) Process(sheet *Stylesheet) *Result {
	res := &Result{Sheet: sheet}

	for _, plugin := range p.plugins {
		if plugin.Once == nil {
			continue
		}
		res.plugin = plugin.Name
		plugin.Once(sheet, res)
	}

	sheet.Walk(func(n Node) bool {
		switch node := n.(type) {
		case *AtRule:
			key := strings.ToLower(node.Name)
			for _, plugin := range p.plugins {
				if fn, ok := plugin.AtRule[key]; ok {
					res.plugin = plugin.Name
					fn(node, res)
				}
			}
		case *Declaration:
			key := strings.ToLower(node.Property)
			for _, plugin := range p.plugins {
				if fn, ok := plugin.Declaration[key]; ok {
					res.plugin = plugin.Name
					fn(node, res)
				}
			}
		}
		return true
	})
	res.plugin = ""

	if len(res.Warnings) > 0 {
		p.log.Debug("Stylesheet processed with warnings", zap.String("source", sheet.From), zap.Int("warnings", len(res.Warnings)))
	}
	return res
}
