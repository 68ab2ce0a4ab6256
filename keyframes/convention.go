package keyframes

import (
	"regexp"
	"strings"

	"kfscope/common"
)

// Decision is the scope of an animation name and the name with any scope
// marker removed.
type Decision struct {
	Scope common.Scope
	Name  string
}

// Convention decides scope of animation names.
type Convention interface {
	Decide(name string) Decision
}

// marker recognizes names marked with a regular expression.
type marker struct {
	re    *regexp.Regexp
	group int // 0 - cut the match out of the name
}

// strip returns name without the marker.
func (m *marker) strip(name string) (string, bool) {
	loc := m.re.FindStringSubmatchIndex(name)
	if loc == nil {
		return "", false
	}
	var cleaned string
	if s, e := loc[2*m.group], loc[2*m.group+1]; m.group > 0 && s >= 0 {
		cleaned = name[s:e]
	} else {
		cleaned = name[:loc[0]] + name[loc[1]:]
	}
	if len(cleaned) == 0 {
		return "", false
	}
	return cleaned, true
}

// affixConvention: "global--name" and "local--name" by default, unmarked
// names get default scope.
type affixConvention struct {
	global, local *marker
	scope         common.Scope
}

func (c *affixConvention) Decide(name string) Decision {
	if cleaned, ok := c.global.strip(name); ok {
		return Decision{Scope: common.ScopeGlobal, Name: cleaned}
	}
	if cleaned, ok := c.local.strip(name); ok {
		return Decision{Scope: common.ScopeLocal, Name: cleaned}
	}
	return Decision{Scope: c.scope, Name: name}
}

// wrapperConvention: "global(name)" is global, everything else is local.
type wrapperConvention struct{}

func (wrapperConvention) Decide(name string) Decision {
	const open = "global("
	if len(name) > len(open) && strings.EqualFold(name[:len(open)], open) && strings.HasSuffix(name, ")") {
		if inner := strings.TrimSpace(name[len(open) : len(name)-1]); len(inner) > 0 {
			return Decision{Scope: common.ScopeGlobal, Name: inner}
		}
	}
	return Decision{Scope: common.ScopeLocal, Name: name}
}
