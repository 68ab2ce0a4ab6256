package keyframes

import (
	"errors"
	"fmt"
	"regexp"

	"kfscope/common"
)

// HashPrefix is the Options.Prefix value requesting a prefix derived from the
// stylesheet path and content.
const HashPrefix = "<hash>"

// Default marker expressions for the affix convention.
const (
	DefaultGlobalRegExp = `^global--(.+)$`
	DefaultLocalRegExp  = `^local--(.+)$`
)

// ErrInvalidOptions is returned by New when options cannot be used.
var ErrInvalidOptions = errors.New("invalid keyframes options")

// PrefixGenerator computes a prefix from the stylesheet path (empty when
// unknown) and its text.
type PrefixGenerator func(from, source string) string

// Options controls scoping.
type Options struct {
	// Prefix is prepended to local names. HashPrefix (or empty) selects the
	// hashed mode.
	Prefix string
	// GenerateHashedPrefix replaces the built-in generator in hashed mode.
	GenerateHashedPrefix PrefixGenerator
	// DefaultScope applies to names without a marker (affix convention only).
	DefaultScope common.Scope
	// Convention selects how names are marked as global or local.
	Convention common.Convention
	// GlobalRegExp and LocalRegExp recognize marked names (affix convention
	// only). The cleaned name is taken from group "name", or from the first
	// group, or, when expression has no groups, is what remains after the
	// match is cut out. Empty selects the default expression.
	GlobalRegExp string
	LocalRegExp  string
	// StrictShorthand reports shorthand values with more than one possible
	// name instead of using the first one.
	StrictShorthand bool
	// VendorPrefixes enables -webkit-, -moz- and -o- spellings of the at-rule
	// and properties.
	VendorPrefixes bool
}

// DefaultOptions returns options with documented defaults.
func DefaultOptions() Options {
	return Options{
		Prefix:               HashPrefix,
		GenerateHashedPrefix: GenerateHashedPrefix,
		DefaultScope:         common.ScopeGlobal,
		Convention:           common.ConventionAffix,
		GlobalRegExp:         DefaultGlobalRegExp,
		LocalRegExp:          DefaultLocalRegExp,
		VendorPrefixes:       true,
	}
}

func (o *Options) hashed() bool {
	return len(o.Prefix) == 0 || o.Prefix == HashPrefix
}

// convention validates options and builds the naming strategy.
func (o *Options) convention() (Convention, error) {
	if !o.DefaultScope.IsValid() {
		return nil, fmt.Errorf("%w: default scope %d", ErrInvalidOptions, o.DefaultScope)
	}

	switch o.Convention {
	case common.ConventionAffix:
		global, err := compileMarker(o.GlobalRegExp, DefaultGlobalRegExp)
		if err != nil {
			return nil, fmt.Errorf("%w: global regexp: %w", ErrInvalidOptions, err)
		}
		local, err := compileMarker(o.LocalRegExp, DefaultLocalRegExp)
		if err != nil {
			return nil, fmt.Errorf("%w: local regexp: %w", ErrInvalidOptions, err)
		}
		return &affixConvention{global: global, local: local, scope: o.DefaultScope}, nil
	case common.ConventionWrapper:
		return wrapperConvention{}, nil
	default:
		return nil, fmt.Errorf("%w: convention %d", ErrInvalidOptions, o.Convention)
	}
}

func compileMarker(expr, def string) (*marker, error) {
	if len(expr) == 0 {
		expr = def
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}
	m := &marker{re: re}
	if i := re.SubexpIndex("name"); i > 0 {
		m.group = i
	} else if re.NumSubexp() > 0 {
		m.group = 1
	}
	return m, nil
}
