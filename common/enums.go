// Package common keeps enums shared between configuration and the scoping
// engine, so that the engine does not have to depend on program configuration.
package common

//go:generate go tool go-enum --marshal --names

// Scope of an animation name.
// ENUM(global, local)
type Scope int

// IsLocal reports whether names in this scope are rewritten with a prefix.
func (s Scope) IsLocal() bool {
	return s == ScopeLocal
}

// Naming convention used to mark animation names as global or local.
// ENUM(affix, wrapper)
type Convention int
