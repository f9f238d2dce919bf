// Package builtin holds the plugins compiled into the stratus binary.
package builtin

import "github.com/soyeahso/stratus/internal/plugin"

// Catalog returns the builtin plugins by name, for plugin.NewBuiltinLoader.
func Catalog() map[string]plugin.SetupFunc {
	return map[string]plugin.SetupFunc{
		"coresieve": CoreSieve,
		"ctcp":      CTCP,
		"autojoin":  AutoJoin,
		"admin":     Admin,
	}
}
