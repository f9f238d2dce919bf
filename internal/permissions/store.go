// Package permissions implements the group and permission collaborator
// handed to hooks through each connection.
package permissions

import (
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/gobwas/glob"

	"github.com/soyeahso/stratus/internal/config"
	"github.com/soyeahso/stratus/internal/logging"
)

// SaveFunc persists the group table after a mutation has been reloaded.
type SaveFunc func(config.PermissionsConfig) error

type group struct {
	users []string
	perms []string
}

type matcher struct {
	group string
	mask  string
	glob  glob.Glob
}

// Store holds permission groups keyed by lowercase name. Users are
// nick!user@host glob masks. Mutations edit the source table only;
// HasPermission and the lookup methods read the compiled table, which
// Reload rebuilds.
type Store struct {
	mu       sync.RWMutex
	log      *logging.Logger
	source   map[string]*group
	compiled []matcher
	perms    map[string][]string // group -> perms, as of last Reload
	dirty    bool
	save     SaveFunc
}

// New creates a Store from config and compiles it.
func New(cfg config.PermissionsConfig, log *logging.Logger) *Store {
	s := &Store{
		log:    log.Sub("permissions"),
		source: make(map[string]*group),
	}
	for name, g := range cfg.Groups {
		s.source[strings.ToLower(name)] = &group{
			users: lowerAll(g.Users),
			perms: lowerAll(g.Perms),
		}
	}
	s.Reload()
	return s
}

// OnSave registers a function called by Reload when the table changed.
func (s *Store) OnSave(fn SaveFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.save = fn
}

// Reload recompiles the masks so earlier mutations become visible.
func (s *Store) Reload() {
	s.mu.Lock()
	compiled := make([]matcher, 0, len(s.compiled))
	perms := make(map[string][]string, len(s.source))
	for name, g := range s.source {
		perms[name] = slices.Clone(g.perms)
		for _, mask := range g.users {
			gl, err := glob.Compile(mask)
			if err != nil {
				s.log.Warn().Err(err).Str("group", name).Str("mask", mask).Msg("skipping invalid mask")
				continue
			}
			compiled = append(compiled, matcher{group: name, mask: mask, glob: gl})
		}
	}
	s.compiled = compiled
	s.perms = perms

	var (
		save     SaveFunc
		snapshot config.PermissionsConfig
	)
	if s.dirty && s.save != nil {
		save = s.save
		snapshot = s.snapshotLocked()
	}
	s.dirty = false
	s.mu.Unlock()

	if save != nil {
		if err := save(snapshot); err != nil {
			s.log.Error().Err(err).Msg("failed to save permissions")
		}
	}
}

// Config returns the current source table.
func (s *Store) Config() config.PermissionsConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() config.PermissionsConfig {
	out := config.PermissionsConfig{Groups: make(map[string]config.GroupConfig, len(s.source))}
	for name, g := range s.source {
		out.Groups[name] = config.GroupConfig{
			Users: slices.Clone(g.users),
			Perms: slices.Clone(g.perms),
		}
	}
	return out
}

// HasPermission reports whether any group matching mask grants perm.
func (s *Store) HasPermission(mask, perm string) bool {
	perm = strings.ToLower(perm)
	return slices.Contains(s.UserPermissions(mask), perm)
}

// Groups lists every group name, sorted.
func (s *Store) Groups() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.source))
	for name := range s.source {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Store) GroupExists(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.source[strings.ToLower(name)]
	return ok
}

// GroupUsers returns the member masks of a group.
func (s *Store) GroupUsers(name string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if g, ok := s.source[strings.ToLower(name)]; ok {
		return slices.Clone(g.users)
	}
	return nil
}

// GroupPermissions returns the permissions granted to a group.
func (s *Store) GroupPermissions(name string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if g, ok := s.source[strings.ToLower(name)]; ok {
		return slices.Clone(g.perms)
	}
	return nil
}

// UserPermissions returns the sorted union of permissions of every group
// with a mask matching the user.
func (s *Store) UserPermissions(mask string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]bool)
	for _, name := range s.userGroupsLocked(mask) {
		for _, p := range s.perms[name] {
			seen[p] = true
		}
	}
	return sortedKeys(seen)
}

// UserGroups returns the sorted names of groups with a mask matching the user.
func (s *Store) UserGroups(mask string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userGroupsLocked(mask)
}

func (s *Store) userGroupsLocked(mask string) []string {
	mask = strings.ToLower(mask)
	seen := make(map[string]bool)
	for _, m := range s.compiled {
		if m.glob.Match(mask) {
			seen[m.group] = true
		}
	}
	return sortedKeys(seen)
}

// AddGroupUser adds mask to group, creating the group if needed. It returns
// false when the group already has a mask matching it.
func (s *Store) AddGroupUser(name, mask string) bool {
	name, mask = strings.ToLower(name), strings.ToLower(mask)
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.source[name]
	if !ok {
		g = &group{}
		s.source[name] = g
	}
	for _, existing := range g.users {
		if existing == mask || matches(existing, mask) {
			return false
		}
	}
	g.users = append(g.users, mask)
	s.dirty = true
	return true
}

// RemoveGroupUser removes every mask in group that matches the user and
// returns the removed masks.
func (s *Store) RemoveGroupUser(name, mask string) []string {
	name, mask = strings.ToLower(name), strings.ToLower(mask)
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.source[name]
	if !ok {
		return nil
	}
	var removed, kept []string
	for _, existing := range g.users {
		if existing == mask || matches(existing, mask) {
			removed = append(removed, existing)
		} else {
			kept = append(kept, existing)
		}
	}
	if len(removed) > 0 {
		g.users = kept
		s.dirty = true
	}
	return removed
}

func matches(pattern, mask string) bool {
	g, err := glob.Compile(pattern)
	return err == nil && g.Match(mask)
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		out = append(out, strings.ToLower(v))
	}
	return out
}

func sortedKeys(m map[string]bool) []string {
	if len(m) == 0 {
		return nil
	}
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
