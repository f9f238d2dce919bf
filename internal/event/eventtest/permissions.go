package eventtest

import "sync"

// Permissions grants permissions to exact masks. It implements event.Permissions.
type Permissions struct {
	mu     sync.Mutex
	grants map[string][]string // mask -> perms
}

// NewPermissions creates an empty grant table.
func NewPermissions() *Permissions {
	return &Permissions{grants: make(map[string][]string)}
}

// Grant gives mask the listed permissions.
func (p *Permissions) Grant(mask string, perms ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.grants[mask] = append(p.grants[mask], perms...)
}

func (p *Permissions) HasPermission(mask, perm string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, g := range p.grants[mask] {
		if g == perm {
			return true
		}
	}
	return false
}

func (p *Permissions) Groups() []string                 { return nil }
func (p *Permissions) GroupExists(string) bool          { return false }
func (p *Permissions) GroupUsers(string) []string       { return nil }
func (p *Permissions) GroupPermissions(string) []string { return nil }
func (p *Permissions) UserGroups(string) []string       { return nil }
func (p *Permissions) AddGroupUser(string, string) bool { return false }
func (p *Permissions) RemoveGroupUser(string, string) []string {
	return nil
}
func (p *Permissions) Reload() {}

func (p *Permissions) UserPermissions(mask string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.grants[mask]...)
}
