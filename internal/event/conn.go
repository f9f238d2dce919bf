package event

import "errors"

// ErrNoConn is returned by emitters on events that carry no connection.
var ErrNoConn = errors.New("event has no connection")

// Conn is the connection collaborator an event was received on.
type Conn interface {
	Name() string
	// Nick returns the client's current nickname.
	Nick() string
	Message(target string, lines ...string)
	Notice(target, msg string)
	Action(target, msg string)
	// Cmd sends a raw protocol command.
	Cmd(verb string, params ...string)
	Join(channel string)
	Options() ConnOptions
	Permissions() Permissions
}

// ConnOptions is the static per-connection configuration visible to plugins.
type ConnOptions struct {
	CommandPrefix string
	Channels      []string
	Mode          string
	NickServ      *NickServ
}

// NickServ holds services identification settings.
type NickServ struct {
	Name     string
	Account  string
	Password string
	Command  string
}

// Permissions is the group/permission collaborator. Mutating calls must be
// followed by Reload before the change is visible to HasPermission.
type Permissions interface {
	HasPermission(mask, perm string) bool
	Groups() []string
	GroupExists(group string) bool
	GroupUsers(group string) []string
	GroupPermissions(group string) []string
	UserPermissions(mask string) []string
	UserGroups(mask string) []string
	AddGroupUser(group, mask string) bool
	RemoveGroupUser(group, mask string) []string
	Reload()
}
