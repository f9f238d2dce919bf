package builtin

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/soyeahso/stratus/internal/plugin"
)

// Permissions checked by the admin commands.
const (
	permView     = "permissions.view"
	permViewSelf = "permissions.view.self"
	permManage   = "permissions.manage"
	permBotMgmt  = "bot.manage"
	permBotCtl   = "bot.control"
)

var (
	userMaskPattern = regexp.MustCompile(`.+!.+@.+`)
	nickPattern     = regexp.MustCompile(`^[a-z0-9_|.\-\]\[]+$`)
)

// Admin registers permission management and bot control commands.
func Admin(r *plugin.Registrar) error {
	r.Command([]string{"groups"}, listGroups,
		plugin.Permissions(permView), plugin.AutoHelp(false),
		plugin.Needs("permissions"), plugin.Doc("- lists all valid groups"))
	r.Command([]string{"gperms"}, groupPermissions,
		plugin.Permissions(permView),
		plugin.Needs("text", "permissions", "notice"), plugin.Doc("<group> - lists permissions given to <group>"))
	r.Command([]string{"gusers"}, groupUsers,
		plugin.Permissions(permView),
		plugin.Needs("text", "permissions", "notice"), plugin.Doc("<group> - lists users in <group>"))
	r.Command([]string{"uperms"}, userPermissions,
		plugin.Permissions(permView, permViewSelf), plugin.AutoHelp(false),
		plugin.Needs("text", "mask", "permissions", "has_permission", "notice"),
		plugin.Doc("[user] - lists all permissions given to [user], or the caller if no user is specified"))
	r.Command([]string{"ugroups"}, userGroups,
		plugin.Permissions(permView, permViewSelf), plugin.AutoHelp(false),
		plugin.Needs("text", "mask", "permissions", "has_permission", "notice"),
		plugin.Doc("[user] - lists the groups of [user], or of the caller if no user is specified"))
	r.Command([]string{"adduser"}, addUser,
		plugin.Permissions(permManage), plugin.Exclusive(),
		plugin.Needs("text", "permissions", "notice"), plugin.Doc("<user> <group> - adds <user> to <group>"))
	r.Command([]string{"deluser"}, delUser,
		plugin.Permissions(permManage), plugin.Exclusive(),
		plugin.Needs("text", "permissions", "notice", "reply"),
		plugin.Doc("<user> [group] - removes <user> from [group], or from all groups if no group is specified"))

	r.Command([]string{"join"}, joinChannels,
		plugin.Permissions(permBotMgmt),
		plugin.Needs("text", "conn", "notice"), plugin.Doc("<channel> - joins <channel>"))
	r.Command([]string{"part"}, partChannels,
		plugin.Permissions(permBotMgmt), plugin.AutoHelp(false),
		plugin.Needs("text", "chan", "conn", "notice"),
		plugin.Doc("[#channel] - parts [#channel], or the caller's channel if no channel is specified"))
	r.Command([]string{"nick"}, changeNick,
		plugin.Permissions(permBotMgmt),
		plugin.Needs("text", "conn", "notice"), plugin.Doc("<nick> - changes my nickname to <nick>"))
	r.Command([]string{"say"}, say,
		plugin.Permissions(permBotCtl),
		plugin.Needs("text", "chan", "conn"),
		plugin.Doc("[#channel] <message> - says <message> to [#channel], or to the caller's channel"))
	r.Command([]string{"act", "me"}, act,
		plugin.Permissions(permBotCtl),
		plugin.Needs("text", "chan", "conn"),
		plugin.Doc("[#channel] <action> - acts out <action> in [#channel], or in the caller's channel"))
	return nil
}

func listGroups(_ context.Context, args plugin.Args) (any, error) {
	return fmt.Sprintf("Valid groups: %s", strings.Join(args.Permissions().Groups(), ", ")), nil
}

func groupPermissions(_ context.Context, args plugin.Args) (any, error) {
	group := strings.ToLower(strings.TrimSpace(args.String("text")))
	perms := args.Permissions()
	switch {
	case len(perms.GroupPermissions(group)) > 0:
		return fmt.Sprintf("Group %s has permissions %s", group, strings.Join(perms.GroupPermissions(group), ", ")), nil
	case perms.GroupExists(group):
		return fmt.Sprintf("Group %s exists, but has no permissions", group), nil
	default:
		return nil, args.Notice()(fmt.Sprintf("Unknown group '%s'", group))
	}
}

func groupUsers(_ context.Context, args plugin.Args) (any, error) {
	group := strings.ToLower(strings.TrimSpace(args.String("text")))
	perms := args.Permissions()
	switch {
	case len(perms.GroupUsers(group)) > 0:
		return fmt.Sprintf("Group %s has members: %s", group, strings.Join(perms.GroupUsers(group), ", ")), nil
	case perms.GroupExists(group):
		return fmt.Sprintf("Group %s exists, but has no members", group), nil
	default:
		return nil, args.Notice()(fmt.Sprintf("Unknown group '%s'", group))
	}
}

// subject resolves the user a self-or-other query is about. It returns ""
// after noticing the caller when they may not look at other users.
func subject(args plugin.Args) string {
	text := strings.TrimSpace(args.String("text"))
	if text == "" {
		return strings.ToLower(args.String("mask"))
	}
	if !args.HasPermission()(permView) {
		_ = args.Notice()("Sorry, you are not allowed to use this command on another user.")
		return ""
	}
	return strings.ToLower(text)
}

func userPermissions(_ context.Context, args plugin.Args) (any, error) {
	user := subject(args)
	if user == "" {
		return nil, nil
	}
	if perms := args.Permissions().UserPermissions(user); len(perms) > 0 {
		return fmt.Sprintf("User %s has permissions: %s", user, strings.Join(perms, ", ")), nil
	}
	return fmt.Sprintf("User %s has no elevated permissions", user), nil
}

func userGroups(_ context.Context, args plugin.Args) (any, error) {
	user := subject(args)
	if user == "" {
		return nil, nil
	}
	if groups := args.Permissions().UserGroups(user); len(groups) > 0 {
		return fmt.Sprintf("User %s is in groups: %s", user, strings.Join(groups, ", ")), nil
	}
	return fmt.Sprintf("User %s is in no permission groups", user), nil
}

func addUser(_ context.Context, args plugin.Args) (any, error) {
	fields := strings.Fields(args.String("text"))
	notice := args.Notice()
	switch {
	case len(fields) > 2:
		return nil, notice("Too many arguments")
	case len(fields) < 2:
		return nil, notice("Not enough arguments")
	}
	user, group := strings.ToLower(fields[0]), strings.ToLower(fields[1])
	if !userMaskPattern.MatchString(user) {
		return nil, notice("The user must be in the format 'nick!user@host'")
	}

	perms := args.Permissions()
	existed := perms.GroupExists(group)
	if !perms.AddGroupUser(group, user) {
		return fmt.Sprintf("User %s is already matched in group %s", user, group), nil
	}
	perms.Reload()
	if existed {
		return fmt.Sprintf("User %s added to group %s", user, group), nil
	}
	return fmt.Sprintf("Group %s created with user %s", group, user), nil
}

func delUser(_ context.Context, args plugin.Args) (any, error) {
	fields := strings.Fields(args.String("text"))
	notice, reply := args.Notice(), args.Reply()
	switch {
	case len(fields) > 2:
		return nil, notice("Too many arguments")
	case len(fields) < 1:
		return nil, notice("Not enough arguments")
	}
	user := strings.ToLower(fields[0])
	perms := args.Permissions()

	var groups []string
	if len(fields) == 2 {
		group := strings.ToLower(fields[1])
		if !perms.GroupExists(group) {
			return nil, notice(fmt.Sprintf("Unknown group '%s'", group))
		}
		groups = []string{group}
	} else {
		groups = perms.UserGroups(user)
	}

	changed := false
	for _, group := range groups {
		removed := perms.RemoveGroupUser(group, user)
		if len(removed) == 0 {
			if len(fields) == 2 {
				_ = reply(fmt.Sprintf("No masks in %s matched %s", group, user))
			}
			continue
		}
		changed = true
		_ = reply(fmt.Sprintf("Removed %s from %s", joinAnd(removed), group))
	}

	if !changed {
		if len(fields) == 1 {
			return fmt.Sprintf("No masks with elevated permissions matched %s", user), nil
		}
		return nil, nil
	}
	perms.Reload()
	return nil, nil
}

func joinAnd(items []string) string {
	if len(items) < 2 {
		return strings.Join(items, "")
	}
	return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
}

func channelName(target string) string {
	if strings.HasPrefix(target, "#") {
		return target
	}
	return "#" + target
}

func joinChannels(_ context.Context, args plugin.Args) (any, error) {
	conn, notice := args.Conn(), args.Notice()
	for _, target := range strings.Fields(args.String("text")) {
		target = channelName(target)
		_ = notice(fmt.Sprintf("Attempting to join %s...", target))
		conn.Join(target)
	}
	return nil, nil
}

func partChannels(_ context.Context, args plugin.Args) (any, error) {
	targets := args.String("text")
	if strings.TrimSpace(targets) == "" {
		targets = args.String("chan")
	}
	conn, notice := args.Conn(), args.Notice()
	for _, target := range strings.Fields(targets) {
		target = channelName(target)
		_ = notice(fmt.Sprintf("Leaving %s.", target))
		conn.Cmd("PART", target)
	}
	return nil, nil
}

func changeNick(_ context.Context, args plugin.Args) (any, error) {
	nick := strings.TrimSpace(args.String("text"))
	if !nickPattern.MatchString(strings.ToLower(nick)) {
		return nil, args.Notice()(fmt.Sprintf("Invalid username '%s'", nick))
	}
	_ = args.Notice()(fmt.Sprintf("Changing nick to '%s'.", nick))
	args.Conn().Cmd("NICK", nick)
	return nil, nil
}

// splitTarget separates an optional leading #channel from the text.
func splitTarget(text, fallback string) (string, string) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "#") {
		target, rest, _ := strings.Cut(text, " ")
		return target, strings.TrimSpace(rest)
	}
	return fallback, text
}

func say(_ context.Context, args plugin.Args) (any, error) {
	target, text := splitTarget(args.String("text"), args.String("chan"))
	if text == "" {
		return nil, nil
	}
	args.Conn().Message(target, text)
	return nil, nil
}

func act(_ context.Context, args plugin.Args) (any, error) {
	target, text := splitTarget(args.String("text"), args.String("chan"))
	if text == "" {
		return nil, nil
	}
	args.Conn().Action(target, text)
	return nil, nil
}
