package permissions

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyeahso/stratus/internal/config"
	"github.com/soyeahso/stratus/internal/event"
	"github.com/soyeahso/stratus/internal/logging"
)

var _ event.Permissions = (*Store)(nil)

func testStore(t *testing.T) *Store {
	t.Helper()
	return New(config.PermissionsConfig{Groups: map[string]config.GroupConfig{
		"Admins": {
			Users: []string{"*!*@Admin.example.org"},
			Perms: []string{"permissions.manage", "bot.manage"},
		},
		"viewers": {
			Users: []string{"alice!*@*", "*!*@admin.example.org"},
			Perms: []string{"permissions.view"},
		},
		"empty": {},
	}}, logging.New(nil, "silent"))
}

func TestStore_HasPermission(t *testing.T) {
	s := testStore(t)

	assert.True(t, s.HasPermission("root!~root@admin.example.org", "bot.manage"))
	assert.True(t, s.HasPermission("ROOT!~root@ADMIN.example.org", "Bot.Manage"))
	assert.True(t, s.HasPermission("alice!alice@home.net", "permissions.view"))
	assert.False(t, s.HasPermission("alice!alice@home.net", "bot.manage"))
	assert.False(t, s.HasPermission("mallory!m@evil.net", "permissions.view"))
}

func TestStore_Lookups(t *testing.T) {
	s := testStore(t)

	assert.Equal(t, []string{"admins", "empty", "viewers"}, s.Groups())
	assert.True(t, s.GroupExists("ADMINS"))
	assert.False(t, s.GroupExists("ops"))
	assert.Equal(t, []string{"alice!*@*", "*!*@admin.example.org"}, s.GroupUsers("viewers"))
	assert.Equal(t, []string{"permissions.view"}, s.GroupPermissions("viewers"))
	assert.Nil(t, s.GroupUsers("ops"))

	assert.Equal(t, []string{"admins", "viewers"}, s.UserGroups("root!r@admin.example.org"))
	assert.Equal(t,
		[]string{"bot.manage", "permissions.manage", "permissions.view"},
		s.UserPermissions("root!r@admin.example.org"))
	assert.Nil(t, s.UserGroups("nobody!n@nowhere"))
}

func TestStore_MutationsNeedReload(t *testing.T) {
	s := testStore(t)
	bob := "bob!bob@bob.example.org"

	assert.True(t, s.AddGroupUser("admins", "bob!*@*"))
	assert.False(t, s.HasPermission(bob, "bot.manage"))
	s.Reload()
	assert.True(t, s.HasPermission(bob, "bot.manage"))

	assert.False(t, s.AddGroupUser("admins", bob), "already matched by bob!*@*")

	removed := s.RemoveGroupUser("admins", bob)
	assert.Equal(t, []string{"bob!*@*"}, removed)
	assert.True(t, s.HasPermission(bob, "bot.manage"))
	s.Reload()
	assert.False(t, s.HasPermission(bob, "bot.manage"))

	assert.Nil(t, s.RemoveGroupUser("admins", bob))
	assert.Nil(t, s.RemoveGroupUser("ops", bob))
}

func TestStore_AddCreatesGroup(t *testing.T) {
	s := testStore(t)
	assert.True(t, s.AddGroupUser("Ops", "carol!*@*"))
	assert.True(t, s.GroupExists("ops"))
	assert.Empty(t, s.GroupPermissions("ops"))
	s.Reload()
	assert.Equal(t, []string{"ops"}, s.UserGroups("carol!c@host"))
}

func TestStore_SaveOnReload(t *testing.T) {
	s := testStore(t)
	var saved []config.PermissionsConfig
	s.OnSave(func(cfg config.PermissionsConfig) error {
		saved = append(saved, cfg)
		return nil
	})

	s.Reload()
	assert.Empty(t, saved, "nothing changed")

	s.AddGroupUser("viewers", "dave!*@*")
	s.Reload()
	require.Len(t, saved, 1)
	assert.Contains(t, saved[0].Groups["viewers"].Users, "dave!*@*")

	s.OnSave(func(config.PermissionsConfig) error { return errors.New("disk full") })
	s.RemoveGroupUser("viewers", "dave!d@d")
	s.Reload()
	assert.NotContains(t, s.Config().Groups["viewers"].Users, "dave!*@*")
}

func TestStore_InvalidMaskSkipped(t *testing.T) {
	s := New(config.PermissionsConfig{Groups: map[string]config.GroupConfig{
		"ops": {Users: []string{"*!*@[broken", "op!*@*"}, Perms: []string{"op"}},
	}}, logging.New(nil, "silent"))

	assert.True(t, s.HasPermission("op!o@host", "op"))
	assert.False(t, s.HasPermission("x!y@[broken", "op"))
}
