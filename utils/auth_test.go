package utils

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
)

func TestCheckPermission(t *testing.T) {
	devs := []string{"dev1"}
	member := func(id string, perms int64) *discordgo.Member {
		return &discordgo.Member{User: &discordgo.User{ID: id}, Permissions: perms}
	}

	assert.True(t, CheckPermission(member("u1", discordgo.PermissionKickMembers), discordgo.PermissionKickMembers, devs))
	assert.False(t, CheckPermission(member("u1", discordgo.PermissionSendMessages), discordgo.PermissionKickMembers, devs))
	assert.True(t, CheckPermission(member("u1", discordgo.PermissionAdministrator), discordgo.PermissionManageRoles, devs))
	assert.True(t, CheckPermission(member("dev1", 0), discordgo.PermissionAdministrator, devs))
	assert.False(t, CheckPermission(nil, discordgo.PermissionKickMembers, devs))
	assert.False(t, CheckPermission(member("u1", discordgo.PermissionKickMembers), discordgo.PermissionKickMembers|discordgo.PermissionManageRoles, nil))
}

func TestIsDeveloper(t *testing.T) {
	assert.True(t, IsDeveloper("a", []string{"a", "b"}))
	assert.False(t, IsDeveloper("", []string{""}))
	assert.False(t, IsDeveloper("c", []string{"a", "b"}))
}
