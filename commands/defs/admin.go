package defs

import "github.com/bwmarrin/discordgo"

var BotInfo = &discordgo.ApplicationCommand{
	Name:                     "botinfo",
	Description:              "Display bot and system status information",
	DefaultMemberPermissions: permission(discordgo.PermissionAdministrator),
	DMPermission:             &dmDisabled,
}

var dmDisabled = false

func permission(p int64) *int64 {
	return &p
}
