package defs

import "github.com/bwmarrin/discordgo"

var SetLog = &discordgo.ApplicationCommand{
	Name:                     "setlog",
	Description:              "Send moderation notices to this channel",
	DefaultMemberPermissions: permission(discordgo.PermissionKickMembers),
	DMPermission:             &dmDisabled,
}

var SetTimeout = &discordgo.ApplicationCommand{
	Name:                     "settimeout",
	Description:              "Set the role given to timed out members",
	DefaultMemberPermissions: permission(discordgo.PermissionManageRoles),
	DMPermission:             &dmDisabled,
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionRole,
			Name:        "role",
			Description: "Timeout role",
			Required:    true,
		},
	},
}

var ShowConfig = &discordgo.ApplicationCommand{
	Name:                     "showconfig",
	Description:              "Show the moderation settings of this server",
	DefaultMemberPermissions: permission(discordgo.PermissionKickMembers),
	DMPermission:             &dmDisabled,
}
