package defs

import "github.com/bwmarrin/discordgo"

var Timeout = &discordgo.ApplicationCommand{
	Name:                     "timeout",
	Description:              "Time out a member by giving them the timeout role",
	DefaultMemberPermissions: permission(discordgo.PermissionKickMembers),
	DMPermission:             &dmDisabled,
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionUser,
			Name:        "user",
			Description: "Member to time out",
			Required:    true,
		},
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "time",
			Description: "How long, e.g. 1d2h30m (units d, h, m, s)",
			Required:    true,
		},
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "reason",
			Description: "Shown in the confirmation",
			Required:    false,
			MaxLength:   400,
		},
	},
}

var Untimeout = &discordgo.ApplicationCommand{
	Name:                     "untimeout",
	Description:              "Lift a member's timeout early",
	DefaultMemberPermissions: permission(discordgo.PermissionKickMembers),
	DMPermission:             &dmDisabled,
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionUser,
			Name:        "user",
			Description: "Member to release",
			Required:    true,
		},
	},
}

var Timeouts = &discordgo.ApplicationCommand{
	Name:                     "timeouts",
	Description:              "List active timeouts in this server",
	DefaultMemberPermissions: permission(discordgo.PermissionKickMembers),
	DMPermission:             &dmDisabled,
}
