package commands

import (
	"durandal/commands/defs"

	"github.com/bwmarrin/discordgo"
)

// GenerateCommands returns every slash command the bot registers per guild.
func GenerateCommands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		defs.Timeout,
		defs.Untimeout,
		defs.Timeouts,
		defs.SetLog,
		defs.SetTimeout,
		defs.ShowConfig,
		defs.BotInfo,
	}
}
