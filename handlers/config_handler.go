package handlers

import (
	"context"

	"durandal/bot"
	"durandal/utils"

	"github.com/bwmarrin/discordgo"
)

// HandleSetLog makes the current channel the log channel.
func HandleSetLog(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	if err := b.Engine.SetLogChannel(context.Background(), i.GuildID, i.ChannelID); err != nil {
		utils.SendErrorResponse(s, i, describeError(err))
		return
	}
	utils.SendPublicResponse(s, i, "Confirmed, logging in this channel.")
}

// HandleSetTimeoutRole sets the role given to timed out members.
func HandleSetTimeoutRole(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	role := utils.OptionMap(i)["role"].RoleValue(nil, i.GuildID)
	if err := b.Engine.SetTimeoutRole(context.Background(), i.GuildID, role.ID); err != nil {
		utils.SendErrorResponse(s, i, describeError(err))
		return
	}
	utils.SendSimpleResponse(s, i, "Timeout role set to <@&"+role.ID+">.")
}

// HandleShowConfig shows the moderation settings of the guild.
func HandleShowConfig(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	cfg, err := b.Engine.Config(i.GuildID)
	if err != nil {
		utils.SendErrorResponse(s, i, describeError(err))
		return
	}
	utils.SendSimpleResponse(s, i, formatConfig(cfg))
}
