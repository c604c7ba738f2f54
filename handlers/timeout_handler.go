package handlers

import (
	"context"

	"durandal/bot"
	"durandal/timeout"
	"durandal/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

// HandleTimeout applies a timeout. The public confirmation is posted by the
// engine; the moderator gets an ephemeral status.
func HandleTimeout(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	if err := utils.DeferResponse(s, i, true); err != nil {
		log.Error().Err(err).Msg("Failed to defer timeout response")
		return
	}

	opts := utils.OptionMap(i)
	target := opts["user"].UserValue(nil)
	reason := ""
	if opt, ok := opts["reason"]; ok {
		reason = opt.StringValue()
	}

	res, err := b.Engine.AddTimeout(context.Background(), timeout.AddRequest{
		GuildID:     i.GuildID,
		UserID:      target.ID,
		Duration:    opts["time"].StringValue(),
		Reason:      reason,
		RequestedBy: i.Member.User.ID,
		ChannelID:   i.ChannelID,
	})
	if err != nil {
		utils.SendFollowUpError(s, i.Interaction, describeError(err))
		return
	}
	utils.SendFollowUp(s, i.Interaction, describeAdd(res))
}

// HandleUntimeout lifts a timeout early.
func HandleUntimeout(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	if err := utils.DeferResponse(s, i, true); err != nil {
		log.Error().Err(err).Msg("Failed to defer untimeout response")
		return
	}

	target := utils.OptionMap(i)["user"].UserValue(nil)
	res, err := b.Engine.RemoveTimeout(context.Background(), timeout.RemoveRequest{
		GuildID:     i.GuildID,
		UserID:      target.ID,
		RequestedBy: i.Member.User.ID,
		ChannelID:   i.ChannelID,
	})
	if err != nil {
		utils.SendFollowUpError(s, i.Interaction, describeRemoveError(err, target.ID))
		return
	}
	utils.SendFollowUp(s, i.Interaction, describeRemove(res, target.ID))
}

// HandleListTimeouts lists the active timeouts of the guild.
func HandleListTimeouts(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	entries, err := b.Engine.Snapshot(i.GuildID)
	if err != nil {
		utils.SendErrorResponse(s, i, describeError(err))
		return
	}
	utils.SendSimpleResponse(s, i, formatTimeouts(entries, b.Engine.Now()))
}
