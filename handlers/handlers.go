package handlers

import (
	"context"

	"durandal/bot"
	"durandal/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

type handlerFunc = func(s *discordgo.Session, i *discordgo.InteractionCreate)

func Register(b *bot.Bot) {
	b.CommandHandlers = commandHandlers(b)
	addHandlers(b)
}

func commandHandlers(b *bot.Bot) map[string]handlerFunc {
	return map[string]handlerFunc{
		"timeout": requirePermission(b, discordgo.PermissionKickMembers, func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			HandleTimeout(s, i, b)
		}),
		"untimeout": requirePermission(b, discordgo.PermissionKickMembers, func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			HandleUntimeout(s, i, b)
		}),
		"timeouts": requirePermission(b, discordgo.PermissionKickMembers, func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			HandleListTimeouts(s, i, b)
		}),
		"setlog": requirePermission(b, discordgo.PermissionKickMembers, func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			HandleSetLog(s, i, b)
		}),
		"settimeout": requirePermission(b, discordgo.PermissionManageRoles, func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			HandleSetTimeoutRole(s, i, b)
		}),
		"showconfig": requirePermission(b, discordgo.PermissionKickMembers, func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			HandleShowConfig(s, i, b)
		}),
		"botinfo": requirePermission(b, discordgo.PermissionAdministrator, func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			SystemInfoHandler(s, i, b)
		}),
	}
}

// requirePermission checks the member's permission bits before running h.
func requirePermission(b *bot.Bot, required int64, h handlerFunc) handlerFunc {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		if i.GuildID == "" || i.Member == nil {
			utils.SendErrorResponse(s, i, "This command can only be used in a server.")
			return
		}
		if !utils.CheckPermission(i.Member, required, b.GetConfig().DeveloperUserIDs) {
			utils.SendErrorResponse(s, i, "You do not have permission to use this command.")
			return
		}
		h(s, i)
	}
}

func addHandlers(b *bot.Bot) {
	b.Session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		log.Info().Str("user", r.User.Username).Int("guilds", len(r.Guilds)).Msg("Logged in")
		if status := b.GetConfig().Status; status != "" {
			if err := s.UpdateCustomStatus(status); err != nil {
				log.Warn().Err(err).Msg("Failed to set status")
			}
		}
	})

	b.Session.AddHandler(func(s *discordgo.Session, g *discordgo.GuildCreate) {
		if g.Unavailable {
			return
		}
		if err := b.Engine.OnGuildAvailable(context.Background(), g.ID); err != nil {
			return
		}
		b.RefreshCommands(g.ID)
	})

	b.Session.AddHandler(func(s *discordgo.Session, m *discordgo.GuildMemberAdd) {
		if m.Member == nil || m.User == nil {
			return
		}
		if err := b.Engine.OnMemberJoined(context.Background(), m.GuildID, m.User.ID); err != nil {
			log.Warn().Err(err).Str("guild_id", m.GuildID).Str("user_id", m.User.ID).Msg("Rejoin reconciliation failed")
		}
	})

	b.Session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		if i.Type != discordgo.InteractionApplicationCommand {
			return
		}
		if h, ok := b.CommandHandlers[i.ApplicationCommandData().Name]; ok {
			h(s, i)
		}
	})
}
