// Package gateway enforces timeouts through the Discord REST API.
package gateway

import (
	"context"
	"errors"
	"fmt"

	"durandal/timeout"

	"github.com/bwmarrin/discordgo"
)

// Discord implements timeout.Gateway on a discordgo session.
type Discord struct {
	session *discordgo.Session
}

var _ timeout.Gateway = (*Discord)(nil)

// NewDiscord wraps an open session.
func NewDiscord(s *discordgo.Session) *Discord {
	return &Discord{session: s}
}

func (d *Discord) AddRole(ctx context.Context, guildID, userID, roleID string) error {
	err := d.session.GuildMemberRoleAdd(guildID, userID, roleID, discordgo.WithContext(ctx))
	return classify(err, "add role %s to %s", roleID, userID)
}

func (d *Discord) RemoveRole(ctx context.Context, guildID, userID, roleID string) error {
	err := d.session.GuildMemberRoleRemove(guildID, userID, roleID, discordgo.WithContext(ctx))
	return classify(err, "remove role %s from %s", roleID, userID)
}

func (d *Discord) SendMessage(ctx context.Context, channelID, content string) error {
	_, err := d.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content:         content,
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	}, discordgo.WithContext(ctx))
	return classify(err, "send message to %s", channelID)
}

// classify wraps err with what failed and marks members that are no longer
// in the guild with timeout.ErrSubjectGone.
func classify(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	what := fmt.Sprintf(format, args...)
	if isUnknownMember(err) {
		return fmt.Errorf("failed to %s: %w: %w", what, timeout.ErrSubjectGone, err)
	}
	return fmt.Errorf("failed to %s: %w", what, err)
}

func isUnknownMember(err error) bool {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) || restErr.Message == nil {
		return false
	}
	return restErr.Message.Code == discordgo.ErrCodeUnknownMember ||
		restErr.Message.Code == discordgo.ErrCodeUnknownUser
}
