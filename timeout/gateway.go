package timeout

import "context"

// Gateway applies roles and posts messages on the chat platform.
// Implementations return an error wrapping ErrSubjectGone when the member
// has left the guild.
type Gateway interface {
	AddRole(ctx context.Context, guildID, userID, roleID string) error
	RemoveRole(ctx context.Context, guildID, userID, roleID string) error
	SendMessage(ctx context.Context, channelID, content string) error
}
