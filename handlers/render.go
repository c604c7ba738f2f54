package handlers

import (
	"fmt"
	"strings"
	"time"

	"durandal/model"
	"durandal/timeout"
	"durandal/utils"
)

// Discord rejects message content over this length.
const maxMessageLength = 2000

// describeError turns an engine error into the short reply shown to the
// moderator.
func describeError(err error) string {
	switch timeout.KindOf(err) {
	case timeout.KindConfiguration:
		return "No timeout role set. Use /settimeout first."
	case timeout.KindValidation:
		return err.Error()
	case timeout.KindNotLoaded:
		return "This server is still loading, try again in a moment."
	case timeout.KindStore:
		return "Could not save the change, nothing was modified."
	case timeout.KindGateway:
		return "Saved, but Discord rejected the role change. Enforcement may be delayed."
	default:
		return "Something went wrong."
	}
}

func describeAdd(res *timeout.AddResult) string {
	return fmt.Sprintf("Timed out <@%s> until <t:%d:f>.", res.Entry.UserID, res.Entry.ExpiresAt.Unix())
}

// describeRemoveError differs from describeError for gateway failures: the
// record is already gone, so nothing will release the role later.
func describeRemoveError(err error, userID string) string {
	if timeout.KindOf(err) == timeout.KindGateway {
		return fmt.Sprintf("Timeout lifted, but Discord rejected the role removal. Remove the timeout role from <@%s> by hand.", userID)
	}
	return describeError(err)
}

func describeRemove(res *timeout.RemoveResult, userID string) string {
	if res.Outcome == timeout.NotFound {
		return fmt.Sprintf("<@%s> is not timed out.", userID)
	}
	return fmt.Sprintf("Lifted the timeout of <@%s>.", userID)
}

func formatTimeouts(entries []model.TimeoutEntry, now time.Time) string {
	if len(entries) == 0 {
		return "No active timeouts."
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Active timeouts (%d):\n", len(entries)))
	for n, entry := range entries {
		left := utils.PrintHuman(entry.Remaining(now))
		if left == "" {
			left = "expiring"
		} else {
			left += " left"
		}
		line := fmt.Sprintf("<@%s>: %s", entry.UserID, left)
		if entry.Reason != "" {
			line += ", reason: " + entry.Reason
		}
		line += "\n"

		more := fmt.Sprintf("...and %d more", len(entries)-n)
		if sb.Len()+len(line)+len(more) > maxMessageLength {
			sb.WriteString(more)
			return sb.String()
		}
		sb.WriteString(line)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatConfig(cfg model.GuildConfig) string {
	logChannel := "None"
	if cfg.LogChannelID != "" {
		logChannel = "<#" + cfg.LogChannelID + ">"
	}
	role := "None"
	if cfg.TimeoutRoleID != "" {
		role = "<@&" + cfg.TimeoutRoleID + ">"
	}
	return fmt.Sprintf("Log Channel: %s\nTimeout Role: %s", logChannel, role)
}
