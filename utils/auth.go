package utils

import "github.com/bwmarrin/discordgo"

// contains checks if a slice of strings contains an element.
func contains(slice []string, item string) bool {
	for _, a := range slice {
		if a == item {
			return true
		}
	}
	return false
}

// IsDeveloper reports whether userID is one of the configured developers.
func IsDeveloper(userID string, developerUserIDs []string) bool {
	return userID != "" && contains(developerUserIDs, userID)
}

// CheckPermission reports whether the invoking member holds the required
// permission bits. Administrators pass every check and developers bypass it.
func CheckPermission(member *discordgo.Member, required int64, developerUserIDs []string) bool {
	if member == nil {
		return false
	}
	if member.User != nil && IsDeveloper(member.User.ID, developerUserIDs) {
		return true
	}
	if member.Permissions&discordgo.PermissionAdministrator != 0 {
		return true
	}
	return member.Permissions&required == required
}
