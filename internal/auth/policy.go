package auth

import (
	"strconv"
	"strings"
)

// PolicyService manages user permissions for the bot.
type PolicyService struct {
	AdminUserIDs   map[int64]bool // map of admin user IDs
	AllowedUserIDs map[int64]bool // map of allowed user IDs (if empty, all users are allowed)
}

// NewPolicyService creates a new PolicyService from comma-separated ID lists.
// Entries that are not integers are ignored.
func NewPolicyService(adminUserIDsStr, allowedUserIDsStr string) *PolicyService {
	return &PolicyService{
		AdminUserIDs:   parseIDs(adminUserIDsStr),
		AllowedUserIDs: parseIDs(allowedUserIDsStr),
	}
}

func parseIDs(list string) map[int64]bool {
	ids := make(map[int64]bool)
	if list == "" {
		return ids
	}
	for _, idStr := range strings.Split(list, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(idStr), 10, 64)
		if err == nil {
			ids[id] = true
		}
	}
	return ids
}

// IsAdmin checks if a user is an admin.
func (p *PolicyService) IsAdmin(userID int64) bool {
	return p.AdminUserIDs[userID]
}

// IsAllowed checks if a user is allowed to use the bot.
func (p *PolicyService) IsAllowed(userID int64) bool {
	// If the allowed users list is empty, all users are allowed
	if len(p.AllowedUserIDs) == 0 {
		return true
	}

	// Admins are always allowed
	if p.IsAdmin(userID) {
		return true
	}

	return p.AllowedUserIDs[userID]
}

// IsCommandAllowed checks if a user may run a specific command.
func (p *PolicyService) IsCommandAllowed(userID int64, command string) bool {
	if !p.IsAllowed(userID) {
		return false
	}
	// Admins can run everything
	if p.IsAdmin(userID) {
		return true
	}

	switch command {
	case "token", "tokens", "holdings", "stats":
		return true
	case "preload", "clearcache":
		// Cache maintenance affects every user
		return false
	default:
		// Unknown commands are not allowed
		return false
	}
}
