package engine

import (
	"strings"

	"github.com/google/uuid"
)

// Role is the coarse chat privilege classification attached to a candidate
// for display purposes. It is distinct from moderator authorization, which
// gates commands; see IsModerator.
type Role string

const (
	RoleNone     Role = ""
	RoleSub      Role = "sub"
	RoleVIP      Role = "vip"
	RoleMod      Role = "mod"
	RoleStreamer Role = "streamer"
)

// State tracks where a candidate sits in its lifecycle. The pop policy uses
// pending/active; the mark-consumed policy uses pending/consumed.
type State string

const (
	StatePending  State = "pending"
	StateActive   State = "active"
	StateConsumed State = "consumed"
)

// Candidate is one link extracted from a chat message, queued for review.
// Two identical URLs from different messages are distinct candidates.
type Candidate struct {
	ID             string `json:"id"`
	User           string `json:"user"`
	NormalizedUser string `json:"normalized_user"`
	Role           Role   `json:"role"`
	URL            string `json:"url"`
	State          State  `json:"state"`
}

// NewCandidate builds a pending candidate with a fresh opaque ID. Ordering
// comes from queue position, never from the ID.
func NewCandidate(user, login, url string, role Role) Candidate {
	return Candidate{
		ID:             uuid.New().String(),
		User:           user,
		NormalizedUser: NormalizeUser(login),
		Role:           role,
		URL:            url,
		State:          StatePending,
	}
}

// Message is a parsed chat message as delivered by the transport.
type Message struct {
	Channel string
	User    string // display name, as supplied by the transport
	Login   string // account login used for ban matching
	Text    string
	IsSelf  bool
	Badges  map[string]int
	ModTag  bool // explicit moderator flag from message tags
}

// ClassifyRole maps badge flags to the single highest-priority role:
// streamer > mod > vip > sub > none.
func ClassifyRole(badges map[string]int) Role {
	switch {
	case badges["broadcaster"] > 0:
		return RoleStreamer
	case badges["moderator"] > 0:
		return RoleMod
	case badges["vip"] > 0:
		return RoleVIP
	case badges["subscriber"] > 0:
		return RoleSub
	}
	return RoleNone
}

// IsModerator reports whether the sender may issue moderation commands.
// The channel owner always has moderator authority, badge or not.
func IsModerator(badges map[string]int, modTag bool) bool {
	return modTag || badges["broadcaster"] > 0 || badges["moderator"] > 0
}

// NormalizeUser lowercases a handle and strips a leading @. Applied once at
// every boundary that feeds the ban registry or removal-by-user.
func NormalizeUser(user string) string {
	user = strings.TrimSpace(user)
	user = strings.TrimPrefix(user, "@")
	return strings.ToLower(user)
}

// NormalizeChannel lowercases a channel name and strips a leading #.
func NormalizeChannel(channel string) string {
	channel = strings.TrimSpace(channel)
	channel = strings.TrimPrefix(channel, "#")
	return strings.ToLower(channel)
}

// IsYouTube reports whether a URL points at YouTube. Consumers get a
// youtube-warning event before such a link becomes active, because embedded
// playback is frequently blocked for YouTube.
func IsYouTube(url string) bool {
	return strings.Contains(url, "youtube.com") || strings.Contains(url, "youtu.be")
}
