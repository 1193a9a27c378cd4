package access

// Gate evaluates senders and chats against the static admin, owner, and
// allowed-chat lists loaded at startup. It is immutable after construction.
type Gate struct {
	admins       map[int64]bool
	ownerID      int64
	allowedChats map[int64]bool
}

func NewGate(adminIDs []int64, ownerID int64, allowedChatIDs []int64) *Gate {
	g := &Gate{
		admins:       make(map[int64]bool, len(adminIDs)+1),
		ownerID:      ownerID,
		allowedChats: make(map[int64]bool, len(allowedChatIDs)),
	}
	for _, id := range adminIDs {
		if id == 0 {
			continue
		}
		g.admins[id] = true
	}
	// The owner is always an admin.
	if ownerID != 0 {
		g.admins[ownerID] = true
	}
	for _, id := range allowedChatIDs {
		if id == 0 {
			continue
		}
		g.allowedChats[id] = true
	}
	return g
}

func (g *Gate) IsAdmin(userID int64) bool {
	return g.admins[userID]
}

func (g *Gate) IsOwner(userID int64) bool {
	return g.ownerID != 0 && userID == g.ownerID
}

func (g *Gate) OwnerID() int64 {
	return g.ownerID
}

// ChatAllowed reports whether the bot may operate in the given chat.
// Private chats are reserved for the owner; groups and supergroups must be
// on the allow-list. Other chat kinds (channels) are rejected.
func (g *Gate) ChatAllowed(chatID int64, chatType string, fromUserID int64) bool {
	switch chatType {
	case "private":
		return g.IsOwner(fromUserID)
	case "group", "supergroup":
		return g.allowedChats[chatID]
	default:
		return false
	}
}
