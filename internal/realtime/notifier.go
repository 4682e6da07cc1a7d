package realtime

import "github.com/EliasAN1/Stacktictoe/internal/model"

// LobbyGroup is the group of every connection not currently in a game
const LobbyGroup = "lobby"

// GameGroup returns the group name for a game's participants
func GameGroup(id model.GameID) string {
	return id.String()
}

// Notifier delivers events to connections and organises them into named groups.
// Emits never block; a connection that cannot keep up loses messages.
type Notifier interface {
	// Emit sends an event to a single connection
	Emit(conn model.ConnID, event model.EventType, payload any)

	// EmitToGroup sends an event to every member of a group except the given connection.
	// Pass an empty except to reach every member.
	EmitToGroup(group string, except model.ConnID, event model.EventType, payload any)

	Join(conn model.ConnID, group string)
	Leave(conn model.ConnID, group string)

	// Members returns the connections currently in a group
	Members(group string) []model.ConnID

	// Groups returns the groups a connection belongs to
	Groups(conn model.ConnID) []string

	// Connected reports whether the connection is still reachable
	Connected(conn model.ConnID) bool
}
