package mocks

import (
	"slices"
	"sync"

	"github.com/EliasAN1/Stacktictoe/internal/model"
	"github.com/EliasAN1/Stacktictoe/internal/realtime"
)

// Delivery is one event received by one connection
type Delivery struct {
	To      model.ConnID
	Event   model.EventType
	Payload any
}

// Notifier is an in-memory Notifier that records every delivery.
// Group emits are expanded to their members at emit time.
type Notifier struct {
	mu         sync.Mutex
	connected  map[model.ConnID]bool
	groups     map[string][]model.ConnID
	Deliveries []Delivery
}

// Ensure Notifier implements realtime.Notifier
var _ realtime.Notifier = (*Notifier)(nil)

// NewNotifier creates an empty Notifier
func NewNotifier() *Notifier {
	return &Notifier{
		connected: make(map[model.ConnID]bool),
		groups:    make(map[string][]model.ConnID),
	}
}

// Connect marks a connection as reachable and places it in the lobby
func (n *Notifier) Connect(conn model.ConnID) {
	n.mu.Lock()
	n.connected[conn] = true
	n.mu.Unlock()
	n.Join(conn, realtime.LobbyGroup)
}

// Drop marks a connection as unreachable and removes it from every group
func (n *Notifier) Drop(conn model.ConnID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.connected, conn)
	for group, members := range n.groups {
		n.groups[group] = slices.DeleteFunc(members, func(c model.ConnID) bool { return c == conn })
	}
}

func (n *Notifier) Emit(conn model.ConnID, event model.EventType, payload any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.connected[conn] {
		return
	}
	n.Deliveries = append(n.Deliveries, Delivery{To: conn, Event: event, Payload: payload})
}

func (n *Notifier) EmitToGroup(group string, except model.ConnID, event model.EventType, payload any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, conn := range n.groups[group] {
		if conn == except {
			continue
		}
		n.Deliveries = append(n.Deliveries, Delivery{To: conn, Event: event, Payload: payload})
	}
}

func (n *Notifier) Join(conn model.ConnID, group string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if slices.Contains(n.groups[group], conn) {
		return
	}
	n.groups[group] = append(n.groups[group], conn)
}

func (n *Notifier) Leave(conn model.ConnID, group string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.groups[group] = slices.DeleteFunc(n.groups[group], func(c model.ConnID) bool { return c == conn })
}

func (n *Notifier) Members(group string) []model.ConnID {
	n.mu.Lock()
	defer n.mu.Unlock()
	return slices.Clone(n.groups[group])
}

func (n *Notifier) Groups(conn model.ConnID) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var groups []string
	for group, members := range n.groups {
		if slices.Contains(members, conn) {
			groups = append(groups, group)
		}
	}
	slices.Sort(groups)
	return groups
}

func (n *Notifier) Connected(conn model.ConnID) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.connected[conn]
}

// EventsFor returns the events delivered to a connection, in order
func (n *Notifier) EventsFor(conn model.ConnID) []model.EventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	var events []model.EventType
	for _, d := range n.Deliveries {
		if d.To == conn {
			events = append(events, d.Event)
		}
	}
	return events
}

// Last returns the payload of the most recent delivery of event to conn
func (n *Notifier) Last(conn model.ConnID, event model.EventType) (any, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := len(n.Deliveries) - 1; i >= 0; i-- {
		d := n.Deliveries[i]
		if d.To == conn && d.Event == event {
			return d.Payload, true
		}
	}
	return nil, false
}

// Reset forgets recorded deliveries but keeps connections and groups
func (n *Notifier) Reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Deliveries = nil
}
