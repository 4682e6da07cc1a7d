package liveness

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/EliasAN1/Stacktictoe/internal/dependencies/clock"
	"github.com/EliasAN1/Stacktictoe/internal/model"
	"github.com/EliasAN1/Stacktictoe/internal/realtime"
	"github.com/EliasAN1/Stacktictoe/internal/services/game"
	"github.com/EliasAN1/Stacktictoe/internal/services/identity"
	"github.com/EliasAN1/Stacktictoe/internal/services/lobby"
)

// SystemName is the sender shown on server-generated chat lines
const SystemName = "SYSTEM"

// OpponentLeftChat is the chat line sent when a player returns to the lobby
const OpponentLeftChat = "Your opponent left the chat."

// Config holds configuration for the manager
type Config struct {
	// SessionIdleTimeout destroys sessions untouched for this long. Zero
	// leaves liveness entirely to client polling.
	SessionIdleTimeout time.Duration
}

// Manager ends sessions on quit, draw or a lost opponent, and returns
// players to the lobby
type Manager struct {
	registry  identity.RegistryInterface
	directory lobby.DirectoryInterface
	games     game.ControllerInterface
	notifier  realtime.Notifier
	clock     clock.Clock
	cfg       Config
	logger    *slog.Logger
}

// New creates a new liveness Manager
func New(
	registry identity.RegistryInterface,
	directory lobby.DirectoryInterface,
	games game.ControllerInterface,
	notifier realtime.Notifier,
	clock clock.Clock,
	cfg Config,
	logger *slog.Logger,
) *Manager {
	return &Manager{
		registry:  registry,
		directory: directory,
		games:     games,
		notifier:  notifier,
		clock:     clock,
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "liveness")),
	}
}

func (m *Manager) requireMember(conn model.ConnID, id model.GameID) error {
	if !slices.Contains(m.notifier.Members(realtime.GameGroup(id)), conn) {
		return model.ErrNotInGroup
	}
	return nil
}

// participant resolves the live session and the asker's name within it
func (m *Manager) participant(ctx context.Context, conn model.ConnID, id model.GameID) (*model.Session, string, error) {
	session, err := m.games.GetSession(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if !session.IsParticipant(conn) {
		return nil, "", model.ErrNotParticipant
	}
	color := model.ColorBlue
	if session.Participants.Red == conn {
		color = model.ColorRed
	}
	return session, session.Player(color).Name, nil
}

// toLobby moves a connection from a game group back to the lobby
func (m *Manager) toLobby(conn model.ConnID, id model.GameID) {
	m.notifier.Leave(conn, realtime.GameGroup(id))
	m.notifier.Join(conn, realtime.LobbyGroup)
}

// CheckOpponentAlive destroys the session if the asker's opponent is no
// longer reachable on the connection seated in the session, and sends the
// asker back to the lobby
func (m *Manager) CheckOpponentAlive(ctx context.Context, conn model.ConnID, id model.GameID) error {
	session, name, err := m.participant(ctx, conn, id)
	if err != nil {
		if errors.Is(err, model.ErrSessionNotFound) {
			return nil
		}
		return err
	}

	// Only the seated connection can keep playing; a rebind on a new
	// connection counts as lost
	color, _ := session.ColorOf(name)
	opponent := session.Player(color.Other()).Name
	seated := session.ConnOf(color.Other())
	if oppConn, err := m.registry.Lookup(opponent); err == nil && oppConn == seated && m.notifier.Connected(oppConn) {
		return nil
	}

	if err := m.games.Destroy(ctx, id, "opponent lost"); err != nil {
		return err
	}

	offers, err := m.directory.Snapshot(ctx)
	if err != nil {
		return err
	}
	m.toLobby(conn, id)
	m.notifier.Emit(conn, model.EventOpponentLostConnection, offers)

	m.logger.Info("opponent lost",
		slog.String("game_id", id.String()),
		slog.String("player", name),
		slog.String("opponent", opponent),
	)
	return nil
}

// Quit lets either participant end the session unilaterally
func (m *Manager) Quit(ctx context.Context, conn model.ConnID, id model.GameID) error {
	if err := m.requireMember(conn, id); err != nil {
		return err
	}

	m.notifier.EmitToGroup(realtime.GameGroup(id), conn, model.EventOpponentLeftTheGame, nil)
	return m.games.Destroy(ctx, id, "quit")
}

// OfferDraw records a draw offer and forwards it to the opponent
func (m *Manager) OfferDraw(ctx context.Context, conn model.ConnID, id model.GameID) error {
	if err := m.requireMember(conn, id); err != nil {
		return err
	}
	session, name, err := m.participant(ctx, conn, id)
	if err != nil {
		return err
	}
	if session.Status != model.StatusPlaying {
		return model.ErrSessionOver
	}

	session.DrawOfferedBy = name
	if err := m.games.SaveSession(ctx, session); err != nil {
		return err
	}

	m.notifier.EmitToGroup(realtime.GameGroup(id), conn, model.EventOfferingADraw, nil)
	return nil
}

// outstandingOffer returns the session if the opponent of conn has a draw offer open
func (m *Manager) outstandingOffer(ctx context.Context, conn model.ConnID, id model.GameID) (*model.Session, error) {
	if err := m.requireMember(conn, id); err != nil {
		return nil, err
	}
	session, name, err := m.participant(ctx, conn, id)
	if err != nil {
		return nil, err
	}
	if session.DrawOfferedBy == "" || session.DrawOfferedBy == name {
		return nil, model.ErrNoDrawOffered
	}
	return session, nil
}

// AcceptDraw ends the session without a winner
func (m *Manager) AcceptDraw(ctx context.Context, conn model.ConnID, id model.GameID) error {
	if _, err := m.outstandingOffer(ctx, conn, id); err != nil {
		return err
	}

	m.notifier.EmitToGroup(realtime.GameGroup(id), conn, model.EventAcceptedDraw, nil)
	return m.games.Destroy(ctx, id, "draw")
}

// DeclineDraw clears the outstanding offer and leaves the session in play
func (m *Manager) DeclineDraw(ctx context.Context, conn model.ConnID, id model.GameID) error {
	session, err := m.outstandingOffer(ctx, conn, id)
	if err != nil {
		return err
	}

	session.DrawOfferedBy = ""
	if err := m.games.SaveSession(ctx, session); err != nil {
		return err
	}

	m.notifier.EmitToGroup(realtime.GameGroup(id), conn, model.EventDeclinedDraw, nil)
	return nil
}

// GoBackToLobby leaves every game group, telling whoever remains, and
// replies with the current offers
func (m *Manager) GoBackToLobby(ctx context.Context, conn model.ConnID) error {
	for _, group := range m.notifier.Groups(conn) {
		if group == realtime.LobbyGroup {
			continue
		}
		m.notifier.EmitToGroup(group, conn, model.EventNewMessage, model.ChatMessage{
			Name:    SystemName,
			Message: OpponentLeftChat,
		})
		m.notifier.Leave(conn, group)
	}
	m.notifier.Join(conn, realtime.LobbyGroup)

	offers, err := m.directory.Snapshot(ctx)
	if err != nil {
		return err
	}
	m.notifier.Emit(conn, model.EventClearToGoLobby, offers)
	return nil
}

// Disconnect withdraws the departing player's offer and frees their name.
// A session they were playing stays live until the opponent polls.
func (m *Manager) Disconnect(ctx context.Context, conn model.ConnID) error {
	name, ok := m.registry.NameOf(conn)
	if !ok {
		return nil
	}

	m.registry.Release(name)
	if err := m.directory.Withdraw(ctx, name); err != nil {
		return err
	}

	m.logger.Info("player disconnected",
		slog.String("player", name),
		slog.String("conn_id", string(conn)),
	)
	return nil
}

// ReapIdle destroys sessions that have not changed within the idle timeout
// and tells their participants. Returns the number destroyed.
func (m *Manager) ReapIdle(ctx context.Context) (int, error) {
	if m.cfg.SessionIdleTimeout <= 0 {
		return 0, nil
	}

	sessions, err := m.games.ListSessions(ctx)
	if err != nil {
		return 0, err
	}

	cutoff := m.clock.Now().Add(-m.cfg.SessionIdleTimeout)
	reaped := 0
	for _, session := range sessions {
		if !session.UpdatedAt.Before(cutoff) {
			continue
		}
		if err := m.games.Destroy(ctx, session.GameID, "idle"); err != nil {
			return reaped, err
		}
		reaped++

		offers, err := m.directory.Snapshot(ctx)
		if err != nil {
			return reaped, err
		}
		group := realtime.GameGroup(session.GameID)
		for _, conn := range m.notifier.Members(group) {
			m.toLobby(conn, session.GameID)
			m.notifier.Emit(conn, model.EventOpponentLostConnection, offers)
		}
	}

	if reaped > 0 {
		m.logger.Info("idle sessions reaped", slog.Int("count", reaped))
	}
	return reaped, nil
}

// Interface for dependency injection
type ManagerInterface interface {
	CheckOpponentAlive(ctx context.Context, conn model.ConnID, id model.GameID) error
	Quit(ctx context.Context, conn model.ConnID, id model.GameID) error
	OfferDraw(ctx context.Context, conn model.ConnID, id model.GameID) error
	AcceptDraw(ctx context.Context, conn model.ConnID, id model.GameID) error
	DeclineDraw(ctx context.Context, conn model.ConnID, id model.GameID) error
	GoBackToLobby(ctx context.Context, conn model.ConnID) error
	Disconnect(ctx context.Context, conn model.ConnID) error
	ReapIdle(ctx context.Context) (int, error)
}

var _ ManagerInterface = (*Manager)(nil)
