package game

import (
	"context"
	"errors"
	"log/slog"
	"unicode/utf8"

	"github.com/EliasAN1/Stacktictoe/internal/dependencies/clock"
	"github.com/EliasAN1/Stacktictoe/internal/dependencies/random"
	"github.com/EliasAN1/Stacktictoe/internal/model"
	"github.com/EliasAN1/Stacktictoe/internal/realtime"
	"github.com/EliasAN1/Stacktictoe/internal/services/identity"
	"github.com/EliasAN1/Stacktictoe/internal/services/rules"
	"github.com/EliasAN1/Stacktictoe/internal/storage"
)

const (
	// MaxChatHistory is how many chat messages a session keeps
	MaxChatHistory = 200

	// MaxChatMessageBytes bounds a single chat message. Longer messages are clipped.
	MaxChatMessageBytes = 500
)

// Seat is a player entering a session on a connection
type Seat struct {
	Name string
	Conn model.ConnID
}

// Controller owns the live-session table: creation, moves, chat and teardown
type Controller struct {
	storage  storage.Storage
	registry identity.RegistryInterface
	notifier realtime.Notifier
	clock    clock.Clock
	random   random.Random
	logger   *slog.Logger
}

// NewController creates a new GameController
func NewController(
	storage storage.Storage,
	registry identity.RegistryInterface,
	notifier realtime.Notifier,
	clock clock.Clock,
	random random.Random,
	logger *slog.Logger,
) *Controller {
	return &Controller{
		storage:  storage,
		registry: registry,
		notifier: notifier,
		clock:    clock,
		random:   random,
		logger:   logger.With(slog.String("component", "game")),
	}
}

// CreateSession starts a session between two seats. Sides are decided by a
// coin flip: on 1 the first seat plays blue. Blue moves first.
func (c *Controller) CreateSession(ctx context.Context, id model.GameID, first, second Seat, chat []model.ChatMessage) (*model.Session, error) {
	blue, red := second, first
	if c.random.Intn(2) == 1 {
		blue, red = first, second
	}

	now := c.clock.Now()
	session := &model.Session{
		GameID:       id,
		PlayerBlue:   model.Player{Name: blue.Name, Pieces: model.NewPieces()},
		PlayerRed:    model.Player{Name: red.Name, Pieces: model.NewPieces()},
		TurnOwner:    blue.Name,
		Status:       model.StatusPlaying,
		WinningCells: []int{},
		Chat:         capChat(chat),
		Participants: model.Participants{Blue: blue.Conn, Red: red.Conn},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := c.storage.SaveSession(ctx, session); err != nil {
		c.logger.Error("failed to save session",
			slog.String("game_id", id.String()),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	c.logger.Info("session created",
		slog.String("game_id", id.String()),
		slog.String("blue", blue.Name),
		slog.String("red", red.Name),
	)

	return session, nil
}

func capChat(chat []model.ChatMessage) []model.ChatMessage {
	if len(chat) > MaxChatHistory {
		chat = chat[len(chat)-MaxChatHistory:]
	}
	capped := make([]model.ChatMessage, 0, len(chat))
	for _, msg := range chat {
		msg.Message = clipMessage(msg.Message)
		capped = append(capped, msg)
	}
	return capped
}

// clipMessage shortens text to MaxChatMessageBytes without splitting a rune
func clipMessage(text string) string {
	if len(text) <= MaxChatMessageBytes {
		return text
	}
	cut := MaxChatMessageBytes
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}

// GetSession retrieves a live session
func (c *Controller) GetSession(ctx context.Context, id model.GameID) (*model.Session, error) {
	return c.storage.GetSession(ctx, id)
}

// ListSessions returns every live session
func (c *Controller) ListSessions(ctx context.Context) ([]*model.Session, error) {
	return c.storage.ListSessions(ctx)
}

// authorize checks that conn really is the named participant: the registry
// must bind the name to conn and the session must seat conn under that name
func (c *Controller) authorize(session *model.Session, conn model.ConnID, name string) error {
	bound, err := c.registry.Lookup(name)
	if err != nil || bound != conn {
		return model.ErrSpoofedIdentity
	}
	color, ok := session.ColorOf(name)
	if !ok || session.ConnOf(color) != conn {
		return model.ErrNotParticipant
	}
	return nil
}

// ApplyMove validates and applies a move sent by conn. Rejections are
// logged and returned but never reported to any client. On a win the final
// state goes to both players and the session is destroyed; otherwise the
// turn passes and only the opponent is told.
func (c *Controller) ApplyMove(ctx context.Context, conn model.ConnID, req model.MoveRequest) (*model.Session, error) {
	logger := c.logger.With(
		slog.String("game_id", req.GameID.String()),
		slog.String("conn_id", string(conn)),
		slog.String("player", req.PlayerUsername),
	)

	session, err := c.storage.GetSession(ctx, req.GameID)
	if err != nil {
		if errors.Is(err, model.ErrSessionNotFound) {
			logger.Debug("move for unknown session dropped")
		}
		return nil, err
	}

	if err := c.authorize(session, conn, req.PlayerUsername); err != nil {
		logger.Warn("move rejected", slog.String("error", err.Error()))
		return nil, err
	}

	if _, err := rules.ApplyMove(session, req.PlayerUsername, req.SquareID, req.Size); err != nil {
		logger.Warn("move rejected",
			slog.Int("square", req.SquareID),
			slog.String("size", string(req.Size)),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	session.UpdatedAt = c.clock.Now()
	group := realtime.GameGroup(session.GameID)

	if winner, cells, won := rules.DetectWin(session.Board); won {
		session.Status = model.StatusWon
		session.Winner = winner
		session.WinningCells = cells

		if err := c.storage.DeleteSession(ctx, session.GameID); err != nil {
			return nil, err
		}

		c.notifier.Emit(conn, model.EventOpponentMadeAMove, session)
		c.notifier.EmitToGroup(group, conn, model.EventOpponentMadeAMove, session)

		logger.Info("session won",
			slog.String("winner", string(winner)),
			slog.Any("cells", cells),
		)
		return session, nil
	}

	rules.PassTurn(session)
	if err := c.storage.SaveSession(ctx, session); err != nil {
		return nil, err
	}

	c.notifier.EmitToGroup(group, conn, model.EventOpponentMadeAMove, session)
	return session, nil
}

// PostMessage appends a chat message and relays it to the other participant
func (c *Controller) PostMessage(ctx context.Context, conn model.ConnID, req model.MessageRequest) error {
	if req.Username == "" {
		return model.ErrMalformedEvent
	}

	session, err := c.storage.GetSession(ctx, req.GameID)
	if err != nil {
		return err
	}

	if err := c.authorize(session, conn, req.Username); err != nil {
		c.logger.Warn("chat rejected",
			slog.String("game_id", req.GameID.String()),
			slog.String("conn_id", string(conn)),
			slog.String("error", err.Error()),
		)
		return err
	}

	msg := model.ChatMessage{Name: req.Username, Message: clipMessage(req.Message)}
	session.Chat = capChat(append(session.Chat, msg))
	session.UpdatedAt = c.clock.Now()

	if err := c.storage.SaveSession(ctx, session); err != nil {
		return err
	}

	c.notifier.EmitToGroup(realtime.GameGroup(session.GameID), conn, model.EventNewMessage, msg)
	return nil
}

// SaveSession persists changes made to a session outside of a move
func (c *Controller) SaveSession(ctx context.Context, session *model.Session) error {
	session.UpdatedAt = c.clock.Now()
	return c.storage.SaveSession(ctx, session)
}

// Destroy removes a session from the live table. Destroying a missing
// session is a no-op.
func (c *Controller) Destroy(ctx context.Context, id model.GameID, reason string) error {
	if err := c.storage.DeleteSession(ctx, id); err != nil {
		c.logger.Error("failed to delete session",
			slog.String("game_id", id.String()),
			slog.String("error", err.Error()),
		)
		return err
	}

	c.logger.Info("session destroyed",
		slog.String("game_id", id.String()),
		slog.String("reason", reason),
	)
	return nil
}

// Interface for dependency injection
type ControllerInterface interface {
	CreateSession(ctx context.Context, id model.GameID, first, second Seat, chat []model.ChatMessage) (*model.Session, error)
	GetSession(ctx context.Context, id model.GameID) (*model.Session, error)
	ListSessions(ctx context.Context) ([]*model.Session, error)
	ApplyMove(ctx context.Context, conn model.ConnID, req model.MoveRequest) (*model.Session, error)
	PostMessage(ctx context.Context, conn model.ConnID, req model.MessageRequest) error
	SaveSession(ctx context.Context, session *model.Session) error
	Destroy(ctx context.Context, id model.GameID, reason string) error
}

var _ ControllerInterface = (*Controller)(nil)
