package game

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/EliasAN1/Stacktictoe/internal/dependencies/mocks"
	"github.com/EliasAN1/Stacktictoe/internal/model"
	"github.com/EliasAN1/Stacktictoe/internal/realtime"
	"github.com/EliasAN1/Stacktictoe/internal/services/identity"
	"github.com/EliasAN1/Stacktictoe/internal/storage/memory"
	"github.com/EliasAN1/Stacktictoe/internal/testutil"
)

const gameID model.GameID = 4242

type ControllerSuite struct {
	suite.Suite
	storage    *memory.Storage
	registry   *identity.Registry
	notifier   *mocks.Notifier
	clock      *mocks.MockClock
	random     *mocks.MockRandom
	controller *Controller
	ctx        context.Context
}

func TestControllerSuite(t *testing.T) {
	suite.Run(t, new(ControllerSuite))
}

func (s *ControllerSuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	s.notifier = mocks.NewNotifier()
	logger := testutil.NopLogger()
	s.registry = identity.New(s.clock, identity.DefaultConfig(), logger)
	s.controller = NewController(s.storage, s.registry, s.notifier, s.clock, s.random, logger)
	s.ctx = context.Background()

	for name, conn := range map[string]model.ConnID{"alice": "conn-a", "bob": "conn-b"} {
		s.notifier.Connect(conn)
		s.notifier.Leave(conn, realtime.LobbyGroup)
		s.notifier.Join(conn, realtime.GameGroup(gameID))
		s.Require().NoError(s.registry.Bind(name, conn))
	}
}

// startSession creates a session where alice is blue
func (s *ControllerSuite) startSession() *model.Session {
	s.random.QueueIntn(1)
	session, err := s.controller.CreateSession(s.ctx, gameID,
		Seat{Name: "alice", Conn: "conn-a"},
		Seat{Name: "bob", Conn: "conn-b"},
		nil,
	)
	s.Require().NoError(err)
	return session
}

func (s *ControllerSuite) move(conn model.ConnID, name string, square int, size model.PieceSize) (*model.Session, error) {
	return s.controller.ApplyMove(s.ctx, conn, model.MoveRequest{
		GameID:         gameID,
		PlayerUsername: name,
		SquareID:       square,
		Size:           size,
	})
}

// CreateSession tests

func (s *ControllerSuite) TestCreateSessionCoinFlipFirstSeatBlue() {
	session := s.startSession()

	s.Equal("alice", session.PlayerBlue.Name)
	s.Equal("bob", session.PlayerRed.Name)
	s.Equal("alice", session.TurnOwner)
	s.Equal(model.Participants{Blue: "conn-a", Red: "conn-b"}, session.Participants)
}

func (s *ControllerSuite) TestCreateSessionCoinFlipSecondSeatBlue() {
	s.random.QueueIntn(0)
	session, err := s.controller.CreateSession(s.ctx, gameID,
		Seat{Name: "alice", Conn: "conn-a"},
		Seat{Name: "bob", Conn: "conn-b"},
		nil,
	)
	s.Require().NoError(err)

	s.Equal("bob", session.PlayerBlue.Name)
	s.Equal("bob", session.TurnOwner)
	s.Equal(model.ConnID("conn-b"), session.Participants.Blue)
}

func (s *ControllerSuite) TestCreateSessionInitialState() {
	session := s.startSession()

	s.Equal(model.StatusPlaying, session.Status)
	s.Equal(model.NewPieces(), session.PlayerBlue.Pieces)
	s.Equal(model.NewPieces(), session.PlayerRed.Pieces)
	for i, cell := range session.Board {
		s.True(cell.IsEmpty(), "cell %d", i)
	}

	stored, err := s.storage.GetSession(s.ctx, gameID)
	s.Require().NoError(err)
	s.Equal(session.PlayerBlue, stored.PlayerBlue)
}

func (s *ControllerSuite) TestCreateSessionCapsChat() {
	chat := make([]model.ChatMessage, MaxChatHistory+10)
	for i := range chat {
		chat[i] = model.ChatMessage{Name: "alice", Message: fmt.Sprintf("m%d", i)}
	}

	session, err := s.controller.CreateSession(s.ctx, gameID,
		Seat{Name: "alice", Conn: "conn-a"},
		Seat{Name: "bob", Conn: "conn-b"},
		chat,
	)
	s.Require().NoError(err)
	s.Len(session.Chat, MaxChatHistory)
	s.Equal("m10", session.Chat[0].Message)
}

func (s *ControllerSuite) TestCreateSessionClipsLongMessages() {
	long := strings.Repeat("a", MaxChatMessageBytes-1) + "é" + "tail"

	session, err := s.controller.CreateSession(s.ctx, gameID,
		Seat{Name: "alice", Conn: "conn-a"},
		Seat{Name: "bob", Conn: "conn-b"},
		[]model.ChatMessage{{Name: "alice", Message: long}, {Name: "bob", Message: "short"}},
	)
	s.Require().NoError(err)
	s.Require().Len(session.Chat, 2)
	s.Equal(strings.Repeat("a", MaxChatMessageBytes-1), session.Chat[0].Message)
	s.Equal("short", session.Chat[1].Message)
}

// ApplyMove tests

func (s *ControllerSuite) TestMovePassesTurnAndNotifiesOpponentOnly() {
	s.startSession()

	session, err := s.move("conn-a", "alice", 4, model.SizeLarge)
	s.Require().NoError(err)

	s.Equal("bob", session.TurnOwner)
	s.Equal([]model.EventType{model.EventOpponentMadeAMove}, s.notifier.EventsFor("conn-b"))
	s.Empty(s.notifier.EventsFor("conn-a"))

	stored, _ := s.storage.GetSession(s.ctx, gameID)
	s.Equal(model.Cell{Size: model.SizeLarge, Owner: model.ColorBlue}, stored.Board[4])
	s.Equal(1, stored.PlayerBlue.Pieces.Large)
}

func (s *ControllerSuite) TestMoveOutOfTurnIsSilent() {
	s.startSession()

	_, err := s.move("conn-b", "bob", 0, model.SizeSmall)
	s.ErrorIs(err, model.ErrNotYourTurn)

	s.Empty(s.notifier.Deliveries)
	stored, _ := s.storage.GetSession(s.ctx, gameID)
	s.True(stored.Board[0].IsEmpty())
	s.Equal("alice", stored.TurnOwner)
}

func (s *ControllerSuite) TestIllegalCaptureLeavesSessionUntouched() {
	s.startSession()
	_, _ = s.move("conn-a", "alice", 4, model.SizeLarge)
	s.notifier.Reset()

	_, err := s.move("conn-b", "bob", 4, model.SizeMedium)
	s.ErrorIs(err, model.ErrCaptureTooSmall)

	stored, _ := s.storage.GetSession(s.ctx, gameID)
	s.Equal(model.Cell{Size: model.SizeLarge, Owner: model.ColorBlue}, stored.Board[4])
	s.Equal("bob", stored.TurnOwner)
	s.Equal(model.NewPieces(), stored.PlayerRed.Pieces)
	s.Empty(s.notifier.Deliveries)
}

func (s *ControllerSuite) TestMoveFromWrongConnectionIsSpoofing() {
	s.startSession()

	_, err := s.move("conn-b", "alice", 0, model.SizeSmall)
	s.ErrorIs(err, model.ErrSpoofedIdentity)
	s.Empty(s.notifier.Deliveries)
}

func (s *ControllerSuite) TestMoveFromReboundNameOutsideSessionRejected() {
	s.startSession()
	s.registry.Release("alice")
	s.Require().NoError(s.registry.Bind("alice", "conn-x"))

	_, err := s.move("conn-x", "alice", 0, model.SizeSmall)
	s.ErrorIs(err, model.ErrNotParticipant)
}

func (s *ControllerSuite) TestMoveOnUnknownSession() {
	_, err := s.move("conn-a", "alice", 0, model.SizeSmall)
	s.ErrorIs(err, model.ErrSessionNotFound)
}

func (s *ControllerSuite) TestWinNotifiesBothAndDestroys() {
	s.startSession()

	_, _ = s.move("conn-a", "alice", 0, model.SizeSmall)
	_, _ = s.move("conn-b", "bob", 3, model.SizeSmall)
	_, _ = s.move("conn-a", "alice", 1, model.SizeSmall)
	_, _ = s.move("conn-b", "bob", 4, model.SizeSmall)
	s.notifier.Reset()

	session, err := s.move("conn-a", "alice", 2, model.SizeMedium)
	s.Require().NoError(err)

	s.Equal(model.StatusWon, session.Status)
	s.Equal(model.ColorBlue, session.Winner)
	s.Equal([]int{0, 1, 2}, session.WinningCells)

	s.Equal([]model.EventType{model.EventOpponentMadeAMove}, s.notifier.EventsFor("conn-a"))
	s.Equal([]model.EventType{model.EventOpponentMadeAMove}, s.notifier.EventsFor("conn-b"))

	_, err = s.storage.GetSession(s.ctx, gameID)
	s.ErrorIs(err, model.ErrSessionNotFound)
}

// PostMessage tests

func (s *ControllerSuite) TestPostMessageRelaysToOpponent() {
	s.startSession()

	err := s.controller.PostMessage(s.ctx, "conn-a", model.MessageRequest{GameID: gameID, Username: "alice", Message: "gl"})
	s.Require().NoError(err)

	payload, ok := s.notifier.Last("conn-b", model.EventNewMessage)
	s.Require().True(ok)
	s.Equal(model.ChatMessage{Name: "alice", Message: "gl"}, payload)
	s.Empty(s.notifier.EventsFor("conn-a"))

	stored, _ := s.storage.GetSession(s.ctx, gameID)
	s.Equal([]model.ChatMessage{{Name: "alice", Message: "gl"}}, stored.Chat)
}

func (s *ControllerSuite) TestPostMessageClipsLongMessage() {
	s.startSession()

	err := s.controller.PostMessage(s.ctx, "conn-a", model.MessageRequest{
		GameID:   gameID,
		Username: "alice",
		Message:  strings.Repeat("x", 4*MaxChatMessageBytes),
	})
	s.Require().NoError(err)

	payload, ok := s.notifier.Last("conn-b", model.EventNewMessage)
	s.Require().True(ok)
	s.Len(payload.(model.ChatMessage).Message, MaxChatMessageBytes)

	stored, _ := s.storage.GetSession(s.ctx, gameID)
	s.Len(stored.Chat[0].Message, MaxChatMessageBytes)
}

func (s *ControllerSuite) TestPostMessageMissingUsernameDropped() {
	s.startSession()

	err := s.controller.PostMessage(s.ctx, "conn-a", model.MessageRequest{GameID: gameID, Message: "hi"})
	s.ErrorIs(err, model.ErrMalformedEvent)
	s.Empty(s.notifier.Deliveries)
}

func (s *ControllerSuite) TestPostMessageUnknownSessionDropped() {
	err := s.controller.PostMessage(s.ctx, "conn-a", model.MessageRequest{GameID: 1, Username: "alice", Message: "hi"})
	s.ErrorIs(err, model.ErrSessionNotFound)
}

func (s *ControllerSuite) TestPostMessageSpoofedDropped() {
	s.startSession()

	err := s.controller.PostMessage(s.ctx, "conn-b", model.MessageRequest{GameID: gameID, Username: "alice", Message: "gg"})
	s.ErrorIs(err, model.ErrSpoofedIdentity)
	s.Empty(s.notifier.Deliveries)
}

// Destroy tests

func (s *ControllerSuite) TestDestroyIsIdempotent() {
	s.startSession()

	s.Require().NoError(s.controller.Destroy(s.ctx, gameID, "test"))
	s.Require().NoError(s.controller.Destroy(s.ctx, gameID, "test"))

	_, err := s.controller.GetSession(s.ctx, gameID)
	s.ErrorIs(err, model.ErrSessionNotFound)
}
