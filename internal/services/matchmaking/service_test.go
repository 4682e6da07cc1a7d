package matchmaking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"github.com/EliasAN1/Stacktictoe/internal/dependencies/mocks"
	"github.com/EliasAN1/Stacktictoe/internal/model"
	"github.com/EliasAN1/Stacktictoe/internal/realtime"
	"github.com/EliasAN1/Stacktictoe/internal/services/game"
	"github.com/EliasAN1/Stacktictoe/internal/services/identity"
	"github.com/EliasAN1/Stacktictoe/internal/services/lobby"
	"github.com/EliasAN1/Stacktictoe/internal/storage/memory"
	"github.com/EliasAN1/Stacktictoe/internal/testutil"
)

const offerID model.GameID = 1234567890

type ServiceSuite struct {
	suite.Suite
	storage   *memory.Storage
	notifier  *mocks.Notifier
	clock     *mocks.MockClock
	random    *mocks.MockRandom
	registry  *identity.Registry
	directory *lobby.Directory
	games     *game.Controller
	service   *Service
	ctx       context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	logger := testutil.NopLogger()
	s.storage = memory.New()
	s.notifier = mocks.NewNotifier()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	s.registry = identity.New(s.clock, identity.DefaultConfig(), logger)
	s.directory = lobby.NewDirectory(s.storage, s.notifier, s.clock, s.random, lobby.Config{PasswordCost: bcrypt.MinCost}, logger)
	s.games = game.NewController(s.storage, s.registry, s.notifier, s.clock, s.random, logger)
	s.service = New(s.registry, s.directory, s.games, s.notifier, logger)
	s.ctx = context.Background()

	s.connect("alice", "conn-a")
	s.connect("bob", "conn-b")
	s.notifier.Connect("conn-watcher")
}

func (s *ServiceSuite) connect(name string, conn model.ConnID) {
	s.notifier.Connect(conn)
	s.Require().NoError(s.registry.Bind(name, conn))
}

func (s *ServiceSuite) publish(creator, password string) *model.LobbyOffer {
	s.random.QueueInt63n(int64(offerID))
	offer, err := s.directory.Publish(s.ctx, creator, password)
	s.Require().NoError(err)
	s.notifier.Reset()
	return offer
}

// join pairs bob with alice's offer. The coin flip makes the creator blue.
func (s *ServiceSuite) join(password string) (*model.Session, error) {
	s.random.QueueIntn(1)
	return s.service.JoinGame(s.ctx, "conn-b", model.JoinGameRequest{
		CreatorName:  "alice",
		UserPassword: password,
	})
}

// JoinGame tests

func (s *ServiceSuite) TestDirectJoin() {
	s.publish("alice", "")

	session, err := s.join("")
	s.Require().NoError(err)

	s.Equal(offerID, session.GameID)
	s.Equal("alice", session.PlayerBlue.Name)
	s.Equal("bob", session.PlayerRed.Name)
	s.Equal(model.NewPieces(), session.PlayerBlue.Pieces)
	s.Equal(model.NewPieces(), session.PlayerRed.Pieces)
	s.Contains([]string{"alice", "bob"}, session.TurnOwner)

	for _, conn := range []model.ConnID{"conn-a", "conn-b"} {
		payload, ok := s.notifier.Last(conn, model.EventEnterGame)
		s.Require().True(ok)
		s.Equal(offerID, payload.(*model.Session).GameID)
		s.Equal([]string{offerID.String()}, s.notifier.Groups(conn))
	}
}

func (s *ServiceSuite) TestDirectJoinWithdrawsOffer() {
	s.publish("alice", "pw")

	_, err := s.join("pw")
	s.Require().NoError(err)

	_, err = s.directory.Get(s.ctx, "alice")
	s.ErrorIs(err, model.ErrOfferNotFound)

	payload, ok := s.notifier.Last("conn-watcher", model.EventUpdateGames)
	s.Require().True(ok)
	s.Empty(payload)
}

func (s *ServiceSuite) TestDirectJoinWithdrawsJoinersOwnOffer() {
	s.random.QueueInt63n(77)
	_, _ = s.directory.Publish(s.ctx, "bob", "")
	s.publish("alice", "")

	_, err := s.join("")
	s.Require().NoError(err)

	set, _ := s.directory.Snapshot(s.ctx)
	s.Empty(set)
}

func (s *ServiceSuite) TestJoinMissingOffer() {
	_, err := s.join("")
	s.ErrorIs(err, model.ErrCreatorUnavailable)
}

func (s *ServiceSuite) TestJoinCreatorDisconnected() {
	s.publish("alice", "")
	s.notifier.Drop("conn-a")

	_, err := s.join("")
	s.ErrorIs(err, model.ErrCreatorUnavailable)

	_, err = s.storage.GetSession(s.ctx, offerID)
	s.ErrorIs(err, model.ErrSessionNotFound)
}

func (s *ServiceSuite) TestJoinCreatorReleasedName() {
	s.publish("alice", "")
	s.registry.Release("alice")

	_, err := s.join("")
	s.ErrorIs(err, model.ErrCreatorUnavailable)
}

func (s *ServiceSuite) TestJoinWrongPassword() {
	s.publish("alice", "x7")

	_, err := s.join("wrong")
	s.ErrorIs(err, model.ErrWrongPassword)

	_, err = s.storage.GetSession(s.ctx, offerID)
	s.ErrorIs(err, model.ErrSessionNotFound)
	s.Equal([]string{realtime.LobbyGroup}, s.notifier.Groups("conn-b"))
	s.Empty(s.notifier.Deliveries)
}

// sessionSaveFails lets offers through but refuses to store sessions
type sessionSaveFails struct {
	*memory.Storage
}

var errStoreDown = errors.New("store down")

func (f sessionSaveFails) SaveSession(context.Context, *model.Session) error {
	return errStoreDown
}

func (s *ServiceSuite) TestJoinKeepsPlayersInLobbyWhenSessionFails() {
	s.publish("alice", "")
	logger := testutil.NopLogger()
	games := game.NewController(sessionSaveFails{s.storage}, s.registry, s.notifier, s.clock, s.random, logger)
	service := New(s.registry, s.directory, games, s.notifier, logger)

	s.random.QueueIntn(1)
	_, err := service.JoinGame(s.ctx, "conn-b", model.JoinGameRequest{CreatorName: "alice"})
	s.ErrorIs(err, errStoreDown)

	s.Equal([]string{realtime.LobbyGroup}, s.notifier.Groups("conn-a"))
	s.Equal([]string{realtime.LobbyGroup}, s.notifier.Groups("conn-b"))
	s.Empty(s.notifier.Members(realtime.GameGroup(offerID)))
	s.Empty(s.notifier.Deliveries)

	// The offer is still open for another try
	_, err = s.directory.Get(s.ctx, "alice")
	s.NoError(err)
}

func (s *ServiceSuite) TestJoinMissingPassword() {
	s.publish("alice", "x7")

	_, err := s.join("")
	s.ErrorIs(err, model.ErrWrongPassword)
}

func (s *ServiceSuite) TestJoinIgnoresClientPasswordFlag() {
	s.publish("alice", "x7")

	s.random.QueueIntn(1)
	_, err := s.service.JoinGame(s.ctx, "conn-b", model.JoinGameRequest{
		CreatorName: "alice",
		Password:    false,
	})
	s.ErrorIs(err, model.ErrWrongPassword)
}

func (s *ServiceSuite) TestJoinOwnOffer() {
	s.publish("alice", "")

	_, err := s.service.JoinGame(s.ctx, "conn-a", model.JoinGameRequest{CreatorName: "alice"})
	s.ErrorIs(err, model.ErrJoinOwnOffer)
}

func (s *ServiceSuite) TestJoinWithoutIdentity() {
	s.publish("alice", "")
	s.notifier.Connect("conn-anon")

	_, err := s.service.JoinGame(s.ctx, "conn-anon", model.JoinGameRequest{CreatorName: "alice"})
	s.ErrorIs(err, model.ErrIdentityUnknown)
}

// Challenge tests

// finishGame sets up alice and bob in the game group with no live session
func (s *ServiceSuite) finishGame() {
	s.publish("alice", "")
	_, err := s.join("")
	s.Require().NoError(err)
	s.Require().NoError(s.games.Destroy(s.ctx, offerID, "test"))
	s.notifier.Reset()
}

func (s *ServiceSuite) TestAcceptChallengeCreatesRematch() {
	s.finishGame()

	chat := []model.ChatMessage{{Name: "alice", Message: "again?"}}
	s.random.QueueIntn(0)
	session, err := s.service.AcceptChallenge(s.ctx, "conn-b", model.AcceptChallengeRequest{
		GameID:     offerID,
		PlayerBlue: model.ChallengePlayer{Name: "alice"},
		PlayerRed:  model.ChallengePlayer{Name: "bob"},
		Chat:       chat,
	})
	s.Require().NoError(err)

	// Coin flip 0 seats the previous red player as blue
	s.Equal("bob", session.PlayerBlue.Name)
	s.Equal("alice", session.PlayerRed.Name)
	s.Equal(chat, session.Chat)
	s.Equal(model.NewPieces(), session.PlayerBlue.Pieces)

	s.Equal([]model.EventType{model.EventAcceptedChallenge}, s.notifier.EventsFor("conn-a"))
	s.Equal([]model.EventType{model.EventNewGameChallenge}, s.notifier.EventsFor("conn-b"))
}

func (s *ServiceSuite) TestAcceptChallengeUsesRegisteredNames() {
	s.finishGame()

	s.random.QueueIntn(1)
	session, err := s.service.AcceptChallenge(s.ctx, "conn-b", model.AcceptChallengeRequest{
		GameID:     offerID,
		PlayerBlue: model.ChallengePlayer{Name: "mallory"},
		PlayerRed:  model.ChallengePlayer{Name: "eve"},
	})
	s.Require().NoError(err)
	s.ElementsMatch([]string{"alice", "bob"}, []string{session.PlayerBlue.Name, session.PlayerRed.Name})
}

func (s *ServiceSuite) TestAcceptChallengeOpponentAbandoned() {
	s.finishGame()
	s.notifier.Leave("conn-a", realtime.GameGroup(offerID))

	_, err := s.service.AcceptChallenge(s.ctx, "conn-b", model.AcceptChallengeRequest{GameID: offerID})
	s.ErrorIs(err, model.ErrOpponentAbandoned)

	_, err = s.storage.GetSession(s.ctx, offerID)
	s.ErrorIs(err, model.ErrSessionNotFound)
}

func (s *ServiceSuite) TestAcceptChallengeOutsiderRejected() {
	s.finishGame()
	s.connect("carol", "conn-c")

	_, err := s.service.AcceptChallenge(s.ctx, "conn-c", model.AcceptChallengeRequest{GameID: offerID})
	s.ErrorIs(err, model.ErrNotInGroup)
}

func (s *ServiceSuite) TestAcceptChallengeDuringLiveSession() {
	s.publish("alice", "")
	_, _ = s.join("")

	_, err := s.service.AcceptChallenge(s.ctx, "conn-b", model.AcceptChallengeRequest{GameID: offerID})
	s.ErrorIs(err, model.ErrSessionActive)
}

func (s *ServiceSuite) TestDeclineChallenge() {
	s.finishGame()

	s.Require().NoError(s.service.DeclineChallenge(s.ctx, "conn-b", offerID))
	s.Equal([]model.EventType{model.EventDeclinedChallenge}, s.notifier.EventsFor("conn-a"))
	s.Empty(s.notifier.EventsFor("conn-b"))
}

func (s *ServiceSuite) TestCheckChallengedOpponentStillThere() {
	s.finishGame()

	s.Require().NoError(s.service.CheckChallengedOpponent(s.ctx, "conn-a", offerID))
	s.Empty(s.notifier.Deliveries)
}

func (s *ServiceSuite) TestCheckChallengedOpponentLeft() {
	s.finishGame()
	s.notifier.Leave("conn-b", realtime.GameGroup(offerID))

	s.Require().NoError(s.service.CheckChallengedOpponent(s.ctx, "conn-a", offerID))
	s.Equal([]model.EventType{model.EventDeclinedChallenge}, s.notifier.EventsFor("conn-a"))
}

func (s *ServiceSuite) TestChallengeAgain() {
	s.finishGame()

	s.Require().NoError(s.service.ChallengeAgain(s.ctx, "conn-a", offerID))
	s.Equal([]model.EventType{model.EventChallengedAgain}, s.notifier.EventsFor("conn-b"))
}

func (s *ServiceSuite) TestChallengeAgainOutsiderDropped() {
	s.finishGame()
	s.connect("carol", "conn-c")

	s.ErrorIs(s.service.ChallengeAgain(s.ctx, "conn-c", offerID), model.ErrNotInGroup)
	s.Empty(s.notifier.Deliveries)
}
