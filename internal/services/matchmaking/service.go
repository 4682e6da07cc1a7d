package matchmaking

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"github.com/EliasAN1/Stacktictoe/internal/model"
	"github.com/EliasAN1/Stacktictoe/internal/realtime"
	"github.com/EliasAN1/Stacktictoe/internal/services/game"
	"github.com/EliasAN1/Stacktictoe/internal/services/identity"
	"github.com/EliasAN1/Stacktictoe/internal/services/lobby"
)

// Service turns lobby offers and rematch challenges into sessions
type Service struct {
	registry  identity.RegistryInterface
	directory lobby.DirectoryInterface
	games     game.ControllerInterface
	notifier  realtime.Notifier
	logger    *slog.Logger
}

// New creates a new matchmaking Service
func New(
	registry identity.RegistryInterface,
	directory lobby.DirectoryInterface,
	games game.ControllerInterface,
	notifier realtime.Notifier,
	logger *slog.Logger,
) *Service {
	return &Service{
		registry:  registry,
		directory: directory,
		games:     games,
		notifier:  notifier,
		logger:    logger.With(slog.String("component", "matchmaking")),
	}
}

// JoinGame pairs the joiner with the creator of an open offer.
// The offer is looked up by creator name; nothing else in the request is trusted
// except the supplied password.
func (s *Service) JoinGame(ctx context.Context, joiner model.ConnID, req model.JoinGameRequest) (*model.Session, error) {
	joinerName, ok := s.registry.NameOf(joiner)
	if !ok {
		return nil, model.ErrIdentityUnknown
	}

	offer, err := s.directory.Get(ctx, req.CreatorName)
	if err != nil {
		if errors.Is(err, model.ErrOfferNotFound) {
			return nil, model.ErrCreatorUnavailable
		}
		return nil, err
	}

	creator, err := s.registry.Lookup(offer.CreatorName)
	if err != nil || !s.notifier.Connected(creator) {
		return nil, model.ErrCreatorUnavailable
	}
	if creator == joiner {
		return nil, model.ErrJoinOwnOffer
	}

	if err := s.directory.CheckPassword(ctx, offer, req.UserPassword); err != nil {
		return nil, err
	}

	// Nobody leaves the lobby until the session exists
	session, err := s.games.CreateSession(ctx, offer.GameID,
		game.Seat{Name: offer.CreatorName, Conn: creator},
		game.Seat{Name: joinerName, Conn: joiner},
		nil,
	)
	if err != nil {
		return nil, err
	}

	group := realtime.GameGroup(offer.GameID)
	for _, conn := range []model.ConnID{joiner, creator} {
		s.notifier.Leave(conn, realtime.LobbyGroup)
		s.notifier.Join(conn, group)
	}

	s.notifier.Emit(joiner, model.EventEnterGame, session)
	s.notifier.Emit(creator, model.EventEnterGame, session)

	// A player in a game no longer has an open offer
	if err := s.directory.Withdraw(ctx, joinerName); err != nil {
		return nil, err
	}
	if err := s.directory.Withdraw(ctx, offer.CreatorName); err != nil {
		return nil, err
	}

	s.logger.Info("offer joined",
		slog.String("game_id", offer.GameID.String()),
		slog.String("player", joinerName),
		slog.String("creator", offer.CreatorName),
	)
	return session, nil
}

// requireMember checks that conn is in the game's group and returns the group members
func (s *Service) requireMember(conn model.ConnID, id model.GameID) ([]model.ConnID, error) {
	members := s.notifier.Members(realtime.GameGroup(id))
	if !slices.Contains(members, conn) {
		return nil, model.ErrNotInGroup
	}
	return members, nil
}

// AcceptChallenge starts a rematch between the two connections still in the
// game's group. Sides are flipped again and the prior chat carries over.
func (s *Service) AcceptChallenge(ctx context.Context, conn model.ConnID, req model.AcceptChallengeRequest) (*model.Session, error) {
	members, err := s.requireMember(conn, req.GameID)
	if err != nil {
		return nil, err
	}
	if len(members) < 2 {
		return nil, model.ErrOpponentAbandoned
	}

	if _, err := s.games.GetSession(ctx, req.GameID); err == nil {
		return nil, model.ErrSessionActive
	} else if !errors.Is(err, model.ErrSessionNotFound) {
		return nil, err
	}

	accepter, ok := s.registry.NameOf(conn)
	if !ok {
		return nil, model.ErrIdentityUnknown
	}

	var challenger game.Seat
	for _, member := range members {
		if member == conn {
			continue
		}
		name, ok := s.registry.NameOf(member)
		if ok && s.notifier.Connected(member) {
			challenger = game.Seat{Name: name, Conn: member}
			break
		}
	}
	if challenger.Conn == "" {
		return nil, model.ErrOpponentAbandoned
	}

	// Seat the previous blue player first so the coin flip reads the same way
	first, second := challenger, game.Seat{Name: accepter, Conn: conn}
	if req.PlayerBlue.Name == accepter {
		first, second = second, first
	}

	session, err := s.games.CreateSession(ctx, req.GameID, first, second, req.Chat)
	if err != nil {
		return nil, err
	}

	s.notifier.EmitToGroup(realtime.GameGroup(req.GameID), conn, model.EventAcceptedChallenge, session)
	s.notifier.Emit(conn, model.EventNewGameChallenge, session)

	s.logger.Info("rematch started",
		slog.String("game_id", req.GameID.String()),
		slog.String("player", accepter),
		slog.String("challenger", challenger.Name),
	)
	return session, nil
}

// DeclineChallenge tells the challenger the rematch was refused
func (s *Service) DeclineChallenge(ctx context.Context, conn model.ConnID, id model.GameID) error {
	if _, err := s.requireMember(conn, id); err != nil {
		return err
	}
	s.notifier.EmitToGroup(realtime.GameGroup(id), conn, model.EventDeclinedChallenge, nil)
	return nil
}

// CheckChallengedOpponent reports a decline to the challenger if the
// opponent has already left the game's group
func (s *Service) CheckChallengedOpponent(ctx context.Context, conn model.ConnID, id model.GameID) error {
	members, err := s.requireMember(conn, id)
	if err != nil {
		return err
	}
	if len(members) < 2 {
		s.notifier.Emit(conn, model.EventDeclinedChallenge, nil)
	}
	return nil
}

// ChallengeAgain asks the other participant for a rematch
func (s *Service) ChallengeAgain(ctx context.Context, conn model.ConnID, id model.GameID) error {
	if _, err := s.requireMember(conn, id); err != nil {
		return err
	}
	s.notifier.EmitToGroup(realtime.GameGroup(id), conn, model.EventChallengedAgain, nil)
	return nil
}

// Interface for dependency injection
type ServiceInterface interface {
	JoinGame(ctx context.Context, joiner model.ConnID, req model.JoinGameRequest) (*model.Session, error)
	AcceptChallenge(ctx context.Context, conn model.ConnID, req model.AcceptChallengeRequest) (*model.Session, error)
	DeclineChallenge(ctx context.Context, conn model.ConnID, id model.GameID) error
	CheckChallengedOpponent(ctx context.Context, conn model.ConnID, id model.GameID) error
	ChallengeAgain(ctx context.Context, conn model.ConnID, id model.GameID) error
}

var _ ServiceInterface = (*Service)(nil)
