// Package dispatch routes inbound realtime events to the services that own
// them. Handlers run one at a time so every table sees a single writer.
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/EliasAN1/Stacktictoe/internal/model"
	"github.com/EliasAN1/Stacktictoe/internal/realtime"
	"github.com/EliasAN1/Stacktictoe/internal/services/game"
	"github.com/EliasAN1/Stacktictoe/internal/services/identity"
	"github.com/EliasAN1/Stacktictoe/internal/services/liveness"
	"github.com/EliasAN1/Stacktictoe/internal/services/lobby"
	"github.com/EliasAN1/Stacktictoe/internal/services/matchmaking"
)

// replies maps errors the requester is told about to the event they receive.
// Every other error is dropped after logging.
var replies = map[error]model.EventType{
	model.ErrCreatorUnavailable: model.EventPlayerIsUnavailable,
	model.ErrWrongPassword:      model.EventWrongPassword,
	model.ErrOpponentAbandoned:  model.EventOpponentAbandonedChallenge,
}

// Dispatcher serialises inbound events and hands them to the services
type Dispatcher struct {
	mu sync.Mutex

	registry    identity.RegistryInterface
	directory   lobby.DirectoryInterface
	games       game.ControllerInterface
	matchmaking matchmaking.ServiceInterface
	liveness    liveness.ManagerInterface
	notifier    realtime.Notifier
	logger      *slog.Logger
}

// New creates a new Dispatcher
func New(
	registry identity.RegistryInterface,
	directory lobby.DirectoryInterface,
	games game.ControllerInterface,
	matchmaking matchmaking.ServiceInterface,
	liveness liveness.ManagerInterface,
	notifier realtime.Notifier,
	logger *slog.Logger,
) *Dispatcher {
	return &Dispatcher{
		registry:    registry,
		directory:   directory,
		games:       games,
		matchmaking: matchmaking,
		liveness:    liveness,
		notifier:    notifier,
		logger:      logger.With(slog.String("component", "dispatch")),
	}
}

// Connect places a new connection in the lobby and sends it the offers
func (d *Dispatcher) Connect(ctx context.Context, conn model.ConnID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.notifier.Join(conn, realtime.LobbyGroup)
	offers, err := d.directory.Snapshot(ctx)
	if err != nil {
		d.logger.Error("failed to list offers",
			slog.String("conn_id", string(conn)),
			slog.String("error", err.Error()),
		)
		return
	}
	d.notifier.Emit(conn, model.EventUpdateGames, offers)
	d.logger.Info("connected", slog.String("conn_id", string(conn)))
}

// Disconnect releases whatever the connection held
func (d *Dispatcher) Disconnect(ctx context.Context, conn model.ConnID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.liveness.Disconnect(ctx, conn); err != nil {
		d.logger.Error("disconnect cleanup failed",
			slog.String("conn_id", string(conn)),
			slog.String("error", err.Error()),
		)
	}
	d.logger.Info("disconnected", slog.String("conn_id", string(conn)))
}

// Handle processes one inbound event from conn
func (d *Dispatcher) Handle(ctx context.Context, conn model.ConnID, env model.Envelope) {
	d.mu.Lock()
	defer d.mu.Unlock()

	err := d.route(ctx, conn, env)
	if err == nil {
		return
	}

	for target, reply := range replies {
		if errors.Is(err, target) {
			d.notifier.Emit(conn, reply, nil)
			d.logger.Info("request refused",
				slog.String("conn_id", string(conn)),
				slog.String("event", string(env.Event)),
				slog.String("reply", string(reply)),
			)
			return
		}
	}

	level := slog.LevelWarn
	if errors.Is(err, model.ErrSessionNotFound) || errors.Is(err, model.ErrOfferNotFound) {
		level = slog.LevelDebug
	}
	d.logger.Log(ctx, level, "event dropped",
		slog.String("conn_id", string(conn)),
		slog.String("event", string(env.Event)),
		slog.String("error", err.Error()),
	)
}

func (d *Dispatcher) route(ctx context.Context, conn model.ConnID, env model.Envelope) error {
	switch env.Event {
	case model.EventSaveUsername:
		var ref model.NameRef
		if err := env.Decode(&ref); err != nil {
			return err
		}
		return d.registry.Bind(ref.Name, conn)

	case model.EventDeleteUsername:
		var ref model.NameRef
		if err := env.Decode(&ref); err != nil {
			return err
		}
		if err := d.requireOwnName(conn, ref.Name); err != nil {
			return err
		}
		d.registry.Release(ref.Name)
		return d.directory.Withdraw(ctx, ref.Name)

	case model.EventCreateNewGame:
		var req model.CreateGameRequest
		if err := env.Decode(&req); err != nil {
			return err
		}
		if err := d.claimName(conn, req.CreatorName); err != nil {
			return err
		}
		_, err := d.directory.Publish(ctx, req.CreatorName, req.Password)
		return err

	case model.EventDeleteCreatedGame:
		var ref model.NameRef
		if err := env.Decode(&ref); err != nil {
			return err
		}
		if err := d.requireOwnName(conn, ref.Name); err != nil {
			return err
		}
		return d.directory.Withdraw(ctx, ref.Name)

	case model.EventJoinGame:
		var req model.JoinGameRequest
		if err := env.Decode(&req); err != nil {
			return err
		}
		_, err := d.matchmaking.JoinGame(ctx, conn, req)
		return err

	case model.EventAcceptChallenge:
		var req model.AcceptChallengeRequest
		if err := env.Decode(&req); err != nil {
			return err
		}
		_, err := d.matchmaking.AcceptChallenge(ctx, conn, req)
		return err

	case model.EventPlayerMadeAMove:
		var req model.MoveRequest
		if err := env.Decode(&req); err != nil {
			return err
		}
		_, err := d.games.ApplyMove(ctx, conn, req)
		return err

	case model.EventMessage:
		var req model.MessageRequest
		if err := env.Decode(&req); err != nil {
			return err
		}
		return d.games.PostMessage(ctx, conn, req)

	case model.EventGoBackToLobby:
		return d.liveness.GoBackToLobby(ctx, conn)

	case model.EventDeclineChallenge,
		model.EventCheckChallengedOpponent,
		model.EventChallengeAgain,
		model.EventAcceptDraw,
		model.EventDeclineDraw,
		model.EventOfferDraw,
		model.EventQuitGame,
		model.EventIsOpponentAlive:
		var ref model.GameRef
		if err := env.Decode(&ref); err != nil {
			return err
		}
		return d.routeGameEvent(ctx, conn, env.Event, ref.GameID)
	}

	return model.ErrUnknownEvent
}

// routeGameEvent handles the events whose only payload is a game id
func (d *Dispatcher) routeGameEvent(ctx context.Context, conn model.ConnID, event model.EventType, id model.GameID) error {
	switch event {
	case model.EventDeclineChallenge:
		return d.matchmaking.DeclineChallenge(ctx, conn, id)
	case model.EventCheckChallengedOpponent:
		return d.matchmaking.CheckChallengedOpponent(ctx, conn, id)
	case model.EventChallengeAgain:
		return d.matchmaking.ChallengeAgain(ctx, conn, id)
	case model.EventAcceptDraw:
		return d.liveness.AcceptDraw(ctx, conn, id)
	case model.EventDeclineDraw:
		return d.liveness.DeclineDraw(ctx, conn, id)
	case model.EventOfferDraw:
		return d.liveness.OfferDraw(ctx, conn, id)
	case model.EventQuitGame:
		return d.liveness.Quit(ctx, conn, id)
	case model.EventIsOpponentAlive:
		return d.liveness.CheckOpponentAlive(ctx, conn, id)
	}
	return model.ErrUnknownEvent
}

// requireOwnName checks that name is bound to conn
func (d *Dispatcher) requireOwnName(conn model.ConnID, name string) error {
	if name == "" {
		return model.ErrMalformedEvent
	}
	bound, ok := d.registry.NameOf(conn)
	if !ok || bound != name {
		return model.ErrSpoofedIdentity
	}
	return nil
}

// claimName binds name to conn unless another connection already holds it
func (d *Dispatcher) claimName(conn model.ConnID, name string) error {
	if name == "" {
		return model.ErrMalformedEvent
	}
	bound, err := d.registry.Lookup(name)
	switch {
	case err == nil && bound == conn:
		return nil
	case err == nil:
		return model.ErrSpoofedIdentity
	}
	return d.registry.Bind(name, conn)
}

// Reap runs one idle-session sweep under the dispatcher lock
func (d *Dispatcher) Reap(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, err := d.liveness.ReapIdle(ctx); err != nil {
		d.logger.Error("idle sweep failed", slog.String("error", err.Error()))
	}
}

// RunReaper sweeps idle sessions every interval until ctx is done
func (d *Dispatcher) RunReaper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.Reap(ctx)
		}
	}
}
