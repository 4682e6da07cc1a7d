package lobby

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/EliasAN1/Stacktictoe/internal/dependencies/clock"
	"github.com/EliasAN1/Stacktictoe/internal/dependencies/random"
	"github.com/EliasAN1/Stacktictoe/internal/model"
	"github.com/EliasAN1/Stacktictoe/internal/realtime"
	"github.com/EliasAN1/Stacktictoe/internal/storage"
)

const (
	// GameIDSpace bounds generated game ids to [0, GameIDSpace)
	GameIDSpace = 10_000_000_000

	// MaxPasswordBytes is the longest password bcrypt represents exactly
	MaxPasswordBytes = 72

	// DefaultPasswordCost keeps hashing to a few milliseconds. Offer passwords
	// are hashed and compared while the dispatcher serializes every event.
	DefaultPasswordCost = bcrypt.MinCost + 2
)

// Config holds configuration for the directory
type Config struct {
	PasswordCost int
}

// DefaultConfig returns default directory configuration
func DefaultConfig() Config {
	return Config{
		PasswordCost: DefaultPasswordCost,
	}
}

// Directory tracks open game offers, one per creator, and keeps the lobby
// group informed of the full offer set
type Directory struct {
	storage  storage.Storage
	notifier realtime.Notifier
	clock    clock.Clock
	random   random.Random
	cfg      Config
	logger   *slog.Logger
}

// NewDirectory creates a new Directory
func NewDirectory(
	storage storage.Storage,
	notifier realtime.Notifier,
	clock clock.Clock,
	random random.Random,
	cfg Config,
	logger *slog.Logger,
) *Directory {
	if cfg.PasswordCost == 0 {
		cfg.PasswordCost = DefaultConfig().PasswordCost
	}
	return &Directory{
		storage:  storage,
		notifier: notifier,
		clock:    clock,
		random:   random,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "lobby")),
	}
}

// Publish opens an offer for the creator, replacing any offer they already had.
// The password is kept apart from the offer as a hash.
func (d *Directory) Publish(ctx context.Context, creatorName, password string) (*model.LobbyOffer, error) {
	if creatorName == "" {
		return nil, model.ErrMalformedEvent
	}
	if len(password) > MaxPasswordBytes {
		return nil, model.ErrPasswordTooLong
	}

	if err := d.remove(ctx, creatorName); err != nil {
		return nil, err
	}

	offer := &model.LobbyOffer{
		CreatorName:       creatorName,
		GameID:            model.GameID(d.random.Int63n(GameIDSpace)),
		PasswordProtected: password != "",
		CreatedAt:         d.clock.Now(),
	}

	if offer.PasswordProtected {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), d.cfg.PasswordCost)
		if err != nil {
			return nil, err
		}
		if err := d.storage.SaveOfferSecret(ctx, offer.GameID, hash); err != nil {
			return nil, err
		}
	}

	if err := d.storage.SaveOffer(ctx, offer); err != nil {
		d.logger.Error("failed to save offer",
			slog.String("game_id", offer.GameID.String()),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	d.logger.Info("offer published",
		slog.String("game_id", offer.GameID.String()),
		slog.String("player", creatorName),
		slog.Bool("password", offer.PasswordProtected),
	)

	return offer, d.Broadcast(ctx)
}

// Withdraw removes the creator's offer and its secret. Withdrawing a missing
// offer is a no-op and sends nothing.
func (d *Directory) Withdraw(ctx context.Context, creatorName string) error {
	if _, err := d.storage.GetOffer(ctx, creatorName); err != nil {
		if errors.Is(err, model.ErrOfferNotFound) {
			return nil
		}
		return err
	}

	if err := d.remove(ctx, creatorName); err != nil {
		return err
	}

	d.logger.Info("offer withdrawn", slog.String("player", creatorName))
	return d.Broadcast(ctx)
}

// remove deletes an offer and its secret without notifying anyone
func (d *Directory) remove(ctx context.Context, creatorName string) error {
	offer, err := d.storage.GetOffer(ctx, creatorName)
	if err != nil {
		if errors.Is(err, model.ErrOfferNotFound) {
			return nil
		}
		return err
	}
	if err := d.storage.DeleteOfferSecret(ctx, offer.GameID); err != nil {
		return err
	}
	return d.storage.DeleteOffer(ctx, creatorName)
}

// Get returns the creator's open offer
func (d *Directory) Get(ctx context.Context, creatorName string) (*model.LobbyOffer, error) {
	return d.storage.GetOffer(ctx, creatorName)
}

// Snapshot returns every open offer keyed by creator
func (d *Directory) Snapshot(ctx context.Context) (model.OfferSet, error) {
	offers, err := d.storage.ListOffers(ctx)
	if err != nil {
		return nil, err
	}
	return model.NewOfferSet(offers), nil
}

// CheckPassword verifies a joiner's password against the offer's secret.
// Offers without a password accept anything.
func (d *Directory) CheckPassword(ctx context.Context, offer *model.LobbyOffer, supplied string) error {
	if !offer.PasswordProtected {
		return nil
	}
	if supplied == "" {
		return model.ErrWrongPassword
	}

	hash, err := d.storage.GetOfferSecret(ctx, offer.GameID)
	if err != nil {
		if errors.Is(err, model.ErrOfferNotFound) {
			return model.ErrWrongPassword
		}
		return err
	}

	if err := bcrypt.CompareHashAndPassword(hash, []byte(supplied)); err != nil {
		return model.ErrWrongPassword
	}
	return nil
}

// Broadcast sends the whole offer set to every lobby member
func (d *Directory) Broadcast(ctx context.Context) error {
	set, err := d.Snapshot(ctx)
	if err != nil {
		return err
	}
	d.notifier.EmitToGroup(realtime.LobbyGroup, "", model.EventUpdateGames, set)
	return nil
}

// Interface for dependency injection
type DirectoryInterface interface {
	Publish(ctx context.Context, creatorName, password string) (*model.LobbyOffer, error)
	Withdraw(ctx context.Context, creatorName string) error
	Get(ctx context.Context, creatorName string) (*model.LobbyOffer, error)
	Snapshot(ctx context.Context) (model.OfferSet, error)
	CheckPassword(ctx context.Context, offer *model.LobbyOffer, supplied string) error
	Broadcast(ctx context.Context) error
}

var _ DirectoryInterface = (*Directory)(nil)
