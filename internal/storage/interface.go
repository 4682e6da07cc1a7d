package storage

import (
	"context"

	"github.com/EliasAN1/Stacktictoe/internal/model"
)

// Storage defines the interface for the server's shared tables
type Storage interface {
	// Lobby offer operations, keyed by creator name
	SaveOffer(ctx context.Context, offer *model.LobbyOffer) error
	GetOffer(ctx context.Context, creatorName string) (*model.LobbyOffer, error)
	DeleteOffer(ctx context.Context, creatorName string) error
	ListOffers(ctx context.Context) ([]*model.LobbyOffer, error)

	// Offer secret operations. Secrets are never part of an offer.
	SaveOfferSecret(ctx context.Context, id model.GameID, hash []byte) error
	GetOfferSecret(ctx context.Context, id model.GameID) ([]byte, error)
	DeleteOfferSecret(ctx context.Context, id model.GameID) error

	// Live session operations
	SaveSession(ctx context.Context, session *model.Session) error
	GetSession(ctx context.Context, id model.GameID) (*model.Session, error)
	DeleteSession(ctx context.Context, id model.GameID) error
	ListSessions(ctx context.Context) ([]*model.Session, error)
}
