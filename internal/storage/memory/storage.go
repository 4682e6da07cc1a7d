package memory

import (
	"bytes"
	"context"
	"sync"

	"github.com/EliasAN1/Stacktictoe/internal/model"
	"github.com/EliasAN1/Stacktictoe/internal/storage"
)

// Storage is an in-memory implementation of the storage interface.
// Values are copied on the way in and out so callers never share state.
type Storage struct {
	mu sync.RWMutex

	offers   map[string]*model.LobbyOffer
	secrets  map[model.GameID][]byte
	sessions map[model.GameID]*model.Session
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		offers:   make(map[string]*model.LobbyOffer),
		secrets:  make(map[model.GameID][]byte),
		sessions: make(map[model.GameID]*model.Session),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Offer operations

func (s *Storage) SaveOffer(ctx context.Context, offer *model.LobbyOffer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o := *offer
	s.offers[offer.CreatorName] = &o
	return nil
}

func (s *Storage) GetOffer(ctx context.Context, creatorName string) (*model.LobbyOffer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	offer, ok := s.offers[creatorName]
	if !ok {
		return nil, model.ErrOfferNotFound
	}
	o := *offer
	return &o, nil
}

func (s *Storage) DeleteOffer(ctx context.Context, creatorName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.offers, creatorName)
	return nil
}

func (s *Storage) ListOffers(ctx context.Context) ([]*model.LobbyOffer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	offers := make([]*model.LobbyOffer, 0, len(s.offers))
	for _, offer := range s.offers {
		o := *offer
		offers = append(offers, &o)
	}
	return offers, nil
}

// Offer secret operations

func (s *Storage) SaveOfferSecret(ctx context.Context, id model.GameID, hash []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.secrets[id] = bytes.Clone(hash)
	return nil
}

func (s *Storage) GetOfferSecret(ctx context.Context, id model.GameID) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hash, ok := s.secrets[id]
	if !ok {
		return nil, model.ErrOfferNotFound
	}
	return bytes.Clone(hash), nil
}

func (s *Storage) DeleteOfferSecret(ctx context.Context, id model.GameID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.secrets, id)
	return nil
}

// Session operations

func (s *Storage) SaveSession(ctx context.Context, session *model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.GameID] = session.Clone()
	return nil
}

func (s *Storage) GetSession(ctx context.Context, id model.GameID) (*model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, model.ErrSessionNotFound
	}
	return session.Clone(), nil
}

func (s *Storage) DeleteSession(ctx context.Context, id model.GameID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func (s *Storage) ListSessions(ctx context.Context) ([]*model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sessions := make([]*model.Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, session.Clone())
	}
	return sessions, nil
}
