package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/EliasAN1/Stacktictoe/internal/model"
)

type StorageSuite struct {
	suite.Suite
	mini    *miniredis.Miniredis
	storage *Storage
	ctx     context.Context
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.mini = miniredis.RunT(s.T())

	client := redis.NewClient(&redis.Options{
		Addr: s.mini.Addr(),
	})

	cfg := DefaultConfig()
	cfg.OfferTTL = time.Hour
	cfg.SessionTTL = time.Hour

	s.storage = NewWithClient(client, cfg)
	s.ctx = context.Background()
}

func (s *StorageSuite) TearDownTest() {
	if s.storage != nil {
		_ = s.storage.Close()
	}
	if s.mini != nil {
		s.mini.Close()
	}
}

func newSession(id model.GameID) *model.Session {
	created := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	return &model.Session{
		GameID:     id,
		PlayerBlue: model.Player{Name: "alice", Pieces: model.NewPieces()},
		PlayerRed:  model.Player{Name: "bob", Pieces: model.NewPieces()},
		TurnOwner:  "alice",
		Status:     model.StatusPlaying,
		Participants: model.Participants{
			Blue: "conn-a",
			Red:  "conn-b",
		},
		CreatedAt: created,
		UpdatedAt: created,
	}
}

// Offer tests

func (s *StorageSuite) TestSaveAndGetOffer() {
	offer := &model.LobbyOffer{CreatorName: "alice", GameID: 1234567890, PasswordProtected: true}

	err := s.storage.SaveOffer(s.ctx, offer)
	s.Require().NoError(err)

	retrieved, err := s.storage.GetOffer(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(offer.GameID, retrieved.GameID)
	s.True(retrieved.PasswordProtected)
	s.True(s.mini.TTL(offersKey()) > 0, "offers hash should have TTL")
}

func (s *StorageSuite) TestGetOfferNotFound() {
	_, err := s.storage.GetOffer(s.ctx, "nobody")
	s.ErrorIs(err, model.ErrOfferNotFound)
}

func (s *StorageSuite) TestListAndDeleteOffers() {
	_ = s.storage.SaveOffer(s.ctx, &model.LobbyOffer{CreatorName: "alice", GameID: 1})
	_ = s.storage.SaveOffer(s.ctx, &model.LobbyOffer{CreatorName: "bob", GameID: 2})
	_ = s.storage.SaveOffer(s.ctx, &model.LobbyOffer{CreatorName: "alice", GameID: 3})

	offers, err := s.storage.ListOffers(s.ctx)
	s.Require().NoError(err)
	s.Len(offers, 2)
	s.Equal(model.OfferSet{
		"alice": {GameID: 3},
		"bob":   {GameID: 2},
	}, model.NewOfferSet(offers))

	s.Require().NoError(s.storage.DeleteOffer(s.ctx, "alice"))
	offers, err = s.storage.ListOffers(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(offers, 1)
	s.Equal("bob", offers[0].CreatorName)
}

// Secret tests

func (s *StorageSuite) TestOfferSecretLifecycle() {
	err := s.storage.SaveOfferSecret(s.ctx, 7, []byte("hash"))
	s.Require().NoError(err)
	s.True(s.mini.TTL(offerSecretKey(7)) > 0)

	hash, err := s.storage.GetOfferSecret(s.ctx, 7)
	s.Require().NoError(err)
	s.Equal([]byte("hash"), hash)

	s.Require().NoError(s.storage.DeleteOfferSecret(s.ctx, 7))
	_, err = s.storage.GetOfferSecret(s.ctx, 7)
	s.ErrorIs(err, model.ErrOfferNotFound)
}

// Session tests

func (s *StorageSuite) TestSessionRoundTripKeepsParticipants() {
	session := newSession(5)
	session.Board[4] = model.Cell{Size: model.SizeLarge, Owner: model.ColorBlue}

	s.Require().NoError(s.storage.SaveSession(s.ctx, session))

	retrieved, err := s.storage.GetSession(s.ctx, 5)
	s.Require().NoError(err)
	s.Equal(session.Participants, retrieved.Participants)
	s.Equal(session.Board, retrieved.Board)
	s.True(session.CreatedAt.Equal(retrieved.CreatedAt))
}

func (s *StorageSuite) TestGetSessionNotFound() {
	_, err := s.storage.GetSession(s.ctx, 404)
	s.ErrorIs(err, model.ErrSessionNotFound)
}

func (s *StorageSuite) TestDeleteSessionUpdatesIndex() {
	_ = s.storage.SaveSession(s.ctx, newSession(1))
	_ = s.storage.SaveSession(s.ctx, newSession(2))

	s.Require().NoError(s.storage.DeleteSession(s.ctx, 1))

	members, err := s.mini.Members(sessionIndexKey())
	s.Require().NoError(err)
	s.Equal([]string{sessionKey(2)}, members)
}

func (s *StorageSuite) TestListSessionsPrunesExpired() {
	_ = s.storage.SaveSession(s.ctx, newSession(1))
	_ = s.storage.SaveSession(s.ctx, newSession(2))

	s.mini.FastForward(2 * time.Hour)
	_ = s.storage.SaveSession(s.ctx, newSession(3))

	sessions, err := s.storage.ListSessions(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(sessions, 1)
	s.Equal(model.GameID(3), sessions[0].GameID)

	members, err := s.mini.Members(sessionIndexKey())
	s.Require().NoError(err)
	s.Equal([]string{sessionKey(3)}, members)
}
