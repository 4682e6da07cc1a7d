package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/EliasAN1/Stacktictoe/internal/model"
	"github.com/EliasAN1/Stacktictoe/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// sessionRecord carries the fields a Session keeps off the wire
type sessionRecord struct {
	Session   *model.Session `json:"session"`
	BlueConn  model.ConnID   `json:"blueConn"`
	RedConn   model.ConnID   `json:"redConn"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Offer operations

func (s *Storage) SaveOffer(ctx context.Context, offer *model.LobbyOffer) error {
	data, err := json.Marshal(offer)
	if err != nil {
		return err
	}

	pipe := s.client.Pipeline()
	pipe.HSet(ctx, offersKey(), offer.CreatorName, data)
	if s.cfg.OfferTTL > 0 {
		pipe.Expire(ctx, offersKey(), s.cfg.OfferTTL)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetOffer(ctx context.Context, creatorName string) (*model.LobbyOffer, error) {
	data, err := s.client.HGet(ctx, offersKey(), creatorName).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrOfferNotFound
		}
		return nil, err
	}

	var offer model.LobbyOffer
	if err := json.Unmarshal(data, &offer); err != nil {
		return nil, err
	}
	return &offer, nil
}

func (s *Storage) DeleteOffer(ctx context.Context, creatorName string) error {
	return s.client.HDel(ctx, offersKey(), creatorName).Err()
}

func (s *Storage) ListOffers(ctx context.Context) ([]*model.LobbyOffer, error) {
	values, err := s.client.HGetAll(ctx, offersKey()).Result()
	if err != nil {
		return nil, err
	}

	offers := make([]*model.LobbyOffer, 0, len(values))
	for _, val := range values {
		var offer model.LobbyOffer
		if err := json.Unmarshal([]byte(val), &offer); err != nil {
			continue // Skip invalid data
		}
		offers = append(offers, &offer)
	}
	return offers, nil
}

// Offer secret operations

func (s *Storage) SaveOfferSecret(ctx context.Context, id model.GameID, hash []byte) error {
	return s.client.Set(ctx, offerSecretKey(id), hash, s.cfg.OfferTTL).Err()
}

func (s *Storage) GetOfferSecret(ctx context.Context, id model.GameID) ([]byte, error) {
	hash, err := s.client.Get(ctx, offerSecretKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrOfferNotFound
		}
		return nil, err
	}
	return hash, nil
}

func (s *Storage) DeleteOfferSecret(ctx context.Context, id model.GameID) error {
	return s.client.Del(ctx, offerSecretKey(id)).Err()
}

// Session operations

func (s *Storage) SaveSession(ctx context.Context, session *model.Session) error {
	data, err := json.Marshal(sessionRecord{
		Session:   session,
		BlueConn:  session.Participants.Blue,
		RedConn:   session.Participants.Red,
		CreatedAt: session.CreatedAt,
		UpdatedAt: session.UpdatedAt,
	})
	if err != nil {
		return err
	}

	key := sessionKey(session.GameID)

	// Use pipeline for atomic save + index update
	pipe := s.client.Pipeline()
	pipe.Set(ctx, key, data, s.cfg.SessionTTL)
	pipe.SAdd(ctx, sessionIndexKey(), key)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetSession(ctx context.Context, id model.GameID) (*model.Session, error) {
	data, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrSessionNotFound
		}
		return nil, err
	}
	return decodeSession(data)
}

func (s *Storage) DeleteSession(ctx context.Context, id model.GameID) error {
	key := sessionKey(id)
	pipe := s.client.Pipeline()
	pipe.Del(ctx, key)
	pipe.SRem(ctx, sessionIndexKey(), key)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *Storage) ListSessions(ctx context.Context) ([]*model.Session, error) {
	keys, err := s.client.SMembers(ctx, sessionIndexKey()).Result()
	if err != nil {
		return nil, err
	}

	if len(keys) == 0 {
		return []*model.Session{}, nil
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	sessions := make([]*model.Session, 0, len(values))
	var expired []interface{}
	for i, val := range values {
		if val == nil {
			expired = append(expired, keys[i])
			continue
		}
		session, err := decodeSession([]byte(val.(string)))
		if err != nil {
			continue // Skip invalid data
		}
		sessions = append(sessions, session)
	}

	// Prune index entries whose session expired
	if len(expired) > 0 {
		if err := s.client.SRem(ctx, sessionIndexKey(), expired...).Err(); err != nil {
			return nil, err
		}
	}

	return sessions, nil
}

func decodeSession(data []byte) (*model.Session, error) {
	var rec sessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	if rec.Session == nil {
		return nil, model.ErrSessionNotFound
	}
	rec.Session.Participants = model.Participants{Blue: rec.BlueConn, Red: rec.RedConn}
	rec.Session.CreatedAt = rec.CreatedAt
	rec.Session.UpdatedAt = rec.UpdatedAt
	return rec.Session, nil
}
