package redis

import (
	"fmt"

	"github.com/EliasAN1/Stacktictoe/internal/model"
)

// Key prefix for all server data
const keyPrefix = "stt"

// offersKey returns the Redis key for the HASH of creator name -> offer
func offersKey() string {
	return fmt.Sprintf("%s:offers", keyPrefix)
}

// offerSecretKey returns the Redis key for an offer's password hash
func offerSecretKey(id model.GameID) string {
	return fmt.Sprintf("%s:offer_secret:%s", keyPrefix, id)
}

// sessionKey returns the Redis key for a Session
func sessionKey(id model.GameID) string {
	return fmt.Sprintf("%s:session:%s", keyPrefix, id)
}

// sessionIndexKey returns the Redis key for the SET of live session keys
func sessionIndexKey() string {
	return fmt.Sprintf("%s:idx:sessions", keyPrefix)
}
