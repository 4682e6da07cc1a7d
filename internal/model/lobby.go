package model

import (
	"strconv"
	"time"
)

// GameID identifies a lobby offer and every session played from it
type GameID int64

// String returns the decimal form used for group names and storage keys
func (id GameID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// ParseGameID parses the decimal form of a GameID
func ParseGameID(s string) (GameID, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return GameID(n), nil
}

// LobbyOffer is a published game awaiting a second player.
// The password itself is never part of the offer; only whether one is required.
type LobbyOffer struct {
	CreatorName       string    `json:"creatorName"`
	GameID            GameID    `json:"gameID"`
	PasswordProtected bool      `json:"passwordProtected"`
	CreatedAt         time.Time `json:"createdAt"`
}

// OfferView is the broadcastable form of an offer
type OfferView struct {
	GameID   GameID `json:"gameID"`
	Password bool   `json:"password"`
}

// OfferSet maps creator names to their open offers. It is always sent whole.
type OfferSet map[string]OfferView

// NewOfferSet builds the broadcastable offer mapping
func NewOfferSet(offers []*LobbyOffer) OfferSet {
	set := make(OfferSet, len(offers))
	for _, o := range offers {
		set[o.CreatorName] = OfferView{
			GameID:   o.GameID,
			Password: o.PasswordProtected,
		}
	}
	return set
}
